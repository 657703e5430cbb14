// Package channel models the links used to exercise the codec: BPSK over
// additive white Gaussian noise and the binary symmetric channel.
package channel

import (
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/observe-l/nrfec/fec"
)

// AWGN maps bits to BPSK symbols (0 -> +1, 1 -> -1), adds Gaussian noise and
// returns LLRs 2y/sigma^2.
type AWGN struct {
	sigma float64
	noise distuv.Normal
}

// NewAWGN returns a channel at the given Eb/N0 (dB) for a code of rate r.
func NewAWGN(ebn0dB, rate float64, seed uint64) (*AWGN, error) {
	if rate <= 0 || rate > 1 {
		return nil, fmt.Errorf("channel: code rate %g outside (0, 1]", rate)
	}
	esn0 := rate * math.Pow(10, ebn0dB/10)
	sigma := math.Sqrt(1 / (2 * esn0))
	return &AWGN{
		sigma: sigma,
		noise: distuv.Normal{Mu: 0, Sigma: sigma, Src: rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)},
	}, nil
}

// Sigma is the noise standard deviation per real dimension.
func (a *AWGN) Sigma() float64 { return a.sigma }

// LLRs transmits bits and returns the received LLRs.
func (a *AWGN) LLRs(bits fec.Bits) []float64 {
	out := make([]float64, len(bits))
	scale := 2 / (a.sigma * a.sigma)
	for i, b := range bits {
		x := 1.0
		if b == fec.One {
			x = -1
		}
		y := x + a.noise.Rand()
		out[i] = math.Max(-fec.LLRMax, math.Min(fec.LLRMax, scale*y))
	}
	return out
}
