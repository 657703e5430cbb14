package channel

import (
	"math"
	"math/rand/v2"

	"github.com/observe-l/nrfec/fec"
)

// BSC is a binary symmetric channel: each bit is flipped when u < p.
type BSC struct {
	p   float64
	rng *rand.Rand
}

func NewBSC(p float64, rng *rand.Rand) *BSC { return &BSC{p: p, rng: rng} }

// Flip draws one crossover decision.
func (b *BSC) Flip() bool {
	if b.p <= 0 {
		return false
	}
	if b.p >= 1 {
		return true
	}
	return b.rng.Float64() < b.p
}

// Apply flips bits in place and returns how many were flipped. Filler
// positions are left alone.
func (b *BSC) Apply(bits fec.Bits) int {
	n := 0
	for i := range bits {
		if bits[i].IsFiller() {
			continue
		}
		if b.Flip() {
			bits[i].Flip()
			n++
		}
	}
	return n
}

// LLRs passes bits through the channel and returns the channel LLRs,
// ±log((1-p)/p), capped at fec.LLRMax.
func (b *BSC) LLRs(bits fec.Bits) []float64 {
	rx := bits.Clone()
	b.Apply(rx)
	mag := fec.LLRMax
	if b.p > 0 && b.p < 1 {
		mag = math.Min(math.Abs(math.Log((1-b.p)/b.p)), fec.LLRMax)
	}
	return fec.BitsToLLR(rx, mag)
}
