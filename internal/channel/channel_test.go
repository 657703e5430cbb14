package channel

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/stat"

	"github.com/observe-l/nrfec/fec"
)

func TestBSCExtremes(t *testing.T) {
	bits := fec.Bits{fec.Zero, fec.One, fec.Filler, fec.Zero}

	none := bits.Clone()
	require.Zero(t, NewBSC(0, rand.New(rand.NewPCG(1, 1))).Apply(none))
	require.True(t, bits.Equal(none))

	all := bits.Clone()
	require.Equal(t, 3, NewBSC(1, rand.New(rand.NewPCG(1, 1))).Apply(all))
	require.Equal(t, fec.Bits{fec.One, fec.Zero, fec.Filler, fec.One}, all)
}

func TestBSCCrossoverRate(t *testing.T) {
	const n = 100000
	bsc := NewBSC(0.1, rand.New(rand.NewPCG(2, 3)))
	flipped := bsc.Apply(make(fec.Bits, n))
	require.InDelta(t, 0.1, float64(flipped)/n, 0.01)
}

func TestBSCLLRs(t *testing.T) {
	llr := NewBSC(0.1, rand.New(rand.NewPCG(4, 5))).LLRs(make(fec.Bits, 1000))
	for _, v := range llr {
		require.InDelta(t, math.Log(9), math.Abs(v), 1e-12)
	}
	llr = NewBSC(0, nil).LLRs(fec.Bits{fec.One})
	require.Equal(t, []float64{-fec.LLRMax}, llr)
}

func TestAWGNStatistics(t *testing.T) {
	ch, err := NewAWGN(0, 0.5, 7)
	require.NoError(t, err)
	require.InDelta(t, 1.0, ch.Sigma(), 1e-12)

	const n = 100000
	llr := ch.LLRs(make(fec.Bits, n))
	require.InDelta(t, 2.0, stat.Mean(llr, nil), 0.05)

	wrong := 0
	for _, v := range llr {
		if v < 0 {
			wrong++
		}
	}
	// Q(1) for BPSK at unit noise
	require.InDelta(t, 0.1587, float64(wrong)/n, 0.01)
}

func TestAWGNDeterministicPerSeed(t *testing.T) {
	bits := fec.Bits{fec.Zero, fec.One, fec.One, fec.Zero}
	a, err := NewAWGN(3, 0.5, 11)
	require.NoError(t, err)
	b, err := NewAWGN(3, 0.5, 11)
	require.NoError(t, err)
	require.Equal(t, a.LLRs(bits), b.LLRs(bits))

	_, err = NewAWGN(3, 0, 11)
	require.Error(t, err)
	_, err = NewAWGN(3, 1.5, 11)
	require.Error(t, err)
}
