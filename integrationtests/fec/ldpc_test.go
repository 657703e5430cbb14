package fec_test

import (
	"context"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/observe-l/nrfec/fec"
	"github.com/observe-l/nrfec/internal/channel"
	"github.com/observe-l/nrfec/internal/log"
)

func newCodec(t *testing.T, alg fec.Algorithm, maxIters int) (*fec.TransportEncoder, *fec.TransportDecoder) {
	t.Helper()
	tables, err := fec.NewEmbeddedTableProvider()
	require.NoError(t, err)
	cache := fec.NewMatrixCache(tables, nil)
	opts := fec.Options{Workers: 4, Algorithm: alg, MaxIterations: maxIters, Logger: log.Discard()}
	return fec.NewTransportEncoder(cache, opts), fec.NewTransportDecoder(cache, opts)
}

func randomTB(rng *rand.Rand, n int) fec.Bits {
	tb := make(fec.Bits, n)
	for i := range tb {
		tb[i] = fec.Bit(rng.IntN(2))
	}
	return tb
}

// TestTransportBlockOverAWGN sends transport blocks well above the decoding
// threshold and expects every one back intact.
func TestTransportBlockOverAWGN(t *testing.T) {
	const tbs = 1000
	cfg := fec.TransportConfig{CodeRate: 0.5, G: 2400, Qm: 2}
	for _, alg := range []fec.Algorithm{fec.BeliefPropagation{}, fec.MinSum{Alpha: 0.8}} {
		t.Run(alg.String(), func(t *testing.T) {
			enc, dec := newCodec(t, alg, 30)
			rng := rand.New(rand.NewPCG(100, 101))
			for frame := 0; frame < 4; frame++ {
				tb := randomTB(rng, tbs)
				coded, err := enc.Encode(context.Background(), tb, cfg)
				require.NoError(t, err)
				require.Equal(t, fec.BG2, coded.Seg.BG)

				ch, err := channel.NewAWGN(7, float64(tbs)/float64(cfg.G), uint64(frame)+1)
				require.NoError(t, err)
				res, err := dec.Decode(context.Background(), ch.LLRs(coded.Bits), tbs, cfg, nil)
				require.NoError(t, err)
				require.False(t, res.CRCFailed, "frame %d", frame)
				require.True(t, tb.Equal(res.Payload), "frame %d", frame)
				require.True(t, res.Blocks[0].Converged)
			}
		})
	}
}

func TestTransportBlockOverBSC(t *testing.T) {
	const tbs = 1000
	cfg := fec.TransportConfig{CodeRate: 0.5, G: 2400, Qm: 2}
	enc, dec := newCodec(t, fec.BeliefPropagation{}, 30)
	rng := rand.New(rand.NewPCG(102, 103))
	for frame := 0; frame < 4; frame++ {
		tb := randomTB(rng, tbs)
		coded, err := enc.Encode(context.Background(), tb, cfg)
		require.NoError(t, err)
		llr := channel.NewBSC(0.01, rng).LLRs(coded.Bits)
		res, err := dec.Decode(context.Background(), llr, tbs, cfg, nil)
		require.NoError(t, err)
		require.False(t, res.CRCFailed, "frame %d", frame)
		require.True(t, tb.Equal(res.Payload), "frame %d", frame)
	}
}

// TestMultiBlockTransportBlock covers segmentation with per-block CRC24B and
// an uneven split of the payload over the code blocks.
func TestMultiBlockTransportBlock(t *testing.T) {
	const tbs = 20000
	cfg := fec.TransportConfig{CodeRate: 0.6, G: 34000, Qm: 4}
	enc, dec := newCodec(t, fec.MinSum{Alpha: 0.8}, 20)
	tb := randomTB(rand.New(rand.NewPCG(104, 105)), tbs)

	coded, err := enc.Encode(context.Background(), tb, cfg)
	require.NoError(t, err)
	require.Equal(t, fec.BG1, coded.Seg.BG)
	require.Equal(t, fec.CRC24A, coded.CRC)
	require.Equal(t, 3, coded.Seg.C)
	require.Equal(t, 24, coded.Seg.L)
	sum := 0
	for _, e := range coded.E {
		sum += e
	}
	require.Equal(t, cfg.G, sum)

	res, err := dec.Decode(context.Background(), fec.BitsToLLR(coded.Bits, 8), tbs, cfg, nil)
	require.NoError(t, err)
	require.False(t, res.CRCFailed)
	require.True(t, tb.Equal(res.Payload))
	for r, b := range res.Blocks {
		require.True(t, b.Converged, "block %d", r)
		require.False(t, b.CRCFailed, "block %d", r)
	}
}

// TestBlockCRCFailureIsReported wipes one code block's LLRs so that only that
// block and the transport block CRC fail.
func TestBlockCRCFailureIsReported(t *testing.T) {
	const tbs = 20000
	cfg := fec.TransportConfig{CodeRate: 0.6, G: 34000, Qm: 4}
	enc, dec := newCodec(t, fec.BeliefPropagation{}, 5)
	tb := randomTB(rand.New(rand.NewPCG(106, 107)), tbs)

	coded, err := enc.Encode(context.Background(), tb, cfg)
	require.NoError(t, err)
	llr := fec.BitsToLLR(coded.Bits, 8)
	start := coded.E[0]
	for i := start; i < start+coded.E[1]; i++ {
		llr[i] = 0
	}
	res, err := dec.Decode(context.Background(), llr, tbs, cfg, nil)
	require.NoError(t, err)
	require.True(t, res.CRCFailed)
	require.True(t, res.Blocks[0].Converged)
	require.False(t, res.Blocks[0].CRCFailed)
	require.False(t, res.Blocks[1].Converged)
	require.True(t, res.Blocks[1].CRCFailed)
	require.False(t, res.Blocks[2].CRCFailed)
}

// TestHARQIncrementalRedundancy retransmits a block sent above rate one with
// the usual redundancy version sequence until the soft buffers combine into
// something decodable.
func TestHARQIncrementalRedundancy(t *testing.T) {
	const tbs = 100
	enc, dec := newCodec(t, fec.BeliefPropagation{}, 20)
	tb := randomTB(rand.New(rand.NewPCG(108, 109)), tbs)

	var harq []*fec.SoftBuffer
	decodedAt := -1
	for attempt, rv := range []int{0, 2, 3, 1} {
		cfg := fec.TransportConfig{CodeRate: 0.5, G: 120, Qm: 2, RV: rv}
		coded, err := enc.Encode(context.Background(), tb, cfg)
		require.NoError(t, err)
		res, err := dec.Decode(context.Background(), fec.BitsToLLR(coded.Bits, 6), tbs, cfg, harq)
		require.NoError(t, err)
		if !res.CRCFailed {
			require.True(t, tb.Equal(res.Payload))
			decodedAt = attempt
			break
		}
		harq = res.SoftBuffers
	}
	require.Equal(t, 1, decodedAt)
}

func TestLimitedBufferRateMatching(t *testing.T) {
	const tbs = 4000
	cfg := fec.TransportConfig{CodeRate: 0.5, G: 8000, Qm: 2, TBSLBRM: 6000}
	enc, dec := newCodec(t, fec.BeliefPropagation{}, 20)
	tb := randomTB(rand.New(rand.NewPCG(110, 111)), tbs)

	coded, err := enc.Encode(context.Background(), tb, cfg)
	require.NoError(t, err)
	res, err := dec.Decode(context.Background(), fec.BitsToLLR(coded.Bits, 8), tbs, cfg, nil)
	require.NoError(t, err)
	require.False(t, res.CRCFailed)
	require.True(t, tb.Equal(res.Payload))
	// nothing beyond Ncb = 3*6000/2 = 9000 is ever received
	for i := 9000; i < len(res.SoftBuffers[0].LLR); i++ {
		require.Zero(t, res.SoftBuffers[0].LLR[i])
	}
}
