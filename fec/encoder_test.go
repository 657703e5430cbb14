package fec

import (
	"encoding/hex"
	"fmt"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncoderSatisfiesParityChecks(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 8))
	cache := NewMatrixCache(embeddedProvider(t), nil)
	for _, bg := range []BaseGraph{BG1, BG2} {
		for _, zc := range []int{2, 3, 5, 7, 9, 11, 13, 15, 64, 384} {
			t.Run(fmt.Sprintf("%v/Zc=%d", bg, zc), func(t *testing.T) {
				code, err := cache.Code(bg, zc)
				require.NoError(t, err)
				cb := randomBits(rng, code.H.K())
				word, err := code.Encoder.Codeword(cb)
				require.NoError(t, err)
				require.Len(t, word, code.H.Cols())
				require.True(t, cb.Equal(word[:code.H.K()]), "systematic part")

				w, err := code.H.Syndrome(word)
				require.NoError(t, err)
				require.Zero(t, w)
			})
		}
	}
}

func TestEncoderKnownAnswer(t *testing.T) {
	// codewords from an independent dense GF(2) solve of H·c = 0, packed MSB first
	for _, tc := range []struct {
		bg   BaseGraph
		zc   int
		info string
		word string
	}{
		{
			bg:   BG2,
			zc:   4,
			info: "a53c960f71",
			word: "a53c960f71a770b20d2a0e1d1e495587cadcea031519b795e76b",
		},
		{
			bg:   BG1,
			zc:   6,
			info: "5ac3e1180f7b29d4c6a08e3f5b1d7294e0",
			word: "5ac3e1180f7b29d4c6a08e3f5b1d7294e23545d015aee2b3b02899140941067c0c6835d7b00543969297a4edbf3082425a8681",
		},
	} {
		t.Run(fmt.Sprintf("%v/Zc=%d", tc.bg, tc.zc), func(t *testing.T) {
			cache := NewMatrixCache(embeddedProvider(t), nil)
			code, err := cache.Code(tc.bg, tc.zc)
			require.NoError(t, err)
			raw, err := hex.DecodeString(tc.info)
			require.NoError(t, err)
			info := BitsFromBytes(raw)[:code.H.K()]

			word, err := code.Encoder.Codeword(info)
			require.NoError(t, err)
			require.Len(t, word, tc.bg.Cols()*tc.zc)
			require.Equal(t, tc.word, hex.EncodeToString(word.Bytes()))
		})
	}
}

func TestEncoderMatchesReferenceParity(t *testing.T) {
	rng := rand.New(rand.NewPCG(9, 10))
	cache := NewMatrixCache(embeddedProvider(t), nil)
	for _, bg := range []BaseGraph{BG1, BG2} {
		for _, zc := range []int{2, 3, 5, 6} {
			code, err := cache.Code(bg, zc)
			require.NoError(t, err)
			for trial := 0; trial < 3; trial++ {
				cb := randomBits(rng, code.H.K())
				got, err := code.Encoder.Codeword(cb)
				require.NoError(t, err)
				want, err := ReferenceParity(code.H, cb)
				require.NoError(t, err)
				require.True(t, want.Equal(got), "%v Zc=%d", bg, zc)
			}
		}
	}
}

func TestEncodeOutputLayout(t *testing.T) {
	rng := rand.New(rand.NewPCG(11, 12))
	cache := NewMatrixCache(embeddedProvider(t), nil)
	code, err := cache.Code(BG2, 8)
	require.NoError(t, err)
	h := code.H

	kd := 50
	cb := randomBits(rng, h.K())
	for i := kd; i < h.K(); i++ {
		cb[i] = Filler
	}
	d, err := code.Encoder.Encode(cb)
	require.NoError(t, err)
	require.Len(t, d, h.N())

	// fillers keep their place, shifted left by the 2Zc punctured bits
	for i := 0; i < h.K()-2*h.Zc; i++ {
		require.Equal(t, cb[2*h.Zc+i], d[i])
	}
	require.Equal(t, h.K()-kd, d.FillerCount())

	// the full word with filler as zero is a codeword
	word, err := code.Encoder.Codeword(cb)
	require.NoError(t, err)
	w, err := h.Syndrome(word)
	require.NoError(t, err)
	require.Zero(t, w)
	require.True(t, word[h.K():].Equal(d[h.K()-2*h.Zc:]))

	_, err = code.Encoder.Encode(cb[1:])
	require.ErrorIs(t, err, ErrLengthMismatch)
	cb[0] = Bit(7)
	_, err = code.Encoder.Encode(cb)
	require.ErrorIs(t, err, ErrNonBinary)
	require.Same(t, h, code.Encoder.Matrix())
}

func TestEncoderIsLinear(t *testing.T) {
	rng := rand.New(rand.NewPCG(13, 14))
	cache := NewMatrixCache(embeddedProvider(t), nil)
	code, err := cache.Code(BG1, 10)
	require.NoError(t, err)
	a := randomBits(rng, code.H.K())
	b := randomBits(rng, code.H.K())
	sum := make(Bits, len(a))
	for i := range a {
		sum[i] = a[i] ^ b[i]
	}
	ca, err := code.Encoder.Encode(a)
	require.NoError(t, err)
	cbits, err := code.Encoder.Encode(b)
	require.NoError(t, err)
	cs, err := code.Encoder.Encode(sum)
	require.NoError(t, err)
	for i := range cs {
		require.Equal(t, ca[i]^cbits[i], cs[i])
	}
}

func TestInvertGF2Packed(t *testing.T) {
	inv, ok := invertGF2Packed([][]uint8{
		{1, 1, 0},
		{0, 1, 1},
		{0, 0, 1},
	})
	require.True(t, ok)
	// (A^-1) * (A e2) = e2
	require.Equal(t, []uint8{0, 0, 1}, mulVecGF2Packed(inv, packRow([]uint8{0, 1, 1})))

	_, ok = invertGF2Packed([][]uint8{{1, 1}, {1, 1}})
	require.False(t, ok)
}
