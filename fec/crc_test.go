package fec

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/require"
)

var allPolynomials = []CRCPolynomial{CRC6, CRC11, CRC16, CRC24A, CRC24B, CRC24C}

func randomBits(rng *rand.Rand, n int) Bits {
	out := make(Bits, n)
	for i := range out {
		out[i] = Bit(rng.IntN(2))
	}
	return out
}

func TestCRCRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	for _, poly := range allPolynomials {
		t.Run(poly.String(), func(t *testing.T) {
			for _, n := range []int{0, 1, 7, 40, 129} {
				payload := randomBits(rng, n)
				enc, err := CRCEncode(payload, poly, 0)
				require.NoError(t, err)
				require.Len(t, enc, n+poly.Length())
				require.True(t, payload.Equal(enc[:n]))

				got, failed, err := CRCDecode(enc, poly, 0)
				require.NoError(t, err)
				require.False(t, failed)
				require.True(t, payload.Equal(got))
			}
		})
	}
}

func TestCRCDetectsSingleBitErrors(t *testing.T) {
	rng := rand.New(rand.NewPCG(3, 4))
	payload := randomBits(rng, 64)
	for _, poly := range allPolynomials {
		enc, err := CRCEncode(payload, poly, 0)
		require.NoError(t, err)
		for i := range enc {
			bad := enc.Clone()
			bad[i].Flip()
			_, failed, err := CRCDecode(bad, poly, 0)
			require.NoError(t, err)
			require.Truef(t, failed, "%v missed an error at bit %d", poly, i)
		}
	}
}

func TestCRC16KnownAnswer(t *testing.T) {
	// CRC16 with zero init and no reflection is CRC-16/XMODEM.
	enc, err := CRCEncode(BitsFromBytes([]byte("123456789")), CRC16, 0)
	require.NoError(t, err)
	require.Equal(t, []byte{0x31, 0xc3}, enc[72:].Bytes())
}

func TestCRCMask(t *testing.T) {
	payload := randomBits(rand.New(rand.NewPCG(5, 6)), 50)
	const rnti = 0x4601
	enc, err := CRCEncode(payload, CRC24C, rnti)
	require.NoError(t, err)

	_, failed, err := CRCDecode(enc, CRC24C, rnti)
	require.NoError(t, err)
	require.False(t, failed)

	_, failed, err = CRCDecode(enc, CRC24C, 0)
	require.NoError(t, err)
	require.True(t, failed)

	_, err = CRCEncode(payload, CRC6, 0x40)
	require.ErrorIs(t, err, ErrInvalidParameter)
}

func TestCRCErrors(t *testing.T) {
	_, err := CRCEncode(Bits{Zero}, CRCPolynomial(42), 0)
	require.ErrorIs(t, err, ErrInvalidPolynomial)

	_, err = CRCEncode(Bits{Zero, Filler}, CRC16, 0)
	require.ErrorIs(t, err, ErrNonBinary)

	_, _, err = CRCDecode(make(Bits, 10), CRC16, 0)
	require.ErrorIs(t, err, ErrLengthMismatch)
}

func TestParseCRCPolynomial(t *testing.T) {
	for _, poly := range allPolynomials {
		got, err := ParseCRCPolynomial(poly.String()[len("CRC"):])
		require.NoError(t, err)
		require.Equal(t, poly, got)
	}
	_, err := ParseCRCPolynomial("32")
	require.ErrorIs(t, err, ErrInvalidPolynomial)
	require.Equal(t, 24, CRC24B.Length())
}
