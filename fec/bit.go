package fec

import (
	"math"
	"strings"
)

// Bit is a tri-state code bit. Filler marks a padding position that takes part
// in indexing but never in CRC, parity or transmission.
type Bit uint8

const (
	Zero Bit = iota
	One
	Filler
)

// LLRMax is the magnitude used as a surrogate for an infinitely reliable bit.
const LLRMax = 1e3

// Flip inverts a binary bit. Filler is left untouched.
func (b *Bit) Flip() {
	if *b <= One {
		*b ^= 0x01
	}
}

// IsFiller reports whether b is a filler position.
func (b Bit) IsFiller() bool { return b == Filler }

// Bits is an ordered bit vector.
type Bits []Bit

// NewBits converts a 0/1 byte slice (one bit per byte) into Bits.
func NewBits(v []uint8) (Bits, error) {
	out := make(Bits, len(v))
	for i, x := range v {
		if x > 1 {
			return nil, ErrNonBinary
		}
		out[i] = Bit(x)
	}
	return out, nil
}

// BitsFromBytes unpacks bytes MSB first.
func BitsFromBytes(p []byte) Bits {
	out := make(Bits, 0, len(p)*8)
	for _, by := range p {
		for mask := byte(0x80); mask != 0; mask >>= 1 {
			if by&mask != 0 {
				out = append(out, One)
			} else {
				out = append(out, Zero)
			}
		}
	}
	return out
}

// Bytes packs the bits MSB first. Filler packs as zero.
func (bits Bits) Bytes() []byte {
	out := make([]byte, (len(bits)+7)/8)
	for i, b := range bits {
		if b == One {
			out[i/8] |= 1 << byte(7-(i%8))
		}
	}
	return out
}

// Clone returns a copy of bits.
func (bits Bits) Clone() Bits {
	return append(Bits(nil), bits...)
}

// FillerCount returns the number of filler positions.
func (bits Bits) FillerCount() int {
	n := 0
	for _, b := range bits {
		if b == Filler {
			n++
		}
	}
	return n
}

// checkBinary returns ErrNonBinary if any element is not Zero or One.
func (bits Bits) checkBinary() error {
	for _, b := range bits {
		if b > One {
			return ErrNonBinary
		}
	}
	return nil
}

func (bits Bits) String() string {
	var sb strings.Builder
	sb.Grow(len(bits))
	for _, b := range bits {
		switch b {
		case Zero:
			sb.WriteByte('0')
		case One:
			sb.WriteByte('1')
		default:
			sb.WriteByte('x')
		}
	}
	return sb.String()
}

// Equal reports whether two bit vectors are identical, filler included.
func (bits Bits) Equal(other Bits) bool {
	if len(bits) != len(other) {
		return false
	}
	for i := range bits {
		if bits[i] != other[i] {
			return false
		}
	}
	return true
}

// HardDecision slices an LLR: positive means 0.
func HardDecision(llr float64) Bit {
	if llr > 0 {
		return Zero
	}
	return One
}

// BitsToLLR maps bits onto ±magnitude LLRs (0 -> +mag, 1 -> -mag). Filler maps
// to +LLRMax since a filler bit is a known zero.
func BitsToLLR(bits Bits, magnitude float64) []float64 {
	out := make([]float64, len(bits))
	for i, b := range bits {
		switch b {
		case Zero:
			out[i] = magnitude
		case One:
			out[i] = -magnitude
		default:
			out[i] = LLRMax
		}
	}
	return out
}

// clampLLR bounds v to ±LLRMax so sums over many edges stay finite.
func clampLLR(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	if v > LLRMax {
		return LLRMax
	}
	if v < -LLRMax {
		return -LLRMax
	}
	return v
}
