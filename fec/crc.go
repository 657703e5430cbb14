package fec

import "fmt"

// CRCPolynomial identifies one of the TS 38.212 §5.1 generator polynomials.
type CRCPolynomial int

const (
	CRC6 CRCPolynomial = iota
	CRC11
	CRC16
	CRC24A
	CRC24B
	CRC24C
)

// crcGenerator holds the register width and the generator with the x^L term dropped.
type crcGenerator struct {
	name   string
	length int
	poly   uint32
}

// Generators, TS 38.212 §5.1:
//
//	CRC6   D^6+D^5+1
//	CRC11  D^11+D^10+D^9+D^5+1
//	CRC16  D^16+D^12+D^5+1
//	CRC24A D^24+D^23+D^18+D^17+D^14+D^11+D^10+D^7+D^6+D^5+D^4+D^3+D+1
//	CRC24B D^24+D^23+D^6+D^5+D+1
//	CRC24C D^24+D^23+D^21+D^20+D^17+D^15+D^13+D^12+D^8+D^4+D^2+D+1
var crcGenerators = map[CRCPolynomial]crcGenerator{
	CRC6:   {name: "6", length: 6, poly: 0x21},
	CRC11:  {name: "11", length: 11, poly: 0x621},
	CRC16:  {name: "16", length: 16, poly: 0x1021},
	CRC24A: {name: "24A", length: 24, poly: 0x864cfb},
	CRC24B: {name: "24B", length: 24, poly: 0x800063},
	CRC24C: {name: "24C", length: 24, poly: 0xb2b117},
}

func (p CRCPolynomial) generator() (crcGenerator, error) {
	s, ok := crcGenerators[p]
	if !ok {
		return crcGenerator{}, fmt.Errorf("%w: %d", ErrInvalidPolynomial, int(p))
	}
	return s, nil
}

// Length returns the number of parity bits appended by p, or 0 for an unknown id.
func (p CRCPolynomial) Length() int {
	return crcGenerators[p].length
}

func (p CRCPolynomial) String() string {
	if s, ok := crcGenerators[p]; ok {
		return "CRC" + s.name
	}
	return fmt.Sprintf("CRC(%d)", int(p))
}

// ParseCRCPolynomial maps "6", "11", "16", "24A", "24B", "24C" to a polynomial id.
func ParseCRCPolynomial(s string) (CRCPolynomial, error) {
	for id, sp := range crcGenerators {
		if sp.name == s {
			return id, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidPolynomial, s)
}

// crcRemainder runs the bit-serial long division of bits over the generator
// and returns the L-bit register, MSB = first CRC bit.
func crcRemainder(bits Bits, s crcGenerator) uint32 {
	top := uint32(1) << (s.length - 1)
	mask := (top << 1) - 1
	var reg uint32
	for _, b := range bits {
		fb := (reg & top) != 0
		if b == One {
			fb = !fb
		}
		reg = (reg << 1) & mask
		if fb {
			reg ^= s.poly
		}
	}
	return reg
}

func checkMask(mask uint32, s crcGenerator) error {
	if s.length < 32 && mask>>s.length != 0 {
		return fmt.Errorf("%w: mask 0x%x wider than CRC%s", ErrInvalidParameter, mask, s.name)
	}
	return nil
}

// CRCEncode returns bits followed by their CRC. A non-zero mask (e.g. an RNTI)
// is XORed into the least significant CRC bits.
func CRCEncode(bits Bits, poly CRCPolynomial, mask uint32) (Bits, error) {
	s, err := poly.generator()
	if err != nil {
		return nil, err
	}
	if err := checkMask(mask, s); err != nil {
		return nil, err
	}
	if err := bits.checkBinary(); err != nil {
		return nil, err
	}
	crc := crcRemainder(bits, s) ^ mask
	out := make(Bits, len(bits), len(bits)+s.length)
	copy(out, bits)
	for i := s.length - 1; i >= 0; i-- {
		out = append(out, Bit((crc>>uint(i))&1))
	}
	return out, nil
}

// CRCDecode strips and checks the CRC of bits. failed is true when the
// remainder over payload and unmasked CRC is non-zero.
func CRCDecode(bits Bits, poly CRCPolynomial, mask uint32) (payload Bits, failed bool, err error) {
	s, err := poly.generator()
	if err != nil {
		return nil, false, err
	}
	if err := checkMask(mask, s); err != nil {
		return nil, false, err
	}
	if len(bits) < s.length {
		return nil, false, fmt.Errorf("%w: %d bits shorter than CRC%s", ErrLengthMismatch, len(bits), s.name)
	}
	if err := bits.checkBinary(); err != nil {
		return nil, false, err
	}
	n := len(bits) - s.length
	work := bits.Clone()
	for i := 0; i < s.length; i++ {
		if (mask>>uint(s.length-1-i))&1 == 1 {
			work[n+i].Flip()
		}
	}
	failed = crcRemainder(work, s) != 0
	return bits[:n].Clone(), failed, nil
}
