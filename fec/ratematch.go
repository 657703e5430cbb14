package fec

import "fmt"

// k0 numerators per redundancy version; the denominator is 66 (BG1) or 50
// (BG2), i.e. N/Zc.
var k0Numerators = map[BaseGraph][4]int{
	BG1: {0, 17, 33, 56},
	BG2: {0, 13, 25, 43},
}

// StartingOffset returns k0, the circular-buffer position where transmission
// of redundancy version rv starts.
func StartingOffset(ncb int, bg BaseGraph, rv, zc int) (int, error) {
	if err := bg.check(); err != nil {
		return 0, err
	}
	if rv < 0 || rv > 3 {
		return 0, fmt.Errorf("%w: %d", ErrInvalidRedundancyVersion, rv)
	}
	if _, err := FindLiftingSetIndex(zc); err != nil {
		return 0, err
	}
	if ncb <= 0 {
		return 0, fmt.Errorf("%w: Ncb=%d", ErrInvalidParameter, ncb)
	}
	num := k0Numerators[bg][rv]
	return (num * ncb) / (bg.CodewordBlocks() * zc) * zc, nil
}

// CircularBufferSize returns Ncb: N, or min(N, nref) with limited-buffer rate
// matching. nref <= 0 disables the limit.
func CircularBufferSize(n, nref int) int {
	if nref > 0 && nref < n {
		return nref
	}
	return n
}

// LimitedBufferSize returns Nref = floor(TBS_LBRM / (C * R_LBRM)) with
// R_LBRM = 2/3.
func LimitedBufferSize(tbsLBRM, c int) int {
	if tbsLBRM <= 0 || c <= 0 {
		return 0
	}
	return 3 * tbsLBRM / (2 * c)
}

// RateMatchParams fixes the circular buffer of one code block.
type RateMatchParams struct {
	BG BaseGraph
	Zc int
	// N is the encoded length, 66Zc or 50Zc.
	N int
	// K is the code block length; Kd is the first filler position.
	K, Kd int
	Ncb   int
	K0    int
	// E is the number of transmitted bits, Qm the modulation order.
	E, Qm int
}

// NewRateMatchParams derives the circular-buffer parameters of a code block
// with kd payload+CRC bits sent as e bits of redundancy version rv.
func NewRateMatchParams(bg BaseGraph, zc, kd, e, rv, qm, nref int) (RateMatchParams, error) {
	if err := bg.check(); err != nil {
		return RateMatchParams{}, err
	}
	p := RateMatchParams{
		BG: bg,
		Zc: zc,
		N:  bg.CodewordBlocks() * zc,
		K:  bg.InfoCols() * zc,
		Kd: kd,
		E:  e,
		Qm: qm,
	}
	p.Ncb = CircularBufferSize(p.N, nref)
	k0, err := StartingOffset(p.Ncb, bg, rv, zc)
	if err != nil {
		return RateMatchParams{}, err
	}
	p.K0 = k0
	return p, p.validate()
}

func (p RateMatchParams) validate() error {
	if _, err := FindLiftingSetIndex(p.Zc); err != nil {
		return err
	}
	if p.N <= 0 || p.Ncb <= 0 || p.Ncb > p.N {
		return fmt.Errorf("%w: N=%d Ncb=%d", ErrInvalidParameter, p.N, p.Ncb)
	}
	if p.Kd <= 0 || p.Kd > p.K {
		return fmt.Errorf("%w: Kd=%d outside (0, K=%d]", ErrInvalidParameter, p.Kd, p.K)
	}
	if p.K0 < 0 || p.K0 >= p.Ncb {
		return fmt.Errorf("%w: k0=%d with Ncb=%d", ErrInvalidParameter, p.K0, p.Ncb)
	}
	if p.E <= 0 {
		return fmt.Errorf("%w: E=%d", ErrInvalidParameter, p.E)
	}
	return checkModulationOrder(p.Qm, p.E)
}

// fillerRange returns the filler positions in codeword (d) indexing: the
// first 2Zc code block bits are never part of d.
func (p RateMatchParams) fillerRange() (lo, hi int) {
	return max(p.Kd-2*p.Zc, 0), p.K - 2*p.Zc
}

func (p RateMatchParams) isFiller(i int) bool {
	lo, hi := p.fillerRange()
	return i >= lo && i < hi
}

// transmittable counts the circular-buffer positions that are not filler.
func (p RateMatchParams) transmittable() int {
	lo, hi := p.fillerRange()
	n := p.Ncb
	if lo < p.Ncb {
		n -= min(hi, p.Ncb) - lo
	}
	return n
}

// walk calls fn with the buffer index of each of the E selected bits, in
// transmission order.
func (p RateMatchParams) walk(fn func(k, idx int)) error {
	if p.transmittable() == 0 {
		return fmt.Errorf("%w: circular buffer of %d bits holds only filler", ErrInvalidParameter, p.Ncb)
	}
	idx := p.K0
	for k := 0; k < p.E; {
		if !p.isFiller(idx) {
			fn(k, idx)
			k++
		}
		if idx++; idx == p.Ncb {
			idx = 0
		}
	}
	return nil
}

// RateMatch selects E bits of the codeword dn from the circular buffer,
// starting at k0, skipping filler and wrapping at Ncb, and then applies the
// bit interleaver.
func RateMatch(dn Bits, p RateMatchParams) (Bits, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	if len(dn) != p.N {
		return nil, fmt.Errorf("%w: codeword has %d bits, want N=%d", ErrLengthMismatch, len(dn), p.N)
	}
	e := make(Bits, p.E)
	var bad error
	err := p.walk(func(k, idx int) {
		if dn[idx] == Filler && bad == nil {
			bad = fmt.Errorf("%w: filler at codeword position %d outside [Kd, K)", ErrInvalidParameter, idx)
		}
		e[k] = dn[idx]
	})
	if err != nil {
		return nil, err
	}
	if bad != nil {
		return nil, bad
	}
	return interleave(e, p.Qm), nil
}

// SoftBuffer is the receive-side circular buffer of one code block: one LLR
// per codeword position plus the filler mask. Positions never received hold
// 0.
type SoftBuffer struct {
	LLR    []float64
	Filler []bool
}

// RateRecover de-interleaves fe and accumulates each LLR into the buffer
// position it was selected from, so repeated bits are soft-combined.
func RateRecover(fe []float64, p RateMatchParams) (*SoftBuffer, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	if len(fe) != p.E {
		return nil, fmt.Errorf("%w: %d LLRs, want E=%d", ErrLengthMismatch, len(fe), p.E)
	}
	e := deinterleave(fe, p.Qm)
	sb := &SoftBuffer{
		LLR:    make([]float64, p.N),
		Filler: make([]bool, p.N),
	}
	lo, hi := p.fillerRange()
	for i := lo; i < hi; i++ {
		sb.Filler[i] = true
	}
	if err := p.walk(func(k, idx int) { sb.LLR[idx] += e[k] }); err != nil {
		return nil, err
	}
	return sb, nil
}

// Combine adds other into b element-wise for HARQ. A zero on either side is a
// position that was never received and the other value carries through.
func (b *SoftBuffer) Combine(other *SoftBuffer) error {
	if other == nil {
		return nil
	}
	if len(b.LLR) != len(other.LLR) {
		return fmt.Errorf("%w: soft buffers of %d and %d LLRs", ErrLengthMismatch, len(b.LLR), len(other.LLR))
	}
	for i, v := range other.LLR {
		switch {
		case v == 0:
		case b.LLR[i] == 0:
			b.LLR[i] = v
		default:
			b.LLR[i] += v
		}
	}
	for i, f := range other.Filler {
		b.Filler[i] = b.Filler[i] || f
	}
	return nil
}

// Clone returns a deep copy of b.
func (b *SoftBuffer) Clone() *SoftBuffer {
	return &SoftBuffer{
		LLR:    append([]float64(nil), b.LLR...),
		Filler: append([]bool(nil), b.Filler...),
	}
}

// HardBits slices the buffer; filler positions come back as Filler.
func (b *SoftBuffer) HardBits() Bits {
	out := make(Bits, len(b.LLR))
	for i, v := range b.LLR {
		if b.Filler[i] {
			out[i] = Filler
			continue
		}
		out[i] = HardDecision(v)
	}
	return out
}

// DecoderLLRs expands the buffer into one LLR per variable node of H: the 2Zc
// punctured systematic bits get 0, filler bits +LLRMax as known zeros.
func (b *SoftBuffer) DecoderLLRs(p RateMatchParams) ([]float64, error) {
	if len(b.LLR) != p.N {
		return nil, fmt.Errorf("%w: soft buffer has %d LLRs, want N=%d", ErrLengthMismatch, len(b.LLR), p.N)
	}
	out := make([]float64, p.N+2*p.Zc)
	for i, v := range b.LLR {
		if b.Filler[i] {
			out[2*p.Zc+i] = LLRMax
			continue
		}
		out[2*p.Zc+i] = clampLLR(v)
	}
	// very short blocks can start their filler inside the punctured bits
	for i := p.Kd; i < 2*p.Zc; i++ {
		out[i] = LLRMax
	}
	return out, nil
}

// ExtractCodeBlock takes the first K hard bits of a decoded word and marks
// [kd, K) as filler again.
func ExtractCodeBlock(word Bits, k, kd int) (Bits, error) {
	if len(word) < k || kd > k || kd < 0 {
		return nil, fmt.Errorf("%w: word of %d bits, K=%d Kd=%d", ErrLengthMismatch, len(word), k, kd)
	}
	cb := word[:k].Clone()
	for i := kd; i < k; i++ {
		cb[i] = Filler
	}
	return cb, nil
}
