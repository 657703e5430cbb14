package fec

import "fmt"

// coreStep solves one core parity block from one of the first four rows once
// every other parity block of that row is known.
type coreStep struct {
	row, col int
}

// Encoder is the structured systematic LDPC encoder of one lifted code. It
// holds no mutable state and is safe for concurrent use.
type Encoder struct {
	h     *ParityCheckMatrix
	kb    int
	z0    int
	steps []coreStep
}

// NewEncoder derives the solve order for h. The XOR of the four core rows
// must collapse to a single circulant on the first parity column and cancel
// on the other three.
func NewEncoder(h *ParityCheckMatrix) (*Encoder, error) {
	kb := h.BG.InfoCols()
	e := &Encoder{h: h, kb: kb, z0: -1}
	for col := kb; col < kb+4; col++ {
		odd := map[int]bool{}
		for r := 0; r < 4; r++ {
			if s := h.BlockShift(r, col); s >= 0 {
				odd[s] = !odd[s]
			}
		}
		var left []int
		for s, o := range odd {
			if o {
				left = append(left, s)
			}
		}
		switch {
		case col == kb && len(left) == 1:
			e.z0 = left[0]
		case col == kb:
			return nil, fmt.Errorf("%w: %v core rows do not isolate the first parity block", ErrInvalidTable, h.BG)
		case len(left) != 0:
			return nil, fmt.Errorf("%w: %v core rows leave parity column %d", ErrInvalidTable, h.BG, col)
		}
	}

	known := map[int]bool{kb: true}
	used := map[int]bool{}
	for len(known) < 4 {
		progress := false
		for r := 0; r < 4; r++ {
			if used[r] {
				continue
			}
			unknown := -1
			n := 0
			for col := kb; col < kb+4; col++ {
				if h.BlockShift(r, col) >= 0 && !known[col] {
					unknown = col
					n++
				}
			}
			if n == 1 {
				e.steps = append(e.steps, coreStep{row: r, col: unknown})
				known[unknown] = true
				used[r] = true
				progress = true
			}
		}
		if !progress {
			return nil, fmt.Errorf("%w: %v core parity cannot be solved row by row", ErrInvalidTable, h.BG)
		}
	}
	return e, nil
}

// xorShifted sets dst ^= P^s src where (P^s v)[i] = v[(i+s) mod Zc].
func xorShifted(dst, src []uint8, s int) {
	zc := len(dst)
	j := s
	for i := range dst {
		dst[i] ^= src[j]
		if j++; j == zc {
			j = 0
		}
	}
}

// unshift solves P^s y = a for y.
func unshift(y, a []uint8, s int) {
	zc := len(y)
	j := s
	for i := range a {
		y[j] = a[i]
		if j++; j == zc {
			j = 0
		}
	}
}

// Codeword returns the full binary word [c | p] of length Cols*Zc with
// H*word = 0. Filler positions of cb are encoded as zero.
func (e *Encoder) Codeword(cb Bits) (Bits, error) {
	h := e.h
	zc := h.Zc
	if len(cb) != h.K() {
		return nil, fmt.Errorf("%w: code block has %d bits, want K=%d", ErrLengthMismatch, len(cb), h.K())
	}
	x := make([]uint8, h.Cols())
	for i, b := range cb {
		switch b {
		case Zero, Filler:
		case One:
			x[i] = 1
		default:
			return nil, ErrNonBinary
		}
	}
	block := func(col int) []uint8 { return x[col*zc : (col+1)*zc] }

	var lambda [4][]uint8
	sum := make([]uint8, zc)
	for r := 0; r < 4; r++ {
		lambda[r] = make([]uint8, zc)
		for _, b := range h.RowBlocks(r) {
			if b.Col < e.kb {
				xorShifted(lambda[r], block(b.Col), b.Shift)
			}
		}
		for i, v := range lambda[r] {
			sum[i] ^= v
		}
	}
	unshift(block(e.kb), sum, e.z0)

	acc := make([]uint8, zc)
	for _, st := range e.steps {
		copy(acc, lambda[st.row])
		for _, b := range h.RowBlocks(st.row) {
			if b.Col >= e.kb && b.Col != st.col {
				xorShifted(acc, block(b.Col), b.Shift)
			}
		}
		unshift(block(st.col), acc, h.BlockShift(st.row, st.col))
	}

	for r := 4; r < h.BG.Rows(); r++ {
		own := e.kb + r
		clear(acc)
		for _, b := range h.RowBlocks(r) {
			if b.Col != own {
				xorShifted(acc, block(b.Col), b.Shift)
			}
		}
		unshift(block(own), acc, h.BlockShift(r, own))
	}

	out := make(Bits, len(x))
	for i, v := range x {
		out[i] = Bit(v)
	}
	return out, nil
}

// Encode returns the transmitted codeword d of length N: the code block
// without its first 2Zc bits, fillers kept in place, followed by all parity.
func (e *Encoder) Encode(cb Bits) (Bits, error) {
	full, err := e.Codeword(cb)
	if err != nil {
		return nil, err
	}
	h := e.h
	k := h.K()
	out := make(Bits, 0, h.N())
	out = append(out, cb[2*h.Zc:]...)
	out = append(out, full[k:]...)
	return out, nil
}

// Matrix returns the parity-check matrix the encoder was built for.
func (e *Encoder) Matrix() *ParityCheckMatrix { return e.h }
