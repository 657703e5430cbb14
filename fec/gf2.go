package fec

import (
	"fmt"
	"math/bits"
)

// packRow packs a 0/1 row into uint64 words, LSB first within a word.
func packRow(v []uint8) []uint64 {
	out := make([]uint64, (len(v)+63)/64)
	for i, b := range v {
		if b != 0 {
			out[i>>6] |= 1 << (uint(i) & 63)
		}
	}
	return out
}

// invertGF2Packed inverts an n x n matrix over GF(2) by Gauss-Jordan
// elimination on packed rows. It reports false when a is singular.
func invertGF2Packed(a [][]uint8) ([][]uint64, bool) {
	n := len(a)
	if n == 0 {
		return nil, false
	}
	w := (n + 63) / 64
	// augmented [A | I], 2*w words per row
	aug := make([][]uint64, n)
	for i := 0; i < n; i++ {
		row := make([]uint64, 2*w)
		copy(row, packRow(a[i]))
		row[w+(i>>6)] |= 1 << (uint(i) & 63)
		aug[i] = row
	}
	r := 0
	for c := 0; c < n && r < n; c++ {
		word := c >> 6
		mask := uint64(1) << (uint(c) & 63)
		p := -1
		for i := r; i < n; i++ {
			if aug[i][word]&mask != 0 {
				p = i
				break
			}
		}
		if p == -1 {
			continue
		}
		aug[r], aug[p] = aug[p], aug[r]
		for i := 0; i < n; i++ {
			if i != r && aug[i][word]&mask != 0 {
				for j := range aug[i] {
					aug[i][j] ^= aug[r][j]
				}
			}
		}
		r++
	}
	if r < n {
		return nil, false
	}
	inv := make([][]uint64, n)
	for i := range inv {
		inv[i] = append([]uint64(nil), aug[i][w:]...)
	}
	return inv, true
}

// mulVecGF2Packed returns M*v over GF(2) for packed rows of M and packed v.
func mulVecGF2Packed(m [][]uint64, v []uint64) []uint8 {
	out := make([]uint8, len(m))
	for i, row := range m {
		ones := 0
		for j, x := range row {
			ones += bits.OnesCount64(x & v[j])
		}
		out[i] = uint8(ones & 1)
	}
	return out
}

// ReferenceParity computes the full-length codeword [c | p] of cb by solving
// Hp*p = Hs*c with a dense inverse of the parity part of H. It costs
// O((Rows*Zc)^3) and exists to cross-check the structured encoder at small Zc.
// Filler bits of cb are treated as zero.
func ReferenceParity(h *ParityCheckMatrix, cb Bits) (Bits, error) {
	k := h.K()
	if len(cb) != k {
		return nil, fmt.Errorf("%w: code block has %d bits, want %d", ErrLengthMismatch, len(cb), k)
	}
	dense := h.Dense()
	m := h.Rows()
	hp := make([][]uint8, m)
	rhs := make([]uint8, m)
	for r := 0; r < m; r++ {
		hp[r] = dense[r][k:]
		var s uint8
		for c := 0; c < k; c++ {
			if dense[r][c] == 1 && cb[c] == One {
				s ^= 1
			}
		}
		rhs[r] = s
	}
	inv, ok := invertGF2Packed(hp)
	if !ok {
		return nil, fmt.Errorf("%w: parity part of %v Zc=%d is singular", ErrInvalidTable, h.BG, h.Zc)
	}
	p := mulVecGF2Packed(inv, packRow(rhs))
	out := make(Bits, h.Cols())
	for i := 0; i < k; i++ {
		if cb[i] == One {
			out[i] = One
		}
	}
	for i, b := range p {
		out[k+i] = Bit(b)
	}
	return out, nil
}
