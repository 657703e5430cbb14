package fec

import "fmt"

// ValidModulationOrder reports whether qm is a supported bits-per-symbol
// value (pi/2-BPSK up to 1024QAM).
func ValidModulationOrder(qm int) bool {
	switch qm {
	case 1, 2, 4, 6, 8, 10:
		return true
	}
	return false
}

// checkModulationOrder validates Qm and that e bits fill whole symbols.
func checkModulationOrder(qm, e int) error {
	if !ValidModulationOrder(qm) {
		return fmt.Errorf("%w: Qm=%d", ErrInvalidModulationOrder, qm)
	}
	if e%qm != 0 {
		return fmt.Errorf("%w: E=%d is not a multiple of Qm=%d", ErrInvalidParameter, e, qm)
	}
	return nil
}

// interleave writes e row by row into a Qm x E/Qm array and reads it column
// by column: f[j*Qm+i] = e[i*E/Qm+j].
func interleave[T any](e []T, qm int) []T {
	cols := len(e) / qm
	f := make([]T, len(e))
	for i := 0; i < qm; i++ {
		for j := 0; j < cols; j++ {
			f[j*qm+i] = e[i*cols+j]
		}
	}
	return f
}

// deinterleave is the inverse of interleave.
func deinterleave[T any](f []T, qm int) []T {
	cols := len(f) / qm
	e := make([]T, len(f))
	for i := 0; i < qm; i++ {
		for j := 0; j < cols; j++ {
			e[i*cols+j] = f[j*qm+i]
		}
	}
	return e
}

// Interleave applies the bit interleaver to a rate-matched block.
func Interleave(e Bits, qm int) (Bits, error) {
	if err := checkModulationOrder(qm, len(e)); err != nil {
		return nil, err
	}
	return interleave(e, qm), nil
}

// DeinterleaveLLR undoes the bit interleaver on received LLRs.
func DeinterleaveLLR(f []float64, qm int) ([]float64, error) {
	if err := checkModulationOrder(qm, len(f)); err != nil {
		return nil, err
	}
	return deinterleave(f, qm), nil
}
