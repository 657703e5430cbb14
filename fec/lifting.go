package fec

import (
	"fmt"
	"sort"
)

// liftingSets is TS 38.212 Table 5.3.2-1: set i holds a_i * 2^j for j >= 0, up to 384.
var liftingSets = [8][]int{
	{2, 4, 8, 16, 32, 64, 128, 256},
	{3, 6, 12, 24, 48, 96, 192, 384},
	{5, 10, 20, 40, 80, 160, 320},
	{7, 14, 28, 56, 112, 224},
	{9, 18, 36, 72, 144, 288},
	{11, 22, 44, 88, 176, 352},
	{13, 26, 52, 104, 208},
	{15, 30, 60, 120, 240},
}

// liftingSizes is every admissible Zc in ascending order (51 values).
var liftingSizes = func() []int {
	var all []int
	for _, set := range liftingSets {
		all = append(all, set...)
	}
	sort.Ints(all)
	return all
}()

// LiftingSizes returns the 51 admissible lifting sizes, ascending.
func LiftingSizes() []int {
	return append([]int(nil), liftingSizes...)
}

// FindLiftingSetIndex returns the index iLS of the set containing zc.
func FindLiftingSetIndex(zc int) (int, error) {
	for i, set := range liftingSets {
		for _, z := range set {
			if z == zc {
				return i, nil
			}
		}
	}
	return -1, fmt.Errorf("%w: %d", ErrInvalidLiftingSize, zc)
}

// smallestLiftingSize returns the smallest Zc with kb*Zc >= kd.
func smallestLiftingSize(kb, kd int) (int, error) {
	for _, z := range liftingSizes {
		if kb*z >= kd {
			return z, nil
		}
	}
	return 0, fmt.Errorf("%w: no lifting size covers %d bits with Kb=%d", ErrInvalidParameter, kd, kb)
}
