package safemath

import (
	"math/bits"
)

func Add64(a, b uint64) (uint64, bool) {
	v, carry := bits.Add64(a, b, 0)
	return v, carry == 0
}

func Sub64(a, b uint64) (uint64, bool) {
	v, borrow := bits.Sub64(a, b, 0)
	return v, borrow == 0
}

func Mul64(a, b uint64) (uint64, bool) {
	hi, lo := bits.Mul64(a, b)
	return lo, hi == 0
}

// Pow16 returns 16^n. n above 15 does not fit in a uint64.
func Pow16(n uint64) (uint64, bool) {
	if n > 15 {
		return 0, false
	}
	return 1 << (4 * n), true
}
