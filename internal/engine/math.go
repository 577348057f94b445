package engine

import (
	"errors"
	"math/bits"
)

var (
	errOverflow   = errors.New("engine: arithmetic overflow")
	errDivideZero = errors.New("engine: divide by zero")
)

// mulDiv returns floor(a * b / den) using a 128-bit intermediate product, so
// the multiplication itself can never overflow. It returns errOverflow when
// the quotient does not fit in 64 bits.
func mulDiv(a, b, den uint64) (uint64, error) {
	if den == 0 {
		return 0, errDivideZero
	}
	hi, lo := bits.Mul64(a, b)
	if hi >= den {
		return 0, errOverflow
	}
	quo, _ := bits.Div64(hi, lo, den)
	return quo, nil
}

// addU64 returns a + b, failing instead of wrapping on overflow.
func addU64(a, b uint64) (uint64, error) {
	sum, carry := bits.Add64(a, b, 0)
	if carry != 0 {
		return 0, errOverflow
	}
	return sum, nil
}

// mulU64 returns a * b, failing instead of wrapping on overflow.
func mulU64(a, b uint64) (uint64, error) {
	hi, lo := bits.Mul64(a, b)
	if hi != 0 {
		return 0, errOverflow
	}
	return lo, nil
}

// absDiff returns |a - b| without underflow.
func absDiff(a, b uint64) uint64 {
	if a > b {
		return a - b
	}
	return b - a
}
