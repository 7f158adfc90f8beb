package fixedpoint

import (
	"fmt"
	"math/big"
)

// MulDiv computes floor(a*b / divisor) on arbitrary-precision intermediates,
// truncating toward zero. Returns ErrDivisionByZero when divisor is zero and
// ErrOverflow when the quotient does not fit in 256 bits.
func MulDiv(a, b, divisor Amount) (Amount, error) {
	if divisor.IsZero() {
		return Zero(), fmt.Errorf("mulDiv(%s, %s, 0): %w", a, b, ErrDivisionByZero)
	}
	p := new(big.Int).Mul(a.BigInt(), b.BigInt())
	return FromBig(p.Quo(p, divisor.BigInt()))
}

// MulDivInt is MulDiv with plain integer factors, for formulas that mix
// amounts with seconds or percentages.
func MulDivInt(a Amount, b, divisor int64) (Amount, error) {
	return MulDiv(a, FromInt64(b), FromInt64(divisor))
}

// Add returns a + b.
func Add(a, b Amount) (Amount, error) {
	return FromBig(new(big.Int).Add(a.BigInt(), b.BigInt()))
}

// Sub returns a - b, which may be negative.
func Sub(a, b Amount) (Amount, error) {
	return FromBig(new(big.Int).Sub(a.BigInt(), b.BigInt()))
}

// SubNonNegative returns a - b, or ErrUnderflow if the result would be negative.
func SubNonNegative(a, b Amount) (Amount, error) {
	if a.Cmp(b) < 0 {
		return Zero(), fmt.Errorf("%s - %s: %w", a, b, ErrUnderflow)
	}
	return Sub(a, b)
}

// Mul returns the exact product a * b (no rescaling).
func Mul(a, b Amount) (Amount, error) {
	return FromBig(new(big.Int).Mul(a.BigInt(), b.BigInt()))
}

// Quo returns a / b truncated toward zero (no rescaling).
func Quo(a, b Amount) (Amount, error) {
	if b.IsZero() {
		return Zero(), fmt.Errorf("%s / 0: %w", a, ErrDivisionByZero)
	}
	return FromBig(new(big.Int).Quo(a.BigInt(), b.BigInt()))
}

// RequireNonNegative returns ErrDomain naming the argument if a < 0.
func RequireNonNegative(name string, a Amount) error {
	if a.IsNegative() {
		return fmt.Errorf("%s must be non-negative, got %s: %w", name, a, ErrDomain)
	}
	return nil
}
