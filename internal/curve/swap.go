package curve

import (
	"fmt"

	"debond-math/internal/fixedpoint"
)

// GetAmountOut returns the zero-fee constant-product output
// reserveOut - reserveIn*reserveOut/(reserveIn+amountIn).
func GetAmountOut(amountIn, reserveIn, reserveOut fixedpoint.Amount) (fixedpoint.Amount, error) {
	for _, arg := range []struct {
		name string
		v    fixedpoint.Amount
	}{{"amountIn", amountIn}, {"reserveIn", reserveIn}, {"reserveOut", reserveOut}} {
		if err := fixedpoint.RequireNonNegative(arg.name, arg.v); err != nil {
			return fixedpoint.Zero(), err
		}
	}

	den, err := fixedpoint.Add(reserveIn, amountIn)
	if err != nil {
		return fixedpoint.Zero(), err
	}
	if den.IsZero() {
		return fixedpoint.Zero(), fmt.Errorf("getAmountOut: empty pool and zero input: %w", fixedpoint.ErrDivisionByZero)
	}

	remaining, err := fixedpoint.MulDiv(reserveIn, reserveOut, den)
	if err != nil {
		return fixedpoint.Zero(), err
	}
	return fixedpoint.Sub(reserveOut, remaining)
}
