package curve

import (
	"fmt"

	"github.com/shopspring/decimal"

	"debond-math/internal/fixedpoint"
)

// saturation bounds |a-b| in the sigmoid exponent. Beyond it 2^-(a-b) is
// below 10^-38 and the result is fixed at the edge of the 18-decimal range.
var saturation = decimal.NewFromInt(128)

var (
	// almostZero is the smallest positive scaled value.
	almostZero = fixedpoint.FromInt64(1)

	// almostOne is the largest scaled value strictly below 1.
	almostOne = fixedpoint.FromInt64(999_999_999_999_999_999)
)

// Sigmoid returns num / (num + 2^(-1/((1-x)c))) with num = 2^(-1/((1-c)x)),
// for scaled x and c strictly inside (0, 1). The result is kept strictly
// inside (0, 1) as well: values beyond 18 decimals of either edge are
// pinned to the nearest representable interior value.
//
// The ratio is evaluated as 1 / (1 + 2^(a-b)), a = 1/((1-c)x),
// b = 1/((1-x)c), which is the same value without the two tiny powers.
func Sigmoid(x, c fixedpoint.Amount) (fixedpoint.Amount, error) {
	if err := requireOpenUnit("x", x); err != nil {
		return fixedpoint.Zero(), err
	}
	if err := requireOpenUnit("c", c); err != nil {
		return fixedpoint.Zero(), err
	}

	xd, cd := x.Decimal(), c.Decimal()
	a := one.DivRound(one.Sub(cd).Mul(xd), realPrecision)
	b := one.DivRound(one.Sub(xd).Mul(cd), realPrecision)
	d := a.Sub(b)

	if d.Cmp(saturation) > 0 {
		return almostZero, nil
	}
	if d.Cmp(saturation.Neg()) < 0 {
		return almostOne, nil
	}

	p, err := two.PowWithPrecision(d, realPrecision)
	if err != nil {
		return fixedpoint.Zero(), fmt.Errorf("sigmoid: %w", err)
	}
	out, err := fixedpoint.FromDecimal(one.DivRound(one.Add(p), realPrecision))
	if err != nil {
		return fixedpoint.Zero(), err
	}
	// 1/(1+p) rounds to exactly 1 once p drops below the working precision,
	// and truncates to 0 once p exceeds 10^18.
	switch {
	case out.Cmp(fixedpoint.WAD) >= 0:
		return almostOne, nil
	case out.Sign() <= 0:
		return almostZero, nil
	}
	return out, nil
}

func requireOpenUnit(name string, v fixedpoint.Amount) error {
	if v.Sign() <= 0 || v.Cmp(fixedpoint.WAD) >= 0 {
		return fmt.Errorf("%s must be in (0, 1), got %s: %w", name, v.Decimal(), fixedpoint.ErrDomain)
	}
	return nil
}
