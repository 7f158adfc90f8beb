// Package fixedpoint provides the 18-decimal scaled-integer type shared by the
// engine packages and the single mulDiv primitive every formula goes through.
package fixedpoint

import (
	"encoding/json"
	"fmt"
	"math/big"
	"strings"

	sdkmath "cosmossdk.io/math"
	"github.com/shopspring/decimal"
)

// Decimals is the number of fractional decimal digits carried by an Amount.
const Decimals = 18

// Amount is a quantity or ratio scaled by 10^18, held in a signed integer
// bounded to 256 bits. The zero value is zero.
type Amount struct {
	v sdkmath.Int
}

// WAD is 1.0 in scaled form.
var WAD = Amount{v: sdkmath.NewIntFromBigInt(big.NewInt(1_000_000_000_000_000_000))}

// Zero returns the zero amount.
func Zero() Amount {
	return Amount{v: sdkmath.ZeroInt()}
}

// FromInt64 wraps a raw scaled integer.
func FromInt64(n int64) Amount {
	return Amount{v: sdkmath.NewInt(n)}
}

// FromUint64 wraps a raw scaled integer.
func FromUint64(n uint64) Amount {
	return Amount{v: sdkmath.NewIntFromUint64(n)}
}

// Scale converts a whole number of units to its scaled form (n * 10^18).
func Scale(n int64) Amount {
	b := new(big.Int).Mul(big.NewInt(n), WAD.BigInt())
	return Amount{v: sdkmath.NewIntFromBigInt(b)}
}

// FromBig wraps a raw scaled big integer. Returns ErrOverflow if it does not
// fit in 256 bits.
func FromBig(b *big.Int) (Amount, error) {
	if b == nil {
		return Zero(), nil
	}
	if b.BitLen() > sdkmath.MaxBitLen {
		return Zero(), fmt.Errorf("%s exceeds %d bits: %w", b.String(), sdkmath.MaxBitLen, ErrOverflow)
	}
	return Amount{v: sdkmath.NewIntFromBigInt(b)}, nil
}

// Parse reads a raw scaled integer from its base-10 string form.
func Parse(s string) (Amount, error) {
	s = strings.TrimSpace(s)
	b, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return Zero(), fmt.Errorf("parse amount %q: %w", s, ErrDomain)
	}
	return FromBig(b)
}

// FromDecimal scales a real value by 10^18, truncating digits beyond the
// 18th decimal.
func FromDecimal(d decimal.Decimal) (Amount, error) {
	return FromBig(d.Shift(Decimals).BigInt())
}

// FromDecimalString parses a human-readable decimal ("1.5", "-0.25") and
// scales it by 10^18.
func FromDecimalString(s string) (Amount, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return Zero(), fmt.Errorf("parse decimal %q: %w", s, ErrDomain)
	}
	return FromDecimal(d)
}

func (a Amount) int() sdkmath.Int {
	if a.v.IsNil() {
		return sdkmath.ZeroInt()
	}
	return a.v
}

// Int returns the underlying sdkmath.Int.
func (a Amount) Int() sdkmath.Int {
	return a.int()
}

// BigInt returns a copy of the raw scaled integer.
func (a Amount) BigInt() *big.Int {
	return a.int().BigInt()
}

// Decimal returns the real (unscaled) value, exact.
func (a Amount) Decimal() decimal.Decimal {
	return decimal.NewFromBigInt(a.BigInt(), -Decimals)
}

// Int64 returns the raw scaled integer as int64, or ErrOverflow.
func (a Amount) Int64() (int64, error) {
	b := a.BigInt()
	if !b.IsInt64() {
		return 0, fmt.Errorf("%s does not fit in int64: %w", b.String(), ErrOverflow)
	}
	return b.Int64(), nil
}

// String returns the raw scaled integer in base 10.
func (a Amount) String() string {
	return a.int().String()
}

// Sign returns -1, 0 or +1.
func (a Amount) Sign() int {
	return a.int().Sign()
}

// IsZero reports whether a == 0.
func (a Amount) IsZero() bool {
	return a.int().IsZero()
}

// IsNegative reports whether a < 0.
func (a Amount) IsNegative() bool {
	return a.int().IsNegative()
}

// Cmp compares a and b and returns -1, 0 or +1.
func (a Amount) Cmp(b Amount) int {
	return a.BigInt().Cmp(b.BigInt())
}

// Equal reports whether a == b.
func (a Amount) Equal(b Amount) bool {
	return a.Cmp(b) == 0
}

// MarshalJSON encodes the raw scaled integer as a JSON string.
func (a Amount) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String())
}

// UnmarshalJSON accepts the raw scaled integer as a JSON string or number.
func (a *Amount) UnmarshalJSON(data []byte) error {
	raw := strings.Trim(string(data), `"`)
	v, err := Parse(raw)
	if err != nil {
		return err
	}
	*a = v
	return nil
}
