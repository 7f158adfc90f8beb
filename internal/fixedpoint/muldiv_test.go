package fixedpoint

import (
	"encoding/json"
	"math/big"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMulDiv_Truncates(t *testing.T) {
	tests := []struct {
		name          string
		a, b, divisor int64
		want          int64
	}{
		{"exact", 6, 4, 3, 8},
		{"floor", 7, 1, 2, 3},
		{"toward zero for negative", -7, 1, 2, -3},
		{"zero numerator", 0, 123, 7, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := MulDiv(FromInt64(tt.a), FromInt64(tt.b), FromInt64(tt.divisor))
			require.NoError(t, err)
			assert.Equal(t, FromInt64(tt.want).String(), got.String())
		})
	}
}

func TestMulDiv_DivisionByZero(t *testing.T) {
	_, err := MulDiv(WAD, WAD, Zero())
	assert.ErrorIs(t, err, ErrDivisionByZero)
	assert.ErrorIs(t, err, ErrDomain)
	assert.Equal(t, KindDivisionByZero, Kind(err))
}

func TestMulDiv_WideIntermediate(t *testing.T) {
	// 10^10 tokens squared at 18 decimals is ~10^56, far beyond uint64.
	big10 := Scale(10_000_000_000)
	got, err := MulDiv(big10, big10, big10)
	require.NoError(t, err)
	assert.True(t, got.Equal(big10))
}

func TestFromBig_Overflow(t *testing.T) {
	huge := new(big.Int).Lsh(big.NewInt(1), 300)
	_, err := FromBig(huge)
	assert.ErrorIs(t, err, ErrOverflow)

	_, err = Mul(Amount{}, Amount{})
	assert.NoError(t, err, "zero value behaves as zero")
}

func TestSubNonNegative(t *testing.T) {
	got, err := SubNonNegative(Scale(5), Scale(3))
	require.NoError(t, err)
	assert.True(t, got.Equal(Scale(2)))

	_, err = SubNonNegative(Scale(3), Scale(5))
	assert.ErrorIs(t, err, ErrUnderflow)
	assert.Equal(t, KindUnderflow, Kind(err))
}

func TestQuo_DivisionByZero(t *testing.T) {
	_, err := Quo(WAD, Zero())
	assert.ErrorIs(t, err, ErrDivisionByZero)
}

func TestFromDecimalString(t *testing.T) {
	a, err := FromDecimalString("1.5")
	require.NoError(t, err)
	assert.Equal(t, "1500000000000000000", a.String())

	// Digits beyond the 18th decimal are dropped, not rounded.
	a, err = FromDecimalString("0.0000000000000000019")
	require.NoError(t, err)
	assert.Equal(t, "1", a.String())

	_, err = FromDecimalString("abc")
	assert.ErrorIs(t, err, ErrDomain)
}

func TestAmount_DecimalRoundTrip(t *testing.T) {
	a := Scale(42)
	assert.True(t, a.Decimal().Equal(decimal.NewFromInt(42)))

	back, err := FromDecimal(a.Decimal())
	require.NoError(t, err)
	assert.True(t, back.Equal(a))
}

func TestAmount_JSON(t *testing.T) {
	data, err := json.Marshal(Scale(3))
	require.NoError(t, err)
	assert.Equal(t, `"3000000000000000000"`, string(data))

	var a Amount
	require.NoError(t, json.Unmarshal([]byte(`"250"`), &a))
	assert.Equal(t, "250", a.String())

	require.NoError(t, json.Unmarshal([]byte(`7`), &a))
	assert.Equal(t, "7", a.String())

	assert.Error(t, json.Unmarshal([]byte(`"1.5"`), &a))
}

func TestAmount_ZeroValue(t *testing.T) {
	var a Amount
	assert.True(t, a.IsZero())
	assert.Equal(t, "0", a.String())
	assert.Equal(t, 0, a.Sign())
}

func TestKind(t *testing.T) {
	assert.Equal(t, "", Kind(nil))
	assert.Equal(t, KindDomain, Kind(ErrDomain))
	assert.Equal(t, KindOverflow, Kind(ErrOverflow))
	assert.Equal(t, KindUnknown, Kind(assert.AnError))
}
