package liquidity

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"debond-math/internal/domain"
	"debond-math/internal/fixedpoint"
)

func state(flow, lastNonce, lastMonth int64) domain.LiquidityState {
	return domain.LiquidityState{
		SumOfLiquidityFlow:        fixedpoint.Scale(flow),
		SumOfLiquidityOfLastNonce: fixedpoint.Scale(lastNonce),
		LastMonthLiquidityFlow:    fixedpoint.Scale(lastMonth),
	}
}

var fivePercent = fixedpoint.FromInt64(50_000_000_000_000_000)

func TestDeficitOfBond(t *testing.T) {
	tests := []struct {
		name      string
		flow      int64
		lastNonce int64
		want      int64
	}{
		{"deficit", 100, 80, 25},
		{"balanced", 100, 105, 0},
		{"surplus", 100, 120, -15},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DeficitOfBond(state(tt.flow, tt.lastNonce, 1), fivePercent)
			require.NoError(t, err)
			assert.True(t, got.Equal(fixedpoint.Scale(tt.want)), "got %s", got.Decimal())
		})
	}
}

func TestCrisisConsistency(t *testing.T) {
	rng := rand.New(rand.NewSource(13))
	for i := 0; i < 300; i++ {
		s := state(1+rng.Int63n(10_000_000_000), 1+rng.Int63n(10_000_000_000), 1)
		ir := fixedpoint.FromInt64(rng.Int63n(1_000_000_000_000_000_000))

		deficit, err := DeficitOfBond(s, ir)
		require.NoError(t, err)
		crisis, err := InCrisis(s, ir)
		require.NoError(t, err)
		assert.Equal(t, deficit.Sign() > 0, crisis)
	}
}

func TestFloatingETA(t *testing.T) {
	const maturity = int64(1_700_000_000)
	const day = int64(86_400)

	// deficit 25 over a monthly flow of 50: half a nonce later
	got, err := FloatingETA(maturity, state(100, 80, 50), fivePercent, day)
	require.NoError(t, err)
	assert.Equal(t, maturity+day/2, got)

	// surplus 15 over 30: half a nonce earlier
	got, err = FloatingETA(maturity, state(100, 120, 30), fivePercent, day)
	require.NoError(t, err)
	assert.Equal(t, maturity-day/2, got)

	// balanced
	got, err = FloatingETA(maturity, state(100, 105, 30), fivePercent, day)
	require.NoError(t, err)
	assert.Equal(t, maturity, got)
}

func TestFloatingETA_TruncatesTowardZero(t *testing.T) {
	// deficit 25, flow 3, 1 second nonce: 8.33 -> 8
	got, err := FloatingETA(0, state(100, 80, 3), fivePercent, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(8), got)

	// surplus 25 (flow 100, last nonce 130): -8.33 -> -8
	got, err = FloatingETA(0, state(100, 130, 3), fivePercent, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(-8), got)
}

func TestFloatingETA_Errors(t *testing.T) {
	_, err := FloatingETA(0, state(100, 80, 0), fivePercent, 86_400)
	assert.ErrorIs(t, err, fixedpoint.ErrDivisionByZero)

	_, err = FloatingETA(0, state(100, 80, 10), fivePercent, -1)
	assert.ErrorIs(t, err, fixedpoint.ErrDomain)

	// A huge deficit over a tiny flow pushes the date past int64.
	s := domain.LiquidityState{
		SumOfLiquidityFlow:        fixedpoint.Scale(10_000_000_000),
		SumOfLiquidityOfLastNonce: fixedpoint.Zero(),
		LastMonthLiquidityFlow:    fixedpoint.FromInt64(1),
	}
	_, err = FloatingETA(0, s, fivePercent, 86_400)
	assert.ErrorIs(t, err, fixedpoint.ErrOverflow)
}

func TestAssess(t *testing.T) {
	h, err := Assess(1_000, state(100, 80, 50), fivePercent, 100)
	require.NoError(t, err)
	assert.True(t, h.InCrisis)
	assert.True(t, h.Deficit.Equal(fixedpoint.Scale(25)))
	assert.Equal(t, int64(1_050), h.RedemptionTime)
}
