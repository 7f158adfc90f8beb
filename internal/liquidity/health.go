// Package liquidity detects liquidity deficits of a bond class and projects
// the adaptive redemption date.
package liquidity

import (
	"fmt"
	"math"

	"debond-math/internal/domain"
	"debond-math/internal/fixedpoint"
	"debond-math/internal/interest"
)

// Health bundles the liquidity assessment of one bond class.
type Health struct {
	Deficit        fixedpoint.Amount `json:"deficit"`
	InCrisis       bool              `json:"in_crisis"`
	RedemptionTime int64             `json:"redemption_time"`
}

// DeficitOfBond returns sumOfLiquidityFlow*(1+benchmarkIR) minus the
// liquidity of the last nonce. Negative values are a surplus.
func DeficitOfBond(state domain.LiquidityState, benchmarkIR fixedpoint.Amount) (fixedpoint.Amount, error) {
	if err := state.Validate(); err != nil {
		return fixedpoint.Zero(), err
	}
	required, err := interest.LastMonthAverageLiquidityFlow(state.SumOfLiquidityFlow, benchmarkIR)
	if err != nil {
		return fixedpoint.Zero(), fmt.Errorf("deficitOfBond: %w", err)
	}
	return fixedpoint.Sub(required, state.SumOfLiquidityOfLastNonce)
}

// InCrisis reports whether the bond class runs a positive deficit.
func InCrisis(state domain.LiquidityState, benchmarkIR fixedpoint.Amount) (bool, error) {
	deficit, err := DeficitOfBond(state, benchmarkIR)
	if err != nil {
		return false, err
	}
	return deficit.Sign() > 0, nil
}

// FloatingETA moves maturityTime by deficit*nonceDuration/lastMonthLiquidityFlow
// seconds, truncated toward zero. A surplus pulls the date in.
func FloatingETA(maturityTime int64, state domain.LiquidityState, benchmarkIR fixedpoint.Amount, nonceDuration int64) (int64, error) {
	if nonceDuration < 0 {
		return 0, fmt.Errorf("floatingETA: negative nonce duration %d: %w", nonceDuration, fixedpoint.ErrDomain)
	}
	if state.LastMonthLiquidityFlow.IsZero() {
		return 0, fmt.Errorf("floatingETA: zero last month liquidity flow: %w", fixedpoint.ErrDivisionByZero)
	}

	deficit, err := DeficitOfBond(state, benchmarkIR)
	if err != nil {
		return 0, err
	}
	return etaFromDeficit(maturityTime, deficit, state.LastMonthLiquidityFlow, nonceDuration)
}

func etaFromDeficit(maturityTime int64, deficit, lastMonthFlow fixedpoint.Amount, nonceDuration int64) (int64, error) {
	ext, err := fixedpoint.MulDiv(deficit, fixedpoint.FromInt64(nonceDuration), lastMonthFlow)
	if err != nil {
		return 0, fmt.Errorf("floatingETA: %w", err)
	}
	extension, err := ext.Int64()
	if err != nil {
		return 0, fmt.Errorf("floatingETA: extension: %w", err)
	}
	if (extension > 0 && maturityTime > math.MaxInt64-extension) ||
		(extension < 0 && maturityTime < math.MinInt64-extension) {
		return 0, fmt.Errorf("floatingETA: %d%+d: %w", maturityTime, extension, fixedpoint.ErrOverflow)
	}
	return maturityTime + extension, nil
}

// Assess computes deficit, crisis flag and redemption time in one pass.
func Assess(maturityTime int64, state domain.LiquidityState, benchmarkIR fixedpoint.Amount, nonceDuration int64) (Health, error) {
	if nonceDuration < 0 {
		return Health{}, fmt.Errorf("assess: negative nonce duration %d: %w", nonceDuration, fixedpoint.ErrDomain)
	}
	if state.LastMonthLiquidityFlow.IsZero() {
		return Health{}, fmt.Errorf("assess: zero last month liquidity flow: %w", fixedpoint.ErrDivisionByZero)
	}
	deficit, err := DeficitOfBond(state, benchmarkIR)
	if err != nil {
		return Health{}, err
	}
	eta, err := etaFromDeficit(maturityTime, deficit, state.LastMonthLiquidityFlow, nonceDuration)
	if err != nil {
		return Health{}, err
	}
	return Health{Deficit: deficit, InCrisis: deficit.Sign() > 0, RedemptionTime: eta}, nil
}
