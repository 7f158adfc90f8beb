// Package interest splits a benchmark rate between fixed- and floating-rate
// bonds and prorates annual rates.
package interest

import (
	"fmt"

	"debond-math/internal/curve"
	"debond-math/internal/domain"
	"debond-math/internal/fixedpoint"
)

// SecondsPerYear is the 365-day year used to prorate annual rates.
const SecondsPerYear = 31_536_000

// allocatorCenter is the sigmoid parameter c = 1/5.
var allocatorCenter = fixedpoint.FromInt64(200_000_000_000_000_000)

// RateSplit is the fixed/floating pair for one bond position. Fixed +
// Floating always equals twice the benchmark rate.
type RateSplit struct {
	Fixed    fixedpoint.Amount `json:"fixed"`
	Floating fixedpoint.Amount `json:"floating"`
}

// FloatingInterestRate returns 2*benchmarkIR*sigmoid(x, 1/5) where x is the
// fixed-rate share of the position. A one-sided position puts x on the
// sigmoid boundary and fails with ErrDomain.
func FloatingInterestRate(pos domain.BondPosition, benchmarkIR fixedpoint.Amount) (fixedpoint.Amount, error) {
	if err := pos.Validate(); err != nil {
		return fixedpoint.Zero(), fmt.Errorf("floatingInterestRate: %w", err)
	}
	if err := fixedpoint.RequireNonNegative("benchmarkIR", benchmarkIR); err != nil {
		return fixedpoint.Zero(), fmt.Errorf("floatingInterestRate: %w", err)
	}

	total, err := fixedpoint.Add(pos.FixedRateBond, pos.FloatingRateBond)
	if err != nil {
		return fixedpoint.Zero(), err
	}
	x, err := fixedpoint.MulDiv(pos.FixedRateBond, fixedpoint.WAD, total)
	if err != nil {
		return fixedpoint.Zero(), err
	}
	sig, err := curve.Sigmoid(x, allocatorCenter)
	if err != nil {
		return fixedpoint.Zero(), fmt.Errorf("floatingInterestRate: %w", err)
	}

	twiceIR, err := fixedpoint.Add(benchmarkIR, benchmarkIR)
	if err != nil {
		return fixedpoint.Zero(), err
	}
	return fixedpoint.MulDiv(twiceIR, sig, fixedpoint.WAD)
}

// FixedInterestRate returns 2*benchmarkIR minus the floating rate.
func FixedInterestRate(pos domain.BondPosition, benchmarkIR fixedpoint.Amount) (fixedpoint.Amount, error) {
	split, err := Split(pos, benchmarkIR)
	if err != nil {
		return fixedpoint.Zero(), err
	}
	return split.Fixed, nil
}

// Split computes both rates with a single sigmoid evaluation.
func Split(pos domain.BondPosition, benchmarkIR fixedpoint.Amount) (RateSplit, error) {
	floating, err := FloatingInterestRate(pos, benchmarkIR)
	if err != nil {
		return RateSplit{}, err
	}
	twiceIR, err := fixedpoint.Add(benchmarkIR, benchmarkIR)
	if err != nil {
		return RateSplit{}, err
	}
	fixed, err := fixedpoint.SubNonNegative(twiceIR, floating)
	if err != nil {
		return RateSplit{}, fmt.Errorf("fixedInterestRate: %w", err)
	}
	return RateSplit{Fixed: fixed, Floating: floating}, nil
}

// CalculateInterestRate prorates annualRate to duration seconds.
func CalculateInterestRate(duration int64, annualRate fixedpoint.Amount) (fixedpoint.Amount, error) {
	if duration < 0 {
		return fixedpoint.Zero(), fmt.Errorf("calculateInterestRate: negative duration %d: %w", duration, fixedpoint.ErrDomain)
	}
	if err := fixedpoint.RequireNonNegative("annualRate", annualRate); err != nil {
		return fixedpoint.Zero(), fmt.Errorf("calculateInterestRate: %w", err)
	}
	return fixedpoint.MulDivInt(annualRate, duration, SecondsPerYear)
}

// EstimateInterestEarned returns amount times the prorated rate.
func EstimateInterestEarned(amount fixedpoint.Amount, duration int64, annualRate fixedpoint.Amount) (fixedpoint.Amount, error) {
	if err := fixedpoint.RequireNonNegative("amount", amount); err != nil {
		return fixedpoint.Zero(), fmt.Errorf("estimateInterestEarned: %w", err)
	}
	rate, err := CalculateInterestRate(duration, annualRate)
	if err != nil {
		return fixedpoint.Zero(), err
	}
	return fixedpoint.MulDiv(amount, rate, fixedpoint.WAD)
}

// LastMonthAverageLiquidityFlow grows sumOfLiquidityFlow by the benchmark
// rate: sum*(1+benchmarkIR).
func LastMonthAverageLiquidityFlow(sumOfLiquidityFlow, benchmarkIR fixedpoint.Amount) (fixedpoint.Amount, error) {
	if err := fixedpoint.RequireNonNegative("sumOfLiquidityFlow", sumOfLiquidityFlow); err != nil {
		return fixedpoint.Zero(), err
	}
	if err := fixedpoint.RequireNonNegative("benchmarkIR", benchmarkIR); err != nil {
		return fixedpoint.Zero(), err
	}
	growth, err := fixedpoint.Add(fixedpoint.WAD, benchmarkIR)
	if err != nil {
		return fixedpoint.Zero(), err
	}
	return fixedpoint.MulDiv(sumOfLiquidityFlow, growth, fixedpoint.WAD)
}
