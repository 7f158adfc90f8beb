package domain

import (
	"fmt"

	"debond-math/internal/fixedpoint"
)

// BondPosition is the outstanding fixed-rate and floating-rate bond supply
// of one class. The fixed share x = fixed/(fixed+floating) drives the rate
// split.
type BondPosition struct {
	FixedRateBond    fixedpoint.Amount `json:"fixed_rate_bond"`
	FloatingRateBond fixedpoint.Amount `json:"floating_rate_bond"`
}

// Validate checks that both sides are non-negative and the total is positive.
func (p BondPosition) Validate() error {
	if p.FixedRateBond.IsNegative() || p.FloatingRateBond.IsNegative() {
		return fmt.Errorf("bond position: negative supply: %w", fixedpoint.ErrDomain)
	}
	if p.FixedRateBond.IsZero() && p.FloatingRateBond.IsZero() {
		return fmt.Errorf("bond position: empty: %w", fixedpoint.ErrDivisionByZero)
	}
	return nil
}

// LiquidityState holds the liquidity-flow figures of one bond class.
type LiquidityState struct {
	SumOfLiquidityFlow        fixedpoint.Amount `json:"sum_of_liquidity_flow"`
	SumOfLiquidityOfLastNonce fixedpoint.Amount `json:"sum_of_liquidity_of_last_nonce"`
	LastMonthLiquidityFlow    fixedpoint.Amount `json:"last_month_liquidity_flow"`
}

// Validate rejects negative figures. LastMonthLiquidityFlow is only checked
// for zero by the operations that divide by it.
func (s LiquidityState) Validate() error {
	if err := fixedpoint.RequireNonNegative("sum_of_liquidity_flow", s.SumOfLiquidityFlow); err != nil {
		return fmt.Errorf("liquidity state: %w", err)
	}
	if err := fixedpoint.RequireNonNegative("sum_of_liquidity_of_last_nonce", s.SumOfLiquidityOfLastNonce); err != nil {
		return fmt.Errorf("liquidity state: %w", err)
	}
	if err := fixedpoint.RequireNonNegative("last_month_liquidity_flow", s.LastMonthLiquidityFlow); err != nil {
		return fmt.Errorf("liquidity state: %w", err)
	}
	return nil
}

// EntryLedger is a shares/value pair used for proportional accounting.
type EntryLedger struct {
	OldEntries   fixedpoint.Amount `json:"old_entries"`
	TotalEntries fixedpoint.Amount `json:"total_entries"`
	TotalBalance fixedpoint.Amount `json:"total_balance"`
}

// Validate requires non-negative entries and a positive balance.
func (l EntryLedger) Validate() error {
	if err := fixedpoint.RequireNonNegative("old_entries", l.OldEntries); err != nil {
		return fmt.Errorf("entry ledger: %w", err)
	}
	if err := fixedpoint.RequireNonNegative("total_entries", l.TotalEntries); err != nil {
		return fmt.Errorf("entry ledger: %w", err)
	}
	if l.TotalBalance.IsNegative() {
		return fmt.Errorf("entry ledger: negative total_balance: %w", fixedpoint.ErrDomain)
	}
	if l.TotalBalance.IsZero() {
		return fmt.Errorf("entry ledger: zero total_balance: %w", fixedpoint.ErrDivisionByZero)
	}
	return nil
}

// Progress is the percentage pair returned by the progress operations.
type Progress struct {
	Achieved  int64 `json:"achieved"`
	Remaining int64 `json:"remaining"`
}

// NewProgress builds the pair from the achieved percentage.
func NewProgress(achieved int64) Progress {
	return Progress{Achieved: achieved, Remaining: 100 - achieved}
}
