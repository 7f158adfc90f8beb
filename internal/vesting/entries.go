package vesting

import (
	"fmt"

	"debond-math/internal/domain"
	"debond-math/internal/fixedpoint"
)

// entriesFor converts a value amount to entries at the ledger's current
// totalEntries/totalBalance rate, multiplying first.
func entriesFor(ledger domain.EntryLedger, amount fixedpoint.Amount) (fixedpoint.Amount, error) {
	if err := ledger.Validate(); err != nil {
		return fixedpoint.Zero(), err
	}
	if err := fixedpoint.RequireNonNegative("amount", amount); err != nil {
		return fixedpoint.Zero(), err
	}
	return fixedpoint.MulDiv(amount, ledger.TotalEntries, ledger.TotalBalance)
}

// AmountToAddEntry returns the entries held after depositing amountToAdd.
func AmountToAddEntry(ledger domain.EntryLedger, amountToAdd fixedpoint.Amount) (fixedpoint.Amount, error) {
	delta, err := entriesFor(ledger, amountToAdd)
	if err != nil {
		return fixedpoint.Zero(), fmt.Errorf("amountToAddEntry: %w", err)
	}
	return fixedpoint.Add(ledger.OldEntries, delta)
}

// AmountToRemoveEntry returns the entries held after withdrawing
// amountToRemove. Fails with ErrUnderflow if that would take more entries
// than are held.
func AmountToRemoveEntry(ledger domain.EntryLedger, amountToRemove fixedpoint.Amount) (fixedpoint.Amount, error) {
	delta, err := entriesFor(ledger, amountToRemove)
	if err != nil {
		return fixedpoint.Zero(), fmt.Errorf("amountToRemoveEntry: %w", err)
	}
	out, err := fixedpoint.SubNonNegative(ledger.OldEntries, delta)
	if err != nil {
		return fixedpoint.Zero(), fmt.Errorf("amountToRemoveEntry: %w", err)
	}
	return out, nil
}
