// Package vesting covers airdrop lockups, maturity progress and the
// entries/shares ledger.
package vesting

import (
	"debond-math/internal/fixedpoint"
)

// UnlockedPercent is the share of the collateralized supply that releases
// airdropped tokens.
const UnlockedPercent = 5

// LockedBalance returns the part of airdropBalance still locked.
//
// A supply of u = collateralizedSupply*5/100 airdrop tokens is unlocked;
// the holder keeps the remaining fraction (airdropSupply-u)/airdropSupply
// of their balance locked. Once u covers the whole airdrop nothing is locked.
func LockedBalance(collateralizedSupply, airdropSupply, airdropBalance fixedpoint.Amount) (fixedpoint.Amount, error) {
	if err := fixedpoint.RequireNonNegative("collateralizedSupply", collateralizedSupply); err != nil {
		return fixedpoint.Zero(), err
	}
	if err := fixedpoint.RequireNonNegative("airdropSupply", airdropSupply); err != nil {
		return fixedpoint.Zero(), err
	}
	if err := fixedpoint.RequireNonNegative("airdropBalance", airdropBalance); err != nil {
		return fixedpoint.Zero(), err
	}

	unlocked, err := fixedpoint.MulDivInt(collateralizedSupply, UnlockedPercent, 100)
	if err != nil {
		return fixedpoint.Zero(), err
	}
	if airdropSupply.Cmp(unlocked) <= 0 {
		return fixedpoint.Zero(), nil
	}

	stillLocked, err := fixedpoint.Sub(airdropSupply, unlocked)
	if err != nil {
		return fixedpoint.Zero(), err
	}
	return fixedpoint.MulDiv(airdropBalance, stillLocked, airdropSupply)
}
