// Package curve implements the collateralization curves, the sigmoid
// allocator and the constant-product swap output.
package curve

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"

	"debond-math/internal/fixedpoint"
)

// dgovPivot is the supply scale (whole tokens) of the quadratic term in the
// DBIT->DGOV curve.
const dgovPivot = 33333

const (
	// usdToDbitFloor is the collateralized supply (whole tokens) below which
	// the USD->DBIT price is pinned at 1.
	usdToDbitFloor = 10_000

	// usdToDbitPivot is the supply the doubling count of the curve starts from.
	usdToDbitPivot = 1_000
)

// usdToDbitExponent is log2(1.05): 1.05 growth per doubling of supply.
var usdToDbitExponent = decimal.RequireFromString("0.070389327891397941025388831690257141536")

// CalibrationPoint is a verified (supply, price) pair in whole units.
type CalibrationPoint struct {
	Supply int64
	Price  string
}

// UsdToDbitCalibration lists the verified points of the USD->DBIT curve,
// prices rounded to 3 decimals.
var UsdToDbitCalibration = []CalibrationPoint{
	{1, "1"},
	{10, "1"},
	{100, "1"},
	{1_000, "1"},
	{10_000, "1.176"},
	{100_000, "1.383"},
	{1_000_000, "1.626"},
	{10_000_000, "1.912"},
	{100_000_000, "2.249"},
	{1_000_000_000, "2.644"},
	{10_000_000_000, "3.110"},
}

// CdpDbitToDgov returns the DBIT->DGOV price 1 / (100 + (s/33333)^2) for a
// collateralized supply s. Evaluated as the exact rational
// WAD*K / (100*K + S^2) with K = 33333^2 * WAD^2, truncated once.
func CdpDbitToDgov(collateralizedSupply fixedpoint.Amount) (fixedpoint.Amount, error) {
	if err := fixedpoint.RequireNonNegative("collateralizedSupply", collateralizedSupply); err != nil {
		return fixedpoint.Zero(), err
	}

	w := fixedpoint.WAD.BigInt()
	k := new(big.Int).Mul(big.NewInt(dgovPivot*dgovPivot), new(big.Int).Mul(w, w))
	s := collateralizedSupply.BigInt()

	den := new(big.Int).Mul(big.NewInt(100), k)
	den.Add(den, new(big.Int).Mul(s, s))

	kAmt, err := fixedpoint.FromBig(k)
	if err != nil {
		return fixedpoint.Zero(), err
	}
	denAmt, err := fixedpoint.FromBig(den)
	if err != nil {
		return fixedpoint.Zero(), err
	}
	return fixedpoint.MulDiv(fixedpoint.WAD, kAmt, denAmt)
}

// CdpUsdToDbit returns the USD->DBIT price for a collateralized supply.
// Below 10000 tokens the price is exactly 1; from there it grows by a factor
// 1.05 per doubling of supply, price = 1.05^log2(s/1000) = (s/1000)^log2(1.05),
// which matches every point in UsdToDbitCalibration.
func CdpUsdToDbit(collateralizedSupply fixedpoint.Amount) (fixedpoint.Amount, error) {
	if err := fixedpoint.RequireNonNegative("collateralizedSupply", collateralizedSupply); err != nil {
		return fixedpoint.Zero(), err
	}

	s := collateralizedSupply.Decimal()
	if s.Cmp(decimal.NewFromInt(usdToDbitFloor)) < 0 {
		return fixedpoint.WAD, nil
	}

	ratio := s.DivRound(decimal.NewFromInt(usdToDbitPivot), fixedpoint.Decimals+4)
	price, err := ratio.PowWithPrecision(usdToDbitExponent, realPrecision)
	if err != nil {
		return fixedpoint.Zero(), fmt.Errorf("usd->dbit price: %w", err)
	}
	return fixedpoint.FromDecimal(price)
}
