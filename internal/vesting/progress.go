package vesting

import (
	"fmt"
	"math/big"

	"debond-math/internal/domain"
	"debond-math/internal/fixedpoint"
)

// FixedThresholdRate is the benchmark growth (5%) a nonce's supply must be
// outgrown by before the threshold counts as reached.
var FixedThresholdRate = fixedpoint.FromInt64(50_000_000_000_000_000)

// Progress returns the elapsed share of period before maturityDate,
// round(100*(1-(maturityDate-now)/period)) rounded half up and clamped to
// [0, 100]. All arguments are unix seconds / seconds.
func Progress(maturityDate, period, now int64) (domain.Progress, error) {
	if period <= 0 {
		return domain.Progress{}, fmt.Errorf("progress: period must be positive, got %d: %w", period, fixedpoint.ErrDomain)
	}

	// elapsed = period - (maturityDate - now), compared before any scaling.
	left := new(big.Int).Sub(big.NewInt(maturityDate), big.NewInt(now))
	p := big.NewInt(period)
	if left.Sign() <= 0 {
		return domain.NewProgress(100), nil
	}
	if left.Cmp(p) >= 0 {
		return domain.NewProgress(0), nil
	}

	elapsed := new(big.Int).Sub(p, left)
	// floor((200*elapsed + period) / (2*period)) == round half up of 100*elapsed/period
	num := new(big.Int).Mul(elapsed, big.NewInt(200))
	num.Add(num, p)
	den := new(big.Int).Mul(p, big.NewInt(2))
	return domain.NewProgress(num.Quo(num, den).Int64()), nil
}

// ThresholdProgress reports 100 once supplyAtNonce has been outgrown by the
// fixed 5% benchmark, 0 otherwise.
func ThresholdProgress(currentSupply, supplyAtNonce fixedpoint.Amount) (domain.Progress, error) {
	return ThresholdProgressAt(currentSupply, supplyAtNonce, FixedThresholdRate)
}

// ThresholdProgressAt is ThresholdProgress with an explicit scaled rate:
// 100 if supplyAtNonce <= currentSupply/(1+rate).
func ThresholdProgressAt(currentSupply, supplyAtNonce, rate fixedpoint.Amount) (domain.Progress, error) {
	if err := fixedpoint.RequireNonNegative("currentSupply", currentSupply); err != nil {
		return domain.Progress{}, err
	}
	if err := fixedpoint.RequireNonNegative("supplyAtNonce", supplyAtNonce); err != nil {
		return domain.Progress{}, err
	}
	if err := fixedpoint.RequireNonNegative("rate", rate); err != nil {
		return domain.Progress{}, err
	}

	growth, err := fixedpoint.Add(fixedpoint.WAD, rate)
	if err != nil {
		return domain.Progress{}, err
	}
	threshold, err := fixedpoint.MulDiv(currentSupply, fixedpoint.WAD, growth)
	if err != nil {
		return domain.Progress{}, err
	}
	if supplyAtNonce.Cmp(threshold) <= 0 {
		return domain.NewProgress(100), nil
	}
	return domain.NewProgress(0), nil
}
