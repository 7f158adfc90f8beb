// Package auction prices time-decayed auctions.
package auction

import (
	"fmt"
	"math/big"

	"debond-math/internal/domain"
	"debond-math/internal/fixedpoint"
)

// CurrentPrice returns the auction price at now (unix seconds).
//
//	linear:    max - (max-min)*(now-start)/duration
//	parabolic: max - (max-min)*(now-start)^2/duration^2
//
// The formula is not clamped to the auction window. Past the end the price
// keeps falling below min, and fails with ErrUnderflow once it would be
// negative. Before the start a linear auction prices above max while a
// parabolic one mirrors its decay.
func CurrentPrice(p domain.AuctionParams, now int64) (fixedpoint.Amount, error) {
	if err := p.Validate(); err != nil {
		return fixedpoint.Zero(), err
	}

	drop, err := fixedpoint.Sub(p.MaxAmount, p.MinAmount)
	if err != nil {
		return fixedpoint.Zero(), err
	}

	elapsed := new(big.Int).Sub(big.NewInt(now), big.NewInt(p.StartingTime))
	span := big.NewInt(p.Duration)
	if p.Curve == domain.CurveParabolic {
		elapsed.Mul(elapsed, elapsed)
		span.Mul(span, span)
	}

	num, err := fixedpoint.FromBig(elapsed)
	if err != nil {
		return fixedpoint.Zero(), err
	}
	den, err := fixedpoint.FromBig(span)
	if err != nil {
		return fixedpoint.Zero(), err
	}
	decay, err := fixedpoint.MulDiv(drop, num, den)
	if err != nil {
		return fixedpoint.Zero(), err
	}

	price, err := fixedpoint.SubNonNegative(p.MaxAmount, decay)
	if err != nil {
		return fixedpoint.Zero(), fmt.Errorf("currentPrice at %d: %w", now, err)
	}
	return price, nil
}

// Window returns the first and last second of the auction.
func Window(p domain.AuctionParams) (start, end int64) {
	return p.StartingTime, p.StartingTime + p.Duration
}

// Settled reports whether the auction window has closed at now.
func Settled(p domain.AuctionParams, now int64) bool {
	_, end := Window(p)
	return now >= end
}
