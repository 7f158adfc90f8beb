package domain

import (
	"fmt"
	"strings"

	"debond-math/internal/fixedpoint"
)

// CurveKind selects the decay shape of an auction.
type CurveKind string

// Auction curve kinds.
const (
	CurveLinear    CurveKind = "linear"
	CurveParabolic CurveKind = "parabolic"
)

// ParseCurveKind accepts "linear"/"parabolic" and the boolean form of the
// isParabolic flag.
func ParseCurveKind(s string) (CurveKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "linear", "false", "0", "":
		return CurveLinear, nil
	case "parabolic", "true", "1":
		return CurveParabolic, nil
	default:
		return "", fmt.Errorf("unknown auction curve %q: %w", s, fixedpoint.ErrDomain)
	}
}

// AuctionParams describes a time-decayed auction price.
type AuctionParams struct {
	StartingTime int64             `json:"starting_time"` // unix seconds
	Duration     int64             `json:"duration"`      // seconds
	MaxAmount    fixedpoint.Amount `json:"max_amount"`
	MinAmount    fixedpoint.Amount `json:"min_amount"`
	Curve        CurveKind         `json:"curve"`
}

// Validate enforces duration > 0 and max >= min >= 0.
func (p AuctionParams) Validate() error {
	if p.Duration <= 0 {
		return fmt.Errorf("auction: duration must be positive, got %d: %w", p.Duration, fixedpoint.ErrDomain)
	}
	if p.MinAmount.IsNegative() {
		return fmt.Errorf("auction: negative min amount: %w", fixedpoint.ErrDomain)
	}
	if p.MaxAmount.Cmp(p.MinAmount) < 0 {
		return fmt.Errorf("auction: max amount %s below min amount %s: %w", p.MaxAmount, p.MinAmount, fixedpoint.ErrDomain)
	}
	switch p.Curve {
	case CurveLinear, CurveParabolic:
	default:
		return fmt.Errorf("auction: unknown curve %q: %w", p.Curve, fixedpoint.ErrDomain)
	}
	return nil
}
