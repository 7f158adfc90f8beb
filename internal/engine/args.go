package engine

import (
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"

	"debond-math/internal/domain"
	"debond-math/internal/fixedpoint"
)

// Args carries operation arguments by name. Amounts are decimal strings in
// whole units ("1.5" is 1.5e18 scaled); times and durations are integer
// seconds; curve takes linear/parabolic or the boolean isParabolic form.
type Args map[string]string

// ParamType is the parse rule of one argument.
type ParamType string

// Parameter types.
const (
	ParamAmount ParamType = "amount"
	ParamInt    ParamType = "int"
	ParamCurve  ParamType = "curve"
)

// Param describes one argument of an operation.
type Param struct {
	Name     string    `json:"name"`
	Type     ParamType `json:"type"`
	Optional bool      `json:"optional,omitempty"`
	Default  string    `json:"default,omitempty"`
}

func (a Args) lookup(name string) (string, bool) {
	s, ok := a[name]
	s = strings.TrimSpace(s)
	return s, ok && s != ""
}

func (a Args) amount(name string) (fixedpoint.Amount, error) {
	s, ok := a.lookup(name)
	if !ok {
		return fixedpoint.Zero(), fmt.Errorf("%s: %w", name, ErrMissingArg)
	}
	v, err := fixedpoint.FromDecimalString(s)
	if err != nil {
		return fixedpoint.Zero(), fmt.Errorf("%s=%q: %w", name, s, ErrBadArg)
	}
	return v, nil
}

func (a Args) integer(name string) (int64, error) {
	s, ok := a.lookup(name)
	if !ok {
		return 0, fmt.Errorf("%s: %w", name, ErrMissingArg)
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s=%q: %w", name, s, ErrBadArg)
	}
	return v, nil
}

func (a Args) curve(name string) (domain.CurveKind, error) {
	s, _ := a.lookup(name)
	k, err := domain.ParseCurveKind(s)
	if err != nil {
		return "", fmt.Errorf("%s=%q: %w", name, s, ErrBadArg)
	}
	return k, nil
}

// check rejects arguments the operation does not take and fills defaults.
// The returned map is a copy.
func (a Args) check(params []Param) (Args, error) {
	known := make(map[string]Param, len(params))
	for _, p := range params {
		known[p.Name] = p
	}
	out := make(Args, len(params))
	for _, k := range slices.Sorted(maps.Keys(a)) {
		if _, ok := known[k]; !ok {
			return nil, fmt.Errorf("unexpected argument %q: %w", k, ErrBadArg)
		}
		out[k] = strings.TrimSpace(a[k])
	}
	for _, p := range params {
		if _, ok := out.lookup(p.Name); ok {
			continue
		}
		if p.Default != "" {
			out[p.Name] = p.Default
			continue
		}
		if !p.Optional {
			return nil, fmt.Errorf("%s: %w", p.Name, ErrMissingArg)
		}
		delete(out, p.Name)
	}
	return out, nil
}

func (a Args) position() (domain.BondPosition, error) {
	fixed, err := a.amount("fixedRateBond")
	if err != nil {
		return domain.BondPosition{}, err
	}
	floating, err := a.amount("floatingRateBond")
	if err != nil {
		return domain.BondPosition{}, err
	}
	return domain.BondPosition{FixedRateBond: fixed, FloatingRateBond: floating}, nil
}

func (a Args) liquidity() (domain.LiquidityState, error) {
	var s domain.LiquidityState
	var err error
	if s.SumOfLiquidityFlow, err = a.amount("sumOfLiquidityFlow"); err != nil {
		return s, err
	}
	if s.SumOfLiquidityOfLastNonce, err = a.amount("sumOfLiquidityOfLastNonce"); err != nil {
		return s, err
	}
	if _, ok := a.lookup("lastMonthLiquidityFlow"); ok {
		if s.LastMonthLiquidityFlow, err = a.amount("lastMonthLiquidityFlow"); err != nil {
			return s, err
		}
	}
	return s, nil
}

func (a Args) ledger() (domain.EntryLedger, error) {
	var l domain.EntryLedger
	var err error
	if l.OldEntries, err = a.amount("oldEntries"); err != nil {
		return l, err
	}
	if l.TotalEntries, err = a.amount("totalEntries"); err != nil {
		return l, err
	}
	if l.TotalBalance, err = a.amount("totalBalance"); err != nil {
		return l, err
	}
	return l, nil
}

func (a Args) auction() (domain.AuctionParams, error) {
	var p domain.AuctionParams
	var err error
	if p.StartingTime, err = a.integer("startingTime"); err != nil {
		return p, err
	}
	if p.Duration, err = a.integer("duration"); err != nil {
		return p, err
	}
	if p.MaxAmount, err = a.amount("maxAmount"); err != nil {
		return p, err
	}
	if p.MinAmount, err = a.amount("minAmount"); err != nil {
		return p, err
	}
	if p.Curve, err = a.curve("curve"); err != nil {
		return p, err
	}
	return p, nil
}
