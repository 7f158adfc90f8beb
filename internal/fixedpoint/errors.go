package fixedpoint

import (
	"errors"
	"fmt"
)

// Arithmetic errors. Every engine operation reports failures through one of
// these; callers match with errors.Is.
var (
	// ErrDomain is returned when an input lies outside the operation's valid range.
	ErrDomain = errors.New("input outside function domain")

	// ErrDivisionByZero is returned when a denominator evaluates to zero.
	// It wraps ErrDomain so callers that only care about bad input can match either.
	ErrDivisionByZero = fmt.Errorf("division by zero: %w", ErrDomain)

	// ErrUnderflow is returned when a quantity that must stay non-negative would go below zero.
	ErrUnderflow = errors.New("arithmetic underflow")

	// ErrOverflow is returned when a result does not fit in 256 bits (or int64 for timestamps).
	ErrOverflow = errors.New("arithmetic overflow")
)

// Error kind names used by the journal, metrics and HTTP layers.
const (
	KindDivisionByZero = "division_by_zero"
	KindDomain         = "domain"
	KindUnderflow      = "underflow"
	KindOverflow       = "overflow"
	KindUnknown        = "unknown"
)

// Kind maps an error to its kind name. Returns "" for a nil error.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrDivisionByZero):
		return KindDivisionByZero
	case errors.Is(err, ErrDomain):
		return KindDomain
	case errors.Is(err, ErrUnderflow):
		return KindUnderflow
	case errors.Is(err, ErrOverflow):
		return KindOverflow
	default:
		return KindUnknown
	}
}
