package engine

import (
	"errors"
	"fmt"

	"debond-math/internal/fixedpoint"
)

// Engine errors
var (
	ErrUnknownOperation = errors.New("unknown operation")
	ErrMissingArg       = fmt.Errorf("missing argument: %w", fixedpoint.ErrDomain)
	ErrBadArg           = fmt.Errorf("malformed argument: %w", fixedpoint.ErrDomain)
)

// KindUnknownOperation is the error kind of ErrUnknownOperation.
const KindUnknownOperation = "unknown_operation"

// ErrorKind extends fixedpoint.Kind with the engine's own errors.
func ErrorKind(err error) string {
	if errors.Is(err, ErrUnknownOperation) {
		return KindUnknownOperation
	}
	return fixedpoint.Kind(err)
}
