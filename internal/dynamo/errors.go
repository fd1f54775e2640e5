package dynamo

import (
	"errors"
	"fmt"
)

// Domain errors for simulation operations.
var (
	// ErrInvalidParameter indicates a non-positive step count, time increment,
	// sample count or physical constant.
	ErrInvalidParameter = errors.New("dynamo: invalid parameter")

	// ErrUnknownParameter indicates a SetParam call with an unrecognised name.
	ErrUnknownParameter = errors.New("dynamo: unknown parameter")

	// ErrSinkClosed indicates a write to a table that was already closed or aborted.
	ErrSinkClosed = errors.New("dynamo: sink closed")

	// ErrMalformedTable indicates a table whose header or rows do not follow
	// the x_0..x_N,w,isForward layout.
	ErrMalformedTable = errors.New("dynamo: malformed table")
)

// SimulationError wraps an error with the position in the dataset where it occurred.
type SimulationError struct {
	Direction Direction
	Index     int
	Wrapped   error
}

func (e *SimulationError) Error() string {
	return fmt.Sprintf("%s sample %d: %v", e.Direction, e.Index, e.Wrapped)
}

func (e *SimulationError) Unwrap() error {
	return e.Wrapped
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidParameter, fmt.Sprintf(format, args...))
}
