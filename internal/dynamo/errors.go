package dynamo

import (
	"errors"
	"fmt"
)

// Configuration errors are raised while a scenario is assembled, before
// any integration happens.
var (
	ErrConfiguration = errors.New("dynamo: invalid configuration")

	// ErrValidation indicates a physically meaningless value such as a
	// non-positive mass or a zero-length quaternion.
	ErrValidation = fmt.Errorf("%w: invalid value", ErrConfiguration)

	ErrDuplicateName = fmt.Errorf("%w: duplicate name", ErrConfiguration)

	ErrNotFound = fmt.Errorf("%w: not found", ErrConfiguration)

	ErrUnsupportedJoint = fmt.Errorf("%w: unsupported joint type", ErrConfiguration)

	// ErrNotSetup indicates membership changed since the last Setup call.
	ErrNotSetup = fmt.Errorf("%w: system not set up", ErrConfiguration)
)

// Runtime errors.
var (
	// ErrInvalidState indicates a state vector with NaN or Inf entries.
	ErrInvalidState = errors.New("dynamo: invalid state (NaN or Inf detected)")

	// ErrUnstable indicates a numerical kernel failed to converge.
	ErrUnstable = errors.New("dynamo: simulation unstable (factorization failed)")
)

// SimulationError wraps an error with simulation context.
type SimulationError struct {
	Step    int
	Time    float64
	Wrapped error
}

func (e *SimulationError) Error() string {
	return fmt.Sprintf("step %d (t=%.6g): %v", e.Step, e.Time, e.Wrapped)
}

func (e *SimulationError) Unwrap() error {
	return e.Wrapped
}
