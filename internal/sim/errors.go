package sim

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidState  = errors.New("sim: invalid state (NaN or Inf detected)")
	ErrInvalidConfig = errors.New("sim: invalid run configuration")
	ErrCanceled      = errors.New("sim: run canceled by context")
)

// SimulationError wraps a failure with the step it happened on.
type SimulationError struct {
	Step    int
	Time    float64
	Wrapped error
}

func (e *SimulationError) Error() string {
	return fmt.Sprintf("step %d (t=%.4f): %v", e.Step, e.Time, e.Wrapped)
}

func (e *SimulationError) Unwrap() error {
	return e.Wrapped
}
