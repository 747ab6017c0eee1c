package sim

import (
	"errors"
	"fmt"
)

// Configuration errors, reported before any stepping.
var (
	// ErrInvalidKind indicates an unknown event kind or constants for a different kind.
	ErrInvalidKind = errors.New("sim: invalid event kind")

	// ErrNonPositiveStep indicates a non-positive or non-finite time step bound.
	ErrNonPositiveStep = errors.New("sim: time step bounds must be positive")

	// ErrStepBounds indicates dt_initial above dt_final.
	ErrStepBounds = errors.New("sim: initial time step exceeds final time step")

	// ErrInvalidSpan indicates end_year before start_year or a non-finite year.
	ErrInvalidSpan = errors.New("sim: end year precedes start year")

	// ErrInvalidConfig wraps a constants validation failure.
	ErrInvalidConfig = errors.New("sim: invalid configuration")

	// ErrStepLimit indicates the run needed more steps than Config.MaxSteps.
	ErrStepLimit = errors.New("sim: step limit exceeded")
)

// StepError wraps a defect raised by the step integrator with its position.
type StepError struct {
	Step int
	Year float64
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("sim: step %d at year %.4f: %v", e.Step, e.Year, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}
