package climate

import "errors"

// Domain errors for state transitions.
var (
	// ErrNonPositiveStep indicates a time increment that is zero, negative or not finite.
	ErrNonPositiveStep = errors.New("climate: time step must be positive and finite")

	// ErrNonFinite indicates a state field became NaN or Inf.
	ErrNonFinite = errors.New("climate: non-finite state value")
)

// FieldError names the state field that failed validation.
type FieldError struct {
	Field string
	Value float64
}

func (e *FieldError) Error() string {
	return ErrNonFinite.Error() + ": " + e.Field
}

func (e *FieldError) Unwrap() error {
	return ErrNonFinite
}
