package scenario

import "errors"

var (
	// ErrUnknownKind indicates an event kind outside AsteroidImpact and SupervolcanoEruption.
	ErrUnknownKind = errors.New("scenario: unknown event kind")

	// ErrUnknownTarget indicates an impact target other than continental or oceanic.
	ErrUnknownTarget = errors.New("scenario: unknown impact target")

	// ErrInvalidConstants wraps field validation failures of a Constants value.
	ErrInvalidConstants = errors.New("scenario: invalid constants")
)
