package scenario

import (
	"fmt"
	"strings"
)

// Kind selects the forcing event a run models.
type Kind int

const (
	Unknown Kind = iota
	AsteroidImpact
	SupervolcanoEruption
)

func (k Kind) String() string {
	switch k {
	case AsteroidImpact:
		return "asteroid"
	case SupervolcanoEruption:
		return "supervolcano"
	default:
		return "unknown"
	}
}

// ParticulateName is the snapshot prefix for the optical depth column.
func (k Kind) ParticulateName() string {
	if k == SupervolcanoEruption {
		return "ash"
	}
	return "dust"
}

func (k Kind) Valid() bool {
	return k == AsteroidImpact || k == SupervolcanoEruption
}

// ParseKind accepts the CLI and config spellings of a kind.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "asteroid", "impact", "asteroid-impact", "asteroid_impact":
		return AsteroidImpact, nil
	case "supervolcano", "volcano", "eruption", "supervolcano-eruption", "supervolcano_eruption":
		return SupervolcanoEruption, nil
	default:
		return Unknown, fmt.Errorf("%w: %q", ErrUnknownKind, s)
	}
}

func (k Kind) MarshalText() ([]byte, error) {
	if !k.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownKind, int(k))
	}
	return []byte(k.String()), nil
}

func (k *Kind) UnmarshalText(b []byte) error {
	parsed, err := ParseKind(string(b))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Target is the surface an impactor strikes. Eruptions ignore it.
type Target int

const (
	Continental Target = iota
	Oceanic
)

func (t Target) String() string {
	if t == Oceanic {
		return "oceanic"
	}
	return "continental"
}

func ParseTarget(s string) (Target, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "continental", "land":
		return Continental, nil
	case "oceanic", "ocean", "sea":
		return Oceanic, nil
	default:
		return Continental, fmt.Errorf("%w: %q", ErrUnknownTarget, s)
	}
}

func (t Target) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

func (t *Target) UnmarshalText(b []byte) error {
	parsed, err := ParseTarget(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}
