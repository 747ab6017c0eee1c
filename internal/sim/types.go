package sim

import (
	"time"

	"github.com/san-kum/aftermath/internal/climate"
	"github.com/san-kum/aftermath/internal/record"
	"github.com/san-kum/aftermath/internal/scenario"
)

// Metric accumulates a scalar over the recorded snapshots of a run.
type Metric interface {
	Name() string
	Observe(snap record.Snapshot, ev climate.Events)
	Value() float64
	Reset()
}

// Observer is notified after every recorded snapshot. Step 0 is the
// baseline, step 1 the post-event state. Observers shared across an
// ensemble must be safe for concurrent use.
type Observer interface {
	OnStep(step int, dt float64, snap record.Snapshot, ev climate.Events)
}

// Config is one run.
type Config struct {
	Kind scenario.Kind
	// Constants overrides scenario.Defaults(Kind) when set.
	Constants  *scenario.Constants
	Conditions climate.Conditions

	StartYear float64
	EndYear   float64
	DtInitial float64
	DtFinal   float64
	Seed      int64

	// MaxSteps bounds the loop; zero means unbounded.
	MaxSteps int
}

// DefaultConfig is the reference 0 to 10000 year run.
func DefaultConfig(kind scenario.Kind) Config {
	return Config{
		Kind:      kind,
		StartYear: 0,
		EndYear:   10000,
		DtInitial: 0.01,
		DtFinal:   10,
		Seed:      42,
	}
}

// EventRecord marks a step on which something happened.
type EventRecord struct {
	Step   int            `json:"step"`
	Year   float64        `json:"year"`
	Events climate.Events `json:"events"`
}

type Result struct {
	Kind       scenario.Kind
	Seed       int64
	Conditions climate.Conditions
	Keys       []string
	Snapshots  []record.Snapshot
	Dts        []float64
	Events     []EventRecord
	StepsTaken int
	Metrics    map[string]float64
	Wall       time.Duration
}

// Final returns the last snapshot.
func (r *Result) Final() record.Snapshot {
	if len(r.Snapshots) == 0 {
		return record.Snapshot{}
	}
	return r.Snapshots[len(r.Snapshots)-1]
}

// Series extracts one key across all snapshots.
func (r *Result) Series(key string) []float64 {
	out := make([]float64, len(r.Snapshots))
	for i, s := range r.Snapshots {
		out[i] = s.Value(key)
	}
	return out
}

// Count returns how many steps raised f.
func (r *Result) Count(f climate.Events) int {
	n := 0
	for _, e := range r.Events {
		if e.Events.Has(f) {
			n++
		}
	}
	return n
}
