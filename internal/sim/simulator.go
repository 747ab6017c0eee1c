package sim

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"time"

	"github.com/san-kum/aftermath/internal/climate"
	"github.com/san-kum/aftermath/internal/record"
	"github.com/san-kum/aftermath/internal/scenario"
)

type Simulator struct {
	logger    *slog.Logger
	metrics   []Metric
	observers []Observer
}

// New returns a simulator logging to logger, or slog.Default when nil.
func New(logger *slog.Logger) *Simulator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Simulator{
		logger:    logger,
		metrics:   make([]Metric, 0),
		observers: make([]Observer, 0),
	}
}

func (s *Simulator) AddMetric(m Metric)     { s.metrics = append(s.metrics, m) }
func (s *Simulator) AddObserver(o Observer) { s.observers = append(s.observers, o) }

// constants resolves the constants a config will run with.
func (cfg Config) constants() (scenario.Constants, error) {
	if !cfg.Kind.Valid() {
		return scenario.Constants{}, fmt.Errorf("%w: %d", ErrInvalidKind, int(cfg.Kind))
	}
	var c scenario.Constants
	if cfg.Constants != nil {
		c = *cfg.Constants
		if c.Kind != cfg.Kind {
			return c, fmt.Errorf("%w: constants for %s, run for %s", ErrInvalidKind, c.Kind, cfg.Kind)
		}
	} else {
		c = scenario.MustDefaults(cfg.Kind)
	}
	if err := c.Validate(); err != nil {
		return c, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return c, nil
}

// Validate checks a config without running it.
func (cfg Config) Validate() error {
	_, err := cfg.validate()
	return err
}

func (cfg Config) validate() (scenario.Constants, error) {
	c, err := cfg.constants()
	if err != nil {
		return c, err
	}
	if !(cfg.DtInitial > 0) || !(cfg.DtFinal > 0) || math.IsInf(cfg.DtFinal, 0) {
		return c, fmt.Errorf("%w: dt_initial=%g dt_final=%g", ErrNonPositiveStep, cfg.DtInitial, cfg.DtFinal)
	}
	if cfg.DtInitial > cfg.DtFinal {
		return c, fmt.Errorf("%w: %g > %g", ErrStepBounds, cfg.DtInitial, cfg.DtFinal)
	}
	if math.IsNaN(cfg.StartYear) || math.IsNaN(cfg.EndYear) ||
		math.IsInf(cfg.StartYear, 0) || math.IsInf(cfg.EndYear, 0) || cfg.EndYear < cfg.StartYear {
		return c, fmt.Errorf("%w: %g to %g", ErrInvalidSpan, cfg.StartYear, cfg.EndYear)
	}
	if cfg.MaxSteps < 0 {
		return c, fmt.Errorf("%w: max steps %d", ErrInvalidConfig, cfg.MaxSteps)
	}
	return c, nil
}

// Run records the baseline, applies the event, then steps until the state
// passes cfg.EndYear. On a step defect the partial result is returned with a
// *StepError.
func (s *Simulator) Run(ctx context.Context, cfg Config) (*Result, error) {
	c, err := cfg.validate()
	if err != nil {
		return nil, err
	}

	began := time.Now()
	log := s.logger.With("kind", cfg.Kind.String(), "seed", cfg.Seed)

	rec := record.NewRecorder(cfg.Kind)
	result := &Result{
		Kind:       cfg.Kind,
		Seed:       cfg.Seed,
		Conditions: cfg.Conditions,
		Keys:       rec.Keys(),
		Dts:        make([]float64, 0),
		Events:     make([]EventRecord, 0),
		Metrics:    make(map[string]float64),
	}

	for _, m := range s.metrics {
		m.Reset()
	}

	rng := rand.New(rand.NewSource(cfg.Seed))
	state := climate.NewBaseline(&c, cfg.StartYear, cfg.Conditions)

	log.Info("forcing event",
		"energy_j", cfg.Conditions.EnergyJ,
		"energy_gt", cfg.Conditions.EnergyGT,
		"structure_km", cfg.Conditions.StructureKm,
		"particulate_kg", cfg.Conditions.ParticulateKg,
		"initial_tau", cfg.Conditions.InitialTau,
	)

	s.record(rec, state, &c, 0, 0, 0)
	climate.ApplyEvent(state, &c, cfg.Conditions)
	s.record(rec, state, &c, 1, 0, 0)

	sched := NewSchedule(cfg.DtInitial, cfg.DtFinal)
	step := 1
	for state.Time <= cfg.EndYear {
		select {
		case <-ctx.Done():
			result.finish(rec, s.metrics, began)
			return result, ctx.Err()
		default:
		}

		if cfg.MaxSteps > 0 && result.StepsTaken >= cfg.MaxSteps {
			result.finish(rec, s.metrics, began)
			return result, fmt.Errorf("%w: %d steps at year %.4f", ErrStepLimit, cfg.MaxSteps, state.Time)
		}

		dt := sched.Next(state.Elapsed())
		ev, err := climate.Step(state, &c, dt, rng)
		if err != nil {
			result.finish(rec, s.metrics, began)
			log.Error("step failed", "step", step, "year", state.Time, "error", err)
			return result, &StepError{Step: step, Year: state.Time, Err: err}
		}

		step++
		result.StepsTaken++
		result.Dts = append(result.Dts, dt)
		if ev != 0 {
			result.Events = append(result.Events, EventRecord{Step: step, Year: state.Time, Events: ev})
			log.Debug("step event", "step", step, "year", state.Time, "events", ev.String())
		}

		s.record(rec, state, &c, step, dt, ev)
	}

	result.finish(rec, s.metrics, began)
	log.Info("run complete",
		"steps", result.StepsTaken,
		"final_year", state.Time,
		"aftershocks", result.Count(climate.Aftershock),
		"wall", result.Wall,
	)
	return result, nil
}

func (s *Simulator) record(rec *record.Recorder, state *climate.State, c *scenario.Constants, step int, dt float64, ev climate.Events) {
	snap := rec.Capture(state, c)
	for _, m := range s.metrics {
		m.Observe(snap, ev)
	}
	for _, obs := range s.observers {
		obs.OnStep(step, dt, snap, ev)
	}
}

func (r *Result) finish(rec *record.Recorder, metrics []Metric, began time.Time) {
	r.Snapshots = rec.Snapshots()
	for _, m := range metrics {
		r.Metrics[m.Name()] = m.Value()
	}
	r.Wall = time.Since(began)
}
