package sim

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"testing"

	"github.com/san-kum/aftermath/internal/climate"
	"github.com/san-kum/aftermath/internal/record"
	"github.com/san-kum/aftermath/internal/scaling"
	"github.com/san-kum/aftermath/internal/scenario"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func impactConfig(t *testing.T, target scenario.Target) Config {
	t.Helper()
	c := scenario.MustDefaults(scenario.AsteroidImpact)
	cond, err := scaling.DefaultCalibration().ImpactConditions(scaling.Impact{
		DiameterKm:  12,
		DensityKgM3: 3000,
		VelocityMS:  20000,
		AngleDeg:    90,
		Target:      target,
	}, &c)
	if err != nil {
		t.Fatal(err)
	}
	cfg := DefaultConfig(scenario.AsteroidImpact)
	cfg.Conditions = cond
	return cfg
}

func eruptionConfig(t *testing.T) Config {
	t.Helper()
	c := scenario.MustDefaults(scenario.SupervolcanoEruption)
	cond, err := scaling.DefaultCalibration().EruptionConditions(scaling.Eruption{VolumeKm3: 1000, VEI: 8}, &c)
	if err != nil {
		t.Fatal(err)
	}
	cfg := DefaultConfig(scenario.SupervolcanoEruption)
	cfg.Conditions = cond
	return cfg
}

func checkBounds(t *testing.T, res *Result) {
	t.Helper()
	for i, s := range res.Snapshots {
		bio := s.Value("biodiversity_index")
		hab := s.Value("subsurface_habitat_fraction")
		ph := s.Value("ocean_ph")
		if bio < 0 || bio > 1 || hab < 0 || hab > 1 {
			t.Fatalf("snapshot %d: fraction out of range bio=%v habitat=%v", i, bio, hab)
		}
		if ph < 6 || ph > 8.5 {
			t.Fatalf("snapshot %d: pH %v out of range", i, ph)
		}
		if s.Value("co2_ppm") < 180 || s.Value("methane_ppb") < 0 {
			t.Fatalf("snapshot %d: gas below floor", i)
		}
		for _, v := range s.Values() {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				t.Fatalf("snapshot %d: non-finite value", i)
			}
		}
	}
}

func TestSimulatorContinentalImpact(t *testing.T) {
	cfg := impactConfig(t, scenario.Continental)
	res, err := New(quietLogger()).Run(context.Background(), cfg)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	checkBounds(t, res)

	if len(res.Snapshots) != res.StepsTaken+2 {
		t.Errorf("expected %d snapshots, got %d", res.StepsTaken+2, len(res.Snapshots))
	}
	if len(res.Dts) != res.StepsTaken {
		t.Errorf("expected %d dts, got %d", res.StepsTaken, len(res.Dts))
	}

	pre, post := res.Snapshots[0], res.Snapshots[1]
	if pre.Year() != post.Year() {
		t.Errorf("event snapshots should share a year: %v vs %v", pre.Year(), post.Year())
	}
	if post.Value("temp_anomaly_c") >= 0 {
		t.Errorf("expected initial cooling, got %v", post.Value("temp_anomaly_c"))
	}
	if post.Value("co2_ppm") <= pre.Value("co2_ppm") {
		t.Error("continental impact should raise CO2 at the event")
	}
	if post.Value("biodiversity_index") >= pre.Value("biodiversity_index") {
		t.Error("event should reduce biodiversity")
	}

	final := res.Final()
	if final.Year() < cfg.EndYear || final.Year() > cfg.EndYear+cfg.DtFinal+1e-9 {
		t.Errorf("unexpected final year %v", final.Year())
	}

	minBio := math.Inf(1)
	for _, s := range res.Snapshots[1:] {
		minBio = math.Min(minBio, s.Value("biodiversity_index"))
	}
	if final.Value("biodiversity_index") <= minBio {
		t.Errorf("biodiversity %v did not recover above minimum %v", final.Value("biodiversity_index"), minBio)
	}
	if res.Count(climate.PulseFired) != 1 {
		t.Errorf("expected the pulse once, got %d", res.Count(climate.PulseFired))
	}
}

func TestSimulatorOceanicImpact(t *testing.T) {
	res, err := New(quietLogger()).Run(context.Background(), impactConfig(t, scenario.Oceanic))
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	checkBounds(t, res)

	pre, post := res.Snapshots[0], res.Snapshots[1]
	if post.Value("co2_ppm") != pre.Value("co2_ppm") {
		t.Errorf("oceanic impact should add no CO2, got %v -> %v", pre.Value("co2_ppm"), post.Value("co2_ppm"))
	}
}

func TestSimulatorEruption(t *testing.T) {
	res, err := New(quietLogger()).Run(context.Background(), eruptionConfig(t))
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	checkBounds(t, res)

	if _, ok := res.Final().Get("ash_optical_depth"); !ok {
		t.Error("eruption snapshots should carry ash_optical_depth")
	}
	if res.Snapshots[1].Value("co2_ppm") <= res.Snapshots[0].Value("co2_ppm") {
		t.Error("eruption should degas CO2")
	}
}

func TestSimulatorStepsGrowMonotonically(t *testing.T) {
	cfg := eruptionConfig(t)
	res, err := New(quietLogger()).Run(context.Background(), cfg)
	if err != nil {
		t.Fatal(err)
	}

	prev := 0.0
	for i, dt := range res.Dts {
		if dt < prev {
			t.Fatalf("dt shrank at step %d: %v < %v", i, dt, prev)
		}
		if dt > cfg.DtFinal {
			t.Fatalf("dt %v above dt_final at step %d", dt, i)
		}
		prev = dt
	}
	if prev != cfg.DtFinal {
		t.Errorf("expected dt to reach %v, got %v", cfg.DtFinal, prev)
	}
}

func TestSimulatorDeterministic(t *testing.T) {
	cfg := eruptionConfig(t)
	cfg.EndYear = 500

	a, err := New(quietLogger()).Run(context.Background(), cfg)
	if err != nil {
		t.Fatal(err)
	}
	b, err := New(quietLogger()).Run(context.Background(), cfg)
	if err != nil {
		t.Fatal(err)
	}

	if len(a.Snapshots) != len(b.Snapshots) {
		t.Fatalf("length mismatch %d vs %d", len(a.Snapshots), len(b.Snapshots))
	}
	for i := range a.Snapshots {
		av, bv := a.Snapshots[i].Values(), b.Snapshots[i].Values()
		for j := range av {
			if av[j] != bv[j] {
				t.Fatalf("snapshot %d key %s differs: %v vs %v", i, a.Keys[j], av[j], bv[j])
			}
		}
	}
}

func TestSimulatorInvalidConfig(t *testing.T) {
	base := DefaultConfig(scenario.AsteroidImpact)
	volcano := scenario.MustDefaults(scenario.SupervolcanoEruption)
	broken := scenario.MustDefaults(scenario.AsteroidImpact)
	broken.Ocean.RevelleFactor = 0

	tests := []struct {
		name   string
		mutate func(c *Config)
		want   error
	}{
		{"unknown kind", func(c *Config) { c.Kind = scenario.Unknown }, ErrInvalidKind},
		{"mismatched constants", func(c *Config) { c.Constants = &volcano }, ErrInvalidKind},
		{"zero dt", func(c *Config) { c.DtInitial = 0 }, ErrNonPositiveStep},
		{"negative dt final", func(c *Config) { c.DtFinal = -1 }, ErrNonPositiveStep},
		{"NaN dt", func(c *Config) { c.DtInitial = math.NaN() }, ErrNonPositiveStep},
		{"inverted bounds", func(c *Config) { c.DtInitial = 20 }, ErrStepBounds},
		{"end before start", func(c *Config) { c.EndYear = -1 }, ErrInvalidSpan},
		{"invalid constants", func(c *Config) { c.Constants = &broken }, ErrInvalidConfig},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base
			tt.mutate(&cfg)
			res, err := New(quietLogger()).Run(context.Background(), cfg)
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
			if res != nil {
				t.Error("expected no result for a configuration error")
			}
		})
	}
}

func TestSimulatorZeroSpan(t *testing.T) {
	cfg := impactConfig(t, scenario.Continental)
	cfg.EndYear = cfg.StartYear

	res, err := New(quietLogger()).Run(context.Background(), cfg)
	if err != nil {
		t.Fatal(err)
	}
	if res.StepsTaken != 1 || len(res.Snapshots) != 3 {
		t.Errorf("expected one step past a zero span, got %d steps", res.StepsTaken)
	}
}

type countMetric struct {
	count int
	sum   float64
}

func (m *countMetric) Name() string { return "count" }
func (m *countMetric) Observe(snap record.Snapshot, ev climate.Events) {
	m.count++
	m.sum += snap.Value("biodiversity_index")
}
func (m *countMetric) Value() float64 { return float64(m.count) }
func (m *countMetric) Reset() {
	m.count = 0
	m.sum = 0
}

type stepObserver struct{ steps []int }

func (o *stepObserver) OnStep(step int, dt float64, snap record.Snapshot, ev climate.Events) {
	o.steps = append(o.steps, step)
}

func TestSimulatorMetricsAndObservers(t *testing.T) {
	cfg := impactConfig(t, scenario.Continental)
	cfg.EndYear = 50

	sim := New(quietLogger())
	metric := &countMetric{}
	obs := &stepObserver{}
	sim.AddMetric(metric)
	sim.AddObserver(obs)

	res, err := sim.Run(context.Background(), cfg)
	if err != nil {
		t.Fatal(err)
	}

	if got := res.Metrics["count"]; int(got) != len(res.Snapshots) {
		t.Errorf("expected %d observations, got %v", len(res.Snapshots), got)
	}
	if len(obs.steps) != len(res.Snapshots) || obs.steps[0] != 0 || obs.steps[1] != 1 {
		t.Errorf("unexpected observer steps %v", obs.steps[:2])
	}
}

func TestSimulatorCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := New(quietLogger()).Run(ctx, impactConfig(t, scenario.Continental))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if len(res.Snapshots) != 2 {
		t.Errorf("expected baseline and post-event snapshots, got %d", len(res.Snapshots))
	}
}

func TestSimulatorStepLimit(t *testing.T) {
	cfg := impactConfig(t, scenario.Continental)
	cfg.MaxSteps = 25

	res, err := New(quietLogger()).Run(context.Background(), cfg)
	if !errors.Is(err, ErrStepLimit) {
		t.Fatalf("expected ErrStepLimit, got %v", err)
	}
	if res.StepsTaken != 25 {
		t.Errorf("expected 25 steps, got %d", res.StepsTaken)
	}
}

func TestStepErrorUnwrap(t *testing.T) {
	err := &StepError{Step: 3, Year: 1.5, Err: climate.ErrNonFinite}
	if !errors.Is(err, climate.ErrNonFinite) {
		t.Error("StepError should unwrap to the step defect")
	}
}

func TestSchedule(t *testing.T) {
	s := NewSchedule(0.01, 10)

	for _, el := range []float64{0, 5, 10} {
		if dt := s.Next(el); dt != 0.01 {
			t.Errorf("elapsed %v: expected 0.01 during the first decade, got %v", el, dt)
		}
	}

	prev := s.Current()
	for el := 10.5; el < 100; el += 0.5 {
		dt := s.Next(el)
		if dt < prev || dt > 1.0 {
			t.Fatalf("elapsed %v: dt %v outside [%v, 1]", el, dt, prev)
		}
		prev = dt
	}

	for el := 101.0; el < 2000; el += prev {
		dt := s.Next(el)
		if dt < prev || dt > 10 {
			t.Fatalf("elapsed %v: dt %v outside [%v, 10]", el, dt, prev)
		}
		prev = dt
	}
	if prev != 10 {
		t.Errorf("expected dt_final, got %v", prev)
	}
}

func TestScheduleNeverShrinksLargeInitial(t *testing.T) {
	s := NewSchedule(2, 5)
	for _, el := range []float64{0, 20, 50, 200} {
		if dt := s.Next(el); dt < 2 {
			t.Errorf("elapsed %v: dt shrank to %v", el, dt)
		}
	}
}
