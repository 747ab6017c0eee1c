package analysis

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"strings"
	"testing"

	"github.com/san-kum/aftermath/internal/metrics"
	"github.com/san-kum/aftermath/internal/record"
	"github.com/san-kum/aftermath/internal/scaling"
	"github.com/san-kum/aftermath/internal/scenario"
	"github.com/san-kum/aftermath/internal/sim"
)

func fakeResult(t *testing.T, years, temps []float64) *sim.Result {
	t.Helper()
	res := &sim.Result{Keys: []string{"year", "temp_anomaly_c"}, Metrics: map[string]float64{}}
	for i := range years {
		s, err := record.NewSnapshot(res.Keys, []float64{years[i], temps[i]})
		if err != nil {
			t.Fatal(err)
		}
		res.Snapshots = append(res.Snapshots, s)
	}
	return res
}

func TestBands(t *testing.T) {
	years := []float64{0, 0, 1, 2}
	runs := []*sim.Result{
		fakeResult(t, years, []float64{0, -10, -8, -4}),
		fakeResult(t, years, []float64{0, -10, -6, -2}),
		fakeResult(t, years, []float64{0, -10, -7, -3}),
	}

	bands, err := Bands(runs, "temp_anomaly_c")
	if err != nil {
		t.Fatal(err)
	}
	if len(bands) != 4 {
		t.Fatalf("expected 4 bands, got %d", len(bands))
	}

	b := bands[2]
	if b.Year != 1 || b.Mean != -7 || b.Min != -8 || b.Max != -6 || b.Median != -7 {
		t.Errorf("unexpected band %+v", b)
	}
	if math.Abs(b.StdDev-1) > 1e-12 {
		t.Errorf("expected std dev 1, got %v", b.StdDev)
	}
	if bands[1].StdDev != 0 {
		t.Errorf("identical values should have zero spread, got %v", bands[1].StdDev)
	}
}

func TestBandsErrors(t *testing.T) {
	if _, err := Bands(nil, "x"); !errors.Is(err, ErrNoResults) {
		t.Errorf("expected ErrNoResults, got %v", err)
	}

	a := fakeResult(t, []float64{0, 1}, []float64{0, 1})
	b := fakeResult(t, []float64{0, 1, 2}, []float64{0, 1, 2})
	if _, err := Bands([]*sim.Result{a, b}, "temp_anomaly_c"); !errors.Is(err, ErrMisaligned) {
		t.Errorf("expected ErrMisaligned, got %v", err)
	}
	if _, err := Bands([]*sim.Result{a}, "co2_ppm"); !errors.Is(err, ErrUnknownKey) {
		t.Errorf("expected ErrUnknownKey, got %v", err)
	}
}

func TestSummarizeMetrics(t *testing.T) {
	a := &sim.Result{Metrics: map[string]float64{"aftershocks": 2, "only_a": 1}}
	b := &sim.Result{Metrics: map[string]float64{"aftershocks": 4}}

	got := SummarizeMetrics([]*sim.Result{a, b})
	if len(got) != 1 || got[0].Name != "aftershocks" || got[0].Mean != 3 {
		t.Errorf("unexpected summary %+v", got)
	}
}

func TestCrossings(t *testing.T) {
	res := fakeResult(t,
		[]float64{0, 0, 1, 2, 3, 4},
		[]float64{0, -10, -4, 2, 4, -1},
	)

	got, err := Crossings(res, "temp_anomaly_c", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 crossings, got %v", got)
	}
	if !got[0].Rising || math.Abs(got[0].Year-(1+4.0/6.0)) > 1e-12 {
		t.Errorf("unexpected rising crossing %+v", got[0])
	}
	if got[1].Rising || math.Abs(got[1].Year-3.8) > 1e-12 {
		t.Errorf("unexpected falling crossing %+v", got[1])
	}
}

func TestPhasePortrait(t *testing.T) {
	res := fakeResult(t, []float64{0, 0, 1, 2}, []float64{0, -10, -5, 1})

	p, err := PhasePortrait(res, "year", "temp_anomaly_c")
	if err != nil {
		t.Fatal(err)
	}
	if len(p.Points) != 3 {
		t.Errorf("baseline should be skipped, got %d points", len(p.Points))
	}

	art := PhasePortraitToASCII(p, 20, 8)
	if strings.Count(art, "\n") != 8 || !strings.Contains(art, "•") {
		t.Errorf("unexpected ascii output:\n%s", art)
	}

	if _, err := PhasePortrait(res, "year", "nope"); !errors.Is(err, ErrUnknownKey) {
		t.Errorf("expected ErrUnknownKey, got %v", err)
	}
}

func TestSweepImpactDiameter(t *testing.T) {
	c := scenario.MustDefaults(scenario.AsteroidImpact)
	cal := scaling.DefaultCalibration()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	spec := SweepSpec{
		Min:    1,
		Max:    10,
		Steps:  3,
		Metric: "peak_cooling_c",
		Build: func(d float64) (sim.Config, error) {
			cond, err := cal.ImpactConditions(scaling.Impact{DiameterKm: d, DensityKgM3: 3000, VelocityMS: 2e4, AngleDeg: 90}, &c)
			if err != nil {
				return sim.Config{}, err
			}
			cfg := sim.DefaultConfig(scenario.AsteroidImpact)
			cfg.EndYear = 20
			cfg.Conditions = cond
			return cfg, nil
		},
		NewSimulator: func() *sim.Simulator {
			s := sim.New(logger)
			metrics.Attach(s, scenario.AsteroidImpact)
			return s
		},
	}

	points, err := Sweep(context.Background(), spec)
	if err != nil {
		t.Fatal(err)
	}
	if len(points) != 3 || points[0].Param != 1 || points[2].Param != 10 {
		t.Fatalf("unexpected sweep %+v", points)
	}
	if points[2].Value >= points[0].Value {
		t.Errorf("larger impactor should cool more: %v vs %v", points[2].Value, points[0].Value)
	}
	if SweepToASCII(points, 10, 5) == "" {
		t.Error("expected ascii output")
	}
}

func TestParseGridAxis(t *testing.T) {
	a, err := ParseGridAxis("diameter=1:9:5")
	if err != nil {
		t.Fatal(err)
	}
	if a.Name != "diameter" || len(a.Values) != 5 || a.Values[4] != 9 {
		t.Errorf("unexpected axis %+v", a)
	}

	a, err = ParseGridAxis("vei=6, 7,8")
	if err != nil {
		t.Fatal(err)
	}
	if len(a.Values) != 3 || a.Values[1] != 7 {
		t.Errorf("unexpected axis %+v", a)
	}

	for _, bad := range []string{"diameter", "=1,2", "d=1:x:3", "d=a,b"} {
		if _, err := ParseGridAxis(bad); err == nil {
			t.Errorf("%q: expected error", bad)
		}
	}
}

func TestGridSearch(t *testing.T) {
	c := scenario.MustDefaults(scenario.AsteroidImpact)
	cal := scaling.DefaultCalibration()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	spec := GridSpec{
		Axes: []GridAxis{
			{Name: "diameter", Values: []float64{2, 10}},
			{Name: "velocity", Values: []float64{1.5e4, 2.5e4}},
		},
		Metric: "peak_cooling_c",
		Build: func(p map[string]float64) (sim.Config, error) {
			cond, err := cal.ImpactConditions(scaling.Impact{
				DiameterKm: p["diameter"], DensityKgM3: 3000, VelocityMS: p["velocity"], AngleDeg: 90,
			}, &c)
			if err != nil {
				return sim.Config{}, err
			}
			cfg := sim.DefaultConfig(scenario.AsteroidImpact)
			cfg.EndYear = 10
			cfg.Conditions = cond
			return cfg, nil
		},
		NewSimulator: func() *sim.Simulator {
			s := sim.New(logger)
			metrics.Attach(s, scenario.AsteroidImpact)
			return s
		},
		Parallelism: 2,
	}

	if n := len(spec.Points()); n != 4 {
		t.Fatalf("expected 4 grid points, got %d", n)
	}

	best, points, err := GridSearch(context.Background(), spec)
	if err != nil {
		t.Fatal(err)
	}
	if len(points) != 4 {
		t.Fatalf("expected 4 evaluated points, got %d", len(points))
	}
	if points[0].Params["diameter"] != 2 || points[1].Params["velocity"] != 2.5e4 {
		t.Errorf("points out of order: %+v", points)
	}
	// cooling is negative, so the minimum comes from the larger impactor
	if best.Params["diameter"] != 10 {
		t.Errorf("unexpected best point %+v", best)
	}
	for _, p := range points {
		if p.Value < best.Value {
			t.Errorf("point %+v beats best %+v", p, best)
		}
	}

	if _, _, err := GridSearch(context.Background(), GridSpec{}); !errors.Is(err, ErrEmptyGrid) {
		t.Errorf("expected ErrEmptyGrid, got %v", err)
	}
}
