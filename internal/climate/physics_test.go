package climate

import (
	"math"
	"testing"

	"github.com/san-kum/aftermath/internal/scenario"
)

func TestWeatheringClampAtExtremeHeat(t *testing.T) {
	w := scenario.MustDefaults(scenario.AsteroidImpact).Weathering

	tests := []struct {
		name  string
		tempK float64
	}{
		{"baseline", 288.15},
		{"plus 500C", 288.15 + 500},
		{"plus 1e6C", 1e6},
	}

	limit := w.BaseGtCPerYear * math.Exp(w.MaxExponent)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := WeatheringRate(w, tt.tempK, 600)
			if math.IsNaN(r) || math.IsInf(r, 0) {
				t.Fatalf("rate not finite: %v", r)
			}
			if r > limit {
				t.Errorf("rate %g exceeds clamp bound %g", r, limit)
			}
		})
	}
}

func TestWeatheringZeroCO2(t *testing.T) {
	w := scenario.MustDefaults(scenario.SupervolcanoEruption).Weathering
	if r := WeatheringRate(w, 300, -5); r != 0 {
		t.Errorf("expected zero drawdown for non-positive CO2, got %g", r)
	}
}

func TestCarbonatePHBounds(t *testing.T) {
	o := scenario.MustDefaults(scenario.AsteroidImpact).Ocean

	tests := []struct {
		name string
		dic, alk float64
	}{
		{"baseline", 2.3e-3, 2.4e-3},
		{"zero dic", 0, 2.4e-3},
		{"zero alk", 2.3e-3, 0},
		{"negative both", -1, -1},
		{"huge dic", 1e6, 1e-9},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ph := CarbonatePH(o, tt.dic, tt.alk)
			if ph < PHMin || ph > PHMax || math.IsNaN(ph) {
				t.Errorf("pH %v outside [%v, %v]", ph, PHMin, PHMax)
			}
		})
	}
}

func TestOpticalDepth(t *testing.T) {
	a := scenario.MustDefaults(scenario.AsteroidImpact).Aerosol
	if tau := OpticalDepth(a, 0); tau != 0 {
		t.Errorf("expected zero tau for no dust, got %g", tau)
	}
	if tau := OpticalDepth(a, -1e12); tau != 0 {
		t.Errorf("expected zero tau for negative mass, got %g", tau)
	}

	area := 2 * math.Pi * EarthRadiusM * EarthRadiusM
	got := OpticalDepth(a, area)
	if math.Abs(got-a.ExtinctionM2PerKg) > 1e-9 {
		t.Errorf("expected tau %g, got %g", a.ExtinctionM2PerKg, got)
	}
	if DustCooling(a, got) >= 0 {
		t.Error("dust cooling should be negative for positive tau")
	}
}

func TestGreenhouseBaselineIsNeutral(t *testing.T) {
	c := scenario.MustDefaults(scenario.AsteroidImpact)
	if g := GreenhouseWarming(&c, c.Baseline.CO2ppm, c.Baseline.CH4ppb); math.Abs(g) > 1e-12 {
		t.Errorf("expected zero warming at baseline, got %g", g)
	}
	if g := GreenhouseWarming(&c, 2*c.Baseline.CO2ppm, c.Baseline.CH4ppb); g <= 0 {
		t.Errorf("doubling CO2 should warm, got %g", g)
	}
}

func TestOmoriIntensity(t *testing.T) {
	s := scenario.MustDefaults(scenario.SupervolcanoEruption).Seismic
	if i := OmoriIntensity(s, 0); i != 1 {
		t.Errorf("expected intensity 1 at the event, got %g", i)
	}
	if i := OmoriIntensity(s, -3); i != 1 {
		t.Errorf("expected pre-event elapsed to clamp to 1, got %g", i)
	}
	prev := 1.0
	for _, el := range []float64{0.1, 1, 10, 100, 1000} {
		i := OmoriIntensity(s, el)
		if i >= prev {
			t.Errorf("intensity not decreasing at %g: %g >= %g", el, i, prev)
		}
		prev = i
	}
}

func TestAftershockProbabilityInUnitInterval(t *testing.T) {
	s := scenario.MustDefaults(scenario.AsteroidImpact).Seismic
	for _, dt := range []float64{0.01, 1, 10, 1e6} {
		p := AftershockProbability(s, 1, dt)
		if p < 0 || p > 1 {
			t.Errorf("dt=%g: probability %g out of range", dt, p)
		}
	}
	if p := AftershockProbability(s, 0, 10); p != 0 {
		t.Errorf("expected zero probability at zero intensity, got %g", p)
	}
}

func TestKillFraction(t *testing.T) {
	b := scenario.MustDefaults(scenario.AsteroidImpact).Biosphere
	if k := KillFraction(b, 0); k != 0 {
		t.Errorf("expected no kill at zero magnitude, got %g", k)
	}
	if k := KillFraction(b, 1e9); k > 1 || k < 0.99 {
		t.Errorf("expected saturation near 1, got %g", k)
	}
}

func TestMagnetosphereFloor(t *testing.T) {
	m := scenario.MustDefaults(scenario.AsteroidImpact).Magnetosphere
	if got := MagnetosphereDisruption(m, 1e12); got != m.Floor {
		t.Errorf("expected floor %g, got %g", m.Floor, got)
	}
	if got := MagnetosphereDisruption(m, 0); got != 1 {
		t.Errorf("expected full strength, got %g", got)
	}
}

func TestSurvivalStressFactors(t *testing.T) {
	c := scenario.MustDefaults(scenario.SupervolcanoEruption)

	if s := Survival(&c, 0, 8.2, 0); math.Abs(s-1) > 1e-12 {
		t.Errorf("expected full survival at baseline, got %g", s)
	}
	if s := Survival(&c, 0, 6.0, 0); s != 0 {
		t.Errorf("expected zero survival below the pH ramp, got %g", s)
	}
	if s := Survival(&c, 12, 8.2, 0); s >= 1 {
		t.Errorf("expected heat stress above threshold, got %g", s)
	}
	if s := Survival(&c, 0, 8.2, 5); s >= 1 {
		t.Errorf("expected ash stress for eruption, got %g", s)
	}

	a := scenario.MustDefaults(scenario.AsteroidImpact)
	if s := Survival(&a, 0, 8.2, 5); math.Abs(s-1) > 1e-12 {
		t.Errorf("impact scenario should carry no ash stress, got %g", s)
	}
}

func TestPPBPerGtCMethane(t *testing.T) {
	if PPBPerGtCMethane < 460 || PPBPerGtCMethane > 475 {
		t.Errorf("unexpected GtC to ppb factor %g", PPBPerGtCMethane)
	}
}

func TestValidateReportsField(t *testing.T) {
	c := scenario.MustDefaults(scenario.AsteroidImpact)
	s := NewBaseline(&c, 0, Conditions{FineKg: 1e15, CoarseKg: 1e15})
	if err := s.Validate(); err != nil {
		t.Fatalf("baseline invalid: %v", err)
	}

	s.OceanPH = math.NaN()
	err := s.Validate()
	fe, ok := err.(*FieldError)
	if !ok {
		t.Fatalf("expected *FieldError, got %T", err)
	}
	if fe.Field != "ocean_ph" {
		t.Errorf("expected ocean_ph, got %s", fe.Field)
	}
}

func TestMethaneDecaysExponentially(t *testing.T) {
	for _, kind := range []scenario.Kind{scenario.AsteroidImpact, scenario.SupervolcanoEruption} {
		t.Run(kind.String(), func(t *testing.T) {
			c := scenario.MustDefaults(kind)
			s := NewBaseline(&c, 0, Conditions{})
			s.CH4ppb = 1000

			if _, err := Step(s, &c, 1, nil); err != nil {
				t.Fatal(err)
			}
			want := 1000 * math.Exp(-1/c.Methane.LifetimeYears)
			if math.Abs(s.CH4ppb-want) > 1e-9 {
				t.Errorf("expected %v ppb after one year, got %v", want, s.CH4ppb)
			}

			for i := 0; i < 200; i++ {
				if _, err := Step(s, &c, 1, nil); err != nil {
					t.Fatal(err)
				}
			}
			if s.CH4ppb > 1e-3 {
				t.Errorf("methane should decay toward zero, got %v", s.CH4ppb)
			}
		})
	}
}

func TestMethaneEquilibriumIsTunable(t *testing.T) {
	c := scenario.MustDefaults(scenario.AsteroidImpact)
	c.Methane.EquilibriumPPB = 700
	s := NewBaseline(&c, 0, Conditions{})
	s.CH4ppb = 1000

	if _, err := Step(s, &c, 1, nil); err != nil {
		t.Fatal(err)
	}
	want := 700 + 300*math.Exp(-1/c.Methane.LifetimeYears)
	if math.Abs(s.CH4ppb-want) > 1e-9 {
		t.Errorf("expected %v ppb, got %v", want, s.CH4ppb)
	}
}

func TestAshFluxStopsAtMixingWindow(t *testing.T) {
	c := scenario.MustDefaults(scenario.SupervolcanoEruption)
	noAsh := c
	noAsh.Ocean.AshMixingRate = 0

	dicAfter := func(c *scenario.Constants, start float64) float64 {
		s := NewBaseline(c, 0, Conditions{})
		s.Time = start
		if _, err := Step(s, c, 0.5, nil); err != nil {
			t.Fatal(err)
		}
		return s.OceanDIC
	}

	if with, without := dicAfter(&c, 0.25), dicAfter(&noAsh, 0.25); with <= without {
		t.Errorf("expected ash DIC inside the window: %v vs %v", with, without)
	}
	// the step ending exactly at the window edge gets no flux
	if with, without := dicAfter(&c, 0.5), dicAfter(&noAsh, 0.5); with != without {
		t.Errorf("expected no ash DIC at the window edge: %v vs %v", with, without)
	}
}

func TestRelaxMatchesEulerForSmallSteps(t *testing.T) {
	if got, euler := relax(0, -10, 1e-4, 2), -10*1e-4/2; math.Abs(got-euler) > 1e-8 {
		t.Errorf("expected %v to first order, got %v", euler, got)
	}
	if got := relax(0, -10, 50, 2); got < -10 || got > 0 {
		t.Errorf("large steps must not overshoot the target, got %v", got)
	}
}
