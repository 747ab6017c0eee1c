package scenario

import (
	"errors"
	"testing"
)

func TestDefaultsValidate(t *testing.T) {
	for _, kind := range []Kind{AsteroidImpact, SupervolcanoEruption} {
		c, err := Defaults(kind)
		if err != nil {
			t.Fatalf("%s: %v", kind, err)
		}
		if c.Kind != kind {
			t.Errorf("expected kind %s, got %s", kind, c.Kind)
		}
		if err := c.Validate(); err != nil {
			t.Errorf("%s defaults invalid: %v", kind, err)
		}
	}
}

func TestDefaultsUnknownKind(t *testing.T) {
	if _, err := Defaults(Unknown); !errors.Is(err, ErrUnknownKind) {
		t.Errorf("expected ErrUnknownKind, got %v", err)
	}
}

func TestDefaultsAreIndependentCopies(t *testing.T) {
	a := MustDefaults(AsteroidImpact)
	a.Aerosol.FineFallout = 99

	b := MustDefaults(AsteroidImpact)
	if b.Aerosol.FineFallout == 99 {
		t.Error("mutating one Constants value leaked into another")
	}
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name string
		mutate func(c *Constants)
	}{
		{"unknown kind", func(c *Constants) { c.Kind = Unknown }},
		{"zero baseline co2", func(c *Constants) { c.Baseline.CO2ppm = 0 }},
		{"fine fraction above one", func(c *Constants) { c.Aerosol.FineFraction = 1.5 }},
		{"inverted ratio clamp", func(c *Constants) { c.Ocean.RatioMax = c.Ocean.RatioMin }},
		{"inverted ph ramp", func(c *Constants) { c.Biosphere.PHHigh = c.Biosphere.PHLow - 1 }},
		{"exponent cap overflows", func(c *Constants) { c.Weathering.MaxExponent = 800 }},
		{"negative damage", func(c *Constants) { c.Seismic.Damage = -0.1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := MustDefaults(SupervolcanoEruption)
			tt.mutate(&c)
			if err := c.Validate(); !errors.Is(err, ErrInvalidConstants) {
				t.Errorf("expected ErrInvalidConstants, got %v", err)
			}
		})
	}
}

func TestParseKind(t *testing.T) {
	tests := []struct {
		in   string
		want Kind
		ok   bool
	}{
		{"asteroid", AsteroidImpact, true},
		{"Impact", AsteroidImpact, true},
		{"supervolcano", SupervolcanoEruption, true},
		{" eruption ", SupervolcanoEruption, true},
		{"comet", Unknown, false},
	}

	for _, tt := range tests {
		got, err := ParseKind(tt.in)
		if (err == nil) != tt.ok {
			t.Errorf("ParseKind(%q) err = %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("ParseKind(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestKindTextRoundTrip(t *testing.T) {
	var k Kind
	if err := k.UnmarshalText([]byte("volcano")); err != nil {
		t.Fatal(err)
	}
	b, err := k.MarshalText()
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != "supervolcano" {
		t.Errorf("expected supervolcano, got %s", b)
	}
	if _, err := Unknown.MarshalText(); err == nil {
		t.Error("expected error marshalling unknown kind")
	}
}

func TestParticulateName(t *testing.T) {
	if AsteroidImpact.ParticulateName() != "dust" {
		t.Error("asteroid particulate should be dust")
	}
	if SupervolcanoEruption.ParticulateName() != "ash" {
		t.Error("supervolcano particulate should be ash")
	}
}

func TestParseTarget(t *testing.T) {
	if tg, err := ParseTarget("ocean"); err != nil || tg != Oceanic {
		t.Errorf("ParseTarget(ocean) = %v, %v", tg, err)
	}
	if tg, err := ParseTarget(""); err != nil || tg != Continental {
		t.Errorf("ParseTarget(\"\") = %v, %v", tg, err)
	}
	if _, err := ParseTarget("mars"); !errors.Is(err, ErrUnknownTarget) {
		t.Errorf("expected ErrUnknownTarget, got %v", err)
	}
}
