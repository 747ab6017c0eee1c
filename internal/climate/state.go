package climate

import (
	"math"

	"github.com/san-kum/aftermath/internal/scenario"
)

// PulseState tracks the one-shot re-entry heating pulse.
type PulseState int

const (
	PulseNone PulseState = iota
	PulsePending
	PulseConsumed
)

func (p PulseState) String() string {
	switch p {
	case PulsePending:
		return "pending"
	case PulseConsumed:
		return "consumed"
	default:
		return "none"
	}
}

// Pulse is the armed re-entry heating event.
type Pulse struct {
	State       PulseState
	TriggerYear float64
	IncrementC  float64
}

// Conditions are the initial conditions produced by the scaling laws. The
// engine only reads them.
type Conditions struct {
	EnergyJ       float64
	EnergyGT      float64
	StructureKm   float64 // crater or caldera diameter
	ParticulateKg float64
	FineKg        float64
	CoarseKg      float64
	InitialTau    float64
	SO2Tg         float64 // eruptions only, metadata
	// Magnitude normalises event damage: GT TNT for impacts, erupted km³ for eruptions.
	Magnitude float64
	Target    scenario.Target
}

// State is the physical state advanced by the engine. One instance per run.
type State struct {
	Time      float64
	EventYear float64

	FineKg   float64
	CoarseKg float64

	TempAnomalyC float64
	CO2ppm       float64
	CH4ppb       float64

	OceanPH  float64
	OceanDIC float64
	OceanALK float64

	Biodiversity      float64
	Magnetosphere     float64
	SubsurfaceHabitat float64
	SeismicIntensity  float64

	ThawPoolGtC float64
	Pulse       Pulse
}

// NewBaseline returns the pre-event Earth at startYear with the event's
// particulate load staged but not yet optically active.
func NewBaseline(c *scenario.Constants, startYear float64, cond Conditions) *State {
	return &State{
		Time:              startYear,
		EventYear:         startYear,
		FineKg:            math.Max(cond.FineKg, 0),
		CoarseKg:          math.Max(cond.CoarseKg, 0),
		CO2ppm:            c.Baseline.CO2ppm,
		CH4ppb:            c.Baseline.CH4ppb,
		OceanPH:           c.Baseline.PH,
		OceanDIC:          c.Baseline.DIC,
		OceanALK:          c.Baseline.ALK,
		Biodiversity:      1.0,
		Magnetosphere:     1.0,
		SubsurfaceHabitat: 1.0,
		ThawPoolGtC:       c.Injection.ThawPoolGtC,
	}
}

// Elapsed is simulated years since the event.
func (s *State) Elapsed() float64 { return s.Time - s.EventYear }

// SurfaceTempK is the absolute global mean surface temperature.
func (s *State) SurfaceTempK(c *scenario.Constants) float64 {
	return KelvinOffset + c.Baseline.TempC + s.TempAnomalyC
}

// OpticalDepth of the current particulate load.
func (s *State) OpticalDepth(c *scenario.Constants) float64 {
	return OpticalDepth(c.Aerosol, s.FineKg)
}

func (s *State) Clone() *State {
	c := *s
	return &c
}

func (s *State) fields() []struct {
	name string
	v    float64
} {
	return []struct {
		name string
		v    float64
	}{
		{"time", s.Time},
		{"fine_particulate_kg", s.FineKg},
		{"coarse_particulate_kg", s.CoarseKg},
		{"temperature_anomaly_c", s.TempAnomalyC},
		{"co2_ppm", s.CO2ppm},
		{"methane_ppb", s.CH4ppb},
		{"ocean_ph", s.OceanPH},
		{"ocean_dic", s.OceanDIC},
		{"ocean_alk", s.OceanALK},
		{"biodiversity_index", s.Biodiversity},
		{"magnetosphere_strength", s.Magnetosphere},
		{"subsurface_habitat_fraction", s.SubsurfaceHabitat},
		{"seismic_intensity", s.SeismicIntensity},
		{"thaw_pool_gtc", s.ThawPoolGtC},
		{"pulse_increment_c", s.Pulse.IncrementC},
	}
}

// Validate returns a *FieldError for the first NaN or Inf field.
func (s *State) Validate() error {
	for _, f := range s.fields() {
		if math.IsNaN(f.v) || math.IsInf(f.v, 0) {
			return &FieldError{Field: f.name, Value: f.v}
		}
	}
	return nil
}

// enforceBounds applies the hard floors and clamps.
func (s *State) enforceBounds() {
	s.CO2ppm = math.Max(CO2FloorPPM, s.CO2ppm)
	s.CH4ppb = math.Max(0, s.CH4ppb)
	s.ThawPoolGtC = math.Max(0, s.ThawPoolGtC)
	s.Biodiversity = clamp(s.Biodiversity, 0, 1)
	s.SubsurfaceHabitat = clamp(s.SubsurfaceHabitat, 0, 1)
	s.FineKg = math.Max(0, s.FineKg)
	s.CoarseKg = math.Max(0, s.CoarseKg)
}

// releaseMethane draws a methane release from the thaw pool when the
// scenario has one, scaling it by the fraction of the pool remaining.
// It returns the ppb actually released.
func (s *State) releaseMethane(c *scenario.Constants, ppb float64) float64 {
	if ppb <= 0 {
		return 0
	}
	if !c.HasThawPool() {
		return ppb
	}
	ppb *= clamp(s.ThawPoolGtC/c.Injection.ThawPoolGtC, 0, 1)
	return s.drawThaw(ppb/PPBPerGtCMethane) * PPBPerGtCMethane
}

// drawThaw removes up to gtc from the pool and returns what was removed.
func (s *State) drawThaw(gtc float64) float64 {
	gtc = math.Min(math.Max(gtc, 0), math.Max(s.ThawPoolGtC, 0))
	s.ThawPoolGtC -= gtc
	return gtc
}
