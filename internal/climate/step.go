package climate

import (
	"fmt"
	"math"

	"github.com/san-kum/aftermath/internal/scenario"
)

// Uniform is the random source for the aftershock trial. *rand.Rand satisfies it.
type Uniform interface {
	Float64() float64
}

// Events reports what happened during a step.
type Events uint8

const (
	PulseFired Events = 1 << iota
	PulseMethane
	Aftershock
)

func (e Events) Has(f Events) bool { return e&f != 0 }

func (e Events) String() string {
	if e == 0 {
		return "none"
	}
	out := ""
	for _, f := range []struct {
		flag Events
		name string
	}{{PulseFired, "pulse"}, {PulseMethane, "pulse_methane"}, {Aftershock, "aftershock"}} {
		if e.Has(f.flag) {
			if out != "" {
				out += "|"
			}
			out += f.name
		}
	}
	return out
}

func (e Events) MarshalText() ([]byte, error) { return []byte(e.String()), nil }

// Step advances s by dt years. The rng is consulted exactly once per step;
// a nil rng disables the aftershock process.
func Step(s *State, c *scenario.Constants, dt float64, rng Uniform) (Events, error) {
	if !(dt > 0) || math.IsInf(dt, 1) {
		return 0, fmt.Errorf("%w: %g", ErrNonPositiveStep, dt)
	}

	var ev Events
	s.Time += dt

	s.FineKg *= math.Exp(-c.Aerosol.FineFallout * dt)
	s.CoarseKg *= math.Exp(-c.Aerosol.CoarseFallout * dt)

	if s.Pulse.State == PulsePending && s.Time >= s.Pulse.TriggerYear {
		s.TempAnomalyC += s.Pulse.IncrementC
		s.Pulse.State = PulseConsumed
		ev |= PulseFired
		if s.TempAnomalyC+c.Baseline.TempC > c.Pulse.MethaneThreshold && c.Pulse.MethanePPB > 0 {
			s.CH4ppb += s.releaseMethane(c, c.Pulse.MethanePPB)
			ev |= PulseMethane
		}
	}

	tau := OpticalDepth(c.Aerosol, s.FineKg)

	target := DustCooling(c.Aerosol, tau) + GreenhouseWarming(c, s.CO2ppm, s.CH4ppb)
	s.TempAnomalyC = relax(s.TempAnomalyC, target, dt, c.Greenhouse.RelaxationYears)

	stepOcean(s, c, dt)

	w := WeatheringRate(c.Weathering, s.SurfaceTempK(c), s.CO2ppm)
	s.CO2ppm -= w * GtCToPPM * dt

	eq := c.Methane.EquilibriumPPB
	s.CH4ppb = eq + (s.CH4ppb-eq)*math.Exp(-dt/MethaneLifetime(c.Methane, tau))

	s.Magnetosphere = relax(s.Magnetosphere, 1, dt, c.Magnetosphere.RecoveryYears)

	// mortality is instantaneous, recovery is not
	if surv := Survival(c, s.TempAnomalyC, s.OceanPH, tau); surv > s.Biodiversity {
		s.Biodiversity = relax(s.Biodiversity, surv, dt, c.Biosphere.RecoveryYears)
	} else {
		s.Biodiversity = surv
	}

	s.SeismicIntensity = OmoriIntensity(c.Seismic, s.Elapsed())
	if rng != nil && rng.Float64() < AftershockProbability(c.Seismic, s.SeismicIntensity, dt) {
		ev |= Aftershock
		s.SubsurfaceHabitat *= 1 - c.Seismic.Damage*s.SeismicIntensity
		if c.Seismic.QuakeMethanePPB > 0 {
			s.CH4ppb += s.releaseMethane(c, c.Seismic.QuakeMethanePPB*s.SeismicIntensity)
		}
	}

	s.enforceBounds()
	return ev, s.Validate()
}

func stepOcean(s *State, c *scenario.Constants, dt float64) {
	o := c.Ocean
	co2 := math.Max(s.CO2ppm, CO2FloorPPM)
	s.OceanDIC += s.OceanDIC / o.RevelleFactor * math.Log(co2/c.Baseline.CO2ppm) * o.Equilibration * dt
	if o.AshMixingRate > 0 && s.Elapsed() < o.AshMixingYears {
		s.OceanDIC += o.AshMixingRate * o.AshMixingScale * dt
	}
	s.OceanDIC = math.Max(DICFloor, s.OceanDIC)
	s.OceanALK = math.Max(DICFloor, s.OceanALK)
	s.OceanPH = CarbonatePH(o, s.OceanDIC, s.OceanALK)
}
