package climate

import (
	"math"

	"github.com/san-kum/aftermath/internal/scenario"
)

// Share of the ash mixing perturbation landing in DIC and ALK.
const (
	ashDICShare = 0.1
	ashALKShare = 0.05
)

// ApplyEvent transforms a baseline state into the immediate post-event state.
// It runs once per simulation, at the event year.
func ApplyEvent(s *State, c *scenario.Constants, cond Conditions) {
	tau := OpticalDepth(c.Aerosol, s.FineKg)
	s.TempAnomalyC = DustCooling(c.Aerosol, tau)

	switch c.Kind {
	case scenario.AsteroidImpact:
		if cond.Target == scenario.Continental {
			s.CO2ppm += CarbonateCO2PPM(c.Injection.CarbonateCO2PerKg * cond.ParticulateKg)
		}
	case scenario.SupervolcanoEruption:
		vol := math.Max(cond.Magnitude, 0)
		s.CO2ppm += c.Injection.DegassingGtCPerKm3 * vol * GtCToPPM
		s.CH4ppb += s.drawThaw(c.Injection.ThawGtCPerKm3*vol) * PPBPerGtCMethane

		// mixing rate is per 1000 km³ erupted
		mix := c.Ocean.AshMixingRate * vol / 1000 * c.Ocean.AshMixingScale
		s.OceanDIC += mix * ashDICShare
		s.OceanALK = math.Max(DICFloor, s.OceanALK-mix*ashALKShare)
	}

	s.Biodiversity = clamp(s.Biodiversity*(1-KillFraction(c.Biosphere, cond.Magnitude)), 0, 1)
	s.Magnetosphere = MagnetosphereDisruption(c.Magnetosphere, cond.Magnitude)
	s.SeismicIntensity = 1.0

	s.Pulse = Pulse{
		State:       PulsePending,
		TriggerYear: s.EventYear + c.Pulse.DelayYears,
		IncrementC:  c.Pulse.TempPerKg * c.Pulse.ReentryFraction * s.CoarseKg,
	}

	s.enforceBounds()
}
