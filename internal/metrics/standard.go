package metrics

import (
	"github.com/san-kum/aftermath/internal/record"
	"github.com/san-kum/aftermath/internal/scenario"
	"github.com/san-kum/aftermath/internal/sim"
)

// Standard returns a fresh set of the summary metrics reported for every run.
func Standard(kind scenario.Kind) []sim.Metric {
	return []sim.Metric{
		NewMinBiodiversity(),
		NewPeakCooling(),
		NewPeakWarming(),
		NewPeakCO2(),
		NewPeakMethane(),
		NewAftershockCount(),
		NewPulseYear(),
		NewRecovery(DefaultRecoveryThreshold),
		NewFinal("final_biodiversity", "biodiversity_index"),
		NewFinal("final_temp_anomaly_c", "temp_anomaly_c"),
		NewFinal("final_co2_ppm", "co2_ppm"),
		NewFinal("final_habitat", "subsurface_habitat_fraction"),
		NewFinal("final_"+record.OpticalDepthKey(kind), record.OpticalDepthKey(kind)),
	}
}

// Attach adds the standard metrics to s.
func Attach(s *sim.Simulator, kind scenario.Kind) {
	for _, m := range Standard(kind) {
		s.AddMetric(m)
	}
}
