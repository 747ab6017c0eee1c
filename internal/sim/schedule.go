package sim

import "math"

// Elapsed-year thresholds at which the step starts to grow.
const (
	growthOnset  = 10.0
	coarseOnset  = 100.0
	growthEarly  = 1.2
	growthLate   = 1.1
	earlyDtLimit = 1.0
)

// Schedule yields a non-decreasing time step: fine through the first decade,
// growing to one year by the first century, then to dtFinal.
type Schedule struct {
	dt    float64
	final float64
}

func NewSchedule(initial, final float64) *Schedule {
	return &Schedule{dt: initial, final: final}
}

// Next returns the step to take from the given elapsed time.
func (s *Schedule) Next(elapsed float64) float64 {
	switch {
	case elapsed > coarseOnset:
		s.dt = math.Max(s.dt, math.Min(s.final, s.dt*growthLate))
	case elapsed > growthOnset:
		s.dt = math.Max(s.dt, math.Min(earlyDtLimit, math.Min(s.final, s.dt*growthEarly)))
	}
	return s.dt
}

func (s *Schedule) Current() float64 { return s.dt }
