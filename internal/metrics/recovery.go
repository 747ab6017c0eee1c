package metrics

import (
	"github.com/san-kum/aftermath/internal/climate"
	"github.com/san-kum/aftermath/internal/record"
)

// DefaultRecoveryThreshold is the biodiversity level counted as recovered.
const DefaultRecoveryThreshold = 0.5

// Recovery reports the first year biodiversity climbs back to the threshold
// after its running minimum, or -1 while it has not. A later collapse below
// the threshold clears the recovery.
type Recovery struct {
	threshold float64
	min       float64
	year      float64
	recovered bool
	samples   int
}

func NewRecovery(threshold float64) *Recovery {
	return &Recovery{threshold: threshold, year: -1}
}

func (r *Recovery) Name() string { return "recovery_year" }

func (r *Recovery) Observe(snap record.Snapshot, ev climate.Events) {
	r.samples++
	if r.samples == 1 {
		return
	}
	bio := snap.Value("biodiversity_index")
	if r.samples == 2 || bio < r.min {
		r.min = bio
	}
	switch {
	case bio < r.threshold:
		r.recovered = false
		r.year = -1
	case !r.recovered && r.min < r.threshold:
		r.recovered = true
		r.year = snap.Year()
	}
}

func (r *Recovery) Value() float64 { return r.year }

func (r *Recovery) Reset() {
	r.min = 0
	r.year = -1
	r.recovered = false
	r.samples = 0
}
