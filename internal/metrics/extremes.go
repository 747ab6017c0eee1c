package metrics

import (
	"math"

	"github.com/san-kum/aftermath/internal/climate"
	"github.com/san-kum/aftermath/internal/record"
)

// Extreme tracks the minimum or maximum of one snapshot key and the year it
// occurred. The baseline snapshot is skipped so the event is always counted.
type Extreme struct {
	name    string
	key     string
	max     bool
	value   float64
	year    float64
	samples int
}

func NewMinimum(name, key string) *Extreme {
	return &Extreme{name: name, key: key}
}

func NewMaximum(name, key string) *Extreme {
	return &Extreme{name: name, key: key, max: true}
}

func NewMinBiodiversity() *Extreme { return NewMinimum("min_biodiversity", "biodiversity_index") }
func NewPeakCooling() *Extreme     { return NewMinimum("peak_cooling_c", "temp_anomaly_c") }
func NewPeakWarming() *Extreme     { return NewMaximum("peak_warming_c", "temp_anomaly_c") }
func NewPeakCO2() *Extreme         { return NewMaximum("peak_co2_ppm", "co2_ppm") }
func NewPeakMethane() *Extreme     { return NewMaximum("peak_methane_ppb", "methane_ppb") }

func (e *Extreme) Name() string { return e.name }

func (e *Extreme) Observe(snap record.Snapshot, ev climate.Events) {
	e.samples++
	if e.samples == 1 {
		return
	}
	v, ok := snap.Get(e.key)
	if !ok {
		return
	}
	if e.samples == 2 || (e.max && v > e.value) || (!e.max && v < e.value) {
		e.value = v
		e.year = snap.Year()
	}
}

func (e *Extreme) Value() float64 {
	if e.samples < 2 {
		return 0
	}
	return e.value
}

// Year of the extreme, NaN before anything was observed.
func (e *Extreme) Year() float64 {
	if e.samples < 2 {
		return math.NaN()
	}
	return e.year
}

func (e *Extreme) Reset() {
	e.value = 0
	e.year = 0
	e.samples = 0
}

// Final holds the last observed value of a key.
type Final struct {
	name  string
	key   string
	value float64
}

func NewFinal(name, key string) *Final {
	return &Final{name: name, key: key}
}

func (f *Final) Name() string { return f.name }

func (f *Final) Observe(snap record.Snapshot, ev climate.Events) {
	if v, ok := snap.Get(f.key); ok {
		f.value = v
	}
}

func (f *Final) Value() float64 { return f.value }

func (f *Final) Reset() { f.value = 0 }
