// Package record captures immutable snapshots of the climate state with a
// fixed key set and per-field output precision.
package record

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"

	"github.com/san-kum/aftermath/internal/climate"
	"github.com/san-kum/aftermath/internal/scenario"
)

var ErrShape = errors.New("record: keys and values differ in length")

const KeyYear = "year"

// Field is one snapshot column.
type Field struct {
	Key       string
	Precision int
	value     func(s *climate.State, c *scenario.Constants) float64
}

// Fields returns the snapshot columns for a kind, in output order.
func Fields(kind scenario.Kind) []Field {
	return []Field{
		{KeyYear, 4, func(s *climate.State, _ *scenario.Constants) float64 { return s.Time }},
		{"temp_anomaly_c", 4, func(s *climate.State, _ *scenario.Constants) float64 { return s.TempAnomalyC }},
		{"co2_ppm", 2, func(s *climate.State, _ *scenario.Constants) float64 { return s.CO2ppm }},
		{"ocean_ph", 3, func(s *climate.State, _ *scenario.Constants) float64 { return s.OceanPH }},
		{"biodiversity_index", 4, func(s *climate.State, _ *scenario.Constants) float64 { return s.Biodiversity }},
		{"methane_ppb", 1, func(s *climate.State, _ *scenario.Constants) float64 { return s.CH4ppb }},
		{OpticalDepthKey(kind), 4, func(s *climate.State, c *scenario.Constants) float64 { return s.OpticalDepth(c) }},
		{"magnetosphere_strength", 4, func(s *climate.State, _ *scenario.Constants) float64 { return s.Magnetosphere }},
		{"subsurface_habitat_fraction", 4, func(s *climate.State, _ *scenario.Constants) float64 { return s.SubsurfaceHabitat }},
		{"seismic_intensity", 4, func(s *climate.State, _ *scenario.Constants) float64 { return s.SeismicIntensity }},
	}
}

// OpticalDepthKey is dust_optical_depth or ash_optical_depth.
func OpticalDepthKey(kind scenario.Kind) string {
	return kind.ParticulateName() + "_optical_depth"
}

// Keys returns the snapshot keys for a kind, in output order.
func Keys(kind scenario.Kind) []string {
	fs := Fields(kind)
	keys := make([]string, len(fs))
	for i, f := range fs {
		keys[i] = f.Key
	}
	return keys
}

// Round to places decimals. Negative zero becomes zero.
func Round(v float64, places int) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	p := math.Pow10(places)
	r := math.Round(v*p) / p
	if r == 0 {
		return 0
	}
	return r
}

// Snapshot is a flat, ordered, read-only mapping of key to value.
type Snapshot struct {
	keys   []string
	values []float64
}

// NewSnapshot builds a snapshot from parallel slices, copying both.
func NewSnapshot(keys []string, values []float64) (Snapshot, error) {
	if len(keys) != len(values) {
		return Snapshot{}, fmt.Errorf("%w: %d keys, %d values", ErrShape, len(keys), len(values))
	}
	return Snapshot{
		keys:   append([]string(nil), keys...),
		values: append([]float64(nil), values...),
	}, nil
}

func (s Snapshot) Len() int { return len(s.keys) }

func (s Snapshot) Get(key string) (float64, bool) {
	for i, k := range s.keys {
		if k == key {
			return s.values[i], true
		}
	}
	return 0, false
}

// Value returns the value for key, or zero when absent.
func (s Snapshot) Value(key string) float64 {
	v, _ := s.Get(key)
	return v
}

func (s Snapshot) Year() float64 { return s.Value(KeyYear) }

func (s Snapshot) Keys() []string { return append([]string(nil), s.keys...) }

func (s Snapshot) Values() []float64 { return append([]float64(nil), s.values...) }

func (s Snapshot) Map() map[string]float64 {
	m := make(map[string]float64, len(s.keys))
	for i, k := range s.keys {
		m[k] = s.values[i]
	}
	return m
}

// MarshalJSON writes an object with keys in snapshot order.
func (s Snapshot) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range s.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		v := s.values[i]
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("record: non-finite value for %s", k)
		}
		buf.WriteString(strconv.FormatFloat(v, 'f', -1, 64))
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Recorder appends one snapshot per captured state.
type Recorder struct {
	kind   scenario.Kind
	fields []Field
	keys   []string
	snaps  []Snapshot
}

func NewRecorder(kind scenario.Kind) *Recorder {
	return &Recorder{
		kind:   kind,
		fields: Fields(kind),
		keys:   Keys(kind),
	}
}

// Capture reads s, rounds each field to its precision and appends the
// snapshot. The state is not modified.
func (r *Recorder) Capture(s *climate.State, c *scenario.Constants) Snapshot {
	values := make([]float64, len(r.fields))
	for i, f := range r.fields {
		values[i] = Round(f.value(s, c), f.Precision)
	}
	snap := Snapshot{keys: r.keys, values: values}
	r.snaps = append(r.snaps, snap)
	return snap
}

func (r *Recorder) Kind() scenario.Kind { return r.kind }

func (r *Recorder) Keys() []string { return append([]string(nil), r.keys...) }

func (r *Recorder) Len() int { return len(r.snaps) }

// Snapshots returns the captured sequence.
func (r *Recorder) Snapshots() []Snapshot {
	return append([]Snapshot(nil), r.snaps...)
}
