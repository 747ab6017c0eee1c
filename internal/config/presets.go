package config

import (
	"fmt"
	"sort"

	"github.com/san-kum/aftermath/internal/scenario"
)

// Preset is a named historical or reference event.
type Preset struct {
	Name        string        `json:"name"`
	Kind        scenario.Kind `json:"kind"`
	Description string        `json:"description"`
	Impact      Impact        `json:"impact,omitempty"`
	Eruption    Eruption      `json:"eruption,omitempty"`
}

var Presets = map[string]Preset{
	"chicxulub": {
		Name: "chicxulub", Kind: scenario.AsteroidImpact,
		Description: "12 km stony impactor at 20 km/s on a carbonate platform",
		Impact:      Impact{DiameterKm: 12, DensityKgM3: 3000, VelocityMS: 20e3, AngleDeg: 60, Target: scenario.Continental},
	},
	"chicxulub-oceanic": {
		Name: "chicxulub-oceanic", Kind: scenario.AsteroidImpact,
		Description: "the chicxulub impactor striking open ocean",
		Impact:      Impact{DiameterKm: 12, DensityKgM3: 3000, VelocityMS: 20e3, AngleDeg: 60, Target: scenario.Oceanic},
	},
	"popigai": {
		Name: "popigai", Kind: scenario.AsteroidImpact,
		Description: "5 km impactor, late Eocene",
		Impact:      Impact{DiameterKm: 5, DensityKgM3: 3000, VelocityMS: 18e3, AngleDeg: 45, Target: scenario.Continental},
	},
	"eltanin": {
		Name: "eltanin", Kind: scenario.AsteroidImpact,
		Description: "1 km impactor into the Southern Ocean",
		Impact:      Impact{DiameterKm: 1, DensityKgM3: 3000, VelocityMS: 20e3, AngleDeg: 45, Target: scenario.Oceanic},
	},
	"toba": {
		Name: "toba", Kind: scenario.SupervolcanoEruption,
		Description: "Youngest Toba Tuff, about 2800 km³",
		Eruption:    Eruption{VolumeKm3: 2800, VEI: 8},
	},
	"yellowstone": {
		Name: "yellowstone", Kind: scenario.SupervolcanoEruption,
		Description: "Huckleberry Ridge Tuff, about 2450 km³",
		Eruption:    Eruption{VolumeKm3: 2450, VEI: 8},
	},
	"tambora": {
		Name: "tambora", Kind: scenario.SupervolcanoEruption,
		Description: "1815 Tambora, about 150 km³",
		Eruption:    Eruption{VolumeKm3: 150, VEI: 7},
	},
}

// GetPreset returns the run file defaults with the preset's event applied.
func GetPreset(name string) (*Config, error) {
	p, ok := Presets[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPreset, name)
	}
	cfg := DefaultConfig(p.Kind)
	cfg.Label = p.Name
	if p.Kind == scenario.AsteroidImpact {
		cfg.Impact = p.Impact
	} else {
		cfg.Eruption = p.Eruption
	}
	return cfg, nil
}

// ListPresets returns preset names for kind in name order. scenario.Unknown
// lists every preset.
func ListPresets(kind scenario.Kind) []Preset {
	out := make([]Preset, 0, len(Presets))
	for _, p := range Presets {
		if kind.Valid() && p.Kind != kind {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
