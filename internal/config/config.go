package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/aftermath/internal/scaling"
	"github.com/san-kum/aftermath/internal/scenario"
	"github.com/san-kum/aftermath/internal/sim"
)

const (
	DefaultDiameterKm  = 12.0
	DefaultDensityKgM3 = 3000.0
	DefaultVelocityMS  = 20e3
	DefaultAngleDeg    = 90.0
	DefaultVolumeKm3   = 1000.0
	DefaultVEI         = 8
	DefaultSampleEvery = 100
	DefaultRuns        = 16
)

var (
	ErrInvalid         = errors.New("config: invalid")
	ErrUnknownPreset   = errors.New("config: unknown preset")
	ErrUnsupportedFile = errors.New("config: unsupported file extension")
)

// Config is a run file. Impact is read for asteroid runs, Eruption for
// supervolcano runs.
type Config struct {
	Kind     scenario.Kind `yaml:"kind" toml:"kind" json:"kind"`
	Label    string        `yaml:"label" toml:"label" json:"label,omitempty"`
	Impact   Impact        `yaml:"impact" toml:"impact" json:"impact"`
	Eruption Eruption      `yaml:"eruption" toml:"eruption" json:"eruption"`
	Run      Run           `yaml:"run" toml:"run" json:"run"`
	Output   Output        `yaml:"output" toml:"output" json:"output"`
	Log      Log           `yaml:"log" toml:"log" json:"log"`

	// Constants replaces scenario.Defaults(Kind). Run files only need to
	// name the fields they change.
	Constants *scenario.Constants `yaml:"-" toml:"-" json:"constants,omitempty"`
}

type Impact struct {
	DiameterKm  float64         `yaml:"diameter_km" toml:"diameter_km" json:"diameter_km" env:"AFTERMATH_DIAMETER_KM" validate:"gt=0"`
	DensityKgM3 float64         `yaml:"density_kg_m3" toml:"density_kg_m3" json:"density_kg_m3" env:"AFTERMATH_DENSITY_KG_M3" validate:"gt=0"`
	VelocityMS  float64         `yaml:"velocity_m_s" toml:"velocity_m_s" json:"velocity_m_s" env:"AFTERMATH_VELOCITY_M_S" validate:"gt=0"`
	AngleDeg    float64         `yaml:"angle_deg" toml:"angle_deg" json:"angle_deg" env:"AFTERMATH_ANGLE_DEG" validate:"gte=0,lte=90"`
	Target      scenario.Target `yaml:"target" toml:"target" json:"target" env:"AFTERMATH_TARGET"`
}

type Eruption struct {
	VolumeKm3 float64 `yaml:"volume_km3" toml:"volume_km3" json:"volume_km3" env:"AFTERMATH_VOLUME_KM3" validate:"gt=0"`
	VEI       int     `yaml:"vei" toml:"vei" json:"vei" env:"AFTERMATH_VEI" validate:"gte=0,lte=8"`
}

type Run struct {
	StartYear   float64 `yaml:"start_year" toml:"start_year" json:"start_year" env:"AFTERMATH_START_YEAR"`
	EndYear     float64 `yaml:"end_year" toml:"end_year" json:"end_year" env:"AFTERMATH_END_YEAR" validate:"gtefield=StartYear"`
	DtInitial   float64 `yaml:"dt_initial" toml:"dt_initial" json:"dt_initial" env:"AFTERMATH_DT_INITIAL" validate:"gt=0"`
	DtFinal     float64 `yaml:"dt_final" toml:"dt_final" json:"dt_final" env:"AFTERMATH_DT_FINAL" validate:"gtefield=DtInitial"`
	Seed        int64   `yaml:"seed" toml:"seed" json:"seed" env:"AFTERMATH_SEED"`
	MaxSteps    int     `yaml:"max_steps" toml:"max_steps" json:"max_steps,omitempty" env:"AFTERMATH_MAX_STEPS" validate:"gte=0"`
	Runs        int     `yaml:"runs" toml:"runs" json:"runs" env:"AFTERMATH_RUNS" validate:"gte=1"`
	Parallelism int     `yaml:"parallelism" toml:"parallelism" json:"parallelism,omitempty" env:"AFTERMATH_PARALLELISM" validate:"gte=0"`
}

type Output struct {
	Dir         string `yaml:"dir" toml:"dir" json:"dir" env:"AFTERMATH_OUTPUT_DIR"`
	Format      string `yaml:"format" toml:"format" json:"format" env:"AFTERMATH_FORMAT" validate:"oneof=csv json html svg all"`
	SampleEvery int    `yaml:"sample_every" toml:"sample_every" json:"sample_every" env:"AFTERMATH_SAMPLE_EVERY" validate:"gte=0"`
	Catalog     string `yaml:"catalog" toml:"catalog" json:"catalog,omitempty" env:"AFTERMATH_CATALOG"`
}

type Log struct {
	Level string `yaml:"level" toml:"level" json:"level" env:"AFTERMATH_LOG_LEVEL" validate:"oneof=debug info warn error"`
	JSON  bool   `yaml:"json" toml:"json" json:"json" env:"AFTERMATH_LOG_JSON"`
}

// DefaultConfig is the reference 12 km continental impact, or the 1000 km³
// VEI 8 eruption for supervolcano runs.
func DefaultConfig(kind scenario.Kind) *Config {
	run := sim.DefaultConfig(kind)
	return &Config{
		Kind: kind,
		Impact: Impact{
			DiameterKm:  DefaultDiameterKm,
			DensityKgM3: DefaultDensityKgM3,
			VelocityMS:  DefaultVelocityMS,
			AngleDeg:    DefaultAngleDeg,
			Target:      scenario.Continental,
		},
		Eruption: Eruption{
			VolumeKm3: DefaultVolumeKm3,
			VEI:       DefaultVEI,
		},
		Run: Run{
			StartYear: run.StartYear,
			EndYear:   run.EndYear,
			DtInitial: run.DtInitial,
			DtFinal:   run.DtFinal,
			Seed:      run.Seed,
			Runs:      DefaultRuns,
		},
		Output: Output{
			Dir:         "runs",
			Format:      "all",
			SampleEvery: DefaultSampleEvery,
		},
		Log: Log{Level: "info"},
	}
}

type decodeFunc func(data []byte, v any) error

func decoderFor(path string) (decodeFunc, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yaml.Unmarshal, nil
	case ".toml":
		return func(data []byte, v any) error { return toml.Unmarshal(data, v) }, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFile, path)
	}
}

// Load reads a YAML or TOML run file over the defaults for its kind, then
// applies AFTERMATH_* environment overrides and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	decode, err := decoderFor(path)
	if err != nil {
		return nil, err
	}
	cfg, err := parse(data, decode)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ParseYAML decodes one YAML run document without consulting the
// environment. The result is validated.
func ParseYAML(data []byte) (*Config, error) {
	cfg, err := parse(data, yaml.Unmarshal)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// parse starts from the named preset, or the defaults of the named kind,
// and decodes the document over it. A constants block only needs the
// fields it changes.
func parse(data []byte, decode decodeFunc) (*Config, error) {
	var head struct {
		Preset string `yaml:"preset" toml:"preset"`
		Kind   string `yaml:"kind" toml:"kind"`
	}
	if err := decode(data, &head); err != nil {
		return nil, err
	}

	var cfg *Config
	switch {
	case head.Preset != "":
		p, err := GetPreset(head.Preset)
		if err != nil {
			return nil, err
		}
		cfg = p
	case head.Kind != "":
		kind, err := scenario.ParseKind(head.Kind)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalid, err)
		}
		cfg = DefaultConfig(kind)
	default:
		return nil, fmt.Errorf("%w: %w", ErrInvalid, scenario.ErrUnknownKind)
	}
	kind := cfg.Kind

	if err := decode(data, cfg); err != nil {
		return nil, err
	}
	if cfg.Kind != kind {
		return nil, fmt.Errorf("%w: preset %s is a %s event", ErrInvalid, head.Preset, kind)
	}

	constants := scenario.MustDefaults(kind)
	overrides := struct {
		Constants *scenario.Constants `yaml:"constants" toml:"constants"`
	}{Constants: &constants}
	if err := decode(data, &overrides); err != nil {
		return nil, fmt.Errorf("constants: %w", err)
	}
	if overrides.Constants != nil && *overrides.Constants != scenario.MustDefaults(kind) {
		overrides.Constants.Kind = kind
		cfg.Constants = overrides.Constants
	}
	return cfg, nil
}

// Save writes cfg as YAML or TOML according to the path extension.
func Save(path string, cfg *Config) error {
	var (
		data []byte
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(fileView(cfg))
	case ".toml":
		var sb strings.Builder
		err = toml.NewEncoder(&sb).Encode(fileView(cfg))
		data = []byte(sb.String())
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedFile, path)
	}
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// fileView adds the constants block back under its file key.
func fileView(cfg *Config) any {
	return struct {
		Config    `yaml:",inline"`
		Constants *scenario.Constants `yaml:"constants,omitempty" toml:"constants,omitempty"`
	}{Config: *cfg, Constants: cfg.Constants}
}

// ApplyEnv overrides fields from AFTERMATH_* variables that are set.
func (c *Config) ApplyEnv() error {
	var top struct {
		Kind  string `env:"AFTERMATH_KIND"`
		Label string `env:"AFTERMATH_LABEL"`
	}
	if err := env.Parse(&top); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	if top.Kind != "" {
		kind, err := scenario.ParseKind(top.Kind)
		if err != nil {
			return fmt.Errorf("parse env: %w", err)
		}
		c.Kind = kind
	}
	if top.Label != "" {
		c.Label = top.Label
	}

	for _, section := range []any{&c.Impact, &c.Eruption, &c.Run, &c.Output, &c.Log} {
		if err := env.Parse(section); err != nil {
			return fmt.Errorf("parse env: %w", err)
		}
	}
	return nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the run, output and event section of the selected kind.
func (c *Config) Validate() error {
	if !c.Kind.Valid() {
		return fmt.Errorf("%w: %w", ErrInvalid, scenario.ErrUnknownKind)
	}
	sections := []any{c.Run, c.Output, c.Log}
	if c.Kind == scenario.AsteroidImpact {
		sections = append(sections, c.Impact)
	} else {
		sections = append(sections, c.Eruption)
	}
	for _, s := range sections {
		if err := validate.Struct(s); err != nil {
			var verrs validator.ValidationErrors
			if errors.As(err, &verrs) && len(verrs) > 0 {
				return fmt.Errorf("%w: %s failed %s", ErrInvalid, verrs[0].Namespace(), verrs[0].Tag())
			}
			return fmt.Errorf("%w: %v", ErrInvalid, err)
		}
	}
	if c.Constants != nil {
		if c.Constants.Kind != c.Kind {
			return fmt.Errorf("%w: constants for %s", ErrInvalid, c.Constants.Kind)
		}
		if err := c.Constants.Validate(); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalid, err)
		}
	}
	return nil
}

// ResolvedConstants returns the override constants or the kind defaults.
func (c *Config) ResolvedConstants() scenario.Constants {
	if c.Constants != nil {
		return *c.Constants
	}
	return scenario.MustDefaults(c.Kind)
}

// Params lists the event parameters of the selected kind for run metadata.
func (c *Config) Params() map[string]float64 {
	if c.Kind == scenario.AsteroidImpact {
		return map[string]float64{
			"diameter_km":   c.Impact.DiameterKm,
			"density_kg_m3": c.Impact.DensityKgM3,
			"velocity_m_s":  c.Impact.VelocityMS,
			"angle_deg":     c.Impact.AngleDeg,
		}
	}
	return map[string]float64{
		"volume_km3": c.Eruption.VolumeKm3,
		"vei":        float64(c.Eruption.VEI),
	}
}

// BuildConfig derives the event's initial conditions and returns the
// simulator configuration.
func (c *Config) BuildConfig(cal scaling.Calibration) (sim.Config, error) {
	if err := c.Validate(); err != nil {
		return sim.Config{}, err
	}
	constants := c.ResolvedConstants()

	out := sim.Config{
		Kind:      c.Kind,
		StartYear: c.Run.StartYear,
		EndYear:   c.Run.EndYear,
		DtInitial: c.Run.DtInitial,
		DtFinal:   c.Run.DtFinal,
		Seed:      c.Run.Seed,
		MaxSteps:  c.Run.MaxSteps,
	}
	if c.Constants != nil {
		out.Constants = &constants
	}

	var err error
	switch c.Kind {
	case scenario.AsteroidImpact:
		out.Conditions, err = cal.ImpactConditions(scaling.Impact{
			DiameterKm:  c.Impact.DiameterKm,
			DensityKgM3: c.Impact.DensityKgM3,
			VelocityMS:  c.Impact.VelocityMS,
			AngleDeg:    c.Impact.AngleDeg,
			Target:      c.Impact.Target,
		}, &constants)
	case scenario.SupervolcanoEruption:
		out.Conditions, err = cal.EruptionConditions(scaling.Eruption{
			VolumeKm3: c.Eruption.VolumeKm3,
			VEI:       c.Eruption.VEI,
		}, &constants)
	}
	if err != nil {
		return sim.Config{}, err
	}
	return out, nil
}
