package scenario

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Constants is the immutable bundle of forcing-event constants consumed by
// the climate engine. Values are copied, never shared, so a run cannot alter
// another run's configuration.
type Constants struct {
	Kind          Kind          `yaml:"kind" toml:"kind" json:"kind"`
	Baseline      Baseline      `yaml:"baseline" toml:"baseline" json:"baseline"`
	Aerosol       Aerosol       `yaml:"aerosol" toml:"aerosol" json:"aerosol"`
	Greenhouse    Greenhouse    `yaml:"greenhouse" toml:"greenhouse" json:"greenhouse"`
	Ocean         Ocean         `yaml:"ocean" toml:"ocean" json:"ocean"`
	Weathering    Weathering    `yaml:"weathering" toml:"weathering" json:"weathering"`
	Methane       Methane       `yaml:"methane" toml:"methane" json:"methane"`
	Magnetosphere Magnetosphere `yaml:"magnetosphere" toml:"magnetosphere" json:"magnetosphere"`
	Biosphere     Biosphere     `yaml:"biosphere" toml:"biosphere" json:"biosphere"`
	Seismic       Seismic       `yaml:"seismic" toml:"seismic" json:"seismic"`
	Pulse         Pulse         `yaml:"pulse" toml:"pulse" json:"pulse"`
	Injection     Injection     `yaml:"injection" toml:"injection" json:"injection"`
}

// Baseline is the pre-event Earth state.
type Baseline struct {
	TempC  float64 `yaml:"temp_c" toml:"temp_c" json:"temp_c"`
	CO2ppm float64 `yaml:"co2_ppm" toml:"co2_ppm" json:"co2_ppm" validate:"gt=0"`
	CH4ppb float64 `yaml:"ch4_ppb" toml:"ch4_ppb" json:"ch4_ppb" validate:"gte=0"`
	PH     float64 `yaml:"ph" toml:"ph" json:"ph" validate:"gte=6,lte=8.5"`
	DIC    float64 `yaml:"dic" toml:"dic" json:"dic" validate:"gt=0"`
	ALK    float64 `yaml:"alk" toml:"alk" json:"alk" validate:"gt=0"`
}

// Aerosol covers particulate optics and fallout.
type Aerosol struct {
	ExtinctionM2PerKg float64 `yaml:"extinction_m2_per_kg" toml:"extinction_m2_per_kg" json:"extinction_m2_per_kg" validate:"gt=0"`
	FineFraction      float64 `yaml:"fine_fraction" toml:"fine_fraction" json:"fine_fraction" validate:"gte=0,lte=1"`
	FineFallout       float64 `yaml:"fine_fallout_per_year" toml:"fine_fallout_per_year" json:"fine_fallout_per_year" validate:"gte=0"`
	CoarseFallout     float64 `yaml:"coarse_fallout_per_year" toml:"coarse_fallout_per_year" json:"coarse_fallout_per_year" validate:"gte=0"`
	CoolingScaleC     float64 `yaml:"cooling_scale_c" toml:"cooling_scale_c" json:"cooling_scale_c" validate:"gte=0"`
}

// Greenhouse holds the radiative forcing coefficients.
type Greenhouse struct {
	CO2Coeff        float64 `yaml:"co2_coeff" toml:"co2_coeff" json:"co2_coeff"`
	CH4Coeff        float64 `yaml:"ch4_coeff" toml:"ch4_coeff" json:"ch4_coeff"`
	Sensitivity     float64 `yaml:"sensitivity" toml:"sensitivity" json:"sensitivity" validate:"gte=0"`
	RelaxationYears float64 `yaml:"relaxation_years" toml:"relaxation_years" json:"relaxation_years" validate:"gt=0"`
}

// Ocean is the carbonate box.
type Ocean struct {
	RevelleFactor  float64 `yaml:"revelle_factor" toml:"revelle_factor" json:"revelle_factor" validate:"gt=0"`
	Equilibration  float64 `yaml:"equilibration" toml:"equilibration" json:"equilibration" validate:"gte=0"`
	RatioMin       float64 `yaml:"ratio_min" toml:"ratio_min" json:"ratio_min" validate:"gt=0"`
	RatioMax       float64 `yaml:"ratio_max" toml:"ratio_max" json:"ratio_max" validate:"gtfield=RatioMin"`
	AshMixingRate  float64 `yaml:"ash_mixing_rate" toml:"ash_mixing_rate" json:"ash_mixing_rate" validate:"gte=0"`
	AshMixingScale float64 `yaml:"ash_mixing_scale" toml:"ash_mixing_scale" json:"ash_mixing_scale" validate:"gte=0"`
	AshMixingYears float64 `yaml:"ash_mixing_years" toml:"ash_mixing_years" json:"ash_mixing_years" validate:"gte=0"`
}

// Weathering parameterises silicate CO2 drawdown.
type Weathering struct {
	BaseGtCPerYear float64 `yaml:"base_gtc_per_year" toml:"base_gtc_per_year" json:"base_gtc_per_year" validate:"gte=0"`
	Activation     float64 `yaml:"activation" toml:"activation" json:"activation" validate:"gte=0"`
	RefTempK       float64 `yaml:"ref_temp_k" toml:"ref_temp_k" json:"ref_temp_k" validate:"gt=0"`
	HalfSatPPM     float64 `yaml:"half_saturation_ppm" toml:"half_saturation_ppm" json:"half_saturation_ppm" validate:"gt=0"`
	MaxExponent    float64 `yaml:"max_exponent" toml:"max_exponent" json:"max_exponent" validate:"gt=0,lte=700"`
}

// Methane sets CH4 photochemistry.
type Methane struct {
	LifetimeYears  float64 `yaml:"lifetime_years" toml:"lifetime_years" json:"lifetime_years" validate:"gt=0"`
	UVFactor       float64 `yaml:"uv_factor" toml:"uv_factor" json:"uv_factor" validate:"gt=0"`
	UVTauThreshold float64 `yaml:"uv_tau_threshold" toml:"uv_tau_threshold" json:"uv_tau_threshold" validate:"gte=0"`
	EquilibriumPPB float64 `yaml:"equilibrium_ppb" toml:"equilibrium_ppb" json:"equilibrium_ppb" validate:"gte=0"`
}

// Magnetosphere sets field disruption and recovery.
type Magnetosphere struct {
	Disruption    float64 `yaml:"disruption" toml:"disruption" json:"disruption" validate:"gte=0"`
	Scale         float64 `yaml:"scale" toml:"scale" json:"scale" validate:"gt=0"`
	Floor         float64 `yaml:"floor" toml:"floor" json:"floor" validate:"gte=0,lte=1"`
	RecoveryYears float64 `yaml:"recovery_years" toml:"recovery_years" json:"recovery_years" validate:"gt=0"`
}

// Biosphere sets event mortality and the survival score.
type Biosphere struct {
	KillRate       float64 `yaml:"kill_rate" toml:"kill_rate" json:"kill_rate" validate:"gte=0"`
	KillScale      float64 `yaml:"kill_scale" toml:"kill_scale" json:"kill_scale" validate:"gt=0"`
	TempStressRate float64 `yaml:"temp_stress_rate" toml:"temp_stress_rate" json:"temp_stress_rate" validate:"gte=0"`
	TempThresholdC float64 `yaml:"temp_threshold_c" toml:"temp_threshold_c" json:"temp_threshold_c"`
	PHLow          float64 `yaml:"ph_low" toml:"ph_low" json:"ph_low"`
	PHHigh         float64 `yaml:"ph_high" toml:"ph_high" json:"ph_high" validate:"gtfield=PHLow"`
	AshStressRate  float64 `yaml:"ash_stress_rate" toml:"ash_stress_rate" json:"ash_stress_rate" validate:"gte=0"`
	RecoveryYears  float64 `yaml:"recovery_years" toml:"recovery_years" json:"recovery_years" validate:"gt=0"`
}

// Seismic sets the Omori decay and the aftershock process.
type Seismic struct {
	OmoriK          float64 `yaml:"omori_k" toml:"omori_k" json:"omori_k" validate:"gte=0"`
	OmoriP          float64 `yaml:"omori_p" toml:"omori_p" json:"omori_p" validate:"gt=0"`
	AftershockRate  float64 `yaml:"aftershock_rate" toml:"aftershock_rate" json:"aftershock_rate" validate:"gte=0"`
	Damage          float64 `yaml:"damage" toml:"damage" json:"damage" validate:"gte=0,lte=1"`
	QuakeMethanePPB float64 `yaml:"quake_methane_ppb" toml:"quake_methane_ppb" json:"quake_methane_ppb" validate:"gte=0"`
}

// Pulse sets the delayed ejecta/ash re-entry heating.
type Pulse struct {
	DelayYears       float64 `yaml:"delay_years" toml:"delay_years" json:"delay_years" validate:"gte=0"`
	ReentryFraction  float64 `yaml:"reentry_fraction" toml:"reentry_fraction" json:"reentry_fraction" validate:"gte=0,lte=1"`
	TempPerKg        float64 `yaml:"temp_per_kg" toml:"temp_per_kg" json:"temp_per_kg" validate:"gte=0"`
	MethaneThreshold float64 `yaml:"methane_threshold_c" toml:"methane_threshold_c" json:"methane_threshold_c"`
	MethanePPB       float64 `yaml:"methane_ppb" toml:"methane_ppb" json:"methane_ppb" validate:"gte=0"`
}

// Injection covers the greenhouse gases released by the event itself.
type Injection struct {
	CarbonateCO2PerKg  float64 `yaml:"carbonate_co2_per_kg" toml:"carbonate_co2_per_kg" json:"carbonate_co2_per_kg" validate:"gte=0"`
	DegassingGtCPerKm3 float64 `yaml:"degassing_gtc_per_km3" toml:"degassing_gtc_per_km3" json:"degassing_gtc_per_km3" validate:"gte=0"`
	ThawGtCPerKm3      float64 `yaml:"thaw_gtc_per_km3" toml:"thaw_gtc_per_km3" json:"thaw_gtc_per_km3" validate:"gte=0"`
	ThawPoolGtC        float64 `yaml:"thaw_pool_gtc" toml:"thaw_pool_gtc" json:"thaw_pool_gtc" validate:"gte=0"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks every field constraint and the kind.
func (c *Constants) Validate() error {
	if !c.Kind.Valid() {
		return fmt.Errorf("%w: %w", ErrInvalidConstants, ErrUnknownKind)
	}
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return fmt.Errorf("%w: %s failed %q", ErrInvalidConstants, verrs[0].Namespace(), verrs[0].Tag())
		}
		return fmt.Errorf("%w: %v", ErrInvalidConstants, err)
	}
	return nil
}

// HasThawPool reports whether methane releases draw from a finite reservoir.
func (c *Constants) HasThawPool() bool { return c.Injection.ThawPoolGtC > 0 }
