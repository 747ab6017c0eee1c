// Package scaling derives the initial conditions of a forcing event from its
// physical parameters: energy, crater or caldera size, particulate mass and
// its fine/coarse split, and initial optical depth.
package scaling

import (
	"errors"
	"fmt"
	"math"

	"github.com/go-playground/validator/v10"

	"github.com/san-kum/aftermath/internal/climate"
	"github.com/san-kum/aftermath/internal/scenario"
)

var ErrInvalidParameters = errors.New("scaling: invalid event parameters")

// Calibration holds the empirical scaling constants.
type Calibration struct {
	JoulesPerGT float64

	// crater D = RefKm * (E_GT / RefGT)^Exponent
	CraterRefGT         float64
	CraterRefKm         float64
	CraterExponent      float64
	OceanicDensityRatio float64
	DustPerImpactorKg   float64

	// caldera D = RefKm * (V / RefKm3)^Exponent, times SuperFactor at VEI >= SuperVEI
	CalderaRefKm3    float64
	CalderaRefKm     float64
	CalderaExponent  float64
	SuperVEI         int
	SuperFactor      float64
	AshKgPerKm3      float64
	SO2TgPerKm3      float64
	EruptionJPerKg   float64
	MagmaDensityKgM3 float64
}

// DefaultCalibration is calibrated to a ~100 km crater at 100 GT and a
// Toba-scale caldera at a few thousand km³.
func DefaultCalibration() Calibration {
	return Calibration{
		JoulesPerGT:         4.184e18,
		CraterRefGT:         100,
		CraterRefKm:         100,
		CraterExponent:      0.3,
		OceanicDensityRatio: 3000.0 / 2700.0,
		DustPerImpactorKg:   100,
		CalderaRefKm3:       100,
		CalderaRefKm:        20,
		CalderaExponent:     0.4,
		SuperVEI:            8,
		SuperFactor:         1.5,
		AshKgPerKm3:         1e12,
		SO2TgPerKm3:         5e6,
		EruptionJPerKg:      1e12,
		MagmaDensityKgM3:    2500,
	}
}

// Impact describes an impactor. Angle is recorded but does not enter the
// scaling laws.
type Impact struct {
	DiameterKm  float64         `json:"diameter_km" yaml:"diameter_km" toml:"diameter_km" validate:"gt=0"`
	DensityKgM3 float64         `json:"density_kg_m3" yaml:"density_kg_m3" toml:"density_kg_m3" validate:"gt=0"`
	VelocityMS  float64         `json:"velocity_m_s" yaml:"velocity_m_s" toml:"velocity_m_s" validate:"gt=0"`
	AngleDeg    float64         `json:"angle_deg" yaml:"angle_deg" toml:"angle_deg" validate:"gte=0,lte=90"`
	Target      scenario.Target `json:"target" yaml:"target" toml:"target"`
}

// Eruption describes an eruption by erupted volume and explosivity index.
type Eruption struct {
	VolumeKm3 float64 `json:"volume_km3" yaml:"volume_km3" toml:"volume_km3" validate:"gt=0"`
	VEI       int     `json:"vei" yaml:"vei" toml:"vei" validate:"gte=0,lte=8"`
}

var validate = validator.New()

func check(v any) error {
	if err := validate.Struct(v); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return fmt.Errorf("%w: %s must satisfy %s=%s", ErrInvalidParameters, verrs[0].Field(), verrs[0].Tag(), verrs[0].Param())
		}
		return fmt.Errorf("%w: %v", ErrInvalidParameters, err)
	}
	return nil
}

// ImpactorMass in kg.
func ImpactorMass(diameterKm, density float64) float64 {
	r := diameterKm * 1000 / 2
	return 4.0 / 3.0 * math.Pi * r * r * r * density
}

// ImpactEnergy is the kinetic energy in joules.
func ImpactEnergy(diameterKm, density, velocity float64) float64 {
	return 0.5 * ImpactorMass(diameterKm, density) * velocity * velocity
}

// CraterDiameter in km for an impact of energyJ.
func (cal Calibration) CraterDiameter(energyJ float64, target scenario.Target) float64 {
	gt := math.Max(energyJ, 0) / cal.JoulesPerGT
	d := cal.CraterRefKm * math.Pow(gt/cal.CraterRefGT, cal.CraterExponent)
	if target == scenario.Oceanic {
		d *= math.Cbrt(cal.OceanicDensityRatio)
	}
	return d
}

// CalderaDiameter in km for an erupted volume.
func (cal Calibration) CalderaDiameter(volumeKm3 float64, vei int) float64 {
	d := cal.CalderaRefKm * math.Pow(math.Max(volumeKm3, 0)/cal.CalderaRefKm3, cal.CalderaExponent)
	if vei >= cal.SuperVEI {
		d *= cal.SuperFactor
	}
	return d
}

// EruptionEnergy is the thermal plus explosive energy equivalent in joules.
func (cal Calibration) EruptionEnergy(volumeKm3 float64) float64 {
	return cal.EruptionJPerKg * volumeKm3 * 1e9 * cal.MagmaDensityKgM3
}

// ImpactConditions derives the initial conditions of an asteroid impact.
func (cal Calibration) ImpactConditions(p Impact, c *scenario.Constants) (climate.Conditions, error) {
	if err := check(p); err != nil {
		return climate.Conditions{}, err
	}
	energy := ImpactEnergy(p.DiameterKm, p.DensityKgM3, p.VelocityMS)
	part := cal.DustPerImpactorKg * ImpactorMass(p.DiameterKm, p.DensityKgM3)
	return split(c, climate.Conditions{
		EnergyJ:       energy,
		EnergyGT:      energy / cal.JoulesPerGT,
		StructureKm:   cal.CraterDiameter(energy, p.Target),
		ParticulateKg: part,
		Magnitude:     energy / cal.JoulesPerGT,
		Target:        p.Target,
	}), nil
}

// EruptionConditions derives the initial conditions of a supervolcanic eruption.
func (cal Calibration) EruptionConditions(p Eruption, c *scenario.Constants) (climate.Conditions, error) {
	if err := check(p); err != nil {
		return climate.Conditions{}, err
	}
	energy := cal.EruptionEnergy(p.VolumeKm3)
	return split(c, climate.Conditions{
		EnergyJ:       energy,
		EnergyGT:      energy / cal.JoulesPerGT,
		StructureKm:   cal.CalderaDiameter(p.VolumeKm3, p.VEI),
		ParticulateKg: cal.AshKgPerKm3 * p.VolumeKm3,
		SO2Tg:         cal.SO2TgPerKm3 * p.VolumeKm3,
		Magnitude:     p.VolumeKm3,
		Target:        scenario.Continental,
	}), nil
}

func split(c *scenario.Constants, cond climate.Conditions) climate.Conditions {
	cond.FineKg = cond.ParticulateKg * c.Aerosol.FineFraction
	cond.CoarseKg = cond.ParticulateKg - cond.FineKg
	cond.InitialTau = climate.OpticalDepth(c.Aerosol, cond.FineKg)
	return cond
}
