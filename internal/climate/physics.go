package climate

import (
	"math"

	"github.com/san-kum/aftermath/internal/scenario"
)

// Physical constants.
const (
	EarthRadiusM     = 6.371e6
	AtmosphereMassKg = 5.15e18
	KelvinOffset     = 273.15

	MolarMassAir    = 28.97e-3 // kg/mol
	MolarMassCO2    = 44.01e-3
	MolarMassCarbon = 12.011e-3

	// GtCToPPM converts a gigatonne of carbon to atmospheric CO2 ppm.
	GtCToPPM = 1.0 / 2.12

	// PPBPerGtCMethane converts a gigatonne of carbon as CH4 to ppb.
	PPBPerGtCMethane = (1e12 / MolarMassCarbon) / (AtmosphereMassKg / MolarMassAir) * 1e9
)

// Hard floors and clamps.
const (
	CO2FloorPPM = 180.0
	DICFloor    = 1e-6
	HydrogenMin = 1e-10
	PHMin       = 6.0
	PHMax       = 8.5
)

func clamp(v, lo, hi float64) float64 {
	return math.Min(hi, math.Max(lo, v))
}

// relax moves x toward target with e-folding time tau. Exact for a constant
// target, so it stays stable when dt exceeds tau. To first order in dt/tau
// it reduces to the Euler update x + (target-x)*dt/tau.
func relax(x, target, dt, tau float64) float64 {
	return x + (target-x)*-math.Expm1(-dt/tau)
}

// OpticalDepth spreads the fine particulate over a hemisphere-equivalent area.
func OpticalDepth(a scenario.Aerosol, fineKg float64) float64 {
	if fineKg <= 0 {
		return 0
	}
	return a.ExtinctionM2PerKg * fineKg / (2 * math.Pi * EarthRadiusM * EarthRadiusM)
}

// DustCooling is the temperature target from aerosol shading. Never positive.
func DustCooling(a scenario.Aerosol, tau float64) float64 {
	return -a.CoolingScaleC * math.Log1p(math.Max(tau, 0))
}

// CO2Forcing in W/m².
func CO2Forcing(g scenario.Greenhouse, b scenario.Baseline, co2ppm float64) float64 {
	return g.CO2Coeff * math.Log(math.Max(co2ppm, CO2FloorPPM)/b.CO2ppm)
}

// MethaneForcing in W/m².
func MethaneForcing(g scenario.Greenhouse, b scenario.Baseline, ch4ppb float64) float64 {
	return g.CH4Coeff * (math.Sqrt(math.Max(ch4ppb, 0)) - math.Sqrt(b.CH4ppb))
}

// GreenhouseWarming is the equilibrium anomaly from CO2 and CH4 forcing.
func GreenhouseWarming(c *scenario.Constants, co2ppm, ch4ppb float64) float64 {
	f := CO2Forcing(c.Greenhouse, c.Baseline, co2ppm) + MethaneForcing(c.Greenhouse, c.Baseline, ch4ppb)
	return c.Greenhouse.Sensitivity * f
}

// WeatheringRate returns silicate weathering drawdown in GtC/yr. The
// Arrhenius exponent is capped so extreme heat cannot overflow.
func WeatheringRate(w scenario.Weathering, tempK, co2ppm float64) float64 {
	arg := math.Min(w.Activation*(tempK-w.RefTempK), w.MaxExponent)
	co2ppm = math.Max(co2ppm, 0)
	return w.BaseGtCPerYear * math.Exp(arg) * co2ppm / (co2ppm + w.HalfSatPPM)
}

// MethaneLifetime shortens under heavy aerosol loading (UV photolysis).
func MethaneLifetime(m scenario.Methane, tau float64) float64 {
	if tau > m.UVTauThreshold {
		return m.LifetimeYears * m.UVFactor
	}
	return m.LifetimeYears
}

// CarbonatePH maps the DIC/ALK ratio to surface ocean pH.
func CarbonatePH(o scenario.Ocean, dic, alk float64) float64 {
	ratio := clamp(math.Max(dic, DICFloor)/math.Max(alk, DICFloor), o.RatioMin, o.RatioMax)
	h := math.Max(HydrogenMin, ratio*1e-8)
	return clamp(-math.Log10(h), PHMin, PHMax)
}

// OmoriIntensity is the normalised seismic intensity elapsed years after the event.
func OmoriIntensity(s scenario.Seismic, elapsed float64) float64 {
	return 1 / (1 + s.OmoriK*math.Pow(math.Max(elapsed, 0), s.OmoriP))
}

// AftershockProbability is the chance of at least one aftershock in dt for a
// Poisson process thinned by intensity.
func AftershockProbability(s scenario.Seismic, intensity, dt float64) float64 {
	return -math.Expm1(-s.AftershockRate * math.Max(intensity, 0) * math.Max(dt, 0))
}

// KillFraction is the share of biodiversity lost to the event itself.
func KillFraction(b scenario.Biosphere, magnitude float64) float64 {
	return -math.Expm1(-b.KillRate * math.Max(magnitude, 0) / b.KillScale)
}

// MagnetosphereDisruption is the field strength right after the event.
func MagnetosphereDisruption(m scenario.Magnetosphere, magnitude float64) float64 {
	return clamp(1-m.Disruption*math.Max(magnitude, 0)/m.Scale, m.Floor, 1)
}

// CarbonateCO2PPM converts vaporised carbonate CO2 mass to ppm.
func CarbonateCO2PPM(co2Kg float64) float64 {
	return math.Max(co2Kg, 0) / AtmosphereMassKg * 1e6 * (MolarMassAir / MolarMassCO2)
}

// Survival is the instantaneous habitability score in [0,1].
func Survival(c *scenario.Constants, anomalyC, ph, tau float64) float64 {
	b := c.Biosphere
	temp := math.Exp(-b.TempStressRate * math.Max(0, anomalyC-b.TempThresholdC))
	acid := clamp((ph-b.PHLow)/(b.PHHigh-b.PHLow), 0, 1)
	ash := math.Exp(-b.AshStressRate * math.Max(tau, 0))
	return clamp(temp*acid*ash, 0, 1)
}
