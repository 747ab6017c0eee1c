package scenario

import "fmt"

func baseline() Baseline {
	return Baseline{
		TempC:  15.0,
		CO2ppm: 280.0,
		CH4ppb: 700.0,
		PH:     8.2,
		DIC:    2.3e-3,
		ALK:    2.4e-3,
	}
}

func greenhouse() Greenhouse {
	return Greenhouse{
		CO2Coeff:        5.35,
		CH4Coeff:        0.036,
		Sensitivity:     0.8,
		RelaxationYears: 2.0,
	}
}

// Defaults returns the canonical constants for a kind. Each call builds a
// fresh value.
func Defaults(kind Kind) (Constants, error) {
	switch kind {
	case AsteroidImpact:
		return asteroidDefaults(), nil
	case SupervolcanoEruption:
		return supervolcanoDefaults(), nil
	default:
		return Constants{}, fmt.Errorf("%w: %d", ErrUnknownKind, int(kind))
	}
}

// MustDefaults is Defaults for kinds known at compile time.
func MustDefaults(kind Kind) Constants {
	c, err := Defaults(kind)
	if err != nil {
		panic(err)
	}
	return c
}

func asteroidDefaults() Constants {
	return Constants{
		Kind:       AsteroidImpact,
		Baseline:   baseline(),
		Greenhouse: greenhouse(),
		Aerosol: Aerosol{
			ExtinctionM2PerKg: 10.0,
			FineFraction:      0.5,
			FineFallout:       0.2,
			CoarseFallout:     5.0,
			CoolingScaleC:     8.0,
		},
		Ocean: Ocean{
			RevelleFactor: 10.0,
			Equilibration: 0.01,
			RatioMin:      0.8,
			RatioMax:      1.2,
		},
		Weathering: Weathering{
			BaseGtCPerYear: 1e-4,
			Activation:     0.05,
			RefTempK:       288.0,
			HalfSatPPM:     500.0,
			MaxExponent:    50.0,
		},
		Methane: Methane{
			LifetimeYears:  10.0,
			UVFactor:       0.5,
			UVTauThreshold: 10.0,
			EquilibriumPPB: 0,
		},
		Magnetosphere: Magnetosphere{
			Disruption:    0.2,
			Scale:         1e6,
			Floor:         0.8,
			RecoveryYears: 100.0,
		},
		Biosphere: Biosphere{
			KillRate:       0.01,
			KillScale:      100.0,
			TempStressRate: 0.1,
			TempThresholdC: 2.0,
			PHLow:          6.5,
			PHHigh:         8.2,
			RecoveryYears:  50.0,
		},
		Seismic: Seismic{
			OmoriK:         0.1,
			OmoriP:         1.0,
			AftershockRate: 0.1,
			Damage:         0.05,
		},
		Pulse: Pulse{
			DelayYears:       0.05,
			ReentryFraction:  0.5,
			TempPerKg:        5.0 / 1e15,
			MethaneThreshold: 30.0,
			MethanePPB:       5.0,
		},
		Injection: Injection{
			// 10x impactor mass vaporised, 10% of it carbonate CO2, impactor
			// mass = particulate/100.
			CarbonateCO2PerKg: 0.01,
		},
	}
}

func supervolcanoDefaults() Constants {
	return Constants{
		Kind:       SupervolcanoEruption,
		Baseline:   baseline(),
		Greenhouse: greenhouse(),
		Aerosol: Aerosol{
			ExtinctionM2PerKg: 8.0,
			FineFraction:      0.4,
			FineFallout:       0.4,
			CoarseFallout:     6.0,
			CoolingScaleC:     8.0,
		},
		Ocean: Ocean{
			RevelleFactor:  10.0,
			Equilibration:  0.01,
			RatioMin:       0.8,
			RatioMax:       1.2,
			AshMixingRate:  0.3,
			AshMixingScale: 1e-3,
			AshMixingYears: 1.0,
		},
		Weathering: Weathering{
			BaseGtCPerYear: 5e-5,
			Activation:     0.03,
			RefTempK:       288.0,
			HalfSatPPM:     500.0,
			MaxExponent:    50.0,
		},
		Methane: Methane{
			LifetimeYears:  10.0,
			UVFactor:       0.5,
			UVTauThreshold: 10.0,
			EquilibriumPPB: 0,
		},
		Magnetosphere: Magnetosphere{
			Disruption:    0.05,
			Scale:         1000.0,
			Floor:         0.95,
			RecoveryYears: 200.0,
		},
		Biosphere: Biosphere{
			KillRate:       0.005,
			KillScale:      1000.0,
			TempStressRate: 0.1,
			TempThresholdC: 2.0,
			PHLow:          6.5,
			PHHigh:         8.2,
			AshStressRate:  0.05,
			RecoveryYears:  40.0,
		},
		Seismic: Seismic{
			OmoriK:          0.12,
			OmoriP:          1.05,
			AftershockRate:  0.1,
			Damage:          0.05,
			QuakeMethanePPB: 100.0,
		},
		Pulse: Pulse{
			DelayYears:       0.1,
			ReentryFraction:  0.3,
			TempPerKg:        3.0 / 1e15,
			MethaneThreshold: 25.0,
			MethanePPB:       3.0,
		},
		Injection: Injection{
			DegassingGtCPerKm3: 0.05,
			ThawGtCPerKm3:      1e-4,
			ThawPoolGtC:        500.0,
		},
	}
}
