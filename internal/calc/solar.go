package calc

import "github.com/bher20/eimpactmanager/internal/factors"

const (
	// DefaultRoofUsablePct is the share of the facility footprint assumed
	// usable for panels when the caller has no better figure.
	DefaultRoofUsablePct = 0.6

	wattsPerSqft     = 7
	installCostPerKW = 2500
)

// SolarEstimate sizes a rooftop system.
type SolarEstimate struct {
	SystemSizeKW     float64 `json:"estimated_system_size_kw"`
	AnnualGeneration float64 `json:"annual_generation_kwh"`
	AnnualSavings    float64 `json:"annual_savings"`
	EstimatedCost    float64 `json:"estimated_cost"`
	ROIYears         Figure  `json:"roi_years"`
	CO2OffsetTons    float64 `json:"co2_offset_tons"`
}

// Solar estimates a rooftop installation. An explicit roofUsablePct of 0
// yields an empty system with undefined payback.
func Solar(sqft, roofUsablePct float64, f factors.RegionalFactors) SolarEstimate {
	kw := sqft * roofUsablePct * wattsPerSqft / 1000
	kwh := kw * f.SolarPotential
	savings := kwh * f.ElectricityRate
	cost := kw * installCostPerKW

	roi := Undefined()
	if savings > 0 {
		roi = Defined(Round(cost/savings, 1))
	}

	return SolarEstimate{
		SystemSizeKW:     Round(kw, 1),
		AnnualGeneration: Round(kwh, 0),
		AnnualSavings:    Round(savings, 2),
		EstimatedCost:    Round(cost, 2),
		ROIYears:         roi,
		CO2OffsetTons:    Round(kwh*f.CO2PerKWh/lbsPerTon, 2),
	}
}
