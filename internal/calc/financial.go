package calc

import (
	"math"

	"github.com/bher20/eimpactmanager/internal/factors"
)

// FinancialAssumptions fixes the discounting used for NPV.
type FinancialAssumptions struct {
	DiscountRate float64 `json:"discount_rate" yaml:"discount_rate"`
	HorizonYears int     `json:"horizon_years" yaml:"horizon_years"`
}

// DefaultAssumptions discounts at 7% over ten years.
func DefaultAssumptions() FinancialAssumptions {
	return FinancialAssumptions{DiscountRate: 0.07, HorizonYears: 10}
}

// ROIInput describes a proposed project. SavingsPercent is a fraction of the
// annual energy cost (0.25 for 25%).
type ROIInput struct {
	SavingsPercent     float64 `json:"savings_percent"`
	ImplementationCost float64 `json:"implementation_cost"`
	MaintenanceSavings float64 `json:"maintenance_savings,omitempty"`
}

// ROIResult is the financial analysis of a project.
//
// SimpleReturnPct is annualSavings/cost - 1 as a percentage. It is reported
// under the name internal_rate_of_return for compatibility, but it is a
// simple-return proxy and not a root-solved IRR.
type ROIResult struct {
	EnergySavings             float64 `json:"energy_savings"`
	AnnualSavings             float64 `json:"annual_savings"`
	PaybackMonths             Figure  `json:"roi_months"`
	BreakEvenYears            Figure  `json:"break_even_year"`
	NetPresentValue           float64 `json:"net_present_value"`
	SimpleReturnPct           Figure  `json:"internal_rate_of_return"`
	SimpleReturnApproximation bool    `json:"simple_return_approximation"`
	CO2ReductionTons          float64 `json:"total_co2_reduction"`
}

func analyzeROI(in ROIInput, cost EnergyCost, carbon CarbonFootprint, a FinancialAssumptions) ROIResult {
	energySavings := cost.AnnualTotal * in.SavingsPercent
	annual := energySavings + in.MaintenanceSavings

	payback := Undefined()
	if annual > 0 {
		payback = Defined(in.ImplementationCost / (annual / 12))
	}
	breakEven := Undefined()
	if payback.Defined {
		breakEven = Defined(payback.Value / 12)
	}

	simple := Undefined()
	if in.ImplementationCost > 0 {
		simple = Defined((annual/in.ImplementationCost - 1) * 100)
	}

	return ROIResult{
		EnergySavings:             Round(energySavings, 2),
		AnnualSavings:             Round(annual, 2),
		PaybackMonths:             roundFigure(payback, 1),
		BreakEvenYears:            roundFigure(breakEven, 1),
		NetPresentValue:           Round(npv(annual, in.ImplementationCost, a), 2),
		SimpleReturnPct:           roundFigure(simple, 2),
		SimpleReturnApproximation: true,
		CO2ReductionTons:          Round(carbon.AnnualTotalTons*in.SavingsPercent, 2),
	}
}

func npv(annual, cost float64, a FinancialAssumptions) float64 {
	v := -cost
	for year := 1; year <= a.HorizonYears; year++ {
		v += annual / math.Pow(1+a.DiscountRate, float64(year))
	}
	return v
}

// ROI analyses a project against the usage priced in the given region.
func ROI(in ROIInput, u EnergyUsage, f factors.RegionalFactors, a FinancialAssumptions) ROIResult {
	return analyzeROI(in, Cost(u, f), Carbon(u, f), a)
}

// PaybackFromSavings returns months until cost is recovered. Zero savings
// are undefined; negative savings give -cost/savings*12.
func PaybackFromSavings(annualSavings, cost float64) Figure {
	switch {
	case annualSavings == 0:
		return Undefined()
	case annualSavings < 0:
		return Defined(-cost / annualSavings * 12)
	default:
		return Defined(cost / annualSavings * 12)
	}
}

// NPVOfCashFlows discounts yearly cash flows, the first one year out, and
// subtracts the initial investment. Rounded to cents.
func NPVOfCashFlows(flows []float64, rate, initial float64) float64 {
	v := -initial
	for i, cf := range flows {
		v += cf / math.Pow(1+rate, float64(i+1))
	}
	return Round(v, 2)
}
