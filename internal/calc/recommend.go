package calc

import "github.com/bher20/eimpactmanager/internal/factors"

// hoursPerMonth converts monthly kWh to average kW.
const hoursPerMonth = 730

// ProjectInput is a candidate project to evaluate. Percentages are fractions.
// CO2ReductionPercent defaults to SavingsPercent; PriorityBase defaults to the
// ladder base.
type ProjectInput struct {
	ID                  string     `json:"id"`
	Title               string     `json:"title"`
	Category            string     `json:"category"`
	Difficulty          Difficulty `json:"difficulty"`
	SavingsPercent      float64    `json:"savings_percent"`
	CO2ReductionPercent float64    `json:"co2_reduction_percent,omitempty"`
	ImplementationCost  float64    `json:"implementation_cost"`
	MaintenanceSavings  float64    `json:"maintenance_savings,omitempty"`
	PriorityBase        float64    `json:"priority_base,omitempty"`
}

type FinancialMetrics struct {
	AnnualCostSavings         float64 `json:"annual_cost_savings"`
	ImplementationCost        float64 `json:"implementation_cost"`
	ROIMonths                 Figure  `json:"roi_months"`
	BreakEvenYears            Figure  `json:"break_even_year"`
	NetPresentValue           float64 `json:"net_present_value"`
	InternalRateOfReturn      Figure  `json:"internal_rate_of_return"`
	SimpleReturnApproximation bool    `json:"simple_return_approximation"`
}

type EnvironmentalMetrics struct {
	AnnualCO2ReductionTons float64     `json:"annual_co2_reduction_tons"`
	AnnualCO2ReductionPct  float64     `json:"annual_co2_reduction_percent"`
	Equivalents            Equivalents `json:"equivalents"`
}

type TechnicalMetrics struct {
	EnergySavingsKWh      float64 `json:"energy_savings_kwh"`
	EnergySavingsPct      float64 `json:"energy_savings_percent"`
	PeakDemandReductionKW float64 `json:"peak_demand_reduction_kw"`
}

type ImplementationMetrics struct {
	Difficulty        Difficulty `json:"difficulty"`
	PriorityScore     float64    `json:"priority_score"`
	RiskLevel         string     `json:"risk_level"`
	MaintenanceImpact float64    `json:"maintenance_impact"`
}

type IncentiveMetrics struct {
	Available            []AppliedIncentive `json:"available_incentives"`
	TotalValue           float64            `json:"total_incentive_value"`
	PostIncentiveCost    float64            `json:"post_incentive_cost"`
	PostIncentivePayback Figure             `json:"post_incentive_payback"`
}

// RecommendationMetrics is the full evaluation of one project for one
// business. It is built fresh for every request.
type RecommendationMetrics struct {
	ID             string                `json:"id"`
	Title          string                `json:"title"`
	Category       string                `json:"category"`
	Financial      FinancialMetrics      `json:"financial"`
	Environmental  EnvironmentalMetrics  `json:"environmental"`
	Technical      TechnicalMetrics      `json:"technical"`
	Implementation ImplementationMetrics `json:"implementation"`
	Incentives     IncentiveMetrics      `json:"incentives"`
}

// Recommend evaluates p for the business and its usage. All lookups use one
// snapshot of the factor set.
func (c *Calculator) Recommend(p ProjectInput, profile BusinessProfile, u EnergyUsage) RecommendationMetrics {
	set := c.registry.Current()
	region := set.Regions.Resolve(profile.Location)
	industry := set.Industries.Resolve(profile.Industry)

	cost := Cost(u, region)
	carbon := Carbon(u, region)
	roi := analyzeROI(ROIInput{
		SavingsPercent:     p.SavingsPercent,
		ImplementationCost: p.ImplementationCost,
		MaintenanceSavings: p.MaintenanceSavings,
	}, cost, carbon, c.assumptions)

	co2Pct := p.CO2ReductionPercent
	if co2Pct == 0 {
		co2Pct = p.SavingsPercent
	}
	co2Tons := Round(carbon.AnnualTotalTons*co2Pct, 2)

	ladders := c.ladders
	if p.PriorityBase > 0 {
		ladders = ladders.WithBase(p.PriorityBase)
	}
	difficulty := p.Difficulty
	if difficulty == "" {
		difficulty = Medium
	}

	incentives := OptimizeIncentives(p.Category, p.ImplementationCost, c.incentivesFor(set, profile.Location))
	postPayback := Undefined()
	if roi.AnnualSavings > 0 {
		postPayback = Defined(Round(incentives.PostIncentiveCostClamped/(roi.AnnualSavings/12), 1))
	}

	return RecommendationMetrics{
		ID:       p.ID,
		Title:    p.Title,
		Category: p.Category,
		Financial: FinancialMetrics{
			AnnualCostSavings:         roi.AnnualSavings,
			ImplementationCost:        Round(p.ImplementationCost, 2),
			ROIMonths:                 roi.PaybackMonths,
			BreakEvenYears:            roi.BreakEvenYears,
			NetPresentValue:           roi.NetPresentValue,
			InternalRateOfReturn:      roi.SimpleReturnPct,
			SimpleReturnApproximation: roi.SimpleReturnApproximation,
		},
		Environmental: EnvironmentalMetrics{
			AnnualCO2ReductionTons: co2Tons,
			AnnualCO2ReductionPct:  Round(co2Pct*100, 2),
			Equivalents:            EquivalentsFor(co2Tons),
		},
		Technical: TechnicalMetrics{
			EnergySavingsKWh:      Round(u.MonthlyKWh*12*p.SavingsPercent, 2),
			EnergySavingsPct:      Round(p.SavingsPercent*100, 2),
			PeakDemandReductionKW: Round(peakReduction(u, industry, p.SavingsPercent), 1),
		},
		Implementation: ImplementationMetrics{
			Difficulty:        difficulty,
			PriorityScore:     ladders.Score(roi.PaybackMonths, roi.AnnualSavings, co2Tons, difficulty, u.MonthlyKWh),
			RiskLevel:         difficulty.Risk(),
			MaintenanceImpact: Round(p.MaintenanceSavings, 2),
		},
		Incentives: IncentiveMetrics{
			Available:            incentives.Applicable,
			TotalValue:           incentives.TotalValue,
			PostIncentiveCost:    incentives.PostIncentiveCost,
			PostIncentivePayback: postPayback,
		},
	}
}

// peakReduction uses the metered peak when known, otherwise estimates it from
// average load and the industry's utilization and peak-demand factors.
func peakReduction(u EnergyUsage, p factors.IndustryProfile, pct float64) float64 {
	if u.PeakDemandKW > 0 {
		return u.PeakDemandKW * pct
	}
	if p.Utilization <= 0 {
		return 0
	}
	return u.MonthlyKWh / hoursPerMonth / p.Utilization * p.PeakDemandFactor * pct
}
