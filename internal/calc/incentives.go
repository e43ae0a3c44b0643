package calc

import (
	"math"

	"github.com/bher20/eimpactmanager/internal/factors"
)

// IncentiveSummary is the result of stacking every eligible incentive
// against a project cost.
type IncentiveSummary struct {
	Applicable               []AppliedIncentive `json:"applicable_incentives"`
	TotalValue               float64            `json:"total_incentive_value"`
	PostIncentiveCost        float64            `json:"post_incentive_cost"`
	PostIncentiveCostClamped float64            `json:"post_incentive_cost_clamped"`
	PaybackReductionPct      float64            `json:"optimized_payback_reduction"`
}

// AppliedIncentive is an eligible incentive and what it is worth for the
// project.
type AppliedIncentive struct {
	factors.Incentive
	AppliedValue float64 `json:"applied_value"`
}

// OptimizeIncentives sums all incentives eligible for category. Percentage
// incentives are worth a share of cost, capped at MaxValue; flat incentives
// are worth Value and are never capped. No stacking limit is applied, so the
// total may exceed the cost.
func OptimizeIncentives(category string, cost float64, list []factors.Incentive) IncentiveSummary {
	applied := make([]AppliedIncentive, 0, len(list))
	total := 0.0
	for _, inc := range list {
		if !inc.Eligible(category) {
			continue
		}
		v := incentiveValue(inc, cost)
		total += v
		applied = append(applied, AppliedIncentive{Incentive: inc, AppliedValue: Round(v, 2)})
	}

	reduction := 0.0
	if cost > 0 {
		reduction = total / cost * 100
	}
	post := cost - total

	return IncentiveSummary{
		Applicable:               applied,
		TotalValue:               Round(total, 2),
		PostIncentiveCost:        Round(post, 2),
		PostIncentiveCostClamped: Round(math.Max(post, 0), 2),
		PaybackReductionPct:      Round(reduction, 1),
	}
}

func incentiveValue(inc factors.Incentive, cost float64) float64 {
	if inc.Percentage == nil {
		return inc.Value
	}
	v := cost * *inc.Percentage / 100
	if inc.MaxValue != nil {
		v = math.Min(v, *inc.MaxValue)
	}
	return v
}
