package tracking

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/bher20/eimpactmanager/internal/calc"
)

// Portfolio rolls up ROI across a user's implementations.
type Portfolio struct {
	Implementations      int            `json:"total_implementations"`
	TotalInvestment      float64        `json:"total_investment"`
	TotalCurrentValue    float64        `json:"total_current_value"`
	TotalAnnualSavings   float64        `json:"total_annual_savings"`
	PortfolioROIPct      float64        `json:"portfolio_roi"`
	AveragePaybackMonths float64        `json:"average_payback_months"`
	AverageEfficiency    float64        `json:"average_efficiency"`
	StatusCounts         map[Status]int `json:"status_counts"`
	Items                []ROIMetrics   `json:"implementations"`
}

// Aggregate sums cost, value and savings and takes unweighted means of
// payback and efficiency. An empty input yields all zeros.
func Aggregate(metrics []ROIMetrics) Portfolio {
	p := Portfolio{
		Implementations: len(metrics),
		StatusCounts:    make(map[Status]int, len(Statuses)),
		Items:           append([]ROIMetrics{}, metrics...),
	}
	for _, st := range Statuses {
		p.StatusCounts[st] = 0
	}
	if len(metrics) == 0 {
		return p
	}

	investment := make([]float64, len(metrics))
	value := make([]float64, len(metrics))
	savings := make([]float64, len(metrics))
	payback := make([]float64, len(metrics))
	efficiency := make([]float64, len(metrics))
	for i, m := range metrics {
		investment[i] = m.ImpliedCost
		value[i] = m.CurrentValue
		savings[i] = m.EstimatedAnnualSavings
		payback[i] = m.EstimatedROIMonths
		efficiency[i] = m.EfficiencyScore
		p.StatusCounts[m.Status]++
	}

	p.TotalInvestment = calc.Round(floats.Sum(investment), 2)
	p.TotalCurrentValue = calc.Round(floats.Sum(value), 2)
	p.TotalAnnualSavings = calc.Round(floats.Sum(savings), 2)
	if p.TotalInvestment > 0 {
		p.PortfolioROIPct = calc.Round(p.TotalCurrentValue/p.TotalInvestment*100, 1)
	}
	p.AveragePaybackMonths = calc.Round(stat.Mean(payback, nil), 1)
	p.AverageEfficiency = calc.Round(stat.Mean(efficiency, nil), 1)
	return p
}
