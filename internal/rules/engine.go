package rules

import (
	"cmp"
	"slices"

	"github.com/bher20/eimpactmanager/internal/calc"
)

// DefaultLimit is the number of recommendations returned.
const DefaultLimit = 8

// minROIMonths floors the payback estimate of a rule.
const minROIMonths = 6

// Request is the business data the engine ranks rules against.
type Request struct {
	Profile calc.BusinessProfile `json:"profile"`
	Usage   calc.EnergyUsage     `json:"usage"`
	Goals   []string             `json:"sustainability_goals"`
}

// Recommendation is one ranked rule with its estimates. CO2 reduction is in
// tons per year.
type Recommendation struct {
	ID                    string                      `json:"id"`
	Title                 string                      `json:"title"`
	Description           string                      `json:"description"`
	Category              string                      `json:"category"`
	Difficulty            calc.Difficulty             `json:"difficulty"`
	EstimatedCostSavings  float64                     `json:"estimated_cost_savings"`
	EstimatedCO2Reduction float64                     `json:"estimated_co2_reduction"`
	ImplementationCost    float64                     `json:"implementation_cost"`
	ROIMonths             int                         `json:"roi_months"`
	PriorityScore         float64                     `json:"priority_score"`
	Metrics               *calc.RecommendationMetrics `json:"metrics,omitempty"`
}

// Result is the ranked list plus totals across it.
type Result struct {
	Industry                Industry         `json:"industry"`
	CompanySize             CompanySize      `json:"company_size"`
	Goals                   []GoalCategory   `json:"goals"`
	Recommendations         []Recommendation `json:"recommendations"`
	TotalPotentialSavings   float64          `json:"total_potential_savings"`
	TotalCO2ReductionTons   float64          `json:"total_co2_reduction"`
	TotalImplementationCost float64          `json:"total_implementation_cost"`
}

// Engine filters the rule set against a business and ranks what applies.
type Engine struct {
	calc    *calc.Calculator
	rules   []Rule
	ladders calc.PriorityLadders
	limit   int
	metrics bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithRules replaces the built-in rules.
func WithRules(rules []Rule) Option {
	return func(e *Engine) { e.rules = rules }
}

// WithLimit caps the number of recommendations. Non-positive means no cap.
func WithLimit(n int) Option {
	return func(e *Engine) { e.limit = n }
}

// WithMetrics attaches the full calculator evaluation to every
// recommendation.
func WithMetrics() Option {
	return func(e *Engine) { e.metrics = true }
}

// RuleLadders is the priority heuristic used to rank rules. It rewards fast
// payback, large savings and heavy usage and ignores CO2 and difficulty.
func RuleLadders() calc.PriorityLadders {
	return calc.PriorityLadders{
		Payback:     []calc.Rung{{Threshold: 12, Adjust: 0.2}, {Threshold: 24, Adjust: 0.1}},
		SlowPayback: calc.Rung{Threshold: 48, Adjust: -0.1},
		Savings:     []calc.Rung{{Threshold: 10000, Adjust: 0.15}, {Threshold: 5000, Adjust: 0.1}, {Threshold: 2000, Adjust: 0.05}},
		Usage:       []calc.Rung{{Threshold: 5000, Adjust: 0.1}},
		Min:         0.1,
		Max:         1.0,
	}
}

// NewEngine returns an engine pricing usage through c.
func NewEngine(c *calc.Calculator, opts ...Option) *Engine {
	if c == nil {
		c = calc.New(nil)
	}
	e := &Engine{
		calc:    c,
		rules:   DefaultRules(),
		ladders: RuleLadders(),
		limit:   DefaultLimit,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Rules returns the engine's rule set.
func (e *Engine) Rules() []Rule {
	return slices.Clone(e.rules)
}

// Recommend returns the applicable rules for req, highest priority first.
// Rules with equal priority keep their rule-set order.
func (e *Engine) Recommend(req Request) Result {
	res := Result{
		Industry:        CategorizeIndustry(req.Profile.Industry),
		CompanySize:     CategorizeSize(req.Profile.CompanySize),
		Goals:           CategorizeGoals(req.Goals),
		Recommendations: []Recommendation{},
	}

	cost := e.calc.Cost(req.Usage, req.Profile.Location)
	carbon := e.calc.Carbon(req.Usage, req.Profile.Location)
	energyCost := cost.AnnualElectricity + cost.AnnualGas

	for _, r := range e.rules {
		if !r.Applies(req.Usage, res.Industry, res.CompanySize, res.Goals) {
			continue
		}
		res.Recommendations = append(res.Recommendations, e.evaluate(r, req, energyCost, carbon.AnnualTotalTons))
	}

	slices.SortStableFunc(res.Recommendations, func(a, b Recommendation) int {
		return cmp.Compare(b.PriorityScore, a.PriorityScore)
	})
	if e.limit > 0 && len(res.Recommendations) > e.limit {
		res.Recommendations = res.Recommendations[:e.limit]
	}

	for _, rec := range res.Recommendations {
		res.TotalPotentialSavings += rec.EstimatedCostSavings
		res.TotalCO2ReductionTons += rec.EstimatedCO2Reduction
		res.TotalImplementationCost += rec.ImplementationCost
	}
	res.TotalPotentialSavings = calc.Round(res.TotalPotentialSavings, 2)
	res.TotalCO2ReductionTons = calc.Round(res.TotalCO2ReductionTons, 2)
	res.TotalImplementationCost = calc.Round(res.TotalImplementationCost, 2)
	return res
}

func (e *Engine) evaluate(r Rule, req Request, energyCost, co2Tons float64) Recommendation {
	savings := energyCost * r.CostSavingsFactor
	implCost := savings * r.CostFactor

	roiMonths := r.BaseROIMonths
	if savings > 0 {
		roiMonths = max(minROIMonths, int(implCost/savings*12))
	}

	ladders := e.ladders.WithBase(r.BasePriority)
	rec := Recommendation{
		ID:                    r.ID,
		Title:                 r.Title,
		Description:           r.Description,
		Category:              r.Category,
		Difficulty:            r.Difficulty,
		EstimatedCostSavings:  calc.Round(savings, 2),
		EstimatedCO2Reduction: calc.Round(co2Tons*r.CO2ReductionFactor, 2),
		ImplementationCost:    calc.Round(implCost, 2),
		ROIMonths:             roiMonths,
		PriorityScore:         ladders.Score(calc.Defined(float64(roiMonths)), savings, 0, r.Difficulty, req.Usage.MonthlyKWh),
	}

	if e.metrics {
		m := e.calc.Recommend(calc.ProjectInput{
			ID:                  r.ID,
			Title:               r.Title,
			Category:            r.Category,
			Difficulty:          r.Difficulty,
			SavingsPercent:      r.CostSavingsFactor,
			CO2ReductionPercent: r.CO2ReductionFactor,
			ImplementationCost:  implCost,
			PriorityBase:        r.BasePriority,
		}, req.Profile, req.Usage)
		rec.Metrics = &m
	}
	return rec
}
