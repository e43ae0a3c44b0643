package goals

import (
	"strings"

	"github.com/bher20/eimpactmanager/internal/tracking"
)

// Source selects which estimate of an implementation drives a goal impact.
type Source string

const (
	SourceSavings Source = "savings" // estimated annual savings, USD
	SourceCO2     Source = "co2"     // estimated CO2 reduction, tons/year
)

// Target is one goal category fed by an implementation category. The
// multipliers are business heuristics, not measured conversions.
type Target struct {
	GoalCategory string  `json:"goal_category" yaml:"goal_category"`
	Source       Source  `json:"source" yaml:"source"`
	Multiplier   float64 `json:"multiplier" yaml:"multiplier"`
	Unit         string  `json:"unit" yaml:"unit"`
}

// Impact is the raw impact of impl on the target, in the target's unit.
func (t Target) Impact(impl tracking.Implementation) float64 {
	switch t.Source {
	case SourceCO2:
		return impl.EstimatedCO2Reduction * t.Multiplier
	default:
		return impl.EstimatedAnnualSavings * t.Multiplier
	}
}

// ImpactTable maps implementation categories (case-insensitive) to goal
// targets.
type ImpactTable struct {
	targets map[string][]Target
}

func NewImpactTable(m map[string][]Target) *ImpactTable {
	t := &ImpactTable{targets: make(map[string][]Target, len(m))}
	for k, v := range m {
		t.targets[strings.ToLower(strings.TrimSpace(k))] = append([]Target(nil), v...)
	}
	return t
}

// Targets returns the targets of an implementation category, or nil.
func (t *ImpactTable) Targets(category string) []Target {
	return t.targets[strings.ToLower(strings.TrimSpace(category))]
}

// DefaultImpactTable returns the built-in category mapping.
func DefaultImpactTable() *ImpactTable {
	carbon := Target{GoalCategory: "carbon_reduction", Source: SourceCO2, Multiplier: 1, Unit: "tons_co2"}
	cost := Target{GoalCategory: "cost_savings", Source: SourceSavings, Multiplier: 1, Unit: "usd"}

	return NewImpactTable(map[string][]Target{
		"Energy Efficiency": {
			{GoalCategory: "energy_reduction", Source: SourceCO2, Multiplier: 2339, Unit: "kwh"},
			cost,
			carbon,
		},
		"Renewable Energy": {
			{GoalCategory: "renewable_energy", Source: SourceCO2, Multiplier: 2, Unit: "percentage"},
			carbon,
			cost,
		},
		"Transportation": {
			{GoalCategory: "transportation", Source: SourceCO2, Multiplier: 20, Unit: "miles"},
			carbon,
		},
		"Waste Reduction": {
			{GoalCategory: "waste_reduction", Source: SourceCO2, Multiplier: 0.5, Unit: "tons"},
			cost,
		},
		"Water Conservation": {
			{GoalCategory: "water_conservation", Source: SourceSavings, Multiplier: 10, Unit: "gallons"},
			cost,
		},
		"Assessment": {
			{GoalCategory: "energy_reduction", Source: SourceCO2, Multiplier: 1169, Unit: "kwh"},
		},
	})
}
