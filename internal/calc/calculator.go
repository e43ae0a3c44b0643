package calc

import (
	"time"

	"github.com/bher20/eimpactmanager/internal/factors"
)

// Calculator runs the calculations against the active factor set. It holds no
// mutable state of its own and is safe for concurrent use.
type Calculator struct {
	registry    *factors.Registry
	assumptions FinancialAssumptions
	ladders     PriorityLadders
	cutoff      func() time.Time
}

// Option configures a Calculator.
type Option func(*Calculator)

// WithAssumptions overrides the NPV discount rate and horizon.
func WithAssumptions(a FinancialAssumptions) Option {
	return func(c *Calculator) { c.assumptions = a }
}

// WithPriorityLadders overrides the priority heuristic.
func WithPriorityLadders(l PriorityLadders) Option {
	return func(c *Calculator) { c.ladders = l }
}

// WithIncentiveCutoff drops incentives that expired before cutoff().
func WithIncentiveCutoff(cutoff func() time.Time) Option {
	return func(c *Calculator) { c.cutoff = cutoff }
}

// New returns a Calculator reading factors from registry. A nil registry
// serves the built-in tables.
func New(registry *factors.Registry, opts ...Option) *Calculator {
	if registry == nil {
		registry = factors.NewStaticRegistry(factors.Defaults())
	}
	c := &Calculator{
		registry:    registry,
		assumptions: DefaultAssumptions(),
		ladders:     DefaultLadders(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Factors returns the active factor set.
func (c *Calculator) Factors() *factors.Set { return c.registry.Current() }

// Region resolves a free-text location to its region key and factors.
func (c *Calculator) Region(location string) (string, factors.RegionalFactors) {
	regions := c.registry.Current().Regions
	return regions.ResolveKey(location), regions.Resolve(location)
}

// Industry resolves a free-text industry label.
func (c *Calculator) Industry(label string) factors.IndustryProfile {
	return c.registry.Current().Industries.Resolve(label)
}

// Carbon computes the footprint of usage at location.
func (c *Calculator) Carbon(u EnergyUsage, location string) CarbonFootprint {
	_, f := c.Region(location)
	return Carbon(u, f)
}

// Cost prices usage at location.
func (c *Calculator) Cost(u EnergyUsage, location string) EnergyCost {
	_, f := c.Region(location)
	return Cost(u, f)
}

// ROI analyses a project for usage at location.
func (c *Calculator) ROI(in ROIInput, u EnergyUsage, location string) ROIResult {
	_, f := c.Region(location)
	return ROI(in, u, f, c.assumptions)
}

// Incentives stacks the federal and regional incentives for category.
func (c *Calculator) Incentives(category string, cost float64, location string) IncentiveSummary {
	return OptimizeIncentives(category, cost, c.incentivesFor(c.registry.Current(), location))
}

func (c *Calculator) incentivesFor(set *factors.Set, location string) []factors.Incentive {
	list := set.Incentives.ForRegion(set.Regions.ResolveKey(location))
	if c.cutoff == nil {
		return list
	}
	at := c.cutoff()
	live := list[:0]
	for _, inc := range list {
		if !inc.Expired(at) {
			live = append(live, inc)
		}
	}
	return live
}

// Priority scores a project with the configured ladders.
func (c *Calculator) Priority(roiMonths Figure, annualSavings, co2Tons float64, d Difficulty, energyUsage float64) float64 {
	return c.ladders.Score(roiMonths, annualSavings, co2Tons, d, energyUsage)
}

// Equivalents converts tons of CO2 to everyday equivalents.
func (c *Calculator) Equivalents(tons float64) Equivalents {
	return EquivalentsFor(tons)
}

// Solar estimates a rooftop system at location.
func (c *Calculator) Solar(sqft, roofUsablePct float64, location string) SolarEstimate {
	_, f := c.Region(location)
	return Solar(sqft, roofUsablePct, f)
}
