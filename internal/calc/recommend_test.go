package calc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecommend(t *testing.T) {
	c := New(nil)
	profile := BusinessProfile{Industry: "Technology", CompanySize: "51-200 employees", Location: "Los Angeles, California"}
	usage := EnergyUsage{MonthlyKWh: 4000, MonthlyTherms: 150}

	got := c.Recommend(ProjectInput{
		ID:                 "led_retrofit_basic",
		Title:              "LED Lighting Retrofit",
		Category:           "LED Lighting",
		Difficulty:         Easy,
		SavingsPercent:     0.25,
		ImplementationCost: 10000,
	}, profile, usage)

	assert.Equal(t, "led_retrofit_basic", got.ID)
	assert.InDelta(t, 3301.5, got.Financial.AnnualCostSavings, 1e-9)
	require.True(t, got.Financial.ROIMonths.Defined)
	assert.Equal(t, 36.3, got.Financial.ROIMonths.Value)
	assert.True(t, got.Financial.SimpleReturnApproximation)

	assert.InDelta(t, 6.54, got.Environmental.AnnualCO2ReductionTons, 0.01)
	assert.Equal(t, 25.0, got.Environmental.AnnualCO2ReductionPct)
	assert.Equal(t, int64(108), got.Environmental.Equivalents.TreesPlanted)

	assert.Equal(t, 12000.0, got.Technical.EnergySavingsKWh)
	assert.Equal(t, 25.0, got.Technical.EnergySavingsPct)
	assert.Equal(t, 1.5, got.Technical.PeakDemandReductionKW)

	assert.Equal(t, Easy, got.Implementation.Difficulty)
	assert.Equal(t, "Low", got.Implementation.RiskLevel)
	assert.InDelta(t, 0.65, got.Implementation.PriorityScore, 1e-9)

	assert.Len(t, got.Incentives.Available, 3)
	assert.InDelta(t, 3001.88, got.Incentives.TotalValue, 1e-9)
	assert.Equal(t, Defined(25.4), got.Incentives.PostIncentivePayback)
}

func TestRecommend_MeteredPeakAndPriorityBase(t *testing.T) {
	c := New(nil)
	usage := EnergyUsage{MonthlyKWh: 4000, PeakDemandKW: 80}

	got := c.Recommend(ProjectInput{
		Category:       "HVAC",
		Difficulty:     Hard,
		SavingsPercent: 0.1,
		PriorityBase:   0.9,
	}, BusinessProfile{Location: "Nowhere"}, usage)

	assert.Equal(t, 8.0, got.Technical.PeakDemandReductionKW)
	assert.Equal(t, Defined(0), got.Financial.ROIMonths)
	assert.False(t, got.Financial.InternalRateOfReturn.Defined)
	// 0.9 base, +0.25 for immediate payback, -0.10 hard
	assert.InDelta(t, 1.0, got.Implementation.PriorityScore, 1e-9)
	assert.Equal(t, "High", got.Implementation.RiskLevel)
}

func TestRecommend_Deterministic(t *testing.T) {
	c := New(nil)
	p := ProjectInput{Category: "Solar", Difficulty: Hard, SavingsPercent: 0.3, ImplementationCost: 80000}
	profile := BusinessProfile{Industry: "Retail", Location: "Austin, Texas"}
	usage := EnergyUsage{MonthlyKWh: 12000, MonthlyTherms: 400}

	assert.Equal(t, c.Recommend(p, profile, usage), c.Recommend(p, profile, usage))
}

func TestCalculator_Lookups(t *testing.T) {
	c := New(nil)
	key, f := c.Region("Miami Beach")
	assert.Equal(t, "florida", key)
	assert.Equal(t, 0.1147, f.ElectricityRate)
	assert.Equal(t, 28.5, c.Industry("factory").EnergyIntensity)
}
