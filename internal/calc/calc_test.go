package calc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bher20/eimpactmanager/internal/factors"
)

func region(t *testing.T, name string) factors.RegionalFactors {
	t.Helper()
	f, ok := factors.DefaultRegions().Lookup(name)
	require.True(t, ok, name)
	return f
}

func TestCarbon_California(t *testing.T) {
	got := Carbon(EnergyUsage{MonthlyKWh: 5000, MonthlyTherms: 200}, region(t, "california"))

	assert.Equal(t, 3255.0, got.MonthlyElectricityLbs)
	assert.Equal(t, 2340.0, got.MonthlyGasLbs)
	assert.Equal(t, 5595.0, got.MonthlyTotalLbs)
	assert.InDelta(t, 33.57, got.AnnualTotalTons, 1e-9)
	assert.InDelta(t, 67140, got.AnnualTotalLbs, 1e-9)
}

func TestCarbon_ZeroUsage(t *testing.T) {
	assert.Equal(t, CarbonFootprint{}, Carbon(EnergyUsage{}, region(t, "texas")))
}

func TestCost(t *testing.T) {
	tests := []struct {
		name       string
		usage      EnergyUsage
		region     string
		wantElec   float64
		wantGas    float64
		wantTotal  float64
		wantDemand float64
	}{
		{
			name:      "regional rates",
			usage:     EnergyUsage{MonthlyKWh: 4000, MonthlyTherms: 150},
			region:    "california",
			wantElec:  10776,
			wantGas:   2430,
			wantTotal: 13206,
		},
		{
			name:      "custom rates",
			usage:     EnergyUsage{MonthlyKWh: 2000, MonthlyTherms: 100, ElectricityRate: 0.15, GasRate: 1.00},
			region:    "texas",
			wantElec:  3600,
			wantGas:   1200,
			wantTotal: 4800,
		},
		{
			name:       "demand charges",
			usage:      EnergyUsage{MonthlyKWh: 3000, DemandCharge: 15, PeakDemandKW: 500},
			region:     "florida",
			wantElec:   3000 * 0.1147 * 12,
			wantTotal:  3000*0.1147*12 + 90000,
			wantDemand: 90000,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Cost(tt.usage, region(t, tt.region))
			assert.InDelta(t, tt.wantElec, got.AnnualElectricity, 0.01)
			assert.InDelta(t, tt.wantGas, got.AnnualGas, 0.01)
			assert.InDelta(t, tt.wantDemand, got.AnnualDemand, 0.01)
			assert.InDelta(t, tt.wantTotal, got.AnnualTotal, 0.01)
			assert.True(t, got.AverageRate.Defined)
		})
	}
}

func TestCost_AverageRateUndefinedWithoutUsage(t *testing.T) {
	got := Cost(EnergyUsage{DemandCharge: 15, PeakDemandKW: 10}, region(t, "texas"))

	assert.False(t, got.AverageRate.Defined)
	assert.InDelta(t, 1800, got.AnnualTotal, 1e-9)
}

func TestROI(t *testing.T) {
	usage := EnergyUsage{MonthlyKWh: 8000, MonthlyTherms: 300}
	got := ROI(ROIInput{SavingsPercent: 0.25, ImplementationCost: 10000}, usage, region(t, "texas"), DefaultAssumptions())

	assert.InDelta(t, 3861.6, got.AnnualSavings, 1e-9)
	require.True(t, got.PaybackMonths.Defined)
	assert.Equal(t, 31.1, got.PaybackMonths.Value)
	assert.Equal(t, 2.6, got.BreakEvenYears.Value)
	assert.InDelta(t, 17122.26, got.NetPresentValue, 1e-9)
	assert.InDelta(t, -61.38, got.SimpleReturnPct.Value, 1e-9)
	assert.True(t, got.SimpleReturnApproximation)
	assert.InDelta(t, 17.21, got.CO2ReductionTons, 0.01)
}

func TestROI_Undefined(t *testing.T) {
	usage := EnergyUsage{MonthlyKWh: 8000, MonthlyTherms: 300}

	noSavings := ROI(ROIInput{SavingsPercent: 0, ImplementationCost: 10000}, usage, region(t, "texas"), DefaultAssumptions())
	assert.False(t, noSavings.PaybackMonths.Defined)
	assert.False(t, noSavings.BreakEvenYears.Defined)
	assert.Equal(t, -10000.0, noSavings.NetPresentValue)

	free := ROI(ROIInput{SavingsPercent: 0.1, ImplementationCost: 0}, usage, region(t, "texas"), DefaultAssumptions())
	assert.False(t, free.SimpleReturnPct.Defined)
	assert.Equal(t, Defined(0), free.PaybackMonths)
}

func TestROI_MaintenanceSavings(t *testing.T) {
	usage := EnergyUsage{MonthlyKWh: 8000, MonthlyTherms: 300}
	f := region(t, "texas")

	with := ROI(ROIInput{SavingsPercent: 0.15, ImplementationCost: 30000, MaintenanceSavings: 2000}, usage, f, DefaultAssumptions())
	without := ROI(ROIInput{SavingsPercent: 0.15, ImplementationCost: 30000}, usage, f, DefaultAssumptions())

	assert.Greater(t, with.AnnualSavings, without.AnnualSavings)
	assert.Less(t, with.PaybackMonths.Value, without.PaybackMonths.Value)
	assert.Equal(t, with.EnergySavings, without.EnergySavings)
}

func TestROI_PaybackMonotonic(t *testing.T) {
	usage := EnergyUsage{MonthlyKWh: 6000, MonthlyTherms: 250}
	f := region(t, "new york")

	prev := 0.0
	for cost := 0.0; cost <= 200000; cost += 5000 {
		got := ROI(ROIInput{SavingsPercent: 0.2, ImplementationCost: cost}, usage, f, DefaultAssumptions())
		require.True(t, got.PaybackMonths.Defined)
		assert.GreaterOrEqual(t, got.PaybackMonths.Value, prev, "cost %v", cost)
		prev = got.PaybackMonths.Value
	}

	prev = ROI(ROIInput{SavingsPercent: 0.2, ImplementationCost: 50000}, usage, f, DefaultAssumptions()).PaybackMonths.Value
	for extra := 500.0; extra <= 20000; extra += 500 {
		got := ROI(ROIInput{SavingsPercent: 0.2, ImplementationCost: 50000, MaintenanceSavings: extra}, usage, f, DefaultAssumptions())
		assert.LessOrEqual(t, got.PaybackMonths.Value, prev, "maintenance %v", extra)
		prev = got.PaybackMonths.Value
	}
}

func TestPaybackFromSavings(t *testing.T) {
	assert.InDelta(t, 72, PaybackFromSavings(5000, 30000).Value, 1e-9)
	assert.False(t, PaybackFromSavings(0, 10000).Defined)
	assert.InDelta(t, 120, PaybackFromSavings(-1000, 10000).Value, 1e-9)
}

func TestNPVOfCashFlows(t *testing.T) {
	assert.InDelta(t, 4927.1, NPVOfCashFlows([]float64{10000, 10000, 10000, 10000, 10000}, 0.08, 35000), 1e-9)
	assert.Less(t, NPVOfCashFlows([]float64{1000, 1000, 1000}, 0.10, 10000), 0.0)
	assert.Equal(t, -5000.0, NPVOfCashFlows(nil, 0.05, 5000))
}

func TestEquivalentsFor(t *testing.T) {
	tests := []struct {
		tons float64
		want Equivalents
	}{
		{tons: 50, want: Equivalents{TreesPlanted: 825, CarsOffRoad: 11, HomesPowered: 9, GallonsGasoline: 5650}},
		{tons: 0, want: Equivalents{}},
		{tons: 1.5, want: Equivalents{TreesPlanted: 25, CarsOffRoad: 0, HomesPowered: 0, GallonsGasoline: 170}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, EquivalentsFor(tt.tons), "tons=%v", tt.tons)
	}
}

func TestSolar(t *testing.T) {
	got := Solar(10000, DefaultRoofUsablePct, region(t, "california"))

	assert.Equal(t, 42.0, got.SystemSizeKW)
	assert.Equal(t, 77700.0, got.AnnualGeneration)
	assert.InDelta(t, 17443.65, got.AnnualSavings, 1e-9)
	assert.Equal(t, 105000.0, got.EstimatedCost)
	assert.Equal(t, Defined(6.0), got.ROIYears)
	assert.InDelta(t, 25.29, got.CO2OffsetTons, 1e-9)

	sunnier := Solar(10000, DefaultRoofUsablePct, region(t, "florida"))
	cloudier := Solar(10000, DefaultRoofUsablePct, region(t, "new york"))
	assert.Greater(t, sunnier.AnnualGeneration, cloudier.AnnualGeneration)
}

func TestSolar_ZeroRoof(t *testing.T) {
	got := Solar(10000, 0, region(t, "california"))

	assert.Equal(t, 0.0, got.SystemSizeKW)
	assert.Equal(t, 0.0, got.AnnualSavings)
	assert.False(t, got.ROIYears.Defined)
}
