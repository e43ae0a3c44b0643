package factors

// RegionalFactors holds the energy prices, emission factors and climate data
// of one region.
type RegionalFactors struct {
	ElectricityRate         float64 `json:"electricity_rate" yaml:"electricity_rate"`   // $/kWh
	GasRate                 float64 `json:"gas_rate" yaml:"gas_rate"`                   // $/therm
	CO2PerKWh               float64 `json:"co2_per_kwh" yaml:"co2_per_kwh"`             // lbs CO2/kWh
	CO2PerTherm             float64 `json:"co2_per_therm" yaml:"co2_per_therm"`         // lbs CO2/therm
	SolarPotential          float64 `json:"solar_potential" yaml:"solar_potential"`     // kWh/kW/year
	HeatingDegreeDays       float64 `json:"heating_degree_days" yaml:"heating_degree_days"`
	CoolingDegreeDays       float64 `json:"cooling_degree_days" yaml:"cooling_degree_days"`
	UtilityRebateMultiplier float64 `json:"utility_rebate_multiplier" yaml:"utility_rebate_multiplier"`
	LaborCostMultiplier     float64 `json:"labor_cost_multiplier" yaml:"labor_cost_multiplier"`
}

// RegionTable resolves free-text locations to regional factors.
type RegionTable = Table[RegionalFactors]

// DefaultRegions returns the built-in regional dataset, matched in the order
// new york, california, texas, florida.
func DefaultRegions() *RegionTable {
	return NewTable(
		RegionalFactors{
			ElectricityRate:         0.1378,
			GasRate:                 1.28,
			CO2PerKWh:               0.855,
			CO2PerTherm:             11.7,
			SolarPotential:          1500,
			HeatingDegreeDays:       3000,
			CoolingDegreeDays:       1500,
			UtilityRebateMultiplier: 1.0,
			LaborCostMultiplier:     1.0,
		},
		Entry[RegionalFactors]{
			Key:     "new york",
			Aliases: []string{"nyc", "brooklyn", "manhattan"},
			Value: RegionalFactors{
				ElectricityRate:         0.1825,
				GasRate:                 1.48,
				CO2PerKWh:               0.578,
				CO2PerTherm:             11.7,
				SolarPotential:          1300,
				HeatingDegreeDays:       4800,
				CoolingDegreeDays:       900,
				UtilityRebateMultiplier: 1.2,
				LaborCostMultiplier:     1.4,
			},
		},
		Entry[RegionalFactors]{
			Key:     "california",
			Aliases: []string{"los angeles", "san francisco", "san diego"},
			Value: RegionalFactors{
				ElectricityRate:         0.2245,
				GasRate:                 1.35,
				CO2PerKWh:               0.651,
				CO2PerTherm:             11.7,
				SolarPotential:          1850,
				HeatingDegreeDays:       1500,
				CoolingDegreeDays:       1200,
				UtilityRebateMultiplier: 1.4,
				LaborCostMultiplier:     1.3,
			},
		},
		Entry[RegionalFactors]{
			Key:     "texas",
			Aliases: []string{"houston", "austin", "dallas"},
			Value: RegionalFactors{
				ElectricityRate:         0.1189,
				GasRate:                 1.12,
				CO2PerKWh:               0.995,
				CO2PerTherm:             11.7,
				SolarPotential:          1650,
				HeatingDegreeDays:       1600,
				CoolingDegreeDays:       2800,
				UtilityRebateMultiplier: 0.8,
				LaborCostMultiplier:     0.9,
			},
		},
		Entry[RegionalFactors]{
			Key:     "florida",
			Aliases: []string{"miami", "orlando", "tampa"},
			Value: RegionalFactors{
				ElectricityRate:         0.1147,
				GasRate:                 1.25,
				CO2PerKWh:               0.892,
				CO2PerTherm:             11.7,
				SolarPotential:          1800,
				HeatingDegreeDays:       600,
				CoolingDegreeDays:       3500,
				UtilityRebateMultiplier: 0.9,
				LaborCostMultiplier:     0.95,
			},
		},
	)
}
