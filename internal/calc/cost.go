package calc

import "github.com/bher20/eimpactmanager/internal/factors"

// kWh-equivalent units per therm used to normalise gas for AverageRate.
const thermToKWhEquivalent = 3.412

// EnergyCost is the cost of an energy usage record.
type EnergyCost struct {
	ElectricityRate    float64 `json:"electricity_rate"`
	GasRate            float64 `json:"gas_rate"`
	MonthlyElectricity float64 `json:"monthly_electricity_cost"`
	MonthlyGas         float64 `json:"monthly_gas_cost"`
	MonthlyDemand      float64 `json:"monthly_demand_cost"`
	MonthlyTotal       float64 `json:"monthly_total_cost"`
	AnnualElectricity  float64 `json:"annual_electricity_cost"`
	AnnualGas          float64 `json:"annual_gas_cost"`
	AnnualDemand       float64 `json:"annual_demand_cost"`
	AnnualTotal        float64 `json:"total_annual_cost"`
	AverageRate        Figure  `json:"average_rate"`
}

// Cost prices usage at the custom rates when set, otherwise at the regional
// rates. Demand charges are added to the monthly total before annualising.
func Cost(u EnergyUsage, f factors.RegionalFactors) EnergyCost {
	elecRate := f.ElectricityRate
	if u.ElectricityRate > 0 {
		elecRate = u.ElectricityRate
	}
	gasRate := f.GasRate
	if u.GasRate > 0 {
		gasRate = u.GasRate
	}

	elec := u.MonthlyKWh * elecRate
	gas := u.MonthlyTherms * gasRate
	demand := u.DemandCharge * u.PeakDemandKW
	total := elec + gas + demand
	annual := total * 12

	avg := Undefined()
	if normalized := (u.MonthlyKWh + u.MonthlyTherms*thermToKWhEquivalent) * 12; normalized > 0 {
		avg = Defined(Round(annual/normalized, 4))
	}

	return EnergyCost{
		ElectricityRate:    elecRate,
		GasRate:            gasRate,
		MonthlyElectricity: Round(elec, 2),
		MonthlyGas:         Round(gas, 2),
		MonthlyDemand:      Round(demand, 2),
		MonthlyTotal:       Round(total, 2),
		AnnualElectricity:  Round(elec*12, 2),
		AnnualGas:          Round(gas*12, 2),
		AnnualDemand:       Round(demand*12, 2),
		AnnualTotal:        Round(annual, 2),
		AverageRate:        avg,
	}
}
