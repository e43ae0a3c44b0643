package calc

import "github.com/bher20/eimpactmanager/internal/factors"

const lbsPerTon = 2000

// CarbonFootprint is the CO2 output of an energy usage record. Monthly values
// are in lbs, annual values in short tons.
type CarbonFootprint struct {
	MonthlyElectricityLbs float64 `json:"monthly_electricity_lbs"`
	MonthlyGasLbs         float64 `json:"monthly_gas_lbs"`
	MonthlyTotalLbs       float64 `json:"monthly_total_lbs"`
	MonthlyTotalTons      float64 `json:"monthly_total_tons"`
	AnnualElectricityTons float64 `json:"annual_electricity_tons"`
	AnnualGasTons         float64 `json:"annual_gas_tons"`
	AnnualTotalTons       float64 `json:"annual_total_tons"`
	AnnualTotalLbs        float64 `json:"annual_total_lbs"`
}

// Carbon converts usage to CO2 using the regional emission factors.
func Carbon(u EnergyUsage, f factors.RegionalFactors) CarbonFootprint {
	elec := u.MonthlyKWh * f.CO2PerKWh
	gas := u.MonthlyTherms * f.CO2PerTherm
	total := elec + gas

	return CarbonFootprint{
		MonthlyElectricityLbs: Round(elec, 2),
		MonthlyGasLbs:         Round(gas, 2),
		MonthlyTotalLbs:       Round(total, 2),
		MonthlyTotalTons:      Round(total/lbsPerTon, 2),
		AnnualElectricityTons: Round(elec*12/lbsPerTon, 2),
		AnnualGasTons:         Round(gas*12/lbsPerTon, 2),
		AnnualTotalTons:       Round(total*12/lbsPerTon, 2),
		AnnualTotalLbs:        Round(total*12, 2),
	}
}
