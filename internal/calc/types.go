package calc

import (
	"fmt"
	"strings"
)

// Difficulty is the implementation effort of a project.
type Difficulty string

const (
	Easy   Difficulty = "Easy"
	Medium Difficulty = "Medium"
	Hard   Difficulty = "Hard"
)

// ParseDifficulty accepts any casing of Easy, Medium or Hard.
func ParseDifficulty(s string) (Difficulty, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "easy":
		return Easy, nil
	case "medium", "":
		return Medium, nil
	case "hard":
		return Hard, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidDifficulty, s)
}

// Risk maps effort to a risk level.
func (d Difficulty) Risk() string {
	switch d {
	case Easy:
		return "Low"
	case Hard:
		return "High"
	default:
		return "Medium"
	}
}

// EnergyUsage is one month of metered consumption. Zero custom rates fall back
// to the regional rates.
type EnergyUsage struct {
	MonthlyKWh      float64 `json:"monthly_kwh" yaml:"monthly_kwh"`
	MonthlyTherms   float64 `json:"monthly_therms" yaml:"monthly_therms"`
	ElectricityRate float64 `json:"electricity_rate,omitempty" yaml:"electricity_rate,omitempty"` // $/kWh
	GasRate         float64 `json:"gas_rate,omitempty" yaml:"gas_rate,omitempty"`                 // $/therm
	DemandCharge    float64 `json:"demand_charge,omitempty" yaml:"demand_charge,omitempty"`       // $/kW
	PeakDemandKW    float64 `json:"peak_demand_kw,omitempty" yaml:"peak_demand_kw,omitempty"`
}

// Validate rejects negative quantities.
func (u EnergyUsage) Validate() error {
	for name, v := range map[string]float64{
		"monthly_kwh":      u.MonthlyKWh,
		"monthly_therms":   u.MonthlyTherms,
		"electricity_rate": u.ElectricityRate,
		"gas_rate":         u.GasRate,
		"demand_charge":    u.DemandCharge,
		"peak_demand_kw":   u.PeakDemandKW,
	} {
		if v < 0 {
			return fmt.Errorf("%w: %s is negative", ErrInvalidInput, name)
		}
	}
	return nil
}

// BusinessProfile describes the business a recommendation is made for.
type BusinessProfile struct {
	Industry          string  `json:"industry" yaml:"industry"`
	CompanySize       string  `json:"company_size" yaml:"company_size"`
	Location          string  `json:"location" yaml:"location"`
	FacilitySqft      float64 `json:"facility_sqft,omitempty" yaml:"facility_sqft,omitempty"`
	OperatingHours    float64 `json:"operating_hours,omitempty" yaml:"operating_hours,omitempty"` // per week
	SeasonalVariation float64 `json:"seasonal_variation,omitempty" yaml:"seasonal_variation,omitempty"`
}
