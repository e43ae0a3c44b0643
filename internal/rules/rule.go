package rules

import (
	"slices"

	"github.com/bher20/eimpactmanager/internal/calc"
)

// Rule is one candidate recommendation with the conditions under which it
// applies. Zero thresholds and empty lists mean "no condition".
type Rule struct {
	ID          string          `json:"id" yaml:"id"`
	Title       string          `json:"title" yaml:"title"`
	Description string          `json:"description" yaml:"description"`
	Category    string          `json:"category" yaml:"category"`
	Difficulty  calc.Difficulty `json:"difficulty" yaml:"difficulty"`

	MinKWh        float64        `json:"min_kwh,omitempty" yaml:"min_kwh,omitempty"`
	MaxKWh        float64        `json:"max_kwh,omitempty" yaml:"max_kwh,omitempty"`
	MinTherms     float64        `json:"min_therms,omitempty" yaml:"min_therms,omitempty"`
	MaxTherms     float64        `json:"max_therms,omitempty" yaml:"max_therms,omitempty"`
	Industries    []Industry     `json:"industries,omitempty" yaml:"industries,omitempty"`
	Sizes         []CompanySize  `json:"sizes,omitempty" yaml:"sizes,omitempty"`
	RequiredGoals []GoalCategory `json:"required_goals,omitempty" yaml:"required_goals,omitempty"`

	CostSavingsFactor  float64 `json:"cost_savings_factor" yaml:"cost_savings_factor"`
	CO2ReductionFactor float64 `json:"co2_reduction_factor" yaml:"co2_reduction_factor"`
	BaseROIMonths      int     `json:"base_roi_months" yaml:"base_roi_months"`
	CostFactor         float64 `json:"implementation_cost_factor" yaml:"implementation_cost_factor"`
	BasePriority       float64 `json:"base_priority" yaml:"base_priority"`
}

// Applies reports whether the rule matches the usage and the categorised
// profile.
func (r Rule) Applies(u calc.EnergyUsage, industry Industry, size CompanySize, goals []GoalCategory) bool {
	if r.MinKWh > 0 && u.MonthlyKWh < r.MinKWh {
		return false
	}
	if r.MaxKWh > 0 && u.MonthlyKWh > r.MaxKWh {
		return false
	}
	if r.MinTherms > 0 && u.MonthlyTherms < r.MinTherms {
		return false
	}
	if r.MaxTherms > 0 && u.MonthlyTherms > r.MaxTherms {
		return false
	}
	if len(r.Industries) > 0 && !slices.Contains(r.Industries, industry) {
		return false
	}
	if len(r.Sizes) > 0 && !slices.Contains(r.Sizes, size) {
		return false
	}
	if len(r.RequiredGoals) > 0 && !slices.ContainsFunc(r.RequiredGoals, func(g GoalCategory) bool {
		return slices.Contains(goals, g)
	}) {
		return false
	}
	return true
}

// DefaultRules returns the built-in rule set: general efficiency measures,
// industry and size specific measures, then goal driven ones.
func DefaultRules() []Rule {
	notSmall := []CompanySize{MediumSize, Large, Enterprise}
	return []Rule{
		{
			ID:                 "led_retrofit_basic",
			Title:              "LED Lighting Retrofit",
			Description:        "Replace traditional incandescent and fluorescent lighting with energy-efficient LED bulbs throughout the facility.",
			Category:           "Energy Efficiency",
			Difficulty:         calc.Easy,
			MinKWh:             800,
			CostSavingsFactor:  0.25,
			CO2ReductionFactor: 0.25,
			BaseROIMonths:      18,
			CostFactor:         1,
			BasePriority:       0.8,
		},
		{
			ID:                 "hvac_optimization",
			Title:              "HVAC System Optimization",
			Description:        "Implement smart thermostats, regular maintenance schedules, and system optimization to improve heating and cooling efficiency.",
			Category:           "Energy Efficiency",
			Difficulty:         calc.Medium,
			MinKWh:             1500,
			CostSavingsFactor:  0.15,
			CO2ReductionFactor: 0.15,
			BaseROIMonths:      24,
			CostFactor:         1,
			BasePriority:       0.7,
		},
		{
			ID:                 "smart_power_management",
			Title:              "Smart Power Management Systems",
			Description:        "Install smart power strips and automated shutdown systems to eliminate phantom loads and reduce standby power consumption.",
			Category:           "Energy Efficiency",
			Difficulty:         calc.Easy,
			MinKWh:             500,
			Sizes:              notSmall,
			CostSavingsFactor:  0.08,
			CO2ReductionFactor: 0.08,
			BaseROIMonths:      12,
			CostFactor:         1,
			BasePriority:       0.6,
		},
		{
			ID:                 "energy_audit_comprehensive",
			Title:              "Professional Energy Audit",
			Description:        "Conduct a comprehensive energy audit to identify specific areas of energy waste and optimization opportunities.",
			Category:           "Assessment",
			Difficulty:         calc.Easy,
			CostSavingsFactor:  0.10,
			CO2ReductionFactor: 0.10,
			BaseROIMonths:      6,
			CostFactor:         1,
			BasePriority:       0.9,
		},
		{
			ID:                 "insulation_upgrade",
			Title:              "Building Insulation Upgrade",
			Description:        "Improve building insulation in walls, windows, and roofing to reduce heating and cooling energy requirements.",
			Category:           "Energy Efficiency",
			Difficulty:         calc.Hard,
			MinKWh:             2000,
			MinTherms:          100,
			CostSavingsFactor:  0.20,
			CO2ReductionFactor: 0.18,
			BaseROIMonths:      36,
			CostFactor:         3,
			BasePriority:       0.5,
		},
		{
			ID:                 "server_efficiency_tech",
			Title:              "Data Center and Server Efficiency",
			Description:        "Optimize server utilization, implement virtualization, and upgrade to energy-efficient hardware.",
			Category:           "Energy Efficiency",
			Difficulty:         calc.Medium,
			Industries:         []Industry{Technology},
			MinKWh:             2000,
			CostSavingsFactor:  0.30,
			CO2ReductionFactor: 0.30,
			BaseROIMonths:      18,
			CostFactor:         1,
			BasePriority:       0.8,
		},
		{
			ID:                 "motor_efficiency_mfg",
			Title:              "High-Efficiency Motor Upgrades",
			Description:        "Replace standard motors with premium efficiency motors and implement variable frequency drives (VFDs).",
			Category:           "Energy Efficiency",
			Difficulty:         calc.Medium,
			Industries:         []Industry{Manufacturing},
			MinKWh:             5000,
			CostSavingsFactor:  0.25,
			CO2ReductionFactor: 0.25,
			BaseROIMonths:      30,
			CostFactor:         1,
			BasePriority:       0.7,
		},
		{
			ID:                 "refrigeration_efficiency_retail",
			Title:              "Refrigeration System Optimization",
			Description:        "Upgrade to high-efficiency refrigeration systems and implement advanced controls for better energy management.",
			Category:           "Energy Efficiency",
			Difficulty:         calc.Hard,
			Industries:         []Industry{Retail},
			MinKWh:             3000,
			CostSavingsFactor:  0.20,
			CO2ReductionFactor: 0.20,
			BaseROIMonths:      36,
			CostFactor:         1,
			BasePriority:       0.6,
		},
		{
			ID:                 "medical_equipment_efficiency",
			Title:              "Medical Equipment Energy Management",
			Description:        "Implement energy-efficient medical equipment scheduling and optimize HVAC for critical areas.",
			Category:           "Energy Efficiency",
			Difficulty:         calc.Medium,
			Industries:         []Industry{Healthcare},
			MinKWh:             4000,
			CostSavingsFactor:  0.12,
			CO2ReductionFactor: 0.12,
			BaseROIMonths:      24,
			CostFactor:         1,
			BasePriority:       0.7,
		},
		{
			ID:                 "guest_room_automation",
			Title:              "Guest Room Energy Automation",
			Description:        "Install occupancy-based energy management systems in guest rooms to optimize heating, cooling, and lighting.",
			Category:           "Energy Efficiency",
			Difficulty:         calc.Medium,
			Industries:         []Industry{Hospitality},
			MinKWh:             2500,
			CostSavingsFactor:  0.18,
			CO2ReductionFactor: 0.18,
			BaseROIMonths:      20,
			CostFactor:         1,
			BasePriority:       0.8,
		},
		{
			ID:                 "small_business_basics",
			Title:              "Small Business Energy Basics",
			Description:        "Implement simple energy-saving measures like programmable thermostats, LED lighting, and Energy Star appliances.",
			Category:           "Energy Efficiency",
			Difficulty:         calc.Easy,
			Sizes:              []CompanySize{Small},
			CostSavingsFactor:  0.15,
			CO2ReductionFactor: 0.15,
			BaseROIMonths:      12,
			CostFactor:         1,
			BasePriority:       0.8,
		},
		{
			ID:                 "enterprise_energy_management",
			Title:              "Enterprise Energy Management System",
			Description:        "Implement comprehensive energy management software with real-time monitoring and automated optimization.",
			Category:           "Energy Efficiency",
			Difficulty:         calc.Hard,
			Sizes:              []CompanySize{Enterprise},
			MinKWh:             10000,
			CostSavingsFactor:  0.20,
			CO2ReductionFactor: 0.20,
			BaseROIMonths:      24,
			CostFactor:         2,
			BasePriority:       0.7,
		},
		{
			ID:                 "solar_installation",
			Title:              "Solar Panel Installation",
			Description:        "Install rooftop or ground-mounted solar panels to generate clean renewable energy and reduce grid dependence.",
			Category:           "Renewable Energy",
			Difficulty:         calc.Hard,
			RequiredGoals:      []GoalCategory{RenewableEnergy},
			MinKWh:             2000,
			CostSavingsFactor:  0.30,
			CO2ReductionFactor: 0.40,
			BaseROIMonths:      60,
			CostFactor:         4,
			BasePriority:       0.9,
		},
		{
			ID:                 "waste_reduction_program",
			Title:              "Comprehensive Waste Reduction Program",
			Description:        "Implement recycling programs, composting, and waste stream analysis to minimize landfill waste.",
			Category:           "Waste Reduction",
			Difficulty:         calc.Medium,
			RequiredGoals:      []GoalCategory{WasteReduction},
			CostSavingsFactor:  0.05,
			CO2ReductionFactor: 0.08,
			BaseROIMonths:      18,
			CostFactor:         1,
			BasePriority:       0.6,
		},
		{
			ID:                 "water_conservation_systems",
			Title:              "Water Conservation Systems",
			Description:        "Install low-flow fixtures, rainwater harvesting, and greywater recycling systems to reduce water consumption.",
			Category:           "Water Conservation",
			Difficulty:         calc.Medium,
			RequiredGoals:      []GoalCategory{WaterConservation},
			CostSavingsFactor:  0.03,
			CO2ReductionFactor: 0.02,
			BaseROIMonths:      30,
			CostFactor:         1,
			BasePriority:       0.5,
		},
		{
			ID:                 "green_transportation",
			Title:              "Green Transportation Initiative",
			Description:        "Implement electric vehicle fleet, employee incentives for public transit, and bike-sharing programs.",
			Category:           "Transportation",
			Difficulty:         calc.Hard,
			RequiredGoals:      []GoalCategory{Transportation},
			Sizes:              notSmall,
			CostSavingsFactor:  0.10,
			CO2ReductionFactor: 0.15,
			BaseROIMonths:      48,
			CostFactor:         2.5,
			BasePriority:       0.6,
		},
	}
}
