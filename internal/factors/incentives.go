package factors

import (
	"fmt"
	"strings"
	"time"
)

// IncentiveType classifies a financial incentive.
type IncentiveType string

const (
	TaxCredit IncentiveType = "tax_credit"
	Rebate    IncentiveType = "rebate"
	Grant     IncentiveType = "grant"
	Loan      IncentiveType = "loan"
	Deduction IncentiveType = "deduction"
)

// FederalKey groups incentives that apply in every region.
const FederalKey = "federal"

// Incentive is a tax credit, rebate, grant, loan or deduction. Percentage
// incentives are worth a share of the project cost, optionally capped by
// MaxValue; all others are worth the flat Value.
type Incentive struct {
	Type               IncentiveType `json:"type" yaml:"type"`
	Name               string        `json:"name" yaml:"name"`
	Value              float64       `json:"value" yaml:"value"`
	MaxValue           *float64      `json:"max_value,omitempty" yaml:"max_value,omitempty"`
	Percentage         *float64      `json:"percentage,omitempty" yaml:"percentage,omitempty"`
	Description        string        `json:"description" yaml:"description"`
	Eligibility        []string      `json:"eligibility" yaml:"eligibility"`
	Expiration         *time.Time    `json:"expiration,omitempty" yaml:"expiration,omitempty"`
	ApplicationProcess string        `json:"application_process" yaml:"application_process"`
}

// Validate checks the incentive type.
func (i Incentive) Validate() error {
	switch i.Type {
	case TaxCredit, Rebate, Grant, Loan, Deduction:
	default:
		return fmt.Errorf("%w: %q has unknown type %q", ErrInvalidIncentive, i.Name, i.Type)
	}
	if i.Percentage != nil && *i.Percentage < 0 {
		return fmt.Errorf("%w: %q has a negative percentage", ErrInvalidIncentive, i.Name)
	}
	return nil
}

// Eligible reports whether the incentive applies to a project category. A tag
// matches when it is a substring of the category or the category is a
// substring of the tag. Underscores and hyphens compare as spaces. An empty
// category matches nothing.
func (i Incentive) Eligible(category string) bool {
	cat := normalizeTag(category)
	if cat == "" {
		return false
	}
	for _, tag := range i.Eligibility {
		t := normalizeTag(tag)
		if t == "" {
			continue
		}
		if strings.Contains(cat, t) || strings.Contains(t, cat) {
			return true
		}
	}
	return false
}

// Expired reports whether the incentive expired before at.
func (i Incentive) Expired(at time.Time) bool {
	return i.Expiration != nil && i.Expiration.Before(at)
}

func normalizeTag(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.NewReplacer("_", " ", "-", " ").Replace(s)
}

// Catalog holds incentives per region key plus the federal list.
type Catalog struct {
	federal  []Incentive
	regional map[string][]Incentive
}

// NewCatalog builds a catalog. Region keys are matched case-insensitively.
func NewCatalog(federal []Incentive, regional map[string][]Incentive) *Catalog {
	c := &Catalog{
		federal:  append([]Incentive(nil), federal...),
		regional: make(map[string][]Incentive, len(regional)),
	}
	for k, v := range regional {
		key := strings.ToLower(strings.TrimSpace(k))
		c.regional[key] = append(c.regional[key], v...)
	}
	return c
}

// ForRegion returns the federal incentives followed by those of the region.
func (c *Catalog) ForRegion(key string) []Incentive {
	regional := c.regional[strings.ToLower(strings.TrimSpace(key))]
	out := make([]Incentive, 0, len(c.federal)+len(regional))
	out = append(out, c.federal...)
	return append(out, regional...)
}

// Federal returns the incentives available in every region.
func (c *Catalog) Federal() []Incentive {
	return append([]Incentive(nil), c.federal...)
}

// Regions lists the region keys that carry their own incentives.
func (c *Catalog) Regions() []string {
	keys := make([]string, 0, len(c.regional))
	for k := range c.regional {
		keys = append(keys, k)
	}
	return keys
}

// With returns a catalog with extra incentives appended under their keys;
// FederalKey adds to the federal list.
func (c *Catalog) With(extra map[string][]Incentive) *Catalog {
	federal := c.Federal()
	regional := make(map[string][]Incentive, len(c.regional))
	for k, v := range c.regional {
		regional[k] = append([]Incentive(nil), v...)
	}
	for k, v := range extra {
		key := strings.ToLower(strings.TrimSpace(k))
		if key == FederalKey {
			federal = append(federal, v...)
			continue
		}
		regional[key] = append(regional[key], v...)
	}
	return NewCatalog(federal, regional)
}

func ptr(v float64) *float64 { return &v }

func date(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

// DefaultIncentives returns the built-in incentive catalog.
func DefaultIncentives() *Catalog {
	federal := []Incentive{
		{
			Type:               TaxCredit,
			Name:               "Federal Solar Investment Tax Credit (ITC)",
			Percentage:         ptr(30),
			Description:        "30% federal tax credit for solar installations",
			Eligibility:        []string{"solar", "renewable_energy"},
			Expiration:         date(2032, time.December, 31),
			ApplicationProcess: "File IRS Form 3468 with tax return",
		},
		{
			Type:               Deduction,
			Name:               "Section 179D Energy Efficient Commercial Buildings Deduction",
			Value:              1.88,
			MaxValue:           ptr(1_000_000),
			Description:        "Tax deduction of up to $1.88 per square foot for energy-efficient building improvements",
			Eligibility:        []string{"hvac", "lighting", "building_envelope"},
			ApplicationProcess: "Obtain energy modeling certification and claim on tax return",
		},
		{
			Type:               TaxCredit,
			Name:               "Commercial Energy Efficiency Tax Credit",
			Percentage:         ptr(25),
			Description:        "25% tax credit for qualifying energy efficiency improvements",
			Eligibility:        []string{"hvac", "lighting", "building_systems"},
			Expiration:         date(2024, time.December, 31),
			ApplicationProcess: "File with federal tax return",
		},
	}
	regional := map[string][]Incentive{
		"california": {
			{
				Type:               Rebate,
				Name:               "California Self-Generation Incentive Program (SGIP)",
				Value:              150,
				Description:        "Rebate per kWh of battery storage capacity",
				Eligibility:        []string{"battery_storage", "fuel_cells"},
				ApplicationProcess: "Apply through utility company before installation",
			},
			{
				Type:               Rebate,
				Name:               "California Energy Efficiency Rebates",
				Value:              500,
				Description:        "Utility rebates for energy efficient equipment",
				Eligibility:        []string{"led_lighting", "hvac", "motors"},
				ApplicationProcess: "Submit rebate application with receipts",
			},
		},
		"texas": {
			{
				Type:               Loan,
				Name:               "Texas LoanSTAR Program",
				Value:              0,
				Description:        "Low-interest loans for energy efficiency projects",
				Eligibility:        []string{"energy_efficiency", "renewable_energy"},
				ApplicationProcess: "Apply through State Energy Conservation Office",
			},
		},
	}
	return NewCatalog(federal, regional)
}
