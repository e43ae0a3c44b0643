package rules

import (
	"strings"
	"unicode"
)

// Industry is a normalised industry bucket.
type Industry string

const (
	Technology    Industry = "Technology"
	Manufacturing Industry = "Manufacturing"
	Retail        Industry = "Retail"
	Healthcare    Industry = "Healthcare"
	Hospitality   Industry = "Hospitality"
	Education     Industry = "Education"
	Financial     Industry = "Financial Services"
	Logistics     Industry = "Logistics & Transportation"
	Construction  Industry = "Construction"
	Agriculture   Industry = "Agriculture"
	OtherIndustry Industry = "Other"
)

// CompanySize is a normalised headcount bucket.
type CompanySize string

const (
	Small      CompanySize = "1-50 employees"
	MediumSize CompanySize = "51-200 employees"
	Large      CompanySize = "201-1000 employees"
	Enterprise CompanySize = "1000+ employees"
)

// GoalCategory is a normalised sustainability goal.
type GoalCategory string

const (
	EnergyEfficiency  GoalCategory = "Energy Efficiency"
	RenewableEnergy   GoalCategory = "Renewable Energy"
	CarbonReduction   GoalCategory = "Carbon Footprint Reduction"
	WasteReduction    GoalCategory = "Waste Reduction"
	WaterConservation GoalCategory = "Water Conservation"
	Transportation    GoalCategory = "Sustainable Transportation"
	GreenBuilding     GoalCategory = "Green Building"
	SupplyChain       GoalCategory = "Sustainable Supply Chain"
)

type keywords[T any] struct {
	value T
	words []string
}

// Keyword tables are checked in order. Hospitality precedes healthcare so
// "hospitality" is not read as "hospital".
//
//nolint:gochecknoglobals // Read-only lookup tables.
var (
	industryKeywords = []keywords[Industry]{
		{Technology, []string{"tech", "software", "it", "computer"}},
		{Manufacturing, []string{"manufacturing", "factory", "production"}},
		{Retail, []string{"retail", "store", "shopping"}},
		{Hospitality, []string{"hotel", "restaurant", "hospitality"}},
		{Healthcare, []string{"health", "medical", "hospital"}},
		{Education, []string{"education", "school", "university"}},
		{Financial, []string{"financial", "bank", "finance"}},
		{Logistics, []string{"logistics", "transport", "shipping"}},
		{Construction, []string{"construction", "building"}},
		{Agriculture, []string{"agriculture", "farming"}},
	}
	sizeKeywords = []keywords[CompanySize]{
		{Small, []string{"small", "1-50", "startup"}},
		{MediumSize, []string{"medium", "51-200", "mid"}},
		{Large, []string{"large", "201-1000"}},
		{Enterprise, []string{"enterprise", "1000+", "corporation"}},
	}
	goalKeywords = []keywords[GoalCategory]{
		{EnergyEfficiency, []string{"energy", "efficiency"}},
		{RenewableEnergy, []string{"renewable", "solar", "wind"}},
		{CarbonReduction, []string{"carbon", "emissions", "co2"}},
		{WasteReduction, []string{"waste", "recycling"}},
		{WaterConservation, []string{"water", "conservation"}},
		{Transportation, []string{"transport", "fleet", "commute"}},
		{GreenBuilding, []string{"building", "leed", "green"}},
		{SupplyChain, []string{"supply", "vendor", "procurement"}},
	}
)

// contains reports whether keyword occurs in text. Keywords of two letters or
// fewer must match a whole word, so "it" does not match "hospitality".
func contains(text, keyword string) bool {
	if len(keyword) > 2 {
		return strings.Contains(text, keyword)
	}
	for _, w := range strings.FieldsFunc(text, func(r rune) bool { return !unicode.IsLetter(r) && !unicode.IsDigit(r) }) {
		if w == keyword {
			return true
		}
	}
	return false
}

func classify[T any](table []keywords[T], s string, fallback T) T {
	lower := strings.ToLower(s)
	for _, k := range table {
		for _, w := range k.words {
			if contains(lower, w) {
				return k.value
			}
		}
	}
	return fallback
}

// CategorizeIndustry maps a free-text industry to a bucket.
func CategorizeIndustry(s string) Industry {
	return classify(industryKeywords, s, OtherIndustry)
}

// CategorizeSize maps a free-text company size to a bucket, defaulting to
// 51-200 employees.
func CategorizeSize(s string) CompanySize {
	return classify(sizeKeywords, s, MediumSize)
}

// CategorizeGoals maps free-text goals to categories, dropping unknown goals
// and duplicates.
func CategorizeGoals(goals []string) []GoalCategory {
	seen := make(map[GoalCategory]bool)
	out := make([]GoalCategory, 0, len(goals))
	for _, g := range goals {
		cat := classify(goalKeywords, g, GoalCategory(""))
		if cat == "" || seen[cat] {
			continue
		}
		seen[cat] = true
		out = append(out, cat)
	}
	return out
}
