package goals

import (
	"strings"

	"github.com/rs/zerolog/log"
)

type unit struct {
	canonical string
	scale     float64 // multiply to reach the canonical unit
}

//nolint:gochecknoglobals // Read-only lookup table.
var units = map[string]unit{
	"usd":        {"usd", 1},
	"$":          {"usd", 1},
	"dollars":    {"usd", 1},
	"tons_co2":   {"tons_co2", 1},
	"tco2":       {"tons_co2", 1},
	"tons co2":   {"tons_co2", 1},
	"t":          {"tons_co2", 1},
	"lbs_co2":    {"tons_co2", 1.0 / 2000},
	"lb":         {"tons_co2", 1.0 / 2000},
	"lbs":        {"tons_co2", 1.0 / 2000},
	"kwh":        {"kwh", 1},
	"mwh":        {"kwh", 1000},
	"percentage": {"percentage", 1},
	"%":          {"percentage", 1},
	"percent":    {"percentage", 1},
	"miles":      {"miles", 1},
	"mi":         {"miles", 1},
	"gallons":    {"gallons", 1},
	"gal":        {"gallons", 1},
	"tons":       {"tons", 1},
}

func lookupUnit(name string) (unit, bool) {
	u, ok := units[strings.ToLower(strings.TrimSpace(name))]
	return u, ok
}

// Convert converts v between two units of the same dimension. Unknown units
// or mismatched dimensions return v unchanged with ok false and a warning.
func Convert(v float64, from, to string) (float64, bool) {
	f, okFrom := lookupUnit(from)
	t, okTo := lookupUnit(to)
	if !okFrom || !okTo || f.canonical != t.canonical {
		log.Warn().
			Str("from", from).
			Str("to", to).
			Float64("value", v).
			Msg("goals: no unit conversion, passing value through")
		return v, false
	}
	return v * f.scale / t.scale, true
}
