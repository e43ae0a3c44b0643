package calc

import (
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

//nolint:gochecknoglobals // Global printer is idiomatic for x/text/message usage.
var printer = message.NewPrinter(language.English)

// FormatCurrency renders whole US dollars with thousand separators, e.g.
// FormatCurrency(1234.56) returns "$1,235".
func FormatCurrency(amount float64) string {
	d := decimal.NewFromFloat(amount).Round(0)
	if d.IsNegative() {
		return "-$" + printer.Sprintf("%d", d.Abs().IntPart())
	}
	return "$" + printer.Sprintf("%d", d.IntPart())
}

// FormatNumber renders v with the given number of decimals and thousand
// separators, e.g. FormatNumber(1234.5678, 2) returns "1,234.57".
func FormatNumber(v float64, decimals int32) string {
	if decimals < 0 {
		decimals = 0
	}
	d := decimal.NewFromFloat(v).Round(decimals)
	sign := ""
	if d.IsNegative() {
		sign = "-"
		d = d.Abs()
	}
	fixed := d.StringFixed(decimals)
	intPart, frac, _ := strings.Cut(fixed, ".")
	grouped := printer.Sprintf("%d", decimal.RequireFromString(intPart).IntPart())
	if frac == "" {
		return sign + grouped
	}
	return sign + grouped + "." + frac
}
