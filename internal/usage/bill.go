// Package usage turns utility bills into energy usage records.
package usage

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/rs/zerolog/log"

	"github.com/bher20/eimpactmanager/internal/calc"
)

type constError string

func (e constError) Error() string { return string(e) }

// ErrNoUsageFound is returned when a bill mentions neither kWh nor therms.
const ErrNoUsageFound constError = "no energy usage found in bill"

const (
	// daysPerMonth is the average month used to normalise billing periods.
	daysPerMonth = 365.25 / 12
	// thermsPerCCF converts hundred cubic feet of natural gas to therms.
	thermsPerCCF = 1.037
)

// Bill is what could be read from one utility bill. Usage is normalised to an
// average month when the billing period is known.
type Bill struct {
	Usage       calc.EnergyUsage `json:"usage"`
	BillingDays int              `json:"billing_days,omitempty"`
	AmountDue   float64          `json:"amount_due,omitempty"`
	RawKWh      float64          `json:"raw_kwh"`
	RawTherms   float64          `json:"raw_therms"`
}

const num = `(\d[\d,]*(?:\.\d+)?)`

var (
	kwhUsedRe    = regexp.MustCompile(`(?i)(?:kwh\s+used|energy\s+used|total\s+usage|electric\s+usage)[^\d\n]{0,20}` + num)
	kwhRe        = regexp.MustCompile(`(?i)` + num + `\s*kwh\b`)
	thermRe      = regexp.MustCompile(`(?i)` + num + `\s*(?:therms?|thm)\b`)
	ccfRe        = regexp.MustCompile(`(?i)` + num + `\s*ccf\b`)
	elecRateRe   = regexp.MustCompile(`(?i)\$?\s*(\d*\.\d+)\s*\$?\s*(?:per|/)\s*kwh\b`)
	gasRateRe    = regexp.MustCompile(`(?i)\$?\s*(\d*\.\d+)\s*\$?\s*(?:per|/)\s*(?:therms?|thm)\b`)
	demandRateRe = regexp.MustCompile(`(?i)\$\s*` + num + `\s*(?:per|/)\s*kw\b`)
	peakRe       = regexp.MustCompile(`(?i)(?:peak|billed|max(?:imum)?)\s+demand[^\d\n]{0,20}` + num + `\s*kw\b`)
	daysRe       = regexp.MustCompile(`(?i)(\d{2,3})\s*(?:billing\s+)?days\b`)
	amountDueRe  = regexp.MustCompile(`(?i)(?:amount\s+due|total\s+due|total\s+amount\s+due)[^\d\n]{0,10}\$?\s*` + num)
)

// ParseText reads usage, rates, demand and the billing period from the plain
// text of a bill.
func ParseText(text string) (*Bill, error) {
	kwh, hasKWh := firstFloat(kwhUsedRe, text)
	if !hasKWh {
		kwh, hasKWh = firstFloat(kwhRe, text)
	}
	therms, hasTherms := firstFloat(thermRe, text)
	if !hasTherms {
		if ccf, ok := firstFloat(ccfRe, text); ok {
			therms, hasTherms = ccf*thermsPerCCF, true
		}
	}
	if !hasKWh && !hasTherms {
		return nil, ErrNoUsageFound
	}

	b := &Bill{RawKWh: kwh, RawTherms: calc.Round(therms, 2)}
	b.Usage.ElectricityRate, _ = firstFloat(elecRateRe, text)
	b.Usage.GasRate, _ = firstFloat(gasRateRe, text)
	b.Usage.DemandCharge, _ = firstFloat(demandRateRe, text)
	b.Usage.PeakDemandKW, _ = firstFloat(peakRe, text)
	b.AmountDue, _ = firstFloat(amountDueRe, text)
	if days, ok := firstFloat(daysRe, text); ok {
		b.BillingDays = int(days)
	}

	scale := 1.0
	if b.BillingDays > 0 {
		scale = daysPerMonth / float64(b.BillingDays)
	}
	b.Usage.MonthlyKWh = calc.Round(kwh*scale, 2)
	b.Usage.MonthlyTherms = calc.Round(therms*scale, 2)

	log.Debug().
		Float64("kwh", b.Usage.MonthlyKWh).
		Float64("therms", b.Usage.MonthlyTherms).
		Int("billing_days", b.BillingDays).
		Msg("usage: parsed bill")
	return b, nil
}

// ParsePDF extracts the text of the PDF at path and parses it.
func ParsePDF(path string) (*Bill, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()
	return parseReader(r)
}

// ParsePDFReader parses a PDF held in memory, such as an upload.
func ParsePDFReader(ra io.ReaderAt, size int64) (*Bill, error) {
	r, err := pdf.NewReader(ra, size)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	return parseReader(r)
}

func parseReader(r *pdf.Reader) (*Bill, error) {
	rc, err := r.GetPlainText()
	if err != nil {
		return nil, fmt.Errorf("extract pdf text: %w", err)
	}

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, rc); err != nil {
		return nil, fmt.Errorf("read pdf text: %w", err)
	}
	return ParseText(buf.String())
}

// ParseFile parses a bill from disk, as PDF when the file starts with the PDF
// magic and as text otherwise.
func ParseFile(path string) (*Bill, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read bill: %w", err)
	}
	if IsPDF(data) {
		return ParsePDFReader(bytes.NewReader(data), int64(len(data)))
	}
	return ParseText(string(data))
}

// IsPDF reports whether data starts with the PDF header.
func IsPDF(data []byte) bool {
	return bytes.HasPrefix(data, []byte("%PDF-"))
}

func firstFloat(re *regexp.Regexp, s string) (float64, bool) {
	m := re.FindStringSubmatch(s)
	if len(m) < 2 {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
