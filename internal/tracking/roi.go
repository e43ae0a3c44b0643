package tracking

import (
	"math"
	"time"

	"github.com/bher20/eimpactmanager/internal/calc"
)

const (
	daysPerMonth = 30
	// timeFloor is the share of time-based expected progress credited even
	// when reported progress lags behind.
	timeFloor = 0.7
)

// ROIMetrics is the in-flight return of one implementation.
type ROIMetrics struct {
	ImplementationID       string  `json:"implementation_id"`
	Title                  string  `json:"title"`
	Category               string  `json:"category"`
	Status                 Status  `json:"status"`
	EstimatedAnnualSavings float64 `json:"estimated_annual_savings"`
	EstimatedROIMonths     float64 `json:"estimated_roi_months"`
	MonthsElapsed          float64 `json:"months_elapsed"`
	ExpectedProgressPct    float64 `json:"expected_progress"`
	EffectiveProgressPct   float64 `json:"effective_progress"`
	CurrentValue           float64 `json:"current_value"`
	ImpliedCost            float64 `json:"implied_cost"`
	CurrentROIPct          float64 `json:"current_roi"`
	EfficiencyScore        float64 `json:"efficiency_score"`
	PaybackProgressPct     float64 `json:"payback_progress"`
}

// Tracker computes ROI metrics against a clock.
type Tracker struct {
	now func() time.Time
}

// TrackerOption configures a Tracker.
type TrackerOption func(*Tracker)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) TrackerOption {
	return func(t *Tracker) { t.now = now }
}

func NewTracker(opts ...TrackerOption) *Tracker {
	t := &Tracker{now: time.Now}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// ROI estimates how much of an implementation's value has been realised.
// Effective progress is the larger of the reported progress and 70% of the
// progress expected from elapsed time. A non-positive ROI estimate counts as
// already paid back.
func (t *Tracker) ROI(impl Implementation) ROIMetrics {
	elapsed := math.Max(t.now().Sub(impl.StartedAt).Hours()/24/daysPerMonth, 0)
	savings := impl.EstimatedAnnualSavings
	roiMonths := impl.EstimatedROIMonths

	expected, implied, payback := 1.0, 0.0, 100.0
	if roiMonths > 0 {
		expected = math.Min(elapsed/roiMonths, 1)
		implied = savings / (12 / roiMonths)
		payback = math.Min(elapsed/roiMonths*100, 100)
	}

	effective := math.Max(impl.ProgressPct/100, timeFloor*expected)
	current := savings * effective

	currentROI := 0.0
	if implied > 0 {
		currentROI = current / implied * 100
	}

	efficiency := impl.ProgressPct
	if expectedPct := expected * 100; expectedPct > 0 {
		efficiency = math.Min(impl.ProgressPct/expectedPct*100, 100)
	}

	return ROIMetrics{
		ImplementationID:       impl.ID,
		Title:                  impl.Title,
		Category:               impl.Category,
		Status:                 impl.Status,
		EstimatedAnnualSavings: impl.EstimatedAnnualSavings,
		EstimatedROIMonths:     roiMonths,
		MonthsElapsed:          calc.Round(elapsed, 1),
		ExpectedProgressPct:    calc.Round(expected*100, 1),
		EffectiveProgressPct:   calc.Round(effective*100, 1),
		CurrentValue:           calc.Round(current, 2),
		ImpliedCost:            calc.Round(implied, 2),
		CurrentROIPct:          calc.Round(currentROI, 1),
		EfficiencyScore:        calc.Round(efficiency, 1),
		PaybackProgressPct:     calc.Round(payback, 1),
	}
}

// Portfolio computes ROI for every implementation and aggregates it.
func (t *Tracker) Portfolio(impls []Implementation) Portfolio {
	metrics := make([]ROIMetrics, 0, len(impls))
	for _, impl := range impls {
		metrics = append(metrics, t.ROI(impl))
	}
	return Aggregate(metrics)
}
