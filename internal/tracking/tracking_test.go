package tracking

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var start = time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)

func ptr[T any](v T) *T { return &v }

func TestValidateTransition(t *testing.T) {
	tests := []struct {
		from, to Status
		wantErr  error
	}{
		{from: StatusStarted, to: StatusStarted},
		{from: StatusStarted, to: StatusInProgress},
		{from: StatusStarted, to: StatusCompleted},
		{from: StatusInProgress, to: StatusInProgress},
		{from: StatusInProgress, to: StatusCompleted},
		{from: StatusInProgress, to: StatusStarted, wantErr: ErrBackwardTransition},
		{from: StatusCompleted, to: StatusInProgress, wantErr: ErrCompletedImmutable},
		{from: StatusCompleted, to: StatusCompleted, wantErr: ErrCompletedImmutable},
		{from: StatusStarted, to: "paused", wantErr: ErrInvalidStatus},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			err := ValidateTransition(tt.from, tt.to)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestParseStatus(t *testing.T) {
	for _, in := range []string{"in-progress", "In_Progress", "in progress"} {
		st, err := ParseStatus(in)
		require.NoError(t, err, in)
		assert.Equal(t, StatusInProgress, st)
	}
	_, err := ParseStatus("done")
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestUpdateApply(t *testing.T) {
	impl := Implementation{Status: StatusStarted}
	now := start.Add(48 * time.Hour)

	done, err := Update{Status: ptr(StatusInProgress), ProgressPct: ptr(40.0)}.Apply(&impl, now)
	require.NoError(t, err)
	assert.False(t, done)
	assert.Equal(t, StatusInProgress, impl.Status)
	assert.Equal(t, 40.0, impl.ProgressPct)

	_, err = Update{ProgressPct: ptr(120.0)}.Apply(&impl, now)
	assert.ErrorIs(t, err, ErrInvalidProgress)
	assert.Equal(t, 40.0, impl.ProgressPct)

	_, err = Update{Status: ptr(StatusStarted)}.Apply(&impl, now)
	assert.ErrorIs(t, err, ErrBackwardTransition)

	done, err = Update{Status: ptr(StatusCompleted), Notes: ptr("wrapped up")}.Apply(&impl, now)
	require.NoError(t, err)
	assert.True(t, done)
	assert.Equal(t, 100.0, impl.ProgressPct)
	require.NotNil(t, impl.CompletedAt)
	assert.Equal(t, now, *impl.CompletedAt)
	assert.Equal(t, "wrapped up", impl.Notes)

	_, err = Update{Notes: ptr("again")}.Apply(&impl, now)
	assert.ErrorIs(t, err, ErrCompletedImmutable)
	assert.Equal(t, "wrapped up", impl.Notes)
}

func TestUpdateApply_SkipInProgress(t *testing.T) {
	impl := Implementation{Status: StatusStarted, ProgressPct: 5}

	done, err := Update{Status: ptr(StatusCompleted)}.Apply(&impl, start)
	require.NoError(t, err)
	assert.True(t, done)
	assert.Equal(t, StatusCompleted, impl.Status)
}

func TestTrackerROI(t *testing.T) {
	now := start.Add(90 * 24 * time.Hour)
	tr := NewTracker(WithClock(func() time.Time { return now }))

	tests := []struct {
		name           string
		impl           Implementation
		wantExpected   float64
		wantEffective  float64
		wantValue      float64
		wantCost       float64
		wantROI        float64
		wantEfficiency float64
		wantPayback    float64
	}{
		{
			name:           "lagging progress uses time floor",
			impl:           Implementation{EstimatedAnnualSavings: 12000, EstimatedROIMonths: 12, ProgressPct: 10, StartedAt: start},
			wantExpected:   25,
			wantEffective:  17.5,
			wantValue:      2100,
			wantCost:       12000,
			wantROI:        17.5,
			wantEfficiency: 40,
			wantPayback:    25,
		},
		{
			name:           "ahead of schedule caps efficiency",
			impl:           Implementation{EstimatedAnnualSavings: 12000, EstimatedROIMonths: 12, ProgressPct: 60, StartedAt: start},
			wantExpected:   25,
			wantEffective:  60,
			wantValue:      7200,
			wantCost:       12000,
			wantROI:        60,
			wantEfficiency: 100,
			wantPayback:    25,
		},
		{
			name:           "just started falls back to reported progress",
			impl:           Implementation{EstimatedAnnualSavings: 12000, EstimatedROIMonths: 12, ProgressPct: 10, StartedAt: now},
			wantExpected:   0,
			wantEffective:  10,
			wantValue:      1200,
			wantCost:       12000,
			wantROI:        10,
			wantEfficiency: 10,
			wantPayback:    0,
		},
		{
			name:           "no payback estimate",
			impl:           Implementation{EstimatedAnnualSavings: 5000, EstimatedROIMonths: 0, ProgressPct: 10, StartedAt: start},
			wantExpected:   100,
			wantEffective:  70,
			wantValue:      3500,
			wantCost:       0,
			wantROI:        0,
			wantEfficiency: 10,
			wantPayback:    100,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tr.ROI(tt.impl)
			assert.InDelta(t, tt.wantExpected, got.ExpectedProgressPct, 1e-9)
			assert.InDelta(t, tt.wantEffective, got.EffectiveProgressPct, 1e-9)
			assert.InDelta(t, tt.wantValue, got.CurrentValue, 1e-9)
			assert.InDelta(t, tt.wantCost, got.ImpliedCost, 1e-9)
			assert.InDelta(t, tt.wantROI, got.CurrentROIPct, 1e-9)
			assert.InDelta(t, tt.wantEfficiency, got.EfficiencyScore, 1e-9)
			assert.InDelta(t, tt.wantPayback, got.PaybackProgressPct, 1e-9)
		})
	}
}

func TestTrackerROI_FutureStart(t *testing.T) {
	tr := NewTracker(WithClock(func() time.Time { return start }))
	got := tr.ROI(Implementation{EstimatedAnnualSavings: 1000, EstimatedROIMonths: 6, StartedAt: start.Add(72 * time.Hour)})

	assert.Zero(t, got.MonthsElapsed)
	assert.Zero(t, got.CurrentValue)
}

func TestPortfolio(t *testing.T) {
	now := start.Add(90 * 24 * time.Hour)
	tr := NewTracker(WithClock(func() time.Time { return now }))

	got := tr.Portfolio([]Implementation{
		{ID: "a", Status: StatusInProgress, EstimatedAnnualSavings: 12000, EstimatedROIMonths: 12, ProgressPct: 10, StartedAt: start},
		{ID: "b", Status: StatusCompleted, EstimatedAnnualSavings: 6000, EstimatedROIMonths: 24, ProgressPct: 100, StartedAt: start},
	})

	assert.Equal(t, 2, got.Implementations)
	assert.InDelta(t, 24000, got.TotalInvestment, 1e-9)
	assert.InDelta(t, 8100, got.TotalCurrentValue, 1e-9)
	assert.InDelta(t, 18000, got.TotalAnnualSavings, 1e-9)
	assert.InDelta(t, 33.8, got.PortfolioROIPct, 1e-9)
	assert.InDelta(t, 18, got.AveragePaybackMonths, 1e-9)
	assert.InDelta(t, 70, got.AverageEfficiency, 1e-9)
	assert.Equal(t, map[Status]int{StatusStarted: 0, StatusInProgress: 1, StatusCompleted: 1}, got.StatusCounts)
	assert.Len(t, got.Items, 2)
}

func TestPortfolio_Empty(t *testing.T) {
	got := NewTracker().Portfolio(nil)

	assert.Zero(t, got.Implementations)
	assert.Zero(t, got.TotalInvestment)
	assert.Zero(t, got.TotalCurrentValue)
	assert.Zero(t, got.TotalAnnualSavings)
	assert.Zero(t, got.PortfolioROIPct)
	assert.Zero(t, got.AveragePaybackMonths)
	assert.Zero(t, got.AverageEfficiency)
	assert.NotNil(t, got.Items)
}
