package tracking

import (
	"fmt"
	"time"
)

// Implementation is a recommendation a user has adopted.
type Implementation struct {
	ID                     string     `json:"id" gorm:"primaryKey;column:id"`
	UserID                 string     `json:"user_id" gorm:"index;column:user_id"`
	RecommendationID       string     `json:"recommendation_id" gorm:"column:recommendation_id"`
	Title                  string     `json:"title" gorm:"column:title"`
	Category               string     `json:"category" gorm:"column:category"`
	EstimatedAnnualSavings float64    `json:"estimated_annual_savings" gorm:"column:estimated_annual_savings"`
	EstimatedCO2Reduction  float64    `json:"estimated_co2_reduction" gorm:"column:estimated_co2_reduction"` // tons/year
	EstimatedROIMonths     float64    `json:"estimated_roi_months" gorm:"column:estimated_roi_months"`
	Difficulty             string     `json:"difficulty" gorm:"column:difficulty"`
	Status                 Status     `json:"status" gorm:"column:status"`
	ProgressPct            float64    `json:"progress_percentage" gorm:"column:progress_percentage"`
	Notes                  string     `json:"notes,omitempty" gorm:"column:notes"`
	StartedAt              time.Time  `json:"started_at" gorm:"column:started_at"`
	CompletedAt            *time.Time `json:"completed_at,omitempty" gorm:"column:completed_at"`
	CreatedAt              time.Time  `json:"created_at" gorm:"column:created_at"`
	UpdatedAt              time.Time  `json:"updated_at" gorm:"column:updated_at"`
}

func (Implementation) TableName() string { return "implementations" }

// Update is a partial change to an implementation. Nil fields are left alone.
type Update struct {
	Status      *Status  `json:"status,omitempty"`
	ProgressPct *float64 `json:"progress_percentage,omitempty"`
	Notes       *string  `json:"notes,omitempty"`
}

// Apply validates and applies u to impl. Moving to completed forces progress
// to 100 and stamps CompletedAt; completedNow reports that transition.
func (u Update) Apply(impl *Implementation, now time.Time) (completedNow bool, err error) {
	if impl.Status == StatusCompleted {
		return false, ErrCompletedImmutable
	}
	if u.ProgressPct != nil && (*u.ProgressPct < 0 || *u.ProgressPct > 100) {
		return false, fmt.Errorf("%w: got %v", ErrInvalidProgress, *u.ProgressPct)
	}
	if u.Status != nil {
		if err := ValidateTransition(impl.Status, *u.Status); err != nil {
			return false, err
		}
		impl.Status = *u.Status
	}
	if u.ProgressPct != nil {
		impl.ProgressPct = *u.ProgressPct
	}
	if u.Notes != nil {
		impl.Notes = *u.Notes
	}
	if impl.Status == StatusCompleted {
		impl.ProgressPct = 100
		at := now
		impl.CompletedAt = &at
		completedNow = true
	}
	impl.UpdatedAt = now
	return completedNow, nil
}
