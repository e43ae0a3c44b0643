package goals

import (
	"math"
	"time"
)

type constError string

func (e constError) Error() string { return string(e) }

// ErrPartialBatch reports that some goal updates of one batch failed.
const ErrPartialBatch = constError("goal batch partially applied")

// Goal is a long-term sustainability target. CurrentValue only grows through
// AddImpact; ProgressPct is kept in [0, 100].
type Goal struct {
	ID           string     `json:"id" gorm:"primaryKey;column:id"`
	UserID       string     `json:"user_id" gorm:"index;column:user_id"`
	Title        string     `json:"title" gorm:"column:title"`
	Category     string     `json:"category" gorm:"column:category"`
	TargetValue  float64    `json:"target_value" gorm:"column:target_value"`
	CurrentValue float64    `json:"current_value" gorm:"column:current_value"`
	Unit         string     `json:"unit" gorm:"column:unit"`
	ProgressPct  float64    `json:"progress_percentage" gorm:"column:progress_percentage"`
	TargetDate   *time.Time `json:"target_date,omitempty" gorm:"column:target_date"`
	AchievedAt   *time.Time `json:"achieved_at,omitempty" gorm:"column:achieved_at"`
	CreatedAt    time.Time  `json:"created_at" gorm:"column:created_at"`
	UpdatedAt    time.Time  `json:"updated_at" gorm:"column:updated_at"`
}

func (Goal) TableName() string { return "sustainability_goals" }

// ProgressFor returns current/target as a percentage clamped to [0, 100]. A
// non-positive target has no progress.
func ProgressFor(current, target float64) float64 {
	if target <= 0 {
		return 0
	}
	return math.Max(0, math.Min(current/target*100, 100))
}

// AddImpact adds delta to the current value and recomputes progress.
// achievedNow is true the first time progress reaches 100.
func (g *Goal) AddImpact(delta float64, now time.Time) (achievedNow bool) {
	g.CurrentValue += delta
	return g.Refresh(now)
}

// Refresh recomputes progress from the current value and stamps AchievedAt
// the first time the target is reached.
func (g *Goal) Refresh(now time.Time) (achievedNow bool) {
	g.ProgressPct = ProgressFor(g.CurrentValue, g.TargetValue)
	g.UpdatedAt = now
	if g.ProgressPct >= 100 && g.AchievedAt == nil {
		at := now
		g.AchievedAt = &at
		return true
	}
	return false
}
