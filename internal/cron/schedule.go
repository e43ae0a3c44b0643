package cron

import (
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// fallbackInterval is used when a schedule setting cannot be parsed.
const fallbackInterval = time.Hour

// NextRun returns the run after last for a schedule given either as integer
// seconds ("3600") or a standard five-field cron expression ("0 * * * *").
func NextRun(setting string, last time.Time) time.Time {
	setting = strings.TrimSpace(setting)
	if v, err := strconv.Atoi(setting); err == nil && v > 0 {
		return last.Add(time.Duration(v) * time.Second)
	}
	if sched, err := cron.ParseStandard(setting); err == nil {
		return sched.Next(last)
	}
	return last.Add(fallbackInterval)
}

// ValidSchedule reports whether NextRun understands setting without falling
// back.
func ValidSchedule(setting string) bool {
	setting = strings.TrimSpace(setting)
	if v, err := strconv.Atoi(setting); err == nil {
		return v > 0
	}
	_, err := cron.ParseStandard(setting)
	return err == nil
}
