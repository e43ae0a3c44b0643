package tracking

import (
	"fmt"
	"strings"
)

type constError string

func (e constError) Error() string { return string(e) }

const (
	ErrInvalidStatus      = constError("invalid implementation status")
	ErrBackwardTransition = constError("status cannot move backwards")
	ErrCompletedImmutable = constError("completed implementations cannot change")
	ErrInvalidProgress    = constError("progress must be between 0 and 100")
)

// Status is the lifecycle state of an implementation. It only moves forward.
type Status string

const (
	StatusStarted    Status = "started"
	StatusInProgress Status = "in-progress"
	StatusCompleted  Status = "completed"
)

// Statuses lists every status in lifecycle order.
var Statuses = []Status{StatusStarted, StatusInProgress, StatusCompleted}

// ParseStatus accepts "in-progress", "in_progress" and "in progress" in any
// casing.
func ParseStatus(s string) (Status, error) {
	norm := strings.NewReplacer("_", "-", " ", "-").Replace(strings.ToLower(strings.TrimSpace(s)))
	for _, st := range Statuses {
		if string(st) == norm {
			return st, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
}

func (s Status) rank() int {
	for i, st := range Statuses {
		if st == s {
			return i
		}
	}
	return -1
}

// ValidateTransition allows staying in place and any forward move, including
// started directly to completed. Nothing leaves completed.
func ValidateTransition(from, to Status) error {
	if to.rank() < 0 {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, to)
	}
	if from == StatusCompleted {
		return ErrCompletedImmutable
	}
	if to.rank() < from.rank() {
		return fmt.Errorf("%w: %s to %s", ErrBackwardTransition, from, to)
	}
	return nil
}
