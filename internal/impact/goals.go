package impact

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/bher20/eimpactmanager/internal/goals"
)

// GoalRequest creates a sustainability goal.
type GoalRequest struct {
	Title        string     `json:"title"`
	Category     string     `json:"category"`
	TargetValue  float64    `json:"target_value"`
	CurrentValue float64    `json:"current_value"`
	Unit         string     `json:"unit"`
	TargetDate   *time.Time `json:"target_date,omitempty"`
}

func (r GoalRequest) validate() error {
	switch {
	case strings.TrimSpace(r.Title) == "":
		return fmt.Errorf("%w: title is required", ErrInvalidInput)
	case strings.TrimSpace(r.Category) == "":
		return fmt.Errorf("%w: category is required", ErrInvalidInput)
	case r.TargetValue <= 0:
		return fmt.Errorf("%w: target_value must be positive", ErrInvalidInput)
	case r.CurrentValue < 0:
		return fmt.Errorf("%w: current_value must not be negative", ErrInvalidInput)
	}
	return nil
}

// CreateGoal stores a new goal for userID with its progress computed.
func (s *Service) CreateGoal(ctx context.Context, userID string, req GoalRequest) (*goals.Goal, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	now := s.now()
	g := goals.Goal{
		ID:           uuid.New().String(),
		UserID:       userID,
		Title:        req.Title,
		Category:     strings.ToLower(strings.TrimSpace(req.Category)),
		TargetValue:  req.TargetValue,
		CurrentValue: req.CurrentValue,
		Unit:         req.Unit,
		TargetDate:   req.TargetDate,
		CreatedAt:    now,
	}
	g.Refresh(now)
	if err := s.store.CreateGoal(ctx, g); err != nil {
		return nil, fmt.Errorf("create goal: %w", err)
	}
	return &g, nil
}

func (s *Service) Goals(ctx context.Context, userID string) ([]goals.Goal, error) {
	return s.store.ListGoals(ctx, userID)
}

// Goal returns one of userID's goals.
func (s *Service) Goal(ctx context.Context, userID, id string) (*goals.Goal, error) {
	g, err := s.store.GetGoal(ctx, id)
	if err != nil {
		return nil, err
	}
	if g == nil || g.UserID != userID {
		return nil, fmt.Errorf("goal %s: %w", id, ErrNotFound)
	}
	return g, nil
}
