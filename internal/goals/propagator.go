package goals

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strings"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/bher20/eimpactmanager/internal/tracking"
)

// GoalDelta is an additive change to one goal's current value, already in the
// goal's unit.
type GoalDelta struct {
	GoalID       string  `json:"goal_id"`
	UserID       string  `json:"user_id"`
	GoalCategory string  `json:"goal_category"`
	Delta        float64 `json:"delta"`
	Unit         string  `json:"unit"`
}

// Store is the goal persistence the propagator needs. ApplyGoalDelta must add
// the delta atomically for the single goal and return the updated goal.
type Store interface {
	ListGoals(ctx context.Context, userID string) ([]Goal, error)
	ApplyGoalDelta(ctx context.Context, d GoalDelta) (*Goal, error)
}

// BatchStore applies several deltas in one transaction: all or none.
type BatchStore interface {
	Store
	ApplyGoalDeltas(ctx context.Context, deltas []GoalDelta) ([]Goal, error)
}

// Outcome is the result of one goal update.
type Outcome struct {
	GoalDelta
	Goal     *Goal  `json:"goal,omitempty"`
	Achieved bool   `json:"achieved"`
	Error    string `json:"error,omitempty"`
}

// BatchResult reports every goal update made for one completed
// implementation.
type BatchResult struct {
	ImplementationID string    `json:"implementation_id"`
	Atomic           bool      `json:"atomic"`
	Outcomes         []Outcome `json:"outcomes"`
	Applied          int       `json:"applied"`
	Failed           int       `json:"failed"`
}

// Achieved returns the goals that reached their target in this batch.
func (r BatchResult) Achieved() []Goal {
	var out []Goal
	for _, o := range r.Outcomes {
		if o.Achieved && o.Goal != nil {
			out = append(out, *o.Goal)
		}
	}
	return out
}

// Propagator pushes the impact of completed implementations into goals.
type Propagator struct {
	store       Store
	table       *ImpactTable
	parallelism int
}

// PropagatorOption configures a Propagator.
type PropagatorOption func(*Propagator)

// WithImpactTable replaces the default category mapping.
func WithImpactTable(t *ImpactTable) PropagatorOption {
	return func(p *Propagator) { p.table = t }
}

// WithParallelism bounds concurrent single-goal updates.
func WithParallelism(n int) PropagatorOption {
	return func(p *Propagator) {
		if n > 0 {
			p.parallelism = n
		}
	}
}

func NewPropagator(store Store, opts ...PropagatorOption) *Propagator {
	p := &Propagator{
		store:       store,
		table:       DefaultImpactTable(),
		parallelism: runtime.NumCPU(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Plan computes one delta per goal of impl's owner whose category is fed by
// impl's category. Goals without a mapping get nothing.
func (p *Propagator) Plan(goals []Goal, impl tracking.Implementation) []GoalDelta {
	var deltas []GoalDelta
	for _, target := range p.table.Targets(impl.Category) {
		impact := target.Impact(impl)
		for _, g := range goals {
			if g.UserID != impl.UserID || !strings.EqualFold(g.Category, target.GoalCategory) {
				continue
			}
			v, _ := Convert(impact, target.Unit, g.Unit)
			deltas = append(deltas, GoalDelta{
				GoalID:       g.ID,
				UserID:       g.UserID,
				GoalCategory: g.Category,
				Delta:        v,
				Unit:         g.Unit,
			})
		}
	}
	return deltas
}

// Propagate applies impl's impact to its owner's goals. A BatchStore applies
// the batch in one transaction; otherwise goals are updated in parallel and a
// partial failure returns ErrPartialBatch together with the per-goal result.
func (p *Propagator) Propagate(ctx context.Context, impl tracking.Implementation) (BatchResult, error) {
	res := BatchResult{ImplementationID: impl.ID, Outcomes: []Outcome{}}

	goals, err := p.store.ListGoals(ctx, impl.UserID)
	if err != nil {
		return res, fmt.Errorf("list goals: %w", err)
	}
	deltas := p.Plan(goals, impl)
	if len(deltas) == 0 {
		return res, nil
	}

	before := make(map[string]Goal, len(goals))
	for _, g := range goals {
		before[g.ID] = g
	}

	if bs, ok := p.store.(BatchStore); ok {
		return p.applyAtomic(ctx, bs, deltas, before, res)
	}
	return p.applyParallel(ctx, deltas, before, res)
}

func (p *Propagator) applyAtomic(ctx context.Context, bs BatchStore, deltas []GoalDelta, before map[string]Goal, res BatchResult) (BatchResult, error) {
	res.Atomic = true
	updated, err := bs.ApplyGoalDeltas(ctx, deltas)
	if err != nil {
		for _, d := range deltas {
			res.Outcomes = append(res.Outcomes, Outcome{GoalDelta: d, Error: err.Error()})
		}
		res.Failed = len(deltas)
		return res, fmt.Errorf("apply goal batch: %w", err)
	}

	byID := make(map[string]Goal, len(updated))
	for _, g := range updated {
		byID[g.ID] = g
	}
	for _, d := range deltas {
		o := Outcome{GoalDelta: d}
		if g, ok := byID[d.GoalID]; ok {
			o.Goal = &g
			o.Achieved = achieved(before[d.GoalID], g)
		}
		res.Outcomes = append(res.Outcomes, o)
	}
	res.Applied = len(deltas)
	return res, nil
}

func (p *Propagator) applyParallel(ctx context.Context, deltas []GoalDelta, before map[string]Goal, res BatchResult) (BatchResult, error) {
	outcomes := make([]Outcome, len(deltas))
	errs := make([]error, len(deltas))

	// No group context: a failed update must not cancel its siblings.
	var g errgroup.Group
	g.SetLimit(p.parallelism)
	for i, d := range deltas {
		g.Go(func() error {
			updated, err := p.store.ApplyGoalDelta(ctx, d)
			outcomes[i] = Outcome{GoalDelta: d}
			if err != nil {
				errs[i] = fmt.Errorf("goal %s: %w", d.GoalID, err)
				outcomes[i].Error = err.Error()
				return errs[i]
			}
			if updated != nil {
				outcomes[i].Goal = updated
				outcomes[i].Achieved = achieved(before[d.GoalID], *updated)
			}
			return nil
		})
	}
	res.Outcomes = outcomes
	if err := g.Wait(); err == nil {
		res.Applied = len(deltas)
		return res, nil
	}

	for _, err := range errs {
		if err != nil {
			res.Failed++
		}
	}
	res.Applied = len(deltas) - res.Failed

	switch {
	case res.Applied > 0:
		log.Warn().
			Str("implementation_id", res.ImplementationID).
			Int("applied", res.Applied).
			Int("failed", res.Failed).
			Msg("goals: partial batch")
		return res, fmt.Errorf("%w: %d of %d updates failed: %w", ErrPartialBatch, res.Failed, len(deltas), errors.Join(errs...))
	default:
		return res, fmt.Errorf("apply goal deltas: %w", errors.Join(errs...))
	}
}

func achieved(before, after Goal) bool {
	return before.AchievedAt == nil && after.AchievedAt != nil
}
