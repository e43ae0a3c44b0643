// Package impact orchestrates adopted implementations, their ROI and the
// goals they feed.
package impact

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/datatypes"

	"github.com/bher20/eimpactmanager/internal/cache"
	"github.com/bher20/eimpactmanager/internal/calc"
	"github.com/bher20/eimpactmanager/internal/goals"
	"github.com/bher20/eimpactmanager/internal/metrics"
	"github.com/bher20/eimpactmanager/internal/storage"
	"github.com/bher20/eimpactmanager/internal/tracking"
)

type constError string

func (e constError) Error() string { return string(e) }

const (
	ErrNotFound     = constError("not found")
	ErrInvalidInput = constError("invalid input")
	// ErrConflict means another update changed the implementation first.
	ErrConflict = constError("implementation was updated concurrently")
)

// Notifier is told about completions and achieved goals.
type Notifier interface {
	ImplementationCompleted(ctx context.Context, impl tracking.Implementation)
	GoalAchieved(ctx context.Context, g goals.Goal)
}

type nopNotifier struct{}

func (nopNotifier) ImplementationCompleted(context.Context, tracking.Implementation) {}
func (nopNotifier) GoalAchieved(context.Context, goals.Goal)                       {}

const portfolioCache = "portfolio"

func portfolioKey(userID string) string { return portfolioCache + ":" + userID }

type Service struct {
	store      storage.Storage
	tracker    *tracking.Tracker
	propagator *goals.Propagator
	portfolios *cache.Store[tracking.Portfolio]
	notifier   Notifier
	cacheTTL   time.Duration
	now        func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithClock replaces time.Now for timestamps, ROI and cache expiry.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithNotifier sets who hears about completions and achieved goals.
func WithNotifier(n Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

// WithCacheTTL sets the portfolio rollup lifetime.
func WithCacheTTL(ttl time.Duration) Option {
	return func(s *Service) { s.cacheTTL = ttl }
}

// WithPropagator replaces the default goal propagator over the store.
func WithPropagator(p *goals.Propagator) Option {
	return func(s *Service) { s.propagator = p }
}

func NewService(store storage.Storage, opts ...Option) *Service {
	s := &Service{
		store:    store,
		notifier: nopNotifier{},
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	clock := func() time.Time { return s.now() }
	s.tracker = tracking.NewTracker(tracking.WithClock(clock))
	if s.cacheTTL <= 0 {
		s.cacheTTL = cache.TTLFromEnv()
	}
	s.portfolios = cache.New[tracking.Portfolio](s.cacheTTL, cache.WithClock[tracking.Portfolio](clock))
	if s.propagator == nil {
		s.propagator = goals.NewPropagator(store)
	}
	return s
}

// AdoptRequest turns a recommendation into a tracked implementation.
type AdoptRequest struct {
	RecommendationID       string  `json:"recommendation_id"`
	Title                  string  `json:"title"`
	Category               string  `json:"category"`
	EstimatedAnnualSavings float64 `json:"estimated_annual_savings"`
	EstimatedCO2Reduction  float64 `json:"estimated_co2_reduction"`
	EstimatedROIMonths     float64 `json:"estimated_roi_months"`
	Difficulty             string  `json:"difficulty"`
	Notes                  string  `json:"notes,omitempty"`
}

func (r AdoptRequest) validate() error {
	if strings.TrimSpace(r.Title) == "" {
		return fmt.Errorf("%w: title is required", ErrInvalidInput)
	}
	if r.EstimatedAnnualSavings < 0 || r.EstimatedCO2Reduction < 0 || r.EstimatedROIMonths < 0 {
		return fmt.Errorf("%w: estimates must not be negative", ErrInvalidInput)
	}
	return nil
}

// Adopt starts tracking a new implementation for userID.
func (s *Service) Adopt(ctx context.Context, userID string, req AdoptRequest) (*tracking.Implementation, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	d, err := calc.ParseDifficulty(req.Difficulty)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	now := s.now()
	impl := tracking.Implementation{
		ID:                     uuid.New().String(),
		UserID:                 userID,
		RecommendationID:       req.RecommendationID,
		Title:                  req.Title,
		Category:               req.Category,
		EstimatedAnnualSavings: req.EstimatedAnnualSavings,
		EstimatedCO2Reduction:  req.EstimatedCO2Reduction,
		EstimatedROIMonths:     req.EstimatedROIMonths,
		Difficulty:             string(d),
		Status:                 tracking.StatusStarted,
		Notes:                  req.Notes,
		StartedAt:              now,
		CreatedAt:              now,
		UpdatedAt:              now,
	}
	if err := s.store.CreateImplementation(ctx, impl); err != nil {
		return nil, fmt.Errorf("create implementation: %w", err)
	}
	s.portfolios.Invalidate(portfolioKey(userID))

	log.Info().Str("user", userID).Str("implementation", impl.ID).Str("category", impl.Category).Msg("impact: implementation adopted")
	return &impl, nil
}

// Implementation returns one of userID's implementations.
func (s *Service) Implementation(ctx context.Context, userID, id string) (*tracking.Implementation, error) {
	impl, err := s.store.GetImplementation(ctx, id)
	if err != nil {
		return nil, err
	}
	if impl == nil || impl.UserID != userID {
		return nil, fmt.Errorf("implementation %s: %w", id, ErrNotFound)
	}
	return impl, nil
}

func (s *Service) Implementations(ctx context.Context, userID string) ([]tracking.Implementation, error) {
	return s.store.ListImplementations(ctx, userID)
}

// UpdateResult is an updated implementation plus the goal updates its
// completion caused.
type UpdateResult struct {
	Implementation tracking.Implementation `json:"implementation"`
	Completed      bool                    `json:"completed"`
	Goals          *goals.BatchResult      `json:"goal_updates,omitempty"`
	GoalError      string                  `json:"goal_error,omitempty"`
}

// UpdateImplementation applies a status or progress change. Completing an
// implementation pushes its impact into the owner's goals; a goal failure is
// reported in the result and does not undo the completion. The write only
// lands if the stored status is still the one the change was computed from,
// so goals see each completion once.
func (s *Service) UpdateImplementation(ctx context.Context, userID, id string, upd tracking.Update) (UpdateResult, error) {
	impl, err := s.Implementation(ctx, userID, id)
	if err != nil {
		return UpdateResult{}, err
	}

	read := impl.Status
	completed, err := upd.Apply(impl, s.now())
	if err != nil {
		return UpdateResult{}, err
	}
	if err := s.store.UpdateImplementation(ctx, *impl, read); err != nil {
		if errors.Is(err, storage.ErrStatusMismatch) {
			return UpdateResult{}, s.lostUpdate(ctx, userID, id)
		}
		return UpdateResult{}, fmt.Errorf("update implementation: %w", err)
	}
	s.portfolios.Invalidate(portfolioKey(userID))

	res := UpdateResult{Implementation: *impl, Completed: completed}
	if !completed {
		return res, nil
	}

	metrics.ImplementationsCompletedTotal.Inc()
	s.notifier.ImplementationCompleted(ctx, *impl)

	batch, err := s.propagator.Propagate(ctx, *impl)
	res.Goals = &batch
	metrics.ObserveGoalUpdates(batch.Applied, batch.Failed, len(batch.Achieved()))
	if err != nil {
		res.GoalError = err.Error()
		ev := log.Error()
		if errors.Is(err, goals.ErrPartialBatch) {
			ev = log.Warn()
		}
		ev.Err(err).Str("implementation", impl.ID).Msg("impact: goal propagation failed")
	}
	for _, g := range batch.Achieved() {
		s.notifier.GoalAchieved(ctx, g)
	}

	log.Info().
		Str("user", userID).
		Str("implementation", impl.ID).
		Int("goals_updated", batch.Applied).
		Msg("impact: implementation completed")
	return res, nil
}

// lostUpdate explains a conditional write that matched no row.
func (s *Service) lostUpdate(ctx context.Context, userID, id string) error {
	cur, err := s.Implementation(ctx, userID, id)
	if err != nil {
		return err
	}
	if cur.Status == tracking.StatusCompleted {
		return fmt.Errorf("implementation %s: %w", id, tracking.ErrCompletedImmutable)
	}
	return fmt.Errorf("implementation %s: %w", id, ErrConflict)
}

// ImplementationROI reports the realised return of one implementation.
func (s *Service) ImplementationROI(ctx context.Context, userID, id string) (tracking.ROIMetrics, error) {
	impl, err := s.Implementation(ctx, userID, id)
	if err != nil {
		return tracking.ROIMetrics{}, err
	}
	return s.tracker.ROI(*impl), nil
}

// Portfolio returns userID's rollup, served from cache while fresh.
func (s *Service) Portfolio(ctx context.Context, userID string) (tracking.Portfolio, error) {
	key := portfolioKey(userID)
	if p, ok := s.portfolios.Get(key); ok {
		metrics.ObserveCache(portfolioCache, true)
		return p, nil
	}
	metrics.ObserveCache(portfolioCache, false)

	gen := s.portfolios.Generation(key)
	p, err := s.computePortfolio(ctx, userID)
	if err != nil {
		return tracking.Portfolio{}, err
	}
	s.portfolios.SetIfCurrent(key, p, gen)
	return p, nil
}

func (s *Service) computePortfolio(ctx context.Context, userID string) (tracking.Portfolio, error) {
	impls, err := s.store.ListImplementations(ctx, userID)
	if err != nil {
		return tracking.Portfolio{}, fmt.Errorf("list implementations: %w", err)
	}
	return s.tracker.Portfolio(impls), nil
}

// SnapshotPortfolio stores a fresh rollup of userID's portfolio.
func (s *Service) SnapshotPortfolio(ctx context.Context, userID string) (storage.PortfolioSnapshot, error) {
	key := portfolioKey(userID)
	gen := s.portfolios.Generation(key)
	p, err := s.computePortfolio(ctx, userID)
	if err != nil {
		return storage.PortfolioSnapshot{}, err
	}
	payload, err := json.Marshal(p)
	if err != nil {
		return storage.PortfolioSnapshot{}, fmt.Errorf("encode portfolio: %w", err)
	}
	snap := storage.PortfolioSnapshot{
		ID:      uuid.New().String(),
		UserID:  userID,
		TakenAt: s.now(),
		Payload: datatypes.JSON(payload),
	}
	if err := s.store.SavePortfolioSnapshot(ctx, snap); err != nil {
		return storage.PortfolioSnapshot{}, fmt.Errorf("save snapshot: %w", err)
	}
	s.portfolios.SetIfCurrent(key, p, gen)
	return snap, nil
}

// Snapshots lists userID's stored rollups, newest first.
func (s *Service) Snapshots(ctx context.Context, userID string, limit int) ([]storage.PortfolioSnapshot, error) {
	return s.store.ListPortfolioSnapshots(ctx, userID, limit)
}

// Owners lists every user with at least one implementation.
func (s *Service) Owners(ctx context.Context) ([]string, error) {
	return s.store.ListImplementationOwners(ctx)
}
