package cron

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/bher20/eimpactmanager/internal/alerting"
	"github.com/bher20/eimpactmanager/internal/metrics"
	"github.com/bher20/eimpactmanager/internal/storage"
)

type constError string

func (e constError) Error() string { return string(e) }

// ErrLocked is returned when another replica holds the job lock.
const ErrLocked = constError("snapshot job lock held by another worker")

const (
	JobName = "portfolio_snapshot"
	// IntervalSettingKey overrides the configured schedule at runtime.
	IntervalSettingKey = "snapshot_interval"
	DefaultInterval    = "3600"

	lockKey     int64 = 0x45494d50 // "EIMP"
	defaultTick       = 10 * time.Second
)

// Snapshotter stores portfolio rollups.
type Snapshotter interface {
	Owners(ctx context.Context) ([]string, error)
	SnapshotPortfolio(ctx context.Context, userID string) (storage.PortfolioSnapshot, error)
}

// Config tunes the snapshot worker.
type Config struct {
	// Interval is integer seconds or a cron expression.
	Interval    string        `yaml:"interval"`
	Tick        time.Duration `yaml:"tick"`
	Parallelism int           `yaml:"parallelism"`
}

type poolCollector interface {
	CollectPoolMetrics()
}

// Worker snapshots every user's portfolio on a schedule. An advisory lock
// keeps replicas from running the same cycle.
type Worker struct {
	store   storage.Storage
	snap    Snapshotter
	alerter *alerting.Alerter
	cfg     Config
	now     func() time.Time
}

func NewWorker(store storage.Storage, snap Snapshotter, alerter *alerting.Alerter, cfg Config) *Worker {
	if cfg.Interval == "" {
		cfg.Interval = DefaultInterval
	}
	if cfg.Tick <= 0 {
		cfg.Tick = defaultTick
	}
	if cfg.Parallelism <= 0 {
		cfg.Parallelism = 4
	}
	if alerter == nil {
		alerter = alerting.NewAlerter(alerting.Config{})
	}
	return &Worker{store: store, snap: snap, alerter: alerter, cfg: cfg, now: time.Now}
}

// interval returns the stored override or the configured schedule.
func (w *Worker) interval(ctx context.Context) string {
	val, err := w.store.GetSetting(ctx, IntervalSettingKey)
	if err != nil {
		log.Warn().Err(err).Msg("cron: read interval setting failed")
		return w.cfg.Interval
	}
	if val == "" {
		return w.cfg.Interval
	}
	return val
}

// Run executes a cycle immediately and then on schedule until ctx ends.
func (w *Worker) Run(ctx context.Context) error {
	setting := w.interval(ctx)
	nextRun := w.now()

	ticker := time.NewTicker(w.cfg.Tick)
	defer ticker.Stop()

	log.Info().Str("interval", setting).Str("job", JobName).Msg("cron: worker starting")

	for {
		if !w.now().Before(nextRun) {
			if _, err := w.RunOnce(ctx); err != nil && ctx.Err() == nil {
				log.Warn().Err(err).Str("job", JobName).Msg("cron: cycle failed")
			}
			nextRun = NextRun(setting, w.now())
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		if pc, ok := w.store.(poolCollector); ok {
			pc.CollectPoolMetrics()
		}

		if val := w.interval(ctx); val != setting {
			log.Info().Str("from", setting).Str("to", val).Msg("cron: interval updated")
			setting = val
			nextRun = NextRun(setting, w.now())
		}
	}
}

// RunOnce snapshots every owner's portfolio once. Per-user failures are
// collected, recorded on the job row and alerted; the returned error
// summarises them.
func (w *Worker) RunOnce(ctx context.Context) (alerting.JobAlert, error) {
	started := w.now()
	summary := alerting.JobAlert{JobName: JobName, Timestamp: started}

	ok, err := w.store.AcquireAdvisoryLock(ctx, lockKey)
	if err != nil {
		metrics.UpdateJobMetrics(JobName, started, err)
		return summary, fmt.Errorf("acquire advisory lock: %w", err)
	}
	if !ok {
		log.Info().Str("job", JobName).Msg("cron: lock held by another worker, skipping run")
		return summary, ErrLocked
	}

	runErr := func() error {
		defer func() {
			if _, err := w.store.ReleaseAdvisoryLock(context.WithoutCancel(ctx), lockKey); err != nil {
				log.Warn().Err(err).Msg("cron: release advisory lock failed")
			}
		}()
		return w.snapshotAll(ctx, &summary)
	}()

	summary.Duration = w.now().Sub(started)
	metrics.UpdateJobMetrics(JobName, started, runErr)

	errMsg := ""
	if runErr != nil {
		errMsg = runErr.Error()
	}
	if err := w.store.UpdateScheduledJob(context.WithoutCancel(ctx), JobName, started, summary.Duration, runErr == nil, errMsg); err != nil {
		log.Warn().Err(err).Msg("cron: update scheduled_jobs failed")
	}

	if summary.FailedCount > 0 {
		if err := w.alerter.Send(ctx, summary); err != nil {
			log.Warn().Err(err).Msg("cron: send alert failed")
		}
	}

	ev := log.Info()
	if runErr != nil {
		ev = log.Warn().Err(runErr)
	}
	ev.Str("job", JobName).
		Int("users", summary.TotalCount).
		Int("failed", summary.FailedCount).
		Dur("duration", summary.Duration).
		Msg("cron: run completed")
	return summary, runErr
}

func (w *Worker) snapshotAll(ctx context.Context, summary *alerting.JobAlert) error {
	owners, err := w.snap.Owners(ctx)
	if err != nil {
		return fmt.Errorf("list owners: %w", err)
	}
	summary.TotalCount = len(owners)

	// No group context: one user's failure must not cancel the others.
	var mu sync.Mutex
	var g errgroup.Group
	g.SetLimit(w.cfg.Parallelism)
	for _, userID := range owners {
		g.Go(func() error {
			_, err := w.snap.SnapshotPortfolio(ctx, userID)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				summary.Failures = append(summary.Failures, alerting.ItemFailure{Item: userID, Error: err.Error()})
				return fmt.Errorf("snapshot %s: %w", userID, err)
			}
			summary.SuccessCount++
			return nil
		})
	}
	err = g.Wait()

	summary.FailedCount = len(summary.Failures)
	if err != nil {
		return fmt.Errorf("%d of %d snapshots failed, first: %w", summary.FailedCount, summary.TotalCount, err)
	}
	return nil
}
