package cron

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bher20/eimpactmanager/internal/alerting"
	"github.com/bher20/eimpactmanager/internal/storage"
)

func TestNextRun(t *testing.T) {
	last := time.Date(2026, time.March, 3, 10, 17, 0, 0, time.UTC)

	assert.Equal(t, last.Add(90*time.Second), NextRun("90", last))
	assert.Equal(t, time.Date(2026, time.March, 3, 11, 0, 0, 0, time.UTC), NextRun("0 * * * *", last))
	assert.Equal(t, last.Add(time.Hour), NextRun("whenever", last))
	assert.Equal(t, last.Add(time.Hour), NextRun("-5", last))

	assert.True(t, ValidSchedule("3600"))
	assert.True(t, ValidSchedule("*/15 * * * *"))
	assert.False(t, ValidSchedule("0"))
	assert.False(t, ValidSchedule("hourly please"))
}

type fakeSnapshotter struct {
	owners []string
	fail   map[string]bool
	calls  atomic.Int32
}

func (f *fakeSnapshotter) Owners(context.Context) ([]string, error) { return f.owners, nil }

func (f *fakeSnapshotter) SnapshotPortfolio(_ context.Context, userID string) (storage.PortfolioSnapshot, error) {
	f.calls.Add(1)
	if f.fail[userID] {
		return storage.PortfolioSnapshot{}, errors.New("db down")
	}
	return storage.PortfolioSnapshot{UserID: userID}, nil
}

func TestRunOnce(t *testing.T) {
	ctx := context.Background()
	st := storage.NewMemory()
	snap := &fakeSnapshotter{owners: []string{"alice", "bob", "carol"}}

	w := NewWorker(st, snap, nil, Config{})
	summary, err := w.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, summary.TotalCount)
	assert.Equal(t, 3, summary.SuccessCount)

	job, err := st.GetScheduledJob(ctx, JobName)
	require.NoError(t, err)
	require.NotNil(t, job)
	assert.True(t, job.LastSuccess)
}

func TestRunOnceFailureAlerts(t *testing.T) {
	ctx := context.Background()
	var alerts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		alerts.Add(1)
	}))
	defer srv.Close()

	st := storage.NewMemory()
	snap := &fakeSnapshotter{owners: []string{"alice", "bob"}, fail: map[string]bool{"bob": true}}
	w := NewWorker(st, snap, alerting.NewAlerter(alerting.Config{WebhookURL: srv.URL}), Config{Parallelism: 1})

	summary, err := w.RunOnce(ctx)
	require.Error(t, err)
	assert.ErrorContains(t, err, "snapshot bob: db down")
	assert.Equal(t, 1, summary.SuccessCount, "a failed user does not stop the others")
	assert.Equal(t, 1, summary.FailedCount)
	require.Len(t, summary.Failures, 1)
	assert.Equal(t, "bob", summary.Failures[0].Item)
	assert.Equal(t, int32(1), alerts.Load())

	job, err := st.GetScheduledJob(ctx, JobName)
	require.NoError(t, err)
	assert.False(t, job.LastSuccess)
	assert.Contains(t, job.LastError, "1 of 2")
}

type lockedStore struct {
	storage.Storage
}

func (lockedStore) AcquireAdvisoryLock(context.Context, int64) (bool, error) { return false, nil }

func TestRunOnceLocked(t *testing.T) {
	snap := &fakeSnapshotter{owners: []string{"alice"}}
	w := NewWorker(lockedStore{storage.NewMemory()}, snap, nil, Config{})

	_, err := w.RunOnce(context.Background())
	assert.ErrorIs(t, err, ErrLocked)
	assert.Zero(t, snap.calls.Load())
}

func TestRunUsesSettingOverride(t *testing.T) {
	st := storage.NewMemory()
	require.NoError(t, st.SetSetting(context.Background(), IntervalSettingKey, "1"))
	snap := &fakeSnapshotter{owners: []string{"alice"}}
	w := NewWorker(st, snap, nil, Config{Interval: "3600", Tick: 10 * time.Millisecond})

	ctx, cancel := context.WithTimeout(context.Background(), 1500*time.Millisecond)
	defer cancel()
	err := w.Run(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	// One run at start and at least one more after the one-second override.
	assert.GreaterOrEqual(t, snap.calls.Load(), int32(2))
}
