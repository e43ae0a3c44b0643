package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"github.com/bher20/eimpactmanager/internal/goals"
	"github.com/bher20/eimpactmanager/internal/tracking"
)

// backends returns every Storage implementation that runs without a server.
func backends(t *testing.T) map[string]Storage {
	t.Helper()
	ctx := context.Background()

	lite, err := Open(ctx, Config{
		Driver:      "sqlite",
		DSN:         filepath.Join(t.TempDir(), "test.db"),
		AutoMigrate: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { lite.Close() })

	mem, err := Open(ctx, Config{})
	require.NoError(t, err)

	return map[string]Storage{"memory": mem, "sqlite": lite}
}

var t0 = time.Date(2026, time.March, 1, 9, 0, 0, 0, time.UTC)

func TestImplementations(t *testing.T) {
	ctx := context.Background()
	for name, st := range backends(t) {
		t.Run(name, func(t *testing.T) {
			missing, err := st.GetImplementation(ctx, "nope")
			require.NoError(t, err)
			assert.Nil(t, missing)

			for i, id := range []string{"i1", "i2"} {
				require.NoError(t, st.CreateImplementation(ctx, tracking.Implementation{
					ID:                     id,
					UserID:                 "alice",
					Title:                  "LED retrofit",
					Category:               "Energy Efficiency",
					EstimatedAnnualSavings: 1200,
					EstimatedROIMonths:     12,
					Status:                 tracking.StatusStarted,
					StartedAt:              t0,
					CreatedAt:              t0.Add(time.Duration(i) * time.Hour),
				}))
			}
			require.NoError(t, st.CreateImplementation(ctx, tracking.Implementation{
				ID: "i3", UserID: "bob", Status: tracking.StatusStarted, CreatedAt: t0,
			}))

			list, err := st.ListImplementations(ctx, "alice")
			require.NoError(t, err)
			require.Len(t, list, 2)
			assert.Equal(t, "i1", list[0].ID)

			impl := list[1]
			done := t0.Add(48 * time.Hour)
			impl.Status = tracking.StatusCompleted
			impl.ProgressPct = 100
			impl.CompletedAt = &done
			require.NoError(t, st.UpdateImplementation(ctx, impl, tracking.StatusStarted))

			// A second writer that still expects the old status loses.
			assert.ErrorIs(t, st.UpdateImplementation(ctx, impl, tracking.StatusStarted), ErrStatusMismatch)
			impl.ID = "nope"
			assert.ErrorIs(t, st.UpdateImplementation(ctx, impl, tracking.StatusStarted), ErrStatusMismatch)

			got, err := st.GetImplementation(ctx, "i2")
			require.NoError(t, err)
			require.NotNil(t, got)
			assert.Equal(t, tracking.StatusCompleted, got.Status)
			assert.Equal(t, 100.0, got.ProgressPct)
			require.NotNil(t, got.CompletedAt)
			assert.True(t, done.Equal(*got.CompletedAt))

			owners, err := st.ListImplementationOwners(ctx)
			require.NoError(t, err)
			assert.Equal(t, []string{"alice", "bob"}, owners)
		})
	}
}

func TestGoalDeltas(t *testing.T) {
	ctx := context.Background()
	for name, st := range backends(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, st.CreateGoal(ctx, goals.Goal{ID: "g1", UserID: "alice", Category: "cost_savings", TargetValue: 1000, Unit: "usd"}))
			require.NoError(t, st.CreateGoal(ctx, goals.Goal{ID: "g2", UserID: "alice", Category: "carbon_reduction", TargetValue: 10, Unit: "tons_co2"}))

			g, err := st.ApplyGoalDelta(ctx, goals.GoalDelta{GoalID: "g1", Delta: 400})
			require.NoError(t, err)
			assert.Equal(t, 400.0, g.CurrentValue)
			assert.InDelta(t, 40.0, g.ProgressPct, 1e-9)
			assert.Nil(t, g.AchievedAt)

			updated, err := st.ApplyGoalDeltas(ctx, []goals.GoalDelta{
				{GoalID: "g1", Delta: 700},
				{GoalID: "g2", Delta: 2.5},
			})
			require.NoError(t, err)
			require.Len(t, updated, 2)
			assert.Equal(t, 1100.0, updated[0].CurrentValue)
			assert.Equal(t, 100.0, updated[0].ProgressPct, "progress clamps at 100")
			assert.NotNil(t, updated[0].AchievedAt)
			assert.InDelta(t, 25.0, updated[1].ProgressPct, 1e-9)

			_, err = st.ApplyGoalDeltas(ctx, []goals.GoalDelta{
				{GoalID: "g2", Delta: 1},
				{GoalID: "missing", Delta: 1},
			})
			assert.ErrorIs(t, err, ErrGoalNotFound)

			g2, err := st.GetGoal(ctx, "g2")
			require.NoError(t, err)
			assert.Equal(t, 2.5, g2.CurrentValue, "a failed batch changes nothing")

			list, err := st.ListGoals(ctx, "alice")
			require.NoError(t, err)
			assert.Len(t, list, 2)

			var _ goals.BatchStore = st
		})
	}
}

func TestPortfolioSnapshots(t *testing.T) {
	ctx := context.Background()
	for name, st := range backends(t) {
		t.Run(name, func(t *testing.T) {
			none, err := st.LatestPortfolioSnapshot(ctx, "alice")
			require.NoError(t, err)
			assert.Nil(t, none)

			require.NoError(t, st.SavePortfolioSnapshot(ctx, PortfolioSnapshot{
				ID: "s1", UserID: "alice", TakenAt: t0, Payload: datatypes.JSON(`{"implementations":1}`),
			}))
			require.NoError(t, st.SavePortfolioSnapshot(ctx, PortfolioSnapshot{
				ID: "s2", UserID: "alice", TakenAt: t0.Add(time.Hour), Payload: datatypes.JSON(`{"implementations":2}`),
			}))

			latest, err := st.LatestPortfolioSnapshot(ctx, "alice")
			require.NoError(t, err)
			require.NotNil(t, latest)
			assert.Equal(t, "s2", latest.ID)
			assert.JSONEq(t, `{"implementations":2}`, string(latest.Payload))

			all, err := st.ListPortfolioSnapshots(ctx, "alice", 0)
			require.NoError(t, err)
			require.Len(t, all, 2)
			assert.Equal(t, "s1", all[1].ID)
		})
	}
}

func TestSettingsAndEmailConfig(t *testing.T) {
	ctx := context.Background()
	for name, st := range backends(t) {
		t.Run(name, func(t *testing.T) {
			v, err := st.GetSetting(ctx, "snapshot_interval")
			require.NoError(t, err)
			assert.Empty(t, v)

			require.NoError(t, st.SetSetting(ctx, "snapshot_interval", "3600"))
			require.NoError(t, st.SetSetting(ctx, "snapshot_interval", "0 * * * *"))
			v, err = st.GetSetting(ctx, "snapshot_interval")
			require.NoError(t, err)
			assert.Equal(t, "0 * * * *", v)

			cfg, err := st.GetEmailConfig(ctx)
			require.NoError(t, err)
			assert.Nil(t, cfg)

			require.NoError(t, st.SaveEmailConfig(ctx, EmailConfig{Provider: "smtp", Host: "mail.example.com", Port: 587, Enabled: true}))
			cfg, err = st.GetEmailConfig(ctx)
			require.NoError(t, err)
			require.NotNil(t, cfg)
			assert.Equal(t, "default", cfg.ID)
			assert.Equal(t, 587, cfg.Port)
		})
	}
}

func TestUsersTokensAndRules(t *testing.T) {
	ctx := context.Background()
	for name, st := range backends(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, st.CreateUser(ctx, User{ID: "u1", Username: "alice", Role: "analyst", CreatedAt: t0}))
			u, err := st.GetUserByUsername(ctx, "alice")
			require.NoError(t, err)
			require.NotNil(t, u)
			assert.Equal(t, "u1", u.ID)

			require.NoError(t, st.CreateToken(ctx, Token{ID: "t1", UserID: "u1", TokenHash: "abc", Role: "analyst", CreatedAt: t0}))
			tok, err := st.GetTokenByHash(ctx, "abc")
			require.NoError(t, err)
			require.NotNil(t, tok)
			assert.Nil(t, tok.LastUsedAt)

			require.NoError(t, st.UpdateTokenLastUsed(ctx, "t1"))
			tok, err = st.GetTokenByHash(ctx, "abc")
			require.NoError(t, err)
			assert.NotNil(t, tok.LastUsedAt)

			require.NoError(t, st.DeleteToken(ctx, "t1"))
			tokens, err := st.ListTokens(ctx, "u1")
			require.NoError(t, err)
			assert.Empty(t, tokens)

			require.NoError(t, st.AddCasbinRule(ctx, CasbinRule{PType: "p", V0: "viewer", V1: "goals", V2: "read"}))
			require.NoError(t, st.AddCasbinRule(ctx, CasbinRule{PType: "g", V0: "u1", V1: "viewer"}))
			rules, err := st.LoadCasbinRules(ctx)
			require.NoError(t, err)
			assert.Len(t, rules, 2)

			require.NoError(t, st.RemoveCasbinRule(ctx, CasbinRule{PType: "g", V0: "u1", V1: "viewer"}))
			rules, err = st.LoadCasbinRules(ctx)
			require.NoError(t, err)
			require.Len(t, rules, 1)
			assert.Equal(t, "viewer", rules[0].V0)
		})
	}
}

func TestScheduledJobs(t *testing.T) {
	ctx := context.Background()
	for name, st := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ok, err := st.AcquireAdvisoryLock(ctx, 7)
			require.NoError(t, err)
			assert.True(t, ok)
			_, err = st.ReleaseAdvisoryLock(ctx, 7)
			require.NoError(t, err)

			require.NoError(t, st.UpdateScheduledJob(ctx, "portfolio_snapshot", t0, 1500*time.Millisecond, false, "boom"))
			require.NoError(t, st.UpdateScheduledJob(ctx, "portfolio_snapshot", t0.Add(time.Hour), 2*time.Second, true, ""))

			job, err := st.GetScheduledJob(ctx, "portfolio_snapshot")
			require.NoError(t, err)
			require.NotNil(t, job)
			assert.True(t, job.LastSuccess)
			assert.Equal(t, int64(2000), job.LastDurationMs)
			assert.Empty(t, job.LastError)
		})
	}
}

func TestOpenUnsupportedDriver(t *testing.T) {
	_, err := Open(context.Background(), Config{Driver: "oracle"})
	assert.Error(t, err)
}
