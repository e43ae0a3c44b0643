package storage

import (
	"context"
	"time"

	"github.com/bher20/eimpactmanager/internal/goals"
	"github.com/bher20/eimpactmanager/internal/tracking"
)

type constError string

func (e constError) Error() string { return string(e) }

const (
	// ErrGoalNotFound is returned when a goal delta targets a missing goal.
	ErrGoalNotFound constError = "goal not found"
	// ErrStatusMismatch is returned by UpdateImplementation when the stored
	// status no longer matches the expected one.
	ErrStatusMismatch constError = "implementation status changed"
)

// Storage abstracts persistence for implementations, goals, snapshots and the
// service's accounts and settings. Getters return (nil, nil) when nothing
// matches.
type Storage interface {
	// Implementations
	CreateImplementation(ctx context.Context, impl tracking.Implementation) error
	GetImplementation(ctx context.Context, id string) (*tracking.Implementation, error)
	ListImplementations(ctx context.Context, userID string) ([]tracking.Implementation, error)
	// UpdateImplementation writes impl only while the stored row still has
	// status expected; otherwise it returns ErrStatusMismatch.
	UpdateImplementation(ctx context.Context, impl tracking.Implementation, expected tracking.Status) error
	ListImplementationOwners(ctx context.Context) ([]string, error)

	// Goals. ApplyGoalDelta and ApplyGoalDeltas satisfy goals.BatchStore.
	CreateGoal(ctx context.Context, g goals.Goal) error
	GetGoal(ctx context.Context, id string) (*goals.Goal, error)
	ListGoals(ctx context.Context, userID string) ([]goals.Goal, error)
	ApplyGoalDelta(ctx context.Context, d goals.GoalDelta) (*goals.Goal, error)
	ApplyGoalDeltas(ctx context.Context, deltas []goals.GoalDelta) ([]goals.Goal, error)

	// Portfolio snapshots
	SavePortfolioSnapshot(ctx context.Context, snap PortfolioSnapshot) error
	LatestPortfolioSnapshot(ctx context.Context, userID string) (*PortfolioSnapshot, error)
	ListPortfolioSnapshots(ctx context.Context, userID string, limit int) ([]PortfolioSnapshot, error)

	// Settings
	GetSetting(ctx context.Context, key string) (string, error)
	SetSetting(ctx context.Context, key, value string) error
	GetEmailConfig(ctx context.Context) (*EmailConfig, error)
	SaveEmailConfig(ctx context.Context, config EmailConfig) error

	// Users
	CreateUser(ctx context.Context, user User) error
	GetUser(ctx context.Context, id string) (*User, error)
	GetUserByUsername(ctx context.Context, username string) (*User, error)
	ListUsers(ctx context.Context) ([]User, error)

	// Tokens
	CreateToken(ctx context.Context, token Token) error
	GetTokenByHash(ctx context.Context, hash string) (*Token, error)
	ListTokens(ctx context.Context, userID string) ([]Token, error)
	DeleteToken(ctx context.Context, id string) error
	UpdateTokenLastUsed(ctx context.Context, id string) error

	// Casbin rules
	LoadCasbinRules(ctx context.Context) ([]CasbinRule, error)
	AddCasbinRule(ctx context.Context, rule CasbinRule) error
	RemoveCasbinRule(ctx context.Context, rule CasbinRule) error

	// Scheduled jobs & locking
	AcquireAdvisoryLock(ctx context.Context, key int64) (bool, error)
	ReleaseAdvisoryLock(ctx context.Context, key int64) (bool, error)
	UpdateScheduledJob(ctx context.Context, name string, started time.Time, dur time.Duration, success bool, errMsg string) error
	GetScheduledJob(ctx context.Context, name string) (*ScheduledJob, error)

	Ping(ctx context.Context) error
	// Close releases any resources (no-op for in-memory).
	Close() error
}

var _ goals.BatchStore = Storage(nil)
