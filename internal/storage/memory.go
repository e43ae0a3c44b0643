package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/bher20/eimpactmanager/internal/goals"
	"github.com/bher20/eimpactmanager/internal/tracking"
)

// MemoryStorage is an in-memory Storage implementation, useful for tests and
// simple single-process deployments. Every read returns a copy.
type MemoryStorage struct {
	mu              sync.RWMutex
	now             func() time.Time
	implementations map[string]tracking.Implementation
	goals           map[string]goals.Goal
	snapshots       map[string][]PortfolioSnapshot
	settings        map[string]string
	users           map[string]User
	tokens          map[string]Token
	rules           []CasbinRule
	nextRuleID      uint
	emailConfig     *EmailConfig
	jobs            map[string]ScheduledJob
}

// NewMemory returns an empty MemoryStorage.
func NewMemory() *MemoryStorage {
	return &MemoryStorage{
		now:             time.Now,
		implementations: make(map[string]tracking.Implementation),
		goals:           make(map[string]goals.Goal),
		snapshots:       make(map[string][]PortfolioSnapshot),
		settings:        make(map[string]string),
		users:           make(map[string]User),
		tokens:          make(map[string]Token),
		jobs:            make(map[string]ScheduledJob),
	}
}

func (m *MemoryStorage) Close() error { return nil }

func (m *MemoryStorage) Ping(ctx context.Context) error { return nil }

// Implementations

func (m *MemoryStorage) CreateImplementation(ctx context.Context, impl tracking.Implementation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.implementations[impl.ID]; ok {
		return fmt.Errorf("implementation %s already exists", impl.ID)
	}
	m.implementations[impl.ID] = impl
	return nil
}

func (m *MemoryStorage) GetImplementation(ctx context.Context, id string) (*tracking.Implementation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	impl, ok := m.implementations[id]
	if !ok {
		return nil, nil
	}
	return &impl, nil
}

func (m *MemoryStorage) ListImplementations(ctx context.Context, userID string) ([]tracking.Implementation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]tracking.Implementation, 0)
	for _, impl := range m.implementations {
		if impl.UserID == userID {
			out = append(out, impl)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (m *MemoryStorage) UpdateImplementation(ctx context.Context, impl tracking.Implementation, expected tracking.Status) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.implementations[impl.ID]
	if !ok || cur.Status != expected {
		return ErrStatusMismatch
	}
	m.implementations[impl.ID] = impl
	return nil
}

func (m *MemoryStorage) ListImplementationOwners(ctx context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	seen := make(map[string]bool)
	out := make([]string, 0)
	for _, impl := range m.implementations {
		if !seen[impl.UserID] {
			seen[impl.UserID] = true
			out = append(out, impl.UserID)
		}
	}
	sort.Strings(out)
	return out, nil
}

// Goals

func (m *MemoryStorage) CreateGoal(ctx context.Context, g goals.Goal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.goals[g.ID]; ok {
		return fmt.Errorf("goal %s already exists", g.ID)
	}
	m.goals[g.ID] = g
	return nil
}

func (m *MemoryStorage) GetGoal(ctx context.Context, id string) (*goals.Goal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	g, ok := m.goals[id]
	if !ok {
		return nil, nil
	}
	return &g, nil
}

func (m *MemoryStorage) ListGoals(ctx context.Context, userID string) ([]goals.Goal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]goals.Goal, 0)
	for _, g := range m.goals {
		if g.UserID == userID {
			out = append(out, g)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MemoryStorage) ApplyGoalDelta(ctx context.Context, d goals.GoalDelta) (*goals.Goal, error) {
	updated, err := m.ApplyGoalDeltas(ctx, []goals.GoalDelta{d})
	if err != nil {
		return nil, err
	}
	return &updated[0], nil
}

// ApplyGoalDeltas checks every goal exists before touching any of them.
func (m *MemoryStorage) ApplyGoalDeltas(ctx context.Context, deltas []goals.GoalDelta) ([]goals.Goal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, d := range deltas {
		if _, ok := m.goals[d.GoalID]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrGoalNotFound, d.GoalID)
		}
	}
	now := m.now()
	out := make([]goals.Goal, 0, len(deltas))
	for _, d := range deltas {
		g := m.goals[d.GoalID]
		g.AddImpact(d.Delta, now)
		m.goals[d.GoalID] = g
		out = append(out, g)
	}
	return out, nil
}

// Portfolio snapshots

func (m *MemoryStorage) SavePortfolioSnapshot(ctx context.Context, snap PortfolioSnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if snap.TakenAt.IsZero() {
		snap.TakenAt = m.now()
	}
	m.snapshots[snap.UserID] = append(m.snapshots[snap.UserID], snap)
	return nil
}

func (m *MemoryStorage) LatestPortfolioSnapshot(ctx context.Context, userID string) (*PortfolioSnapshot, error) {
	list, err := m.ListPortfolioSnapshots(ctx, userID, 1)
	if err != nil || len(list) == 0 {
		return nil, err
	}
	return &list[0], nil
}

// ListPortfolioSnapshots returns the newest snapshots first. A non-positive
// limit returns all of them.
func (m *MemoryStorage) ListPortfolioSnapshots(ctx context.Context, userID string, limit int) ([]PortfolioSnapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	list := m.snapshots[userID]
	out := make([]PortfolioSnapshot, 0, len(list))
	for i := len(list) - 1; i >= 0; i-- {
		out = append(out, list[i])
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].TakenAt.After(out[j].TakenAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Settings

func (m *MemoryStorage) GetSetting(ctx context.Context, key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.settings[key], nil
}

func (m *MemoryStorage) SetSetting(ctx context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.settings[key] = value
	return nil
}

func (m *MemoryStorage) GetEmailConfig(ctx context.Context) (*EmailConfig, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.emailConfig == nil {
		return nil, nil
	}
	cp := *m.emailConfig
	return &cp, nil
}

func (m *MemoryStorage) SaveEmailConfig(ctx context.Context, config EmailConfig) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if config.ID == "" {
		config.ID = "default"
	}
	m.emailConfig = &config
	return nil
}

// Users

func (m *MemoryStorage) CreateUser(ctx context.Context, user User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Username == user.Username {
			return fmt.Errorf("username %q already taken", user.Username)
		}
	}
	m.users[user.ID] = user
	return nil
}

func (m *MemoryStorage) GetUser(ctx context.Context, id string) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (m *MemoryStorage) GetUserByUsername(ctx context.Context, username string) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, u := range m.users {
		if u.Username == username {
			cp := u
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *MemoryStorage) ListUsers(ctx context.Context) ([]User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]User, 0, len(m.users))
	for _, u := range m.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}

// Tokens

func (m *MemoryStorage) CreateToken(ctx context.Context, token Token) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens[token.ID] = token
	return nil
}

func (m *MemoryStorage) GetTokenByHash(ctx context.Context, hash string) (*Token, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, t := range m.tokens {
		if t.TokenHash == hash {
			cp := t
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *MemoryStorage) ListTokens(ctx context.Context, userID string) ([]Token, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Token, 0)
	for _, t := range m.tokens {
		if t.UserID == userID {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *MemoryStorage) DeleteToken(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.tokens, id)
	return nil
}

func (m *MemoryStorage) UpdateTokenLastUsed(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tokens[id]
	if !ok {
		return nil
	}
	now := m.now()
	t.LastUsedAt = &now
	m.tokens[id] = t
	return nil
}

// Casbin rules

func (m *MemoryStorage) LoadCasbinRules(ctx context.Context) ([]CasbinRule, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]CasbinRule(nil), m.rules...), nil
}

func (m *MemoryStorage) AddCasbinRule(ctx context.Context, rule CasbinRule) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextRuleID++
	rule.ID = m.nextRuleID
	m.rules = append(m.rules, rule)
	return nil
}

func (m *MemoryStorage) RemoveCasbinRule(ctx context.Context, rule CasbinRule) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.rules[:0]
	for _, r := range m.rules {
		r2 := r
		r2.ID = 0
		if r2 != rule {
			kept = append(kept, r)
		}
	}
	m.rules = kept
	return nil
}

// Scheduled jobs & locking

func (m *MemoryStorage) AcquireAdvisoryLock(ctx context.Context, key int64) (bool, error) {
	return true, nil
}

func (m *MemoryStorage) ReleaseAdvisoryLock(ctx context.Context, key int64) (bool, error) {
	return true, nil
}

func (m *MemoryStorage) UpdateScheduledJob(ctx context.Context, name string, started time.Time, dur time.Duration, success bool, errMsg string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobs[name] = ScheduledJob{
		Name:           name,
		LastRunAt:      started,
		LastDurationMs: dur.Milliseconds(),
		LastSuccess:    success,
		LastError:      errMsg,
	}
	return nil
}

func (m *MemoryStorage) GetScheduledJob(ctx context.Context, name string) (*ScheduledJob, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	j, ok := m.jobs[name]
	if !ok {
		return nil, nil
	}
	return &j, nil
}
