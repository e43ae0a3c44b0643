package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/bher20/eimpactmanager/internal/goals"
	"github.com/bher20/eimpactmanager/internal/tracking"
)

type GormStorage struct {
	db  *gorm.DB
	now func() time.Time
}

func NewGormStorage(driver, dsn string) (*GormStorage, error) {
	var dialector gorm.Dialector
	switch driver {
	case "postgres", "postgrespool":
		dialector = postgres.Open(dsn)
	case "sqlite":
		if dsn == "" {
			dsn = "eimpactmanager.db"
		}
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported driver: %s", driver)
	}
	return newGormStorage(dialector)
}

func newGormStorage(dialector gorm.Dialector) (*GormStorage, error) {
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, err
	}
	return &GormStorage{db: db, now: time.Now}, nil
}

// Migrate creates or alters tables to match the models.
func (s *GormStorage) Migrate(ctx context.Context) error {
	return s.db.WithContext(ctx).AutoMigrate(
		&tracking.Implementation{},
		&goals.Goal{},
		&PortfolioSnapshot{},
		&Setting{},
		&User{},
		&Token{},
		&CasbinRule{},
		&EmailConfig{},
		&ScheduledJob{},
	)
}

// first loads one row into dst; a missing row is (false, nil).
func first(q *gorm.DB, dst any, where string, args ...any) (bool, error) {
	err := q.First(dst, append([]any{where}, args...)...).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	return err == nil, err
}

// Implementations

func (s *GormStorage) CreateImplementation(ctx context.Context, impl tracking.Implementation) error {
	return s.db.WithContext(ctx).Create(&impl).Error
}

func (s *GormStorage) GetImplementation(ctx context.Context, id string) (*tracking.Implementation, error) {
	var impl tracking.Implementation
	ok, err := first(s.db.WithContext(ctx), &impl, "id = ?", id)
	if !ok {
		return nil, err
	}
	return &impl, nil
}

func (s *GormStorage) ListImplementations(ctx context.Context, userID string) ([]tracking.Implementation, error) {
	var out []tracking.Implementation
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at, id").
		Find(&out).Error
	return out, err
}

func (s *GormStorage) UpdateImplementation(ctx context.Context, impl tracking.Implementation, expected tracking.Status) error {
	res := s.db.WithContext(ctx).
		Model(&tracking.Implementation{ID: impl.ID}).
		Where("status = ?", string(expected)).
		Select("*").
		Updates(impl)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrStatusMismatch
	}
	return nil
}

func (s *GormStorage) ListImplementationOwners(ctx context.Context) ([]string, error) {
	var owners []string
	err := s.db.WithContext(ctx).
		Model(&tracking.Implementation{}).
		Distinct("user_id").
		Order("user_id").
		Pluck("user_id", &owners).Error
	return owners, err
}

// Goals

func (s *GormStorage) CreateGoal(ctx context.Context, g goals.Goal) error {
	return s.db.WithContext(ctx).Create(&g).Error
}

func (s *GormStorage) GetGoal(ctx context.Context, id string) (*goals.Goal, error) {
	var g goals.Goal
	ok, err := first(s.db.WithContext(ctx), &g, "id = ?", id)
	if !ok {
		return nil, err
	}
	return &g, nil
}

func (s *GormStorage) ListGoals(ctx context.Context, userID string) ([]goals.Goal, error) {
	var out []goals.Goal
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).Order("id").Find(&out).Error
	return out, err
}

func (s *GormStorage) ApplyGoalDelta(ctx context.Context, d goals.GoalDelta) (*goals.Goal, error) {
	var g goals.Goal
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		g, err = s.applyDelta(tx, d)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &g, nil
}

// ApplyGoalDeltas applies every delta in one transaction.
func (s *GormStorage) ApplyGoalDeltas(ctx context.Context, deltas []goals.GoalDelta) ([]goals.Goal, error) {
	out := make([]goals.Goal, 0, len(deltas))
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, d := range deltas {
			g, err := s.applyDelta(tx, d)
			if err != nil {
				return err
			}
			out = append(out, g)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// applyDelta increments current_value in SQL so concurrent writers add up,
// then recomputes progress from the stored value.
func (s *GormStorage) applyDelta(tx *gorm.DB, d goals.GoalDelta) (goals.Goal, error) {
	res := tx.Model(&goals.Goal{}).
		Where("id = ?", d.GoalID).
		Update("current_value", gorm.Expr("current_value + ?", d.Delta))
	if res.Error != nil {
		return goals.Goal{}, res.Error
	}
	if res.RowsAffected == 0 {
		return goals.Goal{}, fmt.Errorf("%w: %s", ErrGoalNotFound, d.GoalID)
	}

	var g goals.Goal
	if err := tx.First(&g, "id = ?", d.GoalID).Error; err != nil {
		return goals.Goal{}, err
	}
	g.Refresh(s.now())
	err := tx.Model(&g).
		Select("progress_percentage", "achieved_at", "updated_at").
		Updates(&g).Error
	return g, err
}

// Portfolio snapshots

func (s *GormStorage) SavePortfolioSnapshot(ctx context.Context, snap PortfolioSnapshot) error {
	if snap.TakenAt.IsZero() {
		snap.TakenAt = s.now()
	}
	return s.db.WithContext(ctx).Create(&snap).Error
}

func (s *GormStorage) LatestPortfolioSnapshot(ctx context.Context, userID string) (*PortfolioSnapshot, error) {
	var snap PortfolioSnapshot
	ok, err := first(s.db.WithContext(ctx).Order("taken_at desc"), &snap, "user_id = ?", userID)
	if !ok {
		return nil, err
	}
	return &snap, nil
}

func (s *GormStorage) ListPortfolioSnapshots(ctx context.Context, userID string, limit int) ([]PortfolioSnapshot, error) {
	var out []PortfolioSnapshot
	q := s.db.WithContext(ctx).Where("user_id = ?", userID).Order("taken_at desc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	return out, q.Find(&out).Error
}

// Settings

func (s *GormStorage) GetSetting(ctx context.Context, key string) (string, error) {
	var setting Setting
	ok, err := first(s.db.WithContext(ctx), &setting, "key = ?", key)
	if !ok {
		return "", err
	}
	return setting.Value, nil
}

func (s *GormStorage) SetSetting(ctx context.Context, key, value string) error {
	setting := Setting{
		Key:       key,
		Value:     value,
		UpdatedAt: s.now(),
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		UpdateAll: true,
	}).Create(&setting).Error
}

func (s *GormStorage) GetEmailConfig(ctx context.Context) (*EmailConfig, error) {
	var config EmailConfig
	err := s.db.WithContext(ctx).First(&config).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &config, nil
}

func (s *GormStorage) SaveEmailConfig(ctx context.Context, config EmailConfig) error {
	if config.ID == "" {
		config.ID = "default" // single row
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(&config).Error
}

// Users

func (s *GormStorage) CreateUser(ctx context.Context, user User) error {
	return s.db.WithContext(ctx).Create(&user).Error
}

func (s *GormStorage) GetUser(ctx context.Context, id string) (*User, error) {
	var user User
	ok, err := first(s.db.WithContext(ctx), &user, "id = ?", id)
	if !ok {
		return nil, err
	}
	return &user, nil
}

func (s *GormStorage) GetUserByUsername(ctx context.Context, username string) (*User, error) {
	var user User
	ok, err := first(s.db.WithContext(ctx), &user, "username = ?", username)
	if !ok {
		return nil, err
	}
	return &user, nil
}

func (s *GormStorage) ListUsers(ctx context.Context) ([]User, error) {
	var users []User
	err := s.db.WithContext(ctx).Order("username").Find(&users).Error
	return users, err
}

// Tokens

func (s *GormStorage) CreateToken(ctx context.Context, token Token) error {
	return s.db.WithContext(ctx).Create(&token).Error
}

func (s *GormStorage) GetTokenByHash(ctx context.Context, hash string) (*Token, error) {
	var token Token
	ok, err := first(s.db.WithContext(ctx), &token, "token_hash = ?", hash)
	if !ok {
		return nil, err
	}
	return &token, nil
}

func (s *GormStorage) ListTokens(ctx context.Context, userID string) ([]Token, error) {
	var tokens []Token
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at").Find(&tokens).Error
	return tokens, err
}

func (s *GormStorage) DeleteToken(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Delete(&Token{}, "id = ?", id).Error
}

func (s *GormStorage) UpdateTokenLastUsed(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Model(&Token{}).Where("id = ?", id).Update("last_used_at", s.now()).Error
}

// Casbin rules

func (s *GormStorage) LoadCasbinRules(ctx context.Context) ([]CasbinRule, error) {
	var rules []CasbinRule
	err := s.db.WithContext(ctx).Order("id").Find(&rules).Error
	return rules, err
}

func (s *GormStorage) AddCasbinRule(ctx context.Context, rule CasbinRule) error {
	return s.db.WithContext(ctx).Create(&rule).Error
}

func (s *GormStorage) RemoveCasbinRule(ctx context.Context, rule CasbinRule) error {
	return s.db.WithContext(ctx).Where(&rule).Delete(&CasbinRule{}).Error
}

// Close & Ping

func (s *GormStorage) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *GormStorage) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Scheduled jobs & locking

func (s *GormStorage) AcquireAdvisoryLock(ctx context.Context, key int64) (bool, error) {
	if s.db.Dialector.Name() != "postgres" {
		return true, nil // single instance
	}
	var ok bool
	err := s.db.WithContext(ctx).Raw("SELECT pg_try_advisory_lock(?)", key).Scan(&ok).Error
	return ok, err
}

func (s *GormStorage) ReleaseAdvisoryLock(ctx context.Context, key int64) (bool, error) {
	if s.db.Dialector.Name() != "postgres" {
		return true, nil
	}
	var ok bool
	err := s.db.WithContext(ctx).Raw("SELECT pg_advisory_unlock(?)", key).Scan(&ok).Error
	return ok, err
}

func (s *GormStorage) UpdateScheduledJob(ctx context.Context, name string, started time.Time, dur time.Duration, success bool, errMsg string) error {
	job := ScheduledJob{
		Name:           name,
		LastRunAt:      started,
		LastDurationMs: dur.Milliseconds(),
		LastSuccess:    success,
		LastError:      errMsg,
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		UpdateAll: true,
	}).Create(&job).Error
}

func (s *GormStorage) GetScheduledJob(ctx context.Context, name string) (*ScheduledJob, error) {
	var job ScheduledJob
	ok, err := first(s.db.WithContext(ctx), &job, "name = ?", name)
	if !ok {
		return nil, err
	}
	return &job, nil
}
