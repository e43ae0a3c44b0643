package storage

import (
	"context"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"gorm.io/driver/postgres"

	"github.com/bher20/eimpactmanager/internal/metrics"
)

// PostgresPoolStorage runs gorm on top of a pgx connection pool. Advisory
// locks are session scoped in Postgres, so each held lock pins the pooled
// connection that took it until it is released.
type PostgresPoolStorage struct {
	*GormStorage
	pool *pgxpool.Pool

	mu    sync.Mutex
	locks map[int64]*pgxpool.Conn
}

func OpenPostgresPool(ctx context.Context, dsn string) (*PostgresPoolStorage, error) {
	if dsn == "" {
		dsn = "postgres://localhost:5432/eimpactmanager?sslmode=disable"
	}

	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse pool config: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open pool: %w", err)
	}

	gs, err := newGormStorage(postgres.New(postgres.Config{Conn: stdlib.OpenDBFromPool(pool)}))
	if err != nil {
		pool.Close()
		return nil, err
	}
	return &PostgresPoolStorage{
		GormStorage: gs,
		pool:        pool,
		locks:       make(map[int64]*pgxpool.Conn),
	}, nil
}

func (s *PostgresPoolStorage) Close() error {
	s.mu.Lock()
	for key, conn := range s.locks {
		conn.Release()
		delete(s.locks, key)
	}
	s.mu.Unlock()

	err := s.GormStorage.Close()
	s.pool.Close()
	return err
}

func (s *PostgresPoolStorage) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *PostgresPoolStorage) AcquireAdvisoryLock(ctx context.Context, key int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, held := s.locks[key]; held {
		return false, nil
	}

	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return false, fmt.Errorf("acquire conn: %w", err)
	}
	var ok bool
	if err := conn.QueryRow(ctx, "SELECT pg_try_advisory_lock($1)", key).Scan(&ok); err != nil {
		conn.Release()
		return false, err
	}
	if !ok {
		conn.Release()
		return false, nil
	}
	s.locks[key] = conn
	return true, nil
}

func (s *PostgresPoolStorage) ReleaseAdvisoryLock(ctx context.Context, key int64) (bool, error) {
	s.mu.Lock()
	conn, held := s.locks[key]
	delete(s.locks, key)
	s.mu.Unlock()
	if !held {
		return false, nil
	}
	defer conn.Release()

	var ok bool
	err := conn.QueryRow(ctx, "SELECT pg_advisory_unlock($1)", key).Scan(&ok)
	return ok, err
}

// CollectPoolMetrics publishes the pool's connection counts.
func (s *PostgresPoolStorage) CollectPoolMetrics() {
	st := s.pool.Stat()
	metrics.UpdateDBPoolMetrics("postgrespool",
		float64(st.TotalConns()),
		float64(st.IdleConns()),
		float64(st.AcquiredConns()),
		uint64(st.AcquireCount()),
	)
}
