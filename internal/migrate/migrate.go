package migrate

import (
	"context"
	"database/sql"
	"embed"
	"fmt"

	"github.com/glebarez/sqlite"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

//go:embed migrations
var embedMigrations embed.FS

// DefaultSQLiteDSN matches the storage default.
const DefaultSQLiteDSN = "eimpactmanager.db"

func isPostgres(driver string) bool {
	return driver == "postgres" || driver == "pgx" || driver == "postgrespool"
}

func configureGoose(driver string) error {
	goose.SetBaseFS(embedMigrations)
	goose.SetTableName("schema_migrations")

	switch {
	case driver == "" || driver == "sqlite" || driver == "sqlite3":
		return goose.SetDialect("sqlite3")
	case isPostgres(driver):
		return goose.SetDialect("postgres")
	}
	return fmt.Errorf("unsupported driver for goose: %s", driver)
}

func migrationDir(driver string) string {
	if isPostgres(driver) {
		return "migrations/postgres"
	}
	return "migrations/sqlite"
}

// openDB returns a database handle for goose. SQLite goes through the same
// pure-Go driver the storage layer registers.
func openDB(driver, dsn string) (*sql.DB, error) {
	if isPostgres(driver) {
		return sql.Open("pgx", dsn)
	}
	if dsn == "" {
		dsn = DefaultSQLiteDSN
	}
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Discard})
	if err != nil {
		return nil, err
	}
	return db.DB()
}

func run(ctx context.Context, driver, dsn string, fn func(context.Context, *sql.DB, string) error) error {
	if err := configureGoose(driver); err != nil {
		return err
	}
	db, err := openDB(driver, dsn)
	if err != nil {
		return err
	}
	defer db.Close()
	return fn(ctx, db, migrationDir(driver))
}

// Up applies all pending migrations.
func Up(ctx context.Context, driver, dsn string) error {
	return run(ctx, driver, dsn, func(ctx context.Context, db *sql.DB, dir string) error {
		return goose.UpContext(ctx, db, dir)
	})
}

// Down rolls back the most recent migration.
func Down(ctx context.Context, driver, dsn string) error {
	return run(ctx, driver, dsn, func(ctx context.Context, db *sql.DB, dir string) error {
		return goose.DownContext(ctx, db, dir)
	})
}

// Status prints the applied and pending migrations.
func Status(ctx context.Context, driver, dsn string) error {
	return run(ctx, driver, dsn, func(ctx context.Context, db *sql.DB, dir string) error {
		return goose.StatusContext(ctx, db, dir)
	})
}

// Version returns the current schema version.
func Version(ctx context.Context, driver, dsn string) (int64, error) {
	var v int64
	err := run(ctx, driver, dsn, func(ctx context.Context, db *sql.DB, _ string) error {
		var err error
		v, err = goose.GetDBVersionContext(ctx, db)
		return err
	})
	return v, err
}
