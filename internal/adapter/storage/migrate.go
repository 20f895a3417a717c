// internal/adapter/storage/migrate.go

package storage

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/jackc/pgx/v4/stdlib"
	"github.com/pressly/goose/v3"
)

//go:embed migrations
var migrations embed.FS

// MigratePostgres applies the Postgres migrations using the connection
// settings of the given DSN.
func MigratePostgres(ctx context.Context, dsn string, logger *slog.Logger) error {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return fmt.Errorf("parse dsn: %w", err)
	}

	db := stdlib.OpenDB(*cfg.ConnConfig)
	defer db.Close()

	return migrate(ctx, db, goose.DialectPostgres, "migrations/postgres", logger)
}

// MigrateSQLite applies the SQLite migrations to db
func MigrateSQLite(ctx context.Context, db *sql.DB, logger *slog.Logger) error {
	return migrate(ctx, db, goose.DialectSQLite3, "migrations/sqlite", logger)
}

func migrate(ctx context.Context, db *sql.DB, dialect goose.Dialect, dir string, logger *slog.Logger) error {
	fsys, err := fs.Sub(migrations, dir)
	if err != nil {
		return fmt.Errorf("migrations dir: %w", err)
	}

	provider, err := goose.NewProvider(dialect, db, fsys)
	if err != nil {
		return fmt.Errorf("goose new provider: %w", err)
	}

	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("goose up: %w", err)
	}

	for _, r := range results {
		logger.Info("migration applied", "version", r.Source.Version, "duration", r.Duration)
	}

	return nil
}
