package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

type DB struct {
	Pool *pgxpool.Pool
}

func New(ctx context.Context, databaseURL string, maxConns int32, minConns int32) (*DB, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}

	cfg.MaxConns = maxConns
	cfg.MinConns = minConns
	cfg.MaxConnLifetime = 30 * time.Minute
	cfg.MaxConnIdleTime = 5 * time.Minute
	cfg.HealthCheckPeriod = 30 * time.Second

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	slog.Info("database connected", "max_conns", maxConns, "min_conns", minConns)
	return &DB{Pool: pool}, nil
}

// EnsureSchema creates the session table when it is missing. The schema is a
// single table, so there is no migration ledger.
func (db *DB) EnsureSchema(ctx context.Context) error {
	if db == nil || db.Pool == nil {
		return fmt.Errorf("database pool is not initialized")
	}

	_, err := db.Pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS sessions (
			id         text PRIMARY KEY,
			user_id    text NOT NULL,
			username   text NOT NULL,
			created_at timestamptz NOT NULL,
			expires_at timestamptz NOT NULL
		)`)
	if err != nil {
		return fmt.Errorf("create sessions table: %w", err)
	}

	_, err = db.Pool.Exec(ctx,
		`CREATE INDEX IF NOT EXISTS sessions_expires_at_idx ON sessions (expires_at)`)
	if err != nil {
		return fmt.Errorf("create sessions index: %w", err)
	}

	slog.Info("database schema ensured")
	return nil
}

func (db *DB) Close() {
	if db.Pool != nil {
		db.Pool.Close()
	}
}

func (db *DB) Health(ctx context.Context) error {
	return db.Pool.Ping(ctx)
}
