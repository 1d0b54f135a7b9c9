// Package db provides the PostgreSQL-backed preference store. The store is
// the service analog of the mobile app's key-value storage: string keys,
// string values, one row per entry.
package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"umbrella/internal/config"
)

// DBTX is the minimal interface shared by *pgxpool.Pool and pgx.Tx.
// Repositories accept this so the same code works inside or outside a
// transaction.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// NewPool creates a pgx connection pool from the database configuration
// and verifies connectivity with a ping.
func NewPool(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.URL.Unmask())
	if err != nil {
		return nil, fmt.Errorf("parsing database URL: %w", err)
	}
	poolCfg.MaxConns = int32(cfg.MaxConns)
	poolCfg.MinConns = int32(cfg.MinConns)
	poolCfg.MaxConnLifetime = cfg.MaxConnLifetime

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	return pool, nil
}

// EnsureSchema creates the preference table when it does not exist. The
// store is a single key-value table, so a migration framework would be
// overkill here.
func EnsureSchema(ctx context.Context, db DBTX) error {
	_, err := db.Exec(ctx,
		`CREATE TABLE IF NOT EXISTS preferences (
		   key        TEXT PRIMARY KEY,
		   value      TEXT NOT NULL,
		   updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		 )`)
	if err != nil {
		return fmt.Errorf("creating preferences table: %w", err)
	}
	return nil
}
