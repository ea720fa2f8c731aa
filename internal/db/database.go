// Package db wraps a pgx connection pool behind a small handle that the
// exporter, importer, validator and backup manager receive by injection.
// There is no package-level singleton; the handle is constructed once at
// process start.
package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"github.com/rythm-app/dataops/internal/config"
)

// Querier is the read interface shared by the pooled handle and an open
// transaction, so validation queries can run in either scope.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

var (
	_ Querier = (*Database)(nil)
	_ Querier = (pgx.Tx)(nil)
)

// Database manages the PostgreSQL connection pool.
type Database struct {
	pool *pgxpool.Pool
}

// New creates a connection pool from config and verifies connectivity.
func New(ctx context.Context, cfg *config.DatabaseConfig) (*Database, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("parsing dsn: %w", err)
	}

	poolCfg.MaxConns = int32(cfg.MaxConns)
	poolCfg.MinConns = int32(cfg.MaxConns / 4)

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	log.Debug().Str("database", cfg.Database).Str("host", cfg.Host).Msg("connected to postgres")
	return &Database{pool: pool}, nil
}

// NewFromPool wraps an existing pool. Used by tests.
func NewFromPool(pool *pgxpool.Pool) *Database {
	return &Database{pool: pool}
}

// Query acquires a pooled connection for the duration of one query.
func (d *Database) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return d.pool.Query(ctx, sql, args...)
}

// QueryRow acquires a pooled connection for the duration of one query.
func (d *Database) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return d.pool.QueryRow(ctx, sql, args...)
}

// Exec acquires a pooled connection for the duration of one statement.
func (d *Database) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	return d.pool.Exec(ctx, sql, args...)
}

// Transaction runs fn inside BEGIN/COMMIT, holding one connection for the
// callback's entire lifetime. Any error from fn rolls the transaction back
// and is returned unchanged; the connection is released on every path.
func (d *Database) Transaction(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := d.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx) // no-op after a successful commit

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// LockTenant takes a transaction-scoped advisory lock keyed by tenant id,
// serializing concurrent imports of the same tenant. Released automatically
// at commit or rollback.
func LockTenant(ctx context.Context, tx pgx.Tx, tenantID string) error {
	_, err := tx.Exec(ctx, "SELECT pg_advisory_xact_lock(hashtextextended($1, 0))", tenantID)
	if err != nil {
		return fmt.Errorf("acquiring tenant lock: %w", err)
	}
	return nil
}

// LockGlobalCatalog takes a transaction-scoped advisory lock serializing
// concurrent imports of the global catalog.
func LockGlobalCatalog(ctx context.Context, tx pgx.Tx) error {
	_, err := tx.Exec(ctx, "SELECT pg_advisory_xact_lock(hashtextextended('global-catalog', 0))")
	if err != nil {
		return fmt.Errorf("acquiring global catalog lock: %w", err)
	}
	return nil
}

// Close closes all connections in the pool.
func (d *Database) Close() {
	d.pool.Close()
}
