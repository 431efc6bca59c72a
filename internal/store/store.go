// Package store implements the Event Store (spec §3, §3A): an
// append-only relational log of blocks, chain state, and typed events,
// backed by Postgres via pgx. The Extract Worker is the store's only
// writer of event tables; the Block Iterator writes only Block and State;
// the Historical Query Engine only reads.
package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// Store wraps a pooled Postgres connection and exposes the append-only
// writes and point-in-time reads the rest of the indexer needs.
type Store struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// Config configures the connection pool.
type Config struct {
	DSN      string
	MaxConns int32
}

// New dials Postgres and verifies connectivity. Call Migrate before first
// use on a fresh database.
func New(ctx context.Context, cfg Config, logger *zap.Logger) (*Store, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("store: DSN is required")
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("store: invalid DSN: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("store: failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("store: failed to connect: %w", err)
	}

	return &Store{pool: pool, logger: logger}, nil
}

// Migrate applies the bundled schema. It is idempotent: every statement
// uses CREATE TABLE IF NOT EXISTS, so it is safe to call on every boot
// instead of running a separate migration framework (§6: "no schema
// migration logic in the core itself").
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("store: failed to apply schema: %w", err)
	}
	return nil
}

// Close releases the connection pool.
func (s *Store) Close() {
	s.pool.Close()
}

// Pool exposes the underlying pool for the query engine's `query` escape
// hatch (spec §4.4).
func (s *Store) Pool() *pgxpool.Pool {
	return s.pool
}
