package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// MigrationConsoleSessions is the SQL DDL for the console_sessions table.
// It is safe to execute multiple times (uses IF NOT EXISTS); callers run it
// at startup as an auto-migration step.
const MigrationConsoleSessions = `
CREATE TABLE IF NOT EXISTS console_sessions (
    scope      TEXT NOT NULL,
    key        TEXT NOT NULL,
    value      TEXT NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    PRIMARY KEY (scope, key)
);
`

// pgRow represents a single row returned by QueryRow.
type pgRow interface {
	Scan(dest ...any) error
}

// pgConn is the minimal database interface required by PGStore. Both
// *pgxpool.Pool (via a thin adapter) and test mocks implement it.
type pgConn interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgRow
	Exec(ctx context.Context, sql string, args ...any) error
}

// PGStore is a PostgreSQL-backed Store, scoped to one actor. The admin
// gateway uses it so browser sessions survive restarts and are shared
// across instances; the CLI sticks with the file store.
type PGStore struct {
	db    pgConn
	scope string
}

// NewPGStore creates a PG-backed store for one session scope. Use
// NewPGStoreFromPool to wrap a *pgxpool.Pool, or pass a mock in tests.
func NewPGStore(db pgConn, scope string) *PGStore {
	return &PGStore{db: db, scope: scope}
}

// NewPGStoreFromPool wraps a pgx pool for PGStore use.
func NewPGStoreFromPool(pool *pgxpool.Pool, scope string) *PGStore {
	return NewPGStore(&poolAdapter{pool: pool}, scope)
}

func (s *PGStore) Get(ctx context.Context, key string) (string, bool, error) {
	const query = `SELECT value FROM console_sessions WHERE scope = $1 AND key = $2`

	var value string
	if err := s.db.QueryRow(ctx, query, s.scope, key).Scan(&value); err != nil {
		if isNoRows(err) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("get session field: %w", err)
	}
	return value, true, nil
}

func (s *PGStore) Set(ctx context.Context, key, value string) error {
	const query = `INSERT INTO console_sessions (scope, key, value, updated_at)
VALUES ($1, $2, $3, now())
ON CONFLICT (scope, key) DO UPDATE SET value = EXCLUDED.value,
                                       updated_at = EXCLUDED.updated_at`

	if err := s.db.Exec(ctx, query, s.scope, key, value); err != nil {
		return fmt.Errorf("set session field: %w", err)
	}
	return nil
}

func (s *PGStore) Delete(ctx context.Context, key string) error {
	const query = `DELETE FROM console_sessions WHERE scope = $1 AND key = $2`

	if err := s.db.Exec(ctx, query, s.scope, key); err != nil {
		return fmt.Errorf("delete session field: %w", err)
	}
	return nil
}

// poolAdapter adapts *pgxpool.Pool to the pgConn interface.
type poolAdapter struct {
	pool *pgxpool.Pool
}

func (a *poolAdapter) QueryRow(ctx context.Context, sql string, args ...any) pgRow {
	return a.pool.QueryRow(ctx, sql, args...)
}

func (a *poolAdapter) Exec(ctx context.Context, sql string, args ...any) error {
	_, err := a.pool.Exec(ctx, sql, args...)
	return err
}

func isNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
