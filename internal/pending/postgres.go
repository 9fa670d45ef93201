// internal/pending/postgres.go
package pending

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore keeps pending slots in a single upsert table. It is the
// backend of choice when the host already runs Postgres and no Redis is
// available.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// Schema is the DDL the store expects. ConnectPostgres applies it on
// startup; it is idempotent.
const Schema = `
CREATE TABLE IF NOT EXISTS pending_events (
	slot_key   TEXT PRIMARY KEY,
	value      JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// ConnectPostgres opens a pool from a DATABASE_URL-style conn string and
// ensures the slot table exists.
func ConnectPostgres(ctx context.Context, connStr string) (*pgxpool.Pool, error) {
	if connStr == "" {
		return nil, errors.New("postgres connection string is empty")
	}
	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres unreachable: %w", err)
	}
	if _, err := pool.Exec(ctx, Schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ensure pending_events table: %w", err)
	}
	return pool, nil
}

func (s *PostgresStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var value []byte
	q := `SELECT value FROM pending_events WHERE slot_key = $1`
	err := s.pool.QueryRow(ctx, q, key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return value, true, nil
}

func (s *PostgresStore) Set(ctx context.Context, key string, value []byte) error {
	q := `
		INSERT INTO pending_events (slot_key, value)
		VALUES ($1, $2)
		ON CONFLICT (slot_key)
		DO UPDATE SET value = $2, updated_at = NOW()
	`
	_, err := s.pool.Exec(ctx, q, key, value)
	return err
}

func (s *PostgresStore) Delete(ctx context.Context, key string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM pending_events WHERE slot_key = $1`, key)
	return err
}
