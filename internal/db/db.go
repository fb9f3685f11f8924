// Package db provides PostgreSQL access for the archive of finished calls.
package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// DB wraps a PostgreSQL connection pool
type DB struct {
	pool *pgxpool.Pool
}

// Connect establishes a connection pool to the database
func Connect(ctx context.Context, databaseURL string) (*DB, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{pool: pool}, nil
}

// Close closes the connection pool
func (db *DB) Close() {
	if db.pool != nil {
		db.pool.Close()
	}
}

const schema = `
CREATE TABLE IF NOT EXISTS call_records (
	job_id            TEXT PRIMARY KEY,
	status            TEXT NOT NULL,
	supplier_id       TEXT NOT NULL,
	supplier_name     TEXT NOT NULL DEFAULT '',
	phone_number      TEXT NOT NULL,
	language          TEXT NOT NULL,
	items             JSONB NOT NULL,
	transcript        JSONB NOT NULL,
	confirmation_id   TEXT,
	delivery_estimate TEXT,
	failure_reason    TEXT NOT NULL DEFAULT '',
	created_at        TIMESTAMPTZ NOT NULL,
	ended_at          TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS call_records_ended_at_idx ON call_records (ended_at DESC);
`

// EnsureSchema creates the archive table if it does not exist.
func (db *DB) EnsureSchema(ctx context.Context) error {
	if _, err := db.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to create call archive schema: %w", err)
	}
	return nil
}
