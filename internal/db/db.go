// Package db provides PostgreSQL storage for interview sessions, their audit
// trail and the calibrated question bank.
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

// Schema bootstraps the tables used by the engine. Statements are idempotent.
const Schema = `
CREATE TABLE IF NOT EXISTS interview_sessions (
	id            UUID PRIMARY KEY,
	candidate_id  UUID NOT NULL,
	status        TEXT NOT NULL,
	version       BIGINT NOT NULL,
	state         JSONB NOT NULL,
	deadline      TIMESTAMPTZ,
	retain_until  TIMESTAMPTZ,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at    TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_interview_sessions_deadline
	ON interview_sessions (deadline) WHERE deadline IS NOT NULL;

CREATE INDEX IF NOT EXISTS idx_interview_sessions_candidate
	ON interview_sessions (candidate_id);

CREATE TABLE IF NOT EXISTS interview_audit (
	id          UUID PRIMARY KEY,
	session_id  UUID NOT NULL REFERENCES interview_sessions (id),
	sequence    BIGINT NOT NULL,
	kind        TEXT NOT NULL,
	payload     JSONB NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL,
	UNIQUE (session_id, sequence)
);

CREATE TABLE IF NOT EXISTS questions (
	id                         TEXT PRIMARY KEY,
	category                   TEXT NOT NULL,
	difficulty                 DOUBLE PRECISION NOT NULL,
	discrimination             DOUBLE PRECISION NOT NULL CHECK (discrimination > 0),
	guessing                   DOUBLE PRECISION NOT NULL DEFAULT 0,
	upper_asymptote            DOUBLE PRECISION NOT NULL DEFAULT 1,
	expected_duration_seconds  INTEGER NOT NULL DEFAULT 0,
	job_roles                  TEXT[] NOT NULL DEFAULT '{}',
	technologies               TEXT[] NOT NULL DEFAULT '{}',
	active                     BOOLEAN NOT NULL DEFAULT TRUE,
	updated_at                 TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_questions_difficulty ON questions (difficulty) WHERE active;
`

// Migrate applies Schema.
func (db *DB) Migrate(ctx context.Context) error {
	if _, err := db.pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}
