package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/interview-engine/internal/types"

	_ "modernc.org/sqlite" // registers the "sqlite" driver
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS interview_sessions (
	id            TEXT PRIMARY KEY,
	candidate_id  TEXT NOT NULL,
	status        TEXT NOT NULL,
	version       INTEGER NOT NULL,
	state         BLOB NOT NULL,
	deadline      INTEGER,
	retain_until  INTEGER,
	updated_at    INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_interview_sessions_deadline ON interview_sessions (deadline);
CREATE TABLE IF NOT EXISTS interview_audit (
	id          TEXT PRIMARY KEY,
	session_id  TEXT NOT NULL REFERENCES interview_sessions (id),
	sequence    INTEGER NOT NULL,
	kind        TEXT NOT NULL,
	payload     BLOB NOT NULL,
	created_at  INTEGER NOT NULL,
	UNIQUE (session_id, sequence)
);`

// SQLite is a single-node durable Store backed by modernc.org/sqlite.
type SQLite struct {
	db  *sql.DB
	now func() time.Time
}

// OpenSQLite opens (and creates if needed) the database at dsn.
// Use ":memory:" for a throwaway database.
func OpenSQLite(ctx context.Context, dsn string) (*SQLite, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}
	// one writer; also keeps ":memory:" databases on a single connection
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, `PRAGMA foreign_keys = ON; PRAGMA busy_timeout = 5000;`); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to configure sqlite: %w", err)
	}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create sqlite schema: %w", err)
	}
	return &SQLite{db: db, now: time.Now}, nil
}

// Close closes the database.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// LoadState implements Store.
func (s *SQLite) LoadState(ctx context.Context, id uuid.UUID) (*types.SessionState, error) {
	var raw []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT state FROM interview_sessions
		 WHERE id = ? AND (retain_until IS NULL OR retain_until > ?)`,
		id.String(), s.now().UnixNano(),
	).Scan(&raw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load session %s: %w", id, err)
	}

	var state types.SessionState
	if err := json.Unmarshal(raw, &state); err != nil {
		return nil, fmt.Errorf("failed to decode session %s: %w", id, err)
	}
	return &state, nil
}

// SaveState implements Store.
func (s *SQLite) SaveState(ctx context.Context, state *types.SessionState, expectedVersion int64, audit ...types.AuditEntry) error {
	if err := CheckVersion(state, expectedVersion); err != nil {
		return err
	}
	raw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to encode session %s: %w", state.ID, err)
	}
	var due *int64
	if d := deadline(state); d != nil {
		n := d.UnixNano()
		due = &n
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if expectedVersion == 0 {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO interview_sessions (id, candidate_id, status, version, state, deadline, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)
			 ON CONFLICT (id) DO NOTHING`,
			state.ID.String(), state.CandidateID.String(), string(state.Status), state.Version, raw, due, state.LastUpdatedAt.UnixNano(),
		)
		if err != nil {
			return fmt.Errorf("failed to insert session %s: %w", state.ID, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to insert session %s: %w", state.ID, err)
		}
		if n == 0 {
			return ErrVersionConflict
		}
	} else {
		res, err := tx.ExecContext(ctx,
			`UPDATE interview_sessions
			 SET status = ?, version = ?, state = ?, deadline = ?, updated_at = ?
			 WHERE id = ? AND version = ? AND (retain_until IS NULL OR retain_until > ?)`,
			string(state.Status), state.Version, raw, due, state.LastUpdatedAt.UnixNano(),
			state.ID.String(), expectedVersion, s.now().UnixNano(),
		)
		if err != nil {
			return fmt.Errorf("failed to update session %s: %w", state.ID, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to update session %s: %w", state.ID, err)
		}
		if n == 0 {
			return s.missOrConflict(ctx, tx, state.ID)
		}
	}

	if err := s.appendAudit(ctx, tx, state.ID, audit); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit session %s: %w", state.ID, err)
	}
	return nil
}

func (s *SQLite) missOrConflict(ctx context.Context, tx *sql.Tx, id uuid.UUID) error {
	var exists int
	err := tx.QueryRowContext(ctx,
		`SELECT 1 FROM interview_sessions WHERE id = ? AND (retain_until IS NULL OR retain_until > ?)`,
		id.String(), s.now().UnixNano(),
	).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to check session %s: %w", id, err)
	}
	return ErrVersionConflict
}

func (s *SQLite) appendAudit(ctx context.Context, tx *sql.Tx, id uuid.UUID, audit []types.AuditEntry) error {
	if len(audit) == 0 {
		return nil
	}
	var last int64
	if err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(sequence), 0) FROM interview_audit WHERE session_id = ?`, id.String(),
	).Scan(&last); err != nil {
		return fmt.Errorf("failed to read audit sequence: %w", err)
	}

	for _, entry := range audit {
		last++
		entry.SessionID = id
		entry.Sequence = last
		if entry.ID == uuid.Nil {
			entry.ID = uuid.New()
		}
		payload, err := json.Marshal(entry)
		if err != nil {
			return fmt.Errorf("failed to encode audit entry: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO interview_audit (id, session_id, sequence, kind, payload, created_at)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			entry.ID.String(), id.String(), entry.Sequence, string(entry.Kind), payload, entry.CreatedAt.UnixNano(),
		); err != nil {
			return fmt.Errorf("failed to insert audit entry: %w", err)
		}
	}
	return nil
}

// ExpireAfter implements Store.
func (s *SQLite) ExpireAfter(ctx context.Context, id uuid.UUID, ttl time.Duration) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE interview_sessions SET retain_until = ? WHERE id = ?`,
		s.now().Add(ttl).UnixNano(), id.String(),
	)
	if err != nil {
		return fmt.Errorf("failed to set retention for %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListAudit implements Store.
func (s *SQLite) ListAudit(ctx context.Context, id uuid.UUID) ([]types.AuditEntry, error) {
	if _, err := s.LoadState(ctx, id); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT payload FROM interview_audit WHERE session_id = ? ORDER BY sequence`, id.String())
	if err != nil {
		return nil, fmt.Errorf("failed to list audit for %s: %w", id, err)
	}
	defer rows.Close()

	var entries []types.AuditEntry
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		var entry types.AuditEntry
		if err := json.Unmarshal(raw, &entry); err != nil {
			return nil, fmt.Errorf("failed to decode audit entry: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// ListDue implements Store.
func (s *SQLite) ListDue(ctx context.Context, now time.Time, limit int) ([]uuid.UUID, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id FROM interview_sessions
		 WHERE deadline IS NOT NULL AND deadline <= ?
		   AND (retain_until IS NULL OR retain_until > ?)
		 ORDER BY deadline
		 LIMIT ?`,
		now.UnixNano(), s.now().UnixNano(), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list due sessions: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid session id %q: %w", raw, err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
