package db

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jonathan/interview-engine/internal/store"
	"github.com/jonathan/interview-engine/internal/types"
)

var _ store.Store = (*DB)(nil)

// -----------------------------------------------------------------------------
// Session Store Methods
// -----------------------------------------------------------------------------

// LoadState retrieves a session by ID. Sessions past their retention window
// are reported as store.ErrNotFound.
func (db *DB) LoadState(ctx context.Context, id uuid.UUID) (*types.SessionState, error) {
	var raw []byte
	err := db.pool.QueryRow(ctx,
		`SELECT state FROM interview_sessions
		 WHERE id = $1 AND (retain_until IS NULL OR retain_until > NOW())`,
		id,
	).Scan(&raw)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	var state types.SessionState
	if err := json.Unmarshal(raw, &state); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session %s: %w", id, err)
	}
	return &state, nil
}

// SaveState writes the session and appends its audit entries in one
// transaction, guarded by the expected version.
func (db *DB) SaveState(ctx context.Context, state *types.SessionState, expectedVersion int64, audit ...types.AuditEntry) error {
	if err := store.CheckVersion(state, expectedVersion); err != nil {
		return err
	}
	stateJSON, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	deadline, _ := state.Deadline()
	var deadlineArg *time.Time
	if !deadline.IsZero() {
		deadlineArg = &deadline
	}

	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if expectedVersion == 0 {
		tag, err := tx.Exec(ctx,
			`INSERT INTO interview_sessions (id, candidate_id, status, version, state, deadline, created_at, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			 ON CONFLICT (id) DO NOTHING`,
			state.ID, state.CandidateID, string(state.Status), state.Version, stateJSON,
			deadlineArg, state.CreatedAt, state.LastUpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to create session: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return store.ErrVersionConflict
		}
	} else {
		tag, err := tx.Exec(ctx,
			`UPDATE interview_sessions
			 SET status = $1, version = $2, state = $3, deadline = $4, updated_at = $5
			 WHERE id = $6 AND version = $7
			   AND (retain_until IS NULL OR retain_until > NOW())`,
			string(state.Status), state.Version, stateJSON, deadlineArg, state.LastUpdatedAt,
			state.ID, expectedVersion,
		)
		if err != nil {
			return fmt.Errorf("failed to update session: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return missOrConflict(ctx, tx, state.ID)
		}
	}

	if err := appendAudit(ctx, tx, state.ID, audit); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit session: %w", err)
	}
	return nil
}

func missOrConflict(ctx context.Context, tx pgx.Tx, id uuid.UUID) error {
	var exists bool
	err := tx.QueryRow(ctx,
		`SELECT EXISTS (
			SELECT 1 FROM interview_sessions
			WHERE id = $1 AND (retain_until IS NULL OR retain_until > NOW()))`,
		id,
	).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check session: %w", err)
	}
	if !exists {
		return store.ErrNotFound
	}
	return store.ErrVersionConflict
}

// appendAudit relies on the row lock taken by the session write to serialize
// sequence allocation per session.
func appendAudit(ctx context.Context, tx pgx.Tx, sessionID uuid.UUID, audit []types.AuditEntry) error {
	if len(audit) == 0 {
		return nil
	}
	var last int64
	if err := tx.QueryRow(ctx,
		`SELECT COALESCE(MAX(sequence), 0) FROM interview_audit WHERE session_id = $1`,
		sessionID,
	).Scan(&last); err != nil {
		return fmt.Errorf("failed to read audit sequence: %w", err)
	}

	batch := &pgx.Batch{}
	for _, entry := range audit {
		last++
		entry.SessionID = sessionID
		entry.Sequence = last
		if entry.ID == uuid.Nil {
			entry.ID = uuid.New()
		}
		payload, err := json.Marshal(entry)
		if err != nil {
			return fmt.Errorf("failed to marshal audit entry: %w", err)
		}
		batch.Queue(
			`INSERT INTO interview_audit (id, session_id, sequence, kind, payload, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			entry.ID, sessionID, entry.Sequence, string(entry.Kind), payload, entry.CreatedAt,
		)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("failed to insert audit entries: %w", err)
	}
	return nil
}

// ExpireAfter sets the retention deadline of a session.
func (db *DB) ExpireAfter(ctx context.Context, id uuid.UUID, ttl time.Duration) error {
	tag, err := db.pool.Exec(ctx,
		`UPDATE interview_sessions SET retain_until = $1 WHERE id = $2`,
		time.Now().Add(ttl), id,
	)
	if err != nil {
		return fmt.Errorf("failed to set session retention: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

// ListAudit retrieves the audit trail of a session in sequence order
func (db *DB) ListAudit(ctx context.Context, id uuid.UUID) ([]types.AuditEntry, error) {
	if _, err := db.LoadState(ctx, id); err != nil {
		return nil, err
	}

	rows, err := db.pool.Query(ctx,
		`SELECT payload FROM interview_audit WHERE session_id = $1 ORDER BY sequence`,
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit: %w", err)
	}
	defer rows.Close()

	var entries []types.AuditEntry
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}
		var entry types.AuditEntry
		if err := json.Unmarshal(payload, &entry); err != nil {
			return nil, fmt.Errorf("failed to unmarshal audit entry: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// ListDue retrieves sessions whose deadline is at or before now, oldest first.
// A non-positive limit returns every due session.
func (db *DB) ListDue(ctx context.Context, now time.Time, limit int) ([]uuid.UUID, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT id FROM interview_sessions
		 WHERE deadline IS NOT NULL AND deadline <= $1
		   AND (retain_until IS NULL OR retain_until > NOW())
		 ORDER BY deadline
		 LIMIT $2`,
		now, nullableLimit(limit),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list due sessions: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan session id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// nullableLimit maps "no limit" to SQL NULL, which LIMIT treats as unbounded.
func nullableLimit(limit int) *int {
	if limit <= 0 {
		return nil
	}
	return &limit
}
