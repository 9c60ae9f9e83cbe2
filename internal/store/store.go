// Package store defines the session storage contract and its single-node implementations.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/interview-engine/internal/types"
)

var (
	// ErrNotFound is returned when a session does not exist or its retention has lapsed.
	ErrNotFound = errors.New("session not found")
	// ErrVersionConflict is returned when the stored version differs from the expected one.
	ErrVersionConflict = errors.New("session version conflict")
)

// Store persists session state and its audit trail with optimistic concurrency.
type Store interface {
	// LoadState returns a copy of the stored session or ErrNotFound.
	LoadState(ctx context.Context, id uuid.UUID) (*types.SessionState, error)
	// SaveState writes state and appends audit atomically. An expectedVersion of
	// zero creates the session. state.Version must equal expectedVersion+1.
	SaveState(ctx context.Context, state *types.SessionState, expectedVersion int64, audit ...types.AuditEntry) error
	// ExpireAfter sets the retention window after which the session is no longer served.
	ExpireAfter(ctx context.Context, id uuid.UUID, ttl time.Duration) error
	// ListAudit returns the session's audit entries in sequence order.
	ListAudit(ctx context.Context, id uuid.UUID) ([]types.AuditEntry, error)
	// ListDue returns sessions whose system deadline is at or before now.
	ListDue(ctx context.Context, now time.Time, limit int) ([]uuid.UUID, error)
}

// CheckVersion validates the version bookkeeping of a save request.
func CheckVersion(state *types.SessionState, expectedVersion int64) error {
	if state == nil {
		return errors.New("nil session state")
	}
	if state.ID == uuid.Nil {
		return errors.New("session state without id")
	}
	if state.Version != expectedVersion+1 {
		return fmt.Errorf("session %s: version %d does not follow expected %d", state.ID, state.Version, expectedVersion)
	}
	return nil
}

// deadline converts a session's next system deadline into a nullable value.
func deadline(state *types.SessionState) *time.Time {
	d, ok := state.Deadline()
	if !ok {
		return nil
	}
	return &d
}
