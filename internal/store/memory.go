package store

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/interview-engine/internal/types"
)

type memoryRecord struct {
	state       *types.SessionState
	audit       []types.AuditEntry
	retainUntil time.Time
}

// Memory is an in-process Store. It keeps copies, so callers never share state.
type Memory struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]*memoryRecord
	now      func() time.Time
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		sessions: make(map[uuid.UUID]*memoryRecord),
		now:      time.Now,
	}
}

// LoadState implements Store.
func (m *Memory) LoadState(_ context.Context, id uuid.UUID) (*types.SessionState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.sessions[id]
	if !ok || m.lapsed(rec) {
		return nil, ErrNotFound
	}
	return rec.state.Clone(), nil
}

// SaveState implements Store.
func (m *Memory) SaveState(_ context.Context, state *types.SessionState, expectedVersion int64, audit ...types.AuditEntry) error {
	if err := CheckVersion(state, expectedVersion); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	rec, exists := m.sessions[state.ID]
	switch {
	case expectedVersion == 0 && exists:
		return ErrVersionConflict
	case expectedVersion > 0 && (!exists || m.lapsed(rec)):
		return ErrNotFound
	case exists && rec.state.Version != expectedVersion:
		return ErrVersionConflict
	}

	if !exists {
		rec = &memoryRecord{}
		m.sessions[state.ID] = rec
	}
	rec.state = state.Clone()

	next := int64(len(rec.audit)) + 1
	for _, entry := range audit {
		if entry.ID == uuid.Nil {
			entry.ID = uuid.New()
		}
		entry.SessionID = state.ID
		entry.Sequence = next
		next++
		rec.audit = append(rec.audit, entry)
	}
	return nil
}

// ExpireAfter implements Store.
func (m *Memory) ExpireAfter(_ context.Context, id uuid.UUID, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.sessions[id]
	if !ok {
		return ErrNotFound
	}
	rec.retainUntil = m.now().Add(ttl)
	return nil
}

// ListAudit implements Store.
func (m *Memory) ListAudit(_ context.Context, id uuid.UUID) ([]types.AuditEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.sessions[id]
	if !ok || m.lapsed(rec) {
		return nil, ErrNotFound
	}
	return slices.Clone(rec.audit), nil
}

// ListDue implements Store.
func (m *Memory) ListDue(_ context.Context, now time.Time, limit int) ([]uuid.UUID, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	type due struct {
		id uuid.UUID
		at time.Time
	}
	var found []due
	for id, rec := range m.sessions {
		if m.lapsed(rec) {
			continue
		}
		if d := deadline(rec.state); d != nil && !d.After(now) {
			found = append(found, due{id: id, at: *d})
		}
	}
	sort.Slice(found, func(i, j int) bool { return found[i].at.Before(found[j].at) })

	ids := make([]uuid.UUID, 0, len(found))
	for _, f := range found {
		if limit > 0 && len(ids) >= limit {
			break
		}
		ids = append(ids, f.id)
	}
	return ids, nil
}

func (m *Memory) lapsed(rec *memoryRecord) bool {
	return !rec.retainUntil.IsZero() && !m.now().Before(rec.retainUntil)
}
