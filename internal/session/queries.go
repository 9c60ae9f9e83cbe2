package session

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jonathan/interview-engine/internal/types"
)

// CurrentQuestion returns the outstanding question, or nil when none is
// outstanding (the session is not running).
func (e *Engine) CurrentQuestion(ctx context.Context, id uuid.UUID) (*types.QuestionView, error) {
	s, err := e.store.LoadState(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load session %s: %w", id, err)
	}
	if s.CurrentQuestionID == nil || s.OutstandingItem == nil {
		return nil, nil
	}
	view := s.OutstandingItem.View()
	return &view, nil
}

// Snapshot returns the persisted view of the session.
func (e *Engine) Snapshot(ctx context.Context, id uuid.UUID) (types.SessionSnapshot, error) {
	s, err := e.store.LoadState(ctx, id)
	if err != nil {
		return types.SessionSnapshot{}, fmt.Errorf("failed to load session %s: %w", id, err)
	}
	return s.Snapshot(), nil
}

// Audit returns the session's audit trail in commit order.
func (e *Engine) Audit(ctx context.Context, id uuid.UUID) ([]types.AuditEntry, error) {
	entries, err := e.store.ListAudit(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit for session %s: %w", id, err)
	}
	return entries, nil
}
