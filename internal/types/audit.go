package types

import (
	"time"

	"github.com/google/uuid"
)

// AuditKind identifies the payload of an audit entry.
type AuditKind string

// Audit kinds.
const (
	AuditResponse   AuditKind = "response"
	AuditSelection  AuditKind = "selection"
	AuditBias       AuditKind = "bias"
	AuditTransition AuditKind = "transition"
)

// TransitionRecord captures one status change.
type TransitionRecord struct {
	From   SessionStatus     `json:"from"`
	To     SessionStatus     `json:"to"`
	Event  string            `json:"event"`
	Reason TerminationReason `json:"reason,omitempty"`
	Note   string            `json:"note,omitempty"`
}

// AuditEntry is an append-only record owned by a session.
// Exactly one of the payload pointers is set, matching Kind.
type AuditEntry struct {
	ID         uuid.UUID         `json:"id"`
	SessionID  uuid.UUID         `json:"session_id"`
	Sequence   int64             `json:"sequence"`
	Kind       AuditKind         `json:"kind"`
	Response   *ResponseRecord   `json:"response,omitempty"`
	Selection  *SelectionOutcome `json:"selection,omitempty"`
	Bias       *BiasAssessment   `json:"bias,omitempty"`
	Transition *TransitionRecord `json:"transition,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
}
