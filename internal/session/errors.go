package session

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jonathan/interview-engine/internal/store"
	"github.com/jonathan/interview-engine/internal/types"
)

// ErrRetryLater is returned when a transition kept losing optimistic
// commits. The session is unchanged; the caller may retry.
var ErrRetryLater = errors.New("session is busy, please retry")

// errNotDue is returned by deadline enforcement when the deadline moved.
var errNotDue = errors.New("session deadline not reached")

// InvalidStateError is returned when an event is not allowed in the current status.
type InvalidStateError struct {
	SessionID uuid.UUID
	Status    types.SessionStatus
	Event     Event
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("session %s: %s not allowed while %s", e.SessionID, e.Event, e.Status)
}

// StaleResponseError is returned when a response does not answer the
// outstanding question. Current carries the question the client should show.
type StaleResponseError struct {
	SessionID  uuid.UUID
	QuestionID string
	Status     types.SessionStatus
	Current    *types.QuestionView
}

func (e *StaleResponseError) Error() string {
	if e.Current == nil {
		return fmt.Sprintf("session %s: response to %q is stale, no question outstanding", e.SessionID, e.QuestionID)
	}
	return fmt.Sprintf("session %s: response to %q is stale, current question is %q", e.SessionID, e.QuestionID, e.Current.ID)
}

// IsRetryable reports whether repeating the same call may succeed.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrRetryLater) || errors.Is(err, store.ErrVersionConflict)
}

// IsRecoverable reports whether err is an expected concurrency or staleness
// outcome rather than a fatal error.
func IsRecoverable(err error) bool {
	var stale *StaleResponseError
	return IsRetryable(err) || errors.As(err, &stale)
}
