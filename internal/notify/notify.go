// Package notify delivers best-effort session events to external listeners.
// Delivery never blocks or fails an engine operation.
package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/interview-engine/internal/types"
)

// EventType names a session event.
type EventType string

const (
	EventBiasIntervention  EventType = "bias.intervention"
	EventSessionTerminated EventType = "session.terminated"
	EventSessionExpired    EventType = "session.expired"
	EventSessionCancelled  EventType = "session.cancelled"
)

// Event is the payload handed to notifiers.
type Event struct {
	ID          uuid.UUID              `json:"id"`
	Type        EventType              `json:"type"`
	SessionID   uuid.UUID              `json:"session_id"`
	CandidateID uuid.UUID              `json:"candidate_id"`
	Status      types.SessionStatus    `json:"status"`
	Reason      string                 `json:"reason,omitempty"`
	Bias        *types.BiasAssessment  `json:"bias,omitempty"`
	Snapshot    *types.SessionSnapshot `json:"snapshot,omitempty"`
	OccurredAt  time.Time              `json:"occurred_at"`
}

// Notifier delivers one event. Implementations must honor ctx.
type Notifier interface {
	Notify(ctx context.Context, e Event) error
}

// Publisher accepts events for asynchronous delivery.
type Publisher interface {
	Publish(e Event)
}

// Discard is a Publisher that drops every event.
var Discard Publisher = discard{}

type discard struct{}

func (discard) Publish(Event) {}

// DeliveryError reports a rejected webhook delivery.
type DeliveryError struct {
	URL        string
	StatusCode int
	Event      EventType
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("webhook %s rejected %s with status %d", e.URL, e.Event, e.StatusCode)
}
