package session

import "github.com/jonathan/interview-engine/internal/types"

// Event is an inbound or system-triggered lifecycle event.
type Event string

// Lifecycle events.
const (
	EventSchedule Event = "schedule"
	EventStart    Event = "start"
	EventSubmit   Event = "submit_response"
	EventComplete Event = "complete"
	EventPause    Event = "pause"
	EventResume   Event = "resume"
	EventCancel   Event = "cancel"
	EventExpire   Event = "expire"
	EventTimeout  Event = "timeout"
)

// transitions is the complete table. Pairs missing here are rejected.
var transitions = map[types.SessionStatus]map[Event]types.SessionStatus{
	types.StatusScheduled: {
		EventStart:  types.StatusInProgress,
		EventCancel: types.StatusCancelled,
		EventExpire: types.StatusExpired,
	},
	types.StatusInProgress: {
		EventSubmit:   types.StatusInProgress,
		EventComplete: types.StatusCompleted,
		EventPause:    types.StatusPaused,
		EventCancel:   types.StatusCancelled,
		EventTimeout:  types.StatusCompleted,
	},
	types.StatusPaused: {
		EventResume: types.StatusInProgress,
		EventCancel: types.StatusCancelled,
		EventExpire: types.StatusExpired,
	},
}

// Next returns the status reached by applying event in status from.
func Next(from types.SessionStatus, event Event) (types.SessionStatus, bool) {
	to, ok := transitions[from][event]
	return to, ok
}
