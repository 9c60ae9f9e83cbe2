package session

import (
	"testing"

	"github.com/jonathan/interview-engine/internal/types"
	"github.com/stretchr/testify/assert"
)

var allStatuses = []types.SessionStatus{
	types.StatusScheduled,
	types.StatusInProgress,
	types.StatusPaused,
	types.StatusCompleted,
	types.StatusCancelled,
	types.StatusExpired,
}

var allEvents = []Event{
	EventSchedule, EventStart, EventSubmit, EventComplete, EventPause,
	EventResume, EventCancel, EventExpire, EventTimeout,
}

func TestNext_Table(t *testing.T) {
	valid := map[types.SessionStatus]map[Event]types.SessionStatus{
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

	for _, from := range allStatuses {
		for _, event := range allEvents {
			to, ok := Next(from, event)
			want, wantOK := valid[from][event]
			assert.Equal(t, wantOK, ok, "%s + %s", from, event)
			assert.Equal(t, want, to, "%s + %s", from, event)
		}
	}
}

func TestNext_TerminalStatusesAbsorb(t *testing.T) {
	for _, from := range allStatuses {
		if !from.IsTerminal() {
			continue
		}
		for _, event := range allEvents {
			_, ok := Next(from, event)
			assert.False(t, ok, "%s + %s", from, event)
		}
	}
}
