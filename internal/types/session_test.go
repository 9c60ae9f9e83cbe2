package types

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleSession() *SessionState {
	q := "q3"
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	return &SessionState{
		ID:                uuid.New(),
		CandidateID:       uuid.New(),
		Status:            StatusInProgress,
		AskedQuestionIDs:  []string{"q1", "q2"},
		CurrentQuestionID: &q,
		OutstandingItem:   &QuestionItem{ID: "q3", Category: "go", Discrimination: 1.2, JobRoles: []string{"backend"}},
		AskedCategories:   map[string]int{"go": 2},
		Ability:           AbilityState{Theta: 0.4, StandardError: 0.7, QuestionsAnswered: 2, Information: 2},
		Config:            SessionConfig{MinQuestions: 1, MaxQuestions: 5, CategoryWeights: map[string]float64{"go": 1}},
		CreatedAt:         now,
		StartedAt:         &now,
		LastUpdatedAt:     now,
	}
}

func TestSessionState_CloneIsDeep(t *testing.T) {
	s := sampleSession()
	c := s.Clone()

	c.AskedQuestionIDs[0] = "changed"
	*c.CurrentQuestionID = "other"
	c.AskedCategories["go"] = 99
	c.Config.CategoryWeights["go"] = 0
	*c.StartedAt = c.StartedAt.Add(time.Hour)
	c.OutstandingItem.JobRoles[0] = "frontend"

	assert.Equal(t, "q1", s.AskedQuestionIDs[0])
	assert.Equal(t, "q3", s.CurrentQuestion())
	assert.Equal(t, 2, s.AskedCategories["go"])
	assert.Equal(t, 1.0, s.Config.CategoryWeights["go"])
	assert.Equal(t, s.CreatedAt, *s.StartedAt)
	assert.Equal(t, "backend", s.OutstandingItem.JobRoles[0])
}

func TestSessionState_CheckInvariants(t *testing.T) {
	require.NoError(t, sampleSession().CheckInvariants())

	tests := []struct {
		name   string
		mutate func(s *SessionState)
		errMsg string
	}{
		{"count mismatch", func(s *SessionState) { s.Ability.QuestionsAnswered = 3 }, "answered"},
		{"duplicate asked", func(s *SessionState) { s.AskedQuestionIDs = []string{"q1", "q1"} }, "asked twice"},
		{"in progress without question", func(s *SessionState) { s.CurrentQuestionID = nil }, "without an outstanding"},
		{"paused with question", func(s *SessionState) { s.Status = StatusPaused }, "outstanding question while"},
		{"outstanding already answered", func(s *SessionState) {
			q := "q1"
			s.CurrentQuestionID = &q
			s.OutstandingItem.ID = "q1"
		}, "already answered"},
		{"calibration missing", func(s *SessionState) { s.OutstandingItem = nil }, "not recorded"},
		{"calibration for another question", func(s *SessionState) { s.OutstandingItem.ID = "q9" }, "not recorded"},
		{"calibration without pending question", func(s *SessionState) {
			s.Status = StatusCompleted
			s.CurrentQuestionID = nil
		}, "without a pending question"},
		{"suspended while running", func(s *SessionState) { q := "q3"; s.SuspendedQuestion = &q }, "suspended question while"},
	}

	paused := sampleSession()
	paused.Status = StatusPaused
	paused.SuspendedQuestion, paused.CurrentQuestionID = paused.CurrentQuestionID, nil
	require.NoError(t, paused.CheckInvariants())

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := sampleSession()
			tt.mutate(s)
			err := s.CheckInvariants()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestSessionState_Snapshot(t *testing.T) {
	s := sampleSession()
	snap := s.Snapshot()

	assert.Equal(t, s.ID, snap.SessionID)
	assert.Equal(t, s.Ability, snap.Ability)
	assert.Equal(t, []string{"q1", "q2"}, snap.AskedQuestionIDs)
	require.NotNil(t, snap.CurrentQuestionID)
	assert.Equal(t, "q3", *snap.CurrentQuestionID)

	snap.AskedQuestionIDs[0] = "mutated"
	assert.Equal(t, "q1", s.AskedQuestionIDs[0])
}

func TestSessionStatus_IsTerminal(t *testing.T) {
	assert.False(t, StatusScheduled.IsTerminal())
	assert.False(t, StatusInProgress.IsTerminal())
	assert.False(t, StatusPaused.IsTerminal())
	assert.True(t, StatusCompleted.IsTerminal())
	assert.True(t, StatusCancelled.IsTerminal())
	assert.True(t, StatusExpired.IsTerminal())
}

func TestSessionState_LastActivity(t *testing.T) {
	s := sampleSession()
	assert.Equal(t, s.LastUpdatedAt, s.LastActivity())

	paused := s.LastUpdatedAt.Add(-time.Minute)
	s.Status = StatusPaused
	s.PausedAt = &paused
	assert.Equal(t, paused, s.LastActivity())
}

func TestSessionState_Deadline(t *testing.T) {
	s := sampleSession()
	_, ok := s.Deadline()
	assert.False(t, ok, "no budget configured")

	s.Config.TimeBudget = 10 * time.Minute
	d, ok := s.Deadline()
	require.True(t, ok)
	assert.Equal(t, s.StartedAt.Add(10*time.Minute), d)

	s.Status = StatusScheduled
	s.CurrentQuestionID = nil
	_, ok = s.Deadline()
	assert.False(t, ok, "no inactivity timeout configured")

	s.Config.InactivityTimeout = time.Hour
	d, ok = s.Deadline()
	require.True(t, ok)
	assert.Equal(t, s.LastUpdatedAt.Add(time.Hour), d)

	s.Status = StatusCompleted
	_, ok = s.Deadline()
	assert.False(t, ok)
}
