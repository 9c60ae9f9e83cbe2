package types

import (
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
)

// SessionStatus is the lifecycle status of an interview session.
type SessionStatus string

// Session statuses.
const (
	StatusScheduled  SessionStatus = "SCHEDULED"
	StatusInProgress SessionStatus = "IN_PROGRESS"
	StatusPaused     SessionStatus = "PAUSED"
	StatusCompleted  SessionStatus = "COMPLETED"
	StatusCancelled  SessionStatus = "CANCELLED"
	StatusExpired    SessionStatus = "EXPIRED"
)

// IsTerminal reports whether no further transition is possible.
func (s SessionStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled || s == StatusExpired
}

// TerminationReason explains why a session stopped asking questions.
type TerminationReason string

// Termination reasons.
const (
	ReasonNone                TerminationReason = ""
	ReasonMaxQuestionsReached TerminationReason = "MAX_QUESTIONS_REACHED"
	ReasonPrecisionReached    TerminationReason = "PRECISION_REACHED"
	ReasonPoolExhausted       TerminationReason = "POOL_EXHAUSTED"
	ReasonTimedOut            TerminationReason = "TIMED_OUT"
	ReasonCancelled           TerminationReason = "CANCELLED"
)

// SessionConfig holds the per-session stopping rules and selection constraints.
type SessionConfig struct {
	MinQuestions       int                `json:"min_questions" mapstructure:"min-questions" validate:"gte=1"`
	MaxQuestions       int                `json:"max_questions" mapstructure:"max-questions" validate:"gtefield=MinQuestions"`
	PrecisionThreshold float64            `json:"precision_threshold" mapstructure:"precision-threshold" validate:"gt=0"`
	DifficultyBand     DifficultyBand     `json:"difficulty_band" mapstructure:"difficulty-band"`
	CategoryWeights    map[string]float64 `json:"category_weights,omitempty" mapstructure:"category-weights"`
	TimeBudget         time.Duration      `json:"time_budget,omitempty" mapstructure:"time-budget" validate:"gte=0"`
	InactivityTimeout  time.Duration      `json:"inactivity_timeout,omitempty" mapstructure:"inactivity-timeout" validate:"gte=0"`
	InitialTheta       float64            `json:"initial_theta" mapstructure:"initial-theta" validate:"gte=-4,lte=4"`
	InitialSE          float64            `json:"initial_standard_error" mapstructure:"initial-standard-error" validate:"gt=0"`
}

// SessionState is the authoritative state of one interview session.
// Version is the optimistic concurrency token owned by the store.
type SessionState struct {
	ID                uuid.UUID         `json:"id"`
	CandidateID       uuid.UUID         `json:"candidate_id"`
	JobRole           string            `json:"job_role,omitempty"`
	Technologies      []string          `json:"technologies,omitempty"`
	Status            SessionStatus     `json:"status"`
	AskedQuestionIDs  []string          `json:"asked_question_ids"`
	CurrentQuestionID *string           `json:"current_question_id,omitempty"`
	SuspendedQuestion *string           `json:"suspended_question_id,omitempty"`
	OutstandingItem   *QuestionItem     `json:"outstanding_item,omitempty"`
	AskedCategories   map[string]int    `json:"asked_categories,omitempty"`
	Discriminations   []float64         `json:"discriminations,omitempty"`
	Ability           AbilityState      `json:"ability"`
	Config            SessionConfig     `json:"config"`
	Bias              BiasSummary       `json:"bias"`
	LastConfidence    float64           `json:"last_confidence"`
	TerminationReason TerminationReason `json:"termination_reason,omitempty"`
	CancelReason      string            `json:"cancel_reason,omitempty"`
	Version           int64             `json:"version"`
	CreatedAt         time.Time         `json:"created_at"`
	StartedAt         *time.Time        `json:"started_at,omitempty"`
	PausedAt          *time.Time        `json:"paused_at,omitempty"`
	EndedAt           *time.Time        `json:"ended_at,omitempty"`
	LastUpdatedAt     time.Time         `json:"last_updated_at"`
}

// Clone returns a deep copy so callers can mutate without aliasing.
func (s *SessionState) Clone() *SessionState {
	c := *s
	c.Technologies = slices.Clone(s.Technologies)
	c.AskedQuestionIDs = slices.Clone(s.AskedQuestionIDs)
	c.Discriminations = slices.Clone(s.Discriminations)
	c.CurrentQuestionID = cloneString(s.CurrentQuestionID)
	c.SuspendedQuestion = cloneString(s.SuspendedQuestion)
	if s.OutstandingItem != nil {
		item := *s.OutstandingItem
		item.JobRoles = slices.Clone(item.JobRoles)
		item.Technologies = slices.Clone(item.Technologies)
		c.OutstandingItem = &item
	}
	if s.AskedCategories != nil {
		c.AskedCategories = make(map[string]int, len(s.AskedCategories))
		for k, v := range s.AskedCategories {
			c.AskedCategories[k] = v
		}
	}
	if s.Config.CategoryWeights != nil {
		c.Config.CategoryWeights = make(map[string]float64, len(s.Config.CategoryWeights))
		for k, v := range s.Config.CategoryWeights {
			c.Config.CategoryWeights[k] = v
		}
	}
	if s.Bias.PerCategoryScores != nil {
		c.Bias.PerCategoryScores = make(map[string]float64, len(s.Bias.PerCategoryScores))
		for k, v := range s.Bias.PerCategoryScores {
			c.Bias.PerCategoryScores[k] = v
		}
	}
	c.StartedAt = cloneTime(s.StartedAt)
	c.PausedAt = cloneTime(s.PausedAt)
	c.EndedAt = cloneTime(s.EndedAt)
	return &c
}

func cloneString(v *string) *string {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

// HasAsked reports whether questionID was already served in this session.
func (s *SessionState) HasAsked(questionID string) bool {
	return slices.Contains(s.AskedQuestionIDs, questionID)
}

// CurrentQuestion returns the outstanding question id or "".
func (s *SessionState) CurrentQuestion() string {
	if s.CurrentQuestionID == nil {
		return ""
	}
	return *s.CurrentQuestionID
}

func (s *SessionState) pendingQuestion() string {
	switch {
	case s.CurrentQuestionID != nil:
		return *s.CurrentQuestionID
	case s.SuspendedQuestion != nil:
		return *s.SuspendedQuestion
	}
	return ""
}

// LastActivity is the reference point for inactivity expiry.
func (s *SessionState) LastActivity() time.Time {
	if s.Status == StatusPaused && s.PausedAt != nil {
		return *s.PausedAt
	}
	return s.LastUpdatedAt
}

// CheckInvariants verifies the structural invariants that must hold before a commit.
func (s *SessionState) CheckInvariants() error {
	if len(s.AskedQuestionIDs) != s.Ability.QuestionsAnswered {
		return fmt.Errorf("session %s: %d asked questions but %d answered",
			s.ID, len(s.AskedQuestionIDs), s.Ability.QuestionsAnswered)
	}
	seen := make(map[string]struct{}, len(s.AskedQuestionIDs))
	for _, id := range s.AskedQuestionIDs {
		if _, dup := seen[id]; dup {
			return fmt.Errorf("session %s: question %q asked twice", s.ID, id)
		}
		seen[id] = struct{}{}
	}
	if s.Status == StatusInProgress && s.CurrentQuestionID == nil {
		return fmt.Errorf("session %s: in progress without an outstanding question", s.ID)
	}
	if s.Status != StatusInProgress && s.CurrentQuestionID != nil {
		return fmt.Errorf("session %s: outstanding question while %s", s.ID, s.Status)
	}
	if s.Status != StatusPaused && s.SuspendedQuestion != nil {
		return fmt.Errorf("session %s: suspended question while %s", s.ID, s.Status)
	}
	if s.CurrentQuestionID != nil && s.SuspendedQuestion != nil {
		return fmt.Errorf("session %s: both outstanding and suspended questions", s.ID)
	}
	if pending := s.pendingQuestion(); pending != "" {
		if s.OutstandingItem == nil || s.OutstandingItem.ID != pending {
			return fmt.Errorf("session %s: calibration for question %q not recorded", s.ID, pending)
		}
	} else if s.OutstandingItem != nil {
		return fmt.Errorf("session %s: calibration recorded without a pending question", s.ID)
	}
	if s.CurrentQuestionID != nil {
		if _, dup := seen[*s.CurrentQuestionID]; dup {
			return fmt.Errorf("session %s: outstanding question %q already answered", s.ID, *s.CurrentQuestionID)
		}
	}
	return nil
}

// SessionSnapshot is the logical unit of durability exchanged with clients and stores.
type SessionSnapshot struct {
	SessionID         uuid.UUID         `json:"session_id"`
	CandidateID       uuid.UUID         `json:"candidate_id"`
	Status            SessionStatus     `json:"status"`
	Ability           AbilityState      `json:"ability"`
	AskedQuestionIDs  []string          `json:"asked_question_ids"`
	CurrentQuestionID *string           `json:"current_question_id,omitempty"`
	TerminationReason TerminationReason `json:"termination_reason,omitempty"`
	Bias              BiasSummary       `json:"bias"`
	CreatedAt         time.Time         `json:"created_at"`
	StartedAt         *time.Time        `json:"started_at,omitempty"`
	EndedAt           *time.Time        `json:"ended_at,omitempty"`
	LastUpdatedAt     time.Time         `json:"last_updated_at"`
	Config            SessionConfig     `json:"config"`
	Version           int64             `json:"version"`
}

// Snapshot returns the client-facing view of the session.
func (s *SessionState) Snapshot() SessionSnapshot {
	c := s.Clone()
	return SessionSnapshot{
		SessionID:         c.ID,
		CandidateID:       c.CandidateID,
		Status:            c.Status,
		Ability:           c.Ability,
		AskedQuestionIDs:  c.AskedQuestionIDs,
		CurrentQuestionID: c.CurrentQuestionID,
		TerminationReason: c.TerminationReason,
		Bias:              c.Bias,
		CreatedAt:         c.CreatedAt,
		StartedAt:         c.StartedAt,
		EndedAt:           c.EndedAt,
		LastUpdatedAt:     c.LastUpdatedAt,
		Config:            c.Config,
		Version:           c.Version,
	}
}

// Deadline returns when the next system-triggered transition is due: inactivity
// expiry for scheduled or paused sessions, the time budget for running ones.
func (s *SessionState) Deadline() (time.Time, bool) {
	switch s.Status {
	case StatusScheduled, StatusPaused:
		if s.Config.InactivityTimeout > 0 {
			return s.LastActivity().Add(s.Config.InactivityTimeout), true
		}
	case StatusInProgress:
		if s.Config.TimeBudget > 0 && s.StartedAt != nil {
			return s.StartedAt.Add(s.Config.TimeBudget), true
		}
	}
	return time.Time{}, false
}
