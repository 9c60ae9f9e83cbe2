package types

import (
	"fmt"
	"math"
	"strings"
)

// QuestionItem holds the immutable calibration data for one question.
// UpperAsymptote of zero is read as 1 (no ceiling).
type QuestionItem struct {
	ID                      string   `json:"id" yaml:"id"`
	Category                string   `json:"category" yaml:"category"`
	Difficulty              float64  `json:"difficulty" yaml:"difficulty"`
	Discrimination          float64  `json:"discrimination" yaml:"discrimination"`
	Guessing                float64  `json:"guessing,omitempty" yaml:"guessing,omitempty"`
	UpperAsymptote          float64  `json:"upper_asymptote,omitempty" yaml:"upper_asymptote,omitempty"`
	ExpectedDurationSeconds int      `json:"expected_duration_seconds,omitempty" yaml:"expected_duration_seconds,omitempty"`
	JobRoles                []string `json:"job_roles,omitempty" yaml:"job_roles,omitempty"`
	Technologies            []string `json:"technologies,omitempty" yaml:"technologies,omitempty"`
}

// InvalidQuestionError reports malformed calibration parameters.
type InvalidQuestionError struct {
	QuestionID string
	Reason     string
}

func (e *InvalidQuestionError) Error() string {
	return fmt.Sprintf("invalid question %q: %s", e.QuestionID, e.Reason)
}

// Ceiling returns the effective upper asymptote d.
func (q QuestionItem) Ceiling() float64 {
	if q.UpperAsymptote == 0 {
		return 1
	}
	return q.UpperAsymptote
}

// Validate checks the calibration parameters.
func (q QuestionItem) Validate() error {
	switch {
	case q.ID == "":
		return &InvalidQuestionError{Reason: "id is required"}
	case !(q.Discrimination > 0) || math.IsInf(q.Discrimination, 0):
		return &InvalidQuestionError{QuestionID: q.ID, Reason: "discrimination must be positive and finite"}
	case math.IsNaN(q.Difficulty) || math.IsInf(q.Difficulty, 0):
		return &InvalidQuestionError{QuestionID: q.ID, Reason: "difficulty must be finite"}
	case !(q.Guessing >= 0 && q.Guessing < 1):
		return &InvalidQuestionError{QuestionID: q.ID, Reason: "guessing must be in [0, 1)"}
	case !(q.Ceiling() <= 1 && q.Ceiling() > q.Guessing):
		return &InvalidQuestionError{QuestionID: q.ID, Reason: "upper asymptote must be in (guessing, 1]"}
	case q.ExpectedDurationSeconds < 0:
		return &InvalidQuestionError{QuestionID: q.ID, Reason: "expected duration must be non-negative"}
	}
	return nil
}

// DifficultyBand is an inclusive range on the difficulty parameter.
// The zero value admits every item, so a band pinned at exactly 0 is not
// expressible; use a small width such as [-0.05, 0.05] instead.
type DifficultyBand struct {
	Min float64 `json:"min" mapstructure:"min"`
	Max float64 `json:"max" mapstructure:"max" validate:"gtefield=Min"`
}

// IsZero reports whether the band is unset.
func (b DifficultyBand) IsZero() bool {
	return b.Min == 0 && b.Max == 0
}

// Contains reports whether difficulty falls inside the band.
func (b DifficultyBand) Contains(difficulty float64) bool {
	if b.IsZero() {
		return true
	}
	return difficulty >= b.Min && difficulty <= b.Max
}

// FindQuestion returns the item with the given id from pool.
func FindQuestion(pool []QuestionItem, id string) (QuestionItem, bool) {
	for _, q := range pool {
		if q.ID == id {
			return q, true
		}
	}
	return QuestionItem{}, false
}

// PoolQuery selects the calibrated items eligible for a session.
type PoolQuery struct {
	JobRole      string
	Technologies []string
	Band         DifficultyBand
}

// Matches reports whether q is eligible for the query. Items without role or
// technology tags are general-purpose and match any role or stack.
func (pq PoolQuery) Matches(q QuestionItem) bool {
	if !pq.Band.Contains(q.Difficulty) {
		return false
	}
	if pq.JobRole != "" && len(q.JobRoles) > 0 && !containsFold(q.JobRoles, pq.JobRole) {
		return false
	}
	if len(pq.Technologies) == 0 || len(q.Technologies) == 0 {
		return true
	}
	for _, tech := range pq.Technologies {
		if containsFold(q.Technologies, tech) {
			return true
		}
	}
	return false
}

func containsFold(values []string, want string) bool {
	for _, v := range values {
		if strings.EqualFold(strings.TrimSpace(v), strings.TrimSpace(want)) {
			return true
		}
	}
	return false
}

// QuestionView is the candidate-facing part of a question. Calibration
// parameters are never exposed.
type QuestionView struct {
	ID                      string `json:"id"`
	Category                string `json:"category"`
	ExpectedDurationSeconds int    `json:"expected_duration_seconds,omitempty"`
}

// View returns the candidate-facing projection of q.
func (q QuestionItem) View() QuestionView {
	return QuestionView{ID: q.ID, Category: q.Category, ExpectedDurationSeconds: q.ExpectedDurationSeconds}
}
