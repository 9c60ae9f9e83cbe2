package types

import (
	"time"

	"github.com/google/uuid"
)

// ResponseRecord is the immutable record of one scored answer.
type ResponseRecord struct {
	ID                  uuid.UUID `json:"id"`
	SessionID           uuid.UUID `json:"session_id"`
	QuestionID          string    `json:"question_id"`
	Correct             bool      `json:"correct"`
	PartialCredit       *float64  `json:"partial_credit,omitempty"`
	ResponseTimeSeconds float64   `json:"response_time_seconds"`
	SubmittedAt         time.Time `json:"submitted_at"`
}

// Score returns the observed outcome in [0, 1].
func (r ResponseRecord) Score() float64 {
	if r.PartialCredit != nil {
		return *r.PartialCredit
	}
	if r.Correct {
		return 1
	}
	return 0
}
