package types

import (
	"time"

	"github.com/go-playground/validator/v10"
)

// ScheduleSessionRequest represents the request to schedule a new interview session.
type ScheduleSessionRequest struct {
	CandidateID  string                  `json:"candidate_id" validate:"required,uuid"`
	JobRole      string                  `json:"job_role" validate:"required,min=1,max=200"`
	Technologies []string                `json:"technologies,omitempty" validate:"max=50,dive,min=1"`
	Config       *SessionConfigOverrides `json:"config,omitempty"`
}

// SessionConfigOverrides carries optional per-session overrides of the engine defaults.
type SessionConfigOverrides struct {
	MinQuestions       *int               `json:"min_questions,omitempty" validate:"omitempty,gte=1"`
	MaxQuestions       *int               `json:"max_questions,omitempty" validate:"omitempty,gte=1,lte=500"`
	PrecisionThreshold *float64           `json:"precision_threshold,omitempty" validate:"omitempty,gt=0,lte=4"`
	DifficultyBand     *DifficultyBand    `json:"difficulty_band,omitempty"`
	CategoryWeights    map[string]float64 `json:"category_weights,omitempty" validate:"omitempty,dive,gte=0"`
	TimeBudgetSeconds  *int               `json:"time_budget_seconds,omitempty" validate:"omitempty,gte=0"`
}

// Apply returns base with every non-nil override applied.
func (o *SessionConfigOverrides) Apply(base SessionConfig) SessionConfig {
	if o == nil {
		return base
	}
	if o.MinQuestions != nil {
		base.MinQuestions = *o.MinQuestions
	}
	if o.MaxQuestions != nil {
		base.MaxQuestions = *o.MaxQuestions
	}
	if o.PrecisionThreshold != nil {
		base.PrecisionThreshold = *o.PrecisionThreshold
	}
	if o.DifficultyBand != nil {
		base.DifficultyBand = *o.DifficultyBand
	}
	if o.CategoryWeights != nil {
		base.CategoryWeights = o.CategoryWeights
	}
	if o.TimeBudgetSeconds != nil {
		base.TimeBudget = time.Duration(*o.TimeBudgetSeconds) * time.Second
	}
	return base
}

// SubmitResponseRequest represents a candidate's answer to the outstanding question.
type SubmitResponseRequest struct {
	QuestionID          string   `json:"question_id" validate:"required"`
	Correct             *bool    `json:"correct,omitempty" validate:"required_without=PartialCredit"`
	PartialCredit       *float64 `json:"partial_credit,omitempty" validate:"omitempty,gte=0,lte=1"`
	ResponseTimeSeconds float64  `json:"response_time_seconds" validate:"gte=0"`
}

// CancelSessionRequest represents a cancellation with an optional reason.
type CancelSessionRequest struct {
	Reason string `json:"reason,omitempty" validate:"max=500"`
}

// Validate validates the ScheduleSessionRequest using the validator.
func (r *ScheduleSessionRequest) Validate() error {
	validate := validator.New()
	return validate.Struct(r)
}

// Validate validates the SubmitResponseRequest using the validator.
func (r *SubmitResponseRequest) Validate() error {
	validate := validator.New()
	return validate.Struct(r)
}

// Validate validates the CancelSessionRequest using the validator.
func (r *CancelSessionRequest) Validate() error {
	validate := validator.New()
	return validate.Struct(r)
}

// Validate validates the merged session configuration.
func (c SessionConfig) Validate() error {
	validate := validator.New()
	return validate.Struct(c)
}
