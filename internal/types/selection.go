package types

import "time"

// Selection reasons name the rule that separated the winner from the runner-up.
const (
	ReasonMaxInformation          = "max_information"
	ReasonCategoryBalance         = "category_balance"
	ReasonDiscriminationSmoothing = "discrimination_smoothing"
	ReasonStableOrder             = "stable_order"
	ReasonOnlyCandidate           = "only_candidate"
)

// CandidateScore is one scored item considered during selection.
type CandidateScore struct {
	QuestionID                  string  `json:"question_id"`
	Category                    string  `json:"category"`
	PredictedProbabilityCorrect float64 `json:"predicted_probability_correct"`
	ExpectedInformation         float64 `json:"expected_information"`
}

// SelectionOutcome is the audit record of one selection decision.
type SelectionOutcome struct {
	QuestionID                  string           `json:"question_id"`
	Category                    string           `json:"category"`
	PredictedProbabilityCorrect float64          `json:"predicted_probability_correct"`
	ExpectedInformation         float64          `json:"expected_information"`
	SelectionReason             string           `json:"selection_reason"`
	CompetingCandidates         []CandidateScore `json:"competing_candidates,omitempty"`
	Confidence                  float64          `json:"confidence"`
	ThetaAtSelection            float64          `json:"theta_at_selection"`
	SelectedAt                  time.Time        `json:"selected_at"`
}
