package types

// Urgency levels for bias interventions.
const (
	UrgencyNone   = "none"
	UrgencyLow    = "low"
	UrgencyMedium = "medium"
	UrgencyHigh   = "high"
)

// Bias indicator names.
const (
	IndicatorUnexpectedResponse = "unexpected_response"
	IndicatorGroupDifferential  = "group_differential"
	IndicatorEstimationDiverged = "estimation_diverged"
	IndicatorThresholdExceeded  = "threshold_exceeded"
)

// BiasAssessment is the advisory fairness annotation for one response.
type BiasAssessment struct {
	QuestionID           string             `json:"question_id"`
	OverallBiasScore     float64            `json:"overall_bias_score"`
	Deviation            float64            `json:"deviation"`
	PerCategoryScores    map[string]float64 `json:"per_category_scores,omitempty"`
	InterventionRequired bool               `json:"intervention_required"`
	InterventionUrgency  string             `json:"intervention_urgency"`
	Indicators           []string           `json:"indicators,omitempty"`
}

// BiasSummary is the per-session roll-up of assessments.
type BiasSummary struct {
	Assessments       int                `json:"assessments"`
	MeanScore         float64            `json:"mean_score"`
	MaxScore          float64            `json:"max_score"`
	Interventions     int                `json:"interventions"`
	PerCategoryScores map[string]float64 `json:"per_category_scores,omitempty"`
}
