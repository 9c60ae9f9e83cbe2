// Package types provides the value types exchanged between the interview engine components.
package types

import "math"

// Ability bounds shared by the estimator and the session defaults.
const (
	MinTheta            = -4.0
	MaxTheta            = 4.0
	MinStandardError    = 0.05
	DefaultInitialSE    = 1.0
	DefaultInitialTheta = 0.0
)

// AbilityState is a candidate's latent trait estimate and its uncertainty.
// Information is the accumulated Fisher information, prior included, so the
// estimator can stay a pure function of (prior, question, response).
type AbilityState struct {
	Theta             float64 `json:"theta"`
	StandardError     float64 `json:"standard_error"`
	QuestionsAnswered int     `json:"questions_answered"`
	Information       float64 `json:"information"`
}

// NewAbilityState returns the starting estimate for a session.
func NewAbilityState(theta, standardError float64) AbilityState {
	if standardError <= 0 {
		standardError = DefaultInitialSE
	}
	return AbilityState{
		Theta:         ClampTheta(theta),
		StandardError: standardError,
		Information:   1 / (standardError * standardError),
	}
}

// ClampTheta restricts theta to [MinTheta, MaxTheta].
func ClampTheta(theta float64) float64 {
	return math.Max(MinTheta, math.Min(MaxTheta, theta))
}

// ClampStandardError applies the lower bound on reported uncertainty.
func ClampStandardError(se float64) float64 {
	return math.Max(MinStandardError, se)
}
