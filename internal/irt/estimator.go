package irt

import (
	"fmt"
	"math"

	"github.com/jonathan/interview-engine/internal/types"
)

// QuestionMismatchError is returned when a response does not answer the given question.
type QuestionMismatchError struct {
	QuestionID string
	ResponseID string
}

func (e *QuestionMismatchError) Error() string {
	return fmt.Sprintf("response answers %q, not %q", e.ResponseID, e.QuestionID)
}

// Result is the outcome of one estimator step.
type Result struct {
	State                types.AbilityState
	PredictedProbability float64
	ItemInformation      float64
	// VarianceReduction is SE²(prior) - SE²(posterior). Reporting only; selection
	// always uses expected Fisher information.
	VarianceReduction float64
	// Diverged is set when the update was not finite and the prior estimate was kept.
	Diverged bool
}

// Estimator updates ability estimates with one Fisher-scoring step per response.
// The zero value is ready to use.
type Estimator struct{}

// NewEstimator creates an estimator.
func NewEstimator() *Estimator {
	return &Estimator{}
}

// Update folds one scored response into prior and returns the new state.
// It has no side effects.
func (e *Estimator) Update(prior types.AbilityState, question types.QuestionItem, response types.ResponseRecord) (Result, error) {
	if err := question.Validate(); err != nil {
		return Result{}, err
	}
	if response.QuestionID != question.ID {
		return Result{}, &QuestionMismatchError{QuestionID: question.ID, ResponseID: response.QuestionID}
	}
	u := response.Score()
	if u < 0 || u > 1 || math.IsNaN(u) {
		return Result{}, fmt.Errorf("response score %v outside [0, 1]", u)
	}

	accumulated := priorInformation(prior)
	predicted := Probability(prior.Theta, question)
	itemInfo := Information(prior.Theta, question)
	total := accumulated + itemInfo

	theta := prior.Theta + score(prior.Theta, u, question)/total
	se := 1 / math.Sqrt(total)

	next := prior
	next.QuestionsAnswered++

	if !finite(theta, se, total, predicted) {
		next.Information = accumulated
		return Result{
			State:                next,
			PredictedProbability: predictedOrHalf(predicted),
			Diverged:             true,
		}, nil
	}

	next.Theta = types.ClampTheta(theta)
	next.StandardError = types.ClampStandardError(se)
	next.Information = total

	return Result{
		State:                next,
		PredictedProbability: predicted,
		ItemInformation:      itemInfo,
		VarianceReduction:    prior.StandardError*prior.StandardError - next.StandardError*next.StandardError,
	}, nil
}

// priorInformation recovers the accumulated information, falling back to 1/SE²
// for states built without it.
func priorInformation(prior types.AbilityState) float64 {
	if prior.Information > 0 {
		return prior.Information
	}
	if prior.StandardError > 0 {
		return 1 / (prior.StandardError * prior.StandardError)
	}
	return 1
}

func finite(values ...float64) bool {
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func predictedOrHalf(p float64) float64 {
	if math.IsNaN(p) || math.IsInf(p, 0) {
		return 0.5
	}
	return p
}
