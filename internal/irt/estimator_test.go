package irt

import (
	"math"
	"testing"

	"github.com/jonathan/interview-engine/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func item(id string, a, b float64) types.QuestionItem {
	return types.QuestionItem{ID: id, Category: "general", Discrimination: a, Difficulty: b}
}

func answer(id string, correct bool) types.ResponseRecord {
	return types.ResponseRecord{QuestionID: id, Correct: correct}
}

func TestProbability_TwoParameter(t *testing.T) {
	q := item("q1", 1.5, 0)
	assert.InDelta(t, 0.5, Probability(0, q), 1e-12)
	assert.Greater(t, Probability(1, q), 0.5)
	assert.Less(t, Probability(-1, q), 0.5)
}

func TestProbability_GuessingAndCeiling(t *testing.T) {
	q := types.QuestionItem{ID: "q1", Discrimination: 1, Difficulty: 0, Guessing: 0.25, UpperAsymptote: 0.9}
	assert.InDelta(t, 0.25, Probability(-40, q), 1e-9)
	assert.InDelta(t, 0.9, Probability(40, q), 1e-9)
	assert.InDelta(t, 0.575, Probability(0, q), 1e-12)
}

func TestInformation_MatchesTwoParameterFormula(t *testing.T) {
	q := item("q1", 1.3, 0.4)
	for _, theta := range []float64{-2, -0.5, 0, 0.4, 1.7} {
		p := Probability(theta, q)
		assert.InDelta(t, q.Discrimination*q.Discrimination*p*(1-p), Information(theta, q), 1e-12)
	}
}

func TestInformation_GuessingReducesInformation(t *testing.T) {
	twoPL := item("q1", 1.2, 0)
	threePL := twoPL
	threePL.Guessing = 0.2
	assert.Less(t, Information(0, threePL), Information(0, twoPL))
}

func TestUpdate_CorrectAnswerAtCenter(t *testing.T) {
	prior := types.NewAbilityState(0, 1)
	q := item("q1", 1.5, 0)

	res, err := NewEstimator().Update(prior, q, answer("q1", true))
	require.NoError(t, err)

	assert.InDelta(t, 0.5, res.PredictedProbability, 1e-9)
	assert.Greater(t, res.State.Theta, 0.0)
	assert.Less(t, res.State.StandardError, 1.0)
	assert.InDelta(t, 0.48, res.State.Theta, 1e-9)
	assert.InDelta(t, 0.8, res.State.StandardError, 1e-9)
	assert.InDelta(t, 1.5625, res.State.Information, 1e-9)
	assert.Equal(t, 1, res.State.QuestionsAnswered)
	assert.InDelta(t, 1-0.64, res.VarianceReduction, 1e-9)
	assert.False(t, res.Diverged)
}

func TestUpdate_IncorrectAnswerLowersTheta(t *testing.T) {
	res, err := NewEstimator().Update(types.NewAbilityState(0, 1), item("q1", 1.5, 0), answer("q1", false))
	require.NoError(t, err)
	assert.InDelta(t, -0.48, res.State.Theta, 1e-9)
}

func TestUpdate_PartialCreditBetweenOutcomes(t *testing.T) {
	half := 0.75
	resp := types.ResponseRecord{QuestionID: "q1", PartialCredit: &half}
	res, err := NewEstimator().Update(types.NewAbilityState(0, 1), item("q1", 1.5, 0), resp)
	require.NoError(t, err)
	assert.InDelta(t, 0.24, res.State.Theta, 1e-9)
}

func TestUpdate_StandardErrorShrinksOverSession(t *testing.T) {
	est := NewEstimator()
	state := types.NewAbilityState(0, 1)
	prevSE := state.StandardError
	for i, b := range []float64{0, 0.3, -0.2, 0.5, 0.1} {
		id := string(rune('a' + i))
		res, err := est.Update(state, item(id, 1.4, b), answer(id, i%2 == 0))
		require.NoError(t, err)
		assert.Less(t, res.State.StandardError, prevSE)
		prevSE = res.State.StandardError
		state = res.State
	}
	assert.Equal(t, 5, state.QuestionsAnswered)
}

func TestUpdate_ClampsThetaAndStandardError(t *testing.T) {
	prior := types.AbilityState{Theta: 3.9, StandardError: 10, Information: 0.01}
	res, err := NewEstimator().Update(prior, item("q1", 2, 3.9), answer("q1", true))
	require.NoError(t, err)
	assert.Equal(t, types.MaxTheta, res.State.Theta)

	tight := types.AbilityState{Theta: 0, StandardError: 0.05, Information: 400}
	res, err = NewEstimator().Update(tight, item("q2", 3, 0), answer("q2", true))
	require.NoError(t, err)
	assert.Equal(t, types.MinStandardError, res.State.StandardError)
}

func TestUpdate_DivergenceKeepsPrior(t *testing.T) {
	prior := types.NewAbilityState(0, 1)
	q := item("q1", math.MaxFloat64, 0)

	res, err := NewEstimator().Update(prior, q, answer("q1", true))
	require.NoError(t, err)
	assert.True(t, res.Diverged)
	assert.Equal(t, prior.Theta, res.State.Theta)
	assert.Equal(t, prior.StandardError, res.State.StandardError)
	assert.Equal(t, prior.Information, res.State.Information)
	assert.Equal(t, 1, res.State.QuestionsAnswered)
}

func TestUpdate_RejectsMismatchedResponse(t *testing.T) {
	_, err := NewEstimator().Update(types.NewAbilityState(0, 1), item("q1", 1, 0), answer("q2", true))
	var mismatch *QuestionMismatchError
	assert.ErrorAs(t, err, &mismatch)
}

func TestUpdate_RejectsInvalidQuestion(t *testing.T) {
	_, err := NewEstimator().Update(types.NewAbilityState(0, 1), item("q1", 0, 0), answer("q1", true))
	var invalid *types.InvalidQuestionError
	assert.ErrorAs(t, err, &invalid)
}

func TestUpdate_DerivesInformationFromStandardError(t *testing.T) {
	prior := types.AbilityState{Theta: 0, StandardError: 0.5}
	res, err := NewEstimator().Update(prior, item("q1", 1, 0), answer("q1", true))
	require.NoError(t, err)
	assert.InDelta(t, 4.25, res.State.Information, 1e-9)
}

func TestEAP(t *testing.T) {
	items := []types.QuestionItem{item("a", 1.5, -1), item("b", 1.5, 0), item("c", 1.5, 1)}

	theta, se, err := EAP(items, []float64{1, 1, 1}, 0, 1)
	require.NoError(t, err)
	assert.Greater(t, theta, 0.0)
	assert.Less(t, se, 1.0)

	low, _, err := EAP(items, []float64{0, 0, 0}, 0, 1)
	require.NoError(t, err)
	assert.Less(t, low, 0.0)

	_, _, err = EAP(items, []float64{1}, 0, 1)
	assert.Error(t, err)
}
