package selection

import (
	"math"
	"testing"

	"github.com/jonathan/interview-engine/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func q(id, category string, a, b float64) types.QuestionItem {
	return types.QuestionItem{ID: id, Category: category, Discrimination: a, Difficulty: b}
}

var center = types.NewAbilityState(0, 1)

func TestSelectNext_MaximizesInformation(t *testing.T) {
	pool := []types.QuestionItem{
		q("low", "go", 1.0, 0),
		q("high", "go", 2.0, 0),
		q("far", "go", 2.0, 3),
	}

	out, err := NewSelector().SelectNext(center, pool, nil, Constraints{})
	require.NoError(t, err)
	assert.Equal(t, "high", out.QuestionID)
	assert.Equal(t, types.ReasonMaxInformation, out.SelectionReason)
	assert.InDelta(t, 0.5, out.PredictedProbabilityCorrect, 1e-12)
	assert.InDelta(t, 1.0, out.ExpectedInformation, 1e-12)
	assert.Equal(t, 1.0, out.Confidence)
	require.Len(t, out.CompetingCandidates, 2)
	assert.Equal(t, "low", out.CompetingCandidates[0].QuestionID)
}

func TestSelectNext_ExcludesAskedAndOutOfBand(t *testing.T) {
	pool := []types.QuestionItem{
		q("asked", "go", 3.0, 0),
		q("hard", "go", 3.0, 2.5),
		q("ok", "go", 1.0, 0.5),
	}
	c := Constraints{Band: types.DifficultyBand{Min: -1, Max: 1}}

	out, err := NewSelector().SelectNext(center, pool, []string{"asked"}, c)
	require.NoError(t, err)
	assert.Equal(t, "ok", out.QuestionID)
	assert.Equal(t, types.ReasonOnlyCandidate, out.SelectionReason)
	assert.Empty(t, out.CompetingCandidates)
}

func TestSelectNext_CategoryBalanceBreaksTies(t *testing.T) {
	pool := []types.QuestionItem{
		q("a-go", "go", 1.5, 0),
		q("b-sql", "sql", 1.5, 0),
	}
	c := Constraints{
		CategoryWeights: map[string]float64{"go": 1, "sql": 1},
		AskedCategories: map[string]int{"go": 2},
	}

	out, err := NewSelector().SelectNext(center, pool, nil, c)
	require.NoError(t, err)
	assert.Equal(t, "b-sql", out.QuestionID)
	assert.Equal(t, types.ReasonCategoryBalance, out.SelectionReason)
}

func TestSelectNext_DiscriminationSmoothingBreaksTies(t *testing.T) {
	// Choose b so that an a=2 item carries the same information at theta=0
	// as an a=1 item centred on theta.
	p := (1 - math.Sqrt(3)/2) / 2
	b := -math.Log(p/(1-p)) / 2

	pool := []types.QuestionItem{
		q("a-steep", "go", 2.0, b),
		q("b-flat", "go", 1.0, 0),
	}
	c := Constraints{PriorDiscriminations: []float64{1, 1}}

	out, err := NewSelector().SelectNext(center, pool, nil, c)
	require.NoError(t, err)
	assert.Equal(t, "b-flat", out.QuestionID)
	assert.Equal(t, types.ReasonDiscriminationSmoothing, out.SelectionReason)
}

func TestSelectNext_StableIDOrder(t *testing.T) {
	pool := []types.QuestionItem{q("q2", "go", 1, 0), q("q1", "go", 1, 0), q("q3", "go", 1, 0)}

	for i := 0; i < 5; i++ {
		out, err := NewSelector().SelectNext(center, pool, nil, Constraints{})
		require.NoError(t, err)
		assert.Equal(t, "q1", out.QuestionID)
		assert.Equal(t, types.ReasonStableOrder, out.SelectionReason)
		pool[0], pool[2] = pool[2], pool[0]
	}
}

func TestSelectNext_NoQuestionAvailable(t *testing.T) {
	_, err := NewSelector().SelectNext(center, nil, nil, Constraints{})
	assert.ErrorIs(t, err, ErrNoQuestionAvailable)

	pool := []types.QuestionItem{q("q1", "go", 1, 0)}
	_, err = NewSelector().SelectNext(center, pool, []string{"q1"}, Constraints{})
	assert.ErrorIs(t, err, ErrNoQuestionAvailable)
}

func TestSelectNext_MalformedItemIsFatal(t *testing.T) {
	pool := []types.QuestionItem{q("q1", "go", 1, 0), q("bad", "go", -1, 0)}

	_, err := NewSelector().SelectNext(center, pool, nil, Constraints{})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoQuestionAvailable)
	var invalid *types.InvalidQuestionError
	assert.ErrorAs(t, err, &invalid)
}

func TestSelectNext_CapsCompetingCandidates(t *testing.T) {
	pool := []types.QuestionItem{
		q("q1", "go", 1, 0), q("q2", "go", 1.1, 0), q("q3", "go", 1.2, 0),
		q("q4", "go", 1.3, 0), q("q5", "go", 1.4, 0),
	}

	out, err := NewSelector().SelectNext(center, pool, nil, Constraints{MaxCompeting: 2, Confidence: 0.7})
	require.NoError(t, err)
	assert.Equal(t, "q5", out.QuestionID)
	assert.Len(t, out.CompetingCandidates, 2)
	assert.Equal(t, 0.7, out.Confidence)
}

func TestSelectNext_DoesNotMutateInputs(t *testing.T) {
	pool := []types.QuestionItem{q("q2", "go", 1, 0), q("q1", "go", 2, 0)}
	prior := []float64{1.2}
	c := Constraints{PriorDiscriminations: prior}

	_, err := NewSelector().SelectNext(center, pool, nil, c)
	require.NoError(t, err)
	assert.Equal(t, "q2", pool[0].ID)
	assert.Equal(t, []float64{1.2}, prior)
}

func TestVariance(t *testing.T) {
	assert.Equal(t, 0.0, variance(nil))
	assert.Equal(t, 0.0, variance([]float64{3}))
	assert.InDelta(t, 0.25, variance([]float64{1, 2}), 1e-12)
}

func TestCategoryDeficit(t *testing.T) {
	shares := targetShares(map[string]float64{"go": 3, "sql": 1})
	assert.InDelta(t, 0.75, shares["go"], 1e-12)

	assert.InDelta(t, 0.75, categoryDeficit("go", shares, nil, 0), 1e-12)
	assert.InDelta(t, -0.25, categoryDeficit("go", shares, map[string]int{"go": 4}, 4), 1e-12)
	assert.Equal(t, 0.0, categoryDeficit("go", nil, nil, 0))
}
