package selection

import (
	"errors"
	"math"
	"sort"
	"time"

	"github.com/jonathan/interview-engine/internal/irt"
	"github.com/jonathan/interview-engine/internal/types"
)

const (
	// informationTolerance treats information values this close as equal
	informationTolerance = 1e-9
	// varianceTolerance treats discrimination variances this close as equal
	varianceTolerance = 1e-12
	// defaultMaxCompeting is how many runner-up items are kept in the audit record
	defaultMaxCompeting = 3
)

// ErrNoQuestionAvailable is returned when no item survives filtering.
// It is a normal outcome that ends the interview with POOL_EXHAUSTED.
var ErrNoQuestionAvailable = errors.New("no question available")

// Constraints narrow and order the candidate pool.
type Constraints struct {
	Band                 types.DifficultyBand
	CategoryWeights      map[string]float64
	AskedCategories      map[string]int
	PriorDiscriminations []float64
	// MaxCompeting caps the runner-ups recorded in the outcome; zero means the default.
	MaxCompeting int
	// Confidence is copied into the outcome; zero means full confidence.
	Confidence float64
}

// Selector picks the next question by maximum expected Fisher information.
type Selector struct {
	now func() time.Time
}

// NewSelector creates a selector.
func NewSelector() *Selector {
	return &Selector{now: time.Now}
}

type candidate struct {
	item        types.QuestionItem
	probability float64
	information float64
	deficit     float64
	variance    float64
}

// SelectNext scores every eligible item at the current ability and returns the best.
// It performs no I/O and does not mutate its inputs.
func (s *Selector) SelectNext(ability types.AbilityState, pool []types.QuestionItem, asked []string, c Constraints) (types.SelectionOutcome, error) {
	excluded := make(map[string]struct{}, len(asked))
	for _, id := range asked {
		excluded[id] = struct{}{}
	}

	shares := targetShares(c.CategoryWeights)
	totalAsked := 0
	for _, n := range c.AskedCategories {
		totalAsked += n
	}

	candidates := make([]candidate, 0, len(pool))
	for _, q := range pool {
		if err := q.Validate(); err != nil {
			return types.SelectionOutcome{}, &Error{Message: "malformed question in pool", Cause: err}
		}
		if _, skip := excluded[q.ID]; skip {
			continue
		}
		if !c.Band.Contains(q.Difficulty) {
			continue
		}
		// first occurrence wins when a pool repeats an id
		excluded[q.ID] = struct{}{}

		candidates = append(candidates, candidate{
			item:        q,
			probability: irt.Probability(ability.Theta, q),
			information: irt.Information(ability.Theta, q),
			deficit:     categoryDeficit(q.Category, shares, c.AskedCategories, totalAsked),
			variance:    variance(append(append([]float64(nil), c.PriorDiscriminations...), q.Discrimination)),
		})
	}

	if len(candidates) == 0 {
		return types.SelectionOutcome{}, ErrNoQuestionAvailable
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		cmp, _ := compare(candidates[i], candidates[j])
		return cmp < 0
	})

	best := candidates[0]
	reason := types.ReasonOnlyCandidate
	if len(candidates) > 1 {
		_, reason = compare(best, candidates[1])
	}

	maxCompeting := c.MaxCompeting
	if maxCompeting <= 0 {
		maxCompeting = defaultMaxCompeting
	}
	competing := make([]types.CandidateScore, 0, maxCompeting)
	for _, other := range candidates[1:min(len(candidates), maxCompeting+1)] {
		competing = append(competing, types.CandidateScore{
			QuestionID:                  other.item.ID,
			Category:                    other.item.Category,
			PredictedProbabilityCorrect: other.probability,
			ExpectedInformation:         other.information,
		})
	}

	confidence := c.Confidence
	if confidence <= 0 {
		confidence = 1
	}

	return types.SelectionOutcome{
		QuestionID:                  best.item.ID,
		Category:                    best.item.Category,
		PredictedProbabilityCorrect: best.probability,
		ExpectedInformation:         best.information,
		SelectionReason:             reason,
		CompetingCandidates:         competing,
		Confidence:                  confidence,
		ThetaAtSelection:            ability.Theta,
		SelectedAt:                  s.now(),
	}, nil
}

// compare orders x before y (negative result) by the tie-break chain and names
// the rule that decided.
func compare(x, y candidate) (int, string) {
	if d := x.information - y.information; math.Abs(d) > informationTolerance {
		if d > 0 {
			return -1, types.ReasonMaxInformation
		}
		return 1, types.ReasonMaxInformation
	}
	if d := x.deficit - y.deficit; math.Abs(d) > informationTolerance {
		if d > 0 {
			return -1, types.ReasonCategoryBalance
		}
		return 1, types.ReasonCategoryBalance
	}
	if d := x.variance - y.variance; math.Abs(d) > varianceTolerance {
		if d < 0 {
			return -1, types.ReasonDiscriminationSmoothing
		}
		return 1, types.ReasonDiscriminationSmoothing
	}
	switch {
	case x.item.ID < y.item.ID:
		return -1, types.ReasonStableOrder
	case x.item.ID > y.item.ID:
		return 1, types.ReasonStableOrder
	}
	return 0, types.ReasonStableOrder
}
