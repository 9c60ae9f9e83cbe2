package irt

import (
	"errors"
	"math"

	"github.com/jonathan/interview-engine/internal/types"
)

const quadraturePoints = 81

// EAP computes the expected-a-posteriori ability over a full response history
// with a normal prior. It is used for end-of-interview reporting, where the
// whole history is available, and as a cross-check on the incremental estimate.
func EAP(items []types.QuestionItem, scores []float64, priorMean, priorSD float64) (theta, se float64, err error) {
	if len(items) != len(scores) {
		return 0, 0, errors.New("items and scores differ in length")
	}
	if priorSD <= 0 {
		priorSD = types.DefaultInitialSE
	}

	step := (types.MaxTheta - types.MinTheta) / float64(quadraturePoints-1)
	var norm, mean, second float64
	for i := 0; i < quadraturePoints; i++ {
		x := types.MinTheta + float64(i)*step
		z := (x - priorMean) / priorSD
		logW := -0.5 * z * z
		for j, q := range items {
			p := Probability(x, q)
			p = math.Min(math.Max(p, 1e-12), 1-1e-12)
			logW += scores[j]*math.Log(p) + (1-scores[j])*math.Log(1-p)
		}
		w := math.Exp(logW)
		norm += w
		mean += w * x
		second += w * x * x
	}
	if norm == 0 || !finite(norm, mean, second) {
		return priorMean, priorSD, errors.New("posterior underflow")
	}
	theta = mean / norm
	variance := second/norm - theta*theta
	return types.ClampTheta(theta), types.ClampStandardError(math.Sqrt(math.Max(variance, 0))), nil
}
