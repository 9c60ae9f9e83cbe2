// Package irt implements the item response model and the ability estimator.
package irt

import (
	"math"

	"github.com/jonathan/interview-engine/internal/types"
)

// Probability returns the chance of a correct answer at theta under the
// four-parameter logistic model. With c=0 and d=1 this is the 2PL curve.
func Probability(theta float64, q types.QuestionItem) float64 {
	c, d := q.Guessing, q.Ceiling()
	return c + (d-c)/(1+math.Exp(-q.Discrimination*(theta-q.Difficulty)))
}

// slope returns dP/dtheta at the given probability.
func slope(p float64, q types.QuestionItem) float64 {
	c, d := q.Guessing, q.Ceiling()
	return q.Discrimination * (p - c) * (d - p) / (d - c)
}

// Information returns the Fisher information the item carries at theta.
// For the 2PL model this reduces to a²·P·(1-P).
func Information(theta float64, q types.QuestionItem) float64 {
	p := Probability(theta, q)
	pq := p * (1 - p)
	if pq <= 0 {
		return 0
	}
	s := slope(p, q)
	return s * s / pq
}

// score returns the derivative of the response log-likelihood at theta for an
// observed outcome u in [0, 1].
func score(theta, u float64, q types.QuestionItem) float64 {
	p := Probability(theta, q)
	pq := p * (1 - p)
	if pq <= 0 {
		return 0
	}
	return (u - p) * slope(p, q) / pq
}
