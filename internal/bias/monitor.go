// Package bias annotates scored responses with advisory fairness indicators.
// Assessments never change estimation or selection; they only flag sessions
// for human review.
package bias

import (
	"fmt"
	"math"

	"github.com/jonathan/interview-engine/internal/types"
)

// Config holds the monitor thresholds and weights.
type Config struct {
	// Threshold on the overall score above which an intervention is required.
	Threshold float64 `mapstructure:"threshold"`
	// DeviationThreshold on |predicted - actual| marking an unexpected response.
	DeviationThreshold float64 `mapstructure:"deviation-threshold"`
	DeviationWeight    float64 `mapstructure:"deviation-weight"`
	DemographicWeight  float64 `mapstructure:"demographic-weight"`
}

// DefaultConfig returns the default monitor configuration.
func DefaultConfig() Config {
	return Config{
		Threshold:          0.5,
		DeviationThreshold: 0.5,
		DeviationWeight:    0.5,
		DemographicWeight:  0.5,
	}
}

// Validate checks that thresholds and weights are in range.
func (c Config) Validate() error {
	for name, v := range map[string]float64{
		"threshold":           c.Threshold,
		"deviation-threshold": c.DeviationThreshold,
		"deviation-weight":    c.DeviationWeight,
		"demographic-weight":  c.DemographicWeight,
	} {
		if v < 0 || v > 1 || math.IsNaN(v) {
			return fmt.Errorf("bias %s must be in [0, 1], got %v", name, v)
		}
	}
	return nil
}

// DemographicContext carries per-category correct rates for the candidate's
// group and for the reference population.
type DemographicContext struct {
	Group          string             `json:"group"`
	GroupRates     map[string]float64 `json:"group_rates"`
	ReferenceRates map[string]float64 `json:"reference_rates"`
}

// Input is everything the monitor looks at for one response.
type Input struct {
	Response  types.ResponseRecord
	Question  types.QuestionItem
	Ability   types.AbilityState
	Predicted float64
	Diverged  bool
}

// Monitor computes bias assessments.
type Monitor struct {
	cfg Config
}

// NewMonitor creates a monitor with cfg.
func NewMonitor(cfg Config) *Monitor {
	return &Monitor{cfg: cfg}
}

// Assess scores one response. A nil context yields a neutral demographic component.
func (m *Monitor) Assess(in Input, demo *DemographicContext) types.BiasAssessment {
	deviation := math.Abs(in.Predicted - in.Response.Score())
	if math.IsNaN(deviation) {
		deviation = 0
	}

	var indicators []string
	perCategory := differentials(demo)
	demographic := perCategory[in.Question.Category]
	if demographic > 0 {
		indicators = append(indicators, types.IndicatorGroupDifferential)
	}

	overall := clamp01(m.cfg.DeviationWeight*deviation + m.cfg.DemographicWeight*demographic)

	intervention := false
	if deviation > m.cfg.DeviationThreshold {
		intervention = true
		indicators = append(indicators, types.IndicatorUnexpectedResponse)
	}
	if overall > m.cfg.Threshold {
		intervention = true
		indicators = append(indicators, types.IndicatorThresholdExceeded)
	}
	if in.Diverged {
		intervention = true
		indicators = append(indicators, types.IndicatorEstimationDiverged)
	}

	return types.BiasAssessment{
		QuestionID:           in.Question.ID,
		OverallBiasScore:     overall,
		Deviation:            deviation,
		PerCategoryScores:    perCategory,
		InterventionRequired: intervention,
		InterventionUrgency:  m.urgency(overall, intervention, in.Diverged),
		Indicators:           indicators,
	}
}

func (m *Monitor) urgency(overall float64, intervention, diverged bool) string {
	switch {
	case diverged || overall >= 0.8:
		return types.UrgencyHigh
	case intervention:
		return types.UrgencyMedium
	case overall > m.cfg.Threshold/2:
		return types.UrgencyLow
	default:
		return types.UrgencyNone
	}
}

// differentials returns |group - reference| for every category present in both maps.
func differentials(demo *DemographicContext) map[string]float64 {
	if demo == nil {
		return nil
	}
	out := make(map[string]float64)
	for cat, g := range demo.GroupRates {
		r, ok := demo.ReferenceRates[cat]
		if !ok {
			continue
		}
		out[cat] = clamp01(math.Abs(g - r))
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// Confidence maps an assessment to the selector confidence for the next decision.
func Confidence(a types.BiasAssessment) float64 {
	return clamp01(1 - a.OverallBiasScore)
}

// Summarize folds one assessment into a session roll-up.
func Summarize(prev types.BiasSummary, a types.BiasAssessment) types.BiasSummary {
	next := prev
	next.Assessments++
	next.MeanScore = prev.MeanScore + (a.OverallBiasScore-prev.MeanScore)/float64(next.Assessments)
	next.MaxScore = math.Max(prev.MaxScore, a.OverallBiasScore)
	if a.InterventionRequired {
		next.Interventions++
	}
	if len(a.PerCategoryScores) > 0 {
		merged := make(map[string]float64, len(prev.PerCategoryScores)+len(a.PerCategoryScores))
		for k, v := range prev.PerCategoryScores {
			merged[k] = v
		}
		for k, v := range a.PerCategoryScores {
			merged[k] = math.Max(merged[k], v)
		}
		next.PerCategoryScores = merged
	}
	return next
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
