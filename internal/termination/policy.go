// Package termination decides when an adaptive interview should stop.
package termination

import (
	"time"

	"github.com/jonathan/interview-engine/internal/types"
)

// Signals are the external inputs to a termination decision.
type Signals struct {
	// PoolExhausted is set when the selector found no eligible question.
	PoolExhausted bool
	// TimedOut is set by the time-budget timer.
	TimedOut bool
	// Cancelled is set when a caller aborted the interview.
	Cancelled bool
	// Now is the decision time; zero means time.Now.
	Now time.Time
}

// Decision is the outcome of ShouldTerminate.
type Decision struct {
	Terminate bool
	Reason    types.TerminationReason
}

// Continue is the decision to keep asking questions.
var Continue = Decision{}

func stop(reason types.TerminationReason) Decision {
	return Decision{Terminate: true, Reason: reason}
}

// Policy evaluates the stopping rules in a fixed precedence order:
// cancellation, time budget, question cap, precision, pool exhaustion.
type Policy struct{}

// NewPolicy creates a termination policy.
func NewPolicy() *Policy {
	return &Policy{}
}

// ShouldTerminate reports whether the session must stop and why.
func (p *Policy) ShouldTerminate(session *types.SessionState, sig Signals) Decision {
	if sig.Cancelled {
		return stop(types.ReasonCancelled)
	}
	if sig.TimedOut || p.budgetSpent(session, sig.Now) {
		return stop(types.ReasonTimedOut)
	}

	cfg := session.Config
	answered := session.Ability.QuestionsAnswered
	if answered >= cfg.MaxQuestions {
		return stop(types.ReasonMaxQuestionsReached)
	}
	if answered >= cfg.MinQuestions && session.Ability.StandardError <= cfg.PrecisionThreshold {
		return stop(types.ReasonPrecisionReached)
	}
	if sig.PoolExhausted {
		return stop(types.ReasonPoolExhausted)
	}
	return Continue
}

func (p *Policy) budgetSpent(session *types.SessionState, now time.Time) bool {
	if session.Config.TimeBudget <= 0 || session.StartedAt == nil {
		return false
	}
	if now.IsZero() {
		now = time.Now()
	}
	return now.Sub(*session.StartedAt) >= session.Config.TimeBudget
}
