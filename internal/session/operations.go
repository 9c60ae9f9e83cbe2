package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/interview-engine/internal/bias"
	"github.com/jonathan/interview-engine/internal/notify"
	"github.com/jonathan/interview-engine/internal/store"
	"github.com/jonathan/interview-engine/internal/termination"
	"github.com/jonathan/interview-engine/internal/types"
	"go.uber.org/zap"
)

// SubmitResult reports what one accepted response did to the session.
type SubmitResult struct {
	Snapshot             types.SessionSnapshot   `json:"session"`
	PredictedProbability float64                 `json:"predicted_probability"`
	VarianceReduction    float64                 `json:"variance_reduction"`
	Diverged             bool                    `json:"estimation_diverged,omitempty"`
	Bias                 types.BiasAssessment    `json:"bias"`
	Next                 *types.SelectionOutcome `json:"next,omitempty"`
	Current              *types.QuestionView     `json:"current_question,omitempty"`
}

// Schedule creates a session in SCHEDULED.
func (e *Engine) Schedule(ctx context.Context, req types.ScheduleSessionRequest) (types.SessionSnapshot, error) {
	if err := req.Validate(); err != nil {
		return types.SessionSnapshot{}, err
	}
	candidateID, err := uuid.Parse(req.CandidateID)
	if err != nil {
		return types.SessionSnapshot{}, fmt.Errorf("invalid candidate id: %w", err)
	}
	cfg := req.Config.Apply(e.defaults)
	if err := cfg.Validate(); err != nil {
		return types.SessionSnapshot{}, err
	}

	now := e.now()
	s := &types.SessionState{
		ID:               uuid.New(),
		CandidateID:      candidateID,
		JobRole:          req.JobRole,
		Technologies:     req.Technologies,
		Status:           types.StatusScheduled,
		AskedQuestionIDs: []string{},
		AskedCategories:  map[string]int{},
		Ability:          types.NewAbilityState(cfg.InitialTheta, cfg.InitialSE),
		Config:           cfg,
		LastConfidence:   1,
		Version:          1,
		CreatedAt:        now,
		LastUpdatedAt:    now,
	}
	if err := s.CheckInvariants(); err != nil {
		return types.SessionSnapshot{}, err
	}

	created := types.AuditEntry{
		Kind: types.AuditTransition,
		Transition: &types.TransitionRecord{
			To:    types.StatusScheduled,
			Event: string(EventSchedule),
		},
		CreatedAt: now,
	}
	if err := e.store.SaveState(ctx, s, 0, created); err != nil {
		if errors.Is(err, store.ErrVersionConflict) {
			return types.SessionSnapshot{}, ErrRetryLater
		}
		return types.SessionSnapshot{}, fmt.Errorf("failed to create session: %w", err)
	}
	e.logger.Info("session scheduled",
		zap.String("session_id", s.ID.String()),
		zap.String("candidate_id", s.CandidateID.String()),
		zap.String("job_role", s.JobRole))
	e.afterCommit(ctx, s, nil)
	return s.Snapshot(), nil
}

// Start moves a scheduled session to IN_PROGRESS and serves the first
// question. An empty pool completes the session at once with POOL_EXHAUSTED.
func (e *Engine) Start(ctx context.Context, id uuid.UUID) (types.SessionSnapshot, error) {
	_, pool, err := e.poolFor(ctx, id)
	if err != nil {
		return types.SessionSnapshot{}, err
	}

	s, err := e.mutate(ctx, id, func(s *types.SessionState, now time.Time, c *change) error {
		entry, err := e.apply(s, EventStart, now, types.ReasonNone, "")
		if err != nil {
			return err
		}
		s.StartedAt = &now
		c.record(entry)
		_, err = e.advance(s, pool, now, c)
		return err
	})
	if err != nil {
		return types.SessionSnapshot{}, err
	}
	e.logger.Info("session started",
		zap.String("session_id", id.String()),
		zap.String("status", string(s.Status)),
		zap.String("question_id", s.CurrentQuestion()))
	return s.Snapshot(), nil
}

// SubmitResponse scores the answer to the outstanding question, then either
// serves the next question or completes the session. A response to anything
// but the outstanding question is rejected with *StaleResponseError and
// leaves the session untouched.
func (e *Engine) SubmitResponse(ctx context.Context, id uuid.UUID, req types.SubmitResponseRequest) (SubmitResult, error) {
	if err := req.Validate(); err != nil {
		return SubmitResult{}, err
	}
	loaded, pool, err := e.poolFor(ctx, id)
	if err != nil {
		return SubmitResult{}, err
	}
	demo := e.demographics(ctx, loaded)

	var result SubmitResult
	s, err := e.mutate(ctx, id, func(s *types.SessionState, now time.Time, c *change) error {
		result = SubmitResult{}
		if _, ok := Next(s.Status, EventSubmit); !ok {
			if s.HasAsked(req.QuestionID) {
				return &StaleResponseError{SessionID: s.ID, QuestionID: req.QuestionID, Status: s.Status}
			}
			return &InvalidStateError{SessionID: s.ID, Status: s.Status, Event: EventSubmit}
		}
		if s.CurrentQuestion() != req.QuestionID {
			view := s.OutstandingItem.View()
			return &StaleResponseError{SessionID: s.ID, QuestionID: req.QuestionID, Status: s.Status, Current: &view}
		}

		item := *s.OutstandingItem
		response := types.ResponseRecord{
			ID:                  uuid.New(),
			SessionID:           s.ID,
			QuestionID:          req.QuestionID,
			Correct:             req.Correct != nil && *req.Correct,
			PartialCredit:       req.PartialCredit,
			ResponseTimeSeconds: req.ResponseTimeSeconds,
			SubmittedAt:         now,
		}
		estimate, err := e.estimator.Update(s.Ability, item, response)
		if err != nil {
			return err
		}

		s.Ability = estimate.State
		s.AskedQuestionIDs = append(s.AskedQuestionIDs, item.ID)
		if s.AskedCategories == nil {
			s.AskedCategories = map[string]int{}
		}
		s.AskedCategories[item.Category]++
		s.Discriminations = append(s.Discriminations, item.Discrimination)
		s.CurrentQuestionID = nil
		s.OutstandingItem = nil
		c.record(types.AuditEntry{Kind: types.AuditResponse, Response: &response})

		assessment := e.monitor.Assess(bias.Input{
			Response:  response,
			Question:  item,
			Ability:   estimate.State,
			Predicted: estimate.PredictedProbability,
			Diverged:  estimate.Diverged,
		}, demo)
		s.Bias = bias.Summarize(s.Bias, assessment)
		s.LastConfidence = bias.Confidence(assessment)
		c.record(types.AuditEntry{Kind: types.AuditBias, Bias: &assessment})
		if assessment.InterventionRequired {
			a := assessment
			c.notify(notify.Event{Type: notify.EventBiasIntervention, Bias: &a})
		}

		next, err := e.advance(s, pool, now, c)
		if err != nil {
			return err
		}
		result = SubmitResult{
			PredictedProbability: estimate.PredictedProbability,
			VarianceReduction:    estimate.VarianceReduction,
			Diverged:             estimate.Diverged,
			Bias:                 assessment,
			Next:                 next,
		}
		return nil
	})
	if err != nil {
		return SubmitResult{}, err
	}

	result.Snapshot = s.Snapshot()
	if s.CurrentQuestionID != nil && s.OutstandingItem != nil {
		view := s.OutstandingItem.View()
		result.Current = &view
	}
	fields := []zap.Field{
		zap.String("session_id", id.String()),
		zap.String("question_id", req.QuestionID),
		zap.Float64("theta", s.Ability.Theta),
		zap.Float64("standard_error", s.Ability.StandardError),
	}
	if result.Diverged {
		e.logger.Warn("ability estimate diverged, prior kept", fields...)
	}
	if s.Status == types.StatusCompleted {
		e.logger.Info("session completed", append(fields, zap.String("reason", string(s.TerminationReason)))...)
	} else {
		e.logger.Debug("response accepted", fields...)
	}
	return result, nil
}

// Pause suspends a running session. The outstanding question is held aside
// and offered again on Resume.
func (e *Engine) Pause(ctx context.Context, id uuid.UUID) (types.SessionSnapshot, error) {
	s, err := e.mutate(ctx, id, func(s *types.SessionState, now time.Time, c *change) error {
		entry, err := e.apply(s, EventPause, now, types.ReasonNone, "")
		if err != nil {
			return err
		}
		s.SuspendedQuestion, s.CurrentQuestionID = s.CurrentQuestionID, nil
		s.PausedAt = &now
		c.record(entry)
		return nil
	})
	if err != nil {
		return types.SessionSnapshot{}, err
	}
	e.logger.Info("session paused", zap.String("session_id", id.String()))
	return s.Snapshot(), nil
}

// Resume continues a paused session. The held question is checked against the
// latest pool and band; if it was withdrawn, a new one is selected.
func (e *Engine) Resume(ctx context.Context, id uuid.UUID) (types.SessionSnapshot, error) {
	_, pool, err := e.poolFor(ctx, id)
	if err != nil {
		return types.SessionSnapshot{}, err
	}

	s, err := e.mutate(ctx, id, func(s *types.SessionState, now time.Time, c *change) error {
		held := ""
		if s.SuspendedQuestion != nil {
			held = *s.SuspendedQuestion
		}
		entry, err := e.apply(s, EventResume, now, types.ReasonNone, "")
		if err != nil {
			return err
		}
		s.SuspendedQuestion = nil
		s.PausedAt = nil

		if latest, ok := types.FindQuestion(pool, held); ok && latest.Validate() == nil && s.Config.DifficultyBand.Contains(latest.Difficulty) {
			s.CurrentQuestionID = &held
			s.OutstandingItem = &latest
			c.record(entry)
			return nil
		}

		entry.Transition.Note = fmt.Sprintf("question %s withdrawn, reselecting", held)
		c.record(entry)
		s.OutstandingItem = nil
		_, err = e.advance(s, pool, now, c)
		return err
	})
	if err != nil {
		return types.SessionSnapshot{}, err
	}
	e.logger.Info("session resumed",
		zap.String("session_id", id.String()),
		zap.String("status", string(s.Status)),
		zap.String("question_id", s.CurrentQuestion()))
	return s.Snapshot(), nil
}

// Cancel ends a non-terminal session. Accumulated ability and audit state is kept.
func (e *Engine) Cancel(ctx context.Context, id uuid.UUID, req types.CancelSessionRequest) (types.SessionSnapshot, error) {
	if err := req.Validate(); err != nil {
		return types.SessionSnapshot{}, err
	}
	s, err := e.mutate(ctx, id, func(s *types.SessionState, now time.Time, c *change) error {
		decision := e.policy.ShouldTerminate(s, termination.Signals{Cancelled: true, Now: now})
		entry, err := e.apply(s, EventCancel, now, decision.Reason, req.Reason)
		if err != nil {
			return err
		}
		s.CancelReason = req.Reason
		c.record(entry)
		c.notify(notify.Event{Type: notify.EventSessionCancelled, Reason: req.Reason})
		return nil
	})
	if err != nil {
		return types.SessionSnapshot{}, err
	}
	e.logger.Info("session cancelled", zap.String("session_id", id.String()), zap.String("reason", req.Reason))
	return s.Snapshot(), nil
}

// Expire ends a scheduled or paused session for inactivity.
func (e *Engine) Expire(ctx context.Context, id uuid.UUID) (types.SessionSnapshot, error) {
	s, err := e.mutate(ctx, id, e.expire(false))
	if err != nil {
		return types.SessionSnapshot{}, err
	}
	e.logger.Info("session expired", zap.String("session_id", id.String()))
	return s.Snapshot(), nil
}

// Timeout completes a running session whose time budget is spent.
func (e *Engine) Timeout(ctx context.Context, id uuid.UUID) (types.SessionSnapshot, error) {
	s, err := e.mutate(ctx, id, e.timeout(false))
	if err != nil {
		return types.SessionSnapshot{}, err
	}
	e.logger.Info("session timed out", zap.String("session_id", id.String()))
	return s.Snapshot(), nil
}

// EnforceDeadline applies the system transition that is due for the session,
// if any: expiry for scheduled or paused sessions, timeout for running ones.
// It reports whether a transition was applied.
func (e *Engine) EnforceDeadline(ctx context.Context, id uuid.UUID) (bool, error) {
	s, err := e.store.LoadState(ctx, id)
	if err != nil {
		return false, fmt.Errorf("failed to load session %s: %w", id, err)
	}

	fn := e.expire(true)
	if s.Status == types.StatusInProgress {
		fn = e.timeout(true)
	}
	_, err = e.mutate(ctx, id, fn)

	var invalid *InvalidStateError
	switch {
	case err == nil:
		e.logger.Info("session deadline enforced",
			zap.String("session_id", id.String()),
			zap.String("from", string(s.Status)))
		return true, nil
	case errors.Is(err, errNotDue), errors.As(err, &invalid):
		// another event moved the session first
		return false, nil
	default:
		return false, err
	}
}

func (e *Engine) expire(requireDue bool) transitionFunc {
	return func(s *types.SessionState, now time.Time, c *change) error {
		if requireDue && !due(s, now) {
			return errNotDue
		}
		entry, err := e.apply(s, EventExpire, now, types.ReasonNone, "inactive")
		if err != nil {
			return err
		}
		c.record(entry)
		c.notify(notify.Event{Type: notify.EventSessionExpired})
		return nil
	}
}

func (e *Engine) timeout(requireDue bool) transitionFunc {
	return func(s *types.SessionState, now time.Time, c *change) error {
		if requireDue && !due(s, now) {
			return errNotDue
		}
		decision := e.policy.ShouldTerminate(s, termination.Signals{TimedOut: true, Now: now})
		entry, err := e.apply(s, EventTimeout, now, decision.Reason, "")
		if err != nil {
			return err
		}
		c.record(entry)
		c.notify(notify.Event{Type: notify.EventSessionTerminated, Reason: string(decision.Reason)})
		return nil
	}
}

func due(s *types.SessionState, now time.Time) bool {
	deadline, ok := s.Deadline()
	return ok && !now.Before(deadline)
}
