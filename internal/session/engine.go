// Package session runs the interview lifecycle: it is the single writer of
// session state and drives estimation, bias monitoring, termination and
// selection for every accepted event.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/interview-engine/internal/bias"
	"github.com/jonathan/interview-engine/internal/irt"
	"github.com/jonathan/interview-engine/internal/notify"
	"github.com/jonathan/interview-engine/internal/questionbank"
	"github.com/jonathan/interview-engine/internal/selection"
	"github.com/jonathan/interview-engine/internal/store"
	"github.com/jonathan/interview-engine/internal/termination"
	"github.com/jonathan/interview-engine/internal/types"
	"go.uber.org/zap"
)

const (
	// DefaultMaxCommitAttempts bounds transparent retries on version conflicts.
	DefaultMaxCommitAttempts = 3
	// deadlineCallTimeout bounds one timer-triggered transition.
	deadlineCallTimeout = 30 * time.Second
)

// DemographicSource supplies optional group context for bias assessment.
// Returning nil, nil is valid and yields a neutral demographic component.
type DemographicSource interface {
	Demographics(ctx context.Context, candidateID uuid.UUID) (*bias.DemographicContext, error)
}

// Options configures an Engine. Zero values fall back to defaults.
type Options struct {
	Defaults          types.SessionConfig
	MaxCommitAttempts int

	// Retention keeps terminal sessions readable for this long; zero keeps them forever.
	Retention    time.Duration
	Bias         bias.Config
	Publisher    notify.Publisher
	Demographics DemographicSource
	Logger       *zap.Logger

	// DisableTimers leaves deadline enforcement to the Sweeper alone.
	DisableTimers bool
	Clock         func() time.Time
}

// DefaultSessionConfig is used for fields a schedule request leaves unset.
func DefaultSessionConfig() types.SessionConfig {
	return types.SessionConfig{
		MinQuestions:       5,
		MaxQuestions:       20,
		PrecisionThreshold: 0.3,
		InitialTheta:       types.DefaultInitialTheta,
		InitialSE:          types.DefaultInitialSE,
		InactivityTimeout:  72 * time.Hour,
	}
}

// Engine owns every session mutation.
type Engine struct {
	store     store.Store
	bank      questionbank.Bank
	estimator *irt.Estimator
	selector  *selection.Selector
	policy    *termination.Policy
	monitor   *bias.Monitor
	publisher notify.Publisher
	demo      DemographicSource
	logger    *zap.Logger
	locks     *KeyedMutex
	timers    *Timers

	defaults    types.SessionConfig
	maxAttempts int
	retention   time.Duration
	now         func() time.Time
}

// New creates an engine over st and bank.
func New(st store.Store, bank questionbank.Bank, opts Options) (*Engine, error) {
	if st == nil {
		return nil, errors.New("session engine requires a store")
	}
	if bank == nil {
		return nil, errors.New("session engine requires a question bank")
	}

	defaults := opts.Defaults
	if defaults.MaxQuestions == 0 {
		defaults = DefaultSessionConfig()
	}
	if err := defaults.Validate(); err != nil {
		return nil, fmt.Errorf("invalid default session config: %w", err)
	}
	biasCfg := opts.Bias
	if biasCfg == (bias.Config{}) {
		biasCfg = bias.DefaultConfig()
	}
	if err := biasCfg.Validate(); err != nil {
		return nil, err
	}

	e := &Engine{
		store:       st,
		bank:        bank,
		estimator:   irt.NewEstimator(),
		selector:    selection.NewSelector(),
		policy:      termination.NewPolicy(),
		monitor:     bias.NewMonitor(biasCfg),
		publisher:   opts.Publisher,
		demo:        opts.Demographics,
		logger:      opts.Logger,
		locks:       NewKeyedMutex(),
		defaults:    defaults,
		maxAttempts: opts.MaxCommitAttempts,
		retention:   opts.Retention,
		now:         opts.Clock,
	}
	if e.publisher == nil {
		e.publisher = notify.Discard
	}
	if e.logger == nil {
		e.logger = zap.NewNop()
	}
	e.logger = e.logger.Named("session")
	if e.maxAttempts <= 0 {
		e.maxAttempts = DefaultMaxCommitAttempts
	}
	if e.now == nil {
		e.now = time.Now
	}
	if !opts.DisableTimers {
		e.timers = NewTimers()
	}
	return e, nil
}

// Close stops deadline timers and waits for running callbacks.
func (e *Engine) Close() {
	if e.timers != nil {
		e.timers.Stop()
	}
}

// change is the outcome of a pure transition over a session copy.
type change struct {
	audit  []types.AuditEntry
	events []notify.Event
}

func (c *change) record(entry types.AuditEntry) {
	c.audit = append(c.audit, entry)
}

func (c *change) notify(e notify.Event) {
	c.events = append(c.events, e)
}

type transitionFunc func(s *types.SessionState, now time.Time, c *change) error

// mutate runs fn over a fresh copy of the session under the session lock and
// commits the result with the loaded version. A failed commit leaves nothing
// applied; version conflicts reload and rerun fn.
func (e *Engine) mutate(ctx context.Context, id uuid.UUID, fn transitionFunc) (*types.SessionState, error) {
	unlock, err := e.locks.Lock(ctx, id)
	if err != nil {
		return nil, err
	}
	defer unlock()

	for attempt := 1; attempt <= e.maxAttempts; attempt++ {
		current, err := e.store.LoadState(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("failed to load session %s: %w", id, err)
		}

		next := current.Clone()
		now := e.now()
		var c change
		if err := fn(next, now, &c); err != nil {
			return nil, err
		}
		next.Version = current.Version + 1
		next.LastUpdatedAt = now
		if err := next.CheckInvariants(); err != nil {
			return nil, err
		}
		for i := range c.audit {
			if c.audit[i].CreatedAt.IsZero() {
				c.audit[i].CreatedAt = now
			}
		}

		err = e.store.SaveState(ctx, next, current.Version, c.audit...)
		if errors.Is(err, store.ErrVersionConflict) {
			e.logger.Debug("version conflict, retrying",
				zap.String("session_id", id.String()),
				zap.Int("attempt", attempt))
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to save session %s: %w", id, err)
		}

		e.afterCommit(ctx, next, c.events)
		return next, nil
	}

	e.logger.Warn("giving up after repeated version conflicts",
		zap.String("session_id", id.String()),
		zap.Int("attempts", e.maxAttempts))
	return nil, ErrRetryLater
}

// afterCommit runs the side effects of an applied transition. None of them
// can fail the transition.
func (e *Engine) afterCommit(ctx context.Context, s *types.SessionState, events []notify.Event) {
	for _, ev := range events {
		if ev.ID == uuid.Nil {
			ev.ID = uuid.New()
		}
		if s.Status.IsTerminal() {
			snap := s.Snapshot()
			ev.Snapshot = &snap
		}
		ev.SessionID = s.ID
		ev.CandidateID = s.CandidateID
		ev.Status = s.Status
		if ev.OccurredAt.IsZero() {
			ev.OccurredAt = s.LastUpdatedAt
		}
		e.publisher.Publish(ev)
	}

	if s.Status.IsTerminal() && e.retention > 0 {
		if err := e.store.ExpireAfter(ctx, s.ID, e.retention); err != nil {
			e.logger.Warn("failed to set session retention",
				zap.String("session_id", s.ID.String()), zap.Error(err))
		}
	}
	e.rearm(s)
}

// rearm schedules the next system-triggered transition for s.
func (e *Engine) rearm(s *types.SessionState) {
	if e.timers == nil {
		return
	}
	deadline, ok := s.Deadline()
	if !ok {
		e.timers.Disarm(s.ID)
		return
	}
	id := s.ID
	e.timers.Arm(id, deadline.Sub(e.now()), func() {
		ctx, cancel := context.WithTimeout(context.Background(), deadlineCallTimeout)
		defer cancel()
		if _, err := e.EnforceDeadline(ctx, id); err != nil {
			e.logger.Warn("deadline enforcement failed",
				zap.String("session_id", id.String()), zap.Error(err))
		}
	})
}

// apply moves s along event, returning the audit record of the move.
func (e *Engine) apply(s *types.SessionState, event Event, now time.Time, reason types.TerminationReason, note string) (types.AuditEntry, error) {
	to, ok := Next(s.Status, event)
	if !ok {
		return types.AuditEntry{}, &InvalidStateError{SessionID: s.ID, Status: s.Status, Event: event}
	}
	from := s.Status
	s.Status = to
	if to.IsTerminal() {
		s.CurrentQuestionID = nil
		s.SuspendedQuestion = nil
		s.OutstandingItem = nil
		s.TerminationReason = reason
		s.EndedAt = &now
	}
	return types.AuditEntry{
		Kind: types.AuditTransition,
		Transition: &types.TransitionRecord{
			From:   from,
			To:     to,
			Event:  string(event),
			Reason: reason,
			Note:   note,
		},
		CreatedAt: now,
	}, nil
}

// advance either serves the next question or completes the session.
// It runs inside the critical section and performs no I/O.
func (e *Engine) advance(s *types.SessionState, pool []types.QuestionItem, now time.Time, c *change) (*types.SelectionOutcome, error) {
	decision := e.policy.ShouldTerminate(s, termination.Signals{Now: now})
	if !decision.Terminate {
		outcome, err := e.selector.SelectNext(s.Ability, pool, s.AskedQuestionIDs, selection.Constraints{
			Band:                 s.Config.DifficultyBand,
			CategoryWeights:      s.Config.CategoryWeights,
			AskedCategories:      s.AskedCategories,
			PriorDiscriminations: s.Discriminations,
			Confidence:           s.LastConfidence,
		})
		switch {
		case errors.Is(err, selection.ErrNoQuestionAvailable):
			decision = e.policy.ShouldTerminate(s, termination.Signals{Now: now, PoolExhausted: true})
		case err != nil:
			return nil, err
		default:
			item, _ := types.FindQuestion(pool, outcome.QuestionID)
			outcome.SelectedAt = now
			id := item.ID
			s.CurrentQuestionID = &id
			s.OutstandingItem = &item
			c.record(types.AuditEntry{Kind: types.AuditSelection, Selection: &outcome})
			return &outcome, nil
		}
	}

	entry, err := e.apply(s, EventComplete, now, decision.Reason, "")
	if err != nil {
		return nil, err
	}
	c.record(entry)
	c.notify(notify.Event{Type: notify.EventSessionTerminated, Reason: string(decision.Reason)})
	return nil, nil
}

// poolFor loads the session unlocked and fetches its candidate pool. Both
// happen outside the critical section; the pool is an input to the transition.
func (e *Engine) poolFor(ctx context.Context, id uuid.UUID) (*types.SessionState, []types.QuestionItem, error) {
	s, err := e.store.LoadState(ctx, id)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load session %s: %w", id, err)
	}
	if s.Status.IsTerminal() {
		return s, nil, nil
	}
	pool, err := e.bank.FetchPool(ctx, types.PoolQuery{
		JobRole:      s.JobRole,
		Technologies: s.Technologies,
		Band:         s.Config.DifficultyBand,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to fetch question pool for session %s: %w", id, err)
	}
	return s, pool, nil
}

func (e *Engine) demographics(ctx context.Context, s *types.SessionState) *bias.DemographicContext {
	if e.demo == nil {
		return nil
	}
	demo, err := e.demo.Demographics(ctx, s.CandidateID)
	if err != nil {
		e.logger.Warn("demographic context unavailable, assessing without it",
			zap.String("session_id", s.ID.String()), zap.Error(err))
		return nil
	}
	return demo
}
