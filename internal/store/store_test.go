package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/interview-engine/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)

func newSession(version int64) *types.SessionState {
	return &types.SessionState{
		ID:               uuid.New(),
		CandidateID:      uuid.New(),
		JobRole:          "backend engineer",
		Status:           types.StatusScheduled,
		AskedQuestionIDs: []string{},
		Ability:          types.NewAbilityState(0, 1),
		Config: types.SessionConfig{
			MinQuestions:       1,
			MaxQuestions:       5,
			PrecisionThreshold: 0.3,
			InactivityTimeout:  time.Minute,
		},
		Version:       version,
		CreatedAt:     t0,
		LastUpdatedAt: t0,
	}
}

func transition(id uuid.UUID) types.AuditEntry {
	return types.AuditEntry{
		ID:         uuid.New(),
		Kind:       types.AuditTransition,
		Transition: &types.TransitionRecord{From: types.StatusScheduled, To: types.StatusInProgress, Event: "start"},
		CreatedAt:  t0,
	}
}

type storeFactory func(t *testing.T) Store

func factories() map[string]storeFactory {
	return map[string]storeFactory{
		"memory": func(t *testing.T) Store { return NewMemory() },
		"sqlite": func(t *testing.T) Store {
			s, err := OpenSQLite(context.Background(), ":memory:")
			require.NoError(t, err)
			t.Cleanup(func() { _ = s.Close() })
			return s
		},
	}
}

func TestStore_CreateAndLoad(t *testing.T) {
	for name, factory := range factories() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := factory(t)
			state := newSession(1)

			require.NoError(t, s.SaveState(ctx, state, 0, transition(state.ID)))

			loaded, err := s.LoadState(ctx, state.ID)
			require.NoError(t, err)
			assert.Equal(t, state.ID, loaded.ID)
			assert.Equal(t, state.CandidateID, loaded.CandidateID)
			assert.Equal(t, types.StatusScheduled, loaded.Status)
			assert.Equal(t, int64(1), loaded.Version)
			assert.Equal(t, state.Ability, loaded.Ability)
			assert.Equal(t, state.Config, loaded.Config)
			assert.True(t, state.CreatedAt.Equal(loaded.CreatedAt))

			loaded.JobRole = "mutated"
			again, err := s.LoadState(ctx, state.ID)
			require.NoError(t, err)
			assert.Equal(t, "backend engineer", again.JobRole)
		})
	}
}

func TestStore_CreateTwiceConflicts(t *testing.T) {
	for name, factory := range factories() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := factory(t)
			state := newSession(1)

			require.NoError(t, s.SaveState(ctx, state, 0))
			assert.ErrorIs(t, s.SaveState(ctx, state, 0), ErrVersionConflict)
		})
	}
}

func TestStore_OptimisticUpdate(t *testing.T) {
	for name, factory := range factories() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := factory(t)
			state := newSession(1)
			require.NoError(t, s.SaveState(ctx, state, 0, transition(state.ID)))

			next := state.Clone()
			next.Status = types.StatusCancelled
			next.Version = 2
			require.NoError(t, s.SaveState(ctx, next, 1, transition(state.ID)))

			stale := state.Clone()
			stale.Status = types.StatusPaused
			stale.Version = 2
			assert.ErrorIs(t, s.SaveState(ctx, stale, 1, transition(state.ID)), ErrVersionConflict)

			loaded, err := s.LoadState(ctx, state.ID)
			require.NoError(t, err)
			assert.Equal(t, types.StatusCancelled, loaded.Status)
			assert.Equal(t, int64(2), loaded.Version)

			audit, err := s.ListAudit(ctx, state.ID)
			require.NoError(t, err)
			require.Len(t, audit, 2, "rejected save must not append audit")
			assert.Equal(t, int64(1), audit[0].Sequence)
			assert.Equal(t, int64(2), audit[1].Sequence)
			assert.Equal(t, state.ID, audit[1].SessionID)
		})
	}
}

func TestStore_NotFound(t *testing.T) {
	for name, factory := range factories() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := factory(t)

			_, err := s.LoadState(ctx, uuid.New())
			assert.ErrorIs(t, err, ErrNotFound)

			missing := newSession(2)
			assert.ErrorIs(t, s.SaveState(ctx, missing, 1), ErrNotFound)
			assert.ErrorIs(t, s.ExpireAfter(ctx, uuid.New(), time.Hour), ErrNotFound)

			_, err = s.ListAudit(ctx, uuid.New())
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestStore_RejectsBadVersionBookkeeping(t *testing.T) {
	for name, factory := range factories() {
		t.Run(name, func(t *testing.T) {
			err := factory(t).SaveState(context.Background(), newSession(5), 0)
			require.Error(t, err)
			assert.NotErrorIs(t, err, ErrVersionConflict)
		})
	}
}

func TestStore_ExpireAfter(t *testing.T) {
	for name, factory := range factories() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := factory(t)
			kept, gone := newSession(1), newSession(1)
			require.NoError(t, s.SaveState(ctx, kept, 0))
			require.NoError(t, s.SaveState(ctx, gone, 0))

			require.NoError(t, s.ExpireAfter(ctx, kept.ID, time.Hour))
			require.NoError(t, s.ExpireAfter(ctx, gone.ID, -time.Second))

			_, err := s.LoadState(ctx, kept.ID)
			assert.NoError(t, err)
			_, err = s.LoadState(ctx, gone.ID)
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestStore_ListDue(t *testing.T) {
	for name, factory := range factories() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := factory(t)

			early := newSession(1)
			late := newSession(1)
			late.LastUpdatedAt = t0.Add(10 * time.Minute)
			done := newSession(1)
			done.Status = types.StatusCompleted
			for _, st := range []*types.SessionState{late, early, done} {
				require.NoError(t, s.SaveState(ctx, st, 0))
			}

			ids, err := s.ListDue(ctx, t0, 0)
			require.NoError(t, err)
			assert.Empty(t, ids)

			ids, err = s.ListDue(ctx, t0.Add(time.Hour), 0)
			require.NoError(t, err)
			assert.Equal(t, []uuid.UUID{early.ID, late.ID}, ids)

			ids, err = s.ListDue(ctx, t0.Add(time.Hour), 1)
			require.NoError(t, err)
			assert.Equal(t, []uuid.UUID{early.ID}, ids)
		})
	}
}
