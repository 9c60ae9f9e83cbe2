package session

import (
	"context"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/interview-engine/internal/bias"
	"github.com/jonathan/interview-engine/internal/notify"
	"github.com/jonathan/interview-engine/internal/store"
	"github.com/jonathan/interview-engine/internal/types"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

var t0 = time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)

func item(id, category string, a, b float64) types.QuestionItem {
	return types.QuestionItem{ID: id, Category: category, Discrimination: a, Difficulty: b}
}

// standardPool has its most informative item at theta 0 in q-mid.
func standardPool() []types.QuestionItem {
	return []types.QuestionItem{
		item("q-easy", "algorithms", 1.5, -1),
		item("q-mid", "algorithms", 1.5, 0),
		item("q-hard", "design", 1.5, 1),
		item("q-harder", "design", 1.2, 2),
		item("q-trivial", "basics", 0.8, -2),
	}
}

type fakeBank struct {
	mu    sync.Mutex
	items []types.QuestionItem
	err   error
}

func (b *fakeBank) FetchPool(_ context.Context, q types.PoolQuery) ([]types.QuestionItem, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.err != nil {
		return nil, b.err
	}
	var pool []types.QuestionItem
	for _, it := range b.items {
		if q.Matches(it) {
			pool = append(pool, it)
		}
	}
	return pool, nil
}

func (b *fakeBank) set(items []types.QuestionItem) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.items = slices.Clone(items)
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type recorder struct {
	mu     sync.Mutex
	events []notify.Event
}

func (r *recorder) Publish(e notify.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) ofType(t notify.EventType) []notify.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []notify.Event
	for _, e := range r.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

type staticDemographics struct {
	demo *bias.DemographicContext
	err  error
}

func (s staticDemographics) Demographics(context.Context, uuid.UUID) (*bias.DemographicContext, error) {
	return s.demo, s.err
}

type harness struct {
	engine *Engine
	store  store.Store
	bank   *fakeBank
	clock  *fakeClock
	events *recorder
}

func newHarness(t *testing.T, configure ...func(*Options)) *harness {
	t.Helper()
	return newHarnessWithStore(t, store.NewMemory(), configure...)
}

func newHarnessWithStore(t *testing.T, st store.Store, configure ...func(*Options)) *harness {
	t.Helper()
	h := &harness{
		store:  st,
		bank:   &fakeBank{items: standardPool()},
		clock:  &fakeClock{now: t0},
		events: &recorder{},
	}
	opts := Options{
		Publisher:     h.events,
		Logger:        zaptest.NewLogger(t),
		DisableTimers: true,
		Clock:         h.clock.Now,
	}
	for _, fn := range configure {
		fn(&opts)
	}

	engine, err := New(h.store, h.bank, opts)
	require.NoError(t, err)
	t.Cleanup(engine.Close)
	h.engine = engine
	return h
}

func (h *harness) schedule(t *testing.T, overrides *types.SessionConfigOverrides) uuid.UUID {
	t.Helper()
	snap, err := h.engine.Schedule(context.Background(), types.ScheduleSessionRequest{
		CandidateID: uuid.New().String(),
		JobRole:     "backend engineer",
		Config:      overrides,
	})
	require.NoError(t, err)
	return snap.SessionID
}

func (h *harness) start(t *testing.T, overrides *types.SessionConfigOverrides) (uuid.UUID, types.SessionSnapshot) {
	t.Helper()
	id := h.schedule(t, overrides)
	snap, err := h.engine.Start(context.Background(), id)
	require.NoError(t, err)
	return id, snap
}

func answer(questionID string, correct bool) types.SubmitResponseRequest {
	return types.SubmitResponseRequest{QuestionID: questionID, Correct: &correct, ResponseTimeSeconds: 30}
}

func limits(minQ, maxQ int) *types.SessionConfigOverrides {
	return &types.SessionConfigOverrides{MinQuestions: &minQ, MaxQuestions: &maxQ}
}
