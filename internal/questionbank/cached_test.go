package questionbank

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonathan/interview-engine/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingBank struct {
	calls atomic.Int32
	gate  chan struct{}
	err   error
	pool  []types.QuestionItem
}

func (b *countingBank) FetchPool(ctx context.Context, _ types.PoolQuery) ([]types.QuestionItem, error) {
	b.calls.Add(1)
	if b.gate != nil {
		<-b.gate
	}
	if b.err != nil {
		return nil, b.err
	}
	return b.pool, nil
}

var samplePool = []types.QuestionItem{
	{ID: "q1", Category: "go", Discrimination: 1},
	{ID: "q2", Category: "sql", Discrimination: 1.2},
}

func TestCached_HitsWithinTTL(t *testing.T) {
	upstream := &countingBank{pool: samplePool}
	cached := NewCached(upstream, time.Minute)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cached.now = func() time.Time { return now }
	ctx := context.Background()

	q := types.PoolQuery{JobRole: "Backend", Technologies: []string{"Go", "sql"}}
	first, err := cached.FetchPool(ctx, q)
	require.NoError(t, err)
	assert.Equal(t, samplePool, first)

	// normalized key: case and technology order do not matter
	_, err = cached.FetchPool(ctx, types.PoolQuery{JobRole: "backend", Technologies: []string{"SQL", "go"}})
	require.NoError(t, err)
	assert.Equal(t, int32(1), upstream.calls.Load())

	now = now.Add(2 * time.Minute)
	_, err = cached.FetchPool(ctx, q)
	require.NoError(t, err)
	assert.Equal(t, int32(2), upstream.calls.Load())

	cached.Invalidate()
	_, err = cached.FetchPool(ctx, q)
	require.NoError(t, err)
	assert.Equal(t, int32(3), upstream.calls.Load())
}

func TestCached_ReturnsCopies(t *testing.T) {
	cached := NewCached(&countingBank{pool: samplePool}, 0)
	ctx := context.Background()

	first, err := cached.FetchPool(ctx, types.PoolQuery{})
	require.NoError(t, err)
	first[0].ID = "mutated"

	second, err := cached.FetchPool(ctx, types.PoolQuery{})
	require.NoError(t, err)
	assert.Equal(t, "q1", second[0].ID)
}

func TestCached_CollapsesConcurrentMisses(t *testing.T) {
	upstream := &countingBank{pool: samplePool, gate: make(chan struct{})}
	cached := NewCached(upstream, time.Minute)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			pool, err := cached.FetchPool(context.Background(), types.PoolQuery{JobRole: "backend"})
			assert.NoError(t, err)
			assert.Len(t, pool, 2)
		}()
	}
	close(upstream.gate)
	wg.Wait()

	assert.Equal(t, int32(1), upstream.calls.Load())
}

func TestCached_DoesNotCacheErrors(t *testing.T) {
	boom := errors.New("bank offline")
	upstream := &countingBank{err: boom}
	cached := NewCached(upstream, time.Minute)

	_, err := cached.FetchPool(context.Background(), types.PoolQuery{})
	assert.ErrorIs(t, err, boom)

	upstream.err = nil
	upstream.pool = samplePool
	pool, err := cached.FetchPool(context.Background(), types.PoolQuery{})
	require.NoError(t, err)
	assert.Len(t, pool, 2)
	assert.Equal(t, int32(2), upstream.calls.Load())
}

type ctxBank struct {
	calls  atomic.Int32
	gate   chan struct{}
	sawErr atomic.Value
	pool   []types.QuestionItem
}

func (b *ctxBank) FetchPool(ctx context.Context, _ types.PoolQuery) ([]types.QuestionItem, error) {
	b.calls.Add(1)
	<-b.gate
	if err := ctx.Err(); err != nil {
		b.sawErr.Store(err)
		return nil, err
	}
	return b.pool, nil
}

func TestCached_CancelledCallerDoesNotFailWaiters(t *testing.T) {
	upstream := &ctxBank{pool: samplePool, gate: make(chan struct{})}
	cached := NewCached(upstream, time.Minute)
	query := types.PoolQuery{JobRole: "backend"}

	firstCtx, cancelFirst := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := cached.FetchPool(firstCtx, query)
		firstErr <- err
	}()
	require.Eventually(t, func() bool { return upstream.calls.Load() == 1 }, time.Second, time.Millisecond)

	type result struct {
		pool []types.QuestionItem
		err  error
	}
	second := make(chan result, 1)
	go func() {
		pool, err := cached.FetchPool(context.Background(), query)
		second <- result{pool, err}
	}()

	cancelFirst()
	assert.ErrorIs(t, <-firstErr, context.Canceled)

	close(upstream.gate)
	got := <-second
	require.NoError(t, got.err)
	assert.Len(t, got.pool, 2)
	assert.Nil(t, upstream.sawErr.Load(), "shared fetch must not inherit the first caller's cancellation")
	assert.Equal(t, int32(1), upstream.calls.Load())
}
