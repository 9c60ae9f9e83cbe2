package questionbank

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jonathan/interview-engine/internal/types"
	"golang.org/x/sync/singleflight"
)

const (
	// DefaultCacheTTL is used when a Cached bank is created with a zero TTL.
	DefaultCacheTTL = 5 * time.Minute
	// DefaultFetchTimeout bounds one shared upstream fetch.
	DefaultFetchTimeout = 30 * time.Second
)

// Cached wraps a Bank with a per-query TTL cache. Concurrent misses for the
// same query share one upstream fetch, which outlives any single caller's
// cancellation.
type Cached struct {
	bank         Bank
	ttl          time.Duration
	fetchTimeout time.Duration
	now          func() time.Time
	group        singleflight.Group

	mu      sync.RWMutex
	entries map[string]cacheEntry
}

type cacheEntry struct {
	pool      []types.QuestionItem
	fetchedAt time.Time
}

// NewCached creates a caching wrapper around bank.
func NewCached(bank Bank, ttl time.Duration) *Cached {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Cached{
		bank:         bank,
		ttl:          ttl,
		fetchTimeout: DefaultFetchTimeout,
		now:          time.Now,
		entries:      make(map[string]cacheEntry),
	}
}

// FetchPool implements Bank.
func (c *Cached) FetchPool(ctx context.Context, q types.PoolQuery) ([]types.QuestionItem, error) {
	key := cacheKey(q)
	if pool, ok := c.lookup(key); ok {
		return pool, nil
	}

	ch := c.group.DoChan(key, func() (any, error) {
		if pool, ok := c.lookup(key); ok {
			return pool, nil
		}
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.fetchTimeout)
		defer cancel()
		pool, err := c.bank.FetchPool(fetchCtx, q)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.entries[key] = cacheEntry{pool: pool, fetchedAt: c.now()}
		c.mu.Unlock()
		return pool, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, fmt.Errorf("failed to fetch question pool: %w", res.Err)
		}
		return clonePool(res.Val.([]types.QuestionItem)), nil
	}
}

// Invalidate drops every cached pool.
func (c *Cached) Invalidate() {
	c.mu.Lock()
	c.entries = make(map[string]cacheEntry)
	c.mu.Unlock()
}

func (c *Cached) lookup(key string) ([]types.QuestionItem, bool) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok || c.now().Sub(entry.fetchedAt) >= c.ttl {
		return nil, false
	}
	return clonePool(entry.pool), true
}

func cacheKey(q types.PoolQuery) string {
	techs := make([]string, len(q.Technologies))
	for i, t := range q.Technologies {
		techs[i] = strings.ToLower(strings.TrimSpace(t))
	}
	sort.Strings(techs)
	return fmt.Sprintf("%s|%s|%g|%g",
		strings.ToLower(strings.TrimSpace(q.JobRole)), strings.Join(techs, ","), q.Band.Min, q.Band.Max)
}

func clonePool(pool []types.QuestionItem) []types.QuestionItem {
	if pool == nil {
		return nil
	}
	return append([]types.QuestionItem(nil), pool...)
}
