package session

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// KeyedMutex serializes work per session id. Locks on different ids never
// contend. Entries are reference counted and dropped once nobody holds or
// waits for them.
type KeyedMutex struct {
	mu      sync.Mutex
	entries map[uuid.UUID]*lockEntry
}

type lockEntry struct {
	ch   chan struct{}
	refs int
}

// NewKeyedMutex creates an empty keyed mutex.
func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{entries: make(map[uuid.UUID]*lockEntry)}
}

// Lock acquires the lock for key, or gives up when ctx is done.
// The returned function releases the lock and is safe to call more than once.
func (k *KeyedMutex) Lock(ctx context.Context, key uuid.UUID) (func(), error) {
	k.mu.Lock()
	entry, ok := k.entries[key]
	if !ok {
		entry = &lockEntry{ch: make(chan struct{}, 1)}
		k.entries[key] = entry
	}
	entry.refs++
	k.mu.Unlock()

	select {
	case entry.ch <- struct{}{}:
		var once sync.Once
		return func() {
			once.Do(func() {
				<-entry.ch
				k.release(key, entry)
			})
		}, nil
	case <-ctx.Done():
		k.release(key, entry)
		return nil, ctx.Err()
	}
}

func (k *KeyedMutex) release(key uuid.UUID, entry *lockEntry) {
	k.mu.Lock()
	defer k.mu.Unlock()
	entry.refs--
	if entry.refs == 0 {
		delete(k.entries, key)
	}
}

// Len returns the number of keys currently held or awaited.
func (k *KeyedMutex) Len() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.entries)
}
