package session

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Timers keeps at most one pending deadline callback per session.
// Callbacks run on their own goroutine; Stop waits for running ones.
type Timers struct {
	mu      sync.Mutex
	timers  map[uuid.UUID]*time.Timer
	stopped bool
	running sync.WaitGroup
}

// NewTimers creates an empty timer set.
func NewTimers() *Timers {
	return &Timers{timers: make(map[uuid.UUID]*time.Timer)}
}

// Arm replaces any pending timer for id with one that calls fn after d.
func (t *Timers) Arm(id uuid.UUID, d time.Duration, fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped {
		return
	}
	if old, ok := t.timers[id]; ok {
		old.Stop()
	}
	if d < 0 {
		d = 0
	}

	var timer *time.Timer
	timer = time.AfterFunc(d, func() {
		t.mu.Lock()
		if t.stopped || t.timers[id] != timer {
			t.mu.Unlock()
			return
		}
		delete(t.timers, id)
		t.running.Add(1)
		t.mu.Unlock()

		defer t.running.Done()
		fn()
	})
	t.timers[id] = timer
}

// Disarm cancels the pending timer for id, if any.
func (t *Timers) Disarm(id uuid.UUID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if old, ok := t.timers[id]; ok {
		old.Stop()
		delete(t.timers, id)
	}
}

// Pending returns the number of armed timers.
func (t *Timers) Pending() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.timers)
}

// Stop cancels every pending timer, rejects new ones and waits for running
// callbacks to return.
func (t *Timers) Stop() {
	t.mu.Lock()
	t.stopped = true
	for id, timer := range t.timers {
		timer.Stop()
		delete(t.timers, id)
	}
	t.mu.Unlock()
	t.running.Wait()
}
