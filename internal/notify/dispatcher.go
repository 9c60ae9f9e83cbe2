package notify

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	// DefaultQueueSize bounds the number of undelivered events.
	DefaultQueueSize = 256
	// DefaultDeliveryTimeout bounds one notifier call.
	DefaultDeliveryTimeout = 5 * time.Second
)

// Dispatcher fans events out to notifiers on a single background worker.
// When the queue is full, events are dropped and logged.
type Dispatcher struct {
	notifiers []Notifier
	logger    *zap.Logger
	timeout   time.Duration

	mu      sync.RWMutex
	closed  bool
	queue   chan Event
	wg      sync.WaitGroup
	dropped atomic.Uint64
}

// NewDispatcher starts a dispatcher. Call Stop to drain and release it.
func NewDispatcher(logger *zap.Logger, queueSize int, timeout time.Duration, notifiers ...Notifier) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	if timeout <= 0 {
		timeout = DefaultDeliveryTimeout
	}
	d := &Dispatcher{
		notifiers: notifiers,
		logger:    logger.Named("notify"),
		timeout:   timeout,
		queue:     make(chan Event, queueSize),
	}
	d.wg.Add(1)
	go d.run()
	return d
}

// Publish enqueues e without blocking.
func (d *Dispatcher) Publish(e Event) {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now()
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		d.drop(e, "dispatcher stopped")
		return
	}
	select {
	case d.queue <- e:
	default:
		d.drop(e, "queue full")
	}
}

// Dropped returns how many events were discarded.
func (d *Dispatcher) Dropped() uint64 {
	return d.dropped.Load()
}

// Stop rejects new events, delivers what is queued, and waits for the worker.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()
	d.wg.Wait()
}

func (d *Dispatcher) run() {
	defer d.wg.Done()
	for e := range d.queue {
		d.deliver(e)
	}
}

func (d *Dispatcher) deliver(e Event) {
	for _, n := range d.notifiers {
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		err := n.Notify(ctx, e)
		cancel()
		if err != nil {
			d.logger.Warn("notification failed",
				zap.String("event", string(e.Type)),
				zap.String("session_id", e.SessionID.String()),
				zap.Error(err))
		}
	}
}

func (d *Dispatcher) drop(e Event, reason string) {
	d.dropped.Add(1)
	d.logger.Warn("notification dropped",
		zap.String("reason", reason),
		zap.String("event", string(e.Type)),
		zap.String("session_id", e.SessionID.String()))
}
