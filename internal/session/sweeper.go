package session

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Sweeper defaults.
const (
	DefaultSweepInterval    = time.Minute
	DefaultSweepBatch       = 100
	DefaultSweepConcurrency = 4
)

// SweeperOptions configures a Sweeper. Zero values fall back to defaults.
type SweeperOptions struct {
	Interval    time.Duration
	BatchSize   int
	Concurrency int
}

// Sweeper enforces deadlines that no in-process timer covers, such as
// sessions committed by another process or before a restart.
type Sweeper struct {
	engine *Engine
	opts   SweeperOptions
}

// NewSweeper creates a sweeper over engine.
func NewSweeper(engine *Engine, opts SweeperOptions) *Sweeper {
	if opts.Interval <= 0 {
		opts.Interval = DefaultSweepInterval
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultSweepBatch
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultSweepConcurrency
	}
	return &Sweeper{engine: engine, opts: opts}
}

// SweepOnce enforces every deadline due now, up to one batch, and returns
// how many sessions were moved.
func (s *Sweeper) SweepOnce(ctx context.Context) (int, error) {
	ids, err := s.engine.store.ListDue(ctx, s.engine.now(), s.opts.BatchSize)
	if err != nil {
		return 0, fmt.Errorf("failed to list due sessions: %w", err)
	}

	var moved atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Concurrency)
	for _, id := range ids {
		g.Go(func() error {
			applied, err := s.engine.EnforceDeadline(gctx, id)
			if err != nil {
				if IsRetryable(err) {
					// picked up again next sweep
					s.engine.logger.Debug("sweep skipped busy session",
						zap.String("session_id", id.String()))
					return nil
				}
				return fmt.Errorf("session %s: %w", id, err)
			}
			if applied {
				moved.Add(1)
			}
			return nil
		})
	}
	err = g.Wait()
	return int(moved.Load()), err
}

// Run sweeps every interval until ctx is done.
func (s *Sweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.opts.Interval)
	defer ticker.Stop()

	for {
		n, err := s.SweepOnce(ctx)
		switch {
		case err != nil && ctx.Err() == nil:
			s.engine.logger.Warn("sweep failed", zap.Error(err))
		case n > 0:
			s.engine.logger.Info("sweep enforced deadlines", zap.Int("sessions", n))
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
