// Package cycle drives the per-cycle network cache and confines every request
// to a single goroutine.
//
// The resolver and coordinator have no internal locking. A Driver owns the
// only goroutine allowed to touch them: it clears the cache exactly once
// between cycles and runs submitted work in between, so a clear can never
// interleave with an in-flight resolution.
package cycle

import (
	"context"
	"errors"
	"time"

	"corenet/pkg/metrics"

	"go.uber.org/zap"
)

const DefaultInterval = 50 * time.Millisecond

var ErrStopped = errors.New("driver stopped")

// Clearer is invalidated once per cycle. *coordinator.Coordinator implements it.
type Clearer interface {
	ClearCache()
}

type job struct {
	fn   func()
	done chan struct{}
}

// Driver runs cycles and the work submitted between them.
type Driver struct {
	clearer  Clearer
	interval time.Duration
	jobs     chan job
	stopped  chan struct{}
	cycles   uint64

	logger  *zap.Logger
	metrics *metrics.Metrics
}

func New(clearer Clearer, interval time.Duration, logger *zap.Logger, m *metrics.Metrics) *Driver {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Driver{
		clearer:  clearer,
		interval: interval,
		jobs:     make(chan job),
		stopped:  make(chan struct{}),
		logger:   logger,
		metrics:  m,
	}
}

// Run executes cycles until ctx is cancelled. It must be called once.
func (d *Driver) Run(ctx context.Context) {
	defer close(d.stopped)

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	d.logger.Info("Cycle driver started", zap.Duration("interval", d.interval))

	for {
		select {
		case <-ctx.Done():
			d.logger.Info("Cycle driver stopped", zap.Uint64("cycles", d.cycles))
			return

		case <-ticker.C:
			d.tick()

		case j := <-d.jobs:
			j.fn()
			close(j.done)
		}
	}
}

// tick ends the current cycle.
func (d *Driver) tick() {
	d.clearer.ClearCache()
	d.cycles++
	d.metrics.CycleDone()
	d.logger.Debug("Cycle completed", zap.Uint64("cycle", d.cycles))
}

// Do runs fn on the driver goroutine and waits for it to return.
func (d *Driver) Do(ctx context.Context, fn func()) error {
	j := job{fn: fn, done: make(chan struct{})}

	select {
	case d.jobs <- j:
	case <-d.stopped:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}

	// the job runs to completion once accepted
	<-j.done
	return nil
}

// Cycles returns the number of completed cycles. Call it from Do.
func (d *Driver) Cycles() uint64 {
	return d.cycles
}
