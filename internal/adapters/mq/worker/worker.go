// Package worker applies badge award jobs taken off the award queue.
package worker

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/engage/internal/adapters/mq/queue"
	"github.com/okian/engage/pkg/logger"
	"github.com/okian/engage/pkg/metrics"
)

const (
	workerShutdownTimeout = 5 * time.Second
	poolShutdownTimeout   = 30 * time.Second
	defaultRetryDelay     = 50 * time.Millisecond
)

// Job is what workers read off the queue.
type Job = queue.Job

// Awarder grants a badge described by a job. It reports whether the badge
// was newly granted. Calls must be idempotent.
type Awarder interface {
	ApplyAward(ctx context.Context, job Job) (bool, error)
}

// Queue defines how workers receive jobs.
type Queue interface {
	Dequeue(ctx context.Context) <-chan Job
}

// Worker processes jobs until stopped.
type Worker interface {
	// Run starts the worker loop until ctx is canceled.
	Run(ctx context.Context)

	// Shutdown stops the worker and waits for the current job.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker implements Worker.
type InMemoryWorker struct {
	queue   Queue
	awarder Awarder
	name    string
	retries int
	delay   time.Duration

	granted   atomic.Int64
	processed atomic.Int64

	stopOnce sync.Once
	shutdown chan struct{}
	done     chan struct{}

	base   logger.Logger
	logger logger.Logger
}

// NewInMemoryWorker creates a worker with configuration options.
func NewInMemoryWorker(q Queue, a Awarder, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:    q,
		awarder:  a,
		name:     "award-worker",
		delay:    defaultRetryDelay,
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.logger == nil {
		w.logger = logger.Get()
	}
	w.base = w.logger
	w.logger = w.logger.Named(w.name)
	return w
}

// Run starts the worker loop.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	jobs := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case job, ok := <-jobs:
			if !ok {
				return
			}
			if err := w.process(ctx, job); err != nil {
				w.logger.Error(ctx, "award job failed",
					logger.String("member_id", job.MemberID),
					logger.String("badge_id", job.BadgeID),
					logger.Error(err),
				)
			}
		}
	}
}

// Shutdown signals the worker and waits for it to finish.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	w.stopOnce.Do(func() { close(w.shutdown) })
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// Processed returns how many jobs the worker handled, failed ones included.
func (w *InMemoryWorker) Processed() int64 { return w.processed.Load() }

// Granted returns how many jobs produced a new badge.
func (w *InMemoryWorker) Granted() int64 { return w.granted.Load() }

func (w *InMemoryWorker) process(ctx context.Context, job Job) error {
	start := time.Now()
	defer func() {
		w.processed.Add(1)
		metrics.RecordWorkerProcessingLatency(float64(time.Since(start).Milliseconds()))
	}()

	var err error
	for attempt := 0; attempt <= w.retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(w.delay * time.Duration(attempt)):
			}
		}
		var granted bool
		granted, err = w.awarder.ApplyAward(ctx, job)
		if err == nil {
			if granted {
				w.granted.Add(1)
				metrics.RecordLeagueAward(job.BadgeID)
				w.logger.Info(ctx, "league badge granted",
					logger.String("member_id", job.MemberID),
					logger.String("badge_id", job.BadgeID),
				)
			}
			return nil
		}
	}

	metrics.RecordWorkerError()
	metrics.RecordErrorByComponent("worker", "award_error")
	metrics.RecordErrorByType("award_error", "medium")
	return fmt.Errorf("apply award %s to %s: %w", job.BadgeID, job.MemberID, err)
}

// Pool manages multiple workers sharing one queue.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue
	logger  logger.Logger
}

// NewPool creates a worker pool. A non-positive count uses runtime.NumCPU().
func NewPool(workerCount int, q Queue, a Awarder, opts ...Option) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU()
	}
	p := &Pool{
		workers: make([]*InMemoryWorker, workerCount),
		queue:   q,
	}
	for i := 0; i < workerCount; i++ {
		wopts := append([]Option{WithName("award-worker-" + strconv.Itoa(i))}, opts...)
		p.workers[i] = NewInMemoryWorker(q, a, wopts...)
	}
	p.logger = p.workers[0].base.Named("award-pool")
	metrics.UpdateWorkerActiveCount(workerCount)
	return p
}

// Start runs all workers.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
}

// Size returns the number of workers.
func (p *Pool) Size() int { return len(p.workers) }

// Processed sums processed jobs across workers.
func (p *Pool) Processed() int64 {
	var n int64
	for _, w := range p.workers {
		n += w.Processed()
	}
	return n
}

// Granted sums newly granted badges across workers.
func (p *Pool) Granted() int64 {
	var n int64
	for _, w := range p.workers {
		n += w.Granted()
	}
	return n
}

// Shutdown closes the queue when it supports closing and waits for the
// workers to stop.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	for i, w := range p.workers {
		wctx, wcancel := context.WithTimeout(shutdownCtx, workerShutdownTimeout)
		if err := w.Shutdown(wctx); err != nil {
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
		}
		wcancel()
	}
	metrics.UpdateWorkerActiveCount(0)
	return nil
}
