// Package worker runs alert channel jobs off the sampling loop.
package worker

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/okian/attend/internal/adapters/mq/queue"
	"github.com/okian/attend/internal/domain/model"
	"github.com/okian/attend/pkg/logger"
	"github.com/okian/attend/pkg/metrics"
)

const (
	defaultWorkerCount   = 2
	defaultShutdownLimit = 5 * time.Second
)

// Queue defines how workers receive jobs.
type Queue interface {
	Dequeue(ctx context.Context) <-chan queue.Job
}

// Worker executes channel jobs.
type Worker interface {
	// Run starts the worker loop until ctx is canceled or the queue is drained.
	Run(ctx context.Context)

	// Shutdown stops the worker after its current job.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker implements Worker for jobs read from a Queue.
type InMemoryWorker struct {
	queue    Queue
	name     string
	lane     string
	onResult ResultHandler

	shutdown     chan struct{}
	shutdownOnce sync.Once
	done         chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(q Queue, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:    q,
		name:     "worker",
		lane:     laneOf(q),
		onResult: func(model.ChannelResult) {},
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
		logger:   logger.Get().Named("worker"),
	}

	for _, opt := range opts {
		opt(w)
	}

	if w.name != "worker" {
		w.logger = w.logger.Named(w.name)
	}

	return w
}

// Run starts the worker loop. It returns when ctx is canceled, Shutdown is
// called or the queue is closed and drained.
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
			w.onResult(w.process(ctx, job))
		}
	}
}

// Done is closed when Run returns.
func (w *InMemoryWorker) Done() <-chan struct{} {
	return w.done
}

// Shutdown gracefully stops the worker.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	w.shutdownOnce.Do(func() { close(w.shutdown) })

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// process runs a single job. A panicking handler is reported as a failed
// result so one broken channel cannot take the worker down.
func (w *InMemoryWorker) process(ctx context.Context, job queue.Job) (res model.ChannelResult) { //nolint:gocritic // hugeParam: jobs carry event snapshots by value
	metrics.AddWorkersBusy(w.lane, 1)
	start := time.Now()

	defer func() {
		metrics.AddWorkersBusy(w.lane, -1)
		if r := recover(); r != nil {
			res = model.Failed(job.Channel, job.Event.ID, fmt.Errorf("channel %s panicked: %v", job.Channel, r), time.Since(start))
		}
		metrics.RecordChannelDispatch(string(res.Channel), res.OK, float64(res.Duration.Milliseconds()))
		if !res.OK {
			w.logger.Warn(ctx, "channel dispatch failed",
				logger.String("channel", string(res.Channel)),
				logger.String("event_id", res.EventID),
				logger.Error(res.Err),
			)
		}
	}()

	if job.Run == nil {
		return model.Failed(job.Channel, job.Event.ID, fmt.Errorf("channel %s: no handler", job.Channel), 0)
	}
	if err := job.Run(ctx, job.Event); err != nil {
		return model.Failed(job.Channel, job.Event.ID, err, time.Since(start))
	}
	return model.Succeeded(job.Channel, job.Event.ID, time.Since(start))
}

// Pool manages multiple workers sharing one queue.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue

	cancel       context.CancelFunc
	started      bool
	shutdownOnce sync.Once

	logger logger.Logger
}

// NewPool creates a worker pool. Options are applied to every worker.
func NewPool(workerCount int, q Queue, opts ...Option) *Pool {
	if workerCount < 1 {
		workerCount = defaultWorkerCount
	}

	pool := &Pool{
		workers: make([]*InMemoryWorker, workerCount),
		queue:   q,
		cancel:  func() {},
		logger:  logger.Get().Named("worker-pool"),
	}

	for i := 0; i < workerCount; i++ {
		wopts := append([]Option{WithName("worker-" + strconv.Itoa(i))}, opts...)
		pool.workers[i] = NewInMemoryWorker(q, wopts...)
	}

	metrics.UpdateWorkerCount(laneOf(q), workerCount)

	return pool
}

// laneOf returns the metrics lane of q, or "default" for queues without one.
func laneOf(q Queue) string {
	if n, ok := q.(interface{ Name() string }); ok && n.Name() != "" {
		return n.Name()
	}
	return "default"
}

// Size returns the number of workers.
func (p *Pool) Size() int {
	return len(p.workers)
}

// Start starts all workers. Jobs run with a context derived from ctx that
// is canceled if Shutdown times out.
func (p *Pool) Start(ctx context.Context) {
	runCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.started = true

	for _, worker := range p.workers {
		go worker.Run(runCtx)
	}
}

// Shutdown closes the queue and lets workers drain pending jobs. If ctx
// expires first, in-flight jobs are canceled and abandoned. Calling
// Shutdown again is a no-op.
func (p *Pool) Shutdown(ctx context.Context) error {
	var err error
	p.shutdownOnce.Do(func() {
		err = p.shutdown(ctx)
	})
	return err
}

func (p *Pool) shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	if !p.started {
		return nil
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, defaultShutdownLimit)
		defer cancel()
	}

	for i, worker := range p.workers {
		select {
		case <-worker.done:
		case <-ctx.Done():
			p.logger.Warn(ctx, "worker shutdown timed out, abandoning pending jobs", logger.Int("worker_id", i))
			p.cancel()
			for _, w := range p.workers {
				w.shutdownOnce.Do(func() { close(w.shutdown) })
			}
			return fmt.Errorf("worker pool shutdown: %w", ctx.Err())
		}
	}

	p.cancel()
	return nil
}
