// Package queue holds channel jobs between the sampling loop and the
// dispatch workers.
//
// Enqueue never blocks: a slow alert channel must not delay the next tick,
// so a full queue rejects the job instead.
package queue

import (
	"context"
	"sync"

	"github.com/okian/attend/internal/domain/model"
	"github.com/okian/attend/pkg/metrics"
)

const (
	defaultQueueCapacity = 64
	defaultQueueName     = "default"
)

// Handler performs one channel invocation for an event.
type Handler func(ctx context.Context, ev model.Event) error

// Job is one unit of channel work. Event is a value snapshot and must be
// treated as read-only by the handler.
type Job struct {
	Channel model.Channel
	Event   model.Event
	Run     Handler
}

// Queue provides non-blocking enqueue and channel-based dequeue semantics.
type Queue interface {
	// Enqueue adds a job without blocking. It returns ErrQueueFull when the
	// queue is at capacity and ErrClosed after Close.
	Enqueue(ctx context.Context, j Job) error

	// Dequeue returns a channel that yields jobs until the queue is closed
	// and drained.
	Dequeue(ctx context.Context) <-chan Job

	// Len returns the current number of pending jobs.
	Len(ctx context.Context) int

	// Close stops accepting jobs. Pending jobs stay available to Dequeue.
	Close() error

	// IsClosed returns true if the queue has been closed.
	IsClosed() bool
}

// InMemoryQueue implements Queue using a buffered channel.
type InMemoryQueue struct {
	jobs     chan Job
	capacity int
	name     string

	mu     sync.RWMutex
	closed bool
}

// NewInMemoryQueue creates a new in-memory queue with configuration options.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{
		capacity: defaultQueueCapacity,
		name:     defaultQueueName,
	}

	for _, opt := range opts {
		opt(q)
	}

	q.jobs = make(chan Job, q.capacity)

	metrics.UpdateQueueCapacity(q.name, q.capacity)
	metrics.UpdateQueueSize(q.name, 0)

	return q
}

// Enqueue adds a job to the queue.
func (q *InMemoryQueue) Enqueue(ctx context.Context, j Job) error { //nolint:gocritic // hugeParam: jobs carry event snapshots by value
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordQueueDropped(q.name)
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		metrics.RecordQueueDropped(q.name)
		return err
	}

	select {
	case q.jobs <- j:
		metrics.UpdateQueueSize(q.name, len(q.jobs))
		return nil
	default:
		metrics.RecordQueueDropped(q.name)
		return ErrQueueFull
	}
}

// Dequeue returns the job channel. It is closed once the queue is closed
// and every pending job has been received.
func (q *InMemoryQueue) Dequeue(_ context.Context) <-chan Job {
	return q.jobs
}

// Len returns the current number of pending jobs.
func (q *InMemoryQueue) Len(_ context.Context) int {
	size := len(q.jobs)
	metrics.UpdateQueueSize(q.name, size)
	return size
}

// Name returns the lane name the queue reports its metrics under.
func (q *InMemoryQueue) Name() string {
	return q.name
}

// Capacity returns the maximum number of pending jobs.
func (q *InMemoryQueue) Capacity() int {
	return q.capacity
}

// Close gracefully shuts down the queue.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}

	close(q.jobs)
	q.closed = true

	return nil
}

// IsClosed returns true if the queue has been closed.
func (q *InMemoryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
