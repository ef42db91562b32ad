// Package queue holds work waiting for the serialized reconciler. Each job
// carries a reply channel the submitter waits on.
package queue

import (
	"context"
	"sync"
	"time"

	"github.com/okian/housecup/internal/domain/model"
	"github.com/okian/housecup/internal/domain/reconcile"
	"github.com/okian/housecup/pkg/metrics"
)

const defaultQueueCapacity = 1024

// Reply is the result of processing one job.
type Reply struct {
	Outcome reconcile.Outcome
	Err     error
}

// Kind selects what the worker does with a job.
type Kind int

// Job kinds.
const (
	// KindRecord records Draft and awards its points.
	KindRecord Kind = iota
	// KindRepair rewrites ranks that disagree with scores.
	KindRepair
)

// Job is one unit of serialized work.
type Job struct {
	Kind Kind
	// Key is the optional idempotency key of the submission.
	Key      string
	Draft    model.EventDraft
	Enqueued time.Time
	// Reply receives exactly one value. It is buffered so the worker never blocks.
	Reply chan Reply
}

// NewJob creates a record job with a buffered reply channel.
func NewJob(key string, d model.EventDraft) Job {
	return Job{Kind: KindRecord, Key: key, Draft: d, Enqueued: time.Now(), Reply: make(chan Reply, 1)}
}

// NewRepairJob creates a rank repair job. The number of ranks rewritten is
// replied in Outcome.Written.
func NewRepairJob() Job {
	return Job{Kind: KindRepair, Enqueued: time.Now(), Reply: make(chan Reply, 1)}
}

// Queue provides non-blocking enqueue and channel-based dequeue semantics.
type Queue interface {
	// Enqueue adds a job. Returns ErrFull or ErrClosed without blocking.
	Enqueue(ctx context.Context, j Job) error

	// Dequeue returns the channel jobs arrive on. It is closed by Close.
	Dequeue() <-chan Job

	// Len returns the current number of queued jobs.
	Len() int

	// Close stops accepting jobs. Queued jobs can still be drained.
	Close() error
}

// InMemoryQueue implements Queue using a buffered channel.
type InMemoryQueue struct {
	jobs     chan Job
	capacity int

	mu     sync.RWMutex
	closed bool
}

// NewInMemoryQueue creates a new in-memory queue with configuration options.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{capacity: defaultQueueCapacity}
	for _, opt := range opts {
		opt(q)
	}
	q.jobs = make(chan Job, q.capacity)
	metrics.UpdateReconcileQueueDepth(0)
	return q
}

// Enqueue implements Queue.
func (q *InMemoryQueue) Enqueue(ctx context.Context, j Job) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return ErrClosed
	}

	select {
	case q.jobs <- j:
		metrics.UpdateReconcileQueueDepth(len(q.jobs))
		return nil
	default:
		return ErrFull
	}
}

// Dequeue implements Queue.
func (q *InMemoryQueue) Dequeue() <-chan Job {
	return q.jobs
}

// Len implements Queue.
func (q *InMemoryQueue) Len() int {
	return len(q.jobs)
}

// Close implements Queue.
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
