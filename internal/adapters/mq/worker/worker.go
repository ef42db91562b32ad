package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/okian/housecup/internal/adapters/mq/queue"
	"github.com/okian/housecup/internal/domain/model"
	"github.com/okian/housecup/internal/domain/reconcile"
	"github.com/okian/housecup/pkg/logger"
	"github.com/okian/housecup/pkg/metrics"
)

// ErrStopped is replied to jobs still queued when the worker stops.
var ErrStopped = errors.New("worker stopped")

// Recorder applies one event submission or a rank repair.
type Recorder interface {
	Record(ctx context.Context, d model.EventDraft) (reconcile.Outcome, error)
	Repair(ctx context.Context) (int, error)
}

// Queue defines how the worker receives jobs.
type Queue interface {
	Dequeue() <-chan queue.Job
	Len() int
}

// Worker processes jobs until stopped.
type Worker interface {
	// Run starts the worker loop until ctx is canceled or Shutdown is called.
	Run(ctx context.Context)

	// Shutdown stops the loop after the current job and fails queued jobs
	// with ErrStopped.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker implements Worker with a single goroutine.
type InMemoryWorker struct {
	queue    Queue
	recorder Recorder
	name     string

	shutdown chan struct{}
	once     sync.Once
	done     chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(q Queue, recorder Recorder, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:    q,
		recorder: recorder,
		name:     "reconciler",
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
		logger:   logger.Get().Named("worker"),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.name != "reconciler" {
		w.logger = w.logger.Named(w.name)
	}
	return w
}

// Run starts the worker loop.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)
	defer w.drain()

	jobs := w.queue.Dequeue()
	for {
		// Stop requests win over queued jobs.
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		default:
		}

		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case job, ok := <-jobs:
			if !ok {
				return
			}
			metrics.UpdateReconcileQueueDepth(w.queue.Len())
			w.process(ctx, job)
		}
	}
}

// Shutdown implements Worker. Safe to call more than once.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	w.once.Do(func() { close(w.shutdown) })

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// Done is closed when Run has returned.
func (w *InMemoryWorker) Done() <-chan struct{} {
	return w.done
}

func (w *InMemoryWorker) process(ctx context.Context, job queue.Job) { //nolint:gocritic // hugeParam: Job is passed by value through the channel
	if job.Kind == queue.KindRepair {
		moved, err := w.recorder.Repair(ctx)
		if err != nil {
			w.logger.Error(ctx, "rank repair failed", logger.Error(err))
		}
		job.Reply <- queue.Reply{Outcome: reconcile.Outcome{Written: moved}, Err: err}
		return
	}

	out, err := w.recorder.Record(ctx, job.Draft)
	if err != nil {
		w.logger.Error(ctx, "event submission failed",
			logger.String("house", job.Draft.House),
			logger.String("event", job.Draft.Name),
			logger.String("key", job.Key),
			logger.Error(err),
		)
	}
	job.Reply <- queue.Reply{Outcome: out, Err: err}
}

// drain fails jobs that are still queued so their submitters do not wait forever.
func (w *InMemoryWorker) drain() {
	jobs := w.queue.Dequeue()
	for {
		select {
		case job, ok := <-jobs:
			if !ok {
				return
			}
			job.Reply <- queue.Reply{Err: ErrStopped}
		default:
			return
		}
	}
}
