// Package service provides the live view aggregator: it keeps a composed
// snapshot of every collection current through store subscriptions and exposes
// the actions that mutate the scoreboard.
package service

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/okian/housecup/internal/adapters/blob"
	eventqueue "github.com/okian/housecup/internal/adapters/mq/queue"
	"github.com/okian/housecup/internal/adapters/mq/worker"
	"github.com/okian/housecup/internal/adapters/repository"
	"github.com/okian/housecup/internal/adapters/store"
	"github.com/okian/housecup/internal/domain/dedupe"
	"github.com/okian/housecup/internal/domain/model"
	"github.com/okian/housecup/internal/domain/reconcile"
	"github.com/okian/housecup/internal/domain/scoring"
	"github.com/okian/housecup/internal/domain/types"
	"github.com/okian/housecup/pkg/logger"
	"github.com/okian/housecup/pkg/metrics"
)

const (
	stateNew int32 = iota
	stateStarted
	stateStopped
)

const shutdownTimeout = 5 * time.Second

// Service is the live view aggregator.
type Service struct {
	// lifeMu serializes Start and Stop.
	lifeMu sync.Mutex
	state  atomic.Int32

	// mu guards the view and the first-delivery bookkeeping.
	mu        sync.RWMutex
	view      types.Snapshot
	delivered map[string]bool
	ready     chan struct{}
	readyOnce sync.Once

	watchMu     sync.Mutex
	watchers    map[int]chan types.Snapshot
	nextWatcher int
	watchClosed bool

	// Core components
	store     store.Store
	blobs     blob.Store
	houses    *repository.Houses
	events    *repository.Events
	winners   *repository.Winners
	templates *repository.Templates
	engine    *reconcile.Engine
	deduper   dedupe.Deduper
	queue     *eventqueue.InMemoryQueue
	worker    *worker.InMemoryWorker
	scheduler gocron.Scheduler
	subs      []store.Subscription
	fallback  *time.Timer
	cancelRun context.CancelFunc
	stopCh    chan struct{}

	// Configuration
	queueSize      int
	dedupeSize     int
	loadingTimeout time.Duration
	repairInterval time.Duration
	bootstrap      bool
	scorer         scoring.Scorer

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithStore sets the collection store. Defaults to an in-memory store.
func WithStore(st store.Store) Option {
	return func(s *Service) {
		if st != nil {
			s.store = st
		}
	}
}

// WithBlobStore sets where winner photos are uploaded. Defaults to memory.
func WithBlobStore(b blob.Store) Option {
	return func(s *Service) {
		if b != nil {
			s.blobs = b
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithQueueSize sets how many event submissions may wait for the reconciler.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets the size of the idempotency key cache.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithLoadingTimeout sets how long loading may stay set before it is cleared
// without every collection having delivered.
func WithLoadingTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.loadingTimeout = d
		}
	}
}

// WithRepairInterval schedules a periodic rank repair. Zero disables it.
func WithRepairInterval(d time.Duration) Option {
	return func(s *Service) {
		if d >= 0 {
			s.repairInterval = d
		}
	}
}

// WithBootstrap controls whether Start creates the default houses in an
// empty store.
func WithBootstrap(enabled bool) Option {
	return func(s *Service) {
		s.bootstrap = enabled
	}
}

// WithScorer replaces the default points table.
func WithScorer(sc scoring.Scorer) Option {
	return func(s *Service) {
		if sc != nil {
			s.scorer = sc
		}
	}
}

// New constructs a Service. Repositories are usable right away; the live
// view and event submissions need Start.
func New(opts ...Option) *Service {
	s := &Service{
		view:           types.Snapshot{Loading: true},
		delivered:      make(map[string]bool, len(repository.Collections)),
		ready:          make(chan struct{}),
		watchers:       make(map[int]chan types.Snapshot),
		stopCh:         make(chan struct{}),
		queueSize:      1024,
		dedupeSize:     10_000,
		loadingTimeout: time.Second,
		bootstrap:      true,
		scorer:         scoring.NewTable(),
		logger:         logger.Get().Named("service"),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.store == nil {
		s.store = store.NewMemory()
	}
	if s.blobs == nil {
		s.blobs = blob.NewMemory("")
	}

	repoOpts := []repository.Option{repository.WithLogger(s.logger.Named("repository"))}
	s.houses = repository.NewHouses(s.store, repoOpts...)
	s.events = repository.NewEvents(s.store, repoOpts...)
	s.winners = repository.NewWinners(s.store, s.blobs, repoOpts...)
	s.templates = repository.NewTemplates(s.store, repoOpts...)
	s.engine = reconcile.New(s.houses, s.events,
		reconcile.WithScorer(s.scorer),
		reconcile.WithLogger(s.logger.Named("reconcile")),
	)
	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	return s
}

// Start bootstraps the houses, starts the reconciler and subscribes to every
// collection. Subscriptions are acquired all or nothing. Calling Start on a
// started service is a no-op; after Stop it returns ErrStopped.
func (s *Service) Start(ctx context.Context) error {
	s.lifeMu.Lock()
	defer s.lifeMu.Unlock()

	switch s.state.Load() {
	case stateStarted:
		return nil
	case stateStopped:
		return ErrStopped
	}

	s.logger.Info(ctx, "starting live view...")

	if s.bootstrap {
		if err := s.bootstrapHouses(ctx); err != nil {
			return err
		}
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.queue = eventqueue.NewInMemoryQueue(eventqueue.WithCapacity(s.queueSize))
	s.worker = worker.NewInMemoryWorker(s.queue, s.engine, worker.WithLogger(s.logger.Named("worker")))
	go s.worker.Run(runCtx)

	metrics.UpdateViewLoading(true)
	subs, err := s.subscribeAll(ctx)
	if err != nil {
		_ = s.queue.Close()
		cancel()
		<-s.worker.Done()
		return err
	}
	s.subs = subs
	s.fallback = time.AfterFunc(s.loadingTimeout, s.loadingTimedOut)

	if s.repairInterval > 0 {
		sched, err := s.scheduleRepair(runCtx)
		if err != nil {
			s.releaseAll(subs)
			s.fallback.Stop()
			_ = s.queue.Close()
			cancel()
			<-s.worker.Done()
			return err
		}
		s.scheduler = sched
	}

	s.cancelRun = cancel
	s.state.Store(stateStarted)
	s.logger.Info(ctx, "live view started",
		logger.Int("queueSize", s.queueSize),
		logger.Int("dedupeSize", s.dedupeSize),
		logger.Duration("loadingTimeout", s.loadingTimeout),
		logger.Duration("repairInterval", s.repairInterval),
	)
	return nil
}

// Stop releases subscriptions, cancels the loading timer and stops the
// reconciler. It is safe to call more than once and before Start.
func (s *Service) Stop() {
	s.lifeMu.Lock()
	defer s.lifeMu.Unlock()

	prev := s.state.Swap(stateStopped)
	if prev == stateStopped {
		return
	}
	close(s.stopCh)
	defer s.closeWatchers()
	if prev != stateStarted {
		return
	}

	ctx := context.Background()
	s.logger.Info(ctx, "stopping live view...")

	s.releaseAll(s.subs)
	s.subs = nil
	if s.fallback != nil {
		s.fallback.Stop()
	}
	if s.scheduler != nil {
		if err := s.scheduler.Shutdown(); err != nil {
			s.logger.Warn(ctx, "scheduler shutdown failed", logger.Error(err))
		}
	}

	_ = s.queue.Close()
	shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()
	if err := s.worker.Shutdown(shutdownCtx); err != nil {
		s.logger.Warn(ctx, "reconciler did not stop in time", logger.Error(err))
	}
	s.cancelRun()

	s.logger.Info(ctx, "live view stopped")
}

// Store returns the collection store the service reads and writes.
func (s *Service) Store() store.Store { return s.store }

// Blobs returns the photo store.
func (s *Service) Blobs() blob.Store { return s.blobs }

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	snap := s.Snapshot()
	stats := map[string]interface{}{
		"started":    s.state.Load() == stateStarted,
		"loading":    snap.Loading,
		"queueSize":  s.queueSize,
		"dedupeSize": s.deduper.Size(),
		"houses":     len(snap.Houses),
		"events":     len(snap.Events),
		"winners":    len(snap.Winners),
		"templates":  len(snap.EventTemplates),
	}
	if leader, ok := snap.Leader(); ok {
		stats["leader"] = leader.Name
	}

	if s.state.Load() == stateStarted {
		queueLen := s.queue.Len()
		stats["queueLength"] = queueLen
		metrics.UpdateReconcileQueueDepth(queueLen)
	}

	s.watchMu.Lock()
	stats["watchers"] = len(s.watchers)
	s.watchMu.Unlock()
	return stats
}

// bootstrapHouses creates the default houses when none exist.
func (s *Service) bootstrapHouses(ctx context.Context) error {
	current, err := s.houses.GetAll(ctx)
	if err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}
	if len(current) > 0 {
		return nil
	}
	for _, h := range model.DefaultHouses() {
		if _, err := s.houses.Add(ctx, h); err != nil {
			return fmt.Errorf("bootstrap %s: %w", h.Name, err)
		}
	}
	s.logger.Info(ctx, "created default houses", logger.Int("count", len(model.DefaultHouses())))
	return nil
}

// subscribeAll opens one subscription per collection. On failure the ones
// already acquired are released.
func (s *Service) subscribeAll(ctx context.Context) ([]store.Subscription, error) {
	openers := []func() (store.Subscription, error){
		func() (store.Subscription, error) {
			return s.houses.Subscribe(ctx, func(hs []model.House) {
				s.apply(repository.HousesCollection, func(v *types.Snapshot) { v.Houses = hs })
				metrics.UpdateHouseCount(len(hs))
			})
		},
		func() (store.Subscription, error) {
			return s.events.Subscribe(ctx, func(es []model.EventResult) {
				s.apply(repository.EventsCollection, func(v *types.Snapshot) { v.Events = es })
			})
		},
		func() (store.Subscription, error) {
			return s.winners.Subscribe(ctx, func(ws []model.Winner) {
				s.apply(repository.WinnersCollection, func(v *types.Snapshot) { v.Winners = ws })
			})
		},
		func() (store.Subscription, error) {
			return s.templates.Subscribe(ctx, func(ts []model.EventTemplate) {
				s.apply(repository.TemplatesCollection, func(v *types.Snapshot) { v.EventTemplates = ts })
			})
		},
	}

	subs := make([]store.Subscription, 0, len(openers))
	for _, open := range openers {
		sub, err := open()
		if err != nil {
			s.releaseAll(subs)
			return nil, err
		}
		subs = append(subs, sub)
	}
	return subs, nil
}

func (s *Service) releaseAll(subs []store.Subscription) {
	for _, sub := range subs {
		sub.Unsubscribe()
	}
}

// scheduleRepair runs a rank repair through the reconciler every interval.
func (s *Service) scheduleRepair(ctx context.Context) (gocron.Scheduler, error) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}
	_, err = sched.NewJob(
		gocron.DurationJob(s.repairInterval),
		gocron.NewTask(func() {
			if _, err := s.submit(ctx, eventqueue.NewRepairJob()); err != nil {
				s.logger.Warn(ctx, "scheduled rank repair failed", logger.Error(err))
			}
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		_ = sched.Shutdown()
		return nil, fmt.Errorf("schedule rank repair: %w", err)
	}
	sched.Start()
	return sched, nil
}
