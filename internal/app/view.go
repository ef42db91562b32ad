package service

import (
	"context"
	"sort"

	"github.com/okian/housecup/internal/adapters/repository"
	"github.com/okian/housecup/internal/domain/types"
	"github.com/okian/housecup/pkg/logger"
	"github.com/okian/housecup/pkg/metrics"
)

// Snapshot returns a deep copy of the live view.
func (s *Service) Snapshot() types.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.view.Clone()
}

// Ready is closed once loading has cleared.
func (s *Service) Ready() <-chan struct{} {
	return s.ready
}

// Watch returns a channel carrying the current snapshot followed by one
// snapshot per change. A slow reader only sees the latest snapshot. The
// channel is closed when ctx ends or the service stops.
func (s *Service) Watch(ctx context.Context) <-chan types.Snapshot {
	ch := make(chan types.Snapshot, 1)

	s.mu.RLock()
	s.watchMu.Lock()
	if s.watchClosed {
		s.watchMu.Unlock()
		s.mu.RUnlock()
		close(ch)
		return ch
	}
	id := s.nextWatcher
	s.nextWatcher++
	s.watchers[id] = ch
	offer(ch, s.view.Clone())
	s.watchMu.Unlock()
	s.mu.RUnlock()
	metrics.AddViewWatchers(1)

	go func() {
		select {
		case <-ctx.Done():
		case <-s.stopCh:
		}
		s.dropWatcher(id)
	}()
	return ch
}

// apply replaces one collection of the view and publishes the result. The
// first delivery of the last pending collection clears loading.
func (s *Service) apply(coll string, set func(*types.Snapshot)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	set(&s.view)
	s.delivered[coll] = true

	joined := s.view.Loading && len(s.delivered) == len(repository.Collections)
	if joined {
		s.view.Loading = false
	}
	s.broadcastLocked()
	if joined {
		s.markReady()
		s.logger.Debug(context.Background(), "every collection delivered, loading cleared")
	}
}

// loadingTimedOut clears loading when some collection never delivered.
func (s *Service) loadingTimedOut() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.view.Loading {
		return
	}
	var pending []string
	for _, c := range repository.Collections {
		if !s.delivered[c.Name] {
			pending = append(pending, c.Name)
		}
	}
	sort.Strings(pending)
	s.view.Loading = false
	s.broadcastLocked()
	s.markReady()
	s.logger.Warn(context.Background(), "loading cleared before every collection delivered",
		logger.Strings("pending", pending),
		logger.Duration("after", s.loadingTimeout),
	)
}

func (s *Service) markReady() {
	s.readyOnce.Do(func() {
		close(s.ready)
		metrics.UpdateViewLoading(false)
	})
}

// broadcastLocked offers the current view to every watcher. s.mu must be held
// so watchers see snapshots in change order.
func (s *Service) broadcastLocked() {
	s.watchMu.Lock()
	defer s.watchMu.Unlock()
	if len(s.watchers) == 0 {
		return
	}
	snap := s.view.Clone()
	for _, ch := range s.watchers {
		offer(ch, snap)
	}
}

func (s *Service) dropWatcher(id int) {
	s.watchMu.Lock()
	defer s.watchMu.Unlock()
	ch, ok := s.watchers[id]
	if !ok {
		return
	}
	delete(s.watchers, id)
	close(ch)
	metrics.AddViewWatchers(-1)
}

func (s *Service) closeWatchers() {
	s.watchMu.Lock()
	defer s.watchMu.Unlock()
	s.watchClosed = true
	for id, ch := range s.watchers {
		delete(s.watchers, id)
		close(ch)
		metrics.AddViewWatchers(-1)
	}
}

// offer replaces whatever is buffered in ch with snap.
func offer(ch chan types.Snapshot, snap types.Snapshot) {
	select {
	case ch <- snap:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- snap:
	default:
	}
}
