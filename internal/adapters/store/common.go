package store

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/okian/housecup/pkg/metrics"
)

// TimeLayout is the fixed-width UTC layout of FieldCreatedAt, so that
// timestamps compare correctly as strings.
const TimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func newID() string {
	if id, err := uuid.NewV7(); err == nil {
		return id.String()
	}
	return uuid.NewString()
}

func stamp(doc Document, id string, now time.Time) Document {
	out := Clean(doc)
	out[FieldID] = id
	out[FieldCreatedAt] = now.UTC().Format(TimeLayout)
	out[FieldVersion] = int64(1)
	return out
}

func observe(coll, op string, start time.Time, err *error) {
	metrics.RecordStoreOp(coll, op, float64(time.Since(start).Microseconds())/1000, *err)
}

// subscriber delivers coalesced snapshots from its own goroutine.
type subscriber struct {
	coll  string
	dirty chan struct{}
	done  chan struct{}
	once  sync.Once
	stop  func()
}

func newSubscriber(coll string, stop func()) *subscriber {
	return &subscriber{
		coll:  coll,
		dirty: make(chan struct{}, 1),
		done:  make(chan struct{}),
		stop:  stop,
	}
}

// signal marks the subscriber dirty without blocking.
func (s *subscriber) signal() {
	select {
	case s.dirty <- struct{}{}:
	default:
	}
}

// Unsubscribe implements Subscription.
func (s *subscriber) Unsubscribe() {
	s.once.Do(func() {
		close(s.done)
		if s.stop != nil {
			s.stop()
		}
		metrics.AddActiveSubscriptions(-1)
	})
}

func (s *subscriber) stopped() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

// run waits for change signals and delivers a freshly loaded snapshot for each.
// load failures end the loop; the subscription stays registered but inert.
func (s *subscriber) run(load func() ([]Document, error), fn SnapshotFunc, fail func(error)) {
	for {
		select {
		case <-s.done:
			return
		case <-s.dirty:
		}
		docs, err := load()
		if s.stopped() {
			return
		}
		if errors.Is(err, ErrClosed) {
			return
		}
		if err != nil {
			metrics.RecordSubscriptionError(s.coll)
			fail(err)
			return
		}
		fn(docs)
		metrics.RecordSnapshotDelivered(s.coll)
	}
}
