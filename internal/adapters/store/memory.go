package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/okian/housecup/pkg/logger"
	"github.com/okian/housecup/pkg/metrics"
)

// Memory is an in-process Store. Safe for concurrent use.
type Memory struct {
	settings

	mu     sync.Mutex
	colls  map[string]map[string]Document
	subs   map[string]map[*subscriber]struct{}
	closed bool
}

var _ Store = (*Memory)(nil)

// NewMemory creates an empty in-memory store.
func NewMemory(opts ...Option) *Memory {
	s := defaultSettings("store.memory")
	for _, opt := range opts {
		opt(&s)
	}
	return &Memory{
		settings: s,
		colls:    make(map[string]map[string]Document),
		subs:     make(map[string]map[*subscriber]struct{}),
	}
}

// ReadAll implements Store.
func (m *Memory) ReadAll(ctx context.Context, coll string, order Order) (docs []Document, err error) {
	defer observe(coll, "read_all", time.Now(), &err)
	if err = ctx.Err(); err != nil {
		return nil, err
	}
	return m.snapshot(coll, order)
}

// Get implements Store.
func (m *Memory) Get(ctx context.Context, coll, id string) (doc Document, err error) {
	defer observe(coll, "get", time.Now(), &err)
	if err = ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, ErrClosed
	}
	d, ok := m.colls[coll][id]
	if !ok {
		return nil, fmt.Errorf("%s/%s: %w", coll, id, ErrNotFound)
	}
	return Copy(d), nil
}

// Add implements Store.
func (m *Memory) Add(ctx context.Context, coll string, doc Document) (id string, err error) {
	defer observe(coll, "add", time.Now(), &err)
	if err = ctx.Err(); err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return "", ErrClosed
	}
	id = newID()
	docs := m.colls[coll]
	if docs == nil {
		docs = make(map[string]Document)
		m.colls[coll] = docs
	}
	docs[id] = stamp(doc, id, m.now())
	m.notifyLocked(coll)
	return id, nil
}

// Update implements Store.
func (m *Memory) Update(ctx context.Context, coll, id string, fields Document) (err error) {
	defer observe(coll, "update", time.Now(), &err)
	if err = ctx.Err(); err != nil {
		return err
	}
	return m.update(coll, id, -1, fields)
}

// UpdateIf implements Store.
func (m *Memory) UpdateIf(ctx context.Context, coll, id string, version int64, fields Document) (err error) {
	defer observe(coll, "update_if", time.Now(), &err)
	if err = ctx.Err(); err != nil {
		return err
	}
	return m.update(coll, id, version, fields)
}

func (m *Memory) update(coll, id string, version int64, fields Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	d, ok := m.colls[coll][id]
	if !ok {
		return fmt.Errorf("%s/%s: %w", coll, id, ErrNotFound)
	}
	if version >= 0 && d.Version() != version {
		return fmt.Errorf("%s/%s at %d, want %d: %w", coll, id, d.Version(), version, ErrVersionConflict)
	}
	next := Copy(d)
	merge(next, fields)
	next[FieldVersion] = d.Version() + 1
	m.colls[coll][id] = next
	m.notifyLocked(coll)
	return nil
}

// Delete implements Store.
func (m *Memory) Delete(ctx context.Context, coll, id string) (err error) {
	defer observe(coll, "delete", time.Now(), &err)
	if err = ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	if _, ok := m.colls[coll][id]; !ok {
		return fmt.Errorf("%s/%s: %w", coll, id, ErrNotFound)
	}
	delete(m.colls[coll], id)
	m.notifyLocked(coll)
	return nil
}

// Subscribe implements Store.
func (m *Memory) Subscribe(ctx context.Context, coll string, order Order, fn SnapshotFunc) (Subscription, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, ErrClosed
	}
	var sub *subscriber
	sub = newSubscriber(coll, func() {
		m.mu.Lock()
		delete(m.subs[coll], sub)
		m.mu.Unlock()
	})
	if m.subs[coll] == nil {
		m.subs[coll] = make(map[*subscriber]struct{})
	}
	m.subs[coll][sub] = struct{}{}
	metrics.AddActiveSubscriptions(1)

	subLog := m.log.With(logger.String("collection", coll))
	sub.signal()
	go sub.run(
		func() ([]Document, error) { return m.snapshot(coll, order) },
		fn,
		func(err error) {
			subLog.Error(context.Background(), "subscription stopped", logger.Error(err))
		},
	)
	return sub, nil
}

// Close implements Store. Open subscriptions are released.
func (m *Memory) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	var all []*subscriber
	for _, subs := range m.subs {
		for s := range subs {
			all = append(all, s)
		}
	}
	m.mu.Unlock()

	for _, s := range all {
		s.Unsubscribe()
	}
	return nil
}

func (m *Memory) snapshot(coll string, order Order) ([]Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, ErrClosed
	}
	docs := make([]Document, 0, len(m.colls[coll]))
	for _, d := range m.colls[coll] {
		docs = append(docs, Copy(d))
	}
	Sort(docs, order)
	return docs, nil
}

// notifyLocked must be called with m.mu held.
func (m *Memory) notifyLocked(coll string) {
	for s := range m.subs[coll] {
		s.signal()
	}
}
