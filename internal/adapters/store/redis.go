package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/okian/housecup/pkg/logger"
	"github.com/okian/housecup/pkg/metrics"
)

// maxTxRetries bounds optimistic transaction retries on a contended key.
const maxTxRetries = 16

// Redis stores each collection as a hash of JSON documents keyed by id and
// announces changes on one pub/sub channel per collection. Subscribers reload
// the whole hash on each announcement.
type Redis struct {
	settings
	client *redis.Client

	mu     sync.Mutex
	subs   map[*subscriber]struct{}
	closed bool
}

var _ Store = (*Redis)(nil)

// NewRedis wraps client. The store owns client and closes it on Close.
func NewRedis(client *redis.Client, opts ...Option) *Redis {
	s := defaultSettings("store.redis")
	for _, opt := range opts {
		opt(&s)
	}
	return &Redis{
		settings: s,
		client:   client,
		subs:     make(map[*subscriber]struct{}),
	}
}

// Ping checks connectivity.
func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *Redis) key(coll string) string     { return r.prefix + ":coll:" + coll }
func (r *Redis) channel(coll string) string { return r.prefix + ":changed:" + coll }

func (r *Redis) isClosed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

// ReadAll implements Store.
func (r *Redis) ReadAll(ctx context.Context, coll string, order Order) (docs []Document, err error) {
	defer observe(coll, "read_all", time.Now(), &err)
	if r.isClosed() {
		return nil, ErrClosed
	}
	raw, err := r.client.HGetAll(ctx, r.key(coll)).Result()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", coll, err)
	}
	docs = make([]Document, 0, len(raw))
	for id, val := range raw {
		d, err := decode(val)
		if err != nil {
			r.log.Warn(ctx, "skipping undecodable document",
				logger.String("collection", coll), logger.String("id", id), logger.Error(err))
			continue
		}
		docs = append(docs, d)
	}
	Sort(docs, order)
	return docs, nil
}

// Get implements Store.
func (r *Redis) Get(ctx context.Context, coll, id string) (doc Document, err error) {
	defer observe(coll, "get", time.Now(), &err)
	if r.isClosed() {
		return nil, ErrClosed
	}
	return r.get(ctx, r.client, coll, id)
}

type hgetter interface {
	HGet(ctx context.Context, key, field string) *redis.StringCmd
}

func (r *Redis) get(ctx context.Context, c hgetter, coll, id string) (Document, error) {
	val, err := c.HGet(ctx, r.key(coll), id).Result()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%s/%s: %w", coll, id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get %s/%s: %w", coll, id, err)
	}
	return decode(val)
}

// Add implements Store.
func (r *Redis) Add(ctx context.Context, coll string, doc Document) (id string, err error) {
	defer observe(coll, "add", time.Now(), &err)
	if r.isClosed() {
		return "", ErrClosed
	}
	id = newID()
	body, err := json.Marshal(stamp(doc, id, r.now()))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	_, err = r.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.HSet(ctx, r.key(coll), id, body)
		p.Publish(ctx, r.channel(coll), id)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("add %s: %w", coll, err)
	}
	return id, nil
}

// Update implements Store.
func (r *Redis) Update(ctx context.Context, coll, id string, fields Document) (err error) {
	defer observe(coll, "update", time.Now(), &err)
	return r.update(ctx, coll, id, -1, fields)
}

// UpdateIf implements Store.
func (r *Redis) UpdateIf(ctx context.Context, coll, id string, version int64, fields Document) (err error) {
	defer observe(coll, "update_if", time.Now(), &err)
	return r.update(ctx, coll, id, version, fields)
}

func (r *Redis) update(ctx context.Context, coll, id string, version int64, fields Document) error {
	if r.isClosed() {
		return ErrClosed
	}
	key := r.key(coll)
	txf := func(tx *redis.Tx) error {
		cur, err := r.get(ctx, tx, coll, id)
		if err != nil {
			return err
		}
		if version >= 0 && cur.Version() != version {
			return fmt.Errorf("%s/%s at %d, want %d: %w", coll, id, cur.Version(), version, ErrVersionConflict)
		}
		merge(cur, fields)
		cur[FieldVersion] = cur.Version() + 1
		body, err := json.Marshal(cur)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidDocument, err)
		}
		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.HSet(ctx, key, id, body)
			p.Publish(ctx, r.channel(coll), id)
			return nil
		})
		return err
	}
	for i := 0; i < maxTxRetries; i++ {
		err := r.client.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return fmt.Errorf("update %s/%s: %w", coll, id, redis.TxFailedErr)
}

// Delete implements Store.
func (r *Redis) Delete(ctx context.Context, coll, id string) (err error) {
	defer observe(coll, "delete", time.Now(), &err)
	if r.isClosed() {
		return ErrClosed
	}
	var del *redis.IntCmd
	_, err = r.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		del = p.HDel(ctx, r.key(coll), id)
		p.Publish(ctx, r.channel(coll), id)
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete %s/%s: %w", coll, id, err)
	}
	if del.Val() == 0 {
		return fmt.Errorf("%s/%s: %w", coll, id, ErrNotFound)
	}
	return nil
}

// Subscribe implements Store. The channel subscription is confirmed before
// the first snapshot is loaded, so no change is missed in between.
func (r *Redis) Subscribe(ctx context.Context, coll string, order Order, fn SnapshotFunc) (Subscription, error) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil, ErrClosed
	}
	r.mu.Unlock()

	ps := r.client.Subscribe(context.Background(), r.channel(coll))
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("subscribe %s: %w", coll, err)
	}

	var sub *subscriber
	sub = newSubscriber(coll, func() {
		_ = ps.Close()
		r.mu.Lock()
		delete(r.subs, sub)
		r.mu.Unlock()
	})
	r.mu.Lock()
	r.subs[sub] = struct{}{}
	r.mu.Unlock()
	metrics.AddActiveSubscriptions(1)

	msgs := ps.Channel()
	go func() {
		for {
			select {
			case <-sub.done:
				return
			case _, ok := <-msgs:
				if !ok {
					return
				}
				sub.signal()
			}
		}
	}()

	subLog := r.log.With(logger.String("collection", coll))
	sub.signal()
	go sub.run(
		func() ([]Document, error) { return r.ReadAll(context.Background(), coll, order) },
		fn,
		func(err error) {
			subLog.Error(context.Background(), "subscription stopped", logger.Error(err))
		},
	)
	return sub, nil
}

// Close implements Store. Open subscriptions are released and the client closed.
func (r *Redis) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	all := make([]*subscriber, 0, len(r.subs))
	for s := range r.subs {
		all = append(all, s)
	}
	r.mu.Unlock()

	for _, s := range all {
		s.Unsubscribe()
	}
	return r.client.Close()
}

func decode(val string) (Document, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(val)))
	dec.UseNumber()
	var d Document
	if err := dec.Decode(&d); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	return d, nil
}
