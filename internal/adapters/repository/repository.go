// Package repository provides typed views over store collections: houses,
// event results, winners and event templates.
//
// Each mutator issues exactly one store write unless it says otherwise.
// Documents that fail conversion are logged and left out of snapshots.
package repository

import (
	"context"
	"fmt"

	"github.com/okian/housecup/internal/adapters/store"
	"github.com/okian/housecup/pkg/logger"
)

// Collection names.
const (
	HousesCollection    = "houses"
	EventsCollection    = "events"
	WinnersCollection   = "winners"
	TemplatesCollection = "eventTemplates"
)

// Collection orders.
var (
	HousesOrder    = store.Order{Field: "rank"}
	EventsOrder    = store.Order{Field: "date", Desc: true}
	WinnersOrder   = store.Order{Field: "position"}
	TemplatesOrder = store.Order{Field: "name"}
)

// Collections lists every collection with its order.
var Collections = []struct {
	Name  string
	Order store.Order
}{
	{HousesCollection, HousesOrder},
	{EventsCollection, EventsOrder},
	{WinnersCollection, WinnersOrder},
	{TemplatesCollection, TemplatesOrder},
}

const defaultMaxRetries = 32

type base struct {
	store      store.Store
	log        logger.Logger
	coll       string
	order      store.Order
	maxRetries int
}

func newBase(s store.Store, coll string, order store.Order, opts []Option) base {
	b := base{
		store:      s,
		log:        logger.Get().Named("repository"),
		coll:       coll,
		order:      order,
		maxRetries: defaultMaxRetries,
	}
	for _, opt := range opts {
		opt(&b)
	}
	return b
}

func decodeAll[T any](ctx context.Context, b base, docs []store.Document, decode func(store.Document) (T, error)) []T {
	out := make([]T, 0, len(docs))
	for _, d := range docs {
		v, err := decode(d)
		if err != nil {
			b.log.Warn(ctx, "skipping malformed document",
				logger.String("collection", b.coll), logger.String("id", d.ID()), logger.Error(err))
			continue
		}
		out = append(out, v)
	}
	return out
}

func getAll[T any](ctx context.Context, b base, decode func(store.Document) (T, error)) ([]T, error) {
	docs, err := b.store.ReadAll(ctx, b.coll, b.order)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", b.coll, err)
	}
	return decodeAll(ctx, b, docs, decode), nil
}

func subscribe[T any](ctx context.Context, b base, decode func(store.Document) (T, error), fn func([]T)) (store.Subscription, error) {
	sub, err := b.store.Subscribe(ctx, b.coll, b.order, func(docs []store.Document) {
		fn(decodeAll(context.Background(), b, docs, decode))
	})
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", b.coll, err)
	}
	return sub, nil
}
