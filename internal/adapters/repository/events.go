package repository

import (
	"context"
	"fmt"

	"github.com/okian/housecup/internal/adapters/store"
	"github.com/okian/housecup/internal/domain/model"
)

// Events is the typed view over recorded event results.
type Events struct {
	base
}

// NewEvents creates an Events repository.
func NewEvents(s store.Store, opts ...Option) *Events {
	return &Events{base: newBase(s, EventsCollection, EventsOrder, opts)}
}

// GetAll returns every event, newest date first.
func (r *Events) GetAll(ctx context.Context) ([]model.EventResult, error) {
	return getAll(ctx, r.base, decodeEvent)
}

// Subscribe delivers the ordered event list on every change.
func (r *Events) Subscribe(ctx context.Context, fn func([]model.EventResult)) (store.Subscription, error) {
	return subscribe(ctx, r.base, decodeEvent, fn)
}

// Add stores a result with its points.
func (r *Events) Add(ctx context.Context, e model.EventResult) (string, error) {
	if err := e.Validate(); err != nil {
		return "", err
	}
	if e.Points < 0 {
		return "", fmt.Errorf("%w: points must not be negative", model.ErrInvalid)
	}
	return r.store.Add(ctx, r.coll, encodeEvent(e))
}

// Update patches an event. House scores are not touched.
func (r *Events) Update(ctx context.Context, id string, p model.EventPatch) error {
	if p.Empty() {
		return ErrEmptyPatch
	}
	if err := p.Validate(); err != nil {
		return err
	}
	return r.store.Update(ctx, r.coll, id, encodeEventPatch(p))
}

// Delete removes an event. House scores are not touched.
func (r *Events) Delete(ctx context.Context, id string) error {
	return r.store.Delete(ctx, r.coll, id)
}
