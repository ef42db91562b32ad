package repository

import (
	"context"

	"github.com/okian/housecup/internal/adapters/store"
	"github.com/okian/housecup/internal/domain/model"
)

// Templates is the typed view over the event template catalog.
type Templates struct {
	base
}

// NewTemplates creates a Templates repository.
func NewTemplates(s store.Store, opts ...Option) *Templates {
	return &Templates{base: newBase(s, TemplatesCollection, TemplatesOrder, opts)}
}

// GetAll returns every template ordered by name.
func (r *Templates) GetAll(ctx context.Context) ([]model.EventTemplate, error) {
	return getAll(ctx, r.base, decodeTemplate)
}

// Subscribe delivers the ordered catalog on every change.
func (r *Templates) Subscribe(ctx context.Context, fn func([]model.EventTemplate)) (store.Subscription, error) {
	return subscribe(ctx, r.base, decodeTemplate, fn)
}

// Add stores a template.
func (r *Templates) Add(ctx context.Context, t model.EventTemplate) (string, error) {
	if err := t.Validate(); err != nil {
		return "", err
	}
	return r.store.Add(ctx, r.coll, encodeTemplate(t))
}

// Update patches a template.
func (r *Templates) Update(ctx context.Context, id string, p model.TemplatePatch) error {
	if p.Empty() {
		return ErrEmptyPatch
	}
	if err := p.Validate(); err != nil {
		return err
	}
	return r.store.Update(ctx, r.coll, id, encodeTemplatePatch(p))
}

// Delete removes a template.
func (r *Templates) Delete(ctx context.Context, id string) error {
	return r.store.Delete(ctx, r.coll, id)
}
