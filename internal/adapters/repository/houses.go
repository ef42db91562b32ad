package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/okian/housecup/internal/adapters/store"
	"github.com/okian/housecup/internal/domain/model"
	"github.com/okian/housecup/pkg/metrics"
)

// Houses is the typed view over the houses collection.
type Houses struct {
	base
}

// NewHouses creates a Houses repository.
func NewHouses(s store.Store, opts ...Option) *Houses {
	return &Houses{base: newBase(s, HousesCollection, HousesOrder, opts)}
}

// GetAll returns every house ordered by rank.
func (r *Houses) GetAll(ctx context.Context) ([]model.House, error) {
	return getAll(ctx, r.base, decodeHouse)
}

// Get returns one house.
func (r *Houses) Get(ctx context.Context, id string) (model.House, error) {
	d, err := r.store.Get(ctx, r.coll, id)
	if err != nil {
		return model.House{}, err
	}
	return decodeHouse(d)
}

// Subscribe delivers the ordered house set on every change.
func (r *Houses) Subscribe(ctx context.Context, fn func([]model.House)) (store.Subscription, error) {
	return subscribe(ctx, r.base, decodeHouse, fn)
}

// Add validates and stores a house.
func (r *Houses) Add(ctx context.Context, h model.House) (string, error) {
	if err := h.Validate(); err != nil {
		return "", err
	}
	return r.store.Add(ctx, r.coll, encodeHouse(h))
}

// UpdateScore overwrites the score of one house.
func (r *Houses) UpdateScore(ctx context.Context, id string, score int) error {
	if err := r.store.Update(ctx, r.coll, id, store.Document{"score": score}); err != nil {
		return fmt.Errorf("update score of %s: %w", id, err)
	}
	metrics.RecordHouseWrite("score")
	return nil
}

// UpdateRank overwrites the rank of one house.
func (r *Houses) UpdateRank(ctx context.Context, id string, rank int) error {
	if err := r.store.Update(ctx, r.coll, id, store.Document{"rank": rank}); err != nil {
		return fmt.Errorf("update rank of %s: %w", id, err)
	}
	metrics.RecordHouseWrite("rank")
	return nil
}

// UpdateDetails corrects the name and color of one house. Empty values are left as is.
func (r *Houses) UpdateDetails(ctx context.Context, id, name string, color model.Color) error {
	fields := store.Document{}
	if name != "" {
		fields["name"] = name
	}
	if color != "" {
		if !color.Valid() {
			return fmt.Errorf("%w: unknown color %q", model.ErrInvalid, color)
		}
		fields["color"] = string(color)
	}
	if len(fields) == 0 {
		return ErrEmptyPatch
	}
	return r.store.Update(ctx, r.coll, id, fields)
}

// AddScore adds pts to the stored score of one house with a version-guarded
// read-modify-write, retrying on conflict. It returns the house as written.
func (r *Houses) AddScore(ctx context.Context, id string, pts int) (model.House, error) {
	for attempt := 0; attempt < r.maxRetries; attempt++ {
		h, err := r.Get(ctx, id)
		if err != nil {
			return model.House{}, err
		}
		err = r.store.UpdateIf(ctx, r.coll, id, h.Version, store.Document{"score": h.Score + pts})
		if errors.Is(err, store.ErrVersionConflict) {
			metrics.RecordVersionConflict()
			continue
		}
		if err != nil {
			return model.House{}, fmt.Errorf("add score to %s: %w", id, err)
		}
		metrics.RecordHouseWrite("score")
		h.Score += pts
		h.Version++
		return h, nil
	}
	return model.House{}, fmt.Errorf("add score to %s: %w", id, ErrContention)
}

// SetRankIf writes rank only if h is still the stored version.
func (r *Houses) SetRankIf(ctx context.Context, h model.House, rank int) error {
	err := r.store.UpdateIf(ctx, r.coll, h.ID, h.Version, store.Document{"rank": rank})
	if errors.Is(err, store.ErrVersionConflict) {
		metrics.RecordVersionConflict()
	}
	if err != nil {
		return fmt.Errorf("set rank of %s: %w", h.ID, err)
	}
	metrics.RecordHouseWrite("rank")
	return nil
}
