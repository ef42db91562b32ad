package repository

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/okian/housecup/internal/adapters/blob"
	"github.com/okian/housecup/internal/adapters/store"
	"github.com/okian/housecup/internal/domain/model"
)

// Winners is the typed view over event winners. Photos go to a blob store.
type Winners struct {
	base
	blobs blob.Store
}

// NewWinners creates a Winners repository. A nil blob store rejects uploads.
func NewWinners(s store.Store, blobs blob.Store, opts ...Option) *Winners {
	if blobs == nil {
		blobs = blob.Unconfigured{}
	}
	return &Winners{base: newBase(s, WinnersCollection, WinnersOrder, opts), blobs: blobs}
}

// GetAll returns every winner ordered by position.
func (r *Winners) GetAll(ctx context.Context) ([]model.Winner, error) {
	return getAll(ctx, r.base, decodeWinner)
}

// Get returns one winner.
func (r *Winners) Get(ctx context.Context, id string) (model.Winner, error) {
	d, err := r.store.Get(ctx, r.coll, id)
	if err != nil {
		return model.Winner{}, err
	}
	return decodeWinner(d)
}

// Subscribe delivers the ordered winner list on every change.
func (r *Winners) Subscribe(ctx context.Context, fn func([]model.Winner)) (store.Subscription, error) {
	return subscribe(ctx, r.base, decodeWinner, fn)
}

// Add stores a winner.
func (r *Winners) Add(ctx context.Context, w model.Winner) (string, error) {
	if err := w.Validate(); err != nil {
		return "", err
	}
	return r.store.Add(ctx, r.coll, encodeWinner(w))
}

// UpdatePhoto sets the photo locator of a winner.
func (r *Winners) UpdatePhoto(ctx context.Context, id, url string) error {
	if strings.TrimSpace(url) == "" {
		return fmt.Errorf("%w: photo url is required", model.ErrInvalid)
	}
	return r.store.Update(ctx, r.coll, id, store.Document{"image": url})
}

// UploadPhoto stores a photo under the winner's key and returns its URL.
// The winner document is not modified.
func (r *Winners) UploadPhoto(ctx context.Context, winnerID, fileName, contentType string, body io.Reader) (string, error) {
	if strings.TrimSpace(winnerID) == "" {
		return "", fmt.Errorf("%w: winner id is required", model.ErrInvalid)
	}
	url, err := r.blobs.Put(ctx, blob.WinnerPhotoKey(winnerID, fileName), contentType, body)
	if err != nil {
		return "", fmt.Errorf("upload photo for %s: %w", winnerID, err)
	}
	return url, nil
}
