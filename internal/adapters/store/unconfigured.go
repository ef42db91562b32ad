package store

import (
	"context"
	"fmt"
)

// Unconfigured is the Store used when backend credentials are missing.
// Every call fails with ErrNotConfigured.
type Unconfigured struct {
	Reason string
}

var _ Store = Unconfigured{}

func (u Unconfigured) err() error {
	if u.Reason == "" {
		return ErrNotConfigured
	}
	return fmt.Errorf("%w: %s", ErrNotConfigured, u.Reason)
}

// ReadAll implements Store.
func (u Unconfigured) ReadAll(context.Context, string, Order) ([]Document, error) {
	return nil, u.err()
}

// Get implements Store.
func (u Unconfigured) Get(context.Context, string, string) (Document, error) { return nil, u.err() }

// Add implements Store.
func (u Unconfigured) Add(context.Context, string, Document) (string, error) { return "", u.err() }

// Update implements Store.
func (u Unconfigured) Update(context.Context, string, string, Document) error { return u.err() }

// UpdateIf implements Store.
func (u Unconfigured) UpdateIf(context.Context, string, string, int64, Document) error {
	return u.err()
}

// Delete implements Store.
func (u Unconfigured) Delete(context.Context, string, string) error { return u.err() }

// Subscribe implements Store.
func (u Unconfigured) Subscribe(context.Context, string, Order, SnapshotFunc) (Subscription, error) {
	return nil, u.err()
}

// Close implements Store.
func (u Unconfigured) Close() error { return nil }
