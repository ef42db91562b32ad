// Package store is a generic subscribable document collection.
//
// Every document carries three reserved fields assigned by the store:
// FieldID, FieldCreatedAt (RFC 3339 with nanoseconds) and FieldVersion, an
// integer bumped on every write. Snapshots are full ordered copies of a
// collection, never diffs.
package store

import "context"

// Reserved document fields.
const (
	FieldID        = "id"
	FieldCreatedAt = "createdAt"
	FieldVersion   = "version"
)

// Document is a loosely typed record. Values are JSON scalars.
type Document map[string]any

// Order sorts a collection by one field. Ties break by creation time, then id.
type Order struct {
	Field string
	Desc  bool
}

// Subscription is a live observation of one collection.
type Subscription interface {
	// Unsubscribe stops delivery. Safe to call more than once. A callback
	// already running may still complete.
	Unsubscribe()
}

// SnapshotFunc receives the full ordered collection. Calls for one
// subscription never overlap and arrive in change order.
type SnapshotFunc func(docs []Document)

// Store provides read/write/subscribe access to named collections.
type Store interface {
	// ReadAll returns every document of coll in order.
	ReadAll(ctx context.Context, coll string, order Order) ([]Document, error)
	// Get returns one document or ErrNotFound.
	Get(ctx context.Context, coll, id string) (Document, error)
	// Add strips nil and empty-string fields, stamps reserved fields and
	// returns the new id.
	Add(ctx context.Context, coll string, doc Document) (string, error)
	// Update merges fields into the document. A nil value removes the field.
	// Returns ErrNotFound for an unknown id.
	Update(ctx context.Context, coll, id string, fields Document) error
	// UpdateIf is Update guarded by the current version. Returns
	// ErrVersionConflict when the stored version differs.
	UpdateIf(ctx context.Context, coll, id string, version int64, fields Document) error
	// Delete removes a document. Returns ErrNotFound for an unknown id.
	Delete(ctx context.Context, coll, id string) error
	// Subscribe delivers the first snapshot right away and a fresh one after
	// every change. On a delivery failure the error is logged and the
	// subscription goes inert.
	Subscribe(ctx context.Context, coll string, order Order, fn SnapshotFunc) (Subscription, error)
	// Close releases resources. Later calls fail with ErrClosed.
	Close() error
}
