package store

import "errors"

// Sentinel kinds for store errors.
var (
	ErrNotFound        = errors.New("document not found")
	ErrClosed          = errors.New("store closed")
	ErrNotConfigured   = errors.New("store not configured")
	ErrVersionConflict = errors.New("document version conflict")
	ErrInvalidDocument = errors.New("invalid document")
)
