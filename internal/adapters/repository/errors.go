package repository

import "errors"

// Sentinel kinds for repository errors.
var (
	// ErrContention is returned when a guarded write keeps losing to
	// concurrent writers.
	ErrContention = errors.New("too many concurrent writes")
	// ErrEmptyPatch is returned when an update carries no fields.
	ErrEmptyPatch = errors.New("nothing to update")
)
