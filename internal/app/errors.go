package service

import "errors"

// Sentinel error kinds for this package.
var (
	ErrNotStarted = errors.New("live view not started")
	ErrStopped    = errors.New("live view stopped")
	// ErrBusy is returned when the reconciler queue is full.
	ErrBusy = errors.New("reconciler busy")
)
