package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/okian/housecup/internal/adapters/blob"
	"github.com/okian/housecup/internal/adapters/repository"
	"github.com/okian/housecup/internal/adapters/store"
	service "github.com/okian/housecup/internal/app"
	"github.com/okian/housecup/internal/domain/model"
	"github.com/okian/housecup/internal/domain/reconcile"
)

// Sentinel kinds for API errors.
var (
	ErrBadRequest   = errors.New("bad request")
	ErrStreaming    = errors.New("streaming unsupported")
	ErrNotAvailable = errors.New("not available")
)

// opError tags an error with the handler operation it came from.
type opError struct {
	op  string
	err error
}

func (e *opError) Error() string { return e.op + ": " + e.err.Error() }
func (e *opError) Unwrap() error { return e.err }

func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return &opError{op: op, err: err}
}

func badRequest(op string, err error) error {
	return &opError{op: op, err: fmt.Errorf("%w: %v", ErrBadRequest, err)}
}

// classify maps an error to a status code and a stable error code.
func classify(err error) (int, string) {
	var partial *reconcile.PartialWriteError
	switch {
	case errors.Is(err, ErrBadRequest),
		errors.Is(err, model.ErrInvalid),
		errors.Is(err, repository.ErrEmptyPatch),
		errors.Is(err, blob.ErrEmpty):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, store.ErrNotFound), errors.Is(err, ErrNotAvailable):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, service.ErrBusy):
		return http.StatusTooManyRequests, "backpressure"
	case errors.Is(err, store.ErrNotConfigured), errors.Is(err, blob.ErrNotConfigured):
		return http.StatusServiceUnavailable, "not_configured"
	case errors.Is(err, service.ErrNotStarted), errors.Is(err, service.ErrStopped):
		return http.StatusServiceUnavailable, "unavailable"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "timeout"
	case errors.As(err, &partial):
		return http.StatusInternalServerError, "partial_write"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}
