package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/okian/housecup/internal/domain/model"
	"github.com/okian/housecup/internal/domain/types"
	"github.com/okian/housecup/pkg/logger"
)

// IdempotencyHeader carries the optional idempotency key of POST /events.
const IdempotencyHeader = "Idempotency-Key"

// EventDependencies defines the interface for event processing dependencies.
type EventDependencies interface {
	AddEvent(ctx context.Context, key string, d model.EventDraft) (types.Submission, error)
	UpdateEvent(ctx context.Context, id string, p model.EventPatch) error
	DeleteEvent(ctx context.Context, id string) error
	Repair(ctx context.Context) (int, error)
}

// EventsHandler handles event requests.
type EventsHandler struct {
	deps   EventDependencies
	logger logger.Logger
}

// NewEventsHandler creates a new events handler.
func NewEventsHandler(deps EventDependencies, l logger.Logger) *EventsHandler {
	return &EventsHandler{deps: deps, logger: l}
}

// HandlePostEvent handles POST /events requests. The body is an event result
// without id and points. A repeated Idempotency-Key is answered with 200 and
// duplicate=true.
func (h *EventsHandler) HandlePostEvent(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_event"
	var d model.EventDraft
	if err := decodeJSON(r, &d); err != nil {
		writeError(w, badRequest(op, err))
		return
	}

	key := strings.TrimSpace(r.Header.Get(IdempotencyHeader))
	sub, err := h.deps.AddEvent(r.Context(), key, d)
	if err != nil {
		h.logger.Warn(r.Context(), "event submission failed",
			logger.String("house", d.House), logger.String("key", key), logger.Error(err))
		writeError(w, wrap(op, err))
		return
	}
	if sub.Duplicate {
		writeJSON(w, http.StatusOK, sub)
		return
	}
	writeJSON(w, http.StatusCreated, sub)
}

// HandlePatchEvent handles PATCH /events/{id} requests. Scores are not recomputed.
func (h *EventsHandler) HandlePatchEvent(w http.ResponseWriter, r *http.Request) {
	const op = "api.patch_event"
	var p model.EventPatch
	if err := decodeJSON(r, &p); err != nil {
		writeError(w, badRequest(op, err))
		return
	}
	if err := h.deps.UpdateEvent(r.Context(), r.PathValue("id"), p); err != nil {
		writeError(w, wrap(op, err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleDeleteEvent handles DELETE /events/{id} requests.
func (h *EventsHandler) HandleDeleteEvent(w http.ResponseWriter, r *http.Request) {
	if err := h.deps.DeleteEvent(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, wrap("api.delete_event", err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type repairResponse struct {
	Moved int `json:"moved"`
}

// HandleRepair handles POST /repair requests.
func (h *EventsHandler) HandleRepair(w http.ResponseWriter, r *http.Request) {
	moved, err := h.deps.Repair(r.Context())
	if err != nil {
		writeError(w, wrap("api.repair", err))
		return
	}
	writeJSON(w, http.StatusOK, repairResponse{Moved: moved})
}
