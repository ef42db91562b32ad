package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/okian/housecup/internal/domain/types"
	"github.com/okian/housecup/pkg/logger"
)

// ViewDependencies exposes the live view.
type ViewDependencies interface {
	Snapshot() types.Snapshot
	Watch(ctx context.Context) <-chan types.Snapshot
}

// ViewHandler serves the live view.
type ViewHandler struct {
	deps      ViewDependencies
	heartbeat time.Duration
	logger    logger.Logger
}

// NewViewHandler creates a new view handler.
func NewViewHandler(deps ViewDependencies, heartbeat time.Duration, l logger.Logger) *ViewHandler {
	return &ViewHandler{deps: deps, heartbeat: heartbeat, logger: l}
}

// HandleSnapshot handles GET /snapshot requests.
func (h *ViewHandler) HandleSnapshot(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.deps.Snapshot())
}

// HandleHouses handles GET /houses requests. Houses come ordered by rank.
func (h *ViewHandler) HandleHouses(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.deps.Snapshot().Houses)
}

// HandleStream handles GET /stream requests with Server-Sent Events. Each
// "snapshot" event carries the full view; slow readers skip to the latest.
func (h *ViewHandler) HandleStream(w http.ResponseWriter, r *http.Request) {
	const op = "api.stream"
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, wrap(op, ErrStreaming))
		return
	}

	// The stream outlives the server write timeout.
	_ = http.NewResponseController(w).SetWriteDeadline(time.Time{})

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ctx := r.Context()
	snapshots := h.deps.Watch(ctx)
	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": keep-alive\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case snap, ok := <-snapshots:
			if !ok {
				return
			}
			data, err := json.Marshal(snap)
			if err != nil {
				h.logger.Error(ctx, "encode snapshot", logger.Error(err))
				return
			}
			if _, err := fmt.Fprintf(w, "event: snapshot\ndata: %s\n\n", data); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
