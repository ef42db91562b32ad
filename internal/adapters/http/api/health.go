package api

import (
	"context"
	"net/http"

	"github.com/okian/housecup/internal/domain/types"
)

// HealthHandler handles health and diagnostics requests.
type HealthHandler struct {
	view      interface{ Snapshot() types.Snapshot }
	diagnoser Diagnoser
}

// NewHealthHandler creates a new health handler. A nil diagnoser makes
// /diagnostics answer 404.
func NewHealthHandler(view interface{ Snapshot() types.Snapshot }, diagnoser Diagnoser) *HealthHandler {
	return &HealthHandler{view: view, diagnoser: diagnoser}
}

type healthResponse struct {
	Status  string `json:"status"`
	Loading bool   `json:"loading"`
}

// HandleHealth handles GET /healthz requests. The process is healthy once
// it serves HTTP; loading tells whether the live view has settled.
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok", Loading: h.view.Snapshot().Loading})
}

// HandleDiagnostics handles GET /diagnostics requests.
func (h *HealthHandler) HandleDiagnostics(w http.ResponseWriter, r *http.Request) {
	if h.diagnoser == nil {
		writeError(w, wrap("api.diagnostics", ErrNotAvailable))
		return
	}
	diag := h.diagnoser.Diagnose(context.WithoutCancel(r.Context()))
	status := http.StatusOK
	if !diag.Reachable {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, diag)
}
