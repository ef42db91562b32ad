package api

import (
	"context"
	"net/http"

	"github.com/okian/housecup/internal/domain/model"
)

// HouseDependencies manages houses.
type HouseDependencies interface {
	AddHouse(ctx context.Context, name string, color model.Color) (string, error)
	UpdateHouse(ctx context.Context, id, name string, color model.Color) error
}

// HousesHandler handles house requests.
type HousesHandler struct {
	deps HouseDependencies
}

// NewHousesHandler creates a new houses handler.
func NewHousesHandler(deps HouseDependencies) *HousesHandler {
	return &HousesHandler{deps: deps}
}

type houseRequest struct {
	Name  string      `json:"name"`
	Color model.Color `json:"color"`
}

// HandlePostHouse handles POST /houses requests. New houses start at score 0
// ranked last.
func (h *HousesHandler) HandlePostHouse(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_house"
	var req houseRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, badRequest(op, err))
		return
	}
	id, err := h.deps.AddHouse(r.Context(), req.Name, req.Color)
	if err != nil {
		writeError(w, wrap(op, err))
		return
	}
	writeJSON(w, http.StatusCreated, idResponse{ID: id})
}

// HandlePatchHouse handles PATCH /houses/{id} requests. Only name and color
// can change; scores and ranks belong to the reconciler.
func (h *HousesHandler) HandlePatchHouse(w http.ResponseWriter, r *http.Request) {
	const op = "api.patch_house"
	var req houseRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, badRequest(op, err))
		return
	}
	if err := h.deps.UpdateHouse(r.Context(), r.PathValue("id"), req.Name, req.Color); err != nil {
		writeError(w, wrap(op, err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
