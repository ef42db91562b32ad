package api

import (
	"context"
	"net/http"

	"github.com/okian/housecup/internal/domain/model"
)

// TemplateDependencies manages event templates.
type TemplateDependencies interface {
	AddEventTemplate(ctx context.Context, t model.EventTemplate) (string, error)
	UpdateEventTemplate(ctx context.Context, id string, p model.TemplatePatch) error
	DeleteEventTemplate(ctx context.Context, id string) error
}

// TemplatesHandler handles template requests.
type TemplatesHandler struct {
	deps TemplateDependencies
}

// NewTemplatesHandler creates a new templates handler.
func NewTemplatesHandler(deps TemplateDependencies) *TemplatesHandler {
	return &TemplatesHandler{deps: deps}
}

// HandlePostTemplate handles POST /templates requests.
func (h *TemplatesHandler) HandlePostTemplate(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_template"
	var t model.EventTemplate
	if err := decodeJSON(r, &t); err != nil {
		writeError(w, badRequest(op, err))
		return
	}
	t.ID = ""
	id, err := h.deps.AddEventTemplate(r.Context(), t)
	if err != nil {
		writeError(w, wrap(op, err))
		return
	}
	writeJSON(w, http.StatusCreated, idResponse{ID: id})
}

// HandlePatchTemplate handles PATCH /templates/{id} requests.
func (h *TemplatesHandler) HandlePatchTemplate(w http.ResponseWriter, r *http.Request) {
	const op = "api.patch_template"
	var p model.TemplatePatch
	if err := decodeJSON(r, &p); err != nil {
		writeError(w, badRequest(op, err))
		return
	}
	if err := h.deps.UpdateEventTemplate(r.Context(), r.PathValue("id"), p); err != nil {
		writeError(w, wrap(op, err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleDeleteTemplate handles DELETE /templates/{id} requests.
func (h *TemplatesHandler) HandleDeleteTemplate(w http.ResponseWriter, r *http.Request) {
	if err := h.deps.DeleteEventTemplate(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, wrap("api.delete_template", err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
