package api

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/okian/housecup/internal/domain/model"
)

const photoField = "file"

// WinnerDependencies manages winners and their photos.
type WinnerDependencies interface {
	AddWinner(ctx context.Context, w model.Winner) (string, error)
	AddWinnerPhoto(ctx context.Context, winnerID, url string) error
	UploadWinnerPhoto(ctx context.Context, winnerID, fileName, contentType string, body io.Reader) (string, error)
}

// WinnersHandler handles winner requests.
type WinnersHandler struct {
	deps           WinnerDependencies
	maxUploadBytes int64
}

// NewWinnersHandler creates a new winners handler.
func NewWinnersHandler(deps WinnerDependencies, maxUploadBytes int64) *WinnersHandler {
	return &WinnersHandler{deps: deps, maxUploadBytes: maxUploadBytes}
}

type photoRequest struct {
	URL string `json:"url"`
}

type photoResponse struct {
	URL string `json:"url"`
}

// HandlePostWinner handles POST /winners requests.
func (h *WinnersHandler) HandlePostWinner(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_winner"
	var win model.Winner
	if err := decodeJSON(r, &win); err != nil {
		writeError(w, badRequest(op, err))
		return
	}
	win.ID = ""
	id, err := h.deps.AddWinner(r.Context(), win)
	if err != nil {
		writeError(w, wrap(op, err))
		return
	}
	writeJSON(w, http.StatusCreated, idResponse{ID: id})
}

// HandlePutPhoto handles PUT /winners/{id}/photo requests carrying an
// already hosted photo URL.
func (h *WinnersHandler) HandlePutPhoto(w http.ResponseWriter, r *http.Request) {
	const op = "api.put_winner_photo"
	var req photoRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, badRequest(op, err))
		return
	}
	if err := h.deps.AddWinnerPhoto(r.Context(), r.PathValue("id"), req.URL); err != nil {
		writeError(w, wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, photoResponse(req))
}

// HandleUploadPhoto handles POST /winners/{id}/photo multipart uploads. The
// photo is read from the "file" field.
func (h *WinnersHandler) HandleUploadPhoto(w http.ResponseWriter, r *http.Request) {
	const op = "api.upload_winner_photo"
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	file, header, err := r.FormFile(photoField)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse{Code: "too_large", Message: err.Error()})
			return
		}
		writeError(w, badRequest(op, err))
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	url, err := h.deps.UploadWinnerPhoto(r.Context(), r.PathValue("id"), header.Filename, contentType, file)
	if err != nil {
		writeError(w, wrap(op, err))
		return
	}
	writeJSON(w, http.StatusCreated, photoResponse{URL: url})
}
