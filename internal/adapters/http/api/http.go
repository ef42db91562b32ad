// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/okian/housecup/internal/domain/types"
	"github.com/okian/housecup/pkg/logger"
	"github.com/okian/housecup/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	defaultMaxUploadBytes = 10 << 20
	defaultHeartbeat      = 15 * time.Second
	maxJSONBodyBytes      = 1 << 20
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	ViewDependencies
	EventDependencies
	TemplateDependencies
	HouseDependencies
	WinnerDependencies
	StatsProvider
}

// Diagnoser reports store reachability and collection counts.
type Diagnoser interface {
	Diagnose(ctx context.Context) types.Diagnostics
}

// BlobOpener serves objects kept in process memory.
type BlobOpener interface {
	Open(key string) (data []byte, contentType string, ok bool)
}

// Option configures a Server.
type Option func(*Server)

// WithDiagnoser enables GET /diagnostics.
func WithDiagnoser(d Diagnoser) Option {
	return func(s *Server) { s.diagnoser = d }
}

// WithBlobs enables GET /blobs/{key...} for in-memory photos.
func WithBlobs(b BlobOpener) Option {
	return func(s *Server) { s.blobs = b }
}

// WithMaxUploadBytes bounds multipart photo uploads.
func WithMaxUploadBytes(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxUploadBytes = n
		}
	}
}

// WithHeartbeat sets the keep-alive interval of the snapshot stream.
func WithHeartbeat(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.heartbeat = d
		}
	}
}

// WithLogger sets a custom logger for the handlers.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// Server wires HTTP routes for the business API.
type Server struct {
	deps      Dependencies
	diagnoser Diagnoser
	blobs     BlobOpener

	maxUploadBytes int64
	heartbeat      time.Duration
	logger         logger.Logger

	healthHandler   *HealthHandler
	statsHandler    *StatsHandler
	viewHandler     *ViewHandler
	eventsHandler   *EventsHandler
	templateHandler *TemplatesHandler
	houseHandler    *HousesHandler
	winnerHandler   *WinnersHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, opts ...Option) *Server {
	s := &Server{
		deps:           deps,
		maxUploadBytes: defaultMaxUploadBytes,
		heartbeat:      defaultHeartbeat,
		logger:         logger.Get().Named("api"),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.healthHandler = NewHealthHandler(deps, s.diagnoser)
	s.statsHandler = NewStatsHandler(deps)
	s.viewHandler = NewViewHandler(deps, s.heartbeat, s.logger)
	s.eventsHandler = NewEventsHandler(deps, s.logger)
	s.templateHandler = NewTemplatesHandler(deps)
	s.houseHandler = NewHousesHandler(deps)
	s.winnerHandler = NewWinnersHandler(deps, s.maxUploadBytes)
	return s
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("GET /diagnostics", MetricsMiddleware(s.healthHandler.HandleDiagnostics, "diagnostics"))
	mux.Handle("GET /metrics", promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{}))
	mux.HandleFunc("GET /stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))

	mux.HandleFunc("GET /snapshot", MetricsMiddleware(s.viewHandler.HandleSnapshot, "snapshot"))
	mux.HandleFunc("GET /houses", MetricsMiddleware(s.viewHandler.HandleHouses, "houses"))
	mux.HandleFunc("GET /stream", MetricsMiddleware(s.viewHandler.HandleStream, "stream"))

	mux.HandleFunc("POST /events", MetricsMiddleware(s.eventsHandler.HandlePostEvent, "events"))
	mux.HandleFunc("PATCH /events/{id}", MetricsMiddleware(s.eventsHandler.HandlePatchEvent, "events"))
	mux.HandleFunc("DELETE /events/{id}", MetricsMiddleware(s.eventsHandler.HandleDeleteEvent, "events"))
	mux.HandleFunc("POST /repair", MetricsMiddleware(s.eventsHandler.HandleRepair, "repair"))

	mux.HandleFunc("POST /templates", MetricsMiddleware(s.templateHandler.HandlePostTemplate, "templates"))
	mux.HandleFunc("PATCH /templates/{id}", MetricsMiddleware(s.templateHandler.HandlePatchTemplate, "templates"))
	mux.HandleFunc("DELETE /templates/{id}", MetricsMiddleware(s.templateHandler.HandleDeleteTemplate, "templates"))

	mux.HandleFunc("POST /houses", MetricsMiddleware(s.houseHandler.HandlePostHouse, "houses"))
	mux.HandleFunc("PATCH /houses/{id}", MetricsMiddleware(s.houseHandler.HandlePatchHouse, "houses"))

	mux.HandleFunc("POST /winners", MetricsMiddleware(s.winnerHandler.HandlePostWinner, "winners"))
	mux.HandleFunc("PUT /winners/{id}/photo", MetricsMiddleware(s.winnerHandler.HandlePutPhoto, "winner_photo"))
	mux.HandleFunc("POST /winners/{id}/photo", MetricsMiddleware(s.winnerHandler.HandleUploadPhoto, "winner_photo"))

	if s.blobs != nil {
		mux.HandleFunc("GET /blobs/{key...}", MetricsMiddleware(s.handleBlob, "blobs"))
	}
}

func (s *Server) handleBlob(w http.ResponseWriter, r *http.Request) {
	data, contentType, ok := s.blobs.Open(r.PathValue("key"))
	if !ok {
		writeError(w, wrap("api.get_blob", ErrNotAvailable))
		return
	}
	if contentType != "" {
		w.Header().Set("Content-Type", contentType)
	}
	w.Header().Set("Cache-Control", "public, max-age=3600")
	_, _ = w.Write(data)
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type idResponse struct {
	ID string `json:"id"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	status, code := classify(err)
	writeJSON(w, status, errorResponse{Code: code, Message: err.Error()})
}

// decodeJSON reads a bounded JSON body into v, rejecting unknown fields.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxJSONBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}
