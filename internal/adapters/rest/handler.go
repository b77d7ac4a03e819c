package rest

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/ewilliams-labs/vocalis/internal/core/domain"
	"github.com/ewilliams-labs/vocalis/internal/core/services"
	"github.com/ewilliams-labs/vocalis/internal/inference"
	"github.com/ewilliams-labs/vocalis/internal/worker"
)

// DefaultMaxUploadBytes caps multipart uploads when no limit is configured.
const DefaultMaxUploadBytes = 32 << 20

// ModelCatalog is the read side of the model registry.
type ModelCatalog interface {
	List() []inference.Model
	Get(name string) (inference.Model, error)
	Predict(ctx context.Context, name string, inputs map[string]any) (domain.Prediction, error)
}

// Handler manages the HTTP interface for our application.
type Handler struct {
	companion *services.Companion
	voice     *services.Voice
	models    ModelCatalog
	jobs      *worker.Pool
	maxUpload int64
	logger    *slog.Logger
	router    *http.ServeMux
}

// Option customizes a Handler.
type Option func(*Handler)

// WithJobs enables the async synthesis endpoints.
func WithJobs(p *worker.Pool) Option {
	return func(h *Handler) { h.jobs = p }
}

// WithMaxUploadBytes caps the size of audio uploads.
func WithMaxUploadBytes(n int64) Option {
	return func(h *Handler) {
		if n > 0 {
			h.maxUpload = n
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(h *Handler) {
		if l != nil {
			h.logger = l
		}
	}
}

// NewHandler initializes the HTTP adapter and sets up routes.
func NewHandler(companion *services.Companion, voice *services.Voice, models ModelCatalog, opts ...Option) *Handler {
	h := &Handler{
		companion: companion,
		voice:     voice,
		models:    models,
		maxUpload: DefaultMaxUploadBytes,
		logger:    slog.Default(),
		router:    http.NewServeMux(),
	}
	for _, opt := range opts {
		opt(h)
	}

	h.routes()

	return h
}

// ServeHTTP satisfies the http.Handler interface.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

// routes defines the mapping between URLs and methods.
func (h *Handler) routes() {
	h.router.HandleFunc("GET /health", h.HealthCheck)

	// Models
	h.router.HandleFunc("GET /models", h.ListModels)
	h.router.HandleFunc("GET /models/{name}", h.GetModel)
	h.router.HandleFunc("POST /models/{name}/predict", h.Predict)

	// Companion
	h.router.HandleFunc("POST /recommendations", h.Recommend)
	h.router.HandleFunc("GET /history", h.History)
	h.router.HandleFunc("GET /rules", h.Rules)
	h.router.HandleFunc("POST /mood", h.DetectMood)

	// Voice
	h.router.HandleFunc("POST /voice/synthesize", h.Synthesize)
	h.router.HandleFunc("POST /voice/analyze", h.Analyze)
	h.router.HandleFunc("POST /voice/jobs", h.SubmitJob)
	h.router.HandleFunc("GET /voice/jobs/{id}", h.GetJob)
	h.router.HandleFunc("GET /voice/jobs/{id}/audio", h.GetJobAudio)
}

// HealthCheck is a simple endpoint to verify the API is running.
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	models := 0
	if h.models != nil {
		models = len(h.models.List())
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"message": "Vocalis is live 🎙️",
		"models":  models,
		"jobs":    h.jobs != nil,
	})
}
