// Package api provides HTTP handlers for the NUX API.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ashureev/nux-coach/internal/config"
	"github.com/ashureev/nux-coach/internal/conversation"
	"github.com/ashureev/nux-coach/internal/metrics"
	"github.com/ashureev/nux-coach/internal/store"
)

// defaultMaxRequestBodySize is the default maximum allowed request body size (1MB).
const defaultMaxRequestBodySize = 1 << 20

// feedbackTimeout bounds the detached feedback write.
const feedbackTimeout = 5 * time.Second

// Handler serves the chat, session and utility endpoints.
type Handler struct {
	engine      *conversation.Engine
	repo        store.Repository
	cfg         *config.Config
	metrics     *metrics.Metrics
	rateLimiter *RateLimiter
	now         func() time.Time
}

// NewHandler creates a new Handler. cfg and m may be nil.
func NewHandler(engine *conversation.Engine, repo store.Repository, cfg *config.Config, m *metrics.Metrics) *Handler {
	requests, window := 20, time.Minute
	if cfg != nil {
		requests, window = cfg.RateLimit.Requests, cfg.RateLimit.Window
	}
	return &Handler{
		engine:      engine,
		repo:        repo,
		cfg:         cfg,
		metrics:     m,
		rateLimiter: NewRateLimiter(requests, window),
		now:         time.Now,
	}
}

// RegisterRoutes registers the API routes. Identity middleware must run
// before them.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Get("/config", h.HandleConfig)
		r.Get("/suggestions", h.HandleSuggestions)
		r.Get("/analysis", h.HandleAnalysis)

		r.Post("/chat", h.HandleChat)
		r.Post("/transcribe", h.HandleTranscribe)
		r.Post("/feedback", h.HandleFeedback)
		r.Get("/stats", h.HandleUserStats)
		r.Get("/leads", h.HandleListUserLeads)

		r.Route("/sessions", func(r chi.Router) {
			r.Get("/", h.HandleListSessions)
			r.Post("/", h.HandleCreateSession)
			r.Route("/{id}", func(r chi.Router) {
				r.Patch("/", h.HandleRenameSession)
				r.Delete("/", h.HandleDeleteSession)
				r.Post("/activate", h.HandleActivateSession)
				r.Get("/messages", h.HandleSessionMessages)
				r.Get("/context", h.HandleSessionContext)
				r.Get("/stats", h.HandleSessionStats)
				r.Post("/reset", h.HandleResetSession)
				r.Patch("/profile", h.HandleUpdateProfile)
				r.Put("/mode", h.HandleForceMode)
				r.Get("/leads", h.HandleListLeads)
				r.Post("/leads", h.HandleCreateLead)
				r.Patch("/leads/{leadID}", h.HandleUpdateLead)
			})
		})
	})
}

// Close releases handler resources.
func (h *Handler) Close() {
	h.rateLimiter.Stop()
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("failed to encode response", "error", err)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

func (h *Handler) maxBodySize() int64 {
	if h.cfg != nil && h.cfg.MaxRequestBodySize > 0 {
		return h.cfg.MaxRequestBodySize
	}
	return defaultMaxRequestBodySize
}

// decodeJSON reads a size limited JSON body into v and writes the error
// response itself when that fails.
func (h *Handler) decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBodySize())
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			Error(w, http.StatusRequestEntityTooLarge, "request body too large")
			return false
		}
		Error(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func (h *Handler) allow(w http.ResponseWriter, userID, route string) bool {
	if h.rateLimiter.Allow(userID) {
		return true
	}
	if h.metrics != nil {
		h.metrics.RateLimited.WithLabelValues(route).Inc()
	}
	Error(w, http.StatusTooManyRequests, "rate limit exceeded")
	return false
}
