package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/ashureev/nux-coach/internal/config"
	"github.com/ashureev/nux-coach/internal/domain"
	"github.com/ashureev/nux-coach/internal/identity"
	"github.com/ashureev/nux-coach/internal/nux"
)

// HandleHealth reports process and database health.
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.repo.Ping(ctx); err != nil {
		JSON(w, http.StatusServiceUnavailable, map[string]string{
			"status":   "degraded",
			"database": "unreachable",
		})
		return
	}
	JSON(w, http.StatusOK, map[string]any{
		"status":          "ok",
		"database":        "ok",
		"active_sessions": h.engine.ActiveSessions(),
	})
}

var selectableModes = []domain.ModeType{
	domain.ModeAuto, domain.ModeReaktivierung, domain.ModeCoaching, domain.ModeUmsetzung,
}

// HandleConfig exposes the client relevant feature switches.
func (h *Handler) HandleConfig(w http.ResponseWriter, _ *http.Request) {
	generation := config.GenerationScripted
	if h.cfg != nil {
		generation = h.cfg.LLM.Generation
	}
	JSON(w, http.StatusOK, map[string]any{
		"generation":            generation,
		"generation_enabled":    h.engine.GenerationEnabled(),
		"transcription_enabled": h.engine.TranscriptionEnabled(),
		"modes":                 selectableModes,
		"session_header":        identity.SessionHeaderName,
	})
}

// HandleSuggestions returns the conversation starters for an empty chat.
func (h *Handler) HandleSuggestions(w http.ResponseWriter, _ *http.Request) {
	JSON(w, http.StatusOK, map[string]any{"suggestions": nux.Suggestions})
}

// HandleAnalysis computes the standalone lead analysis:
// GET /api/analysis?old=150&new=80&automation=true
func (h *Handler) HandleAnalysis(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	oldLeads, ok := parseCount(q.Get("old"))
	if !ok {
		Error(w, http.StatusBadRequest, "old must be a non-negative integer")
		return
	}
	newLeads, ok := parseCount(q.Get("new"))
	if !ok {
		Error(w, http.StatusBadRequest, "new must be a non-negative integer")
		return
	}
	automated := false
	if v := q.Get("automation"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			Error(w, http.StatusBadRequest, "automation must be a boolean")
			return
		}
		automated = b
	}

	a := nux.StandaloneAnalysis(oldLeads, newLeads, automated)
	JSON(w, http.StatusOK, map[string]any{
		"analysis":          a,
		"revenue_formatted": nux.FormatNumber(a.RevenueEstimate) + " €",
	})
}

func parseCount(s string) (int64, bool) {
	if s == "" {
		return 0, true
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n < 0 || n > 1_000_000_000 {
		return 0, false
	}
	return n, true
}
