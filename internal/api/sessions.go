package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/ashureev/nux-coach/internal/conversation"
	"github.com/ashureev/nux-coach/internal/domain"
	"github.com/ashureev/nux-coach/internal/identity"
	"github.com/ashureev/nux-coach/internal/store"
)

const (
	defaultSessionListLimit = 50
	maxSessionListLimit     = 200
	maxSessionNameRunes     = 120
)

// resolveSession finds the session a chat request belongs to. An explicit
// ID wins over the session header.
func (h *Handler) resolveSession(w http.ResponseWriter, r *http.Request, userID, requested string) (*domain.Session, bool) {
	id := strings.TrimSpace(requested)
	if id == "" {
		id = identity.SessionIDFromContext(r.Context())
	}
	session, err := conversation.ResolveSession(r.Context(), h.repo, userID, id, h.now())
	switch {
	case err == nil:
		return session, true
	case errors.Is(err, conversation.ErrInvalidSession):
		Error(w, http.StatusBadRequest, "invalid session_id")
	case errors.Is(err, conversation.ErrSessionNotFound):
		Error(w, http.StatusNotFound, "session not found")
	default:
		Error(w, http.StatusServiceUnavailable, "session store unavailable")
	}
	return nil, false
}

// ownedSession loads the {id} session and checks it belongs to the caller.
func (h *Handler) ownedSession(w http.ResponseWriter, r *http.Request) (*domain.Session, bool) {
	userID := identity.UserIDFromContext(r.Context())
	if userID == "" {
		Error(w, http.StatusUnauthorized, "unauthorized")
		return nil, false
	}
	id := chi.URLParam(r, "id")
	if !identity.ValidSessionID(id) {
		Error(w, http.StatusBadRequest, "invalid session id")
		return nil, false
	}
	session, err := h.repo.GetSession(r.Context(), id)
	if err != nil {
		slog.Error("Failed to load session", "session_id", id, "error", err)
		Error(w, http.StatusInternalServerError, "failed to load session")
		return nil, false
	}
	if session == nil || session.UserID != userID {
		Error(w, http.StatusNotFound, "session not found")
		return nil, false
	}
	return session, true
}

// HandleListSessions handles GET /api/sessions?limit=N.
func (h *Handler) HandleListSessions(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())
	if userID == "" {
		Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	limit := defaultSessionListLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			Error(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxSessionListLimit)
	}

	sessions, err := h.repo.ListSessions(r.Context(), userID, limit)
	if err != nil {
		slog.Error("Failed to list sessions", "user_id", userID, "error", err)
		Error(w, http.StatusInternalServerError, "failed to list sessions")
		return
	}
	JSON(w, http.StatusOK, map[string]any{"sessions": sessions})
}

type sessionNameRequest struct {
	Name string `json:"name"`
}

// HandleCreateSession handles POST /api/sessions with an optional name.
func (h *Handler) HandleCreateSession(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())
	if userID == "" {
		Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req sessionNameRequest
	if r.ContentLength > 0 && !h.decodeJSON(w, r, &req) {
		return
	}

	now := h.now()
	name := truncate(strings.TrimSpace(req.Name), maxSessionNameRunes)
	if name == "" {
		name = conversation.SessionName(now)
	}
	session := &domain.Session{
		ID:           uuid.NewString(),
		UserID:       userID,
		Name:         name,
		CreatedAt:    now,
		LastActiveAt: now,
	}
	if err := h.repo.CreateSession(r.Context(), session); err != nil {
		slog.Error("Failed to create session", "user_id", userID, "error", err)
		Error(w, http.StatusInternalServerError, "failed to create session")
		return
	}
	slog.Info("Session created", "user_id", userID, "session_id", session.ID)
	JSON(w, http.StatusCreated, session)
}

// HandleRenameSession handles PATCH /api/sessions/{id}.
func (h *Handler) HandleRenameSession(w http.ResponseWriter, r *http.Request) {
	session, ok := h.ownedSession(w, r)
	if !ok {
		return
	}
	var req sessionNameRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}
	name := truncate(strings.TrimSpace(req.Name), maxSessionNameRunes)
	if name == "" {
		Error(w, http.StatusBadRequest, "name is required")
		return
	}
	if err := h.repo.RenameSession(r.Context(), session.ID, name); err != nil {
		h.storeError(w, "rename session", err)
		return
	}
	session.Name = name
	JSON(w, http.StatusOK, session)
}

// HandleDeleteSession handles DELETE /api/sessions/{id}.
func (h *Handler) HandleDeleteSession(w http.ResponseWriter, r *http.Request) {
	session, ok := h.ownedSession(w, r)
	if !ok {
		return
	}
	if err := h.repo.DeleteSession(r.Context(), session.ID); err != nil {
		h.storeError(w, "delete session", err)
		return
	}
	h.engine.Forget(session.ID)
	slog.Info("Session deleted", "session_id", session.ID)
	w.WriteHeader(http.StatusNoContent)
}

// HandleActivateSession handles POST /api/sessions/{id}/activate: it marks
// the session active and returns its transcript and state so the client can
// switch to it.
func (h *Handler) HandleActivateSession(w http.ResponseWriter, r *http.Request) {
	session, ok := h.ownedSession(w, r)
	if !ok {
		return
	}
	now := h.now()
	if err := h.repo.TouchSession(r.Context(), session.ID, now); err != nil {
		slog.Warn("Failed to touch session", "session_id", session.ID, "error", err)
	}
	session.LastActiveAt = now

	messages, err := h.repo.LoadHistory(r.Context(), session.ID, h.historyLimit())
	if err != nil {
		slog.Warn("Failed to load history", "session_id", session.ID, "error", err)
		messages = []domain.ChatMessage{}
	}
	JSON(w, http.StatusOK, map[string]any{
		"session":  session,
		"messages": messages,
		"state":    h.engine.Snapshot(r.Context(), session.ID),
	})
}

// HandleSessionMessages handles GET /api/sessions/{id}/messages?limit=N.
func (h *Handler) HandleSessionMessages(w http.ResponseWriter, r *http.Request) {
	session, ok := h.ownedSession(w, r)
	if !ok {
		return
	}
	limit := h.historyLimit()
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			Error(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, 500)
	}
	messages, err := h.repo.LoadHistory(r.Context(), session.ID, limit)
	if err != nil {
		h.storeError(w, "load history", err)
		return
	}
	JSON(w, http.StatusOK, map[string]any{"messages": messages})
}

// HandleSessionContext handles GET /api/sessions/{id}/context.
func (h *Handler) HandleSessionContext(w http.ResponseWriter, r *http.Request) {
	session, ok := h.ownedSession(w, r)
	if !ok {
		return
	}
	JSON(w, http.StatusOK, h.engine.Snapshot(r.Context(), session.ID))
}

// HandleSessionStats handles GET /api/sessions/{id}/stats.
func (h *Handler) HandleSessionStats(w http.ResponseWriter, r *http.Request) {
	session, ok := h.ownedSession(w, r)
	if !ok {
		return
	}
	stats, err := h.repo.SessionStats(r.Context(), session.ID)
	if err != nil {
		h.storeError(w, "session stats", err)
		return
	}
	JSON(w, http.StatusOK, stats)
}

// HandleUserStats handles GET /api/stats.
func (h *Handler) HandleUserStats(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())
	if userID == "" {
		Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	stats, err := h.repo.UserStats(r.Context(), userID)
	if err != nil {
		h.storeError(w, "user stats", err)
		return
	}
	JSON(w, http.StatusOK, stats)
}

// HandleResetSession handles POST /api/sessions/{id}/reset.
func (h *Handler) HandleResetSession(w http.ResponseWriter, r *http.Request) {
	session, ok := h.ownedSession(w, r)
	if !ok {
		return
	}
	JSON(w, http.StatusOK, h.engine.Reset(r.Context(), session.ID))
}

// HandleUpdateProfile handles PATCH /api/sessions/{id}/profile. Set fields
// of the body are merged into the profile.
func (h *Handler) HandleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	session, ok := h.ownedSession(w, r)
	if !ok {
		return
	}
	var patch domain.UserProfile
	if !h.decodeJSON(w, r, &patch) {
		return
	}
	JSON(w, http.StatusOK, h.engine.UpdateProfile(r.Context(), session.ID, patch))
}

type modeRequest struct {
	Mode domain.ModeType `json:"mode"`
}

// HandleForceMode handles PUT /api/sessions/{id}/mode.
func (h *Handler) HandleForceMode(w http.ResponseWriter, r *http.Request) {
	session, ok := h.ownedSession(w, r)
	if !ok {
		return
	}
	var req modeRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}
	snap, err := h.engine.ForceMode(r.Context(), session.ID, req.Mode)
	if err != nil {
		if errors.Is(err, conversation.ErrInvalidMode) {
			Error(w, http.StatusBadRequest, "unknown mode")
			return
		}
		Error(w, http.StatusInternalServerError, "failed to set mode")
		return
	}
	JSON(w, http.StatusOK, snap)
}

func (h *Handler) historyLimit() int {
	if h.cfg != nil && h.cfg.Session.HistoryLimit > 0 {
		return h.cfg.Session.HistoryLimit
	}
	return 50
}

func (h *Handler) storeError(w http.ResponseWriter, op string, err error) {
	if errors.Is(err, store.ErrNotFound) {
		Error(w, http.StatusNotFound, "not found")
		return
	}
	slog.Error("Store operation failed", "op", op, "error", err)
	Error(w, http.StatusInternalServerError, "failed to "+op)
}
