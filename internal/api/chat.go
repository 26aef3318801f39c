package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/ashureev/nux-coach/internal/conversation"
	"github.com/ashureev/nux-coach/internal/convlog"
	"github.com/ashureev/nux-coach/internal/domain"
	"github.com/ashureev/nux-coach/internal/identity"
	"github.com/ashureev/nux-coach/internal/nux"
)

const defaultMaxAudioBytes = 25 << 20

// ChatRequest is the body of POST /api/chat.
type ChatRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id,omitempty"`
	Stream    bool   `json:"stream,omitempty"`
}

// FeedbackRequest is the body of POST /api/feedback.
type FeedbackRequest struct {
	SessionID string `json:"session_id"`
	MessageID string `json:"message_id,omitempty"`
	Rating    int    `json:"rating"`
	Comment   string `json:"comment,omitempty"`
}

// HandleChat handles POST /api/chat. The reply is streamed as SSE when the
// client asks for it, otherwise returned as JSON.
func (h *Handler) HandleChat(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())
	if userID == "" {
		Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if !h.allow(w, userID, "chat") {
		return
	}

	var req ChatRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		Error(w, http.StatusBadRequest, "message is required")
		return
	}

	session, ok := h.resolveSession(w, r, userID, req.SessionID)
	if !ok {
		return
	}

	slog.Info("Chat request",
		"user_id", userID,
		"session_id", session.ID,
		"message_length", len(req.Message),
	)

	stream := req.Stream || strings.Contains(r.Header.Get("Accept"), "text/event-stream")
	if !stream {
		result, err := h.engine.HandleTurn(r.Context(), conversation.Turn{
			SessionID: session.ID,
			UserID:    userID,
			Text:      req.Message,
			Channel:   convlog.ChannelHTTP,
		})
		if err != nil {
			h.turnError(w, err)
			return
		}
		JSON(w, http.StatusOK, result)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	flusher, ok := w.(http.Flusher)
	if !ok {
		Error(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	typing, _ := json.Marshal(map[string]any{
		"session_id":        session.ID,
		"estimated_time_ms": conversation.EstimateResponseTime(len([]rune(req.Message)), 0.5).Milliseconds(),
	})
	if err := writeSSE(w, "typing", string(typing)); err != nil {
		slog.Warn("failed to write SSE typing event", "error", err)
		return
	}
	flusher.Flush()

	result, err := h.engine.HandleTurn(r.Context(), conversation.Turn{
		SessionID: session.ID,
		UserID:    userID,
		Text:      req.Message,
		Channel:   convlog.ChannelHTTP,
	})
	if err != nil {
		slog.Error("Chat turn failed", "error", err, "session_id", session.ID)
		if writeErr := writeSSE(w, "error", err.Error()); writeErr != nil {
			slog.Warn("failed to write SSE error event", "error", writeErr)
		}
		flusher.Flush()
		return
	}

	data, err := json.Marshal(result)
	if err != nil {
		slog.Warn("failed to marshal chat response", "error", err)
		if writeErr := writeSSE(w, "error", "failed to serialize response"); writeErr != nil {
			slog.Warn("failed to write SSE serialization error", "error", writeErr)
		}
		flusher.Flush()
		return
	}
	if err := writeSSE(w, "message", string(data)); err != nil {
		slog.Warn("failed to write SSE message event", "error", err)
		return
	}
	if err := writeSSE(w, "done", `{}`); err != nil {
		slog.Warn("failed to write SSE done event", "error", err)
		return
	}
	flusher.Flush()
}

func (h *Handler) turnError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, conversation.ErrEmptyMessage):
		Error(w, http.StatusBadRequest, "message is required")
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		Error(w, http.StatusRequestTimeout, "request canceled")
	default:
		slog.Error("Chat turn failed", "error", err)
		Error(w, http.StatusInternalServerError, nux.Apology)
	}
}

// HandleTranscribe handles POST /api/transcribe with a multipart "audio"
// (or "file") part. A successful transcription runs as a chat turn.
func (h *Handler) HandleTranscribe(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())
	if userID == "" {
		Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if !h.engine.TranscriptionEnabled() {
		JSON(w, http.StatusServiceUnavailable, map[string]any{
			"success": false,
			"error":   nux.TranscriptionNotConfigured,
		})
		return
	}
	if !h.allow(w, userID, "transcribe") {
		return
	}

	maxAudio := int64(defaultMaxAudioBytes)
	if h.cfg != nil && h.cfg.MaxAudioBytes > 0 {
		maxAudio = h.cfg.MaxAudioBytes
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxAudio+1<<20)
	if err := r.ParseMultipartForm(maxAudio); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			Error(w, http.StatusRequestEntityTooLarge, "audio too large")
			return
		}
		Error(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	file, header, err := r.FormFile("audio")
	if err != nil {
		file, header, err = r.FormFile("file")
	}
	if err != nil {
		Error(w, http.StatusBadRequest, "audio file is required")
		return
	}
	defer func() { _ = file.Close() }()

	audio, err := io.ReadAll(file)
	if err != nil {
		Error(w, http.StatusBadRequest, "failed to read audio")
		return
	}
	if len(audio) == 0 {
		Error(w, http.StatusBadRequest, "audio file is empty")
		return
	}

	session, ok := h.resolveSession(w, r, userID, r.FormValue("session_id"))
	if !ok {
		return
	}

	result, err := h.engine.HandleAudio(r.Context(), conversation.Turn{
		SessionID: session.ID,
		UserID:    userID,
		Channel:   convlog.ChannelVoice,
	}, audio, header.Filename)
	if err != nil {
		if errors.Is(err, conversation.ErrTranscriptionUnavailable) {
			JSON(w, http.StatusServiceUnavailable, map[string]any{
				"success": false,
				"error":   nux.TranscriptionNotConfigured,
			})
			return
		}
		h.turnError(w, err)
		return
	}

	JSON(w, http.StatusOK, map[string]any{
		"session_id":    session.ID,
		"success":       result.Transcription.Success,
		"text":          result.Transcription.Text,
		"error":         result.Transcription.Error,
		"transcription": result.Transcription,
		"turn":          result.Turn,
	})
}

// HandleFeedback handles POST /api/feedback. The write happens after the
// response, failures are only logged.
func (h *Handler) HandleFeedback(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())
	if userID == "" {
		Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req FeedbackRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}
	if !domain.ValidRating(req.Rating) {
		Error(w, http.StatusBadRequest, fmt.Sprintf("rating must be %d or %d", domain.RatingNegative, domain.RatingPositive))
		return
	}
	if req.SessionID == "" {
		req.SessionID = identity.SessionIDFromContext(r.Context())
	}
	if !identity.ValidSessionID(req.SessionID) || req.SessionID == identity.DefaultSessionIDValue {
		Error(w, http.StatusBadRequest, "session_id is required")
		return
	}

	fb := &domain.Feedback{
		ID:        uuid.NewString(),
		SessionID: req.SessionID,
		UserID:    userID,
		MessageID: req.MessageID,
		Rating:    req.Rating,
		Comment:   truncate(strings.TrimSpace(req.Comment), 2000),
		CreatedAt: h.now(),
	}
	if h.metrics != nil {
		h.metrics.FeedbackTotal.WithLabelValues(strconv.Itoa(fb.Rating)).Inc()
	}

	go func(ctx context.Context) {
		ctx, cancel := context.WithTimeout(ctx, feedbackTimeout)
		defer cancel()
		if err := h.repo.SaveFeedback(ctx, fb); err != nil {
			slog.Warn("Failed to save feedback", "error", err, "session_id", fb.SessionID)
			if h.metrics != nil {
				h.metrics.PersistenceErrors.WithLabelValues("save_feedback").Inc()
			}
		}
	}(context.WithoutCancel(r.Context()))

	JSON(w, http.StatusAccepted, map[string]string{"id": fb.ID, "status": "accepted"})
}

func writeSSE(w io.Writer, event, data string) error {
	_, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
	return err
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
