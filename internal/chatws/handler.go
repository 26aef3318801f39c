package chatws

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"golang.org/x/time/rate"

	"github.com/ashureev/nux-coach/internal/conversation"
	"github.com/ashureev/nux-coach/internal/convlog"
	"github.com/ashureev/nux-coach/internal/domain"
	"github.com/ashureev/nux-coach/internal/identity"
	"github.com/ashureev/nux-coach/internal/nux"
)

// Inbound message types.
const (
	TypeMessage = "message"
	TypePing    = "ping"
	TypeContext = "context"
)

// Outbound message types.
const (
	TypeTyping = "typing"
	TypePong   = "pong"
	TypeError  = "error"
)

const maxMessageBytes = 64 << 10

// SessionStore is the part of the repository the chat socket needs.
type SessionStore interface {
	conversation.SessionStore
	UpdateLastSeen(ctx context.Context, userID string, lastSeen time.Time) error
}

// Inbound is a client frame.
type Inbound struct {
	Type    string `json:"type"`
	Content string `json:"content,omitempty"`
}

// Outbound is a server frame.
type Outbound struct {
	Type          string                   `json:"type"`
	SessionID     string                   `json:"session_id,omitempty"`
	EstimatedTime int64                    `json:"estimated_time_ms,omitempty"`
	Result        *conversation.TurnResult `json:"result,omitempty"`
	State         *conversation.Snapshot   `json:"state,omitempty"`
	Error         string                   `json:"error,omitempty"`
}

// Handler upgrades /ws/chat requests and runs one chat loop per connection.
type Handler struct {
	engine        *conversation.Engine
	repo          SessionStore
	mgr           *Manager
	allowedOrigin string
	isDev         bool
	burst         int
	every         time.Duration
}

// NewHandler creates a WebSocket chat handler.
func NewHandler(engine *conversation.Engine, repo SessionStore, mgr *Manager, allowedOrigin string, isDev bool) *Handler {
	return &Handler{
		engine:        engine,
		repo:          repo,
		mgr:           mgr,
		allowedOrigin: allowedOrigin,
		isDev:         isDev,
		burst:         5,
		every:         2 * time.Second,
	}
}

// ServeHTTP implements http.Handler for the WebSocket upgrade.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())
	if userID == "" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	if !h.checkOrigin(r) {
		http.Error(w, "origin not allowed", http.StatusForbidden)
		return
	}

	session, status := h.resolveSession(r, userID)
	if status != http.StatusOK {
		http.Error(w, http.StatusText(status), status)
		return
	}
	slog.Info("Chat WebSocket request", "user_id", userID, "session_id", session.ID, "ip", identity.IPFromRequest(r))

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		slog.Error("Failed to accept WebSocket", "error", err, "user_id", userID)
		return
	}
	ws.SetReadLimit(maxMessageBytes)
	defer func() {
		if closeErr := ws.Close(websocket.StatusNormalClosure, "session ended"); closeErr != nil {
			slog.Debug("Failed to close websocket", "error", closeErr, "user_id", userID)
		}
	}()

	h.mgr.Register(session.ID, userID, ws)
	defer h.mgr.Unregister(session.ID, ws)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	state := h.engine.Snapshot(ctx, session.ID)
	if err := wsjson.Write(ctx, ws, Outbound{Type: TypeContext, SessionID: session.ID, State: &state}); err != nil {
		slog.Debug("Failed to send initial context", "error", err)
		return
	}

	h.readLoop(ctx, ws, userID, session.ID)
	slog.Info("Chat WebSocket ended", "user_id", userID, "session_id", session.ID)
}

// resolveSession picks the session from the query or the session header,
// creating it when it does not exist yet.
func (h *Handler) resolveSession(r *http.Request, userID string) (*domain.Session, int) {
	id := strings.TrimSpace(r.URL.Query().Get("session_id"))
	if id == "" {
		id = identity.SessionIDFromContext(r.Context())
	}
	session, err := conversation.ResolveSession(r.Context(), h.repo, userID, id, time.Now())
	switch {
	case err == nil:
		return session, http.StatusOK
	case errors.Is(err, conversation.ErrInvalidSession):
		return nil, http.StatusBadRequest
	case errors.Is(err, conversation.ErrSessionNotFound):
		return nil, http.StatusNotFound
	default:
		return nil, http.StatusServiceUnavailable
	}
}

func (h *Handler) checkOrigin(r *http.Request) bool {
	if h.isDev {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" || h.allowedOrigin == "" || h.allowedOrigin == "*" {
		return true
	}
	if origin == h.allowedOrigin {
		return true
	}
	slog.Warn("WebSocket origin rejected", "origin", origin, "allowed", h.allowedOrigin)
	return false
}

func (h *Handler) readLoop(ctx context.Context, ws *websocket.Conn, userID, sessionID string) {
	limiter := rate.NewLimiter(rate.Every(h.every), h.burst)
	for {
		var msg Inbound
		if err := wsjson.Read(ctx, ws, &msg); err != nil {
			if websocket.CloseStatus(err) != -1 || errors.Is(err, context.Canceled) {
				slog.Debug("WebSocket closed by client", "user_id", userID)
			} else {
				slog.Warn("WebSocket read error", "error", err, "user_id", userID)
			}
			return
		}

		switch msg.Type {
		case TypeMessage:
			if !limiter.Allow() {
				h.reply(ctx, ws, Outbound{Type: TypeError, SessionID: sessionID, Error: "rate limit exceeded"})
				continue
			}
			h.handleMessage(ctx, ws, userID, sessionID, msg.Content)
		case TypePing:
			h.reply(ctx, ws, Outbound{Type: TypePong})
		case TypeContext:
			state := h.engine.Snapshot(ctx, sessionID)
			h.reply(ctx, ws, Outbound{Type: TypeContext, SessionID: sessionID, State: &state})
		default:
			h.reply(ctx, ws, Outbound{Type: TypeError, Error: "unknown message type"})
			continue
		}

		go func() {
			updateCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := h.repo.UpdateLastSeen(updateCtx, userID, time.Now()); err != nil {
				slog.Warn("Failed to update last seen", "error", err)
			}
		}()
	}
}

// handleMessage runs one turn. The typing hint goes to the sender only, the
// result to every connection of the session.
func (h *Handler) handleMessage(ctx context.Context, ws *websocket.Conn, userID, sessionID, text string) {
	if strings.TrimSpace(text) == "" {
		h.reply(ctx, ws, Outbound{Type: TypeError, SessionID: sessionID, Error: "message is required"})
		return
	}

	h.reply(ctx, ws, Outbound{
		Type:          TypeTyping,
		SessionID:     sessionID,
		EstimatedTime: conversation.EstimateResponseTime(len([]rune(text)), 0.5).Milliseconds(),
	})

	result, err := h.engine.HandleTurn(ctx, conversation.Turn{
		SessionID: sessionID,
		UserID:    userID,
		Text:      text,
		Channel:   convlog.ChannelWebSocket,
	})
	if err != nil {
		slog.Error("Chat turn failed", "error", err, "session_id", sessionID)
		h.reply(ctx, ws, Outbound{Type: TypeError, SessionID: sessionID, Error: nux.Apology})
		return
	}
	h.mgr.Broadcast(ctx, sessionID, Outbound{Type: TypeMessage, SessionID: sessionID, Result: result})
}

func (h *Handler) reply(ctx context.Context, ws *websocket.Conn, out Outbound) {
	if err := wsjson.Write(ctx, ws, out); err != nil {
		slog.Debug("Failed to write WebSocket frame", "type", out.Type, "error", err)
	}
}
