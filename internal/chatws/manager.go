// Package chatws serves the chat over WebSocket and fans replies out to
// every connection that has the same session open.
package chatws

import (
	"context"
	"log/slog"
	"sync"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
)

// Manager tracks the open connections per chat session.
type Manager struct {
	mu     sync.RWMutex
	active map[string]map[*websocket.Conn]string
}

// NewManager creates an empty connection manager.
func NewManager() *Manager {
	return &Manager{
		active: make(map[string]map[*websocket.Conn]string),
	}
}

// Register adds a connection of userID to a session.
func (m *Manager) Register(sessionID, userID string, conn *websocket.Conn) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.active[sessionID]; !exists {
		m.active[sessionID] = make(map[*websocket.Conn]string)
	}
	m.active[sessionID][conn] = userID
	slog.Info("Chat connection registered", "user_id", userID, "session_id", sessionID)
}

// Unregister removes a connection. Other tabs of the session stay open.
func (m *Manager) Unregister(sessionID string, conn *websocket.Conn) {
	m.mu.Lock()
	defer m.mu.Unlock()

	conns, ok := m.active[sessionID]
	if !ok {
		return
	}
	if userID, exists := conns[conn]; exists {
		delete(conns, conn)
		if len(conns) == 0 {
			delete(m.active, sessionID)
		}
		slog.Info("Chat connection unregistered", "user_id", userID, "session_id", sessionID)
	}
}

// Count returns the number of open connections of a session.
func (m *Manager) Count(sessionID string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.active[sessionID])
}

// Broadcast writes v as JSON to every connection of the session. Failed
// writes are logged, the reader loop of that connection cleans it up.
func (m *Manager) Broadcast(ctx context.Context, sessionID string, v any) int {
	m.mu.RLock()
	conns := make([]*websocket.Conn, 0, len(m.active[sessionID]))
	for conn := range m.active[sessionID] {
		conns = append(conns, conn)
	}
	m.mu.RUnlock()

	sent := 0
	for _, conn := range conns {
		if err := wsjson.Write(ctx, conn, v); err != nil {
			slog.Debug("Chat broadcast write failed", "session_id", sessionID, "error", err)
			continue
		}
		sent++
	}
	return sent
}

// CloseAll closes every connection, used on shutdown.
func (m *Manager) CloseAll(reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for sid, conns := range m.active {
		for conn := range conns {
			_ = conn.Close(websocket.StatusGoingAway, reason)
		}
		slog.Info("Chat session connections closed", "session_id", sid, "count", len(conns))
	}
	clear(m.active)
}
