package ws

import (
	"sync"

	"github.com/xiaot623/gogo/assistant/internal/metrics"
)

// Hub tracks the open voice connections and the session each one serves.
type Hub struct {
	mu          sync.RWMutex
	connections map[string]*Connection
	sessions    map[string]*Connection
}

// NewHub creates a new Hub.
func NewHub() *Hub {
	return &Hub{
		connections: make(map[string]*Connection),
		sessions:    make(map[string]*Connection),
	}
}

// Register adds a connection.
func (h *Hub) Register(conn *Connection) {
	h.mu.Lock()
	h.connections[conn.ID] = conn
	h.mu.Unlock()
	metrics.WebSocketConnections.Inc()
}

// BindSession associates a connection with a session. It fails when the
// session is already served by another connection.
func (h *Hub) BindSession(conn *Connection, sessionID string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if other, ok := h.sessions[sessionID]; ok && other != conn {
		return false
	}
	if prev := conn.sessionID; prev != "" && prev != sessionID && h.sessions[prev] == conn {
		delete(h.sessions, prev)
	}
	h.sessions[sessionID] = conn
	conn.sessionID = sessionID
	return true
}

// Unregister removes a connection.
func (h *Hub) Unregister(conn *Connection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.connections[conn.ID]; !ok {
		return
	}
	delete(h.connections, conn.ID)
	if conn.sessionID != "" && h.sessions[conn.sessionID] == conn {
		delete(h.sessions, conn.sessionID)
	}
	metrics.WebSocketConnections.Dec()
}

// Count returns the number of open connections.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.connections)
}

// CloseAll stops every connection.
func (h *Hub) CloseAll() {
	h.mu.RLock()
	conns := make([]*Connection, 0, len(h.connections))
	for _, c := range h.connections {
		conns = append(conns, c)
	}
	h.mu.RUnlock()
	for _, c := range conns {
		c.finish()
	}
}
