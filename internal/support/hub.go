package support

import (
	"log/slog"
	"sync"

	"github.com/coder/websocket"
)

// Hub tracks active websocket connections so shutdown can close them and
// health reporting can count them.
type Hub struct {
	mu     sync.RWMutex
	active map[string]*websocket.Conn
}

// NewHub creates an empty connection hub.
func NewHub() *Hub {
	return &Hub{
		active: make(map[string]*websocket.Conn),
	}
}

// Register adds a connection under its connection ID.
func (h *Hub) Register(connID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if existing, exists := h.active[connID]; exists && existing != conn {
		_ = existing.Close(websocket.StatusNormalClosure, "connection replaced")
	}
	h.active[connID] = conn
	slog.Info("Chat connection registered", "conn_id", connID)
}

// Unregister removes a connection if it is still the registered one.
func (h *Hub) Unregister(connID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if current, exists := h.active[connID]; exists && current == conn {
		delete(h.active, connID)
		slog.Info("Chat connection unregistered", "conn_id", connID)
	}
}

// Count returns the number of live connections.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.active)
}

// CloseAll terminates every active connection, used on shutdown.
func (h *Hub) CloseAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for id, conn := range h.active {
		_ = conn.Close(websocket.StatusGoingAway, "server shutting down")
		delete(h.active, id)
		slog.Info("Chat connection closed", "conn_id", id)
	}
}
