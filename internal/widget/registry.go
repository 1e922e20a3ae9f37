// Package widget serves the chat widget over websocket. Each connection is
// one rendered widget and owns one chat.Controller for its lifetime.
package widget

import (
	"log/slog"
	"sync"

	"github.com/coder/websocket"
)

// Registry tracks the live widget connection per visitor and tab session.
type Registry struct {
	mu     sync.RWMutex
	active map[string]map[string]*websocket.Conn
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		active: make(map[string]map[string]*websocket.Conn),
	}
}

// Register records conn as the live widget for visitor/session. A previous
// connection under the same key is closed after the lock is released: a
// reload replaces the old widget, and the close handshake can block.
func (r *Registry) Register(visitorID, sessionID string, conn *websocket.Conn) {
	r.mu.Lock()
	sessions, ok := r.active[visitorID]
	if !ok {
		sessions = make(map[string]*websocket.Conn)
		r.active[visitorID] = sessions
	}
	replaced := sessions[sessionID]
	sessions[sessionID] = conn
	r.mu.Unlock()

	slog.Info("Chat widget registered", "visitor_id", visitorID, "session_id", sessionID)
	if replaced != nil && replaced != conn {
		_ = replaced.Close(websocket.StatusNormalClosure, "session replaced")
	}
}

// Unregister removes conn if it is still the live connection for the key.
// It reports false when a newer connection already took the slot.
func (r *Registry) Unregister(visitorID, sessionID string, conn *websocket.Conn) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	sessions, ok := r.active[visitorID]
	if !ok {
		return false
	}
	if current, exists := sessions[sessionID]; !exists || current != conn {
		return false
	}
	delete(sessions, sessionID)
	if len(sessions) == 0 {
		delete(r.active, visitorID)
	}
	slog.Info("Chat widget unregistered", "visitor_id", visitorID, "session_id", sessionID)
	return true
}

// Count returns the number of live widgets.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, sessions := range r.active {
		n += len(sessions)
	}
	return n
}

// CloseAll disconnects every widget, used on shutdown.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	active := r.active
	r.active = make(map[string]map[string]*websocket.Conn)
	r.mu.Unlock()

	for visitorID, sessions := range active {
		for sid, conn := range sessions {
			_ = conn.Close(websocket.StatusGoingAway, "server shutting down")
			slog.Info("Chat widget closed", "visitor_id", visitorID, "session_id", sid)
		}
	}
}
