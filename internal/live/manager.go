// Package live pushes session state to browser tabs over WebSocket.
package live

import (
	"log/slog"
	"sync"

	"github.com/coder/websocket"
)

// ConnManager tracks the open connection of every (user, tab session) pair.
type ConnManager struct {
	mu     sync.RWMutex
	active map[string]map[string]*websocket.Conn
}

// NewConnManager creates an empty connection manager.
func NewConnManager() *ConnManager {
	return &ConnManager{
		active: make(map[string]map[string]*websocket.Conn),
	}
}

// GetActive returns the active connection for a user and session.
func (m *ConnManager) GetActive(userID, sessionID string) *websocket.Conn {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if sessions, ok := m.active[userID]; ok {
		return sessions[sessionID]
	}
	return nil
}

// Register adds conn for a user/session, closing any connection it replaces.
func (m *ConnManager) Register(userID, sessionID string, conn *websocket.Conn) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.active[userID]; !exists {
		m.active[userID] = make(map[string]*websocket.Conn)
	}

	if existing, exists := m.active[userID][sessionID]; exists && existing != conn {
		_ = existing.Close(websocket.StatusPolicyViolation, "session opened in another connection")
	}

	m.active[userID][sessionID] = conn
	slog.Debug("Live connection registered", "user_id", userID, "session_id", sessionID)
}

// Unregister removes conn if it is still the current connection of the pair.
func (m *ConnManager) Unregister(userID, sessionID string, conn *websocket.Conn) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if sessions, ok := m.active[userID]; ok {
		if current, exists := sessions[sessionID]; exists && current == conn {
			delete(sessions, sessionID)
			if len(sessions) == 0 {
				delete(m.active, userID)
			}
			slog.Debug("Live connection unregistered", "user_id", userID, "session_id", sessionID)
		}
	}
}

// Close terminates the connection of one pair, typically after the session
// was evicted for inactivity.
func (m *ConnManager) Close(userID, sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sessions, ok := m.active[userID]
	if !ok {
		return
	}
	if conn, exists := sessions[sessionID]; exists {
		_ = conn.Close(websocket.StatusGoingAway, "session expired")
		delete(sessions, sessionID)
		slog.Info("Live connection closed", "user_id", userID, "session_id", sessionID)
	}
	if len(sessions) == 0 {
		delete(m.active, userID)
	}
}

// Count returns the number of open connections.
func (m *ConnManager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, sessions := range m.active {
		n += len(sessions)
	}
	return n
}
