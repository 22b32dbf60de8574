package live

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/ashureev/interviewer/internal/identity"
	"github.com/ashureev/interviewer/internal/interview"
	"github.com/coder/websocket"
)

const writeTimeout = 10 * time.Second

// Sessions resolves the orchestrator for a (user, tab session) pair.
type Sessions interface {
	Get(userID, sessionID string) *interview.Orchestrator
}

// Handler upgrades requests to WebSocket and streams session snapshots.
type Handler struct {
	sessions      Sessions
	conns         *ConnManager
	allowedOrigin string
	isDev         bool
}

// NewHandler creates a new live session handler.
func NewHandler(sessions Sessions, conns *ConnManager, allowedOrigin string, isDev bool) *Handler {
	return &Handler{
		sessions:      sessions,
		conns:         conns,
		allowedOrigin: allowedOrigin,
		isDev:         isDev,
	}
}

// inbound is a message from the browser.
type inbound struct {
	Type string `json:"type"`
}

// outbound is a message to the browser.
type outbound struct {
	Type  string              `json:"type"`
	State *interview.Snapshot `json:"state,omitempty"`
}

// latest holds only the newest snapshot not yet written. Older pending
// snapshots are superseded, so a slow client never blocks the orchestrator.
type latest struct {
	mu      sync.Mutex
	pending *interview.Snapshot
	notify  chan struct{}
}

func newLatest() *latest {
	return &latest{notify: make(chan struct{}, 1)}
}

func (l *latest) offer(snap interview.Snapshot) {
	l.mu.Lock()
	if l.pending == nil || snap.Version >= l.pending.Version {
		l.pending = &snap
	}
	l.mu.Unlock()

	select {
	case l.notify <- struct{}{}:
	default:
	}
}

func (l *latest) take() *interview.Snapshot {
	l.mu.Lock()
	defer l.mu.Unlock()
	snap := l.pending
	l.pending = nil
	return snap
}

// ServeHTTP implements http.Handler for WebSocket upgrade.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())
	sessionID := identity.SessionIDFromContext(r.Context())
	logger := slog.With("user_id", userID, "session_id", sessionID)
	logger.Info("Live connection request", "ip", identity.IPFromRequest(r))

	if !h.checkOrigin(r) {
		http.Error(w, "origin not allowed", http.StatusForbidden)
		return
	}

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		logger.Error("Failed to accept WebSocket", "error", err)
		return
	}
	defer func() {
		if closeErr := ws.Close(websocket.StatusNormalClosure, "session ended"); closeErr != nil {
			logger.Debug("Failed to close websocket", "error", closeErr)
		}
	}()

	h.conns.Register(userID, sessionID, ws)
	defer h.conns.Unregister(userID, sessionID, ws)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	o := h.sessions.Get(userID, sessionID)
	outbox := newLatest()
	unsubscribe := o.Subscribe(outbox.offer)
	defer unsubscribe()
	outbox.offer(o.Snapshot())

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer cancel()
		h.writeLoop(ctx, ws, outbox, logger)
	}()

	h.readLoop(ctx, ws, o, logger)
	cancel()
	wg.Wait()
	logger.Info("Live connection ended")
}

func (h *Handler) checkOrigin(r *http.Request) bool {
	if h.isDev {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" || h.allowedOrigin == "*" {
		return true
	}
	if origin == h.allowedOrigin {
		return true
	}
	slog.Warn("WebSocket origin rejected", "origin", origin, "allowed", h.allowedOrigin)
	return false
}

func (h *Handler) readLoop(ctx context.Context, ws *websocket.Conn, o *interview.Orchestrator, logger *slog.Logger) {
	for {
		_, message, err := ws.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) != -1 || ctx.Err() != nil {
				logger.Debug("WebSocket closed", "reason", err)
			} else {
				logger.Warn("WebSocket read error", "error", err)
			}
			return
		}

		var msg inbound
		if err := json.Unmarshal(message, &msg); err != nil {
			logger.Debug("Ignoring malformed live message", "error", err)
			continue
		}

		switch msg.Type {
		case "blur":
			// The resulting snapshot reaches the client through the subscription.
			o.FocusLost()
		case "ping":
			if err := writeJSON(ctx, ws, outbound{Type: "pong"}); err != nil {
				logger.Debug("Failed to send pong", "error", err)
				return
			}
		default:
			logger.Debug("Ignoring unknown live message", "type", msg.Type)
		}
	}
}

func (h *Handler) writeLoop(ctx context.Context, ws *websocket.Conn, outbox *latest, logger *slog.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-outbox.notify:
		}

		snap := outbox.take()
		if snap == nil {
			continue
		}
		if err := writeJSON(ctx, ws, outbound{Type: "state", State: snap}); err != nil {
			if ctx.Err() == nil {
				logger.Debug("Failed to push state", "error", err)
			}
			return
		}
	}
}

func writeJSON(ctx context.Context, ws *websocket.Conn, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return ws.Write(writeCtx, websocket.MessageText, data)
}
