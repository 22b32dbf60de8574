package interview

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/ashureev/interviewer/internal/metrics"
)

const sweepInterval = time.Minute

// EvictCallback is called after an idle session is removed by the sweeper.
type EvictCallback func(userID, sessionID string)

// Registry maps (user, tab session) pairs to their orchestrators.
type Registry struct {
	deps    Deps
	ttl     time.Duration
	metrics *metrics.Metrics

	mu       sync.Mutex
	sessions map[string]*Orchestrator
	onEvict  EvictCallback
}

// NewRegistry creates an empty registry. Sessions idle longer than ttl are
// evicted once StartSweeper runs.
func NewRegistry(deps Deps, ttl time.Duration) *Registry {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Registry{
		deps:     deps,
		ttl:      ttl,
		metrics:  metrics.Default(),
		sessions: make(map[string]*Orchestrator),
	}
}

// OnEvict sets the callback invoked for every evicted session.
func (r *Registry) OnEvict(fn EvictCallback) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onEvict = fn
}

// Get returns the orchestrator for the pair, creating it on first use.
func (r *Registry) Get(userID, sessionID string) *Orchestrator {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := sessionKey(userID, sessionID)
	if o, ok := r.sessions[key]; ok {
		return o
	}
	o := New(userID, sessionID, r.deps)
	r.sessions[key] = o
	r.metrics.ActiveSessions.Set(float64(len(r.sessions)))
	r.deps.Logger.Debug("Session created", "user_id", userID, "session_id", sessionID)
	return o
}

// Lookup returns an existing orchestrator without creating one.
func (r *Registry) Lookup(userID, sessionID string) (*Orchestrator, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.sessions[sessionKey(userID, sessionID)]
	return o, ok
}

// Remove drops the pair and stops its timers. It reports whether the pair existed.
func (r *Registry) Remove(userID, sessionID string) bool {
	r.mu.Lock()
	key := sessionKey(userID, sessionID)
	o, ok := r.sessions[key]
	if ok {
		delete(r.sessions, key)
		r.metrics.ActiveSessions.Set(float64(len(r.sessions)))
	}
	r.mu.Unlock()

	if ok {
		o.Close()
	}
	return ok
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// StartSweeper runs a background goroutine that evicts idle sessions until
// ctx is cancelled.
func (r *Registry) StartSweeper(ctx context.Context) {
	ticker := time.NewTicker(sweepInterval)
	go func() {
		defer ticker.Stop()
		r.deps.Logger.Info("Session sweeper started", "interval", sweepInterval, "ttl", r.ttl)

		for {
			select {
			case <-ticker.C:
				r.Sweep(time.Now())
			case <-ctx.Done():
				r.deps.Logger.Info("Session sweeper shutting down", "reason", ctx.Err())
				return
			}
		}
	}()
}

// Sweep evicts every session idle since before now-ttl and returns how many
// were removed.
func (r *Registry) Sweep(now time.Time) int {
	if r.ttl <= 0 {
		return 0
	}

	type evicted struct {
		userID, sessionID string
		o                 *Orchestrator
	}

	r.mu.Lock()
	var expired []evicted
	for key, o := range r.sessions {
		if now.Sub(o.LastActive()) > r.ttl {
			expired = append(expired, evicted{o.userID, o.sessionID, o})
			delete(r.sessions, key)
		}
	}
	r.metrics.ActiveSessions.Set(float64(len(r.sessions)))
	onEvict := r.onEvict
	r.mu.Unlock()

	for _, e := range expired {
		e.o.Close()
		if onEvict != nil {
			onEvict(e.userID, e.sessionID)
		}
	}
	if len(expired) > 0 {
		r.deps.Logger.Info("Session sweeper evicted idle sessions", "count", len(expired))
	}
	return len(expired)
}

// CloseAll stops every session's timers. Used on shutdown.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	all := make([]*Orchestrator, 0, len(r.sessions))
	for key, o := range r.sessions {
		all = append(all, o)
		delete(r.sessions, key)
	}
	r.metrics.ActiveSessions.Set(0)
	r.mu.Unlock()

	for _, o := range all {
		o.Close()
	}
}

func sessionKey(userID, sessionID string) string {
	return userID + ":" + sessionID
}
