// Package api provides HTTP handlers for the interview API.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/ashureev/interviewer/internal/catalog"
	"github.com/ashureev/interviewer/internal/domain"
	"github.com/ashureev/interviewer/internal/identity"
	"github.com/ashureev/interviewer/internal/interview"
	"github.com/go-chi/chi/v5"
)

const maxBodyBytes = 256 << 10

// Sessions resolves the orchestrator for a (user, tab session) pair.
type Sessions interface {
	Get(userID, sessionID string) *interview.Orchestrator
}

// History is the read side of interview history.
type History interface {
	List(ctx context.Context, owner string) []domain.SessionRecord
	Get(ctx context.Context, owner string, id int64) (domain.SessionRecord, bool)
	Clear(ctx context.Context, owner string) error
}

// Profiles reads and writes the candidate display name.
type Profiles interface {
	DisplayName(ctx context.Context, owner string) (string, error)
	SetDisplayName(ctx context.Context, owner, name string) (string, error)
}

// Catalog lists the available tasks.
type Catalog interface {
	Get(id string) (catalog.Entry, bool)
	List() []catalog.Entry
	Random() domain.Task
	RandomByLevel(level domain.Level) (domain.Task, bool)
}

// Handler serves the session, history, profile and task endpoints.
type Handler struct {
	sessions Sessions
	history  History
	profiles Profiles
	tasks    Catalog
	logger   *slog.Logger
}

// NewHandler creates a new Handler with its dependencies.
func NewHandler(sessions Sessions, history History, profiles Profiles, tasks Catalog, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		sessions: sessions,
		history:  history,
		profiles: profiles,
		tasks:    tasks,
		logger:   logger,
	}
}

// RegisterRoutes registers all /api routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Route("/session", func(r chi.Router) {
			r.Get("/", h.GetSession)
			r.Post("/message", h.SubmitMessage)
			r.Post("/level", h.SelectLevel)
			r.Post("/language", h.SelectLanguage)
			r.Post("/task", h.OpenTask)
			r.Delete("/task", h.CloseTask)
			r.Post("/run", h.RunCode)
			r.Post("/focus-lost", h.FocusLost)
			r.Post("/reset", h.Reset)
			r.Post("/resume", h.Resume)
		})

		r.Get("/history", h.ListHistory)
		r.Get("/history/stats", h.HistoryStats)
		r.Delete("/history", h.ClearHistory)

		r.Get("/profile", h.GetProfile)
		r.Put("/profile", h.UpdateProfile)

		r.Get("/tasks", h.ListTasks)
		r.Get("/tasks/random", h.RandomTask)
		r.Get("/tasks/{id}", h.GetTask)
	})
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

// decode reads a JSON body into v. An empty body leaves v untouched.
func decode(r *http.Request, v any) error {
	err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

// commandError maps orchestrator rejections to 409 and anything else to 500.
func (h *Handler) commandError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, interview.ErrRejected) {
		Error(w, http.StatusConflict, err.Error())
		return
	}
	h.logger.Error("Session command failed",
		"error", err,
		"path", r.URL.Path,
		"user_id", identity.UserIDFromContext(r.Context()))
	Error(w, http.StatusInternalServerError, "internal error")
}

func (h *Handler) session(r *http.Request) *interview.Orchestrator {
	ctx := r.Context()
	return h.sessions.Get(identity.UserIDFromContext(ctx), identity.SessionIDFromContext(ctx))
}
