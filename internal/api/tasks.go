package api

import (
	"net/http"
	"strconv"

	"github.com/ashureev/interviewer/internal/domain"
	"github.com/go-chi/chi/v5"
)

// ListTasks returns the task catalog.
func (h *Handler) ListTasks(w http.ResponseWriter, _ *http.Request) {
	JSON(w, http.StatusOK, map[string]any{"tasks": h.tasks.List()})
}

// GetTask returns a single catalog task.
func (h *Handler) GetTask(w http.ResponseWriter, r *http.Request) {
	entry, ok := h.tasks.Get(chi.URLParam(r, "id"))
	if !ok {
		Error(w, http.StatusNotFound, "task not found")
		return
	}
	JSON(w, http.StatusOK, entry)
}

// RandomTask returns a random task, optionally restricted by ?level=.
func (h *Handler) RandomTask(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("level")
	if raw == "" {
		JSON(w, http.StatusOK, h.tasks.Random())
		return
	}

	n, err := strconv.Atoi(raw)
	level := domain.Level(n)
	if err != nil || !level.Valid() {
		Error(w, http.StatusBadRequest, "level must be 1-4")
		return
	}
	task, ok := h.tasks.RandomByLevel(level)
	if !ok {
		Error(w, http.StatusNotFound, "no tasks for level")
		return
	}
	JSON(w, http.StatusOK, task)
}
