package api

import (
	"errors"
	"net/http"

	"github.com/ashureev/interviewer/internal/history"
	"github.com/ashureev/interviewer/internal/identity"
)

type profileRequest struct {
	Name string `json:"name"`
}

// ListHistory returns past interviews, newest first.
func (h *Handler) ListHistory(w http.ResponseWriter, r *http.Request) {
	records := h.history.List(r.Context(), identity.UserIDFromContext(r.Context()))
	JSON(w, http.StatusOK, map[string]any{"records": records})
}

// HistoryStats returns aggregate statistics over past interviews.
func (h *Handler) HistoryStats(w http.ResponseWriter, r *http.Request) {
	records := h.history.List(r.Context(), identity.UserIDFromContext(r.Context()))
	JSON(w, http.StatusOK, history.Statistics(records))
}

// ClearHistory deletes all past interviews.
func (h *Handler) ClearHistory(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())
	if err := h.history.Clear(r.Context(), userID); err != nil {
		h.logger.Error("Failed to clear history", "error", err, "user_id", userID)
		Error(w, http.StatusInternalServerError, "failed to clear history")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetProfile returns the display name.
func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())
	name, err := h.profiles.DisplayName(r.Context(), userID)
	if err != nil {
		h.logger.Error("Failed to read profile", "error", err, "user_id", userID)
		Error(w, http.StatusInternalServerError, "failed to read profile")
		return
	}
	JSON(w, http.StatusOK, map[string]string{"name": name})
}

// UpdateProfile changes the display name.
func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req profileRequest
	if err := decode(r, &req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	userID := identity.UserIDFromContext(r.Context())
	name, err := h.profiles.SetDisplayName(r.Context(), userID, req.Name)
	if errors.Is(err, history.ErrInvalidName) {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		h.logger.Error("Failed to update profile", "error", err, "user_id", userID)
		Error(w, http.StatusInternalServerError, "failed to update profile")
		return
	}
	JSON(w, http.StatusOK, map[string]string{"name": name})
}
