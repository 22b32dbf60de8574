package api

import (
	"net/http"

	"github.com/ashureev/interviewer/internal/domain"
	"github.com/ashureev/interviewer/internal/identity"
)

type messageRequest struct {
	Text string `json:"text"`
}

type levelRequest struct {
	Level domain.Level `json:"level"`
}

type languageRequest struct {
	Language string `json:"language"`
}

type openTaskRequest struct {
	TaskID string `json:"task_id"`
}

type runRequest struct {
	Code string `json:"code"`
}

type resumeRequest struct {
	RecordID int64 `json:"record_id"`
}

// GetSession returns the current session snapshot.
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusOK, h.session(r).Snapshot())
}

// SubmitMessage sends a candidate utterance.
func (h *Handler) SubmitMessage(w http.ResponseWriter, r *http.Request) {
	var req messageRequest
	if err := decode(r, &req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	snap, err := h.session(r).SubmitUtterance(r.Context(), req.Text)
	if err != nil {
		h.commandError(w, r, err)
		return
	}
	JSON(w, http.StatusOK, snap)
}

// SelectLevel records the chosen difficulty level.
func (h *Handler) SelectLevel(w http.ResponseWriter, r *http.Request) {
	var req levelRequest
	if err := decode(r, &req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	snap, err := h.session(r).SelectLevel(r.Context(), req.Level)
	if err != nil {
		h.commandError(w, r, err)
		return
	}
	JSON(w, http.StatusOK, snap)
}

// SelectLanguage records the chosen programming language.
func (h *Handler) SelectLanguage(w http.ResponseWriter, r *http.Request) {
	var req languageRequest
	if err := decode(r, &req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	snap, err := h.session(r).SelectLanguage(r.Context(), req.Language)
	if err != nil {
		h.commandError(w, r, err)
		return
	}
	JSON(w, http.StatusOK, snap)
}

// OpenTask opens the task panel for an offered or catalog task.
func (h *Handler) OpenTask(w http.ResponseWriter, r *http.Request) {
	var req openTaskRequest
	if err := decode(r, &req); err != nil || req.TaskID == "" {
		Error(w, http.StatusBadRequest, "task_id is required")
		return
	}

	snap, err := h.session(r).OpenTaskByID(req.TaskID)
	if err != nil {
		h.commandError(w, r, err)
		return
	}
	JSON(w, http.StatusOK, snap)
}

// CloseTask hides the task panel.
func (h *Handler) CloseTask(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusOK, h.session(r).CloseTaskPanel())
}

// RunCode submits code for the open task.
func (h *Handler) RunCode(w http.ResponseWriter, r *http.Request) {
	var req runRequest
	if err := decode(r, &req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	snap, err := h.session(r).RunCode(r.Context(), req.Code)
	if err != nil {
		h.commandError(w, r, err)
		return
	}
	JSON(w, http.StatusOK, snap)
}

// FocusLost reports that the candidate left the interview window.
func (h *Handler) FocusLost(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusOK, h.session(r).FocusLost())
}

// Reset abandons the current interview.
func (h *Handler) Reset(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusOK, h.session(r).Reset(r.Context()))
}

// Resume continues a past interview from history.
func (h *Handler) Resume(w http.ResponseWriter, r *http.Request) {
	var req resumeRequest
	if err := decode(r, &req); err != nil || req.RecordID == 0 {
		Error(w, http.StatusBadRequest, "record_id is required")
		return
	}

	record, ok := h.history.Get(r.Context(), identity.UserIDFromContext(r.Context()), req.RecordID)
	if !ok {
		Error(w, http.StatusNotFound, "record not found")
		return
	}

	snap, err := h.session(r).Resume(record)
	if err != nil {
		h.commandError(w, r, err)
		return
	}
	JSON(w, http.StatusOK, snap)
}
