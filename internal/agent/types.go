// Package agent implements clients for the remote interview dialogue service.
package agent

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Mode selects the interviewer persona on the dialogue service.
type Mode string

const (
	// ModeTech is the technical interview persona.
	ModeTech Mode = "TECH"
	// ModeHR is the behavioural interview persona.
	ModeHR Mode = "HR"
)

// ChatRequest is a single utterance sent to the dialogue service.
type ChatRequest struct {
	Message   string `json:"message"`
	Mode      Mode   `json:"mode"`
	UserID    string `json:"-"`
	SessionID string `json:"-"`
}

// chatResponse is the wire reply. Answer is either a string or an object
// carrying its own answer field.
type chatResponse struct {
	Answer json.RawMessage `json:"answer"`
}

var errMissingAnswer = errors.New("dialogue response has no answer")

// decodeAnswer accepts {"answer":"..."} and {"answer":{"answer":"..."}}.
func decodeAnswer(raw json.RawMessage) (string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return "", errMissingAnswer
	}

	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		return text, nil
	}

	var nested struct {
		Answer *string `json:"answer"`
	}
	if err := json.Unmarshal(raw, &nested); err != nil {
		return "", fmt.Errorf("decode answer: %w", err)
	}
	if nested.Answer == nil {
		return "", errMissingAnswer
	}
	return *nested.Answer, nil
}
