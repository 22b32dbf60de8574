package interview

import (
	"errors"
	"fmt"
)

// ErrRejected matches every command the orchestrator refuses. A rejected
// command leaves the session unchanged.
var ErrRejected = errors.New("command rejected")

// Rejection reasons.
var (
	ErrBlankInput      = fmt.Errorf("%w: blank input", ErrRejected)
	ErrBusy            = fmt.Errorf("%w: a request is already in flight", ErrRejected)
	ErrLockedOut       = fmt.Errorf("%w: session is locked out", ErrRejected)
	ErrWarningActive   = fmt.Errorf("%w: focus warning is active", ErrRejected)
	ErrWrongPhase      = fmt.Errorf("%w: not allowed in the current phase", ErrRejected)
	ErrNoTask          = fmt.Errorf("%w: no task is open", ErrRejected)
	ErrUnknownTask     = fmt.Errorf("%w: unknown task", ErrRejected)
	ErrInvalidLevel    = fmt.Errorf("%w: invalid level", ErrRejected)
	ErrInvalidLanguage = fmt.Errorf("%w: invalid language", ErrRejected)
)

// reasonOf returns a short metric label for a rejection.
func reasonOf(err error) string {
	switch {
	case errors.Is(err, ErrBlankInput):
		return "blank"
	case errors.Is(err, ErrBusy):
		return "busy"
	case errors.Is(err, ErrLockedOut):
		return "locked"
	case errors.Is(err, ErrWarningActive):
		return "warning"
	case errors.Is(err, ErrWrongPhase):
		return "phase"
	case errors.Is(err, ErrNoTask):
		return "no_task"
	case errors.Is(err, ErrUnknownTask):
		return "unknown_task"
	default:
		return "invalid"
	}
}
