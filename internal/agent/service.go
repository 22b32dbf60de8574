package agent

import (
	"context"
	"log/slog"
	"time"

	"github.com/ashureev/interviewer/internal/metrics"
)

// Service wraps a Dialogue transport with the configured persona,
// logging and latency metrics.
type Service struct {
	dialogue Dialogue
	mode     Mode
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

// NewService creates a dialogue service over transport d.
func NewService(d Dialogue, mode Mode, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if mode == "" {
		mode = ModeTech
	}
	return &Service{dialogue: d, mode: mode, logger: logger, metrics: metrics.Default()}
}

// Ask sends message on behalf of a tab session and returns the reply.
func (s *Service) Ask(ctx context.Context, userID, sessionID, message string) (string, error) {
	start := time.Now()
	answer, err := s.dialogue.Chat(ctx, ChatRequest{
		Message:   message,
		Mode:      s.mode,
		UserID:    userID,
		SessionID: sessionID,
	})
	s.metrics.ObserveRemoteCall("dialogue", "chat", start, err)
	if err != nil {
		s.logger.Warn("Dialogue call failed", "user_id", userID, "session_id", sessionID, "error", err)
		return "", err
	}
	return answer, nil
}

// ResetSession clears remote conversation state for a tab session.
func (s *Service) ResetSession(ctx context.Context, userID, sessionID string) error {
	start := time.Now()
	err := s.dialogue.Reset(ctx, userID, sessionID)
	s.metrics.ObserveRemoteCall("dialogue", "reset", start, err)
	return err
}

// Close releases resources.
func (s *Service) Close() {
	if s.dialogue != nil {
		s.dialogue.Close()
	}
}
