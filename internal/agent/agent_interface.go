package agent

import (
	"context"
)

// Dialogue is a transport to the remote interviewer.
type Dialogue interface {
	// Chat sends one utterance and returns the interviewer's reply text.
	Chat(ctx context.Context, req ChatRequest) (string, error)

	// Reset clears the remote conversation state for a tab session.
	Reset(ctx context.Context, userID, sessionID string) error

	// Close releases resources.
	Close()
}

// Ensure transports implement Dialogue.
var (
	_ Dialogue = (*HTTPClient)(nil)
	_ Dialogue = (*GrpcClient)(nil)
)
