package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

// maxResponseBytes bounds how much of a reply body is read.
const maxResponseBytes = 1 << 20

// HTTPClientConfig holds configuration for the HTTP dialogue client.
type HTTPClientConfig struct {
	BaseURL        string
	RequestTimeout time.Duration
	RatePerSecond  float64
	Burst          int
}

// HTTPClient talks to the dialogue service over JSON/HTTP.
type HTTPClient struct {
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
	logger  *slog.Logger
}

// NewHTTPClient creates an HTTP dialogue client.
func NewHTTPClient(cfg HTTPClientConfig, logger *slog.Logger) (*HTTPClient, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("dialogue base URL is required")
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 60 * time.Second
	}

	limit := rate.Inf
	if cfg.RatePerSecond > 0 {
		limit = rate.Limit(cfg.RatePerSecond)
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}

	return &HTTPClient{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:    &http.Client{Timeout: cfg.RequestTimeout},
		limiter: rate.NewLimiter(limit, cfg.Burst),
		logger:  logger,
	}, nil
}

// Chat posts the utterance to /chat/ and returns the reply text.
func (c *HTTPClient) Chat(ctx context.Context, req ChatRequest) (string, error) {
	if req.Mode == "" {
		req.Mode = ModeTech
	}

	var resp chatResponse
	if err := c.post(ctx, "/chat/", req, req.SessionID, &resp); err != nil {
		return "", fmt.Errorf("chat request failed: %w", err)
	}
	answer, err := decodeAnswer(resp.Answer)
	if err != nil {
		return "", err
	}
	return answer, nil
}

// Reset posts to /reset/.
func (c *HTTPClient) Reset(ctx context.Context, _, sessionID string) error {
	if err := c.post(ctx, "/reset/", struct{}{}, sessionID, nil); err != nil {
		return fmt.Errorf("reset request failed: %w", err)
	}
	return nil
}

// Close is a no-op; the HTTP transport keeps no dedicated resources.
func (c *HTTPClient) Close() {}

func (c *HTTPClient) post(ctx context.Context, path string, body any, sessionID string, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit: %w", err)
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	requestID := uuid.NewString()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if sessionID != "" {
		req.Header.Set("X-Session-ID", sessionID)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			c.logger.Debug("failed to close dialogue response body", "error", closeErr)
		}
	}()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Warn("Dialogue service returned error status",
			"path", path, "status", resp.StatusCode, "request_id", requestID)
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
