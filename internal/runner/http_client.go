package runner

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

	"github.com/ashureev/interviewer/internal/metrics"
	"github.com/google/uuid"
)

const maxResponseBytes = 1 << 20

// HTTPClient submits code to a remote runner at POST {base}/code/run.
type HTTPClient struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger
}

// NewHTTPClient creates a remote runner client.
func NewHTTPClient(baseURL string, timeout time.Duration, logger *slog.Logger) (*HTTPClient, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if baseURL == "" {
		return nil, fmt.Errorf("runner base URL is required")
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		logger:  logger,
	}, nil
}

// Run submits the code and decodes the runner reply.
func (c *HTTPClient) Run(ctx context.Context, req Request) (res Result, err error) {
	start := time.Now()
	defer func() { metrics.Default().ObserveRemoteCall("runner", "run", start, err) }()

	payload, err := json.Marshal(req)
	if err != nil {
		return Result{}, fmt.Errorf("encode run request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/code/run", bytes.NewReader(payload))
	if err != nil {
		return Result{}, fmt.Errorf("build run request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Request-ID", uuid.NewString())
	if req.SessionID != "" {
		httpReq.Header.Set("X-Session-ID", req.SessionID)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return Result{}, fmt.Errorf("run request failed: %w", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			c.logger.Debug("failed to close runner response body", "error", closeErr)
		}
	}()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return Result{}, fmt.Errorf("read run response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Result{}, fmt.Errorf("runner returned status %d", resp.StatusCode)
	}

	if err := json.Unmarshal(data, &res); err != nil {
		return Result{}, fmt.Errorf("decode run response: %w", err)
	}
	if res.NextTask != nil && res.NextTask.TaskID == "" {
		res.NextTask = nil
	}
	return res, nil
}
