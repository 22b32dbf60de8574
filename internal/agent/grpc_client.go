package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/connectivity"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/protobuf/types/known/structpb"
)

// Dialogue service RPCs. Payloads are google.protobuf.Struct messages
// mirroring the JSON bodies of the HTTP transport.
const (
	dialogueServiceName = "interview.v1.DialogueService"
	chatMethod          = "/" + dialogueServiceName + "/Chat"
	resetMethod         = "/" + dialogueServiceName + "/Reset"
)

var (
	errConnectionShutdown       = errors.New("connection shutdown")
	errConnectionStateUnchanged = errors.New("connection state did not change")
)

// GrpcClient provides a gRPC client to the dialogue service.
type GrpcClient struct {
	conn   *grpc.ClientConn
	health healthpb.HealthClient
	addr   string
	logger *slog.Logger
}

// GrpcClientConfig holds configuration for the gRPC client.
type GrpcClientConfig struct {
	Address          string
	ConnectTimeout   time.Duration
	KeepaliveTime    time.Duration
	KeepaliveTimeout time.Duration

	// Dialer overrides the network dialer, e.g. for an in-process listener.
	Dialer func(ctx context.Context, addr string) (net.Conn, error)
}

// DefaultGrpcClientConfig returns default configuration for addr.
func DefaultGrpcClientConfig(addr string) GrpcClientConfig {
	return GrpcClientConfig{
		Address:          addr,
		ConnectTimeout:   5 * time.Second,
		KeepaliveTime:    2 * time.Minute,
		KeepaliveTimeout: 10 * time.Second,
	}
}

// NewGrpcClient dials the dialogue service and waits until the connection is ready.
func NewGrpcClient(cfg GrpcClientConfig, logger *slog.Logger) (*GrpcClient, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Address == "" {
		return nil, fmt.Errorf("dialogue gRPC address is required")
	}

	kacp := keepalive.ClientParameters{
		Time:                cfg.KeepaliveTime,
		Timeout:             cfg.KeepaliveTimeout,
		PermitWithoutStream: false,
	}

	opts := []grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithKeepaliveParams(kacp),
	}
	if cfg.Dialer != nil {
		opts = append(opts, grpc.WithContextDialer(cfg.Dialer))
	}

	// Build client connection (no network I/O yet).
	conn, err := grpc.NewClient(cfg.Address, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to dialogue service at %s: %w", cfg.Address, err)
	}

	// Force a connection attempt during startup so we fail fast on bad endpoints.
	connectCtx, cancel := context.WithTimeout(context.Background(), cfg.ConnectTimeout)
	defer cancel()
	if err := waitForReady(connectCtx, conn); err != nil {
		if closeErr := conn.Close(); closeErr != nil {
			logger.Warn("failed to close gRPC connection after readiness failure", "error", closeErr)
		}
		return nil, fmt.Errorf("dialogue service at %s not ready: %w", cfg.Address, err)
	}

	logger.Info("Connected to dialogue service", "address", cfg.Address)

	return &GrpcClient{
		conn:   conn,
		health: healthpb.NewHealthClient(conn),
		addr:   cfg.Address,
		logger: logger,
	}, nil
}

func waitForReady(ctx context.Context, conn *grpc.ClientConn) error {
	for {
		state := conn.GetState()
		switch state {
		case connectivity.Ready:
			return nil
		case connectivity.Idle:
			conn.Connect()
		case connectivity.Shutdown:
			return errConnectionShutdown
		}

		if !conn.WaitForStateChange(ctx, state) {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("%w from %s", errConnectionStateUnchanged, state)
		}
	}
}

// Close closes the gRPC connection.
func (c *GrpcClient) Close() {
	if c.conn != nil {
		if err := c.conn.Close(); err != nil {
			c.logger.Warn("failed to close gRPC connection", "error", err)
		}
	}
}

// Health reports whether the dialogue service is serving.
func (c *GrpcClient) Health(ctx context.Context) error {
	resp, err := c.health.Check(ctx, &healthpb.HealthCheckRequest{Service: dialogueServiceName})
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		return fmt.Errorf("dialogue service status %s", resp.GetStatus())
	}
	return nil
}

// Chat sends one utterance through the unary Chat RPC.
func (c *GrpcClient) Chat(ctx context.Context, req ChatRequest) (string, error) {
	if req.Mode == "" {
		req.Mode = ModeTech
	}

	in, err := structpb.NewStruct(map[string]any{
		"message":    req.Message,
		"mode":       string(req.Mode),
		"user_id":    req.UserID,
		"session_id": req.SessionID,
	})
	if err != nil {
		return "", fmt.Errorf("encode chat request: %w", err)
	}

	out := &structpb.Struct{}
	if err := c.conn.Invoke(ctx, chatMethod, in, out, grpc.WaitForReady(true)); err != nil {
		return "", fmt.Errorf("chat request failed: %w", err)
	}
	return answerFromStruct(out)
}

// Reset clears the remote conversation through the Reset RPC.
func (c *GrpcClient) Reset(ctx context.Context, userID, sessionID string) error {
	in, err := structpb.NewStruct(map[string]any{
		"user_id":    userID,
		"session_id": sessionID,
	})
	if err != nil {
		return fmt.Errorf("encode reset request: %w", err)
	}
	if err := c.conn.Invoke(ctx, resetMethod, in, &structpb.Struct{}); err != nil {
		return fmt.Errorf("reset request failed: %w", err)
	}
	return nil
}

// answerFromStruct accepts the same two answer shapes as the HTTP transport.
func answerFromStruct(s *structpb.Struct) (string, error) {
	v, ok := s.GetFields()["answer"]
	if !ok {
		return "", errMissingAnswer
	}
	switch kind := v.GetKind().(type) {
	case *structpb.Value_StringValue:
		return kind.StringValue, nil
	case *structpb.Value_StructValue:
		inner, ok := kind.StructValue.GetFields()["answer"]
		if !ok {
			return "", errMissingAnswer
		}
		if sv, ok := inner.GetKind().(*structpb.Value_StringValue); ok {
			return sv.StringValue, nil
		}
	}
	return "", errMissingAnswer
}
