package agent

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"sync"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"
)

// dialogueServer answers the dialogue RPCs without generated stubs.
type dialogueServer struct {
	mu       sync.Mutex
	requests map[string]*structpb.Struct
	answer   *structpb.Value
	chatErr  error
}

func (d *dialogueServer) handle(_ any, stream grpc.ServerStream) error {
	method, _ := grpc.MethodFromServerStream(stream)
	in := &structpb.Struct{}
	if err := stream.RecvMsg(in); err != nil {
		return err
	}

	d.mu.Lock()
	d.requests[method] = in
	answer, chatErr := d.answer, d.chatErr
	d.mu.Unlock()

	switch method {
	case chatMethod:
		if chatErr != nil {
			return chatErr
		}
		return stream.SendMsg(&structpb.Struct{Fields: map[string]*structpb.Value{"answer": answer}})
	case resetMethod:
		return stream.SendMsg(&structpb.Struct{})
	default:
		return status.Errorf(codes.Unimplemented, "unknown method %s", method)
	}
}

func (d *dialogueServer) request(method string) *structpb.Struct {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.requests[method]
}

func newTestGrpcClient(t *testing.T, d *dialogueServer) *GrpcClient {
	t.Helper()

	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer(grpc.UnknownServiceHandler(d.handle))
	hs := health.NewServer()
	hs.SetServingStatus(dialogueServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(srv, hs)
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	cfg := DefaultGrpcClientConfig("passthrough:///dialogue")
	cfg.Dialer = func(ctx context.Context, _ string) (net.Conn, error) {
		return lis.DialContext(ctx)
	}
	client, err := NewGrpcClient(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("NewGrpcClient() error = %v", err)
	}
	t.Cleanup(client.Close)
	return client
}

func TestGrpcClient_Chat(t *testing.T) {
	tests := []struct {
		name   string
		answer *structpb.Value
		want   string
	}{
		{name: "flat answer", answer: structpb.NewStringValue("Привет!"), want: "Привет!"},
		{
			name: "nested answer",
			answer: structpb.NewStructValue(&structpb.Struct{Fields: map[string]*structpb.Value{
				"answer": structpb.NewStringValue("Вложенный"),
			}}),
			want: "Вложенный",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := &dialogueServer{requests: map[string]*structpb.Struct{}, answer: tt.answer}
			client := newTestGrpcClient(t, d)
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			got, err := client.Chat(ctx, ChatRequest{Message: "Вопрос", UserID: "u1", SessionID: "tab-1"})
			if err != nil {
				t.Fatalf("Chat() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Chat() = %q, want %q", got, tt.want)
			}

			fields := d.request(chatMethod).AsMap()
			if fields["message"] != "Вопрос" || fields["mode"] != string(ModeTech) ||
				fields["user_id"] != "u1" || fields["session_id"] != "tab-1" {
				t.Errorf("request = %v", fields)
			}
		})
	}
}

func TestGrpcClient_ChatErrors(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	d := &dialogueServer{requests: map[string]*structpb.Struct{}, chatErr: status.Error(codes.Unavailable, "model down")}
	client := newTestGrpcClient(t, d)
	if _, err := client.Chat(ctx, ChatRequest{Message: "Вопрос"}); status.Code(errors.Unwrap(err)) != codes.Unavailable {
		t.Errorf("Chat() error = %v, want Unavailable", err)
	}

	d = &dialogueServer{requests: map[string]*structpb.Struct{}, answer: structpb.NewNumberValue(42)}
	client = newTestGrpcClient(t, d)
	if _, err := client.Chat(ctx, ChatRequest{Message: "Вопрос"}); !errors.Is(err, errMissingAnswer) {
		t.Errorf("Chat() error = %v, want errMissingAnswer", err)
	}
}

func TestGrpcClient_ResetAndHealth(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	d := &dialogueServer{requests: map[string]*structpb.Struct{}}
	client := newTestGrpcClient(t, d)

	if err := client.Reset(ctx, "u1", "tab-1"); err != nil {
		t.Fatalf("Reset() error = %v", err)
	}
	fields := d.request(resetMethod).AsMap()
	if fields["user_id"] != "u1" || fields["session_id"] != "tab-1" {
		t.Errorf("reset request = %v", fields)
	}

	if err := client.Health(ctx); err != nil {
		t.Errorf("Health() error = %v", err)
	}
}
