package agent

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"google.golang.org/protobuf/types/known/structpb"
)

func newTestHTTPClient(t *testing.T, handler http.HandlerFunc) *HTTPClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := NewHTTPClient(HTTPClientConfig{BaseURL: srv.URL + "/"}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("NewHTTPClient() error = %v", err)
	}
	return c
}

func TestHTTPClientChatAnswerShapes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body string
		want string
	}{
		{name: "flat", body: `{"answer":"Привет! Расскажите о себе."}`, want: "Привет! Расскажите о себе."},
		{name: "nested", body: `{"answer":{"answer":"Вложенный ответ","next_task":null}}`, want: "Вложенный ответ"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var got ChatRequest
			c := newTestHTTPClient(t, func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/chat/" || r.Method != http.MethodPost {
					t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
				}
				if r.Header.Get("X-Request-ID") == "" {
					t.Error("missing X-Request-ID")
				}
				if r.Header.Get("X-Session-ID") != "tab-1" {
					t.Errorf("X-Session-ID = %q", r.Header.Get("X-Session-ID"))
				}
				_ = json.NewDecoder(r.Body).Decode(&got)
				_, _ = io.WriteString(w, tt.body)
			})

			answer, err := c.Chat(context.Background(), ChatRequest{Message: "привет", SessionID: "tab-1"})
			if err != nil {
				t.Fatalf("Chat() error = %v", err)
			}
			if answer != tt.want {
				t.Fatalf("Chat() = %q, want %q", answer, tt.want)
			}
			if got.Message != "привет" || got.Mode != ModeTech {
				t.Fatalf("request body = %+v", got)
			}
		})
	}
}

func TestHTTPClientChatErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		status int
		body   string
	}{
		{name: "server error", status: http.StatusInternalServerError, body: `{"detail":"boom"}`},
		{name: "missing answer", status: http.StatusOK, body: `{}`},
		{name: "bad json", status: http.StatusOK, body: `not json`},
		{name: "nested without answer", status: http.StatusOK, body: `{"answer":{"text":"x"}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c := newTestHTTPClient(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			})
			if _, err := c.Chat(context.Background(), ChatRequest{Message: "x"}); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestHTTPClientReset(t *testing.T) {
	t.Parallel()

	called := make(chan string, 1)
	c := newTestHTTPClient(t, func(w http.ResponseWriter, r *http.Request) {
		called <- r.URL.Path
		_, _ = io.WriteString(w, `{"status":"ok"}`)
	})

	if err := c.Reset(context.Background(), "u1", "tab-1"); err != nil {
		t.Fatalf("Reset() error = %v", err)
	}
	if path := <-called; path != "/reset/" {
		t.Fatalf("path = %q", path)
	}
}

func TestNewHTTPClientRequiresURL(t *testing.T) {
	t.Parallel()

	if _, err := NewHTTPClient(HTTPClientConfig{}, nil); err == nil {
		t.Fatal("expected error for empty base URL")
	}
}

func TestAnswerFromStruct(t *testing.T) {
	t.Parallel()

	flat, _ := structpb.NewStruct(map[string]any{"answer": "ok"})
	nested, _ := structpb.NewStruct(map[string]any{"answer": map[string]any{"answer": "inner"}})
	missing, _ := structpb.NewStruct(map[string]any{"text": "x"})
	wrongType, _ := structpb.NewStruct(map[string]any{"answer": 42.0})

	if got, err := answerFromStruct(flat); err != nil || got != "ok" {
		t.Fatalf("flat = %q, %v", got, err)
	}
	if got, err := answerFromStruct(nested); err != nil || got != "inner" {
		t.Fatalf("nested = %q, %v", got, err)
	}
	if _, err := answerFromStruct(missing); err == nil {
		t.Fatal("missing: expected error")
	}
	if _, err := answerFromStruct(wrongType); err == nil {
		t.Fatal("wrong type: expected error")
	}
}
