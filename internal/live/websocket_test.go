package live

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ashureev/interviewer/internal/domain"
	"github.com/ashureev/interviewer/internal/identity"
	"github.com/ashureev/interviewer/internal/interview"
	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
)

func newLiveServer(t *testing.T) (*httptest.Server, *interview.Registry, *ConnManager) {
	t.Helper()
	reg := interview.NewRegistry(interview.Deps{
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}, 0)
	t.Cleanup(reg.CloseAll)

	conns := NewConnManager()
	h := NewHandler(reg, conns, "", true)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.ServeHTTP(w, r.WithContext(identity.WithIdentity(r.Context(), "anon_live", "tab-1")))
	}))
	t.Cleanup(srv.Close)
	return srv, reg, conns
}

func dial(t *testing.T, ctx context.Context, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	t.Cleanup(func() { _ = conn.Close(websocket.StatusNormalClosure, "") })
	return conn
}

// readUntil reads messages until match returns true.
func readUntil(t *testing.T, ctx context.Context, conn *websocket.Conn, match func(outbound) bool) outbound {
	t.Helper()
	for {
		var msg outbound
		if err := wsjson.Read(ctx, conn, &msg); err != nil {
			t.Fatalf("read error = %v", err)
		}
		if match(msg) {
			return msg
		}
	}
}

func TestHandler_InitialStateAndPing(t *testing.T) {
	srv, _, _ := newLiveServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn := dial(t, ctx, srv)

	first := readUntil(t, ctx, conn, func(m outbound) bool { return m.Type == "state" })
	if first.State == nil || first.State.Phase != domain.PhaseIntro {
		t.Fatalf("initial state = %+v, want intro", first.State)
	}

	if err := wsjson.Write(ctx, conn, inbound{Type: "ping"}); err != nil {
		t.Fatal(err)
	}
	readUntil(t, ctx, conn, func(m outbound) bool { return m.Type == "pong" })
}

func TestHandler_BlurReachesOrchestrator(t *testing.T) {
	srv, reg, _ := newLiveServer(t)
	o := reg.Get("anon_live", "tab-1")

	tr := &domain.Transcript{}
	tr.AppendExchange("Привет", "Здравствуйте")
	if _, err := o.Resume(domain.SessionRecord{FullTranscript: tr.Turns()}); err != nil {
		t.Fatal(err)
	}
	if _, err := o.OpenTask(domain.Task{ID: "reverse", StarterCode: "def solve(s):\n    pass\n"}); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn := dial(t, ctx, srv)
	readUntil(t, ctx, conn, func(m outbound) bool { return m.Type == "state" })

	if err := wsjson.Write(ctx, conn, inbound{Type: "blur"}); err != nil {
		t.Fatal(err)
	}
	msg := readUntil(t, ctx, conn, func(m outbound) bool {
		return m.Type == "state" && m.State != nil && m.State.Focus.ViolationCount == 1
	})
	if !msg.State.Focus.WarningActive {
		t.Errorf("focus = %+v, want warning active", msg.State.Focus)
	}
}

func TestHandler_PushesCommandResults(t *testing.T) {
	srv, reg, conns := newLiveServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn := dial(t, ctx, srv)
	readUntil(t, ctx, conn, func(m outbound) bool { return m.Type == "state" })

	if conns.Count() != 1 {
		t.Errorf("Count() = %d, want 1", conns.Count())
	}

	reg.Get("anon_live", "tab-1").CloseTaskPanel()
	readUntil(t, ctx, conn, func(m outbound) bool { return m.Type == "state" && m.State.Version >= 1 })
}

func TestLatestKeepsNewest(t *testing.T) {
	l := newLatest()
	l.offer(interview.Snapshot{Version: 3})
	l.offer(interview.Snapshot{Version: 2})
	l.offer(interview.Snapshot{Version: 5})

	snap := l.take()
	if snap == nil || snap.Version != 5 {
		t.Fatalf("take() = %+v, want version 5", snap)
	}
	if l.take() != nil {
		t.Error("second take() should be empty")
	}
}
