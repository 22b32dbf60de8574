package agent

import (
	"context"
	"errors"
	"testing"
)

type fakeDialogue struct {
	last     ChatRequest
	answer   string
	err      error
	resets   int
	closed   bool
	resetErr error
}

func (f *fakeDialogue) Chat(_ context.Context, req ChatRequest) (string, error) {
	f.last = req
	return f.answer, f.err
}

func (f *fakeDialogue) Reset(context.Context, string, string) error {
	f.resets++
	return f.resetErr
}

func (f *fakeDialogue) Close() { f.closed = true }

func TestServiceAsk(t *testing.T) {
	t.Parallel()

	d := &fakeDialogue{answer: "Можем переходить к секции live-code"}
	s := NewService(d, "", nil)

	got, err := s.Ask(context.Background(), "u1", "tab-1", "готов")
	if err != nil || got != d.answer {
		t.Fatalf("Ask() = %q, %v", got, err)
	}
	if d.last.Mode != ModeTech || d.last.SessionID != "tab-1" || d.last.UserID != "u1" {
		t.Fatalf("request = %+v", d.last)
	}

	d.err = errors.New("unreachable")
	if _, err := s.Ask(context.Background(), "u1", "tab-1", "x"); err == nil {
		t.Fatal("expected error")
	}

	d.resetErr = errors.New("down")
	if err := s.ResetSession(context.Background(), "u1", "tab-1"); err == nil || d.resets != 1 {
		t.Fatalf("ResetSession() = %v, resets = %d", err, d.resets)
	}

	s.Close()
	if !d.closed {
		t.Fatal("Close not propagated")
	}
}
