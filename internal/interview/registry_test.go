package interview

import (
	"io"
	"log/slog"
	"testing"
	"time"
)

func newTestRegistry(ttl time.Duration) *Registry {
	return NewRegistry(Deps{
		Dialogue: &fakeDialogue{},
		Runner:   &fakeRunner{},
		Recorder: &fakeRecorder{},
		Tasks:    fakeTasks{},
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}, ttl)
}

func TestRegistry_GetIsStable(t *testing.T) {
	r := newTestRegistry(time.Hour)
	defer r.CloseAll()

	a := r.Get("u1", "tab-a")
	if b := r.Get("u1", "tab-a"); a != b {
		t.Error("Get returned a different orchestrator for the same pair")
	}
	if c := r.Get("u1", "tab-b"); c == a {
		t.Error("different tabs must not share an orchestrator")
	}
	if r.Len() != 2 {
		t.Errorf("Len() = %d, want 2", r.Len())
	}
	if _, ok := r.Lookup("u2", "tab-a"); ok {
		t.Error("Lookup must not create sessions")
	}
}

func TestRegistry_Remove(t *testing.T) {
	r := newTestRegistry(time.Hour)
	r.Get("u1", "tab")

	if !r.Remove("u1", "tab") {
		t.Fatal("Remove() = false, want true")
	}
	if r.Remove("u1", "tab") {
		t.Error("second Remove() = true, want false")
	}
	if r.Len() != 0 {
		t.Errorf("Len() = %d, want 0", r.Len())
	}
}

func TestRegistry_SweepEvictsIdle(t *testing.T) {
	r := newTestRegistry(time.Minute)
	defer r.CloseAll()

	var evicted []string
	r.OnEvict(func(userID, sessionID string) {
		evicted = append(evicted, userID+"/"+sessionID)
	})

	r.Get("u1", "old")
	if n := r.Sweep(time.Now()); n != 0 {
		t.Fatalf("Sweep(now) = %d, want 0", n)
	}

	if n := r.Sweep(time.Now().Add(2 * time.Minute)); n != 1 {
		t.Fatalf("Sweep(later) = %d, want 1", n)
	}
	if len(evicted) != 1 || evicted[0] != "u1/old" {
		t.Errorf("evicted = %v, want [u1/old]", evicted)
	}
	if _, ok := r.Lookup("u1", "old"); ok {
		t.Error("evicted session still registered")
	}
}

func TestRegistry_SweepDisabled(t *testing.T) {
	r := newTestRegistry(0)
	defer r.CloseAll()

	r.Get("u1", "tab")
	if n := r.Sweep(time.Now().Add(24 * time.Hour)); n != 0 {
		t.Errorf("Sweep() = %d, want 0 when ttl is disabled", n)
	}
}
