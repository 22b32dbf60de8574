package focusguard

import (
	"testing"
	"time"
)

func TestReduce(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		start State
		ev    Event
		want  State
	}{
		{
			name: "unguarded focus loss ignored",
			ev:   Event{Kind: FocusLost},
			want: State{},
		},
		{
			name: "first violation warns",
			ev:   Event{Kind: FocusLost, Guarded: true},
			want: State{ViolationCount: 1, WarningActive: true},
		},
		{
			name:  "second violation locks",
			start: State{ViolationCount: 1},
			ev:    Event{Kind: FocusLost, Guarded: true},
			want:  State{ViolationCount: 2, LockedOut: true},
		},
		{
			name:  "second violation during warning locks",
			start: State{ViolationCount: 1, WarningActive: true},
			ev:    Event{Kind: FocusLost, Guarded: true},
			want:  State{ViolationCount: 2, LockedOut: true},
		},
		{
			name:  "locked is absorbing",
			start: State{ViolationCount: 2, LockedOut: true},
			ev:    Event{Kind: FocusLost, Guarded: true},
			want:  State{ViolationCount: 2, LockedOut: true},
		},
		{
			name:  "warning expiry keeps count",
			start: State{ViolationCount: 1, WarningActive: true},
			ev:    Event{Kind: WarningExpired},
			want:  State{ViolationCount: 1},
		},
		{
			name:  "reset clears lock",
			start: State{ViolationCount: 2, LockedOut: true},
			ev:    Event{Kind: Reset},
			want:  State{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := Reduce(tt.start, tt.ev); got != tt.want {
				t.Fatalf("Reduce(%+v, %+v) = %+v, want %+v", tt.start, tt.ev, got, tt.want)
			}
		})
	}
}

func TestGuardWarningAutoClears(t *testing.T) {
	t.Parallel()

	changed := make(chan State, 1)
	g := New(20*time.Millisecond, func(s State) { changed <- s })
	defer g.Stop()

	if s := g.FocusLost(true); !s.WarningActive || s.ViolationCount != 1 {
		t.Fatalf("after first loss = %+v", s)
	}

	select {
	case s := <-changed:
		if s.WarningActive || s.ViolationCount != 1 || s.LockedOut {
			t.Fatalf("after expiry = %+v", s)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("warning did not clear")
	}

	if s := g.FocusLost(true); !s.LockedOut {
		t.Fatalf("second loss after expiry = %+v, want locked", s)
	}
}

func TestGuardResetCancelsTimer(t *testing.T) {
	t.Parallel()

	changed := make(chan State, 1)
	g := New(30*time.Millisecond, func(s State) { changed <- s })

	g.FocusLost(true)
	if s := g.Reset(); s != (State{}) {
		t.Fatalf("Reset = %+v", s)
	}

	select {
	case s := <-changed:
		t.Fatalf("stale timer fired after reset: %+v", s)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestGuardUnguardedAndLocked(t *testing.T) {
	t.Parallel()

	g := New(time.Hour, nil)
	defer g.Stop()

	if s := g.FocusLost(false); s != (State{}) {
		t.Fatalf("unguarded loss changed state: %+v", s)
	}
	g.FocusLost(true)
	g.FocusLost(true)
	if s := g.FocusLost(true); s.ViolationCount != 2 || !s.LockedOut || s.WarningActive {
		t.Fatalf("locked state = %+v", s)
	}
}
