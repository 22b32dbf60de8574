// Package focusguard tracks focus-loss violations during the practical section.
//
// The state machine is Clean -> Warned -> Locked. The first violation shows a
// transient warning, the second locks the session until it is reset.
package focusguard

import (
	"sync"
	"time"
)

// DefaultWarningDuration is how long the first-violation warning stays visible.
const DefaultWarningDuration = 4 * time.Second

// State is the focus guard state exposed to the orchestrator.
type State struct {
	ViolationCount int  `json:"violation_count"`
	LockedOut      bool `json:"locked_out"`
	WarningActive  bool `json:"warning_active"`
}

// EventKind enumerates reducer inputs.
type EventKind int

// Reducer events.
const (
	FocusLost EventKind = iota
	WarningExpired
	Reset
)

// Event is a reducer input. Guarded is only meaningful for FocusLost.
type Event struct {
	Kind    EventKind
	Guarded bool
}

// Reduce returns the state that follows s after ev. It is pure.
func Reduce(s State, ev Event) State {
	switch ev.Kind {
	case FocusLost:
		if !ev.Guarded || s.LockedOut {
			return s
		}
		s.ViolationCount++
		if s.ViolationCount >= 2 {
			s.LockedOut = true
			s.WarningActive = false
			return s
		}
		s.WarningActive = true
		return s
	case WarningExpired:
		s.WarningActive = false
		return s
	case Reset:
		return State{}
	default:
		return s
	}
}

// Guard owns a State and the timer that clears the first warning.
// It is safe for concurrent use.
type Guard struct {
	mu       sync.Mutex
	state    State
	warning  time.Duration
	timer    *time.Timer
	gen      uint64
	onChange func(State)
}

// New creates a Guard. A non-positive warning duration selects the default.
// onChange, when non-nil, is called after every state change made by the
// warning timer; it is not called for changes made through FocusLost or
// Reset, whose callers receive the new state directly.
func New(warning time.Duration, onChange func(State)) *Guard {
	if warning <= 0 {
		warning = DefaultWarningDuration
	}
	return &Guard{warning: warning, onChange: onChange}
}

// State returns the current state.
func (g *Guard) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// FocusLost records a focus-loss event. guarded tells whether the session is
// in a phase where focus loss counts.
func (g *Guard) FocusLost(guarded bool) State {
	g.mu.Lock()
	defer g.mu.Unlock()

	prev := g.state
	g.state = Reduce(g.state, Event{Kind: FocusLost, Guarded: guarded})

	switch {
	case g.state.LockedOut && !prev.LockedOut:
		g.stopTimerLocked()
	case g.state.WarningActive && !prev.WarningActive:
		g.armTimerLocked()
	}
	return g.state
}

// Reset returns the guard to Clean and cancels any pending warning timer.
func (g *Guard) Reset() State {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.stopTimerLocked()
	g.state = Reduce(g.state, Event{Kind: Reset})
	return g.state
}

// Stop cancels the pending warning timer without changing state.
func (g *Guard) Stop() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.stopTimerLocked()
}

func (g *Guard) armTimerLocked() {
	g.stopTimerLocked()
	gen := g.gen
	g.timer = time.AfterFunc(g.warning, func() { g.expire(gen) })
}

func (g *Guard) stopTimerLocked() {
	g.gen++
	if g.timer != nil {
		g.timer.Stop()
		g.timer = nil
	}
}

func (g *Guard) expire(gen uint64) {
	g.mu.Lock()
	if gen != g.gen || !g.state.WarningActive {
		g.mu.Unlock()
		return
	}
	g.timer = nil
	g.state = Reduce(g.state, Event{Kind: WarningExpired})
	state := g.state
	onChange := g.onChange
	g.mu.Unlock()

	if onChange != nil {
		onChange(state)
	}
}
