package reset

import (
	"sync/atomic"
	"time"
)

// Trigger turns a PressState into a one-shot reset signal.
type Trigger struct {
	state *PressState
	hold  time.Duration
	fired atomic.Bool
}

// NewTrigger returns a Trigger that fires once state has been held for hold.
// A non-positive hold selects DefaultHold.
func NewTrigger(state *PressState, hold time.Duration) *Trigger {
	if hold <= 0 {
		hold = DefaultHold
	}
	return &Trigger{state: state, hold: hold}
}

// Hold returns the configured hold threshold.
func (t *Trigger) Hold() time.Duration { return t.hold }

// State returns the press cell the edge watcher should write to.
func (t *Trigger) State() *PressState { return t.state }

// Poll reports whether the reset should run now. It returns true at most
// once for the lifetime of the Trigger; the restart that follows is what
// re-arms it.
func (t *Trigger) Poll() bool {
	held, pressed := t.state.Held()
	if !pressed || held < t.hold {
		return false
	}
	return t.fired.CompareAndSwap(false, true)
}

// Fired reports whether Poll has already returned true.
func (t *Trigger) Fired() bool { return t.fired.Load() }
