// Package reset implements the long-press factory reset gesture.
//
// The GPIO edge context writes a PressState; the control loop polls it
// through a Trigger. The two sides share nothing but atomics, so the edge
// side never blocks.
//
// Hold time is measured on a monotonic clock. The wall clock is stepped by
// the first NTP sync on boards without an RTC, and the trigger is polled
// while that sync is in progress.
package reset

import (
	"sync/atomic"
	"time"
)

// DefaultHold is how long the button must stay pressed before a reset fires.
const DefaultHold = 10 * time.Second

// Clock returns the time elapsed since a fixed origin on a clock that only
// moves forward.
type Clock func() time.Duration

var origin = time.Now()

// Monotonic reads the process monotonic clock.
func Monotonic() time.Duration { return time.Since(origin) }

// PressState is a single-writer, single-reader cell holding whether the
// button is down and since when. The zero value is released and reads
// Monotonic.
type PressState struct {
	pressed atomic.Bool
	since   atomic.Int64 // clock reading of the press edge, nanos
	clock   Clock
}

// NewPressState returns a released PressState timed by clock. A nil clock
// selects Monotonic.
func NewPressState(clock Clock) *PressState {
	return &PressState{clock: clock}
}

func (p *PressState) now() time.Duration {
	if p.clock == nil {
		return Monotonic()
	}
	return p.clock()
}

// Edge records a button transition. It is called from the edge-event
// context and must stay free of I/O and logging.
//
// A press stores its start before raising the flag, so a reader that
// observes pressed=true also observes the start. A release drops the flag
// and discards the accumulated duration.
func (p *PressState) Edge(pressed bool) {
	if pressed {
		if p.pressed.Load() {
			// Repeated press edge (bounce); keep the first start.
			return
		}
		p.since.Store(int64(p.now()))
		p.pressed.Store(true)
		return
	}
	p.pressed.Store(false)
}

// Held reports how long the button has been held, or false if it is
// released.
func (p *PressState) Held() (time.Duration, bool) {
	if !p.pressed.Load() {
		return 0, false
	}
	d := p.now() - time.Duration(p.since.Load())
	if d < 0 {
		d = 0
	}
	return d, true
}
