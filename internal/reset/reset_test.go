package reset_test

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/micro-nova/templog/internal/reset"
)

// fakeClock is a monotonic clock advanced by the test.
type fakeClock struct{ n atomic.Int64 }

func (c *fakeClock) now() time.Duration      { return time.Duration(c.n.Load()) }
func (c *fakeClock) advance(d time.Duration) { c.n.Add(int64(d)) }

func newTrigger(hold time.Duration) (*reset.PressState, *reset.Trigger, *fakeClock) {
	clk := &fakeClock{}
	ps := reset.NewPressState(clk.now)
	return ps, reset.NewTrigger(ps, hold), clk
}

func TestTrigger_LongPressFiresOnce(t *testing.T) {
	ps, tr, clk := newTrigger(10 * time.Second)

	ps.Edge(true)
	clk.advance(9 * time.Second)
	if tr.Poll() {
		t.Fatal("Poll() fired before hold threshold")
	}
	fires := 0
	for i := 0; i < 2; i++ {
		clk.advance(time.Second)
		if tr.Poll() {
			fires++
		}
	}
	if fires != 1 {
		t.Errorf("fires = %d, want 1", fires)
	}
	if !tr.Fired() {
		t.Error("Fired() = false after firing")
	}
}

func TestTrigger_ShortPressIsNoop(t *testing.T) {
	ps, tr, clk := newTrigger(10 * time.Second)

	ps.Edge(true)
	clk.advance(3 * time.Second)
	ps.Edge(false)
	for s := 3; s < 30; s++ {
		if tr.Poll() {
			t.Fatalf("Poll() fired at +%ds after release", s)
		}
		clk.advance(time.Second)
	}
}

func TestTrigger_NoAccumulationAcrossPresses(t *testing.T) {
	ps, tr, clk := newTrigger(10 * time.Second)

	ps.Edge(true)
	clk.advance(6 * time.Second)
	ps.Edge(false)
	clk.advance(time.Second)
	ps.Edge(true)
	clk.advance(6 * time.Second)
	if tr.Poll() {
		t.Fatal("Poll() fired on accumulated press time")
	}
	clk.advance(4 * time.Second)
	if !tr.Poll() {
		t.Fatal("Poll() did not fire after a full hold of the second press")
	}
}

func TestPressState_BounceKeepsStart(t *testing.T) {
	ps, _, clk := newTrigger(0)
	ps.Edge(true)
	clk.advance(5 * time.Second)
	ps.Edge(true)
	clk.advance(5 * time.Second)

	held, ok := ps.Held()
	if !ok || held != 10*time.Second {
		t.Errorf("Held() = %v, %v; want 10s, true", held, ok)
	}
}

func TestPressState_Released(t *testing.T) {
	var ps reset.PressState
	if _, ok := ps.Held(); ok {
		t.Error("zero PressState reports pressed")
	}
}

func TestNewTrigger_DefaultHold(t *testing.T) {
	tr := reset.NewTrigger(&reset.PressState{}, 0)
	if tr.Hold() != reset.DefaultHold {
		t.Errorf("Hold() = %v, want %v", tr.Hold(), reset.DefaultHold)
	}
}

func TestMonotonic_NeverDecreases(t *testing.T) {
	prev := reset.Monotonic()
	for i := 0; i < 1000; i++ {
		cur := reset.Monotonic()
		if cur < prev {
			t.Fatalf("Monotonic() went back from %v to %v", prev, cur)
		}
		prev = cur
	}
}

func TestPressState_ConcurrentEdgeAndPoll(t *testing.T) {
	ps, tr, clk := newTrigger(time.Hour)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			clk.advance(time.Millisecond)
			ps.Edge(i%2 == 0)
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			tr.Poll()
		}
	}()
	wg.Wait()
	if tr.Fired() {
		t.Error("Poll() fired with a one-hour hold")
	}
}
