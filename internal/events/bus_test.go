package events_test

import (
	"testing"
	"time"

	"github.com/micro-nova/templog/internal/events"
	"github.com/micro-nova/templog/internal/models"
)

func TestBusSubscribePublish(t *testing.T) {
	bus := events.NewBus()

	ch := bus.Subscribe("test1")

	bus.Publish(models.Sample{Timestamp: 1000, Value: 21.5})

	select {
	case got := <-ch:
		if got.Timestamp != 1000 || got.Value != 21.5 {
			t.Errorf("got %v, want (1000, 21.50)", got)
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("timed out waiting for event")
	}
}

func TestBusUnsubscribe(t *testing.T) {
	bus := events.NewBus()
	ch := bus.Subscribe("test-unsub")

	bus.Unsubscribe("test-unsub")

	// Channel should be closed
	select {
	case _, ok := <-ch:
		if ok {
			t.Error("expected channel to be closed after unsubscribe")
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("timed out waiting for channel close")
	}
}

func TestBusResubscribeClosesOld(t *testing.T) {
	bus := events.NewBus()
	old := bus.Subscribe("dup")
	bus.Subscribe("dup")

	if _, ok := <-old; ok {
		t.Error("expected replaced channel to be closed")
	}
	if n := bus.SubscriberCount(); n != 1 {
		t.Errorf("expected 1 subscriber, got %d", n)
	}
}

func TestBusDropsEventsWhenFull(t *testing.T) {
	bus := events.NewBus()
	ch := bus.Subscribe("slow-reader")

	// Publish many events without reading; must not block
	done := make(chan struct{})
	go func() {
		for i := 0; i < 20; i++ {
			bus.Publish(models.Sample{Timestamp: int64(i)})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(500 * time.Millisecond):
		t.Fatal("Publish blocked for too long (should drop events)")
	}

	if got := bus.Dropped(); got != 12 {
		t.Errorf("Dropped() = %d, want 12", got)
	}
	// The buffered events are the oldest ones.
	if first := <-ch; first.Timestamp != 0 {
		t.Errorf("first buffered = %d, want 0", first.Timestamp)
	}
	bus.Unsubscribe("slow-reader")
}

func TestBusSubscriberCount(t *testing.T) {
	bus := events.NewBus()
	if n := bus.SubscriberCount(); n != 0 {
		t.Errorf("expected 0 subscribers, got %d", n)
	}
	bus.Subscribe("s1")
	bus.Subscribe("s2")
	if n := bus.SubscriberCount(); n != 2 {
		t.Errorf("expected 2 subscribers, got %d", n)
	}
	bus.Unsubscribe("s1")
	if n := bus.SubscriberCount(); n != 1 {
		t.Errorf("expected 1 subscriber, got %d", n)
	}
	bus.Close()
	if n := bus.SubscriberCount(); n != 0 {
		t.Errorf("expected 0 subscribers after Close, got %d", n)
	}
}

type recordSink struct{ got []models.Sample }

func (r *recordSink) Publish(s models.Sample) { r.got = append(r.got, s) }

func TestMulti(t *testing.T) {
	a, b := &recordSink{}, &recordSink{}
	events.Multi{a, b}.Publish(models.Sample{Timestamp: 7})
	if len(a.got) != 1 || len(b.got) != 1 {
		t.Errorf("sinks got %d and %d samples, want 1 each", len(a.got), len(b.got))
	}
}
