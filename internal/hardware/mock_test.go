package hardware_test

import (
	"context"
	"errors"
	"testing"

	"github.com/micro-nova/templog/internal/hardware"
)

func TestMockSensor_Script(t *testing.T) {
	m := hardware.NewMockSensor(20, 21)
	m.FailNext(1)
	ctx := context.Background()

	if _, err := m.ReadTemperature(ctx); !errors.Is(err, hardware.ErrMockRead) {
		t.Fatalf("first read error = %v, want ErrMockRead", err)
	}
	for _, want := range []float64{20, 21, 21} {
		got, err := m.ReadTemperature(ctx)
		if err != nil {
			t.Fatalf("ReadTemperature() error = %v", err)
		}
		if got != want {
			t.Errorf("ReadTemperature() = %v, want %v", got, want)
		}
	}
	if m.Reads() != 4 {
		t.Errorf("Reads() = %d, want 4", m.Reads())
	}
	m.Close()
	if !m.Closed() {
		t.Error("Closed() = false after Close")
	}
}

func TestMockButton_DeliversEdges(t *testing.T) {
	b := hardware.NewMockButton()
	var got []bool
	if err := b.Watch(func(p bool) { got = append(got, p) }); err != nil {
		t.Fatalf("Watch() error = %v", err)
	}
	b.Press()
	b.Release()
	b.Close()
	b.Press()

	if len(got) != 2 || !got[0] || got[1] {
		t.Errorf("edges = %v, want [true false]", got)
	}
}

func TestOpenButton(t *testing.T) {
	b, err := hardware.OpenButton(hardware.ButtonOptions{Backend: "none"})
	if err != nil {
		t.Fatalf("OpenButton(none) error = %v", err)
	}
	if err := b.Watch(func(bool) {}); err != nil {
		t.Errorf("Watch() error = %v", err)
	}
	if _, err := hardware.OpenButton(hardware.ButtonOptions{Backend: "bogus"}); err == nil {
		t.Error("OpenButton(bogus) error = nil")
	}
	b, err = hardware.OpenButton(hardware.ButtonOptions{Pin: "GPIO17"})
	if err != nil {
		t.Fatalf("OpenButton(default) error = %v", err)
	}
	if _, ok := b.(*hardware.PeriphButton); !ok {
		t.Errorf("OpenButton(default) = %T, want *PeriphButton", b)
	}
}
