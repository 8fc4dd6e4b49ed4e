package hardware

import (
	"context"
	"errors"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestTMP102Celsius(t *testing.T) {
	tests := []struct {
		msb, lsb byte
		want     float64
	}{
		{0x7F, 0xF0, 127.9375},
		{0x19, 0x00, 25},
		{0x00, 0x10, 0.0625},
		{0x00, 0x00, 0},
		{0xFF, 0xF0, -0.0625},
		{0xE7, 0x00, -25},
		{0xC9, 0x00, -55},
	}
	for _, tt := range tests {
		if got := tmp102Celsius(tt.msb, tt.lsb); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("tmp102Celsius(0x%02x, 0x%02x) = %v, want %v", tt.msb, tt.lsb, got, tt.want)
		}
	}
}

func TestThermalSensor(t *testing.T) {
	path := filepath.Join(t.TempDir(), "temp")
	if err := os.WriteFile(path, []byte("48312\n"), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	s := NewThermalSensor(path)
	got, err := s.ReadTemperature(context.Background())
	if err != nil {
		t.Fatalf("ReadTemperature() error = %v", err)
	}
	if math.Abs(got-48.312) > 1e-9 {
		t.Errorf("ReadTemperature() = %v, want 48.312", got)
	}
}

func TestThermalSensor_Errors(t *testing.T) {
	dir := t.TempDir()
	if _, err := NewThermalSensor(filepath.Join(dir, "missing")).ReadTemperature(context.Background()); err == nil {
		t.Error("missing file: error = nil")
	}
	bad := filepath.Join(dir, "bad")
	if err := os.WriteFile(bad, []byte("hot"), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, err := NewThermalSensor(bad).ReadTemperature(context.Background()); err == nil {
		t.Error("garbage file: error = nil")
	}
}

func TestThermalSensor_DefaultPath(t *testing.T) {
	if s := NewThermalSensor(""); s.path != DefaultThermalPath {
		t.Errorf("path = %q, want %q", s.path, DefaultThermalPath)
	}
}

func TestParseReading(t *testing.T) {
	tests := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"21.5", 21.5, true},
		{" 21.5\r", 21.5, true},
		{"21.5C", 21.5, true},
		{"21.5°C", 21.5, true},
		{"T=-4.25", -4.25, true},
		{"", 0, false},
		{"ERR", 0, false},
		{"NaN", 0, false},
	}
	for _, tt := range tests {
		got, ok := parseReading([]byte(tt.in))
		if ok != tt.ok || (ok && got != tt.want) {
			t.Errorf("parseReading(%q) = %v, %v; want %v, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func collect(t *testing.T, in string) ([]float64, error) {
	t.Helper()
	var got []float64
	err := scanReadings(strings.NewReader(in), func(v float64) { got = append(got, v) })
	return got, err
}

func TestScanReadings_SkipsPartialFirstLine(t *testing.T) {
	got, err := collect(t, ".5\n22.25\n23.0\n")
	if !errors.Is(err, io.EOF) {
		t.Errorf("scanReadings() error = %v, want EOF", err)
	}
	if len(got) != 2 || got[0] != 22.25 || got[1] != 23 {
		t.Errorf("readings = %v, want [22.25 23]", got)
	}
}

func TestScanReadings_SkipsGarbage(t *testing.T) {
	got, _ := collect(t, "\nboot v1.2\n19.5\n")
	if len(got) != 1 || got[0] != 19.5 {
		t.Errorf("readings = %v, want [19.5]", got)
	}
}

// stepClock is a settable time source.
type stepClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *stepClock) Add(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// waitReading polls s until it reports want or the deadline passes.
func waitReading(t *testing.T, s *SerialSensor, want float64) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		v, err := s.ReadTemperature(context.Background())
		if err == nil && v == want {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("ReadTemperature() = %v, %v; want %v", v, err, want)
		}
		time.Sleep(time.Millisecond)
	}
}

func TestSerialSensor_ReturnsLatestWithoutBlocking(t *testing.T) {
	pr, pw := io.Pipe()
	clk := &stepClock{now: time.Unix(1700000000, 0)}
	s := newSerialSensor(pr, "test", 5*time.Second, clk.Now)
	defer s.Close()

	start := time.Now()
	if _, err := s.ReadTemperature(context.Background()); !errors.Is(err, errNoReading) {
		t.Errorf("ReadTemperature() before data error = %v, want errNoReading", err)
	}
	if d := time.Since(start); d > 500*time.Millisecond {
		t.Errorf("ReadTemperature() blocked for %v", d)
	}

	go pw.Write([]byte("21.\n21.5\n22.0\n"))
	waitReading(t, s, 22)

	clk.Add(6 * time.Second)
	if _, err := s.ReadTemperature(context.Background()); !errors.Is(err, errStale) {
		t.Errorf("ReadTemperature() after 6s error = %v, want errStale", err)
	}

	go pw.Write([]byte("22.5\n"))
	waitReading(t, s, 22.5)
}

func TestSerialSensor_StreamEnds(t *testing.T) {
	pr, pw := io.Pipe()
	s := newSerialSensor(pr, "test", 0, time.Now)
	pw.CloseWithError(io.ErrUnexpectedEOF)
	<-s.done

	if _, err := s.ReadTemperature(context.Background()); !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Errorf("ReadTemperature() error = %v, want ErrUnexpectedEOF", err)
	}
	if err := s.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

func TestSerialSensor_CloseStopsReader(t *testing.T) {
	pr, _ := io.Pipe()
	s := newSerialSensor(pr, "test", 0, time.Now)

	closed := make(chan struct{})
	go func() {
		s.Close()
		close(closed)
	}()
	select {
	case <-closed:
	case <-time.After(2 * time.Second):
		t.Fatal("Close() did not stop the reader")
	}
}

func TestOpenSensor(t *testing.T) {
	s, err := OpenSensor(SensorOptions{Backend: "mock"})
	if err != nil {
		t.Fatalf("OpenSensor(mock) error = %v", err)
	}
	if _, ok := s.(*MockSensor); !ok {
		t.Errorf("OpenSensor(mock) = %T", s)
	}
	if _, err := OpenSensor(SensorOptions{Backend: "thermocouple"}); err == nil {
		t.Error("OpenSensor(unknown) error = nil")
	}
	s, err = OpenSensor(SensorOptions{})
	if err != nil {
		t.Fatalf("OpenSensor(default) error = %v", err)
	}
	if _, ok := s.(*ThermalSensor); !ok {
		t.Errorf("OpenSensor(default) = %T, want *ThermalSensor", s)
	}
}
