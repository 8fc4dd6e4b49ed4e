package hardware

import (
	"context"
	"errors"
	"sync"
)

// ErrMockRead is returned by MockSensor when a failure is scripted.
var ErrMockRead = errors.New("mock: sensor read failed")

// MockSensor is a thread-safe scripted sensor for tests and development.
// Readings are consumed in order; once exhausted the last value repeats.
type MockSensor struct {
	mu       sync.Mutex
	values   []float64
	last     float64
	failNext int
	reads    int
	closed   bool
}

// NewMockSensor returns a sensor that reports the given values in order.
func NewMockSensor(values ...float64) *MockSensor {
	m := &MockSensor{values: values}
	if len(values) > 0 {
		m.last = values[0]
	}
	return m
}

// FailNext makes the next n reads return ErrMockRead.
func (m *MockSensor) FailNext(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failNext = n
}

// Reads returns how many reads were attempted.
func (m *MockSensor) Reads() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reads
}

func (m *MockSensor) ReadTemperature(ctx context.Context) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reads++
	if m.failNext > 0 {
		m.failNext--
		return 0, ErrMockRead
	}
	if len(m.values) > 0 {
		m.last = m.values[0]
		m.values = m.values[1:]
	}
	return m.last, nil
}

func (m *MockSensor) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Closed reports whether Close was called.
func (m *MockSensor) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// MockButton is a Button driven by test code through Press and Release.
type MockButton struct {
	mu      sync.Mutex
	handler EdgeHandler
}

// NewMockButton returns an idle mock button.
func NewMockButton() *MockButton { return &MockButton{} }

func (b *MockButton) Watch(handler EdgeHandler) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handler = handler
	return nil
}

// Press delivers a falling edge.
func (b *MockButton) Press() { b.edge(true) }

// Release delivers a rising edge.
func (b *MockButton) Release() { b.edge(false) }

func (b *MockButton) edge(pressed bool) {
	b.mu.Lock()
	h := b.handler
	b.mu.Unlock()
	if h != nil {
		h(pressed)
	}
}

func (b *MockButton) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handler = nil
	return nil
}

var (
	_ Sensor = (*MockSensor)(nil)
	_ Button = (*MockButton)(nil)
	_ Button = (*PeriphButton)(nil)
	_ Button = (*CdevButton)(nil)
	_ Sensor = (*ThermalSensor)(nil)
	_ Sensor = (*I2CSensor)(nil)
	_ Sensor = (*SerialSensor)(nil)
)
