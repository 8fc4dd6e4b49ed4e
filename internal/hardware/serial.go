package hardware

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.bug.st/serial"
)

const maxSerialLine = 64

var (
	errNoReading = errors.New("serial: no reading yet")
	errStale     = errors.New("serial: reading is stale")
)

// SerialSensor reads a sensor that streams one decimal Celsius value per
// line over a UART, for example a microcontroller bridge. A background
// goroutine consumes the stream; ReadTemperature returns the latest value
// without waiting on the port.
type SerialSensor struct {
	port   io.ReadCloser
	name   string
	maxAge time.Duration
	now    func() time.Time
	done   chan struct{}

	mu    sync.Mutex
	value float64
	at    time.Time
	err   error // set when the stream ends
}

// NewSerialSensor opens portName at baud (8N1) and starts reading it.
// Readings older than maxAge are reported as stale; zero selects 5 seconds.
func NewSerialSensor(portName string, baud int, maxAge time.Duration) (*SerialSensor, error) {
	port, err := serial.Open(portName, &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return nil, fmt.Errorf("serial: open %s: %w", portName, err)
	}
	if err := port.ResetInputBuffer(); err != nil {
		port.Close()
		return nil, fmt.Errorf("serial: reset %s: %w", portName, err)
	}
	return newSerialSensor(port, portName, maxAge, time.Now), nil
}

func newSerialSensor(port io.ReadCloser, name string, maxAge time.Duration, now func() time.Time) *SerialSensor {
	if maxAge <= 0 {
		maxAge = 5 * time.Second
	}
	s := &SerialSensor{port: port, name: name, maxAge: maxAge, now: now, done: make(chan struct{})}
	go s.readLoop()
	return s
}

func (s *SerialSensor) readLoop() {
	defer close(s.done)
	err := scanReadings(s.port, func(v float64) {
		s.mu.Lock()
		s.value, s.at = v, s.now()
		s.mu.Unlock()
	})
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
}

// ReadTemperature returns the most recent reading if it is younger than
// maxAge. It never blocks on the port.
func (s *SerialSensor) ReadTemperature(ctx context.Context) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.at.IsZero() {
		if age := s.now().Sub(s.at); age <= s.maxAge {
			return s.value, nil
		}
	}
	switch {
	case s.err != nil:
		return 0, fmt.Errorf("serial: read %s: %w", s.name, s.err)
	case s.at.IsZero():
		return 0, errNoReading
	default:
		return 0, fmt.Errorf("%w: last at %s", errStale, s.at.Format(time.RFC3339))
	}
}

// Close closes the port and waits for the reader goroutine to exit.
func (s *SerialSensor) Close() error {
	err := s.port.Close()
	<-s.done
	return err
}

// scanReadings calls fn for every line of r that parses as a temperature,
// until r fails. The first line is discarded because reading may have
// started mid-line.
func scanReadings(r io.Reader, fn func(float64)) error {
	var line []byte
	skipFirst := true
	buf := make([]byte, 32)
	for {
		n, err := r.Read(buf)
		for _, b := range buf[:n] {
			if b != '\n' {
				if len(line) < maxSerialLine {
					line = append(line, b)
				}
				continue
			}
			if skipFirst {
				skipFirst = false
			} else if v, ok := parseReading(line); ok {
				fn(v)
			}
			line = line[:0]
		}
		if err != nil {
			return err
		}
	}
}

// parseReading accepts "21.5", "21.5C" or "T=21.5".
func parseReading(line []byte) (float64, bool) {
	text := string(bytes.TrimSpace(line))
	if _, after, found := strings.Cut(text, "="); found {
		text = after
	}
	text = strings.TrimSpace(strings.TrimSuffix(strings.TrimSuffix(text, "C"), "°"))
	v, err := strconv.ParseFloat(text, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}
