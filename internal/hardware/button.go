package hardware

import (
	"fmt"
	"time"
)

// EdgeHandler receives button transitions. It is called from the GPIO
// edge-event goroutine and must not block, log or perform I/O.
type EdgeHandler func(pressed bool)

// Button is an active-low push button watched on both edges.
type Button interface {
	// Watch starts delivering edges to handler. It returns once watching
	// has begun; edges arrive asynchronously until Close.
	Watch(handler EdgeHandler) error

	// Close stops watching and releases the line.
	Close() error
}

// ButtonOptions selects and configures a Button backend.
type ButtonOptions struct {
	Backend  string // periph, gpiocdev or none
	Pin      string // periph pin name
	Chip     string // gpiocdev chip name
	Line     int    // gpiocdev line offset
	Debounce time.Duration
}

// OpenButton returns the backend named by opts.Backend. The "none" backend
// never reports an edge.
func OpenButton(opts ButtonOptions) (Button, error) {
	if opts.Debounce <= 0 {
		opts.Debounce = 20 * time.Millisecond
	}
	switch opts.Backend {
	case "periph", "":
		return NewPeriphButton(opts.Pin), nil
	case "gpiocdev":
		return NewCdevButton(opts.Chip, opts.Line, opts.Debounce), nil
	case "none":
		return NewMockButton(), nil
	default:
		return nil, fmt.Errorf("hardware: unknown button backend %q", opts.Backend)
	}
}
