package hardware

import (
	"fmt"
	"sync"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

// PeriphButton watches a pin through periph.io's sysfs/mem GPIO drivers.
type PeriphButton struct {
	name string

	mu   sync.Mutex
	pin  gpio.PinIO
	done chan struct{}
}

// NewPeriphButton returns a button on the named pin (BCM name, e.g. "GPIO17").
// The pin is not touched until Watch.
func NewPeriphButton(name string) *PeriphButton {
	return &PeriphButton{name: name}
}

// Watch configures the pin as a pulled-up input with both-edge detection
// and starts the edge goroutine.
func (b *PeriphButton) Watch(handler EdgeHandler) error {
	if _, err := host.Init(); err != nil {
		return fmt.Errorf("gpio: host init failed: %w", err)
	}
	pin := gpioreg.ByName(b.name)
	if pin == nil {
		return fmt.Errorf("gpio: failed to open %s", b.name)
	}
	if err := pin.In(gpio.PullUp, gpio.BothEdges); err != nil {
		return fmt.Errorf("gpio: configure %s: %w", b.name, err)
	}

	b.mu.Lock()
	b.pin = pin
	b.done = make(chan struct{})
	done := b.done
	b.mu.Unlock()

	go func() {
		defer close(done)
		last := gpio.High
		for {
			if !pin.WaitForEdge(-1) {
				// Halt() or a driver error ends the wait.
				if b.closed() {
					return
				}
				time.Sleep(10 * time.Millisecond)
				continue
			}
			level := pin.Read()
			if level == last {
				continue
			}
			last = level
			handler(level == gpio.Low)
		}
	}()
	return nil
}

func (b *PeriphButton) closed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.pin == nil
}

// Close halts edge detection and waits for the edge goroutine to exit.
func (b *PeriphButton) Close() error {
	b.mu.Lock()
	pin, done := b.pin, b.done
	b.pin = nil
	b.mu.Unlock()
	if pin == nil {
		return nil
	}
	err := pin.Halt()
	<-done
	return err
}
