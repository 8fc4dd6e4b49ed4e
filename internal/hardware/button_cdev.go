//go:build linux

package hardware

import (
	"fmt"
	"sync"
	"time"

	"github.com/warthog618/go-gpiocdev"
)

// CdevButton watches a line through the Linux GPIO character device.
type CdevButton struct {
	chip     string
	offset   int
	debounce time.Duration

	mu   sync.Mutex
	line *gpiocdev.Line
}

// NewCdevButton returns a button on chip/offset with kernel debouncing.
// The line is not requested until Watch.
func NewCdevButton(chip string, offset int, debounce time.Duration) *CdevButton {
	return &CdevButton{chip: chip, offset: offset, debounce: debounce}
}

// Watch requests the line as a pulled-up input reporting both edges. The
// kernel delivers events to handler on gpiocdev's event goroutine.
func (b *CdevButton) Watch(handler EdgeHandler) error {
	eh := func(evt gpiocdev.LineEvent) {
		handler(evt.Type == gpiocdev.LineEventFallingEdge)
	}
	line, err := gpiocdev.RequestLine(b.chip, b.offset,
		gpiocdev.AsInput,
		gpiocdev.WithPullUp,
		gpiocdev.WithBothEdges,
		gpiocdev.WithDebounce(b.debounce),
		gpiocdev.WithEventHandler(eh),
		gpiocdev.WithConsumer("templog-reset"))
	if err != nil {
		return fmt.Errorf("gpio: request %s line %d: %w", b.chip, b.offset, err)
	}
	b.mu.Lock()
	b.line = line
	b.mu.Unlock()
	return nil
}

// Close reconfigures the line to a plain pulled-up input and releases it.
func (b *CdevButton) Close() error {
	b.mu.Lock()
	line := b.line
	b.line = nil
	b.mu.Unlock()
	if line == nil {
		return nil
	}
	var errs []error
	if err := line.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullUp); err != nil {
		errs = append(errs, fmt.Errorf("reconfigure line: %w", err))
	}
	if err := line.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close line: %w", err))
	}
	if len(errs) > 0 {
		return fmt.Errorf("gpio: close errors: %v", errs)
	}
	return nil
}
