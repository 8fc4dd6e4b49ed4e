//go:build !linux

package hardware

import (
	"errors"
	"time"
)

// CdevButton is only available on Linux.
type CdevButton struct{}

func NewCdevButton(chip string, offset int, debounce time.Duration) *CdevButton {
	return &CdevButton{}
}

func (b *CdevButton) Watch(handler EdgeHandler) error {
	return errors.New("gpio: character device not supported on this platform")
}

func (b *CdevButton) Close() error { return nil }
