//go:build !linux

package hardware

import (
	"context"
	"errors"
)

// I2CSensor is only available on Linux.
type I2CSensor struct{}

// NewI2CSensor always fails off Linux.
func NewI2CSensor(bus int, addr uint16) (*I2CSensor, error) {
	return nil, errors.New("i2c: not supported on this platform")
}

func (s *I2CSensor) ReadTemperature(ctx context.Context) (float64, error) {
	return 0, errors.New("i2c: not supported on this platform")
}

func (s *I2CSensor) Close() error { return nil }
