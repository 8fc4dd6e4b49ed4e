// Package hardware provides the device abstraction layer for the logger:
// the temperature sensor that feeds the sampling loop and the reset button
// that feeds the factory reset gesture.
package hardware

import (
	"context"
	"fmt"
	"time"
)

// Sensor reads one temperature value in degrees Celsius.
// Implementations are safe for use from a single goroutine.
type Sensor interface {
	// ReadTemperature takes one reading. It honours ctx for backends that
	// block on a bus or port.
	ReadTemperature(ctx context.Context) (float64, error)

	// Close releases the underlying device.
	Close() error
}

// SensorOptions selects and configures a Sensor backend.
type SensorOptions struct {
	Backend      string // thermal, i2c, serial or mock
	ThermalPath  string
	I2CBus       int
	I2CAddr      uint16
	SerialPort   string
	SerialBaud   int
	SerialMaxAge time.Duration // oldest serial reading still reported
}

// OpenSensor opens the backend named by opts.Backend.
func OpenSensor(opts SensorOptions) (Sensor, error) {
	switch opts.Backend {
	case "thermal", "":
		return NewThermalSensor(opts.ThermalPath), nil
	case "i2c":
		s, err := NewI2CSensor(opts.I2CBus, opts.I2CAddr)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "serial":
		s, err := NewSerialSensor(opts.SerialPort, opts.SerialBaud, opts.SerialMaxAge)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "mock":
		return NewMockSensor(21.5), nil
	default:
		return nil, fmt.Errorf("hardware: unknown sensor backend %q", opts.Backend)
	}
}

// tmp102Celsius converts a TMP102-class temperature register (two bytes,
// MSB first, 12-bit two's complement left-justified) to degrees Celsius.
func tmp102Celsius(msb, lsb byte) float64 {
	raw := int16(uint16(msb)<<8|uint16(lsb)) >> 4
	return float64(raw) * 0.0625
}
