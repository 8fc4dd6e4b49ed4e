package hardware

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// DefaultThermalPath is the Raspberry Pi SoC thermal zone.
const DefaultThermalPath = "/sys/class/thermal/thermal_zone0/temp"

// ThermalSensor reads a Linux thermal zone file reporting millidegrees.
type ThermalSensor struct {
	path string
}

// NewThermalSensor returns a sensor reading path, or DefaultThermalPath if
// path is empty.
func NewThermalSensor(path string) *ThermalSensor {
	if path == "" {
		path = DefaultThermalPath
	}
	return &ThermalSensor{path: path}
}

// ReadTemperature returns the zone temperature in Celsius.
func (s *ThermalSensor) ReadTemperature(ctx context.Context) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		return 0, fmt.Errorf("thermal: read %s: %w", s.path, err)
	}
	millideg, err := strconv.ParseInt(strings.TrimSpace(string(data)), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("thermal: parse: %w", err)
	}
	return float64(millideg) / 1000.0, nil
}

func (s *ThermalSensor) Close() error { return nil }
