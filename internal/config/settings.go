package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultDataDir is where credentials, samples and metadata live on the device.
const DefaultDataDir = "/var/lib/templog"

// Settings is the daemon configuration read from the YAML settings file.
type Settings struct {
	DataDir  string           `yaml:"data_dir"`
	Addr     string           `yaml:"addr"`
	Sampling SamplingSettings `yaml:"sampling"`
	Connect  RetrySettings    `yaml:"connect"`
	Sync     RetrySettings    `yaml:"sync"`
	Reset    ResetSettings    `yaml:"reset"`
	Sensor   SensorSettings   `yaml:"sensor"`
	Network  NetworkSettings  `yaml:"network"`
	MQTT     MQTTSettings     `yaml:"mqtt"`
	Server   ServerSettings   `yaml:"server"`
}

// SamplingSettings controls the connected-mode timers and the window limits.
type SamplingSettings struct {
	IntervalSeconds   int           `yaml:"interval_seconds"`
	Interval          time.Duration `yaml:"-"`
	ResyncMinutes     int           `yaml:"resync_minutes"`
	Resync            time.Duration `yaml:"-"`
	WindowDefault     int           `yaml:"window_default"`
	WindowMax         int           `yaml:"window_max"`
	MaxAppendFailures int           `yaml:"max_append_failures"`
}

// RetrySettings bounds a retried operation. Attempts must stay finite.
type RetrySettings struct {
	Attempts int           `yaml:"attempts"`
	DelayMS  int           `yaml:"delay_ms"`
	Delay    time.Duration `yaml:"-"`
}

// ResetSettings configures the factory reset button.
type ResetSettings struct {
	Backend     string        `yaml:"backend"` // periph, gpiocdev or none
	Pin         string        `yaml:"pin"`     // periph pin name, e.g. GPIO17
	Chip        string        `yaml:"chip"`    // gpiocdev chip, e.g. gpiochip0
	LineOffset  *int          `yaml:"line"`    // gpiocdev line offset; unset selects 17
	Line        int           `yaml:"-"`
	HoldSeconds int           `yaml:"hold_seconds"`
	Hold        time.Duration `yaml:"-"`
	WipeSamples bool          `yaml:"wipe_samples"`
}

// SensorSettings selects and configures the temperature sensor.
type SensorSettings struct {
	Backend     string `yaml:"backend"` // thermal, i2c, serial or mock
	ThermalPath string `yaml:"thermal_path"`
	I2CBus      int    `yaml:"i2c_bus"`
	I2CAddr     int    `yaml:"i2c_addr"`
	SerialPort  string `yaml:"serial_port"`
	SerialBaud  int    `yaml:"serial_baud"`
}

// NetworkSettings configures association and clock sync.
type NetworkSettings struct {
	Backend   string `yaml:"backend"` // networkmanager or none
	Interface string `yaml:"interface"`
	APSecret  string `yaml:"ap_secret"` // empty runs an open access point
	CheckAddr string `yaml:"check_addr"`
}

// MQTTSettings enables the optional broker sink. An empty Broker disables it.
type MQTTSettings struct {
	Broker   string `yaml:"broker"`
	Topic    string `yaml:"topic"`
	ClientID string `yaml:"client_id"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// ServerSettings configures the HTTP server.
type ServerSettings struct {
	RateLimitPerSec float64 `yaml:"rate_limit_per_sec"`
	RateLimitBurst  int     `yaml:"rate_limit_burst"`
	CacheTTLSeconds int     `yaml:"cache_ttl_seconds"`
}

// DefaultSettings returns the settings used when no file is present.
func DefaultSettings() *Settings {
	s := &Settings{}
	s.applyDefaults()
	return s
}

// LoadSettings reads the settings file at path. A missing file yields
// defaults; zero or negative values are replaced by their defaults.
func LoadSettings(path string) (*Settings, error) {
	var s Settings
	if path != "" {
		f, err := os.Open(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
			slog.Info("config: settings file not found, using defaults", "path", path)
		case err != nil:
			return nil, fmt.Errorf("config: open %s: %w", path, err)
		default:
			defer f.Close()
			if err := yaml.NewDecoder(f).Decode(&s); err != nil && !errors.Is(err, io.EOF) {
				return nil, fmt.Errorf("config: parse %s: %w", path, err)
			}
		}
	}
	s.applyDefaults()
	return &s, nil
}

func (s *Settings) applyDefaults() {
	if s.DataDir == "" {
		s.DataDir = DefaultDataDir
	}
	if s.Addr == "" {
		s.Addr = ":80"
	}

	if s.Sampling.IntervalSeconds <= 0 {
		s.Sampling.IntervalSeconds = 60
	}
	s.Sampling.Interval = time.Duration(s.Sampling.IntervalSeconds) * time.Second
	if s.Sampling.ResyncMinutes <= 0 {
		s.Sampling.ResyncMinutes = 360
	}
	s.Sampling.Resync = time.Duration(s.Sampling.ResyncMinutes) * time.Minute
	if s.Sampling.WindowMax <= 0 {
		s.Sampling.WindowMax = 1000
	}
	if s.Sampling.WindowDefault <= 0 {
		s.Sampling.WindowDefault = 100
	}
	if s.Sampling.WindowDefault > s.Sampling.WindowMax {
		s.Sampling.WindowDefault = s.Sampling.WindowMax
	}
	if s.Sampling.MaxAppendFailures <= 0 {
		s.Sampling.MaxAppendFailures = 5
	}

	s.Connect.applyDefaults()
	s.Sync.applyDefaults()

	if s.Reset.Backend == "" {
		s.Reset.Backend = "periph"
	}
	if s.Reset.Pin == "" {
		s.Reset.Pin = "GPIO17"
	}
	if s.Reset.Chip == "" {
		s.Reset.Chip = "gpiochip0"
	}
	if s.Reset.LineOffset != nil && *s.Reset.LineOffset >= 0 {
		s.Reset.Line = *s.Reset.LineOffset
	} else {
		s.Reset.Line = 17
	}
	if s.Reset.HoldSeconds <= 0 {
		s.Reset.HoldSeconds = 10
	}
	s.Reset.Hold = time.Duration(s.Reset.HoldSeconds) * time.Second

	if s.Sensor.Backend == "" {
		s.Sensor.Backend = "thermal"
	}
	if s.Sensor.ThermalPath == "" {
		s.Sensor.ThermalPath = "/sys/class/thermal/thermal_zone0/temp"
	}
	if s.Sensor.I2CBus <= 0 {
		s.Sensor.I2CBus = 1
	}
	if s.Sensor.I2CAddr <= 0 {
		s.Sensor.I2CAddr = 0x48
	}
	if s.Sensor.SerialPort == "" {
		s.Sensor.SerialPort = "/dev/ttyUSB0"
	}
	if s.Sensor.SerialBaud <= 0 {
		s.Sensor.SerialBaud = 9600
	}

	if s.Network.Backend == "" {
		s.Network.Backend = "networkmanager"
	}
	if s.Network.Interface == "" {
		s.Network.Interface = "wlan0"
	}
	if s.Network.CheckAddr == "" {
		s.Network.CheckAddr = "1.1.1.1:53"
	}

	if s.MQTT.Topic == "" {
		s.MQTT.Topic = "templog/samples"
	}
	if s.MQTT.ClientID == "" {
		s.MQTT.ClientID = "templog"
	}

	if s.Server.RateLimitPerSec <= 0 {
		s.Server.RateLimitPerSec = 2
	}
	if s.Server.RateLimitBurst <= 0 {
		s.Server.RateLimitBurst = 5
	}
	if s.Server.CacheTTLSeconds <= 0 {
		s.Server.CacheTTLSeconds = 30
	}
}

func (r *RetrySettings) applyDefaults() {
	if r.Attempts <= 0 {
		r.Attempts = 5
	}
	if r.DelayMS <= 0 {
		r.DelayMS = 2000
	}
	r.Delay = time.Duration(r.DelayMS) * time.Millisecond
}
