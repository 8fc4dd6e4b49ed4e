// Package models defines the data structures shared by the templog daemon.
// JSON field names match the bundled web client.
package models

import (
	"fmt"
	"time"
)

// Sample is one sensor reading.
type Sample struct {
	Timestamp int64   `json:"timestamp"` // seconds since the Unix epoch
	Value     float64 `json:"temp"`      // degrees Celsius
}

// NewSample builds a Sample stamped at t, truncated to whole seconds.
func NewSample(t time.Time, value float64) Sample {
	return Sample{Timestamp: t.Unix(), Value: value}
}

// Time returns the sample timestamp as a time.Time.
func (s Sample) Time() time.Time {
	return time.Unix(s.Timestamp, 0)
}

func (s Sample) String() string {
	return fmt.Sprintf("(%d, %.2f)", s.Timestamp, s.Value)
}

// Credentials are the persisted network name and secret that select the boot mode.
type Credentials struct {
	NetworkName string `json:"network_name"`
	Secret      string `json:"secret"`
}

// IsConfigured reports whether the credentials name a network.
// An empty name is the canonical "unconfigured" signal; a secret without a
// name (an interrupted write) is treated the same way.
func (c Credentials) IsConfigured() bool {
	return c.NetworkName != ""
}

// Mode is the operating mode the daemon booted into.
type Mode string

const (
	ModeBoot          Mode = "boot"
	ModeConfiguration Mode = "configuration"
	ModeConnected     Mode = "connected"
)

// Info is the system summary returned by GET /api/info.
type Info struct {
	Hostname string `json:"hostname"`
	Version  string `json:"version"`
	Mode     Mode   `json:"mode"`
	Network  string `json:"network,omitempty"` // configured network name, never the secret
	Offline  bool   `json:"offline"`
	DataPath string `json:"data_path,omitempty"`
	Started  string `json:"started"`
}
