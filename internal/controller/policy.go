package controller

import (
	"time"

	"github.com/micro-nova/templog/internal/config"
)

// RetryPolicy bounds a retried operation by attempt count.
type RetryPolicy struct {
	Attempts int
	Delay    time.Duration
}

// Policy holds the state machine's timing and failure policy.
type Policy struct {
	Connect RetryPolicy
	Sync    RetryPolicy

	SampleInterval time.Duration
	ResyncInterval time.Duration
	SensorTimeout  time.Duration

	// MaxAppendFailures consecutive failed appends escalate to a restart.
	MaxAppendFailures int
	// WipeSamplesOnReset clears the sample store during a factory reset.
	// Samples survive a reset otherwise.
	WipeSamplesOnReset bool

	// APSSID and APSecret configure the configuration-mode access point.
	APSSID   string
	APSecret string

	CacheTTL time.Duration
}

// DefaultPolicy returns the stock policy: 5 attempts 2 s apart for both
// association and clock sync, a sample every minute and a resync every six
// hours.
func DefaultPolicy() Policy {
	return Policy{}.withDefaults()
}

// PolicyFromSettings maps the settings file onto a Policy.
func PolicyFromSettings(s *config.Settings, apSSID string) Policy {
	return Policy{
		Connect:            RetryPolicy{Attempts: s.Connect.Attempts, Delay: s.Connect.Delay},
		Sync:               RetryPolicy{Attempts: s.Sync.Attempts, Delay: s.Sync.Delay},
		SampleInterval:     s.Sampling.Interval,
		ResyncInterval:     s.Sampling.Resync,
		MaxAppendFailures:  s.Sampling.MaxAppendFailures,
		WipeSamplesOnReset: s.Reset.WipeSamples,
		APSSID:             apSSID,
		APSecret:           s.Network.APSecret,
		CacheTTL:           time.Duration(s.Server.CacheTTLSeconds) * time.Second,
	}.withDefaults()
}

func (p Policy) withDefaults() Policy {
	p.Connect = p.Connect.withDefaults()
	p.Sync = p.Sync.withDefaults()
	if p.SampleInterval <= 0 {
		p.SampleInterval = time.Minute
	}
	if p.ResyncInterval <= 0 {
		p.ResyncInterval = 6 * time.Hour
	}
	if p.SensorTimeout <= 0 {
		p.SensorTimeout = 5 * time.Second
	}
	if p.MaxAppendFailures <= 0 {
		p.MaxAppendFailures = 5
	}
	if p.APSSID == "" {
		p.APSSID = "templog"
	}
	if p.CacheTTL <= 0 {
		p.CacheTTL = 30 * time.Second
	}
	return p
}

func (r RetryPolicy) withDefaults() RetryPolicy {
	if r.Attempts <= 0 {
		r.Attempts = 5
	}
	if r.Delay <= 0 {
		r.Delay = 2 * time.Second
	}
	return r
}
