// Package maintenance runs the connected-mode background checks.
package maintenance

import (
	"context"
	"log/slog"
	"net"
	"time"
)

const (
	// DefaultCheckAddr is dialed to decide whether the uplink reaches the
	// internet.
	DefaultCheckAddr = "1.1.1.1:53"
	// DefaultInterval is the time between online checks.
	DefaultInterval = 5 * time.Minute

	dialTimeout = 3 * time.Second
)

// dialFunc is a variable so tests can inject a mock dialer.
var dialFunc = func(network, address string, timeout time.Duration) (net.Conn, error) {
	return net.DialTimeout(network, address, timeout)
}

// Service runs the online check.
type Service struct {
	addr     string
	interval time.Duration
	onOnline func(bool) // callback when online status changes

	last  bool
	first bool
}

// New creates a Service that dials addr every interval and calls onOnline
// with the first result and on every change after that. Empty or zero
// arguments select the defaults.
func New(addr string, interval time.Duration, onOnline func(bool)) *Service {
	if addr == "" {
		addr = DefaultCheckAddr
	}
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Service{addr: addr, interval: interval, onOnline: onOnline, first: true}
}

// Start runs an immediate check and then one per interval.
// Blocks until ctx is cancelled.
func (s *Service) Start(ctx context.Context) {
	s.checkOnline()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.checkOnline()
		}
	}
}

// checkOnline dials once and reports the result if it changed.
func (s *Service) checkOnline() bool {
	conn, err := dialFunc("tcp", s.addr, dialTimeout)
	online := err == nil
	if conn != nil {
		conn.Close()
	}

	if s.first || online != s.last {
		s.first = false
		s.last = online
		if s.onOnline != nil {
			s.onOnline(online)
		}
		slog.Info("maintenance: online status", "online", online, "addr", s.addr)
	}
	return online
}
