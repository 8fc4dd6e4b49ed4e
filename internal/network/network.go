// Package network drives Wi-Fi association, the configuration access point
// and wall-clock synchronization.
//
// Every call is safe to repeat with the same arguments: association reuses
// a connection profile keyed by network name, and clock sync only asks the
// system to (re)enable NTP.
package network

import (
	"context"
	"errors"

	"github.com/micro-nova/templog/internal/models"
)

var (
	// ErrActivationFailed means the connection was rejected or timed out
	// before reaching the activated state.
	ErrActivationFailed = errors.New("network: activation failed")
	// ErrNotSynchronized means NTP is enabled but the clock has not synced yet.
	ErrNotSynchronized = errors.New("network: clock not synchronized")
)

// Associator joins networks and hosts the configuration access point.
type Associator interface {
	// Associate joins the network named by creds and returns once the link
	// is up. A failed attempt leaves nothing behind that would break a
	// retry with the same credentials.
	Associate(ctx context.Context, creds models.Credentials) error

	// StartAccessPoint brings up a local access point. An empty secret
	// runs an open network.
	StartAccessPoint(ctx context.Context, ssid, secret string) error
}

// Clock synchronizes the wall clock.
type Clock interface {
	Sync(ctx context.Context) error
}
