// Package config handles the daemon's persisted settings and network
// credentials.
package config

import "github.com/micro-nova/templog/internal/models"

// Store persists network credentials.
type Store interface {
	// Load returns the saved credentials. A missing or unreadable store
	// yields zero Credentials, which boot treats as unconfigured.
	Load() (models.Credentials, error)

	// Save persists creds. The write is complete when Save returns.
	Save(creds models.Credentials) error

	// Clear removes the saved credentials.
	Clear() error

	// Path returns the file path used by this store.
	Path() string
}
