package config

import (
	"sync"

	"github.com/micro-nova/templog/internal/models"
)

// MemStore is an in-memory Store for tests that never writes to disk.
type MemStore struct {
	mu      sync.Mutex
	creds   models.Credentials
	saves   int
	clears  int
	SaveErr error // returned by Save when set
}

// NewMemStore returns a store holding creds.
func NewMemStore(creds models.Credentials) *MemStore {
	return &MemStore{creds: creds}
}

// Load returns the stored credentials.
func (m *MemStore) Load() (models.Credentials, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.creds, nil
}

// Save stores creds in memory.
func (m *MemStore) Save(creds models.Credentials) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.creds = creds
	m.saves++
	return nil
}

// Clear resets the stored credentials.
func (m *MemStore) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.creds = models.Credentials{}
	m.clears++
	return nil
}

// Counts returns how many times Save and Clear succeeded.
func (m *MemStore) Counts() (saves, clears int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves, m.clears
}

// Path returns ":memory:" to indicate this is an in-memory store.
func (m *MemStore) Path() string { return ":memory:" }

// Ensure MemStore implements config.Store
var _ Store = (*MemStore)(nil)
