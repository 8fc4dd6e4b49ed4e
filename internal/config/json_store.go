package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/micro-nova/templog/internal/models"
)

// CredentialsFileName is the credential file inside the data directory.
const CredentialsFileName = "wifi.json"

// JSONStore keeps credentials in a small JSON document written atomically.
type JSONStore struct {
	mu   sync.Mutex
	path string
}

// NewJSONStore creates a store in the given data directory.
func NewJSONStore(dataDir string) *JSONStore {
	return &JSONStore{path: filepath.Join(dataDir, CredentialsFileName)}
}

// Path returns the file path used by this store.
func (s *JSONStore) Path() string { return s.path }

// Load reads the credentials from disk. A missing file yields zero
// credentials; a corrupt one is logged and treated the same way so a torn
// write can never keep the device out of configuration mode.
func (s *JSONStore) Load() (models.Credentials, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return models.Credentials{}, nil
		}
		return models.Credentials{}, fmt.Errorf("config: read %s: %w", s.path, err)
	}

	var doc credentialsDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		slog.Warn("config: corrupt credentials file, treating as unconfigured", "path", s.path, "err", err)
		return models.Credentials{}, nil
	}
	return migrateCredentials(doc), nil
}

// Save writes creds to a temp file, syncs it and renames it into place.
func (s *JSONStore) Save(creds models.Credentials) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(creds, "", "  ")
	if err != nil {
		return err
	}
	return writeAtomic(s.path, data, 0600)
}

// Clear deletes the credential file. Clearing an absent file is not an error.
func (s *JSONStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("config: remove %s: %w", s.path, err)
	}
	return nil
}

func writeAtomic(path string, data []byte, perm os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("config: create dir: %w", err)
	}

	// Write to temp file, then rename (atomic on Linux)
	tmpPath := path + ".tmp"
	f, err := os.OpenFile(tmpPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return fmt.Errorf("config: create %s: %w", tmpPath, err)
	}
	_, err = f.Write(data)
	if err == nil {
		err = f.Sync()
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("config: write %s: %w", tmpPath, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("config: rename %s: %w", tmpPath, err)
	}
	return nil
}

var _ Store = (*JSONStore)(nil)
