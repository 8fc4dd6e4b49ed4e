package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/micro-nova/templog/internal/config"
	"github.com/micro-nova/templog/internal/models"
)

// --- JSONStore tests ---

func TestJSONStore_LoadMissingFile_Unconfigured(t *testing.T) {
	store := config.NewJSONStore(t.TempDir())

	creds, err := store.Load()
	if err != nil {
		t.Fatalf("Load() error = %v, want nil", err)
	}
	if creds.IsConfigured() {
		t.Errorf("Load() = %+v, want unconfigured", creds)
	}
}

func TestJSONStore_SaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	store := config.NewJSONStore(dir)

	want := models.Credentials{NetworkName: "home", Secret: "secret123"}
	if err := store.Save(want); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	// A fresh store sees the write; nothing is buffered.
	got, err := config.NewJSONStore(dir).Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got != want {
		t.Errorf("Load() = %+v, want %+v", got, want)
	}
	if _, err := os.Stat(store.Path() + ".tmp"); !os.IsNotExist(err) {
		t.Errorf("temp file left behind: %v", err)
	}
}

func TestJSONStore_FileMode(t *testing.T) {
	store := config.NewJSONStore(t.TempDir())
	if err := store.Save(models.Credentials{NetworkName: "n", Secret: "s"}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	info, err := os.Stat(store.Path())
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("mode = %o, want 600", perm)
	}
}

func TestJSONStore_Clear(t *testing.T) {
	store := config.NewJSONStore(t.TempDir())
	if err := store.Save(models.Credentials{NetworkName: "home", Secret: "x"}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if err := store.Clear(); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	creds, err := store.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if creds.IsConfigured() {
		t.Errorf("Load() after Clear = %+v", creds)
	}
	// Clearing twice is fine.
	if err := store.Clear(); err != nil {
		t.Errorf("second Clear() error = %v", err)
	}
}

func TestJSONStore_CorruptJSON_Unconfigured(t *testing.T) {
	dir := t.TempDir()
	store := config.NewJSONStore(dir)

	path := filepath.Join(dir, config.CredentialsFileName)
	if err := os.WriteFile(path, []byte(`{"network_name": "ho`), 0600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	creds, err := store.Load()
	if err != nil {
		t.Fatalf("Load() error = %v, want nil", err)
	}
	if creds.IsConfigured() {
		t.Errorf("Load() = %+v, want unconfigured", creds)
	}
}

func TestJSONStore_Migration(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want models.Credentials
	}{
		{"current keys", `{"network_name":"home","secret":"pw"}`, models.Credentials{NetworkName: "home", Secret: "pw"}},
		{"legacy keys", `{"ssid":"legacy","password":"old"}`, models.Credentials{NetworkName: "legacy", Secret: "old"}},
		{"current wins", `{"network_name":"new","secret":"a","ssid":"old","password":"b"}`, models.Credentials{NetworkName: "new", Secret: "a"}},
		{"secret only", `{"secret":"orphan"}`, models.Credentials{}},
		{"trimmed name", `{"network_name":"  home  ","secret":"pw"}`, models.Credentials{NetworkName: "home", Secret: "pw"}},
		{"open network", `{"network_name":"cafe"}`, models.Credentials{NetworkName: "cafe"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			if err := os.WriteFile(filepath.Join(dir, config.CredentialsFileName), []byte(tt.doc), 0600); err != nil {
				t.Fatalf("WriteFile: %v", err)
			}
			got, err := config.NewJSONStore(dir).Load()
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Load() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

// --- MemStore tests ---

func TestMemStore(t *testing.T) {
	m := config.NewMemStore(models.Credentials{})
	if err := m.Save(models.Credentials{NetworkName: "a", Secret: "b"}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	creds, _ := m.Load()
	if creds.NetworkName != "a" {
		t.Errorf("Load() = %+v", creds)
	}
	if err := m.Clear(); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	creds, _ = m.Load()
	if creds.IsConfigured() {
		t.Errorf("Load() after Clear = %+v", creds)
	}
	if saves, clears := m.Counts(); saves != 1 || clears != 1 {
		t.Errorf("Counts() = %d, %d; want 1, 1", saves, clears)
	}
	if m.Path() != ":memory:" {
		t.Errorf("Path() = %q", m.Path())
	}
}

// --- Settings tests ---

func TestLoadSettings_MissingFileDefaults(t *testing.T) {
	s, err := config.LoadSettings(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("LoadSettings() error = %v", err)
	}
	def := config.DefaultSettings()
	if s.Sampling.Interval != time.Minute {
		t.Errorf("Sampling.Interval = %v, want 1m", s.Sampling.Interval)
	}
	if s.Sampling.Resync != 6*time.Hour {
		t.Errorf("Sampling.Resync = %v, want 6h", s.Sampling.Resync)
	}
	if s.Connect.Attempts != 5 || s.Connect.Delay != 2*time.Second {
		t.Errorf("Connect = %+v, want 5 attempts / 2s", s.Connect)
	}
	if s.Sync.Attempts != 5 || s.Sync.Delay != 2*time.Second {
		t.Errorf("Sync = %+v, want 5 attempts / 2s", s.Sync)
	}
	if s.Reset.Hold != 10*time.Second || s.Reset.WipeSamples {
		t.Errorf("Reset = %+v", s.Reset)
	}
	if s.Sampling.WindowDefault != 100 || s.Sampling.WindowMax != 1000 {
		t.Errorf("window = %d/%d, want 100/1000", s.Sampling.WindowDefault, s.Sampling.WindowMax)
	}
	if s.DataDir != def.DataDir || s.Addr != def.Addr {
		t.Errorf("DataDir/Addr = %q/%q, want %q/%q", s.DataDir, s.Addr, def.DataDir, def.Addr)
	}
}

func TestLoadSettings_EmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "templog.yaml")
	if err := os.WriteFile(path, nil, 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	s, err := config.LoadSettings(path)
	if err != nil {
		t.Fatalf("LoadSettings() error = %v", err)
	}
	if s.Sensor.Backend != "thermal" {
		t.Errorf("Sensor.Backend = %q, want thermal", s.Sensor.Backend)
	}
}

func TestLoadSettings_Overrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "templog.yaml")
	yml := `
data_dir: /tmp/templog
addr: ":8080"
sampling:
  interval_seconds: 5
  resync_minutes: 30
  window_default: 2000
  window_max: 500
connect:
  attempts: 3
  delay_ms: 100
sync:
  attempts: -1
reset:
  backend: gpiocdev
  line: 27
  hold_seconds: 4
  wipe_samples: true
sensor:
  backend: i2c
  i2c_addr: 0x49
mqtt:
  broker: tcp://broker:1883
`
	if err := os.WriteFile(path, []byte(yml), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	s, err := config.LoadSettings(path)
	if err != nil {
		t.Fatalf("LoadSettings() error = %v", err)
	}
	if s.DataDir != "/tmp/templog" || s.Addr != ":8080" {
		t.Errorf("DataDir/Addr = %q/%q", s.DataDir, s.Addr)
	}
	if s.Sampling.Interval != 5*time.Second || s.Sampling.Resync != 30*time.Minute {
		t.Errorf("Sampling = %+v", s.Sampling)
	}
	if s.Sampling.WindowMax != 500 || s.Sampling.WindowDefault != 500 {
		t.Errorf("window = %d/%d, want default clamped to 500", s.Sampling.WindowDefault, s.Sampling.WindowMax)
	}
	if s.Connect.Attempts != 3 || s.Connect.Delay != 100*time.Millisecond {
		t.Errorf("Connect = %+v", s.Connect)
	}
	if s.Sync.Attempts != 5 {
		t.Errorf("Sync.Attempts = %d, want default 5", s.Sync.Attempts)
	}
	if s.Reset.Backend != "gpiocdev" || s.Reset.Line != 27 || s.Reset.Hold != 4*time.Second || !s.Reset.WipeSamples {
		t.Errorf("Reset = %+v", s.Reset)
	}
	if s.Sensor.Backend != "i2c" || s.Sensor.I2CAddr != 0x49 {
		t.Errorf("Sensor = %+v", s.Sensor)
	}
	if s.MQTT.Broker != "tcp://broker:1883" || s.MQTT.Topic != "templog/samples" {
		t.Errorf("MQTT = %+v", s.MQTT)
	}
}

func TestLoadSettings_ResetLine(t *testing.T) {
	tests := []struct {
		name string
		yml  string
		want int
	}{
		{"unset", "reset:\n  backend: gpiocdev\n", 17},
		{"offset zero", "reset:\n  line: 0\n", 0},
		{"negative", "reset:\n  line: -3\n", 17},
		{"explicit", "reset:\n  line: 4\n", 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "templog.yaml")
			if err := os.WriteFile(path, []byte(tt.yml), 0644); err != nil {
				t.Fatalf("WriteFile: %v", err)
			}
			s, err := config.LoadSettings(path)
			if err != nil {
				t.Fatalf("LoadSettings() error = %v", err)
			}
			if s.Reset.Line != tt.want {
				t.Errorf("Reset.Line = %d, want %d", s.Reset.Line, tt.want)
			}
		})
	}
}

func TestLoadSettings_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "templog.yaml")
	if err := os.WriteFile(path, []byte("sampling: [unclosed"), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, err := config.LoadSettings(path); err == nil {
		t.Error("LoadSettings() error = nil, want parse error")
	}
}

// --- Watcher tests ---

func TestWatch_ReportsExternalWrite(t *testing.T) {
	dir := t.TempDir()
	store := config.NewJSONStore(dir)

	got := make(chan models.Credentials, 8)
	w, err := config.Watch(store, func(c models.Credentials) { got <- c })
	if err != nil {
		t.Skipf("fsnotify unavailable: %v", err)
	}
	defer w.Close()

	if err := store.Save(models.Credentials{NetworkName: "provisioned", Secret: "x"}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	deadline := time.After(2 * time.Second)
	for {
		select {
		case c := <-got:
			if c.NetworkName == "provisioned" {
				return
			}
		case <-deadline:
			t.Fatal("timed out waiting for credentials change")
		}
	}
}
