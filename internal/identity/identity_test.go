package identity_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/micro-nova/templog/internal/identity"
)

func TestGetVersion_Fallback(t *testing.T) {
	// Use a temp dir that contains no metadata.json
	dir := t.TempDir()
	got := identity.GetVersionFromDir(dir)
	if got != identity.DefaultVersion {
		t.Errorf("GetVersionFromDir(%q) = %q; want %q", dir, got, identity.DefaultVersion)
	}
}

func TestGetVersion_FromFile(t *testing.T) {
	dir := t.TempDir()
	want := "0.3.1"
	meta := map[string]interface{}{"version": want}
	data, _ := json.Marshal(meta)
	if err := os.WriteFile(filepath.Join(dir, "metadata.json"), data, 0644); err != nil {
		t.Fatal(err)
	}

	got := identity.GetVersionFromDir(dir)
	if got != want {
		t.Errorf("GetVersionFromDir(%q) = %q; want %q", dir, got, want)
	}
	if info := identity.Load(dir); info.Version != want || info.Hostname == "" {
		t.Errorf("Load(%q) = %+v", dir, info)
	}
}

func TestGetVersion_InvalidJSON(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "metadata.json"), []byte("not json"), 0644); err != nil {
		t.Fatal(err)
	}
	got := identity.GetVersionFromDir(dir)
	if got != identity.DefaultVersion {
		t.Errorf("GetVersionFromDir with invalid JSON = %q; want %q", got, identity.DefaultVersion)
	}
}

func TestAccessPointSSID(t *testing.T) {
	tests := []struct {
		host string
		want string
	}{
		{"raspberrypi", "templog-raspberrypi"},
		{"logger.local", "templog-logger"},
		{"", "templog"},
		{"templog", "templog"},
		{"kitchen sensor", "templog-kitchensensor"},
	}
	for _, tt := range tests {
		if got := identity.AccessPointSSID(tt.host); got != tt.want {
			t.Errorf("AccessPointSSID(%q) = %q, want %q", tt.host, got, tt.want)
		}
	}

	long := identity.AccessPointSSID(strings.Repeat("x", 40))
	if len(long) != 32 || !strings.HasPrefix(long, "templog-") {
		t.Errorf("AccessPointSSID(long) = %q (%d bytes)", long, len(long))
	}
}
