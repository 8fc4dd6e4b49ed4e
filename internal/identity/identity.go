// Package identity provides the device's name and software version.
package identity

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
)

// DefaultVersion is the fallback version string when metadata.json is not found.
const DefaultVersion = "0.1.0-dev"

// maxSSIDLen is the 802.11 limit on SSID length in bytes.
const maxSSIDLen = 32

// Info holds system identity information.
type Info struct {
	Hostname string
	Version  string // software version string e.g. "0.3.1"
}

// Load returns the identity for a device whose metadata lives in dataDir.
func Load(dataDir string) Info {
	return Info{Hostname: GetHostname(), Version: GetVersionFromDir(dataDir)}
}

// GetHostname returns the system hostname.
func GetHostname() string {
	h, err := os.Hostname()
	if err != nil || h == "" {
		return "templog"
	}
	return h
}

// GetVersionFromDir reads the version from dir/metadata.json.
// Falls back to DefaultVersion if the file is missing or unreadable.
func GetVersionFromDir(dir string) string {
	data, err := os.ReadFile(filepath.Join(dir, "metadata.json"))
	if err != nil {
		return DefaultVersion
	}

	var meta map[string]interface{}
	if err := json.Unmarshal(data, &meta); err != nil {
		return DefaultVersion
	}

	if v, ok := meta["version"].(string); ok && v != "" {
		return v
	}
	return DefaultVersion
}

// AccessPointSSID returns the configuration access point name for hostname:
// "templog-<short hostname>", restricted to printable ASCII and cut to the
// 32-byte SSID limit.
func AccessPointSSID(hostname string) string {
	short, _, _ := strings.Cut(hostname, ".")
	var b strings.Builder
	b.WriteString("templog")
	if short != "" && short != "templog" {
		b.WriteByte('-')
		for _, r := range short {
			if r > 0x20 && r < 0x7f {
				b.WriteRune(r)
			}
		}
	}
	ssid := b.String()
	if len(ssid) > maxSSIDLen {
		ssid = ssid[:maxSSIDLen]
	}
	return strings.TrimSuffix(ssid, "-")
}
