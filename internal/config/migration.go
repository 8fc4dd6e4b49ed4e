package config

import (
	"log/slog"
	"strings"

	"github.com/micro-nova/templog/internal/models"
)

// credentialsDoc is the on-disk shape of wifi.json. Files written by older
// firmware use the ssid/password keys of the preferences namespace.
type credentialsDoc struct {
	NetworkName string `json:"network_name"`
	Secret      string `json:"secret"`
	SSID        string `json:"ssid"`
	Password    string `json:"password"`
}

// migrateCredentials maps a decoded document onto Credentials, preferring
// the current keys and falling back to the legacy ones.
func migrateCredentials(doc credentialsDoc) models.Credentials {
	creds := models.Credentials{
		NetworkName: strings.TrimSpace(doc.NetworkName),
		Secret:      doc.Secret,
	}
	if creds.NetworkName == "" && doc.SSID != "" {
		slog.Info("config: migrating legacy ssid/password credentials")
		creds.NetworkName = strings.TrimSpace(doc.SSID)
		creds.Secret = doc.Password
	}
	if creds.NetworkName == "" && creds.Secret != "" {
		// Secret without a name: an interrupted write. Unconfigured.
		slog.Warn("config: credentials have a secret but no network name, ignoring")
		creds.Secret = ""
	}
	return creds
}
