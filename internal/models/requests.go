package models

import "strings"

// SaveCredentialsRequest is the body of POST /save. The bundled web client
// posts ssid/password; network_name/secret are accepted as aliases.
type SaveCredentialsRequest struct {
	SSID        string `json:"ssid"`
	Password    string `json:"password"`
	NetworkName string `json:"network_name"`
	Secret      string `json:"secret"`
}

// Credentials resolves the request to a Credentials value, preferring
// ssid/password.
func (r SaveCredentialsRequest) Credentials() Credentials {
	name := r.SSID
	if name == "" {
		name = r.NetworkName
	}
	secret := r.Password
	if secret == "" {
		secret = r.Secret
	}
	return Credentials{NetworkName: strings.TrimSpace(name), Secret: secret}
}

// AddRowRequest is the body of POST /add-row.
type AddRowRequest struct {
	Row string `json:"row"`
}

// DeleteRowRequest is the body of POST /delete-row.
type DeleteRowRequest struct {
	Timestamp *int64 `json:"timestamp"`
}
