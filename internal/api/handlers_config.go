package api

import (
	"net/http"

	"github.com/micro-nova/templog/internal/models"
)

func (h *Handlers) configurationPage(w http.ResponseWriter, r *http.Request) {
	h.asset("ap_root.html", "text/html; charset=utf-8")(w, r)
}

// saveCredentials accepts the access-point form as JSON or form data. Both
// the network name and the secret are required here even though the state
// machine itself accepts open networks.
func (h *Handlers) saveCredentials(w http.ResponseWriter, r *http.Request) {
	var req models.SaveCredentialsRequest
	if appErr := formOrJSON(r, &req, map[string]*string{
		"ssid":         &req.SSID,
		"password":     &req.Password,
		"network_name": &req.NetworkName,
		"secret":       &req.Secret,
	}); appErr != nil {
		writeTextError(w, appErr)
		return
	}

	creds := req.Credentials()
	if creds.NetworkName == "" || creds.Secret == "" {
		writeText(w, http.StatusBadRequest, "Missing SSID or Password")
		return
	}
	if appErr := h.ctrl.SaveCredentials(r.Context(), creds); appErr != nil {
		writeTextError(w, appErr)
		return
	}
	writeText(w, http.StatusOK, "Saved! Rebooting...")
}

func (h *Handlers) clearWifi(w http.ResponseWriter, r *http.Request) {
	if appErr := h.ctrl.ClearCredentials(r.Context()); appErr != nil {
		writeTextError(w, appErr)
		return
	}
	writeText(w, http.StatusOK, "WiFi credentials cleared")
}
