package api

import (
	"embed"
	"net/http"
)

//go:embed static
var static embed.FS

func (h *Handlers) ping(w http.ResponseWriter, r *http.Request) {
	writeText(w, http.StatusOK, "pong")
}

func (h *Handlers) getInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.ctrl.Info())
}

// asset serves one embedded file from static/.
func (h *Handlers) asset(name, contentType string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data, err := static.ReadFile("static/" + name)
		if err != nil {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", contentType)
		w.Header().Set("Cache-Control", "no-cache")
		_, _ = w.Write(data)
	}
}
