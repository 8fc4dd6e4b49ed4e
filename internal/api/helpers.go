// Package api implements the logger's HTTP interface: the configuration
// page served from the access point and the data pages, JSON API and live
// feeds served once connected.
package api

import (
	"context"
	"encoding/json"
	"io"
	"mime"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/micro-nova/templog/internal/models"
)

// Handlers holds dependencies for all HTTP handlers.
type Handlers struct {
	ctrl          Controller
	events        EventBus
	defaultWindow int
}

// Controller is the interface the handlers use to reach the state machine.
type Controller interface {
	Mode() models.Mode
	Info() models.Info
	SaveCredentials(ctx context.Context, creds models.Credentials) *models.AppError
	ClearCredentials(ctx context.Context) *models.AppError
	AppendRaw(ctx context.Context, row string) *models.AppError
	DeleteByTimestamp(ctx context.Context, ts int64) (int, *models.AppError)
	ClearAll(ctx context.Context) *models.AppError
	ReadWindow(ctx context.Context, n int) ([]models.Sample, *models.AppError)
	ExportCSV(w io.Writer) *models.AppError
}

// EventBus is the interface for subscribing to new samples.
type EventBus interface {
	Subscribe(id string) <-chan models.Sample
	Unsubscribe(id string)
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes an AppError as a JSON response.
func writeError(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json")
	if appErr, ok := err.(*models.AppError); ok {
		w.WriteHeader(appErr.Status)
		_ = json.NewEncoder(w).Encode(appErr)
		return
	}
	w.WriteHeader(http.StatusInternalServerError)
	_ = json.NewEncoder(w).Encode(models.ErrInternal(err.Error()))
}

// writeText writes a plain-text response. The page scripts only look at the
// status code of the form endpoints.
func writeText(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, msg)
}

// writeTextError is writeError for the plain-text form endpoints.
func writeTextError(w http.ResponseWriter, appErr *models.AppError) {
	writeText(w, appErr.Status, appErr.Message)
}

// int64Param reads an integer path parameter by name.
func int64Param(r *http.Request, name string) (int64, error) {
	n, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil {
		return 0, models.ErrBadRequest("invalid " + name + " parameter")
	}
	return n, nil
}

// windowParam reads the n query parameter, falling back to def.
func windowParam(r *http.Request, def int) (int, *models.AppError) {
	s := r.URL.Query().Get("n")
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, models.ErrBadRequest("invalid n parameter")
	}
	return n, nil
}

// isJSON reports whether the request body is JSON. Everything else is
// parsed as a form.
func isJSON(r *http.Request) bool {
	mt, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return mt == "application/json"
}

// formOrJSON fills fields from the JSON body or, for form posts, from the
// named form values.
func formOrJSON(r *http.Request, v interface{}, fields map[string]*string) *models.AppError {
	if isJSON(r) {
		if err := json.NewDecoder(r.Body).Decode(v); err != nil && err != io.EOF {
			return models.ErrBadRequest("invalid JSON: " + err.Error())
		}
		return nil
	}
	if err := r.ParseForm(); err != nil {
		return models.ErrBadRequest("invalid form: " + err.Error())
	}
	for name, dst := range fields {
		if vals, ok := r.PostForm[name]; ok && len(vals) > 0 {
			*dst = vals[0]
		}
	}
	return nil
}
