package api

import (
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/micro-nova/templog/internal/models"
)

func (h *Handlers) dataPage(w http.ResponseWriter, r *http.Request) {
	h.asset("sta_root.html", "text/html; charset=utf-8")(w, r)
}

// initialData returns the most recent samples as a bare JSON array, the
// shape the data page expects.
func (h *Handlers) initialData(w http.ResponseWriter, r *http.Request) {
	n, appErr := windowParam(r, h.defaultWindow)
	if appErr != nil {
		writeError(w, appErr)
		return
	}
	samples, appErr := h.ctrl.ReadWindow(r.Context(), n)
	if appErr != nil {
		writeError(w, appErr)
		return
	}
	writeJSON(w, http.StatusOK, samples)
}

func (h *Handlers) downloadCSV(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="temperature_data.csv"`)
	cw := &countingWriter{w: w}
	appErr := h.ctrl.ExportCSV(cw)
	switch {
	case appErr == nil:
	case cw.n == 0:
		w.Header().Del("Content-Disposition")
		writeError(w, appErr)
	default:
		// Part of the file is already on the wire; drop the connection so
		// the client sees a truncated download rather than a complete one.
		slog.Warn("api: csv export failed midway", "written", cw.n, "err", appErr)
		panic(http.ErrAbortHandler)
	}
}

// countingWriter counts the bytes passed through to w.
type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

func (h *Handlers) addRow(w http.ResponseWriter, r *http.Request) {
	var req models.AddRowRequest
	if appErr := formOrJSON(r, &req, map[string]*string{"row": &req.Row}); appErr != nil {
		writeTextError(w, appErr)
		return
	}
	if strings.TrimSpace(req.Row) == "" {
		writeText(w, http.StatusBadRequest, "Missing row data")
		return
	}
	if appErr := h.ctrl.AppendRaw(r.Context(), req.Row); appErr != nil {
		writeTextError(w, appErr)
		return
	}
	writeText(w, http.StatusOK, "Row added")
}

func (h *Handlers) deleteRow(w http.ResponseWriter, r *http.Request) {
	var (
		req models.DeleteRowRequest
		raw string
	)
	if appErr := formOrJSON(r, &req, map[string]*string{"timestamp": &raw}); appErr != nil {
		writeTextError(w, appErr)
		return
	}
	if raw != "" {
		ts, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
		if err != nil {
			writeText(w, http.StatusBadRequest, "Invalid timestamp")
			return
		}
		req.Timestamp = &ts
	}
	if req.Timestamp == nil {
		writeText(w, http.StatusBadRequest, "Missing timestamp")
		return
	}
	if _, appErr := h.ctrl.DeleteByTimestamp(r.Context(), *req.Timestamp); appErr != nil {
		writeTextError(w, appErr)
		return
	}
	writeText(w, http.StatusOK, "Row deleted")
}

func (h *Handlers) clearCSV(w http.ResponseWriter, r *http.Request) {
	if appErr := h.ctrl.ClearAll(r.Context()); appErr != nil {
		writeTextError(w, appErr)
		return
	}
	writeText(w, http.StatusOK, "CSV data cleared")
}

func (h *Handlers) getSamples(w http.ResponseWriter, r *http.Request) {
	n, appErr := windowParam(r, h.defaultWindow)
	if appErr != nil {
		writeError(w, appErr)
		return
	}
	samples, appErr := h.ctrl.ReadWindow(r.Context(), n)
	if appErr != nil {
		writeError(w, appErr)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"samples": samples})
}

func (h *Handlers) deleteSample(w http.ResponseWriter, r *http.Request) {
	ts, err := int64Param(r, "ts")
	if err != nil {
		writeError(w, err)
		return
	}
	removed, appErr := h.ctrl.DeleteByTimestamp(r.Context(), ts)
	if appErr != nil {
		writeError(w, appErr)
		return
	}
	if removed == 0 {
		writeError(w, models.ErrNotFound("no sample with timestamp "+strconv.FormatInt(ts, 10)))
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"removed": removed})
}

func (h *Handlers) deleteSamples(w http.ResponseWriter, r *http.Request) {
	if appErr := h.ctrl.ClearAll(r.Context()); appErr != nil {
		writeError(w, appErr)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
