package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/micro-nova/templog/internal/models"
)

// sseKeepAlive is the interval between comment frames on an idle stream.
const sseKeepAlive = 15 * time.Second

// sseEvents streams samples as Server-Sent Events. A client first gets the
// most recent stored sample (if any), then one "sample" event per reading.
// The event id is the sample timestamp.
func (h *Handlers) sseEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, models.ErrInternal("streaming not supported"))
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	id := uuid.New().String()
	ch := h.events.Subscribe(id)
	defer h.events.Unsubscribe(id)

	if latest, appErr := h.ctrl.ReadWindow(r.Context(), 1); appErr == nil && len(latest) == 1 {
		sendSample(w, flusher, latest[0])
	} else {
		// Commit the headers so the client sees the stream open.
		flusher.Flush()
	}

	keepAlive := time.NewTicker(sseKeepAlive)
	defer keepAlive.Stop()

	for {
		select {
		case s, ok := <-ch:
			if !ok {
				return
			}
			sendSample(w, flusher, s)
		case <-keepAlive.C:
			_, _ = fmt.Fprint(w, ": keep-alive\n\n")
			flusher.Flush()
		case <-r.Context().Done():
			return
		}
	}
}

func sendSample(w http.ResponseWriter, flusher http.Flusher, s models.Sample) {
	data, err := json.Marshal(s)
	if err != nil {
		return
	}
	_, _ = fmt.Fprintf(w, "event: sample\nid: %d\ndata: %s\n\n", s.Timestamp, data)
	flusher.Flush()
}
