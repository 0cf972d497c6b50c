package httpadapter

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/mpetrenko/taxmate/internal/core/domain"
)

// streamEvents serves the live status channel over SSE. Each frame is a
// single "data: {json}\n\n" record; the event type travels inside the JSON so
// poll-fallback clients can reuse the same decoder.
func (rt *Router) streamEvents(w http.ResponseWriter, r *http.Request) {
	uid, ok := rt.requireUser(w, r)
	if !ok {
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		rt.writeError(w, r, errors.New("streaming unsupported by connection"))
		return
	}

	events, err := rt.monitor.Watch(r.Context(), uid, r.PathValue("id"))
	if err != nil {
		rt.writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case event, open := <-events:
			if !open {
				return
			}
			if err := writeSSEEvent(w, event); err != nil {
				return
			}
			flusher.Flush()
			if event.Type.IsTerminal() {
				return
			}
		}
	}
}

func writeSSEEvent(w http.ResponseWriter, event domain.ProcessingEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	if _, err := w.Write([]byte("data: ")); err != nil {
		return err
	}
	if _, err := w.Write(payload); err != nil {
		return err
	}
	_, err = w.Write([]byte("\n\n"))
	return err
}
