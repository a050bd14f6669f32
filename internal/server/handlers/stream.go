package handlers

import (
	"bufio"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"git.home.luguber.info/inful/worktime/internal/engine"
	"git.home.luguber.info/inful/worktime/internal/foundation/errors"
	"git.home.luguber.info/inful/worktime/internal/logfields"
)

// StreamOptions tunes the server-sent snapshot stream.
type StreamOptions struct {
	Buffer    int
	Heartbeat time.Duration
}

// DefaultStreamOptions returns an 8 snapshot buffer and a 15s heartbeat.
func DefaultStreamOptions() StreamOptions {
	return StreamOptions{Buffer: 8, Heartbeat: 15 * time.Second}
}

// HandleStream streams snapshots as server-sent events. The current snapshot
// is sent on connect; a comment line keeps idle connections open.
func (h *SessionHandlers) HandleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		h.errorAdapter.WriteErrorResponse(w, r, errors.InternalError("stream unsupported").Build())
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	ch, unsubscribe := h.engine.Subscribe(h.stream.Buffer)
	defer unsubscribe()

	bw := bufio.NewWriter(w)
	send := func(snap engine.Snapshot) bool {
		data, err := json.Marshal(snap)
		if err != nil {
			slog.Error("snapshot encode failed", logfields.Error(err))
			return false
		}
		if _, err := bw.WriteString("event: snapshot\ndata: " + string(data) + "\n\n"); err != nil {
			return false
		}
		if err := bw.Flush(); err != nil {
			return false
		}
		flusher.Flush()
		return true
	}

	if !send(h.engine.Snapshot()) {
		return
	}

	heartbeat := time.NewTicker(h.stream.Heartbeat)
	defer heartbeat.Stop()
	for {
		select {
		case <-r.Context().Done():
			return
		case snap, open := <-ch:
			if !open || !send(snap) {
				return
			}
		case <-heartbeat.C:
			if _, err := bw.WriteString(": keepalive\n\n"); err != nil {
				return
			}
			if err := bw.Flush(); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
