package handler

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/mraskin/userdir-server/internal/logger"
)

// ChangeWatcher exposes a coalesced directory change signal.
type ChangeWatcher interface {
	Watch(ctx context.Context) <-chan struct{}
}

// Events pushes directory change notifications to connected clients over
// Server-Sent Events. Clients re-fetch on every "change" event; the events
// carry no payload.
type Events struct {
	watcher   ChangeWatcher
	logger    *logger.Logger
	keepalive time.Duration
}

// NewEvents creates a new Events handler.
func NewEvents(watcher ChangeWatcher, logger *logger.Logger) *Events {
	return &Events{
		watcher:   watcher,
		logger:    logger,
		keepalive: 30 * time.Second,
	}
}

// Stream holds the response open and emits one "change" event per
// directory change until the client disconnects.
func (h *Events) Stream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	changes := h.watcher.Watch(r.Context())

	fmt.Fprint(w, "event: ready\ndata: {}\n\n")
	flusher.Flush()

	ticker := time.NewTicker(h.keepalive)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-changes:
			fmt.Fprint(w, "event: change\ndata: {}\n\n")
			flusher.Flush()
		case <-ticker.C:
			// Comment line per the SSE spec, keeps proxies from closing
			// the idle stream.
			fmt.Fprint(w, ": keepalive\n\n")
			flusher.Flush()
		}
	}
}
