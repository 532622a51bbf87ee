package sse

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/kbukum/diarlive/logger"
)

// KeepAliveInterval is kept below common proxy idle timeouts.
var KeepAliveInterval = 30 * time.Second

// ServeSSE streams frames for clientID until the request ends or the hub
// stops. initial, when non-nil, is written right after the connected
// event so a new client starts from the current state.
func ServeSSE(hub *Hub, w http.ResponseWriter, r *http.Request, clientID string, initial *Frame) {
	log := logger.Get("sse")
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	rc := http.NewResponseController(w)
	if err := rc.SetWriteDeadline(time.Time{}); err != nil {
		log.Debug("SSE write deadline not cleared", logger.Fields("client_id", clientID, logger.FieldError, err.Error()))
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	client := NewClient(clientID)
	if !hub.Register(client) {
		http.Error(w, "stream closed", http.StatusServiceUnavailable)
		return
	}
	defer hub.Unregister(client)

	hello, _ := json.Marshal(map[string]string{"client_id": clientID})
	_, _ = Frame{Event: EventConnected, Data: hello}.WriteTo(w)
	if initial != nil {
		_, _ = initial.WriteTo(w)
	}
	flusher.Flush()

	keepAlive := time.NewTicker(KeepAliveInterval)
	defer keepAlive.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case f, ok := <-client.Frames():
			if !ok {
				return
			}
			if _, err := f.WriteTo(w); err != nil {
				log.Debug("SSE write failed", logger.Fields("client_id", clientID, logger.FieldError, err.Error()))
				return
			}
			flusher.Flush()
		case <-keepAlive.C:
			if _, err := w.Write([]byte(": keepalive\n\n")); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
