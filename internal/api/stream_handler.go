package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/pixfetch/pixfetch/internal/api/shared"
	"github.com/pixfetch/pixfetch/internal/worker"
)

// StreamHandler serves job progress over SSE and WebSocket. Both
// transports deliver the buffered event replay first, then live events
// until the stream closes or the client disconnects.
type StreamHandler struct {
	jobs     JobService
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

// NewStreamHandler creates a new StreamHandler.
func NewStreamHandler(jobs JobService, logger *slog.Logger) *StreamHandler {
	return &StreamHandler{
		jobs: jobs,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Same-origin policy is not useful for a localhost tool.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		logger: logger.With("component", "stream_handler"),
	}
}

// ServeSSE handles GET /api/progress/{jobID} requests.
func (h *StreamHandler) ServeSSE(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")

	sub, err := h.jobs.Subscribe(jobID)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}
	defer sub.Cancel()

	flusher, ok := w.(http.Flusher)
	if !ok {
		shared.RespondWithError(w, r, http.StatusInternalServerError, "Streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for _, ev := range sub.Replay {
		if !writeSSE(w, flusher, ev) {
			return
		}
	}

	if sub.Live == nil {
		// The job already reached a terminal state; replay was all
		// there is.
		return
	}

	for {
		select {
		case ev, open := <-sub.Live:
			if !open {
				return
			}
			if !writeSSE(w, flusher, ev) {
				return
			}
		case <-r.Context().Done():
			return
		}
	}
}

// ServeWebSocket handles GET /api/ws/{jobID} requests.
func (h *StreamHandler) ServeWebSocket(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")

	sub, err := h.jobs.Subscribe(jobID)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}
	defer sub.Cancel()

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debug("websocket upgrade failed", "job_id", jobID, "error", err)
		return
	}
	defer func() {
		if err := conn.Close(); err != nil {
			h.logger.Debug("websocket close failed", "job_id", jobID, "error", err)
		}
	}()

	// Discard client frames; detect disconnects.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for _, ev := range sub.Replay {
		if err := conn.WriteJSON(ev); err != nil {
			return
		}
	}

	if sub.Live == nil {
		h.writeWSClose(conn)
		return
	}

	for {
		select {
		case ev, open := <-sub.Live:
			if !open {
				h.writeWSClose(conn)
				return
			}
			if err := conn.WriteJSON(ev); err != nil {
				return
			}
		case <-r.Context().Done():
			return
		}
	}
}

func (h *StreamHandler) writeWSClose(conn *websocket.Conn) {
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "stream ended")
	if err := conn.WriteMessage(websocket.CloseMessage, msg); err != nil {
		h.logger.Debug("websocket close frame failed", "error", err)
	}
}

func writeSSE(w http.ResponseWriter, flusher http.Flusher, ev worker.Event) bool {
	payload, err := json.Marshal(ev)
	if err != nil {
		slog.Error("failed to marshal progress event", "error", err)
		return false
	}
	if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
		return false
	}
	flusher.Flush()
	return true
}
