package api

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/ponto-labs/ponto/internal/infra/observability"
)

// ─── Change Feed ────────────────────────────────────────────────────────────
// The store notifies the hub after every successful mutation; connected
// dashboards refetch the day on receipt. Delivered via Server-Sent Events
// rather than WebSocket for simplicity and HTTP/2 compatibility.

// UpdateEvent is one change notification.
type UpdateEvent struct {
	Type      string `json:"type"` // "change"
	Table     string `json:"table"`
	Timestamp int64  `json:"timestamp"` // Unix epoch
}

// UpdateHub fans change notifications out to SSE subscribers.
type UpdateHub struct {
	mu      sync.Mutex
	clients map[chan []byte]struct{}
}

// NewUpdateHub creates a new change-feed hub.
func NewUpdateHub() *UpdateHub {
	return &UpdateHub{
		clients: make(map[chan []byte]struct{}),
	}
}

// BroadcastChange sends a table-change event to all connected clients.
func (h *UpdateHub) BroadcastChange(table string) {
	data, err := json.Marshal(UpdateEvent{
		Type:      "change",
		Table:     table,
		Timestamp: time.Now().Unix(),
	})
	if err != nil {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.clients {
		select {
		case ch <- data:
		default:
			// Client too slow; drop the message. The next change will
			// trigger a refetch anyway.
		}
	}
}

// Subscribe registers a new client. Returns the channel and an unsubscribe func.
func (h *UpdateHub) Subscribe() (chan []byte, func()) {
	ch := make(chan []byte, 32)
	h.mu.Lock()
	h.clients[ch] = struct{}{}
	h.mu.Unlock()
	observability.SSEClients.Inc()

	return ch, func() {
		h.mu.Lock()
		delete(h.clients, ch)
		h.mu.Unlock()
		close(ch)
		observability.SSEClients.Dec()
	}
}

// ClientCount returns the number of connected clients.
func (h *UpdateHub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// HandleSSE serves the change feed.
// GET /api/updates
func (h *UpdateHub) HandleSSE(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	flusher.Flush()

	ch, unsub := h.Subscribe()
	defer unsub()

	for {
		select {
		case <-r.Context().Done():
			return
		case data := <-ch:
			w.Write([]byte("data: "))
			w.Write(data)
			w.Write([]byte("\n\n"))
			flusher.Flush()
		}
	}
}
