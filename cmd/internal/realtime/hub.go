package realtime

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"taskboard/cmd/internal/board"
)

// Hub tracks connected clients and fans board events out to all of them.
// It implements board.Publisher; the board service never learns who is
// listening.
type Hub struct {
	log *slog.Logger

	mu      sync.RWMutex
	clients map[string]*Client
}

// NewHub constructs a Hub instance.
func NewHub(log *slog.Logger) *Hub {
	if log == nil {
		log = slog.Default()
	}
	return &Hub{
		log:     log,
		clients: make(map[string]*Client),
	}
}

// Register adds a connected client to the fan-out set.
func (h *Hub) Register(c *Client) {
	if c == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c.SessionID] = c
}

// Unregister removes a client. Safe to call more than once.
func (h *Hub) Unregister(sessionID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, sessionID)
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Publish marshals the event once and enqueues it to every client without
// blocking. A client whose send queue is full misses the event; it is a
// notification stream, not a durable log, and clients resync over HTTP.
func (h *Hub) Publish(ev board.Event) {
	payload, err := json.Marshal(ev)
	if err != nil {
		h.log.Error("realtime.publish.marshal.fail", "err", err)
		return
	}
	env := newEnvelope(TypeBoardEvent, payload, time.Now().UTC())

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.clients {
		select {
		case <-c.Done():
		case c.Send <- env:
		default:
			h.log.Warn("realtime.publish.drop", "session_id", c.SessionID, "type", string(ev.Type))
		}
	}
}
