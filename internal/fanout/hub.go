package fanout

import (
	"encoding/json"
	"log"
	"sync"

	alerts "railguard-cloud/internal/alerts/domain"
	"railguard-cloud/internal/observability/metrics"
	telemetry "railguard-cloud/internal/telemetry/domain"
)

// Event kinds pushed to observers. Both travel over the same socket but are
// logically separate channels: telemetry carries every reading, alerts only
// what the alert pipeline decided to raise.
const (
	ChannelTelemetry = "telemetry_update"
	ChannelAlert     = "new_alert"
)

type envelope struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// Hub maintains the set of connected observers and fans events out to them.
// Delivery is best effort: no buffering for absent observers, no replay, no
// acknowledgment, and a stuck client is dropped rather than retried.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	logger     *log.Logger

	mu    sync.RWMutex
	count int
}

// NewHub constructs a hub.
func NewHub(logger *log.Logger) *Hub {
	if logger == nil {
		logger = log.Default()
	}
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte, 64),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		logger:     logger,
	}
}

// Run owns the client set. Start it once in its own goroutine.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.clients[client] = true
			h.setCount(len(h.clients))
			h.logger.Printf("fanout: observer connected: %s", client.conn.RemoteAddr())

		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				h.setCount(len(h.clients))
				h.logger.Printf("fanout: observer disconnected: %s", client.conn.RemoteAddr())
			}

		case message := <-h.broadcast:
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					// Slow or gone; drop it, never block the pipeline.
					delete(h.clients, client)
					close(client.send)
					h.setCount(len(h.clients))
					h.logger.Printf("fanout: observer %s stalled, dropping", client.conn.RemoteAddr())
				}
			}
		}
	}
}

// BroadcastTelemetry pushes an enriched reading on the telemetry channel.
func (h *Hub) BroadcastTelemetry(reading telemetry.EnrichedReading) {
	h.publish(ChannelTelemetry, reading)
}

// BroadcastAlert pushes a raised alert on the alert channel.
func (h *Hub) BroadcastAlert(record alerts.Record) {
	h.publish(ChannelAlert, record)
}

// ObserverCount returns the number of connected observers.
func (h *Hub) ObserverCount() int {
	if h == nil {
		return 0
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.count
}

func (h *Hub) publish(channel string, payload any) {
	if h == nil {
		return
	}
	message, err := json.Marshal(envelope{Type: channel, Payload: payload})
	if err != nil {
		h.logger.Printf("fanout: marshal %s event: %v", channel, err)
		return
	}
	metrics.IncBroadcast(channel)
	select {
	case h.broadcast <- message:
	default:
		// Broadcast queue full; the event is dropped rather than blocking
		// the ingestion path.
		h.logger.Printf("fanout: broadcast queue full, dropping %s event", channel)
	}
}

func (h *Hub) setCount(n int) {
	h.mu.Lock()
	h.count = n
	h.mu.Unlock()
}
