// Package gateway is the dashboard's data feed: a WebSocket hub that pushes
// each completed engine run to connected clients, plus a small JSON HTTP
// API for the latest result and the run history. It ships data only; chart
// rendering belongs entirely to the frontend.
package gateway

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Envelope wraps every message pushed over the WebSocket.
type Envelope struct {
	Channel string          `json:"channel"`
	Seq     int64           `json:"seq"`
	TS      string          `json:"ts"`
	Initial bool            `json:"initial,omitempty"`
	Data    json.RawMessage `json:"data"`
}

// Hub manages WebSocket clients and fans completed run results out to them.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]bool
	seq     int64

	// latest run envelope, replayed to newly connected clients
	latest []byte

	// optional client-count callback (wired to a metrics gauge)
	onClientCount func(n int)
}

// NewHub creates an empty Hub.
func NewHub() *Hub {
	return &Hub{clients: make(map[*Client]bool)}
}

// OnClientCount registers a callback invoked with the client count after
// every connect/disconnect.
func (h *Hub) OnClientCount(fn func(n int)) {
	h.mu.Lock()
	h.onClientCount = fn
	h.mu.Unlock()
}

// Broadcast wraps data in an envelope on the given channel and queues it to
// every connected client. Slow clients are skipped, not blocked on.
func (h *Hub) Broadcast(channel string, data []byte) {
	h.mu.Lock()
	h.seq++
	env, err := json.Marshal(Envelope{
		Channel: channel,
		Seq:     h.seq,
		TS:      time.Now().UTC().Format(time.RFC3339Nano),
		Data:    json.RawMessage(data),
	})
	if err != nil {
		h.mu.Unlock()
		log.Printf("[gateway] envelope marshal failed: %v", err)
		return
	}
	if channel == ChannelRun {
		h.latest = env
	}
	for c := range h.clients {
		select {
		case c.send <- env:
		default:
			// client buffer full, drop this message for it
		}
	}
	h.mu.Unlock()
}

// ChannelRun carries completed engine run results.
const ChannelRun = "run"

// Latest returns the most recent run envelope, or nil before the first run.
func (h *Hub) Latest() []byte {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.latest
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// HandleConn registers an upgraded WebSocket connection and starts its
// read/write pumps.
func (h *Hub) HandleConn(conn *websocket.Conn) {
	client := &Client{
		conn: conn,
		send: make(chan []byte, 256),
		hub:  h,
	}
	conn.EnableWriteCompression(true)

	h.mu.Lock()
	h.clients[client] = true
	count := len(h.clients)
	latest := h.latest
	cb := h.onClientCount
	h.mu.Unlock()

	log.Printf("[gateway] ws client connected (%d total)", count)
	if cb != nil {
		cb(count)
	}

	if latest != nil {
		// replay the current state so the dashboard renders immediately
		select {
		case client.send <- latest:
		default:
		}
	}

	go client.writePump()
	go client.readPump()
}

func (h *Hub) removeClient(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, c)
	count := len(h.clients)
	cb := h.onClientCount
	h.mu.Unlock()

	close(c.send)
	if cb != nil {
		cb(count)
	}
}
