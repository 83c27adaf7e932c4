package gateway

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/scottjudy/deepcell-label/actor"
	"github.com/scottjudy/deepcell-label/metric"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 1 << 20
	sendBuffer     = 256
)

// Envelope wraps every broadcast frame with the bus it came from
type Envelope struct {
	Bus       string `json:"bus"`
	Type      string `json:"type"`
	Timestamp int64  `json:"timestamp"`
	Payload   any    `json:"payload,omitempty"`
}

// hub fans project events out to every connected websocket client.
// Delivery is fire-and-forget: a client whose send buffer is full is
// dropped rather than allowed to stall the rest.
type hub struct {
	projectID string
	logger    *slog.Logger
	metrics   *metric.Metrics

	mu      sync.RWMutex
	clients map[*client]struct{}
}

func newHub(projectID string, metrics *metric.Metrics, logger *slog.Logger) *hub {
	return &hub{
		projectID: projectID,
		logger:    logger.With("component", "Hub"),
		metrics:   metrics,
		clients:   make(map[*client]struct{}),
	}
}

func (h *hub) add(c *client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	if h.metrics != nil {
		h.metrics.ClientsConnected.WithLabelValues(h.projectID).Set(float64(n))
	}
}

func (h *hub) remove(c *client) {
	h.mu.Lock()
	_, present := h.clients[c]
	delete(h.clients, c)
	n := len(h.clients)
	h.mu.Unlock()
	if present {
		c.close()
		if h.metrics != nil {
			h.metrics.ClientsConnected.WithLabelValues(h.projectID).Set(float64(n))
		}
	}
}

// broadcast serializes one event and queues it for every client
func (h *hub) broadcast(bus string, ev actor.Event) {
	frame, err := json.Marshal(Envelope{
		Bus:       bus,
		Type:      ev.Type,
		Timestamp: time.Now().UnixMilli(),
		Payload:   ev.Payload,
	})
	if err != nil {
		h.logger.Warn("unserializable event", "bus", bus, "event", ev.Type, "error", err)
		return
	}
	if h.metrics != nil {
		h.metrics.MessagesBroadcast.WithLabelValues(h.projectID, bus).Inc()
	}

	h.mu.RLock()
	var slow []*client
	for c := range h.clients {
		select {
		case c.send <- frame:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		h.logger.Warn("dropping slow client", "remote", c.conn.RemoteAddr())
		if h.metrics != nil {
			h.metrics.ClientsDropped.WithLabelValues(h.projectID).Inc()
		}
		h.remove(c)
	}
}

func (h *hub) closeAll() {
	h.mu.Lock()
	clients := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.clients = make(map[*client]struct{})
	h.mu.Unlock()
	for _, c := range clients {
		c.close()
	}
}

// client is one websocket connection with its buffered outbound queue
type client struct {
	conn      *websocket.Conn
	send      chan []byte
	closeOnce sync.Once
}

func newClient(conn *websocket.Conn) *client {
	return &client{
		conn: conn,
		send: make(chan []byte, sendBuffer),
	}
}

func (c *client) close() {
	c.closeOnce.Do(func() {
		close(c.send)
	})
}

// writePump drains the send queue onto the connection and keeps the
// connection alive with pings; it owns all writes.
func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// relay is a bus subscriber that forwards everything to the hub. One is
// spawned per project bus.
type relay struct {
	id  string
	bus string
	hub *hub
}

// ID implements actor.Machine
func (r *relay) ID() string { return r.id }

// Receive implements actor.Machine
func (r *relay) Receive(ev actor.Event) {
	r.hub.broadcast(r.bus, ev)
}
