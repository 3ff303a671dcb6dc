package server

import (
	"log/slog"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/BioHazard786/tandem/internal/metrics"
	"github.com/BioHazard786/tandem/internal/signaling"
)

// Hub connects websocket clients to the session coordinator. The coordinator
// decides what to send; the hub owns the live sockets and delivers.
type Hub struct {
	log     *slog.Logger
	coord   *signaling.Coordinator
	metrics *metrics.Metrics
	buffer  int

	mu      sync.RWMutex
	clients map[signaling.ConnID]*Client
}

// NewHub creates a new Hub instance.
func NewHub(log *slog.Logger, coord *signaling.Coordinator, m *metrics.Metrics, buffer int) *Hub {
	if log == nil {
		log = slog.Default()
	}
	return &Hub{
		log:     log,
		coord:   coord,
		metrics: m,
		buffer:  buffer,
		clients: make(map[signaling.ConnID]*Client),
	}
}

// Attach registers a freshly upgraded connection.
func (h *Hub) Attach(conn *websocket.Conn) *Client {
	id := h.coord.Connect()
	client := newClient(id, h, conn, h.buffer)

	h.mu.Lock()
	h.clients[id] = client
	h.mu.Unlock()

	h.log.Info("Client registered", "conn", id, "remote", conn.RemoteAddr().String())
	return client
}

// Handle processes one inbound message from c.
func (h *Hub) Handle(c *Client, msg *signaling.Message) {
	h.dispatch(h.coord.Handle(c.ID, msg))
}

// Reject reports a transport-level error to c before it is dropped.
func (h *Hub) Reject(c *Client, err error) {
	h.log.Info("Rejecting client", "conn", c.ID, "error", err)
	if h.metrics != nil {
		h.metrics.Invalid.Inc()
	}
	h.dispatch([]signaling.Outbound{{To: c.ID, Message: signaling.NewErrorMessage(err), Close: true}})
}

// Detach runs the disconnect transition for c. It is safe to call more than
// once.
func (h *Hub) Detach(c *Client) {
	out := h.coord.Disconnect(c.ID)

	h.mu.Lock()
	if h.clients[c.ID] == c {
		delete(h.clients, c.ID)
		h.log.Info("Client unregistered", "conn", c.ID)
	}
	h.mu.Unlock()

	c.shutdown()
	h.dispatch(out)
}

// dispatch delivers notifications in order. Delivery never blocks: a missing
// recipient or a full queue drops the message.
func (h *Hub) dispatch(out []signaling.Outbound) {
	for _, o := range out {
		h.mu.RLock()
		client, ok := h.clients[o.To]
		h.mu.RUnlock()

		if ok && client.enqueue(o.Message, o.Close) {
			if h.metrics != nil {
				h.metrics.Sent.WithLabelValues(o.Message.Type).Inc()
			}
			continue
		}

		h.log.Debug("Dropping message", "conn", o.To, "type", o.Message.Type)
		if h.metrics != nil {
			h.metrics.Dropped.WithLabelValues(o.Message.Type).Inc()
		}
		if ok && o.Close {
			client.shutdown()
		}
	}
}

// Len returns the number of attached clients.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close detaches every client; used on shutdown.
func (h *Hub) Close() {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		c.shutdown()
	}
}
