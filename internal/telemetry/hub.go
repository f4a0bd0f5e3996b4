package telemetry

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	applogger "PipFlow/pkg/logger"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Event is the wire envelope pushed to dashboard clients.
type Event struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// Hub fans telemetry events out to connected websocket clients. Each
// client gets a buffered send queue; a client that cannot keep up is
// disconnected rather than allowed to stall the broadcast loop.
type Hub struct {
	mu        sync.Mutex
	clients   map[*client]struct{}
	broadcast chan []byte
	done      chan struct{}
	closeOnce sync.Once
	logger    *applogger.Logger
	queueSize int
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Option configures Hub.
type Option func(*Hub)

// WithLogger sets the structured logger.
func WithLogger(l *applogger.Logger) Option {
	return func(h *Hub) { h.logger = l }
}

// WithClientQueueSize sets the per-client send buffer.
func WithClientQueueSize(n int) Option {
	return func(h *Hub) {
		if n > 0 {
			h.queueSize = n
		}
	}
}

// NewHub creates a Hub. Call Run in its own goroutine.
func NewHub(opts ...Option) *Hub {
	h := &Hub{
		clients:   make(map[*client]struct{}),
		broadcast: make(chan []byte, 256),
		done:      make(chan struct{}),
		queueSize: 64,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Run pumps broadcast messages to every client until the context ends.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case msg := <-h.broadcast:
			h.mu.Lock()
			for c := range h.clients {
				select {
				case c.send <- msg:
				default:
					// slow consumer, cut it loose
					h.dropLocked(c)
				}
			}
			h.mu.Unlock()
		case <-ctx.Done():
			h.shutdown()
			return
		case <-h.done:
			h.shutdown()
			return
		}
	}
}

// Publish serializes an event and queues it for broadcast. Non-blocking:
// if the broadcast queue is full the event is dropped, telemetry is
// advisory.
func (h *Hub) Publish(eventType string, data interface{}) {
	payload, err := json.Marshal(Event{Type: eventType, Data: data})
	if err != nil {
		if h.logger != nil {
			h.logger.Warn("telemetry marshal failed", applogger.String("type", eventType), applogger.Error(err))
		}
		return
	}
	select {
	case h.broadcast <- payload:
	default:
	}
}

// Handler upgrades an HTTP request to a websocket client connection.
func (h *Hub) Handler() echo.HandlerFunc {
	return func(c echo.Context) error {
		conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
		if err != nil {
			if h.logger != nil {
				h.logger.Warn("websocket upgrade failed", applogger.Error(err))
			}
			return nil
		}
		cl := &client{conn: conn, send: make(chan []byte, h.queueSize)}
		h.mu.Lock()
		h.clients[cl] = struct{}{}
		n := len(h.clients)
		h.mu.Unlock()
		if h.logger != nil {
			h.logger.Info("telemetry client connected", applogger.Int("clients", n))
		}

		go h.writePump(cl)
		go h.readPump(cl)
		return nil
	}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close stops the broadcast loop and disconnects all clients.
func (h *Hub) Close() {
	h.closeOnce.Do(func() { close(h.done) })
}

func (h *Hub) writePump(c *client) {
	for msg := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			h.drop(c)
			return
		}
	}
	c.conn.Close()
}

// readPump drains client frames so pings and close handshakes are
// processed; inbound payloads are ignored.
func (h *Hub) readPump(c *client) {
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			h.drop(c)
			return
		}
	}
}

func (h *Hub) drop(c *client) {
	h.mu.Lock()
	h.dropLocked(c)
	h.mu.Unlock()
}

func (h *Hub) dropLocked(c *client) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	close(c.send)
	c.conn.Close()
}

func (h *Hub) shutdown() {
	h.mu.Lock()
	for c := range h.clients {
		h.dropLocked(c)
	}
	h.mu.Unlock()
}
