// Package ws pushes board renders and leader changes to browser displays.
//
// Every message is a JSON envelope:
//
//	{"event": "board", "data": {...}, "sent_at": "..."}
//
// Events are "board" (a render.Board after every render) and "leader" (a
// model.LeaderChange). A newly connected client immediately receives the
// current board.
package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/okian/standings/internal/domain/model"
	"github.com/okian/standings/internal/domain/render"
	"github.com/okian/standings/pkg/logger"
	"github.com/okian/standings/pkg/metrics"
)

const (
	writeTimeout = 10 * time.Second
	pongWait     = 60 * time.Second
	// must be less than pongWait
	pingPeriod  = (pongWait * 9) / 10
	sendBufSize = 16
)

// Event names.
const (
	EventBoard  = "board"
	EventLeader = "leader"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// boards run on a trusted LAN; put CORS at the reverse proxy
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Message is the envelope sent to clients.
type Message struct {
	Event  string      `json:"event"`
	Data   interface{} `json:"data"`
	SentAt time.Time   `json:"sent_at"`
}

// Option applies a configuration option to the Hub.
type Option func(*Hub)

// WithCurrentBoard sets the provider of the board sent on connect.
func WithCurrentBoard(fn func() (render.Board, bool)) Option {
	return func(h *Hub) {
		h.current = fn
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(h *Hub) {
		if l != nil {
			h.logger = l
		}
	}
}

// Hub manages WebSocket clients and fans messages out to them.
type Hub struct {
	current func() (render.Board, bool)
	logger  logger.Logger

	mu      sync.RWMutex
	clients map[*client]struct{}
	closed  bool
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// New creates a Hub.
func New(opts ...Option) *Hub {
	h := &Hub{
		clients: make(map[*client]struct{}),
		logger:  logger.Get().Named("ws"),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Run blocks until ctx is cancelled, then closes all connections.
func (h *Hub) Run(ctx context.Context) {
	<-ctx.Done()
	h.closeAll()
}

// ServeHTTP upgrades the connection and serves the client until it closes.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// upgrader already wrote the response
		return
	}

	c := &client{conn: conn, send: make(chan []byte, sendBufSize)}
	if !h.register(c) {
		_ = conn.Close()
		return
	}
	defer h.unregister(c)

	if h.current != nil {
		if b, ok := h.current(); ok {
			if data, err := encode(EventBoard, b); err == nil {
				h.mu.RLock()
				if _, live := h.clients[c]; live {
					select {
					case c.send <- data:
					default:
					}
				}
				h.mu.RUnlock()
			}
		}
	}

	go c.writePump()
	c.readPump()
}

// Count returns the number of connected clients.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast sends an event to every client. A client whose buffer is full
// is disconnected.
func (h *Hub) Broadcast(event string, data interface{}) error {
	msg, err := encode(event, data)
	if err != nil {
		return err
	}

	var slow []*client
	h.mu.RLock()
	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		h.logger.Warn(context.Background(), "dropping slow client")
		h.unregister(c)
	}
	metrics.RecordWebSocketBroadcast(event)
	return nil
}

// OnBoard pushes a fresh render.
func (h *Hub) OnBoard(b render.Board) {
	if err := h.Broadcast(EventBoard, b); err != nil {
		h.logger.Error(context.Background(), "board broadcast failed", logger.Error(err))
	}
}

// Name implements worker.Sink.
func (h *Hub) Name() string { return "websocket" }

// Alert implements worker.Sink.
func (h *Hub) Alert(_ context.Context, c model.LeaderChange) error { //nolint:gocritic // hugeParam: matches worker.Sink
	return h.Broadcast(EventLeader, c)
}

func encode(event string, data interface{}) ([]byte, error) {
	return json.Marshal(Message{Event: event, Data: data, SentAt: time.Now().UTC()})
}

func (h *Hub) register(c *client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[c] = struct{}{}
	metrics.UpdateWebSocketClients(len(h.clients))
	return true
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
		metrics.UpdateWebSocketClients(len(h.clients))
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for c := range h.clients {
		close(c.send)
		delete(h.clients, c)
	}
	metrics.UpdateWebSocketClients(0)
}

// writePump forwards queued messages and pings until send is closed.
func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump handles control frames and detects disconnects.
func (c *client) readPump() {
	defer func() { _ = c.conn.Close() }()
	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
