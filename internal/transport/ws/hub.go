package ws

import (
	"log/slog"
	"sync"
)

// Hub owns the live signaling connections and delivers outbound frames
type Hub struct {
	conns map[string]*Connection // connection id -> conn

	mu sync.RWMutex

	// Channels for coordination
	register   chan *Connection
	unregister chan *Connection
	outbound   chan *outboundFrame
	done       chan struct{}
	closeOnce  sync.Once

	logger *slog.Logger
}

// Connection represents a WebSocket connection
type Connection struct {
	ID     string
	UserID string
	Send   chan []byte
	Hub    *Hub
}

type outboundFrame struct {
	ConnID string
	Data   []byte
}

// NewHub creates a new WebSocket hub and starts its loop
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Hub{
		conns:      make(map[string]*Connection),
		register:   make(chan *Connection),
		unregister: make(chan *Connection),
		outbound:   make(chan *outboundFrame, 256),
		done:       make(chan struct{}),
		logger:     logger.With("component", "hub"),
	}
	go h.run()
	return h
}

func (h *Hub) run() {
	for {
		select {
		case conn := <-h.register:
			h.mu.Lock()
			h.conns[conn.ID] = conn
			h.mu.Unlock()
			h.logger.Debug("connection registered", "conn", conn.ID, "user", conn.UserID)

		case conn := <-h.unregister:
			h.mu.Lock()
			if existing, ok := h.conns[conn.ID]; ok && existing == conn {
				delete(h.conns, conn.ID)
				close(conn.Send)
				h.logger.Debug("connection unregistered", "conn", conn.ID, "user", conn.UserID)
			}
			h.mu.Unlock()

		case msg := <-h.outbound:
			h.mu.RLock()
			if conn, ok := h.conns[msg.ConnID]; ok {
				select {
				case conn.Send <- msg.Data:
				default:
					h.logger.Warn("send buffer full, dropping frame", "conn", msg.ConnID)
				}
			}
			h.mu.RUnlock()

		case <-h.done:
			h.mu.Lock()
			for id, conn := range h.conns {
				close(conn.Send)
				delete(h.conns, id)
			}
			h.mu.Unlock()
			return
		}
	}
}

// Register adds a connection
func (h *Hub) Register(conn *Connection) {
	select {
	case h.register <- conn:
	case <-h.done:
	}
}

// Unregister removes a connection
func (h *Hub) Unregister(conn *Connection) {
	select {
	case h.unregister <- conn:
	case <-h.done:
	}
}

// Shutdown stops the loop and closes every connection's send channel
func (h *Hub) Shutdown() {
	h.closeOnce.Do(func() { close(h.done) })
}

// Emit queues an event for one connection (implements service.Broadcaster)
func (h *Hub) Emit(connID string, event string, payload interface{}) {
	data, err := encodeFrame(event, payload)
	if err != nil {
		h.logger.Error("failed to encode frame", "event", event, "error", err)
		return
	}
	select {
	case h.outbound <- &outboundFrame{ConnID: connID, Data: data}:
	case <-h.done:
	}
}

// IsConnected reports whether the connection is live (implements service.Broadcaster)
func (h *Hub) IsConnected(connID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.conns[connID]
	return ok
}

// ConnectionCount returns the number of live connections
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}
