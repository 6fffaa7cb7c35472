package ws

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"eduplatform/internal/model"
	"eduplatform/internal/service"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024 // SDP offers with many candidates exceed a few KB
	sendBuffer     = 256
	eventTimeout   = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for dev
	},
}

// Handler handles signaling WebSocket connections
type Handler struct {
	hub      *Hub
	authSvc  *service.AuthService
	presence *service.PresenceService
	relay    *service.SignalRelay
	logger   *slog.Logger
}

// NewHandler creates a new WebSocket handler
func NewHandler(hub *Hub, authSvc *service.AuthService, presence *service.PresenceService, relay *service.SignalRelay, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		hub:      hub,
		authSvc:  authSvc,
		presence: presence,
		relay:    relay,
		logger:   logger.With("component", "ws"),
	}
}

// ServeWS handles GET /v1/ws?token=...
func (h *Handler) ServeWS(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		http.Error(w, "missing token", http.StatusUnauthorized)
		return
	}

	identity, err := h.authSvc.ValidateToken(token)
	if err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	wsConn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	conn := &Connection{
		ID:     uuid.New().String(),
		UserID: identity.ID,
		Send:   make(chan []byte, sendBuffer),
		Hub:    h.hub,
	}

	h.hub.Register(conn)
	h.hub.Emit(conn.ID, service.EventConnected, map[string]string{"connectionId": conn.ID})

	h.logger.Info("client connected", "conn", conn.ID, "user", identity.ID)

	go h.writePump(wsConn, conn)
	go h.readPump(wsConn, conn, identity)
}

func (h *Handler) readPump(wsConn *websocket.Conn, conn *Connection, identity model.Identity) {
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), eventTimeout)
		h.presence.Disconnect(ctx, conn.ID)
		cancel()
		h.hub.Unregister(conn)
		wsConn.Close()
		h.logger.Info("client disconnected", "conn", conn.ID, "user", identity.ID)
	}()

	wsConn.SetReadLimit(maxMessageSize)
	wsConn.SetReadDeadline(time.Now().Add(pongWait))
	wsConn.SetPongHandler(func(string) error {
		wsConn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := wsConn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.Warn("websocket read error", "conn", conn.ID, "error", err)
			}
			break
		}
		h.handleFrame(conn, identity, raw)
	}
}

// handleFrame decodes and dispatches one inbound frame. Failures are
// reported to this connection only.
func (h *Handler) handleFrame(conn *Connection, identity model.Identity, raw []byte) {
	defer func() {
		if rec := recover(); rec != nil {
			h.logger.Error("panic handling event", "conn", conn.ID, "panic", rec)
			h.sendProblem(conn.ID, "internal", "event could not be processed")
		}
	}()

	ev, err := decodeClientEvent(raw)
	if err != nil {
		h.sendProblem(conn.ID, "bad_request", err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), eventTimeout)
	defer cancel()

	switch ev.kind {
	case EventJoinRoom:
		err = h.presence.Join(ctx, identity, conn.ID, ev.join.RoomID, ev.join.User)
	case EventLeaveRoom:
		h.presence.Leave(ctx, conn.ID)
	case EventSignal:
		err = h.relay.Relay(conn.ID, *ev.signal)
	case EventSendMessage:
		err = h.presence.SendMessage(ctx, conn.ID, *ev.message)
	case EventUpdateSettings:
		err = h.presence.UpdateSettings(ctx, conn.ID, *ev.settings)
	}

	if err != nil {
		code := problemCode(err)
		if code == "internal" {
			h.logger.Error("event failed", "conn", conn.ID, "event", ev.kind, "error", err)
			h.sendProblem(conn.ID, code, "event could not be processed")
			return
		}
		h.logger.Debug("event rejected", "conn", conn.ID, "event", ev.kind, "error", err)
		h.sendProblem(conn.ID, code, err.Error())
	}
}

func (h *Handler) sendProblem(connID, code, message string) {
	h.hub.Emit(connID, service.EventError, service.EventProblem{Code: code, Message: message})
}

func problemCode(err error) string {
	switch service.Kind(err) {
	case service.KindValidation:
		return "bad_request"
	case service.KindUnauthenticated:
		return "unauthenticated"
	case service.KindForbidden:
		return "forbidden"
	case service.KindNotFound:
		return "not_found"
	case service.KindConflict:
		return "conflict"
	default:
		return "internal"
	}
}

func (h *Handler) writePump(wsConn *websocket.Conn, conn *Connection) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		wsConn.Close()
	}()

	for {
		select {
		case message, ok := <-conn.Send:
			wsConn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				wsConn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := wsConn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			wsConn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := wsConn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
