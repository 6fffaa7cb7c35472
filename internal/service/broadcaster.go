package service

import (
	"context"

	"eduplatform/internal/model"
)

// Server -> client event names of the signaling channel
const (
	EventConnected      = "connected"
	EventAllUsers       = "all-users"
	EventChatHistory    = "chat-history"
	EventReceiveMessage = "receive-message"
	EventSignal         = "signal"
	EventError          = "error"
	EventWarning        = "warning"
)

// Broadcaster pushes events to live connections (avoids import cycle with ws)
type Broadcaster interface {
	Emit(connID string, event string, payload interface{})
	IsConnected(connID string) bool
}

// ChatHistory is the per-room append-only message log
type ChatHistory interface {
	History(ctx context.Context, roomID string) ([]model.ChatMessage, error)
	Append(ctx context.Context, roomID string, msg model.ChatMessage) error
}

// EventError payload
type EventProblem struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
