package model

import (
	"encoding/json"
	"time"
)

// ChatMessage is a single stored chat line of a room
type ChatMessage struct {
	User           string    `json:"user"`
	Content        string    `json:"content"`
	Attachment     bool      `json:"attachment,omitempty"`
	AttachmentName string    `json:"attachmentName,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
}

// SignalEnvelope is a WebRTC negotiation message addressed to one connection
type SignalEnvelope struct {
	To     string          `json:"to"`
	Signal json.RawMessage `json:"signal"`
}

// SignalForward is what the destination connection receives
type SignalForward struct {
	From   string          `json:"from"`
	Signal json.RawMessage `json:"signal"`
}
