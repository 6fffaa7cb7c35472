package ws

import (
	"encoding/json"
	"fmt"

	"eduplatform/internal/model"
)

// Client -> server event names
const (
	EventJoinRoom       = "join-room"
	EventLeaveRoom      = "leave-room"
	EventSignal         = "signal"
	EventSendMessage    = "send-message"
	EventUpdateSettings = "update-settings"
)

// Frame is the envelope of every message in both directions
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type joinRoomData struct {
	RoomID string                `json:"roomId"`
	User   model.ParticipantInfo `json:"user"`
}

type sendMessageData struct {
	Content        string          `json:"content"`
	Attachment     bool            `json:"attachment"`
	AttachmentName string          `json:"attachmentName"`
	Timestamp      json.RawMessage `json:"timestamp"`
}

// clientEvent is the decoded form of an inbound frame. Exactly one of the
// payload fields is set, selected by kind.
type clientEvent struct {
	kind     string
	join     *joinRoomData
	signal   *model.SignalEnvelope
	message  *model.ChatMessage
	settings *model.Settings
}

// decodeClientEvent parses a raw frame into a clientEvent
func decodeClientEvent(raw []byte) (*clientEvent, error) {
	var frame Frame
	if err := json.Unmarshal(raw, &frame); err != nil {
		return nil, fmt.Errorf("malformed frame: %w", err)
	}

	ev := &clientEvent{kind: frame.Event}
	switch frame.Event {
	case EventJoinRoom:
		var data joinRoomData
		if err := decodeData(frame.Data, &data); err != nil {
			return nil, err
		}
		ev.join = &data

	case EventLeaveRoom:
		// no payload

	case EventSignal:
		var env model.SignalEnvelope
		if err := decodeData(frame.Data, &env); err != nil {
			return nil, err
		}
		ev.signal = &env

	case EventSendMessage:
		var data sendMessageData
		if err := decodeData(frame.Data, &data); err != nil {
			return nil, err
		}
		msg := &model.ChatMessage{
			Content:        data.Content,
			Attachment:     data.Attachment,
			AttachmentName: data.AttachmentName,
		}
		// A client timestamp that does not parse is replaced by server time
		if len(data.Timestamp) > 0 {
			_ = json.Unmarshal(data.Timestamp, &msg.Timestamp)
		}
		ev.message = msg

	case EventUpdateSettings:
		var settings model.Settings
		if err := decodeData(frame.Data, &settings); err != nil {
			return nil, err
		}
		ev.settings = &settings

	case "":
		return nil, fmt.Errorf("frame has no event")
	default:
		return nil, fmt.Errorf("unknown event %q", frame.Event)
	}
	return ev, nil
}

func decodeData(data json.RawMessage, v interface{}) error {
	if len(data) == 0 {
		return fmt.Errorf("missing event data")
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("invalid event data: %w", err)
	}
	return nil
}

// encodeFrame builds an outbound frame
func encodeFrame(event string, payload interface{}) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Frame{Event: event, Data: data})
}
