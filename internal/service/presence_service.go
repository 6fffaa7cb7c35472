package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/pkg/errors"

	"eduplatform/internal/model"
)

// PresenceService coordinates room membership, chat and participant lists
// for signaling connections
type PresenceService struct {
	registry    *RoomRegistry
	history     ChatHistory
	broadcaster Broadcaster
	roomLocks   *keyedMutex
	logger      *slog.Logger
	now         func() time.Time
}

// NewPresenceService creates a new presence service
func NewPresenceService(registry *RoomRegistry, history ChatHistory, logger *slog.Logger) *PresenceService {
	if logger == nil {
		logger = slog.Default()
	}
	return &PresenceService{
		registry:  registry,
		history:   history,
		roomLocks: newKeyedMutex(),
		logger:    logger.With("component", "presence"),
		now:       time.Now,
	}
}

// SetBroadcaster sets the broadcaster for real-time events
func (s *PresenceService) SetBroadcaster(b Broadcaster) {
	s.broadcaster = b
}

// Join puts the connection into roomID. A connection already in another
// room leaves it first; an entry of the same user is replaced.
func (s *PresenceService) Join(ctx context.Context, caller model.Identity, connID, roomID string, info model.ParticipantInfo) error {
	roomID = strings.TrimSpace(roomID)
	if roomID == "" {
		return NewValidationError(errInvalidPayload, FieldError{Field: "roomId", Error: "roomId is required"})
	}
	if info.UserID == "" {
		info.UserID = caller.ID
	}
	if info.UserID != caller.ID {
		return errors.Wrap(ErrForbidden, "cannot join as another user")
	}

	if current, ok := s.registry.RoomOf(connID); ok && current != roomID {
		s.leaveRoom(current, connID)
	}

	unlock := s.roomLocks.Lock(roomID)
	defer unlock()

	replaced := s.registry.Upsert(roomID, model.Participant{
		ConnectionID: connID,
		UserID:       info.UserID,
		Username:     info.Username,
		AvatarURL:    info.AvatarURL,
		MicOn:        info.MicOn,
	})
	if replaced != nil && replaced.ConnectionID != connID {
		s.logger.Info("participant replaced by rejoin",
			"room", roomID, "user", info.UserID, "old_conn", replaced.ConnectionID, "conn", connID)
	}

	history, err := s.history.History(ctx, roomID)
	if err != nil {
		s.logger.Error("failed to load chat history", "room", roomID, "error", err)
		s.emit(connID, EventWarning, EventProblem{Code: "history_unavailable", Message: "chat history could not be loaded"})
		history = []model.ChatMessage{}
	}
	s.emit(connID, EventChatHistory, history)
	s.broadcastUsers(roomID)

	s.logger.Debug("joined room", "room", roomID, "conn", connID, "user", info.UserID)
	return nil
}

// Leave removes the connection from its room; no-op when not in one
func (s *PresenceService) Leave(ctx context.Context, connID string) {
	if roomID, ok := s.registry.RoomOf(connID); ok {
		s.leaveRoom(roomID, connID)
	}
}

// Disconnect is Leave for a closed connection
func (s *PresenceService) Disconnect(ctx context.Context, connID string) {
	s.Leave(ctx, connID)
}

func (s *PresenceService) leaveRoom(roomID, connID string) {
	unlock := s.roomLocks.Lock(roomID)
	defer unlock()

	// The connection may have been replaced while waiting for the lock
	if current, ok := s.registry.RoomOf(connID); !ok || current != roomID {
		return
	}
	s.registry.RemoveConnection(connID)
	s.broadcastUsers(roomID)
	s.logger.Debug("left room", "room", roomID, "conn", connID)
}

// UpdateSettings changes the caller's mutable participant fields
func (s *PresenceService) UpdateSettings(ctx context.Context, connID string, settings model.Settings) error {
	roomID, ok := s.registry.RoomOf(connID)
	if !ok {
		return ErrNotInRoom
	}

	unlock := s.roomLocks.Lock(roomID)
	defer unlock()

	if _, ok := s.registry.UpdateMic(connID, settings.MicOn); !ok {
		return ErrNotInRoom
	}
	s.broadcastUsers(roomID)
	return nil
}

// SendMessage stores a chat message and fans it out to the whole room,
// sender included. A storage failure does not stop the broadcast.
func (s *PresenceService) SendMessage(ctx context.Context, connID string, msg model.ChatMessage) error {
	roomID, ok := s.registry.RoomOf(connID)
	if !ok {
		return ErrNotInRoom
	}
	if strings.TrimSpace(msg.Content) == "" && !msg.Attachment {
		return NewValidationError(errInvalidPayload, FieldError{Field: "content", Error: "content is required"})
	}

	unlock := s.roomLocks.Lock(roomID)
	defer unlock()

	sender, ok := s.registry.Participant(connID)
	if !ok {
		return ErrNotInRoom
	}
	msg.User = sender.Username
	if msg.Timestamp.IsZero() {
		msg.Timestamp = s.now().UTC()
	}

	if err := s.history.Append(ctx, roomID, msg); err != nil {
		s.logger.Error("failed to persist chat message", "room", roomID, "conn", connID, "error", err)
		s.emit(connID, EventWarning, EventProblem{Code: "message_not_saved", Message: "message delivered but not saved"})
	}

	for _, p := range s.registry.Snapshot(roomID) {
		s.emit(p.ConnectionID, EventReceiveMessage, msg)
	}
	return nil
}

// Participants returns the room's current list
func (s *PresenceService) Participants(roomID string) []model.Participant {
	return s.registry.Snapshot(roomID)
}

// Rooms lists live rooms
func (s *PresenceService) Rooms() []model.RoomInfo {
	return s.registry.Rooms()
}

// broadcastUsers sends the full list; caller holds the room lock
func (s *PresenceService) broadcastUsers(roomID string) {
	users := s.registry.Snapshot(roomID)
	for _, p := range users {
		s.emit(p.ConnectionID, EventAllUsers, users)
	}
}

func (s *PresenceService) emit(connID, event string, payload interface{}) {
	if s.broadcaster == nil {
		return
	}
	s.broadcaster.Emit(connID, event, payload)
}
