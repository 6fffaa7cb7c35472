package repository

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"

	"eduplatform/internal/model"
)

// FileChatRepo keeps every room's chat log in one JSON file. The file is
// read once at startup and rewritten whole on each append.
type FileChatRepo struct {
	mu    sync.Mutex
	path  string
	rooms map[string][]model.ChatMessage
}

// NewFileChatRepo loads the chat file, starting empty if it does not exist
func NewFileChatRepo(path string) (*FileChatRepo, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, errors.Wrap(err, "create chat directory")
	}

	r := &FileChatRepo{
		path:  path,
		rooms: make(map[string][]model.ChatMessage),
	}

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		slog.Info("chat history file not found, starting empty", "path", path)
	case err != nil:
		return nil, errors.Wrapf(err, "read %s", path)
	case len(data) > 0:
		if err := json.Unmarshal(data, &r.rooms); err != nil {
			return nil, errors.Wrapf(err, "decode %s", path)
		}
	}
	return r, nil
}

// History returns a copy of the room's messages in append order
func (r *FileChatRepo) History(ctx context.Context, roomID string) ([]model.ChatMessage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	msgs := r.rooms[roomID]
	out := make([]model.ChatMessage, len(msgs))
	copy(out, msgs)
	return out, nil
}

// Append adds a message and persists the whole map. On write failure the
// in-memory log is rolled back so memory and disk stay consistent.
func (r *FileChatRepo) Append(ctx context.Context, roomID string, msg model.ChatMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	prev, existed := r.rooms[roomID]
	r.rooms[roomID] = append(prev[:len(prev):len(prev)], msg)

	data, err := json.MarshalIndent(r.rooms, "", "  ")
	if err == nil {
		err = writeFileAtomic(r.path, data)
	}
	if err != nil {
		if existed {
			r.rooms[roomID] = prev
		} else {
			delete(r.rooms, roomID)
		}
		return errors.Wrap(err, "persist chat history")
	}
	return nil
}
