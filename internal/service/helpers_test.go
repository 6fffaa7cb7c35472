package service

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"eduplatform/internal/cache"
	"eduplatform/internal/model"
	"eduplatform/internal/repository"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type emitted struct {
	Event   string
	Payload interface{}
}

// recordingBroadcaster captures emitted events per connection
type recordingBroadcaster struct {
	mu        sync.Mutex
	events    map[string][]emitted
	connected map[string]bool
}

func newRecordingBroadcaster(conns ...string) *recordingBroadcaster {
	b := &recordingBroadcaster{
		events:    make(map[string][]emitted),
		connected: make(map[string]bool),
	}
	for _, c := range conns {
		b.connected[c] = true
	}
	return b
}

func (b *recordingBroadcaster) Emit(connID, event string, payload interface{}) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events[connID] = append(b.events[connID], emitted{Event: event, Payload: payload})
}

func (b *recordingBroadcaster) IsConnected(connID string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.connected[connID]
}

func (b *recordingBroadcaster) disconnect(connID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.connected, connID)
}

// of returns the events of connID with the given name
func (b *recordingBroadcaster) of(connID, event string) []emitted {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []emitted
	for _, e := range b.events[connID] {
		if e.Event == event {
			out = append(out, e)
		}
	}
	return out
}

func (b *recordingBroadcaster) reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = make(map[string][]emitted)
}

// memoryChat is an in-process ChatHistory
type memoryChat struct {
	mu      sync.Mutex
	rooms   map[string][]model.ChatMessage
	failing bool
}

func newMemoryChat() *memoryChat {
	return &memoryChat{rooms: make(map[string][]model.ChatMessage)}
}

func (c *memoryChat) History(ctx context.Context, roomID string) ([]model.ChatMessage, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]model.ChatMessage, len(c.rooms[roomID]))
	copy(out, c.rooms[roomID])
	return out, nil
}

func (c *memoryChat) Append(ctx context.Context, roomID string, msg model.ChatMessage) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failing {
		return errors.New("disk full")
	}
	c.rooms[roomID] = append(c.rooms[roomID], msg)
	return nil
}

type testStores struct {
	tests    repository.TestRepo
	attempts repository.AttemptRepo
	meetings repository.MeetingRepo
	invites  repository.InviteRepo
	users    repository.UserRepo
	board    cache.LeaderboardCache
}

func newTestStores() *testStores {
	store := repository.NewDocStore(repository.NewMemoryBackend())
	return &testStores{
		tests:    repository.NewTestRepo(store),
		attempts: repository.NewAttemptRepo(store),
		meetings: repository.NewMeetingRepo(store),
		invites:  repository.NewInviteRepo(store),
		users:    repository.NewUserRepo(store),
		board:    cache.NewMemoryLeaderboard(),
	}
}

var (
	teacher  = model.Identity{ID: "t1", Role: model.RoleTeacher}
	admin    = model.Identity{ID: "a1", Role: model.RoleAdmin}
	student  = model.Identity{ID: "s1", Role: model.RoleStudent}
	student2 = model.Identity{ID: "s2", Role: model.RoleStudent}
)

// twoSingleQuestions is a test with two single choice questions
func twoSingleQuestions(id string) *model.Test {
	return &model.Test{
		ID:              id,
		Title:           "Capitals",
		AttemptsAllowed: 2,
		CreatorID:       teacher.ID,
		Visibility:      model.VisibilityPublic,
		Questions: []model.Question{
			{
				ID:   "q1",
				Text: "Capital of France?",
				Type: model.QuestionTypeSingle,
				Options: []model.Option{
					{Text: "Paris", IsCorrect: true},
					{Text: "Rome"},
				},
			},
			{
				ID:   "q2",
				Text: "Capital of Italy?",
				Type: model.QuestionTypeSingle,
				Options: []model.Option{
					{Text: "Paris"},
					{Text: "Rome", IsCorrect: true},
				},
			},
		},
	}
}

// decodeUsers converts an all-users payload into user ids
func decodeUsers(t *testing.T, payload interface{}) []string {
	t.Helper()
	users, ok := payload.([]model.Participant)
	require.True(t, ok, "payload is %T", payload)
	ids := make([]string, len(users))
	for i, u := range users {
		ids[i] = u.UserID
	}
	return ids
}

func rawJSON(s string) json.RawMessage {
	return json.RawMessage(s)
}
