package repository

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eduplatform/internal/model"
)

func TestFileChatRepo_AppendKeepsOrderAndReloads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "messageHistory.json")
	ctx := context.Background()

	repo, err := NewFileChatRepo(path)
	require.NoError(t, err)

	empty, err := repo.History(ctx, "room-1")
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)

	ts := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	for _, content := range []string{"m1", "m2", "m3"} {
		require.NoError(t, repo.Append(ctx, "room-1", model.ChatMessage{User: "sam", Content: content, Timestamp: ts}))
	}
	require.NoError(t, repo.Append(ctx, "room-2", model.ChatMessage{User: "kim", Content: "other"}))

	reloaded, err := NewFileChatRepo(path)
	require.NoError(t, err)

	msgs, err := reloaded.History(ctx, "room-1")
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	assert.Equal(t, "m1", msgs[0].Content)
	assert.Equal(t, "m3", msgs[2].Content)
	assert.True(t, ts.Equal(msgs[0].Timestamp))

	other, err := reloaded.History(ctx, "room-2")
	require.NoError(t, err)
	assert.Len(t, other, 1)
}

func TestFileChatRepo_HistoryIsCopy(t *testing.T) {
	repo, err := NewFileChatRepo(filepath.Join(t.TempDir(), "chat.json"))
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, repo.Append(ctx, "room", model.ChatMessage{Content: "original"}))

	msgs, _ := repo.History(ctx, "room")
	msgs[0].Content = "mutated"

	again, _ := repo.History(ctx, "room")
	assert.Equal(t, "original", again[0].Content)
}

func TestFileChatRepo_RejectsCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chat.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := NewFileChatRepo(path)
	assert.Error(t, err)
}
