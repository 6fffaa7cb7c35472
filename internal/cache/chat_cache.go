package cache

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"eduplatform/internal/model"
)

// ChatCache stores each room's chat log as a Redis list
type ChatCache struct {
	client *redis.Client
}

func NewChatCache(client *redis.Client) *ChatCache {
	return &ChatCache{client: client}
}

func (c *ChatCache) key(roomID string) string {
	return fmt.Sprintf("chat:%s", roomID)
}

func (c *ChatCache) History(ctx context.Context, roomID string) ([]model.ChatMessage, error) {
	raw, err := c.client.LRange(ctx, c.key(roomID), 0, -1).Result()
	if err != nil {
		return nil, errors.Wrap(err, "read chat history")
	}

	msgs := make([]model.ChatMessage, 0, len(raw))
	for _, item := range raw {
		var msg model.ChatMessage
		if err := json.Unmarshal([]byte(item), &msg); err != nil {
			return nil, errors.Wrap(err, "decode chat message")
		}
		msgs = append(msgs, msg)
	}
	return msgs, nil
}

func (c *ChatCache) Append(ctx context.Context, roomID string, msg model.ChatMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return errors.Wrap(c.client.RPush(ctx, c.key(roomID), data).Err(), "append chat message")
}
