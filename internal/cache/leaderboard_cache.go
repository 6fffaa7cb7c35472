package cache

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/redis/go-redis/v9"

	"eduplatform/internal/model"
)

// LeaderboardCache keeps each user's best score per test
type LeaderboardCache interface {
	RecordScore(ctx context.Context, testID, userID string, score int) error
	Top(ctx context.Context, testID string, limit int) ([]model.LeaderboardEntry, error)
	Rank(ctx context.Context, testID, userID string) (int64, error)
}

type leaderboardCache struct {
	client *redis.Client
}

// NewLeaderboardCache creates a Redis sorted-set leaderboard
func NewLeaderboardCache(client *redis.Client) LeaderboardCache {
	return &leaderboardCache{
		client: client,
	}
}

func (c *leaderboardCache) key(testID string) string {
	return fmt.Sprintf("test:%s:lb", testID)
}

// RecordScore only raises a stored score, never lowers it
func (c *leaderboardCache) RecordScore(ctx context.Context, testID, userID string, score int) error {
	return c.client.ZAddGT(ctx, c.key(testID), redis.Z{
		Score:  float64(score),
		Member: userID,
	}).Err()
}

func (c *leaderboardCache) Top(ctx context.Context, testID string, limit int) ([]model.LeaderboardEntry, error) {
	results, err := c.client.ZRevRangeWithScores(ctx, c.key(testID), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, err
	}

	entries := make([]model.LeaderboardEntry, len(results))
	for i, z := range results {
		member, _ := z.Member.(string)
		entries[i] = model.LeaderboardEntry{
			UserID: member,
			Score:  int(z.Score),
			Rank:   i + 1,
		}
	}
	return entries, nil
}

func (c *leaderboardCache) Rank(ctx context.Context, testID, userID string) (int64, error) {
	rank, err := c.client.ZRevRank(ctx, c.key(testID), userID).Result()
	if err == redis.Nil {
		return -1, nil
	}
	return rank + 1, err // 1-indexed
}

type memoryLeaderboard struct {
	mu     sync.Mutex
	scores map[string]map[string]int
}

// NewMemoryLeaderboard creates a process-local leaderboard
func NewMemoryLeaderboard() LeaderboardCache {
	return &memoryLeaderboard{scores: make(map[string]map[string]int)}
}

func (m *memoryLeaderboard) RecordScore(ctx context.Context, testID, userID string, score int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	board, ok := m.scores[testID]
	if !ok {
		board = make(map[string]int)
		m.scores[testID] = board
	}
	if best, ok := board[userID]; !ok || score > best {
		board[userID] = score
	}
	return nil
}

func (m *memoryLeaderboard) sorted(testID string) []model.LeaderboardEntry {
	board := m.scores[testID]
	entries := make([]model.LeaderboardEntry, 0, len(board))
	for userID, score := range board {
		entries = append(entries, model.LeaderboardEntry{UserID: userID, Score: score})
	}
	// Ties break on user id, as ZREVRANGE orders equal scores by member descending
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		return entries[i].UserID > entries[j].UserID
	})
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries
}

func (m *memoryLeaderboard) Top(ctx context.Context, testID string, limit int) ([]model.LeaderboardEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entries := m.sorted(testID)
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

func (m *memoryLeaderboard) Rank(ctx context.Context, testID, userID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, e := range m.sorted(testID) {
		if e.UserID == userID {
			return int64(e.Rank), nil
		}
	}
	return -1, nil
}
