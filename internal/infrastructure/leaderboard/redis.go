package leaderboard

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"motoparts-backend/internal/domain"
)

const DefaultKey = "motoparts:loyalty:leaderboard"

// RedisLeaderboard keeps point balances in a sorted set, highest first.
type RedisLeaderboard struct {
	client *redis.Client
	key    string
}

func NewRedisLeaderboard(client *redis.Client, key string) *RedisLeaderboard {
	if key == "" {
		key = DefaultKey
	}
	return &RedisLeaderboard{client: client, key: key}
}

// NewClient parses a redis:// URL and verifies the server answers.
func NewClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return client, nil
}

// SetPoints overwrites the member's score with the current balance.
func (l *RedisLeaderboard) SetPoints(ctx context.Context, userID string, points int) error {
	return l.client.ZAdd(ctx, l.key, redis.Z{
		Score:  float64(points),
		Member: userID,
	}).Err()
}

func (l *RedisLeaderboard) Top(ctx context.Context, n int) ([]domain.LeaderboardEntry, error) {
	if n <= 0 {
		return []domain.LeaderboardEntry{}, nil
	}
	zs, err := l.client.ZRevRangeWithScores(ctx, l.key, 0, int64(n-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read leaderboard: %w", err)
	}

	out := make([]domain.LeaderboardEntry, 0, len(zs))
	for i, z := range zs {
		member, ok := z.Member.(string)
		if !ok {
			continue
		}
		out = append(out, domain.LeaderboardEntry{
			UserID: member,
			Points: int(z.Score),
			Rank:   i + 1,
		})
	}
	return out, nil
}
