package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/IOS2004/we-news-sub000/internal/domain"
)

// roundKey returns the cache key for a category's last projected round.
func roundKey(category domain.GameCategory) string {
	return "round:last:" + string(category)
}

// RoundCache implements domain.RoundCache on Redis. It holds the last round
// the projection saw per category so a restarted client has something to
// display before the first push event. Advisory only.
type RoundCache struct {
	client *Client
	ttl    time.Duration
}

// NewRoundCache creates a RoundCache. A zero ttl caches without expiry.
func NewRoundCache(client *Client, ttl time.Duration) *RoundCache {
	return &RoundCache{client: client, ttl: ttl}
}

// SetRound stores the round under its category's key.
func (c *RoundCache) SetRound(ctx context.Context, r domain.Round) error {
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("redis: marshal round %s: %w", r.ID, err)
	}
	if err := c.client.Underlying().Set(ctx, roundKey(r.Category), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis: set round %s: %w", r.ID, err)
	}
	return nil
}

// Round returns the cached round for the category, or domain.ErrNotFound.
func (c *RoundCache) Round(ctx context.Context, category domain.GameCategory) (domain.Round, error) {
	data, err := c.client.Underlying().Get(ctx, roundKey(category)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.Round{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Round{}, fmt.Errorf("redis: get round for %s: %w", category, err)
	}

	var r domain.Round
	if err := json.Unmarshal(data, &r); err != nil {
		return domain.Round{}, fmt.Errorf("redis: unmarshal round for %s: %w", category, err)
	}
	return r, nil
}
