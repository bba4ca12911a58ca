package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/IOS2004/we-news-sub000/internal/domain"
)

// credentialKey is where the current session token lives.
const credentialKey = "session:token"

// CredentialCache implements domain.CredentialCache on Redis. The token is
// stored with a TTL so an expired session simply vanishes.
type CredentialCache struct {
	client *Client
}

// NewCredentialCache creates a CredentialCache.
func NewCredentialCache(client *Client) *CredentialCache {
	return &CredentialCache{client: client}
}

// Token returns the cached session token, or domain.ErrNotFound when no
// session is stored.
func (c *CredentialCache) Token(ctx context.Context) (string, error) {
	token, err := c.client.Underlying().Get(ctx, credentialKey).Result()
	if errors.Is(err, redis.Nil) {
		return "", domain.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("redis: get session token: %w", err)
	}
	return token, nil
}

// SetToken stores the session token. A zero ttl stores it without expiry.
func (c *CredentialCache) SetToken(ctx context.Context, token string, ttl time.Duration) error {
	if err := c.client.Underlying().Set(ctx, credentialKey, token, ttl).Err(); err != nil {
		return fmt.Errorf("redis: set session token: %w", err)
	}
	return nil
}

// Clear removes the stored session token.
func (c *CredentialCache) Clear(ctx context.Context) error {
	if err := c.client.Underlying().Del(ctx, credentialKey).Err(); err != nil {
		return fmt.Errorf("redis: clear session token: %w", err)
	}
	return nil
}
