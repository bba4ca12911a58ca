package domain

import (
	"context"
	"time"
)

// CredentialProvider resolves the opaque session token attached to the
// channel handshake. An empty token with a nil error means connect
// unauthenticated.
type CredentialProvider interface {
	Token(ctx context.Context) (string, error)
}

// CredentialCache stores the session token with a TTL so a restarted client
// can resume its session. Implementations live in internal/cache/redis.
type CredentialCache interface {
	Token(ctx context.Context) (string, error)
	SetToken(ctx context.Context, token string, ttl time.Duration) error
	Clear(ctx context.Context) error
}

// RoundCache stores the last projected round per category. Advisory only:
// cached rounds are for display before the first push event arrives and never
// drive a state transition or a stake eligibility check.
type RoundCache interface {
	SetRound(ctx context.Context, r Round) error
	Round(ctx context.Context, category GameCategory) (Round, error)
}

// BalanceProvider reads the available wallet balance in whole currency units.
type BalanceProvider interface {
	Balance(ctx context.Context) (int64, error)
}
