// Package session resolves and persists the opaque credential attached to
// the push-channel handshake.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/IOS2004/we-news-sub000/internal/crypto"
	"github.com/IOS2004/we-news-sub000/internal/domain"
)

// Config holds the credential sources, in resolution order.
type Config struct {
	// Token is an explicitly configured session token. Highest priority.
	Token string

	// SealedPath is the path to a sealed token file written by Store.
	SealedPath string

	// Password unseals the file at SealedPath.
	Password string

	// CacheTTL bounds how long a token stays in the credential cache.
	CacheTTL time.Duration
}

// Provider implements domain.CredentialProvider. Resolution order: explicit
// config token, credential cache, sealed token file. A fully empty result is
// not an error: the channel degrades to an unauthenticated connection.
type Provider struct {
	cfg    Config
	cache  domain.CredentialCache // optional
	logger *slog.Logger
}

// NewProvider creates a Provider. cache may be nil.
func NewProvider(cfg Config, cache domain.CredentialCache, logger *slog.Logger) *Provider {
	return &Provider{
		cfg:    cfg,
		cache:  cache,
		logger: logger.With(slog.String("component", "session")),
	}
}

// Token resolves the current session token. Empty with a nil error means no
// session is stored.
func (p *Provider) Token(ctx context.Context) (string, error) {
	if p.cfg.Token != "" {
		return p.cfg.Token, nil
	}

	if p.cache != nil {
		token, err := p.cache.Token(ctx)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return "", fmt.Errorf("session: read cached token: %w", err)
		}
		if token != "" {
			return token, nil
		}
	}

	if p.cfg.SealedPath != "" && p.cfg.Password != "" {
		token, err := crypto.OpenTokenFromFile(p.cfg.SealedPath, p.cfg.Password)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return "", nil
			}
			return "", fmt.Errorf("session: unseal token: %w", err)
		}
		// Warm the cache so the next resolution skips the unseal.
		if p.cache != nil {
			if err := p.cache.SetToken(ctx, token, p.cfg.CacheTTL); err != nil {
				p.logger.Warn("cache token failed", slog.String("error", err.Error()))
			}
		}
		return token, nil
	}

	return "", nil
}

// Store persists a fresh token: sealed to disk when a sealed path is
// configured, and into the credential cache when one is attached.
func (p *Provider) Store(ctx context.Context, token string) error {
	if token == "" {
		return errors.New("session: refusing to store empty token")
	}

	if p.cfg.SealedPath != "" && p.cfg.Password != "" {
		if err := crypto.SealTokenToFile(p.cfg.SealedPath, token, p.cfg.Password); err != nil {
			return fmt.Errorf("session: seal token: %w", err)
		}
	}
	if p.cache != nil {
		if err := p.cache.SetToken(ctx, token, p.cfg.CacheTTL); err != nil {
			return fmt.Errorf("session: cache token: %w", err)
		}
	}
	return nil
}

// Clear forgets the stored session everywhere.
func (p *Provider) Clear(ctx context.Context) error {
	if p.cfg.SealedPath != "" {
		if err := os.Remove(p.cfg.SealedPath); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("session: remove sealed token: %w", err)
		}
	}
	if p.cache != nil {
		if err := p.cache.Clear(ctx); err != nil {
			return fmt.Errorf("session: clear cached token: %w", err)
		}
	}
	return nil
}
