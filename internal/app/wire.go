package app

import (
	"context"
	"fmt"
	"log/slog"

	s3blob "github.com/IOS2004/we-news-sub000/internal/blob/s3"
	"github.com/IOS2004/we-news-sub000/internal/cache/redis"
	"github.com/IOS2004/we-news-sub000/internal/config"
	"github.com/IOS2004/we-news-sub000/internal/domain"
	"github.com/IOS2004/we-news-sub000/internal/notify"
	"github.com/IOS2004/we-news-sub000/internal/session"
	"github.com/IOS2004/we-news-sub000/internal/store/postgres"
)

// Dependencies bundles every domain-level dependency that the application
// modes need to operate. It is constructed by Wire and torn down by the
// returned cleanup function.
type Dependencies struct {
	// Persistence
	ReceiptStore domain.ReceiptStore

	// Caches (nil when Redis is not configured)
	CredentialCache domain.CredentialCache
	RoundCache      domain.RoundCache

	// Blob storage
	BlobWriter domain.BlobWriter
	Archiver   domain.Archiver

	// Session credential resolution
	Session *session.Provider

	// Notifications
	Notifier *notify.Notifier

	// receiptJournal keeps the concrete store around for the archive
	// delete step, which is not part of the domain interface.
	receiptJournal *postgres.ReceiptStore
}

// needsPostgres returns true for modes that require the receipt journal.
func needsPostgres(mode string) bool {
	switch mode {
	case "live", "archive", "full":
		return true
	default:
		return false
	}
}

// needsS3 returns true for modes that require object storage.
func needsS3(mode string) bool {
	switch mode {
	case "archive", "full":
		return true
	default:
		return false
	}
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that should
// be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config) (*Dependencies, func(), error) {
	logger := slog.Default()

	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

	// --- PostgreSQL (receipt journal) ---
	if needsPostgres(cfg.Mode) {
		pgClient, err := postgres.New(ctx, postgres.ClientConfig{
			DSN:      cfg.Postgres.DSN,
			Host:     cfg.Postgres.Host,
			Port:     cfg.Postgres.Port,
			Database: cfg.Postgres.Database,
			User:     cfg.Postgres.User,
			Password: cfg.Postgres.Password,
			SSLMode:  cfg.Postgres.SSLMode,
			MaxConns: cfg.Postgres.PoolMaxConns,
			MinConns: cfg.Postgres.PoolMinConns,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres: %w", err)
		}
		closers = append(closers, pgClient.Close)

		if cfg.Postgres.RunMigrations {
			if err := pgClient.RunMigrations(ctx); err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
			}
		}

		journal := postgres.NewReceiptStore(pgClient.Pool())
		deps.ReceiptStore = journal
		deps.receiptJournal = journal
	}

	// --- Redis (optional; session and round caches) ---
	if cfg.Redis.Addr != "" {
		redisClient, err := redis.New(ctx, redis.ClientConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
			TLSEnabled: cfg.Redis.TLSEnabled,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: redis: %w", err)
		}
		closers = append(closers, func() { _ = redisClient.Close() })

		deps.CredentialCache = redis.NewCredentialCache(redisClient)
		deps.RoundCache = redis.NewRoundCache(redisClient, cfg.Session.CacheTTL.Duration)
	}

	// --- S3 blob storage (receipt archives) ---
	if needsS3(cfg.Mode) {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}
		closers = append(closers, func() { _ = s3Client.Close() })

		deps.BlobWriter = s3blob.NewWriter(s3Client)
		if deps.receiptJournal != nil {
			deps.Archiver = s3blob.NewReceiptArchiver(deps.BlobWriter, deps.receiptJournal)
		}
	}

	// --- Session credential provider ---
	deps.Session = session.NewProvider(session.Config{
		Token:      cfg.Session.Token,
		SealedPath: cfg.Session.SealedPath,
		Password:   cfg.Session.Password,
		CacheTTL:   cfg.Session.CacheTTL.Duration,
	}, deps.CredentialCache, logger)

	// --- Notifications ---
	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(
			cfg.Notify.TelegramToken,
			cfg.Notify.TelegramChatID,
		))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	deps.Notifier = notify.NewNotifier(senders, cfg.Notify.Events, logger)

	return deps, cleanup, nil
}
