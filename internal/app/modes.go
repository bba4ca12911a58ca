package app

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/IOS2004/we-news-sub000/internal/cart"
	"github.com/IOS2004/we-news-sub000/internal/crypto"
	"github.com/IOS2004/we-news-sub000/internal/domain"
	"github.com/IOS2004/we-news-sub000/internal/notify"
	"github.com/IOS2004/we-news-sub000/internal/platform/gamehub"
	"github.com/IOS2004/we-news-sub000/internal/projection"
	"github.com/IOS2004/we-news-sub000/internal/server"
	"github.com/IOS2004/we-news-sub000/internal/server/handler"
)

// archiveInterval is how often the full mode re-runs the receipt archive job.
const archiveInterval = 24 * time.Hour

// LiveMode connects to the game hub, mirrors round state, and serves the
// local UI API until the context is cancelled.
func (a *App) LiveMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting live mode")

	g, ctx := errgroup.WithContext(ctx)
	if err := a.runLive(ctx, g, deps); err != nil {
		return err
	}
	return g.Wait()
}

// ArchiveMode runs the receipt archive job once and exits.
func (a *App) ArchiveMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting archive mode")
	return a.runArchive(ctx, deps)
}

// FullMode runs live mode plus a periodic receipt archive job.
func (a *App) FullMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting full mode")

	g, ctx := errgroup.WithContext(ctx)
	if err := a.runLive(ctx, g, deps); err != nil {
		return err
	}

	g.Go(func() error {
		ticker := time.NewTicker(archiveInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
				if err := a.runArchive(ctx, deps); err != nil {
					a.logger.ErrorContext(ctx, "archive job failed",
						slog.String("error", err.Error()),
					)
				}
			}
		}
	})

	return g.Wait()
}

// runLive wires the channel, rooms, projection, cart, and local API into the
// errgroup. It returns once everything is started; the group owns shutdown.
func (a *App) runLive(ctx context.Context, g *errgroup.Group, deps *Dependencies) error {
	// Request signing for the submission gateway, when credentials exist.
	var auth *crypto.RequestAuth
	if a.cfg.Hub.ApiKey != "" && a.cfg.Hub.ApiSecret != "" {
		auth = &crypto.RequestAuth{Key: a.cfg.Hub.ApiKey, Secret: a.cfg.Hub.ApiSecret}
	}
	rest := gamehub.NewRESTClient(a.cfg.Hub.ApiURL, auth)

	// Event dispatch and the channel connection.
	dispatcher := gamehub.NewDispatcher(a.logger)
	conn := gamehub.NewConn(gamehub.ConnConfig{
		URL:              a.cfg.Hub.WsURL,
		MaxAttempts:      a.cfg.Hub.ReconnectRetries,
		RetryDelay:       a.cfg.Hub.ReconnectDelay.Duration,
		HandshakeTimeout: a.cfg.Hub.HandshakeTimeout.Duration,
	}, deps.Session, dispatcher, a.logger)

	// Rooms rejoin automatically after every successful (re)connect.
	rooms := gamehub.NewRoomManager(conn, a.logger)
	conn.OnConnected(rooms.Resubscribe)

	// Round projection, warmed from the cache when one is configured.
	proj := projection.New(a.logger)
	if deps.RoundCache != nil {
		cache := deps.RoundCache
		proj.OnChange(func(r domain.Round) {
			if err := cache.SetRound(ctx, r); err != nil {
				a.logger.Warn("round cache write failed",
					slog.String("round", r.ID),
					slog.String("error", err.Error()),
				)
			}
		})
		for _, c := range domain.Categories() {
			if r, err := cache.Round(ctx, c); err == nil {
				proj.Seed(r)
			}
		}
	}
	proj.Bind(dispatcher)

	// Settlement notifications.
	dispatcher.OnRoundFinalized(func(r domain.Round) {
		if r.Status != domain.RoundStatusSettled {
			return
		}
		_ = deps.Notifier.Notify(ctx, notify.EventRoundFinalized,
			"Round settled",
			fmt.Sprintf("Round %s (%s) settled on %s", r.ID, r.Category, r.WinningOption),
		)
	})

	// Channel status: track for the health endpoint, alert on give-up.
	var channelStatus atomic.Value
	channelStatus.Store(string(gamehub.StatusDisconnected))
	conn.OnStatus(func(s gamehub.Status) {
		channelStatus.Store(string(s))
		if s == gamehub.StatusGaveUp {
			_ = deps.Notifier.Notify(ctx, notify.EventConnectionLost,
				"Connection lost",
				"Gave up reconnecting to the game hub; restart the client to resume.",
			)
		}
	})

	// Cart engine.
	engine := cart.NewEngine(proj, rest, rest, a.logger).WithNotifier(deps.Notifier)
	if deps.ReceiptStore != nil {
		engine.WithReceiptStore(deps.ReceiptStore)
	}

	// Connect and join the configured rooms. A down channel at join time is
	// fine; the room manager records the room and rejoins on connect.
	if err := conn.Connect(ctx); err != nil {
		return fmt.Errorf("app: connect channel: %w", err)
	}
	for _, room := range a.cfg.Rooms.Autojoin {
		if err := rooms.JoinRoom(domain.GameCategory(room)); err != nil {
			return fmt.Errorf("app: join room %s: %w", room, err)
		}
	}
	g.Go(func() error {
		<-ctx.Done()
		conn.Disconnect()
		return ctx.Err()
	})

	// Local UI API.
	if a.cfg.Server.Enabled {
		srv := server.NewServer(server.Config{
			Port:        a.cfg.Server.Port,
			CORSOrigins: a.cfg.Server.CORSOrigins,
			APIKey:      a.cfg.Server.APIKey,
		}, server.Handlers{
			Health: handler.NewHealthHandler(func() string {
				return channelStatus.Load().(string)
			}, a.logger),
			Rounds: handler.NewRoundHandler(proj, a.logger),
			Cart:   handler.NewCartHandler(engine, a.logger),
			Wallet: handler.NewWalletHandler(rest, a.logger),
		}, a.logger)

		g.Go(srv.Start)
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	return nil
}

// runArchive exports receipts older than the retention window to blob
// storage, then optionally deletes them from the journal.
func (a *App) runArchive(ctx context.Context, deps *Dependencies) error {
	if deps.Archiver == nil {
		return fmt.Errorf("app: archive requires postgres and s3 to be configured")
	}

	cutoff := time.Now().UTC().AddDate(0, 0, -a.cfg.Archive.RetentionDays)
	key, count, err := deps.Archiver.ArchiveReceipts(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("app: archive receipts: %w", err)
	}
	if count == 0 {
		a.logger.InfoContext(ctx, "no receipts to archive",
			slog.Time("cutoff", cutoff),
		)
		return nil
	}

	a.logger.InfoContext(ctx, "receipts archived",
		slog.String("key", key),
		slog.Int("count", count),
		slog.Time("cutoff", cutoff),
	)

	if a.cfg.Archive.DeleteAfter && deps.receiptJournal != nil {
		deleted, err := deps.receiptJournal.DeleteBefore(ctx, cutoff)
		if err != nil {
			return fmt.Errorf("app: delete archived receipts: %w", err)
		}
		a.logger.InfoContext(ctx, "archived receipts deleted",
			slog.Int64("deleted", deleted),
		)
	}
	return nil
}
