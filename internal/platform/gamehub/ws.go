// Package gamehub is the client for the game authority: the persistent push
// channel that delivers round lifecycle events, the room subscription
// protocol on top of it, and the REST boundary for submitting stakes and
// reading the wallet balance.
package gamehub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"

	"github.com/IOS2004/we-news-sub000/internal/domain"
)

const (
	// writeWait is the time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// pongWait is the time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// pingPeriod sends pings to the peer at this interval. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// defaultRetryDelay is the fixed delay between reconnection attempts.
	defaultRetryDelay = 2 * time.Second

	// defaultMaxAttempts is the reconnection attempt ceiling. Exceeding it
	// forces a full disconnect; the connection never retries forever.
	defaultMaxAttempts = 5

	// defaultHandshakeTimeout bounds the websocket dial.
	defaultHandshakeTimeout = 15 * time.Second
)

// Status describes the connection lifecycle as observed by subscribers.
type Status string

const (
	StatusConnected    Status = "connected"
	StatusReconnecting Status = "reconnecting"
	StatusDisconnected Status = "disconnected"
	StatusAuthRejected Status = "auth_rejected"
	StatusGaveUp       Status = "gave_up"
)

// StatusHandler observes connection status changes.
type StatusHandler func(Status)

// errTornDown marks a handshake abandoned because Disconnect ran while the
// dial was in flight.
var errTornDown = errors.New("gamehub: connection torn down")

// WireConn is the subset of *websocket.Conn the connection manager uses.
// Tests substitute a scripted implementation.
type WireConn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	WriteControl(messageType int, data []byte, deadline time.Time) error
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	SetPongHandler(h func(appData string) error)
	Close() error
}

// Dialer opens one websocket connection. The returned *http.Response is
// consulted for the handshake status code on failure.
type Dialer func(ctx context.Context, url string, header http.Header) (WireConn, *http.Response, error)

// ConnConfig holds the tunables of the channel connection.
type ConnConfig struct {
	// URL is the websocket endpoint of the push channel.
	URL string

	// MaxAttempts is the reconnection attempt ceiling. Zero means the default.
	MaxAttempts int

	// RetryDelay is the fixed inter-attempt delay. Zero means the default.
	RetryDelay time.Duration

	// HandshakeTimeout bounds each dial. Zero means the default.
	HandshakeTimeout time.Duration
}

// Conn owns the single logical push-channel connection: handshake,
// reconnection policy, and teardown. Inbound frames are handed to the
// Dispatcher; outbound intents go through SendIntent.
//
// A missing session credential degrades to an unauthenticated connection
// rather than failing the handshake. An authentication rejection is never
// retried.
type Conn struct {
	cfg        ConnConfig
	creds      domain.CredentialProvider
	dispatcher *Dispatcher
	dial       Dialer
	clock      clockwork.Clock
	logger     *slog.Logger

	mu         sync.Mutex
	ws         WireConn
	connected  bool
	connecting bool
	attempts   int
	done       chan struct{} // closed on teardown, abandons pending retries

	writeMu sync.Mutex

	handlerMu sync.Mutex
	statusSub []StatusHandler
	connSub   []func()
}

// NewConn creates a channel connection manager. creds may be nil for a
// client with no stored session.
func NewConn(cfg ConnConfig, creds domain.CredentialProvider, d *Dispatcher, logger *slog.Logger) *Conn {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaultMaxAttempts
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = defaultRetryDelay
	}
	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = defaultHandshakeTimeout
	}
	return &Conn{
		cfg:        cfg,
		creds:      creds,
		dispatcher: d,
		dial:       gorillaDial,
		clock:      clockwork.NewRealClock(),
		logger:     logger.With(slog.String("component", "channel")),
		done:       make(chan struct{}),
	}
}

// WithDialer replaces the websocket dialer. Used by tests.
func (c *Conn) WithDialer(d Dialer) *Conn {
	c.dial = d
	return c
}

// WithClock replaces the clock used for retry pacing and ping intervals.
// Used by tests.
func (c *Conn) WithClock(clk clockwork.Clock) *Conn {
	c.clock = clk
	return c
}

// OnStatus registers an observer for connection status changes.
func (c *Conn) OnStatus(h StatusHandler) {
	c.handlerMu.Lock()
	defer c.handlerMu.Unlock()
	c.statusSub = append(c.statusSub, h)
}

// OnConnected registers a hook that runs after every successful handshake,
// including reconnects. The room manager uses this to re-issue join intents.
func (c *Conn) OnConnected(h func()) {
	c.handlerMu.Lock()
	defer c.handlerMu.Unlock()
	c.connSub = append(c.connSub, h)
}

// IsConnected reports whether the channel is currently established.
func (c *Conn) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// Connect establishes the logical connection if none is active or in
// progress. Concurrent calls are idempotent: a second caller returns
// immediately without opening a duplicate connection.
//
// Transport failures on the handshake are retried with the fixed delay up to
// the attempt ceiling; exhausting it surfaces a terminal connectivity status
// and returns the last error. An authentication rejection is returned
// immediately, never retried.
func (c *Conn) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.connected || c.connecting {
		c.mu.Unlock()
		return nil
	}
	c.connecting = true
	done := c.done
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.connecting = false
		c.mu.Unlock()
	}()

	var lastErr error
	for attempt := 1; attempt <= c.cfg.MaxAttempts; attempt++ {
		err := c.establish(ctx, done)
		if err == nil || errors.Is(err, errTornDown) {
			return nil
		}
		if errors.Is(err, domain.ErrAuthRejected) {
			return err
		}
		lastErr = err
		if attempt == c.cfg.MaxAttempts {
			break
		}
		c.logger.Warn("connect attempt failed",
			slog.Int("attempt", attempt),
			slog.Int("max_attempts", c.cfg.MaxAttempts),
			slog.String("error", err.Error()),
		)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-done:
			return nil
		case <-c.clock.After(c.cfg.RetryDelay):
		}
	}

	c.logger.Error("connect attempts exhausted",
		slog.Int("attempts", c.cfg.MaxAttempts),
		slog.String("error", domain.ErrConnectivity.Error()),
	)
	c.emitStatus(StatusGaveUp)
	return fmt.Errorf("gamehub: %d connect attempts failed: %w", c.cfg.MaxAttempts, lastErr)
}

// Disconnect tears down the connection, abandons any pending reconnection
// attempts, and resets the attempt counter. Fire-and-forget: it does not
// wait for in-flight goroutines to observe the teardown.
func (c *Conn) Disconnect() {
	c.teardown()
	c.emitStatus(StatusDisconnected)
}

// SendIntent writes one outbound intent frame. It returns ErrNotConnected
// when no connection is established.
func (c *Conn) SendIntent(event string, data any) error {
	c.mu.Lock()
	ws := c.ws
	c.mu.Unlock()
	if ws == nil {
		return domain.ErrNotConnected
	}

	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("gamehub: marshal intent %s: %w", event, err)
	}
	buf, err := json.Marshal(frame{Event: event, Data: payload})
	if err != nil {
		return fmt.Errorf("gamehub: marshal frame %s: %w", event, err)
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	ws.SetWriteDeadline(time.Now().Add(writeWait))
	if err := ws.WriteMessage(websocket.TextMessage, buf); err != nil {
		return fmt.Errorf("gamehub: send intent %s: %w", event, err)
	}
	return nil
}

// --------------------------------------------------------------------------
// Internal methods
// --------------------------------------------------------------------------

// establish performs one handshake. It attaches the bearer credential when
// present, classifies auth rejections, and on success starts the read and
// ping loops and notifies connect hooks. done identifies the connection
// generation the caller belongs to; if teardown swapped it while the dial was
// in flight, the new socket is closed instead of installed.
func (c *Conn) establish(ctx context.Context, done chan struct{}) error {
	header := http.Header{}
	if c.creds != nil {
		token, err := c.creds.Token(ctx)
		if err != nil {
			return fmt.Errorf("gamehub: resolve credential: %w", err)
		}
		if token != "" {
			header.Set("Authorization", "Bearer "+token)
		}
	}
	if header.Get("Authorization") == "" {
		c.logger.Warn("connecting without session credential")
	}

	dialCtx, cancel := context.WithTimeout(ctx, c.cfg.HandshakeTimeout)
	defer cancel()

	ws, resp, err := c.dial(dialCtx, c.cfg.URL, header)
	if err != nil {
		if resp != nil && (resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden) {
			c.emitStatus(StatusAuthRejected)
			return fmt.Errorf("gamehub: handshake status %d: %w", resp.StatusCode, domain.ErrAuthRejected)
		}
		return fmt.Errorf("gamehub: connect: %w", err)
	}

	ws.SetReadDeadline(time.Now().Add(pongWait))
	ws.SetPongHandler(func(string) error {
		ws.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	c.mu.Lock()
	if done != c.done {
		c.mu.Unlock()
		ws.Close()
		return errTornDown
	}
	c.ws = ws
	c.connected = true
	c.attempts = 0
	c.mu.Unlock()

	go c.readLoop(ws, done)
	go c.pingLoop(ws, done)

	c.emitStatus(StatusConnected)
	c.handlerMu.Lock()
	hooks := append([]func(){}, c.connSub...)
	c.handlerMu.Unlock()
	for _, h := range hooks {
		h()
	}
	return nil
}

// readLoop pumps inbound frames into the dispatcher until the connection
// breaks, then hands off to the reconnection path.
func (c *Conn) readLoop(ws WireConn, done chan struct{}) {
	for {
		_, msg, err := ws.ReadMessage()
		if err != nil {
			select {
			case <-done:
				return // deliberate teardown
			default:
			}
			c.handleBrokenConn(ws, done)
			return
		}
		c.dispatcher.Dispatch(msg)
	}
}

// pingLoop keeps the connection alive with periodic pings.
func (c *Conn) pingLoop(ws WireConn, done chan struct{}) {
	ticker := c.clock.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.Chan():
			if err := ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}

// handleBrokenConn marks the connection down and starts the retry loop.
func (c *Conn) handleBrokenConn(ws WireConn, done chan struct{}) {
	ws.Close()

	c.mu.Lock()
	if c.ws == ws {
		c.ws = nil
		c.connected = false
	}
	c.mu.Unlock()

	c.emitStatus(StatusReconnecting)
	go c.retryLoop(done)
}

// retryLoop re-dials with a fixed delay until the handshake succeeds, the
// attempt ceiling is exceeded, the credential is rejected, or the connection
// is deliberately torn down. Exceeding the ceiling forces a full disconnect
// and surfaces a terminal connectivity status.
func (c *Conn) retryLoop(done chan struct{}) {
	for {
		c.mu.Lock()
		if c.attempts >= c.cfg.MaxAttempts {
			c.mu.Unlock()
			c.logger.Error("reconnect attempts exhausted",
				slog.Int("attempts", c.cfg.MaxAttempts),
				slog.String("error", domain.ErrConnectivity.Error()),
			)
			c.teardown()
			c.emitStatus(StatusGaveUp)
			return
		}
		c.attempts++
		attempt := c.attempts
		c.mu.Unlock()

		select {
		case <-done:
			return
		case <-c.clock.After(c.cfg.RetryDelay):
		}

		err := c.establish(context.Background(), done)
		if err == nil || errors.Is(err, errTornDown) {
			return
		}
		if errors.Is(err, domain.ErrAuthRejected) {
			// Not a transient failure; give up immediately.
			c.teardown()
			return
		}
		c.logger.Warn("reconnect attempt failed",
			slog.Int("attempt", attempt),
			slog.Int("max_attempts", c.cfg.MaxAttempts),
			slog.String("error", err.Error()),
		)
	}
}

// teardown closes the transport, resets the attempt counter, and swaps the
// done channel so every goroutine tied to the old one stops.
func (c *Conn) teardown() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.ws != nil {
		c.writeMu.Lock()
		_ = c.ws.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(writeWait),
		)
		c.writeMu.Unlock()
		_ = c.ws.Close()
		c.ws = nil
	}
	c.connected = false
	c.attempts = 0

	close(c.done)
	c.done = make(chan struct{})
}

func (c *Conn) emitStatus(s Status) {
	c.handlerMu.Lock()
	subs := append([]StatusHandler{}, c.statusSub...)
	c.handlerMu.Unlock()
	for _, h := range subs {
		h(s)
	}
}

// gorillaDial is the production Dialer backed by gorilla/websocket.
func gorillaDial(ctx context.Context, url string, header http.Header) (WireConn, *http.Response, error) {
	dialer := websocket.Dialer{}
	conn, resp, err := dialer.DialContext(ctx, url, header)
	if err != nil {
		return nil, resp, err
	}
	return conn, resp, nil
}
