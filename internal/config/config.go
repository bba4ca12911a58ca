// Package config defines the top-level configuration for the round trading
// client and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by WENEWS_* environment variables.
type Config struct {
	Hub      HubConfig      `toml:"hub"`
	Session  SessionConfig  `toml:"session"`
	Rooms    RoomsConfig    `toml:"rooms"`
	Postgres PostgresConfig `toml:"postgres"`
	Redis    RedisConfig    `toml:"redis"`
	S3       S3Config       `toml:"s3"`
	Archive  ArchiveConfig  `toml:"archive"`
	Server   ServerConfig   `toml:"server"`
	Notify   NotifyConfig   `toml:"notify"`
	Mode     string         `toml:"mode"`
	LogLevel string         `toml:"log_level"`
}

// HubConfig holds the upstream game hub endpoints, request-signing
// credentials, and reconnect tuning for the push channel.
type HubConfig struct {
	WsURL            string   `toml:"ws_url"`
	ApiURL           string   `toml:"api_url"`
	ApiKey           string   `toml:"api_key"`
	ApiSecret        string   `toml:"api_secret"`
	ReconnectRetries int      `toml:"reconnect_retries"`
	ReconnectDelay   duration `toml:"reconnect_delay"`
	HandshakeTimeout duration `toml:"handshake_timeout"`
}

// SessionConfig holds the user session credential sources. Token takes
// precedence; otherwise the sealed token file is opened with the password.
type SessionConfig struct {
	Token      string   `toml:"token"`
	SealedPath string   `toml:"sealed_path"`
	Password   string   `toml:"password"`
	CacheTTL   duration `toml:"cache_ttl"`
}

// RoomsConfig lists the game categories to subscribe to on connect.
type RoomsConfig struct {
	Autojoin []string `toml:"autojoin"`
}

// PostgresConfig holds PostgreSQL connection parameters for the local
// receipt journal.
type PostgresConfig struct {
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// RedisConfig holds Redis connection parameters. Redis is optional; when
// Addr is empty the session and round caches fall back to in-process state.
type RedisConfig struct {
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// S3Config holds S3-compatible object storage parameters for receipt
// archives.
type S3Config struct {
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// ArchiveConfig controls the receipt archive job.
type ArchiveConfig struct {
	RetentionDays int  `toml:"retention_days"`
	DeleteAfter   bool `toml:"delete_after"`
}

// duration is a wrapper around time.Duration that supports TOML string decoding
// (e.g. "5m", "30s").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "5m" or "30s".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// ServerConfig holds local HTTP API parameters.
type ServerConfig struct {
	Enabled     bool     `toml:"enabled"`
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
	APIKey      string   `toml:"api_key"`
}

// NotifyConfig holds notification channel credentials.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
}

// Defaults returns a Config populated with reasonable default values.
// These match the values in config.example.toml.
func Defaults() Config {
	return Config{
		Hub: HubConfig{
			WsURL:            "wss://hub.wenews.example.com/game",
			ApiURL:           "https://hub.wenews.example.com",
			ReconnectRetries: 5,
			ReconnectDelay:   duration{2 * time.Second},
			HandshakeTimeout: duration{15 * time.Second},
		},
		Session: SessionConfig{
			SealedPath: "session.sealed",
			CacheTTL:   duration{12 * time.Hour},
		},
		Rooms: RoomsConfig{
			Autojoin: []string{"color", "number"},
		},
		Postgres: PostgresConfig{
			Host:          "localhost",
			Port:          5432,
			Database:      "wenews",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Addr:       "",
			DB:         0,
			PoolSize:   10,
			MaxRetries: 3,
			TLSEnabled: false,
		},
		S3: S3Config{
			Endpoint:       "http://localhost:9000",
			Region:         "us-east-1",
			Bucket:         "wenews-receipts",
			UseSSL:         false,
			ForcePathStyle: true,
		},
		Archive: ArchiveConfig{
			RetentionDays: 90,
			DeleteAfter:   false,
		},
		Server: ServerConfig{
			Enabled:     true,
			Port:        8000,
			CORSOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
		},
		Notify: NotifyConfig{
			Events: []string{"round_finalized", "submission_accepted", "submission_rejected", "connection_lost"},
		},
		Mode:     "live",
		LogLevel: "info",
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"live":    true,
	"archive": true,
	"full":    true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// validCategories enumerates the room names that can be autojoined.
var validCategories = map[string]bool{
	"color":  true,
	"number": true,
}

// Validate checks Config for obviously invalid or missing values and returns a
// combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	// Mode
	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: live, archive, full)", c.Mode))
	}

	// LogLevel
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Hub endpoints
	needsHub := c.Mode == "live" || c.Mode == "full"
	if needsHub {
		if c.Hub.WsURL == "" {
			errs = append(errs, "hub: ws_url must not be empty")
		}
		if c.Hub.ApiURL == "" {
			errs = append(errs, "hub: api_url must not be empty")
		}
		if c.Hub.ReconnectRetries < 1 {
			errs = append(errs, "hub: reconnect_retries must be >= 1")
		}
		if c.Hub.ReconnectDelay.Duration <= 0 {
			errs = append(errs, "hub: reconnect_delay must be positive")
		}
	}

	// Request signing: key and secret must be set together, or both empty.
	hk := c.Hub.ApiKey != ""
	hs := c.Hub.ApiSecret != ""
	if hk != hs {
		errs = append(errs, "hub: api_key and api_secret must both be set together")
	}

	// Rooms
	for _, room := range c.Rooms.Autojoin {
		if !validCategories[strings.ToLower(room)] {
			errs = append(errs, fmt.Sprintf("rooms: unknown category %q (valid: color, number)", room))
		}
	}

	// Postgres
	if strings.TrimSpace(c.Postgres.DSN) == "" {
		if c.Postgres.Host == "" {
			errs = append(errs, "postgres: host must not be empty (or set postgres.dsn)")
		}
		if c.Postgres.Port <= 0 || c.Postgres.Port > 65535 {
			errs = append(errs, fmt.Sprintf("postgres: port must be 1-65535, got %d", c.Postgres.Port))
		}
		if c.Postgres.Database == "" {
			errs = append(errs, "postgres: database must not be empty")
		}
	}
	if c.Postgres.PoolMaxConns < 1 {
		errs = append(errs, "postgres: pool_max_conns must be >= 1")
	}
	if c.Postgres.PoolMinConns < 0 {
		errs = append(errs, "postgres: pool_min_conns must be >= 0")
	}
	if c.Postgres.PoolMinConns > c.Postgres.PoolMaxConns {
		errs = append(errs, "postgres: pool_min_conns must not exceed pool_max_conns")
	}

	// S3 is required only when the archive job runs.
	if c.Mode == "archive" || c.Mode == "full" {
		if c.S3.Bucket == "" {
			errs = append(errs, "s3: bucket must not be empty for mode "+c.Mode)
		}
		if c.S3.Region == "" {
			errs = append(errs, "s3: region must not be empty for mode "+c.Mode)
		}
		if c.Archive.RetentionDays < 1 {
			errs = append(errs, "archive: retention_days must be >= 1")
		}
	}

	// Server
	if c.Server.Enabled {
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
		}
	}

	// Telegram fields must be set together.
	tt := c.Notify.TelegramToken != ""
	tc := c.Notify.TelegramChatID != ""
	if tt != tc {
		errs = append(errs, "notify: telegram_token and telegram_chat_id must both be set together")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}
