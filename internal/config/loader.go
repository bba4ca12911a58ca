package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies WENEWS_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known WENEWS_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e. not
// empty). This lets operators inject secrets at deploy time without touching
// the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Hub ──
	setStr(&cfg.Hub.WsURL, "WENEWS_HUB_WS_URL")
	setStr(&cfg.Hub.ApiURL, "WENEWS_HUB_API_URL")
	setStr(&cfg.Hub.ApiKey, "WENEWS_HUB_API_KEY")
	setStr(&cfg.Hub.ApiSecret, "WENEWS_HUB_API_SECRET")
	setInt(&cfg.Hub.ReconnectRetries, "WENEWS_HUB_RECONNECT_RETRIES")
	setDuration(&cfg.Hub.ReconnectDelay, "WENEWS_HUB_RECONNECT_DELAY")
	setDuration(&cfg.Hub.HandshakeTimeout, "WENEWS_HUB_HANDSHAKE_TIMEOUT")

	// ── Session ──
	setStr(&cfg.Session.Token, "WENEWS_SESSION_TOKEN")
	setStr(&cfg.Session.SealedPath, "WENEWS_SESSION_SEALED_PATH")
	setStr(&cfg.Session.Password, "WENEWS_SESSION_PASSWORD")
	setDuration(&cfg.Session.CacheTTL, "WENEWS_SESSION_CACHE_TTL")

	// ── Rooms ──
	setStringSlice(&cfg.Rooms.Autojoin, "WENEWS_ROOMS_AUTOJOIN")

	// ── Postgres ──
	setStr(&cfg.Postgres.DSN, "WENEWS_POSTGRES_DSN")
	setStr(&cfg.Postgres.Host, "WENEWS_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "WENEWS_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "WENEWS_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "WENEWS_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "WENEWS_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "WENEWS_POSTGRES_SSLMODE")
	setInt(&cfg.Postgres.PoolMaxConns, "WENEWS_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "WENEWS_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "WENEWS_POSTGRES_RUN_MIGRATIONS")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "WENEWS_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "WENEWS_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "WENEWS_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "WENEWS_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "WENEWS_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "WENEWS_REDIS_TLS_ENABLED")

	// ── S3 ──
	setStr(&cfg.S3.Endpoint, "WENEWS_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "WENEWS_S3_REGION")
	setStr(&cfg.S3.Bucket, "WENEWS_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "WENEWS_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "WENEWS_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "WENEWS_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "WENEWS_S3_FORCE_PATH_STYLE")

	// ── Archive ──
	setInt(&cfg.Archive.RetentionDays, "WENEWS_ARCHIVE_RETENTION_DAYS")
	setBool(&cfg.Archive.DeleteAfter, "WENEWS_ARCHIVE_DELETE_AFTER")

	// ── Server ──
	setBool(&cfg.Server.Enabled, "WENEWS_SERVER_ENABLED")
	setInt(&cfg.Server.Port, "WENEWS_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "WENEWS_SERVER_CORS_ORIGINS")
	setStr(&cfg.Server.APIKey, "WENEWS_SERVER_API_KEY")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "WENEWS_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "WENEWS_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "WENEWS_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "WENEWS_NOTIFY_EVENTS")

	// ── Top-level ──
	setStr(&cfg.Mode, "WENEWS_MODE")
	setStr(&cfg.LogLevel, "WENEWS_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
