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
// built-in defaults, applies ALPACABOT_* environment variable overrides, and
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

// applyEnvOverrides reads well-known ALPACABOT_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e. not
// empty). This lets operators inject secrets at deploy time without touching
// the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Alpaca ──
	setStr(&cfg.Alpaca.ApiKey, "ALPACABOT_ALPACA_API_KEY")
	setStr(&cfg.Alpaca.ApiSecret, "ALPACABOT_ALPACA_API_SECRET")
	setStr(&cfg.Alpaca.BaseURL, "ALPACABOT_ALPACA_BASE_URL")
	setStr(&cfg.Alpaca.StreamURL, "ALPACABOT_ALPACA_STREAM_URL")

	// ── Database ──
	setStr(&cfg.Database.DSN, "ALPACABOT_DATABASE_DSN")
	setStr(&cfg.Database.DSN, "ALPACABOT_DATABASE_URL") // compatibility alias
	setStr(&cfg.Database.Host, "ALPACABOT_DATABASE_HOST")
	setInt(&cfg.Database.Port, "ALPACABOT_DATABASE_PORT")
	setStr(&cfg.Database.Database, "ALPACABOT_DATABASE_DATABASE")
	setStr(&cfg.Database.User, "ALPACABOT_DATABASE_USER")
	setStr(&cfg.Database.Password, "ALPACABOT_DATABASE_PASSWORD")
	setStr(&cfg.Database.SSLMode, "ALPACABOT_DATABASE_SSLMODE")
	setInt(&cfg.Database.PoolMaxConns, "ALPACABOT_DATABASE_POOL_MAX_CONNS")
	setInt(&cfg.Database.PoolMinConns, "ALPACABOT_DATABASE_POOL_MIN_CONNS")
	setBool(&cfg.Database.RunMigrations, "ALPACABOT_DATABASE_RUN_MIGRATIONS")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "ALPACABOT_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "ALPACABOT_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "ALPACABOT_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "ALPACABOT_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "ALPACABOT_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "ALPACABOT_REDIS_TLS_ENABLED")
	setDuration(&cfg.Redis.BarCacheTTL, "ALPACABOT_REDIS_BAR_CACHE_TTL")

	// ── S3 ──
	setStr(&cfg.S3.Endpoint, "ALPACABOT_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "ALPACABOT_S3_REGION")
	setStr(&cfg.S3.Bucket, "ALPACABOT_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "ALPACABOT_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "ALPACABOT_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "ALPACABOT_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "ALPACABOT_S3_FORCE_PATH_STYLE")

	// ── Strategy ──
	setStr(&cfg.Strategy.Name, "ALPACABOT_STRATEGY_NAME")
	setInt(&cfg.Strategy.Sniper.BarWindow, "ALPACABOT_STRATEGY_SNIPER_BAR_WINDOW")
	setInt(&cfg.Strategy.Sniper.RSIPeriod, "ALPACABOT_STRATEGY_SNIPER_RSI_PERIOD")
	setFloat64(&cfg.Strategy.Sniper.RSIThreshold, "ALPACABOT_STRATEGY_SNIPER_RSI_THRESHOLD")
	setInt(&cfg.Strategy.Sniper.ATRPeriod, "ALPACABOT_STRATEGY_SNIPER_ATR_PERIOD")

	// ── Portfolio ──
	setInt(&cfg.Portfolio.MaxPositions, "ALPACABOT_PORTFOLIO_MAX_POSITIONS")

	// ── Scheduler ──
	setStr(&cfg.Scheduler.OpenTime, "ALPACABOT_SCHEDULER_OPEN_TIME")
	setStr(&cfg.Scheduler.Timezone, "ALPACABOT_SCHEDULER_TIMEZONE")

	// ── Archive ──
	setBool(&cfg.Archive.Enabled, "ALPACABOT_ARCHIVE_ENABLED")
	setStr(&cfg.Archive.Cron, "ALPACABOT_ARCHIVE_CRON")
	setInt(&cfg.Archive.RetentionDays, "ALPACABOT_ARCHIVE_RETENTION_DAYS")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "ALPACABOT_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "ALPACABOT_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "ALPACABOT_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "ALPACABOT_NOTIFY_EVENTS")

	// ── Top-level ──
	setStr(&cfg.Mode, "ALPACABOT_MODE")
	setStr(&cfg.LogLevel, "ALPACABOT_LOG_LEVEL")
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

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
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
