// Package config defines the top-level configuration for the trading bot
// and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by ALPACABOT_* environment variables.
type Config struct {
	Alpaca    AlpacaConfig    `toml:"alpaca"`
	Database  DatabaseConfig  `toml:"database"`
	Redis     RedisConfig     `toml:"redis"`
	S3        S3Config        `toml:"s3"`
	Strategy  StrategyConfig  `toml:"strategy"`
	Portfolio PortfolioConfig `toml:"portfolio"`
	Scheduler SchedulerConfig `toml:"scheduler"`
	Archive   ArchiveConfig   `toml:"archive"`
	Notify    NotifyConfig    `toml:"notify"`
	Mode      string          `toml:"mode"`
	LogLevel  string          `toml:"log_level"`
}

// AlpacaConfig holds broker API endpoints and credentials.
type AlpacaConfig struct {
	ApiKey    string `toml:"api_key"`
	ApiSecret string `toml:"api_secret"`
	BaseURL   string `toml:"base_url"`
	StreamURL string `toml:"stream_url"`
}

// DatabaseConfig holds PostgreSQL connection parameters.
type DatabaseConfig struct {
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

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Addr        string   `toml:"addr"`
	Password    string   `toml:"password"`
	DB          int      `toml:"db"`
	PoolSize    int      `toml:"pool_size"`
	MaxRetries  int      `toml:"max_retries"`
	TLSEnabled  bool     `toml:"tls_enabled"`
	BarCacheTTL duration `toml:"bar_cache_ttl"`
}

// S3Config holds S3-compatible object storage parameters for the trade
// history archive.
type S3Config struct {
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// StrategyConfig selects and tunes the signal-generating strategy.
type StrategyConfig struct {
	Name   string       `toml:"name"`
	Sniper SniperConfig `toml:"sniper"`
}

// SniperConfig holds the sniper strategy's entry parameters.
type SniperConfig struct {
	BarWindow    int     `toml:"bar_window"`
	RSIPeriod    int     `toml:"rsi_period"`
	RSIThreshold float64 `toml:"rsi_threshold"`
	ATRPeriod    int     `toml:"atr_period"`
}

// PortfolioConfig holds position ledger limits.
type PortfolioConfig struct {
	MaxPositions int `toml:"max_positions"`
}

// SchedulerConfig sets when the daily evaluation cycle runs.
type SchedulerConfig struct {
	OpenTime string `toml:"open_time"`
	Timezone string `toml:"timezone"`
}

// ArchiveConfig controls the S3 trade-history archiver.
type ArchiveConfig struct {
	Enabled       bool   `toml:"enabled"`
	Cron          string `toml:"cron"`
	RetentionDays int    `toml:"retention_days"`
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
		Alpaca: AlpacaConfig{
			BaseURL:   "https://paper-api.alpaca.markets",
			StreamURL: "wss://paper-api.alpaca.markets/stream",
		},
		Database: DatabaseConfig{
			Host:          "localhost",
			Port:          5432,
			Database:      "alpacabot",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Addr:        "localhost:6379",
			DB:          0,
			PoolSize:    20,
			MaxRetries:  3,
			TLSEnabled:  false,
			BarCacheTTL: duration{15 * time.Minute},
		},
		S3: S3Config{
			Endpoint:       "http://localhost:9000",
			Region:         "us-east-1",
			Bucket:         "alpacabot-data",
			UseSSL:         false,
			ForcePathStyle: true,
		},
		Strategy: StrategyConfig{
			Name: "sniper",
			Sniper: SniperConfig{
				BarWindow:    30,
				RSIPeriod:    2,
				RSIThreshold: 10,
				ATRPeriod:    14,
			},
		},
		Portfolio: PortfolioConfig{
			MaxPositions: 5,
		},
		Scheduler: SchedulerConfig{
			OpenTime: "09:30",
			Timezone: "America/New_York",
		},
		Archive: ArchiveConfig{
			Enabled:       false,
			Cron:          "0 3 * * 6",
			RetentionDays: 90,
		},
		Notify: NotifyConfig{
			Events: []string{"order_submitted", "order_dead", "signal_rejected", "error"},
		},
		Mode:     "full",
		LogLevel: "info",
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"trade":   true,
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

// Validate checks Config for obviously invalid or missing values and returns a
// combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	// Mode
	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: trade, archive, full)", c.Mode))
	}

	// LogLevel
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Alpaca — credentials are required whenever we trade.
	needsBroker := c.Mode == "trade" || c.Mode == "full"
	if needsBroker {
		if c.Alpaca.ApiKey == "" {
			errs = append(errs, "alpaca: api_key is required for mode "+c.Mode)
		}
		if c.Alpaca.ApiSecret == "" {
			errs = append(errs, "alpaca: api_secret is required for mode "+c.Mode)
		}
	}
	if c.Alpaca.BaseURL == "" {
		errs = append(errs, "alpaca: base_url must not be empty")
	}

	// Database
	if strings.TrimSpace(c.Database.DSN) == "" {
		if c.Database.Host == "" {
			errs = append(errs, "database: host must not be empty (or set database.dsn)")
		}
		if c.Database.Port <= 0 || c.Database.Port > 65535 {
			errs = append(errs, fmt.Sprintf("database: port must be 1-65535, got %d", c.Database.Port))
		}
		if c.Database.Database == "" {
			errs = append(errs, "database: database must not be empty")
		}
	}
	if c.Database.PoolMaxConns < 1 {
		errs = append(errs, "database: pool_max_conns must be >= 1")
	}
	if c.Database.PoolMinConns < 0 {
		errs = append(errs, "database: pool_min_conns must be >= 0")
	}
	if c.Database.PoolMinConns > c.Database.PoolMaxConns {
		errs = append(errs, "database: pool_min_conns must not exceed pool_max_conns")
	}

	// Redis
	if c.Redis.Addr == "" {
		errs = append(errs, "redis: addr must not be empty")
	}
	if c.Redis.PoolSize < 1 {
		errs = append(errs, "redis: pool_size must be >= 1")
	}

	// S3 — only needed when the archiver runs.
	archiving := c.Mode == "archive" || (c.Mode == "full" && c.Archive.Enabled)
	if archiving {
		if c.S3.Endpoint == "" {
			errs = append(errs, "s3: endpoint must not be empty when archiving is enabled")
		}
		if c.S3.Bucket == "" {
			errs = append(errs, "s3: bucket must not be empty when archiving is enabled")
		}
	}

	// Strategy
	if c.Strategy.Name == "" {
		errs = append(errs, "strategy: name must not be empty")
	}
	if c.Strategy.Sniper.BarWindow < 1 {
		errs = append(errs, "strategy: sniper.bar_window must be >= 1")
	}
	if c.Strategy.Sniper.RSIPeriod < 1 {
		errs = append(errs, "strategy: sniper.rsi_period must be >= 1")
	}
	if c.Strategy.Sniper.RSIThreshold <= 0 || c.Strategy.Sniper.RSIThreshold >= 100 {
		errs = append(errs, fmt.Sprintf("strategy: sniper.rsi_threshold must be in (0, 100), got %v", c.Strategy.Sniper.RSIThreshold))
	}
	if c.Strategy.Sniper.ATRPeriod < 1 {
		errs = append(errs, "strategy: sniper.atr_period must be >= 1")
	}

	// Portfolio
	if c.Portfolio.MaxPositions < 1 {
		errs = append(errs, "portfolio: max_positions must be >= 1")
	}

	// Archive
	if c.Archive.Enabled {
		if c.Archive.Cron == "" {
			errs = append(errs, "archive: cron must not be empty when enabled")
		}
		if c.Archive.RetentionDays < 1 {
			errs = append(errs, "archive: retention_days must be >= 1 when enabled")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
