package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func validTradeConfig() Config {
	cfg := Defaults()
	cfg.Alpaca.ApiKey = "key"
	cfg.Alpaca.ApiSecret = "secret"
	return cfg
}

func TestValidateAcceptsDefaultsWithCredentials(t *testing.T) {
	cfg := validTradeConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestValidateArchiveModeNeedsNoBrokerCredentials(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "archive"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestValidateFailures(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*Config)
		wantSub string
	}{
		{
			name:    "unknown mode",
			mutate:  func(c *Config) { c.Mode = "backtest" },
			wantSub: "unknown mode",
		},
		{
			name:    "unknown log level",
			mutate:  func(c *Config) { c.LogLevel = "verbose" },
			wantSub: "unknown log_level",
		},
		{
			name:    "trade mode without credentials",
			mutate:  func(c *Config) { c.Alpaca.ApiKey = "" },
			wantSub: "api_key is required",
		},
		{
			name:    "rsi threshold out of range",
			mutate:  func(c *Config) { c.Strategy.Sniper.RSIThreshold = 150 },
			wantSub: "rsi_threshold",
		},
		{
			name:    "zero max positions",
			mutate:  func(c *Config) { c.Portfolio.MaxPositions = 0 },
			wantSub: "max_positions",
		},
		{
			name: "pool bounds inverted",
			mutate: func(c *Config) {
				c.Database.PoolMinConns = 20
				c.Database.PoolMaxConns = 5
			},
			wantSub: "pool_min_conns must not exceed",
		},
		{
			name: "archiving without bucket",
			mutate: func(c *Config) {
				c.Archive.Enabled = true
				c.S3.Bucket = ""
			},
			wantSub: "s3: bucket",
		},
		{
			name: "archive enabled without cron",
			mutate: func(c *Config) {
				c.Archive.Enabled = true
				c.Archive.Cron = ""
			},
			wantSub: "archive: cron",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validTradeConfig()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("Validate passed, want error")
			}
			if !strings.Contains(err.Error(), tc.wantSub) {
				t.Fatalf("error %q does not mention %q", err, tc.wantSub)
			}
		})
	}
}

func TestValidateSkipsHostChecksWithDSN(t *testing.T) {
	cfg := validTradeConfig()
	cfg.Database.DSN = "postgres://user:pass@db:5432/alpacabot"
	cfg.Database.Host = ""
	cfg.Database.Port = 0
	cfg.Database.Database = ""
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate with DSN: %v", err)
	}
}

func TestLoadMergesFileOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	body := `
mode = "trade"
log_level = "debug"

[alpaca]
api_key = "file-key"
api_secret = "file-secret"

[redis]
bar_cache_ttl = "5m"

[strategy.sniper]
rsi_threshold = 15.0
`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Mode != "trade" || cfg.LogLevel != "debug" {
		t.Fatalf("top-level fields not loaded: mode=%q log_level=%q", cfg.Mode, cfg.LogLevel)
	}
	if cfg.Alpaca.ApiKey != "file-key" {
		t.Fatalf("api_key = %q, want file-key", cfg.Alpaca.ApiKey)
	}
	if cfg.Redis.BarCacheTTL.Duration != 5*time.Minute {
		t.Fatalf("bar_cache_ttl = %v, want 5m", cfg.Redis.BarCacheTTL.Duration)
	}
	if cfg.Strategy.Sniper.RSIThreshold != 15 {
		t.Fatalf("rsi_threshold = %v, want 15", cfg.Strategy.Sniper.RSIThreshold)
	}

	// Fields the file never mentions keep their defaults.
	if cfg.Database.Port != 5432 || cfg.Portfolio.MaxPositions != 5 {
		t.Fatalf("defaults lost: port=%d max_positions=%d", cfg.Database.Port, cfg.Portfolio.MaxPositions)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("ALPACABOT_ALPACA_API_KEY", "env-key")
	t.Setenv("ALPACABOT_DATABASE_URL", "postgres://env@db/alpacabot")
	t.Setenv("ALPACABOT_PORTFOLIO_MAX_POSITIONS", "8")
	t.Setenv("ALPACABOT_ARCHIVE_ENABLED", "true")
	t.Setenv("ALPACABOT_REDIS_BAR_CACHE_TTL", "90s")
	t.Setenv("ALPACABOT_NOTIFY_EVENTS", "error, order_dead")

	cfg := Defaults()
	applyEnvOverrides(&cfg)

	if cfg.Alpaca.ApiKey != "env-key" {
		t.Fatalf("api_key = %q, want env-key", cfg.Alpaca.ApiKey)
	}
	if cfg.Database.DSN != "postgres://env@db/alpacabot" {
		t.Fatalf("dsn = %q, want the DATABASE_URL alias applied", cfg.Database.DSN)
	}
	if cfg.Portfolio.MaxPositions != 8 {
		t.Fatalf("max_positions = %d, want 8", cfg.Portfolio.MaxPositions)
	}
	if !cfg.Archive.Enabled {
		t.Fatal("archive.enabled not overridden")
	}
	if cfg.Redis.BarCacheTTL.Duration != 90*time.Second {
		t.Fatalf("bar_cache_ttl = %v, want 90s", cfg.Redis.BarCacheTTL.Duration)
	}
	if len(cfg.Notify.Events) != 2 || cfg.Notify.Events[0] != "error" || cfg.Notify.Events[1] != "order_dead" {
		t.Fatalf("notify.events = %v, want [error order_dead]", cfg.Notify.Events)
	}
}

func TestEnvOverridesIgnoreMalformedValues(t *testing.T) {
	t.Setenv("ALPACABOT_PORTFOLIO_MAX_POSITIONS", "lots")
	t.Setenv("ALPACABOT_ARCHIVE_ENABLED", "maybe")

	cfg := Defaults()
	applyEnvOverrides(&cfg)

	if cfg.Portfolio.MaxPositions != 5 {
		t.Fatalf("max_positions = %d, want the default 5", cfg.Portfolio.MaxPositions)
	}
	if cfg.Archive.Enabled {
		t.Fatal("archive.enabled flipped by an unparseable value")
	}
}

func TestRedactedConfig(t *testing.T) {
	cfg := validTradeConfig()
	cfg.Database.Password = "hunter2"
	cfg.Notify.TelegramToken = "123:abc"

	red := RedactedConfig(&cfg)

	if red.Alpaca.ApiKey != "***" || red.Alpaca.ApiSecret != "***" {
		t.Fatalf("broker credentials not redacted: %+v", red.Alpaca)
	}
	if red.Database.Password != "***" {
		t.Fatalf("database password not redacted: %q", red.Database.Password)
	}
	if red.Notify.TelegramToken != "***" {
		t.Fatalf("telegram token not redacted: %q", red.Notify.TelegramToken)
	}

	// Empty secrets stay empty rather than implying a value exists.
	if red.Redis.Password != "" {
		t.Fatalf("empty redis password became %q", red.Redis.Password)
	}

	// The original is untouched.
	if cfg.Alpaca.ApiKey != "key" {
		t.Fatalf("original mutated: %q", cfg.Alpaca.ApiKey)
	}

	// Mutating the redacted copy's slice must not reach the original.
	red.Notify.Events[0] = "changed"
	if cfg.Notify.Events[0] == "changed" {
		t.Fatal("redacted copy shares the events slice with the original")
	}
}
