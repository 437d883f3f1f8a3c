// Package config defines service configuration and its loading.
//
// Values are layered: defaults, then an optional YAML file named by
// ENGAGE_CONFIG, then ENGAGE_* environment variables.
package config

import (
	"fmt"
	"net"
	"runtime"
	"strings"
	"time"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`
	// LogFormat is text or json.
	LogFormat string `koanf:"log_format"`
	// LogFile, when set, writes logs to a rotating file instead of stderr.
	LogFile string `koanf:"log_file"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// Timezone is the IANA zone every day key and weekly boundary uses.
	Timezone string `koanf:"timezone"`

	// StoreDriver is memory, sqlite or postgres.
	StoreDriver string `koanf:"store_driver"`
	DatabaseURL string `koanf:"database_url"`
	SQLitePath  string `koanf:"sqlite_path"`
	DBMaxConns  int    `koanf:"db_max_conns"`

	// LeaderboardSize is the default number of ranked entries per board.
	LeaderboardSize int `koanf:"leaderboard_size"`

	// DedupeSize bounds the event id cache. Zero disables eviction.
	DedupeSize int `koanf:"dedupe_size"`

	AwardQueueSize   int `koanf:"award_queue_size"`
	AwardWorkerCount int `koanf:"award_worker_count"`

	// SettleIntervalSeconds is how often the weekly league settlement runs.
	SettleIntervalSeconds int `koanf:"settle_interval_seconds"`

	// RateLimitPerMinute limits /api requests per client. Zero disables it.
	RateLimitPerMinute float64 `koanf:"rate_limit_per_minute"`
	RateLimitBurst     int     `koanf:"rate_limit_burst"`
	// TrustedProxies lists peer IPs whose forwarding headers identify the
	// client for rate limiting. ENGAGE_TRUSTED_PROXIES takes a comma list.
	TrustedProxies []string `koanf:"trusted_proxies"`
}

// New returns a Config holding the defaults.
func New() *Config {
	return &Config{
		LogLevel:              "info",
		LogFormat:             "text",
		Addr:                  ":9080",
		Timezone:              "UTC",
		StoreDriver:           "memory",
		SQLitePath:            "data/engage.db",
		DBMaxConns:            10,
		LeaderboardSize:       10,
		DedupeSize:            100_000,
		AwardQueueSize:        1_000,
		AwardWorkerCount:      runtime.NumCPU(),
		SettleIntervalSeconds: 300,
		RateLimitPerMinute:    600,
		RateLimitBurst:        50,
	}
}

// SettleInterval returns SettleIntervalSeconds as a duration.
func (c *Config) SettleInterval() time.Duration {
	return time.Duration(c.SettleIntervalSeconds) * time.Second
}

// Validate reports the first invalid field wrapped in ErrInvalidConfig.
func (c *Config) Validate() error {
	switch {
	case strings.TrimSpace(c.Addr) == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case !oneOf(c.LogFormat, "text", "json"):
		return fmt.Errorf("%w: log_format %q", ErrInvalidConfig, c.LogFormat)
	case !oneOf(c.StoreDriver, "memory", "sqlite", "postgres"):
		return fmt.Errorf("%w: store_driver %q", ErrInvalidConfig, c.StoreDriver)
	case strings.EqualFold(c.StoreDriver, "postgres") && c.DatabaseURL == "":
		return fmt.Errorf("%w: database_url is required for postgres", ErrInvalidConfig)
	case strings.EqualFold(c.StoreDriver, "sqlite") && c.SQLitePath == "":
		return fmt.Errorf("%w: sqlite_path is required for sqlite", ErrInvalidConfig)
	case c.DBMaxConns < 1:
		return fmt.Errorf("%w: db_max_conns must be positive", ErrInvalidConfig)
	case c.LeaderboardSize < 1:
		return fmt.Errorf("%w: leaderboard_size must be positive", ErrInvalidConfig)
	case c.DedupeSize < 0:
		return fmt.Errorf("%w: dedupe_size must not be negative", ErrInvalidConfig)
	case c.AwardQueueSize < 1:
		return fmt.Errorf("%w: award_queue_size must be positive", ErrInvalidConfig)
	case c.AwardWorkerCount < 1:
		return fmt.Errorf("%w: award_worker_count must be positive", ErrInvalidConfig)
	case c.SettleIntervalSeconds < 1:
		return fmt.Errorf("%w: settle_interval_seconds must be positive", ErrInvalidConfig)
	case c.RateLimitPerMinute < 0 || c.RateLimitBurst < 0:
		return fmt.Errorf("%w: rate limit must not be negative", ErrInvalidConfig)
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("%w: %w %q: %v", ErrInvalidConfig, ErrInvalidTimezone, c.Timezone, err)
	}
	for _, p := range c.TrustedProxies {
		if net.ParseIP(strings.TrimSpace(p)) == nil {
			return fmt.Errorf("%w: %w: %q", ErrInvalidConfig, ErrInvalidProxy, p)
		}
	}
	return nil
}

func oneOf(v string, allowed ...string) bool {
	for _, a := range allowed {
		if strings.EqualFold(strings.TrimSpace(v), a) {
			return true
		}
	}
	return false
}
