// Package config loads the user-facing settings of the calendar core:
// locale, holiday country, week layout, cache tuning, storage path and log
// level. Values are layered defaults -> YAML file -> environment.
package config

import (
	"fmt"
	"time"
)

// Config carries process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Locale is the display locale, e.g. "en_GB" or "de_DE".
	Locale string `koanf:"locale"`

	// HolidayCountry overrides the country derived from Locale for holiday
	// resolution. Empty means derive from Locale.
	HolidayCountry string `koanf:"holiday_country"`

	// FirstDayOfWeek uses the 0=Monday .. 6=Sunday convention.
	FirstDayOfWeek int `koanf:"first_day_of_week"`

	// DatabasePath is the SQLite file; empty selects the in-memory store.
	DatabasePath string `koanf:"database_path"`

	// CacheTTL bounds the age of cached expansions and holiday sets.
	CacheTTL time.Duration `koanf:"cache_ttl"`

	// CacheMaxEntries bounds the cache size.
	CacheMaxEntries int `koanf:"cache_max_entries"`

	// MetricsEnabled toggles Prometheus instrumentation.
	MetricsEnabled bool `koanf:"metrics_enabled"`
}

// New returns the defaults.
func New() *Config {
	return &Config{
		LogLevel:        "info",
		Locale:          "en_US",
		FirstDayOfWeek:  0,
		CacheTTL:        15 * time.Minute,
		CacheMaxEntries: 1000,
		MetricsEnabled:  false,
	}
}

var validLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks field bounds after loading.
func (c *Config) Validate() error {
	if !validLevels[c.LogLevel] {
		return fmt.Errorf("unknown log level %q", c.LogLevel)
	}
	if c.FirstDayOfWeek < 0 || c.FirstDayOfWeek > 6 {
		return fmt.Errorf("first_day_of_week %d out of range 0..6", c.FirstDayOfWeek)
	}
	if c.Locale == "" {
		return fmt.Errorf("locale must not be empty")
	}
	if c.CacheTTL <= 0 {
		return fmt.Errorf("cache_ttl must be positive")
	}
	if c.CacheMaxEntries < 1 {
		return fmt.Errorf("cache_max_entries must be >= 1")
	}
	return nil
}
