// Package config handles loading and validation of SPFWeaver configuration
// from a config file (YAML or TOML) and SPFWEAVER_* environment variables.
// Environment variables always take precedence over file values.
package config

import (
	"os"
	"time"
)

// Configuration defaults.
const (
	DefaultLogLevel      = "info"
	DefaultLogFormat     = "json"
	DefaultDryRun        = false
	DefaultDNSTimeout    = 5 * time.Second
	DefaultDNSRetries    = 2
	DefaultTTL           = 3600
	DefaultWatchInterval = 5 * time.Minute
	DefaultHealthPort    = 8080
)

// Config holds the complete runtime configuration.
type Config struct {
	// Logging configuration
	LogLevel  string // debug, info, warn, error
	LogFormat string // json, text

	// DNS resolver settings
	Nameservers []string      // Upstream servers; empty means system resolvers
	DNSTimeout  time.Duration // Per-query timeout
	DNSRetries  int           // Retries for failed queries

	// Published record settings
	TTL int // TTL of published TXT records

	// Watch mode
	WatchInterval time.Duration // How often to re-flatten in watch mode
	HealthPort    int           // Port for health/metrics endpoints

	// Behavior
	DryRun bool   // If true, render but publish nothing
	Output string // Zonefile provider output path override

	// Publish targets
	Providers []*ProviderInstanceConfig
}

// Load builds the runtime configuration. The file path may be empty, in
// which case only SPFWEAVER_CONFIG and environment variables apply. All
// validation errors are collected and returned together as a
// *ValidationError.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("SPFWEAVER_CONFIG")
	}

	cfg, errs := loadFromFile(path)
	if cfg == nil {
		cfg = defaults()
	}

	errs = append(errs, mergeEnv(cfg)...)
	errs = append(errs, loadEnvProviders(cfg)...)
	errs = append(errs, validateConfig(cfg)...)

	if len(errs) > 0 {
		return nil, &ValidationError{Errors: errs}
	}
	return cfg, nil
}

// defaults returns a Config with every field at its default.
func defaults() *Config {
	return &Config{
		LogLevel:      DefaultLogLevel,
		LogFormat:     DefaultLogFormat,
		DNSTimeout:    DefaultDNSTimeout,
		DNSRetries:    DefaultDNSRetries,
		TTL:           DefaultTTL,
		WatchInterval: DefaultWatchInterval,
		HealthPort:    DefaultHealthPort,
		DryRun:        DefaultDryRun,
	}
}
