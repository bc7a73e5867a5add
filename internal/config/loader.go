package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// mergeEnv merges SPFWEAVER_* environment overrides into cfg. Environment
// variables always take precedence over file values.
func mergeEnv(cfg *Config) []string {
	var errs []string

	if v := getEnv("SPFWEAVER_LOG_LEVEL"); v != "" {
		cfg.LogLevel = strings.ToLower(v)
	}
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
		// Valid
	default:
		errs = append(errs, fmt.Sprintf("SPFWEAVER_LOG_LEVEL: invalid value %q (must be debug, info, warn, or error)", cfg.LogLevel))
	}

	if v := getEnv("SPFWEAVER_LOG_FORMAT"); v != "" {
		cfg.LogFormat = strings.ToLower(v)
	}
	switch cfg.LogFormat {
	case "json", "text":
		// Valid
	default:
		errs = append(errs, fmt.Sprintf("SPFWEAVER_LOG_FORMAT: invalid value %q (must be json or text)", cfg.LogFormat))
	}

	if v := getEnv("SPFWEAVER_NAMESERVERS"); v != "" {
		cfg.Nameservers = splitList(v)
	}

	if v := getEnv("SPFWEAVER_DNS_TIMEOUT"); v != "" {
		if timeout, err := time.ParseDuration(v); err == nil && timeout > 0 {
			cfg.DNSTimeout = timeout
		} else {
			errs = append(errs, fmt.Sprintf("SPFWEAVER_DNS_TIMEOUT: invalid duration %q (use format like 5s)", v))
		}
	}

	if v := getEnv("SPFWEAVER_DNS_RETRIES"); v != "" {
		if retries, err := strconv.Atoi(v); err == nil && retries >= 0 {
			cfg.DNSRetries = retries
		} else {
			errs = append(errs, fmt.Sprintf("SPFWEAVER_DNS_RETRIES: invalid or negative integer %q", v))
		}
	}

	if v := getEnv("SPFWEAVER_SPF_TTL"); v != "" {
		if ttl, err := strconv.Atoi(v); err == nil && ttl >= 1 {
			cfg.TTL = ttl
		} else {
			errs = append(errs, fmt.Sprintf("SPFWEAVER_SPF_TTL: invalid integer %q (must be at least 1)", v))
		}
	}

	if v := getEnv("SPFWEAVER_WATCH_INTERVAL"); v != "" {
		if interval, err := time.ParseDuration(v); err == nil && interval >= time.Second {
			cfg.WatchInterval = interval
		} else {
			errs = append(errs, fmt.Sprintf("SPFWEAVER_WATCH_INTERVAL: invalid duration %q (must be at least 1s)", v))
		}
	}

	if v := getEnv("SPFWEAVER_HEALTH_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil && port >= 1 && port <= 65535 {
			cfg.HealthPort = port
		} else {
			errs = append(errs, fmt.Sprintf("SPFWEAVER_HEALTH_PORT: invalid port number %q", v))
		}
	}

	if v := getEnv("SPFWEAVER_OUTPUT"); v != "" {
		cfg.Output = v
	}

	if v := getEnv("SPFWEAVER_DRY_RUN"); v != "" {
		cfg.DryRun = parseBool(v, cfg.DryRun)
	}

	return errs
}

// splitList splits a comma-separated env value, trimming whitespace and
// dropping empty entries.
func splitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			out = append(out, item)
		}
	}
	return out
}
