package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// FileConfig represents the configuration file structure. The same struct
// decodes from YAML or TOML; the format is chosen by file extension.
type FileConfig struct {
	Logging   *FileLoggingConfig   `yaml:"logging,omitempty" toml:"logging,omitempty"`
	DNS       *FileDNSConfig       `yaml:"dns,omitempty" toml:"dns,omitempty"`
	SPF       *FileSPFConfig       `yaml:"spf,omitempty" toml:"spf,omitempty"`
	Watch     *FileWatchConfig     `yaml:"watch,omitempty" toml:"watch,omitempty"`
	Server    *FileServerConfig    `yaml:"server,omitempty" toml:"server,omitempty"`
	Providers []FileProviderConfig `yaml:"providers,omitempty" toml:"providers,omitempty"`
}

// FileLoggingConfig holds logging settings.
type FileLoggingConfig struct {
	Level  string `yaml:"level,omitempty" toml:"level,omitempty"`   // debug, info, warn, error
	Format string `yaml:"format,omitempty" toml:"format,omitempty"` // json, text
}

// FileDNSConfig holds resolver settings.
type FileDNSConfig struct {
	Nameservers []string `yaml:"nameservers,omitempty" toml:"nameservers,omitempty"`
	Timeout     string   `yaml:"timeout,omitempty" toml:"timeout,omitempty"` // Go duration format
	Retries     *int     `yaml:"retries,omitempty" toml:"retries,omitempty"` // Pointer to distinguish unset from 0
}

// FileSPFConfig holds published-record settings.
type FileSPFConfig struct {
	TTL int `yaml:"ttl,omitempty" toml:"ttl,omitempty"`
}

// FileWatchConfig holds watch-mode settings.
type FileWatchConfig struct {
	Interval string `yaml:"interval,omitempty" toml:"interval,omitempty"` // Go duration format (e.g., "60s", "5m")
}

// FileServerConfig holds health/metrics server settings.
type FileServerConfig struct {
	Port int `yaml:"port,omitempty" toml:"port,omitempty"`
}

// FileProviderConfig holds configuration for one publish target.
type FileProviderConfig struct {
	Name   string            `yaml:"name" toml:"name"`                         // Unique instance name
	Type   string            `yaml:"type" toml:"type"`                         // zonefile, sftp, rfc2136
	Config map[string]string `yaml:"config,omitempty" toml:"config,omitempty"` // Provider-specific settings
}

// envVarPattern matches ${VAR} or ${VAR:-default} syntax.
var envVarPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// InterpolateEnvVars replaces ${VAR} patterns with environment variable values.
// Supports ${VAR:-default} syntax for default values.
func InterpolateEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		groups := envVarPattern.FindStringSubmatch(match)
		if len(groups) < 2 {
			return match
		}
		varName := groups[1]
		defaultValue := ""
		if len(groups) >= 3 {
			defaultValue = groups[2]
		}

		if value := os.Getenv(varName); value != "" {
			return value
		}
		return defaultValue
	})
}

// interpolateEnvVars interpolates environment variables in all string
// fields of the config structure.
func (c *FileConfig) interpolateEnvVars() {
	if c.Logging != nil {
		c.Logging.Level = InterpolateEnvVars(c.Logging.Level)
		c.Logging.Format = InterpolateEnvVars(c.Logging.Format)
	}

	if c.DNS != nil {
		for i := range c.DNS.Nameservers {
			c.DNS.Nameservers[i] = InterpolateEnvVars(c.DNS.Nameservers[i])
		}
		c.DNS.Timeout = InterpolateEnvVars(c.DNS.Timeout)
	}

	if c.Watch != nil {
		c.Watch.Interval = InterpolateEnvVars(c.Watch.Interval)
	}

	for i := range c.Providers {
		p := &c.Providers[i]
		p.Name = InterpolateEnvVars(p.Name)
		p.Type = InterpolateEnvVars(p.Type)
		for k, v := range p.Config {
			p.Config[k] = InterpolateEnvVars(v)
		}
	}
}

// LoadFile reads and parses a configuration file. TOML is selected by the
// .toml extension; everything else parses as YAML. Environment variables in
// ${VAR} format are interpolated.
func LoadFile(path string) (*FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg FileConfig
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parsing TOML config: %w", err)
		}
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parsing YAML config: %w", err)
		}
	}

	cfg.interpolateEnvVars()

	return &cfg, nil
}

// loadFromFile loads the config file at path and converts it to runtime
// types. A missing path yields nil config and no errors; env vars take over.
func loadFromFile(path string) (*Config, []string) {
	if path == "" {
		return nil, nil
	}

	fileCfg, err := LoadFile(path)
	if err != nil {
		return nil, []string{"config file: " + err.Error()}
	}

	cfg, errs := fileCfg.toConfig()
	return cfg, errs
}

// toConfig converts file config to a runtime Config, applying defaults.
// Values from the file take precedence over defaults; env vars override later.
func (c *FileConfig) toConfig() (*Config, []string) {
	var errs []string
	cfg := defaults()

	if c.Logging != nil {
		if c.Logging.Level != "" {
			cfg.LogLevel = strings.ToLower(c.Logging.Level)
		}
		if c.Logging.Format != "" {
			cfg.LogFormat = strings.ToLower(c.Logging.Format)
		}
	}

	if c.DNS != nil {
		cfg.Nameservers = c.DNS.Nameservers
		if c.DNS.Timeout != "" {
			if timeout, err := time.ParseDuration(c.DNS.Timeout); err == nil && timeout > 0 {
				cfg.DNSTimeout = timeout
			} else {
				errs = append(errs, fmt.Sprintf("dns.timeout: invalid duration %q", c.DNS.Timeout))
			}
		}
		if c.DNS.Retries != nil {
			if *c.DNS.Retries < 0 {
				errs = append(errs, "dns.retries: must not be negative")
			} else {
				cfg.DNSRetries = *c.DNS.Retries
			}
		}
	}

	if c.SPF != nil && c.SPF.TTL != 0 {
		if c.SPF.TTL < 1 {
			errs = append(errs, "spf.ttl: must be at least 1")
		} else {
			cfg.TTL = c.SPF.TTL
		}
	}

	if c.Watch != nil && c.Watch.Interval != "" {
		if interval, err := time.ParseDuration(c.Watch.Interval); err == nil && interval >= time.Second {
			cfg.WatchInterval = interval
		} else {
			errs = append(errs, fmt.Sprintf("watch.interval: invalid duration %q (must be at least 1s)", c.Watch.Interval))
		}
	}

	if c.Server != nil && c.Server.Port != 0 {
		if c.Server.Port < 1 || c.Server.Port > 65535 {
			errs = append(errs, fmt.Sprintf("server.port: must be between 1 and 65535, got %d", c.Server.Port))
		} else {
			cfg.HealthPort = c.Server.Port
		}
	}

	for _, fp := range c.Providers {
		p, pErrs := convertFileProvider(fp)
		cfg.Providers = append(cfg.Providers, p)
		errs = append(errs, pErrs...)
	}

	return cfg, errs
}

// convertFileProvider converts a FileProviderConfig to ProviderInstanceConfig.
func convertFileProvider(fp FileProviderConfig) (*ProviderInstanceConfig, []string) {
	var errs []string

	cfg := &ProviderInstanceConfig{
		Name:           fp.Name,
		TypeName:       strings.ToLower(fp.Type),
		ProviderConfig: make(map[string]string),
	}

	if cfg.Name == "" {
		errs = append(errs, "provider: name is required")
	}
	if cfg.TypeName == "" {
		errs = append(errs, "provider "+cfg.Name+": type is required")
	}

	// Normalize keys to uppercase for consistency with env var loading
	for k, v := range fp.Config {
		cfg.ProviderConfig[strings.ToUpper(k)] = v
	}

	return cfg, errs
}
