package zonefile

import (
	"fmt"
	"strings"
)

// DefaultDir is used when neither PATH nor DIR is configured.
const DefaultDir = "."

// Config holds zonefile provider configuration.
type Config struct {
	// Path is an explicit output file path. When set, every publish for
	// this instance writes to this file regardless of domain.
	Path string

	// Dir is the output directory. Files are named <domain>.spf.
	// Ignored when Path is set. Defaults to the current directory.
	Dir string

	// ReloadCommand is an optional shell command to run after a
	// successful write (e.g., "rndc reload example.com").
	ReloadCommand string
}

// Validate checks the configuration for conflicts.
func (c *Config) Validate() error {
	var errs []string

	if c.Path != "" && c.Dir != "" {
		errs = append(errs, "PATH and DIR are mutually exclusive")
	}

	if len(errs) > 0 {
		return fmt.Errorf("zonefile config validation failed: %s", strings.Join(errs, "; "))
	}

	return nil
}

// GetDir returns the effective output directory.
func (c *Config) GetDir() string {
	if c.Dir != "" {
		return c.Dir
	}
	return DefaultDir
}

// LoadConfigFromMap creates a Config from a map of key-value pairs.
//
// Optional keys: PATH, DIR, RELOAD_COMMAND
func LoadConfigFromMap(instanceName string, configMap map[string]string) (*Config, error) {
	config := &Config{
		Path:          configMap["PATH"],
		Dir:           configMap["DIR"],
		ReloadCommand: configMap["RELOAD_COMMAND"],
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration for %s: %w", instanceName, err)
	}

	return config, nil
}
