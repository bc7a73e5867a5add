package sftp

import (
	"fmt"
	"strings"

	"gitlab.bluewillows.net/root/spfweaver/pkg/sshutil"
)

// DefaultDir is used when neither PATH nor DIR is configured.
const DefaultDir = "."

// Config holds SFTP provider configuration. Connection settings live in
// the embedded SSH config; the rest mirrors the zonefile provider.
type Config struct {
	// SSH is the connection configuration (required).
	SSH *sshutil.Config

	// Path is an explicit remote output file path. When set, every
	// publish for this instance writes to this file regardless of domain.
	Path string

	// Dir is the remote output directory. Files are named <domain>.spf.
	// Ignored when Path is set. Defaults to the login directory.
	Dir string

	// ReloadCommand is an optional command to run on the remote host
	// after a successful write (e.g., "sudo rndc reload example.com").
	ReloadCommand string
}

// Validate checks the configuration for completeness and conflicts.
func (c *Config) Validate() error {
	var errs []string

	if c.SSH == nil {
		errs = append(errs, "ssh connection settings are required")
	} else if err := c.SSH.Validate(); err != nil {
		errs = append(errs, err.Error())
	}

	if c.Path != "" && c.Dir != "" {
		errs = append(errs, "PATH and DIR are mutually exclusive")
	}

	if len(errs) > 0 {
		return fmt.Errorf("sftp config validation failed: %s", strings.Join(errs, "; "))
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
// Required keys: HOST, USER, and at least one of KEY_FILE/KEY_DATA/PASSWORD
// Optional keys: PORT, TIMEOUT, KEEPALIVE_INTERVAL, KEY_PASSPHRASE,
// KNOWN_HOSTS, PATH, DIR, RELOAD_COMMAND
func LoadConfigFromMap(instanceName string, configMap map[string]string) (*Config, error) {
	sshConfig, err := sshutil.LoadConfigFromMap(configMap)
	if err != nil {
		return nil, fmt.Errorf("configuration for %s: %w", instanceName, err)
	}

	config := &Config{
		SSH:           sshConfig,
		Path:          configMap["PATH"],
		Dir:           configMap["DIR"],
		ReloadCommand: configMap["RELOAD_COMMAND"],
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration for %s: %w", instanceName, err)
	}

	return config, nil
}
