package config

import (
	"fmt"
	"os"
	"strings"
)

// ProviderInstanceConfig holds configuration for a single publish target.
// This is created during config loading and passed to the provider registry.
type ProviderInstanceConfig struct {
	// Name is the user-provided instance name (e.g., "primary-ns").
	Name string

	// TypeName is the provider type (e.g., "zonefile", "sftp", "rfc2136").
	TypeName string

	// ProviderConfig holds provider-specific settings.
	// Keys are setting names (e.g., "PATH", "HOST", "TSIG_SECRET").
	ProviderConfig map[string]string
}

// parseProviders parses the SPFWEAVER_PROVIDERS environment variable.
// Returns the list of provider instance names in order.
func parseProviders() []string {
	providersStr := getEnv("SPFWEAVER_PROVIDERS")
	if providersStr == "" {
		return nil
	}
	return splitList(providersStr)
}

// loadEnvProviders appends provider instances declared via SPFWEAVER_PROVIDERS
// to the configuration. Env-declared instances add to (and by name override)
// file-declared ones.
func loadEnvProviders(cfg *Config) []string {
	var errs []string

	for _, name := range parseProviders() {
		inst, instErrs := loadInstanceConfig(name)
		errs = append(errs, instErrs...)

		replaced := false
		for i, existing := range cfg.Providers {
			if existing.Name == name {
				cfg.Providers[i] = inst
				replaced = true
				break
			}
		}
		if !replaced {
			cfg.Providers = append(cfg.Providers, inst)
		}
	}

	return errs
}

// loadInstanceConfig loads configuration for a single provider instance from
// SPFWEAVER_{INSTANCE_NAME}_* environment variables. A *_FILE variable reads
// the value from the named file (Docker secrets pattern).
func loadInstanceConfig(instanceName string) (*ProviderInstanceConfig, []string) {
	var errs []string
	prefix := envPrefix(instanceName)

	cfg := &ProviderInstanceConfig{
		Name:           instanceName,
		ProviderConfig: make(map[string]string),
	}

	// TYPE is required
	cfg.TypeName = strings.ToLower(getEnv(prefix + "TYPE"))
	if cfg.TypeName == "" {
		errs = append(errs, fmt.Sprintf("%sTYPE: required but not set", prefix))
	}

	// Every other prefixed variable becomes a provider setting.
	for _, kv := range os.Environ() {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(key, prefix) {
			continue
		}
		setting := strings.TrimPrefix(key, prefix)
		if setting == "TYPE" || setting == "" {
			continue
		}

		if base, isFile := strings.CutSuffix(setting, "_FILE"); isFile {
			content, err := os.ReadFile(value)
			if err != nil {
				errs = append(errs, fmt.Sprintf("%s%s: reading secret file: %v", prefix, setting, err))
				continue
			}
			cfg.ProviderConfig[base] = strings.TrimSpace(string(content))
			continue
		}

		// A direct value never overwrites one already loaded from a file.
		if _, exists := cfg.ProviderConfig[setting]; !exists {
			cfg.ProviderConfig[setting] = value
		}
	}

	return cfg, errs
}
