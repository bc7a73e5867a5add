package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaultsOnly(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.LogLevel != DefaultLogLevel || cfg.LogFormat != DefaultLogFormat {
		t.Errorf("unexpected logging defaults: %q/%q", cfg.LogLevel, cfg.LogFormat)
	}
	if cfg.TTL != DefaultTTL {
		t.Errorf("TTL = %d, want %d", cfg.TTL, DefaultTTL)
	}
	if len(cfg.Providers) != 0 {
		t.Errorf("expected no providers, got %v", cfg.Providers)
	}
}

func TestLoadFileWithEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "spfweaver.yaml")
	content := `
logging:
  level: debug
spf:
  ttl: 600
providers:
  - name: local
    type: zonefile
    config:
      path: /srv/zones/example.com.spf
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("SPFWEAVER_SPF_TTL", "1800")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want debug (from file)", cfg.LogLevel)
	}
	if cfg.TTL != 1800 {
		t.Errorf("TTL = %d, want 1800 (env wins over file)", cfg.TTL)
	}
	if len(cfg.Providers) != 1 || cfg.Providers[0].TypeName != "zonefile" {
		t.Fatalf("unexpected providers: %+v", cfg.Providers)
	}
	if got := cfg.Providers[0].ProviderConfig["PATH"]; got != "/srv/zones/example.com.spf" {
		t.Errorf("PATH = %q (file config keys normalize to uppercase)", got)
	}
}

func TestLoadPathFromEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "spfweaver.yaml")
	if err := os.WriteFile(path, []byte("logging:\n  level: warn\n"), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("SPFWEAVER_CONFIG", path)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.LogLevel != "warn" {
		t.Errorf("LogLevel = %q, want warn", cfg.LogLevel)
	}
}

func TestLoadAggregatesErrors(t *testing.T) {
	t.Setenv("SPFWEAVER_LOG_LEVEL", "loud")
	t.Setenv("SPFWEAVER_SPF_TTL", "never")

	_, err := Load("")
	if err == nil {
		t.Fatal("expected an error")
	}

	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("err = %T, want *ValidationError", err)
	}
	if len(verr.Errors) != 2 {
		t.Errorf("expected 2 errors, got %v", verr.Errors)
	}
}

func TestLoadMissingConfigFileIsError(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil {
		t.Error("expected an error for an explicitly named missing file")
	}
}

func TestLoadWatchIntervalFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "spfweaver.yaml")
	if err := os.WriteFile(path, []byte("watch:\n  interval: 90s\n"), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.WatchInterval != 90*time.Second {
		t.Errorf("WatchInterval = %v, want 90s", cfg.WatchInterval)
	}
}
