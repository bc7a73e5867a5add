package sshutil

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestNewClient(t *testing.T) {
	t.Run("valid config", func(t *testing.T) {
		config := &Config{Host: "example.com", User: "admin", KeyFile: "/path/to/key"}

		client, err := NewClient(config)
		if err != nil {
			t.Fatalf("NewClient() error = %v", err)
		}
		if client.config != config {
			t.Error("NewClient() config not set correctly")
		}
	})

	t.Run("nil config", func(t *testing.T) {
		if _, err := NewClient(nil); err == nil {
			t.Fatal("NewClient() expected error for nil config")
		}
	})

	t.Run("invalid config", func(t *testing.T) {
		if _, err := NewClient(&Config{Host: "example.com"}); err == nil {
			t.Fatal("NewClient() expected error for invalid config")
		}
	})

	t.Run("with logger option", func(t *testing.T) {
		config := &Config{Host: "example.com", User: "admin", Password: "secret"}
		logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

		client, err := NewClient(config, WithLogger(logger))
		if err != nil {
			t.Fatalf("NewClient() error = %v", err)
		}
		if client.logger != logger {
			t.Error("WithLogger() option not applied")
		}
	})
}

func TestClientNotConnected(t *testing.T) {
	client, err := NewClient(&Config{Host: "example.com", User: "admin", Password: "secret"})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}

	if client.IsConnected() {
		t.Error("IsConnected() = true before Connect(), want false")
	}

	if _, err := client.GetConnection(); !errors.Is(err, ErrNotConnected) {
		t.Errorf("GetConnection() error = %v, want ErrNotConnected", err)
	}

	// Close is safe to call when not connected
	if err := client.Close(); err != nil {
		t.Errorf("Close() error = %v, want nil", err)
	}
}

func TestClientBuildAuthMethods(t *testing.T) {
	t.Run("with invalid key file content", func(t *testing.T) {
		keyFile := filepath.Join(t.TempDir(), "key")
		if err := os.WriteFile(keyFile, []byte("fake-key-content"), 0o600); err != nil {
			t.Fatal(err)
		}

		client, _ := NewClient(&Config{Host: "example.com", User: "admin", KeyFile: keyFile})
		if _, err := client.buildAuthMethods(); err == nil || !strings.Contains(err.Error(), "parsing key") {
			t.Errorf("buildAuthMethods() = %v, want parsing error", err)
		}
	})

	t.Run("with nonexistent key file", func(t *testing.T) {
		client, _ := NewClient(&Config{Host: "example.com", User: "admin", KeyFile: "/nonexistent/key"})
		if _, err := client.buildAuthMethods(); err == nil || !strings.Contains(err.Error(), "reading key file") {
			t.Errorf("buildAuthMethods() = %v, want read error", err)
		}
	})

	t.Run("with invalid key data", func(t *testing.T) {
		client, _ := NewClient(&Config{Host: "example.com", User: "admin", KeyData: "not-a-valid-key"})
		if _, err := client.buildAuthMethods(); err == nil || !strings.Contains(err.Error(), "parsing key data") {
			t.Errorf("buildAuthMethods() = %v, want parsing error", err)
		}
	})

	t.Run("with password only", func(t *testing.T) {
		client, _ := NewClient(&Config{Host: "example.com", User: "admin", Password: "secret"})
		methods, err := client.buildAuthMethods()
		if err != nil {
			t.Fatalf("buildAuthMethods() error = %v", err)
		}
		if len(methods) != 1 {
			t.Errorf("buildAuthMethods() returned %d methods, want 1", len(methods))
		}
	})

	t.Run("no auth methods", func(t *testing.T) {
		client := &Client{
			config: &Config{Host: "example.com", User: "admin"},
			logger: slog.Default(),
		}
		if _, err := client.buildAuthMethods(); err == nil || !strings.Contains(err.Error(), "no authentication methods") {
			t.Errorf("buildAuthMethods() = %v, want no-auth error", err)
		}
	})
}

func TestClientBuildHostKeyCallback(t *testing.T) {
	t.Run("no known_hosts configured", func(t *testing.T) {
		client, _ := NewClient(&Config{Host: "example.com", User: "admin", Password: "secret"})
		callback, err := client.buildHostKeyCallback()
		if err != nil {
			t.Fatalf("buildHostKeyCallback() error = %v", err)
		}
		if callback == nil {
			t.Error("buildHostKeyCallback() returned nil callback")
		}
	})

	t.Run("known_hosts file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "known_hosts")
		line := "example.com ssh-ed25519 AAAAC3NzaC1lZDI1NTE5AAAAIAABAgMEBQYHCAkKCwwNDg8QERITFBUWFxgZGhscHR4f\n"
		if err := os.WriteFile(path, []byte(line), 0o644); err != nil {
			t.Fatal(err)
		}

		client, _ := NewClient(&Config{
			Host: "example.com", User: "admin", Password: "secret",
			KnownHostsFile: path,
		})
		callback, err := client.buildHostKeyCallback()
		if err != nil {
			t.Fatalf("buildHostKeyCallback() error = %v", err)
		}
		if callback == nil {
			t.Error("buildHostKeyCallback() returned nil callback")
		}
	})

	t.Run("missing known_hosts file", func(t *testing.T) {
		client, _ := NewClient(&Config{
			Host: "example.com", User: "admin", Password: "secret",
			KnownHostsFile: filepath.Join(t.TempDir(), "missing"),
		})
		if _, err := client.buildHostKeyCallback(); err == nil {
			t.Error("expected an error for a missing known_hosts file")
		}
	})
}

func TestClientConnectUnreachable(t *testing.T) {
	// Reserved TEST-NET-1 address, nothing listens there.
	client, err := NewClient(&Config{
		Host:     "192.0.2.1",
		Port:     22,
		User:     "admin",
		Password: "secret",
		Timeout:  100 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}

	if err := client.Connect(context.Background()); err == nil {
		client.Close()
		t.Fatal("Connect() expected error for unreachable host")
	}
}

func TestIsAuthError(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{errors.New("connection refused"), false},
		{errors.New("ssh: unable to authenticate"), true},
		{errors.New("permission denied (publickey)"), true},
		{errors.New("ssh: no supported methods remain"), true},
	}

	for _, tt := range tests {
		if got := isAuthError(tt.err); got != tt.want {
			t.Errorf("isAuthError(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}
