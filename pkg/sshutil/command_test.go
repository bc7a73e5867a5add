package sshutil

import (
	"context"
	"errors"
	"testing"
)

func TestNewSSHCommandRunner(t *testing.T) {
	client, err := NewClient(&Config{Host: "example.com", User: "admin", Password: "secret"})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}

	runner := NewSSHCommandRunner(client)
	if runner.client != client {
		t.Error("NewSSHCommandRunner() client not set")
	}
}

func TestSSHCommandRunnerNotConnected(t *testing.T) {
	client, err := NewClient(&Config{Host: "example.com", User: "admin", Password: "secret"})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}

	runner := NewSSHCommandRunner(client)
	if err := runner.Run(context.Background(), "true"); !errors.Is(err, ErrNotConnected) {
		t.Errorf("Run() = %v, want ErrNotConnected", err)
	}
}

func TestExtractExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil error", nil, 0},
		{"exit status format", errors.New("exit status 2"), 2},
		{"process exited format", errors.New("Process exited with status 127"), 127},
		{"unknown error", errors.New("connection lost"), 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := extractExitCode(tt.err); got != tt.want {
				t.Errorf("extractExitCode(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}
