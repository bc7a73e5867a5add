package zonefile

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gitlab.bluewillows.net/root/spfweaver/pkg/provider"
)

func testRecords() []provider.Record {
	return []provider.Record{
		{
			Name: "_spf.example.com",
			TTL:  3600,
			Strings: []string{
				"v=spf1",
				" include:_1._spf.example.com ~all",
			},
		},
		{
			Name:    "_1._spf.example.com",
			TTL:     3600,
			Strings: []string{"v=spf1 ip4:192.0.2.0/24 ~all"},
		},
	}
}

func TestPublishWritesZoneFile(t *testing.T) {
	dir := t.TempDir()

	p, err := New("local", &Config{Dir: dir})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if err := p.Publish(context.Background(), "example.com", testRecords()); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	content, err := os.ReadFile(filepath.Join(dir, "example.com.spf"))
	if err != nil {
		t.Fatalf("reading output file: %v", err)
	}

	got := string(content)
	if !strings.HasPrefix(got, "; flattened SPF record set for example.com\n") {
		t.Errorf("missing header:\n%s", got)
	}
	if !strings.Contains(got, `_spf.example.com. 3600 IN TXT "v=spf1" " include:_1._spf.example.com ~all"`) {
		t.Errorf("missing top-level record:\n%s", got)
	}
	if !strings.Contains(got, `_1._spf.example.com. 3600 IN TXT "v=spf1 ip4:192.0.2.0/24 ~all"`) {
		t.Errorf("missing sub-record:\n%s", got)
	}
}

func TestPublishExplicitPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "spf.zone")

	p, err := New("local", &Config{Path: path})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if err := p.Publish(context.Background(), "example.com", testRecords()); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	if _, err := os.Stat(path); err != nil {
		t.Errorf("output file not written: %v", err)
	}
}

func TestPublishReplacesExistingFile(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "example.com.spf")
	if err := os.WriteFile(target, []byte("stale content\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	p, err := New("local", &Config{Dir: dir})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if err := p.Publish(context.Background(), "example.com", testRecords()); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	content, err := os.ReadFile(target)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(content), "stale content") {
		t.Error("old content survived the publish")
	}

	// No temp files left behind.
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if e.Name() != "example.com.spf" {
			t.Errorf("unexpected leftover file: %s", e.Name())
		}
	}
}

func TestPublishEmptyRecordSet(t *testing.T) {
	p, err := New("local", &Config{Dir: t.TempDir()})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if err := p.Publish(context.Background(), "example.com", nil); err == nil {
		t.Error("expected an error for an empty record set")
	}
}

type fakeRunner struct {
	commands []string
	err      error
}

func (r *fakeRunner) Run(_ context.Context, command string) error {
	r.commands = append(r.commands, command)
	return r.err
}

func TestPublishRunsReloadCommand(t *testing.T) {
	runner := &fakeRunner{}

	p, err := New("local",
		&Config{Dir: t.TempDir(), ReloadCommand: "rndc reload example.com"},
		WithCommandRunner(runner))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if err := p.Publish(context.Background(), "example.com", testRecords()); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	if len(runner.commands) != 1 || runner.commands[0] != "rndc reload example.com" {
		t.Errorf("unexpected reload commands: %v", runner.commands)
	}
}

func TestPublishReloadFailure(t *testing.T) {
	runner := &fakeRunner{err: errors.New("rndc: connect failed")}

	p, err := New("local",
		&Config{Dir: t.TempDir(), ReloadCommand: "rndc reload"},
		WithCommandRunner(runner))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	err = p.Publish(context.Background(), "example.com", testRecords())
	var perr *provider.ProviderError
	if !errors.As(err, &perr) || perr.Operation != "reload" {
		t.Errorf("expected a reload ProviderError, got %v", err)
	}
}

func TestPing(t *testing.T) {
	p, err := New("local", &Config{Dir: t.TempDir()})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := p.Ping(context.Background()); err != nil {
		t.Errorf("Ping: %v", err)
	}
}

func TestPingMissingDir(t *testing.T) {
	p, err := New("local", &Config{Dir: filepath.Join(t.TempDir(), "missing")})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := p.Ping(context.Background()); !errors.Is(err, provider.ErrProviderUnavailable) {
		t.Errorf("Ping = %v, want ErrProviderUnavailable", err)
	}
}

func TestPingPathIsFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "not-a-dir")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	p, err := New("local", &Config{Dir: file})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := p.Ping(context.Background()); err == nil {
		t.Error("expected an error when the output path is a file")
	}
}

func TestTargetPath(t *testing.T) {
	p, err := New("local", &Config{Dir: "/var/lib/spfweaver"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if got := p.TargetPath("example.com"); got != "/var/lib/spfweaver/example.com.spf" {
		t.Errorf("TargetPath = %q", got)
	}

	p, err = New("local", &Config{Path: "/etc/bind/spf.zone"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if got := p.TargetPath("example.com"); got != "/etc/bind/spf.zone" {
		t.Errorf("TargetPath = %q", got)
	}
}
