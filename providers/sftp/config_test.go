package sftp

import (
	"strings"
	"testing"

	"gitlab.bluewillows.net/root/spfweaver/pkg/sshutil"
)

func TestConfigValidate(t *testing.T) {
	cfg := &Config{SSH: &sshutil.Config{Host: "h", User: "u", Password: "p"}}
	if err := cfg.Validate(); err != nil {
		t.Errorf("valid config rejected: %v", err)
	}

	cfg = &Config{}
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "ssh connection settings") {
		t.Errorf("expected missing-ssh error, got %v", err)
	}

	cfg = &Config{
		SSH:  &sshutil.Config{Host: "h", User: "u", Password: "p"},
		Path: "/etc/bind/spf.zone",
		Dir:  "/etc/bind",
	}
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "mutually exclusive") {
		t.Errorf("expected mutual-exclusion error, got %v", err)
	}

	cfg = &Config{SSH: &sshutil.Config{Host: "h"}}
	if err := cfg.Validate(); err == nil {
		t.Error("expected nested ssh validation error")
	}
}

func TestLoadConfigFromMap(t *testing.T) {
	cfg, err := LoadConfigFromMap("remote", map[string]string{
		"HOST":           "ns1.example.com",
		"USER":           "spfweaver",
		"PASSWORD":       "secret",
		"DIR":            "/etc/bind",
		"RELOAD_COMMAND": "sudo rndc reload",
	})
	if err != nil {
		t.Fatalf("LoadConfigFromMap: %v", err)
	}

	if cfg.SSH.Host != "ns1.example.com" || cfg.SSH.User != "spfweaver" {
		t.Errorf("unexpected ssh config: %+v", cfg.SSH)
	}
	if cfg.Dir != "/etc/bind" || cfg.ReloadCommand != "sudo rndc reload" {
		t.Errorf("unexpected config: %+v", cfg)
	}
}

func TestLoadConfigFromMapMissingAuth(t *testing.T) {
	_, err := LoadConfigFromMap("remote", map[string]string{
		"HOST": "ns1.example.com",
		"USER": "spfweaver",
	})
	if err == nil || !strings.Contains(err.Error(), "remote") {
		t.Errorf("expected validation error naming the instance, got %v", err)
	}
}

func TestFactory(t *testing.T) {
	factory := Factory(nil)

	p, err := factory("remote", map[string]string{
		"HOST":     "ns1.example.com",
		"USER":     "spfweaver",
		"PASSWORD": "secret",
	})
	if err != nil {
		t.Fatalf("factory: %v", err)
	}
	if p.Name() != "remote" || p.Type() != "sftp" {
		t.Errorf("unexpected provider identity: %s/%s", p.Name(), p.Type())
	}
}
