package config

import (
	"testing"
)

func TestParseBool(t *testing.T) {
	tests := []struct {
		input        string
		defaultValue bool
		want         bool
	}{
		{"true", false, true},
		{"TRUE", false, true},
		{"1", false, true},
		{"yes", false, true},
		{"on", false, true},
		{"false", true, false},
		{"0", true, false},
		{"no", true, false},
		{"off", true, false},
		{"garbage", true, true},
		{"garbage", false, false},
		{"", true, true},
	}

	for _, tt := range tests {
		if got := parseBool(tt.input, tt.defaultValue); got != tt.want {
			t.Errorf("parseBool(%q, %v) = %v, want %v", tt.input, tt.defaultValue, got, tt.want)
		}
	}
}

func TestNormalizeInstanceName(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"primary-ns", "PRIMARY_NS"},
		{"local", "LOCAL"},
		{"a-b-c", "A_B_C"},
	}
	for _, tt := range tests {
		if got := normalizeInstanceName(tt.input); got != tt.want {
			t.Errorf("normalizeInstanceName(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestEnvPrefix(t *testing.T) {
	if got := envPrefix("primary-ns"); got != "SPFWEAVER_PRIMARY_NS_" {
		t.Errorf("envPrefix = %q", got)
	}
}
