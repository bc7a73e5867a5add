// Package provider defines the interface that all publish targets must
// implement, plus the registry that manages configured instances.
package provider

import (
	"context"
	"strings"
)

// Record represents one TXT record of a flattened record set, ready to
// publish.
type Record struct {
	// Name is the owner name without trailing dot (e.g., "_spf.example.com").
	Name string

	// TTL in seconds.
	TTL uint32

	// Strings are the quoted character-strings of the TXT RR, each at most
	// 255 bytes. Concatenating them yields the full record content.
	Strings []string
}

// Content returns the record's full content, character-strings concatenated.
func (r Record) Content() string {
	return strings.Join(r.Strings, "")
}

// Provider defines the interface for publish targets. Each implementation
// (zonefile, sftp, rfc2136) must satisfy this interface.
type Provider interface {
	// Name returns the provider instance name (e.g., "primary-ns").
	Name() string

	// Type returns the provider type (e.g., "zonefile", "rfc2136").
	Type() string

	// Ping checks that the target is reachable and writable.
	Ping(ctx context.Context) error

	// Publish replaces the domain's flattened TXT record set with records.
	Publish(ctx context.Context, domain string, records []Record) error
}

// RecordEquals returns true if two records are logically equal.
func RecordEquals(a, b Record) bool {
	if a.Name != b.Name || a.TTL != b.TTL || len(a.Strings) != len(b.Strings) {
		return false
	}
	for i := range a.Strings {
		if a.Strings[i] != b.Strings[i] {
			return false
		}
	}
	return true
}
