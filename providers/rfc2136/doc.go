// Package rfc2136 publishes flattened SPF record sets via RFC 2136
// Dynamic DNS updates.
//
// RFC 2136 is the industry-standard protocol for programmatic DNS updates,
// supported by virtually all authoritative DNS servers including BIND,
// Windows DNS, PowerDNS, Knot DNS, NSD, and Technitium.
//
// Each publish is a single UPDATE transaction that deletes the existing
// TXT RRset at every owner name in the record set and inserts the new
// records, so repeated runs converge on the current flattened state.
//
// # Features
//
//   - TSIG authentication (HMAC-SHA256, SHA512, MD5)
//   - Atomic replacement via native DNS UPDATE
//   - TCP or UDP transport
//
// # Configuration
//
// Instance configuration keys (from the config file or environment):
//
//	# Required
//	SERVER=ns1.example.com:53
//	ZONE=example.com
//
//	# TSIG authentication (recommended)
//	TSIG_KEY_NAME=spfweaver.
//	TSIG_SECRET=base64-encoded-secret
//	TSIG_ALGORITHM=hmac-sha256
//
//	# Optional
//	TIMEOUT=10
//	USE_TCP=false
//
// # Usage
//
// The provider is registered with the provider registry using the Factory
// function:
//
//	registry.RegisterFactory("rfc2136", rfc2136.Factory(logger))
package rfc2136
