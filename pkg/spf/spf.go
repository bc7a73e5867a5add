// Package spf flattens nested SPF policies into a bounded set of TXT records.
//
// An SPF policy that leans on include/redirect chains forces validators to
// perform one DNS lookup per referenced domain, and RFC 7208 caps evaluation
// at 10 queries. This package resolves the whole mechanism tree down to plain
// ip4/ip6 address blocks, merges the blocks into a minimal CIDR set, and
// partitions the result into sub-records that fit inside a single UDP DNS
// response.
package spf

import "errors"

// Protocol constants. These are fixed by RFC 7208 and RFC 1035, not tunable.
const (
	// QueryLimit is the maximum number of DNS lookups a validator may
	// perform while evaluating one SPF policy (RFC 7208 section 4.6.4).
	QueryLimit = 10

	// MaxStringLen is the maximum length of a single character-string
	// inside a TXT record (RFC 1035 section 3.3).
	MaxStringLen = 255

	// MaxUDPPayload is the classic DNS-over-UDP message size limit.
	MaxUDPPayload = 512

	// ResponseOverhead estimates the non-answer portion of a TXT response:
	// header, question section and the fixed resource record fields.
	ResponseOverhead = 32

	// Version is the SPF version tag every record starts with.
	Version = "v=spf1"
)

// Sentinel errors for the flattening pipeline.
var (
	// ErrNotFound is returned by Resolver implementations when the queried
	// name has no records of the requested type.
	ErrNotFound = errors.New("spf: name not found")

	// ErrNotSPF is returned when a seed record does not carry the SPF
	// version tag.
	ErrNotSPF = errors.New("spf: record is not an SPF record")

	// ErrBudgetExceeded is returned when expansion would push the
	// validator-side lookup count past QueryLimit. The run is aborted and
	// no output is produced.
	ErrBudgetExceeded = errors.New("spf: DNS lookup limit exceeded")

	// ErrIncludeLoop is returned when an include/redirect chain revisits a
	// domain already on the current expansion path.
	ErrIncludeLoop = errors.New("spf: include/redirect loop detected")
)

// IsSPF reports whether a TXT record value is an SPF record.
func IsSPF(record string) bool {
	return record == Version || len(record) > len(Version) &&
		record[:len(Version)] == Version && record[len(Version)] == ' '
}
