package spf

import (
	"strconv"
	"strings"
)

// Qualifier is the prefix on an SPF mechanism indicating the result a match
// produces (RFC 7208 section 4.6.2). The default is pass.
type Qualifier byte

const (
	QualifierPass     Qualifier = '+'
	QualifierFail     Qualifier = '-'
	QualifierSoftfail Qualifier = '~'
	QualifierNeutral  Qualifier = '?'
)

// Mechanism identifies the kind of a parsed SPF term.
type Mechanism string

const (
	MechanismAll      Mechanism = "all"
	MechanismInclude  Mechanism = "include"
	MechanismA        Mechanism = "a"
	MechanismMX       Mechanism = "mx"
	MechanismPTR      Mechanism = "ptr"
	MechanismIP4      Mechanism = "ip4"
	MechanismIP6      Mechanism = "ip6"
	MechanismExists   Mechanism = "exists"
	MechanismRedirect Mechanism = "redirect"

	// MechanismVersion is the v=spf1 tag. Recognized so the expander can
	// skip it silently.
	MechanismVersion Mechanism = "version"

	// MechanismUnknown is the fallback for terms outside the recognized
	// vocabulary. Such terms are warned about and dropped.
	MechanismUnknown Mechanism = "unknown"
)

// Directive is a single parsed SPF term. It is immutable once parsed.
type Directive struct {
	Qualifier Qualifier
	Mechanism Mechanism

	// Value is the mechanism argument: a domain for include/redirect/a/mx,
	// an address or CIDR block for ip4/ip6. Empty when the mechanism takes
	// no argument or implies the current domain.
	Value string

	// PrefixLen is the optional /prefix-length suffix accepted by the a
	// and mx mechanisms, applied to every address they resolve to.
	// -1 when absent.
	PrefixLen int

	// Raw is the original term text, qualifier included.
	Raw string
}

// ParseDirective parses one whitespace-delimited SPF term into a tagged
// Directive. It never fails: unrecognized terms come back as
// MechanismUnknown and are dealt with by the caller.
func ParseDirective(term string) Directive {
	d := Directive{Qualifier: QualifierPass, PrefixLen: -1, Raw: term}

	rest := term
	if rest != "" {
		switch q := Qualifier(rest[0]); q {
		case QualifierPass, QualifierFail, QualifierSoftfail, QualifierNeutral:
			d.Qualifier = q
			rest = rest[1:]
		}
	}
	if rest == "" {
		d.Mechanism = MechanismUnknown
		return d
	}

	lower := strings.ToLower(rest)
	switch {
	case strings.HasPrefix(lower, "v="):
		d.Mechanism = MechanismVersion
		d.Value = rest[2:]
		return d
	case strings.HasPrefix(lower, "redirect="):
		d.Mechanism = MechanismRedirect
		d.Value = rest[len("redirect="):]
		return d
	}

	name, value, _ := strings.Cut(rest, ":")

	// a and mx accept a trailing /prefix-length on either the bare
	// mechanism (a/24) or the domain argument (a:mail.example.org/24).
	base := name
	prefix := -1
	if j := strings.IndexByte(name, '/'); j >= 0 {
		base = name[:j]
		prefix = parsePrefixLen(name[j+1:])
	}

	switch m := Mechanism(strings.ToLower(base)); m {
	case MechanismAll:
		if value != "" || prefix >= 0 {
			d.Mechanism = MechanismUnknown
			return d
		}
		d.Mechanism = MechanismAll

	case MechanismA, MechanismMX:
		d.Mechanism = m
		if j := strings.LastIndexByte(value, '/'); j >= 0 {
			prefix = parsePrefixLen(value[j+1:])
			value = value[:j]
		}
		d.Value = value
		d.PrefixLen = prefix

	case MechanismInclude, MechanismIP4, MechanismIP6, MechanismExists:
		if prefix >= 0 {
			// ip4:10.0.0.0/8 keeps its mask inside Value; a slash on the
			// mechanism name itself is malformed here.
			d.Mechanism = MechanismUnknown
			return d
		}
		d.Mechanism = m
		d.Value = value

	case MechanismPTR:
		d.Mechanism = MechanismPTR
		d.Value = value

	default:
		d.Mechanism = MechanismUnknown
	}

	return d
}

// parsePrefixLen parses a prefix-length suffix, returning -1 for garbage.
// Range validation happens when the prefix is applied to a concrete address.
func parsePrefixLen(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return -1
	}
	return n
}
