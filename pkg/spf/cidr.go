package spf

import (
	"fmt"
	"net/netip"
	"sort"
	"strings"
)

// Aggregator accumulates IPv4 and IPv6 address ranges and keeps each family
// normalized to its minimal covering set: contained ranges deduplicate,
// adjacent sibling blocks collapse into their parent. No provenance is kept;
// two mechanisms contributing overlapping ranges merge transparently.
type Aggregator struct {
	v4 []netip.Prefix
	v6 []netip.Prefix
}

// NewAggregator returns an empty aggregator.
func NewAggregator() *Aggregator {
	return &Aggregator{}
}

// ParsePrefixValue parses an ip4/ip6 mechanism value: either a bare address
// or an explicit CIDR block.
func ParsePrefixValue(s string) (netip.Prefix, error) {
	if strings.ContainsRune(s, '/') {
		p, err := netip.ParsePrefix(s)
		if err != nil {
			return netip.Prefix{}, fmt.Errorf("invalid CIDR block %q: %w", s, err)
		}
		return canonical(p), nil
	}
	addr, err := netip.ParseAddr(s)
	if err != nil {
		return netip.Prefix{}, fmt.Errorf("invalid address %q: %w", s, err)
	}
	addr = addr.Unmap()
	return netip.PrefixFrom(addr, addr.BitLen()), nil
}

// Add inserts a range and renormalizes the owning family.
func (a *Aggregator) Add(p netip.Prefix) {
	p = canonical(p)
	if p.Addr().Is4() {
		a.v4 = mergePrefixes(append(a.v4, p))
	} else {
		a.v6 = mergePrefixes(append(a.v6, p))
	}
}

// AddAddr inserts a single address, optionally widened to prefixLen (the
// a/mx mechanisms' /prefix-length suffix). A prefixLen of -1 or one that is
// out of range for the address family means the bare address.
func (a *Aggregator) AddAddr(addr netip.Addr, prefixLen int) {
	addr = addr.Unmap()
	bits := prefixLen
	if bits < 0 || bits > addr.BitLen() {
		bits = addr.BitLen()
	}
	a.Add(netip.PrefixFrom(addr, bits))
}

// Tokens renders the aggregated set as SPF address tokens: sorted ip4:
// entries followed by sorted ip6: entries. Host-sized prefixes render as
// bare addresses. The order is deterministic so repeated runs over
// unchanged inputs produce identical output.
func (a *Aggregator) Tokens() []string {
	tokens := make([]string, 0, len(a.v4)+len(a.v6))
	for _, p := range a.v4 {
		tokens = append(tokens, formatToken("ip4", p))
	}
	for _, p := range a.v6 {
		tokens = append(tokens, formatToken("ip6", p))
	}
	return tokens
}

// Len returns the number of distinct ranges currently held.
func (a *Aggregator) Len() int {
	return len(a.v4) + len(a.v6)
}

func formatToken(kind string, p netip.Prefix) string {
	if p.IsSingleIP() {
		return kind + ":" + p.Addr().String()
	}
	return kind + ":" + p.String()
}

// canonical unmaps 4-in-6 addresses and masks host bits off the prefix.
func canonical(p netip.Prefix) netip.Prefix {
	addr := p.Addr()
	if addr.Is4In6() {
		bits := p.Bits() - 96
		if bits < 0 {
			bits = 0
		}
		p = netip.PrefixFrom(addr.Unmap(), bits)
	}
	return p.Masked()
}

// mergePrefixes reduces a set of same-family prefixes to its minimal
// covering form: sort, drop ranges contained in an earlier one, then
// repeatedly collapse adjacent equal-size siblings into their parent block.
func mergePrefixes(ps []netip.Prefix) []netip.Prefix {
	if len(ps) < 2 {
		return ps
	}

	sort.Slice(ps, func(i, j int) bool {
		if c := ps[i].Addr().Compare(ps[j].Addr()); c != 0 {
			return c < 0
		}
		return ps[i].Bits() < ps[j].Bits()
	})

	kept := ps[:0]
	for _, p := range ps {
		if n := len(kept); n > 0 {
			last := kept[n-1]
			if last.Bits() <= p.Bits() && last.Contains(p.Addr()) {
				continue
			}
		}
		kept = append(kept, p)
	}

	for {
		merged := false
		out := kept[:0]
		for i := 0; i < len(kept); i++ {
			if i+1 < len(kept) && siblings(kept[i], kept[i+1]) {
				out = append(out, netip.PrefixFrom(kept[i].Addr(), kept[i].Bits()-1))
				i++
				merged = true
				continue
			}
			out = append(out, kept[i])
		}
		kept = out
		if !merged {
			return kept
		}
	}
}

// siblings reports whether lo and hi are the two halves of a common parent
// block, with lo being the lower half.
func siblings(lo, hi netip.Prefix) bool {
	if lo.Bits() != hi.Bits() || lo.Bits() == 0 {
		return false
	}
	parent := netip.PrefixFrom(lo.Addr(), lo.Bits()-1).Masked()
	return parent.Addr() == lo.Addr() && parent.Contains(hi.Addr())
}
