package spf

import (
	"context"
	"errors"
	"fmt"
	"net/netip"
	"reflect"
	"testing"
)

// mockResolver serves DNS answers from fixed maps and counts queries.
type mockResolver struct {
	txt map[string][]string
	a   map[string][]netip.Addr
	mx  map[string][]string

	queries int
}

func (m *mockResolver) LookupTXT(_ context.Context, name string) ([]string, error) {
	m.queries++
	if recs, ok := m.txt[name]; ok {
		return recs, nil
	}
	return nil, fmt.Errorf("TXT %s: %w", name, ErrNotFound)
}

func (m *mockResolver) LookupA(_ context.Context, name string) ([]netip.Addr, error) {
	m.queries++
	if addrs, ok := m.a[name]; ok {
		return addrs, nil
	}
	return nil, fmt.Errorf("A %s: %w", name, ErrNotFound)
}

func (m *mockResolver) LookupMX(_ context.Context, name string) ([]string, error) {
	m.queries++
	if hosts, ok := m.mx[name]; ok {
		return hosts, nil
	}
	return nil, fmt.Errorf("MX %s: %w", name, ErrNotFound)
}

func addrs(ss ...string) []netip.Addr {
	out := make([]netip.Addr, len(ss))
	for i, s := range ss {
		out[i] = netip.MustParseAddr(s)
	}
	return out
}

func TestFlattenMergesAdjacentBlocksWithoutLookups(t *testing.T) {
	f := New(&mockResolver{})

	res, err := f.Flatten(context.Background(), "example.com",
		"v=spf1 ip4:192.0.2.0/25 ip4:192.0.2.128/25 -all")
	if err != nil {
		t.Fatalf("Flatten: %v", err)
	}

	if want := []string{"ip4:192.0.2.0/24"}; !reflect.DeepEqual(res.Tokens, want) {
		t.Errorf("tokens = %v, want %v", res.Tokens, want)
	}
	if want := []string{"-all"}; !reflect.DeepEqual(res.Terminators, want) {
		t.Errorf("terminators = %v, want %v", res.Terminators, want)
	}
	if res.Lookups != 0 {
		t.Errorf("lookups = %d, want 0", res.Lookups)
	}
	if res.Warnings != 0 {
		t.Errorf("warnings = %d, want 0", res.Warnings)
	}
}

func TestFlattenExpandsNestedIncludes(t *testing.T) {
	r := &mockResolver{
		txt: map[string][]string{
			"spf.example.net": {
				"unrelated-verification=token",
				"v=spf1 ip4:198.51.100.0/24 include:deep.example.net ~all",
			},
			"deep.example.net": {"v=spf1 ip6:2001:db8::/32 -all"},
		},
	}
	f := New(r)

	res, err := f.Flatten(context.Background(), "example.com",
		"v=spf1 ip4:192.0.2.1 include:spf.example.net -all")
	if err != nil {
		t.Fatalf("Flatten: %v", err)
	}

	want := []string{"ip4:192.0.2.1", "ip4:198.51.100.0/24", "ip6:2001:db8::/32"}
	if !reflect.DeepEqual(res.Tokens, want) {
		t.Errorf("tokens = %v, want %v", res.Tokens, want)
	}
	// Only the root's catch-all survives; the included ~all and -all drop.
	if want := []string{"-all"}; !reflect.DeepEqual(res.Terminators, want) {
		t.Errorf("terminators = %v, want %v", res.Terminators, want)
	}
	if res.Lookups != 2 {
		t.Errorf("lookups = %d, want 2", res.Lookups)
	}
}

func TestFlattenRedirectBehavesLikeInclude(t *testing.T) {
	r := &mockResolver{
		txt: map[string][]string{
			"spf.example.net": {"v=spf1 ip4:203.0.113.0/24 -all"},
		},
	}
	f := New(r)

	res, err := f.Flatten(context.Background(), "example.com",
		"v=spf1 redirect=spf.example.net")
	if err != nil {
		t.Fatalf("Flatten: %v", err)
	}

	if want := []string{"ip4:203.0.113.0/24"}; !reflect.DeepEqual(res.Tokens, want) {
		t.Errorf("tokens = %v, want %v", res.Tokens, want)
	}
	if len(res.Terminators) != 0 {
		t.Errorf("terminators = %v, want none (redirect target is not the root)", res.Terminators)
	}
}

func TestFlattenMissingIncludeIsWarningNotFatal(t *testing.T) {
	f := New(&mockResolver{})

	res, err := f.Flatten(context.Background(), "example.com",
		"v=spf1 include:example.net ~all")
	if err != nil {
		t.Fatalf("Flatten: %v", err)
	}

	if len(res.Tokens) != 0 {
		t.Errorf("tokens = %v, want none", res.Tokens)
	}
	if want := []string{"~all"}; !reflect.DeepEqual(res.Terminators, want) {
		t.Errorf("terminators = %v, want %v", res.Terminators, want)
	}
	if res.Warnings != 1 {
		t.Errorf("warnings = %d, want 1", res.Warnings)
	}
}

func TestFlattenMissingRedirectIsWarningNotFatal(t *testing.T) {
	f := New(&mockResolver{})

	res, err := f.Flatten(context.Background(), "example.com",
		"v=spf1 redirect=missing.example.net ~all")
	if err != nil {
		t.Fatalf("Flatten: %v", err)
	}
	if res.Warnings != 1 {
		t.Errorf("warnings = %d, want 1", res.Warnings)
	}
}

func TestFlattenAMechanism(t *testing.T) {
	r := &mockResolver{
		a: map[string][]netip.Addr{
			"example.com":      addrs("192.0.2.10"),
			"mail.example.org": addrs("198.51.100.5", "198.51.100.9"),
		},
	}
	f := New(r)

	res, err := f.Flatten(context.Background(), "example.com",
		"v=spf1 a a:mail.example.org/31 -all")
	if err != nil {
		t.Fatalf("Flatten: %v", err)
	}

	want := []string{"ip4:192.0.2.10", "ip4:198.51.100.4/31", "ip4:198.51.100.8/31"}
	if !reflect.DeepEqual(res.Tokens, want) {
		t.Errorf("tokens = %v, want %v", res.Tokens, want)
	}
	if res.Lookups != 2 {
		t.Errorf("lookups = %d, want 2", res.Lookups)
	}
}

func TestFlattenMXMechanismCountsDependentLookups(t *testing.T) {
	r := &mockResolver{
		mx: map[string][]string{
			"example.com": {"mx1.example.com", "mx2.example.com"},
		},
		a: map[string][]netip.Addr{
			"mx1.example.com": addrs("192.0.2.20"),
			"mx2.example.com": addrs("192.0.2.21"),
		},
	}
	f := New(r)

	res, err := f.Flatten(context.Background(), "example.com", "v=spf1 mx -all")
	if err != nil {
		t.Fatalf("Flatten: %v", err)
	}

	want := []string{"ip4:192.0.2.20/31"}
	if !reflect.DeepEqual(res.Tokens, want) {
		t.Errorf("tokens = %v, want %v", res.Tokens, want)
	}
	// One MX lookup plus one A lookup per exchange host.
	if res.Lookups != 3 {
		t.Errorf("lookups = %d, want 3", res.Lookups)
	}
}

func TestFlattenUnsupportedMechanismsAreDropped(t *testing.T) {
	f := New(&mockResolver{})

	res, err := f.Flatten(context.Background(), "example.com",
		"v=spf1 exists:%{i}.sender.example.net ptr mystery:thing ip4:192.0.2.1 -all")
	if err != nil {
		t.Fatalf("Flatten: %v", err)
	}

	if want := []string{"ip4:192.0.2.1"}; !reflect.DeepEqual(res.Tokens, want) {
		t.Errorf("tokens = %v, want %v", res.Tokens, want)
	}
	if res.Warnings != 3 {
		t.Errorf("warnings = %d, want 3", res.Warnings)
	}
}

func TestFlattenAddressFamilyMismatchIsWarning(t *testing.T) {
	f := New(&mockResolver{})

	res, err := f.Flatten(context.Background(), "example.com",
		"v=spf1 ip4:2001:db8::/32 ip6:192.0.2.0/24 -all")
	if err != nil {
		t.Fatalf("Flatten: %v", err)
	}
	if len(res.Tokens) != 0 {
		t.Errorf("tokens = %v, want none", res.Tokens)
	}
	if res.Warnings != 2 {
		t.Errorf("warnings = %d, want 2", res.Warnings)
	}
}

func TestFlattenBudgetExhaustionIsFatal(t *testing.T) {
	// Nine expansion lookups plus the reserved top-level query fill the
	// ceiling; a tenth include must abort the run.
	txt := make(map[string][]string)
	seedNine := Version
	seedTen := Version
	for i := 1; i <= 10; i++ {
		domain := fmt.Sprintf("inc%d.example.net", i)
		txt[domain] = []string{"v=spf1 ip4:192.0.2.1 -all"}
		if i <= 9 {
			seedNine += " include:" + domain
		}
		seedTen += " include:" + domain
	}
	seedNine += " -all"
	seedTen += " -all"

	f := New(&mockResolver{txt: txt})

	if _, err := f.Flatten(context.Background(), "example.com", seedNine); err != nil {
		t.Fatalf("nine includes should fit the budget, got %v", err)
	}

	_, err := f.Flatten(context.Background(), "example.com", seedTen)
	if !errors.Is(err, ErrBudgetExceeded) {
		t.Fatalf("err = %v, want ErrBudgetExceeded", err)
	}
}

func TestFlattenIncludeLoopIsFatal(t *testing.T) {
	r := &mockResolver{
		txt: map[string][]string{
			"one.example.net": {"v=spf1 include:two.example.net -all"},
			"two.example.net": {"v=spf1 include:one.example.net -all"},
		},
	}
	f := New(r)

	_, err := f.Flatten(context.Background(), "example.com",
		"v=spf1 include:one.example.net -all")
	if !errors.Is(err, ErrIncludeLoop) {
		t.Fatalf("err = %v, want ErrIncludeLoop", err)
	}
}

func TestFlattenSelfIncludeIsFatal(t *testing.T) {
	f := New(&mockResolver{
		txt: map[string][]string{
			"example.com": {"v=spf1 include:example.com -all"},
		},
	})

	_, err := f.Flatten(context.Background(), "example.com",
		"v=spf1 include:example.com -all")
	if !errors.Is(err, ErrIncludeLoop) {
		t.Fatalf("err = %v, want ErrIncludeLoop", err)
	}
}

func TestFlattenRejectsNonSPFSeed(t *testing.T) {
	f := New(&mockResolver{})

	_, err := f.Flatten(context.Background(), "example.com", "verification=abc123")
	if !errors.Is(err, ErrNotSPF) {
		t.Fatalf("err = %v, want ErrNotSPF", err)
	}
}

func TestFlattenIsDeterministic(t *testing.T) {
	r := &mockResolver{
		txt: map[string][]string{
			"spf.example.net": {"v=spf1 ip4:198.51.100.0/24 ip6:2001:db8::/32 -all"},
		},
	}
	f := New(r)
	seed := "v=spf1 ip4:192.0.2.128/25 include:spf.example.net ip4:192.0.2.0/25 ~all"

	first, err := f.Flatten(context.Background(), "example.com", seed)
	if err != nil {
		t.Fatalf("Flatten: %v", err)
	}
	second, err := f.Flatten(context.Background(), "example.com", seed)
	if err != nil {
		t.Fatalf("Flatten: %v", err)
	}

	if !reflect.DeepEqual(first.Tokens, second.Tokens) {
		t.Errorf("tokens differ across runs: %v vs %v", first.Tokens, second.Tokens)
	}
	if !reflect.DeepEqual(first.Terminators, second.Terminators) {
		t.Errorf("terminators differ across runs: %v vs %v", first.Terminators, second.Terminators)
	}
}
