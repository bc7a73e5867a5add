package spf

import (
	"context"
	"fmt"
	"log/slog"
	"net/netip"
	"strings"
)

// Resolver is the DNS collaborator the expander queries while walking
// include/redirect chains and resolving a/mx mechanisms. Implementations
// return ErrNotFound (possibly wrapped) when the name has no records of the
// requested type.
type Resolver interface {
	// LookupTXT returns the TXT record values for name, each record's
	// character-strings already concatenated.
	LookupTXT(ctx context.Context, name string) ([]string, error)

	// LookupA returns the IPv4 addresses of name's A records.
	LookupA(ctx context.Context, name string) ([]netip.Addr, error)

	// LookupMX returns the exchange host names of name's MX records.
	LookupMX(ctx context.Context, name string) ([]string, error)
}

// Flattener expands a seed SPF policy into a flat address set. It is
// stateless across runs; every Flatten call owns its expansion state, so a
// single Flattener may be reused (watch mode re-flattens on a timer).
type Flattener struct {
	resolver Resolver
	logger   *slog.Logger
}

// Option is a functional option for configuring the Flattener.
type Option func(*Flattener)

// WithLogger sets a custom logger for expansion diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(f *Flattener) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// New creates a Flattener backed by the given resolver.
func New(resolver Resolver, opts ...Option) *Flattener {
	f := &Flattener{
		resolver: resolver,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Result is the outcome of one expansion run.
type Result struct {
	// Domain is the root domain the seed policy belongs to.
	Domain string

	// Tokens is the flattened address set: sorted ip4: tokens followed by
	// sorted ip6: tokens.
	Tokens []string

	// Terminators are the root domain's trailing all terms, qualifier text
	// preserved. Catch-alls from included or redirected domains are
	// dropped: only the root's terminator survives flattening.
	Terminators []string

	// Lookups is the number of DNS queries issued during expansion.
	// A validator evaluating the published set spends Lookups+1 of its
	// RFC 7208 budget (one for the top-level include).
	Lookups int

	// Warnings counts the mechanisms that were skipped with a diagnostic:
	// unresolvable targets, unsupported or unknown mechanisms, malformed
	// address values. Warnings never fail the run.
	Warnings int
}

// expansion is the state threaded through one recursive run. It is owned by
// exactly one Flatten call; nothing here is shared or locked.
type expansion struct {
	root        string
	budget      *Budget
	agg         *Aggregator
	terminators []string
	onPath      map[string]struct{}
	warnings    int
}

// Flatten recursively expands the seed SPF record of the given root domain.
// The seed is supplied by the caller (extracted from a zone file, not
// fetched over DNS) and must carry the SPF version tag.
//
// Mechanism-level failures are warnings: the offending term contributes
// nothing and expansion continues. Only three conditions are fatal: a seed
// that is not an SPF record, an include/redirect loop, and lookup-budget
// exhaustion. On a fatal error no result is returned.
func (f *Flattener) Flatten(ctx context.Context, domain, seed string) (*Result, error) {
	if !IsSPF(seed) {
		return nil, fmt.Errorf("%w: seed record for %s", ErrNotSPF, domain)
	}

	st := &expansion{
		root:   domain,
		budget: NewBudget(),
		agg:    NewAggregator(),
		onPath: make(map[string]struct{}),
	}

	if err := f.expand(ctx, st, domain, seed); err != nil {
		return nil, err
	}

	return &Result{
		Domain:      domain,
		Tokens:      st.agg.Tokens(),
		Terminators: st.terminators,
		Lookups:     st.budget.Used(),
		Warnings:    st.warnings,
	}, nil
}

// expand processes one domain's term list, dispatching each directive.
func (f *Flattener) expand(ctx context.Context, st *expansion, domain, record string) error {
	st.onPath[domain] = struct{}{}
	defer delete(st.onPath, domain)

	for _, term := range strings.Fields(record) {
		d := ParseDirective(term)

		switch d.Mechanism {
		case MechanismVersion:
			// Skipped silently.

		case MechanismAll:
			// Only the root's catch-all survives flattening.
			if domain == st.root {
				st.terminators = append(st.terminators, d.Raw)
			}

		case MechanismIP4, MechanismIP6:
			f.addLiteral(st, domain, d)

		case MechanismInclude, MechanismRedirect:
			if err := f.expandTarget(ctx, st, domain, d); err != nil {
				return err
			}

		case MechanismA:
			target := d.Value
			if target == "" {
				target = domain
			}
			if err := f.addHostAddresses(ctx, st, domain, target, d); err != nil {
				return err
			}

		case MechanismMX:
			if err := f.addExchangeAddresses(ctx, st, domain, d); err != nil {
				return err
			}

		case MechanismExists, MechanismPTR:
			f.warn(st, "unsupported mechanism dropped",
				slog.String("domain", domain),
				slog.String("term", d.Raw),
			)

		default:
			f.warn(st, "unknown mechanism dropped",
				slog.String("domain", domain),
				slog.String("term", d.Raw),
			)
		}
	}
	return nil
}

// addLiteral feeds an ip4/ip6 value straight into the aggregator.
func (f *Flattener) addLiteral(st *expansion, domain string, d Directive) {
	p, err := ParsePrefixValue(d.Value)
	if err != nil {
		f.warn(st, "malformed address mechanism dropped",
			slog.String("domain", domain),
			slog.String("term", d.Raw),
			slog.String("error", err.Error()),
		)
		return
	}
	if p.Addr().Is4() != (d.Mechanism == MechanismIP4) {
		f.warn(st, "address family does not match mechanism",
			slog.String("domain", domain),
			slog.String("term", d.Raw),
		)
		return
	}
	st.agg.Add(p)
}

// expandTarget handles include and redirect: one TXT lookup, then recursion
// into the target's term list. A missing or non-SPF answer is a warning and
// the mechanism contributes nothing, also for redirect, which RFC 7208 would
// treat more strictly.
func (f *Flattener) expandTarget(ctx context.Context, st *expansion, domain string, d Directive) error {
	target := strings.TrimSuffix(d.Value, ".")
	if target == "" {
		f.warn(st, "mechanism has no target domain",
			slog.String("domain", domain),
			slog.String("term", d.Raw),
		)
		return nil
	}

	if _, revisit := st.onPath[target]; revisit {
		return fmt.Errorf("%w: %s referenced again via %s", ErrIncludeLoop, target, domain)
	}

	if err := st.budget.Take(); err != nil {
		return err
	}
	txts, err := f.resolver.LookupTXT(ctx, target)
	if err != nil {
		f.warn(st, "target has no TXT record, mechanism skipped",
			slog.String("domain", domain),
			slog.String("target", target),
			slog.String("term", d.Raw),
			slog.String("error", err.Error()),
		)
		return nil
	}

	var record string
	for _, txt := range txts {
		if IsSPF(txt) {
			record = txt
			break
		}
	}
	if record == "" {
		f.warn(st, "target has no SPF record, mechanism skipped",
			slog.String("domain", domain),
			slog.String("target", target),
		)
		return nil
	}

	return f.expand(ctx, st, target, record)
}

// addHostAddresses resolves an a mechanism target and feeds every returned
// address to the aggregator.
func (f *Flattener) addHostAddresses(ctx context.Context, st *expansion, domain, target string, d Directive) error {
	if err := st.budget.Take(); err != nil {
		return err
	}
	addrs, err := f.resolver.LookupA(ctx, strings.TrimSuffix(target, "."))
	if err != nil {
		f.warn(st, "target has no A record, mechanism skipped",
			slog.String("domain", domain),
			slog.String("target", target),
			slog.String("term", d.Raw),
			slog.String("error", err.Error()),
		)
		return nil
	}
	for _, addr := range addrs {
		st.agg.AddAddr(addr, d.PrefixLen)
	}
	return nil
}

// addExchangeAddresses resolves the mx mechanism: one MX lookup for the
// target domain, then one A lookup per exchange host. Every lookup counts
// against the budget.
func (f *Flattener) addExchangeAddresses(ctx context.Context, st *expansion, domain string, d Directive) error {
	target := d.Value
	if target == "" {
		target = domain
	}

	if err := st.budget.Take(); err != nil {
		return err
	}
	hosts, err := f.resolver.LookupMX(ctx, strings.TrimSuffix(target, "."))
	if err != nil {
		f.warn(st, "target has no MX record, mechanism skipped",
			slog.String("domain", domain),
			slog.String("target", target),
			slog.String("term", d.Raw),
			slog.String("error", err.Error()),
		)
		return nil
	}

	for _, host := range hosts {
		if err := f.addHostAddresses(ctx, st, domain, host, d); err != nil {
			return err
		}
	}
	return nil
}

func (f *Flattener) warn(st *expansion, msg string, attrs ...any) {
	st.warnings++
	f.logger.Warn(msg, attrs...)
}
