// Package resolver implements DNS lookups for SPF expansion using
// github.com/miekg/dns with configurable nameservers, timeout and retries.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/netip"
	"strings"
	"time"

	mdns "github.com/miekg/dns"

	"gitlab.bluewillows.net/root/spfweaver/internal/metrics"
	"gitlab.bluewillows.net/root/spfweaver/pkg/spf"
)

// Resolver-level errors for upstream failures that are not "no such name".
var (
	ErrServFail = errors.New("resolver: upstream returned SERVFAIL")
	ErrRefused  = errors.New("resolver: upstream refused the query")
)

// Config contains configuration for the DNS resolver.
type Config struct {
	// Nameservers is a list of DNS servers to query (e.g., "8.8.8.8:53").
	// If empty, system resolvers from /etc/resolv.conf are used,
	// falling back to public DNS (8.8.8.8, 1.1.1.1).
	Nameservers []string

	// Timeout is the timeout for individual DNS queries. Default is 5 seconds.
	Timeout time.Duration

	// Retries is the number of retries for failed queries. Default is 2.
	Retries int
}

// Resolver implements the lookup interface the flattener expects. It queries
// each configured nameserver in turn and retries on transient failures.
type Resolver struct {
	config Config
	client *mdns.Client
}

// New creates a resolver, applying defaults for unset config fields.
func New(config Config) *Resolver {
	if config.Timeout == 0 {
		config.Timeout = 5 * time.Second
	}
	if config.Retries == 0 {
		config.Retries = 2
	}
	if len(config.Nameservers) == 0 {
		config.Nameservers = systemNameservers()
	} else {
		servers := make([]string, 0, len(config.Nameservers))
		for _, s := range config.Nameservers {
			servers = append(servers, withDefaultPort(s))
		}
		config.Nameservers = servers
	}

	return &Resolver{
		config: config,
		client: &mdns.Client{
			Timeout: config.Timeout,
		},
	}
}

// systemNameservers reads the system DNS servers from resolv.conf.
func systemNameservers() []string {
	config, err := mdns.ClientConfigFromFile("/etc/resolv.conf")
	if err != nil || len(config.Servers) == 0 {
		// Fallback to common public DNS servers
		return []string{"8.8.8.8:53", "1.1.1.1:53"}
	}

	servers := make([]string, 0, len(config.Servers))
	for _, s := range config.Servers {
		servers = append(servers, withDefaultPort(s))
	}
	return servers
}

func withDefaultPort(server string) string {
	if _, _, err := net.SplitHostPort(server); err != nil {
		return server + ":53"
	}
	return server
}

// query performs one DNS query with retries across all nameservers.
// NXDOMAIN maps to spf.ErrNotFound so callers can treat a missing name as a
// soft failure.
func (r *Resolver) query(ctx context.Context, name string, qtype uint16) (*mdns.Msg, error) {
	m := new(mdns.Msg)
	m.SetQuestion(mdns.Fqdn(name), qtype)
	m.RecursionDesired = true

	metrics.DNSQueriesTotal.WithLabelValues(mdns.TypeToString[qtype]).Inc()

	var lastErr error
	for i := 0; i <= r.config.Retries; i++ {
		for _, server := range r.config.Nameservers {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			default:
			}

			resp, _, err := r.client.ExchangeContext(ctx, m, server)
			if err != nil {
				lastErr = fmt.Errorf("resolver: query %s %s via %s: %w",
					mdns.TypeToString[qtype], name, server, err)
				continue
			}

			switch resp.Rcode {
			case mdns.RcodeSuccess:
				return resp, nil
			case mdns.RcodeNameError: // NXDOMAIN
				return nil, fmt.Errorf("%w: %s", spf.ErrNotFound, name)
			case mdns.RcodeServerFailure:
				lastErr = fmt.Errorf("%w: %s %s", ErrServFail, mdns.TypeToString[qtype], name)
				continue
			case mdns.RcodeRefused:
				lastErr = fmt.Errorf("%w: %s %s", ErrRefused, mdns.TypeToString[qtype], name)
				continue
			default:
				lastErr = fmt.Errorf("resolver: unexpected rcode %s for %s",
					mdns.RcodeToString[resp.Rcode], name)
				continue
			}
		}
	}

	if lastErr != nil {
		return nil, lastErr
	}
	return nil, fmt.Errorf("%w: %s", ErrServFail, name)
}

// LookupTXT retrieves TXT records for the given domain. The character-strings
// of each record are concatenated per RFC 7208 Section 3.3.
func (r *Resolver) LookupTXT(ctx context.Context, name string) ([]string, error) {
	resp, err := r.query(ctx, name, mdns.TypeTXT)
	if err != nil {
		return nil, err
	}

	var records []string
	for _, rr := range resp.Answer {
		if txt, ok := rr.(*mdns.TXT); ok {
			records = append(records, strings.Join(txt.Txt, ""))
		}
	}

	if len(records) == 0 {
		return nil, fmt.Errorf("%w: no TXT records for %s", spf.ErrNotFound, name)
	}
	return records, nil
}

// LookupA retrieves the IPv4 addresses of the given domain's A records.
func (r *Resolver) LookupA(ctx context.Context, name string) ([]netip.Addr, error) {
	resp, err := r.query(ctx, name, mdns.TypeA)
	if err != nil {
		return nil, err
	}

	var addrs []netip.Addr
	for _, rr := range resp.Answer {
		a, ok := rr.(*mdns.A)
		if !ok {
			continue
		}
		if addr, ok := netip.AddrFromSlice(a.A.To4()); ok {
			addrs = append(addrs, addr)
		}
	}

	if len(addrs) == 0 {
		return nil, fmt.Errorf("%w: no A records for %s", spf.ErrNotFound, name)
	}
	return addrs, nil
}

// LookupMX retrieves the exchange host names of the given domain's MX
// records, trailing dots trimmed.
func (r *Resolver) LookupMX(ctx context.Context, name string) ([]string, error) {
	resp, err := r.query(ctx, name, mdns.TypeMX)
	if err != nil {
		return nil, err
	}

	var hosts []string
	for _, rr := range resp.Answer {
		if mx, ok := rr.(*mdns.MX); ok {
			hosts = append(hosts, strings.TrimSuffix(mx.Mx, "."))
		}
	}

	if len(hosts) == 0 {
		return nil, fmt.Errorf("%w: no MX records for %s", spf.ErrNotFound, name)
	}
	return hosts, nil
}
