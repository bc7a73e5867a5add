package rfc2136

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/miekg/dns"

	"gitlab.bluewillows.net/root/spfweaver/pkg/provider"
)

// Compile-time interface check.
var _ provider.Provider = (*Provider)(nil)

// Provider publishes flattened record sets to an authoritative DNS server
// via RFC 2136 dynamic updates.
type Provider struct {
	name      string
	server    string
	zone      string
	tsig      *TSIG
	dnsClient *dns.Client
	logger    *slog.Logger
}

// ProviderOption is a functional option for configuring the Provider.
type ProviderOption func(*Provider)

// WithProviderLogger sets a custom logger for the provider.
func WithProviderLogger(logger *slog.Logger) ProviderOption {
	return func(p *Provider) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// New creates a new RFC 2136 provider instance.
func New(name string, config *Config, opts ...ProviderOption) (*Provider, error) {
	if config == nil {
		return nil, fmt.Errorf("config is required")
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	tsig, err := TSIGFromConfig(config)
	if err != nil {
		return nil, fmt.Errorf("invalid TSIG configuration: %w", err)
	}

	p := &Provider{
		name:   name,
		server: config.GetServer(),
		zone:   dns.Fqdn(config.Zone),
		tsig:   tsig,
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(p)
	}

	p.dnsClient = &dns.Client{Timeout: config.GetTimeout()}
	if config.UseTCP {
		p.dnsClient.Net = "tcp"
	} else {
		p.dnsClient.Net = "udp"
	}
	tsig.ApplyToClient(p.dnsClient)

	p.logger.Debug("RFC 2136 provider initialized",
		slog.String("name", name),
		slog.String("server", p.server),
		slog.String("zone", p.zone),
		slog.Bool("tsig", tsig != nil),
		slog.Bool("tcp", config.UseTCP),
	)

	return p, nil
}

// Name returns the provider instance name.
func (p *Provider) Name() string {
	return p.name
}

// Type returns "rfc2136".
func (p *Provider) Type() string {
	return "rfc2136"
}

// Ping verifies connectivity to the DNS server by querying the zone SOA.
func (p *Provider) Ping(ctx context.Context) error {
	msg := new(dns.Msg)
	msg.SetQuestion(p.zone, dns.TypeSOA)
	msg.RecursionDesired = false

	resp, rtt, err := p.exchange(ctx, msg)
	if err != nil {
		return provider.WrapError(p.name, "ping", fmt.Errorf("%w: %w", provider.ErrProviderUnavailable, err))
	}

	if resp.Rcode != dns.RcodeSuccess {
		return provider.WrapError(p.name, "ping",
			fmt.Errorf("%w: server returned %s", provider.ErrProviderUnavailable, dns.RcodeToString[resp.Rcode]))
	}

	p.logger.Debug("DNS server ping successful",
		slog.Duration("rtt", rtt),
		slog.Int("answers", len(resp.Answer)),
	)

	return nil
}

// Publish replaces the TXT record set at each record's owner name in a
// single UPDATE transaction. Existing TXT records at those names are
// removed first, so repeated publishes converge on the current set.
func (p *Provider) Publish(ctx context.Context, domain string, records []provider.Record) error {
	if len(records) == 0 {
		return provider.WrapError(p.name, "publish", fmt.Errorf("no records for %s", domain))
	}

	msg := new(dns.Msg)
	msg.SetUpdate(p.zone)

	for _, r := range records {
		hdr := dns.RR_Header{
			Name:   dns.Fqdn(r.Name),
			Rrtype: dns.TypeTXT,
			Class:  dns.ClassINET,
			Ttl:    r.TTL,
		}
		msg.RemoveRRset([]dns.RR{&dns.TXT{Hdr: hdr}})
		msg.Insert([]dns.RR{&dns.TXT{Hdr: hdr, Txt: r.Strings}})
	}

	p.tsig.ApplyToMessage(msg)

	p.logger.Debug("sending dynamic update",
		slog.String("domain", domain),
		slog.String("server", p.server),
		slog.Int("records", len(records)),
	)

	resp, _, err := p.exchange(ctx, msg)
	if err != nil {
		return provider.WrapError(p.name, "publish", fmt.Errorf("%w: %w", provider.ErrProviderUnavailable, err))
	}

	if err := checkResponse(resp); err != nil {
		return provider.WrapError(p.name, "publish", err)
	}

	p.logger.Info("record set published",
		slog.String("domain", domain),
		slog.Int("records", len(records)),
		slog.String("server", p.server),
	)

	return nil
}

// exchange performs a DNS exchange with context support.
func (p *Provider) exchange(ctx context.Context, msg *dns.Msg) (*dns.Msg, time.Duration, error) {
	type result struct {
		resp *dns.Msg
		rtt  time.Duration
		err  error
	}
	ch := make(chan result, 1)

	go func() {
		resp, rtt, err := p.dnsClient.Exchange(msg, p.server)
		ch <- result{resp, rtt, err}
	}()

	select {
	case <-ctx.Done():
		return nil, 0, ctx.Err()
	case r := <-ch:
		return r.resp, r.rtt, r.err
	}
}

// checkResponse maps an UPDATE response rcode to an error.
func checkResponse(resp *dns.Msg) error {
	if resp == nil {
		return fmt.Errorf("no response from server")
	}

	switch resp.Rcode {
	case dns.RcodeSuccess:
		return nil

	case dns.RcodeNotAuth:
		// Server is not authoritative or TSIG failed
		if resp.IsTsig() != nil {
			return fmt.Errorf("%w: %s", provider.ErrUnauthorized, dns.RcodeToString[resp.Rcode])
		}
		return fmt.Errorf("server not authoritative for zone")

	case dns.RcodeRefused:
		// Server refused the update (policy or TSIG)
		return fmt.Errorf("%w: update refused (check server policy or TSIG configuration)", provider.ErrUnauthorized)

	case dns.RcodeNotZone:
		return fmt.Errorf("record name not within zone")

	default:
		return fmt.Errorf("update failed: %s", dns.RcodeToString[resp.Rcode])
	}
}
