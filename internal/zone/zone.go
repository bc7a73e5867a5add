// Package zone reads the seed SPF policy out of a zone file and renders the
// flattened record set back as zone-file TXT lines.
package zone

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	mdns "github.com/miekg/dns"

	"gitlab.bluewillows.net/root/spfweaver/pkg/provider"
	"gitlab.bluewillows.net/root/spfweaver/pkg/spf"
)

// SeedLabel is the owner label of the seed TXT record inside the zone file:
// the unflattened policy lives at mkspf.<domain>.
const SeedLabel = "mkspf"

// ErrNoSeed reports a zone file without a seed record. This is fatal; there
// is nothing to flatten.
var ErrNoSeed = errors.New("zone: seed record not found")

// DomainFromPath derives the root domain from the seed file's base name.
// Only known zone-file extensions are stripped so that a file named after
// the bare domain (example.com) keeps its trailing label.
func DomainFromPath(path string) string {
	base := filepath.Base(path)
	for _, ext := range []string{".zone", ".db", ".txt"} {
		if strings.HasSuffix(base, ext) {
			return strings.TrimSuffix(base, ext)
		}
	}
	return base
}

// SeedRecord parses the zone file at path and returns the content of the
// mkspf.<domain> TXT record, its quoted strings concatenated. Relative owner
// names resolve against the domain as origin.
func SeedRecord(path, domain string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("zone: open seed file: %w", err)
	}
	defer f.Close()

	owner := mdns.Fqdn(SeedLabel + "." + domain)

	zp := mdns.NewZoneParser(f, mdns.Fqdn(domain), path)
	zp.SetDefaultTTL(3600)
	for rr, ok := zp.Next(); ok; rr, ok = zp.Next() {
		txt, isTXT := rr.(*mdns.TXT)
		if !isTXT {
			continue
		}
		if !strings.EqualFold(txt.Header().Name, owner) {
			continue
		}
		return strings.Join(txt.Txt, ""), nil
	}
	if err := zp.Err(); err != nil {
		return "", fmt.Errorf("zone: parse %s: %w", path, err)
	}

	return "", fmt.Errorf("%w: %s in %s", ErrNoSeed, owner, path)
}

// Render formats the record set as zone-file TXT RR lines. The output
// carries no timestamps, so rendering the same record set twice yields
// byte-identical bytes.
func Render(domain string, ttl uint32, records []spf.Record) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "; flattened SPF record set for %s\n", domain)
	b.WriteString("; managed by spfweaver, do not edit\n")

	for _, r := range records {
		fmt.Fprintf(&b, "%s. %d IN TXT", r.Name, ttl)
		for _, s := range r.Strings() {
			fmt.Fprintf(&b, " %q", s)
		}
		b.WriteByte('\n')
	}
	return []byte(b.String())
}

// RenderSet is Render for publishable records, which carry their own TTL
// and pre-split character-strings.
func RenderSet(domain string, records []provider.Record) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "; flattened SPF record set for %s\n", domain)
	b.WriteString("; managed by spfweaver, do not edit\n")

	for _, r := range records {
		fmt.Fprintf(&b, "%s. %d IN TXT", r.Name, r.TTL)
		for _, s := range r.Strings {
			fmt.Fprintf(&b, " %q", s)
		}
		b.WriteByte('\n')
	}
	return []byte(b.String())
}
