package spf

import (
	"fmt"
	"strings"
)

// Record is one TXT record of the published set: an owner name (without
// trailing dot) and the full SPF record content.
type Record struct {
	Name    string
	Content string
}

// Strings splits the record content into the quoted character-strings of
// the rendered TXT RR, each at most MaxStringLen bytes. The first string is
// the version tag alone; continuation strings start with a space and break
// only on token boundaries, so concatenating them reproduces Content.
func (r Record) Strings() []string {
	fields := strings.Fields(r.Content)
	if len(fields) == 0 {
		return nil
	}

	out := []string{fields[0]}
	var cur strings.Builder
	for _, tok := range fields[1:] {
		if cur.Len() > 0 && cur.Len()+1+len(tok) > MaxStringLen {
			out = append(out, cur.String())
			cur.Reset()
		}
		cur.WriteByte(' ')
		cur.WriteString(tok)
	}
	if cur.Len() > 0 {
		out = append(out, cur.String())
	}
	return out
}

// TopLevelName returns the owner name of the record a domain's published
// SPF policy points at: domain's own record carries include:_spf.<domain>.
func TopLevelName(domain string) string {
	return "_spf." + domain
}

// subRecordName returns the owner name of the Nth (1-based) sub-record.
func subRecordName(domain string, n int) string {
	return fmt.Sprintf("_%d._spf.%s", n, domain)
}

// maxPayload computes the content budget for one sub-record: the UDP
// response limit minus the protocol overhead estimate, the longest possible
// sub-record owner name, the version prefix and the terminator text.
func maxPayload(domain, terminator string) int {
	longestLabel := len(subRecordName(domain, 99))
	n := MaxUDPPayload - ResponseOverhead - longestLabel - len(Version)
	if terminator != "" {
		n -= len(terminator) + 1
	}
	return n
}

// BuildRecords partitions the flattened token list into a published record
// set. When everything fits into a single bucket the result is one
// _spf.<domain> record carrying the tokens inline. Otherwise each bucket
// becomes a 1-based _N._spf.<domain> sub-record and the top-level record
// holds one include per bucket. The terminator (the root's all terms) is
// appended to every record.
func BuildRecords(domain string, tokens, terminators []string) ([]Record, error) {
	terminator := strings.Join(terminators, " ")

	ceiling := maxPayload(domain, terminator)
	if ceiling <= 0 {
		return nil, fmt.Errorf("spf: no payload budget left for %s records", domain)
	}

	buckets := packTokens(tokens, ceiling)

	if len(buckets) <= 1 {
		var only []string
		if len(buckets) == 1 {
			only = buckets[0]
		}
		return []Record{{
			Name:    TopLevelName(domain),
			Content: recordContent(only, terminator),
		}}, nil
	}

	records := make([]Record, 0, len(buckets)+1)
	includes := make([]string, 0, len(buckets))
	for i, bucket := range buckets {
		name := subRecordName(domain, i+1)
		includes = append(includes, "include:"+name)
		records = append(records, Record{
			Name:    name,
			Content: recordContent(bucket, terminator),
		})
	}

	top := Record{
		Name:    TopLevelName(domain),
		Content: recordContent(includes, terminator),
	}
	return append([]Record{top}, records...), nil
}

// packTokens greedily fills buckets: a token goes into the current bucket
// unless that would exceed the payload ceiling, in which case the bucket is
// closed and a new one opened. Tokens are never split.
func packTokens(tokens []string, ceiling int) [][]string {
	var buckets [][]string
	var cur []string
	curLen := 0

	for _, tok := range tokens {
		cost := 1 + len(tok) // leading space
		if len(cur) > 0 && curLen+cost > ceiling {
			buckets = append(buckets, cur)
			cur = nil
			curLen = 0
		}
		cur = append(cur, tok)
		curLen += cost
	}
	if len(cur) > 0 {
		buckets = append(buckets, cur)
	}
	return buckets
}

// recordContent renders one record: version tag, tokens, terminator.
func recordContent(tokens []string, terminator string) string {
	var b strings.Builder
	b.WriteString(Version)
	for _, tok := range tokens {
		b.WriteByte(' ')
		b.WriteString(tok)
	}
	if terminator != "" {
		b.WriteByte(' ')
		b.WriteString(terminator)
	}
	return b.String()
}
