package spf

import "fmt"

// reservedLookups is the single query a validator spends resolving the
// top-level include that points at the flattened record set. It is charged
// up front so the expander can never publish a policy that blows the limit.
const reservedLookups = 1

// Budget tracks DNS lookups consumed during one expansion run against the
// RFC 7208 ceiling. Every resolver call the expander issues — TXT for
// include/redirect, A for the a mechanism, MX plus the per-exchange A
// lookups for mx — takes one unit.
type Budget struct {
	used    int
	ceiling int
}

// NewBudget returns a budget with the protocol ceiling of QueryLimit.
func NewBudget() *Budget {
	return &Budget{ceiling: QueryLimit}
}

// Take consumes one lookup unit. It fails with ErrBudgetExceeded when the
// lookup, together with the reserved top-level query, would push a validator
// past the ceiling.
func (b *Budget) Take() error {
	if b.used+1+reservedLookups > b.ceiling {
		return fmt.Errorf("%w (%d issued, %d reserved, ceiling %d)",
			ErrBudgetExceeded, b.used, reservedLookups, b.ceiling)
	}
	b.used++
	return nil
}

// Used returns the number of lookups issued so far.
func (b *Budget) Used() int {
	return b.used
}

// Total returns the validator-side query count for the published policy:
// lookups issued during expansion plus the reserved top-level query.
func (b *Budget) Total() int {
	return b.used + reservedLookups
}
