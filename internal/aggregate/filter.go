package aggregate

import (
	"strings"

	"saldo/internal/core"
)

// Filter narrows the visible records of a period. The zero value matches
// everything.
type Filter struct {
	Search   string
	Category core.Category // empty means every category
}

// Match reports whether r passes both the category filter and the search.
// The search is a case-insensitive substring test over every displayed
// field.
func (f Filter) Match(r core.Expense) bool {
	if f.Category != "" && r.Category.Normalize() != f.Category {
		return false
	}
	q := strings.ToLower(strings.TrimSpace(f.Search))
	if q == "" {
		return true
	}
	fields := []string{
		r.ID,
		r.Description,
		r.Category.Normalize().Label(),
		string(r.Category.Normalize()),
		r.Status.Label(),
		string(r.Status),
		r.Amount.String(),
		r.Amount.Format(),
		r.Date.String(),
	}
	for _, field := range fields {
		if strings.Contains(strings.ToLower(field), q) {
			return true
		}
	}
	return false
}

// Apply returns the matching records in their original order.
func (f Filter) Apply(records []core.Expense) []core.Expense {
	out := make([]core.Expense, 0, len(records))
	for _, r := range records {
		if f.Match(r) {
			out = append(out, r)
		}
	}
	return out
}
