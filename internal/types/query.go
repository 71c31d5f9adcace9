// Package types provides type definitions for structured data used throughout the recipe-share system.
//
//nolint:revive // types is a standard Go package name pattern
package types

import "strings"

// SearchQuery is the ordered list of ingredient terms a user searched for.
// Terms are lower-cased and trimmed; duplicates are kept because they weight scoring.
type SearchQuery struct {
	Terms []string `json:"terms"`
}

// ParseSearchQuery splits free text (one ingredient per line) into a SearchQuery.
// Carriage returns are stripped and empty lines are ignored.
func ParseSearchQuery(raw string) SearchQuery {
	return NewSearchQuery(strings.Split(raw, "\n"))
}

// NewSearchQuery normalizes already-split terms.
func NewSearchQuery(terms []string) SearchQuery {
	out := make([]string, 0, len(terms))
	for _, term := range terms {
		if t := NormalizeTerm(term); t != "" {
			out = append(out, t)
		}
	}
	return SearchQuery{Terms: out}
}

// NormalizeTerm strips carriage-return artifacts and surrounding whitespace and lower-cases the term.
func NormalizeTerm(term string) string {
	term = strings.ReplaceAll(term, "\r", "")
	return strings.ToLower(strings.TrimSpace(term))
}

// IsEmpty reports whether the query has no usable terms.
func (q SearchQuery) IsEmpty() bool {
	return len(q.Terms) == 0
}

// Distinct returns the de-duplicated terms in first-seen order.
func (q SearchQuery) Distinct() []string {
	seen := make(map[string]bool, len(q.Terms))
	out := make([]string, 0, len(q.Terms))
	for _, t := range q.Terms {
		if seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

// String renders the query back into its newline-separated form.
func (q SearchQuery) String() string {
	return strings.Join(q.Terms, "\n")
}
