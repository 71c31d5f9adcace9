// Package crawling runs the two-level catalog crawl that turns a search query into ranked recipe candidates.
package crawling

import (
	"errors"
	"fmt"
)

// CatalogUnavailableError reports that no category listing yielded any recipe links.
// It fails one invocation only.
type CatalogUnavailableError struct {
	Failures []error
	Stats    Stats
}

func (e *CatalogUnavailableError) Error() string {
	if len(e.Failures) == 0 {
		return "catalog unavailable: no category listings configured"
	}
	return fmt.Sprintf("catalog unavailable: all %d category listings failed: %v", len(e.Failures), e.Failures[0])
}

func (e *CatalogUnavailableError) Unwrap() []error {
	return e.Failures
}

// NoCandidatesError reports that the crawl completed but nothing scored above zero.
type NoCandidatesError struct {
	Terms []string
	Stats Stats
}

func (e *NoCandidatesError) Error() string {
	if len(e.Terms) == 0 {
		return "no candidates: empty search query"
	}
	return fmt.Sprintf("no candidates: none of %d recipes matched %v", e.Stats.Candidates, e.Terms)
}

// IsCatalogUnavailable reports whether err is, or wraps, a CatalogUnavailableError.
func IsCatalogUnavailable(err error) bool {
	var target *CatalogUnavailableError
	return errors.As(err, &target)
}

// IsNoCandidates reports whether err is, or wraps, a NoCandidatesError.
func IsNoCandidates(err error) bool {
	var target *NoCandidatesError
	return errors.As(err, &target)
}
