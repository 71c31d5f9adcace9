// Package search ties the crawler, reconciler and result cache into the search and save/unsave surfaces.
package search

import "fmt"

// NotFoundError reports that a session has no cached search, or that a title is not among its results.
type NotFoundError struct {
	SessionID string
	Title     string
}

func (e *NotFoundError) Error() string {
	if e.Title != "" {
		return fmt.Sprintf("recipe %q not found in current search results", e.Title)
	}
	return fmt.Sprintf("no search results for session %s", e.SessionID)
}
