// Package extract turns fetched catalog and recipe pages into structured data using CSS structural anchors.
package extract

import "fmt"

// Error reports that a document lacks an expected structural anchor or could not be parsed.
// It is always recoverable: the page simply yields no candidate.
type Error struct {
	URL     string
	Anchor  string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	msg := e.Message
	if e.Anchor != "" {
		msg = fmt.Sprintf("%s (anchor %q)", msg, e.Anchor)
	}
	if e.Cause != nil {
		return fmt.Sprintf("extract error for %s: %s: %v", e.URL, msg, e.Cause)
	}
	return fmt.Sprintf("extract error for %s: %s", e.URL, msg)
}

func (e *Error) Unwrap() error {
	return e.Cause
}
