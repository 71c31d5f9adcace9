// Package cache stores each session's latest search results until they are replaced or invalidated.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/recipe-share/internal/types"
)

// Status is the outcome class of the search that produced an entry.
type Status string

const (
	StatusOK           Status = "ok"
	StatusNoCandidates Status = "no_candidates"
	StatusFailed       Status = "failed"
)

// Entry is one session's cached search.
type Entry struct {
	SearchID  uuid.UUID            `json:"search_id"`
	Query     types.SearchQuery    `json:"query"`
	Results   []types.RankedResult `json:"results"`
	Status    Status               `json:"status"`
	Reason    string               `json:"reason,omitempty"`
	CreatedAt time.Time            `json:"created_at"`
}

// Clone returns a copy whose result slice is independent of e's.
func (e *Entry) Clone() *Entry {
	if e == nil {
		return nil
	}
	out := *e
	out.Query.Terms = append([]string(nil), e.Query.Terms...)
	out.Results = types.CloneResults(e.Results)
	return &out
}

// Find returns the index of the result with the given title, or -1.
func (e *Entry) Find(title string) int {
	for i, r := range e.Results {
		if r.Title == title {
			return i
		}
	}
	return -1
}

// Cache holds per-session search results. Entries never expire on their own.
//
// Each session has at most one current search. Begin makes a search current and Put only
// stores entries produced by it, so a slower search can never replace a newer one even when
// several server instances share the backend.
type Cache interface {
	// Get returns (nil, nil) when the session has no entry.
	Get(ctx context.Context, sessionID string) (*Entry, error)
	// Begin makes searchID the session's current search and removes its entry.
	Begin(ctx context.Context, sessionID string, searchID uuid.UUID) error
	// Put replaces the session's entry if entry.SearchID is still the current search.
	// It reports false, with no error, when a newer search has begun.
	Put(ctx context.Context, sessionID string, entry *Entry) (bool, error)
	// Invalidate removes the session's entry and forgets its current search.
	Invalidate(ctx context.Context, sessionID string) error
}

// Error wraps a cache backend failure.
type Error struct {
	Op        string
	SessionID string
	Cause     error
}

func (e *Error) Error() string {
	return fmt.Sprintf("cache %s for session %s: %v", e.Op, e.SessionID, e.Cause)
}

func (e *Error) Unwrap() error {
	return e.Cause
}
