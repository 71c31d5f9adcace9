package search

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jonathan/recipe-share/internal/cache"
	"github.com/jonathan/recipe-share/internal/crawling"
	"github.com/jonathan/recipe-share/internal/logger"
	"github.com/jonathan/recipe-share/internal/reconcile"
	"github.com/jonathan/recipe-share/internal/types"
)

// Crawler runs one search invocation against the catalog.
type Crawler interface {
	Crawl(ctx context.Context, query types.SearchQuery) (*crawling.Result, error)
}

// Outcome is what a search invocation resolved to. Empty outcomes carry a reason.
type Outcome struct {
	SearchID uuid.UUID            `json:"search_id"`
	Status   cache.Status         `json:"status"`
	Reason   string               `json:"reason,omitempty"`
	Results  []types.RankedResult `json:"results"`
	Stats    crawling.Stats       `json:"stats"`
	Err      error                `json:"-"`
}

// Service owns the per-session search lifecycle.
type Service struct {
	crawler    Crawler
	reconciler *reconcile.Reconciler
	cache      cache.Cache
	logger     *zap.Logger
	now        func() time.Time

	// locks serialize read-modify-write of a session's entry; sessions hash onto a fixed set
	locks [64]sync.Mutex
}

// NewService creates a search service.
func NewService(crawler Crawler, reconciler *reconcile.Reconciler, c cache.Cache, l *zap.Logger) *Service {
	return &Service{
		crawler:    crawler,
		reconciler: reconciler,
		cache:      c,
		logger:     logger.OrNop(l),
		now:        time.Now,
	}
}

func (s *Service) lock(sessionID string) *sync.Mutex {
	h := fnv.New32a()
	_, _ = h.Write([]byte(sessionID))
	return &s.locks[h.Sum32()%uint32(len(s.locks))]
}

// Search clears the session's previous results, crawls, ranks and reconciles, then stores the
// new results. A search superseded by a newer one for the same session never writes the cache,
// including when the newer one ran on another instance sharing the cache.
// Empty and failed searches resolve to an Outcome; only cancellation and persistence faults
// are returned as errors.
func (s *Service) Search(ctx context.Context, sessionID string, userID *uuid.UUID, query types.SearchQuery) (*Outcome, error) {
	log := s.logger.With(zap.String("session_id", sessionID))

	outcome := &Outcome{SearchID: uuid.New(), Results: []types.RankedResult{}}
	if err := s.cache.Begin(ctx, sessionID, outcome.SearchID); err != nil {
		return nil, fmt.Errorf("failed to invalidate previous results: %w", err)
	}

	result, err := s.crawler.Crawl(ctx, query)
	var (
		noCandidates *crawling.NoCandidatesError
		unavailable  *crawling.CatalogUnavailableError
	)
	switch {
	case err == nil:
		outcome.Status = cache.StatusOK
		outcome.Stats = result.Stats
		outcome.Results, err = s.reconciler.Reconcile(ctx, result.Records, userID)
		if err != nil {
			return nil, err
		}
	case errors.As(err, &noCandidates):
		outcome.Status = cache.StatusNoCandidates
		outcome.Reason = "no recipes matched the given ingredients"
		outcome.Stats = noCandidates.Stats
		outcome.Err = err
	case errors.As(err, &unavailable):
		outcome.Status = cache.StatusFailed
		outcome.Reason = "recipe catalog is unavailable, please try again later"
		outcome.Stats = unavailable.Stats
		outcome.Err = err
	case crawling.IsCancellation(err):
		log.Info("search abandoned", zap.Error(err))
		return nil, err
	default:
		log.Error("search failed", zap.Error(err))
		return nil, err
	}

	entry := &cache.Entry{
		SearchID:  outcome.SearchID,
		Query:     query,
		Results:   outcome.Results,
		Status:    outcome.Status,
		Reason:    outcome.Reason,
		CreatedAt: s.now(),
	}

	stored, err := s.cache.Put(ctx, sessionID, entry)
	if err != nil {
		return nil, fmt.Errorf("failed to store search results: %w", err)
	}
	if !stored {
		log.Debug("discarding superseded search", zap.String("search_id", outcome.SearchID.String()))
		return outcome, nil
	}

	log.Info("search complete",
		zap.String("search_id", outcome.SearchID.String()),
		zap.String("status", string(outcome.Status)),
		zap.Int("results", len(outcome.Results)),
	)
	return outcome, nil
}

// Results returns the session's current search.
func (s *Service) Results(ctx context.Context, sessionID string) (*cache.Entry, error) {
	entry, err := s.cache.Get(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to read search results: %w", err)
	}
	if entry == nil {
		return nil, &NotFoundError{SessionID: sessionID}
	}
	return entry, nil
}

// Save saves a recipe from the session's current results and returns the updated results.
func (s *Service) Save(ctx context.Context, sessionID string, userID uuid.UUID, title string) (*cache.Entry, error) {
	entry, err := s.Results(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	idx := entry.Find(title)
	if idx < 0 {
		return nil, &NotFoundError{SessionID: sessionID, Title: title}
	}

	if _, err := s.reconciler.SaveFromSearch(ctx, entry.Results[idx].RecipeRecord, userID); err != nil {
		return nil, err
	}
	return s.setSaved(ctx, sessionID, title, true)
}

// Unsave removes a saved recipe and returns the session's updated results, which may be nil
// when the session has no search.
func (s *Service) Unsave(ctx context.Context, sessionID string, userID uuid.UUID, title string) (*cache.Entry, error) {
	if _, err := s.reconciler.UnsaveFromSearch(ctx, title, userID); err != nil {
		return nil, err
	}
	return s.setSaved(ctx, sessionID, title, false)
}

// Saved lists the recipes userID has saved.
func (s *Service) Saved(ctx context.Context, userID uuid.UUID) ([]types.PersistedRecipe, error) {
	return s.reconciler.Saved(ctx, userID)
}

// setSaved flips one title's flag in whatever search is current for the session.
func (s *Service) setSaved(ctx context.Context, sessionID, title string, saved bool) (*cache.Entry, error) {
	mu := s.lock(sessionID)
	mu.Lock()
	defer mu.Unlock()

	current, err := s.cache.Get(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to read search results: %w", err)
	}
	if current == nil {
		return nil, nil
	}

	idx := current.Find(title)
	if idx < 0 || current.Results[idx].AlreadySaved == saved {
		return current, nil
	}

	updated := current.Clone()
	updated.Results[idx].AlreadySaved = saved
	stored, err := s.cache.Put(ctx, sessionID, updated)
	if err != nil {
		return nil, fmt.Errorf("failed to store search results: %w", err)
	}
	if !stored {
		// a newer search began
		newer, err := s.cache.Get(ctx, sessionID)
		if err != nil {
			return nil, fmt.Errorf("failed to read search results: %w", err)
		}
		return newer, nil
	}
	return updated, nil
}
