package crawling

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/jonathan/recipe-share/internal/extract"
	"github.com/jonathan/recipe-share/internal/fetch"
	"github.com/jonathan/recipe-share/internal/logger"
	"github.com/jonathan/recipe-share/internal/metrics"
	"github.com/jonathan/recipe-share/internal/ranking"
	"github.com/jonathan/recipe-share/internal/types"
)

// Stats counts what happened during one crawl.
type Stats struct {
	Categories        int           `json:"categories"`
	CategoriesFetched int           `json:"categories_fetched"`
	CategoriesFailed  int           `json:"categories_failed"`
	LinksFound        int           `json:"links_found"`
	DuplicateLinks    int           `json:"duplicate_links"`
	RecipesFetched    int           `json:"recipes_fetched"`
	FetchFailures     int           `json:"fetch_failures"`
	ExtractFailures   int           `json:"extract_failures"`
	Candidates        int           `json:"candidates"`
	Scored            int           `json:"scored"`
	Duration          time.Duration `json:"duration_ns"`
}

type counters struct {
	categoriesFetched atomic.Int64
	categoriesFailed  atomic.Int64
	linksFound        atomic.Int64
	duplicateLinks    atomic.Int64
	recipesFetched    atomic.Int64
	fetchFailures     atomic.Int64
	extractFailures   atomic.Int64
}

func (c *counters) snapshot(categories int) Stats {
	return Stats{
		Categories:        categories,
		CategoriesFetched: int(c.categoriesFetched.Load()),
		CategoriesFailed:  int(c.categoriesFailed.Load()),
		LinksFound:        int(c.linksFound.Load()),
		DuplicateLinks:    int(c.duplicateLinks.Load()),
		RecipesFetched:    int(c.recipesFetched.Load()),
		FetchFailures:     int(c.fetchFailures.Load()),
		ExtractFailures:   int(c.extractFailures.Load()),
	}
}

// Result is the ranked outcome of a successful crawl.
type Result struct {
	Records []types.RankedResult
	Stats   Stats
}

// Crawler enumerates catalog categories, fetches every linked recipe and ranks them against a query.
type Crawler struct {
	fetcher fetch.Fetcher
	catalog Catalog
	weights ranking.Weights
	logger  *zap.Logger
}

// Option configures a Crawler.
type Option func(*Crawler)

// WithWeights sets the scoring weights.
func WithWeights(w ranking.Weights) Option {
	return func(c *Crawler) { c.weights = w }
}

// WithLogger sets the crawler logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Crawler) { c.logger = logger.OrNop(l) }
}

// NewCrawler creates a crawler over the given catalog. All requests go through f,
// so f's concurrency bound is the crawl's in-flight budget.
func NewCrawler(f fetch.Fetcher, catalog Catalog, opts ...Option) *Crawler {
	c := &Crawler{
		fetcher: f,
		catalog: catalog.WithDefaults(),
		weights: ranking.DefaultWeights(),
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Catalog returns the catalog the crawler reads.
func (c *Crawler) Catalog() Catalog {
	return c.catalog
}

// Crawl runs one search invocation to completion.
//
// Every category listing is fetched concurrently; each discovered link is fetched,
// extracted and scored in the same group. Ranking happens only after every fetch
// has settled. Per-page failures are counted and logged, never retried.
// A cancelled ctx aborts outstanding fetches and returns ctx.Err() with no partial results.
func (c *Crawler) Crawl(ctx context.Context, query types.SearchQuery) (*Result, error) {
	start := time.Now()
	log := c.logger.With(zap.Strings("terms", query.Terms))

	if query.IsEmpty() {
		metrics.CrawlsTotal.WithLabelValues("no_candidates").Inc()
		return nil, &NoCandidatesError{Stats: Stats{Categories: len(c.catalog.Categories)}}
	}

	var (
		cnt      counters
		mu       sync.Mutex
		records  []types.RecipeRecord
		failures = make([]error, 0)
		seen     sync.Map
	)

	g, gctx := errgroup.WithContext(ctx)

	recordFailure := func(err error) {
		mu.Lock()
		failures = append(failures, err)
		mu.Unlock()
	}

	fetchRecipe := func(link string) error {
		doc, err := c.fetcher.Fetch(gctx, link)
		if err != nil {
			if gctx.Err() != nil {
				return nil
			}
			cnt.fetchFailures.Add(1)
			metrics.FetchesTotal.WithLabelValues("recipe", "fetch_error").Inc()
			log.Debug("recipe fetch failed", zap.String("url", link), zap.Error(err))
			return nil
		}

		record, err := extract.Recipe(doc)
		if err != nil {
			cnt.extractFailures.Add(1)
			metrics.FetchesTotal.WithLabelValues("recipe", "extract_error").Inc()
			log.Debug("recipe extraction failed", zap.String("url", link), zap.Error(err))
			return nil
		}

		cnt.recipesFetched.Add(1)
		metrics.FetchesTotal.WithLabelValues("recipe", "ok").Inc()
		scored := ranking.ScoreRecord(*record, query.Terms, c.weights)

		mu.Lock()
		records = append(records, scored)
		mu.Unlock()
		return nil
	}

	for _, category := range c.catalog.Categories {
		categoryURL := c.catalog.CategoryURL(category)
		g.Go(func() error {
			doc, err := c.fetcher.Fetch(gctx, categoryURL)
			if err != nil {
				if gctx.Err() != nil {
					return nil
				}
				cnt.categoriesFailed.Add(1)
				recordFailure(err)
				metrics.FetchesTotal.WithLabelValues("category", "fetch_error").Inc()
				log.Warn("category fetch failed", zap.String("category", category), zap.String("url", categoryURL), zap.Error(err))
				return nil
			}

			links, err := extract.CatalogLinks(doc, c.catalog.BaseURL)
			if err == nil && len(links) == 0 {
				err = &extract.Error{URL: categoryURL, Anchor: extract.CatalogCardSelector, Message: "category listing has no recipe links"}
			}
			if err != nil {
				cnt.categoriesFailed.Add(1)
				recordFailure(err)
				metrics.FetchesTotal.WithLabelValues("category", "extract_error").Inc()
				log.Warn("category listing malformed", zap.String("category", category), zap.String("url", categoryURL), zap.Error(err))
				return nil
			}

			cnt.categoriesFetched.Add(1)
			cnt.linksFound.Add(int64(len(links)))
			metrics.FetchesTotal.WithLabelValues("category", "ok").Inc()
			log.Debug("category listing fetched", zap.String("category", category), zap.Int("links", len(links)))

			for _, link := range links {
				// The same recipe is often listed under several categories
				if _, dup := seen.LoadOrStore(link, struct{}{}); dup {
					cnt.duplicateLinks.Add(1)
					continue
				}
				g.Go(func() error {
					return fetchRecipe(link)
				})
			}
			return nil
		})
	}

	// Join barrier: every category and recipe goroutine has settled past this point
	if err := g.Wait(); err != nil {
		return nil, err
	}

	stats := cnt.snapshot(len(c.catalog.Categories))
	stats.Duration = time.Since(start)

	if err := ctx.Err(); err != nil {
		metrics.CrawlsTotal.WithLabelValues("cancelled").Inc()
		log.Info("crawl cancelled", zap.Error(err))
		return nil, err
	}

	if stats.CategoriesFetched == 0 {
		metrics.CrawlsTotal.WithLabelValues("failed").Inc()
		log.Warn("catalog unavailable", zap.Int("categories_failed", stats.CategoriesFailed))
		return nil, &CatalogUnavailableError{Failures: failures, Stats: stats}
	}

	ranked := ranking.Rank(records, query.Terms)
	stats.Candidates = len(records)
	stats.Scored = len(ranked)
	metrics.CrawlDuration.Observe(stats.Duration.Seconds())
	metrics.CandidatesScored.Observe(float64(stats.Scored))

	log.Info("crawl complete",
		zap.Int("categories_fetched", stats.CategoriesFetched),
		zap.Int("categories_failed", stats.CategoriesFailed),
		zap.Int("links", stats.LinksFound),
		zap.Int("recipes", stats.RecipesFetched),
		zap.Int("fetch_failures", stats.FetchFailures),
		zap.Int("extract_failures", stats.ExtractFailures),
		zap.Int("scored", stats.Scored),
		zap.Duration("duration", stats.Duration),
	)

	if len(ranked) == 0 {
		metrics.CrawlsTotal.WithLabelValues("no_candidates").Inc()
		return nil, &NoCandidatesError{Terms: query.Distinct(), Stats: stats}
	}

	metrics.CrawlsTotal.WithLabelValues("ok").Inc()
	return &Result{Records: ranked, Stats: stats}, nil
}

// IsCancellation reports whether err came from an abandoned invocation.
func IsCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
