package search

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/recipe-share/internal/cache"
	"github.com/jonathan/recipe-share/internal/crawling"
	"github.com/jonathan/recipe-share/internal/crawling/crawltest"
	"github.com/jonathan/recipe-share/internal/fetch"
	"github.com/jonathan/recipe-share/internal/reconcile"
	"github.com/jonathan/recipe-share/internal/types"
)

type fixture struct {
	srv     *crawltest.Server
	store   *reconcile.MemoryStore
	cache   *cache.Memory
	service *Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	srv := crawltest.NewServer()
	t.Cleanup(srv.Close)

	srv.AddRecipe(crawltest.Recipe{
		Slug:        "scrambled-eggs",
		Title:       "Scrambled eggs",
		Ingredients: []string{"3 eggs", "knob of butter"},
		Method:      []string{"Whisk the eggs."},
	}, "lunch")
	srv.AddRecipe(crawltest.Recipe{
		Slug:        "shortbread",
		Title:       "Shortbread",
		Ingredients: []string{"200g plain flour", "100g butter"},
		Method:      []string{"Rub the butter into the flour."},
	}, "dessert")
	srv.AddRecipe(crawltest.Recipe{
		Slug:        "pancakes",
		Title:       "Pancakes",
		Ingredients: []string{"100g plain flour", "2 eggs", "300ml milk"},
		Method:      []string{"Whisk flour and eggs."},
	}, "dessert", "lunch")

	catalog := crawling.DefaultCatalog()
	catalog.BaseURL = srv.URL
	crawler := crawling.NewCrawler(fetch.NewHTTPFetcher(nil, 8), catalog)

	store := reconcile.NewMemoryStore()
	c := cache.NewMemory()
	return &fixture{
		srv:     srv,
		store:   store,
		cache:   c,
		service: NewService(crawler, reconcile.New(store, nil), c, nil),
	}
}

func resultTitles(results []types.RankedResult) []string {
	out := make([]string, len(results))
	for i, r := range results {
		out[i] = r.Title
	}
	return out
}

func TestSearch_StoresRankedResults(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	outcome, err := f.service.Search(ctx, "s1", nil, types.ParseSearchQuery("egg\r\nflour"))
	require.NoError(t, err)
	assert.Equal(t, cache.StatusOK, outcome.Status)
	// Shortbread and Scrambled eggs tie on score; only Shortbread names a term in its method
	assert.Equal(t, []string{"Pancakes", "Shortbread", "Scrambled eggs"}, resultTitles(outcome.Results))

	entry, err := f.service.Results(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, outcome.SearchID, entry.SearchID)
	assert.Equal(t, outcome.Results, entry.Results)
	assert.Equal(t, []string{"egg", "flour"}, entry.Query.Terms)
}

func TestSearch_NewQueryReplacesPreviousResults(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.service.Search(ctx, "s1", nil, types.ParseSearchQuery("egg"))
	require.NoError(t, err)

	outcome, err := f.service.Search(ctx, "s1", nil, types.ParseSearchQuery("flour"))
	require.NoError(t, err)
	assert.NotContains(t, resultTitles(outcome.Results), "Scrambled eggs")

	entry, err := f.service.Results(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, []string{"flour"}, entry.Query.Terms)
	assert.ElementsMatch(t, []string{"Pancakes", "Shortbread"}, resultTitles(entry.Results))
}

func TestSearch_FailedSearchStillClearsPreviousResults(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.service.Search(ctx, "s1", nil, types.ParseSearchQuery("egg"))
	require.NoError(t, err)

	outcome, err := f.service.Search(ctx, "s1", nil, types.ParseSearchQuery("saffron"))
	require.NoError(t, err)
	assert.Equal(t, cache.StatusNoCandidates, outcome.Status)
	assert.NotEmpty(t, outcome.Reason)
	assert.Empty(t, outcome.Results)
	assert.True(t, crawling.IsNoCandidates(outcome.Err))

	entry, err := f.service.Results(ctx, "s1")
	require.NoError(t, err)
	assert.Empty(t, entry.Results)
	assert.Equal(t, cache.StatusNoCandidates, entry.Status)
}

func TestSearch_CatalogOutageIsAnOutcome(t *testing.T) {
	f := newFixture(t)
	for _, c := range crawling.DefaultCategories {
		f.srv.FailCategory(c)
	}

	outcome, err := f.service.Search(context.Background(), "s1", nil, types.ParseSearchQuery("egg"))
	require.NoError(t, err)
	assert.Equal(t, cache.StatusFailed, outcome.Status)
	assert.Empty(t, outcome.Results)
	assert.Contains(t, outcome.Reason, "unavailable")
	assert.True(t, crawling.IsCatalogUnavailable(outcome.Err))
	assert.Equal(t, 9, outcome.Stats.CategoriesFailed)
}

func TestSearch_ReconcilesForUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := uuid.New()

	_, err := f.service.Search(ctx, "s1", &user, types.ParseSearchQuery("flour"))
	require.NoError(t, err)
	_, err = f.service.Save(ctx, "s1", user, "Shortbread")
	require.NoError(t, err)

	outcome, err := f.service.Search(ctx, "s2", &user, types.ParseSearchQuery("butter"))
	require.NoError(t, err)
	for _, r := range outcome.Results {
		assert.Equal(t, r.Title == "Shortbread", r.AlreadySaved, r.Title)
	}

	anonymous, err := f.service.Search(ctx, "s3", nil, types.ParseSearchQuery("butter"))
	require.NoError(t, err)
	for _, r := range anonymous.Results {
		assert.False(t, r.AlreadySaved)
	}
}

func TestSaveAndUnsave_UpdateCachedResults(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := uuid.New()

	_, err := f.service.Search(ctx, "s1", &user, types.ParseSearchQuery("flour"))
	require.NoError(t, err)

	entry, err := f.service.Save(ctx, "s1", user, "Pancakes")
	require.NoError(t, err)
	idx := entry.Find("Pancakes")
	require.GreaterOrEqual(t, idx, 0)
	assert.True(t, entry.Results[idx].AlreadySaved)

	_, err = f.service.Save(ctx, "s1", user, "Pancakes")
	require.NoError(t, err)

	saved, err := f.service.Saved(ctx, user)
	require.NoError(t, err)
	require.Len(t, saved, 1)
	assert.Equal(t, []string{"100g plain flour", "2 eggs", "300ml milk"}, saved[0].Ingredients)

	entry, err = f.service.Unsave(ctx, "s1", user, "Pancakes")
	require.NoError(t, err)
	assert.False(t, entry.Results[entry.Find("Pancakes")].AlreadySaved)

	saved, err = f.service.Saved(ctx, user)
	require.NoError(t, err)
	assert.Empty(t, saved)
	require.NoError(t, f.store.InTx(ctx, func(ctx context.Context, tx reconcile.Tx) error {
		recipe, err := tx.FindSyntheticRecipe(ctx, "Pancakes", user)
		assert.Nil(t, recipe)
		return err
	}))
}

func TestSave_RequiresTitleInCurrentResults(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := uuid.New()

	_, err := f.service.Save(ctx, "s1", user, "Pancakes")
	var notFound *NotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Empty(t, notFound.Title)

	_, err = f.service.Search(ctx, "s1", &user, types.ParseSearchQuery("egg"))
	require.NoError(t, err)

	_, err = f.service.Save(ctx, "s1", user, "Shortbread")
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "Shortbread", notFound.Title)
	assert.Contains(t, err.Error(), "not found in current search results")
}

func TestUnsave_WithoutSearch(t *testing.T) {
	f := newFixture(t)

	entry, err := f.service.Unsave(context.Background(), "s1", uuid.New(), "Pancakes")
	require.NoError(t, err)
	assert.Nil(t, entry)
}

func TestResults_UnknownSession(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.Results(context.Background(), "nobody")
	var notFound *NotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "nobody", notFound.SessionID)
}

func TestSearch_CancellationReturnsError(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.service.Search(ctx, "s1", nil, types.ParseSearchQuery("egg"))
	require.NoError(t, err)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = f.service.Search(cancelled, "s1", nil, types.ParseSearchQuery("flour"))
	require.ErrorIs(t, err, context.Canceled)

	_, err = f.service.Results(ctx, "s1")
	var notFound *NotFoundError
	assert.ErrorAs(t, err, &notFound, "previous results must be invalidated")
}

// gatedCrawler blocks each query until its gate is released.
type gatedCrawler struct {
	mu    sync.Mutex
	gates map[string]chan struct{}
}

func (g *gatedCrawler) gate(term string) chan struct{} {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.gates == nil {
		g.gates = make(map[string]chan struct{})
	}
	ch, ok := g.gates[term]
	if !ok {
		ch = make(chan struct{})
		g.gates[term] = ch
	}
	return ch
}

func (g *gatedCrawler) Crawl(ctx context.Context, query types.SearchQuery) (*crawling.Result, error) {
	term := query.Terms[0]
	select {
	case <-g.gate(term):
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return &crawling.Result{Records: []types.RankedResult{
		{RecipeRecord: types.RecipeRecord{Title: term + " recipe", MatchScore: 2}},
	}}, nil
}

func TestSearch_SupersededSearchNeverWritesCache(t *testing.T) {
	crawler := &gatedCrawler{}
	c := cache.NewMemory()
	service := NewService(crawler, reconcile.New(reconcile.NewMemoryStore(), nil), c, nil)
	ctx := context.Background()

	eggDone := make(chan *Outcome, 1)
	go func() {
		outcome, err := service.Search(ctx, "s1", nil, types.ParseSearchQuery("egg"))
		assert.NoError(t, err)
		eggDone <- outcome
	}()

	// Wait until the egg search is current
	require.Eventually(t, func() bool { return c.Len() == 1 }, time.Second, 5*time.Millisecond)

	close(crawler.gate("flour"))
	flour, err := service.Search(ctx, "s1", nil, types.ParseSearchQuery("flour"))
	require.NoError(t, err)
	assert.Equal(t, "flour recipe", flour.Results[0].Title)

	close(crawler.gate("egg"))
	egg := <-eggDone
	assert.Equal(t, "egg recipe", egg.Results[0].Title)

	entry, err := service.Results(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, flour.SearchID, entry.SearchID)
	assert.Equal(t, []string{"flour"}, entry.Query.Terms)
	assert.Equal(t, "flour recipe", entry.Results[0].Title)
}

type brokenCache struct{ cache.Memory }

func (b *brokenCache) Begin(context.Context, string, uuid.UUID) error {
	return errors.New("redis down")
}

func TestSearch_CacheFailureIsReturned(t *testing.T) {
	service := NewService(&gatedCrawler{}, reconcile.New(reconcile.NewMemoryStore(), nil), &brokenCache{}, nil)

	_, err := service.Search(context.Background(), "s1", nil, types.ParseSearchQuery("egg"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis down")
}

func TestSearch_SharedCacheAcrossInstances(t *testing.T) {
	crawler := &gatedCrawler{}
	shared := cache.NewMemory()
	store := reconcile.NewMemoryStore()
	first := NewService(crawler, reconcile.New(store, nil), shared, nil)
	second := NewService(crawler, reconcile.New(store, nil), shared, nil)
	ctx := context.Background()

	eggDone := make(chan *Outcome, 1)
	go func() {
		outcome, err := first.Search(ctx, "s1", nil, types.ParseSearchQuery("egg"))
		assert.NoError(t, err)
		eggDone <- outcome
	}()
	require.Eventually(t, func() bool { return shared.Len() == 1 }, time.Second, 5*time.Millisecond)

	close(crawler.gate("flour"))
	flour, err := second.Search(ctx, "s1", nil, types.ParseSearchQuery("flour"))
	require.NoError(t, err)

	close(crawler.gate("egg"))
	<-eggDone

	for _, svc := range []*Service{first, second} {
		entry, err := svc.Results(ctx, "s1")
		require.NoError(t, err)
		assert.Equal(t, flour.SearchID, entry.SearchID)
		assert.Equal(t, []string{"flour"}, entry.Query.Terms)
	}
}

func TestSearch_NoPerSessionStateOutlivesCache(t *testing.T) {
	crawler := &gatedCrawler{}
	close(crawler.gate("egg"))
	c := cache.NewMemory()
	service := NewService(crawler, reconcile.New(reconcile.NewMemoryStore(), nil), c, nil)
	ctx := context.Background()

	for i := 0; i < 50; i++ {
		sessionID := uuid.NewString()
		_, err := service.Search(ctx, sessionID, nil, types.ParseSearchQuery("egg"))
		require.NoError(t, err)
		_, err = service.Unsave(ctx, sessionID, uuid.New(), "egg recipe")
		require.NoError(t, err)
		require.NoError(t, c.Invalidate(ctx, sessionID))
	}
	assert.Equal(t, 0, c.Len())
	for i := range service.locks {
		assert.True(t, service.locks[i].TryLock(), "lock %d left held", i)
	}
}

// racingCache begins a newer search just before the next Put lands.
type racingCache struct {
	*cache.Memory
	armed bool
}

func (r *racingCache) Put(ctx context.Context, sessionID string, entry *cache.Entry) (bool, error) {
	if r.armed {
		r.armed = false
		if err := r.Memory.Begin(ctx, sessionID, uuid.New()); err != nil {
			return false, err
		}
	}
	return r.Memory.Put(ctx, sessionID, entry)
}

func TestSave_NewerSearchWinsOverFlagUpdate(t *testing.T) {
	crawler := &gatedCrawler{}
	close(crawler.gate("egg"))
	c := &racingCache{Memory: cache.NewMemory()}
	service := NewService(crawler, reconcile.New(reconcile.NewMemoryStore(), nil), c, nil)
	ctx := context.Background()

	_, err := service.Search(ctx, "s1", nil, types.ParseSearchQuery("egg"))
	require.NoError(t, err)

	c.armed = true
	entry, err := service.Save(ctx, "s1", uuid.New(), "egg recipe")
	require.NoError(t, err)
	assert.Nil(t, entry, "the newer search has no results yet")
}

type failingCrawler struct{ err error }

func (f failingCrawler) Crawl(context.Context, types.SearchQuery) (*crawling.Result, error) {
	return nil, f.err
}

func TestSearch_UnexpectedCrawlErrorIsReturned(t *testing.T) {
	c := cache.NewMemory()
	service := NewService(failingCrawler{err: errors.New("boom")}, reconcile.New(reconcile.NewMemoryStore(), nil), c, nil)

	_, err := service.Search(context.Background(), "s1", nil, types.ParseSearchQuery("egg"))
	require.EqualError(t, err, "boom")

	_, err = service.Results(context.Background(), "s1")
	var notFound *NotFoundError
	assert.ErrorAs(t, err, &notFound)
}
