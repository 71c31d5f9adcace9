package cache

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/recipe-share/internal/types"
)

func sampleEntry() *Entry {
	return &Entry{
		SearchID: uuid.New(),
		Query:    types.NewSearchQuery([]string{"egg"}),
		Results: []types.RankedResult{
			{RecipeRecord: types.RecipeRecord{Title: "Omelette", Ingredients: []string{"3 eggs"}, MatchScore: 2}},
		},
		Status:    StatusOK,
		CreatedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

// begun stores entry as the session's current search.
func begun(t *testing.T, c *Memory, sessionID string, entry *Entry) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, c.Begin(ctx, sessionID, entry.SearchID))
	stored, err := c.Put(ctx, sessionID, entry)
	require.NoError(t, err)
	require.True(t, stored)
}

func TestMemory_PutGetInvalidate(t *testing.T) {
	ctx := context.Background()
	c := NewMemory()

	got, err := c.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Nil(t, got)

	entry := sampleEntry()
	begun(t, c, "s1", entry)

	got, err = c.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, entry, got)
	assert.Equal(t, 1, c.Len())

	require.NoError(t, c.Invalidate(ctx, "s1"))
	got, err = c.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.Equal(t, 0, c.Len())

	require.NoError(t, c.Invalidate(ctx, "never-stored"))
}

func TestMemory_PutRequiresCurrentSearch(t *testing.T) {
	ctx := context.Background()
	c := NewMemory()

	stored, err := c.Put(ctx, "s1", sampleEntry())
	require.NoError(t, err)
	assert.False(t, stored, "no search has begun")

	older, newer := sampleEntry(), sampleEntry()
	require.NoError(t, c.Begin(ctx, "s1", older.SearchID))
	require.NoError(t, c.Begin(ctx, "s1", newer.SearchID))

	stored, err = c.Put(ctx, "s1", older)
	require.NoError(t, err)
	assert.False(t, stored)

	stored, err = c.Put(ctx, "s1", newer)
	require.NoError(t, err)
	assert.True(t, stored)

	got, err := c.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, newer.SearchID, got.SearchID)
}

func TestMemory_BeginDropsEntry(t *testing.T) {
	ctx := context.Background()
	c := NewMemory()
	begun(t, c, "s1", sampleEntry())

	require.NoError(t, c.Begin(ctx, "s1", uuid.New()))
	got, err := c.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestMemory_InvalidateForgetsCurrentSearch(t *testing.T) {
	ctx := context.Background()
	c := NewMemory()
	entry := sampleEntry()
	require.NoError(t, c.Begin(ctx, "s1", entry.SearchID))
	require.NoError(t, c.Invalidate(ctx, "s1"))

	stored, err := c.Put(ctx, "s1", entry)
	require.NoError(t, err)
	assert.False(t, stored)
}

func TestMemory_SessionsAreIsolated(t *testing.T) {
	ctx := context.Background()
	c := NewMemory()
	begun(t, c, "a", sampleEntry())

	got, err := c.Get(ctx, "b")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestMemory_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	c := NewMemory()
	entry := sampleEntry()
	begun(t, c, "s1", entry)

	entry.Results[0].AlreadySaved = true
	got, err := c.Get(ctx, "s1")
	require.NoError(t, err)
	assert.False(t, got.Results[0].AlreadySaved)

	got.Results[0].Title = "changed"
	again, err := c.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "Omelette", again.Results[0].Title)
}

func TestMemory_ConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	c := NewMemory()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			entry := sampleEntry()
			_ = c.Begin(ctx, "shared", entry.SearchID)
			_, _ = c.Put(ctx, "shared", entry)
		}()
		go func() {
			defer wg.Done()
			_, _ = c.Get(ctx, "shared")
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, c.Len())
}

func TestEntry_Find(t *testing.T) {
	entry := sampleEntry()
	assert.Equal(t, 0, entry.Find("Omelette"))
	assert.Equal(t, -1, entry.Find("Frittata"))
	assert.Nil(t, (*Entry)(nil).Clone())
}
