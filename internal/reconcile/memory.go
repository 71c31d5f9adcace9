package reconcile

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/recipe-share/internal/types"
)

// MemoryStore is a process-local Store. Transactions are serialized and applied
// to a working copy that replaces the committed state only when fn succeeds.
type MemoryStore struct {
	mu    sync.Mutex
	state memoryState
}

type memoryState struct {
	recipes map[uuid.UUID]types.PersistedRecipe
	marks   map[uuid.UUID]types.SavedMark
	seq     int64
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{state: memoryState{
		recipes: make(map[uuid.UUID]types.PersistedRecipe),
		marks:   make(map[uuid.UUID]types.SavedMark),
	}}
}

// InTx implements Store.
func (s *MemoryStore) InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	work := s.state.clone()
	if err := fn(ctx, &memoryTx{state: &work}); err != nil {
		return err
	}
	s.state = work
	return nil
}

func (st memoryState) clone() memoryState {
	out := memoryState{
		recipes: make(map[uuid.UUID]types.PersistedRecipe, len(st.recipes)),
		marks:   make(map[uuid.UUID]types.SavedMark, len(st.marks)),
		seq:     st.seq,
	}
	for k, v := range st.recipes {
		out.recipes[k] = v
	}
	for k, v := range st.marks {
		out.marks[k] = v
	}
	return out
}

type memoryTx struct {
	state *memoryState
}

// now returns strictly increasing timestamps so ordering by creation time is stable.
func (t *memoryTx) now() time.Time {
	t.state.seq++
	return time.Unix(0, 0).UTC().Add(time.Duration(t.state.seq) * time.Millisecond)
}

func (t *memoryTx) FindRecipeByTitle(_ context.Context, title string) (*types.PersistedRecipe, error) {
	var found *types.PersistedRecipe
	for _, r := range t.state.recipes {
		if !r.Visible || r.Title != title {
			continue
		}
		if found == nil || r.CreatedAt.Before(found.CreatedAt) {
			rc := r
			found = &rc
		}
	}
	return found, nil
}

func (t *memoryTx) FindSyntheticRecipe(_ context.Context, title string, authorID uuid.UUID) (*types.PersistedRecipe, error) {
	for _, r := range t.state.recipes {
		if !r.Visible && r.Title == title && r.AuthorID == authorID {
			rc := r
			return &rc, nil
		}
	}
	return nil, nil
}

func (t *memoryTx) CreateRecipe(_ context.Context, title, content string, ingredients []string, authorID uuid.UUID, visible bool) (*types.PersistedRecipe, error) {
	if !visible {
		for _, r := range t.state.recipes {
			if !r.Visible && r.Title == title && r.AuthorID == authorID {
				return nil, &ConflictError{Entity: "recipe", Message: "synthetic recipe already exists for " + title}
			}
		}
	}
	r := types.PersistedRecipe{
		ID:          uuid.New(),
		Title:       title,
		Content:     content,
		Ingredients: append([]string{}, ingredients...),
		AuthorID:    authorID,
		Visible:     visible,
		CreatedAt:   t.now(),
	}
	t.state.recipes[r.ID] = r
	return &r, nil
}

func (t *memoryTx) DeleteRecipe(_ context.Context, id uuid.UUID) error {
	delete(t.state.recipes, id)
	for markID, m := range t.state.marks {
		if m.RecipeID == id {
			delete(t.state.marks, markID)
		}
	}
	return nil
}

func (t *memoryTx) FindSavedMark(_ context.Context, userID, recipeID uuid.UUID) (*types.SavedMark, error) {
	for _, m := range t.state.marks {
		if m.UserID == userID && m.RecipeID == recipeID {
			mc := m
			return &mc, nil
		}
	}
	return nil, nil
}

func (t *memoryTx) CreateSavedMark(ctx context.Context, userID, recipeID uuid.UUID) (*types.SavedMark, error) {
	if existing, _ := t.FindSavedMark(ctx, userID, recipeID); existing != nil {
		return nil, &ConflictError{Entity: "saved_mark", Message: "recipe already saved by user"}
	}
	m := types.SavedMark{ID: uuid.New(), UserID: userID, RecipeID: recipeID, CreatedAt: t.now()}
	t.state.marks[m.ID] = m
	return &m, nil
}

func (t *memoryTx) DeleteSavedMark(_ context.Context, id uuid.UUID) error {
	delete(t.state.marks, id)
	return nil
}

func (t *memoryTx) CountSavedMarks(_ context.Context, recipeID uuid.UUID) (int, error) {
	n := 0
	for _, m := range t.state.marks {
		if m.RecipeID == recipeID {
			n++
		}
	}
	return n, nil
}

func (t *memoryTx) ListSavedRecipes(_ context.Context, userID uuid.UUID) ([]types.PersistedRecipe, error) {
	marks := make([]types.SavedMark, 0)
	for _, m := range t.state.marks {
		if m.UserID == userID {
			marks = append(marks, m)
		}
	}
	sort.Slice(marks, func(i, j int) bool {
		return marks[i].CreatedAt.After(marks[j].CreatedAt)
	})

	out := make([]types.PersistedRecipe, 0, len(marks))
	for _, m := range marks {
		if r, ok := t.state.recipes[m.RecipeID]; ok {
			out = append(out, r)
		}
	}
	return out, nil
}
