package reconcile

import (
	"context"

	"github.com/google/uuid"

	"github.com/jonathan/recipe-share/internal/types"
)

// Counts returns the number of stored recipes and marks.
func (s *MemoryStore) Counts() (recipes, marks int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.state.recipes), len(s.state.marks)
}

// SeedVisibleRecipe stores a user-authored visible post.
func (s *MemoryStore) SeedVisibleRecipe(ctx context.Context, title string, authorID uuid.UUID) (*types.PersistedRecipe, error) {
	var r *types.PersistedRecipe
	err := s.InTx(ctx, func(ctx context.Context, tx Tx) error {
		var err error
		r, err = tx.CreateRecipe(ctx, title, "", nil, authorID, true)
		return err
	})
	return r, err
}
