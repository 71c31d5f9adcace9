// Package reconcile keeps search results consistent with what users have saved.
package reconcile

import (
	"context"

	"github.com/google/uuid"

	"github.com/jonathan/recipe-share/internal/types"
)

// Store runs fn inside one transaction. fn's error rolls the transaction back.
// Implementations translate unique-constraint violations into *ConflictError.
type Store interface {
	InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

// Tx is the persistence boundary the reconciler composes into atomic units.
// Finders return (nil, nil) when nothing matches.
type Tx interface {
	// FindRecipeByTitle returns the oldest visible recipe with the title.
	FindRecipeByTitle(ctx context.Context, title string) (*types.PersistedRecipe, error)
	// FindSyntheticRecipe returns the non-visible recipe authorID created by saving title.
	FindSyntheticRecipe(ctx context.Context, title string, authorID uuid.UUID) (*types.PersistedRecipe, error)
	CreateRecipe(ctx context.Context, title, content string, ingredients []string, authorID uuid.UUID, visible bool) (*types.PersistedRecipe, error)
	DeleteRecipe(ctx context.Context, id uuid.UUID) error

	FindSavedMark(ctx context.Context, userID, recipeID uuid.UUID) (*types.SavedMark, error)
	CreateSavedMark(ctx context.Context, userID, recipeID uuid.UUID) (*types.SavedMark, error)
	DeleteSavedMark(ctx context.Context, id uuid.UUID) error
	CountSavedMarks(ctx context.Context, recipeID uuid.UUID) (int, error)
	// ListSavedRecipes returns every recipe userID has a mark on, newest mark first.
	ListSavedRecipes(ctx context.Context, userID uuid.UUID) ([]types.PersistedRecipe, error)
}
