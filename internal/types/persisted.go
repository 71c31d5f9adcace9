package types

import (
	"time"

	"github.com/google/uuid"
)

// PersistedRecipe is a stored recipe post. Visible is false for recipes
// that exist only because a user saved them from search results.
type PersistedRecipe struct {
	ID          uuid.UUID `json:"id"`
	Title       string    `json:"title"`
	Content     string    `json:"content"`
	Ingredients []string  `json:"ingredients"`
	AuthorID    uuid.UUID `json:"author_id"`
	Visible     bool      `json:"visible"`
	CreatedAt   time.Time `json:"created_at"`
}

// IsSyntheticFor reports whether the recipe was materialized by userID saving a search result.
func (r *PersistedRecipe) IsSyntheticFor(userID uuid.UUID) bool {
	return r != nil && !r.Visible && r.AuthorID == userID
}

// SavedMark records that a user saved a recipe.
type SavedMark struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	RecipeID  uuid.UUID `json:"recipe_id"`
	CreatedAt time.Time `json:"created_at"`
}
