package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jonathan/recipe-share/internal/types"
)

const recipeColumns = `id, title, content, ingredients, author_id, visible, created_at`

// recipeTx implements reconcile.Tx on a pgx transaction.
type recipeTx struct {
	tx pgx.Tx
}

func scanRecipe(row pgx.Row) (*types.PersistedRecipe, error) {
	var r RecipeRow
	err := row.Scan(&r.ID, &r.Title, &r.Content, &r.Ingredients, &r.AuthorID, &r.Visible, &r.CreatedAt)
	if err != nil {
		return nil, err
	}
	return r.Recipe(), nil
}

func scanMark(row pgx.Row) (*types.SavedMark, error) {
	var m SavedMarkRow
	if err := row.Scan(&m.ID, &m.UserID, &m.RecipeID, &m.CreatedAt); err != nil {
		return nil, err
	}
	return m.Mark(), nil
}

// FindRecipeByTitle returns the oldest visible recipe with the title
func (t *recipeTx) FindRecipeByTitle(ctx context.Context, title string) (*types.PersistedRecipe, error) {
	r, err := scanRecipe(t.tx.QueryRow(ctx,
		`SELECT `+recipeColumns+` FROM recipes
		 WHERE title = $1 AND visible
		 ORDER BY created_at, id
		 LIMIT 1`,
		title,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find recipe by title: %w", err)
	}
	return r, nil
}

// FindSyntheticRecipe returns the non-visible recipe authorID created by saving a search result
func (t *recipeTx) FindSyntheticRecipe(ctx context.Context, title string, authorID uuid.UUID) (*types.PersistedRecipe, error) {
	r, err := scanRecipe(t.tx.QueryRow(ctx,
		`SELECT `+recipeColumns+` FROM recipes
		 WHERE title = $1 AND author_id = $2 AND NOT visible`,
		title, authorID,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find synthetic recipe: %w", err)
	}
	return r, nil
}

// CreateRecipe inserts a recipe
func (t *recipeTx) CreateRecipe(ctx context.Context, title, content string, ingredients []string, authorID uuid.UUID, visible bool) (*types.PersistedRecipe, error) {
	r, err := scanRecipe(t.tx.QueryRow(ctx,
		`INSERT INTO recipes (title, content, ingredients, author_id, visible)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING `+recipeColumns,
		title, content, StringArray(ingredients), authorID, visible,
	))
	if err != nil {
		return nil, translateError("recipe", fmt.Errorf("failed to create recipe: %w", err))
	}
	return r, nil
}

// DeleteRecipe deletes a recipe and, by cascade, its saved marks
func (t *recipeTx) DeleteRecipe(ctx context.Context, id uuid.UUID) error {
	_, err := t.tx.Exec(ctx, `DELETE FROM recipes WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete recipe: %w", err)
	}
	return nil
}

// FindSavedMark returns userID's mark on recipeID
func (t *recipeTx) FindSavedMark(ctx context.Context, userID, recipeID uuid.UUID) (*types.SavedMark, error) {
	m, err := scanMark(t.tx.QueryRow(ctx,
		`SELECT id, user_id, recipe_id, created_at FROM saved_marks
		 WHERE user_id = $1 AND recipe_id = $2`,
		userID, recipeID,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find saved mark: %w", err)
	}
	return m, nil
}

// CreateSavedMark inserts a saved mark
func (t *recipeTx) CreateSavedMark(ctx context.Context, userID, recipeID uuid.UUID) (*types.SavedMark, error) {
	m, err := scanMark(t.tx.QueryRow(ctx,
		`INSERT INTO saved_marks (user_id, recipe_id)
		 VALUES ($1, $2)
		 RETURNING id, user_id, recipe_id, created_at`,
		userID, recipeID,
	))
	if err != nil {
		return nil, translateError("saved_mark", fmt.Errorf("failed to create saved mark: %w", err))
	}
	return m, nil
}

// DeleteSavedMark deletes a saved mark
func (t *recipeTx) DeleteSavedMark(ctx context.Context, id uuid.UUID) error {
	_, err := t.tx.Exec(ctx, `DELETE FROM saved_marks WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete saved mark: %w", err)
	}
	return nil
}

// CountSavedMarks counts the marks on a recipe
func (t *recipeTx) CountSavedMarks(ctx context.Context, recipeID uuid.UUID) (int, error) {
	var n int
	err := t.tx.QueryRow(ctx, `SELECT COUNT(*) FROM saved_marks WHERE recipe_id = $1`, recipeID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count saved marks: %w", err)
	}
	return n, nil
}

// ListSavedRecipes returns the recipes userID has marked, newest mark first
func (t *recipeTx) ListSavedRecipes(ctx context.Context, userID uuid.UUID) ([]types.PersistedRecipe, error) {
	rows, err := t.tx.Query(ctx,
		`SELECT r.id, r.title, r.content, r.ingredients, r.author_id, r.visible, r.created_at
		 FROM saved_marks m
		 JOIN recipes r ON r.id = m.recipe_id
		 WHERE m.user_id = $1
		 ORDER BY m.created_at DESC, m.id`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list saved recipes: %w", err)
	}
	defer rows.Close()

	var recipes []types.PersistedRecipe
	for rows.Next() {
		r, err := scanRecipe(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan saved recipe: %w", err)
		}
		recipes = append(recipes, *r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating saved recipes: %w", err)
	}
	return recipes, nil
}
