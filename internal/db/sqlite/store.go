// Package sqlite provides a single-file SQLite store for recipes and saved marks.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/mattn/go-sqlite3"

	"github.com/jonathan/recipe-share/internal/db"
	"github.com/jonathan/recipe-share/internal/reconcile"
	"github.com/jonathan/recipe-share/internal/types"
)

//go:embed schema.sql
var schema string

var _ reconcile.Store = (*Store)(nil)

// Store implements reconcile.Store on SQLite via sqlx.
type Store struct {
	db  *sqlx.DB
	now func() time.Time
}

// Open opens (creating if needed) the database at path and applies the schema.
// Use ":memory:" for a private in-memory database.
func Open(path string) (*Store, error) {
	dsn := path + "?_foreign_keys=1&_busy_timeout=5000"
	if strings.Contains(path, "?") {
		dsn = path
	}

	conn, err := sqlx.Connect("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	// SQLite serializes writers; one connection also keeps :memory: databases shared.
	conn.SetMaxOpenConns(1)

	s := &Store{db: conn, now: func() time.Time { return time.Now().UTC() }}
	if err := s.Migrate(context.Background()); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return s, nil
}

// Migrate applies the schema. It is safe to run repeatedly.
func (s *Store) Migrate(ctx context.Context) error {
	for _, stmt := range strings.Split(schema, ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// InTx runs fn in a single transaction, committing only when fn succeeds.
func (s *Store) InTx(ctx context.Context, fn func(ctx context.Context, tx reconcile.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	// No-op once committed
	defer func() { _ = tx.Rollback() }()

	if err := fn(ctx, &storeTx{tx: tx, now: s.now}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func translateError(entity string, err error) error {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
		return &reconcile.ConflictError{Entity: entity, Message: "unique constraint", Cause: err}
	}
	return err
}

type storeTx struct {
	tx  *sqlx.Tx
	now func() time.Time
}

const recipeColumns = `id, title, content, ingredients, author_id, visible, created_at`

func (t *storeTx) getRecipe(ctx context.Context, query string, args ...interface{}) (*types.PersistedRecipe, error) {
	var row db.RecipeRow
	if err := t.tx.GetContext(ctx, &row, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return row.Recipe(), nil
}

func (t *storeTx) FindRecipeByTitle(ctx context.Context, title string) (*types.PersistedRecipe, error) {
	r, err := t.getRecipe(ctx,
		`SELECT `+recipeColumns+` FROM recipes WHERE title = ? AND visible = 1 ORDER BY created_at, rowid LIMIT 1`,
		title)
	if err != nil {
		return nil, fmt.Errorf("failed to find recipe by title: %w", err)
	}
	return r, nil
}

func (t *storeTx) FindSyntheticRecipe(ctx context.Context, title string, authorID uuid.UUID) (*types.PersistedRecipe, error) {
	r, err := t.getRecipe(ctx,
		`SELECT `+recipeColumns+` FROM recipes WHERE title = ? AND author_id = ? AND visible = 0`,
		title, authorID)
	if err != nil {
		return nil, fmt.Errorf("failed to find synthetic recipe: %w", err)
	}
	return r, nil
}

func (t *storeTx) CreateRecipe(ctx context.Context, title, content string, ingredients []string, authorID uuid.UUID, visible bool) (*types.PersistedRecipe, error) {
	row := db.RecipeRow{
		ID:          uuid.New(),
		Title:       title,
		Content:     content,
		Ingredients: db.StringArray(ingredients),
		AuthorID:    authorID,
		Visible:     visible,
		CreatedAt:   t.now(),
	}
	_, err := t.tx.NamedExecContext(ctx,
		`INSERT INTO recipes (id, title, content, ingredients, author_id, visible, created_at)
		 VALUES (:id, :title, :content, :ingredients, :author_id, :visible, :created_at)`,
		&row)
	if err != nil {
		return nil, translateError("recipe", fmt.Errorf("failed to create recipe: %w", err))
	}
	return row.Recipe(), nil
}

func (t *storeTx) DeleteRecipe(ctx context.Context, id uuid.UUID) error {
	if _, err := t.tx.ExecContext(ctx, `DELETE FROM saved_marks WHERE recipe_id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete saved marks: %w", err)
	}
	if _, err := t.tx.ExecContext(ctx, `DELETE FROM recipes WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete recipe: %w", err)
	}
	return nil
}

func (t *storeTx) FindSavedMark(ctx context.Context, userID, recipeID uuid.UUID) (*types.SavedMark, error) {
	var row db.SavedMarkRow
	err := t.tx.GetContext(ctx, &row,
		`SELECT id, user_id, recipe_id, created_at FROM saved_marks WHERE user_id = ? AND recipe_id = ?`,
		userID, recipeID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find saved mark: %w", err)
	}
	return row.Mark(), nil
}

func (t *storeTx) CreateSavedMark(ctx context.Context, userID, recipeID uuid.UUID) (*types.SavedMark, error) {
	row := db.SavedMarkRow{ID: uuid.New(), UserID: userID, RecipeID: recipeID, CreatedAt: t.now()}
	_, err := t.tx.NamedExecContext(ctx,
		`INSERT INTO saved_marks (id, user_id, recipe_id, created_at) VALUES (:id, :user_id, :recipe_id, :created_at)`,
		&row)
	if err != nil {
		return nil, translateError("saved_mark", fmt.Errorf("failed to create saved mark: %w", err))
	}
	return row.Mark(), nil
}

func (t *storeTx) DeleteSavedMark(ctx context.Context, id uuid.UUID) error {
	if _, err := t.tx.ExecContext(ctx, `DELETE FROM saved_marks WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete saved mark: %w", err)
	}
	return nil
}

func (t *storeTx) CountSavedMarks(ctx context.Context, recipeID uuid.UUID) (int, error) {
	var n int
	if err := t.tx.GetContext(ctx, &n, `SELECT COUNT(*) FROM saved_marks WHERE recipe_id = ?`, recipeID); err != nil {
		return 0, fmt.Errorf("failed to count saved marks: %w", err)
	}
	return n, nil
}

func (t *storeTx) ListSavedRecipes(ctx context.Context, userID uuid.UUID) ([]types.PersistedRecipe, error) {
	var rows []db.RecipeRow
	err := t.tx.SelectContext(ctx, &rows,
		`SELECT r.id, r.title, r.content, r.ingredients, r.author_id, r.visible, r.created_at
		 FROM saved_marks m
		 JOIN recipes r ON r.id = m.recipe_id
		 WHERE m.user_id = ?
		 ORDER BY m.created_at DESC, m.rowid DESC`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list saved recipes: %w", err)
	}

	recipes := make([]types.PersistedRecipe, 0, len(rows))
	for i := range rows {
		recipes = append(recipes, *rows[i].Recipe())
	}
	return recipes, nil
}
