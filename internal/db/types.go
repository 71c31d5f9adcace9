package db

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/recipe-share/internal/types"
)

// StringArray is an ordered string sequence stored as a JSON array.
type StringArray []string

// Scan implements the Scanner interface for StringArray
func (a *StringArray) Scan(src interface{}) error {
	var source []byte
	switch v := src.(type) {
	case nil:
		*a = []string{}
		return nil
	case []byte:
		source = v
	case string:
		source = []byte(v)
	default:
		return errors.New("type assertion .([]byte) failed")
	}
	if len(source) == 0 {
		*a = []string{}
		return nil
	}
	return json.Unmarshal(source, a)
}

// Value implements the Valuer interface for StringArray
func (a StringArray) Value() (driver.Value, error) {
	if a == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(a)
}

// RecipeRow is a row of the recipes table.
type RecipeRow struct {
	ID          uuid.UUID   `db:"id"`
	Title       string      `db:"title"`
	Content     string      `db:"content"`
	Ingredients StringArray `db:"ingredients"`
	AuthorID    uuid.UUID   `db:"author_id"`
	Visible     bool        `db:"visible"`
	CreatedAt   time.Time   `db:"created_at"`
}

// Recipe converts the row to its domain form.
func (r *RecipeRow) Recipe() *types.PersistedRecipe {
	ingredients := []string(r.Ingredients)
	if ingredients == nil {
		ingredients = []string{}
	}
	return &types.PersistedRecipe{
		ID:          r.ID,
		Title:       r.Title,
		Content:     r.Content,
		Ingredients: ingredients,
		AuthorID:    r.AuthorID,
		Visible:     r.Visible,
		CreatedAt:   r.CreatedAt,
	}
}

// SavedMarkRow is a row of the saved_marks table.
type SavedMarkRow struct {
	ID        uuid.UUID `db:"id"`
	UserID    uuid.UUID `db:"user_id"`
	RecipeID  uuid.UUID `db:"recipe_id"`
	CreatedAt time.Time `db:"created_at"`
}

// Mark converts the row to its domain form.
func (m *SavedMarkRow) Mark() *types.SavedMark {
	return &types.SavedMark{ID: m.ID, UserID: m.UserID, RecipeID: m.RecipeID, CreatedAt: m.CreatedAt}
}
