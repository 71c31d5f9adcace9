package reconcile

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jonathan/recipe-share/internal/logger"
	"github.com/jonathan/recipe-share/internal/metrics"
	"github.com/jonathan/recipe-share/internal/types"
)

// SaveResult describes what SaveFromSearch did.
type SaveResult struct {
	Recipe *types.PersistedRecipe `json:"recipe"`
	// Created is false when the user had already saved the title
	Created bool `json:"created"`
	// MarkCreated is true when a missing SavedMark was added to an existing recipe
	MarkCreated bool `json:"mark_created"`
}

// UnsaveResult describes what UnsaveFromSearch did.
type UnsaveResult struct {
	MarkDeleted   bool `json:"mark_deleted"`
	RecipeDeleted bool `json:"recipe_deleted"`
}

// Reconciler applies saved-state to search results and performs idempotent save/unsave.
type Reconciler struct {
	store  Store
	logger *zap.Logger
}

// New creates a Reconciler over store.
func New(store Store, l *zap.Logger) *Reconciler {
	return &Reconciler{store: store, logger: logger.OrNop(l)}
}

// Reconcile returns a copy of results with AlreadySaved set for userID.
// A nil userID is an anonymous caller and gets every flag cleared.
func (r *Reconciler) Reconcile(ctx context.Context, results []types.RankedResult, userID *uuid.UUID) ([]types.RankedResult, error) {
	out := types.CloneResults(results)
	if out == nil {
		out = []types.RankedResult{}
	}
	if userID == nil {
		for i := range out {
			out[i].AlreadySaved = false
		}
		return out, nil
	}

	var saved []types.PersistedRecipe
	err := r.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		var err error
		saved, err = tx.ListSavedRecipes(ctx, *userID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load saved recipes: %w", err)
	}

	savedTitles := make(map[string]bool, len(saved))
	for _, p := range saved {
		savedTitles[p.Title] = true
	}
	for i := range out {
		out[i].AlreadySaved = savedTitles[out[i].Title]
	}
	return out, nil
}

// SaveFromSearch materializes record as a non-visible recipe owned by userID and marks it saved.
// Saving a title the user already saved is a no-op.
func (r *Reconciler) SaveFromSearch(ctx context.Context, record types.RecipeRecord, userID uuid.UUID) (*SaveResult, error) {
	var result *SaveResult
	err := r.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		var err error
		result, err = saveInTx(ctx, tx, record, userID)
		return err
	})

	if IsConflict(err) {
		// A concurrent save won the race; report what it stored
		r.logger.Debug("save conflict resolved as already saved", zap.String("title", record.Title), zap.Error(err))
		err = r.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
			existing, err := tx.FindSyntheticRecipe(ctx, record.Title, userID)
			if err != nil {
				return err
			}
			result = &SaveResult{Recipe: existing}
			return nil
		})
	}
	if err != nil {
		metrics.SavesTotal.WithLabelValues("save", "error").Inc()
		return nil, fmt.Errorf("failed to save recipe %q: %w", record.Title, err)
	}

	if result.Created {
		metrics.SavesTotal.WithLabelValues("save", "created").Inc()
	} else {
		metrics.SavesTotal.WithLabelValues("save", "noop").Inc()
	}
	r.logger.Info("recipe saved from search",
		zap.String("title", record.Title),
		zap.String("user_id", userID.String()),
		zap.Bool("created", result.Created),
	)
	return result, nil
}

func saveInTx(ctx context.Context, tx Tx, record types.RecipeRecord, userID uuid.UUID) (*SaveResult, error) {
	existing, err := tx.FindSyntheticRecipe(ctx, record.Title, userID)
	if err != nil {
		return nil, err
	}

	if existing != nil {
		mark, err := tx.FindSavedMark(ctx, userID, existing.ID)
		if err != nil {
			return nil, err
		}
		if mark != nil {
			return &SaveResult{Recipe: existing}, nil
		}
		if _, err := tx.CreateSavedMark(ctx, userID, existing.ID); err != nil {
			return nil, err
		}
		return &SaveResult{Recipe: existing, MarkCreated: true}, nil
	}

	ingredients := append([]string{}, record.Ingredients...)
	recipe, err := tx.CreateRecipe(ctx, record.Title, strings.Join(record.Method, "\n"), ingredients, userID, false)
	if err != nil {
		return nil, err
	}
	if _, err := tx.CreateSavedMark(ctx, userID, recipe.ID); err != nil {
		return nil, err
	}
	return &SaveResult{Recipe: recipe, Created: true, MarkCreated: true}, nil
}

// UnsaveFromSearch removes userID's mark on title. A recipe materialized purely by saving
// is deleted once no marks remain; visible posts are never deleted. Unknown titles are a no-op.
func (r *Reconciler) UnsaveFromSearch(ctx context.Context, title string, userID uuid.UUID) (*UnsaveResult, error) {
	result := &UnsaveResult{}
	err := r.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		*result = UnsaveResult{}

		target, err := tx.FindSyntheticRecipe(ctx, title, userID)
		if err != nil {
			return err
		}
		if target == nil {
			target, err = tx.FindRecipeByTitle(ctx, title)
			if err != nil {
				return err
			}
		}
		if target == nil {
			return nil
		}

		mark, err := tx.FindSavedMark(ctx, userID, target.ID)
		if err != nil {
			return err
		}
		if mark != nil {
			if err := tx.DeleteSavedMark(ctx, mark.ID); err != nil {
				return err
			}
			result.MarkDeleted = true
		}

		if !target.IsSyntheticFor(userID) {
			return nil
		}
		remaining, err := tx.CountSavedMarks(ctx, target.ID)
		if err != nil {
			return err
		}
		if remaining > 0 {
			return nil
		}
		if err := tx.DeleteRecipe(ctx, target.ID); err != nil {
			return err
		}
		result.RecipeDeleted = true
		return nil
	})
	if err != nil {
		metrics.SavesTotal.WithLabelValues("unsave", "error").Inc()
		return nil, fmt.Errorf("failed to unsave recipe %q: %w", title, err)
	}

	if result.MarkDeleted {
		metrics.SavesTotal.WithLabelValues("unsave", "deleted").Inc()
	} else {
		metrics.SavesTotal.WithLabelValues("unsave", "noop").Inc()
	}
	r.logger.Info("recipe unsaved from search",
		zap.String("title", title),
		zap.String("user_id", userID.String()),
		zap.Bool("mark_deleted", result.MarkDeleted),
		zap.Bool("recipe_deleted", result.RecipeDeleted),
	)
	return result, nil
}

// Saved lists every recipe userID has saved, newest first.
func (r *Reconciler) Saved(ctx context.Context, userID uuid.UUID) ([]types.PersistedRecipe, error) {
	var saved []types.PersistedRecipe
	err := r.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		var err error
		saved, err = tx.ListSavedRecipes(ctx, userID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list saved recipes: %w", err)
	}
	if saved == nil {
		saved = []types.PersistedRecipe{}
	}
	return saved, nil
}
