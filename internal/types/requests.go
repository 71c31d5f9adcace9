package types

import (
	"github.com/go-playground/validator/v10"
)

// SearchRequest represents a search submission.
// Either Ingredients (newline separated, as typed into a form) or Terms may be given.
type SearchRequest struct {
	Ingredients string   `json:"ingredients" validate:"required_without=Terms,max=4096"`
	Terms       []string `json:"terms,omitempty" validate:"required_without=Ingredients,max=64,dive,max=128"`
}

// Query converts the request into a normalized SearchQuery.
func (r *SearchRequest) Query() SearchQuery {
	if len(r.Terms) > 0 {
		return NewSearchQuery(r.Terms)
	}
	return ParseSearchQuery(r.Ingredients)
}

// SaveRequest represents a save-from-search request for one result title.
type SaveRequest struct {
	Title string `json:"title" validate:"required,min=1,max=512"`
}

// Validate validates the SearchRequest using the validator.
func (r *SearchRequest) Validate() error {
	validate := validator.New()
	return validate.Struct(r)
}

// Validate validates the SaveRequest using the validator.
func (r *SaveRequest) Validate() error {
	validate := validator.New()
	return validate.Struct(r)
}
