package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/jonathan/recipe-share/internal/cache"
	"github.com/jonathan/recipe-share/internal/search"
	"github.com/jonathan/recipe-share/internal/server/middleware"
	"github.com/jonathan/recipe-share/internal/types"
)

const maxBodyBytes = 64 << 10

// SearchResponse is the body returned by POST /search.
type SearchResponse struct {
	SessionID string `json:"session_id"`
	*search.Outcome
}

// ResultsResponse wraps a session's current results.
type ResultsResponse struct {
	SessionID string `json:"session_id"`
	*cache.Entry
}

// SavedChangeResponse is returned by save and unsave. Search is nil when the session has no results.
type SavedChangeResponse struct {
	Title  string       `json:"title"`
	Saved  bool         `json:"saved"`
	Search *cache.Entry `json:"search,omitempty"`
}

// SavedListResponse lists a user's saved recipes, newest first.
type SavedListResponse struct {
	Recipes []types.PersistedRecipe `json:"recipes"`
}

// handleSearch runs a search for the session, replacing its previous results
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req types.SearchRequest
	if !s.decode(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		s.validationError(w, err)
		return
	}

	outcome, err := s.search.Search(r.Context(), sessionID(r), middleware.OptionalUserID(r), req.Query())
	if err != nil {
		s.errorFromErr(w, r, err)
		return
	}

	status := http.StatusOK
	if outcome.Status == cache.StatusFailed {
		status = http.StatusServiceUnavailable
	}
	s.jsonResponse(w, status, SearchResponse{SessionID: sessionID(r), Outcome: outcome})
}

// handleResults returns the session's current results
func (s *Server) handleResults(w http.ResponseWriter, r *http.Request) {
	entry, err := s.search.Results(r.Context(), sessionID(r))
	if err != nil {
		s.errorFromErr(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, ResultsResponse{SessionID: sessionID(r), Entry: entry})
}

// handleSave saves one result of the session's current search for the authenticated user
func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserID(r)
	if err != nil {
		s.errorResponse(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req types.SaveRequest
	if !s.decode(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		s.validationError(w, err)
		return
	}

	entry, err := s.search.Save(r.Context(), sessionID(r), userID, req.Title)
	if err != nil {
		s.errorFromErr(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, SavedChangeResponse{Title: req.Title, Saved: true, Search: entry})
}

// handleUnsave removes the authenticated user's save of a title
func (s *Server) handleUnsave(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserID(r)
	if err != nil {
		s.errorResponse(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	req := types.SaveRequest{Title: strings.TrimSpace(r.URL.Query().Get("title"))}
	if err := req.Validate(); err != nil {
		s.validationError(w, err)
		return
	}

	entry, err := s.search.Unsave(r.Context(), sessionID(r), userID, req.Title)
	if err != nil {
		s.errorFromErr(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, SavedChangeResponse{Title: req.Title, Saved: false, Search: entry})
}

// handleListSaved lists every recipe the authenticated user has saved
func (s *Server) handleListSaved(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserID(r)
	if err != nil {
		s.errorResponse(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	recipes, err := s.search.Saved(r.Context(), userID)
	if err != nil {
		s.errorFromErr(w, r, err)
		return
	}
	if recipes == nil {
		recipes = []types.PersistedRecipe{}
	}
	s.jsonResponse(w, http.StatusOK, SavedListResponse{Recipes: recipes})
}

// decode reads a JSON body into dst, writing a 400 and returning false on failure.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return false
	}
	return true
}

// validationError reports the first failing field of a validator error.
func (s *Server) validationError(w http.ResponseWriter, err error) {
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		err = &ErrValidation{Field: fe.Field(), Message: "failed on '" + fe.Tag() + "'"}
	}
	s.errorResponse(w, http.StatusBadRequest, err.Error())
}
