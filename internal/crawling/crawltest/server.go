// Package crawltest serves a fake recipe catalog over httptest for crawler and service tests.
package crawltest

import (
	"fmt"
	"html"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
)

// Recipe is one page served by the fake catalog.
type Recipe struct {
	Slug        string
	Title       string
	Ingredients []string
	Method      []string
}

// Server is an httptest catalog whose listings and recipe pages follow the live site's structure.
type Server struct {
	*httptest.Server

	mu         sync.RWMutex
	categories map[string][]string
	recipes    map[string]Recipe
	failing    map[string]bool
	broken     map[string]bool

	requests atomic.Int64
	inFlight atomic.Int64
	peak     atomic.Int64
	hold     chan struct{}
}

// NewServer starts an empty catalog. Close it when done.
func NewServer() *Server {
	s := &Server{
		categories: make(map[string][]string),
		recipes:    make(map[string]Recipe),
		failing:    make(map[string]bool),
		broken:     make(map[string]bool),
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	return s
}

// AddRecipe lists a recipe under each given category.
func (s *Server) AddRecipe(r Recipe, categories ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recipes[r.Slug] = r
	for _, c := range categories {
		s.categories[c] = append(s.categories[c], r.Slug)
	}
}

// FailCategory makes a category listing return 503.
func (s *Server) FailCategory(category string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failing[category] = true
}

// BreakRecipe serves a recipe page without its ingredients section.
func (s *Server) BreakRecipe(slug string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.broken[slug] = true
}

// Hold blocks every request until the returned release func is called.
func (s *Server) Hold() (release func()) {
	ch := make(chan struct{})
	s.mu.Lock()
	s.hold = ch
	s.mu.Unlock()
	var once sync.Once
	return func() { once.Do(func() { close(ch) }) }
}

// Requests returns the number of requests served.
func (s *Server) Requests() int64 {
	return s.requests.Load()
}

// PeakInFlight returns the largest number of concurrently handled requests.
func (s *Server) PeakInFlight() int64 {
	return s.peak.Load()
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	s.requests.Add(1)
	n := s.inFlight.Add(1)
	defer s.inFlight.Add(-1)
	for {
		p := s.peak.Load()
		if n <= p || s.peak.CompareAndSwap(p, n) {
			break
		}
	}

	s.mu.RLock()
	hold := s.hold
	s.mu.RUnlock()
	if hold != nil {
		select {
		case <-hold:
		case <-r.Context().Done():
			return
		}
	}

	path := r.URL.Path
	switch {
	case strings.HasPrefix(path, "/recipes/collection/") && strings.HasSuffix(path, "-recipes"):
		category := strings.TrimSuffix(strings.TrimPrefix(path, "/recipes/collection/"), "-recipes")
		s.serveCategory(w, category)
	case strings.HasPrefix(path, "/recipes/"):
		s.serveRecipe(w, strings.TrimPrefix(path, "/recipes/"))
	default:
		http.NotFound(w, r)
	}
}

func (s *Server) serveCategory(w http.ResponseWriter, category string) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.failing[category] {
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
		return
	}

	var b strings.Builder
	b.WriteString(`<html><body><div class="layout-md-rail__primary">`)
	fmt.Fprintf(&b, `<div class="card__section card__content"><a href="/recipes/collection/%s-recipes">All %s</a></div>`, category, category)
	for _, slug := range s.categories[category] {
		fmt.Fprintf(&b, `<div class="card__section card__content"><a href="/recipes/%s">%s</a></div>`, slug, html.EscapeString(s.recipes[slug].Title))
	}
	b.WriteString(`</div></body></html>`)

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(b.String()))
}

func (s *Server) serveRecipe(w http.ResponseWriter, slug string) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	recipe, ok := s.recipes[slug]
	if !ok {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}

	var b strings.Builder
	fmt.Fprintf(&b, `<html><body><h1>%s</h1><div class="row recipe__instructions">`, html.EscapeString(recipe.Title))
	if !s.broken[slug] {
		b.WriteString(`<section class="recipe__ingredients"><ul>`)
		for _, ing := range recipe.Ingredients {
			fmt.Fprintf(&b, `<li>%s</li>`, html.EscapeString(ing))
		}
		b.WriteString(`</ul></section>`)
	}
	b.WriteString(`<section class="recipe__method-steps"><ol>`)
	for _, step := range recipe.Method {
		fmt.Fprintf(&b, `<li>%s</li>`, html.EscapeString(step))
	}
	b.WriteString(`</ol></section></div></body></html>`)

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(b.String()))
}
