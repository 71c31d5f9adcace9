package crawling

import (
	"fmt"
	"net/url"
	"strings"
)

// DefaultBaseURL is the recipe catalog the crawler reads from.
const DefaultBaseURL = "https://www.bbcgoodfood.com"

// DefaultPathPattern formats a category name into its listing path.
const DefaultPathPattern = "/recipes/collection/%s-recipes"

// DefaultCategories are the catalog collections enumerated for every search.
var DefaultCategories = []string{
	"lunch",
	"dessert",
	"beef",
	"savoury-pie",
	"storecupboard-comfort-food",
	"sausage",
	"chicken",
	"autumn-vegetarian",
	"gravy",
}

// Catalog describes where category listings live.
type Catalog struct {
	BaseURL     string   `json:"base_url" yaml:"base_url" validate:"required,url"`
	Categories  []string `json:"categories" yaml:"categories" validate:"required,min=1,dive,required"`
	PathPattern string   `json:"path_pattern" yaml:"path_pattern" validate:"required"`
}

// DefaultCatalog returns the built-in catalog with its nine categories.
func DefaultCatalog() Catalog {
	return Catalog{
		BaseURL:     DefaultBaseURL,
		Categories:  append([]string(nil), DefaultCategories...),
		PathPattern: DefaultPathPattern,
	}
}

// CategoryURL returns the listing URL for one category.
func (c Catalog) CategoryURL(category string) string {
	pattern := c.PathPattern
	if pattern == "" {
		pattern = DefaultPathPattern
	}
	return strings.TrimRight(c.BaseURL, "/") + fmt.Sprintf(pattern, url.PathEscape(category))
}

// WithDefaults fills empty fields from DefaultCatalog.
func (c Catalog) WithDefaults() Catalog {
	d := DefaultCatalog()
	if c.BaseURL == "" {
		c.BaseURL = d.BaseURL
	}
	if len(c.Categories) == 0 {
		c.Categories = d.Categories
	}
	if c.PathPattern == "" {
		c.PathPattern = d.PathPattern
	}
	return c
}
