package extract

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/jonathan/recipe-share/internal/fetch"
)

// Catalog page anchors.
const (
	CatalogContainerSelector = ".layout-md-rail__primary"
	CatalogCardSelector      = "div.card__section.card__content"
)

// CatalogLinks returns the recipe page URLs listed on a catalog page, in document order.
// The first anchor inside the cards is a collection artifact, not a recipe, and is skipped by position.
// Relative links are resolved against baseURL.
func CatalogLinks(doc *fetch.Document, baseURL string) ([]string, error) {
	base, err := url.Parse(baseURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, &Error{
			URL:     doc.URL,
			Message: "invalid base URL " + baseURL,
			Cause:   err,
		}
	}

	root, err := goquery.NewDocumentFromReader(strings.NewReader(doc.HTML))
	if err != nil {
		return nil, &Error{
			URL:     doc.URL,
			Message: "failed to parse HTML",
			Cause:   err,
		}
	}

	container := root.Find(CatalogContainerSelector).First()
	if container.Length() == 0 {
		return nil, &Error{
			URL:     doc.URL,
			Anchor:  CatalogContainerSelector,
			Message: "catalog container not found",
		}
	}

	var hrefs []string
	container.Find(CatalogCardSelector).Each(func(_ int, card *goquery.Selection) {
		card.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
			hrefs = append(hrefs, strings.TrimSpace(a.AttrOr("href", "")))
		})
	})
	if len(hrefs) == 0 {
		return nil, &Error{
			URL:     doc.URL,
			Anchor:  CatalogCardSelector,
			Message: "no recipe cards found",
		}
	}

	seen := make(map[string]bool)
	links := make([]string, 0, len(hrefs)-1)
	for _, href := range hrefs[1:] {
		if href == "" {
			continue
		}
		linkURL, err := url.Parse(href)
		if err != nil {
			// Skip malformed URLs
			continue
		}
		absoluteURL := base.ResolveReference(linkURL)
		absoluteURL.Fragment = ""
		urlString := absoluteURL.String()
		if seen[urlString] {
			continue
		}
		seen[urlString] = true
		links = append(links, urlString)
	}

	return links, nil
}
