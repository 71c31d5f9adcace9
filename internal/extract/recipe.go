package extract

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/jonathan/recipe-share/internal/fetch"
	"github.com/jonathan/recipe-share/internal/types"
)

// Recipe page anchors.
const (
	TitleSelector        = "h1"
	InstructionsSelector = ".recipe__instructions"
	IngredientsSelector  = ".recipe__ingredients"
	MethodSelector       = ".recipe__method-steps"
)

var spaceRe = regexp.MustCompile(`\s+`)

// Recipe extracts title, ingredients and method steps from a recipe page.
// The returned record is unscored.
func Recipe(doc *fetch.Document) (*types.RecipeRecord, error) {
	root, err := goquery.NewDocumentFromReader(strings.NewReader(doc.HTML))
	if err != nil {
		return nil, &Error{
			URL:     doc.URL,
			Message: "failed to parse HTML",
			Cause:   err,
		}
	}

	title := norm(root.Find(TitleSelector).First().Text())
	if title == "" {
		return nil, &Error{URL: doc.URL, Anchor: TitleSelector, Message: "recipe title not found"}
	}

	// Ingredients and method live side by side in the instructions row;
	// fall back to the whole document when the row wrapper is missing.
	scope := root.Find(InstructionsSelector).First()
	if scope.Length() == 0 {
		scope = root.Selection
	}

	ingredientsSection := scope.Find(IngredientsSelector).First()
	if ingredientsSection.Length() == 0 {
		return nil, &Error{URL: doc.URL, Anchor: IngredientsSelector, Message: "ingredients section not found"}
	}
	methodSection := scope.Find(MethodSelector).First()
	if methodSection.Length() == 0 {
		return nil, &Error{URL: doc.URL, Anchor: MethodSelector, Message: "method section not found"}
	}

	return &types.RecipeRecord{
		Title:       title,
		Ingredients: listItems(ingredientsSection, norm),
		Method:      listItems(methodSection, normStep),
		SourceURL:   doc.URL,
	}, nil
}

func listItems(section *goquery.Selection, clean func(string) string) []string {
	items := make([]string, 0)
	section.Find("li").Each(func(_ int, li *goquery.Selection) {
		if t := clean(li.Text()); t != "" {
			items = append(items, t)
		}
	})
	return items
}

func norm(s string) string {
	return strings.TrimSpace(spaceRe.ReplaceAllString(s, " "))
}

// normStep also decodes percent signs that the catalog double-encodes in method text.
func normStep(s string) string {
	return strings.ReplaceAll(norm(s), "%25", "%")
}
