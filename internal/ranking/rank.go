package ranking

import (
	"sort"

	"github.com/jonathan/recipe-share/internal/types"
)

// Rank filters out unmatched records, collapses duplicate titles and sorts the rest by
// match score desc, method overlap desc, title asc, then source URL asc.
// The output does not depend on input order.
func Rank(records []types.RecipeRecord, terms []string) []types.RankedResult {
	candidates := Filter(records)

	ranked := make([]types.RankedResult, 0, len(candidates))
	for _, r := range candidates {
		ranked = append(ranked, types.RankedResult{
			RecipeRecord:  r.WithScore(r.MatchScore),
			MethodOverlap: MethodOverlap(r.Method, terms),
		})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return Less(ranked[i], ranked[j])
	})

	// Sorted order means the first copy of a title is its best-ranked one
	seen := make(map[string]bool, len(ranked))
	out := make([]types.RankedResult, 0, len(ranked))
	for _, r := range ranked {
		if seen[r.Title] {
			continue
		}
		seen[r.Title] = true
		out = append(out, r)
	}
	return out
}

// Less reports whether a ranks before b.
func Less(a, b types.RankedResult) bool {
	if a.MatchScore != b.MatchScore {
		return a.MatchScore > b.MatchScore
	}
	if a.MethodOverlap != b.MethodOverlap {
		return a.MethodOverlap > b.MethodOverlap
	}
	if a.Title != b.Title {
		return a.Title < b.Title
	}
	return a.SourceURL < b.SourceURL
}
