// Package ranking scores scraped recipes against a search query and orders them deterministically.
package ranking

import (
	"strings"
	"unicode"

	"github.com/jonathan/recipe-share/internal/types"
)

// Weights controls how term matches accumulate into a match score.
type Weights struct {
	// FirstMatch is added the first time a term matches any ingredient line
	FirstMatch int `json:"first_match" yaml:"first_match" validate:"min=1"`
	// RepeatMatch is added for every later match of an already-matched term
	RepeatMatch int `json:"repeat_match" yaml:"repeat_match" validate:"min=0"`
}

// DefaultWeights returns the current scoring weights.
func DefaultWeights() Weights {
	return Weights{FirstMatch: 2, RepeatMatch: 1}
}

// LegacyWeights returns weights that count every match equally.
func LegacyWeights() Weights {
	return Weights{FirstMatch: 2, RepeatMatch: 2}
}

// Score computes the match score of ingredient lines against search terms.
// Matching is a case-insensitive substring test per line. Duplicate terms count as repeat matches.
func Score(ingredients, terms []string, w Weights) int {
	normalized := normalizeTerms(terms)
	if len(normalized) == 0 {
		return 0
	}

	matched := make(map[string]bool, len(normalized))
	score := 0
	for _, line := range ingredients {
		lineLower := strings.ToLower(strings.ReplaceAll(line, "\r", ""))
		for _, term := range normalized {
			if !strings.Contains(lineLower, term) {
				continue
			}
			if matched[term] {
				score += w.RepeatMatch
			} else {
				matched[term] = true
				score += w.FirstMatch
			}
		}
	}
	return score
}

// ScoreRecord returns a copy of the record carrying its match score.
func ScoreRecord(record types.RecipeRecord, terms []string, w Weights) types.RecipeRecord {
	return record.WithScore(Score(record.Ingredients, terms, w))
}

// MethodOverlap counts the distinct terms that appear as whole words in the method steps.
// Multi-word terms match a consecutive run of words.
func MethodOverlap(method, terms []string) int {
	words := make([]string, 0)
	for _, step := range method {
		words = append(words, tokenize(step)...)
	}
	if len(words) == 0 {
		return 0
	}

	wordSet := make(map[string]bool, len(words))
	for _, w := range words {
		wordSet[w] = true
	}

	count := 0
	for _, term := range types.NewSearchQuery(terms).Distinct() {
		termWords := tokenize(term)
		switch len(termWords) {
		case 0:
			continue
		case 1:
			if wordSet[termWords[0]] {
				count++
			}
		default:
			if containsRun(words, termWords) {
				count++
			}
		}
	}
	return count
}

// Filter drops records that matched no term.
func Filter(records []types.RecipeRecord) []types.RecipeRecord {
	out := make([]types.RecipeRecord, 0, len(records))
	for _, r := range records {
		if r.MatchScore > 0 {
			out = append(out, r)
		}
	}
	return out
}

func normalizeTerms(terms []string) []string {
	out := make([]string, 0, len(terms))
	for _, t := range terms {
		if n := types.NormalizeTerm(t); n != "" {
			out = append(out, n)
		}
	}
	return out
}

func tokenize(text string) []string {
	fields := strings.Fields(strings.ToLower(text))
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.TrimFunc(f, func(r rune) bool {
			return unicode.IsPunct(r) || unicode.IsSymbol(r)
		})
		if f != "" {
			out = append(out, f)
		}
	}
	return out
}

func containsRun(words, run []string) bool {
	for i := 0; i+len(run) <= len(words); i++ {
		match := true
		for j := range run {
			if words[i+j] != run[j] {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}
