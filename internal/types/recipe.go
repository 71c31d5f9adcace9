package types

// RecipeRecord is the structured form of one scraped recipe page.
type RecipeRecord struct {
	Title       string   `json:"title"`
	Ingredients []string `json:"ingredients"`
	Method      []string `json:"method"`
	MatchScore  int      `json:"match_score"`
	SourceURL   string   `json:"source_url,omitempty"`
}

// WithScore returns a copy of the record carrying the given match score.
func (r RecipeRecord) WithScore(score int) RecipeRecord {
	r.MatchScore = score
	r.Ingredients = append([]string(nil), r.Ingredients...)
	r.Method = append([]string(nil), r.Method...)
	return r
}

// RankedResult is a scored record plus its tie-break key and save state.
type RankedResult struct {
	RecipeRecord
	// MethodOverlap counts distinct search terms that appear as whole words in the method text
	MethodOverlap int  `json:"method_overlap"`
	AlreadySaved  bool `json:"already_saved"`
}

// CloneResults copies a result sequence so callers can derive a new one without mutating the original.
func CloneResults(in []RankedResult) []RankedResult {
	if in == nil {
		return nil
	}
	out := make([]RankedResult, len(in))
	copy(out, in)
	return out
}
