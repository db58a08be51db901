package types

// SearchMethod records how a search result was discovered.
type SearchMethod string

const (
	MethodFuzzy  SearchMethod = "fuzzy"
	MethodVector SearchMethod = "vector"
	// MethodHybrid marks entries found independently by both the fuzzy and
	// the vector leg of a search.
	MethodHybrid SearchMethod = "hybrid"
)

// SearchResult represents a single ranked TM suggestion.
type SearchResult struct {
	// Identification
	EntryID int64
	Entry   *TmEntry

	// Scoring
	FuzzyScore int     // 0-100 textual similarity
	EditRatio  float64 // Normalized edit-distance component
	TokenRatio float64 // Token-overlap component
	Similarity float64 // Embedding cosine similarity (0-1), zero for fuzzy-only hits

	// Classification
	Scope  Scope
	Method SearchMethod
}

// Validate checks if the search result is valid.
func (sr *SearchResult) Validate() error {
	if sr.EntryID == 0 {
		return ErrInvalidEntryID
	}

	if sr.FuzzyScore < 0 || sr.FuzzyScore > 100 {
		return ErrInvalidScore
	}

	if sr.Similarity < 0 || sr.Similarity > 1 {
		return ErrInvalidSimilarity
	}

	switch sr.Method {
	case MethodFuzzy, MethodVector, MethodHybrid:
	default:
		return ErrInvalidMethod
	}

	return nil
}
