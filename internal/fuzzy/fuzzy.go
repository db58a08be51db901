package fuzzy

import (
	"math"
)

// Mode selects the pre-filter thresholds applied before composite scoring.
type Mode string

const (
	// ModeStrict rejects aggressively; used for default ("basic") searches.
	ModeStrict Mode = "strict"
	// ModeRelaxed admits weaker candidates; used for "extended" searches.
	ModeRelaxed Mode = "relaxed"
)

const (
	// ExactScore is returned when normalized strings are equal.
	ExactScore = 100

	// HighConfidence is the score at or above which a caller may stop
	// scoring further candidates once it has collected enough results.
	HighConfidence = 95

	// Composite score weights.
	editWeight  = 0.7
	tokenWeight = 0.3
)

// Pre-filter thresholds per mode.
const (
	strictLengthRatio  = 0.4
	relaxedLengthRatio = 0.6
	strictTokenFloor   = 0.3
	relaxedTokenFloor  = 0.15
)

// Score is the result of comparing a candidate against the query.
type Score struct {
	Value      int     // 0-100 composite score
	EditRatio  float64 // Normalized edit-distance component
	TokenRatio float64 // Token-overlap component
}

// Scorer scores candidate source texts against a single query. The query is
// normalized and tokenized once at construction, so a scorer can be applied
// cheaply across large candidate sets.
type Scorer struct {
	mode        Mode
	query       string
	queryRunes  []rune
	queryTokens []string
}

// NewScorer creates a scorer for the given raw query text.
func NewScorer(query string, mode Mode) *Scorer {
	if mode != ModeRelaxed {
		mode = ModeStrict
	}
	normalized := Normalize(query)
	return &Scorer{
		mode:        mode,
		query:       normalized,
		queryRunes:  []rune(normalized),
		queryTokens: Tokenize(normalized),
	}
}

// Query returns the normalized query text.
func (s *Scorer) Query() string {
	return s.query
}

// Score compares a candidate's raw source text against the query. The
// second return value reports whether the candidate passed the pre-filters;
// rejected candidates carry a zero Score and must not appear in results.
func (s *Scorer) Score(candidate string) (Score, bool) {
	normalized := Normalize(candidate)

	// Exact match short-circuits the whole pipeline.
	if normalized == s.query {
		return Score{Value: ExactScore, EditRatio: 1, TokenRatio: 1}, true
	}

	candRunes := []rune(normalized)

	// Pre-filter 1: length ratio.
	if !s.lengthRatioOK(len(s.queryRunes), len(candRunes)) {
		return Score{}, false
	}

	// Pre-filter 2: token overlap.
	candTokens := Tokenize(normalized)
	tokenRatio := tokenOverlap(s.queryTokens, candTokens)
	if tokenRatio < s.tokenFloor() {
		return Score{}, false
	}

	// Composite score: weighted edit distance + token overlap.
	editRatio := editDistanceRatio(s.queryRunes, candRunes)
	value := int(math.Round(100 * (editWeight*editRatio + tokenWeight*tokenRatio)))
	if value > 100 {
		value = 100
	}
	if value < 0 {
		value = 0
	}

	return Score{Value: value, EditRatio: editRatio, TokenRatio: tokenRatio}, true
}

func (s *Scorer) lengthRatioOK(lenA, lenB int) bool {
	maxLen := lenA
	if lenB > maxLen {
		maxLen = lenB
	}
	if maxLen == 0 {
		return true
	}

	diff := lenA - lenB
	if diff < 0 {
		diff = -diff
	}

	threshold := strictLengthRatio
	if s.mode == ModeRelaxed {
		threshold = relaxedLengthRatio
	}
	return float64(diff)/float64(maxLen) <= threshold
}

func (s *Scorer) tokenFloor() float64 {
	if s.mode == ModeRelaxed {
		return relaxedTokenFloor
	}
	return strictTokenFloor
}

// tokenOverlap computes |common| / max(|a|, |b|, 1).
func tokenOverlap(a, b []string) float64 {
	denom := len(a)
	if len(b) > denom {
		denom = len(b)
	}
	if denom == 0 {
		denom = 1
	}

	set := make(map[string]int, len(a))
	for _, tok := range a {
		set[tok]++
	}

	common := 0
	for _, tok := range b {
		if set[tok] > 0 {
			set[tok]--
			common++
		}
	}

	return float64(common) / float64(denom)
}

// editDistanceRatio returns 1 - levenshtein/maxLen, in [0, 1].
func editDistanceRatio(a, b []rune) float64 {
	maxLen := len(a)
	if len(b) > maxLen {
		maxLen = len(b)
	}
	if maxLen == 0 {
		return 1
	}
	return 1 - float64(levenshtein(a, b))/float64(maxLen)
}

// levenshtein computes edit distance with the two-row dynamic programming
// formulation, O(min(a,b)) space.
func levenshtein(a, b []rune) int {
	if len(a) < len(b) {
		a, b = b, a
	}
	if len(b) == 0 {
		return len(a)
	}

	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}

			min := prev[j] + 1 // deletion
			if ins := curr[j-1] + 1; ins < min {
				min = ins // insertion
			}
			if sub := prev[j-1] + cost; sub < min {
				min = sub // substitution
			}
			curr[j] = min
		}
		prev, curr = curr, prev
	}

	return prev[len(b)]
}
