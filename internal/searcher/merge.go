package searcher

import (
	"math"
	"sort"

	"github.com/lingocore/tmcore-mcp/internal/storage"
	"github.com/lingocore/tmcore-mcp/pkg/types"
)

// mergeResults deduplicates the two legs into one ranked list.
//
// Vector neighbors seed the merged set; fuzzy results fold in afterwards. An
// entry found by both legs becomes hybrid and keeps the higher score. Ties
// are broken by discovery order, so on equal scores the vector seeding wins
// and is merely relabeled. Project-scoped results sort before global ones
// regardless of score.
func mergeResults(vector []storage.VectorResult, fuzzyResults []types.SearchResult, limit int) []types.SearchResult {
	type slot struct {
		result types.SearchResult
		order  int
	}

	merged := make(map[int64]*slot, len(vector)+len(fuzzyResults))
	order := 0

	for _, vr := range vector {
		scope := types.ScopeGlobal
		if vr.ProjectID != nil {
			scope = types.ScopeProject
		}
		merged[vr.EntryID] = &slot{
			order: order,
			result: types.SearchResult{
				EntryID:    vr.EntryID,
				FuzzyScore: similarityToScore(vr.Similarity),
				Similarity: vr.Similarity,
				Scope:      scope,
				Method:     types.MethodVector,
			},
		}
		order++
	}

	for _, fr := range fuzzyResults {
		existing, found := merged[fr.EntryID]
		if !found {
			fr.Method = types.MethodFuzzy
			merged[fr.EntryID] = &slot{order: order, result: fr}
			order++
			continue
		}

		existing.result.Method = types.MethodHybrid
		existing.result.Entry = fr.Entry
		existing.result.EditRatio = fr.EditRatio
		existing.result.TokenRatio = fr.TokenRatio
		if fr.FuzzyScore > existing.result.FuzzyScore {
			existing.result.FuzzyScore = fr.FuzzyScore
		}
	}

	slots := make([]*slot, 0, len(merged))
	for _, s := range merged {
		slots = append(slots, s)
	}

	sort.SliceStable(slots, func(i, j int) bool {
		a, b := slots[i], slots[j]
		if a.result.Scope != b.result.Scope {
			return a.result.Scope == types.ScopeProject
		}
		if a.result.FuzzyScore != b.result.FuzzyScore {
			return a.result.FuzzyScore > b.result.FuzzyScore
		}
		return a.order < b.order
	})

	if limit > 0 && len(slots) > limit {
		slots = slots[:limit]
	}

	results := make([]types.SearchResult, len(slots))
	for i, s := range slots {
		results[i] = s.result
	}
	return results
}

// similarityToScore maps a [0, 1] similarity onto the 0-100 score scale.
func similarityToScore(similarity float64) int {
	score := int(math.Round(similarity * 100))
	if score > 100 {
		score = 100
	}
	if score < 0 {
		score = 0
	}
	return score
}
