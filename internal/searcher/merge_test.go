package searcher

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lingocore/tmcore-mcp/internal/storage"
	"github.com/lingocore/tmcore-mcp/pkg/types"
)

func fuzzyResult(id int64, score int, scope types.Scope) types.SearchResult {
	return types.SearchResult{
		EntryID:    id,
		FuzzyScore: score,
		Scope:      scope,
		Method:     types.MethodFuzzy,
	}
}

func TestMergeResults_Empty(t *testing.T) {
	assert.Empty(t, mergeResults(nil, nil, 10))
}

func TestMergeResults_VectorOnly(t *testing.T) {
	vector := []storage.VectorResult{
		{EntryID: 1, Similarity: 0.9},
		{EntryID: 2, Similarity: 0.7},
	}

	merged := mergeResults(vector, nil, 10)
	require.Len(t, merged, 2)
	assert.Equal(t, int64(1), merged[0].EntryID)
	assert.Equal(t, types.MethodVector, merged[0].Method)
	assert.Equal(t, 90, merged[0].FuzzyScore)
	assert.Equal(t, types.ScopeGlobal, merged[0].Scope)
}

func TestMergeResults_HybridKeepsHigherScore(t *testing.T) {
	vector := []storage.VectorResult{{EntryID: 1, Similarity: 0.8}} // score 80
	fuzzyRes := []types.SearchResult{fuzzyResult(1, 95, types.ScopeGlobal)}

	merged := mergeResults(vector, fuzzyRes, 10)
	require.Len(t, merged, 1)
	assert.Equal(t, types.MethodHybrid, merged[0].Method)
	assert.Equal(t, 95, merged[0].FuzzyScore)
	assert.InDelta(t, 0.8, merged[0].Similarity, 1e-9)

	// Other direction: vector score wins
	vector = []storage.VectorResult{{EntryID: 1, Similarity: 0.99}} // score 99
	fuzzyRes = []types.SearchResult{fuzzyResult(1, 80, types.ScopeGlobal)}

	merged = mergeResults(vector, fuzzyRes, 10)
	require.Len(t, merged, 1)
	assert.Equal(t, types.MethodHybrid, merged[0].Method)
	assert.Equal(t, 99, merged[0].FuzzyScore)
}

func TestMergeResults_EqualScoreTieBreak(t *testing.T) {
	// Same entry, equal scores from both legs: the vector seeding is kept
	// first in discovery order and only relabeled.
	vector := []storage.VectorResult{{EntryID: 1, Similarity: 0.9}}
	fuzzyRes := []types.SearchResult{
		fuzzyResult(2, 90, types.ScopeGlobal),
		fuzzyResult(1, 90, types.ScopeGlobal),
	}

	merged := mergeResults(vector, fuzzyRes, 10)
	require.Len(t, merged, 2)
	assert.Equal(t, int64(1), merged[0].EntryID)
	assert.Equal(t, types.MethodHybrid, merged[0].Method)
	assert.Equal(t, int64(2), merged[1].EntryID)
}

func TestMergeResults_ProjectBeforeGlobal(t *testing.T) {
	projectID := "proj-1"
	vector := []storage.VectorResult{
		{EntryID: 1, Similarity: 0.99}, // global, highest score
		{EntryID: 2, ProjectID: &projectID, Similarity: 0.6},
	}
	fuzzyRes := []types.SearchResult{
		fuzzyResult(3, 100, types.ScopeGlobal),
		fuzzyResult(4, 72, types.ScopeProject),
	}

	merged := mergeResults(vector, fuzzyRes, 10)
	require.Len(t, merged, 4)

	// All project results precede all global results regardless of score
	assert.Equal(t, types.ScopeProject, merged[0].Scope)
	assert.Equal(t, types.ScopeProject, merged[1].Scope)
	assert.Equal(t, types.ScopeGlobal, merged[2].Scope)
	assert.Equal(t, types.ScopeGlobal, merged[3].Scope)

	// Descending score within each scope group
	assert.Equal(t, int64(4), merged[0].EntryID) // 72
	assert.Equal(t, int64(2), merged[1].EntryID) // 60
	assert.Equal(t, int64(3), merged[2].EntryID) // 100
	assert.Equal(t, int64(1), merged[3].EntryID) // 99
}

func TestMergeResults_Truncation(t *testing.T) {
	var fuzzyRes []types.SearchResult
	for i := int64(1); i <= 20; i++ {
		fuzzyRes = append(fuzzyRes, fuzzyResult(i, 70+int(i), types.ScopeGlobal))
	}

	merged := mergeResults(nil, fuzzyRes, 5)
	assert.Len(t, merged, 5)
	assert.Equal(t, 90, merged[0].FuzzyScore)
}

func TestSimilarityToScore(t *testing.T) {
	tests := []struct {
		similarity float64
		want       int
	}{
		{0, 0},
		{0.5, 50},
		{0.824, 82},
		{0.825, 83},
		{1, 100},
		{1.2, 100},
		{-0.1, 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, similarityToScore(tt.similarity))
	}
}
