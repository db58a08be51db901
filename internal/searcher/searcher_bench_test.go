package searcher

import (
	"fmt"
	"testing"

	"github.com/lingocore/tmcore-mcp/internal/storage"
	"github.com/lingocore/tmcore-mcp/pkg/types"
)

func BenchmarkMergeResults(b *testing.B) {
	vector := make([]storage.VectorResult, 50)
	for i := range vector {
		vector[i] = storage.VectorResult{EntryID: int64(i), Similarity: 0.5 + float64(i%50)/100}
	}
	fuzzyRes := make([]types.SearchResult, 100)
	for i := range fuzzyRes {
		fuzzyRes[i] = fuzzyResult(int64(i+25), 70+i%30, types.ScopeGlobal)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		mergeResults(vector, fuzzyRes, 10)
	}
}

func BenchmarkCacheKey(b *testing.B) {
	req := Request{
		SourceLocale: "en-US",
		TargetLocale: "de-DE",
		MinScore:     70,
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		cacheKey(fmt.Sprintf("query %d", i%100), req)
	}
}
