package searcher

import (
	"crypto/sha256"
	"fmt"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/lingocore/tmcore-mcp/pkg/types"
)

const (
	// cacheCapacity bounds the number of memoized query results
	cacheCapacity = 100
	// cacheTTL is the default staleness window for a memoized result
	cacheTTL = 30 * time.Second
)

// cacheEntry holds a memoized response with its expiry
type cacheEntry struct {
	response  *Response
	expiresAt time.Time
}

// queryCache memoizes recent search responses. Lookups use Peek so hit
// recency never reorders the LRU list; combined with lazy expiry this gives
// oldest-inserted-first eviction under capacity pressure.
type queryCache struct {
	mu    sync.Mutex
	cache *lru.Cache[[32]byte, *cacheEntry]
}

func newQueryCache(capacity int) *queryCache {
	cache, err := lru.New[[32]byte, *cacheEntry](capacity)
	if err != nil {
		// Only reachable with a non-positive capacity
		panic(fmt.Sprintf("failed to create query cache: %v", err))
	}
	return &queryCache{cache: cache}
}

// lookup returns a copy of the memoized response for this request, truncated
// to the request's limit, or reports a miss.
func (qc *queryCache) lookup(normalizedQuery string, req Request) (*Response, bool) {
	key := cacheKey(normalizedQuery, req)

	qc.mu.Lock()
	defer qc.mu.Unlock()

	entry, found := qc.cache.Peek(key)
	if !found {
		return nil, false
	}

	if time.Now().After(entry.expiresAt) {
		qc.cache.Remove(key)
		return nil, false
	}

	response := copyResponse(entry.response)
	if req.Limit > 0 && len(response.Results) > req.Limit {
		response.Results = response.Results[:req.Limit]
		response.TotalResults = len(response.Results)
	}
	return response, true
}

// store memoizes a response under the request's key.
func (qc *queryCache) store(normalizedQuery string, req Request, response *Response) {
	entry := &cacheEntry{
		response:  copyResponse(response),
		expiresAt: time.Now().Add(req.CacheTTL),
	}

	qc.mu.Lock()
	qc.cache.Add(cacheKey(normalizedQuery, req), entry)
	qc.mu.Unlock()
}

func (qc *queryCache) purge() {
	qc.mu.Lock()
	qc.cache.Purge()
	qc.mu.Unlock()
}

func (qc *queryCache) len() int {
	qc.mu.Lock()
	defer qc.mu.Unlock()
	return qc.cache.Len()
}

// cacheKey hashes every result-quality-affecting request parameter. The
// limit is deliberately excluded: a cached list serves any smaller limit.
func cacheKey(normalizedQuery string, req Request) [32]byte {
	var data strings.Builder
	data.WriteString(normalizedQuery)
	data.WriteString("|")
	data.WriteString(strings.ToLower(strings.TrimSpace(req.SourceLocale)))
	data.WriteString("|")
	data.WriteString(strings.ToLower(strings.TrimSpace(req.TargetLocale)))
	data.WriteString("|")
	if req.ProjectID != nil {
		data.WriteString(*req.ProjectID)
	}
	data.WriteString("|")
	data.WriteString(string(req.Mode))
	data.WriteString(fmt.Sprintf("|%d|%.4f|%t", req.MinScore, req.VectorSimilarity, req.UseVector))

	return sha256.Sum256([]byte(data.String()))
}

// copyResponse deep-copies a response so cached data is never aliased by
// callers.
func copyResponse(src *Response) *Response {
	if src == nil {
		return nil
	}

	dst := &Response{
		TotalResults:    src.TotalResults,
		Duration:        src.Duration,
		CacheHit:        src.CacheHit,
		FuzzyCandidates: src.FuzzyCandidates,
		VectorResults:   src.VectorResults,
		VectorDegraded:  src.VectorDegraded,
		Widened:         src.Widened,
		Results:         make([]types.SearchResult, len(src.Results)),
	}
	copy(dst.Results, src.Results)

	for i := range dst.Results {
		if dst.Results[i].Entry != nil {
			entryCopy := *dst.Results[i].Entry
			dst.Results[i].Entry = &entryCopy
		}
	}
	return dst
}
