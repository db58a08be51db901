package searcher

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/lingocore/tmcore-mcp/internal/embedder"
	"github.com/lingocore/tmcore-mcp/internal/fuzzy"
	"github.com/lingocore/tmcore-mcp/internal/locale"
	"github.com/lingocore/tmcore-mcp/internal/storage"
	"github.com/lingocore/tmcore-mcp/pkg/types"
)

const (
	// DefaultLimit is applied when a request carries no limit
	DefaultLimit = 10
	// MaxLimit caps the result count regardless of the request
	MaxLimit = 100
	// DefaultMinScore is the fuzzy score floor applied when unset
	DefaultMinScore = 70
	// DefaultVectorSimilarity is the vector similarity floor applied when unset
	DefaultVectorSimilarity = 0.5

	// candidateFetchLimit bounds how many rows the fuzzy leg pulls from the
	// store before scoring
	candidateFetchLimit = 5000
)

// Request contains parameters for a TM search
type Request struct {
	SourceText   string
	SourceLocale string // Empty or "*" means any
	TargetLocale string // Empty or "*" means any
	ProjectID    *string

	Limit            int
	MinScore         int     // Fuzzy score floor, 0-100
	VectorSimilarity float64 // Vector similarity floor, 0-1
	Mode             fuzzy.Mode
	UseVector        bool

	UseCache bool
	CacheTTL time.Duration
}

// Response contains ranked results and search metadata
type Response struct {
	Results      []types.SearchResult
	TotalResults int
	Duration     time.Duration
	CacheHit     bool

	// Diagnostics
	FuzzyCandidates int  // Candidates scored by the fuzzy leg
	VectorResults   int  // Neighbors returned by the vector leg
	VectorDegraded  bool // Vector leg failed and the search continued fuzzy-only
	Widened         bool // Locale filters were dropped after an empty first pass
}

// Searcher coordinates fuzzy and vector retrieval over the entry store
type Searcher struct {
	store    storage.Store
	embedder embedder.Embedder
	cache    *queryCache
	logger   zerolog.Logger
}

// Config wires a Searcher's collaborators.
type Config struct {
	Store    storage.Store
	Embedder embedder.Embedder
	Logger   zerolog.Logger
}

// New creates a Searcher with a fresh query cache.
func New(cfg Config) *Searcher {
	return &Searcher{
		store:    cfg.Store,
		embedder: cfg.Embedder,
		cache:    newQueryCache(cacheCapacity),
		logger:   cfg.Logger.With().Str("component", "searcher").Logger(),
	}
}

// Search runs a hybrid fuzzy + vector search. Blank query text yields an
// empty response rather than an error; vector-leg failures degrade to
// fuzzy-only results.
func (s *Searcher) Search(ctx context.Context, req Request) (*Response, error) {
	startTime := time.Now()
	s.applyDefaults(&req)

	query := fuzzy.Normalize(req.SourceText)
	if query == "" {
		return &Response{Results: []types.SearchResult{}, Duration: time.Since(startTime)}, nil
	}

	if req.UseCache {
		if cached, ok := s.cache.lookup(query, req); ok {
			cached.CacheHit = true
			cached.Duration = time.Since(startTime)
			return cached, nil
		}
	}

	source := locale.Parse(req.SourceLocale)
	target := locale.Parse(req.TargetLocale)

	response, err := s.run(ctx, req, source, target)
	if err != nil {
		return nil, err
	}

	// Widening fallback: an empty result under two concrete locale filters
	// gets one retry across all locales.
	if len(response.Results) == 0 && !source.IsAny() && !target.IsAny() {
		s.logger.Debug().
			Str("source_locale", source.String()).
			Str("target_locale", target.String()).
			Msg("no results under locale filters, widening to all locales")

		response, err = s.run(ctx, req, locale.Any(), locale.Any())
		if err != nil {
			return nil, err
		}
		response.Widened = true
	}

	response.Duration = time.Since(startTime)

	if req.UseCache {
		s.cache.store(query, req, response)
	}

	return response, nil
}

func (s *Searcher) applyDefaults(req *Request) {
	if req.Limit <= 0 {
		req.Limit = DefaultLimit
	}
	if req.Limit > MaxLimit {
		req.Limit = MaxLimit
	}
	if req.MinScore <= 0 {
		req.MinScore = DefaultMinScore
	}
	if req.VectorSimilarity <= 0 {
		req.VectorSimilarity = DefaultVectorSimilarity
	}
	if req.Mode != fuzzy.ModeRelaxed {
		req.Mode = fuzzy.ModeStrict
	}
	if req.CacheTTL <= 0 {
		req.CacheTTL = cacheTTL
	}
}

// legResult carries one leg's output through the fan-in channel
type legResult struct {
	fuzzy  []types.SearchResult
	vector []storage.VectorResult
	count  int
	err    error
}

// run executes both legs concurrently and merges their results.
func (s *Searcher) run(ctx context.Context, req Request, source, target locale.Filter) (*Response, error) {
	fuzzyChan := make(chan legResult, 1)
	vectorChan := make(chan legResult, 1)

	go s.runFuzzy(ctx, req, source, target, fuzzyChan)
	go s.runVector(ctx, req, source, target, vectorChan)

	var fuzzyRes, vectorRes legResult
	var fuzzyDone, vectorDone bool
	for !fuzzyDone || !vectorDone {
		select {
		case fuzzyRes = <-fuzzyChan:
			fuzzyDone = true
		case vectorRes = <-vectorChan:
			vectorDone = true
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if fuzzyRes.err != nil {
		return nil, fmt.Errorf("fuzzy search failed: %w", fuzzyRes.err)
	}

	// The vector leg degrades instead of failing the request.
	degraded := false
	if vectorRes.err != nil {
		degraded = true
		s.logger.Warn().Err(vectorRes.err).Msg("vector search unavailable, continuing fuzzy-only")
		vectorRes.vector = nil
	}

	merged := mergeResults(vectorRes.vector, fuzzyRes.fuzzy, req.Limit)
	results, err := s.materialize(ctx, merged)
	if err != nil {
		return nil, err
	}

	return &Response{
		Results:         results,
		TotalResults:    len(results),
		FuzzyCandidates: fuzzyRes.count,
		VectorResults:   len(vectorRes.vector),
		VectorDegraded:  degraded,
	}, nil
}

// runFuzzy fetches candidates and scores them against the query.
func (s *Searcher) runFuzzy(ctx context.Context, req Request, source, target locale.Filter, out chan<- legResult) {
	var res legResult

	candidates, err := s.store.FetchCandidates(ctx, storage.CandidateQuery{
		ProjectID: req.ProjectID,
		Source:    source,
		Target:    target,
		Limit:     candidateFetchLimit,
	})
	if err != nil {
		res.err = err
	} else {
		res.count = len(candidates)
		res.fuzzy, res.err = s.scoreCandidates(ctx, req, candidates)
	}

	select {
	case out <- res:
	case <-ctx.Done():
	}
}

// scoreCandidates scores candidates on a bounded worker pool, stopping early
// once limit results at or above the high-confidence score are collected.
func (s *Searcher) scoreCandidates(ctx context.Context, req Request, candidates []*types.TmEntry) ([]types.SearchResult, error) {
	scorer := fuzzy.NewScorer(req.SourceText, req.Mode)

	workers := runtime.NumCPU()
	if workers > 4 {
		workers = 4
	}
	if workers > len(candidates) {
		workers = len(candidates)
	}
	if workers == 0 {
		return []types.SearchResult{}, nil
	}

	var (
		mu           sync.Mutex
		results      []types.SearchResult
		highHits     atomic.Int64
		enoughSignal = int64(req.Limit)
	)

	g, gctx := errgroup.WithContext(ctx)
	for w := 0; w < workers; w++ {
		shard := w
		g.Go(func() error {
			for i := shard; i < len(candidates); i += workers {
				if gctx.Err() != nil {
					return nil
				}
				if highHits.Load() >= enoughSignal {
					return nil
				}

				entry := candidates[i]
				score, ok := scorer.Score(entry.SourceText)
				if !ok || score.Value < req.MinScore {
					continue
				}

				result := types.SearchResult{
					EntryID:    entry.ID,
					Entry:      entry,
					FuzzyScore: score.Value,
					EditRatio:  score.EditRatio,
					TokenRatio: score.TokenRatio,
					Scope:      entry.Scope(),
					Method:     types.MethodFuzzy,
				}

				mu.Lock()
				results = append(results, result)
				mu.Unlock()

				if score.Value >= fuzzy.HighConfidence {
					highHits.Add(1)
				}
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Worker interleaving makes collection order nondeterministic; restore a
	// stable fold order before merging.
	sort.Slice(results, func(i, j int) bool {
		if results[i].FuzzyScore != results[j].FuzzyScore {
			return results[i].FuzzyScore > results[j].FuzzyScore
		}
		return results[i].EntryID < results[j].EntryID
	})

	return results, nil
}

// runVector embeds the query and pulls nearest neighbors.
func (s *Searcher) runVector(ctx context.Context, req Request, source, target locale.Filter, out chan<- legResult) {
	var res legResult

	if !req.UseVector {
		select {
		case out <- res:
		case <-ctx.Done():
		}
		return
	}

	emb, err := s.embedder.Embed(ctx, req.SourceText)
	if err != nil {
		res.err = fmt.Errorf("query embedding failed: %w", err)
	} else {
		res.vector, res.err = s.store.SearchVector(ctx, emb.Vector, storage.VectorFilters{
			ProjectID: req.ProjectID,
			Source:    source,
			Target:    target,
		}, req.VectorSimilarity, req.Limit*2)
	}

	select {
	case out <- res:
	case <-ctx.Done():
	}
}

// materialize loads full entries for results discovered only by the vector
// leg. Entries that fail to load are skipped rather than failing the search.
func (s *Searcher) materialize(ctx context.Context, merged []types.SearchResult) ([]types.SearchResult, error) {
	results := make([]types.SearchResult, 0, len(merged))
	for _, r := range merged {
		if r.Entry == nil {
			entry, err := s.store.GetEntry(ctx, r.EntryID)
			if err != nil {
				s.logger.Debug().Int64("entry_id", r.EntryID).Err(err).Msg("skipping unloadable result")
				continue
			}
			r.Entry = entry
		}
		results = append(results, r)
	}
	return results, nil
}

// InvalidateCache drops all cached query results.
func (s *Searcher) InvalidateCache() {
	s.cache.purge()
}
