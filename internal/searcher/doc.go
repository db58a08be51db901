// Package searcher implements hybrid retrieval over the translation memory:
// deterministic fuzzy matching and embedding-vector similarity, merged into
// one ranked, deduplicated suggestion list.
//
// # Search Pipeline
//
//	request → cache lookup → [fuzzy leg ∥ vector leg] → merge/rank → cache store
//
// The two legs run concurrently. The fuzzy leg fetches locale- and
// scope-filtered candidates from the entry store and scores them on a small
// worker pool, stopping early once enough high-confidence hits are in. The
// vector leg embeds the query and asks the store for nearest neighbors above
// a similarity floor. A vector-leg failure (provider down, misconfigured
// store) degrades the request to fuzzy-only with a warning instead of
// failing it.
//
// # Merging
//
// Vector neighbors seed the merged set, fuzzy results fold in; entries found
// by both legs are tagged hybrid and keep the higher score. The final order
// is project-scoped results before global ones, then descending score, with
// ties broken by discovery order. No entry id appears twice.
//
// # Locale Widening
//
// When both requested locales are concrete and the filtered search comes back
// empty, the search is re-issued once across all locales. The response marks
// this with Widened.
//
// # Caching
//
// A small TTL-bounded memo keyed by normalized query, locale filters, project
// scope, mode and thresholds. At capacity the oldest inserted entry is
// evicted first; lookups never refresh recency.
//
// # Basic Usage
//
//	s := searcher.New(searcher.Config{Store: store, Embedder: emb, Logger: logger})
//	resp, err := s.Search(ctx, searcher.Request{
//	    SourceText:   "Hello world",
//	    SourceLocale: "en",
//	    TargetLocale: "fr-FR",
//	    UseVector:    true,
//	    UseCache:     true,
//	})
package searcher
