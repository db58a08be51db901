// Package fuzzy computes normalized textual similarity between a search
// query and TM entry source texts.
//
// Scoring runs a cheap-to-expensive pipeline:
//
//  1. Normalize both strings (trim, lowercase, best-effort repair of
//     double-encoded multi-byte text).
//  2. Exact equality short-circuits to score 100.
//  3. Length-ratio pre-filter rejects wildly different lengths.
//  4. Token-overlap pre-filter rejects candidates sharing too few words.
//  5. Survivors receive a composite score: a weighted combination of the
//     normalized edit-distance ratio and the token-overlap ratio, as an
//     integer in [0, 100].
//
// Pre-filter thresholds depend on the Mode: ModeStrict for default searches,
// ModeRelaxed for extended searches that should admit weaker candidates.
//
// # Usage
//
//	scorer := fuzzy.NewScorer("Hello world", fuzzy.ModeStrict)
//	for _, entry := range candidates {
//	    score, ok := scorer.Score(entry.SourceText)
//	    if !ok {
//	        continue // rejected by pre-filters
//	    }
//	    // score.Value in [0, 100], components in score.EditRatio/TokenRatio
//	}
//
// Callers bounding latency on large candidate sets may stop scoring once
// enough results at or above HighConfidence have been collected.
package fuzzy
