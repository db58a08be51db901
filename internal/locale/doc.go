// Package locale implements locale tag matching with fallback rules for TM
// search.
//
// A Filter is an explicit tagged variant: either a wildcard (Any) or a
// concrete tag. Concrete tags match stored locales by case-insensitive
// equality or by dash-delimited prefix in either direction, so a search for
// "en" finds entries stored as "en-GB" and a search for "en-GB" finds entries
// stored as "en".
//
// Filters compile to SQL fragments for candidate pre-filtering and evaluate
// in Go for post-filtering, with identical semantics.
//
// The widening fallback (re-running a search with locale filtering disabled
// when concrete filters find nothing) is owned by the searcher, which
// guarantees it triggers at most once per request.
package locale
