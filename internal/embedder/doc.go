// Package embedder generates vector embeddings for TM entry texts via
// external providers.
//
// Two HTTP providers are supported (OpenAI, Jina AI) plus a deterministic
// local provider for development and tests. Providers implement the Embedder
// interface:
//
//	emb, err := embedder.NewFromEnv()
//	vec, err := emb.Embed(ctx, "Hello world")
//	vecs, err := emb.EmbedBatch(ctx, texts)
//
// # Error Classification
//
// Provider failures are classified so callers can react correctly:
//
//   - Fatal (bad credentials, exhausted quota/billing): never retried; a
//     generation job hitting one aborts immediately.
//   - Rate-limited (throttling): retried with backoff by the generation
//     pipeline via RateLimitPolicy.
//   - Transient (timeouts, 5xx): retried internally by the provider via
//     DefaultRetryPolicy; exhaustion surfaces as a batch-level failure.
//
// Use IsFatal, IsRateLimited, and IsTransient to triage an error.
//
// # Retry Policies
//
// RetryPolicy is a standalone value (attempt budget, backoff schedule,
// retryable predicate) executed with Do, so retry behavior is testable in
// isolation from the loops that use it.
//
// # Caching
//
// An optional LRU cache memoizes embeddings by SHA-256 content hash, which
// makes repeated searches for the same query text free after the first
// provider round-trip.
package embedder
