// Package generator backfills missing embeddings for translation memory
// entries.
//
// An Orchestrator runs one job per Start call: a supervised background
// goroutine that loops over un-embedded entries in batches, calls the
// embedding provider, writes vectors through the entry store, and publishes
// a progress snapshot after every batch. The caller gets a Job handle with
// cooperative cancellation and a completion signal; the latest snapshot for
// any job is readable from the Registry.
//
// Job lifecycle: running → completed | cancelled | error. Terminal states
// are final. A job only reports completed after re-verifying that the store
// has no un-embedded entries left (unless the run was capped by Limit).
//
// Provider failures are triaged per batch: fatal errors (bad credentials,
// exhausted quota) abort the job with no retries; rate limiting retries the
// same batch under a backoff policy before degrading to a counted batch
// failure; anything else fails the batch and the job continues.
//
// The Registry's sweeper deletes terminal snapshots after a retention
// window so long-lived processes don't accumulate them.
package generator
