package generator

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/lingocore/tmcore-mcp/internal/embedder"
	"github.com/lingocore/tmcore-mcp/internal/storage"
	"github.com/lingocore/tmcore-mcp/pkg/types"
)

const (
	// DefaultBatchSize is how many entries are embedded per provider call
	DefaultBatchSize = 20

	// maxExclusionIDs caps the recently-seen id set carried between batches
	maxExclusionIDs = 100
	// maxEmptyBatches is how many consecutive empty fetches are tolerated
	// before the exclusion set is considered stale and cleared
	maxEmptyBatches = 3

	// previewLimit bounds the CurrentText preview length in runes
	previewLimit = 80
)

// Options configures one generation job
type Options struct {
	ProjectID *string // Nil means the whole entry store
	BatchSize int
	Limit     int // Optional cap on processed items; zero means no cap

	// Observer, when set, receives a copy of every published snapshot
	Observer func(Progress)
}

// Job is the caller's handle on a running generation task
type Job struct {
	ID string

	cancelled atomic.Bool
	done      chan struct{}
}

// Cancel requests cooperative cancellation. Idempotent; cancelling a
// finished job is a no-op.
func (j *Job) Cancel() {
	j.cancelled.Store(true)
}

// Done is closed when the job reaches a terminal state.
func (j *Job) Done() <-chan struct{} {
	return j.done
}

// Orchestrator runs embedding backfill jobs: batch-driven, cancellable,
// resumable loops that bring the embedding store in line with the entry
// store.
type Orchestrator struct {
	store    storage.Store
	embedder embedder.Embedder
	registry *Registry
	logger   zerolog.Logger

	rateLimitRetry embedder.RetryPolicy
	batchDelay     time.Duration
	emptyDelay     time.Duration
}

// Config wires an Orchestrator's collaborators.
type Config struct {
	Store    storage.Store
	Embedder embedder.Embedder
	Registry *Registry
	Logger   zerolog.Logger

	// RateLimitRetry guards the per-batch provider call. Zero value means
	// the embedder package's rate-limit policy.
	RateLimitRetry *embedder.RetryPolicy
	// BatchDelay is the fixed pause between batches. Negative disables it.
	BatchDelay time.Duration
}

// New creates an Orchestrator.
func New(cfg Config) *Orchestrator {
	retry := embedder.RateLimitPolicy()
	if cfg.RateLimitRetry != nil {
		retry = *cfg.RateLimitRetry
	}

	batchDelay := cfg.BatchDelay
	if batchDelay == 0 {
		batchDelay = 200 * time.Millisecond
	}
	if batchDelay < 0 {
		batchDelay = 0
	}

	return &Orchestrator{
		store:          cfg.Store,
		embedder:       cfg.Embedder,
		registry:       cfg.Registry,
		logger:         cfg.Logger.With().Str("component", "generator").Logger(),
		rateLimitRetry: retry,
		batchDelay:     batchDelay,
		emptyDelay:     100 * time.Millisecond,
	}
}

// Start launches a generation job and returns its handle immediately. Work
// proceeds on a background goroutine; progress is observable through the
// registry and the optional observer.
func (o *Orchestrator) Start(ctx context.Context, opts Options) (*Job, error) {
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.BatchSize > embedder.MaxBatchSize {
		opts.BatchSize = embedder.MaxBatchSize
	}

	total, err := o.store.CountMissingEmbeddings(ctx, opts.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("failed to count missing embeddings: %w", err)
	}

	job := &Job{
		ID:   uuid.NewString(),
		done: make(chan struct{}),
	}
	progress := &Progress{
		ID:        job.ID,
		ProjectID: opts.ProjectID,
		Total:     total,
		Status:    StatusRunning,
		StartedAt: time.Now(),
	}
	o.publish(progress, opts)

	o.logger.Info().
		Str("job_id", job.ID).
		Int("total", total).
		Int("batch_size", opts.BatchSize).
		Msg("embedding generation started")

	go o.run(ctx, job, opts, progress)

	return job, nil
}

// run is the batch loop. It owns the progress struct exclusively; everything
// readers see goes through registry publication.
func (o *Orchestrator) run(ctx context.Context, job *Job, opts Options, progress *Progress) {
	defer close(job.done)

	exclusion := make([]int64, 0, maxExclusionIDs)
	emptyBatches := 0

	for {
		// Cancellation is checked at the top of every iteration
		if job.cancelled.Load() || ctx.Err() != nil {
			o.finish(progress, opts, StatusCancelled, "")
			return
		}

		remaining, err := o.store.CountMissingEmbeddings(ctx, opts.ProjectID)
		if err != nil {
			o.finish(progress, opts, StatusError, fmt.Sprintf("failed to count remaining entries: %v", err))
			return
		}
		if remaining == 0 {
			o.complete(ctx, progress, opts)
			return
		}

		// New un-embedded entries may appear while the job runs; the total
		// only ever revises upward.
		if progress.Processed+remaining > progress.Total {
			progress.Total = progress.Processed + remaining
		}

		batch, err := o.store.FetchMissingEmbeddings(ctx, opts.ProjectID, exclusion, opts.BatchSize)
		if err != nil {
			o.finish(progress, opts, StatusError, fmt.Sprintf("failed to fetch batch: %v", err))
			return
		}

		if len(batch) == 0 {
			// Entries remain but none were fetched: the exclusion set has
			// gone stale relative to concurrent writes.
			emptyBatches++
			if emptyBatches > maxEmptyBatches {
				o.logger.Debug().Str("job_id", job.ID).Msg("clearing stale exclusion set")
				exclusion = exclusion[:0]
				emptyBatches = 0
			}
			if !o.pause(ctx, job, o.emptyDelay) {
				o.finish(progress, opts, StatusCancelled, "")
				return
			}
			continue
		}
		emptyBatches = 0

		fatal := o.processBatch(ctx, batch, progress)
		exclusion = appendExclusions(exclusion, batch)
		o.publish(progress, opts)

		if fatal != nil {
			o.finish(progress, opts, StatusError, fmt.Sprintf("embedding provider failure: %v", fatal))
			return
		}

		if opts.Limit > 0 && progress.Processed >= opts.Limit {
			// Partial runs stop cleanly; remaining entries are expected.
			o.finish(progress, opts, StatusCompleted, "")
			return
		}

		// Fixed pacing between batches to respect provider rate limits
		if !o.pause(ctx, job, o.batchDelay) {
			o.finish(progress, opts, StatusCancelled, "")
			return
		}
	}
}

// processBatch embeds one batch and records the outcome in the progress
// counters. Processed advances by the batch size exactly once, so
// succeeded + failed == processed holds at every snapshot. A non-nil return
// means a fatal provider error that must abort the job.
func (o *Orchestrator) processBatch(ctx context.Context, batch []*types.TmEntry, progress *Progress) error {
	texts := make([]string, len(batch))
	for i, entry := range batch {
		texts[i] = entry.SourceText
	}

	embeddings, err := embedder.Do(ctx, o.rateLimitRetry, func() ([]*embedder.Embedding, error) {
		return o.embedder.EmbedBatch(ctx, texts)
	})
	if err != nil {
		if embedder.IsFatal(err) {
			// Quota or credential failure: no point continuing
			return err
		}
		// Exhausted rate-limit retries or a transient failure: the whole
		// batch counts as failed and the job moves on.
		o.logger.Warn().Err(err).Int("batch", len(batch)).Msg("batch embedding failed")
		progress.Failed += len(batch)
		progress.Processed += len(batch)
		progress.CurrentText = preview(batch[len(batch)-1].SourceText)
		return nil
	}

	dimension := o.embedder.Dimension()
	for i, entry := range batch {
		if i >= len(embeddings) || embeddings[i] == nil || len(embeddings[i].Vector) == 0 ||
			(dimension > 0 && len(embeddings[i].Vector) != dimension) {
			o.logger.Warn().Int64("entry_id", entry.ID).Msg("invalid embedding vector, counting entry as failed")
			progress.Failed++
			continue
		}

		err := o.store.WriteEmbedding(ctx, entry.ID, embeddings[i].Vector,
			o.embedder.Provider(), o.embedder.Model())
		if err != nil {
			o.logger.Warn().Int64("entry_id", entry.ID).Err(err).Msg("failed to store embedding")
			progress.Failed++
			continue
		}
		progress.Succeeded++
	}

	progress.Processed += len(batch)
	progress.CurrentText = preview(batch[len(batch)-1].SourceText)
	return nil
}

// complete verifies the store really has nothing left before declaring
// success. Entries remaining after the loop exits indicate a bug or a
// concurrent writer; reporting completed anyway would hide it.
func (o *Orchestrator) complete(ctx context.Context, progress *Progress, opts Options) {
	remaining, err := o.store.CountMissingEmbeddings(ctx, opts.ProjectID)
	if err != nil {
		o.finish(progress, opts, StatusError, fmt.Sprintf("completion verification failed: %v", err))
		return
	}
	if remaining > 0 {
		o.finish(progress, opts, StatusError,
			fmt.Sprintf("generation loop exited with %d entries still unembedded", remaining))
		return
	}
	o.finish(progress, opts, StatusCompleted, "")
}

// finish performs the single terminal transition and publishes it.
func (o *Orchestrator) finish(progress *Progress, opts Options, status Status, message string) {
	if progress.Status.Terminal() {
		return
	}

	now := time.Now()
	progress.Status = status
	progress.Error = message
	progress.CompletedAt = &now
	o.publish(progress, opts)

	event := o.logger.Info()
	if status == StatusError {
		event = o.logger.Error()
	}
	event.
		Str("job_id", progress.ID).
		Str("status", string(status)).
		Int("processed", progress.Processed).
		Int("succeeded", progress.Succeeded).
		Int("failed", progress.Failed).
		Str("error", message).
		Msg("embedding generation finished")
}

// publish pushes the current snapshot to the registry and the observer.
func (o *Orchestrator) publish(progress *Progress, opts Options) {
	o.registry.Publish(progress)
	if opts.Observer != nil {
		opts.Observer(*progress.clone())
	}
}

// pause sleeps for d unless the job is cancelled first. Returns false when
// the job should stop.
func (o *Orchestrator) pause(ctx context.Context, job *Job, d time.Duration) bool {
	if d <= 0 {
		return !job.cancelled.Load() && ctx.Err() == nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return !job.cancelled.Load() && ctx.Err() == nil
	case <-ctx.Done():
		return false
	}
}

// appendExclusions records batch ids in the bounded exclusion set, dropping
// the oldest ids once the cap is reached.
func appendExclusions(exclusion []int64, batch []*types.TmEntry) []int64 {
	for _, entry := range batch {
		exclusion = append(exclusion, entry.ID)
	}
	if len(exclusion) > maxExclusionIDs {
		exclusion = exclusion[len(exclusion)-maxExclusionIDs:]
	}
	return exclusion
}

func preview(text string) string {
	runes := []rune(text)
	if len(runes) <= previewLimit {
		return text
	}
	return string(runes[:previewLimit]) + "…"
}
