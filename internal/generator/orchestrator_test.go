package generator

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lingocore/tmcore-mcp/internal/embedder"
	"github.com/lingocore/tmcore-mcp/internal/storage"
	"github.com/lingocore/tmcore-mcp/pkg/types"
)

// scriptEmbedder returns scripted errors per EmbedBatch call, then succeeds.
type scriptEmbedder struct {
	mu        sync.Mutex
	calls     int
	errs      []error                   // errs[i] is returned on call i; nil means success
	vectorFor func(text string) []float32 // overrides the default vector
}

func (s *scriptEmbedder) EmbedBatch(_ context.Context, texts []string) ([]*embedder.Embedding, error) {
	s.mu.Lock()
	call := s.calls
	s.calls++
	s.mu.Unlock()

	if call < len(s.errs) && s.errs[call] != nil {
		return nil, s.errs[call]
	}

	out := make([]*embedder.Embedding, len(texts))
	for i, text := range texts {
		v := []float32{1, 0}
		if s.vectorFor != nil {
			v = s.vectorFor(text)
		}
		out[i] = &embedder.Embedding{Vector: v, Dimension: len(v), Provider: "mock", Model: "mock-model"}
	}
	return out, nil
}

func (s *scriptEmbedder) Embed(ctx context.Context, text string) (*embedder.Embedding, error) {
	batch, err := s.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return batch[0], nil
}

func (s *scriptEmbedder) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func (s *scriptEmbedder) Dimension() int   { return 2 }
func (s *scriptEmbedder) Provider() string { return "mock" }
func (s *scriptEmbedder) Model() string    { return "mock-model" }
func (s *scriptEmbedder) Close() error     { return nil }

func rateLimitErr() error {
	return &embedder.ProviderError{Kind: embedder.KindRateLimited, Provider: "mock", Status: 429, Message: "slow down"}
}

func fatalErr() error {
	return &embedder.ProviderError{Kind: embedder.KindFatal, Provider: "mock", Status: 429, Message: "insufficient_quota"}
}

func transientErr() error {
	return &embedder.ProviderError{Kind: embedder.KindTransient, Provider: "mock", Status: 500, Message: "upstream hiccup"}
}

func setupGenerator(t *testing.T, emb embedder.Embedder) (*Orchestrator, storage.Store, *Registry) {
	t.Helper()
	store, err := storage.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	registry := NewRegistry(zerolog.Nop())
	t.Cleanup(registry.Stop)

	// Backoff sleeps and pacing are disabled so tests run fast
	retry := embedder.RateLimitPolicy()
	retry.Sleep = func(time.Duration) {}

	orch := New(Config{
		Store:          store,
		Embedder:       emb,
		Registry:       registry,
		Logger:         zerolog.Nop(),
		RateLimitRetry: &retry,
		BatchDelay:     -1,
	})
	return orch, store, registry
}

func seedEntries(t *testing.T, store storage.Store, n int) []*types.TmEntry {
	t.Helper()
	entries := make([]*types.TmEntry, n)
	for i := range entries {
		entries[i] = &types.TmEntry{
			SourceLocale: "en",
			TargetLocale: "de",
			SourceText:   "source text " + string(rune('a'+i%26)),
			TargetText:   "target",
		}
		require.NoError(t, store.CreateEntry(context.Background(), entries[i]))
	}
	return entries
}

func waitForJob(t *testing.T, job *Job) {
	t.Helper()
	select {
	case <-job.Done():
	case <-time.After(10 * time.Second):
		t.Fatal("generation job did not finish in time")
	}
}

func TestGeneration_EmptyStore(t *testing.T) {
	orch, _, registry := setupGenerator(t, &scriptEmbedder{})

	job, err := orch.Start(context.Background(), Options{})
	require.NoError(t, err)
	waitForJob(t, job)

	progress, found := registry.Get(job.ID)
	require.True(t, found)
	assert.Equal(t, StatusCompleted, progress.Status)
	assert.Equal(t, 0, progress.Total)
	assert.Equal(t, 0, progress.Processed)
	assert.NotNil(t, progress.CompletedAt)
}

func TestGeneration_Success(t *testing.T) {
	emb := &scriptEmbedder{}
	orch, store, registry := setupGenerator(t, emb)
	seedEntries(t, store, 5)

	job, err := orch.Start(context.Background(), Options{BatchSize: 2})
	require.NoError(t, err)
	waitForJob(t, job)

	progress, found := registry.Get(job.ID)
	require.True(t, found)
	assert.Equal(t, StatusCompleted, progress.Status)
	assert.Equal(t, 5, progress.Total)
	assert.Equal(t, 5, progress.Processed)
	assert.Equal(t, 5, progress.Succeeded)
	assert.Equal(t, 0, progress.Failed)
	assert.Empty(t, progress.Error)

	stats, err := store.CoverageStats(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 100.0, stats.Coverage)
}

func TestGeneration_SnapshotInvariants(t *testing.T) {
	emb := &scriptEmbedder{}
	orch, store, _ := setupGenerator(t, emb)
	seedEntries(t, store, 7)

	var mu sync.Mutex
	var snapshots []Progress
	observer := func(p Progress) {
		mu.Lock()
		snapshots = append(snapshots, p)
		mu.Unlock()
	}

	job, err := orch.Start(context.Background(), Options{BatchSize: 3, Observer: observer})
	require.NoError(t, err)
	waitForJob(t, job)

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, snapshots)

	lastProcessed := 0
	for _, p := range snapshots {
		assert.GreaterOrEqual(t, p.Processed, lastProcessed, "processed must be monotonically non-decreasing")
		assert.Equal(t, p.Processed, p.Succeeded+p.Failed, "succeeded+failed must equal processed")
		lastProcessed = p.Processed
	}
	assert.Equal(t, StatusCompleted, snapshots[len(snapshots)-1].Status)
}

func TestGeneration_Cancel(t *testing.T) {
	emb := &scriptEmbedder{}
	store, err := storage.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	registry := NewRegistry(zerolog.Nop())
	t.Cleanup(registry.Stop)

	// A long inter-batch delay keeps the job paused after the first batch so
	// cancellation timing is deterministic.
	orch := New(Config{
		Store:      store,
		Embedder:   emb,
		Registry:   registry,
		Logger:     zerolog.Nop(),
		BatchDelay: time.Minute,
	})
	seedEntries(t, store, 10)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	job, err := orch.Start(ctx, Options{BatchSize: 2})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		p, found := registry.Get(job.ID)
		return found && p.Processed >= 2
	}, 5*time.Second, 10*time.Millisecond)

	job.Cancel()
	cancel()
	waitForJob(t, job)

	progress, found := registry.Get(job.ID)
	require.True(t, found)
	assert.Equal(t, StatusCancelled, progress.Status)
	assert.Equal(t, 2, progress.Processed, "processed must not advance after cancellation")
	assert.NotNil(t, progress.CompletedAt)
}

func TestGeneration_CancelIsIdempotent(t *testing.T) {
	orch, _, registry := setupGenerator(t, &scriptEmbedder{})

	job, err := orch.Start(context.Background(), Options{})
	require.NoError(t, err)
	waitForJob(t, job)

	// Cancelling a finished job must not disturb its terminal state
	job.Cancel()
	job.Cancel()

	progress, _ := registry.Get(job.ID)
	assert.Equal(t, StatusCompleted, progress.Status)
}

func TestGeneration_RateLimitRetry(t *testing.T) {
	// Two throttled attempts, then success: the batch must succeed with
	// nothing counted as failed.
	emb := &scriptEmbedder{errs: []error{rateLimitErr(), rateLimitErr()}}
	orch, store, registry := setupGenerator(t, emb)
	seedEntries(t, store, 2)

	job, err := orch.Start(context.Background(), Options{BatchSize: 2})
	require.NoError(t, err)
	waitForJob(t, job)

	progress, _ := registry.Get(job.ID)
	assert.Equal(t, StatusCompleted, progress.Status)
	assert.Equal(t, 2, progress.Succeeded)
	assert.Equal(t, 0, progress.Failed)
	assert.Equal(t, 3, emb.callCount(), "exactly the retried attempts, no more")
}

func TestGeneration_RateLimitExhaustion(t *testing.T) {
	// Throttled beyond the retry budget: the batch degrades to a counted
	// failure and the job keeps going.
	emb := &scriptEmbedder{errs: []error{rateLimitErr(), rateLimitErr(), rateLimitErr()}}
	orch, store, registry := setupGenerator(t, emb)
	seedEntries(t, store, 4)

	job, err := orch.Start(context.Background(), Options{BatchSize: 2, Limit: 4})
	require.NoError(t, err)
	waitForJob(t, job)

	progress, _ := registry.Get(job.ID)
	assert.Equal(t, StatusCompleted, progress.Status)
	assert.Equal(t, 4, progress.Processed)
	assert.Equal(t, 2, progress.Failed)
	assert.Equal(t, 2, progress.Succeeded)

	// The second batch's entries got their embeddings
	count, err := store.CountMissingEmbeddings(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestGeneration_FatalAbortsImmediately(t *testing.T) {
	emb := &scriptEmbedder{errs: []error{fatalErr()}}
	orch, store, registry := setupGenerator(t, emb)
	seedEntries(t, store, 6)

	job, err := orch.Start(context.Background(), Options{BatchSize: 2})
	require.NoError(t, err)
	waitForJob(t, job)

	progress, _ := registry.Get(job.ID)
	assert.Equal(t, StatusError, progress.Status)
	assert.Contains(t, progress.Error, "insufficient_quota")
	assert.Equal(t, 1, emb.callCount(), "fatal errors must not be retried")
	assert.Equal(t, 0, progress.Succeeded)
}

func TestGeneration_TransientBatchFailureContinues(t *testing.T) {
	// First batch fails transiently; later batches succeed, including the
	// retry of the first batch's rows once the exclusion set is cleared.
	emb := &scriptEmbedder{errs: []error{transientErr()}}
	orch, store, registry := setupGenerator(t, emb)
	seedEntries(t, store, 4)

	job, err := orch.Start(context.Background(), Options{BatchSize: 2})
	require.NoError(t, err)
	waitForJob(t, job)

	progress, _ := registry.Get(job.ID)
	assert.Equal(t, StatusCompleted, progress.Status)
	assert.Equal(t, 2, progress.Failed, "the transient batch is counted as failed")
	assert.Equal(t, 4, progress.Succeeded)
	assert.Equal(t, 6, progress.Processed)
	assert.Equal(t, progress.Succeeded+progress.Failed, progress.Processed)

	count, err := store.CountMissingEmbeddings(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestGeneration_Limit(t *testing.T) {
	emb := &scriptEmbedder{}
	orch, store, registry := setupGenerator(t, emb)
	seedEntries(t, store, 10)

	job, err := orch.Start(context.Background(), Options{BatchSize: 2, Limit: 4})
	require.NoError(t, err)
	waitForJob(t, job)

	progress, _ := registry.Get(job.ID)
	assert.Equal(t, StatusCompleted, progress.Status)
	assert.Equal(t, 4, progress.Processed)

	count, err := store.CountMissingEmbeddings(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 6, count)
}

func TestGeneration_InvalidVectorDimension(t *testing.T) {
	emb := &scriptEmbedder{vectorFor: func(text string) []float32 {
		if text == "source text a" {
			return []float32{1, 0, 0} // wrong dimension
		}
		return []float32{1, 0}
	}}
	orch, store, registry := setupGenerator(t, emb)
	seedEntries(t, store, 3)

	job, err := orch.Start(context.Background(), Options{BatchSize: 3, Limit: 3})
	require.NoError(t, err)
	waitForJob(t, job)

	progress, _ := registry.Get(job.ID)
	assert.Equal(t, 3, progress.Processed)
	assert.Equal(t, 1, progress.Failed)
	assert.Equal(t, 2, progress.Succeeded)
}

func TestGeneration_ProjectScope(t *testing.T) {
	emb := &scriptEmbedder{}
	orch, store, registry := setupGenerator(t, emb)

	projectID := "proj-1"
	require.NoError(t, store.CreateEntry(context.Background(), &types.TmEntry{
		ProjectID: &projectID, SourceLocale: "en", TargetLocale: "de",
		SourceText: "project text", TargetText: "t",
	}))
	seedEntries(t, store, 3) // global entries

	job, err := orch.Start(context.Background(), Options{ProjectID: &projectID})
	require.NoError(t, err)
	waitForJob(t, job)

	progress, _ := registry.Get(job.ID)
	assert.Equal(t, StatusCompleted, progress.Status)
	assert.Equal(t, 1, progress.Succeeded)

	// Global entries stay untouched by a project-scoped run
	count, err := store.CountMissingEmbeddings(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}
