package storage

import (
	"context"

	"github.com/lingocore/tmcore-mcp/internal/locale"
	"github.com/lingocore/tmcore-mcp/pkg/types"
)

// Store defines the persistence contract the TM core requires: a relational
// entry store and a nearest-neighbor vector store over the same rows.
type Store interface {
	// Entry operations
	CreateEntry(ctx context.Context, entry *types.TmEntry) error
	GetEntry(ctx context.Context, id int64) (*types.TmEntry, error)
	DeleteEntry(ctx context.Context, id int64) error
	ListEntries(ctx context.Context, projectID *string, limit, offset int) ([]*types.TmEntry, error)
	IncrementUsage(ctx context.Context, id int64) error

	// Fuzzy candidate retrieval
	FetchCandidates(ctx context.Context, q CandidateQuery) ([]*types.TmEntry, error)

	// Vector search. Similarity is cosine-based, transformed onto [0, 1];
	// results are ordered by descending similarity and truncated to limit.
	SearchVector(ctx context.Context, vector []float32, filters VectorFilters, minSimilarity float64, limit int) ([]VectorResult, error)

	// Embedding generation support
	CountMissingEmbeddings(ctx context.Context, projectID *string) (int, error)
	FetchMissingEmbeddings(ctx context.Context, projectID *string, excludeIDs []int64, limit int) ([]*types.TmEntry, error)
	WriteEmbedding(ctx context.Context, entryID int64, vector []float32, provider, model string) error

	// Statistics
	CoverageStats(ctx context.Context, projectID *string) (*CoverageStats, error)

	// Health. Returns a configuration error when the vector capability the
	// build claims to have is structurally absent.
	VerifyVectorSupport(ctx context.Context) error

	Close() error
}

// CandidateQuery narrows the fuzzy candidate set before scoring.
// A nil ProjectID restricts candidates to global entries; a concrete one
// admits that project's entries plus global ones.
type CandidateQuery struct {
	ProjectID *string
	Source    locale.Filter
	Target    locale.Filter
	Limit     int // Zero means no limit
}

// VectorFilters restricts a nearest-neighbor query. Scope semantics match
// CandidateQuery.
type VectorFilters struct {
	ProjectID *string
	Source    locale.Filter
	Target    locale.Filter
}

// VectorResult represents a result from vector similarity search
type VectorResult struct {
	EntryID    int64
	ProjectID  *string
	Similarity float64 // In [0, 1]
}

// CoverageStats reports how much of the entry set is embedded.
type CoverageStats struct {
	Total            int
	WithEmbedding    int
	WithoutEmbedding int
	Coverage         float64 // Percentage, rounded to 2 decimals
}
