package types

import (
	"strings"
	"time"
)

// Scope indicates whether a TM entry belongs to a specific project or is
// visible to all projects.
type Scope string

const (
	ScopeProject Scope = "project"
	ScopeGlobal  Scope = "global"
)

// TmEntry represents a translation unit: a previously translated
// source/target text pair usable as a translation suggestion.
type TmEntry struct {
	// Identification
	ID        int64
	ProjectID *string // Nullable - nil means the entry is global

	// Locale tags (BCP 47 style, e.g. "en", "en-GB", "fr-FR")
	SourceLocale string
	TargetLocale string

	// Content
	SourceText string
	TargetText string

	// Optional classification
	Client *string
	Domain *string

	// Quality metadata
	MatchRate  int // Weight assigned at import time (0-100)
	UsageCount int

	CreatedAt time.Time

	// Embedding is nil until the entry has been processed by the
	// generation pipeline; entries without one are invisible to
	// vector search.
	Embedding *EmbeddingRecord
}

// EmbeddingRecord holds the stored embedding vector for a TM entry.
type EmbeddingRecord struct {
	Vector        []float32
	Provider      string
	Model         string
	FormatVersion string
	UpdatedAt     time.Time
}

// Scope returns the visibility scope of the entry.
func (e *TmEntry) Scope() Scope {
	if e.ProjectID != nil {
		return ScopeProject
	}
	return ScopeGlobal
}

// HasEmbedding reports whether the entry is retrievable via vector search.
func (e *TmEntry) HasEmbedding() bool {
	return e.Embedding != nil && len(e.Embedding.Vector) > 0
}

// Validate checks if the entry is well-formed enough to be searchable.
func (e *TmEntry) Validate() error {
	if strings.TrimSpace(e.SourceText) == "" {
		return ErrEmptySourceText
	}

	if strings.TrimSpace(e.TargetText) == "" {
		return ErrEmptyTargetText
	}

	if e.SourceLocale == "" || e.TargetLocale == "" {
		return ErrMissingLocale
	}

	if e.MatchRate < 0 || e.MatchRate > 100 {
		return ErrInvalidMatchRate
	}

	return nil
}

// ValidateVector checks a stored embedding against the configured dimension.
func (r *EmbeddingRecord) ValidateVector(dimension int) error {
	if len(r.Vector) == 0 {
		return ErrEmptyVector
	}
	if dimension > 0 && len(r.Vector) != dimension {
		return ErrDimensionMismatch
	}
	return nil
}
