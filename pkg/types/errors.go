package types

import "errors"

// Domain errors for type validation
var (
	// TM entry errors
	ErrEmptySourceText  = errors.New("source text cannot be empty")
	ErrEmptyTargetText  = errors.New("target text cannot be empty")
	ErrMissingLocale    = errors.New("source and target locales are required")
	ErrInvalidMatchRate = errors.New("match rate must be between 0 and 100")

	// Embedding errors
	ErrEmptyVector       = errors.New("embedding vector cannot be empty")
	ErrDimensionMismatch = errors.New("embedding vector dimension mismatch")

	// Search result errors
	ErrInvalidEntryID    = errors.New("invalid entry ID")
	ErrInvalidScore      = errors.New("fuzzy score must be between 0 and 100")
	ErrInvalidSimilarity = errors.New("similarity must be between 0 and 1")
	ErrInvalidMethod     = errors.New("invalid search method")
)
