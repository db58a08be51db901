// Package types provides shared type definitions for the tmcore MCP server.
//
// This package defines the domain types used across the translation-memory
// core: TM entries, embedding records, and search results.
//
// # Core Types
//
// TmEntry represents a translation unit - a stored source/target text pair
// usable as a translation suggestion:
//
//	entry := &types.TmEntry{
//	    SourceLocale: "en",
//	    TargetLocale: "fr-FR",
//	    SourceText:   "Hello world",
//	    TargetText:   "Bonjour le monde",
//	}
//
// An entry is either scoped to a project (ProjectID set) or global
// (ProjectID nil); entry.Scope() reports which. Project-scoped entries rank
// ahead of global ones in merged search results.
//
// EmbeddingRecord carries the stored embedding vector. An entry without one
// is not retrievable via vector search until the generation pipeline has
// processed it.
//
// # Search Results
//
// SearchResult combines an entry projection with scoring and the method used
// to discover it:
//
//	result := &types.SearchResult{
//	    EntryID:    123,
//	    FuzzyScore: 100,
//	    Scope:      types.ScopeProject,
//	    Method:     types.MethodFuzzy,
//	}
//
// Method is fuzzy, vector, or hybrid; hybrid marks entries found
// independently by both search legs. Fuzzy scores are integers in [0, 100],
// vector similarity is a float in [0, 1].
//
// # Validation
//
// All domain types implement validation methods to ensure data integrity:
//
//	if err := entry.Validate(); err != nil {
//	    log.Fatal(err)
//	}
package types
