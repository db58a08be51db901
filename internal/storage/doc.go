// Package storage provides SQLite-based persistence for translation memory data.
//
// The storage layer manages:
//   - Translation memory entries (source/target text, locales, metadata)
//   - Vector embeddings for semantic search
//   - Embedding coverage statistics
//
// # Database Schema
//
// Tables:
//   - entries: TM entries with locale pair, optional project scope, client,
//     domain, match rate and usage counters
//   - embeddings: one vector per entry with provider/model provenance
//
// # Basic Usage
//
//	store, err := storage.NewSQLiteStore("~/.tmcore/tm.db")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer store.Close()
//
//	entry := &types.TmEntry{
//	    SourceLocale: "en-US",
//	    TargetLocale: "de-DE",
//	    SourceText:   "Save changes",
//	    TargetText:   "Änderungen speichern",
//	}
//	err = store.CreateEntry(ctx, entry)
//
// # Scope Semantics
//
// Entries with a nil project_id are global. Queries scoped to a project see
// that project's entries plus global ones; queries with no project see only
// global entries. Embedding generation inverts this: a nil project means the
// whole store.
//
// # Vector Operations
//
//	results, err := store.SearchVector(ctx, queryVector, storage.VectorFilters{
//	    ProjectID: &projectID,
//	    Source:    locale.Tag("en"),
//	}, 0.75, 10)
//
// Similarity is cosine-based, mapped onto [0, 1] so 1.0 means identical
// direction and 0.5 means orthogonal. Search uses the sqlite-vec extension
// (CGO build) or a pure Go scan (purego build); results are identical up to
// floating point rounding.
//
// # Build Tags
//
// CGO Build (sqlite_vec tag):
//
//   - Uses github.com/mattn/go-sqlite3 driver
//
//   - Includes sqlite-vec extension for fast vector operations
//
//   - Requires C compiler
//
//     CGO_ENABLED=1 go build -tags "sqlite_vec"
//
// Pure Go Build (purego tag):
//
//   - Uses modernc.org/sqlite driver
//
//   - Pure Go vector operations (slower)
//
//   - No C compiler needed
//
//     CGO_ENABLED=0 go build -tags "purego"
package storage
