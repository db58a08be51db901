package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/lingocore/tmcore-mcp/internal/locale"
	"github.com/lingocore/tmcore-mcp/pkg/types"
)

var (
	// ErrNotFound is returned when a requested entity doesn't exist
	ErrNotFound = errors.New("not found")
	// ErrVectorUnsupported is returned when the build's vector capability
	// is structurally absent or broken
	ErrVectorUnsupported = errors.New("vector search capability unavailable")
)

// SQLiteStore implements the Store interface using SQLite
type SQLiteStore struct {
	db *sql.DB
}

// openDatabase opens a SQLite database with appropriate settings
func openDatabase(dbPath string) (*sql.DB, error) {
	db, err := sql.Open(DriverName, dbPath)
	if err != nil {
		return nil, err
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// Set connection pool settings
	db.SetMaxOpenConns(1) // SQLite benefits from single writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return db, nil
}

// NewSQLiteStore creates a new SQLite store instance
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := openDatabase(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Apply migrations
	if err := ApplyMigrations(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Entry operations

func (s *SQLiteStore) CreateEntry(ctx context.Context, entry *types.TmEntry) error {
	if err := entry.Validate(); err != nil {
		return err
	}

	query := `
		INSERT INTO entries (project_id, source_locale, target_locale, source_text, target_text,
		                     client, domain, match_rate, usage_count, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	now := time.Now()
	matchRate := entry.MatchRate
	if matchRate == 0 {
		matchRate = 100
	}
	result, err := s.db.ExecContext(ctx, query,
		entry.ProjectID, entry.SourceLocale, entry.TargetLocale,
		entry.SourceText, entry.TargetText, entry.Client, entry.Domain,
		matchRate, entry.UsageCount, now)
	if err != nil {
		return fmt.Errorf("failed to create entry: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	entry.ID = id
	entry.MatchRate = matchRate
	entry.CreatedAt = now
	return nil
}

// entryColumns is the SELECT list shared by all entry queries.
const entryColumns = `
	e.id, e.project_id, e.source_locale, e.target_locale, e.source_text, e.target_text,
	e.client, e.domain, e.match_rate, e.usage_count, e.created_at
`

// scanEntry reads one entry row from the shared column list.
func scanEntry(scanner interface{ Scan(...interface{}) error }) (*types.TmEntry, error) {
	var entry types.TmEntry
	var projectID, client, domain sql.NullString
	err := scanner.Scan(
		&entry.ID, &projectID, &entry.SourceLocale, &entry.TargetLocale,
		&entry.SourceText, &entry.TargetText, &client, &domain,
		&entry.MatchRate, &entry.UsageCount, &entry.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if projectID.Valid {
		entry.ProjectID = &projectID.String
	}
	if client.Valid {
		entry.Client = &client.String
	}
	if domain.Valid {
		entry.Domain = &domain.String
	}
	return &entry, nil
}

func (s *SQLiteStore) GetEntry(ctx context.Context, id int64) (*types.TmEntry, error) {
	query := `SELECT ` + entryColumns + ` FROM entries e WHERE e.id = ?`
	entry, err := scanEntry(s.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	// Attach the embedding record when present
	record, err := s.getEmbedding(ctx, id)
	if err != nil && err != ErrNotFound {
		return nil, err
	}
	entry.Embedding = record
	return entry, nil
}

func (s *SQLiteStore) getEmbedding(ctx context.Context, entryID int64) (*types.EmbeddingRecord, error) {
	query := `SELECT vector, provider, model, format_version, updated_at FROM embeddings WHERE entry_id = ?`
	var blob []byte
	var record types.EmbeddingRecord
	err := s.db.QueryRowContext(ctx, query, entryID).Scan(
		&blob, &record.Provider, &record.Model, &record.FormatVersion, &record.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	record.Vector = deserializeVector(blob)
	return &record, nil
}

func (s *SQLiteStore) DeleteEntry(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM entries WHERE id = ?`, id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) ListEntries(ctx context.Context, projectID *string, limit, offset int) ([]*types.TmEntry, error) {
	query := `SELECT ` + entryColumns + ` FROM entries e`
	args := []interface{}{}

	if projectID != nil {
		query += ` WHERE e.project_id = ?`
		args = append(args, *projectID)
	}

	query += ` ORDER BY e.id`
	if limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, limit, offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list entries: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return collectEntries(rows)
}

func (s *SQLiteStore) IncrementUsage(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE entries SET usage_count = usage_count + 1 WHERE id = ?`, id)
	return err
}

// Fuzzy candidate retrieval

// FetchCandidates returns entries matching the scope and locale filters,
// without scoring. A nil project restricts to global entries; a concrete
// one admits that project's entries plus global ones.
func (s *SQLiteStore) FetchCandidates(ctx context.Context, q CandidateQuery) ([]*types.TmEntry, error) {
	query := `SELECT ` + entryColumns + ` FROM entries e WHERE e.source_text != ''`
	args := []interface{}{}

	query, args = applyScopeFilter(query, args, q.ProjectID)
	query, args = applyLocaleFilter(query, args, "e.source_locale", q.Source)
	query, args = applyLocaleFilter(query, args, "e.target_locale", q.Target)

	// Project-scoped entries first so an early-terminating scorer sees
	// them before global ones.
	query += ` ORDER BY e.project_id IS NULL, e.usage_count DESC, e.id`
	if q.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, q.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch candidates: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return collectEntries(rows)
}

// Embedding generation support

func (s *SQLiteStore) CountMissingEmbeddings(ctx context.Context, projectID *string) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM entries e
		LEFT JOIN embeddings em ON e.id = em.entry_id
		WHERE em.entry_id IS NULL AND TRIM(e.source_text) != ''
	`
	args := []interface{}{}
	if projectID != nil {
		query += ` AND e.project_id = ?`
		args = append(args, *projectID)
	}

	var count int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count missing embeddings: %w", err)
	}
	return count, nil
}

func (s *SQLiteStore) FetchMissingEmbeddings(ctx context.Context, projectID *string, excludeIDs []int64, limit int) ([]*types.TmEntry, error) {
	query := `SELECT ` + entryColumns + `
		FROM entries e
		LEFT JOIN embeddings em ON e.id = em.entry_id
		WHERE em.entry_id IS NULL AND TRIM(e.source_text) != ''
	`
	args := []interface{}{}
	if projectID != nil {
		query += ` AND e.project_id = ?`
		args = append(args, *projectID)
	}

	if len(excludeIDs) > 0 {
		placeholders := strings.Repeat("?,", len(excludeIDs))
		query += ` AND e.id NOT IN (` + placeholders[:len(placeholders)-1] + `)`
		for _, id := range excludeIDs {
			args = append(args, id)
		}
	}

	query += ` ORDER BY e.id LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch missing embeddings: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return collectEntries(rows)
}

func (s *SQLiteStore) WriteEmbedding(ctx context.Context, entryID int64, vector []float32, provider, model string) error {
	if len(vector) == 0 {
		return types.ErrEmptyVector
	}

	query := `
		INSERT INTO embeddings (entry_id, vector, dimension, provider, model, format_version, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(entry_id) DO UPDATE SET
			vector = excluded.vector,
			dimension = excluded.dimension,
			provider = excluded.provider,
			model = excluded.model,
			format_version = excluded.format_version,
			updated_at = excluded.updated_at
	`
	_, err := s.db.ExecContext(ctx, query,
		entryID, serializeVector(vector), len(vector), provider, model,
		EmbeddingFormatVersion, time.Now())
	if err != nil {
		return fmt.Errorf("failed to write embedding for entry %d: %w", entryID, err)
	}
	return nil
}

// Statistics

func (s *SQLiteStore) CoverageStats(ctx context.Context, projectID *string) (*CoverageStats, error) {
	query := `
		SELECT COUNT(*), COUNT(em.entry_id)
		FROM entries e
		LEFT JOIN embeddings em ON e.id = em.entry_id
	`
	args := []interface{}{}
	if projectID != nil {
		query += ` WHERE e.project_id = ?`
		args = append(args, *projectID)
	}

	var total, embedded int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&total, &embedded); err != nil {
		return nil, fmt.Errorf("failed to compute coverage: %w", err)
	}

	stats := &CoverageStats{
		Total:            total,
		WithEmbedding:    embedded,
		WithoutEmbedding: total - embedded,
	}
	if total > 0 {
		stats.Coverage = math.Round(float64(embedded)/float64(total)*10000) / 100
	}
	return stats, nil
}

// Helpers

// applyScopeFilter narrows a query to project + global or global-only rows.
func applyScopeFilter(query string, args []interface{}, projectID *string) (string, []interface{}) {
	if projectID != nil {
		query += ` AND (e.project_id = ? OR e.project_id IS NULL)`
		args = append(args, *projectID)
	} else {
		query += ` AND e.project_id IS NULL`
	}
	return query, args
}

// applyLocaleFilter adds a locale predicate compiled from the filter.
func applyLocaleFilter(query string, args []interface{}, column string, f locale.Filter) (string, []interface{}) {
	clause, clauseArgs := f.SQL(column)
	if clause == "" {
		return query, args
	}
	return query + ` AND ` + clause, append(args, clauseArgs...)
}

// collectEntries drains rows into entries using the shared column list.
func collectEntries(rows *sql.Rows) ([]*types.TmEntry, error) {
	entries := make([]*types.TmEntry, 0)
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}
