package storage

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"sort"
)

// SearchVector performs cosine similarity search over stored embeddings.
// Similarity is mapped from cosine [-1, 1] onto [0, 1] so callers can treat
// it as a relevance score.
func (s *SQLiteStore) SearchVector(ctx context.Context, vector []float32, filters VectorFilters, minSimilarity float64, limit int) ([]VectorResult, error) {
	if limit <= 0 {
		return []VectorResult{}, nil
	}
	// Use optimized SQL-based search when sqlite-vec is available
	if VectorExtensionAvailable {
		return searchVectorOptimized(ctx, s.db, vector, filters, minSimilarity, limit)
	}
	// Fall back to Go-based computation for purego builds
	return searchVectorFallback(ctx, s.db, vector, filters, minSimilarity, limit)
}

// searchVectorOptimized uses the sqlite-vec extension so distance is computed
// at the database layer. vec_distance_cosine returns 1 - cosine, so the
// similarity transform becomes (2 - distance) / 2.
func searchVectorOptimized(ctx context.Context, db *sql.DB, vector []float32, filters VectorFilters, minSimilarity float64, limit int) ([]VectorResult, error) {
	queryVectorBlob := serializeVector(vector)

	query := `
		SELECT
			e.id,
			e.project_id,
			(2.0 - vec_distance_cosine(em.vector, ?)) / 2.0 AS similarity
		FROM entries e
		INNER JOIN embeddings em ON e.id = em.entry_id
		WHERE em.dimension = ?
	`
	args := []interface{}{queryVectorBlob, len(vector)}

	query, args = applyScopeFilter(query, args, filters.ProjectID)
	query, args = applyLocaleFilter(query, args, "e.source_locale", filters.Source)
	query, args = applyLocaleFilter(query, args, "e.target_locale", filters.Target)

	if minSimilarity > 0 {
		query += ` AND (2.0 - vec_distance_cosine(em.vector, ?)) / 2.0 >= ?`
		args = append(args, queryVectorBlob, minSimilarity)
	}

	query += ` ORDER BY similarity DESC, e.id LIMIT ?`
	args = append(args, limit)

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute vector search: %w", err)
	}
	defer func() { _ = rows.Close() }()

	results := make([]VectorResult, 0, limit)
	for rows.Next() {
		var result VectorResult
		var projectID sql.NullString
		if err := rows.Scan(&result.EntryID, &projectID, &result.Similarity); err != nil {
			return nil, fmt.Errorf("failed to scan result: %w", err)
		}
		if projectID.Valid {
			result.ProjectID = &projectID.String
		}
		results = append(results, result)
	}

	return results, rows.Err()
}

// searchVectorFallback computes cosine similarity in Go. Used when the
// sqlite-vec extension is not available (purego builds).
func searchVectorFallback(ctx context.Context, db *sql.DB, vector []float32, filters VectorFilters, minSimilarity float64, limit int) ([]VectorResult, error) {
	query := `
		SELECT
			e.id,
			e.project_id,
			em.vector
		FROM entries e
		INNER JOIN embeddings em ON e.id = em.entry_id
		WHERE em.dimension = ?
	`
	args := []interface{}{len(vector)}

	query, args = applyScopeFilter(query, args, filters.ProjectID)
	query, args = applyLocaleFilter(query, args, "e.source_locale", filters.Source)
	query, args = applyLocaleFilter(query, args, "e.target_locale", filters.Target)

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query embeddings: %w", err)
	}
	defer func() { _ = rows.Close() }()

	candidates, err := computeSimilarityScores(rows, vector, minSimilarity)
	if err != nil {
		return nil, err
	}

	sortCandidates(candidates)
	return buildVectorResults(candidates, limit), nil
}

// computeSimilarityScores scans candidate rows and scores them against the
// query vector, dropping dimension mismatches and sub-threshold rows.
func computeSimilarityScores(rows *sql.Rows, queryVector []float32, minSimilarity float64) ([]candidate, error) {
	candidates := make([]candidate, 0, 256)

	for rows.Next() {
		var entryID int64
		var projectID sql.NullString
		var vectorBlob []byte
		if err := rows.Scan(&entryID, &projectID, &vectorBlob); err != nil {
			return nil, err
		}

		stored := deserializeVector(vectorBlob)
		if len(stored) != len(queryVector) {
			continue
		}

		similarity := (cosineSimilarity(queryVector, stored) + 1) / 2
		if minSimilarity > 0 && similarity < minSimilarity {
			continue
		}

		c := candidate{entryID: entryID, score: similarity}
		if projectID.Valid {
			c.projectID = &projectID.String
		}
		candidates = append(candidates, c)
	}

	return candidates, rows.Err()
}

// buildVectorResults creates VectorResult slice from candidates
func buildVectorResults(candidates []candidate, limit int) []VectorResult {
	if limit > len(candidates) {
		limit = len(candidates)
	}

	results := make([]VectorResult, limit)
	for i := 0; i < limit; i++ {
		results[i] = VectorResult{
			EntryID:    candidates[i].entryID,
			ProjectID:  candidates[i].projectID,
			Similarity: candidates[i].score,
		}
	}
	return results
}

// VerifyVectorSupport probes the capability the build mode claims.
// For cgo builds it evaluates vec_distance_cosine once; a failure means the
// extension did not load and is a deployment problem worth surfacing early.
// Purego builds always pass since the Go fallback is compiled in.
func (s *SQLiteStore) VerifyVectorSupport(ctx context.Context) error {
	if !VectorExtensionAvailable {
		return nil
	}

	probe := serializeVector([]float32{1, 0})
	var distance float64
	err := s.db.QueryRowContext(ctx, `SELECT vec_distance_cosine(?, ?)`, probe, probe).Scan(&distance)
	if err != nil {
		return fmt.Errorf("%w: sqlite-vec probe failed (build mode %s): %v", ErrVectorUnsupported, BuildMode, err)
	}
	return nil
}

// serializeVector converts a float32 slice to a byte blob (little-endian)
func serializeVector(vector []float32) []byte {
	blob := make([]byte, len(vector)*4)
	for i, v := range vector {
		binary.LittleEndian.PutUint32(blob[i*4:], math.Float32bits(v))
	}
	return blob
}

// deserializeVector converts a byte blob back to a float32 slice
func deserializeVector(blob []byte) []float32 {
	vector := make([]float32, len(blob)/4)
	for i := range vector {
		bits := binary.LittleEndian.Uint32(blob[i*4:])
		vector[i] = math.Float32frombits(bits)
	}
	return vector
}

// cosineSimilarity computes the cosine similarity between two vectors
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i] * b[i])
		normA += float64(a[i] * a[i])
		normB += float64(b[i] * b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}

// candidate represents an entry with its similarity score
type candidate struct {
	entryID   int64
	projectID *string
	score     float64
}

// sortCandidates orders candidates by score descending, id ascending on ties
func sortCandidates(candidates []candidate) {
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		return candidates[i].entryID < candidates[j].entryID
	})
}

// SerializeVector is an exported helper for testing
func SerializeVector(vector []float32) []byte {
	return serializeVector(vector)
}

// DeserializeVector is an exported helper for testing
func DeserializeVector(blob []byte) []float32 {
	return deserializeVector(blob)
}

// CosineSimilarity is an exported helper for testing
func CosineSimilarity(a, b []float32) float64 {
	return cosineSimilarity(a, b)
}
