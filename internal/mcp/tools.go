package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/lingocore/tmcore-mcp/internal/fuzzy"
	"github.com/lingocore/tmcore-mcp/internal/generator"
	"github.com/lingocore/tmcore-mcp/internal/searcher"
	"github.com/lingocore/tmcore-mcp/internal/storage"
	"github.com/lingocore/tmcore-mcp/pkg/types"
)

// MCP error codes
const (
	ErrorCodeInvalidParams        = -32602 // Invalid method parameters
	ErrorCodeInternalError        = -32603 // Internal JSON-RPC error
	ErrorCodeJobNotFound          = -32001 // Unknown generation job id
	ErrorCodeGenerationInProgress = -32002 // A job is already running for this scope
)

// handleSearchTM handles the search_tm tool invocation
func (s *Server) handleSearchTM(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	req := searcher.Request{
		SourceText:       getStringDefault(args, "source_text", ""),
		SourceLocale:     getStringDefault(args, "source_locale", ""),
		TargetLocale:     getStringDefault(args, "target_locale", ""),
		ProjectID:        getOptionalString(args, "project_id"),
		Limit:            getIntDefault(args, "limit", searcher.DefaultLimit),
		MinScore:         getIntDefault(args, "min_score", searcher.DefaultMinScore),
		VectorSimilarity: getFloatDefault(args, "vector_similarity", searcher.DefaultVectorSimilarity),
		UseVector:        getBoolDefault(args, "use_vector_search", true),
		UseCache:         true,
	}

	if req.Limit < 1 || req.Limit > searcher.MaxLimit {
		return nil, newMCPError(ErrorCodeInvalidParams, "limit must be between 1 and 100", map[string]interface{}{
			"param": "limit",
			"value": req.Limit,
		})
	}

	mode := getStringDefault(args, "mode", "basic")
	switch mode {
	case "basic":
		req.Mode = fuzzy.ModeStrict
	case "extended":
		req.Mode = fuzzy.ModeRelaxed
	default:
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid mode", map[string]interface{}{
			"param":   "mode",
			"value":   mode,
			"allowed": []string{"basic", "extended"},
		})
	}

	resp, err := s.searcher.Search(ctx, req)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "search failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	results := make([]map[string]interface{}, 0, len(resp.Results))
	for _, r := range resp.Results {
		results = append(results, formatResult(r))
	}

	response := map[string]interface{}{
		"results":       results,
		"total_results": resp.TotalResults,
		"duration_ms":   resp.Duration.Milliseconds(),
		"cache_hit":     resp.CacheHit,
	}
	if resp.VectorDegraded {
		response["vector_degraded"] = true
	}
	if resp.Widened {
		response["locale_widened"] = true
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// formatResult projects a search result for the wire.
func formatResult(r types.SearchResult) map[string]interface{} {
	out := map[string]interface{}{
		"entry_id":      r.EntryID,
		"fuzzy_score":   r.FuzzyScore,
		"scope":         string(r.Scope),
		"search_method": string(r.Method),
	}
	if r.Method != types.MethodFuzzy {
		out["similarity"] = r.Similarity
	}
	if r.Entry != nil {
		out["source_text"] = r.Entry.SourceText
		out["target_text"] = r.Entry.TargetText
		out["source_locale"] = r.Entry.SourceLocale
		out["target_locale"] = r.Entry.TargetLocale
		out["match_rate"] = r.Entry.MatchRate
		out["usage_count"] = r.Entry.UsageCount
		if r.Entry.ProjectID != nil {
			out["project_id"] = *r.Entry.ProjectID
		}
		if r.Entry.Client != nil {
			out["client"] = *r.Entry.Client
		}
		if r.Entry.Domain != nil {
			out["domain"] = *r.Entry.Domain
		}
	}
	return out
}

// handleAddTMEntry handles the add_tm_entry tool invocation
func (s *Server) handleAddTMEntry(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	entry := &types.TmEntry{
		ProjectID:    getOptionalString(args, "project_id"),
		SourceLocale: getStringDefault(args, "source_locale", ""),
		TargetLocale: getStringDefault(args, "target_locale", ""),
		SourceText:   getStringDefault(args, "source_text", ""),
		TargetText:   getStringDefault(args, "target_text", ""),
		Client:       getOptionalString(args, "client"),
		Domain:       getOptionalString(args, "domain"),
		MatchRate:    getIntDefault(args, "match_rate", 100),
	}

	if err := entry.Validate(); err != nil {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid entry", map[string]interface{}{
			"reason": err.Error(),
		})
	}

	if err := s.store.CreateEntry(ctx, entry); err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to store entry", map[string]interface{}{
			"error": err.Error(),
		})
	}

	// New text invalidates cached search results
	s.searcher.InvalidateCache()

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"entry_id": entry.ID,
		"scope":    string(entry.Scope()),
	})), nil
}

// handleRecordUsage handles the record_tm_usage tool invocation
func (s *Server) handleRecordUsage(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	id := getIntDefault(args, "entry_id", 0)
	if id <= 0 {
		return nil, newMCPError(ErrorCodeInvalidParams, "entry_id parameter is required", nil)
	}

	if err := s.store.IncrementUsage(ctx, int64(id)); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, newMCPError(ErrorCodeInvalidParams, "unknown entry id", map[string]interface{}{
				"entry_id": id,
			})
		}
		return nil, newMCPError(ErrorCodeInternalError, "failed to record usage", map[string]interface{}{
			"error": err.Error(),
		})
	}

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"entry_id": id,
		"recorded": true,
	})), nil
}

// handleStartGeneration handles the start_embedding_generation tool invocation
func (s *Server) handleStartGeneration(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, _ := request.Params.Arguments.(map[string]interface{})
	if args == nil {
		args = map[string]interface{}{}
	}

	opts := generator.Options{
		ProjectID: getOptionalString(args, "project_id"),
		BatchSize: getIntDefault(args, "batch_size", generator.DefaultBatchSize),
		Limit:     getIntDefault(args, "limit", 0),
	}

	// One active job per scope; concurrent jobs would race on the same
	// missing-embedding rows.
	if active := s.activeJobForScope(opts.ProjectID); active != "" {
		return nil, newMCPError(ErrorCodeGenerationInProgress, "a generation job is already running for this scope", map[string]interface{}{
			"progress_id": active,
		})
	}

	// Jobs run under the server's context so they outlive this request
	job, err := s.orch.Start(s.jobCtx, opts)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to start generation", map[string]interface{}{
			"error": err.Error(),
		})
	}

	s.jobsMu.Lock()
	s.pruneJobsLocked()
	s.jobs[job.ID] = job
	s.jobsMu.Unlock()

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"progress_id": job.ID,
	})), nil
}

// activeJobForScope returns the id of a running job whose scope overlaps the
// requested one, or empty. A store-wide job overlaps every project scope and
// vice versa.
func (s *Server) activeJobForScope(projectID *string) string {
	for _, id := range s.registry.Active() {
		p, found := s.registry.Get(id)
		if !found {
			continue
		}
		if projectID == nil || p.ProjectID == nil || *p.ProjectID == *projectID {
			return id
		}
	}
	return ""
}

// pruneJobsLocked drops handles for jobs the registry no longer tracks.
// Caller holds jobsMu.
func (s *Server) pruneJobsLocked() {
	for id := range s.jobs {
		if _, found := s.registry.Get(id); !found {
			delete(s.jobs, id)
		}
	}
}

// handleGetProgress handles the get_generation_progress tool invocation
func (s *Server) handleGetProgress(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	id := getStringDefault(args, "progress_id", "")
	if id == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "progress_id parameter is required", nil)
	}

	progress, found := s.registry.Get(id)
	if !found {
		return nil, newMCPError(ErrorCodeJobNotFound, "unknown progress id", map[string]interface{}{
			"progress_id": id,
		})
	}

	return mcp.NewToolResultText(formatJSON(formatProgress(progress))), nil
}

// formatProgress projects a progress snapshot for the wire. Terminal error
// messages are passed through verbatim for operator diagnosis.
func formatProgress(p *generator.Progress) map[string]interface{} {
	out := map[string]interface{}{
		"progress_id": p.ID,
		"status":      string(p.Status),
		"total":       p.Total,
		"processed":   p.Processed,
		"succeeded":   p.Succeeded,
		"failed":      p.Failed,
		"started_at":  p.StartedAt.Format(time.RFC3339),
	}
	if p.ProjectID != nil {
		out["project_id"] = *p.ProjectID
	}
	if p.CurrentText != "" {
		out["current_text"] = p.CurrentText
	}
	if p.Error != "" {
		out["error"] = p.Error
	}
	if p.CompletedAt != nil {
		out["completed_at"] = p.CompletedAt.Format(time.RFC3339)
	}
	return out
}

// handleCancelGeneration handles the cancel_generation tool invocation
func (s *Server) handleCancelGeneration(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	id := getStringDefault(args, "progress_id", "")
	if id == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "progress_id parameter is required", nil)
	}

	progress, found := s.registry.Get(id)
	if !found {
		return nil, newMCPError(ErrorCodeJobNotFound, "unknown progress id", map[string]interface{}{
			"progress_id": id,
		})
	}

	// Cancelling an already-terminal job is an acknowledged no-op
	if !progress.Status.Terminal() {
		s.jobsMu.Lock()
		job := s.jobs[id]
		s.jobsMu.Unlock()
		if job != nil {
			job.Cancel()
		}
	}

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"progress_id": id,
		"cancelled":   true,
		"status":      string(progress.Status),
	})), nil
}

// handleListActive handles the list_active_generations tool invocation
func (s *Server) handleListActive(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	active := s.registry.Active()
	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"active": active,
		"count":  len(active),
	})), nil
}

// handleCoverage handles the embedding_coverage tool invocation
func (s *Server) handleCoverage(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, _ := request.Params.Arguments.(map[string]interface{})
	if args == nil {
		args = map[string]interface{}{}
	}

	stats, err := s.store.CoverageStats(ctx, getOptionalString(args, "project_id"))
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to compute coverage", map[string]interface{}{
			"error": err.Error(),
		})
	}

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"total":             stats.Total,
		"with_embedding":    stats.WithEmbedding,
		"without_embedding": stats.WithoutEmbedding,
		"coverage":          stats.Coverage,
	})), nil
}

// Helper functions

// newMCPError creates a properly formatted MCP error
func newMCPError(code int, message string, data interface{}) error {
	return &MCPError{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

// MCPError represents an MCP protocol error
type MCPError struct {
	Code    int
	Message string
	Data    interface{}
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// formatJSON formats a map as indented JSON
func formatJSON(data map[string]interface{}) string {
	bytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(bytes)
}

// getBoolDefault extracts a boolean parameter with a default value
func getBoolDefault(args map[string]interface{}, key string, defaultValue bool) bool {
	if val, ok := args[key].(bool); ok {
		return val
	}
	return defaultValue
}

// getIntDefault extracts an integer parameter with a default value
func getIntDefault(args map[string]interface{}, key string, defaultValue int) int {
	if val, ok := args[key].(float64); ok {
		return int(val)
	}
	if val, ok := args[key].(int); ok {
		return val
	}
	return defaultValue
}

// getFloatDefault extracts a float parameter with a default value
func getFloatDefault(args map[string]interface{}, key string, defaultValue float64) float64 {
	if val, ok := args[key].(float64); ok {
		return val
	}
	return defaultValue
}

// getStringDefault extracts a string parameter with a default value
func getStringDefault(args map[string]interface{}, key string, defaultValue string) string {
	if val, ok := args[key].(string); ok {
		return val
	}
	return defaultValue
}

// getOptionalString extracts a nullable string parameter
func getOptionalString(args map[string]interface{}, key string) *string {
	if val, ok := args[key].(string); ok && val != "" {
		return &val
	}
	return nil
}
