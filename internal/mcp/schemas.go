package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// searchTMTool returns the tool definition for search_tm
func searchTMTool() mcp.Tool {
	return mcp.Tool{
		Name:        "search_tm",
		Description: "Search the translation memory for previously translated phrases matching a source text",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"source_text": map[string]interface{}{
					"type":        "string",
					"description": "Source phrase to find translations for",
				},
				"source_locale": map[string]interface{}{
					"type":        "string",
					"description": "Source locale tag (e.g. 'en', 'en-GB'); empty or '*' matches any",
				},
				"target_locale": map[string]interface{}{
					"type":        "string",
					"description": "Target locale tag; empty or '*' matches any",
				},
				"project_id": map[string]interface{}{
					"type":        "string",
					"description": "Project scope; omitted means global entries only",
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of results to return (1-100)",
					"default":     10,
					"minimum":     1,
					"maximum":     100,
				},
				"min_score": map[string]interface{}{
					"type":        "integer",
					"description": "Minimum fuzzy score (0-100)",
					"default":     70,
				},
				"vector_similarity": map[string]interface{}{
					"type":        "number",
					"description": "Minimum vector similarity (0.0-1.0)",
					"default":     0.5,
				},
				"mode": map[string]interface{}{
					"type":        "string",
					"description": "Matching mode: basic (strict pre-filters) or extended (relaxed pre-filters)",
					"enum":        []string{"basic", "extended"},
					"default":     "basic",
				},
				"use_vector_search": map[string]interface{}{
					"type":        "boolean",
					"description": "If false, skip semantic search and match fuzzily only",
					"default":     true,
				},
			},
			Required: []string{"source_text"},
		},
	}
}

// addTMEntryTool returns the tool definition for add_tm_entry
func addTMEntryTool() mcp.Tool {
	return mcp.Tool{
		Name:        "add_tm_entry",
		Description: "Store a translated source/target pair as a new translation memory entry",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"source_text": map[string]interface{}{
					"type":        "string",
					"description": "Source phrase",
				},
				"target_text": map[string]interface{}{
					"type":        "string",
					"description": "Translated phrase",
				},
				"source_locale": map[string]interface{}{
					"type":        "string",
					"description": "Source locale tag",
				},
				"target_locale": map[string]interface{}{
					"type":        "string",
					"description": "Target locale tag",
				},
				"project_id": map[string]interface{}{
					"type":        "string",
					"description": "Project scope; omitted makes the entry global",
				},
				"client": map[string]interface{}{
					"type":        "string",
					"description": "Optional client tag",
				},
				"domain": map[string]interface{}{
					"type":        "string",
					"description": "Optional subject-domain tag",
				},
				"match_rate": map[string]interface{}{
					"type":        "integer",
					"description": "Import-time quality weight (0-100)",
					"default":     100,
				},
			},
			Required: []string{"source_text", "target_text", "source_locale", "target_locale"},
		},
	}
}

// recordUsageTool returns the tool definition for record_tm_usage
func recordUsageTool() mcp.Tool {
	return mcp.Tool{
		Name:        "record_tm_usage",
		Description: "Record that a TM suggestion was accepted; bumps the entry's usage counter, which raises its candidate-selection priority",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"entry_id": map[string]interface{}{
					"type":        "integer",
					"description": "Entry id from a search_tm result",
				},
			},
			Required: []string{"entry_id"},
		},
	}
}

// startGenerationTool returns the tool definition for start_embedding_generation
func startGenerationTool() mcp.Tool {
	return mcp.Tool{
		Name:        "start_embedding_generation",
		Description: "Start a background job that generates embeddings for entries missing them",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"project_id": map[string]interface{}{
					"type":        "string",
					"description": "Restrict generation to one project; omitted means all entries",
				},
				"batch_size": map[string]interface{}{
					"type":        "integer",
					"description": "Entries per provider call (1-100)",
					"default":     20,
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Stop after processing this many entries (partial run)",
				},
			},
		},
	}
}

// getProgressTool returns the tool definition for get_generation_progress
func getProgressTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_generation_progress",
		Description: "Query the progress snapshot of an embedding generation job",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"progress_id": map[string]interface{}{
					"type":        "string",
					"description": "Job id returned by start_embedding_generation",
				},
			},
			Required: []string{"progress_id"},
		},
	}
}

// cancelGenerationTool returns the tool definition for cancel_generation
func cancelGenerationTool() mcp.Tool {
	return mcp.Tool{
		Name:        "cancel_generation",
		Description: "Cancel a running embedding generation job (no-op if already finished)",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"progress_id": map[string]interface{}{
					"type":        "string",
					"description": "Job id returned by start_embedding_generation",
				},
			},
			Required: []string{"progress_id"},
		},
	}
}

// listActiveTool returns the tool definition for list_active_generations
func listActiveTool() mcp.Tool {
	return mcp.Tool{
		Name:        "list_active_generations",
		Description: "List ids of embedding generation jobs currently running",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
}

// coverageTool returns the tool definition for embedding_coverage
func coverageTool() mcp.Tool {
	return mcp.Tool{
		Name:        "embedding_coverage",
		Description: "Report how many entries have embeddings and the coverage percentage",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"project_id": map[string]interface{}{
					"type":        "string",
					"description": "Restrict the report to one project",
				},
			},
		},
	}
}
