// Package mcp implements the translation-memory MCP server.
//
// The server exposes the TM core over stdio using the Model Context
// Protocol. Eight tools are registered:
//
//   - search_tm: hybrid fuzzy and vector search over TM entries
//   - add_tm_entry: insert a translation unit
//   - record_tm_usage: bump an entry's usage counter after its suggestion
//     is accepted
//   - start_embedding_generation: launch a background embedding job
//   - get_generation_progress: poll a job by progress id
//   - cancel_generation: request cooperative cancellation of a job
//   - list_active_generations: running job ids
//   - embedding_coverage: embedding coverage statistics
//
// Tool handlers translate JSON arguments into typed requests for the
// searcher, generator, and storage packages and format responses as
// indented JSON. Errors are reported as MCPError values carrying a
// JSON-RPC error code.
//
// Generation jobs run under the server's own context rather than the
// request context, so a job keeps running after the tool call that
// started it returns. The server enforces at most one running job per
// scope; overlapping jobs would race on the same missing-embedding rows.
package mcp
