package mcp

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"

	"github.com/lingocore/tmcore-mcp/internal/embedder"
	"github.com/lingocore/tmcore-mcp/internal/generator"
	"github.com/lingocore/tmcore-mcp/internal/searcher"
	"github.com/lingocore/tmcore-mcp/internal/storage"
)

const (
	// ServerName is the MCP server name
	ServerName = "tmcore-mcp"
	// ServerVersion is the current server version
	ServerVersion = "1.0.0"
	// DefaultDBPath is the default location for the TM database
	DefaultDBPath = "~/.tmcore"
)

// Server wraps the MCP server with the TM core's dependencies
type Server struct {
	mcp      *server.MCPServer
	store    storage.Store
	embedder embedder.Embedder
	searcher *searcher.Searcher
	orch     *generator.Orchestrator
	registry *generator.Registry
	logger   zerolog.Logger

	// jobCtx outlives individual tool requests so generation keeps running
	// after start_embedding_generation returns
	jobCtx    context.Context
	jobCancel context.CancelFunc

	jobsMu sync.Mutex
	jobs   map[string]*generator.Job
}

// Config configures a server instance.
type Config struct {
	DBPath string
	Logger zerolog.Logger
}

// NewServer creates a fully wired MCP server: storage, embedding provider
// from the environment, searcher and generation orchestrator.
func NewServer(cfg Config) (*Server, error) {
	dbPath := cfg.DBPath
	if dbPath == "" || dbPath == DefaultDBPath {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		dbPath = filepath.Join(home, ".tmcore")
	}

	if err := os.MkdirAll(dbPath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	store, err := storage.NewSQLiteStore(filepath.Join(dbPath, "tmcore.db"))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	// A broken vector capability should surface at startup, not per-request
	if err := store.VerifyVectorSupport(context.Background()); err != nil {
		_ = store.Close()
		return nil, err
	}

	emb, err := embedder.NewFromEnv()
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}

	s := newServer(store, emb, cfg.Logger)
	return s, nil
}

// newServer wires a Server from explicit collaborators.
func newServer(store storage.Store, emb embedder.Embedder, logger zerolog.Logger) *Server {
	registry := generator.NewRegistry(logger)
	registry.StartSweeper(generator.DefaultSweepInterval, generator.DefaultRetention)

	jobCtx, jobCancel := context.WithCancel(context.Background())

	s := &Server{
		mcp:      server.NewMCPServer(ServerName, ServerVersion),
		store:    store,
		embedder: emb,
		searcher: searcher.New(searcher.Config{Store: store, Embedder: emb, Logger: logger}),
		orch: generator.New(generator.Config{
			Store:    store,
			Embedder: emb,
			Registry: registry,
			Logger:   logger,
		}),
		registry:  registry,
		logger:    logger.With().Str("component", "mcp").Logger(),
		jobCtx:    jobCtx,
		jobCancel: jobCancel,
		jobs:      make(map[string]*generator.Job),
	}

	s.registerTools()
	return s
}

// Serve starts the MCP server on stdio and blocks until shutdown
func (s *Server) Serve(ctx context.Context) error {
	defer s.shutdown()
	return server.ServeStdio(s.mcp)
}

// shutdown cancels running generation jobs and releases resources.
func (s *Server) shutdown() {
	s.jobCancel()
	s.registry.Stop()
	_ = s.embedder.Close()
	_ = s.store.Close()
}

// registerTools registers all MCP tools
func (s *Server) registerTools() {
	s.mcp.AddTool(searchTMTool(), s.handleSearchTM)
	s.mcp.AddTool(addTMEntryTool(), s.handleAddTMEntry)
	s.mcp.AddTool(recordUsageTool(), s.handleRecordUsage)
	s.mcp.AddTool(startGenerationTool(), s.handleStartGeneration)
	s.mcp.AddTool(getProgressTool(), s.handleGetProgress)
	s.mcp.AddTool(cancelGenerationTool(), s.handleCancelGeneration)
	s.mcp.AddTool(listActiveTool(), s.handleListActive)
	s.mcp.AddTool(coverageTool(), s.handleCoverage)
}
