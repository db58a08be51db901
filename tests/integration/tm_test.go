package integration

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/suite"

	"github.com/lingocore/tmcore-mcp/internal/embedder"
	"github.com/lingocore/tmcore-mcp/internal/generator"
	"github.com/lingocore/tmcore-mcp/internal/searcher"
	"github.com/lingocore/tmcore-mcp/internal/storage"
	"github.com/lingocore/tmcore-mcp/pkg/types"
)

// TMFlowTestSuite exercises the full pipeline against a file-backed
// database: ingest entries, generate embeddings with the local provider,
// then run hybrid searches over the result.
type TMFlowTestSuite struct {
	suite.Suite
	ctx      context.Context
	dbPath   string
	store    *storage.SQLiteStore
	emb      embedder.Embedder
	registry *generator.Registry
	orch     *generator.Orchestrator
	searcher *searcher.Searcher
}

func (s *TMFlowTestSuite) SetupTest() {
	s.ctx = context.Background()

	s.dbPath = filepath.Join(s.T().TempDir(), "tmcore.db")
	store, err := storage.NewSQLiteStore(s.dbPath)
	s.Require().NoError(err)
	s.store = store

	emb, err := embedder.New(embedder.Config{Provider: embedder.ProviderLocal})
	s.Require().NoError(err)
	s.emb = emb

	logger := zerolog.Nop()
	s.registry = generator.NewRegistry(logger)
	s.orch = generator.New(generator.Config{
		Store:      store,
		Embedder:   emb,
		Registry:   s.registry,
		Logger:     logger,
		BatchDelay: -1,
	})
	s.searcher = searcher.New(searcher.Config{
		Store:    store,
		Embedder: emb,
		Logger:   logger,
	})
}

func (s *TMFlowTestSuite) TearDownTest() {
	s.Require().NoError(s.emb.Close())
	s.Require().NoError(s.store.Close())
}

func (s *TMFlowTestSuite) seed(projectID *string, source, target string) *types.TmEntry {
	entry := &types.TmEntry{
		ProjectID:    projectID,
		SourceLocale: "en-US",
		TargetLocale: "de-DE",
		SourceText:   source,
		TargetText:   target,
	}
	s.Require().NoError(s.store.CreateEntry(s.ctx, entry))
	return entry
}

func (s *TMFlowTestSuite) runGeneration(opts generator.Options) *generator.Progress {
	job, err := s.orch.Start(s.ctx, opts)
	s.Require().NoError(err)

	select {
	case <-job.Done():
	case <-time.After(10 * time.Second):
		s.FailNow("generation did not finish")
	}

	progress, found := s.registry.Get(job.ID)
	s.Require().True(found)
	return progress
}

func (s *TMFlowTestSuite) TestGenerateThenHybridSearch() {
	s.seed(nil, "Save your changes before closing", "Speichern Sie Ihre Änderungen")
	s.seed(nil, "Discard all changes", "Alle Änderungen verwerfen")
	s.seed(nil, "Print the current document", "Aktuelles Dokument drucken")

	progress := s.runGeneration(generator.Options{})
	s.Equal(generator.StatusCompleted, progress.Status)
	s.Equal(3, progress.Succeeded)

	stats, err := s.store.CoverageStats(s.ctx, nil)
	s.Require().NoError(err)
	s.Equal(3, stats.WithEmbedding)
	s.InDelta(100.0, stats.Coverage, 0.01)

	resp, err := s.searcher.Search(s.ctx, searcher.Request{
		SourceText:   "Save your changes before closing",
		SourceLocale: "en",
		TargetLocale: "de",
		UseVector:    true,
	})
	s.Require().NoError(err)
	s.Require().NotEmpty(resp.Results)

	// An exact match surfaces through both legs
	top := resp.Results[0]
	s.Equal(100, top.FuzzyScore)
	s.Equal(types.MethodHybrid, top.Method)
	s.Equal("Speichern Sie Ihre Änderungen", top.Entry.TargetText)

	// Results never contain duplicate entries
	seen := make(map[int64]bool)
	for _, r := range resp.Results {
		s.False(seen[r.EntryID], "entry %d appears twice", r.EntryID)
		seen[r.EntryID] = true
	}
}

func (s *TMFlowTestSuite) TestProjectScopedGeneration() {
	project := "acme-docs"
	s.seed(&project, "Cancel", "Abbrechen")
	s.seed(nil, "Quit", "Beenden")

	progress := s.runGeneration(generator.Options{ProjectID: &project})
	s.Equal(generator.StatusCompleted, progress.Status)
	s.Equal(1, progress.Succeeded)

	projStats, err := s.store.CoverageStats(s.ctx, &project)
	s.Require().NoError(err)
	s.Equal(1, projStats.WithEmbedding)

	allStats, err := s.store.CoverageStats(s.ctx, nil)
	s.Require().NoError(err)
	s.Equal(1, allStats.WithoutEmbedding)
}

func (s *TMFlowTestSuite) TestGenerationIsIncremental() {
	s.seed(nil, "First entry", "Erster Eintrag")
	first := s.runGeneration(generator.Options{})
	s.Equal(1, first.Processed)

	s.seed(nil, "Second entry", "Zweiter Eintrag")
	second := s.runGeneration(generator.Options{})
	s.Equal(1, second.Processed, "only the new entry should be embedded")
}

func (s *TMFlowTestSuite) TestSearchSurvivesRestart() {
	entry := s.seed(nil, "Close the window", "Fenster schließen")
	s.runGeneration(generator.Options{})

	// Reopen the same database file
	s.Require().NoError(s.store.Close())

	store, err := storage.NewSQLiteStore(s.dbPath)
	s.Require().NoError(err)
	s.store = store

	reopened := searcher.New(searcher.Config{
		Store:    store,
		Embedder: s.emb,
		Logger:   zerolog.Nop(),
	})

	resp, err := reopened.Search(s.ctx, searcher.Request{
		SourceText:   "Close the window",
		SourceLocale: "en",
		TargetLocale: "de",
		UseVector:    true,
	})
	s.Require().NoError(err)
	s.Require().NotEmpty(resp.Results)
	s.Equal(entry.ID, resp.Results[0].EntryID)
	s.Equal(types.MethodHybrid, resp.Results[0].Method)
}

func TestTMFlowSuite(t *testing.T) {
	suite.Run(t, new(TMFlowTestSuite))
}
