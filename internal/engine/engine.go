// Package engine wires the store, chunker, indexer, retriever, git tracker,
// and formatter into the single facade the outer layers consume. One engine
// instance owns one database file.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/holocron-dev/holocron/internal/chunker"
	"github.com/holocron-dev/holocron/internal/embed"
	"github.com/holocron-dev/holocron/internal/format"
	"github.com/holocron-dev/holocron/internal/gittrack"
	"github.com/holocron-dev/holocron/internal/indexer"
	"github.com/holocron-dev/holocron/internal/search"
	"github.com/holocron-dev/holocron/internal/store"
)

// Link-building defaults for the deferred neighbor pass.
const (
	linkNeighborsPerChunk = 5
	linkMinSimilarity     = 0.85
)

// Config configures one engine instance.
type Config struct {
	// PersistPath is the database file. Empty selects the default under the
	// user's home directory; ":memory:" semantics come from an empty string
	// in store.Open, which tests use directly.
	PersistPath string
	// RootPath is the working tree searched and indexed by default.
	RootPath string
	// Embed selects the embedding provider.
	Embed embed.Config
	// ChunkMode selects boundary-aware or sliding-window chunking.
	ChunkMode chunker.Mode
}

// DefaultPersistPath returns ~/.holocron/index.db.
func DefaultPersistPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".holocron", "index.db")
	}
	return filepath.Join(home, ".holocron", "index.db")
}

// IndexResult reports one indexing run.
type IndexResult struct {
	IndexedFiles int
	Chunks       int
}

// Engine is the codebase-intelligence facade.
type Engine struct {
	cfg Config

	readyOnce sync.Once
	readyErr  error

	store     *store.Store
	embedder  embed.Embedder
	indexer   *indexer.Indexer
	retriever *search.Retriever
	tracker   *gittrack.Tracker
}

// New creates an engine. Resources open lazily on first use; EnsureReady is
// idempotent and memoized.
func New(cfg Config) *Engine {
	if cfg.PersistPath == "" {
		cfg.PersistPath = DefaultPersistPath()
	}
	return &Engine{cfg: cfg}
}

// EnsureReady opens the store, builds the embedder, and wires the pipeline.
func (e *Engine) EnsureReady() error {
	e.readyOnce.Do(func() {
		e.readyErr = e.initialize()
	})
	return e.readyErr
}

func (e *Engine) initialize() error {
	st, err := store.Open(e.cfg.PersistPath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}

	emb, err := embed.NewEmbedder(e.cfg.Embed)
	if err != nil {
		_ = st.Close()
		return err
	}

	retr, err := search.New(st, emb)
	if err != nil {
		_ = st.Close()
		_ = emb.Close()
		return err
	}

	persistDir := filepath.Dir(e.cfg.PersistPath)
	e.store = st
	e.embedder = emb
	e.indexer = indexer.New(st, emb, chunker.NewWithMode(e.cfg.ChunkMode), persistDir)
	e.retriever = retr
	e.tracker = gittrack.New(persistDir)
	return nil
}

// IndexDirectory walks and indexes a whole tree, then records the current
// commit so the next freshness check is clean.
func (e *Engine) IndexDirectory(ctx context.Context, root string) (IndexResult, error) {
	if err := e.EnsureReady(); err != nil {
		return IndexResult{}, err
	}
	if root == "" {
		root = e.cfg.RootPath
	}

	fresh := e.tracker.CheckFreshness(root)
	res, err := e.indexer.IndexDirectory(ctx, root, fresh.CurrentCommit)
	if err != nil {
		return IndexResult{}, err
	}

	if err := e.tracker.SaveLastIndexedCommit(fresh.CurrentCommit); err != nil {
		return IndexResult{}, err
	}
	e.retriever.InvalidateCache()
	return IndexResult{IndexedFiles: res.FilesWalked, Chunks: res.ChunksAdded}, nil
}

// IndexFiles indexes an explicit file set.
func (e *Engine) IndexFiles(ctx context.Context, paths []string) (IndexResult, error) {
	if err := e.EnsureReady(); err != nil {
		return IndexResult{}, err
	}
	res, err := e.indexer.IndexFiles(ctx, paths, store.EventFiles, "")
	if err != nil {
		return IndexResult{}, err
	}
	e.retriever.InvalidateCache()
	return IndexResult{IndexedFiles: res.FilesWalked, Chunks: res.ChunksAdded}, nil
}

// RemoveFiles drops every chunk of the given files.
func (e *Engine) RemoveFiles(paths []string) error {
	if err := e.EnsureReady(); err != nil {
		return err
	}
	if err := e.indexer.RemoveFiles(paths); err != nil {
		return err
	}
	e.retriever.InvalidateCache()
	return nil
}

// ClearIndex truncates the store and forgets the last indexed commit.
func (e *Engine) ClearIndex() error {
	if err := e.EnsureReady(); err != nil {
		return err
	}
	if err := e.indexer.ClearIndex(); err != nil {
		return err
	}
	e.retriever.InvalidateCache()
	return e.tracker.ClearLastIndexedCommit()
}

// Search answers a query with ranked chunks. The freshness gate runs first:
// an incremental decision re-indexes the changed files before querying; a
// full decision is reported but never silently rebuilds inside a query.
func (e *Engine) Search(ctx context.Context, query string, opts search.Options) ([]search.Result, error) {
	if err := e.EnsureReady(); err != nil {
		return nil, err
	}

	if e.cfg.RootPath != "" {
		e.refreshIfStale(ctx)
	}

	return e.retriever.Search(ctx, query, opts)
}

// refreshIfStale applies an incremental freshness decision before querying.
func (e *Engine) refreshIfStale(ctx context.Context) {
	fresh := e.tracker.CheckFreshness(e.cfg.RootPath)
	switch fresh.Decision {
	case gittrack.DecisionNone:
		return
	case gittrack.DecisionFull:
		slog.Info("index is stale, full reindex recommended",
			slog.String("root", e.cfg.RootPath))
		return
	}

	changed := append(append([]string{}, fresh.Added...), fresh.Modified...)
	if len(changed) > 0 {
		if _, err := e.indexer.IndexFiles(ctx, changed, store.EventIncremental, fresh.CurrentCommit); err != nil {
			slog.Warn("incremental reindex failed, serving stale results",
				slog.String("error", err.Error()))
			return
		}
	}
	if len(fresh.Deleted) > 0 {
		if err := e.indexer.RemoveFiles(fresh.Deleted); err != nil {
			slog.Warn("incremental removal failed",
				slog.String("error", err.Error()))
			return
		}
	}

	if err := e.tracker.SaveLastIndexedCommit(fresh.CurrentCommit); err != nil {
		slog.Warn("cannot record indexed commit", slog.String("error", err.Error()))
	}
	e.retriever.InvalidateCache()
}

// FormatContext renders results as the prompt-injection XML block.
func (e *Engine) FormatContext(results []search.Result, query string, opts format.Options) string {
	return format.Context(results, query, opts)
}

// Enhance searches and wraps the results for prompt injection in one call.
func (e *Engine) Enhance(ctx context.Context, prompt string, opts search.Options) (string, error) {
	results, err := e.Search(ctx, prompt, opts)
	if err != nil {
		return "", err
	}
	block := format.Context(results, prompt, format.Options{})
	if block == "" {
		return prompt, nil
	}
	return block + "\n\n" + prompt, nil
}

// CheckFreshness reports how stale the index is for a working tree.
func (e *Engine) CheckFreshness(repoPath string) (gittrack.Freshness, error) {
	if err := e.EnsureReady(); err != nil {
		return gittrack.Freshness{}, err
	}
	return e.tracker.CheckFreshness(repoPath), nil
}

// BuildLinks runs the neighbor comparison pass that populates the chunk
// link graph consumed by graph-hop expansion.
func (e *Engine) BuildLinks() (int, error) {
	if err := e.EnsureReady(); err != nil {
		return 0, err
	}
	return e.store.BuildNeighborLinks(linkNeighborsPerChunk, linkMinSimilarity)
}

// Stats describes the current index.
type Stats struct {
	Chunks     int64
	HasVectors bool
	Dimensions int
	Events     []store.IndexEvent
}

// Stats reports index size and recent audit events.
func (e *Engine) Stats() (Stats, error) {
	if err := e.EnsureReady(); err != nil {
		return Stats{}, err
	}
	events, err := e.store.ListIndexEvents(10)
	if err != nil {
		return Stats{}, err
	}
	return Stats{
		Chunks:     e.store.Size(),
		HasVectors: e.store.HasVectors(),
		Dimensions: e.store.Dimensions(),
		Events:     events,
	}, nil
}

// Dispose releases the store and embedder. Safe to call multiple times.
func (e *Engine) Dispose() error {
	if e.store == nil {
		return nil
	}
	var firstErr error
	if err := e.store.Close(); err != nil {
		firstErr = err
	}
	if e.embedder != nil {
		if err := e.embedder.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
