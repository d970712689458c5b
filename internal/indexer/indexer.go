// Package indexer orchestrates the indexing pipeline: walk, chunk, embed,
// and commit to the store in a single batch. Reading and chunking run under
// bounded concurrency; embedding is sequential; the store write is one
// transaction followed by an audit event.
package indexer

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/holocron-dev/holocron/internal/chunker"
	"github.com/holocron-dev/holocron/internal/embed"
	"github.com/holocron-dev/holocron/internal/memory"
	"github.com/holocron-dev/holocron/internal/store"
	"github.com/holocron-dev/holocron/internal/token"
	"github.com/holocron-dev/holocron/internal/walker"
)

// readConcurrency bounds the parallel read/chunk phase.
const readConcurrency = 16

// Result summarizes one indexing run.
type Result struct {
	FilesWalked int
	ChunksAdded int
}

// Indexer drives the pipeline against one store. Only one indexing
// operation runs at a time per instance; a file lock extends that guarantee
// across processes sharing the persist directory.
type Indexer struct {
	store    *store.Store
	embedder embed.Embedder
	chunker  *chunker.Chunker
	walker   *walker.Walker

	mu   sync.Mutex
	lock *flock.Flock
}

// New creates an indexer. persistDir hosts the cross-process lock file; an
// empty persistDir skips file locking (in-memory stores).
func New(st *store.Store, emb embed.Embedder, ch *chunker.Chunker, persistDir string) *Indexer {
	ix := &Indexer{
		store:    st,
		embedder: emb,
		chunker:  ch,
		walker:   walker.New(),
	}
	if persistDir != "" {
		ix.lock = flock.New(filepath.Join(persistDir, "indexing.lock"))
	}
	return ix
}

// IndexDirectory walks root to exhaustion and indexes every accepted file as
// one full run.
func (ix *Indexer) IndexDirectory(ctx context.Context, root, commitSHA string) (Result, error) {
	paths, err := ix.walker.Collect(root)
	if err != nil {
		return Result{}, fmt.Errorf("walk %s: %w", root, err)
	}
	return ix.pipeline(ctx, paths, store.EventFull, commitSHA)
}

// IndexFiles indexes an explicit path set. The event type distinguishes
// freshness-driven incremental runs from direct file requests.
func (ix *Indexer) IndexFiles(ctx context.Context, paths []string, event store.EventType, commitSHA string) (Result, error) {
	return ix.pipeline(ctx, paths, event, commitSHA)
}

// RemoveFiles deletes every chunk of the given files.
func (ix *Indexer) RemoveFiles(paths []string) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	for _, p := range paths {
		if err := ix.store.RemoveByFilePath(p); err != nil {
			return err
		}
	}
	return nil
}

// ClearIndex truncates the store.
func (ix *Indexer) ClearIndex() error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	return ix.store.ClearAll()
}

// pipeline runs the four indexing phases over the given paths.
func (ix *Indexer) pipeline(ctx context.Context, paths []string, event store.EventType, commitSHA string) (Result, error) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	if ix.lock != nil {
		locked, err := ix.lock.TryLock()
		if err != nil {
			return Result{}, fmt.Errorf("acquire index lock: %w", err)
		}
		if !locked {
			return Result{}, fmt.Errorf("another indexing operation is in progress")
		}
		defer func() { _ = ix.lock.Unlock() }()
	}

	start := time.Now()
	sizeBefore := ix.store.Size()

	// Old chunks for every input path go first so a file whose new version
	// yields nothing still drops its stale rows.
	for _, p := range paths {
		if err := ix.store.RemoveByFilePath(p); err != nil {
			return Result{}, err
		}
	}
	removed := int(sizeBefore - ix.store.Size())

	chunks, err := ix.readAndChunk(ctx, paths)
	if err != nil {
		return Result{}, err
	}

	entries, err := ix.embedChunks(ctx, chunks)
	if err != nil {
		return Result{}, err
	}

	if err := ix.store.AddBatch(entries); err != nil {
		return Result{}, err
	}

	ev := store.IndexEvent{
		Type:          event,
		FilesChanged:  len(paths),
		ChunksAdded:   len(entries),
		ChunksRemoved: removed,
		CommitSHA:     commitSHA,
	}
	if err := ix.store.LogIndexEvent(ev); err != nil {
		return Result{}, err
	}

	slog.Info("indexing run complete",
		slog.String("event", string(event)),
		slog.Int("files", len(paths)),
		slog.Int("chunks_added", len(entries)),
		slog.Int("chunks_removed", removed),
		slog.Duration("elapsed", time.Since(start)))

	return Result{FilesWalked: len(paths), ChunksAdded: len(entries)}, nil
}

// readAndChunk is the bounded-concurrency phase: each semaphore slot reads
// one file and chunks it. Unreadable, oversize, and binary files are
// skipped, not fatal.
func (ix *Indexer) readAndChunk(ctx context.Context, paths []string) ([]chunker.Chunk, error) {
	sem := semaphore.NewWeighted(readConcurrency)
	g, gctx := errgroup.WithContext(ctx)

	var mu sync.Mutex
	perFile := make([][]chunker.Chunk, len(paths))

	for i, path := range paths {
		if err := sem.Acquire(gctx, 1); err != nil {
			return nil, err
		}
		g.Go(func() error {
			defer sem.Release(1)

			f, ok, err := ix.walker.ReadFile(path)
			if err != nil {
				if !os.IsNotExist(err) {
					slog.Debug("skipping unreadable file",
						slog.String("path", path),
						slog.String("error", err.Error()))
				}
				return nil
			}
			if !ok {
				return nil
			}

			cs := ix.chunker.Chunk(chunker.FileInput{
				Path:     f.Path,
				Contents: f.Contents,
				Language: f.Language,
			})

			mu.Lock()
			perFile[i] = cs
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var flat []chunker.Chunk
	for _, cs := range perFile {
		flat = append(flat, cs...)
	}
	return flat, nil
}

// embedChunks is the sequential embedding phase. Embedder failures abort the
// run; indexing fails closed.
func (ix *Indexer) embedChunks(ctx context.Context, chunks []chunker.Chunk) ([]store.Entry, error) {
	lexicalOnly := ix.embedder == nil || ix.embedder.Dimensions() == 0

	entries := make([]store.Entry, 0, len(chunks))
	for _, c := range chunks {
		var vec []float32
		if !lexicalOnly {
			input := token.EmbeddingInput(c.FilePath, c.Language, c.SymbolName, c.Content)
			v, err := ix.embedder.Embed(ctx, input)
			if err != nil {
				return nil, fmt.Errorf("embed chunk %s: %w", c.ID, err)
			}
			vec = v
		}

		entries = append(entries, store.Entry{
			Chunk: store.ChunkMeta{
				ID:         c.ID,
				Content:    c.Content,
				FilePath:   c.FilePath,
				StartLine:  c.StartLine,
				EndLine:    c.EndLine,
				Language:   c.Language,
				SymbolName: c.SymbolName,
			},
			Vector:     vec,
			MemoryType: string(memory.Classify(c.FilePath)),
		})
	}
	return entries, nil
}
