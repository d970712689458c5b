package search

import (
	"context"
	"log/slog"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/errgroup"

	"github.com/holocron-dev/holocron/internal/embed"
	"github.com/holocron-dev/holocron/internal/store"
)

const (
	// DefaultMaxResults is the result limit when the caller gives none.
	DefaultMaxResults = 10

	// Graph-hop expansion is intentionally shallow: one hop from the top
	// seeds, few links each, high similarity bar, discounted score.
	expansionSeeds    = 5
	expansionLinks    = 3
	expansionMinSim   = 0.9
	expansionDiscount = 0.5
	chunkCacheSize    = 512
)

// Options configures one search call.
type Options struct {
	MaxResults int
	MinScore   float64
	Languages  []string
	// Directory restricts results to chunks whose file path starts with it.
	Directory string
}

// Result is one ranked retrieval hit.
type Result struct {
	Chunk  store.ChunkMeta
	Score  float64
	Source string
}

// Retriever fuses lexical and vector retrieval over one store.
type Retriever struct {
	store    *store.Store
	embedder embed.Embedder

	// chunkCache memoizes link-graph destination lookups across queries.
	chunkCache *lru.Cache[string, *store.ChunkMeta]
}

// New creates a retriever.
func New(st *store.Store, emb embed.Embedder) (*Retriever, error) {
	cache, err := lru.New[string, *store.ChunkMeta](chunkCacheSize)
	if err != nil {
		return nil, err
	}
	return &Retriever{store: st, embedder: emb, chunkCache: cache}, nil
}

// Search runs the hybrid retrieval pipeline. Both underlying queries may run
// concurrently; they touch disjoint indexes. A query embedding failure
// degrades to lexical-only rather than failing the search.
func (r *Retriever) Search(ctx context.Context, query string, opts Options) ([]Result, error) {
	k := opts.MaxResults
	if k <= 0 {
		k = DefaultMaxResults
	}
	now := time.Now().UnixMilli()

	var bm25Hits, vecHits []store.Hit
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		hits, err := r.store.SearchBM25(query, 2*k)
		if err != nil {
			return err
		}
		bm25Hits = hits
		return nil
	})

	if r.embedder != nil && r.embedder.Dimensions() > 0 {
		g.Go(func() error {
			queryVec, err := r.embedder.Embed(gctx, query)
			if err != nil {
				slog.Warn("query embedding failed, falling back to lexical-only",
					slog.String("error", err.Error()))
				return nil
			}
			hits, err := r.store.SearchVector(queryVec, 2*k)
			if err != nil {
				slog.Warn("vector search failed, falling back to lexical-only",
					slog.String("error", err.Error()))
				return nil
			}
			vecHits = hits
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if len(bm25Hits) == 0 && len(vecHits) == 0 {
		return []Result{}, nil
	}

	cands := fuse([][]store.Hit{bm25Hits, vecHits}, RRFConstant)

	ranked := make([]*candidate, 0, len(cands))
	for _, c := range cands {
		if !r.matchesFilters(c.chunk, opts) {
			continue
		}
		c.final = c.rrfScore * recencyDecay(now, c.chunk.IngestedAt) * typeWeight(c.chunk.MemoryType)
		ranked = append(ranked, c)
	}
	sortCandidates(ranked)

	if len(ranked) > k {
		ranked = ranked[:k]
	}

	ranked = r.expandByLinks(ranked, k, now, opts)

	results := make([]Result, 0, len(ranked))
	for _, c := range ranked {
		if c.final < opts.MinScore {
			continue
		}
		results = append(results, Result{Chunk: c.chunk, Score: c.final, Source: "hybrid"})
	}
	return results, nil
}

// matchesFilters applies the language and directory options.
func (r *Retriever) matchesFilters(c store.ChunkMeta, opts Options) bool {
	if opts.Directory != "" && !strings.HasPrefix(c.FilePath, opts.Directory) {
		return false
	}
	if len(opts.Languages) == 0 {
		return true
	}
	for _, lang := range opts.Languages {
		if strings.EqualFold(lang, c.Language) {
			return true
		}
	}
	return false
}

// expandByLinks adds one-hop neighbors of the top primaries through the
// chunk link graph, at a discount, then re-ranks. The expansion is skipped
// for lexical-only stores.
func (r *Retriever) expandByLinks(primary []*candidate, k int, now int64, opts Options) []*candidate {
	if !r.store.HasVectors() || len(primary) == 0 {
		return primary
	}

	present := make(map[string]struct{}, len(primary))
	for _, c := range primary {
		present[c.chunk.ID] = struct{}{}
	}

	seeds := len(primary)
	if seeds > expansionSeeds {
		seeds = expansionSeeds
	}

	expanded := primary
	for _, parent := range primary[:seeds] {
		links, err := r.store.GetLinks(parent.chunk.ID, expansionLinks)
		if err != nil {
			slog.Debug("link lookup failed", slog.String("error", err.Error()))
			continue
		}
		for _, link := range links {
			if link.Similarity < expansionMinSim {
				continue
			}
			if _, dup := present[link.DstID]; dup {
				continue
			}

			dst := r.lookupChunk(link.DstID)
			if dst == nil || !r.matchesFilters(*dst, opts) {
				continue
			}

			score := parent.final * expansionDiscount * link.Similarity *
				recencyDecay(now, dst.IngestedAt) * typeWeight(dst.MemoryType)

			expanded = append(expanded, &candidate{chunk: *dst, final: score})
			present[link.DstID] = struct{}{}
		}
	}

	sortCandidates(expanded)
	if len(expanded) > k {
		expanded = expanded[:k]
	}
	return expanded
}

// InvalidateCache drops memoized chunk lookups. Called after indexing runs,
// since chunk ids and timestamps change under re-index.
func (r *Retriever) InvalidateCache() {
	r.chunkCache.Purge()
}

// lookupChunk fetches a chunk by id through the LRU cache.
func (r *Retriever) lookupChunk(id string) *store.ChunkMeta {
	if c, ok := r.chunkCache.Get(id); ok {
		return c
	}
	c, err := r.store.GetChunkByID(id)
	if err != nil || c == nil {
		return nil
	}
	r.chunkCache.Add(id, c)
	return c
}
