// Package search implements hybrid retrieval: BM25 and vector hits are
// combined with Reciprocal Rank Fusion, damped by recency decay and memory
// type weighting, then expanded one hop through the chunk link graph.
package search

import (
	"math"
	"sort"

	"github.com/holocron-dev/holocron/internal/store"
)

// RRFConstant is the standard RRF smoothing parameter. k=60 is the
// empirically validated cross-domain default.
const RRFConstant = 60

const (
	// decayFloor caps the recency damper after roughly 13.5 months.
	decayFloor = 0.5
	// decayBase is the per-month decay factor.
	decayBase = 0.95
	// millisPerMonth converts ingestion age to months.
	millisPerMonth = 30 * 24 * 3600 * 1000
	// proceduralWeight down-weights tooling files against payload code.
	proceduralWeight = 0.8
)

// candidate accumulates fusion state for one chunk id.
type candidate struct {
	chunk    store.ChunkMeta
	rrfScore float64
	final    float64
}

// fuse runs RRF over the given rank lists: each list contributes
// 1/(k + rank + 1) per id, and chunk metadata comes from whichever list saw
// the id first.
func fuse(lists [][]store.Hit, k int) map[string]*candidate {
	out := make(map[string]*candidate)
	for _, list := range lists {
		for rank, hit := range list {
			c, ok := out[hit.Chunk.ID]
			if !ok {
				c = &candidate{chunk: hit.Chunk}
				out[hit.Chunk.ID] = c
			}
			c.rrfScore += 1.0 / float64(k+rank+1)
		}
	}
	return out
}

// recencyDecay computes the soft damper for a chunk ingested at the given
// epoch-millisecond timestamp.
func recencyDecay(nowMillis, ingestedAt int64) float64 {
	ageMonths := float64(nowMillis-ingestedAt) / millisPerMonth
	if ageMonths < 0 {
		ageMonths = 0
	}
	return math.Max(decayFloor, math.Pow(decayBase, ageMonths))
}

// typeWeight maps a memory type to its score multiplier.
func typeWeight(memoryType string) float64 {
	if memoryType == store.MemoryTypeProcedural {
		return proceduralWeight
	}
	return 1.0
}

// sortCandidates orders by final score descending with a lexicographic id
// tie-break for determinism.
func sortCandidates(cands []*candidate) {
	sort.Slice(cands, func(i, j int) bool {
		if cands[i].final != cands[j].final {
			return cands[i].final > cands[j].final
		}
		return cands[i].chunk.ID < cands[j].chunk.ID
	})
}
