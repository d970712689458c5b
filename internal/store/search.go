package store

import (
	"fmt"
	"strings"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"

	"github.com/holocron-dev/holocron/internal/token"
)

// BM25 column weights: content, symbol_name, file_tokens, code_tokens.
const bm25Weights = "10.0, 1.0, 5.0, 3.0"

// SearchBM25 runs a weighted full-text match. The query is normalized first;
// a query that normalizes to empty returns no results. Grammar errors from
// FTS5 are swallowed and reported as an empty result set.
func (s *Store) SearchBM25(query string, topK int) ([]Hit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, fmt.Errorf("store is closed")
	}

	normalized := token.NormalizeQuery(query)
	if normalized == "" || topK <= 0 {
		return nil, nil
	}

	rows, err := s.db.Query(
		`SELECT m.id, m.content, m.file_path, m.start_line, m.end_line, m.language,
		        COALESCE(m.symbol_name, ''), m.ingested_at, m.memory_type,
		        bm25(chunks_fts, `+bm25Weights+`) AS dist
		 FROM chunks_fts
		 JOIN chunk_meta m ON m.rowid = chunks_fts.rowid
		 WHERE chunks_fts MATCH ?
		 ORDER BY dist
		 LIMIT ?`,
		normalized, topK)
	if err != nil {
		// Anything the grammar rejects yields no results rather than an error.
		if strings.Contains(err.Error(), "fts5") || strings.Contains(err.Error(), "syntax error") {
			return nil, nil
		}
		return nil, fmt.Errorf("bm25 search: %w", err)
	}
	defer rows.Close()

	var hits []Hit
	for rows.Next() {
		var h Hit
		var dist float64
		if err := rows.Scan(&h.Chunk.ID, &h.Chunk.Content, &h.Chunk.FilePath,
			&h.Chunk.StartLine, &h.Chunk.EndLine, &h.Chunk.Language,
			&h.Chunk.SymbolName, &h.Chunk.IngestedAt, &h.Chunk.MemoryType, &dist); err != nil {
			return nil, fmt.Errorf("scan bm25 hit: %w", err)
		}
		// FTS5 bm25() is negative, lower = better. Negate so higher = better.
		h.Score = -dist
		hits = append(hits, h)
	}
	return hits, rows.Err()
}

// SearchVector runs a nearest-neighbor query over the vec0 table. An empty
// query vector, or a store with no vectors, returns no results. Scores are
// 1 / (1 + L2 distance).
func (s *Store) SearchVector(queryVec []float32, topK int) ([]Hit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, fmt.Errorf("store is closed")
	}
	if s.dims == 0 || len(queryVec) == 0 || topK <= 0 {
		return nil, nil
	}
	if len(queryVec) != s.dims {
		return nil, ErrDimensionMismatch{Expected: s.dims, Got: len(queryVec)}
	}

	blob, err := sqlite_vec.SerializeFloat32(queryVec)
	if err != nil {
		return nil, fmt.Errorf("serialize query vector: %w", err)
	}

	rows, err := s.db.Query(
		`SELECT m.id, m.content, m.file_path, m.start_line, m.end_line, m.language,
		        COALESCE(m.symbol_name, ''), m.ingested_at, m.memory_type,
		        v.distance
		 FROM vecs v
		 JOIN chunk_meta m ON m.rowid = v.rowid
		 WHERE v.embedding MATCH ? AND k = ?
		 ORDER BY v.distance`,
		blob, topK)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}
	defer rows.Close()

	var hits []Hit
	for rows.Next() {
		var h Hit
		var dist float64
		if err := rows.Scan(&h.Chunk.ID, &h.Chunk.Content, &h.Chunk.FilePath,
			&h.Chunk.StartLine, &h.Chunk.EndLine, &h.Chunk.Language,
			&h.Chunk.SymbolName, &h.Chunk.IngestedAt, &h.Chunk.MemoryType, &dist); err != nil {
			return nil, fmt.Errorf("scan vector hit: %w", err)
		}
		h.Score = 1.0 / (1.0 + dist)
		hits = append(hits, h)
	}
	return hits, rows.Err()
}
