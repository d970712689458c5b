package store

import (
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"time"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
)

// BuildNeighborLinks populates the chunk link graph by comparing every
// stored vector against its nearest neighbors. Existing edges are upserted.
// Returns the number of links written. A store without vectors is a no-op.
func (s *Store) BuildNeighborLinks(perChunk int, minSimilarity float64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, fmt.Errorf("store is closed")
	}
	if s.dims == 0 {
		return 0, nil
	}

	rows, err := s.db.Query(`SELECT rowid, embedding FROM vecs`)
	if err != nil {
		return 0, fmt.Errorf("read vectors: %w", err)
	}

	type vecRow struct {
		rowid int64
		vec   []float32
	}
	var vectors []vecRow
	for rows.Next() {
		var rowid int64
		var blob []byte
		if err := rows.Scan(&rowid, &blob); err != nil {
			rows.Close()
			return 0, fmt.Errorf("scan vector: %w", err)
		}
		vectors = append(vectors, vecRow{rowid: rowid, vec: decodeFloat32(blob)})
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, err
	}

	now := time.Now().UnixMilli()
	written := 0

	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("begin link build: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	upsert, err := tx.Prepare(
		`INSERT INTO chunk_links (src_id, dst_id, similarity, created_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(src_id, dst_id) DO UPDATE SET similarity = excluded.similarity, created_at = excluded.created_at`)
	if err != nil {
		return 0, fmt.Errorf("prepare link upsert: %w", err)
	}
	defer upsert.Close()

	for _, v := range vectors {
		srcID, err := chunkIDForRowid(tx, v.rowid)
		if err != nil {
			return 0, err
		}
		if srcID == "" {
			continue
		}

		blob, err := sqlite_vec.SerializeFloat32(v.vec)
		if err != nil {
			return 0, fmt.Errorf("serialize vector: %w", err)
		}

		// One extra neighbor: the nearest hit is the chunk itself.
		neighbors, err := tx.Query(
			`SELECT rowid, distance FROM vecs WHERE embedding MATCH ? AND k = ? ORDER BY distance`,
			blob, perChunk+1)
		if err != nil {
			return 0, fmt.Errorf("neighbor query: %w", err)
		}

		type hit struct {
			rowid int64
			dist  float64
		}
		var hits []hit
		for neighbors.Next() {
			var h hit
			if err := neighbors.Scan(&h.rowid, &h.dist); err != nil {
				neighbors.Close()
				return 0, err
			}
			hits = append(hits, h)
		}
		neighbors.Close()
		if err := neighbors.Err(); err != nil {
			return 0, err
		}

		for _, h := range hits {
			if h.rowid == v.rowid {
				continue
			}
			similarity := 1.0 / (1.0 + h.dist)
			if similarity < minSimilarity {
				continue
			}
			dstID, err := chunkIDForRowid(tx, h.rowid)
			if err != nil {
				return 0, err
			}
			if dstID == "" {
				continue
			}
			if _, err := upsert.Exec(srcID, dstID, similarity, now); err != nil {
				return 0, fmt.Errorf("upsert link: %w", err)
			}
			written++
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit link build: %w", err)
	}
	return written, nil
}

func chunkIDForRowid(tx *sql.Tx, rowid int64) (string, error) {
	var id string
	err := tx.QueryRow(`SELECT id FROM chunk_meta WHERE rowid = ?`, rowid).Scan(&id)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("chunk id for rowid %d: %w", rowid, err)
	}
	return id, nil
}

// decodeFloat32 unpacks the little-endian float32 blob stored by vec0.
func decodeFloat32(blob []byte) []float32 {
	out := make([]float32, len(blob)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(blob[i*4:]))
	}
	return out
}
