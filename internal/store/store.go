package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"

	"github.com/holocron-dev/holocron/internal/token"
)

func init() {
	sqlite_vec.Auto()
}

// Store owns the database handle and every statement issued against it.
// One Store per database path process-wide; the SQLite file itself is the
// only shared state.
type Store struct {
	mu     sync.RWMutex
	db     *sql.DB
	path   string
	closed bool

	// dims is the locked vector width, 0 until the first non-empty insert.
	dims int
	// size caches the chunk count.
	size int64
}

// Open opens or creates the database at path and prepares the schema.
// An empty path opens an in-memory store for testing.
func Open(path string) (*Store, error) {
	dsn := ":memory:"
	if path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create store directory: %w", err)
		}
		dsn = path + "?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL"
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Single connection: one writer, and in-memory databases must not be
	// reopened per connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	s := &Store{db: db, path: path}
	if err := s.migrate(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	if s.dims, err = s.getMetaInt(db, metaKeyDimensions); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := db.QueryRow(`SELECT COUNT(*) FROM chunk_meta`).Scan(&s.size); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("count chunks: %w", err)
	}

	return s, nil
}

// AddBatch transactionally upserts entries into the chunk, full-text, and
// vector tables. All rows land atomically or not at all; a vector whose
// width differs from the locked dimension rolls the whole batch back.
func (s *Store) AddBatch(entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("store is closed")
	}

	// Lock the dimension before touching rows so a bad batch fails before
	// any DDL.
	batchDims := s.dims
	for _, e := range entries {
		if len(e.Vector) == 0 {
			continue
		}
		if batchDims == 0 {
			batchDims = len(e.Vector)
			continue
		}
		if len(e.Vector) != batchDims {
			return ErrDimensionMismatch{Expected: batchDims, Got: len(e.Vector)}
		}
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin batch: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if batchDims > 0 && s.dims == 0 {
		if err := s.createVectorTable(tx, batchDims); err != nil {
			return err
		}
	}

	now := time.Now().UnixMilli()
	added := int64(0)

	for _, e := range entries {
		removed, err := deleteChunkRows(tx, e.Chunk.ID)
		if err != nil {
			return err
		}

		memType := e.MemoryType
		if memType == "" {
			memType = MemoryTypeSemantic
		}

		res, err := tx.Exec(
			`INSERT INTO chunk_meta (id, content, file_path, start_line, end_line, language, symbol_name, ingested_at, memory_type)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			e.Chunk.ID, e.Chunk.Content, e.Chunk.FilePath, e.Chunk.StartLine, e.Chunk.EndLine,
			e.Chunk.Language, nullable(e.Chunk.SymbolName), now, memType,
		)
		if err != nil {
			return fmt.Errorf("insert chunk %s: %w", e.Chunk.ID, err)
		}
		rowid, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("chunk rowid: %w", err)
		}

		_, err = tx.Exec(
			`INSERT INTO chunks_fts (rowid, content, symbol_name, file_tokens, code_tokens) VALUES (?, ?, ?, ?, ?)`,
			rowid,
			e.Chunk.Content,
			e.Chunk.SymbolName,
			fileTokens(e.Chunk.FilePath),
			token.ExtractCodeTokens(e.Chunk.Content),
		)
		if err != nil {
			return fmt.Errorf("insert fts row %s: %w", e.Chunk.ID, err)
		}

		if len(e.Vector) > 0 {
			blob, err := sqlite_vec.SerializeFloat32(e.Vector)
			if err != nil {
				return fmt.Errorf("serialize vector %s: %w", e.Chunk.ID, err)
			}
			if _, err := tx.Exec(`INSERT INTO vecs (rowid, embedding) VALUES (?, ?)`, rowid, blob); err != nil {
				return fmt.Errorf("insert vector %s: %w", e.Chunk.ID, err)
			}
		}

		added += 1 - removed
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit batch: %w", err)
	}

	s.dims = batchDims
	s.size += added
	return nil
}

// createVectorTable creates the vec0 virtual table with the locked width and
// records it in _meta, inside the caller's transaction.
func (s *Store) createVectorTable(tx *sql.Tx, dims int) error {
	if _, err := tx.Exec(fmt.Sprintf(`CREATE VIRTUAL TABLE IF NOT EXISTS vecs USING vec0(embedding float[%d])`, dims)); err != nil {
		return fmt.Errorf("create vector table: %w", err)
	}
	_, err := tx.Exec(
		`INSERT INTO _meta (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		metaKeyDimensions, strconv.Itoa(dims),
	)
	if err != nil {
		return fmt.Errorf("record dimensions: %w", err)
	}
	return nil
}

// deleteChunkRows removes one chunk id from all three tables. Returns 1 if a
// row existed, 0 otherwise.
func deleteChunkRows(tx *sql.Tx, id string) (int64, error) {
	var rowid int64
	err := tx.QueryRow(`SELECT rowid FROM chunk_meta WHERE id = ?`, id).Scan(&rowid)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("lookup chunk %s: %w", id, err)
	}

	for _, stmt := range []string{
		`DELETE FROM chunk_meta WHERE rowid = ?`,
		`DELETE FROM chunks_fts WHERE rowid = ?`,
		`DELETE FROM vecs WHERE rowid = ?`,
	} {
		if _, err := tx.Exec(stmt, rowid); err != nil {
			// The vector table may not exist yet.
			if strings.Contains(err.Error(), "no such table: vecs") {
				continue
			}
			return 0, fmt.Errorf("delete chunk %s: %w", id, err)
		}
	}
	return 1, nil
}

// RemoveByFilePath transactionally deletes every chunk of one file from all
// three tables. Removing an unindexed file is a no-op.
func (s *Store) RemoveByFilePath(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("store is closed")
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin remove: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	rows, err := tx.Query(`SELECT rowid FROM chunk_meta WHERE file_path = ?`, path)
	if err != nil {
		return fmt.Errorf("lookup file %s: %w", path, err)
	}
	var rowids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return err
		}
		rowids = append(rowids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}
	if len(rowids) == 0 {
		return tx.Commit()
	}

	for _, rowid := range rowids {
		for _, stmt := range []string{
			`DELETE FROM chunk_meta WHERE rowid = ?`,
			`DELETE FROM chunks_fts WHERE rowid = ?`,
			`DELETE FROM vecs WHERE rowid = ?`,
		} {
			if _, err := tx.Exec(stmt, rowid); err != nil {
				if strings.Contains(err.Error(), "no such table: vecs") {
					continue
				}
				return fmt.Errorf("remove %s: %w", path, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit remove: %w", err)
	}
	s.size -= int64(len(rowids))
	return nil
}

// ClearAll truncates the chunk, full-text, and link tables, drops the vector
// table, and clears the recorded dimension. The event log is preserved.
func (s *Store) ClearAll() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("store is closed")
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin clear: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, stmt := range []string{
		`DELETE FROM chunk_meta`,
		`DELETE FROM chunks_fts`,
		`DELETE FROM chunk_links`,
		`DROP TABLE IF EXISTS vecs`,
		`DELETE FROM _meta WHERE key = '` + metaKeyDimensions + `'`,
	} {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("clear store: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit clear: %w", err)
	}
	s.size = 0
	s.dims = 0
	return nil
}

// GetChunkByID returns the chunk with the given id, or nil when absent.
func (s *Store) GetChunkByID(id string) (*ChunkMeta, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, fmt.Errorf("store is closed")
	}

	row := s.db.QueryRow(
		`SELECT id, content, file_path, start_line, end_line, language, COALESCE(symbol_name, ''), ingested_at, memory_type
		 FROM chunk_meta WHERE id = ?`, id)

	var c ChunkMeta
	err := row.Scan(&c.ID, &c.Content, &c.FilePath, &c.StartLine, &c.EndLine,
		&c.Language, &c.SymbolName, &c.IngestedAt, &c.MemoryType)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get chunk %s: %w", id, err)
	}
	return &c, nil
}

// Size returns the cached chunk count.
func (s *Store) Size() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.size
}

// Dimensions returns the locked vector width, 0 when no vectors are stored.
func (s *Store) Dimensions() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dims
}

// HasVectors reports whether the vector table exists.
func (s *Store) HasVectors() bool {
	return s.Dimensions() > 0
}

// Close closes the database. Idempotent.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	if s.db != nil {
		_, _ = s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
		return s.db.Close()
	}
	return nil
}

// fileTokens builds the weighted file-name column: the identifier-split
// basename without its extension.
func fileTokens(path string) string {
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return token.SplitIdentifier(base)
}

// nullable maps the empty string to NULL.
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
