package store

import (
	"database/sql"
	"fmt"
	"os"
	"strconv"
)

// ddl creates every table except the vector table, which is created lazily
// once the embedding dimension is known.
const ddl = `
CREATE TABLE IF NOT EXISTS chunk_meta (
    id          TEXT NOT NULL UNIQUE,
    content     TEXT NOT NULL,
    file_path   TEXT NOT NULL,
    start_line  INTEGER NOT NULL,
    end_line    INTEGER NOT NULL,
    language    TEXT NOT NULL DEFAULT '',
    symbol_name TEXT,
    ingested_at INTEGER NOT NULL,
    memory_type TEXT NOT NULL DEFAULT 'semantic'
);

CREATE INDEX IF NOT EXISTS idx_chunk_meta_file_path ON chunk_meta(file_path);

CREATE VIRTUAL TABLE IF NOT EXISTS chunks_fts USING fts5(
    content,
    symbol_name,
    file_tokens,
    code_tokens,
    tokenize='porter unicode61'
);

CREATE TABLE IF NOT EXISTS chunk_links (
    src_id     TEXT NOT NULL,
    dst_id     TEXT NOT NULL,
    similarity REAL NOT NULL,
    created_at INTEGER NOT NULL,
    PRIMARY KEY (src_id, dst_id)
);

CREATE INDEX IF NOT EXISTS idx_chunk_links_src ON chunk_links(src_id);

CREATE TABLE IF NOT EXISTS index_events (
    id             INTEGER PRIMARY KEY AUTOINCREMENT,
    event_type     TEXT NOT NULL,
    files_changed  INTEGER NOT NULL DEFAULT 0,
    chunks_added   INTEGER NOT NULL DEFAULT 0,
    chunks_removed INTEGER NOT NULL DEFAULT 0,
    commit_sha     TEXT,
    created_at     INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS _meta (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
);
`

// migrate creates or destructively migrates the schema. An older stored
// version drops the three schema-bound tables and forces the next freshness
// check to a full reindex; the event log is preserved.
func (s *Store) migrate(db *sql.DB) error {
	if _, err := db.Exec(ddl); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}

	stored, err := s.getMetaInt(db, metaKeySchemaVersion)
	if err != nil {
		return err
	}

	if stored != 0 && stored < currentSchemaVersion {
		fmt.Fprintf(os.Stderr,
			"holocron: index schema v%d is older than v%d; dropping index tables, a full reindex is required\n",
			stored, currentSchemaVersion)

		drops := []string{
			`DROP TABLE IF EXISTS chunks_fts`,
			`DROP TABLE IF EXISTS vecs`,
			`DROP TABLE IF EXISTS chunk_meta`,
			`DELETE FROM _meta WHERE key = '` + metaKeyDimensions + `'`,
		}
		for _, stmt := range drops {
			if _, err := db.Exec(stmt); err != nil {
				return fmt.Errorf("drop stale schema: %w", err)
			}
		}
		if _, err := db.Exec(ddl); err != nil {
			return fmt.Errorf("recreate schema: %w", err)
		}
	}

	return s.setMeta(db, metaKeySchemaVersion, strconv.Itoa(currentSchemaVersion))
}

// getMetaInt reads an integer _meta value, returning 0 when absent.
func (s *Store) getMetaInt(db *sql.DB, key string) (int, error) {
	var raw string
	err := db.QueryRow(`SELECT value FROM _meta WHERE key = ?`, key).Scan(&raw)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read meta %s: %w", key, err)
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("parse meta %s=%q: %w", key, raw, err)
	}
	return n, nil
}

func (s *Store) setMeta(db *sql.DB, key, value string) error {
	_, err := db.Exec(
		`INSERT INTO _meta (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value,
	)
	return err
}
