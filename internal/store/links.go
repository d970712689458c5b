package store

import (
	"fmt"
	"time"
)

// AddLinks transactionally upserts similarity edges on (src, dst).
func (s *Store) AddLinks(links []Link) error {
	if len(links) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("store is closed")
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin links: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.Prepare(
		`INSERT INTO chunk_links (src_id, dst_id, similarity, created_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(src_id, dst_id) DO UPDATE SET similarity = excluded.similarity, created_at = excluded.created_at`)
	if err != nil {
		return fmt.Errorf("prepare link upsert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UnixMilli()
	for _, l := range links {
		createdAt := l.CreatedAt
		if createdAt == 0 {
			createdAt = now
		}
		if _, err := stmt.Exec(l.SrcID, l.DstID, l.Similarity, createdAt); err != nil {
			return fmt.Errorf("upsert link %s -> %s: %w", l.SrcID, l.DstID, err)
		}
	}
	return tx.Commit()
}

// GetLinks returns outgoing links for a chunk, strongest first.
func (s *Store) GetLinks(srcID string, limit int) ([]Link, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, fmt.Errorf("store is closed")
	}

	rows, err := s.db.Query(
		`SELECT src_id, dst_id, similarity, created_at FROM chunk_links
		 WHERE src_id = ? ORDER BY similarity DESC LIMIT ?`, srcID, limit)
	if err != nil {
		return nil, fmt.Errorf("get links: %w", err)
	}
	defer rows.Close()

	var links []Link
	for rows.Next() {
		var l Link
		if err := rows.Scan(&l.SrcID, &l.DstID, &l.Similarity, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan link: %w", err)
		}
		links = append(links, l)
	}
	return links, rows.Err()
}

// LogIndexEvent appends one audit row with the current timestamp.
func (s *Store) LogIndexEvent(ev IndexEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("store is closed")
	}

	createdAt := ev.CreatedAt
	if createdAt == 0 {
		createdAt = time.Now().UnixMilli()
	}
	_, err := s.db.Exec(
		`INSERT INTO index_events (event_type, files_changed, chunks_added, chunks_removed, commit_sha, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		string(ev.Type), ev.FilesChanged, ev.ChunksAdded, ev.ChunksRemoved, nullable(ev.CommitSHA), createdAt)
	if err != nil {
		return fmt.Errorf("log index event: %w", err)
	}
	return nil
}

// ListIndexEvents returns the most recent audit rows, newest first.
func (s *Store) ListIndexEvents(limit int) ([]IndexEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, fmt.Errorf("store is closed")
	}

	rows, err := s.db.Query(
		`SELECT event_type, files_changed, chunks_added, chunks_removed, COALESCE(commit_sha, ''), created_at
		 FROM index_events ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list index events: %w", err)
	}
	defer rows.Close()

	var events []IndexEvent
	for rows.Next() {
		var ev IndexEvent
		var evType string
		if err := rows.Scan(&evType, &ev.FilesChanged, &ev.ChunksAdded, &ev.ChunksRemoved, &ev.CommitSHA, &ev.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan index event: %w", err)
		}
		ev.Type = EventType(evType)
		events = append(events, ev)
	}
	return events, rows.Err()
}
