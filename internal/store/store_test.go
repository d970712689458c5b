package store

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func chunk(id, path, content string) ChunkMeta {
	return ChunkMeta{
		ID:       id,
		Content:  content,
		FilePath: path,
		EndLine:  1,
		Language: "go",
	}
}

func TestAddBatch_InsertAndSearch(t *testing.T) {
	s := openTestStore(t)

	err := s.AddBatch([]Entry{
		{Chunk: ChunkMeta{
			ID:         "/r/src/auth.ts:0:1",
			Content:    "function authenticateUser(token: string){ return validate(token); }",
			FilePath:   "/r/src/auth.ts",
			EndLine:    1,
			Language:   "typescript",
			SymbolName: "authenticateUser",
		}},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), s.Size())
	assert.False(t, s.HasVectors())

	hits, err := s.SearchBM25("authenticateUser", 5)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "/r/src/auth.ts:0:1", hits[0].Chunk.ID)
	assert.Equal(t, MemoryTypeSemantic, hits[0].Chunk.MemoryType)
	assert.NotZero(t, hits[0].Chunk.IngestedAt)
}

func TestAddBatch_UpsertReplacesExistingRow(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.AddBatch([]Entry{{Chunk: chunk("c1", "/r/a.go", "func Old() {}")}}))
	require.NoError(t, s.AddBatch([]Entry{{Chunk: chunk("c1", "/r/a.go", "func NewName() {}")}}))

	assert.Equal(t, int64(1), s.Size())

	hits, err := s.SearchBM25("NewName", 5)
	require.NoError(t, err)
	require.Len(t, hits, 1)

	hits, err = s.SearchBM25("Old", 5)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestAddBatch_DimensionLockRollsBack(t *testing.T) {
	s := openTestStore(t)

	// First batch locks D=3
	require.NoError(t, s.AddBatch([]Entry{
		{Chunk: chunk("c1", "/r/a.go", "func A() {}"), Vector: []float32{1, 0, 0}},
	}))
	assert.Equal(t, 3, s.Dimensions())
	assert.Equal(t, int64(1), s.Size())

	// Second batch mixes widths and must roll back entirely
	err := s.AddBatch([]Entry{
		{Chunk: chunk("c2", "/r/b.go", "func B() {}"), Vector: []float32{1, 0, 0}},
		{Chunk: chunk("c3", "/r/c.go", "func C() {}"), Vector: []float32{1, 0}},
	})
	require.Error(t, err)
	var dimErr ErrDimensionMismatch
	require.ErrorAs(t, err, &dimErr)
	assert.Equal(t, 3, dimErr.Expected)
	assert.Equal(t, 2, dimErr.Got)

	assert.Equal(t, int64(1), s.Size())
	got, err := s.GetChunkByID("c2")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestAddBatch_MixedVectorAndLexicalEntries(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.AddBatch([]Entry{
		{Chunk: chunk("c1", "/r/a.go", "func WithVec() {}"), Vector: []float32{0.5, 0.5, 0}},
		{Chunk: chunk("c2", "/r/b.go", "func NoVec() {}")},
	}))

	assert.Equal(t, int64(2), s.Size())

	hits, err := s.SearchVector([]float32{0.5, 0.5, 0}, 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "c1", hits[0].Chunk.ID)
	assert.InDelta(t, 1.0, hits[0].Score, 1e-9)
}

func TestSearchVector_EmptyCases(t *testing.T) {
	s := openTestStore(t)

	// No vectors in store
	hits, err := s.SearchVector([]float32{1, 2, 3}, 5)
	require.NoError(t, err)
	assert.Empty(t, hits)

	require.NoError(t, s.AddBatch([]Entry{
		{Chunk: chunk("c1", "/r/a.go", "func A() {}"), Vector: []float32{1, 0, 0}},
	}))

	// Empty query vector
	hits, err = s.SearchVector(nil, 5)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestSearchVector_OrdersByDistance(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.AddBatch([]Entry{
		{Chunk: chunk("near", "/r/a.go", "func A() {}"), Vector: []float32{1, 0, 0}},
		{Chunk: chunk("far", "/r/b.go", "func B() {}"), Vector: []float32{0, 1, 0}},
	}))

	hits, err := s.SearchVector([]float32{0.9, 0.1, 0}, 2)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "near", hits[0].Chunk.ID)
	assert.Equal(t, "far", hits[1].Chunk.ID)
	assert.Greater(t, hits[0].Score, hits[1].Score)
}

func TestSearchBM25_QueryNormalizesToEmpty(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.AddBatch([]Entry{{Chunk: chunk("c1", "/r/a.go", "func A() {}")}}))

	hits, err := s.SearchBM25(`*"():][^`, 5)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestSearchBM25_WeightsFileTokens(t *testing.T) {
	s := openTestStore(t)

	// Only the file name mentions "payment"; content does not.
	require.NoError(t, s.AddBatch([]Entry{
		{Chunk: chunk("c1", "/r/paymentProcessor.go", "func Run() {}")},
		{Chunk: chunk("c2", "/r/util.go", "func Helper() {}")},
	}))

	hits, err := s.SearchBM25("payment", 5)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "c1", hits[0].Chunk.ID)
}

func TestRemoveByFilePath(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.AddBatch([]Entry{
		{Chunk: chunk("a1", "/r/a.go", "func AOne() {}"), Vector: []float32{1, 0}},
		{Chunk: chunk("a2", "/r/a.go", "func ATwo() {}"), Vector: []float32{0, 1}},
		{Chunk: chunk("b1", "/r/b.go", "func BOne() {}"), Vector: []float32{1, 1}},
	}))
	require.Equal(t, int64(3), s.Size())

	require.NoError(t, s.RemoveByFilePath("/r/a.go"))
	assert.Equal(t, int64(1), s.Size())

	hits, err := s.SearchBM25("AOne", 5)
	require.NoError(t, err)
	assert.Empty(t, hits)

	hits, err = s.SearchVector([]float32{1, 1}, 5)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "b1", hits[0].Chunk.ID)

	// Idempotent
	require.NoError(t, s.RemoveByFilePath("/r/a.go"))
	assert.Equal(t, int64(1), s.Size())
}

func TestClearAll_ThenReinsertWithDifferentDimension(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.AddBatch([]Entry{
		{Chunk: chunk("c1", "/r/a.go", "func A() {}"), Vector: []float32{1, 0, 0}},
	}))
	require.Equal(t, 3, s.Dimensions())

	require.NoError(t, s.ClearAll())
	assert.Equal(t, int64(0), s.Size())
	assert.Equal(t, 0, s.Dimensions())
	assert.False(t, s.HasVectors())

	// A different width is accepted after the clear.
	require.NoError(t, s.AddBatch([]Entry{
		{Chunk: chunk("c2", "/r/b.go", "func B() {}"), Vector: []float32{1, 0, 0, 0, 0}},
	}))
	assert.Equal(t, 5, s.Dimensions())
}

func TestAddBatch_EmptyBatch(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.AddBatch(nil))
	assert.Equal(t, int64(0), s.Size())
}

func TestGetChunkByID(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.AddBatch([]Entry{
		{Chunk: ChunkMeta{ID: "c1", Content: "x", FilePath: "/r/a.go", StartLine: 3, EndLine: 9, Language: "go", SymbolName: "X"}},
	}))

	got, err := s.GetChunkByID("c1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 3, got.StartLine)
	assert.Equal(t, 9, got.EndLine)
	assert.Equal(t, "X", got.SymbolName)

	missing, err := s.GetChunkByID("nope")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestLinks_UpsertAndGet(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.AddLinks([]Link{
		{SrcID: "a", DstID: "b", Similarity: 0.95},
		{SrcID: "a", DstID: "c", Similarity: 0.91},
	}))
	// Upsert on conflict updates similarity.
	require.NoError(t, s.AddLinks([]Link{{SrcID: "a", DstID: "b", Similarity: 0.99}}))

	links, err := s.GetLinks("a", 10)
	require.NoError(t, err)
	require.Len(t, links, 2)
	assert.Equal(t, "b", links[0].DstID)
	assert.InDelta(t, 0.99, links[0].Similarity, 1e-9)
	assert.Equal(t, "c", links[1].DstID)
}

func TestIndexEvents_AppendAndList(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.LogIndexEvent(IndexEvent{Type: EventFull, FilesChanged: 10, ChunksAdded: 42, CommitSHA: "abc123"}))
	require.NoError(t, s.LogIndexEvent(IndexEvent{Type: EventIncremental, FilesChanged: 1, ChunksAdded: 2, ChunksRemoved: 3}))

	events, err := s.ListIndexEvents(10)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, EventIncremental, events[0].Type)
	assert.Equal(t, EventFull, events[1].Type)
	assert.Equal(t, "abc123", events[1].CommitSHA)
	assert.NotZero(t, events[0].CreatedAt)
}

func TestClearAll_PreservesEventLog(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.LogIndexEvent(IndexEvent{Type: EventFull}))
	require.NoError(t, s.ClearAll())

	events, err := s.ListIndexEvents(10)
	require.NoError(t, err)
	assert.Len(t, events, 1)
}

func TestOpen_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.db")

	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.AddBatch([]Entry{
		{Chunk: chunk("c1", "/r/a.go", "func Persisted() {}"), Vector: []float32{1, 0, 0, 0}},
	}))
	require.NoError(t, s.Close())

	s2, err := Open(path)
	require.NoError(t, err)
	defer s2.Close()

	assert.Equal(t, int64(1), s2.Size())
	assert.Equal(t, 4, s2.Dimensions())

	hits, err := s2.SearchVector([]float32{1, 0, 0, 0}, 1)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "c1", hits[0].Chunk.ID)
}

func TestMigrate_OlderVersionDropsIndexTables(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.db")

	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.AddBatch([]Entry{{Chunk: chunk("c1", "/r/a.go", "func A() {}")}}))
	require.NoError(t, s.LogIndexEvent(IndexEvent{Type: EventFull}))

	// Simulate an older on-disk schema.
	_, err = s.db.Exec(`UPDATE _meta SET value = '1' WHERE key = 'schema_version'`)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s2, err := Open(path)
	require.NoError(t, err)
	defer s2.Close()

	// Chunks are gone, the event log survives.
	assert.Equal(t, int64(0), s2.Size())
	events, err := s2.ListIndexEvents(10)
	require.NoError(t, err)
	assert.Len(t, events, 1)
}

func TestAddBatch_LargeBatchStaysConsistent(t *testing.T) {
	s := openTestStore(t)

	var entries []Entry
	for i := 0; i < 200; i++ {
		id := fmt.Sprintf("c%d", i)
		entries = append(entries, Entry{
			Chunk:  chunk(id, fmt.Sprintf("/r/f%d.go", i%10), fmt.Sprintf("func Fn%d() {}", i)),
			Vector: []float32{float32(i), 1},
		})
	}
	require.NoError(t, s.AddBatch(entries))
	assert.Equal(t, int64(200), s.Size())

	// Every file holds 20 chunks; removing one file removes exactly those.
	require.NoError(t, s.RemoveByFilePath("/r/f3.go"))
	assert.Equal(t, int64(180), s.Size())
}
