package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildNeighborLinks(t *testing.T) {
	s := openTestStore(t)

	// a and b are identical vectors; c is far away.
	require.NoError(t, s.AddBatch([]Entry{
		{Chunk: chunk("a", "/r/a.go", "func A() {}"), Vector: []float32{1, 0, 0}},
		{Chunk: chunk("b", "/r/b.go", "func B() {}"), Vector: []float32{1, 0, 0}},
		{Chunk: chunk("c", "/r/c.go", "func C() {}"), Vector: []float32{0, 10, 0}},
	}))

	written, err := s.BuildNeighborLinks(3, 0.9)
	require.NoError(t, err)
	assert.Equal(t, 2, written) // a->b and b->a

	links, err := s.GetLinks("a", 10)
	require.NoError(t, err)
	require.Len(t, links, 1)
	assert.Equal(t, "b", links[0].DstID)
	assert.InDelta(t, 1.0, links[0].Similarity, 1e-6)

	// Re-running upserts rather than duplicating.
	_, err = s.BuildNeighborLinks(3, 0.9)
	require.NoError(t, err)
	links, err = s.GetLinks("a", 10)
	require.NoError(t, err)
	assert.Len(t, links, 1)
}

func TestBuildNeighborLinks_NoVectors(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.AddBatch([]Entry{{Chunk: chunk("a", "/r/a.go", "func A() {}")}}))

	written, err := s.BuildNeighborLinks(3, 0.9)
	require.NoError(t, err)
	assert.Zero(t, written)
}
