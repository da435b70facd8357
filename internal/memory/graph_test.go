package memory

import (
	"errors"
	"testing"

	"github.com/alvmarrod/ref-weaver/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	nodes []storage.Node
	edges []storage.Edge
	err   error
}

func (s *recordingSink) WriteGraph(nodes []storage.Node, edges []storage.Edge) error {
	s.nodes = nodes
	s.edges = edges
	return s.err
}

func TestAddNodeIsIdempotent(t *testing.T) {
	g := NewMemoryGraph()
	assert.True(t, g.AddNode("go"))
	assert.False(t, g.AddNode("go"))
	assert.True(t, g.HasNode("go"))
	assert.False(t, g.HasNode("rust"))

	nodes, edges := g.GetStats()
	assert.Equal(t, 1, nodes)
	assert.Equal(t, 0, edges)
}

func TestSetEdgeNeverDuplicates(t *testing.T) {
	g := NewMemoryGraph()
	g.AddNode("go")

	require.NoError(t, g.SetEdge("go", "rust", 3))
	require.NoError(t, g.SetEdge("go", "rust", 4))

	w, ok := g.Weight("go", "rust")
	assert.True(t, ok)
	assert.Equal(t, 4, w)
	assert.True(t, g.HasNode("rust"), "destination is added as a node")

	_, edges := g.GetStats()
	assert.Equal(t, 1, edges)
}

func TestSetEdgeRejectsInvalidInput(t *testing.T) {
	g := NewMemoryGraph()
	g.AddNode("go")

	assert.Error(t, g.SetEdge("go", "go", 1))
	assert.Error(t, g.SetEdge("go", "rust", 0))
	assert.Error(t, g.SetEdge("python", "rust", 1))

	_, ok := g.Weight("go", "go")
	assert.False(t, ok)
}

func TestSnapshotKeepsInsertionOrder(t *testing.T) {
	g := NewMemoryGraph()
	g.AddNode("go")
	require.NoError(t, g.SetEdge("go", "zig", 1))
	require.NoError(t, g.SetEdge("go", "rust", 3))
	require.NoError(t, g.MarkVisited("go"))
	assert.Error(t, g.MarkVisited("python"))

	nodes, edges := g.Snapshot()
	require.Len(t, nodes, 3)
	assert.Equal(t, "go", nodes[0].Name)
	assert.True(t, nodes[0].Visited)
	assert.Equal(t, "zig", nodes[1].Name)
	assert.False(t, nodes[1].Visited)
	assert.Equal(t, "rust", nodes[2].Name)

	assert.Equal(t, []storage.Edge{
		{From: "go", To: "zig", Weight: 1},
		{From: "go", To: "rust", Weight: 3},
	}, edges)
}

func TestFlush(t *testing.T) {
	g := NewMemoryGraph()
	g.AddNode("test")
	require.NoError(t, g.SetEdge("test", "demo", 2))

	sink := &recordingSink{}
	require.NoError(t, g.Flush(sink))
	assert.Len(t, sink.nodes, 2)
	assert.Equal(t, []storage.Edge{{From: "test", To: "demo", Weight: 2}}, sink.edges)

	boom := errors.New("disk full")
	err := g.Flush(&recordingSink{err: boom})
	assert.ErrorIs(t, err, boom)
}
