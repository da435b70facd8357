package storage

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGraphMLFileName(t *testing.T) {
	assert.Equal(t, "network_test_1425168000.graphml", GraphMLFileName("test", 1425168000))
}

func TestEncodeGraphML(t *testing.T) {
	var buf bytes.Buffer
	nodes := []Node{{Name: "test", Visited: true}, {Name: "demo"}}
	edges := []Edge{{From: "test", To: "demo", Weight: 2}}
	require.NoError(t, EncodeGraphML(&buf, nodes, edges))

	out := buf.String()
	assert.Contains(t, out, `<?xml version="1.0" encoding="UTF-8"?>`)
	assert.Contains(t, out, `edgedefault="directed"`)
	assert.Contains(t, out, `attr.name="weight" attr.type="int"`)
	assert.Contains(t, out, `<edge source="test" target="demo">`)

	doc, err := DecodeGraphML(&buf)
	require.NoError(t, err)
	require.Len(t, doc.Graph.Nodes, 2)
	assert.Equal(t, "test", doc.Graph.Nodes[0].ID)
	assert.Equal(t, "demo", doc.Graph.Nodes[1].ID)
	require.Len(t, doc.Graph.Edges, 1)
	assert.Equal(t, "test", doc.Graph.Edges[0].Source)
	assert.Equal(t, "demo", doc.Graph.Edges[0].Target)
	require.Len(t, doc.Graph.Edges[0].Data, 1)
	assert.Equal(t, "weight", doc.Graph.Edges[0].Data[0].Key)
	assert.Equal(t, "2", doc.Graph.Edges[0].Data[0].Value)
}

func TestGraphMLFileWriteGraph(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	file := NewGraphMLFile(dir, "go", 42)
	assert.Equal(t, filepath.Join(dir, "network_go_42.graphml"), file.Path)

	require.NoError(t, file.WriteGraph([]Node{{Name: "go"}}, nil))

	f, err := os.Open(file.Path)
	require.NoError(t, err)
	defer f.Close()

	doc, err := DecodeGraphML(f)
	require.NoError(t, err)
	require.Len(t, doc.Graph.Nodes, 1)
	assert.Empty(t, doc.Graph.Edges)
}
