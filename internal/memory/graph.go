package memory

import (
	"fmt"
	"sync"
	"time"

	"github.com/alvmarrod/ref-weaver/internal/storage"
	"github.com/sirupsen/logrus"
)

type edgeKey struct {
	from string
	to   string
}

// MemoryGraph holds the directed reference graph in memory while a crawl runs.
// Nodes and edges are kept in insertion order so snapshots are deterministic.
type MemoryGraph struct {
	nodes     map[string]*storage.Node // name -> node
	order     []string
	edges     map[edgeKey]int // (from, to) -> weight
	edgeOrder []edgeKey
	mu        sync.RWMutex
}

// NewMemoryGraph creates a new in-memory graph
func NewMemoryGraph() *MemoryGraph {
	return &MemoryGraph{
		nodes: make(map[string]*storage.Node),
		edges: make(map[edgeKey]int),
	}
}

// AddNode inserts a node if it is not present yet.
// Returns true when the node is new.
func (mg *MemoryGraph) AddNode(name string) bool {
	mg.mu.Lock()
	defer mg.mu.Unlock()
	return mg.addNodeLocked(name)
}

func (mg *MemoryGraph) addNodeLocked(name string) bool {
	if _, exists := mg.nodes[name]; exists {
		return false
	}

	mg.nodes[name] = &storage.Node{
		NodeID:    len(mg.order) + 1,
		Name:      name,
		CreatedAt: time.Now(),
	}
	mg.order = append(mg.order, name)
	return true
}

// HasNode reports whether name is part of the graph
func (mg *MemoryGraph) HasNode(name string) bool {
	mg.mu.RLock()
	defer mg.mu.RUnlock()
	_, exists := mg.nodes[name]
	return exists
}

// MarkVisited flags a node as fully processed
func (mg *MemoryGraph) MarkVisited(name string) error {
	mg.mu.Lock()
	defer mg.mu.Unlock()

	node, exists := mg.nodes[name]
	if !exists {
		return fmt.Errorf("node %s not found", name)
	}

	node.Visited = true
	return nil
}

// SetEdge records the weighted edge from -> to, adding the destination node
// when needed. Setting an existing pair replaces its weight.
func (mg *MemoryGraph) SetEdge(from, to string, weight int) error {
	if from == to {
		return fmt.Errorf("self-loop on %s", from)
	}
	if weight < 1 {
		return fmt.Errorf("invalid weight %d for %s -> %s", weight, from, to)
	}

	mg.mu.Lock()
	defer mg.mu.Unlock()

	if _, exists := mg.nodes[from]; !exists {
		return fmt.Errorf("source node %s not found", from)
	}
	mg.addNodeLocked(to)

	key := edgeKey{from: from, to: to}
	if _, exists := mg.edges[key]; !exists {
		mg.edgeOrder = append(mg.edgeOrder, key)
	}
	mg.edges[key] = weight

	return nil
}

// Weight returns the weight of from -> to and whether the edge exists
func (mg *MemoryGraph) Weight(from, to string) (int, bool) {
	mg.mu.RLock()
	defer mg.mu.RUnlock()
	w, ok := mg.edges[edgeKey{from: from, to: to}]
	return w, ok
}

// GetStats returns current graph statistics
func (mg *MemoryGraph) GetStats() (nodeCount, edgeCount int) {
	mg.mu.RLock()
	defer mg.mu.RUnlock()

	return len(mg.nodes), len(mg.edges)
}

// Snapshot returns copies of all nodes and edges in insertion order
func (mg *MemoryGraph) Snapshot() ([]storage.Node, []storage.Edge) {
	mg.mu.RLock()
	defer mg.mu.RUnlock()

	nodes := make([]storage.Node, 0, len(mg.order))
	for _, name := range mg.order {
		nodes = append(nodes, *mg.nodes[name])
	}

	edges := make([]storage.Edge, 0, len(mg.edgeOrder))
	for _, key := range mg.edgeOrder {
		edges = append(edges, storage.Edge{From: key.from, To: key.to, Weight: mg.edges[key]})
	}

	return nodes, edges
}

// Flush writes the current snapshot to a sink
func (mg *MemoryGraph) Flush(sink storage.GraphSink) error {
	startTime := time.Now()
	nodes, edges := mg.Snapshot()

	logrus.Debugf("Flushing %d nodes, %d edges to %T", len(nodes), len(edges), sink)

	if err := sink.WriteGraph(nodes, edges); err != nil {
		return fmt.Errorf("failed to flush graph: %w", err)
	}

	logrus.Infof("Flush complete: %d nodes, %d edges written in %v", len(nodes), len(edges), time.Since(startTime))
	return nil
}
