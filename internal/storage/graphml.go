package storage

import (
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
)

const graphMLNamespace = "http://graphml.graphdrawing.org/xmlns"

// Attribute keys declared in every document
const (
	weightKey  = "weight"
	visitedKey = "visited"
)

// GraphMLDocument is the root element of a GraphML file
type GraphMLDocument struct {
	XMLName xml.Name     `xml:"graphml"`
	XMLNS   string       `xml:"xmlns,attr"`
	Keys    []GraphMLKey `xml:"key"`
	Graph   GraphMLGraph `xml:"graph"`
}

// GraphMLKey declares a typed attribute
type GraphMLKey struct {
	ID       string `xml:"id,attr"`
	For      string `xml:"for,attr"`
	AttrName string `xml:"attr.name,attr"`
	AttrType string `xml:"attr.type,attr"`
}

// GraphMLGraph holds nodes and edges
type GraphMLGraph struct {
	ID          string        `xml:"id,attr,omitempty"`
	EdgeDefault string        `xml:"edgedefault,attr"`
	Nodes       []GraphMLNode `xml:"node"`
	Edges       []GraphMLEdge `xml:"edge"`
}

// GraphMLNode is a single community
type GraphMLNode struct {
	ID   string        `xml:"id,attr"`
	Data []GraphMLData `xml:"data"`
}

// GraphMLEdge is a single weighted reference
type GraphMLEdge struct {
	Source string        `xml:"source,attr"`
	Target string        `xml:"target,attr"`
	Data   []GraphMLData `xml:"data"`
}

// GraphMLData carries one attribute value
type GraphMLData struct {
	Key   string `xml:"key,attr"`
	Value string `xml:",chardata"`
}

// GraphMLFileName names the output file after the origin and window start
func GraphMLFileName(origin string, minUTC int64) string {
	return fmt.Sprintf("network_%s_%d.graphml", origin, minUTC)
}

// EncodeGraphML writes a directed GraphML document with an int weight per edge
func EncodeGraphML(w io.Writer, nodes []Node, edges []Edge) error {
	doc := GraphMLDocument{
		XMLNS: graphMLNamespace,
		Keys: []GraphMLKey{
			{ID: visitedKey, For: "node", AttrName: visitedKey, AttrType: "boolean"},
			{ID: weightKey, For: "edge", AttrName: weightKey, AttrType: "int"},
		},
		Graph: GraphMLGraph{
			EdgeDefault: "directed",
			Nodes:       make([]GraphMLNode, 0, len(nodes)),
			Edges:       make([]GraphMLEdge, 0, len(edges)),
		},
	}

	for _, node := range nodes {
		doc.Graph.Nodes = append(doc.Graph.Nodes, GraphMLNode{
			ID:   node.Name,
			Data: []GraphMLData{{Key: visitedKey, Value: strconv.FormatBool(node.Visited)}},
		})
	}
	for _, edge := range edges {
		doc.Graph.Edges = append(doc.Graph.Edges, GraphMLEdge{
			Source: edge.From,
			Target: edge.To,
			Data:   []GraphMLData{{Key: weightKey, Value: strconv.Itoa(edge.Weight)}},
		})
	}

	if _, err := io.WriteString(w, xml.Header); err != nil {
		return fmt.Errorf("failed to write xml header: %w", err)
	}

	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("failed to encode graphml: %w", err)
	}
	if err := enc.Flush(); err != nil {
		return fmt.Errorf("failed to flush graphml: %w", err)
	}

	_, err := io.WriteString(w, "\n")
	return err
}

// DecodeGraphML parses a document produced by EncodeGraphML
func DecodeGraphML(r io.Reader) (*GraphMLDocument, error) {
	var doc GraphMLDocument
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode graphml: %w", err)
	}
	return &doc, nil
}

// GraphMLFile writes the graph to a single GraphML file
type GraphMLFile struct {
	Path string
}

// NewGraphMLFile places the output for origin and minUTC inside dir
func NewGraphMLFile(dir, origin string, minUTC int64) *GraphMLFile {
	return &GraphMLFile{Path: filepath.Join(dir, GraphMLFileName(origin, minUTC))}
}

// WriteGraph replaces the file with the given snapshot
func (g *GraphMLFile) WriteGraph(nodes []Node, edges []Edge) error {
	if err := os.MkdirAll(filepath.Dir(g.Path), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	file, err := os.Create(g.Path)
	if err != nil {
		return fmt.Errorf("failed to create graph file: %w", err)
	}

	if err := EncodeGraphML(file, nodes, edges); err != nil {
		file.Close()
		return err
	}

	if err := file.Close(); err != nil {
		return fmt.Errorf("failed to close graph file: %w", err)
	}
	return nil
}
