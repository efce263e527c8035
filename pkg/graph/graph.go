package graph

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/matzehuels/slimdeps/pkg/deps"
)

// Graph is the serialization format for dependency graphs.
type Graph struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// Node is one distinct dependency.
type Node struct {
	ID         string `json:"id"`
	Group      string `json:"group"`
	Artifact   string `json:"artifact"`
	Version    string `json:"version"`
	Classifier string `json:"classifier,omitempty"`
	Row        int    `json:"row"`
	Root       bool   `json:"root,omitempty"`
	Verified   bool   `json:"verified,omitempty"` // declares a checksum
}

// Label returns "artifact:version[:classifier]", the short display form.
func (n Node) Label() string {
	s := n.Artifact + ":" + n.Version
	if n.Classifier != "" {
		s += ":" + n.Classifier
	}
	return s
}

// Edge is a dependency relation from parent to child.
type Edge struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// FromDependencies builds the graph reachable from roots. Nodes are sorted
// by row, then ID; edges by their endpoints.
func FromDependencies(roots []deps.Dependency) Graph {
	rows := shortestRows(roots)
	rootSet := make(map[deps.Coordinate]bool, len(roots))
	for _, r := range roots {
		rootSet[r.ID()] = true
	}

	g := Graph{Nodes: []Node{}, Edges: []Edge{}}
	for _, d := range deps.Flatten(roots) {
		id := d.ID()
		g.Nodes = append(g.Nodes, Node{
			ID:         id.String(),
			Group:      d.Group,
			Artifact:   d.Artifact,
			Version:    d.Version,
			Classifier: d.Classifier,
			Row:        rows[id],
			Root:       rootSet[id],
			Verified:   d.Checksum != "",
		})
	}
	for _, e := range deps.Edges(roots) {
		g.Edges = append(g.Edges, Edge{From: e.From.String(), To: e.To.String()})
	}

	slices.SortFunc(g.Nodes, func(a, b Node) int {
		if a.Row != b.Row {
			return a.Row - b.Row
		}
		return strings.Compare(a.ID, b.ID)
	})
	slices.SortFunc(g.Edges, func(a, b Edge) int {
		if c := strings.Compare(a.From, b.From); c != 0 {
			return c
		}
		return strings.Compare(a.To, b.To)
	})
	return g
}

// shortestRows assigns every coordinate its minimum distance from a root.
func shortestRows(roots []deps.Dependency) map[deps.Coordinate]int {
	rows := make(map[deps.Coordinate]int)
	queue := make([]deps.Dependency, 0, len(roots))
	for _, r := range roots {
		if _, ok := rows[r.ID()]; !ok {
			rows[r.ID()] = 0
			queue = append(queue, r)
		}
	}
	for len(queue) > 0 {
		d := queue[0]
		queue = queue[1:]
		for _, child := range d.Transitive {
			if _, ok := rows[child.ID()]; ok {
				continue
			}
			rows[child.ID()] = rows[d.ID()] + 1
			queue = append(queue, child)
		}
	}
	return rows
}

// Node returns the node with the given ID.
func (g Graph) Node(id string) (Node, bool) {
	for _, n := range g.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return Node{}, false
}

// Children returns the IDs of id's direct dependencies.
func (g Graph) Children(id string) []string {
	var out []string
	for _, e := range g.Edges {
		if e.From == id {
			out = append(out, e.To)
		}
	}
	return out
}

// MarshalGraph converts a graph to indented JSON.
func MarshalGraph(g Graph) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteGraph(g, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteGraph writes g as JSON to w.
func WriteGraph(g Graph, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(g); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}

// WriteGraphFile writes g as JSON to path.
func WriteGraphFile(g Graph, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	return WriteGraph(g, f)
}

// ReadGraph decodes a JSON graph. Edges must reference known nodes.
func ReadGraph(r io.Reader) (Graph, error) {
	var g Graph
	if err := json.NewDecoder(r).Decode(&g); err != nil {
		return Graph{}, fmt.Errorf("decode: %w", err)
	}
	known := make(map[string]bool, len(g.Nodes))
	for _, n := range g.Nodes {
		known[n.ID] = true
	}
	for _, e := range g.Edges {
		if !known[e.From] || !known[e.To] {
			return Graph{}, fmt.Errorf("edge %s -> %s references unknown node", e.From, e.To)
		}
	}
	return g, nil
}
