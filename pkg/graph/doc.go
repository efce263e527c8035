// Package graph converts a dependency manifest into a serializable graph
// and renders it as Graphviz DOT or SVG.
//
// # Overview
//
// [FromDependencies] flattens the transitive sets of a manifest into nodes
// and edges. Each dependency appears once, keyed by its coordinate, and
// carries its row: the shortest distance from any root. Diamonds therefore
// show up as two edges into a single node.
//
// # Usage
//
//	g := graph.FromDependencies(data.Dependencies)
//	dot := graph.ToDOT(g, graph.Options{Detailed: true})
//	svg, err := graph.RenderSVG(dot)
//
// The JSON form ([WriteGraph], [ReadGraph]) is stable and sorted by node ID,
// suitable for diffing across runs.
//
// # Dependencies
//
// SVG rendering runs Graphviz in-process via [github.com/goccy/go-graphviz];
// no external binaries are needed.
package graph
