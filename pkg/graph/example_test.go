package graph_test

import (
	"fmt"

	"github.com/matzehuels/slimdeps/pkg/deps"
	"github.com/matzehuels/slimdeps/pkg/graph"
)

func ExampleFromDependencies() {
	log := deps.Dependency{Group: "org.slf4j", Artifact: "slf4j-api", Version: "2.0.9"}
	roots := []deps.Dependency{{
		Group: "com.example", Artifact: "app", Version: "1.0",
		Transitive: []deps.Dependency{
			{Group: "com.example", Artifact: "core", Version: "1.0", Transitive: []deps.Dependency{log}},
			log,
		},
	}}

	g := graph.FromDependencies(roots)
	for _, n := range g.Nodes {
		fmt.Println(n.Row, n.ID)
	}
	fmt.Println(len(g.Edges), "edges")
	// Output:
	// 0 com.example:app:1.0
	// 1 com.example:core:1.0
	// 1 org.slf4j:slf4j-api:2.0.9
	// 3 edges
}
