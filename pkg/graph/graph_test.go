package graph

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/matzehuels/slimdeps/pkg/deps"
)

func d(name string, transitive ...deps.Dependency) deps.Dependency {
	return deps.Dependency{Group: "g", Artifact: name, Version: "1", Transitive: transitive}
}

func diamond() []deps.Dependency {
	shared := d("d")
	shared.Checksum = "sha1:" + strings.Repeat("0", 40)
	return []deps.Dependency{d("a", d("b", shared), d("c", d("e", shared)))}
}

func TestFromDependencies(t *testing.T) {
	g := FromDependencies(diamond())

	if len(g.Nodes) != 5 {
		t.Fatalf("nodes = %d, want 5", len(g.Nodes))
	}
	if len(g.Edges) != 5 {
		t.Errorf("edges = %d, want 5: %v", len(g.Edges), g.Edges)
	}

	tests := []struct {
		id       string
		row      int
		root     bool
		verified bool
	}{
		{"g:a:1", 0, true, false},
		{"g:b:1", 1, false, false},
		{"g:c:1", 1, false, false},
		{"g:d:1", 2, false, true},
		{"g:e:1", 2, false, false},
	}
	for i, tt := range tests {
		n := g.Nodes[i]
		if n.ID != tt.id || n.Row != tt.row || n.Root != tt.root || n.Verified != tt.verified {
			t.Errorf("node %d = %+v, want %+v", i, n, tt)
		}
	}
	if got := g.Children("g:c:1"); len(got) != 1 || got[0] != "g:e:1" {
		t.Errorf("Children(c) = %v", got)
	}
	if _, ok := g.Node("g:zz:1"); ok {
		t.Error("Node() found a missing node")
	}
}

func TestFromDependenciesEmpty(t *testing.T) {
	g := FromDependencies(nil)
	data, err := MarshalGraph(g)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"nodes": []`) {
		t.Errorf("empty graph JSON = %s", data)
	}
}

func TestGraphJSONFile(t *testing.T) {
	g := FromDependencies(diamond())
	path := filepath.Join(t.TempDir(), "graph.json")
	if err := WriteGraphFile(g, path); err != nil {
		t.Fatal(err)
	}
	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	back, err := ReadGraph(f)
	if err != nil {
		t.Fatal(err)
	}
	if len(back.Nodes) != len(g.Nodes) || len(back.Edges) != len(g.Edges) {
		t.Errorf("read back %d nodes / %d edges", len(back.Nodes), len(back.Edges))
	}
}

func TestReadGraphRejectsDanglingEdge(t *testing.T) {
	in := `{"nodes":[{"id":"a"}],"edges":[{"from":"a","to":"b"}]}`
	if _, err := ReadGraph(strings.NewReader(in)); err == nil {
		t.Error("ReadGraph() should reject an edge to an unknown node")
	}
}

func TestToDOT(t *testing.T) {
	g := FromDependencies(diamond())

	dot := ToDOT(g, Options{})
	for _, want := range []string{
		`"g:a:1" [label="a:1", penwidth=2];`,
		`"g:e:1" -> "g:d:1";`,
		`"g:b:1" -> "g:d:1";`,
		`{ rank=same; "g:b:1"; "g:c:1"; }`,
		`fillcolor="#e8f5e9"`,
	} {
		if !strings.Contains(dot, want) {
			t.Errorf("DOT missing %q:\n%s", want, dot)
		}
	}

	detailed := ToDOT(g, Options{Detailed: true})
	if !strings.Contains(detailed, `label="g:a:1"`) {
		t.Errorf("detailed DOT should use full coordinates:\n%s", detailed)
	}
}

func TestRenderSVG(t *testing.T) {
	if testing.Short() {
		t.Skip("graphviz rendering in short mode")
	}
	svg, err := RenderSVG(context.Background(), ToDOT(FromDependencies(diamond()), Options{}))
	if err != nil {
		t.Fatalf("RenderSVG() error = %v", err)
	}
	if !bytes.Contains(svg, []byte("<svg")) || !bytes.Contains(svg, []byte(`viewBox="0 0 `)) {
		t.Errorf("unexpected SVG header: %.200s", svg)
	}
}

func TestNormalizeViewBox(t *testing.T) {
	in := []byte(`<svg width="10pt" height="20pt" viewBox="0.00 0.00 100.50 200.00" xmlns="http://www.w3.org/2000/svg"><g/></svg>`)
	out := string(normalizeViewBox(in))
	want := `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 100.50 200.00" width="100" height="200"><g/></svg>`
	if out != want {
		t.Errorf("normalizeViewBox() = %s", out)
	}
	if got := normalizeViewBox([]byte("<svg>")); string(got) != "<svg>" {
		t.Errorf("no viewBox should pass through, got %s", got)
	}
}
