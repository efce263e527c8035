package graph

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"
)

// Options configures DOT generation.
type Options struct {
	// Detailed labels nodes with the full coordinate instead of
	// artifact:version.
	Detailed bool
}

// ToDOT converts g to Graphviz DOT. Nodes sharing a row are ranked
// together, so depth reads top to bottom.
func ToDOT(g Graph, opts Options) string {
	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	buf.WriteString("  rankdir=TB;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontname=\"Helvetica\", fontsize=14, margin=\"0.2,0.1\"];\n")
	buf.WriteString("  ranksep=0.5;\n")
	buf.WriteString("  nodesep=0.3;\n")
	buf.WriteString("\n")

	rows := map[int][]string{}
	maxRow := 0
	for _, n := range g.Nodes {
		label := n.Label()
		if opts.Detailed {
			label = n.ID
		}
		attrs := []string{fmt.Sprintf("label=%q", label)}
		if n.Root {
			attrs = append(attrs, "penwidth=2")
		}
		if n.Verified {
			attrs = append(attrs, "fillcolor=\"#e8f5e9\"")
		}
		fmt.Fprintf(&buf, "  %q [%s];\n", n.ID, strings.Join(attrs, ", "))
		rows[n.Row] = append(rows[n.Row], n.ID)
		maxRow = max(maxRow, n.Row)
	}

	if len(g.Nodes) > 0 {
		buf.WriteString("\n")
		for r := 0; r <= maxRow; r++ {
			if len(rows[r]) < 2 {
				continue
			}
			quoted := make([]string, len(rows[r]))
			for i, id := range rows[r] {
				quoted[i] = strconv.Quote(id)
			}
			fmt.Fprintf(&buf, "  { rank=same; %s; }\n", strings.Join(quoted, "; "))
		}
	}

	buf.WriteString("\n")
	for _, e := range g.Edges {
		fmt.Fprintf(&buf, "  %q -> %q;\n", e.From, e.To)
	}
	buf.WriteString("}\n")
	return buf.String()
}

// RenderSVG renders DOT source to SVG with an embedded Graphviz.
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return normalizeViewBox(buf.Bytes()), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

// normalizeViewBox replaces Graphviz's point-based svg header with one whose
// viewBox starts at the origin and whose size matches it.
func normalizeViewBox(svg []byte) []byte {
	m := viewBoxRe.FindSubmatch(svg)
	if m == nil {
		return svg
	}
	w, _ := strconv.ParseFloat(string(m[3]), 64)
	h, _ := strconv.ParseFloat(string(m[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}
	tag := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`, w, h, w, h)
	return svgTagRe.ReplaceAll(svg, []byte(tag))
}
