package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/matzehuels/slimdeps/pkg/graph"
)

// graphCommand creates the graph command.
func (c *CLI) graphCommand() *cobra.Command {
	var (
		format   string
		output   string
		detailed bool
	)

	cmd := &cobra.Command{
		Use:   "graph [manifest]",
		Short: "Export the manifest's dependency graph",
		Long: `Export the transitive dependency graph declared by a manifest.

Formats:
  dot   Graphviz source (default)
  svg   rendered with the embedded Graphviz
  json  nodes and edges, suitable for other tools`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runGraph(cmd.Context(), args, format, output, detailed)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "dot", "output format: dot, svg or json")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write to file instead of stdout")
	cmd.Flags().BoolVar(&detailed, "detailed", false, "label nodes with full coordinates")

	return cmd
}

func (c *CLI) runGraph(ctx context.Context, args []string, format, output string, detailed bool) error {
	data, path, err := readManifest(args)
	if err != nil {
		return err
	}
	g := graph.FromDependencies(data.Dependencies)
	c.Logger.Debug("Built graph", "manifest", path, "nodes", len(g.Nodes), "edges", len(g.Edges))

	var out []byte
	switch format {
	case "dot":
		out = []byte(graph.ToDOT(g, graph.Options{Detailed: detailed}))
	case "svg":
		out, err = graph.RenderSVG(ctx, graph.ToDOT(g, graph.Options{Detailed: detailed}))
		if err != nil {
			return err
		}
	case "json":
		out, err = graph.MarshalGraph(g)
		if err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown format %q (want dot, svg or json)", format)
	}

	if output == "" {
		_, err := os.Stdout.Write(out)
		return err
	}
	if err := os.WriteFile(output, out, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", output, err)
	}
	printSuccess("Graph with %d dependencies", len(g.Nodes))
	printFile(output)
	return nil
}
