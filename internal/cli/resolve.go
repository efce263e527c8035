package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/matzehuels/slimdeps/pkg/deps"
	errs "github.com/matzehuels/slimdeps/pkg/errors"
)

// resolveCommand creates the resolve command.
func (c *CLI) resolveCommand() *cobra.Command {
	var flags pipelineFlags

	cmd := &cobra.Command{
		Use:   "resolve [manifest]",
		Short: "Show which repository serves each dependency",
		Long: `Resolve every dependency in the manifest's graph against its repositories
in priority order, without downloading anything. Unresolvable dependencies
are listed with every repository that was tried.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runResolve(cmd.Context(), args, flags)
		},
	}
	addPipelineFlags(cmd, &flags)
	return cmd
}

type resolution struct {
	dependency string
	location   string
	err        error
}

func (c *CLI) runResolve(ctx context.Context, args []string, flags pipelineFlags) error {
	data, _, err := readManifest(args)
	if err != nil {
		return err
	}
	p, err := c.newPipeline(ctx, data.EffectiveRepositories(), flags)
	if err != nil {
		return err
	}
	defer p.Close()

	all := deps.Flatten(data.Dependencies)
	spin := newSpinner(ctx, os.Stderr, "Resolving dependencies...")
	spin.Start()

	results := make([]resolution, 0, len(all))
	var failures []error
	for i, d := range all {
		spin.SetMessage("Resolving %s (%d/%d)", d, i+1, len(all))
		loc, err := p.resolver.Resolve(ctx, d)
		if ctx.Err() != nil {
			spin.Stop()
			return ctx.Err()
		}
		results = append(results, resolution{dependency: d.String(), location: loc.URL, err: err})
		if err != nil {
			failures = append(failures, err)
		}
	}
	spin.Stop()

	fmt.Println(renderResolutions(results))
	if len(failures) > 0 {
		printWarning("%d of %d dependencies unresolved", len(failures), len(all))
		return errors.Join(failures...)
	}
	printSuccess("Resolved %d dependencies", len(all))
	return nil
}

func renderResolutions(results []resolution) string {
	rows := make([][]string, 0, len(results))
	for _, r := range results {
		loc := r.location
		if r.err != nil {
			loc = "unresolved"
			var ue *errs.UnresolvedDependencyError
			if errors.As(r.err, &ue) && len(ue.Attempts) > 0 {
				loc = fmt.Sprintf("unresolved (tried %d repositories)", len(ue.Attempts))
			}
		}
		rows = append(rows, []string{r.dependency, loc})
	}

	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(StyleDim).
		Headers("DEPENDENCY", "LOCATION").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			s := lipgloss.NewStyle().Padding(0, 1)
			if row == table.HeaderRow {
				return s.Bold(true).Foreground(colorCyan)
			}
			if col == 1 && row >= 0 && row < len(results) && results[row].err != nil {
				return s.Foreground(colorRed)
			}
			return s
		}).
		String()
}
