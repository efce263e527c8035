package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/slimdeps/pkg/deps"
	"github.com/matzehuels/slimdeps/pkg/deps/reader"
)

// fetchCommand creates the fetch command.
func (c *CLI) fetchCommand() *cobra.Command {
	var (
		flags    pipelineFlags
		manifest string
		checksum string
	)

	cmd := &cobra.Command{
		Use:   "fetch <group:artifact:version[:classifier]>...",
		Short: "Download individual artifacts into the store",
		Long: `Resolve and download the given coordinates without their transitive
dependencies. Each stored path is printed on its own line.

Repositories come from --repo and, when --manifest is given, from that
manifest (after mirror substitution).`,
		Example: `  slimdeps fetch com.google.code.gson:gson:2.10.1 --repo https://repo1.maven.org/maven2`,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runFetch(cmd.Context(), args, manifest, checksum, flags)
		},
	}

	addPipelineFlags(cmd, &flags)
	cmd.Flags().StringVarP(&manifest, "manifest", "m", "", "take repositories from this manifest")
	cmd.Flags().StringVar(&checksum, "checksum", "", "expected checksum (algorithm:hex) when fetching a single coordinate")

	return cmd
}

func (c *CLI) runFetch(ctx context.Context, coords []string, manifest, checksum string, flags pipelineFlags) error {
	if checksum != "" && len(coords) > 1 {
		return errors.New("--checksum applies to a single coordinate")
	}

	list := make([]deps.Dependency, 0, len(coords))
	for _, s := range coords {
		id, err := deps.ParseCoordinate(s)
		if err != nil {
			return err
		}
		list = append(list, deps.Dependency{
			Group:      id.Group,
			Artifact:   id.Artifact,
			Version:    id.Version,
			Classifier: id.Classifier,
			Checksum:   checksum,
		})
	}

	var repos []deps.Repository
	if manifest != "" {
		data, err := reader.ReadFile(manifest)
		if err != nil {
			return fmt.Errorf("read manifest: %w", err)
		}
		repos = data.EffectiveRepositories()
	}

	p, err := c.newPipeline(ctx, repos, flags)
	if err != nil {
		return err
	}
	defer p.Close()

	for _, d := range deps.Unique(list) {
		art, err := p.downloader.Download(ctx, d)
		if err != nil {
			return err
		}
		status := iconFresh
		if art.Reused {
			status = iconCached
		}
		c.Logger.Info("Stored", "dependency", d.String(), "status", status, "bytes", art.Size)
		fmt.Println(art.Path)
	}
	return nil
}
