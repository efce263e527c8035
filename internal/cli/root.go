// Package cli implements the slimdeps command-line interface.
//
// # Commands
//
//   - inject: download, verify, relocate and inject a manifest's dependency graph
//   - fetch: download individual coordinates into the store
//   - resolve: report which repository serves each dependency
//   - graph: render the dependency graph as DOT, SVG or JSON
//   - serve: expose the store as a repository over HTTP
//   - cache: manage the persistent resolution cache
//
// # Configuration
//
// Settings come from $XDG_CONFIG_HOME/slimdeps/config.toml (see package
// config), environment variables and flags, in increasing priority.
//
// # Logging
//
// All commands support --verbose (-v) for debug-level logging.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/matzehuels/slimdeps/pkg/buildinfo"
)

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          appName,
		Short:        "Slimdeps downloads and injects runtime dependencies",
		Long:         `Slimdeps resolves a dependency graph against prioritized repositories, downloads and verifies every artifact into a local store, optionally relocates it, and hands it to a loader such as a class path.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.loadConfig()
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (default $XDG_CONFIG_HOME/slimdeps/config.toml)")
	root.PersistentFlags().StringVar(&c.storeDir, "store", "", "artifact store directory (overrides config and SLIMDEPS_STORE)")

	root.AddCommand(c.injectCommand())
	root.AddCommand(c.fetchCommand())
	root.AddCommand(c.resolveCommand())
	root.AddCommand(c.graphCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}
