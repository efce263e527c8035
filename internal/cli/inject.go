package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/matzehuels/slimdeps/pkg/deps"
	"github.com/matzehuels/slimdeps/pkg/inject"
	"github.com/matzehuels/slimdeps/pkg/observability"
	"github.com/matzehuels/slimdeps/pkg/relocation"
)

type injectFlags struct {
	pipelineFlags
	workers       int
	bestEffort    bool
	relocate      bool
	classpathFile string
	linkDir       string
	tui           bool
	quiet         bool
}

// injectCommand creates the inject command.
func (c *CLI) injectCommand() *cobra.Command {
	var flags injectFlags

	cmd := &cobra.Command{
		Use:   "inject [manifest]",
		Short: "Download and inject a manifest's dependency graph",
		Long: `Resolve, download, verify and (optionally) relocate every dependency in the
manifest, then inject each artifact depth-first. The resulting class path is
printed to stdout, or written to --classpath-file.

The manifest defaults to slimdeps.json; .toml and .yaml manifests are also
accepted. The first failure aborts the pass unless --best-effort is set.`,
		Example: `  # Build a class path from slimdeps.json
  slimdeps inject

  # Copy every artifact into ./libs with four download workers
  slimdeps inject deps.yaml --link-dir libs --workers 4`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("workers") {
				flags.workers = c.cfg.Inject.Workers
			}
			if !cmd.Flags().Changed("best-effort") {
				flags.bestEffort = c.cfg.Inject.BestEffort
			}
			if !cmd.Flags().Changed("relocate") {
				flags.relocate = c.cfg.Inject.Relocate
			}
			return c.runInject(cmd.Context(), args, flags)
		},
	}

	addPipelineFlags(cmd, &flags.pipelineFlags)
	cmd.Flags().IntVarP(&flags.workers, "workers", "w", 1, "children downloaded concurrently per node")
	cmd.Flags().BoolVar(&flags.bestEffort, "best-effort", false, "report failures and continue with the rest of the graph")
	cmd.Flags().BoolVar(&flags.relocate, "relocate", false, "apply the manifest's relocation rules before injecting")
	cmd.Flags().StringVar(&flags.classpathFile, "classpath-file", "", "write the class path to this file instead of stdout")
	cmd.Flags().StringVar(&flags.linkDir, "link-dir", "", "also link or copy every artifact into this directory")
	cmd.Flags().BoolVar(&flags.tui, "tui", false, "show an interactive progress view")
	cmd.Flags().BoolVarP(&flags.quiet, "quiet", "q", false, "hide the progress bar")

	return cmd
}

func addPipelineFlags(cmd *cobra.Command, f *pipelineFlags) {
	cmd.Flags().BoolVar(&f.noCache, "no-cache", false, "disable the persistent resolution cache")
	cmd.Flags().BoolVar(&f.refresh, "refresh", false, "ignore cached resolutions (results are still cached)")
	cmd.Flags().BoolVar(&f.force, "force", false, "download artifacts even if they are already stored")
	cmd.Flags().StringArrayVar(&f.repos, "repo", nil, "additional repository URL, tried before the manifest's (repeatable)")
}

func (c *CLI) runInject(ctx context.Context, args []string, flags injectFlags) error {
	data, path, err := readManifest(args)
	if err != nil {
		return err
	}
	p, err := c.newPipeline(ctx, data.EffectiveRepositories(), flags.pipelineFlags)
	if err != nil {
		return err
	}
	defer p.Close()

	opts := inject.Options{
		Workers:    flags.workers,
		BestEffort: flags.bestEffort,
		Logger:     c.Logger,
	}
	if flags.relocate {
		if len(data.Relocations) == 0 {
			printWarning("--relocate given but %s declares no relocation rules", path)
		} else {
			opts.Relocator = relocation.NewZipRelocator(data.Relocations)
		}
	}

	cp := &inject.Classpath{}
	var target inject.Injectable = cp
	if flags.linkDir != "" {
		links := inject.LinkDir{Dir: flags.linkDir}
		target = inject.Func(func(loc string) error {
			if err := links.Inject(loc); err != nil {
				return err
			}
			return cp.Inject(loc)
		})
	}

	injector := inject.New(p.downloader, opts)
	total := len(deps.Flatten(data.Dependencies))
	prog := newProgress(c.Logger)

	run := func(ctx context.Context) error {
		return injector.Inject(ctx, target, data.Dependencies)
	}

	var runErr error
	switch {
	case flags.tui:
		runErr = runInjectTUI(ctx, total, run)
	case flags.quiet:
		runErr = run(ctx)
	default:
		bar := newProgressHooks(os.Stderr, total)
		observability.SetInjectHooks(bar)
		runErr = run(ctx)
		bar.finish()
		observability.Reset()
		defer printStats(bar.counts())
	}

	entries := cp.Entries()
	if runErr != nil && (!flags.bestEffort || len(entries) == 0) {
		return runErr
	}

	if flags.classpathFile != "" {
		if err := cp.WriteFile(flags.classpathFile); err != nil {
			return fmt.Errorf("write class path: %w", err)
		}
		printSuccess("Injected %d of %d dependencies", len(entries), total)
		printFile(flags.classpathFile)
	} else {
		fmt.Println(cp.String())
	}
	if flags.linkDir != "" {
		printDetail("Linked into %s", flags.linkDir)
	}

	if runErr != nil {
		printFailures(runErr)
		return runErr
	}
	prog.done(fmt.Sprintf("Injected %d dependencies", len(entries)))
	return nil
}
