package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/matzehuels/slimdeps/pkg/cache"
	"github.com/matzehuels/slimdeps/pkg/config"
	errs "github.com/matzehuels/slimdeps/pkg/errors"
)

// cacheCommand creates the cache management command.
func (c *CLI) cacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the resolution cache and artifact store",
	}

	cmd.AddCommand(c.cacheClearCommand())
	cmd.AddCommand(c.cachePathCommand())

	return cmd
}

// cacheClearCommand creates the "cache clear" subcommand.
func (c *CLI) cacheClearCommand() *cobra.Command {
	var store bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Forget cached resolutions (and, with --store, downloaded artifacts)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.clearResolutions(); err != nil {
				return err
			}
			if !store {
				return nil
			}
			if err := os.RemoveAll(c.cfg.Store.Dir); err != nil {
				return fmt.Errorf("clear store: %w", err)
			}
			printSuccess("Cleared artifact store")
			printDetail("Directory: %s", c.cfg.Store.Dir)
			return nil
		},
	}
	cmd.Flags().BoolVar(&store, "store", false, "also delete every downloaded artifact")
	return cmd
}

func (c *CLI) clearResolutions() error {
	switch c.cfg.Cache.Backend {
	case config.BackendNone:
		printInfo("Resolution cache is disabled")
		return nil
	case config.BackendFile:
	default:
		return errs.New(errs.ErrCodeUnsupported,
			"%s cache entries expire after %s; clear them with the backend's own tooling",
			c.cfg.Cache.Backend, c.cfg.Cache.TTL)
	}

	if _, err := os.Stat(c.cfg.Cache.Dir); os.IsNotExist(err) {
		printInfo("Cache is empty")
		return nil
	}
	fc, err := cache.NewFileCache(c.cfg.Cache.Dir)
	if err != nil {
		return err
	}
	if err := fc.Clear(); err != nil {
		return fmt.Errorf("clear cache: %w", err)
	}
	printSuccess("Cleared cached resolutions")
	printDetail("Directory: %s", fc.Dir())
	return nil
}

// cachePathCommand creates the "cache path" subcommand.
func (c *CLI) cachePathCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the store and cache locations",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "store\t%s\n", c.cfg.Store.Dir)
			switch c.cfg.Cache.Backend {
			case config.BackendFile:
				fmt.Fprintf(out, "cache\t%s\n", c.cfg.Cache.Dir)
			case config.BackendRedis:
				fmt.Fprintf(out, "cache\t%s\n", c.cfg.Cache.RedisURL)
			case config.BackendMongo:
				fmt.Fprintf(out, "cache\t%s/%s\n", c.cfg.Cache.MongoURI, c.cfg.Cache.MongoDatabase)
			}
			return nil
		},
	}
}
