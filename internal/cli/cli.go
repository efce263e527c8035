package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/slimdeps/pkg/cache"
	"github.com/matzehuels/slimdeps/pkg/config"
	"github.com/matzehuels/slimdeps/pkg/deps"
	"github.com/matzehuels/slimdeps/pkg/deps/reader"
	"github.com/matzehuels/slimdeps/pkg/download"
	"github.com/matzehuels/slimdeps/pkg/resolver"
	"github.com/matzehuels/slimdeps/pkg/transport"
)

// =============================================================================
// Constants
// =============================================================================

// appName is the application name used for directories and display.
const appName = "slimdeps"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	configPath string
	storeDir   string
	cfg        config.Config
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level), cfg: config.Default()}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// loadConfig reads the config file and applies global flag overrides.
func (c *CLI) loadConfig() error {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return err
	}
	if c.storeDir != "" {
		cfg.Store.Dir = c.storeDir
	}
	c.cfg = cfg
	return nil
}

// =============================================================================
// Pipeline Factory
// =============================================================================

// pipelineFlags are the per-command overrides shared by inject, fetch and
// resolve.
type pipelineFlags struct {
	noCache bool
	refresh bool
	force   bool
	repos   []string
}

// pipeline bundles the resolver and downloader built for one command run.
type pipeline struct {
	resolver   *resolver.Resolver
	downloader *download.Downloader
	store      *download.Store
	cache      cache.Cache
}

// Close releases the persistent cache connection.
func (p *pipeline) Close() error {
	if p.cache == nil {
		return nil
	}
	return p.cache.Close()
}

// newPipeline wires transport, cache, resolver, store and downloader from
// the loaded configuration. Extra repositories from flags take priority
// over the manifest's.
func (c *CLI) newPipeline(ctx context.Context, repos []deps.Repository, flags pipelineFlags) (*pipeline, error) {
	extra := make([]deps.Repository, 0, len(flags.repos)+len(repos))
	for _, r := range flags.repos {
		extra = append(extra, deps.Repository{URL: r})
	}
	repos = append(extra, repos...)
	if len(repos) == 0 {
		return nil, errors.New("no repositories configured: add \"repositories\" to the manifest or pass --repo")
	}

	var httpOpts []transport.HTTPOption
	if ua := c.cfg.Network.UserAgent; ua != "" {
		httpOpts = append(httpOpts, transport.WithUserAgent(ua))
	}
	tr := transport.Default(transport.NewHTTP(httpOpts...))

	var rc cache.Cache = cache.NewNullCache()
	if !flags.noCache {
		opened, err := c.cfg.Cache.OpenCache(ctx)
		if err != nil {
			c.Logger.Warn("resolution cache unavailable, continuing without it", "err", err)
		} else {
			rc = opened
		}
	}

	res := resolver.New(repos, tr, resolver.Options{
		ProbeTimeout: c.cfg.Network.ProbeTimeout,
		Retries:      c.cfg.Network.Retries,
		Cache:        rc,
		Keyer:        c.cfg.Cache.Keyer(),
		CacheTTL:     c.cfg.Cache.TTL,
		Refresh:      flags.refresh,
		Logger:       c.Logger,
	})

	artifacts, err := download.NewStore(c.cfg.Store.Dir)
	if err != nil {
		rc.Close()
		return nil, err
	}

	dlOpts := download.Options{
		DownloadTimeout: c.cfg.Network.DownloadTimeout,
		FetchChecksums:  c.cfg.Verify.FetchChecksums,
		Force:           flags.force,
		Logger:          c.Logger,
	}
	if c.cfg.Verify.Signatures {
		v, err := download.LoadPGPVerifier(c.cfg.Verify.Keyring)
		if err != nil {
			rc.Close()
			return nil, err
		}
		dlOpts.Verifier = v
	}

	return &pipeline{
		resolver:   res,
		downloader: download.New(res, tr, artifacts, dlOpts),
		store:      artifacts,
		cache:      rc,
	}, nil
}

// =============================================================================
// Manifest Loading
// =============================================================================

// readManifest reads path, defaulting to slimdeps.json in the working
// directory.
func readManifest(args []string) (*deps.Data, string, error) {
	path := reader.DefaultManifest
	if len(args) > 0 {
		path = args[0]
	}
	data, err := reader.ReadFile(path)
	if err != nil {
		return nil, path, fmt.Errorf("read manifest: %w", err)
	}
	return data, path, nil
}
