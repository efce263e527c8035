// Package inject walks a dependency graph and hands every artifact to an
// [Injectable], downloading (and optionally relocating) each one first.
//
// Traversal is depth-first in declaration order. Each dependency identity is
// processed at most once per [Injector.Inject] call, so diamonds are
// injected once and cycles terminate. By default the first failure aborts
// the pass with an [errs.InjectionFailedError] naming the dependency; with
// Options.BestEffort every failure is recorded, the failing subtree is
// skipped and the joined failures are returned at the end.
package inject

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/slimdeps/pkg/deps"
	"github.com/matzehuels/slimdeps/pkg/download"
	errs "github.com/matzehuels/slimdeps/pkg/errors"
	"github.com/matzehuels/slimdeps/pkg/observability"
	"github.com/matzehuels/slimdeps/pkg/relocation"
)

// Downloader fetches one dependency into local storage.
type Downloader interface {
	Download(ctx context.Context, d deps.Dependency) (download.Artifact, error)
}

// storeOwner is implemented by *download.Downloader; relocated artifacts
// are placed next to the store when available.
type storeOwner interface {
	Store() *download.Store
}

// Options configures an Injector.
type Options struct {
	// Workers is the number of children of a node that are downloaded and
	// relocated concurrently before being injected in order. Default 1.
	Workers int

	// BestEffort records failures instead of aborting the pass.
	BestEffort bool

	// Relocator, when set, rewrites every artifact before injection.
	Relocator relocation.Relocator

	// Logger receives progress messages. Default discards.
	Logger *log.Logger
}

// WithDefaults returns a copy with zero values replaced by defaults.
func (o Options) WithDefaults() Options {
	if o.Workers <= 0 {
		o.Workers = 1
	}
	if o.Logger == nil {
		o.Logger = log.New(io.Discard)
	}
	return o
}

// Injector drives download, relocation and injection over a graph.
type Injector struct {
	dl   Downloader
	opts Options
}

// New creates an Injector.
func New(dl Downloader, opts Options) *Injector {
	return &Injector{dl: dl, opts: opts.WithDefaults()}
}

// Inject processes roots and their transitive sets. A dependency is always
// downloaded and relocated before it is injected, and a parent is injected
// before its children.
func (in *Injector) Inject(ctx context.Context, target Injectable, roots []deps.Dependency) error {
	id := uuid.NewString()
	r := &run{
		Injector: in,
		ctx:      ctx,
		target:   target,
		visited:  make(map[deps.Coordinate]bool),
		logger:   in.opts.Logger.With("run", id[:8]),
	}
	start := time.Now()
	if err := r.level(roots, 0); err != nil {
		return err
	}
	r.logger.Debug("injection finished", "injected", r.injected, "failed", len(r.failures), "took", time.Since(start))
	return errors.Join(r.failures...)
}

type run struct {
	*Injector
	ctx    context.Context
	target Injectable
	logger *log.Logger

	visited  map[deps.Coordinate]bool
	failures []error
	injected int
}

type prepared struct {
	path string
	err  error
}

// level injects the not yet visited dependencies of list, each followed by
// its subtree. Only fatal failures are returned.
func (r *run) level(list []deps.Dependency, depth int) error {
	pending := make([]deps.Dependency, 0, len(list))
	for _, d := range list {
		if r.visited[d.ID()] {
			continue
		}
		r.visited[d.ID()] = true
		pending = append(pending, d)
	}
	if len(pending) == 0 {
		return nil
	}

	results := r.prefetch(pending)
	for i, d := range pending {
		if err := r.ctx.Err(); err != nil {
			return err
		}
		res := results[i]
		if res == nil {
			p, err := r.prepare(d)
			res = &prepared{path: p, err: err}
		}
		if err := r.injectOne(d, res, depth); err != nil {
			if !r.opts.BestEffort {
				return err
			}
			r.failures = append(r.failures, err)
			r.logger.Warn("skipping dependency", "dependency", d.String(), "err", err)
			continue
		}
		if err := r.level(d.Transitive, depth+1); err != nil {
			return err
		}
	}
	return nil
}

// prefetch prepares siblings concurrently when more than one worker is
// configured. A nil entry means the dependency is prepared on demand.
func (r *run) prefetch(list []deps.Dependency) []*prepared {
	results := make([]*prepared, len(list))
	if r.opts.Workers <= 1 || len(list) < 2 {
		return results
	}
	var g errgroup.Group
	g.SetLimit(r.opts.Workers)
	for i, d := range list {
		g.Go(func() error {
			p, err := r.prepare(d)
			results[i] = &prepared{path: p, err: err}
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// prepare downloads d and relocates it when a relocator is configured,
// returning the location to inject.
func (r *run) prepare(d deps.Dependency) (string, error) {
	art, err := r.dl.Download(r.ctx, d)
	if err != nil {
		return "", err
	}
	if r.opts.Relocator == nil {
		return art.Path, nil
	}
	return r.relocate(d, art.Path)
}

func (r *run) relocate(d deps.Dependency, input string) (string, error) {
	output, err := r.relocatedPath(d, input)
	if err != nil {
		return "", err
	}
	if upToDate(input, output) {
		return output, nil
	}

	start := time.Now()
	err = r.opts.Relocator.Relocate(input, output)
	if err != nil {
		var re *errs.RelocationError
		if !errors.As(err, &re) {
			err = &errs.RelocationError{Dependency: d.String(), Input: input, Output: output, Cause: err}
		}
	}
	observability.Inject().OnRelocate(r.ctx, d.String(), output, time.Since(start), err)
	if err != nil {
		return "", err
	}
	r.logger.Debug("relocated", "dependency", d.String(), "output", output)
	return output, nil
}

func (r *run) relocatedPath(d deps.Dependency, input string) (string, error) {
	fp := relocation.FingerprintOf(r.opts.Relocator)
	if s, ok := r.dl.(storeOwner); ok && s.Store() != nil {
		return s.Store().RelocatedLocationFor(d, fp)
	}
	ext := filepath.Ext(input)
	suffix := "-relocated"
	if fp != "" {
		suffix += "-" + fp
	}
	return strings.TrimSuffix(input, ext) + suffix + ext, nil
}

// upToDate reports whether output exists and is not older than input.
func upToDate(input, output string) bool {
	out, err := os.Stat(output)
	if err != nil || !out.Mode().IsRegular() {
		return false
	}
	in, err := os.Stat(input)
	if err != nil {
		return false
	}
	return !out.ModTime().Before(in.ModTime())
}

func (r *run) injectOne(d deps.Dependency, res *prepared, depth int) error {
	err := res.err
	if err == nil {
		err = r.target.Inject(res.path)
	}
	observability.Inject().OnInject(r.ctx, d.String(), res.path, depth, err)
	if err != nil {
		return &errs.InjectionFailedError{Dependency: d.String(), Cause: err}
	}
	r.injected++
	r.logger.Debug("injected", "dependency", d.String(), "location", res.path, "depth", depth)
	return nil
}
