// Package resolver finds the first repository that serves a dependency.
//
// Repositories are probed in priority order and the first successful probe
// wins; later repositories are never consulted, even if they would also
// serve the artifact. Successful resolutions are memoized per coordinate in
// a [Memo] and, when configured, persisted in a [cache.Cache] so later runs
// skip probing entirely.
//
// Probes are bounded by [Options.ProbeTimeout]. A timed-out probe counts as
// a failed probe and resolution falls through to the next repository.
// Transient failures (5xx, connection errors) are retried per repository up
// to [Options.Retries] times before moving on.
package resolver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/singleflight"

	"github.com/matzehuels/slimdeps/pkg/cache"
	"github.com/matzehuels/slimdeps/pkg/deps"
	errs "github.com/matzehuels/slimdeps/pkg/errors"
	"github.com/matzehuels/slimdeps/pkg/httputil"
	"github.com/matzehuels/slimdeps/pkg/observability"
	"github.com/matzehuels/slimdeps/pkg/strategy"
	"github.com/matzehuels/slimdeps/pkg/transport"
)

const (
	DefaultProbeTimeout = 30 * time.Second       // Default per-probe timeout
	DefaultRetryDelay   = 250 * time.Millisecond // Initial backoff between transient retries
	DefaultCacheTTL     = 7 * 24 * time.Hour     // Default lifetime of persisted resolutions
)

// Location is the result of a resolution: the repository that serves the
// artifact and the artifact's absolute URL.
type Location struct {
	Repository deps.Repository `json:"repository"`
	URL        string          `json:"url"`
}

// Parse returns the artifact URL.
func (l Location) Parse() (*url.URL, error) {
	return url.Parse(l.URL)
}

// String returns the artifact URL.
func (l Location) String() string { return l.URL }

// Options configures a Resolver.
type Options struct {
	Strategy     strategy.Strategy // Path layout (default: strategy.Maven{Extension: Extension})
	Extension    string            // Artifact extension for the default strategy (default "jar")
	ProbeTimeout time.Duration     // Per-probe timeout (default 30s)
	Retries      int               // Attempts per repository for transient failures (default 1)
	RetryDelay   time.Duration     // Initial backoff between attempts (default 250ms)
	Cache        cache.Cache       // Persistent resolution cache (optional)
	Keyer        cache.Keyer       // Cache key derivation (default cache.DefaultKeyer)
	CacheTTL     time.Duration     // Persistent entry lifetime (default 7 days)
	Refresh      bool              // Ignore persisted entries (still writes them)
	Logger       *log.Logger       // Debug logging (default: discard)
}

// WithDefaults returns a copy of Options with zero values replaced by defaults.
func (o Options) WithDefaults() Options {
	opts := o
	if opts.Strategy == nil {
		opts.Strategy = strategy.Maven{Extension: opts.Extension}
	}
	if opts.ProbeTimeout <= 0 {
		opts.ProbeTimeout = DefaultProbeTimeout
	}
	if opts.Retries <= 0 {
		opts.Retries = 1
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = DefaultRetryDelay
	}
	if opts.Cache == nil {
		opts.Cache = cache.NewNullCache()
	}
	if opts.Keyer == nil {
		opts.Keyer = cache.NewDefaultKeyer()
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = DefaultCacheTTL
	}
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard)
	}
	return opts
}

// Resolver maps dependencies to the first repository that serves them.
// It is safe for concurrent use; concurrent resolutions of one coordinate
// share a single probe sequence.
type Resolver struct {
	repos     []deps.Repository
	repoURLs  []string
	transport transport.Transport
	opts      Options
	memo      *Memo
	inflight  singleflight.Group
}

// New creates a Resolver over repos in priority order.
func New(repos []deps.Repository, t transport.Transport, opts Options) *Resolver {
	urls := make([]string, len(repos))
	for i, r := range repos {
		urls[i] = r.Base()
	}
	return &Resolver{
		repos:     append([]deps.Repository(nil), repos...),
		repoURLs:  urls,
		transport: t,
		opts:      opts.WithDefaults(),
		memo:      NewMemo(),
	}
}

// Repositories returns the repositories in priority order.
func (r *Resolver) Repositories() []deps.Repository {
	return append([]deps.Repository(nil), r.repos...)
}

// Memo returns the resolver's in-process cache.
func (r *Resolver) Memo() *Memo { return r.memo }

// Resolve returns the location of d's artifact in the first repository
// whose probe succeeds. It fails with [errs.MalformedCoordinateError] for
// invalid coordinates and [errs.UnresolvedDependencyError] when every
// repository was tried without success.
func (r *Resolver) Resolve(ctx context.Context, d deps.Dependency) (Location, error) {
	id := d.ID()
	start := time.Now()

	if loc, ok := r.memo.Get(id); ok {
		observability.Inject().OnResolve(ctx, id.String(), loc.URL, true, time.Since(start), nil)
		return loc, nil
	}

	v, err, _ := r.inflight.Do(id.String(), func() (any, error) {
		if loc, ok := r.memo.Get(id); ok {
			return loc, nil
		}
		return r.resolve(ctx, d)
	})
	if err != nil {
		observability.Inject().OnResolve(ctx, id.String(), "", false, time.Since(start), err)
		return Location{}, err
	}
	loc := v.(Location)
	observability.Inject().OnResolve(ctx, id.String(), loc.URL, false, time.Since(start), nil)
	return loc, nil
}

func (r *Resolver) resolve(ctx context.Context, d deps.Dependency) (Location, error) {
	id := d.ID()
	key := r.opts.Keyer.ResolveKey(id.String(), r.opts.Extension, r.repoURLs)

	if !r.opts.Refresh {
		if loc, ok := r.cached(ctx, key); ok {
			r.opts.Logger.Debug("resolved from cache", "dependency", id, "url", loc.URL)
			r.memo.Put(id, loc)
			return loc, nil
		}
	}

	attempts := make([]errs.Attempt, 0, len(r.repos))
	for _, repo := range r.repos {
		path, err := r.opts.Strategy.PathTo(repo, d)
		if err != nil {
			return Location{}, err
		}
		u, err := url.Parse(path)
		if err != nil {
			return Location{}, &errs.MalformedCoordinateError{Coordinate: id.String(), Reason: err.Error()}
		}

		if err := r.probe(ctx, u); err != nil {
			if ctx.Err() != nil {
				return Location{}, ctx.Err()
			}
			r.opts.Logger.Debug("probe failed", "dependency", id, "repository", repo.URL, "err", err)
			attempts = append(attempts, errs.Attempt{Repository: repo.URL, URL: path, Err: err})
			continue
		}

		loc := Location{Repository: repo, URL: path}
		r.opts.Logger.Debug("resolved", "dependency", id, "repository", repo.URL)
		r.memo.Put(id, loc)
		r.store(ctx, key, loc)
		return loc, nil
	}
	return Location{}, &errs.UnresolvedDependencyError{Dependency: id.String(), Attempts: attempts}
}

func (r *Resolver) probe(ctx context.Context, u *url.URL) error {
	return httputil.Retry(ctx, r.opts.Retries, r.opts.RetryDelay, func() error {
		pctx, cancel := context.WithTimeout(ctx, r.opts.ProbeTimeout)
		defer cancel()
		return r.transport.Probe(pctx, u)
	})
}

func (r *Resolver) cached(ctx context.Context, key string) (Location, bool) {
	data, ok, err := r.opts.Cache.Get(ctx, key)
	if err != nil {
		r.opts.Logger.Warn("resolution cache read failed", "err", err)
		return Location{}, false
	}
	if !ok {
		return Location{}, false
	}
	var loc Location
	if err := json.Unmarshal(data, &loc); err != nil || loc.URL == "" {
		_ = r.opts.Cache.Delete(ctx, key)
		return Location{}, false
	}
	return loc, true
}

func (r *Resolver) store(ctx context.Context, key string, loc Location) {
	data, err := json.Marshal(loc)
	if err != nil {
		return
	}
	if err := r.opts.Cache.Set(ctx, key, data, r.opts.CacheTTL); err != nil {
		r.opts.Logger.Warn("resolution cache write failed", "err", err)
	}
}

// Forget removes d from the memo and the persistent cache, so the next
// Resolve probes again. The downloader calls it when a resolved location
// disappears before the transfer starts.
func (r *Resolver) Forget(ctx context.Context, d deps.Dependency) error {
	id := d.ID()
	r.memo.Delete(id)
	if err := r.opts.Cache.Delete(ctx, r.opts.Keyer.ResolveKey(id.String(), r.opts.Extension, r.repoURLs)); err != nil {
		return fmt.Errorf("forget %s: %w", id, err)
	}
	return nil
}

// IsUnresolved reports whether err is an UnresolvedDependencyError.
func IsUnresolved(err error) bool {
	var ue *errs.UnresolvedDependencyError
	return errors.As(err, &ue)
}
