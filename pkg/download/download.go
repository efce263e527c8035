// Package download fetches resolved artifacts into a local store.
//
// The [Downloader] resolves a dependency, streams its artifact through an
// atomic [Writer] into the [Store] and verifies it on the way:
//
//   - the byte count must match the transport's declared length
//   - a declared checksum (or, optionally, the repository's .sha1 sidecar)
//     must match the streamed bytes
//   - an optional [Verifier] checks the detached .asc signature
//
// Only a fully verified artifact is published. An artifact already present
// in the store is reused without network access, after re-checking its
// declared checksum and, when a Verifier is set, the signature saved next to
// it.
//
// Concurrent downloads of the same coordinate share one transfer.
package download

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/singleflight"

	"github.com/matzehuels/slimdeps/pkg/deps"
	errs "github.com/matzehuels/slimdeps/pkg/errors"
	"github.com/matzehuels/slimdeps/pkg/observability"
	"github.com/matzehuels/slimdeps/pkg/resolver"
	"github.com/matzehuels/slimdeps/pkg/transport"
)

const (
	DefaultDownloadTimeout = 10 * time.Minute // Default per-artifact transfer timeout
	sidecarLimit           = 4 << 10          // Max size of a checksum sidecar
	signatureLimit         = 64 << 10         // Max size of a detached signature
)

// Resolver maps a dependency to its repository location.
type Resolver interface {
	Resolve(ctx context.Context, d deps.Dependency) (resolver.Location, error)
}

// forgetter is implemented by resolvers that can drop a stale location.
type forgetter interface {
	Forget(ctx context.Context, d deps.Dependency) error
}

// Options configures a Downloader.
type Options struct {
	DownloadTimeout time.Duration // Per-artifact transfer timeout (default 10m)
	FetchChecksums  bool          // Fetch <url>.sha1 when no checksum is declared
	Verifier        Verifier      // Detached signature verification (optional)
	Force           bool          // Re-download even when the artifact is stored
	Logger          *log.Logger   // Debug logging (default: discard)
}

// WithDefaults returns a copy of Options with zero values replaced by defaults.
func (o Options) WithDefaults() Options {
	opts := o
	if opts.DownloadTimeout <= 0 {
		opts.DownloadTimeout = DefaultDownloadTimeout
	}
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard)
	}
	return opts
}

// Artifact is a stored, verified artifact.
type Artifact struct {
	Dependency deps.Dependency
	Path       string            // Absolute path in the store
	Location   resolver.Location // Zero when Reused
	Reused     bool              // True when no transfer happened
	Size       int64
}

// Downloader fetches artifacts into a Store. It is safe for concurrent use.
type Downloader struct {
	res       Resolver
	transport transport.Transport
	store     *Store
	opts      Options
	inflight  singleflight.Group
}

// New creates a Downloader.
func New(res Resolver, t transport.Transport, store *Store, opts Options) *Downloader {
	return &Downloader{res: res, transport: t, store: store, opts: opts.WithDefaults()}
}

// Store returns the downloader's store.
func (dl *Downloader) Store() *Store { return dl.store }

// Download returns the stored artifact for d, fetching it if necessary.
//
// Resolution failures are returned unchanged ([errs.UnresolvedDependencyError]
// or [errs.MalformedCoordinateError]). Transfer, status and length failures
// are [errs.DownloadFailedError]; checksum and signature mismatches are
// [errs.IntegrityError]. No other repository is tried once resolution has
// chosen one.
func (dl *Downloader) Download(ctx context.Context, d deps.Dependency) (Artifact, error) {
	v, err, _ := dl.inflight.Do(d.ID().String(), func() (any, error) {
		return dl.download(ctx, d)
	})
	if err != nil {
		return Artifact{}, err
	}
	return v.(Artifact), nil
}

func (dl *Downloader) download(ctx context.Context, d deps.Dependency) (Artifact, error) {
	id := d.String()
	hooks := observability.Inject()
	start := time.Now()

	dest, err := dl.store.LocationFor(d)
	if err != nil {
		return Artifact{}, err
	}
	declared, err := ParseChecksum(d.Checksum)
	if err != nil {
		return Artifact{}, fmt.Errorf("%s: %w", id, err)
	}

	if !dl.opts.Force {
		if art, ok := dl.reuse(d, dest, declared); ok {
			hooks.OnDownloadComplete(ctx, id, dest, true, time.Since(start), nil)
			return art, nil
		}
	}

	loc, err := dl.res.Resolve(ctx, d)
	if err != nil {
		return Artifact{}, err
	}
	u, err := loc.Parse()
	if err != nil {
		return Artifact{}, &errs.DownloadFailedError{Dependency: id, Location: loc.URL, Cause: err}
	}

	art, err := dl.fetch(ctx, d, loc, u, dest, declared)
	hooks.OnDownloadComplete(ctx, id, art.Path, false, time.Since(start), err)
	if err != nil {
		return Artifact{}, err
	}
	dl.opts.Logger.Debug("downloaded", "dependency", id, "bytes", art.Size, "from", loc.URL)
	return art, nil
}

// reuse returns the stored artifact when it exists and matches the declared
// checksum and, with a Verifier, the signature stored beside it. A
// mismatching file is removed so it is fetched again.
func (dl *Downloader) reuse(d deps.Dependency, dest string, declared Checksum) (Artifact, bool) {
	info, err := os.Stat(dest)
	if err != nil || !info.Mode().IsRegular() {
		return Artifact{}, false
	}
	if !declared.IsZero() {
		actual, err := FileChecksum(dest, declared.Algorithm)
		if err != nil || actual.Hex != declared.Hex {
			dl.opts.Logger.Warn("stored artifact failed verification, refetching", "dependency", d.String(), "path", dest)
			_ = os.Remove(dest)
			return Artifact{}, false
		}
	}
	if dl.opts.Verifier != nil {
		if err := dl.verifyStored(d, dest); err != nil {
			dl.opts.Logger.Warn("stored artifact failed signature check, refetching", "dependency", d.String(), "err", err)
			return Artifact{}, false
		}
	}
	dl.opts.Logger.Debug("reusing stored artifact", "dependency", d.String(), "path", dest)
	return Artifact{Dependency: d, Path: dest, Reused: true, Size: info.Size()}, true
}

func (dl *Downloader) fetch(ctx context.Context, d deps.Dependency, loc resolver.Location, u *url.URL, dest string, expect Checksum) (Artifact, error) {
	id := d.String()

	ctx, cancel := context.WithTimeout(ctx, dl.opts.DownloadTimeout)
	defer cancel()

	if expect.IsZero() && dl.opts.FetchChecksums {
		expect = dl.sidecar(ctx, d, u)
	}
	var signature []byte
	if dl.opts.Verifier != nil {
		sig, err := transport.ReadAll(ctx, dl.transport, withSuffix(u, SignatureSuffix), signatureLimit)
		if err != nil {
			return Artifact{}, &errs.IntegrityError{Dependency: id, Algorithm: "pgp", Cause: fmt.Errorf("fetch signature: %w", err)}
		}
		signature = sig
	}

	stream, err := dl.transport.Open(ctx, u)
	if err != nil {
		if errors.Is(err, transport.ErrNotFound) {
			if f, ok := dl.res.(forgetter); ok {
				_ = f.Forget(ctx, d)
			}
		}
		return Artifact{}, &errs.DownloadFailedError{Dependency: id, Location: loc.URL, Cause: err}
	}
	defer stream.Body.Close()

	hooks := observability.Inject()
	hooks.OnDownloadStart(ctx, id, loc.URL, stream.ContentLength)

	w, err := NewWriter(id, dest)
	if err != nil {
		return Artifact{}, err
	}
	w.Source = loc.URL
	w.Expect = expect
	w.Progress = func(written int64) {
		hooks.OnDownloadProgress(ctx, id, written, stream.ContentLength)
	}
	if signature != nil {
		w.Verify = func(staged string) error {
			//nolint:gosec // G304: staged file is inside the store
			f, err := os.Open(staged)
			if err != nil {
				return err
			}
			defer f.Close()
			return dl.opts.Verifier.Verify(d, f, signature)
		}
	}

	path, err := w.WriteFrom(stream.Body, stream.ContentLength)
	if err != nil {
		return Artifact{}, err
	}
	if signature != nil {
		if err := writeSignature(id, path, signature); err != nil {
			return Artifact{}, err
		}
	}
	info, err := os.Stat(path)
	if err != nil {
		return Artifact{}, err
	}
	return Artifact{Dependency: d, Path: path, Location: loc, Size: info.Size()}, nil
}

// verifyStored checks dest against the signature saved next to it. An
// artifact without a saved signature fails, so it is fetched and verified.
func (dl *Downloader) verifyStored(d deps.Dependency, dest string) error {
	//nolint:gosec // G304: signature file is inside the store
	signature, err := os.ReadFile(dest + SignatureSuffix)
	if err != nil {
		return fmt.Errorf("no stored signature: %w", err)
	}
	//nolint:gosec // G304: artifact is inside the store
	f, err := os.Open(dest)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := dl.opts.Verifier.Verify(d, f, signature); err != nil {
		f.Close()
		_ = os.Remove(dest)
		_ = os.Remove(dest + SignatureSuffix)
		return err
	}
	return nil
}

// writeSignature stores a verified signature beside its artifact.
func writeSignature(id, artifact string, signature []byte) error {
	w, err := NewWriter(id, artifact+SignatureSuffix)
	if err != nil {
		return err
	}
	_, err = w.WriteFrom(bytes.NewReader(signature), int64(len(signature)))
	return err
}

// sidecar fetches the repository's .sha1 file. Missing or unreadable
// sidecars disable verification for this artifact rather than failing it.
func (dl *Downloader) sidecar(ctx context.Context, d deps.Dependency, u *url.URL) Checksum {
	data, err := transport.ReadAll(ctx, dl.transport, withSuffix(u, ".sha1"), sidecarLimit)
	if err != nil {
		dl.opts.Logger.Debug("no checksum sidecar", "dependency", d.String(), "err", err)
		return Checksum{}
	}
	c, err := parseSidecar("sha1", data)
	if err != nil {
		dl.opts.Logger.Warn("ignoring malformed checksum sidecar", "dependency", d.String(), "err", err)
		return Checksum{}
	}
	return c
}

func withSuffix(u *url.URL, suffix string) *url.URL {
	out := *u
	out.Path += suffix
	if out.RawPath != "" {
		out.RawPath += suffix
	}
	return &out
}
