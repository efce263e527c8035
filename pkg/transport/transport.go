// Package transport abstracts how artifacts are probed and streamed from a
// repository.
//
// A [Transport] offers two operations: [Transport.Probe] checks that a
// location exists without transferring its body, and [Transport.Open]
// returns a [Stream] whose body the caller must close. Variants:
//
//   - [HTTP] for http:// and https:// repositories
//   - [File] for file:// repositories (local mirrors, tests)
//   - [Mux] dispatches on URL scheme
//
// Failures are classified with the sentinel errors [ErrNotFound],
// [ErrNetwork] and [ErrTimeout]. Transient failures are additionally wrapped
// in [httputil.RetryableError].
package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"

	errs "github.com/matzehuels/slimdeps/pkg/errors"
)

var (
	// ErrNotFound is returned when the location does not exist.
	ErrNotFound = errors.New("not found")

	// ErrNetwork is returned for transport failures (connection errors,
	// unexpected status codes, 5xx responses).
	ErrNetwork = errors.New("network error")

	// ErrTimeout is returned when the operation exceeded its deadline.
	ErrTimeout = errors.New("timeout")
)

// Stream is an open artifact body.
type Stream struct {
	Body io.ReadCloser
	// ContentLength is the declared body size, or -1 when unknown.
	ContentLength int64
}

// Transport probes and opens artifact locations.
type Transport interface {
	// Probe reports whether u exists without downloading it.
	Probe(ctx context.Context, u *url.URL) error

	// Open starts a transfer of u. On success the caller owns Stream.Body.
	Open(ctx context.Context, u *url.URL) (*Stream, error)
}

// Mux routes requests to a Transport by URL scheme.
type Mux struct {
	schemes map[string]Transport
}

// NewMux creates a Mux from a scheme -> transport map.
func NewMux(schemes map[string]Transport) *Mux {
	m := &Mux{schemes: make(map[string]Transport, len(schemes))}
	for s, t := range schemes {
		m.schemes[s] = t
	}
	return m
}

// Default returns a Mux serving http and https through h and file URLs
// through [File].
func Default(h *HTTP) *Mux {
	if h == nil {
		h = NewHTTP()
	}
	return NewMux(map[string]Transport{
		"http":  h,
		"https": h,
		"file":  File{},
	})
}

// Probe dispatches to the transport registered for u.Scheme.
func (m *Mux) Probe(ctx context.Context, u *url.URL) error {
	t, err := m.route(u)
	if err != nil {
		return err
	}
	return t.Probe(ctx, u)
}

// Open dispatches to the transport registered for u.Scheme.
func (m *Mux) Open(ctx context.Context, u *url.URL) (*Stream, error) {
	t, err := m.route(u)
	if err != nil {
		return nil, err
	}
	return t.Open(ctx, u)
}

func (m *Mux) route(u *url.URL) (Transport, error) {
	t, ok := m.schemes[u.Scheme]
	if !ok {
		return nil, errs.New(errs.ErrCodeUnsupported, "no transport for scheme %q", u.Scheme)
	}
	return t, nil
}

// ReadAll opens u and reads at most limit bytes. It is used for small
// sidecar files such as checksums and signatures.
func ReadAll(ctx context.Context, t Transport, u *url.URL, limit int64) ([]byte, error) {
	s, err := t.Open(ctx, u)
	if err != nil {
		return nil, err
	}
	defer s.Body.Close()

	data, err := io.ReadAll(io.LimitReader(s.Body, limit+1))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("%s exceeds %d bytes", u, limit)
	}
	return data, nil
}

// classify maps context errors to ErrTimeout so that callers can treat
// timeouts like any other failed probe or transfer.
func classify(ctx context.Context, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return err
}

var _ Transport = (*Mux)(nil)
