package transport

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/matzehuels/slimdeps/pkg/buildinfo"
	"github.com/matzehuels/slimdeps/pkg/httputil"
	"github.com/matzehuels/slimdeps/pkg/observability"
)

const (
	dialTimeout           = 10 * time.Second
	responseHeaderTimeout = 30 * time.Second
)

// HTTP serves http and https repositories. Probes use HEAD and fall back to
// GET when the server rejects HEAD.
type HTTP struct {
	client  *http.Client
	headers map[string]string
}

// HTTPOption configures an HTTP transport.
type HTTPOption func(*HTTP)

// WithClient replaces the underlying http.Client.
func WithClient(c *http.Client) HTTPOption {
	return func(h *HTTP) { h.client = c }
}

// WithHeader adds a header sent with every request (e.g. Authorization).
func WithHeader(key, value string) HTTPOption {
	return func(h *HTTP) { h.headers[key] = value }
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) HTTPOption {
	return WithHeader("User-Agent", ua)
}

// NewHTTP creates an HTTP transport.
func NewHTTP(opts ...HTTPOption) *HTTP {
	h := &HTTP{
		client:  NewHTTPClient(),
		headers: map[string]string{"User-Agent": buildinfo.UserAgent()},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// NewHTTPClient creates an HTTP client with connection-level timeouts.
// There is no overall request timeout: artifact sizes vary widely, so
// callers bound each operation with a context deadline instead.
func NewHTTPClient() *http.Client {
	return &http.Client{
		Transport: &http.Transport{
			Proxy:                 http.ProxyFromEnvironment,
			DialContext:           (&net.Dialer{Timeout: dialTimeout}).DialContext,
			TLSHandshakeTimeout:   dialTimeout,
			ResponseHeaderTimeout: responseHeaderTimeout,
			ForceAttemptHTTP2:     true,
			MaxIdleConnsPerHost:   8,
		},
	}
}

// Probe issues a HEAD request for u. Servers that reject HEAD are asked
// for the first byte with a ranged GET instead.
func (h *HTTP) Probe(ctx context.Context, u *url.URL) error {
	resp, err := h.do(ctx, http.MethodHead, u, "")
	if err != nil {
		return err
	}
	resp.Body.Close()

	if resp.StatusCode == http.StatusMethodNotAllowed || resp.StatusCode == http.StatusNotImplemented {
		resp, err = h.do(ctx, http.MethodGet, u, "bytes=0-0")
		if err != nil {
			return err
		}
		resp.Body.Close()
		if resp.StatusCode == http.StatusPartialContent {
			return nil
		}
	}
	return checkStatus(resp)
}

// Open issues a GET request for u.
func (h *HTTP) Open(ctx context.Context, u *url.URL) (*Stream, error) {
	resp, err := h.do(ctx, http.MethodGet, u, "")
	if err != nil {
		return nil, err
	}
	if err := checkStatus(resp); err != nil {
		resp.Body.Close()
		return nil, err
	}
	return &Stream{Body: resp.Body, ContentLength: resp.ContentLength}, nil
}

func (h *HTTP) do(ctx context.Context, method string, u *url.URL, byteRange string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, u.String(), nil)
	if err != nil {
		return nil, err
	}
	for k, v := range h.headers {
		req.Header.Set(k, v)
	}
	if byteRange != "" {
		req.Header.Set("Range", byteRange)
	}
	if u.User != nil {
		pass, _ := u.User.Password()
		req.SetBasicAuth(u.User.Username(), pass)
	}

	hooks := observability.HTTP()
	hooks.OnRequest(ctx, method, u.Host, u.Path)
	start := time.Now()

	resp, err := h.client.Do(req)
	if err != nil {
		hooks.OnError(ctx, method, u.Host, u.Path, err)
		err = classify(ctx, err)
		return nil, &httputil.RetryableError{Err: fmt.Errorf("%w: %w", ErrNetwork, err)}
	}
	hooks.OnResponse(ctx, method, u.Host, u.Path, resp.StatusCode, time.Since(start))
	return resp, nil
}

func checkStatus(resp *http.Response) error {
	code := resp.StatusCode
	switch {
	case code == http.StatusOK:
		return nil
	case code == http.StatusNotFound || code == http.StatusGone:
		return ErrNotFound
	case code == http.StatusTooManyRequests || code >= 500:
		return &httputil.RetryableError{
			Err:   fmt.Errorf("%w: status %d", ErrNetwork, code),
			After: httputil.RetryAfter(resp.Header, time.Now()),
		}
	default:
		return fmt.Errorf("%w: status %d", ErrNetwork, code)
	}
}

var _ Transport = (*HTTP)(nil)
