// Package observability provides hooks for metrics, progress reporting and
// tracing.
//
// The package enables optional instrumentation without adding hard
// dependencies on specific observability backends. Consumers register hooks
// at startup to receive events about resolution, downloads, relocation,
// injection, cache operations and HTTP calls.
//
// # Architecture
//
// The package uses a simple hooks pattern:
//   - Define hook interfaces for different event categories
//   - Provide no-op default implementations
//   - Allow registration of custom implementations at startup
//
// Hooks are registered by main, not by libraries, so library packages never
// import a concrete backend. The CLI uses this to drive progress bars and the
// interactive view.
//
// # Usage
//
// Register hooks at application startup:
//
//	func main() {
//	    observability.SetInjectHooks(&progressHooks{})
//	    observability.SetCacheHooks(&myCacheHooks{})
//	    // ... run application
//	}
//
// Libraries call hooks to emit events:
//
//	observability.Inject().OnDownloadStart(ctx, coord, url, size)
//	// ... stream bytes ...
//	observability.Inject().OnDownloadComplete(ctx, coord, path, false, duration, err)
//
// Hooks may be called from several goroutines at once when sibling
// dependencies are prefetched concurrently; implementations must be safe for
// concurrent use.
package observability

import (
	"context"
	"sync"
	"time"
)

// =============================================================================
// Inject Hooks
// =============================================================================

// InjectHooks receives events from the resolve, download, relocate and
// inject stages. Dependencies are passed as coordinate strings.
type InjectHooks interface {
	// Resolve events
	OnResolve(ctx context.Context, dependency, location string, cached bool, duration time.Duration, err error)

	// Download events. OnDownloadProgress is called as bytes are written;
	// total is -1 when the transport does not report a length.
	OnDownloadStart(ctx context.Context, dependency, location string, total int64)
	OnDownloadProgress(ctx context.Context, dependency string, written, total int64)
	OnDownloadComplete(ctx context.Context, dependency, path string, reused bool, duration time.Duration, err error)

	// Relocation events
	OnRelocate(ctx context.Context, dependency, output string, duration time.Duration, err error)

	// Injection events
	OnInject(ctx context.Context, dependency, location string, depth int, err error)
}

// =============================================================================
// Cache Hooks
// =============================================================================

// CacheHooks receives events from cache operations.
type CacheHooks interface {
	// OnCacheHit records a cache hit.
	OnCacheHit(ctx context.Context, keyType string)

	// OnCacheMiss records a cache miss.
	OnCacheMiss(ctx context.Context, keyType string)

	// OnCacheSet records a cache write.
	OnCacheSet(ctx context.Context, keyType string, size int)
}

// =============================================================================
// HTTP Hooks
// =============================================================================

// HTTPHooks receives events from HTTP client operations.
type HTTPHooks interface {
	// OnRequest records an outgoing HTTP request.
	OnRequest(ctx context.Context, method, host, path string)

	// OnResponse records an HTTP response.
	OnResponse(ctx context.Context, method, host, path string, statusCode int, duration time.Duration)

	// OnError records an HTTP error (network failure, timeout).
	OnError(ctx context.Context, method, host, path string, err error)
}

// =============================================================================
// No-op Implementations
// =============================================================================

// NoopInjectHooks is a no-op implementation of InjectHooks.
type NoopInjectHooks struct{}

func (NoopInjectHooks) OnResolve(context.Context, string, string, bool, time.Duration, error) {}
func (NoopInjectHooks) OnDownloadStart(context.Context, string, string, int64)               {}
func (NoopInjectHooks) OnDownloadProgress(context.Context, string, int64, int64)             {}
func (NoopInjectHooks) OnDownloadComplete(context.Context, string, string, bool, time.Duration, error) {
}
func (NoopInjectHooks) OnRelocate(context.Context, string, string, time.Duration, error) {}
func (NoopInjectHooks) OnInject(context.Context, string, string, int, error)             {}

// NoopCacheHooks is a no-op implementation of CacheHooks.
type NoopCacheHooks struct{}

func (NoopCacheHooks) OnCacheHit(context.Context, string)      {}
func (NoopCacheHooks) OnCacheMiss(context.Context, string)     {}
func (NoopCacheHooks) OnCacheSet(context.Context, string, int) {}

// NoopHTTPHooks is a no-op implementation of HTTPHooks.
type NoopHTTPHooks struct{}

func (NoopHTTPHooks) OnRequest(context.Context, string, string, string)                      {}
func (NoopHTTPHooks) OnResponse(context.Context, string, string, string, int, time.Duration) {}
func (NoopHTTPHooks) OnError(context.Context, string, string, string, error)                 {}

// =============================================================================
// Global Hook Registry
// =============================================================================

var (
	injectHooks InjectHooks = NoopInjectHooks{}
	cacheHooks  CacheHooks  = NoopCacheHooks{}
	httpHooks   HTTPHooks   = NoopHTTPHooks{}
	hooksMu     sync.RWMutex
)

// SetInjectHooks registers custom inject hooks.
// This should be called once at application startup before any injection.
func SetInjectHooks(h InjectHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		injectHooks = h
	}
}

// SetCacheHooks registers custom cache hooks.
// This should be called once at application startup before any cache operations.
func SetCacheHooks(h CacheHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		cacheHooks = h
	}
}

// SetHTTPHooks registers custom HTTP hooks.
// This should be called once at application startup before any HTTP operations.
func SetHTTPHooks(h HTTPHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		httpHooks = h
	}
}

// Inject returns the registered inject hooks.
func Inject() InjectHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return injectHooks
}

// Cache returns the registered cache hooks.
func Cache() CacheHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return cacheHooks
}

// HTTP returns the registered HTTP hooks.
func HTTP() HTTPHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return httpHooks
}

// Reset restores all hooks to their no-op defaults.
// This is primarily useful for testing.
func Reset() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	injectHooks = NoopInjectHooks{}
	cacheHooks = NoopCacheHooks{}
	httpHooks = NoopHTTPHooks{}
}
