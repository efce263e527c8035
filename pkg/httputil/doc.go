// Package httputil provides retry helpers for repository transports.
//
// # Retry
//
// [Retry] re-runs an operation with exponential backoff, but only for errors
// explicitly marked as transient with [RetryableError] (or [Retryable]):
//
//   - connection failures and timeouts
//   - 5xx server errors
//
// Everything else, including 404 Not Found, returns immediately. This keeps
// repository fallback fast: a repository that does not serve an artifact is
// skipped at once, while a flaky one gets a few more chances.
//
//	err := httputil.Retry(ctx, 3, 200*time.Millisecond, func() error {
//	    return transport.Probe(ctx, u)
//	})
package httputil
