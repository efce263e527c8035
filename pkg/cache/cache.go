// Package cache provides persistent key/value storage for resolution
// results.
//
// The resolver keeps an in-process memo of resolved locations; a [Cache]
// extends that across runs and, with a shared backend, across machines.
// Backends:
//
//   - [FileCache]: one JSON file per entry under a directory (CLI default)
//   - [RedisCache]: Redis, for shared build agents
//   - [MongoCache]: MongoDB collection with a TTL index
//   - [NullCache]: disables persistence
//
// Keys are produced by a [Keyer] so that results for different repository
// lists never collide. Wrap any backend with [Instrument] to emit cache hit
// and miss events through package observability.
package cache

import (
	"context"
	"time"
)

// Cache stores opaque byte values with an optional TTL.
// Implementations must be safe for concurrent use.
type Cache interface {
	// Get returns the value for key. A miss is reported as (nil, false, nil).
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores data under key. A ttl <= 0 means the entry does not expire.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}
