// Package cache stores the results of structure learning runs.
//
// Fitting a graph is deterministic in its data and options, so a finished
// run can be keyed by their hashes and served again without searching.
// The [Cache] interface is a byte-oriented key/value store with TTLs;
// implementations cover local use and shared deployments:
//   - [NullCache]: caching disabled
//   - [FileCache]: one JSON file per entry, for the CLI
//   - [BadgerCache]: an embedded BadgerDB store
//   - [RedisCache]: a Redis server shared by API instances
//   - [MongoCache]: a MongoDB collection with a TTL index
//
// [Open] builds a cache from a [Config], and [Keyer] derives keys.
package cache

import (
	"context"
	"time"
)

// Cache is a key/value store for serialized results.
type Cache interface {
	// Get returns the value stored under key. A miss is (nil, false, nil).
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores data under key. A zero ttl never expires.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// Close releases the backend's resources.
	Close() error
}
