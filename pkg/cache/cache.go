// Package cache stores resolution results between runs.
//
// A [Cache] is a byte-oriented key/value store with per-entry TTLs. Three
// backends are provided:
//   - [NullCache]: stores nothing (caching disabled)
//   - [FileCache]: one JSON file per entry under a directory, for the CLI
//   - [RedisCache]: a shared Redis instance, for the HTTP server
//
// Keys are produced by a [Keyer] so every entry point hashes resolution
// inputs the same way:
//
//	keyer := cache.NewDefaultKeyer()
//	key := keyer.ResolveKey(cache.ResolveKeyOpts{
//	    Mode:      "esm",
//	    Specifier: "lodash",
//	    Parent:    "file:///app/main.mjs",
//	})
//
// Cached values are only hints: callers revalidate a hit against the
// filesystem before trusting it.
package cache

import (
	"context"
	"time"
)

// Cache is the storage interface shared by all backends.
type Cache interface {
	// Get returns the value stored under key. hit is false when the key is
	// absent or expired.
	Get(ctx context.Context, key string) (data []byte, hit bool, err error)

	// Set stores data under key. A zero ttl never expires.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}

// Clearer is implemented by backends that can drop every entry at once.
type Clearer interface {
	Clear(ctx context.Context) (int, error)
}

// Default TTLs.
const (
	// TTLResolution bounds how long a resolution result is reused. Hits are
	// revalidated anyway, so this mostly limits cache growth.
	TTLResolution = 24 * time.Hour

	// TTLTrace is the lifetime of a rendered trace graph.
	TTLTrace = time.Hour
)

// NullCache stores nothing. It backs --no-cache runs.
type NullCache struct{}

// NewNullCache creates a null cache.
func NewNullCache() Cache { return NullCache{} }

func (NullCache) Get(context.Context, string) ([]byte, bool, error)        { return nil, false, nil }
func (NullCache) Set(context.Context, string, []byte, time.Duration) error { return nil }
func (NullCache) Delete(context.Context, string) error                     { return nil }
func (NullCache) Clear(context.Context) (int, error)                       { return 0, nil }
func (NullCache) Close() error                                             { return nil }
