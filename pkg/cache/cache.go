// Package cache stores raw cluster payloads and rendered artifacts between
// runs.
//
// The fetcher keeps decoded graphs in memory for the lifetime of a process;
// this package is the second level underneath it, holding the downloaded
// bytes so a later process can skip the network. Three backends are
// available:
//
//   - [NullCache]: never stores anything (caching disabled)
//   - [FileCache]: one file per key under a directory, for the CLI
//   - [RedisCache]: a shared Redis instance, for the HTTP server
//
// Keys come from a [Keyer], optionally wrapped by [NewScopedKeyer] to isolate
// datasets that share a backend.
package cache

import (
	"context"
	"time"
)

// Cache is a byte store with optional expiration.
//
// Get reports a miss with ok=false and a nil error; errors are reserved for
// backend failures.
type Cache interface {
	Get(ctx context.Context, key string) (data []byte, ok bool, err error)
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}
