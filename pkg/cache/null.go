package cache

import (
	"context"
	"time"
)

// NullCache disables payload and artifact caching (--no-cache, or
// cache.backend "none"). Every Get misses and writes are dropped, so the
// fetcher always goes to the network.
type NullCache struct{}

func NewNullCache() Cache { return NullCache{} }

func (NullCache) Get(context.Context, string) ([]byte, bool, error) { return nil, false, nil }

func (NullCache) Set(context.Context, string, []byte, time.Duration) error { return nil }

func (NullCache) Delete(context.Context, string) error { return nil }

func (NullCache) Close() error { return nil }
