// Package fetch downloads cluster subgraphs and keeps them for the lifetime
// of a [Fetcher].
//
// A cluster payload lives at {Endpoint}/{cluster}.dot, or at
// {CompressedEndpoint}/{cluster}.dot.zz as a zlib stream when compression is
// enabled. [Fetcher.Fetch] decodes it into a [graph.Graph], backfills missing
// cluster ids with the requested id, and stores it in an in-memory map keyed
// by cluster id. Concurrent calls for the same cluster share one download.
//
// Failed downloads are never stored, so a later call retries. The fetcher
// itself never retries.
//
// An optional [cache.Cache] keeps the raw payload bytes so another process
// can skip the network entirely.
//
// Graphs returned by a Fetcher are shared between callers and must not be
// modified.
package fetch
