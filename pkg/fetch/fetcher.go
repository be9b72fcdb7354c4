package fetch

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/klauspost/compress/zlib"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/toucan4life/gamemap/pkg/cache"
	"github.com/toucan4life/gamemap/pkg/errors"
	"github.com/toucan4life/gamemap/pkg/graph"
	"github.com/toucan4life/gamemap/pkg/observability"
)

// Options configures a [Fetcher].
type Options struct {
	// Endpoint is the base URL of plain payloads ({Endpoint}/{id}.dot).
	Endpoint string

	// CompressedEndpoint is the base URL of zlib payloads
	// ({CompressedEndpoint}/{id}.dot.zz). Defaults to Endpoint.
	CompressedEndpoint string

	// Compressed selects the zlib payloads.
	Compressed bool

	// HTTPClient performs downloads. Defaults to NewHTTPClient(0).
	HTTPClient *http.Client

	// Headers are set on every request.
	Headers map[string]string

	// Cache holds raw payloads between processes. Defaults to a NullCache.
	Cache cache.Cache

	// Keyer names payload cache entries. Defaults to cache.NewDefaultKeyer().
	Keyer cache.Keyer

	// CacheTTL bounds the age of payload cache entries; zero keeps them.
	CacheTTL time.Duration

	// OnDownload, when set, is called as payload bytes arrive.
	OnDownload func(DownloadProgress)

	// Logger receives debug output. Defaults to a discarding logger.
	Logger *log.Logger

	// Parallelism bounds concurrent downloads in Prefetch. Defaults to 4.
	Parallelism int
}

// Fetcher loads cluster subgraphs, caching them by cluster id.
//
// A Fetcher is safe for concurrent use. Its cache grows without eviction for
// the Fetcher's lifetime.
type Fetcher struct {
	opts   Options
	client *client
	logger *log.Logger

	mu     sync.RWMutex
	graphs map[graph.ClusterID]*graph.Graph
	group  singleflight.Group
}

// New creates a Fetcher.
func New(opts Options) *Fetcher {
	if opts.CompressedEndpoint == "" {
		opts.CompressedEndpoint = opts.Endpoint
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = NewHTTPClient(0)
	}
	if opts.Cache == nil {
		opts.Cache = cache.NewNullCache()
	}
	if opts.Keyer == nil {
		opts.Keyer = cache.NewDefaultKeyer()
	}
	if opts.Parallelism <= 0 {
		opts.Parallelism = 4
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Fetcher{
		opts:   opts,
		client: &client{http: opts.HTTPClient, headers: opts.Headers},
		logger: logger,
		graphs: make(map[graph.ClusterID]*graph.Graph),
	}
}

// Fetch returns the graph of cluster id.
//
// A cached graph is returned without network I/O. If a download of id is
// already in flight, Fetch waits for it instead of starting another. The
// shared download is not tied to any single caller: cancelling ctx makes
// this call return ctx.Err() while the download completes and is cached for
// later calls.
//
// Errors carry [errors.ErrCodeClusterNotFound] for a 404,
// [errors.ErrCodeNetwork] for transport failures and other non-2xx
// statuses, and [errors.ErrCodeInvalidPayload] for undecodable payloads.
func (f *Fetcher) Fetch(ctx context.Context, id graph.ClusterID) (*graph.Graph, error) {
	if g, ok := f.Cached(id); ok {
		observability.Fetch().OnFetchComplete(ctx, int64(id), observability.SourceMemory, g.NodeCount(), 0, nil)
		return g, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	shared := context.WithoutCancel(ctx)
	ch := f.group.DoChan(id.String(), func() (any, error) {
		return f.load(shared, id)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		g := res.Val.(*graph.Graph)
		if res.Shared {
			observability.Fetch().OnFetchComplete(ctx, int64(id), observability.SourceShared, g.NodeCount(), 0, nil)
		}
		return g, nil
	}
}

// Cached returns the graph of id if it has already been loaded.
func (f *Fetcher) Cached(id graph.ClusterID) (*graph.Graph, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	g, ok := f.graphs[id]
	return g, ok
}

// Len returns the number of cached clusters.
func (f *Fetcher) Len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.graphs)
}

// Evict forgets the given clusters: their decoded graphs are dropped from
// memory and both payload forms are deleted from the payload cache, so the
// next Fetch downloads them again. A download already in flight is not
// interrupted.
func (f *Fetcher) Evict(ctx context.Context, ids ...graph.ClusterID) error {
	f.mu.Lock()
	for _, id := range ids {
		delete(f.graphs, id)
	}
	f.mu.Unlock()

	for _, id := range ids {
		for _, compressed := range []bool{false, true} {
			endpoint := f.opts.Endpoint
			if compressed {
				endpoint = f.opts.CompressedEndpoint
			}
			key := f.opts.Keyer.PayloadKey(endpoint, int64(id), compressed)
			if err := f.opts.Cache.Delete(ctx, key); err != nil {
				return errors.Wrap(errors.ErrCodeInternal, err, "evict cluster %d", id)
			}
		}
	}
	return nil
}

// Prefetch loads every distinct id concurrently and returns the first
// error.
func (f *Fetcher) Prefetch(ctx context.Context, ids ...graph.ClusterID) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(f.opts.Parallelism)
	seen := make(map[graph.ClusterID]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		g.Go(func() error {
			_, err := f.Fetch(ctx, id)
			return err
		})
	}
	return g.Wait()
}

// load runs once per in-flight cluster id.
func (f *Fetcher) load(ctx context.Context, id graph.ClusterID) (*graph.Graph, error) {
	if g, ok := f.Cached(id); ok {
		return g, nil
	}

	hooks := observability.Fetch()
	hooks.OnFetchStart(ctx, int64(id))
	start := time.Now()

	g, source, err := f.loadPayload(ctx, id)
	if err != nil {
		hooks.OnFetchComplete(ctx, int64(id), source, 0, time.Since(start), err)
		f.logger.Debug("fetch failed", "cluster", id, "err", err)
		return nil, err
	}

	for n := range g.Nodes() {
		if n.Data.Cluster == nil {
			n.Data.Cluster = graph.Cluster(id)
		}
	}

	f.mu.Lock()
	f.graphs[id] = g
	f.mu.Unlock()

	elapsed := time.Since(start)
	hooks.OnFetchComplete(ctx, int64(id), source, g.NodeCount(), elapsed, nil)
	f.logger.Debug("fetched cluster", "cluster", id, "source", source,
		"nodes", g.NodeCount(), "links", g.LinkCount(), "elapsed", elapsed.Round(time.Millisecond))
	return g, nil
}

func (f *Fetcher) loadPayload(ctx context.Context, id graph.ClusterID) (*graph.Graph, string, error) {
	endpoint := f.opts.Endpoint
	if f.opts.Compressed {
		endpoint = f.opts.CompressedEndpoint
	}
	key := f.opts.Keyer.PayloadKey(endpoint, int64(id), f.opts.Compressed)

	if data, ok := f.cachedPayload(ctx, key); ok {
		if g, err := graph.DecodeDOT(data); err == nil {
			return g, observability.SourceCache, nil
		}
		f.logger.Warn("dropping undecodable cached payload", "cluster", id)
		_ = f.opts.Cache.Delete(ctx, key)
	}

	data, err := f.download(ctx, endpoint, id)
	if err != nil {
		return nil, observability.SourceNetwork, err
	}
	g, err := graph.DecodeDOT(data)
	if err != nil {
		return nil, observability.SourceNetwork, errors.Wrap(errors.ErrCodeInvalidPayload, err, "cluster %d", id)
	}

	if err := f.opts.Cache.Set(ctx, key, data, f.opts.CacheTTL); err != nil {
		f.logger.Warn("payload cache write failed", "cluster", id, "err", err)
	} else {
		observability.Cache().OnCacheSet(ctx, "payload", len(data))
	}
	return g, observability.SourceNetwork, nil
}

func (f *Fetcher) cachedPayload(ctx context.Context, key string) ([]byte, bool) {
	data, ok, err := f.opts.Cache.Get(ctx, key)
	if err != nil {
		f.logger.Warn("payload cache read failed", "err", err)
		return nil, false
	}
	if !ok {
		observability.Cache().OnCacheMiss(ctx, "payload")
		return nil, false
	}
	observability.Cache().OnCacheHit(ctx, "payload")
	return data, true
}

// download returns the DOT text of cluster id, inflating it when the
// compressed endpoint is in use.
func (f *Fetcher) download(ctx context.Context, endpoint string, id graph.ClusterID) ([]byte, error) {
	name := payloadName(int64(id), f.opts.Compressed)
	u, err := payloadURL(endpoint, name)
	if err != nil {
		return nil, err
	}

	body, total, err := f.client.download(ctx, u)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	var r io.Reader = body
	if f.opts.OnDownload != nil {
		r = &progressReader{r: body, name: name, total: total, report: f.opts.OnDownload}
	}

	if !f.opts.Compressed {
		data, err := io.ReadAll(r)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeNetwork, err, "read %s", name)
		}
		return data, nil
	}

	zr, err := zlib.NewReader(r)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidPayload, err, "inflate %s", name)
	}
	defer zr.Close()
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, zr); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidPayload, err, "inflate %s", name)
	}
	return buf.Bytes(), nil
}
