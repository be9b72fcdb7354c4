package fetch

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/klauspost/compress/zlib"

	"github.com/toucan4life/gamemap/pkg/buildinfo"
	"github.com/toucan4life/gamemap/pkg/cache"
	gmerrors "github.com/toucan4life/gamemap/pkg/errors"
	"github.com/toucan4life/gamemap/pkg/graph"
)

const cluster42 = `graph G {
  13 [label="Catan", l="12.5,3.2"];
  822 [label="Carcassonne", l="12.9,3.0", c="42"];
  7 [label="7 Wonders", l="1,1", c="7"];
  13 -- 822 [weight="0.12"];
  13 -- 7 [weight="0.03"];
}`

// payloadServer serves DOT payloads by path and counts requests.
type payloadServer struct {
	*httptest.Server
	hits     atomic.Int32
	payloads map[string][]byte
	status   map[string]int
	gate     chan struct{} // when non-nil, handlers block until closed
	started  chan struct{}
}

func newPayloadServer(t *testing.T, payloads map[string]string) *payloadServer {
	t.Helper()
	s := &payloadServer{payloads: map[string][]byte{}, status: map[string]int{}}
	for k, v := range payloads {
		s.payloads[k] = []byte(v)
	}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.hits.Add(1)
		if s.started != nil {
			select {
			case s.started <- struct{}{}:
			default:
			}
		}
		if s.gate != nil {
			<-s.gate
		}
		if code, ok := s.status[r.URL.Path]; ok {
			w.WriteHeader(code)
			return
		}
		data, ok := s.payloads[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Write(data)
	}))
	t.Cleanup(s.Close)
	return s
}

func TestFetchNormalizesAndBackfills(t *testing.T) {
	srv := newPayloadServer(t, map[string]string{"/graphs/42.dot": cluster42})
	f := New(Options{Endpoint: srv.URL + "/graphs"})

	g, err := f.Fetch(context.Background(), 42)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	catan, ok := g.Node(13)
	if !ok {
		t.Fatal("node 13 missing")
	}
	if catan.Data.Position != (graph.Position{12.5, 3.2}) {
		t.Errorf("position = %v, want [12.5 3.2]", catan.Data.Position)
	}
	if catan.Data.Cluster == nil || *catan.Data.Cluster != 42 {
		t.Errorf("cluster = %v, want backfilled 42", catan.Data.Cluster)
	}
	wonders, _ := g.Node(7)
	if *wonders.Data.Cluster != 7 {
		t.Errorf("explicit cluster overwritten: %d", *wonders.Data.Cluster)
	}
}

func TestFetchRequestHeaders(t *testing.T) {
	var agent, token string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		agent = r.Header.Get("User-Agent")
		token = r.Header.Get("X-Dataset")
		w.Write([]byte(cluster42))
	}))
	t.Cleanup(srv.Close)

	f := New(Options{Endpoint: srv.URL, Headers: map[string]string{"X-Dataset": "bgg-2025"}})
	if _, err := f.Fetch(context.Background(), 42); err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if agent != buildinfo.UserAgent() {
		t.Errorf("User-Agent = %q, want %q", agent, buildinfo.UserAgent())
	}
	if token != "bgg-2025" {
		t.Errorf("X-Dataset = %q, want bgg-2025", token)
	}
}

func TestFetchCachesInMemory(t *testing.T) {
	srv := newPayloadServer(t, map[string]string{"/42.dot": cluster42})
	f := New(Options{Endpoint: srv.URL})
	ctx := context.Background()

	g1, err := f.Fetch(ctx, 42)
	if err != nil {
		t.Fatal(err)
	}
	g2, err := f.Fetch(ctx, 42)
	if err != nil {
		t.Fatal(err)
	}
	if g1 != g2 {
		t.Error("second fetch returned a different graph")
	}
	if got := srv.hits.Load(); got != 1 {
		t.Errorf("requests = %d, want 1", got)
	}
	if f.Len() != 1 {
		t.Errorf("Len() = %d, want 1", f.Len())
	}
}

func TestFetchDeduplicatesConcurrentCalls(t *testing.T) {
	srv := newPayloadServer(t, map[string]string{"/42.dot": cluster42})
	srv.gate = make(chan struct{})
	srv.started = make(chan struct{}, 1)
	f := New(Options{Endpoint: srv.URL})

	const callers = 8
	results := make([]*graph.Graph, callers)
	errs := make([]error, callers)
	var wg sync.WaitGroup
	for i := range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], errs[i] = f.Fetch(context.Background(), 42)
		}()
	}

	<-srv.started
	time.Sleep(20 * time.Millisecond)
	close(srv.gate)
	wg.Wait()

	for i := range callers {
		if errs[i] != nil {
			t.Fatalf("caller %d: %v", i, errs[i])
		}
		if results[i] != results[0] {
			t.Errorf("caller %d received a different graph", i)
		}
	}
	if got := srv.hits.Load(); got != 1 {
		t.Errorf("requests = %d, want 1", got)
	}
}

func TestFetchFailureIsNotCached(t *testing.T) {
	srv := newPayloadServer(t, map[string]string{"/42.dot": cluster42})
	srv.status["/42.dot"] = http.StatusBadGateway
	f := New(Options{Endpoint: srv.URL})
	ctx := context.Background()

	_, err := f.Fetch(ctx, 42)
	if !gmerrors.Is(err, gmerrors.ErrCodeNetwork) {
		t.Fatalf("err = %v, want NETWORK_ERROR", err)
	}
	if _, ok := f.Cached(42); ok {
		t.Fatal("failed fetch was cached")
	}

	delete(srv.status, "/42.dot")
	if _, err := f.Fetch(ctx, 42); err != nil {
		t.Fatalf("retry: %v", err)
	}
	if got := srv.hits.Load(); got != 2 {
		t.Errorf("requests = %d, want 2", got)
	}
}

func TestFetchErrors(t *testing.T) {
	srv := newPayloadServer(t, map[string]string{"/1.dot": `graph G { 1 [l="nope"]; }`})
	f := New(Options{Endpoint: srv.URL})

	tests := []struct {
		name    string
		cluster graph.ClusterID
		code    gmerrors.Code
	}{
		{"NotFound", 404, gmerrors.ErrCodeClusterNotFound},
		{"Malformed", 1, gmerrors.ErrCodeInvalidPayload},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.Fetch(context.Background(), tt.cluster)
			if !gmerrors.Is(err, tt.code) {
				t.Errorf("err = %v, want %s", err, tt.code)
			}
		})
	}
}

func TestFetchTransportFailure(t *testing.T) {
	srv := newPayloadServer(t, nil)
	url := srv.URL
	srv.Close()

	f := New(Options{Endpoint: url})
	_, err := f.Fetch(context.Background(), 42)
	if !gmerrors.Is(err, gmerrors.ErrCodeNetwork) {
		t.Errorf("err = %v, want NETWORK_ERROR", err)
	}
}

func TestFetchCallerCancellation(t *testing.T) {
	srv := newPayloadServer(t, map[string]string{"/42.dot": cluster42})
	srv.gate = make(chan struct{})
	srv.started = make(chan struct{}, 1)
	f := New(Options{Endpoint: srv.URL})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := f.Fetch(ctx, 42)
		done <- err
	}()

	<-srv.started
	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}

	close(srv.gate)
	g, err := f.Fetch(context.Background(), 42)
	if err != nil || g == nil {
		t.Fatalf("Fetch after cancel: %v", err)
	}
	if got := srv.hits.Load(); got != 1 {
		t.Errorf("requests = %d, want 1 (cancelled download should still complete)", got)
	}
}

func TestFetchCompressed(t *testing.T) {
	var buf bytes.Buffer
	zw := zlib.NewWriter(&buf)
	zw.Write([]byte(cluster42))
	zw.Close()

	srv := newPayloadServer(t, map[string]string{
		"/zz/42.dot.zz": buf.String(),
		"/zz/5.dot.zz":  "definitely not zlib",
	})

	var mu sync.Mutex
	var progress []DownloadProgress
	f := New(Options{
		Endpoint:           srv.URL + "/plain",
		CompressedEndpoint: srv.URL + "/zz",
		Compressed:         true,
		OnDownload: func(p DownloadProgress) {
			mu.Lock()
			progress = append(progress, p)
			mu.Unlock()
		},
	})

	g, err := f.Fetch(context.Background(), 42)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if g.NodeCount() != 3 {
		t.Errorf("NodeCount() = %d, want 3", g.NodeCount())
	}

	mu.Lock()
	last := progress[len(progress)-1]
	mu.Unlock()
	if last.FileName != "42.dot.zz" || last.BytesReceived != int64(buf.Len()) {
		t.Errorf("last progress = %+v, want %d bytes of 42.dot.zz", last, buf.Len())
	}

	if _, err := f.Fetch(context.Background(), 5); !gmerrors.Is(err, gmerrors.ErrCodeInvalidPayload) {
		t.Errorf("bad zlib err = %v, want INVALID_PAYLOAD", err)
	}
}

func TestFetchPayloadCache(t *testing.T) {
	srv := newPayloadServer(t, map[string]string{"/42.dot": cluster42})
	dir := t.TempDir()
	ctx := context.Background()

	c1, _ := cache.NewFileCache(dir)
	if _, err := New(Options{Endpoint: srv.URL, Cache: c1}).Fetch(ctx, 42); err != nil {
		t.Fatal(err)
	}

	// A fresh fetcher sharing the payload cache skips the network.
	c2, _ := cache.NewFileCache(dir)
	g, err := New(Options{Endpoint: srv.URL, Cache: c2}).Fetch(ctx, 42)
	if err != nil {
		t.Fatal(err)
	}
	if g.NodeCount() != 3 {
		t.Errorf("NodeCount() = %d, want 3", g.NodeCount())
	}
	if got := srv.hits.Load(); got != 1 {
		t.Errorf("requests = %d, want 1", got)
	}
}

func TestEvict(t *testing.T) {
	srv := newPayloadServer(t, map[string]string{"/42.dot": cluster42})
	ctx := context.Background()
	c, _ := cache.NewFileCache(t.TempDir())
	f := New(Options{Endpoint: srv.URL, Cache: c})

	if _, err := f.Fetch(ctx, 42); err != nil {
		t.Fatal(err)
	}
	if err := f.Evict(ctx, 42, 7); err != nil {
		t.Fatalf("Evict: %v", err)
	}
	if _, ok := f.Cached(42); ok {
		t.Error("cluster 42 still cached in memory")
	}
	key := cache.NewDefaultKeyer().PayloadKey(srv.URL, 42, false)
	if _, ok, _ := c.Get(ctx, key); ok {
		t.Error("payload still in the payload cache")
	}

	if _, err := f.Fetch(ctx, 42); err != nil {
		t.Fatal(err)
	}
	if got := srv.hits.Load(); got != 2 {
		t.Errorf("requests = %d, want 2 after eviction", got)
	}
}

func TestFetchCorruptPayloadCacheFallsBack(t *testing.T) {
	srv := newPayloadServer(t, map[string]string{"/42.dot": cluster42})
	ctx := context.Background()
	c, _ := cache.NewFileCache(t.TempDir())
	key := cache.NewDefaultKeyer().PayloadKey(srv.URL, 42, false)
	_ = c.Set(ctx, key, []byte("graph {"), 0)

	g, err := New(Options{Endpoint: srv.URL, Cache: c}).Fetch(ctx, 42)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if g.NodeCount() != 3 || srv.hits.Load() != 1 {
		t.Errorf("nodes=%d hits=%d, want 3 and 1", g.NodeCount(), srv.hits.Load())
	}
}

func TestPrefetch(t *testing.T) {
	srv := newPayloadServer(t, map[string]string{
		"/1.dot": `graph G { 1; }`,
		"/2.dot": `graph G { 2; }`,
		"/3.dot": `graph G { 3; }`,
	})
	f := New(Options{Endpoint: srv.URL, Parallelism: 2})

	if err := f.Prefetch(context.Background(), 1, 2, 3, 2, 1); err != nil {
		t.Fatalf("Prefetch: %v", err)
	}
	if f.Len() != 3 {
		t.Errorf("Len() = %d, want 3", f.Len())
	}
	if got := srv.hits.Load(); got != 3 {
		t.Errorf("requests = %d, want 3", got)
	}

	err := f.Prefetch(context.Background(), 1, 99)
	if !gmerrors.IsNotFound(err) {
		t.Errorf("Prefetch missing cluster err = %v", err)
	}
}

func TestPayloadName(t *testing.T) {
	if got := payloadName(42, false); got != "42.dot" {
		t.Errorf("plain = %q", got)
	}
	if got := payloadName(42, true); got != "42.dot.zz" {
		t.Errorf("compressed = %q", got)
	}
	u, err := payloadURL("https://example.com/graphs/", "42.dot")
	if err != nil || !strings.HasSuffix(u, "/graphs/42.dot") {
		t.Errorf("payloadURL = %q, %v", u, err)
	}
}
