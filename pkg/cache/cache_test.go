package cache

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestNullCacheNeverStores(t *testing.T) {
	ctx := context.Background()
	c := NewNullCache()
	defer c.Close()

	key := NewDefaultKeyer().PayloadKey("https://example.com/graphs", 42, false)
	if err := c.Set(ctx, key, []byte("graph G {}"), time.Hour); err != nil {
		t.Fatalf("Set: %v", err)
	}
	data, ok, err := c.Get(ctx, key)
	if err != nil || ok || data != nil {
		t.Errorf("Get after Set = %q, %v, %v; want a miss", data, ok, err)
	}
	if err := c.Delete(ctx, key); err != nil {
		t.Errorf("Delete: %v", err)
	}
}

func TestFileCache(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	c, err := NewFileCache(dir)
	if err != nil {
		t.Fatalf("NewFileCache: %v", err)
	}
	defer c.Close()

	if err := c.Set(ctx, "k1", []byte("graph G {}"), 0); err != nil {
		t.Fatalf("Set: %v", err)
	}
	data, ok, err := c.Get(ctx, "k1")
	if err != nil || !ok || string(data) != "graph G {}" {
		t.Fatalf("Get = %q, %v, %v", data, ok, err)
	}

	if err := c.Delete(ctx, "k1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, ok, _ := c.Get(ctx, "k1"); ok {
		t.Error("entry survives Delete")
	}
	if err := c.Delete(ctx, "k1"); err != nil {
		t.Errorf("Delete of missing key: %v", err)
	}
}

func TestFileCacheExpiry(t *testing.T) {
	ctx := context.Background()
	c, err := NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if err := c.Set(ctx, "k", []byte("v"), time.Nanosecond); err != nil {
		t.Fatal(err)
	}
	time.Sleep(time.Millisecond)
	if _, ok, _ := c.Get(ctx, "k"); ok {
		t.Error("expired entry returned")
	}
}

func TestFileCacheCorruptEntry(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	c, _ := NewFileCache(dir)
	fc := c.(*FileCache)

	path := fc.path("k")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, ok, err := c.Get(ctx, "k"); ok || err != nil {
		t.Errorf("corrupt entry: ok=%v err=%v, want miss", ok, err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("corrupt entry not removed")
	}
}

func TestHash(t *testing.T) {
	catan := Hash([]byte(`{"nodes":[{"id":13}]}`))
	if catan != Hash([]byte(`{"nodes":[{"id":13}]}`)) {
		t.Error("Hash should be deterministic")
	}
	if catan == Hash([]byte(`{"nodes":[{"id":822}]}`)) {
		t.Error("different graphs should hash differently")
	}
	if len(catan) != 64 {
		t.Errorf("len(Hash) = %d, want 64", len(catan))
	}
}

func TestHashJSON(t *testing.T) {
	type settings struct {
		Steps int     `json:"steps"`
		Scale float64 `json:"scale"`
	}
	a := HashJSON(settings{400, 100})
	if a != HashJSON(settings{400, 100}) {
		t.Error("HashJSON should be deterministic")
	}
	if a == HashJSON(settings{10, 100}) {
		t.Error("different settings should hash differently")
	}
	if got := HashJSON(func() {}); got != Hash(nil) {
		t.Errorf("unencodable value = %q, want the empty digest", got)
	}
}

func TestDigestKeySeparatesParts(t *testing.T) {
	if digestKey("payload", "1", "23") == digestKey("payload", "12", "3") {
		t.Error("part boundaries should change the key")
	}
	if !strings.HasPrefix(digestKey("artifact", "x"), "artifact:") {
		t.Error("key should start with its kind")
	}
}

func TestDefaultKeyer(t *testing.T) {
	k := NewDefaultKeyer()

	plain := k.PayloadKey("https://example.com/graphs", 42, false)
	if !strings.HasPrefix(plain, "payload:") {
		t.Errorf("PayloadKey unexpected: %s", plain)
	}
	if plain != k.PayloadKey("https://example.com/graphs", 42, false) {
		t.Error("PayloadKey should be deterministic")
	}

	tests := []struct {
		name       string
		endpoint   string
		cluster    int64
		compressed bool
	}{
		{"other cluster", "https://example.com/graphs", 7, false},
		{"compressed", "https://example.com/graphs", 42, true},
		{"other endpoint", "https://mirror.example.com/graphs", 42, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if k.PayloadKey(tt.endpoint, tt.cluster, tt.compressed) == plain {
				t.Error("keys should differ")
			}
		})
	}
}

func TestScopedKeyer(t *testing.T) {
	scoped := NewScopedKeyer(NewDefaultKeyer(), "bgg:")
	key := scoped.PayloadKey("e", 1, false)
	if key != "bgg:"+NewDefaultKeyer().PayloadKey("e", 1, false) {
		t.Errorf("ScopedKeyer PayloadKey unexpected: %s", key)
	}
}

func TestScopedKeyerNilInner(t *testing.T) {
	scoped := NewScopedKeyer(nil, "prefix:")
	key := scoped.PayloadKey("e", 1, true)
	if !strings.HasPrefix(key, "prefix:payload:") {
		t.Errorf("Unexpected key with nil inner: %s", key)
	}
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		opts    Options
		want    any
		wantErr error
	}{
		{"empty", Options{}, NullCache{}, nil},
		{"none", Options{Backend: BackendNone}, NullCache{}, nil},
		{"file", Options{Backend: BackendFile, Dir: t.TempDir()}, &FileCache{}, nil},
		{"unknown", Options{Backend: "memcached"}, nil, ErrUnknownBackend},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := Open(ctx, tt.opts)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			defer c.Close()
			switch tt.want.(type) {
			case NullCache:
				if _, ok := c.(NullCache); !ok {
					t.Errorf("got %T, want NullCache", c)
				}
			case *FileCache:
				if _, ok := c.(*FileCache); !ok {
					t.Errorf("got %T, want *FileCache", c)
				}
			}
		})
	}
}

func TestFileCacheClear(t *testing.T) {
	ctx := context.Background()
	c, _ := NewFileCache(t.TempDir())
	fc := c.(*FileCache)
	_ = c.Set(ctx, "a", []byte("1"), 0)
	_ = c.Set(ctx, "b", []byte("2"), 0)

	if err := fc.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	entries, err := os.ReadDir(fc.Dir())
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("%d entries after Clear", len(entries))
	}
}

func TestArtifactKey(t *testing.T) {
	k := NewDefaultKeyer()
	base := ArtifactKeyOpts{Format: "svg", Root: 13, Steps: 400}
	key := k.ArtifactKey("abc", base)
	if !strings.HasPrefix(key, "artifact:") {
		t.Fatalf("unexpected key %q", key)
	}
	if k.ArtifactKey("abc", base) != key {
		t.Error("key is not stable")
	}

	tests := []struct {
		name string
		hash string
		opts ArtifactKeyOpts
	}{
		{"graph", "abd", base},
		{"format", "abc", ArtifactKeyOpts{Format: "dot", Root: 13, Steps: 400}},
		{"root", "abc", ArtifactKeyOpts{Format: "svg", Root: 14, Steps: 400}},
		{"steps", "abc", ArtifactKeyOpts{Format: "svg", Root: 13, Steps: 10}},
		{"style", "abc", ArtifactKeyOpts{Format: "svg", Root: 13, Steps: 400, StyleHash: "x"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if k.ArtifactKey(tt.hash, tt.opts) == key {
				t.Error("keys should differ")
			}
		})
	}

	scoped := NewScopedKeyer(k, "v2:")
	if got := scoped.ArtifactKey("abc", base); got != "v2:"+key {
		t.Errorf("scoped ArtifactKey = %q", got)
	}
}
