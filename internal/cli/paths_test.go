package cli

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/toucan4life/gamemap/pkg/cache"
)

func TestCachePathDefault(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("XDG_CACHE_HOME", "")
	home := t.TempDir()
	t.Setenv("HOME", home)

	out, err := run(t, "cache", "path")
	if err != nil {
		t.Fatalf("cache path: %v", err)
	}
	expected := filepath.Join(home, ".cache", appName)
	if got := strings.TrimSpace(out); got != expected {
		t.Errorf("cache path = %q, want %q", got, expected)
	}
}

func TestCachePathXDG(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	customCache := t.TempDir()
	t.Setenv("XDG_CACHE_HOME", customCache)

	out, err := run(t, "cache", "path")
	if err != nil {
		t.Fatalf("cache path: %v", err)
	}
	expected := filepath.Join(customCache, appName)
	if got := strings.TrimSpace(out); got != expected {
		t.Errorf("cache path with XDG_CACHE_HOME = %q, want %q", got, expected)
	}
}

func TestCachePathFromConfig(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	dir := filepath.Join(t.TempDir(), "payloads")
	cfg := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(cfg, []byte("cache:\n  dir: "+dir+"\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	out, err := run(t, "--config", cfg, "cache", "path")
	if err != nil {
		t.Fatalf("cache path: %v", err)
	}
	if got := strings.TrimSpace(out); got != dir {
		t.Errorf("cache path = %q, want %q", got, dir)
	}
}

func TestCacheClear(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	xdg := t.TempDir()
	t.Setenv("XDG_CACHE_HOME", xdg)
	dir := filepath.Join(xdg, appName)

	fc, err := cache.NewFileCache(dir)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	for _, key := range []string{"a", "b", "c"} {
		if err := fc.Set(ctx, key, []byte(key), time.Hour); err != nil {
			t.Fatal(err)
		}
	}
	if n := countFiles(dir); n != 3 {
		t.Fatalf("countFiles = %d, want 3", n)
	}

	if _, err := run(t, "cache", "clear"); err != nil {
		t.Fatalf("cache clear: %v", err)
	}
	if n := countFiles(dir); n != 0 {
		t.Errorf("%d files left after clear", n)
	}
	if _, ok, err := fc.Get(ctx, "a"); err != nil || ok {
		t.Errorf("Get after clear = %v, %v; want a miss", ok, err)
	}
}

func TestCacheClearMissingDir(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("XDG_CACHE_HOME", filepath.Join(t.TempDir(), "absent"))

	if _, err := run(t, "cache", "clear"); err != nil {
		t.Fatalf("cache clear: %v", err)
	}
}

func TestCacheClearCluster(t *testing.T) {
	cfg := testEnv(t)
	dir := filepath.Join(t.TempDir(), "payloads")
	data, err := os.ReadFile(cfg)
	if err != nil {
		t.Fatal(err)
	}
	fileCfg := strings.Replace(string(data), `backend = "none"`, `backend = "file"`+"\ndir = \""+dir+"\"", 1)
	if err := os.WriteFile(cfg, []byte(fileCfg), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := run(t, "--config", cfg, "fetch", "42"); err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if n := countFiles(dir); n != 1 {
		t.Fatalf("countFiles = %d after fetch, want 1", n)
	}
	if _, err := run(t, "--config", cfg, "cache", "clear", "--cluster", "42"); err != nil {
		t.Fatalf("cache clear --cluster: %v", err)
	}
	if n := countFiles(dir); n != 0 {
		t.Errorf("%d files left after clearing cluster 42", n)
	}
	if _, err := run(t, "--config", cfg, "cache", "clear", "--cluster", "x"); err == nil {
		t.Error("non-numeric cluster should fail")
	}
}
