// Package config loads gamemap configuration files.
//
// A configuration is a TOML (.toml) or YAML (.yaml, .yml) document decoded
// on top of [Default]. Every section is optional; unknown YAML keys are
// rejected.
//
//	[endpoints]
//	graphs = "https://example.org/data/v3/graphs"
//
//	[cache]
//	backend = "redis"
//	redis_addr = "localhost:6379"
//
//	[[style.edge_bands]]
//	below = 0.01
//	color = "#4a148c"
package config

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/toucan4life/gamemap/pkg/cache"
	"github.com/toucan4life/gamemap/pkg/errors"
	"github.com/toucan4life/gamemap/pkg/layout"
	"github.com/toucan4life/gamemap/pkg/viewer"
)

// AppName names the configuration and cache directories.
const AppName = "gamemap"

// Config is the full client configuration.
type Config struct {
	Endpoints EndpointsConfig `toml:"endpoints" yaml:"endpoints"`
	Fetch     FetchConfig     `toml:"fetch" yaml:"fetch"`
	Cache     CacheConfig     `toml:"cache" yaml:"cache"`
	Layout    layout.Config   `toml:"layout" yaml:"layout"`
	Viewer    ViewerConfig    `toml:"viewer" yaml:"viewer"`
	Style     viewer.Style    `toml:"style" yaml:"style"`
	Server    ServerConfig    `toml:"server" yaml:"server"`
	Store     StoreConfig     `toml:"store" yaml:"store"`
}

// EndpointsConfig holds the payload base URLs.
type EndpointsConfig struct {
	Graphs           string `toml:"graphs" yaml:"graphs"`
	CompressedGraphs string `toml:"compressed_graphs" yaml:"compressed_graphs"`
}

// FetchConfig controls downloads and neighborhood building.
type FetchConfig struct {
	Compressed  bool          `toml:"compressed" yaml:"compressed"`
	Timeout     time.Duration `toml:"timeout" yaml:"timeout"`
	Parallelism int           `toml:"parallelism" yaml:"parallelism"`
	Depth       int           `toml:"depth" yaml:"depth"`
}

// CacheConfig selects the payload cache backend.
type CacheConfig struct {
	Backend   string        `toml:"backend" yaml:"backend"`
	Dir       string        `toml:"dir" yaml:"dir"`
	RedisAddr string        `toml:"redis_addr" yaml:"redis_addr"`
	TTL       time.Duration `toml:"ttl" yaml:"ttl"`
}

// ViewerConfig controls the frame loop and projection.
type ViewerConfig struct {
	Steps         int           `toml:"steps" yaml:"steps"`
	ScaleFactor   float64       `toml:"scale_factor" yaml:"scale_factor"`
	FrameInterval time.Duration `toml:"frame_interval" yaml:"frame_interval"`
	FitPadding    float64       `toml:"fit_padding" yaml:"fit_padding"`
	HitRadius     float64       `toml:"hit_radius" yaml:"hit_radius"`
}

// ServerConfig controls the HTTP API.
type ServerConfig struct {
	Addr           string        `toml:"addr" yaml:"addr"`
	AllowedOrigins []string      `toml:"allowed_origins" yaml:"allowed_origins"`
	SessionTTL     time.Duration `toml:"session_ttl" yaml:"session_ttl"`
}

// StoreConfig selects the snapshot store.
type StoreConfig struct {
	Backend    string `toml:"backend" yaml:"backend"`
	MongoURI   string `toml:"mongo_uri" yaml:"mongo_uri"`
	Database   string `toml:"database" yaml:"database"`
	Collection string `toml:"collection" yaml:"collection"`
}

// Store backends.
const (
	StoreMemory = "memory"
	StoreMongo  = "mongo"
)

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Endpoints: EndpointsConfig{
			Graphs:           "http://localhost:3010/data/v3/graphs",
			CompressedGraphs: "http://localhost:3010/data/v3/compressedGraphs",
		},
		Fetch: FetchConfig{
			Timeout:     30 * time.Second,
			Parallelism: 4,
			Depth:       2,
		},
		Cache: CacheConfig{
			Backend: cache.BackendFile,
			TTL:     24 * time.Hour,
		},
		Layout: layout.DefaultConfig(),
		Viewer: ViewerConfig{
			Steps:         viewer.DefaultSteps,
			ScaleFactor:   viewer.DefaultScaleFactor,
			FrameInterval: viewer.DefaultFrameInterval,
			FitPadding:    viewer.DefaultFitPadding,
			HitRadius:     viewer.DefaultHitRadius,
		},
		Style: viewer.DefaultStyle(),
		Server: ServerConfig{
			Addr:           ":8080",
			AllowedOrigins: []string{"*"},
			SessionTTL:     30 * time.Minute,
		},
		Store: StoreConfig{
			Backend:    StoreMemory,
			MongoURI:   "mongodb://localhost:27017",
			Database:   AppName,
			Collection: "snapshots",
		},
	}
}

// Load reads path on top of the defaults and validates the result. An empty
// path returns the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "read %s", path)
	}
	if err := cfg.decode(path, data); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "%s", path)
	}
	return cfg, nil
}

func (c *Config) decode(path string, data []byte) error {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		if _, err := toml.Decode(string(data), c); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidConfig, err, "parse %s", path)
		}
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(c); err != nil && err != io.EOF {
			return errors.Wrap(errors.ErrCodeInvalidConfig, err, "parse %s", path)
		}
	default:
		return errors.New(errors.ErrCodeInvalidConfig, "unsupported config format %q", ext)
	}
	return nil
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if err := errors.ValidateURL(c.Endpoints.Graphs); err != nil {
		return fmt.Errorf("endpoints.graphs: %w", err)
	}
	if c.Fetch.Compressed {
		if err := errors.ValidateURL(c.Endpoints.CompressedGraphs); err != nil {
			return fmt.Errorf("endpoints.compressed_graphs: %w", err)
		}
	}
	if err := errors.ValidateDepth(c.Fetch.Depth); err != nil {
		return fmt.Errorf("fetch.depth: %w", err)
	}
	if c.Fetch.Parallelism < 1 {
		return fmt.Errorf("fetch.parallelism must be at least 1 (got %d)", c.Fetch.Parallelism)
	}
	switch c.Cache.Backend {
	case "", cache.BackendNone, cache.BackendFile:
	case cache.BackendRedis:
		if c.Cache.RedisAddr == "" {
			return fmt.Errorf("cache.redis_addr is required for the redis backend")
		}
	default:
		return fmt.Errorf("cache.backend %q: %w", c.Cache.Backend, cache.ErrUnknownBackend)
	}
	if err := c.Layout.Validate(); err != nil {
		return fmt.Errorf("layout: %w", err)
	}
	if c.Viewer.Steps < 1 {
		return fmt.Errorf("viewer.steps must be at least 1 (got %d)", c.Viewer.Steps)
	}
	if c.Viewer.ScaleFactor <= 0 {
		return fmt.Errorf("viewer.scale_factor must be positive (got %v)", c.Viewer.ScaleFactor)
	}
	if err := c.Style.Validate(); err != nil {
		return fmt.Errorf("style: %w", err)
	}
	switch c.Store.Backend {
	case "", StoreMemory:
	case StoreMongo:
		if c.Store.MongoURI == "" || c.Store.Database == "" || c.Store.Collection == "" {
			return fmt.Errorf("store: mongo_uri, database and collection are required for the mongo backend")
		}
	default:
		return fmt.Errorf("store.backend %q is not one of memory, mongo", c.Store.Backend)
	}
	return nil
}

// CacheDir returns the payload cache directory: cache.dir when set, else
// $XDG_CACHE_HOME/gamemap or ~/.cache/gamemap.
func (c *Config) CacheDir() (string, error) {
	if c.Cache.Dir != "" {
		return c.Cache.Dir, nil
	}
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, AppName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", AppName), nil
}

// DefaultPath returns $XDG_CONFIG_HOME/gamemap/config.toml (or the
// ~/.config equivalent) and whether that file exists.
func DefaultPath() (string, bool) {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", false
		}
		dir = filepath.Join(home, ".config")
	}
	path := filepath.Join(dir, AppName, "config.toml")
	_, err := os.Stat(path)
	return path, err == nil
}
