// Package config loads slimdeps settings from a TOML file and the
// environment.
//
// Precedence, lowest first: built-in defaults, the config file, environment
// variables, command-line flags (applied by the CLI). A missing default
// config file is not an error.
//
// Example config.toml:
//
//	[store]
//	dir = "/var/cache/slimdeps/store"
//
//	[network]
//	probe_timeout = "10s"
//	download_timeout = "5m"
//	retries = 2
//
//	[cache]
//	backend = "redis"
//	redis_url = "redis://localhost:6379/0"
//	ttl = "72h"
//
//	[inject]
//	workers = 4
//
//	[verify]
//	fetch_checksums = true
package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/slimdeps/pkg/cache"
	errs "github.com/matzehuels/slimdeps/pkg/errors"
)

const appName = "slimdeps"

// Cache backends.
const (
	BackendFile  = "file"
	BackendRedis = "redis"
	BackendMongo = "mongo"
	BackendNone  = "none"
)

// Defaults.
const (
	DefaultProbeTimeout    = 30 * time.Second
	DefaultDownloadTimeout = 10 * time.Minute
	DefaultRetries         = 1
	DefaultCacheTTL        = 7 * 24 * time.Hour
	DefaultWorkers         = 1
	DefaultMongoDatabase   = "slimdeps"
)

// Environment variables read by ApplyEnv.
const (
	EnvStore        = "SLIMDEPS_STORE"
	EnvCacheBackend = "SLIMDEPS_CACHE_BACKEND"
	EnvRedisURL     = "SLIMDEPS_REDIS_URL"
	EnvMongoURI     = "SLIMDEPS_MONGO_URI"
	EnvWorkers      = "SLIMDEPS_WORKERS"
)

// Config is the complete slimdeps configuration.
type Config struct {
	Store   Store   `toml:"store"`
	Network Network `toml:"network"`
	Cache   Cache   `toml:"cache"`
	Inject  Inject  `toml:"inject"`
	Verify  Verify  `toml:"verify"`
}

// Store configures local artifact placement.
type Store struct {
	Dir string `toml:"dir"`
}

// Network configures repository access.
type Network struct {
	ProbeTimeout    time.Duration `toml:"probe_timeout"`
	DownloadTimeout time.Duration `toml:"download_timeout"`
	Retries         int           `toml:"retries"`
	UserAgent       string        `toml:"user_agent"`
}

// Cache configures the persistent resolution cache.
type Cache struct {
	Backend       string        `toml:"backend"`
	Dir           string        `toml:"dir"`
	TTL           time.Duration `toml:"ttl"`
	RedisURL      string        `toml:"redis_url"`
	MongoURI      string        `toml:"mongo_uri"`
	MongoDatabase string        `toml:"mongo_database"`
	Scope         string        `toml:"scope"` // Key prefix for shared backends
}

// Inject configures graph traversal.
type Inject struct {
	Workers    int  `toml:"workers"`
	BestEffort bool `toml:"best_effort"`
	Relocate   bool `toml:"relocate"`
}

// Verify configures integrity checks beyond declared checksums.
type Verify struct {
	Keyring        string `toml:"keyring"`
	FetchChecksums bool   `toml:"fetch_checksums"`
	Signatures     bool   `toml:"signatures"`
}

// Default returns the built-in configuration.
func Default() Config {
	cacheHome := CacheHome()
	return Config{
		Store: Store{Dir: filepath.Join(cacheHome, "store")},
		Network: Network{
			ProbeTimeout:    DefaultProbeTimeout,
			DownloadTimeout: DefaultDownloadTimeout,
			Retries:         DefaultRetries,
		},
		Cache: Cache{
			Backend:       BackendFile,
			Dir:           filepath.Join(cacheHome, "resolve"),
			TTL:           DefaultCacheTTL,
			MongoDatabase: DefaultMongoDatabase,
		},
		Inject: Inject{Workers: DefaultWorkers},
	}
}

// CacheHome returns $XDG_CACHE_HOME/slimdeps, falling back to
// ~/.cache/slimdeps and finally to the system temp directory.
func CacheHome() string {
	if dir := os.Getenv("XDG_CACHE_HOME"); dir != "" {
		return filepath.Join(dir, appName)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".cache", appName)
	}
	return filepath.Join(os.TempDir(), appName)
}

// DefaultPath returns $XDG_CONFIG_HOME/slimdeps/config.toml or
// ~/.config/slimdeps/config.toml.
func DefaultPath() (string, error) {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, appName, "config.toml"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", appName, "config.toml"), nil
}

// Load reads the config file at path on top of the defaults and applies
// environment overrides. An empty path means DefaultPath, which may be
// absent; an explicit path must exist.
func Load(path string) (Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		p, err := DefaultPath()
		if err != nil {
			cfg.ApplyEnv(os.Getenv)
			cfg.normalize()
			return cfg, cfg.Validate()
		}
		path = p
	}

	md, err := toml.DecodeFile(path, &cfg)
	switch {
	case errors.Is(err, fs.ErrNotExist) && !explicit:
		cfg = Default()
	case errors.Is(err, fs.ErrNotExist):
		return Config{}, errs.Wrap(errs.ErrCodeFileNotFound, err, "config file %s", path)
	case err != nil:
		return Config{}, errs.Wrap(errs.ErrCodeInvalidInput, err, "parse config %s", path)
	default:
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return Config{}, errs.New(errs.ErrCodeInvalidInput, "config %s: unknown key %q", path, undecoded[0].String())
		}
	}

	cfg.ApplyEnv(os.Getenv)
	cfg.normalize()
	return cfg, cfg.Validate()
}

// ApplyEnv overrides settings from environment variables looked up with
// getenv. Unparseable numeric values are ignored.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if v := strings.TrimSpace(getenv(EnvStore)); v != "" {
		c.Store.Dir = v
	}
	if v := strings.TrimSpace(getenv(EnvCacheBackend)); v != "" {
		c.Cache.Backend = strings.ToLower(v)
	}
	if v := strings.TrimSpace(getenv(EnvRedisURL)); v != "" {
		c.Cache.RedisURL = v
		if getenv(EnvCacheBackend) == "" {
			c.Cache.Backend = BackendRedis
		}
	}
	if v := strings.TrimSpace(getenv(EnvMongoURI)); v != "" {
		c.Cache.MongoURI = v
		if getenv(EnvCacheBackend) == "" {
			c.Cache.Backend = BackendMongo
		}
	}
	if v := strings.TrimSpace(getenv(EnvWorkers)); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Inject.Workers = n
		}
	}
}

func (c *Config) normalize() {
	def := Default()
	c.Cache.Backend = strings.ToLower(strings.TrimSpace(c.Cache.Backend))
	if c.Cache.Backend == "" {
		c.Cache.Backend = BackendFile
	}
	if c.Network.ProbeTimeout <= 0 {
		c.Network.ProbeTimeout = def.Network.ProbeTimeout
	}
	if c.Network.DownloadTimeout <= 0 {
		c.Network.DownloadTimeout = def.Network.DownloadTimeout
	}
	if c.Network.Retries <= 0 {
		c.Network.Retries = def.Network.Retries
	}
	if c.Cache.TTL <= 0 {
		c.Cache.TTL = def.Cache.TTL
	}
	if c.Cache.MongoDatabase == "" {
		c.Cache.MongoDatabase = def.Cache.MongoDatabase
	}
	if c.Inject.Workers <= 0 {
		c.Inject.Workers = def.Inject.Workers
	}
}

// Validate checks cross-field requirements.
func (c Config) Validate() error {
	if c.Store.Dir == "" {
		return errs.New(errs.ErrCodeInvalidInput, "store.dir is required")
	}
	switch c.Cache.Backend {
	case BackendFile, BackendNone:
	case BackendRedis:
		if c.Cache.RedisURL == "" {
			return errs.New(errs.ErrCodeInvalidInput, "cache.redis_url is required for the redis backend")
		}
	case BackendMongo:
		if c.Cache.MongoURI == "" {
			return errs.New(errs.ErrCodeInvalidInput, "cache.mongo_uri is required for the mongo backend")
		}
	default:
		return errs.New(errs.ErrCodeInvalidInput, "unknown cache backend %q (want file, redis, mongo or none)", c.Cache.Backend)
	}
	if c.Verify.Signatures && c.Verify.Keyring == "" {
		return errs.New(errs.ErrCodeInvalidInput, "verify.keyring is required when signatures are enabled")
	}
	return nil
}

// OpenCache connects the configured backend. The returned cache reports
// hits and misses through the observability cache hooks.
func (c Cache) OpenCache(ctx context.Context) (cache.Cache, error) {
	var (
		backend cache.Cache
		err     error
	)
	switch c.Backend {
	case BackendNone:
		return cache.NewNullCache(), nil
	case BackendRedis:
		backend, err = cache.NewRedisCache(ctx, c.RedisURL, appName+":")
	case BackendMongo:
		backend, err = cache.NewMongoCache(ctx, c.MongoURI, c.MongoDatabase, "resolutions")
	default:
		backend, err = cache.NewFileCache(c.Dir)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s cache: %w", c.Backend, err)
	}
	return cache.Instrument(backend, "resolve"), nil
}

// Keyer returns the key scheme for the configured scope.
func (c Cache) Keyer() cache.Keyer {
	if c.Scope == "" {
		return cache.NewDefaultKeyer()
	}
	return cache.NewScopedKeyer(cache.NewDefaultKeyer(), c.Scope+":")
}
