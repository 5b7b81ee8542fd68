package cache

import (
	"cmp"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

// Backend names accepted by Open.
const (
	BackendNone   = "none"
	BackendFile   = "file"
	BackendBadger = "badger"
	BackendRedis  = "redis"
	BackendMongo  = "mongo"
)

// Config selects and configures a backend. It is decoded from the
// [cache] table of the configuration file.
type Config struct {
	Backend string `toml:"backend" yaml:"backend"`
	// Dir is the directory of the file and badger backends. Empty uses
	// DefaultDir.
	Dir string `toml:"dir" yaml:"dir"`
	// Prefix scopes every key, so that deployments sharing a backend
	// keep separate entries.
	Prefix string `toml:"prefix" yaml:"prefix"`
	Redis  struct {
		URL    string `toml:"url" yaml:"url"`
		Prefix string `toml:"prefix" yaml:"prefix"`
	} `toml:"redis" yaml:"redis"`
	Mongo struct {
		URI        string `toml:"uri" yaml:"uri"`
		Database   string `toml:"database" yaml:"database"`
		Collection string `toml:"collection" yaml:"collection"`
	} `toml:"mongo" yaml:"mongo"`
}

// Keyer returns the keyer for cfg: a ScopedKeyer when Prefix is set,
// otherwise nil, which runners treat as DefaultKeyer.
func (cfg Config) Keyer() Keyer {
	if strings.Trim(cfg.Prefix, "/") == "" {
		return nil
	}
	return NewScopedKeyer(nil, cfg.Prefix)
}

// DefaultDir returns the per-user cache directory, or a directory under the
// system temp dir when none is available.
func DefaultDir() string {
	if dir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(dir, "causalhub")
	}
	return filepath.Join(os.TempDir(), "causalhub-cache")
}

// Open builds the configured backend and instruments it with the
// registered cache hooks. An empty backend means file.
func Open(ctx context.Context, cfg Config, logger *log.Logger) (Cache, error) {
	dir := cfg.Dir
	if dir == "" {
		dir = DefaultDir()
	}
	var (
		c   Cache
		err error
	)
	switch strings.ToLower(cfg.Backend) {
	case BackendNone:
		return NewNullCache(), nil
	case "", BackendFile:
		c, err = NewFileCache(dir)
	case BackendBadger:
		c, err = NewBadgerCache(BadgerConfig{Path: filepath.Join(dir, "badger"), GCInterval: 10 * time.Minute, Logger: logger})
	case BackendRedis:
		c, err = NewRedisCache(ctx, RedisConfig{URL: cfg.Redis.URL, Prefix: cfg.Redis.Prefix})
	case BackendMongo:
		c, err = NewMongoCache(ctx, MongoConfig{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database, Collection: cfg.Mongo.Collection})
	default:
		return nil, fmt.Errorf("unknown cache backend %q (want none, file, badger, redis or mongo)", cfg.Backend)
	}
	if err != nil {
		return nil, err
	}
	if logger != nil {
		logger.Debug("cache opened", "backend", cmp.Or(cfg.Backend, BackendFile))
	}
	return Instrument(c), nil
}

