// Package cli implements the causalhub command-line interface.
package cli

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/causalhub/pkg/cache"
	"github.com/matzehuels/causalhub/pkg/pipeline"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// appName is the application name used for directories and display.
	appName = "causalhub"

	// configFile is the name of the configuration file in the config dir.
	configFile = "config.toml"

	// defaultAddr is the listen address of "causalhub serve".
	defaultAddr = ":8080"
)

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	// configPath is set by --config; empty means the default location.
	configPath string
	config     *Config
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// Config returns the loaded configuration, loading it on first use.
func (c *CLI) Config() (*Config, error) {
	if c.config != nil {
		return c.config, nil
	}
	cfg, err := loadConfig(c.configPath)
	if err != nil {
		return nil, err
	}
	c.config = cfg
	return cfg, nil
}

// =============================================================================
// Runner Factory
// =============================================================================

// newRunner creates a pipeline runner for CLI use.
func (c *CLI) newRunner(ctx context.Context, noCache bool) (*pipeline.Runner, error) {
	cfg, err := c.Config()
	if err != nil {
		return nil, err
	}
	return pipeline.NewRunner(c.newCache(ctx, cfg.Cache, noCache), cfg.Cache.Keyer(), c.Logger), nil
}

// newCache opens the configured backend. A backend that cannot be opened
// is reported and replaced by the null cache.
func (c *CLI) newCache(ctx context.Context, cfg cache.Config, noCache bool) cache.Cache {
	if noCache {
		return cache.NewNullCache()
	}
	dir, err := cacheDirFor(cfg)
	if err != nil {
		return cache.NewNullCache()
	}
	cfg.Dir = dir
	cc, err := cache.Open(ctx, cfg, c.Logger)
	if err != nil {
		c.Logger.Warn("cache unavailable, continuing without", "backend", cfg.Backend, "err", err)
		return cache.NewNullCache()
	}
	return cc
}

// =============================================================================
// Paths
// =============================================================================

// cacheDir returns the cache directory using XDG standard (~/.cache/causalhub/).
func cacheDir() (string, error) {
	return xdgDir("XDG_CACHE_HOME", ".cache")
}

// configDir returns the config directory using XDG standard (~/.config/causalhub/).
func configDir() (string, error) {
	return xdgDir("XDG_CONFIG_HOME", ".config")
}

func xdgDir(env, fallback string) (string, error) {
	if base := os.Getenv(env); base != "" {
		return filepath.Join(base, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, fallback, appName), nil
}
