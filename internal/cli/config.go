package cli

import (
	"errors"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/causalhub/pkg/cache"
	errs "github.com/matzehuels/causalhub/pkg/errors"
	"github.com/matzehuels/causalhub/pkg/pipeline"
)

// Config is the configuration file. Every table is optional; flags given
// on the command line override it.
//
//	[fit]
//	score = "bic"
//	max_in_degree = 3
//	workers = 4
//
//	[cache]
//	backend = "redis"
//	redis.url = "redis://localhost:6379/0"
//
//	[serve]
//	addr = ":9090"
//	fit_timeout = "2m"
type Config struct {
	Fit   pipeline.Options `toml:"fit"`
	Cache cache.Config     `toml:"cache"`
	Serve ServeConfig      `toml:"serve"`
}

// ServeConfig is the [serve] table.
type ServeConfig struct {
	Addr       string        `toml:"addr"`
	FitTimeout time.Duration `toml:"fit_timeout"`
	MaxBody    int64         `toml:"max_body"`
}

// loadConfig reads the configuration file at path. An empty path selects
// the default location, where a missing file is not an error.
func loadConfig(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		dir, err := configDir()
		if err != nil {
			return &Config{}, nil
		}
		path = filepath.Join(dir, configFile)
	}

	var cfg Config
	md, err := toml.DecodeFile(path, &cfg)
	if errors.Is(err, fs.ErrNotExist) {
		if explicit {
			return nil, errs.Wrap(errs.ErrCodeFileNotFound, err, "config %s", path)
		}
		return &Config{}, nil
	}
	if err != nil {
		return nil, errs.Wrap(errs.ErrCodeInvalidFormat, err, "config %s", path)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, errs.New(errs.ErrCodeInvalidFormat, "config %s: unknown keys %s", path, strings.Join(keys, ", "))
	}
	return &cfg, nil
}
