// Package config loads extraction run configuration.
//
// Configuration comes from a YAML file, with a small set of environment
// variables layered on top for the values that differ between machines
// (archive URL, cache backend, output location). Everything has a working
// default so `corepkg extract` runs without a config file at all.
package config

import (
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/corepkg/extractor/pkg/errors"
)

// Environment overrides, applied after the file is read.
const (
	EnvArchiveURL = "COREPKG_ARCHIVE_URL"
	EnvOutputDir  = "COREPKG_OUTPUT_DIR"
	EnvCacheDir   = "COREPKG_CACHE_DIR"
	EnvRedisURL   = "COREPKG_REDIS_URL"
	EnvMongoURI   = "COREPKG_MONGO_URI"
)

// CacheConfig selects and configures the download/dataset cache backend.
type CacheConfig struct {
	// Backend is one of "none", "file", "redis".
	Backend string `yaml:"backend"`
	// Dir is the file backend's root directory.
	Dir string `yaml:"dir"`
	// RedisURL is the redis backend's connection URL.
	RedisURL string `yaml:"redis_url"`
}

// HistoryConfig configures the optional run-history store.
type HistoryConfig struct {
	// MongoURI enables run archiving when non-empty.
	MongoURI string `yaml:"mongo_uri"`
	// Database defaults to "corepkg".
	Database string `yaml:"database"`
}

// Config is a full extraction run configuration.
type Config struct {
	// ArchiveURL is where the vendored payload archive is fetched from.
	ArchiveURL string `yaml:"archive_url"`
	// ArchiveVersion pins the payload release; used for cache keys and
	// recorded in run history.
	ArchiveVersion string `yaml:"archive_version"`

	// Roots are the subdirectory names inside the unpacked archive to
	// scan for packages. Empty means scan everything.
	Roots []string `yaml:"roots"`

	// DatasetDir holds the SPDX license reference texts.
	DatasetDir string `yaml:"dataset_dir"`

	// RewriteTable is the path to the package rewrite rules (optional).
	RewriteTable string `yaml:"rewrite_table"`

	// Banned lists package path names excluded from discovery.
	Banned []string `yaml:"banned_packages"`

	// Extensions are the source-file extensions to classify.
	Extensions []string `yaml:"source_extensions"`

	// Aliases maps registry names to an assumed SPDX license ID,
	// bypassing classification for packages known to be licensed but
	// whose files carry no detectable header.
	Aliases map[string]string `yaml:"license_aliases"`

	// OutputDir is where manifests and reports are written.
	OutputDir string `yaml:"output_dir"`

	Cache   CacheConfig   `yaml:"cache"`
	History HistoryConfig `yaml:"history"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		DatasetDir: "licenses",
		Extensions: []string{".lua", ".luau"},
		OutputDir:  "out",
		Cache:      CacheConfig{Backend: "file", Dir: ""},
		History:    HistoryConfig{Database: "corepkg"},
	}
}

// Load reads configuration from a YAML file and applies environment
// overrides. An empty path returns the defaults (plus overrides); a named
// path must exist.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, errors.Wrap(errors.ErrCodeInvalidConfig, err, "read config %s", path)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, errors.Wrap(errors.ErrCodeInvalidConfig, err, "parse config %s", path)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvArchiveURL); v != "" {
		c.ArchiveURL = v
	}
	if v := os.Getenv(EnvOutputDir); v != "" {
		c.OutputDir = v
	}
	if v := os.Getenv(EnvCacheDir); v != "" {
		c.Cache.Dir = v
	}
	if v := os.Getenv(EnvRedisURL); v != "" {
		c.Cache.Backend = "redis"
		c.Cache.RedisURL = v
	}
	if v := os.Getenv(EnvMongoURI); v != "" {
		c.History.MongoURI = v
	}
}

// Validate checks the configuration for internally inconsistent values.
func (c Config) Validate() error {
	switch c.Cache.Backend {
	case "", "none", "file":
	case "redis":
		if c.Cache.RedisURL == "" {
			return errors.New(errors.ErrCodeInvalidConfig, "cache backend is redis but redis_url is empty")
		}
	default:
		return errors.New(errors.ErrCodeInvalidConfig, "unknown cache backend %q", c.Cache.Backend)
	}

	for _, ext := range c.Extensions {
		if !strings.HasPrefix(ext, ".") {
			return errors.New(errors.ErrCodeInvalidConfig, "source extension %q must start with a dot", ext)
		}
	}
	if c.OutputDir == "" {
		return errors.New(errors.ErrCodeInvalidConfig, "output_dir must not be empty")
	}
	return nil
}

// AliasFor returns the assumed license ID for a registry name, if any.
func (c Config) AliasFor(registryName string) (string, bool) {
	id, ok := c.Aliases[registryName]
	return id, ok
}
