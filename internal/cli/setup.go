package cli

import (
	"context"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/corepkg/extractor/pkg/cache"
	"github.com/corepkg/extractor/pkg/config"
	"github.com/corepkg/extractor/pkg/errors"
	"github.com/corepkg/extractor/pkg/fetch"
	"github.com/corepkg/extractor/pkg/license"
	"github.com/corepkg/extractor/pkg/pipeline"
	"github.com/corepkg/extractor/pkg/rewrite"
)

// defaultCacheDir resolves the file cache location, honoring
// XDG_CACHE_HOME the way other tools on the machine do.
func defaultCacheDir() string {
	if x := os.Getenv("XDG_CACHE_HOME"); x != "" {
		return filepath.Join(x, "corepkg")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".corepkg-cache"
	}
	return filepath.Join(home, ".cache", "corepkg")
}

// openCache builds the configured cache backend.
func openCache(ctx context.Context, cfg config.Config) (cache.Cache, error) {
	switch cfg.Cache.Backend {
	case "", "none":
		return cache.NewNullCache(), nil
	case "file":
		dir := cfg.Cache.Dir
		if dir == "" {
			dir = defaultCacheDir()
		}
		return cache.NewFileCache(dir)
	case "redis":
		return cache.NewRedisCache(ctx, cfg.Cache.RedisURL)
	default:
		return nil, errors.New(errors.ErrCodeInvalidConfig, "unknown cache backend %q", cfg.Cache.Backend)
	}
}

// buildRunner wires the license dataset and rewrite table into a pipeline
// runner.
func buildRunner(cfg config.Config, logger *log.Logger) (*pipeline.Runner, error) {
	dataset, err := license.LoadDataset(cfg.DatasetDir)
	if err != nil {
		return nil, err
	}
	rules, err := rewrite.Load(cfg.RewriteTable)
	if err != nil {
		return nil, err
	}
	return pipeline.NewRunner(license.NewMatcher(dataset, nil), rules, logger), nil
}

// preparePayload returns the raw tree to scan. A local payload directory
// wins; otherwise the configured archive is downloaded (through the
// cache) and unpacked into a temporary directory, which cleanup removes.
func preparePayload(ctx context.Context, cfg config.Config, payloadDir string, c cache.Cache, logger *log.Logger) (string, func(), error) {
	noop := func() {}

	if payloadDir != "" {
		return payloadDir, noop, nil
	}
	if cfg.ArchiveURL == "" {
		return "", noop, errors.New(errors.ErrCodeInvalidConfig,
			"no --payload directory and no archive_url configured")
	}

	data, err := fetch.NewDownloader(c, logger).Archive(ctx, cfg.ArchiveURL, cfg.ArchiveVersion)
	if err != nil {
		return "", noop, err
	}

	dir, err := os.MkdirTemp("", "corepkg-payload-*")
	if err != nil {
		return "", noop, errors.Wrap(errors.ErrCodeInternal, err, "create payload dir")
	}
	cleanup := func() { _ = os.RemoveAll(dir) }

	if err := fetch.Unzip(data, dir); err != nil {
		cleanup()
		return "", noop, err
	}
	return dir, cleanup, nil
}

// runExtraction is the shared front half of every command that needs a
// pipeline result: load config, resolve the payload, run the stages.
func runExtraction(cmd *cobra.Command, payloadDir string) (*pipeline.Result, config.Config, error) {
	ctx := cmd.Context()
	logger := loggerFromContext(ctx)

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, config.Config{}, err
	}

	c, err := openCache(ctx, cfg)
	if err != nil {
		return nil, config.Config{}, err
	}
	defer c.Close()

	runner, err := buildRunner(cfg, logger)
	if err != nil {
		return nil, config.Config{}, err
	}

	payload, cleanup, err := preparePayload(ctx, cfg, payloadDir, c, logger)
	if err != nil {
		return nil, config.Config{}, err
	}
	defer cleanup()

	spin := newSpinner(ctx, "running extraction pipeline")
	spin.Start()
	result, err := runner.Execute(ctx, pipeline.Options{
		PayloadRoot: payload,
		Roots:       cfg.Roots,
		Banned:      cfg.Banned,
		Extensions:  cfg.Extensions,
		Aliases:     cfg.Aliases,
	})
	spin.Stop()
	if err != nil {
		return nil, config.Config{}, err
	}
	return result, cfg, nil
}
