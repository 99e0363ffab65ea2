// Package fetch downloads the vendored payload archive and unpacks it
// into a raw tree for the pipeline to scan.
//
// Downloads go through the run cache keyed by (url, version), so repeated
// runs against the same payload release never re-download. Transient HTTP
// failures retry with exponential backoff; client errors fail fast.
package fetch

import (
	"archive/zip"
	"bytes"
	"context"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"

	"github.com/corepkg/extractor/pkg/cache"
	"github.com/corepkg/extractor/pkg/errors"
)

const (
	defaultAttempts = 3
	defaultDelay    = time.Second
)

// maxFileSize caps a single decompressed archive member. Guards against
// decompression bombs in untrusted payloads. Var so tests can lower it.
var maxFileSize int64 = 512 << 20

// Downloader fetches payload archives with caching and retry.
type Downloader struct {
	Client *http.Client
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger

	Attempts int
	Delay    time.Duration
}

// NewDownloader creates a downloader. A nil cache disables caching; a nil
// logger falls back to the default logger.
func NewDownloader(c cache.Cache, logger *log.Logger) *Downloader {
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Downloader{
		Client:   &http.Client{Timeout: 5 * time.Minute},
		Cache:    c,
		Keyer:    cache.NewDefaultKeyer(),
		Logger:   logger,
		Attempts: defaultAttempts,
		Delay:    defaultDelay,
	}
}

// Archive fetches the payload archive at url, consulting the cache first.
// version distinguishes payload releases served from a moving URL.
func (d *Downloader) Archive(ctx context.Context, url, version string) ([]byte, error) {
	key := d.Keyer.ArchiveKey(url, version)

	if data, hit, err := d.Cache.Get(ctx, key); err == nil && hit {
		d.Logger.Debug("archive cache hit", "url", url, "version", version)
		return data, nil
	}

	data, err := d.Fetch(ctx, url)
	if err != nil {
		return nil, err
	}

	if err := d.Cache.Set(ctx, key, data, cache.TTLArchive); err != nil {
		d.Logger.Warn("failed to cache archive", "err", err)
	}
	return data, nil
}

// Fetch performs a retrying GET. Server errors and transport failures
// retry; any other non-200 response fails immediately.
func (d *Downloader) Fetch(ctx context.Context, url string) ([]byte, error) {
	var body []byte

	err := Retry(ctx, d.Attempts, d.Delay, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return errors.Wrap(errors.ErrCodeInvalidInput, err, "build request for %s", url)
		}

		resp, err := d.Client.Do(req)
		if err != nil {
			return &RetryableError{Err: errors.Wrap(errors.ErrCodeNetwork, err, "fetch %s", url)}
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 500 {
			return &RetryableError{Err: errors.New(errors.ErrCodeNetwork,
				"fetch %s: server returned %d", url, resp.StatusCode)}
		}
		if resp.StatusCode != http.StatusOK {
			return errors.New(errors.ErrCodeNetwork, "fetch %s: status %d", url, resp.StatusCode)
		}

		body, err = io.ReadAll(resp.Body)
		if err != nil {
			return &RetryableError{Err: errors.Wrap(errors.ErrCodeNetwork, err, "read %s", url)}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	d.Logger.Info("fetched archive", "url", url, "bytes", len(body))
	return body, nil
}

// Unzip unpacks a zip archive into dest. Member paths must stay inside
// dest; anything that would escape fails the whole extraction.
func Unzip(data []byte, dest string) error {
	r, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return errors.Wrap(errors.ErrCodeInvalidArchive, err, "open archive")
	}

	for _, f := range r.File {
		if err := extractFile(f, dest); err != nil {
			return err
		}
	}
	return nil
}

func extractFile(f *zip.File, dest string) error {
	name := filepath.FromSlash(f.Name)
	if !filepath.IsLocal(name) {
		return errors.New(errors.ErrCodeInvalidArchive, "archive member escapes destination: %s", f.Name)
	}
	target := filepath.Join(dest, name)

	if f.FileInfo().IsDir() {
		return os.MkdirAll(target, 0o755)
	}

	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "create %s", filepath.Dir(target))
	}

	rc, err := f.Open()
	if err != nil {
		return errors.Wrap(errors.ErrCodeInvalidArchive, err, "open member %s", f.Name)
	}
	defer rc.Close()

	out, err := os.Create(target)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "create %s", target)
	}
	defer out.Close()

	// Read one byte past the cap so an oversized member fails instead of
	// landing on disk truncated.
	n, err := io.Copy(out, io.LimitReader(rc, maxFileSize+1))
	if err != nil {
		return errors.Wrap(errors.ErrCodeInvalidArchive, err, "extract %s", f.Name)
	}
	if n > maxFileSize {
		return errors.New(errors.ErrCodeInvalidArchive,
			"archive member %s exceeds %d byte limit", f.Name, maxFileSize)
	}
	return nil
}
