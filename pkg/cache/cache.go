// Package cache provides pluggable byte caching for the extractor.
//
// The cache sits in front of the payload downloader so repeated extraction
// runs do not re-fetch the vendor archive from the CDN. Three backends are
// provided: a file cache for CLI usage, a Redis cache for shared
// environments, and a null cache that disables caching entirely.
//
// Cache contents never feed the core classification: license verdicts and
// package statuses are recomputed from scratch every run.
package cache

import (
	"context"
	"time"
)

// TTLs for the different cached artifact classes.
const (
	// TTLArchive is how long downloaded payload archives are kept.
	TTLArchive = 24 * time.Hour

	// TTLDataset is how long the reference license dataset is kept.
	TTLDataset = 7 * 24 * time.Hour

	// TTLReport is how long rendered report artifacts are kept.
	TTLReport = time.Hour
)

// Cache is the interface all backends implement.
// Get returns (data, hit, error); a miss is not an error.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Keyer generates cache keys for the extractor's artifact classes.
// Implementations must be deterministic: the same inputs always produce
// the same key.
type Keyer interface {
	// ArchiveKey generates a key for a downloaded payload archive.
	ArchiveKey(url, version string) string
	// DatasetKey generates a key for a reference license dataset.
	DatasetKey(source string) string
	// ReportKey generates a key for a rendered report artifact.
	ReportKey(runHash, format string) string
}

// DefaultKeyer is the standard key generator.
type DefaultKeyer struct{}

// NewDefaultKeyer creates the standard key generator.
func NewDefaultKeyer() Keyer { return &DefaultKeyer{} }

// ArchiveKey generates a key for a downloaded payload archive.
func (k *DefaultKeyer) ArchiveKey(url, version string) string {
	return hashKey("archive", url, version)
}

// DatasetKey generates a key for a reference license dataset.
func (k *DefaultKeyer) DatasetKey(source string) string {
	return hashKey("dataset", source)
}

// ReportKey generates a key for a rendered report artifact.
func (k *DefaultKeyer) ReportKey(runHash, format string) string {
	return hashKey("report", runHash, format)
}

// ScopedKeyer wraps a Keyer with a prefix so multiple extraction targets
// can share one backend without colliding.
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer with a prefix.
// The prefix is prepended to all generated keys.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{inner: inner, prefix: prefix}
}

// ArchiveKey generates a prefixed archive key.
func (k *ScopedKeyer) ArchiveKey(url, version string) string {
	return k.prefix + k.inner.ArchiveKey(url, version)
}

// DatasetKey generates a prefixed dataset key.
func (k *ScopedKeyer) DatasetKey(source string) string {
	return k.prefix + k.inner.DatasetKey(source)
}

// ReportKey generates a prefixed report key.
func (k *ScopedKeyer) ReportKey(runHash, format string) string {
	return k.prefix + k.inner.ReportKey(runHash, format)
}
