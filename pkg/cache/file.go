package cache

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"time"
)

// FileCache stores cached artifacts under a local directory, one entry
// per key. Payload archives dominate the cache by size, so entry data is
// kept as raw bytes on disk (a cached payload zip stays directly
// inspectable) with a small JSON sidecar carrying the expiry.
type FileCache struct {
	dir string
}

// NewFileCache creates a file cache rooted at dir, creating it if needed.
func NewFileCache(dir string) (Cache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &FileCache{dir: dir}, nil
}

// entryMeta is the sidecar written next to each entry's data file.
type entryMeta struct {
	// ExpiresAt is zero for entries without expiry.
	ExpiresAt time.Time `json:"expires_at"`
}

// Get returns the cached bytes for key. Expired or corrupt entries are
// removed and reported as a miss.
func (c *FileCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	dataPath, metaPath := c.entryPaths(key)

	raw, err := os.ReadFile(metaPath)
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var meta entryMeta
	if err := json.Unmarshal(raw, &meta); err != nil {
		c.removeEntry(dataPath, metaPath)
		return nil, false, nil
	}
	if !meta.ExpiresAt.IsZero() && time.Now().After(meta.ExpiresAt) {
		c.removeEntry(dataPath, metaPath)
		return nil, false, nil
	}

	data, err := os.ReadFile(dataPath)
	if os.IsNotExist(err) {
		c.removeEntry(dataPath, metaPath)
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

// Set stores data under key. A non-positive TTL stores it without expiry;
// callers normally pass one of the TTL classes defined in this package
// (TTLArchive, TTLDataset, TTLReport).
func (c *FileCache) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	dataPath, metaPath := c.entryPaths(key)
	if err := os.MkdirAll(filepath.Dir(dataPath), 0o755); err != nil {
		return err
	}

	var meta entryMeta
	if ttl > 0 {
		meta.ExpiresAt = time.Now().Add(ttl)
	}
	raw, err := json.Marshal(meta)
	if err != nil {
		return err
	}

	// Data first: an entry missing its sidecar reads as a miss, never as
	// a corrupt hit.
	if err := os.WriteFile(dataPath, data, 0o644); err != nil {
		return err
	}
	return os.WriteFile(metaPath, raw, 0o644)
}

// Delete removes the entry for key, if present.
func (c *FileCache) Delete(ctx context.Context, key string) error {
	dataPath, metaPath := c.entryPaths(key)
	c.removeEntry(dataPath, metaPath)
	return nil
}

// Close does nothing for the file cache.
func (c *FileCache) Close() error { return nil }

func (c *FileCache) removeEntry(dataPath, metaPath string) {
	_ = os.Remove(dataPath)
	_ = os.Remove(metaPath)
}

// entryPaths maps a key to its data and sidecar files, fanned out over
// hashed subdirectories so large payload caches stay navigable.
func (c *FileCache) entryPaths(key string) (string, string) {
	hash := Hash([]byte(key))
	base := filepath.Join(c.dir, hash[:2], hash[2:])
	return base + ".bin", base + ".meta"
}

// Ensure FileCache implements Cache.
var _ Cache = (*FileCache)(nil)
