package httputil

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/matzehuels/esmstat/pkg/observability"
)

// ErrExpired is returned by [FileCache.Get] when a cached entry exists but
// has exceeded its time-to-live (TTL).
//
// The stale data is still on disk. Callers should fetch fresh data from the
// source and overwrite the entry with Set:
//
//	ok, err := cache.Get(ctx, "key", &value)
//	if errors.Is(err, httputil.ErrExpired) {
//	    // Fetch fresh data and update cache
//	}
var ErrExpired = errors.New("cache entry expired")

// Cache stores JSON-marshalable values by key.
//
// Get returns (true, nil) on a hit, (false, nil) on a miss and
// (false, ErrExpired) for a stale entry on backends that keep them.
type Cache interface {
	Get(ctx context.Context, key string, v any) (bool, error)
	Set(ctx context.Context, key string, v any) error
}

// DefaultDir returns ~/.cache/esmstat.
func DefaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", "esmstat"), nil
}

// FileCache stores each entry as a JSON file in a directory, named by the
// SHA-256 of its key.
//
// FileCache is not goroutine-safe for writes to the same key, but separate
// keys (and separate processes sharing the directory) are fine. The TTL is
// measured from the file modification time; a TTL of 0 never expires.
//
// Use [FileCache.Namespace] to create scoped views that prefix keys:
//
//	npm := cache.Namespace("npm:")
//	npm.Set(ctx, "react", data)  // key becomes "npm:react"
type FileCache struct {
	dir    string
	ttl    time.Duration
	prefix string
}

// NewFileCache creates a FileCache in dir with the given TTL.
//
// If dir is empty, the default directory ~/.cache/esmstat/ is used. The
// directory is created with mode 0755 if it doesn't exist.
func NewFileCache(dir string, ttl time.Duration) (*FileCache, error) {
	if dir == "" {
		d, err := DefaultDir()
		if err != nil {
			return nil, err
		}
		dir = d
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &FileCache{dir: dir, ttl: ttl}, nil
}

// Dir returns the cache directory.
func (c *FileCache) Dir() string { return c.dir }

// TTL returns the time-to-live for cache entries.
func (c *FileCache) TTL() time.Duration { return c.ttl }

// Get retrieves a cached value by key and unmarshals it into v.
//
//   - (true, nil): hit; v holds the value.
//   - (false, nil): miss; v is unchanged.
//   - (false, ErrExpired): entry exceeded its TTL; v is unchanged.
//   - (false, other error): I/O or JSON error; v may be partially modified.
//
// Get does not update modification times.
func (c *FileCache) Get(ctx context.Context, key string, v any) (bool, error) {
	path := c.keyPath(c.prefix + key)
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		observability.Cache().OnCacheMiss(ctx, "file")
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if c.ttl > 0 && time.Since(info.ModTime()) > c.ttl {
		observability.Cache().OnCacheMiss(ctx, "file")
		return false, ErrExpired
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, err
	}
	observability.Cache().OnCacheHit(ctx, "file")
	return true, nil
}

// Set marshals v to JSON and writes it under key, resetting the entry's TTL.
func (c *FileCache) Set(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if err := os.WriteFile(c.keyPath(c.prefix+key), data, 0o644); err != nil {
		return err
	}
	observability.Cache().OnCacheSet(ctx, "file", len(data))
	return nil
}

// Namespace returns a FileCache that prefixes all keys with prefix. The
// returned cache shares the directory and TTL. Calls can be chained:
//
//	cache.Namespace("registry:").Namespace("npm:")  // prefix: "registry:npm:"
func (c *FileCache) Namespace(prefix string) *FileCache {
	return &FileCache{
		dir:    c.dir,
		ttl:    c.ttl,
		prefix: c.prefix + prefix,
	}
}

// Clear removes every entry in the cache directory and returns how many
// were removed. A missing directory is an empty cache.
func (c *FileCache) Clear() (int, error) {
	entries, err := os.ReadDir(c.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	n := 0
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if err := os.Remove(filepath.Join(c.dir, e.Name())); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

func (c *FileCache) keyPath(key string) string {
	h := sha256.Sum256([]byte(key))
	return filepath.Join(c.dir, hex.EncodeToString(h[:]))
}

// NullCache never stores anything. Every Get is a miss.
type NullCache struct{}

// Get always reports a miss.
func (NullCache) Get(context.Context, string, any) (bool, error) { return false, nil }

// Set discards v.
func (NullCache) Set(context.Context, string, any) error { return nil }

var (
	_ Cache = (*FileCache)(nil)
	_ Cache = NullCache{}
)
