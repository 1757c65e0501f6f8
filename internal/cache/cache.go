// Package cache provides file-based incremental caching of per-file
// analysis results, keyed by content fingerprint.
package cache

import (
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/zeebo/blake3"
)

// SchemaVersion changes whenever the serialized analysis format changes.
// A store written by a different version is discarded wholesale.
const SchemaVersion = "1"

const versionFile = "VERSION"

// Cache stores one JSON entry per analyzed file. A lookup hits only when
// the stored fingerprint matches exactly; anything else is a miss. Any
// corrupt entry or a version mismatch invalidates the whole store, never
// an error: the caller simply reanalyzes.
type Cache struct {
	dir     string
	enabled bool

	mu    sync.RWMutex // guards reset against concurrent entry writes
	locks [64]sync.Mutex
}

// Entry represents a cached analysis result.
type Entry struct {
	Fingerprint string    `json:"fingerprint"`
	Timestamp   time.Time `json:"timestamp"`
	Data        []byte    `json:"data"`
}

// New opens the cache directory, discarding it first if it was written by
// a different schema version.
func New(dir string, enabled bool) (*Cache, error) {
	if !enabled {
		return &Cache{enabled: false}, nil
	}

	c := &Cache{dir: dir, enabled: true}

	data, err := os.ReadFile(filepath.Join(dir, versionFile))
	if err != nil || string(data) != SchemaVersion {
		if err := c.reset(); err != nil {
			return nil, err
		}
		return c, nil
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return c, nil
}

// reset discards every entry and re-stamps the schema version.
func (c *Cache) reset() error {
	if err := os.RemoveAll(c.dir); err != nil {
		return err
	}
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(c.dir, versionFile), []byte(SchemaVersion), 0o600)
}

// HashFile computes a BLAKE3 fingerprint of a file's contents.
func HashFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return HashBytes(data), nil
}

// HashBytes computes a BLAKE3 fingerprint and returns it as a hex string.
func HashBytes(data []byte) string {
	hash := blake3.Sum256(data)
	return hex.EncodeToString(hash[:])
}

// Get retrieves the cached payload for path if the stored fingerprint
// matches. A corrupt entry discards the entire store and reports a miss.
func (c *Cache) Get(path, fingerprint string) ([]byte, bool) {
	if !c.enabled {
		return nil, false
	}

	c.mu.RLock()
	data, err := os.ReadFile(c.keyPath(path))
	c.mu.RUnlock()
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false
		}
		c.discard()
		return nil, false
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		c.discard()
		return nil, false
	}

	if entry.Fingerprint != fingerprint {
		return nil, false
	}
	return entry.Data, true
}

// Put stores the payload for path under its fingerprint.
func (c *Cache) Put(path, fingerprint string, data []byte) error {
	if !c.enabled {
		return nil
	}

	entry := Entry{
		Fingerprint: fingerprint,
		Timestamp:   time.Now(),
		Data:        data,
	}
	entryData, err := json.Marshal(entry)
	if err != nil {
		return err
	}

	key := c.keyPath(path)
	lock := &c.locks[key[len(key)-6]%64]

	c.mu.RLock()
	defer c.mu.RUnlock()
	lock.Lock()
	defer lock.Unlock()
	return os.WriteFile(key, entryData, 0o600)
}

// Invalidate removes the entry for path, if any.
func (c *Cache) Invalidate(path string) error {
	if !c.enabled {
		return nil
	}
	err := os.Remove(c.keyPath(path))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// Prune deletes entries for paths no longer present in the tree.
func (c *Cache) Prune(live map[string]bool) error {
	if !c.enabled {
		return nil
	}

	keep := make(map[string]bool, len(live))
	for path := range live {
		keep[filepath.Base(c.keyPath(path))] = true
	}

	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if e.IsDir() || e.Name() == versionFile {
			continue
		}
		if !keep[e.Name()] {
			os.Remove(filepath.Join(c.dir, e.Name()))
		}
	}
	return nil
}

// Clear removes all cache entries.
func (c *Cache) Clear() error {
	if !c.enabled {
		return nil
	}
	return c.reset()
}

// discard drops the whole store after corruption. Errors are ignored;
// the worst case is a full reanalysis.
func (c *Cache) discard() {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.reset()
}

// keyPath converts a file path to an entry path. The filename is the
// BLAKE3 hash of the path, so arbitrary paths are safe.
func (c *Cache) keyPath(path string) string {
	hash := blake3.Sum256([]byte(path))
	return filepath.Join(c.dir, hex.EncodeToString(hash[:])+".json")
}
