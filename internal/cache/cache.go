// Package cache implements the metadata cache from spec.md §4.L: an
// in-memory, TTL-bounded store of recent local/remote manifests, optionally
// persisted to a JSON file on disk so a restarted process doesn't have to
// rebuild every manifest from scratch. The teacher persists file state as
// SQLite rows (internal/storage/database.go); this is a lighter-weight
// sibling for the specific "last known manifest per root" cache spec.md
// §4.L and §6 describe, expressed as plain encoding/json + os instead.
package cache

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/scottgl9/android-google-drive-sync-sub001/pkg/types"
)

type entry struct {
	Manifest *types.Manifest `json:"manifest"`
	StoredAt time.Time       `json:"stored_at"`
}

// Cache holds the most recently observed manifest for each key
// ("local:<root>" or "remote:<root>"), evicting entries older than the
// configured MaxAge and capping total entries at MaxEntries.
type Cache struct {
	policy   types.CachePolicy
	diskPath string

	mu      sync.Mutex
	entries map[string]entry
	order   []string // insertion order, for MaxEntries eviction
}

// New returns a Cache governed by policy. diskPath may be empty to disable
// persistence.
func New(policy types.CachePolicy, diskPath string) *Cache {
	return &Cache{
		policy:   policy,
		diskPath: diskPath,
		entries:  make(map[string]entry),
	}
}

// LocalKey returns the cache key for a local sync root.
func LocalKey(root string) string { return "local:" + root }

// RemoteKey returns the cache key for a remote sync root.
func RemoteKey(root string) string { return "remote:" + root }

// Get returns the cached manifest for key if present and not expired.
func (c *Cache) Get(key string, now time.Time) (*types.Manifest, bool) {
	if !c.policy.Enabled {
		return nil, false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if c.policy.MaxAge > 0 && now.Sub(e.StoredAt) > c.policy.MaxAge {
		delete(c.entries, key)
		for i, k := range c.order {
			if k == key {
				c.order = append(c.order[:i], c.order[i+1:]...)
				break
			}
		}
		return nil, false
	}
	return e.Manifest, true
}

// Put stores manifest under key, evicting the oldest entry if MaxEntries
// would otherwise be exceeded.
func (c *Cache) Put(key string, manifest *types.Manifest, now time.Time) {
	if !c.policy.Enabled {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; !exists {
		c.order = append(c.order, key)
	}
	c.entries[key] = entry{Manifest: manifest, StoredAt: now}

	if c.policy.MaxEntries > 0 {
		for len(c.order) > c.policy.MaxEntries {
			oldest := c.order[0]
			c.order = c.order[1:]
			delete(c.entries, oldest)
		}
	}
}

// Invalidate removes key from the cache.
func (c *Cache) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}

type diskFormat struct {
	Entries map[string]entry `json:"entries"`
}

// SaveToDisk writes the cache's current contents to diskPath as JSON. A
// no-op if diskPath is empty.
func (c *Cache) SaveToDisk() error {
	if c.diskPath == "" {
		return nil
	}

	c.mu.Lock()
	snapshot := diskFormat{Entries: make(map[string]entry, len(c.entries))}
	for k, v := range c.entries {
		snapshot.Entries[k] = v
	}
	c.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(c.diskPath), 0o755); err != nil {
		return err
	}

	encoded, err := json.Marshal(snapshot)
	if err != nil {
		return err
	}

	tmp := c.diskPath + ".tmp"
	if err := os.WriteFile(tmp, encoded, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, c.diskPath)
}

// LoadFromDisk populates the cache from a prior SaveToDisk. Missing file is
// not an error.
func (c *Cache) LoadFromDisk() error {
	if c.diskPath == "" {
		return nil
	}

	raw, err := os.ReadFile(c.diskPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	var loaded diskFormat
	if err := json.Unmarshal(raw, &loaded); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = loaded.Entries
	c.order = c.order[:0]
	for k := range loaded.Entries {
		c.order = append(c.order, k)
	}
	return nil
}
