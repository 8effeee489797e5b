package cache

import (
	"container/list"
	"sync"
	"time"

	"github.com/astgrepmcp/astgrepmcp/internal/matcher"
)

// Config knobs for QueryCache, per the cache component's configuration
// section.
type Config struct {
	Capacity int           // default 100
	TTL      time.Duration // default 300s
	Enabled  bool
}

// DefaultConfig returns the documented defaults.
func DefaultConfig() Config {
	return Config{Capacity: 100, TTL: 300 * time.Second, Enabled: true}
}

// Stats reports cache counters.
type Stats struct {
	Size      int
	Hits      int64
	Misses    int64
	Evictions int64
}

type entry struct {
	key      uint64
	digest   [32]byte
	value    []matcher.MatchRecord
	storedAt time.Time
	elem     *list.Element
}

// QueryCache is a size- and TTL-bounded map from query fingerprint to
// structural match list. All methods are safe under concurrent readers
// and writers: a single mutex guards every method, Get included, since
// accessing an entry refreshes its recency. Puts are serialized with
// evictions, and gets are serialized with each other as well; they do
// not run in parallel.
type QueryCache struct {
	mu   sync.Mutex
	cfg  Config
	data map[uint64]*entry
	lru  *list.List // front = most recently used

	hits, misses, evictions int64
}

// New creates a QueryCache with the given configuration.
func New(cfg Config) *QueryCache {
	return &QueryCache{
		cfg:  cfg,
		data: make(map[uint64]*entry),
		lru:  list.New(),
	}
}

// Get returns a copy of the stored match list iff present and not
// expired. A hit refreshes recency.
func (c *QueryCache) Get(fp Fingerprint) ([]matcher.MatchRecord, bool) {
	if !c.cfg.Enabled {
		return nil, false
	}
	digest := fp.Digest()
	key := fp.Key()

	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.data[key]
	if !ok || e.digest != digest {
		c.misses++
		return nil, false
	}
	if c.cfg.TTL > 0 && time.Since(e.storedAt) > c.cfg.TTL {
		c.removeLocked(e)
		c.misses++
		return nil, false
	}

	c.lru.MoveToFront(e.elem)
	c.hits++
	out := make([]matcher.MatchRecord, len(e.value))
	copy(out, e.value)
	return out, true
}

// Put stores value under fp's fingerprint, evicting least-recently-used
// entries until the cache is back under capacity.
func (c *QueryCache) Put(fp Fingerprint, value []matcher.MatchRecord) {
	if !c.cfg.Enabled {
		return
	}
	digest := fp.Digest()
	key := fp.Key()
	stored := make([]matcher.MatchRecord, len(value))
	copy(stored, value)

	c.mu.Lock()
	defer c.mu.Unlock()

	if existing, ok := c.data[key]; ok {
		existing.digest = digest
		existing.value = stored
		existing.storedAt = time.Now()
		c.lru.MoveToFront(existing.elem)
		return
	}

	e := &entry{key: key, digest: digest, value: stored, storedAt: time.Now()}
	e.elem = c.lru.PushFront(e)
	c.data[key] = e

	for c.cfg.Capacity > 0 && len(c.data) > c.cfg.Capacity {
		oldest := c.lru.Back()
		if oldest == nil {
			break
		}
		c.removeLocked(oldest.Value.(*entry))
		c.evictions++
	}
}

// removeLocked removes e from both the map and the LRU list. Caller
// must hold c.mu.
func (c *QueryCache) removeLocked(e *entry) {
	delete(c.data, e.key)
	c.lru.Remove(e.elem)
}

// Clear empties the cache.
func (c *QueryCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data = make(map[uint64]*entry)
	c.lru = list.New()
}

// StatsSnapshot returns current counters and size.
func (c *QueryCache) StatsSnapshot() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{
		Size:      len(c.data),
		Hits:      c.hits,
		Misses:    c.misses,
		Evictions: c.evictions,
	}
}
