package font

import (
	"sync"
	"sync/atomic"

	"github.com/go-text/typesetting/language"
	"golang.org/x/image/math/fixed"
)

// numShards is the number of cache shards for reduced lock contention.
const numShards = 16

// RunCacheConfig holds configuration for RunCache.
type RunCacheConfig struct {
	// MaxEntries is the maximum number of cached shaped runs.
	// Default: 4096
	MaxEntries int

	// FrameLifetime is the number of frames an entry can go unused
	// before Maintain() evicts it. Default: 64
	FrameLifetime int
}

// DefaultRunCacheConfig returns the default cache configuration.
func DefaultRunCacheConfig() RunCacheConfig {
	return RunCacheConfig{
		MaxEntries:    4096,
		FrameLifetime: 64,
	}
}

// runKey uniquely identifies a shaped run. Text is the run's runes as a
// string so keys are comparable and hashable.
type runKey struct {
	face   uint32
	size   fixed.Int26_6
	script language.Script
	rtl    bool
	text   string
}

type runEntry struct {
	key    runKey
	glyphs []ShapedGlyph

	// prev and next for the LRU doubly-linked list
	prev *runEntry
	next *runEntry

	lastAccessFrame uint64
}

// RunCache is a thread-safe LRU cache for shaped glyph runs. Rebuilding a
// frame shapes every dirty row; rows rarely change between frames, so the
// cache turns most shaping calls into a map lookup.
//
// The cache is sharded to reduce lock contention. It evicts on capacity
// and, during Maintain(), on frame age.
type RunCache struct {
	shards [numShards]*runShard
	config RunCacheConfig

	currentFrame atomic.Uint64

	stats RunCacheStats
}

type runShard struct {
	mu sync.RWMutex

	entries map[runKey]*runEntry

	// head is most recently used, tail least.
	head *runEntry
	tail *runEntry

	maxEntries int
	count      int
}

// RunCacheStats holds cache statistics.
type RunCacheStats struct {
	Hits       atomic.Uint64
	Misses     atomic.Uint64
	Evictions  atomic.Uint64
	Insertions atomic.Uint64
}

// NewRunCache creates a run cache with default configuration.
func NewRunCache() *RunCache {
	return NewRunCacheWithConfig(DefaultRunCacheConfig())
}

// NewRunCacheWithConfig creates a run cache with the given configuration.
func NewRunCacheWithConfig(config RunCacheConfig) *RunCache {
	if config.MaxEntries <= 0 {
		config.MaxEntries = 4096
	}
	if config.FrameLifetime <= 0 {
		config.FrameLifetime = 64
	}

	c := &RunCache{config: config}

	entriesPerShard := (config.MaxEntries + numShards - 1) / numShards
	for i := 0; i < numShards; i++ {
		c.shards[i] = &runShard{
			entries:    make(map[runKey]*runEntry, entriesPerShard),
			maxEntries: entriesPerShard,
		}
	}
	return c
}

// GetOrCreate returns the cached glyphs for key, shaping them with create
// on a miss. A nil result from create is counted as a miss and not cached.
func (c *RunCache) GetOrCreate(key runKey, create func() []ShapedGlyph) []ShapedGlyph {
	shard := c.getShard(key)
	frame := c.currentFrame.Load()

	shard.mu.RLock()
	if _, ok := shard.entries[key]; ok {
		shard.mu.RUnlock()
		shard.mu.Lock()
		if entry, ok := shard.entries[key]; ok {
			entry.lastAccessFrame = frame
			shard.moveToFront(entry)
			glyphs := entry.glyphs
			shard.mu.Unlock()
			c.stats.Hits.Add(1)
			return glyphs
		}
		shard.mu.Unlock()
	} else {
		shard.mu.RUnlock()
	}

	if create == nil {
		c.stats.Misses.Add(1)
		return nil
	}
	glyphs := create()
	if glyphs == nil {
		c.stats.Misses.Add(1)
		return nil
	}
	c.set(key, glyphs)
	return glyphs
}

func (c *RunCache) set(key runKey, glyphs []ShapedGlyph) {
	shard := c.getShard(key)
	frame := c.currentFrame.Load()

	shard.mu.Lock()
	defer shard.mu.Unlock()

	if existing, ok := shard.entries[key]; ok {
		existing.glyphs = glyphs
		existing.lastAccessFrame = frame
		shard.moveToFront(existing)
		return
	}

	entry := &runEntry{
		key:             key,
		glyphs:          glyphs,
		lastAccessFrame: frame,
	}

	for shard.count >= shard.maxEntries && shard.tail != nil {
		shard.removeTail()
		c.stats.Evictions.Add(1)
	}

	shard.entries[key] = entry
	shard.addToFront(entry)
	shard.count++
	c.stats.Insertions.Add(1)
}

// Clear removes all entries from the cache.
func (c *RunCache) Clear() {
	for i := 0; i < numShards; i++ {
		shard := c.shards[i]
		shard.mu.Lock()
		shard.entries = make(map[runKey]*runEntry, shard.maxEntries)
		shard.head = nil
		shard.tail = nil
		shard.count = 0
		shard.mu.Unlock()
	}
}

// Maintain advances the frame counter and evicts entries unused for
// FrameLifetime frames. Call once per rendered frame.
func (c *RunCache) Maintain() {
	frame := c.currentFrame.Add(1)
	frameLifetime := max(c.config.FrameLifetime, 1)

	frameLifetimeU64 := uint64(frameLifetime) //nolint:gosec // validated >= 1 above
	if frame < frameLifetimeU64 {
		return
	}
	threshold := frame - frameLifetimeU64

	for i := 0; i < numShards; i++ {
		shard := c.shards[i]
		shard.mu.Lock()

		// Walk from tail (oldest) and evict stale entries.
		entry := shard.tail
		for entry != nil && entry.lastAccessFrame < threshold {
			prev := entry.prev
			delete(shard.entries, entry.key)
			shard.remove(entry)
			shard.count--
			c.stats.Evictions.Add(1)
			entry = prev
		}

		shard.mu.Unlock()
	}
}

// Len returns the total number of cached runs.
func (c *RunCache) Len() int {
	total := 0
	for i := 0; i < numShards; i++ {
		shard := c.shards[i]
		shard.mu.RLock()
		total += shard.count
		shard.mu.RUnlock()
	}
	return total
}

// Stats returns cache statistics.
func (c *RunCache) Stats() (hits, misses, evictions, insertions uint64) {
	return c.stats.Hits.Load(),
		c.stats.Misses.Load(),
		c.stats.Evictions.Load(),
		c.stats.Insertions.Load()
}

// HitRate returns the cache hit rate as a percentage.
func (c *RunCache) HitRate() float64 {
	hits := c.stats.Hits.Load()
	misses := c.stats.Misses.Load()
	total := hits + misses
	if total == 0 {
		return 0
	}
	return float64(hits) / float64(total) * 100
}

// getShard hashes the key across shards with FNV-1a.
func (c *RunCache) getShard(key runKey) *runShard {
	const (
		offset64 = 14695981039346656037
		prime64  = 1099511628211
	)
	h := uint64(offset64)
	h = (h ^ uint64(key.face)) * prime64
	h = (h ^ uint64(uint32(key.size))) * prime64 //#nosec G115 -- hash only
	h = (h ^ uint64(key.script)) * prime64
	if key.rtl {
		h = (h ^ 1) * prime64
	}
	for i := 0; i < len(key.text); i++ {
		h = (h ^ uint64(key.text[i])) * prime64
	}
	return c.shards[h%numShards]
}

func (s *runShard) addToFront(entry *runEntry) {
	entry.prev = nil
	entry.next = s.head

	if s.head != nil {
		s.head.prev = entry
	}
	s.head = entry

	if s.tail == nil {
		s.tail = entry
	}
}

func (s *runShard) moveToFront(entry *runEntry) {
	if entry == s.head {
		return
	}
	s.remove(entry)
	s.addToFront(entry)
}

// remove unlinks an entry from the LRU list (does not delete from map).
func (s *runShard) remove(entry *runEntry) {
	if entry == nil {
		return
	}

	if entry.prev != nil {
		entry.prev.next = entry.next
	} else {
		s.head = entry.next
	}

	if entry.next != nil {
		entry.next.prev = entry.prev
	} else {
		s.tail = entry.prev
	}

	entry.prev = nil
	entry.next = nil
}

func (s *runShard) removeTail() *runEntry {
	if s.tail == nil {
		return nil
	}
	entry := s.tail
	delete(s.entries, entry.key)
	s.remove(entry)
	s.count--
	return entry
}
