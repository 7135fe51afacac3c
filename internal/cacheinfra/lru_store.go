package cacheinfra

import (
	"container/list"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// LRUStore is a bounded key/value store with per-entry TTL and
// least-recently-used eviction.
//
// A map gives O(1) lookup and a doubly linked list keeps recency order
// (front = most recently used). Each list element carries the value and its
// expiry, so removing the element drops every piece of bookkeeping at once.
//
// Expiry is lazy: expired entries stay in memory until a Get touches them,
// they are evicted, or a pattern invalidation matches them.
type LRUStore struct {
	mu sync.Mutex

	maxSize    int
	defaultTTL time.Duration
	items      map[string]*list.Element
	order      *list.List

	hits        uint64
	misses      uint64
	evictions   uint64
	expirations uint64

	// flight collapses concurrent loads of one key into this store.
	flight singleflight.Group

	now    func() time.Time
	logger *zap.Logger
}

type lruEntry struct {
	key       string
	value     any
	expiresAt time.Time
}

// NewLRUStore validates cfg and returns an empty store.
func NewLRUStore(cfg Config, opts ...Option) (*LRUStore, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := buildOptions(opts)

	return &LRUStore{
		maxSize:    cfg.MaxSize,
		defaultTTL: cfg.DefaultTTL,
		items:      make(map[string]*list.Element, cfg.MaxSize),
		order:      list.New(),
		now:        o.now,
		logger:     o.logger,
	}, nil
}

// Get returns the value stored under key. The boolean is false when the key
// is absent or expired, which keeps a cached nil distinguishable from a miss.
func (s *LRUStore) Get(key string) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	el, ok := s.items[key]
	if !ok {
		s.misses++
		return nil, false
	}

	e := el.Value.(*lruEntry)
	if expired(e.expiresAt, s.now()) {
		s.removeElement(el)
		s.expirations++
		s.misses++
		return nil, false
	}

	s.order.MoveToFront(el)
	s.hits++
	return e.value, true
}

// Flight returns the group that deduplicates concurrent loads into this store.
func (s *LRUStore) Flight() *singleflight.Group {
	return &s.flight
}

// Has reports whether key holds a live entry. It does not touch recency or stats.
func (s *LRUStore) Has(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	el, ok := s.items[key]
	if !ok {
		return false
	}
	return !expired(el.Value.(*lruEntry).expiresAt, s.now())
}

// Set stores value using the default TTL.
func (s *LRUStore) Set(key string, value any) {
	s.SetWithTTL(key, value, -1)
}

// SetWithTTL stores value under key. A zero ttl never expires and a negative
// ttl falls back to the store default.
func (s *LRUStore) SetWithTTL(key string, value any, ttl time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.setLocked(key, value, ttl)
}

func (s *LRUStore) setLocked(key string, value any, ttl time.Duration) {
	// Replacing a key must never count as a new insertion.
	if el, ok := s.items[key]; ok {
		s.removeElement(el)
	}

	if len(s.items) >= s.maxSize {
		s.evictOldest()
	}

	now := s.now()
	e := &lruEntry{
		key:       key,
		value:     value,
		expiresAt: expiryFor(now, effectiveTTL(ttl, s.defaultTTL)),
	}
	s.items[key] = s.order.PushFront(e)
}

// LoadBulk stores every entry with the same TTL.
func (s *LRUStore) LoadBulk(entries []Entry, ttl time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, entry := range entries {
		s.setLocked(entry.Key, entry.Value, ttl)
	}
}

// Delete removes key. Deleting a missing key is a no-op.
func (s *LRUStore) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if el, ok := s.items[key]; ok {
		s.removeElement(el)
	}
}

// InvalidatePattern removes every stored key matching the glob pattern and
// returns how many were removed.
func (s *LRUStore) InvalidatePattern(pattern string) (int, error) {
	re, err := CompilePattern(pattern)
	if err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var matched []*list.Element
	for key, el := range s.items {
		if re.MatchString(key) {
			matched = append(matched, el)
		}
	}

	for _, el := range matched {
		s.removeElement(el)
	}

	if len(matched) > 0 {
		s.logger.Debug("invalidated cache entries",
			zap.String("pattern", pattern),
			zap.Int("count", len(matched)),
		)
	}

	return len(matched), nil
}

// Clear drops all entries. Hit and miss counters are kept.
func (s *LRUStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items = make(map[string]*list.Element, s.maxSize)
	s.order.Init()
}

// Keys returns stored keys from most to least recently used.
func (s *LRUStore) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	keys := make([]string, 0, s.order.Len())
	for el := s.order.Front(); el != nil; el = el.Next() {
		keys = append(keys, el.Value.(*lruEntry).key)
	}
	return keys
}

// Stats returns a snapshot of the store counters.
func (s *LRUStore) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	return Stats{
		Size:        len(s.items),
		MaxSize:     s.maxSize,
		Hits:        s.hits,
		Misses:      s.misses,
		Evictions:   s.evictions,
		Expirations: s.expirations,
		HitRate:     formatHitRate(s.hits, s.misses),
	}
}

// evictOldest drops the least recently used entry (must be called with lock held).
func (s *LRUStore) evictOldest() {
	el := s.order.Back()
	if el == nil {
		return
	}

	key := el.Value.(*lruEntry).key
	s.removeElement(el)
	s.evictions++

	s.logger.Debug("evicted cache entry", zap.String("key", key))
}

// removeElement unlinks an entry from the map and the recency list (must be called with lock held).
func (s *LRUStore) removeElement(el *list.Element) {
	e := el.Value.(*lruEntry)
	s.order.Remove(el)
	delete(s.items, e.key)
}
