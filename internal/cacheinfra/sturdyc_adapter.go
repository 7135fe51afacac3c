package cacheinfra

import (
	"time"

	"github.com/puzpuzpuz/xsync/v3"
	"github.com/viccon/sturdyc"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// clientTTL is handed to sturdyc. Expiry is tracked per entry in the
// envelope instead, so the client level TTL only has to outlive any entry.
const clientTTL = 100 * 365 * 24 * time.Hour

// envelope wraps stored values with their own expiry so the sharded store
// can honour per-entry TTLs on top of sturdyc's single client TTL.
type envelope struct {
	value     any
	expiresAt time.Time
}

// ShardedStore implements the store contract on top of a sturdyc client.
//
// Differences from LRUStore:
//   - eviction is sturdyc's: when a shard is full it drops EvictionPercentage
//     of its entries (at least one). Shards hold MaxSize/NumShards entries
//     each, so the store never exceeds MaxSize but may fill up to
//     MaxSize mod NumShards entries short of it
//   - Keys is unordered
//   - Evictions is not reported
type ShardedStore struct {
	client     *sturdyc.Client[any]
	maxSize    int
	defaultTTL time.Duration

	hits        *xsync.Counter
	misses      *xsync.Counter
	expirations *xsync.Counter

	flight singleflight.Group

	now    func() time.Time
	logger *zap.Logger
}

// NewShardedStore validates cfg and creates a sturdyc backed store.
func NewShardedStore(cfg Config, opts ...Option) (*ShardedStore, error) {
	cfg.Backend = BackendSharded
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := buildOptions(opts)

	client := sturdyc.New[any](
		cfg.MaxSize,
		cfg.NumShards,
		clientTTL,
		cfg.EvictionPercentage,
	)

	return &ShardedStore{
		client:      client,
		maxSize:     cfg.MaxSize,
		defaultTTL:  cfg.DefaultTTL,
		hits:        xsync.NewCounter(),
		misses:      xsync.NewCounter(),
		expirations: xsync.NewCounter(),
		now:         o.now,
		logger:      o.logger,
	}, nil
}

// Get returns the value stored under key, expiring it lazily.
func (s *ShardedStore) Get(key string) (any, bool) {
	raw, ok := s.client.Get(key)
	if !ok {
		s.misses.Inc()
		return nil, false
	}

	env, ok := raw.(envelope)
	if !ok || expired(env.expiresAt, s.now()) {
		s.client.Delete(key)
		s.expirations.Inc()
		s.misses.Inc()
		return nil, false
	}

	s.hits.Inc()
	return env.value, true
}

// Flight returns the group that deduplicates concurrent loads into this store.
func (s *ShardedStore) Flight() *singleflight.Group {
	return &s.flight
}

// Has reports whether key holds a live entry without touching stats.
func (s *ShardedStore) Has(key string) bool {
	raw, ok := s.client.Get(key)
	if !ok {
		return false
	}
	env, ok := raw.(envelope)
	return ok && !expired(env.expiresAt, s.now())
}

// Set stores value using the default TTL.
func (s *ShardedStore) Set(key string, value any) {
	s.SetWithTTL(key, value, -1)
}

// SetWithTTL stores value under key. A zero ttl never expires and a negative
// ttl falls back to the store default.
func (s *ShardedStore) SetWithTTL(key string, value any, ttl time.Duration) {
	s.client.Set(key, envelope{
		value:     value,
		expiresAt: expiryFor(s.now(), effectiveTTL(ttl, s.defaultTTL)),
	})
}

// LoadBulk stores every entry with the same TTL.
func (s *ShardedStore) LoadBulk(entries []Entry, ttl time.Duration) {
	for _, entry := range entries {
		s.SetWithTTL(entry.Key, entry.Value, ttl)
	}
}

// Delete removes key from the cache.
func (s *ShardedStore) Delete(key string) {
	s.client.Delete(key)
}

// InvalidatePattern removes all keys matching the glob pattern.
func (s *ShardedStore) InvalidatePattern(pattern string) (int, error) {
	re, err := CompilePattern(pattern)
	if err != nil {
		return 0, err
	}

	count := 0
	for _, key := range s.client.ScanKeys() {
		if re.MatchString(key) {
			s.client.Delete(key)
			count++
		}
	}

	if count > 0 {
		s.logger.Debug("invalidated cache entries",
			zap.String("pattern", pattern),
			zap.Int("count", count),
		)
	}

	return count, nil
}

// Clear removes every key. Counters are kept.
func (s *ShardedStore) Clear() {
	for _, key := range s.client.ScanKeys() {
		s.client.Delete(key)
	}
}

// Keys returns the stored keys in no particular order.
func (s *ShardedStore) Keys() []string {
	return s.client.ScanKeys()
}

// Stats returns a snapshot of the store counters.
func (s *ShardedStore) Stats() Stats {
	hits := uint64(s.hits.Value())
	misses := uint64(s.misses.Value())

	return Stats{
		Size:        s.client.Size(),
		MaxSize:     s.maxSize,
		Hits:        hits,
		Misses:      misses,
		Expirations: uint64(s.expirations.Value()),
		HitRate:     formatHitRate(hits, misses),
	}
}
