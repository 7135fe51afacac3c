package cacheinfra

import (
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Entry is a key/value pair used for bulk loads.
type Entry struct {
	Key   string
	Value any
}

// Stats is a point in time snapshot of store counters.
type Stats struct {
	Size        int    `json:"size"`
	MaxSize     int    `json:"maxSize"`
	Hits        uint64 `json:"hits"`
	Misses      uint64 `json:"misses"`
	Evictions   uint64 `json:"evictions"`
	Expirations uint64 `json:"expirations"`
	HitRate     string `json:"hitRate"`
}

// Option configures a store.
type Option func(*options)

type options struct {
	logger *zap.Logger
	now    func() time.Time
}

// WithLogger sets the logger used for eviction and invalidation debug output.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithClock overrides the time source. Used by tests to drive TTL expiry.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{
		logger: zap.NewNop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// formatHitRate renders hits/(hits+misses) as a percentage with two decimals.
func formatHitRate(hits, misses uint64) string {
	total := hits + misses
	if total == 0 {
		return "0%"
	}
	return fmt.Sprintf("%.2f%%", float64(hits)/float64(total)*100)
}

// effectiveTTL resolves a per call TTL against the store default.
// Negative means "not given".
func effectiveTTL(ttl, defaultTTL time.Duration) time.Duration {
	if ttl < 0 {
		return defaultTTL
	}
	return ttl
}

// expiryFor returns the absolute expiry, zero when the entry never expires.
func expiryFor(now time.Time, ttl time.Duration) time.Time {
	if ttl <= 0 {
		return time.Time{}
	}
	return now.Add(ttl)
}

func expired(expiresAt, now time.Time) bool {
	return !expiresAt.IsZero() && now.After(expiresAt)
}
