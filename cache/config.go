package cache

import (
	"time"

	"github.com/goliatone/go-inventory-cache/internal/cacheinfra"
	"go.uber.org/zap"
)

// Backend selects the store implementation built by NewStore.
type Backend = cacheinfra.Backend

const (
	// BackendLRU is the exact LRU store with per-entry TTL. This is the default.
	BackendLRU = cacheinfra.BackendLRU
	// BackendSharded is backed by sturdyc; eviction is approximate.
	BackendSharded = cacheinfra.BackendSharded
)

// ConfigError is returned when a Config fails validation.
type ConfigError = cacheinfra.ConfigError

// Config exposes store configuration options for consumers of the cache package.
type Config struct {
	MaxSize            int
	DefaultTTL         time.Duration
	Backend            Backend
	NumShards          int
	EvictionPercentage int
}

// DefaultConfig returns a Config populated with the service defaults:
// 500 entries, five minute TTL, LRU backend.
func DefaultConfig() Config {
	return convertFromInternal(cacheinfra.DefaultConfig())
}

// Validate checks whether the configuration values are valid.
func (c Config) Validate() error {
	return c.toInternal().Validate()
}

// NewStore constructs the store selected by cfg.Backend.
func NewStore(cfg Config, logger *zap.Logger) (Store, error) {
	internal := cfg.toInternal()
	opts := []cacheinfra.Option{cacheinfra.WithLogger(logger)}

	if internal.Backend == BackendSharded {
		return cacheinfra.NewShardedStore(internal, opts...)
	}
	return cacheinfra.NewLRUStore(internal, opts...)
}

// MustNewStore is like NewStore but panics on an invalid configuration.
func MustNewStore(cfg Config, logger *zap.Logger) Store {
	store, err := NewStore(cfg, logger)
	if err != nil {
		panic(err)
	}
	return store
}

func (c Config) toInternal() cacheinfra.Config {
	backend := c.Backend
	if backend == "" {
		backend = BackendLRU
	}

	return cacheinfra.Config{
		MaxSize:            c.MaxSize,
		DefaultTTL:         c.DefaultTTL,
		Backend:            backend,
		NumShards:          c.NumShards,
		EvictionPercentage: c.EvictionPercentage,
	}
}

func convertFromInternal(cfg cacheinfra.Config) Config {
	return Config{
		MaxSize:            cfg.MaxSize,
		DefaultTTL:         cfg.DefaultTTL,
		Backend:            cfg.Backend,
		NumShards:          cfg.NumShards,
		EvictionPercentage: cfg.EvictionPercentage,
	}
}
