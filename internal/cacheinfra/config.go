package cacheinfra

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Backend selects the store implementation.
type Backend string

const (
	// BackendLRU is the exact LRU store with per-entry TTL.
	BackendLRU Backend = "lru"
	// BackendSharded is the sturdyc backed store. Eviction is approximate.
	BackendSharded Backend = "sharded"
)

// Config holds the configuration shared by the store implementations.
type Config struct {
	// MaxSize is the maximum number of live entries. Must be greater than 0.
	MaxSize int

	// DefaultTTL applies to entries stored without an explicit TTL.
	// Zero means entries never expire. Must be non-negative.
	DefaultTTL time.Duration

	// Backend selects the implementation. Empty means BackendLRU.
	Backend Backend

	// NumShards is only used by BackendSharded. Each shard holds
	// MaxSize/NumShards entries, so it may not exceed MaxSize.
	NumShards int

	// EvictionPercentage is only used by BackendSharded. Must be between 1-100.
	EvictionPercentage int
}

// DefaultConfig returns the defaults used by the inventory services.
func DefaultConfig() Config {
	return Config{
		MaxSize:            500,
		DefaultTTL:         5 * time.Minute,
		Backend:            BackendLRU,
		NumShards:          16,
		EvictionPercentage: 10,
	}
}

// Validate checks if the configuration values are valid.
// Returns a *ConfigError naming the first invalid field.
func (c Config) Validate() error {
	sharded := c.Backend == BackendSharded

	checks := []struct {
		field string
		value any
		rules []validation.Rule
	}{
		{"MaxSize", c.MaxSize, []validation.Rule{validation.Required, validation.Min(1)}},
		{"DefaultTTL", c.DefaultTTL, []validation.Rule{validation.Min(time.Duration(0))}},
		{"Backend", c.Backend, []validation.Rule{validation.In(BackendLRU, BackendSharded)}},
		{"NumShards", c.NumShards, []validation.Rule{
			validation.When(sharded,
				validation.Required,
				validation.Min(1),
				validation.Max(c.MaxSize).Error("must not exceed MaxSize"),
			),
		}},
		{"EvictionPercentage", c.EvictionPercentage, []validation.Rule{
			validation.When(sharded, validation.Required, validation.Min(1), validation.Max(100)),
		}},
	}

	for _, check := range checks {
		if err := validation.Validate(check.value, check.rules...); err != nil {
			return &ConfigError{Field: check.field, Message: err.Error()}
		}
	}

	return nil
}

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return "config error in field " + e.Field + ": " + e.Message
}
