package main

import (
	"strings"
	"time"

	"github.com/goliatone/go-inventory-cache/cache"
	"github.com/goliatone/go-inventory-cache/internal/masters"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const envPrefix = "INVENTORY_CACHE"

type cacheConfig struct {
	MaxSize            int           `mapstructure:"max_size"`
	DefaultTTL         time.Duration `mapstructure:"default_ttl"`
	Backend            string        `mapstructure:"backend"`
	NumShards          int           `mapstructure:"num_shards"`
	EvictionPercentage int           `mapstructure:"eviction_percentage"`
}

type appConfig struct {
	Environment string        `mapstructure:"environment"`
	DSN         string        `mapstructure:"dsn"`
	WarmTTL     time.Duration `mapstructure:"warm_ttl"`
	Cache       cacheConfig   `mapstructure:"cache"`
}

func (c appConfig) storeConfig() cache.Config {
	return cache.Config{
		MaxSize:            c.Cache.MaxSize,
		DefaultTTL:         c.Cache.DefaultTTL,
		Backend:            cache.Backend(c.Cache.Backend),
		NumShards:          c.Cache.NumShards,
		EvictionPercentage: c.Cache.EvictionPercentage,
	}
}

func setDefaults(v *viper.Viper) {
	defaults := cache.DefaultConfig()

	v.SetDefault("environment", "development")
	v.SetDefault("dsn", masters.InMemoryDSN)
	v.SetDefault("warm_ttl", 0)
	v.SetDefault("cache.max_size", defaults.MaxSize)
	v.SetDefault("cache.default_ttl", defaults.DefaultTTL)
	v.SetDefault("cache.backend", string(defaults.Backend))
	v.SetDefault("cache.num_shards", defaults.NumShards)
	v.SetDefault("cache.eviction_percentage", defaults.EvictionPercentage)
}

// loadConfig resolves flags, INVENTORY_CACHE_* env vars, the optional config
// file and defaults, in that order of precedence.
func loadConfig(v *viper.Viper, configFile string) (appConfig, error) {
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return appConfig{}, errors.Wrapf(err, "read config %s", configFile)
		}
	}

	var cfg appConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return appConfig{}, errors.Wrap(err, "decode config")
	}

	if err := cfg.storeConfig().Validate(); err != nil {
		return appConfig{}, err
	}

	return cfg, nil
}

func newLogger(environment string) (*zap.Logger, error) {
	if environment == "production" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}
