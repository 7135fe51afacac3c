package di

import (
	"github.com/goliatone/go-inventory-cache/cache"
	"github.com/goliatone/go-inventory-cache/invalidation"
	"github.com/goliatone/go-inventory-cache/repositorycache"
	repository "github.com/goliatone/go-repository-bun"
	"go.uber.org/zap"
)

// Container owns the process wide cache components. There is one store per
// container; every cached repository and the invalidation service share it.
type Container struct {
	store        cache.Store
	keys         *cache.KeyBuilder
	rules        *invalidation.RuleTable
	invalidation *invalidation.Service
	logger       *zap.Logger
	config       cache.Config
}

// Option configures a Container.
type Option func(*containerOptions)

type containerOptions struct {
	logger *zap.Logger
	rules  []invalidation.Rule
	keys   []cache.KeyOption
}

// WithLogger sets the logger handed to every component.
func WithLogger(logger *zap.Logger) Option {
	return func(o *containerOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithRules replaces the default invalidation rule table.
func WithRules(rules []invalidation.Rule) Option {
	return func(o *containerOptions) {
		o.rules = rules
	}
}

// WithKeyOptions forwards options to the key builder.
func WithKeyOptions(opts ...cache.KeyOption) Option {
	return func(o *containerOptions) {
		o.keys = append(o.keys, opts...)
	}
}

// NewContainer validates config and builds the store, key builder, rule
// table and invalidation service.
func NewContainer(config cache.Config, opts ...Option) (*Container, error) {
	o := containerOptions{
		logger: zap.NewNop(),
		rules:  invalidation.DefaultRules(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	store, err := cache.NewStore(config, o.logger.Named("cache"))
	if err != nil {
		return nil, err
	}

	rules := invalidation.NewRuleTable(o.rules)

	return &Container{
		store:        store,
		keys:         cache.NewKeyBuilder(o.keys...),
		rules:        rules,
		invalidation: invalidation.NewService(store, rules, invalidation.WithLogger(o.logger.Named("invalidation"))),
		logger:       o.logger,
		config:       config,
	}, nil
}

// NewContainerWithDefaults creates a new DI container using default configuration.
func NewContainerWithDefaults(opts ...Option) (*Container, error) {
	return NewContainer(cache.DefaultConfig(), opts...)
}

// Store returns the shared cache store.
func (c *Container) Store() cache.Store {
	return c.store
}

// KeyBuilder returns the key builder used by cached repositories.
func (c *Container) KeyBuilder() *cache.KeyBuilder {
	return c.keys
}

// Rules returns the invalidation rule table.
func (c *Container) Rules() *invalidation.RuleTable {
	return c.rules
}

// Invalidation returns the invalidation service bound to Store.
func (c *Container) Invalidation() *invalidation.Service {
	return c.invalidation
}

// Logger returns the root logger.
func (c *Container) Logger() *zap.Logger {
	return c.logger
}

// Config returns a copy of the cache configuration used by this container.
func (c *Container) Config() cache.Config {
	return c.config
}

// NewCachedRepository wraps base for entity with the container's store, key
// builder and invalidation service.
//
// Since Go methods cannot have type parameters, this is provided as a package-level function.
// Example: NewCachedRepository[*masters.Seller](container, sellers, "Seller")
func NewCachedRepository[T any](container *Container, base repository.Repository[T], entity string, opts ...repositorycache.Option) *repositorycache.CachedRepository[T] {
	defaults := []repositorycache.Option{
		repositorycache.WithKeyBuilder(container.keys),
		repositorycache.WithLogger(container.logger.Named("repository")),
	}
	return repositorycache.New(base, container.store, container.invalidation, entity, append(defaults, opts...)...)
}
