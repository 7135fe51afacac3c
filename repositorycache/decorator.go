package repositorycache

import (
	"context"
	"fmt"
	"reflect"
	"time"

	"github.com/goliatone/go-inventory-cache/cache"
	"github.com/goliatone/go-inventory-cache/invalidation"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/pkg/errors"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

var _ repository.Repository[any] = (*CachedRepository[any])(nil)

// listResult keeps List's records and total under one key.
type listResult[T any] struct {
	Records []T `json:"records"`
	Total   int `json:"total"`
}

// Option configures a CachedRepository.
type Option func(*options)

type options struct {
	keys   *cache.KeyBuilder
	ttl    time.Duration
	logger *zap.Logger
}

// WithKeyBuilder overrides the key builder, e.g. to register extra plurals.
func WithKeyBuilder(keys *cache.KeyBuilder) Option {
	return func(o *options) {
		if keys != nil {
			o.keys = keys
		}
	}
}

// WithTTL sets the TTL for cached reads. Negative uses the store default.
func WithTTL(ttl time.Duration) Option {
	return func(o *options) {
		o.ttl = ttl
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// CachedRepository decorates a base repository for one entity. Reads are
// served cache-aside under the entity namespace, successful writes fire the
// invalidation rules for the entity.
type CachedRepository[T any] struct {
	base         repository.Repository[T]
	store        cache.Store
	invalidation *invalidation.Service
	entity       string
	keys         *cache.KeyBuilder
	ttl          time.Duration
	logger       *zap.Logger
}

// New wraps base for entity. A nil svc builds a service with the default rules
// over store.
func New[T any](base repository.Repository[T], store cache.Store, svc *invalidation.Service, entity string, opts ...Option) *CachedRepository[T] {
	o := options{
		keys:   cache.NewKeyBuilder(),
		ttl:    -1,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	if svc == nil {
		svc = invalidation.NewService(store, nil, invalidation.WithLogger(o.logger))
	}

	return &CachedRepository[T]{
		base:         base,
		store:        store,
		invalidation: svc,
		entity:       entity,
		keys:         o.keys,
		ttl:          o.ttl,
		logger:       o.logger.With(zap.String("entity", entity)),
	}
}

// Entity returns the entity name used for keys and rules.
func (c *CachedRepository[T]) Entity() string {
	return c.entity
}

// Get caches the first match under "<ns>:list:first[:qualifier]".
func (c *CachedRepository[T]) Get(ctx context.Context, criteria ...repository.SelectCriteria) (T, error) {
	parts, ok := c.qualifier(ctx, len(criteria))
	if !ok {
		return c.base.Get(ctx, criteria...)
	}

	key := c.keys.ListKey(c.entity, append([]any{"first"}, parts...)...)
	return cache.GetOrFetch(ctx, c.store, key, c.ttl, func(ctx context.Context) (T, error) {
		return c.base.Get(ctx, criteria...)
	})
}

// GetByID caches under "<ns>:id:<id>[:qualifier]".
func (c *CachedRepository[T]) GetByID(ctx context.Context, id string, criteria ...repository.SelectCriteria) (T, error) {
	parts, ok := c.qualifier(ctx, len(criteria))
	if !ok {
		return c.base.GetByID(ctx, id, criteria...)
	}

	key := c.keys.IDKey(c.entity, append([]any{id}, parts...)...)
	return cache.GetOrFetch(ctx, c.store, key, c.ttl, func(ctx context.Context) (T, error) {
		return c.base.GetByID(ctx, id, criteria...)
	})
}

// List caches records and total together under "<ns>:list:<qualifier>",
// "all" when unqualified.
func (c *CachedRepository[T]) List(ctx context.Context, criteria ...repository.SelectCriteria) ([]T, int, error) {
	parts, ok := c.qualifier(ctx, len(criteria))
	if !ok {
		return c.base.List(ctx, criteria...)
	}

	key := c.keys.ListKey(c.entity, parts...)
	res, err := cache.GetOrFetch(ctx, c.store, key, c.ttl, func(ctx context.Context) (listResult[T], error) {
		records, total, err := c.base.List(ctx, criteria...)
		return listResult[T]{Records: records, Total: total}, err
	})
	if err != nil {
		return nil, 0, err
	}
	return res.Records, res.Total, nil
}

// Count caches under "<ns>:list:count[:qualifier]".
func (c *CachedRepository[T]) Count(ctx context.Context, criteria ...repository.SelectCriteria) (int, error) {
	parts, ok := c.qualifier(ctx, len(criteria))
	if !ok {
		return c.base.Count(ctx, criteria...)
	}

	key := c.keys.ListKey(c.entity, append([]any{"count"}, parts...)...)
	return cache.GetOrFetch(ctx, c.store, key, c.ttl, func(ctx context.Context) (int, error) {
		return c.base.Count(ctx, criteria...)
	})
}

// GetByIdentifier caches under "<ns>:id:identifier:<value>[:qualifier]".
func (c *CachedRepository[T]) GetByIdentifier(ctx context.Context, identifier string, criteria ...repository.SelectCriteria) (T, error) {
	parts, ok := c.qualifier(ctx, len(criteria))
	if !ok {
		return c.base.GetByIdentifier(ctx, identifier, criteria...)
	}

	key := c.keys.IDKey(c.entity, append([]any{"identifier", identifier}, parts...)...)
	return cache.GetOrFetch(ctx, c.store, key, c.ttl, func(ctx context.Context) (T, error) {
		return c.base.GetByIdentifier(ctx, identifier, criteria...)
	})
}

// Create inserts record and fires the CREATE rules on success.
func (c *CachedRepository[T]) Create(ctx context.Context, record T, criteria ...repository.InsertCriteria) (T, error) {
	result, err := c.base.Create(ctx, record, criteria...)
	return result, c.written(ctx, invalidation.TriggerCreate, err)
}

// CreateTx is Create inside tx. Rules fire when the call returns, not on commit.
func (c *CachedRepository[T]) CreateTx(ctx context.Context, tx bun.IDB, record T, criteria ...repository.InsertCriteria) (T, error) {
	result, err := c.base.CreateTx(ctx, tx, record, criteria...)
	return result, c.written(ctx, invalidation.TriggerCreate, err)
}

// CreateMany fires the CREATE rules once for the batch.
func (c *CachedRepository[T]) CreateMany(ctx context.Context, records []T, criteria ...repository.InsertCriteria) ([]T, error) {
	result, err := c.base.CreateMany(ctx, records, criteria...)
	return result, c.written(ctx, invalidation.TriggerCreate, err)
}

// CreateManyTx is CreateMany inside tx.
func (c *CachedRepository[T]) CreateManyTx(ctx context.Context, tx bun.IDB, records []T, criteria ...repository.InsertCriteria) ([]T, error) {
	result, err := c.base.CreateManyTx(ctx, tx, records, criteria...)
	return result, c.written(ctx, invalidation.TriggerCreate, err)
}

// GetOrCreate may insert, so it fires the CREATE rules.
func (c *CachedRepository[T]) GetOrCreate(ctx context.Context, record T) (T, error) {
	result, err := c.base.GetOrCreate(ctx, record)
	return result, c.written(ctx, invalidation.TriggerCreate, err)
}

// GetOrCreateTx is GetOrCreate inside tx.
func (c *CachedRepository[T]) GetOrCreateTx(ctx context.Context, tx bun.IDB, record T) (T, error) {
	result, err := c.base.GetOrCreateTx(ctx, tx, record)
	return result, c.written(ctx, invalidation.TriggerCreate, err)
}

// Update fires the UPDATE rules once the base write succeeds.
func (c *CachedRepository[T]) Update(ctx context.Context, record T, criteria ...repository.UpdateCriteria) (T, error) {
	result, err := c.base.Update(ctx, record, criteria...)
	return result, c.written(ctx, invalidation.TriggerUpdate, err)
}

// UpdateTx is Update inside tx.
func (c *CachedRepository[T]) UpdateTx(ctx context.Context, tx bun.IDB, record T, criteria ...repository.UpdateCriteria) (T, error) {
	result, err := c.base.UpdateTx(ctx, tx, record, criteria...)
	return result, c.written(ctx, invalidation.TriggerUpdate, err)
}

// UpdateMany fires the UPDATE rules once for the batch.
func (c *CachedRepository[T]) UpdateMany(ctx context.Context, records []T, criteria ...repository.UpdateCriteria) ([]T, error) {
	result, err := c.base.UpdateMany(ctx, records, criteria...)
	return result, c.written(ctx, invalidation.TriggerUpdate, err)
}

// UpdateManyTx is UpdateMany inside tx.
func (c *CachedRepository[T]) UpdateManyTx(ctx context.Context, tx bun.IDB, records []T, criteria ...repository.UpdateCriteria) ([]T, error) {
	result, err := c.base.UpdateManyTx(ctx, tx, records, criteria...)
	return result, c.written(ctx, invalidation.TriggerUpdate, err)
}

// Upsert can insert or update; UPDATE rules are a superset of CREATE rules.
func (c *CachedRepository[T]) Upsert(ctx context.Context, record T, criteria ...repository.UpdateCriteria) (T, error) {
	result, err := c.base.Upsert(ctx, record, criteria...)
	return result, c.written(ctx, invalidation.TriggerUpdate, err)
}

// UpsertTx is Upsert inside tx.
func (c *CachedRepository[T]) UpsertTx(ctx context.Context, tx bun.IDB, record T, criteria ...repository.UpdateCriteria) (T, error) {
	result, err := c.base.UpsertTx(ctx, tx, record, criteria...)
	return result, c.written(ctx, invalidation.TriggerUpdate, err)
}

// UpsertMany fires the UPDATE rules once for the batch.
func (c *CachedRepository[T]) UpsertMany(ctx context.Context, records []T, criteria ...repository.UpdateCriteria) ([]T, error) {
	result, err := c.base.UpsertMany(ctx, records, criteria...)
	return result, c.written(ctx, invalidation.TriggerUpdate, err)
}

// UpsertManyTx is UpsertMany inside tx.
func (c *CachedRepository[T]) UpsertManyTx(ctx context.Context, tx bun.IDB, records []T, criteria ...repository.UpdateCriteria) ([]T, error) {
	result, err := c.base.UpsertManyTx(ctx, tx, records, criteria...)
	return result, c.written(ctx, invalidation.TriggerUpdate, err)
}

// Delete fires the DELETE rules once the row is gone.
func (c *CachedRepository[T]) Delete(ctx context.Context, record T) error {
	return c.written(ctx, invalidation.TriggerDelete, c.base.Delete(ctx, record))
}

// DeleteTx is Delete inside tx.
func (c *CachedRepository[T]) DeleteTx(ctx context.Context, tx bun.IDB, record T) error {
	return c.written(ctx, invalidation.TriggerDelete, c.base.DeleteTx(ctx, tx, record))
}

// DeleteMany fires the DELETE rules once, however many rows were removed.
func (c *CachedRepository[T]) DeleteMany(ctx context.Context, criteria ...repository.DeleteCriteria) error {
	return c.written(ctx, invalidation.TriggerDelete, c.base.DeleteMany(ctx, criteria...))
}

// DeleteManyTx is DeleteMany inside tx.
func (c *CachedRepository[T]) DeleteManyTx(ctx context.Context, tx bun.IDB, criteria ...repository.DeleteCriteria) error {
	return c.written(ctx, invalidation.TriggerDelete, c.base.DeleteManyTx(ctx, tx, criteria...))
}

// DeleteWhere fires the DELETE rules once the base call succeeds.
func (c *CachedRepository[T]) DeleteWhere(ctx context.Context, criteria ...repository.DeleteCriteria) error {
	return c.written(ctx, invalidation.TriggerDelete, c.base.DeleteWhere(ctx, criteria...))
}

// DeleteWhereTx is DeleteWhere inside tx.
func (c *CachedRepository[T]) DeleteWhereTx(ctx context.Context, tx bun.IDB, criteria ...repository.DeleteCriteria) error {
	return c.written(ctx, invalidation.TriggerDelete, c.base.DeleteWhereTx(ctx, tx, criteria...))
}

// ForceDelete bypasses soft delete. Same rules as Delete.
func (c *CachedRepository[T]) ForceDelete(ctx context.Context, record T) error {
	return c.written(ctx, invalidation.TriggerDelete, c.base.ForceDelete(ctx, record))
}

// ForceDeleteTx is ForceDelete inside tx.
func (c *CachedRepository[T]) ForceDeleteTx(ctx context.Context, tx bun.IDB, record T) error {
	return c.written(ctx, invalidation.TriggerDelete, c.base.ForceDeleteTx(ctx, tx, record))
}

// GetTx reads inside a transaction and never touches the cache.
func (c *CachedRepository[T]) GetTx(ctx context.Context, tx bun.IDB, criteria ...repository.SelectCriteria) (T, error) {
	return c.base.GetTx(ctx, tx, criteria...)
}

// GetByIDTx bypasses the cache.
func (c *CachedRepository[T]) GetByIDTx(ctx context.Context, tx bun.IDB, id string, criteria ...repository.SelectCriteria) (T, error) {
	return c.base.GetByIDTx(ctx, tx, id, criteria...)
}

// ListTx bypasses the cache.
func (c *CachedRepository[T]) ListTx(ctx context.Context, tx bun.IDB, criteria ...repository.SelectCriteria) ([]T, int, error) {
	return c.base.ListTx(ctx, tx, criteria...)
}

// CountTx bypasses the cache.
func (c *CachedRepository[T]) CountTx(ctx context.Context, tx bun.IDB, criteria ...repository.SelectCriteria) (int, error) {
	return c.base.CountTx(ctx, tx, criteria...)
}

// GetByIdentifierTx bypasses the cache.
func (c *CachedRepository[T]) GetByIdentifierTx(ctx context.Context, tx bun.IDB, identifier string, criteria ...repository.SelectCriteria) (T, error) {
	return c.base.GetByIdentifierTx(ctx, tx, identifier, criteria...)
}

// Raw queries are never cached.
func (c *CachedRepository[T]) Raw(ctx context.Context, sql string, args ...any) ([]T, error) {
	return c.base.Raw(ctx, sql, args...)
}

// RawTx bypasses the cache.
func (c *CachedRepository[T]) RawTx(ctx context.Context, tx bun.IDB, sql string, args ...any) ([]T, error) {
	return c.base.RawTx(ctx, tx, sql, args...)
}

// Handlers returns the base repository handlers.
func (c *CachedRepository[T]) Handlers() repository.ModelHandlers[T] {
	return c.base.Handlers()
}

// WarmMasters loads every record of the entity into the master list key
// ("masters:<ns>:all") and each record under its id key. A failing source is
// returned to the caller.
func (c *CachedRepository[T]) WarmMasters(ctx context.Context, ttl time.Duration) (int, error) {
	count, err := cache.LoadBulk(ctx, c.store, func(ctx context.Context) ([]cache.Entry, error) {
		records, _, err := c.base.List(ctx)
		if err != nil {
			return nil, err
		}

		entries := make([]cache.Entry, 0, len(records)+1)
		entries = append(entries, cache.Entry{Key: c.keys.MasterKey(c.entity, cache.AllQualifier), Value: records})
		for _, record := range records {
			id, err := extractID(record)
			if err != nil {
				c.logger.Debug("skipping id key during warm up", zap.Error(err))
				continue
			}
			entries = append(entries, cache.Entry{Key: c.keys.IDKey(c.entity, id), Value: record})
		}
		return entries, nil
	}, ttl)
	if err != nil {
		return 0, errors.Wrapf(err, "warm %s masters", c.entity)
	}

	c.logger.Info("master cache warmed", zap.Int("entries", count))
	return count, nil
}

// qualifier returns the key parts for a read and whether it may be cached.
// A read with criteria is cacheable only under an explicit qualifier.
func (c *CachedRepository[T]) qualifier(ctx context.Context, criteria int) ([]any, bool) {
	parts := qualifierFromContext(ctx)
	if criteria > 0 && len(parts) == 0 {
		return nil, false
	}
	return parts, true
}

// written fires trigger when err is nil and passes err through.
func (c *CachedRepository[T]) written(ctx context.Context, trigger invalidation.Trigger, err error) error {
	if err == nil {
		c.invalidate(ctx, trigger)
	}
	return err
}

// invalidate fires the rules for the entity plus any related entities
// carried by ctx. Failures are logged by the service and never returned.
func (c *CachedRepository[T]) invalidate(ctx context.Context, trigger invalidation.Trigger) {
	result := c.invalidation.InvalidateCache(c.entity, trigger)
	if !result.OK() {
		c.logger.Warn("write committed with stale cache", zap.String("trigger", string(trigger)), zap.String("error", result.Error))
	}

	related := relatedEntitiesFromContext(ctx)
	if len(related) == 0 {
		return
	}

	ops := make([]invalidation.Operation, 0, len(related))
	for _, entity := range related {
		if entity == c.entity {
			continue
		}
		ops = append(ops, invalidation.Operation{Entity: entity, Trigger: invalidation.TriggerUpdate})
	}
	c.invalidation.InvalidateMultiple(ops)
}

// extractID reads the ID (or Id) field of a struct or struct pointer.
func extractID(record any) (string, error) {
	v := reflect.ValueOf(record)
	if v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return "", errors.New("nil record")
		}
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return "", errors.Errorf("record of kind %s has no fields", v.Kind())
	}

	for _, fieldName := range []string{"ID", "Id"} {
		field := v.FieldByName(fieldName)
		if field.IsValid() && field.CanInterface() {
			return fmt.Sprintf("%v", field.Interface()), nil
		}
	}
	return "", errors.New("no ID field found in record")
}
