package cache

import (
	"context"
	"time"

	"github.com/goliatone/go-inventory-cache/internal/cacheinfra"
	"github.com/pkg/errors"
	"golang.org/x/sync/singleflight"
)

// Flighted is implemented by stores that deduplicate concurrent loads of one
// key. Both built-in stores implement it.
type Flighted interface {
	Flight() *singleflight.Group
}

var (
	_ Flighted = (*cacheinfra.LRUStore)(nil)
	_ Flighted = (*cacheinfra.ShardedStore)(nil)
)

// ErrInvalidResultType is returned when a cached value cannot be asserted to the requested type.
var ErrInvalidResultType = errors.New("cache: invalid result type")

// Entry is a key/value pair for bulk loads.
type Entry = cacheinfra.Entry

// Stats is a snapshot of store counters.
type Stats = cacheinfra.Stats

// FetchFn is the function signature used when fetching from the source of truth.
type FetchFn[T any] func(ctx context.Context) (T, error)

// Store is the bounded, TTL aware, LRU evicting key/value store shared by
// request handlers and the invalidation service.
//
// Get reports whether the key was present, so a cached nil is distinguishable
// from a miss. SetWithTTL treats a zero ttl as "never expires" and a negative
// ttl as "use the store default".
type Store interface {
	Get(key string) (any, bool)
	Has(key string) bool
	Set(key string, value any)
	SetWithTTL(key string, value any, ttl time.Duration)
	Delete(key string)
	InvalidatePattern(pattern string) (int, error)
	Clear()
	Stats() Stats
	Keys() []string
	LoadBulk(entries []Entry, ttl time.Duration)
}

// GetAs reads key from store and asserts it to T.
// A present value of the wrong type yields ErrInvalidResultType.
func GetAs[T any](store Store, key string) (T, bool, error) {
	var zero T

	value, ok := store.Get(key)
	if !ok {
		return zero, false, nil
	}
	if value == nil {
		return zero, true, nil
	}

	typed, ok := value.(T)
	if !ok {
		return zero, true, errors.Wrapf(ErrInvalidResultType, "key %s holds %T", key, value)
	}
	return typed, true, nil
}

// GetOrFetch is a read-through helper: it returns the cached value for key or
// calls fetch, stores the result with ttl and returns it. Fetch errors are
// returned as is and nothing is cached.
//
// When store implements Flighted, concurrent misses on the same key of that
// store share a single fetch.
func GetOrFetch[T any](ctx context.Context, store Store, key string, ttl time.Duration, fetch FetchFn[T]) (T, error) {
	var zero T

	cached, found, err := GetAs[T](store, key)
	if err == nil && found {
		return cached, nil
	}

	f, ok := store.(Flighted)
	if !ok {
		return fetchDirect(ctx, store, key, ttl, fetch)
	}

	shared, err, _ := f.Flight().Do(key, func() (any, error) {
		result, err := fetch(ctx)
		if err != nil {
			return nil, err
		}
		store.SetWithTTL(key, result, ttl)
		return result, nil
	})
	if err != nil {
		return zero, err
	}

	result, ok := shared.(T)
	if !ok {
		// another caller fetched the same key as a different type
		if shared != nil {
			return fetchDirect(ctx, store, key, ttl, fetch)
		}
		return zero, nil
	}
	return result, nil
}

func fetchDirect[T any](ctx context.Context, store Store, key string, ttl time.Duration, fetch FetchFn[T]) (T, error) {
	result, err := fetch(ctx)
	if err != nil {
		var zero T
		return zero, err
	}
	store.SetWithTTL(key, result, ttl)
	return result, nil
}

// LoadBulk pulls entries from fetch and writes them into store with ttl.
// A failing source is surfaced to the caller; nothing is written in that case.
func LoadBulk(ctx context.Context, store Store, fetch FetchFn[[]Entry], ttl time.Duration) (int, error) {
	entries, err := fetch(ctx)
	if err != nil {
		return 0, errors.Wrap(err, "cache: bulk load")
	}

	store.LoadBulk(entries, ttl)
	return len(entries), nil
}
