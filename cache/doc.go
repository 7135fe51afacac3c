// Package cache exposes the in-process cache contracts used by the inventory
// backend.
//
// # Overview
//
// A Store is a single generic key/value store with per-entry TTL and bounded,
// LRU evicting size. Two implementations are available through NewStore:
//
//   - BackendLRU: exact LRU ordering (list + map), lazy TTL expiry on Get
//   - BackendSharded: sturdyc backed, approximate percentage eviction
//
// Values are stored as `any`; the generic helpers GetAs and GetOrFetch assert
// them back to a concrete type at the boundary.
//
// # Basic Usage
//
//	store, err := cache.NewStore(cache.DefaultConfig(), logger)
//	if err != nil {
//		return err
//	}
//
//	keys := cache.NewKeyBuilder()
//	sellers, err := cache.GetOrFetch(ctx, store, keys.ListKey("Seller"), time.Minute,
//		func(ctx context.Context) ([]*Seller, error) {
//			return repo.List(ctx)
//		})
//
// # Key Convention
//
// Keys follow "<entity-plural>:<list|id>:<qualifier>" for per entity entries
// and "masters:<entity-plural>:<qualifier>" for shared lookups. The
// invalidation package purges keys by glob patterns written against this
// convention, so KeyBuilder should be used instead of formatting keys by hand:
//
//	keys.IDKey("DeliveryDate", id)       // delivery_dates:id:<id>
//	keys.ListKey("Client", "active")     // clients:list:active
//	keys.MasterKey("Seller", "all")      // masters:sellers:all
//
// # Patterns
//
// InvalidatePattern accepts globs where `*` matches any sequence of
// characters and every other character is literal. Patterns are anchored on
// the whole key: "clients:*" matches "clients:all" but not "other:clients:all".
//
// # Bulk Loads
//
// LoadBulk pulls entries from a data source and writes them in one pass. A
// source failure is returned wrapped and should be treated as fatal at startup.
package cache
