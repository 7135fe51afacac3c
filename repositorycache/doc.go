// Package repositorycache provides cached repository decorators for go-repository-bun.
//
// # Overview
//
// CachedRepository[T] wraps a base repository for one domain entity. Reads are
// served cache-aside from a shared cache.Store using the key convention of the
// cache package; successful writes fire the invalidation rules for the entity
// so every cached list, id and master entry the write made stale is purged.
//
// # Basic Usage
//
//	store := cache.MustNewStore(cache.DefaultConfig(), logger)
//	svc := invalidation.NewService(store, nil, invalidation.WithLogger(logger))
//
//	sellers := repositorycache.New(baseSellers, store, svc, "Seller")
//
//	seller, err := sellers.GetByID(ctx, id)        // sellers:id:<id>
//	all, total, err := sellers.List(ctx)           // sellers:list:all
//	_, err = sellers.Create(ctx, newSeller)        // purges sellers:list:*, masters:sellers:*, masters:all
//
// # Cached vs Pass-through Operations
//
// Cached:
//   - Get, GetByID, GetByIdentifier
//   - List, Count
//
// Pass-through:
//   - All transaction-based reads (*Tx methods)
//   - Raw SQL queries
//
// Writes always reach the base repository first. Invalidation only runs when
// the write returned no error.
//
// | Operation                                   | Trigger |
// |---------------------------------------------|---------|
// | Create*, CreateMany*, GetOrCreate*          | CREATE  |
// | Update*, UpdateMany*, Upsert*, UpsertMany*  | UPDATE  |
// | Delete*, DeleteMany*, DeleteWhere*, Force*  | DELETE  |
//
// # Criteria
//
// Select criteria are functions and cannot be turned into stable keys. A read
// with criteria bypasses the cache unless the caller names the query:
//
//	ctx = repositorycache.WithQualifier(ctx, "active")
//	active, _, err := clients.List(ctx, func(q *bun.SelectQuery) *bun.SelectQuery {
//		return q.Where("active = ?", true)
//	})
//	// cached under clients:list:active
//
// # Related Entities
//
// Writes that make other entities stale carry them on the context. They are
// invalidated with the UPDATE trigger after the entity's own rules:
//
//	ctx = repositorycache.WithRelatedEntities(ctx, "Order", "Reference")
//	_, err = receptions.Create(ctx, reception)
//
// # Warm Up
//
// WarmMasters lists every record and bulk loads "masters:<ns>:all" plus one
// id key per record. Errors from the database are returned so startup can
// abort.
//
// # See Also
//
// For the store and key helpers, see the cache package.
// For the rule table, see the invalidation package.
// For dependency injection setup, see the pkg/di package.
package repositorycache
