// Package invalidation maps entity mutations to the cache key patterns they
// make stale and purges them from a store.
//
// The rule table is plain data: a list of (trigger, entity, patterns)
// records. Service looks up the patterns for a mutation and asks the store to
// invalidate each one, reporting per pattern counts:
//
//	svc := invalidation.NewService(store, nil, invalidation.WithLogger(logger))
//	res := svc.InvalidateOnCreate("Seller")
//	// res.Patterns: sellers:list:*, masters:sellers:*, masters:all
//
// Failures are reported in Result.Error and never returned or raised.
package invalidation
