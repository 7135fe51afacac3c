package repositorycache

import (
	"context"
)

type qualifierContextKey struct{}

type relatedEntitiesContextKey struct{}

// WithQualifier names the query a read with criteria belongs to, e.g.
// "active" or "page:2". Criteria are functions and cannot be turned into a
// key, so reads with criteria are only cached when a qualifier is present.
func WithQualifier(ctx context.Context, parts ...any) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if len(parts) == 0 {
		return ctx
	}
	return context.WithValue(ctx, qualifierContextKey{}, append([]any(nil), parts...))
}

func qualifierFromContext(ctx context.Context) []any {
	if ctx == nil {
		return nil
	}
	if parts, ok := ctx.Value(qualifierContextKey{}).([]any); ok {
		return append([]any(nil), parts...)
	}
	return nil
}

// WithRelatedEntities lists entities whose caches also go stale when the
// decorated repository writes, e.g. a Reception touching Order totals. They
// are invalidated with the UPDATE trigger.
func WithRelatedEntities(ctx context.Context, entities ...string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if len(entities) == 0 {
		return ctx
	}

	combined := dedupeStrings(append(relatedEntitiesFromContext(ctx), entities...))
	return context.WithValue(ctx, relatedEntitiesContextKey{}, combined)
}

func relatedEntitiesFromContext(ctx context.Context) []string {
	if ctx == nil {
		return nil
	}
	if entities, ok := ctx.Value(relatedEntitiesContextKey{}).([]string); ok {
		return append([]string(nil), entities...)
	}
	return nil
}

func dedupeStrings(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
