package cache

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/jinzhu/inflection"
)

const (
	// KeySeparator joins cache key segments.
	KeySeparator = ":"
	// MastersNamespace prefixes shared lookups fed by several entities.
	MastersNamespace = "masters"
	// AllQualifier is used when a list or master key has no qualifier.
	AllQualifier = "all"

	listSegment = "list"
	idSegment   = "id"
)

// defaultPlurals covers domain words the english inflection rules get wrong
// ("...ta" and "...ia" are treated as already plural).
var defaultPlurals = map[string]string{
	"confeccionista": "confeccionistas",
	"correria":       "correrias",
}

// KeyBuilder builds keys in the "<entity-plural>:<list|id>:<qualifier>"
// convention the invalidation rules are written against.
type KeyBuilder struct {
	plurals map[string]string
}

// KeyOption configures a KeyBuilder.
type KeyOption func(*KeyBuilder)

// WithPlural registers an explicit plural for a snake cased entity name.
func WithPlural(singular, plural string) KeyOption {
	return func(b *KeyBuilder) {
		b.plurals[toSnake(singular)] = toSnake(plural)
	}
}

// NewKeyBuilder returns a KeyBuilder with the domain plural overrides.
func NewKeyBuilder(opts ...KeyOption) *KeyBuilder {
	b := &KeyBuilder{plurals: make(map[string]string, len(defaultPlurals))}
	for k, v := range defaultPlurals {
		b.plurals[k] = v
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Namespace returns the snake cased plural for entity, e.g. "DeliveryDate"
// becomes "delivery_dates".
func (b *KeyBuilder) Namespace(entity string) string {
	snake := toSnake(entity)
	if plural, ok := b.plurals[snake]; ok {
		return plural
	}
	return inflection.Plural(snake)
}

// IDKey builds "<ns>:id:<parts...>".
func (b *KeyBuilder) IDKey(entity string, parts ...any) string {
	return b.join(b.Namespace(entity), idSegment, parts)
}

// ListKey builds "<ns>:list:<parts...>", or "<ns>:list:all" without parts.
func (b *KeyBuilder) ListKey(entity string, parts ...any) string {
	return b.join(b.Namespace(entity), listSegment, parts)
}

// MasterKey builds "masters:<ns>:<qualifier>".
func (b *KeyBuilder) MasterKey(entity string, qualifier string) string {
	if qualifier == "" {
		qualifier = AllQualifier
	}
	return strings.Join([]string{MastersNamespace, b.Namespace(entity), qualifier}, KeySeparator)
}

// MastersAllKey is the aggregate bundle of every master list.
func (b *KeyBuilder) MastersAllKey() string {
	return MastersNamespace + KeySeparator + AllQualifier
}

func (b *KeyBuilder) join(ns, segment string, parts []any) string {
	out := make([]string, 0, len(parts)+2)
	out = append(out, ns, segment)

	if len(parts) == 0 {
		return strings.Join(append(out, AllQualifier), KeySeparator)
	}
	for _, part := range parts {
		out = append(out, serializePart(part))
	}
	return strings.Join(out, KeySeparator)
}

// serializePart renders a key segment deterministically.
// Maps are written with sorted keys and structs with exported fields only.
func serializePart(v any) string {
	if v == nil {
		return "nil"
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Pointer && rv.IsNil() {
		return "nil"
	}

	switch t := v.(type) {
	case string:
		return t
	case fmt.Stringer:
		return t.String()
	}

	switch rv.Kind() {
	case reflect.Pointer:
		return serializePart(rv.Elem().Interface())

	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.IsNil() {
			return "[]"
		}
		items := make([]string, rv.Len())
		for i := range items {
			items[i] = serializePart(rv.Index(i).Interface())
		}
		return "[" + strings.Join(items, ",") + "]"

	case reflect.Map:
		pairs := make([]string, 0, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			pairs = append(pairs, serializePart(iter.Key().Interface())+"="+serializePart(iter.Value().Interface()))
		}
		sort.Strings(pairs)
		return "{" + strings.Join(pairs, ",") + "}"

	case reflect.Struct:
		rt := rv.Type()
		fields := make([]string, 0, rv.NumField())
		for i := 0; i < rv.NumField(); i++ {
			field := rt.Field(i)
			if !field.IsExported() {
				continue
			}
			fields = append(fields, field.Name+"="+serializePart(rv.Field(i).Interface()))
		}
		return "{" + strings.Join(fields, ",") + "}"

	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return fmt.Sprintf("%v", v)
	}

	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%T", v)
	}
	return string(data)
}
