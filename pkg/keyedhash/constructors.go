package keyedhash

// constructors.go provides the named, specialised entry points the public
// API is built around. In a non-generic host language these would be
// distinct boxed/unboxed implementations; here they are distinct,
// documented wiring of the same generic Map/Set around the right
// KeyAdapter, kept as separate functions so call sites read the same way
// the original API surface did and so StrictKeyAdapter (internal/keyed,
// §4.1) has a named, discoverable attachment point via WithStrictKeyAdapter.
//
// © 2025 keyedhash authors. MIT License.

import (
	"github.com/Voskan/keyedhash/internal/keyed"
)

func wrapStrict[K, V any](adapter keyed.KeyAdapter[K, V], strict bool) keyed.KeyAdapter[K, V] {
	if !strict {
		return adapter
	}
	return keyed.NewStrictKeyAdapter(adapter)
}

// NewObjectKeyedFlat builds a flat, open-addressed Map keyed by a
// reference-typed key extracted by getKey.
func NewObjectKeyedFlat[K, V any](name string, getKey func(V) K, equalKey func(K, K) bool, hashKey func(K) uint64, opts ...Option[K, V]) *Map[K, V] {
	cfg := applyOptions(opts)
	adapter := wrapStrict[K, V](keyed.ObjectKeyAdapter[K, V](getKey, hashKey, equalKey), cfg.strict)
	lf := cfg.loadFactor
	if lf == 0 {
		lf = 0.5
	}
	t := keyed.NewOpenAddressed[K, V](adapter, cfg.initialCapacity, lf, cfg.valueEqual)
	return newMap[K, V](flatBackend[K, V]{t: t}, adapter, cfg, name)
}

// NewObjectKeyedIntrusive builds an intrusive-chained Map keyed by a
// reference-typed key extracted by getKey. V must implement Linked[V].
func NewObjectKeyedIntrusive[K any, V keyed.Linked[V]](name string, getKey func(V) K, equalKey func(K, K) bool, hashKey func(K) uint64, opts ...Option[K, V]) *Map[K, V] {
	cfg := applyOptions(opts)
	adapter := wrapStrict[K, V](keyed.ObjectKeyAdapter[K, V](getKey, hashKey, equalKey), cfg.strict)
	lf := cfg.loadFactor
	if lf == 0 {
		lf = 0.75
	}
	t := keyed.NewIntrusiveChained[K, V](adapter, cfg.initialCapacity, lf)
	return newMap[K, V](chainedBackend[K, V]{t: t}, adapter, cfg, name)
}

// NewInt32KeyedFlat builds a flat Map keyed by an unboxed int32 field.
func NewInt32KeyedFlat[V any](name string, getKey func(V) int32, opts ...Option[int32, V]) *Map[int32, V] {
	cfg := applyOptions(opts)
	adapter := wrapStrict[int32, V](keyed.Int32KeyAdapter[V](getKey), cfg.strict)
	lf := cfg.loadFactor
	if lf == 0 {
		lf = 0.5
	}
	t := keyed.NewOpenAddressed[int32, V](adapter, cfg.initialCapacity, lf, cfg.valueEqual)
	return newMap[int32, V](flatBackend[int32, V]{t: t}, adapter, cfg, name)
}

// NewInt32KeyedIntrusive builds an intrusive-chained Map keyed by an
// unboxed int32 field.
func NewInt32KeyedIntrusive[V keyed.Linked[V]](name string, getKey func(V) int32, opts ...Option[int32, V]) *Map[int32, V] {
	cfg := applyOptions(opts)
	adapter := wrapStrict[int32, V](keyed.Int32KeyAdapter[V](getKey), cfg.strict)
	lf := cfg.loadFactor
	if lf == 0 {
		lf = 0.75
	}
	t := keyed.NewIntrusiveChained[int32, V](adapter, cfg.initialCapacity, lf)
	return newMap[int32, V](chainedBackend[int32, V]{t: t}, adapter, cfg, name)
}

// NewInt64KeyedFlat builds a flat Map keyed by an unboxed int64 field.
func NewInt64KeyedFlat[V any](name string, getKey func(V) int64, opts ...Option[int64, V]) *Map[int64, V] {
	cfg := applyOptions(opts)
	adapter := wrapStrict[int64, V](keyed.Int64KeyAdapter[V](getKey), cfg.strict)
	lf := cfg.loadFactor
	if lf == 0 {
		lf = 0.5
	}
	t := keyed.NewOpenAddressed[int64, V](adapter, cfg.initialCapacity, lf, cfg.valueEqual)
	return newMap[int64, V](flatBackend[int64, V]{t: t}, adapter, cfg, name)
}

// NewInt64KeyedIntrusive builds an intrusive-chained Map keyed by an
// unboxed int64 field.
func NewInt64KeyedIntrusive[V keyed.Linked[V]](name string, getKey func(V) int64, opts ...Option[int64, V]) *Map[int64, V] {
	cfg := applyOptions(opts)
	adapter := wrapStrict[int64, V](keyed.Int64KeyAdapter[V](getKey), cfg.strict)
	lf := cfg.loadFactor
	if lf == 0 {
		lf = 0.75
	}
	t := keyed.NewIntrusiveChained[int64, V](adapter, cfg.initialCapacity, lf)
	return newMap[int64, V](chainedBackend[int64, V]{t: t}, adapter, cfg, name)
}

// NewFloat64KeyedFlat builds a flat Map keyed by an unboxed float64 field.
// See keyed.Float64KeyAdapter for the deliberate +0.0/-0.0 distinct-slot
// quirk this carries forward.
func NewFloat64KeyedFlat[V any](name string, getKey func(V) float64, opts ...Option[float64, V]) *Map[float64, V] {
	cfg := applyOptions(opts)
	adapter := wrapStrict[float64, V](keyed.Float64KeyAdapter[V](getKey), cfg.strict)
	lf := cfg.loadFactor
	if lf == 0 {
		lf = 0.5
	}
	t := keyed.NewOpenAddressed[float64, V](adapter, cfg.initialCapacity, lf, cfg.valueEqual)
	return newMap[float64, V](flatBackend[float64, V]{t: t}, adapter, cfg, name)
}

// NewFloat64KeyedIntrusive builds an intrusive-chained Map keyed by an
// unboxed float64 field.
func NewFloat64KeyedIntrusive[V keyed.Linked[V]](name string, getKey func(V) float64, opts ...Option[float64, V]) *Map[float64, V] {
	cfg := applyOptions(opts)
	adapter := wrapStrict[float64, V](keyed.Float64KeyAdapter[V](getKey), cfg.strict)
	lf := cfg.loadFactor
	if lf == 0 {
		lf = 0.75
	}
	t := keyed.NewIntrusiveChained[float64, V](adapter, cfg.initialCapacity, lf)
	return newMap[float64, V](chainedBackend[float64, V]{t: t}, adapter, cfg, name)
}

// --- Set constructors mirror the Map constructors above. ---

// NewObjectKeyedSetFlat builds a flat Set keyed by a reference-typed key.
func NewObjectKeyedSetFlat[K, V any](name string, getKey func(V) K, equalKey func(K, K) bool, hashKey func(K) uint64, opts ...Option[K, V]) *Set[K, V] {
	cfg := applyOptions(opts)
	adapter := wrapStrict[K, V](keyed.ObjectKeyAdapter[K, V](getKey, hashKey, equalKey), cfg.strict)
	lf := cfg.loadFactor
	if lf == 0 {
		lf = 0.5
	}
	t := keyed.NewOpenAddressed[K, V](adapter, cfg.initialCapacity, lf, cfg.valueEqual)
	return newSet[K, V](flatBackend[K, V]{t: t}, adapter, cfg, name)
}

// NewObjectKeyedSetIntrusive builds an intrusive-chained Set keyed by a
// reference-typed key. V must implement Linked[V].
func NewObjectKeyedSetIntrusive[K any, V keyed.Linked[V]](name string, getKey func(V) K, equalKey func(K, K) bool, hashKey func(K) uint64, opts ...Option[K, V]) *Set[K, V] {
	cfg := applyOptions(opts)
	adapter := wrapStrict[K, V](keyed.ObjectKeyAdapter[K, V](getKey, hashKey, equalKey), cfg.strict)
	lf := cfg.loadFactor
	if lf == 0 {
		lf = 0.75
	}
	t := keyed.NewIntrusiveChained[K, V](adapter, cfg.initialCapacity, lf)
	return newSet[K, V](chainedBackend[K, V]{t: t}, adapter, cfg, name)
}

// NewInt32KeyedSetFlat builds a flat Set keyed by an unboxed int32 field.
func NewInt32KeyedSetFlat[V any](name string, getKey func(V) int32, opts ...Option[int32, V]) *Set[int32, V] {
	cfg := applyOptions(opts)
	adapter := wrapStrict[int32, V](keyed.Int32KeyAdapter[V](getKey), cfg.strict)
	lf := cfg.loadFactor
	if lf == 0 {
		lf = 0.5
	}
	t := keyed.NewOpenAddressed[int32, V](adapter, cfg.initialCapacity, lf, cfg.valueEqual)
	return newSet[int32, V](flatBackend[int32, V]{t: t}, adapter, cfg, name)
}

// NewInt32KeyedSetIntrusive builds an intrusive-chained Set keyed by an
// unboxed int32 field.
func NewInt32KeyedSetIntrusive[V keyed.Linked[V]](name string, getKey func(V) int32, opts ...Option[int32, V]) *Set[int32, V] {
	cfg := applyOptions(opts)
	adapter := wrapStrict[int32, V](keyed.Int32KeyAdapter[V](getKey), cfg.strict)
	lf := cfg.loadFactor
	if lf == 0 {
		lf = 0.75
	}
	t := keyed.NewIntrusiveChained[int32, V](adapter, cfg.initialCapacity, lf)
	return newSet[int32, V](chainedBackend[int32, V]{t: t}, adapter, cfg, name)
}

// NewInt64KeyedSetFlat builds a flat Set keyed by an unboxed int64 field.
func NewInt64KeyedSetFlat[V any](name string, getKey func(V) int64, opts ...Option[int64, V]) *Set[int64, V] {
	cfg := applyOptions(opts)
	adapter := wrapStrict[int64, V](keyed.Int64KeyAdapter[V](getKey), cfg.strict)
	lf := cfg.loadFactor
	if lf == 0 {
		lf = 0.5
	}
	t := keyed.NewOpenAddressed[int64, V](adapter, cfg.initialCapacity, lf, cfg.valueEqual)
	return newSet[int64, V](flatBackend[int64, V]{t: t}, adapter, cfg, name)
}

// NewInt64KeyedSetIntrusive builds an intrusive-chained Set keyed by an
// unboxed int64 field.
func NewInt64KeyedSetIntrusive[V keyed.Linked[V]](name string, getKey func(V) int64, opts ...Option[int64, V]) *Set[int64, V] {
	cfg := applyOptions(opts)
	adapter := wrapStrict[int64, V](keyed.Int64KeyAdapter[V](getKey), cfg.strict)
	lf := cfg.loadFactor
	if lf == 0 {
		lf = 0.75
	}
	t := keyed.NewIntrusiveChained[int64, V](adapter, cfg.initialCapacity, lf)
	return newSet[int64, V](chainedBackend[int64, V]{t: t}, adapter, cfg, name)
}

// NewFloat64KeyedSetFlat builds a flat Set keyed by an unboxed float64
// field. See keyed.Float64KeyAdapter for the +0.0/-0.0 distinct-slot quirk.
func NewFloat64KeyedSetFlat[V any](name string, getKey func(V) float64, opts ...Option[float64, V]) *Set[float64, V] {
	cfg := applyOptions(opts)
	adapter := wrapStrict[float64, V](keyed.Float64KeyAdapter[V](getKey), cfg.strict)
	lf := cfg.loadFactor
	if lf == 0 {
		lf = 0.5
	}
	t := keyed.NewOpenAddressed[float64, V](adapter, cfg.initialCapacity, lf, cfg.valueEqual)
	return newSet[float64, V](flatBackend[float64, V]{t: t}, adapter, cfg, name)
}

// NewFloat64KeyedSetIntrusive builds an intrusive-chained Set keyed by an
// unboxed float64 field.
func NewFloat64KeyedSetIntrusive[V keyed.Linked[V]](name string, getKey func(V) float64, opts ...Option[float64, V]) *Set[float64, V] {
	cfg := applyOptions(opts)
	adapter := wrapStrict[float64, V](keyed.Float64KeyAdapter[V](getKey), cfg.strict)
	lf := cfg.loadFactor
	if lf == 0 {
		lf = 0.75
	}
	t := keyed.NewIntrusiveChained[float64, V](adapter, cfg.initialCapacity, lf)
	return newSet[float64, V](chainedBackend[float64, V]{t: t}, adapter, cfg, name)
}
