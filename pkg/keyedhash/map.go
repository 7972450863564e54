package keyedhash

// map.go implements Map[K,V], the public keyed-collection surface backed by
// either a flat open-addressed table or an intrusive-chained table (chosen
// at construction by the specialised New*Keyed constructors). It never logs
// on the hot path: the only log line is emitted when the backing table
// rehashes (including the rehash a Compact performs). Errors are returned
// to the caller, not logged.
//
// © 2025 keyedhash authors. MIT License.

import (
	"context"
	"fmt"
	"reflect"

	"go.uber.org/zap"

	"github.com/Voskan/keyedhash/internal/keyed"
)

// MapLike is the minimal surface Equal compares against, letting callers
// compare a Map against any compatible implementation.
type MapLike[K, V any] interface {
	Get(key K) (V, bool, error)
	Size() int
}

// Map is a keyed collection: values carry their own key, extracted via a
// KeyAdapter, rather than being stored alongside a separate key.
type Map[K, V any] struct {
	b          backend[K, V]
	adapter    keyed.KeyAdapter[K, V]
	loader     *loaderGroup[K, V]
	logger     *zap.Logger
	metrics    metricsSink
	name       string
	valueEqFn  func(a, b V) bool
}

func newMap[K, V any](b backend[K, V], adapter keyed.KeyAdapter[K, V], cfg *config[K, V], name string) *Map[K, V] {
	sink := newMetricsSink(cfg.registry)
	valueEqFn := cfg.valueEqual
	if valueEqFn == nil {
		valueEqFn = func(a, b V) bool { return reflect.DeepEqual(a, b) }
	}
	m := &Map[K, V]{
		b:         b,
		adapter:   adapter,
		loader:    newLoaderGroup[K, V](),
		logger:    cfg.logger,
		metrics:   sink,
		name:      name,
		valueEqFn: valueEqFn,
	}
	b.SetHooks(keyed.Hooks{
		OnRehash: func(newCapacity int) {
			m.logger.Info("keyedhash: table rehashed",
				zap.String("table", name),
				zap.Int("new_capacity", newCapacity),
			)
			sink.incRehash(name)
			sink.setSize(name, b.Size())
		},
		OnProbe: func(n int) {
			sink.observeProbeLength(name, n)
		},
		OnTombstone: func(n int) {
			sink.setTombstones(name, n)
		},
	})
	return m
}

// Size returns the number of live entries.
func (m *Map[K, V]) Size() int { return m.b.Size() }

// IsEmpty reports whether the map holds no entries.
func (m *Map[K, V]) IsEmpty() bool { return m.b.IsEmpty() }

// Capacity returns the current capacity of the backing table (slot count
// for a flat table, bucket count for a chained one).
func (m *Map[K, V]) Capacity() int { return m.b.Capacity() }

// Get returns the value for key, if present.
func (m *Map[K, V]) Get(key K) (V, bool, error) { return m.b.Get(key) }

// ContainsKey reports whether key is present.
func (m *Map[K, V]) ContainsKey(key K) bool { return m.b.ContainsKey(key) }

// ContainsValue reports whether any entry's value compares equal (via the
// configured valueEqual function) to value.
func (m *Map[K, V]) ContainsValue(value V) bool { return m.b.ContainsValue(value) }

// Put inserts or replaces the entry for value's derived key, returning the
// previous value, if any.
func (m *Map[K, V]) Put(value V) (V, bool, error) {
	key := m.adapter.GetKey(value)
	prev, existed, err := m.b.Put(key, value)
	if err == nil {
		m.metrics.setSize(m.name, m.b.Size())
	}
	return prev, existed, err
}

// PutIfAbsent inserts value only if its derived key is absent.
func (m *Map[K, V]) PutIfAbsent(value V) (V, bool, error) {
	key := m.adapter.GetKey(value)
	prev, existed, err := m.b.PutIfAbsent(key, value)
	if err == nil {
		m.metrics.setSize(m.name, m.b.Size())
	}
	return prev, existed, err
}

// Replace overwrites the value for key only if key is already present.
func (m *Map[K, V]) Replace(key K, value V) (V, bool, error) {
	return m.b.Replace(key, value)
}

// ReplaceExpected performs a compare-and-swap: replaces key's value with
// newValue only if the current value compares equal to expected.
func (m *Map[K, V]) ReplaceExpected(key K, expected, newValue V) (bool, error) {
	return m.b.ReplaceExpected(key, expected, newValue)
}

// RemoveKey deletes key's entry, if present.
func (m *Map[K, V]) RemoveKey(key K) (V, bool, error) {
	v, removed, err := m.b.RemoveKey(key)
	if removed {
		m.metrics.setSize(m.name, m.b.Size())
	}
	return v, removed, err
}

// RemoveExpected removes key's entry only if its current value compares
// equal to expected.
func (m *Map[K, V]) RemoveExpected(key K, expected V) (bool, error) {
	removed, err := m.b.RemoveExpected(key, expected)
	if removed {
		m.metrics.setSize(m.name, m.b.Size())
	}
	return removed, err
}

// Clear removes every entry.
func (m *Map[K, V]) Clear() error {
	err := m.b.Clear()
	m.metrics.setSize(m.name, m.b.Size())
	return err
}

// Compact rehashes to the smallest admissible capacity for the current
// size. A documented no-op on an intrusive-backed Map.
func (m *Map[K, V]) Compact() error {
	err := m.b.Compact()
	if err == nil {
		m.metrics.incCompact(m.name)
	}
	return err
}

// EnsureCapacity grows the backing table so n more entries can be inserted
// before the next automatic rehash. Returns an error on an intrusive-backed
// Map, which grows automatically and does not support pre-sizing.
func (m *Map[K, V]) EnsureCapacity(n int) error {
	g, ok := m.b.(capacityGrower)
	if !ok {
		return fmt.Errorf("keyedhash: EnsureCapacity not supported by this table's backing strategy")
	}
	return g.EnsureCapacity(n)
}

// GetByIndex returns the i-th live value in storage order. Only supported
// on a flat-backed Map; returns false on an intrusive-backed one.
func (m *Map[K, V]) GetByIndex(i int) (V, bool) {
	idx, ok := m.b.(indexable[V])
	if !ok {
		var zero V
		return zero, false
	}
	return idx.GetByIndex(i)
}

// GetOrCreate returns the current value for key, creating it via factory if
// absent. factory runs at most once per winning insertion.
func (m *Map[K, V]) GetOrCreate(ctx context.Context, key K, factory keyed.Factory[K, V], extras ...any) (V, error) {
	v, err := m.b.GetOrCreate(ctx, key, factory, extras...)
	if err == nil {
		m.metrics.setSize(m.name, m.b.Size())
	}
	return v, err
}

// GetOrLoad is a find-or-create routed through a per-key singleflight group.
// The loader runs outside the backing table's write lock; its result is
// then inserted with PutIfAbsent, and if another writer inserted the key in
// the meantime, that existing value is returned instead: see loader.go.
func (m *Map[K, V]) GetOrLoad(ctx context.Context, key K, fn LoaderFunc[K, V]) (V, error) {
	if v, ok, err := m.b.Get(key); err != nil {
		var zero V
		return zero, err
	} else if ok {
		return v, nil
	}
	h := maskHashForLoader(m.adapter.HashKey(key))
	val, err, _ := m.loader.load(ctx, h, key, func(ctx context.Context, key K) (V, error) {
		loaded, lerr := fn(ctx, key)
		if lerr != nil {
			return loaded, lerr
		}
		existing, existed, perr := m.b.PutIfAbsent(key, loaded)
		if perr != nil {
			return loaded, perr
		}
		if existed {
			return existing, nil
		}
		return loaded, nil
	})
	if err == nil {
		m.metrics.setSize(m.name, m.b.Size())
	}
	return val, err
}

func maskHashForLoader(h uint64) uint64 { return h & 0x7FFFFFFFFFFFFFFF }

// NewIterator returns an iterator over a snapshot of the map's current
// entries.
func (m *Map[K, V]) NewIterator() tableIterator[V] { return m.b.NewIterator() }

// KeySet returns a live view over the map's keys.
func (m *Map[K, V]) KeySet() *KeyView[K, V] { return &KeyView[K, V]{m: m} }

// Values returns a live view over the map's values.
func (m *Map[K, V]) Values() *ValueView[K, V] { return &ValueView[K, V]{m: m} }

// EntrySet returns a live view over the map's entries.
func (m *Map[K, V]) EntrySet() *EntryView[K, V] { return &EntryView[K, V]{m: m} }

// Equal reports whether other has the same size and every (key, value) pair
// this map holds also appears, with an equal value, in other.
func (m *Map[K, V]) Equal(other MapLike[K, V]) bool {
	if other == nil {
		return false
	}
	if m.Size() != other.Size() {
		return false
	}
	it := m.NewIterator()
	for {
		v, ok := it.Next()
		if !ok {
			return true
		}
		key := m.adapter.GetKey(v)
		ov, found, err := other.Get(key)
		if err != nil || !found {
			return false
		}
		if !m.valueEqFn(v, ov) {
			return false
		}
	}
}

// HashCode computes an order-independent hash over the map's keys. Values
// are not independently hashed (no general value-hash function is
// threaded through the KeyAdapter contract); two maps with the same keys
// but differing values therefore may collide under HashCode even though
// Equal would distinguish them. Combine with Equal for a full contract, the
// same way the distilled spec's hashCode/equals pairing is meant to be
// used.
func (m *Map[K, V]) HashCode() uint64 {
	var acc uint64
	it := m.NewIterator()
	for {
		v, ok := it.Next()
		if !ok {
			break
		}
		key := m.adapter.GetKey(v)
		acc ^= m.adapter.HashKey(key)
	}
	return acc
}
