package keyedhash

// set.go implements Set[K,V], a keyed collection used as a set of values:
// each value still carries its own derived key (so lookups, GetOrCreate,
// and dedup-on-insert all work the same way as Map), but the public surface
// favours value-oriented names (Add/Contains/Elements) over
// key/value-oriented ones.
//
// © 2025 keyedhash authors. MIT License.

import (
	"context"

	"github.com/Voskan/keyedhash/internal/keyed"
)

// SetLike is the minimal surface Equal compares against.
type SetLike[V any] interface {
	ContainsValue(value V) bool
	Size() int
}

// Set is a keyed collection of values, deduplicated by each value's derived
// key rather than by Go's == operator.
type Set[K, V any] struct {
	m *Map[K, V]
}

func newSet[K, V any](b backend[K, V], adapter keyed.KeyAdapter[K, V], cfg *config[K, V], name string) *Set[K, V] {
	return &Set[K, V]{m: newMap(b, adapter, cfg, name)}
}

// Size returns the number of elements.
func (s *Set[K, V]) Size() int { return s.m.Size() }

// IsEmpty reports whether the set holds no elements.
func (s *Set[K, V]) IsEmpty() bool { return s.m.IsEmpty() }

// Capacity returns the current capacity of the backing table.
func (s *Set[K, V]) Capacity() int { return s.m.Capacity() }

// Add inserts value, replacing any existing element with the same derived
// key. Returns the displaced element, if any.
func (s *Set[K, V]) Add(value V) (V, bool, error) { return s.m.Put(value) }

// AddIfAbsent inserts value only if its derived key is absent.
func (s *Set[K, V]) AddIfAbsent(value V) (V, bool, error) { return s.m.PutIfAbsent(value) }

// Contains reports whether an element with key's derived key is present.
func (s *Set[K, V]) Contains(key K) bool { return s.m.ContainsKey(key) }

// ContainsValue reports whether any element compares equal (via the
// configured valueEqual function) to value.
func (s *Set[K, V]) ContainsValue(value V) bool { return s.m.ContainsValue(value) }

// Get returns the element for key, if present.
func (s *Set[K, V]) Get(key K) (V, bool, error) { return s.m.Get(key) }

// Remove deletes the element for key, if present.
func (s *Set[K, V]) Remove(key K) (V, bool, error) { return s.m.RemoveKey(key) }

// RemoveExpected removes key's element only if it compares equal to
// expected.
func (s *Set[K, V]) RemoveExpected(key K, expected V) (bool, error) {
	return s.m.RemoveExpected(key, expected)
}

// Clear removes every element.
func (s *Set[K, V]) Clear() error { return s.m.Clear() }

// Compact rehashes to the smallest admissible capacity for the current
// size. A documented no-op on an intrusive-backed Set.
func (s *Set[K, V]) Compact() error { return s.m.Compact() }

// GetOrCreate returns the current element for key, creating it via factory
// if absent.
func (s *Set[K, V]) GetOrCreate(ctx context.Context, key K, factory func(ctx context.Context, key K, extras ...any) (V, error), extras ...any) (V, error) {
	return s.m.GetOrCreate(ctx, key, factory, extras...)
}

// Elements returns an iterator over a snapshot of the set's current
// elements.
func (s *Set[K, V]) Elements() tableIterator[V] { return s.m.NewIterator() }

// Equal reports whether other holds the same elements as s (size equal and
// every element of s present, by value equality, in other).
func (s *Set[K, V]) Equal(other SetLike[V]) bool {
	if other == nil || s.Size() != other.Size() {
		return false
	}
	it := s.Elements()
	for {
		v, ok := it.Next()
		if !ok {
			return true
		}
		if !other.ContainsValue(v) {
			return false
		}
	}
}

// HashCode computes an order-independent hash over the set's elements'
// derived keys. See Map.HashCode for the same caveat about values not
// being independently hashed.
func (s *Set[K, V]) HashCode() uint64 { return s.m.HashCode() }
