package keyedhash

// backend.go defines the common surface Map/Set drive regardless of which
// concrete core table (flat open-addressed or intrusive-chained) backs
// them. The two concrete adapters below (flatBackend, chainedBackend) are
// the only things that know which core type is in play; everything above
// this file talks only to the backend interface.
//
// © 2025 keyedhash authors. MIT License.

import (
	"context"

	"github.com/Voskan/keyedhash/internal/keyed"
)

// tableIterator is satisfied by both *keyed.Iterator[K,V] (flat) and
// *keyed.Iterator2[K,V] (intrusive) without either needing to say so.
type tableIterator[V any] interface {
	Next() (V, bool)
	Remove() error
}

// backend is the full set of operations Map/Set need from a backing table.
type backend[K, V any] interface {
	Size() int
	IsEmpty() bool
	Capacity() int
	Get(key K) (V, bool, error)
	ContainsKey(key K) bool
	ContainsValue(value V) bool
	Put(key K, value V) (V, bool, error)
	PutIfAbsent(key K, value V) (V, bool, error)
	Replace(key K, value V) (V, bool, error)
	ReplaceExpected(key K, expected, newValue V) (bool, error)
	RemoveKey(key K) (V, bool, error)
	RemoveExpected(key K, expected V) (bool, error)
	Clear() error
	Compact() error
	GetOrCreate(ctx context.Context, key K, factory keyed.Factory[K, V], extras ...any) (V, error)
	NewIterator() tableIterator[V]
	SetHooks(h keyed.Hooks)
}

// indexable is implemented only by flat-backed tables; Map.GetByIndex
// type-asserts for it.
type indexable[V any] interface {
	GetByIndex(i int) (V, bool)
}

// capacityGrower is implemented only by flat-backed tables; Map.EnsureCapacity
// type-asserts for it.
type capacityGrower interface {
	EnsureCapacity(n int) error
}

// flatBackend adapts *keyed.OpenAddressedTable[K,V] to backend[K,V].
type flatBackend[K, V any] struct {
	t *keyed.OpenAddressedTable[K, V]
}

func (b flatBackend[K, V]) Size() int                { return b.t.Size() }
func (b flatBackend[K, V]) IsEmpty() bool             { return b.t.IsEmpty() }
func (b flatBackend[K, V]) Capacity() int             { return b.t.Capacity() }
func (b flatBackend[K, V]) Get(key K) (V, bool, error) { return b.t.Get(key) }
func (b flatBackend[K, V]) ContainsKey(key K) bool     { return b.t.ContainsKey(key) }
func (b flatBackend[K, V]) ContainsValue(v V) bool     { return b.t.ContainsValue(v) }
func (b flatBackend[K, V]) Put(k K, v V) (V, bool, error) {
	return b.t.Put(k, v)
}
func (b flatBackend[K, V]) PutIfAbsent(k K, v V) (V, bool, error) {
	return b.t.PutIfAbsent(k, v)
}
func (b flatBackend[K, V]) Replace(k K, v V) (V, bool, error) {
	return b.t.Replace(k, v)
}
func (b flatBackend[K, V]) ReplaceExpected(k K, expected, newValue V) (bool, error) {
	return b.t.ReplaceExpected(k, expected, newValue)
}
func (b flatBackend[K, V]) RemoveKey(k K) (V, bool, error) { return b.t.RemoveKey(k) }
func (b flatBackend[K, V]) RemoveExpected(k K, expected V) (bool, error) {
	return b.t.RemoveExpected(k, expected)
}
func (b flatBackend[K, V]) Clear() error   { return b.t.Clear() }
func (b flatBackend[K, V]) Compact() error { return b.t.Compact() }
func (b flatBackend[K, V]) GetOrCreate(ctx context.Context, key K, factory keyed.Factory[K, V], extras ...any) (V, error) {
	return b.t.GetOrCreate(ctx, key, factory, extras...)
}
func (b flatBackend[K, V]) NewIterator() tableIterator[V] { return b.t.NewIterator() }
func (b flatBackend[K, V]) GetByIndex(i int) (V, bool)    { return b.t.GetByIndex(i) }
func (b flatBackend[K, V]) EnsureCapacity(n int) error    { return b.t.EnsureCapacity(n) }
func (b flatBackend[K, V]) SetHooks(h keyed.Hooks)        { b.t.SetHooks(h) }

// chainedBackend adapts *keyed.IntrusiveChainedTable[K,V] to backend[K,V].
type chainedBackend[K any, V keyed.Linked[V]] struct {
	t *keyed.IntrusiveChainedTable[K, V]
}

func (b chainedBackend[K, V]) Size() int                { return b.t.Size() }
func (b chainedBackend[K, V]) IsEmpty() bool             { return b.t.IsEmpty() }
func (b chainedBackend[K, V]) Capacity() int             { return b.t.Capacity() }
func (b chainedBackend[K, V]) Get(key K) (V, bool, error) { return b.t.Get(key) }
func (b chainedBackend[K, V]) ContainsKey(key K) bool     { return b.t.ContainsKey(key) }
func (b chainedBackend[K, V]) ContainsValue(v V) bool     { return b.t.ContainsValue(v) }
func (b chainedBackend[K, V]) Put(k K, v V) (V, bool, error) {
	return b.t.Put(k, v)
}
func (b chainedBackend[K, V]) PutIfAbsent(k K, v V) (V, bool, error) {
	return b.t.PutIfAbsent(k, v)
}
func (b chainedBackend[K, V]) Replace(k K, v V) (V, bool, error) {
	return b.t.Replace(k, v)
}
func (b chainedBackend[K, V]) ReplaceExpected(k K, expected, newValue V) (bool, error) {
	return b.t.ReplaceExpected(k, expected, newValue)
}
func (b chainedBackend[K, V]) RemoveKey(k K) (V, bool, error) { return b.t.RemoveKey(k) }
func (b chainedBackend[K, V]) RemoveExpected(k K, expected V) (bool, error) {
	return b.t.RemoveExpected(k, expected)
}
func (b chainedBackend[K, V]) Clear() error   { return b.t.Clear() }
func (b chainedBackend[K, V]) Compact() error { return b.t.Compact() }
func (b chainedBackend[K, V]) GetOrCreate(ctx context.Context, key K, factory keyed.Factory[K, V], extras ...any) (V, error) {
	return b.t.GetOrCreate(ctx, key, factory, extras...)
}
func (b chainedBackend[K, V]) NewIterator() tableIterator[V] { return b.t.NewIterator() }
func (b chainedBackend[K, V]) SetHooks(h keyed.Hooks)        { b.t.SetHooks(h) }
