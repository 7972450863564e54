package keyedhash

// views.go implements the live KeySet/Values/EntrySet views described in
// the public collection surface: each wraps a fresh snapshot iterator over
// the backing Map's table and routes Remove through that iterator to the
// table, so removal during iteration behaves exactly as the underlying
// table's own Iterator documents.
//
// © 2025 keyedhash authors. MIT License.

// Entry is a read-only (key, value) pair produced while walking an
// EntryView.
type Entry[K, V any] struct {
	Key   K
	Value V
}

// KeyView is a live view over a Map's keys.
type KeyView[K, V any] struct {
	m *Map[K, V]
}

// Iterator walks the keys of a fresh snapshot of the map.
func (kv *KeyView[K, V]) Iterator() *keyIterator[K, V] {
	return &keyIterator[K, V]{inner: kv.m.NewIterator(), adapter: kv.m.adapter}
}

// Contains reports whether key is present in the backing map.
func (kv *KeyView[K, V]) Contains(key K) bool { return kv.m.ContainsKey(key) }

// Size returns the number of keys (equal to the map's size).
func (kv *KeyView[K, V]) Size() int { return kv.m.Size() }

type keyIterator[K, V any] struct {
	inner   tableIterator[V]
	adapter interface{ GetKey(V) K }
	lastV   V
	hasLast bool
}

// Next returns the next key, or false once exhausted.
func (it *keyIterator[K, V]) Next() (K, bool) {
	var zero K
	v, ok := it.inner.Next()
	if !ok {
		it.hasLast = false
		return zero, false
	}
	it.lastV = v
	it.hasLast = true
	return it.adapter.GetKey(v), true
}

// Remove deletes the entry for the key last returned by Next.
func (it *keyIterator[K, V]) Remove() error {
	if !it.hasLast {
		return errNoSuchElementView
	}
	it.hasLast = false
	return it.inner.Remove()
}

// ValueView is a live view over a Map's values.
type ValueView[K, V any] struct {
	m *Map[K, V]
}

// Iterator walks the values of a fresh snapshot of the map.
func (vv *ValueView[K, V]) Iterator() tableIterator[V] { return vv.m.NewIterator() }

// Contains reports whether value is present (per the map's valueEqual
// function).
func (vv *ValueView[K, V]) Contains(value V) bool { return vv.m.ContainsValue(value) }

// Size returns the number of values (equal to the map's size).
func (vv *ValueView[K, V]) Size() int { return vv.m.Size() }

// EntryView is a live view over a Map's (key, value) pairs.
type EntryView[K, V any] struct {
	m *Map[K, V]
}

// Iterator walks the entries of a fresh snapshot of the map.
func (ev *EntryView[K, V]) Iterator() *entryIterator[K, V] {
	return &entryIterator[K, V]{inner: ev.m.NewIterator(), adapter: ev.m.adapter}
}

// Size returns the number of entries (equal to the map's size).
func (ev *EntryView[K, V]) Size() int { return ev.m.Size() }

type entryIterator[K, V any] struct {
	inner   tableIterator[V]
	adapter interface{ GetKey(V) K }
	hasLast bool
}

// Next returns the next entry, or false once exhausted.
func (it *entryIterator[K, V]) Next() (Entry[K, V], bool) {
	v, ok := it.inner.Next()
	if !ok {
		it.hasLast = false
		return Entry[K, V]{}, false
	}
	it.hasLast = true
	return Entry[K, V]{Key: it.adapter.GetKey(v), Value: v}, true
}

// Remove deletes the entry last returned by Next.
func (it *entryIterator[K, V]) Remove() error {
	if !it.hasLast {
		return errNoSuchElementView
	}
	it.hasLast = false
	return it.inner.Remove()
}
