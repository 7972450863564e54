package keyed

import (
	"context"
	"math"
	"reflect"
	"sync"
	"sync/atomic"
)

// slotBox wraps a stored value so that a slot can be represented as a single
// pointer: nil means empty, a table-unique sentinel instance means
// tombstone, and any other non-nil pointer holds a live value. Using pointer
// identity for the tombstone (rather than a value that happens to compare
// equal to some sentinel) is what the distilled spec's design notes call
// for explicitly.
type slotBox[V any] struct {
	value V
}

// tableState is the entire mutable shape of an OpenAddressedTable's storage.
// A rehash builds a fresh *tableState off to the side and publishes it with
// a single atomic.Pointer.Store; readers that loaded the old pointer keep
// seeing a complete, consistent array forever (invariant 3: probe chains
// only ever lengthen within one array's lifetime).
type tableState[V any] struct {
	slots    []atomic.Pointer[slotBox[V]]
	capacity int
	maxSize  int
	free     int // writer-owned; only meaningful under the table's mutex
}

// Hooks lets the ambient layer (pkg/keyedhash) observe table-level events
// for logging/metrics without the core package importing a logging or
// metrics library itself.
type Hooks struct {
	// OnRehash fires after a rehash-by-swap publishes a new array.
	OnRehash func(newCapacity int)
	// OnProbe fires each time a probe sequence resolves (on the flat
	// table only), reporting how many slots were visited to do so.
	OnProbe func(n int)
	// OnTombstone reports the flat table's tombstone count after a
	// removal writes one and after a rehash clears them all to zero. An
	// insert that reuses a tombstone, and Clear, do not fire it.
	OnTombstone func(n int)
}

// Factory manufactures a value for GetOrCreate when a key is absent. ctx is
// threaded through purely so an I/O-bound factory can honour cancellation;
// the table itself never waits on it. extras are opaque and passed through
// unchanged; the factory must not mutate the table it is being called from.
type Factory[K, V any] func(ctx context.Context, key K, extras ...any) (V, error)

// OpenAddressedTable is the core flat, open-addressed keyed collection:
// double-hash probing, tombstone-based deletion, single-writer/many-reader
// concurrency, and rehash-by-swap.
type OpenAddressedTable[K, V any] struct {
	mu    sync.Mutex
	state atomic.Pointer[tableState[V]]
	size  atomic.Int64

	mutationGen atomic.Int64
	indexCache  atomic.Pointer[indexCacheEntry[V]]

	adapter         KeyAdapter[K, V]
	loadFactor      float64
	valueEqual      func(a, b V) bool
	initialCapacity int
	tombstone       *slotBox[V]
	hooks           Hooks
}

type indexCacheEntry[V any] struct {
	gen  int64
	list []V
}

// NewOpenAddressed constructs a table with the given key adapter, initial
// capacity (rounded up to the next listed prime) and load factor (defaults
// to 0.5 if outside (0,1)). valueEqual is used by the expected-value variants
// of Replace/Remove and by ContainsValue; if nil, reflect.DeepEqual is used.
func NewOpenAddressed[K, V any](adapter KeyAdapter[K, V], initialCapacity int, loadFactor float64, valueEqual func(a, b V) bool) *OpenAddressedTable[K, V] {
	if loadFactor <= 0 || loadFactor >= 1 {
		loadFactor = 0.5
	}
	if initialCapacity < 1 {
		initialCapacity = 1
	}
	if valueEqual == nil {
		valueEqual = reflectEqual[V]
	}
	cap0 := NextPrime(initialCapacity)
	t := &OpenAddressedTable[K, V]{
		adapter:         adapter,
		loadFactor:      loadFactor,
		valueEqual:      valueEqual,
		initialCapacity: initialCapacity,
		tombstone:       &slotBox[V]{},
	}
	t.state.Store(&tableState[V]{
		slots:    make([]atomic.Pointer[slotBox[V]], cap0),
		capacity: cap0,
		maxSize:  computeMaxSize(cap0, loadFactor),
		free:     cap0,
	})
	return t
}

func reflectEqual[V any](a, b V) bool {
	return reflect.DeepEqual(a, b)
}

// isNilValue reports whether v is a nil pointer, interface, map, slice,
// chan, or func. V is frequently instantiated with a concrete struct type,
// for which this is always false; reflect is only consulted for the kinds
// that can actually be nil.
func isNilValue[V any](v V) bool {
	rv := reflect.ValueOf(v)
	if !rv.IsValid() {
		return true
	}
	switch rv.Kind() {
	case reflect.Ptr, reflect.Interface, reflect.Map, reflect.Slice, reflect.Chan, reflect.Func:
		return rv.IsNil()
	default:
		return false
	}
}

func computeMaxSize(capacity int, loadFactor float64) int {
	m := int(float64(capacity) * loadFactor)
	if m > capacity-1 {
		m = capacity - 1
	}
	if m < 0 {
		m = 0
	}
	return m
}

// SetHooks installs observability callbacks. Not safe to call concurrently
// with table mutations; intended to be called once, right after
// construction, before the table is shared across goroutines.
func (t *OpenAddressedTable[K, V]) SetHooks(h Hooks) { t.hooks = h }

// Size returns the number of live entries. Lock-free: backed by an
// atomic counter so Size() never contends with writers.
func (t *OpenAddressedTable[K, V]) Size() int { return int(t.size.Load()) }

// IsEmpty reports whether the table holds no live entries.
func (t *OpenAddressedTable[K, V]) IsEmpty() bool { return t.size.Load() == 0 }

// Capacity returns the current prime capacity of the backing array.
func (t *OpenAddressedTable[K, V]) Capacity() int { return t.state.Load().capacity }

func probeParams[V any](st *tableState[V], h uint64) (start, step int) {
	L := st.capacity
	start = int(h % uint64(L))
	step = int(1 + h%uint64(L-2))
	return start, step
}

func wrapDec(i, step, l int) int {
	return ((i-step)%l + l) % l
}

// locateResult is the outcome of a probe: either the slot holding a live,
// key-matching entry, or the slot a subsequent insert should use.
type locateResult[V any] struct {
	idx            int
	ptr            *slotBox[V]
	found          bool
	insertAt       int
	insertWasEmpty bool
}

// locate walks the probe sequence for h/key against a snapshot state. It
// performs only atomic loads, so it is safe to call without holding the
// table's mutex (used by Get) as well as while holding it
// (used by the write paths, which then know exactly where to mutate).
func (t *OpenAddressedTable[K, V]) locate(st *tableState[V], h uint64, key K) (locateResult[V], error) {
	start, step := probeParams(st, h)
	i := start
	tombstoneIdx := -1
	for n := 0; n <= st.capacity; n++ {
		if n > 0 && i == start {
			return locateResult[V]{}, ErrCycleDetected
		}
		p := st.slots[i].Load()
		switch {
		case p == nil:
			t.reportProbe(n + 1)
			if tombstoneIdx >= 0 {
				return locateResult[V]{insertAt: tombstoneIdx, insertWasEmpty: false}, nil
			}
			return locateResult[V]{insertAt: i, insertWasEmpty: true}, nil
		case p == t.tombstone:
			if tombstoneIdx < 0 {
				tombstoneIdx = i
			}
		default:
			if t.adapter.EqualKey(key, p.value) {
				t.reportProbe(n + 1)
				return locateResult[V]{idx: i, ptr: p, found: true, insertAt: -1}, nil
			}
		}
		i = wrapDec(i, step, st.capacity)
	}
	return locateResult[V]{}, ErrCycleDetected
}

// reportProbe feeds the observability layer how many slots a single locate
// (or insertFresh) call walked before resolving. A no-op when no hook is
// installed, so an unmetered table pays only a nil check on its hot path.
func (t *OpenAddressedTable[K, V]) reportProbe(n int) {
	if t.hooks.OnProbe != nil {
		t.hooks.OnProbe(n)
	}
}

// reportTombstones feeds the observability layer the table's current
// tombstone count: slots that are neither free (never written since the
// last rehash) nor live. A no-op when no hook is installed.
func (t *OpenAddressedTable[K, V]) reportTombstones(st *tableState[V]) {
	if t.hooks.OnTombstone != nil {
		t.hooks.OnTombstone(st.capacity - int(t.size.Load()) - st.free)
	}
}

// Get returns the live value for key, if any. Concurrent-safe, lock-free.
func (t *OpenAddressedTable[K, V]) Get(key K) (V, bool, error) {
	var zero V
	st := t.state.Load()
	h := maskHash(t.adapter.HashKey(key))
	res, err := t.locate(st, h, key)
	if err != nil {
		return zero, false, err
	}
	if !res.found {
		return zero, false, nil
	}
	return res.ptr.value, true, nil
}

// ContainsKey reports whether key is present.
func (t *OpenAddressedTable[K, V]) ContainsKey(key K) bool {
	_, ok, _ := t.Get(key)
	return ok
}

// ContainsValue scans every slot for a value equal (per the table's
// valueEqual function) to value. O(capacity); the distilled spec allows
// this.
func (t *OpenAddressedTable[K, V]) ContainsValue(value V) bool {
	st := t.state.Load()
	for i := range st.slots {
		p := st.slots[i].Load()
		if p != nil && p != t.tombstone && t.valueEqual(p.value, value) {
			return true
		}
	}
	return false
}

type writeMode int

const (
	writeNormal writeMode = iota
	writeIfAbsent
	writeReplace
	writeReplaceExpected
)

func (t *OpenAddressedTable[K, V]) write(key K, value V, mode writeMode, expected *V) (V, bool, error) {
	var zero V
	if !t.adapter.EqualKey(key, value) {
		return zero, false, ErrKeyInconsistent
	}
	if mode == writeReplaceExpected && isNilValue(*expected) {
		return zero, false, ErrNullValueDisallowed
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	st := t.state.Load()
	h := maskHash(t.adapter.HashKey(key))
	res, err := t.locate(st, h, key)
	if err != nil {
		return zero, false, err
	}

	if res.found {
		existing := res.ptr.value
		switch mode {
		case writeNormal, writeReplace:
			st.slots[res.idx].Store(&slotBox[V]{value: value})
			t.bumpMutation()
			return existing, true, nil
		case writeIfAbsent:
			return existing, true, nil
		case writeReplaceExpected:
			if !t.valueEqual(existing, *expected) {
				return existing, false, nil
			}
			st.slots[res.idx].Store(&slotBox[V]{value: value})
			t.bumpMutation()
			return existing, true, nil
		}
	}

	// Key absent.
	if mode == writeReplace || mode == writeReplaceExpected {
		return zero, false, nil
	}

	st.slots[res.insertAt].Store(&slotBox[V]{value: value})
	if res.insertWasEmpty {
		st.free--
	}
	t.size.Add(1)
	t.bumpMutation()
	if rerr := t.maybeRehashAfterInsert(st); rerr != nil {
		return zero, false, rerr
	}
	return zero, false, nil
}

// Put inserts or replaces the entry for key, returning the previous value
// (if any) and whether one existed.
func (t *OpenAddressedTable[K, V]) Put(key K, value V) (V, bool, error) {
	return t.write(key, value, writeNormal, nil)
}

// PutIfAbsent inserts value only if key is absent; otherwise it leaves the
// table untouched and returns the existing value.
func (t *OpenAddressedTable[K, V]) PutIfAbsent(key K, value V) (V, bool, error) {
	return t.write(key, value, writeIfAbsent, nil)
}

// Replace overwrites the value for key only if key is already present.
func (t *OpenAddressedTable[K, V]) Replace(key K, value V) (V, bool, error) {
	return t.write(key, value, writeReplace, nil)
}

// ReplaceExpected performs a compare-and-swap: it replaces key's value with
// newValue only if the current value compares equal (via the table's
// valueEqual function) to expected. The returned bool is true iff the swap
// happened.
func (t *OpenAddressedTable[K, V]) ReplaceExpected(key K, expected, newValue V) (bool, error) {
	_, swapped, err := t.write(key, newValue, writeReplaceExpected, &expected)
	return swapped, err
}

// RemoveKey deletes key's entry, if present, writing a tombstone in its
// slot. Returns the removed value and whether one existed.
func (t *OpenAddressedTable[K, V]) RemoveKey(key K) (V, bool, error) {
	var zero V
	t.mu.Lock()
	defer t.mu.Unlock()

	st := t.state.Load()
	h := maskHash(t.adapter.HashKey(key))
	res, err := t.locate(st, h, key)
	if err != nil {
		return zero, false, err
	}
	if !res.found {
		return zero, false, nil
	}
	existing := res.ptr.value
	st.slots[res.idx].Store(t.tombstone)
	t.size.Add(-1)
	t.bumpMutation()
	t.reportTombstones(st)
	return existing, true, nil
}

// RemoveExpected removes key's entry only if its current value compares
// equal to expected. Returns whether the removal happened.
func (t *OpenAddressedTable[K, V]) RemoveExpected(key K, expected V) (bool, error) {
	if isNilValue(expected) {
		return false, ErrNullValueDisallowed
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	st := t.state.Load()
	h := maskHash(t.adapter.HashKey(key))
	res, err := t.locate(st, h, key)
	if err != nil {
		return false, err
	}
	if !res.found {
		return false, nil
	}
	existing := res.ptr.value
	if !t.valueEqual(existing, expected) {
		return false, nil
	}
	st.slots[res.idx].Store(t.tombstone)
	t.size.Add(-1)
	t.bumpMutation()
	t.reportTombstones(st)
	return true, nil
}

// GetOrCreate returns the current value for key, creating it via factory if
// absent. factory runs at most once per winning insertion: concurrent
// callers racing for the same key either observe it already present (no
// factory call) or block on the table mutex and re-check before calling
// their own factory. ctx is passed through to factory unexamined; the table
// itself never blocks on it.
func (t *OpenAddressedTable[K, V]) GetOrCreate(ctx context.Context, key K, factory Factory[K, V], extras ...any) (V, error) {
	var zero V
	if v, ok, err := t.Get(key); err != nil {
		return zero, err
	} else if ok {
		return v, nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	st := t.state.Load()
	h := maskHash(t.adapter.HashKey(key))
	res, err := t.locate(st, h, key)
	if err != nil {
		return zero, err
	}
	if res.found {
		return res.ptr.value, nil
	}

	value, ferr := factory(ctx, key, extras...)
	if ferr != nil {
		return zero, ferr
	}
	if !t.adapter.EqualKey(key, value) {
		return zero, ErrKeyInconsistent
	}

	st.slots[res.insertAt].Store(&slotBox[V]{value: value})
	if res.insertWasEmpty {
		st.free--
	}
	t.size.Add(1)
	t.bumpMutation()
	if rerr := t.maybeRehashAfterInsert(st); rerr != nil {
		return zero, rerr
	}
	return value, nil
}

func (t *OpenAddressedTable[K, V]) bumpMutation() { t.mutationGen.Add(1) }

func (t *OpenAddressedTable[K, V]) maybeRehashAfterInsert(st *tableState[V]) error {
	if int(t.size.Load()) > st.maxSize {
		return t.rehashLocked(st, NextPrime(st.capacity*2))
	}
	if st.free == 1 {
		return t.rehashLocked(st, st.capacity)
	}
	return nil
}

// rehashLocked builds a fresh table-of-values array at newCapacity,
// re-inserts every live entry from old with normal-put semantics, then
// publishes the new array with a single atomic store. Must be called while
// holding t.mu.
func (t *OpenAddressedTable[K, V]) rehashLocked(old *tableState[V], newCapacity int) error {
	if newCapacity < 3 {
		newCapacity = 3
	}
	fresh := &tableState[V]{
		slots:    make([]atomic.Pointer[slotBox[V]], newCapacity),
		capacity: newCapacity,
		maxSize:  computeMaxSize(newCapacity, t.loadFactor),
		free:     newCapacity,
	}
	for i := range old.slots {
		p := old.slots[i].Load()
		if p == nil || p == t.tombstone {
			continue
		}
		key := t.adapter.GetKey(p.value)
		h := maskHash(t.adapter.HashKey(key))
		if err := insertFresh(fresh, h, p.value, t.hooks.OnProbe); err != nil {
			return err
		}
	}
	if fresh.free < 1 {
		return ErrInternalInvariantBroken
	}
	t.state.Store(fresh)
	t.bumpMutation()
	if t.hooks.OnRehash != nil {
		t.hooks.OnRehash(newCapacity)
	}
	t.reportTombstones(fresh)
	return nil
}

// insertFresh inserts value into a newly allocated state that has no
// tombstones yet, so the first empty slot found on the probe sequence is
// always the right one. onProbe, if non-nil, is fed the number of slots
// visited to resolve the insert.
func insertFresh[V any](st *tableState[V], h uint64, value V, onProbe func(int)) error {
	start, step := probeParams(st, h)
	i := start
	for n := 0; n <= st.capacity; n++ {
		if n > 0 && i == start {
			return ErrCycleDetected
		}
		if st.slots[i].Load() == nil {
			st.slots[i].Store(&slotBox[V]{value: value})
			st.free--
			if onProbe != nil {
				onProbe(n + 1)
			}
			return nil
		}
		i = wrapDec(i, step, st.capacity)
	}
	return ErrCycleDetected
}

// EnsureCapacity grows the table, if needed, so that n more entries can be
// inserted before the next automatic rehash.
func (t *OpenAddressedTable[K, V]) EnsureCapacity(n int) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	st := t.state.Load()
	size := int(t.size.Load())
	if n > st.maxSize-size {
		target := NextPrime(int(math.Ceil(float64(n+size)/t.loadFactor)) + 1)
		return t.rehashLocked(st, target)
	}
	return nil
}

// Compact rehashes to the smallest prime capacity that keeps the current
// size within the load factor, purging tombstones and shrinking the array.
func (t *OpenAddressedTable[K, V]) Compact() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	st := t.state.Load()
	size := int(t.size.Load())
	target := NextPrime(int(math.Ceil(float64(size)/t.loadFactor)) + 1)
	return t.rehashLocked(st, target)
}

// Clear removes every entry, replacing the storage with a fresh array sized
// to the table's original initial capacity.
func (t *OpenAddressedTable[K, V]) Clear() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	cap0 := NextPrime(t.initialCapacity)
	t.state.Store(&tableState[V]{
		slots:    make([]atomic.Pointer[slotBox[V]], cap0),
		capacity: cap0,
		maxSize:  computeMaxSize(cap0, t.loadFactor),
		free:     cap0,
	})
	t.size.Store(0)
	t.bumpMutation()
	if t.size.Load() != 0 {
		return ErrInternalInvariantBroken
	}
	return nil
}

// GetByIndex returns the i-th live value in slot order. It caches a
// snapshot list on first call and invalidates that cache whenever the table
// is mutated (put, replace, remove, rehash, clear, compact).
func (t *OpenAddressedTable[K, V]) GetByIndex(i int) (V, bool) {
	var zero V
	gen := t.mutationGen.Load()
	if ce := t.indexCache.Load(); ce != nil && ce.gen == gen {
		if i < 0 || i >= len(ce.list) {
			return zero, false
		}
		return ce.list[i], true
	}

	st := t.state.Load()
	list := make([]V, 0, t.size.Load())
	for idx := range st.slots {
		p := st.slots[idx].Load()
		if p != nil && p != t.tombstone {
			list = append(list, p.value)
		}
	}
	t.indexCache.Store(&indexCacheEntry[V]{gen: gen, list: list})
	if i < 0 || i >= len(list) {
		return zero, false
	}
	return list[i], true
}

// Iterator walks every live entry of a snapshot of the table taken at
// construction time. Remove deletes the last value returned through the
// live table (re-locating it, so it is safe even if the table rehashed
// since the snapshot was taken).
type Iterator[K, V any] struct {
	t       *OpenAddressedTable[K, V]
	st      *tableState[V]
	idx     int
	lastIdx int
	hasLast bool
}

// NewIterator returns an iterator over a snapshot of the table's current
// storage array.
func (t *OpenAddressedTable[K, V]) NewIterator() *Iterator[K, V] {
	return &Iterator[K, V]{t: t, st: t.state.Load(), idx: 0, lastIdx: -1}
}

// Next advances the iterator, returning the next live value or false once
// exhausted.
func (it *Iterator[K, V]) Next() (V, bool) {
	var zero V
	for it.idx < len(it.st.slots) {
		i := it.idx
		it.idx++
		p := it.st.slots[i].Load()
		if p != nil && p != it.t.tombstone {
			it.lastIdx = i
			it.hasLast = true
			return p.value, true
		}
	}
	it.hasLast = false
	return zero, false
}

// Remove deletes the value last returned by Next from the live table.
func (it *Iterator[K, V]) Remove() error {
	if !it.hasLast {
		return ErrNoSuchElement
	}
	p := it.st.slots[it.lastIdx].Load()
	if p == nil || p == it.t.tombstone {
		it.hasLast = false
		return ErrNoSuchElement
	}
	key := it.t.adapter.GetKey(p.value)
	_, removed, err := it.t.RemoveKey(key)
	if err != nil {
		return err
	}
	it.hasLast = false
	if !removed {
		return ErrNoSuchElement
	}
	return nil
}
