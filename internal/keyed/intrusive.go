package keyed

import (
	"context"
	"sync"
	"sync/atomic"
)

// headBox lets a bucket slot be represented as a single pointer: nil means
// an empty bucket, otherwise it holds the head of a singly-linked chain
// threaded through values via LinkAdapter.
type headBox[V any] struct {
	head V
}

// bucketState is the whole shape of an IntrusiveChainedTable's storage,
// swapped atomically on rehash exactly like the flat table's tableState.
type bucketState[V any] struct {
	buckets    []atomic.Pointer[headBox[V]]
	bucketCnt  int
	capacity   int // rehash threshold: size > capacity triggers a grow
	loadFactor float64
}

// IntrusiveChainedTable is a keyed hash table whose collision chains are
// threaded through the stored values themselves via a LinkAdapter, rather
// than through table-owned cons cells. Buckets only ever grow in number;
// there are no tombstones, so Compact is a documented no-op.
type IntrusiveChainedTable[K any, V Linked[V]] struct {
	mu    sync.Mutex
	state atomic.Pointer[bucketState[V]]
	size  atomic.Int64

	adapter       KeyAdapter[K, V]
	loadFactor    float64
	rehashEnabled bool
	valueEqual    func(a, b V) bool
	hooks         Hooks
}

func bucketIndex(h uint64, bucketCnt int) int {
	return int(h % uint64(bucketCnt))
}

func newBucketState[V any](bucketCnt int, loadFactor float64) *bucketState[V] {
	if bucketCnt < 1 {
		bucketCnt = 1
	}
	return &bucketState[V]{
		buckets:    make([]atomic.Pointer[headBox[V]], bucketCnt),
		bucketCnt:  bucketCnt,
		capacity:   int(float64(bucketCnt) / loadFactor),
		loadFactor: loadFactor,
	}
}

// NewIntrusiveChained constructs a chained table with the given key
// adapter, initial capacity, and load factor (defaults to 0.75 if outside
// (0,1), matching the distilled spec's chained-table default).
func NewIntrusiveChained[K any, V Linked[V]](adapter KeyAdapter[K, V], initialCapacity int, loadFactor float64) *IntrusiveChainedTable[K, V] {
	if loadFactor <= 0 || loadFactor >= 1 {
		loadFactor = 0.75
	}
	if initialCapacity < 1 {
		initialCapacity = 1
	}
	bucketCnt := int(float64(initialCapacity)*loadFactor + 0.999999)
	if bucketCnt < 1 {
		bucketCnt = 1
	}
	t := &IntrusiveChainedTable[K, V]{
		adapter:       adapter,
		loadFactor:    loadFactor,
		rehashEnabled: true,
		valueEqual:    reflectEqual[V],
	}
	t.state.Store(newBucketState[V](bucketCnt, loadFactor))
	return t
}

// SetHooks installs observability callbacks. See OpenAddressedTable.SetHooks.
func (t *IntrusiveChainedTable[K, V]) SetHooks(h Hooks) { t.hooks = h }

// SetValueEqual overrides the value-equality function used by
// ContainsValue and the expected-value operations. Defaults to
// reflect.DeepEqual.
func (t *IntrusiveChainedTable[K, V]) SetValueEqual(eq func(a, b V) bool) {
	if eq != nil {
		t.valueEqual = eq
	}
}

// Size returns the number of live entries.
func (t *IntrusiveChainedTable[K, V]) Size() int { return int(t.size.Load()) }

// IsEmpty reports whether the table holds no live entries.
func (t *IntrusiveChainedTable[K, V]) IsEmpty() bool { return t.size.Load() == 0 }

// Capacity returns the current bucket count.
func (t *IntrusiveChainedTable[K, V]) Capacity() int { return t.state.Load().bucketCnt }

func chainHead[V any](st *bucketState[V], h uint64) V {
	var zero V
	b := st.buckets[bucketIndex(h, st.bucketCnt)].Load()
	if b == nil {
		return zero
	}
	return b.head
}

// Get walks the target bucket's chain comparing each node's key via
// adapter.EqualKey, stopping at the first match. Lock-free: readers never
// block on the writer mutex.
func (t *IntrusiveChainedTable[K, V]) Get(key K) (V, bool, error) {
	var zero V
	st := t.state.Load()
	h := maskHash(t.adapter.HashKey(key))
	cur := chainHead(st, h)
	for any(cur) != nil {
		if t.adapter.EqualKey(key, cur) {
			return cur, true, nil
		}
		cur = cur.Next()
	}
	return zero, false, nil
}

// ContainsKey reports whether key is present.
func (t *IntrusiveChainedTable[K, V]) ContainsKey(key K) bool {
	_, ok, _ := t.Get(key)
	return ok
}

// ContainsValue scans every bucket for a value equal (per the table's
// valueEqual function) to value.
func (t *IntrusiveChainedTable[K, V]) ContainsValue(value V) bool {
	st := t.state.Load()
	for i := range st.buckets {
		cur := chainHead(st, uint64(i))
		for any(cur) != nil {
			if t.valueEqual(cur, value) {
				return true
			}
			cur = cur.Next()
		}
	}
	return false
}

func storeBucketHead[V any](st *bucketState[V], idx int, head V) {
	if any(head) == nil {
		st.buckets[idx].Store(nil)
		return
	}
	st.buckets[idx].Store(&headBox[V]{head: head})
}

// Add inserts value, or — if a node with an equal key is already present —
// splices value in its place (carrying over the old node's next pointer)
// and returns the displaced value. Size only increases on a true insert.
func (t *IntrusiveChainedTable[K, V]) Add(value V) (V, bool, error) {
	var zero V
	key := t.adapter.GetKey(value)
	if !t.adapter.EqualKey(key, value) {
		return zero, false, ErrKeyInconsistent
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	st := t.state.Load()
	h := maskHash(t.adapter.HashKey(key))
	idx := bucketIndex(h, st.bucketCnt)
	head := chainHead(st, h)

	var prev V
	cur := head
	for any(cur) != nil {
		nxt := cur.Next()
		if t.adapter.EqualKey(key, cur) {
			existing := cur
			value.SetNext(existing.Next())
			if any(prev) == nil {
				storeBucketHead(st, idx, value)
			} else {
				prev.SetNext(value)
			}
			return existing, true, nil
		}
		prev = cur
		cur = nxt
	}

	// Not found: append at tail (or set as head if bucket was empty).
	var tailZero V
	value.SetNext(tailZero)
	if any(head) == nil {
		storeBucketHead(st, idx, value)
	} else {
		t.appendTail(head, value)
	}
	t.size.Add(1)
	if rerr := t.maybeRehashAfterInsert(st); rerr != nil {
		return zero, false, rerr
	}
	return zero, false, nil
}

func (t *IntrusiveChainedTable[K, V]) appendTail(head, value V) {
	cur := head
	for {
		nxt := cur.Next()
		if any(nxt) == nil {
			cur.SetNext(value)
			return
		}
		cur = nxt
	}
}

// AddIfAbsent inserts value only if no node with an equal key exists;
// otherwise it leaves the chain untouched and returns the existing value.
func (t *IntrusiveChainedTable[K, V]) AddIfAbsent(value V) (V, bool, error) {
	var zero V
	key := t.adapter.GetKey(value)
	if !t.adapter.EqualKey(key, value) {
		return zero, false, ErrKeyInconsistent
	}
	if existing, ok, _ := t.Get(key); ok {
		return existing, true, nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	st := t.state.Load()
	h := maskHash(t.adapter.HashKey(key))
	idx := bucketIndex(h, st.bucketCnt)
	head := chainHead(st, h)
	cur := head
	for any(cur) != nil {
		if t.adapter.EqualKey(key, cur) {
			return cur, true, nil
		}
		cur = cur.Next()
	}

	var tailZero V
	value.SetNext(tailZero)
	if any(head) == nil {
		storeBucketHead(st, idx, value)
	} else {
		t.appendTail(head, value)
	}
	t.size.Add(1)
	if rerr := t.maybeRehashAfterInsert(st); rerr != nil {
		return zero, false, rerr
	}
	return zero, false, nil
}

// Put is Add with an explicit key, kept so IntrusiveChainedTable satisfies
// the same call shape as OpenAddressedTable's write family. It fails with
// ErrKeyInconsistent if value's derived key does not match key.
func (t *IntrusiveChainedTable[K, V]) Put(key K, value V) (V, bool, error) {
	if !t.adapter.EqualKey(key, value) {
		var zero V
		return zero, false, ErrKeyInconsistent
	}
	return t.Add(value)
}

// PutIfAbsent is AddIfAbsent with an explicit key, for symmetry with
// OpenAddressedTable. It fails with ErrKeyInconsistent if value's derived
// key does not match key.
func (t *IntrusiveChainedTable[K, V]) PutIfAbsent(key K, value V) (V, bool, error) {
	if !t.adapter.EqualKey(key, value) {
		var zero V
		return zero, false, ErrKeyInconsistent
	}
	return t.AddIfAbsent(value)
}

// Replace overwrites the node for key only if key is already present.
func (t *IntrusiveChainedTable[K, V]) Replace(key K, value V) (V, bool, error) {
	var zero V
	if !t.adapter.EqualKey(key, value) {
		return zero, false, ErrKeyInconsistent
	}
	if _, ok, _ := t.Get(key); !ok {
		return zero, false, nil
	}
	return t.Add(value)
}

// ReplaceExpected performs a compare-and-swap on the node for key: it is
// replaced with newValue only if the current value compares equal (via the
// table's valueEqual function) to expected.
func (t *IntrusiveChainedTable[K, V]) ReplaceExpected(key K, expected, newValue V) (bool, error) {
	if !t.adapter.EqualKey(key, newValue) {
		return false, ErrKeyInconsistent
	}
	if isNilValue(expected) {
		return false, ErrNullValueDisallowed
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	st := t.state.Load()
	h := maskHash(t.adapter.HashKey(key))
	idx := bucketIndex(h, st.bucketCnt)
	head := chainHead(st, h)

	var prev V
	cur := head
	for any(cur) != nil {
		if t.adapter.EqualKey(key, cur) {
			if !t.valueEqual(cur, expected) {
				return false, nil
			}
			newValue.SetNext(cur.Next())
			if any(prev) == nil {
				storeBucketHead(st, idx, newValue)
			} else {
				prev.SetNext(newValue)
			}
			return true, nil
		}
		prev = cur
		cur = cur.Next()
	}
	return false, nil
}

// GetOrCreate returns the current value for key, creating it via factory if
// absent. The factory runs at most once per winning insertion. ctx is
// passed through to factory unexamined; the table itself never blocks on
// it.
func (t *IntrusiveChainedTable[K, V]) GetOrCreate(ctx context.Context, key K, factory Factory[K, V], extras ...any) (V, error) {
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
	idx := bucketIndex(h, st.bucketCnt)
	head := chainHead(st, h)
	cur := head
	for any(cur) != nil {
		if t.adapter.EqualKey(key, cur) {
			return cur, nil
		}
		cur = cur.Next()
	}

	value, ferr := factory(ctx, key, extras...)
	if ferr != nil {
		return zero, ferr
	}
	if !t.adapter.EqualKey(key, value) {
		return zero, ErrKeyInconsistent
	}

	var tailZero V
	value.SetNext(tailZero)
	if any(head) == nil {
		storeBucketHead(st, idx, value)
	} else {
		t.appendTail(head, value)
	}
	t.size.Add(1)
	if rerr := t.maybeRehashAfterInsert(st); rerr != nil {
		return zero, rerr
	}
	return value, nil
}

// RemoveKey deletes the node for key, if present, unlinking it from its
// bucket's chain. Returns the removed value and whether one existed.
func (t *IntrusiveChainedTable[K, V]) RemoveKey(key K) (V, bool, error) {
	var zero V
	t.mu.Lock()
	defer t.mu.Unlock()

	st := t.state.Load()
	h := maskHash(t.adapter.HashKey(key))
	idx := bucketIndex(h, st.bucketCnt)
	head := chainHead(st, h)

	var prev V
	cur := head
	for any(cur) != nil {
		nxt := cur.Next()
		if t.adapter.EqualKey(key, cur) {
			if any(prev) == nil {
				storeBucketHead(st, idx, nxt)
			} else {
				prev.SetNext(nxt)
			}
			var tailZero V
			cur.SetNext(tailZero)
			t.size.Add(-1)
			return cur, true, nil
		}
		prev = cur
		cur = nxt
	}
	return zero, false, nil
}

// RemoveExpected removes key's entry only if its current value compares
// equal to expected.
func (t *IntrusiveChainedTable[K, V]) RemoveExpected(key K, expected V) (bool, error) {
	if isNilValue(expected) {
		return false, ErrNullValueDisallowed
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	st := t.state.Load()
	h := maskHash(t.adapter.HashKey(key))
	idx := bucketIndex(h, st.bucketCnt)
	head := chainHead(st, h)

	var prev V
	cur := head
	for any(cur) != nil {
		nxt := cur.Next()
		if t.adapter.EqualKey(key, cur) {
			if !t.valueEqual(cur, expected) {
				return false, nil
			}
			if any(prev) == nil {
				storeBucketHead(st, idx, nxt)
			} else {
				prev.SetNext(nxt)
			}
			var tailZero V
			cur.SetNext(tailZero)
			t.size.Add(-1)
			return true, nil
		}
		prev = cur
		cur = nxt
	}
	return false, nil
}

// Clear empties every bucket, clearing each node's next link as it goes.
// Returns ErrInternalInvariantBroken if the live count does not land on
// exactly zero once every bucket has been walked.
func (t *IntrusiveChainedTable[K, V]) Clear() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	st := t.state.Load()
	removed := int64(0)
	for i := range st.buckets {
		cur := chainHead(st, uint64(i))
		for any(cur) != nil {
			nxt := cur.Next()
			var tailZero V
			cur.SetNext(tailZero)
			removed++
			cur = nxt
		}
		st.buckets[i].Store(nil)
	}
	t.size.Add(-removed)
	if t.size.Load() != 0 {
		return ErrInternalInvariantBroken
	}
	return nil
}

// Compact is a documented no-op for the intrusive table: there is no
// secondary array to shrink, and chained buckets carry no tombstones, so
// compaction has nothing to do. Present so callers that route through a
// common interface can invoke it unconditionally.
func (t *IntrusiveChainedTable[K, V]) Compact() error { return nil }

func (t *IntrusiveChainedTable[K, V]) maybeRehashAfterInsert(st *bucketState[V]) error {
	if !t.rehashEnabled {
		return nil
	}
	if int(t.size.Load()) <= st.capacity {
		return nil
	}
	return t.rehashLocked(st)
}

// rehashLocked doubles the bucket count and rethreads every chain into the
// new array by prepending each node to its new bucket (reversing per-bucket
// order, which the distilled spec allows since iteration order is
// unspecified).
func (t *IntrusiveChainedTable[K, V]) rehashLocked(old *bucketState[V]) error {
	newCnt := old.bucketCnt * 2
	fresh := newBucketState[V](newCnt, t.loadFactor)

	for i := range old.buckets {
		cur := chainHead(old, uint64(i))
		for any(cur) != nil {
			nxt := cur.Next()
			h := maskHash(t.adapter.HashKey(t.adapter.GetKey(cur)))
			idx := bucketIndex(h, fresh.bucketCnt)
			existingHead := chainHead[V](fresh, h)
			cur.SetNext(existingHead)
			storeBucketHead(fresh, idx, cur)
			cur = nxt
		}
	}
	t.state.Store(fresh)
	if t.hooks.OnRehash != nil {
		t.hooks.OnRehash(fresh.bucketCnt)
	}
	return nil
}

// Iterator2 walks every live entry of a snapshot of the table's bucket array
// taken at construction time.
type Iterator2[K any, V Linked[V]] struct {
	t        *IntrusiveChainedTable[K, V]
	st       *bucketState[V]
	bucketIx int
	cur      V
	hasLast  bool
	lastKey  K
}

// NewIterator returns an iterator over a snapshot of the table's current
// bucket array.
func (t *IntrusiveChainedTable[K, V]) NewIterator() *Iterator2[K, V] {
	return &Iterator2[K, V]{t: t, st: t.state.Load(), bucketIx: 0}
}

// Next advances the iterator, returning the next live value or false once
// exhausted. The successor is pre-fetched before Next returns, so a Remove
// of the returned value (which clears that value's own next link) can
// never strand the iterator.
func (it *Iterator2[K, V]) Next() (V, bool) {
	var zero V
	for any(it.cur) == nil {
		if it.bucketIx >= len(it.st.buckets) {
			it.hasLast = false
			return zero, false
		}
		it.cur = chainHead(it.st, uint64(it.bucketIx))
		it.bucketIx++
	}
	result := it.cur
	it.hasLast = true
	it.lastKey = it.t.adapter.GetKey(result)
	it.cur = result.Next()
	return result, true
}

// Remove deletes the value last returned by Next from the live table. The
// iterator has already advanced past it, so removal never invalidates the
// iterator's own position.
func (it *Iterator2[K, V]) Remove() error {
	if !it.hasLast {
		return ErrNoSuchElement
	}
	it.hasLast = false
	_, removed, err := it.t.RemoveKey(it.lastKey)
	if err != nil {
		return err
	}
	if !removed {
		return ErrNoSuchElement
	}
	return nil
}
