package keyed

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

type item struct {
	ID  int64
	Val string
}

func intAdapter() KeyAdapter[int64, item] {
	return Int64KeyAdapter[item](func(v item) int64 { return v.ID })
}

func newTestFlat(t *testing.T, cap int, lf float64) *OpenAddressedTable[int64, item] {
	t.Helper()
	return NewOpenAddressed[int64, item](intAdapter(), cap, lf, nil)
}

func TestOpenAddressedPutGet(t *testing.T) {
	tbl := newTestFlat(t, 8, 0.5)
	_, existed, err := tbl.Put(1, item{ID: 1, Val: "a"})
	require.NoError(t, err)
	require.False(t, existed)

	v, ok, err := tbl.Get(1)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "a", v.Val)

	prev, existed, err := tbl.Put(1, item{ID: 1, Val: "b"})
	require.NoError(t, err)
	require.True(t, existed)
	require.Equal(t, "a", prev.Val)

	v, ok, _ = tbl.Get(1)
	require.True(t, ok)
	require.Equal(t, "b", v.Val)
}

func TestOpenAddressedKeyInconsistent(t *testing.T) {
	tbl := newTestFlat(t, 8, 0.5)
	_, _, err := tbl.Put(1, item{ID: 2, Val: "mismatched"})
	require.ErrorIs(t, err, ErrKeyInconsistent)
}

func TestOpenAddressedPutIfAbsent(t *testing.T) {
	tbl := newTestFlat(t, 8, 0.5)
	_, _, err := tbl.Put(1, item{ID: 1, Val: "a"})
	require.NoError(t, err)

	existing, existed, err := tbl.PutIfAbsent(1, item{ID: 1, Val: "b"})
	require.NoError(t, err)
	require.True(t, existed)
	require.Equal(t, "a", existing.Val)

	v, _, _ := tbl.Get(1)
	require.Equal(t, "a", v.Val)
}

func TestOpenAddressedReplaceOnlyIfPresent(t *testing.T) {
	tbl := newTestFlat(t, 8, 0.5)
	_, replaced, err := tbl.Replace(1, item{ID: 1, Val: "a"})
	require.NoError(t, err)
	require.False(t, replaced)

	_, _, _ = tbl.Put(1, item{ID: 1, Val: "a"})
	_, replaced, err = tbl.Replace(1, item{ID: 1, Val: "b"})
	require.NoError(t, err)
	require.True(t, replaced)
	v, _, _ := tbl.Get(1)
	require.Equal(t, "b", v.Val)
}

func TestOpenAddressedReplaceExpected(t *testing.T) {
	tbl := newTestFlat(t, 8, 0.5)
	_, _, _ = tbl.Put(1, item{ID: 1, Val: "a"})

	swapped, err := tbl.ReplaceExpected(1, item{ID: 1, Val: "wrong"}, item{ID: 1, Val: "c"})
	require.NoError(t, err)
	require.False(t, swapped)

	swapped, err = tbl.ReplaceExpected(1, item{ID: 1, Val: "a"}, item{ID: 1, Val: "c"})
	require.NoError(t, err)
	require.True(t, swapped)

	v, _, _ := tbl.Get(1)
	require.Equal(t, "c", v.Val)
}

// TestOpenAddressedReplaceExpectedRejectsNilExpected verifies a nil pointer
// passed as ReplaceExpected's "expected" argument is rejected outright
// rather than silently compared against (and never matching) the stored
// value.
func TestOpenAddressedReplaceExpectedRejectsNilExpected(t *testing.T) {
	adapter := Int64KeyAdapter[*item](func(v *item) int64 { return v.ID })
	tbl := NewOpenAddressed[int64, *item](adapter, 8, 0.5, nil)
	_, _, _ = tbl.Put(1, &item{ID: 1, Val: "a"})

	swapped, err := tbl.ReplaceExpected(1, nil, &item{ID: 1, Val: "b"})
	require.False(t, swapped)
	require.ErrorIs(t, err, ErrNullValueDisallowed)
	v, _, _ := tbl.Get(1)
	require.Equal(t, "a", v.Val, "a rejected nil expected must not mutate the slot")
}

func TestOpenAddressedRemoveExpectedRejectsNilExpected(t *testing.T) {
	adapter := Int64KeyAdapter[*item](func(v *item) int64 { return v.ID })
	tbl := NewOpenAddressed[int64, *item](adapter, 8, 0.5, nil)
	_, _, _ = tbl.Put(1, &item{ID: 1, Val: "a"})

	removed, err := tbl.RemoveExpected(1, nil)
	require.False(t, removed)
	require.ErrorIs(t, err, ErrNullValueDisallowed)
	_, found, _ := tbl.Get(1)
	require.True(t, found, "a rejected nil expected must not remove the entry")
}

func TestOpenAddressedRemove(t *testing.T) {
	tbl := newTestFlat(t, 8, 0.5)
	_, _, _ = tbl.Put(1, item{ID: 1, Val: "a"})

	removed, found, err := tbl.RemoveKey(1)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "a", removed.Val)

	_, found, _ = tbl.Get(1)
	require.False(t, found)

	_, found, err = tbl.RemoveKey(1)
	require.NoError(t, err)
	require.False(t, found)
}

func TestOpenAddressedRemoveExpected(t *testing.T) {
	tbl := newTestFlat(t, 8, 0.5)
	_, _, _ = tbl.Put(1, item{ID: 1, Val: "a"})

	removed, err := tbl.RemoveExpected(1, item{ID: 1, Val: "wrong"})
	require.NoError(t, err)
	require.False(t, removed)
	_, found, _ := tbl.Get(1)
	require.True(t, found)

	removed, err = tbl.RemoveExpected(1, item{ID: 1, Val: "a"})
	require.NoError(t, err)
	require.True(t, removed)
	_, found, _ = tbl.Get(1)
	require.False(t, found)
}

// TestOpenAddressedTombstoneReuse re-inserts keys whose slots hold
// tombstones left by prior removes, and checks that every re-insert
// succeeds and the size returns to the number of keys.
func TestOpenAddressedTombstoneReuse(t *testing.T) {
	tbl := newTestFlat(t, 64, 0.9)
	for i := int64(0); i < 10; i++ {
		_, _, err := tbl.Put(i, item{ID: i, Val: "x"})
		require.NoError(t, err)
	}
	for i := int64(0); i < 10; i++ {
		_, found, err := tbl.RemoveKey(i)
		require.NoError(t, err)
		require.True(t, found)
	}
	require.Equal(t, 0, tbl.Size())
	for i := int64(0); i < 10; i++ {
		_, _, err := tbl.Put(i, item{ID: i, Val: "y"})
		require.NoError(t, err)
	}
	require.Equal(t, 10, tbl.Size())
}

func TestOpenAddressedGetOrCreateRunsFactoryOnce(t *testing.T) {
	tbl := newTestFlat(t, 8, 0.5)
	var calls int
	ctx := context.Background()
	factory := func(ctx context.Context, key int64, extras ...any) (item, error) {
		calls++
		return item{ID: key, Val: "created"}, nil
	}

	v, err := tbl.GetOrCreate(ctx, 1, factory)
	require.NoError(t, err)
	require.Equal(t, "created", v.Val)
	require.Equal(t, 1, calls)

	v, err = tbl.GetOrCreate(ctx, 1, factory)
	require.NoError(t, err)
	require.Equal(t, "created", v.Val)
	require.Equal(t, 1, calls)
}

func TestOpenAddressedRehashGrowsAndPreservesEntries(t *testing.T) {
	tbl := newTestFlat(t, 8, 0.5)
	const n = 500
	for i := int64(0); i < n; i++ {
		_, _, err := tbl.Put(i, item{ID: i, Val: "v"})
		require.NoError(t, err)
	}
	require.Equal(t, n, tbl.Size())
	require.Greater(t, tbl.Capacity(), 8)
	for i := int64(0); i < n; i++ {
		v, ok, err := tbl.Get(i)
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, i, v.ID)
	}
}

func TestOpenAddressedCompactShrinks(t *testing.T) {
	tbl := newTestFlat(t, 8, 0.5)
	const n = 200
	for i := int64(0); i < n; i++ {
		_, _, _ = tbl.Put(i, item{ID: i, Val: "v"})
	}
	for i := int64(0); i < n-5; i++ {
		_, _, _ = tbl.RemoveKey(i)
	}
	before := tbl.Capacity()
	require.NoError(t, tbl.Compact())
	require.Equal(t, 5, tbl.Size())
	require.LessOrEqual(t, tbl.Capacity(), before)
	for i := int64(n - 5); i < n; i++ {
		_, ok, _ := tbl.Get(i)
		require.True(t, ok)
	}
}

func TestOpenAddressedClear(t *testing.T) {
	tbl := newTestFlat(t, 8, 0.5)
	for i := int64(0); i < 20; i++ {
		_, _, _ = tbl.Put(i, item{ID: i, Val: "v"})
	}
	require.NoError(t, tbl.Clear())
	require.Equal(t, 0, tbl.Size())
	require.True(t, tbl.IsEmpty())
	_, ok, _ := tbl.Get(0)
	require.False(t, ok)
}

func TestOpenAddressedGetByIndexCacheInvalidation(t *testing.T) {
	tbl := newTestFlat(t, 16, 0.5)
	for i := int64(0); i < 5; i++ {
		_, _, _ = tbl.Put(i, item{ID: i, Val: "v"})
	}
	seen := map[int64]bool{}
	for i := 0; i < tbl.Size(); i++ {
		v, ok := tbl.GetByIndex(i)
		require.True(t, ok)
		seen[v.ID] = true
	}
	require.Len(t, seen, 5)

	_, _, _ = tbl.Put(5, item{ID: 5, Val: "v"})
	seen = map[int64]bool{}
	for i := 0; i < tbl.Size(); i++ {
		v, ok := tbl.GetByIndex(i)
		require.True(t, ok)
		seen[v.ID] = true
	}
	require.Len(t, seen, 6)
}

func TestOpenAddressedIteratorRemove(t *testing.T) {
	tbl := newTestFlat(t, 16, 0.5)
	for i := int64(0); i < 10; i++ {
		_, _, _ = tbl.Put(i, item{ID: i, Val: "v"})
	}
	it := tbl.NewIterator()
	removedCount := 0
	for {
		v, ok := it.Next()
		if !ok {
			break
		}
		if v.ID%2 == 0 {
			require.NoError(t, it.Remove())
			removedCount++
		}
	}
	require.Equal(t, 5, removedCount)
	require.Equal(t, 5, tbl.Size())
	for i := int64(0); i < 10; i++ {
		_, ok, _ := tbl.Get(i)
		if i%2 == 0 {
			require.False(t, ok)
		} else {
			require.True(t, ok)
		}
	}
}

func TestOpenAddressedIteratorExhaustedRemoveErrors(t *testing.T) {
	tbl := newTestFlat(t, 8, 0.5)
	it := tbl.NewIterator()
	_, ok := it.Next()
	require.False(t, ok)
	require.ErrorIs(t, it.Remove(), ErrNoSuchElement)
}

// TestOpenAddressedConcurrentReadsDuringWrites exercises the lock-free read
// path against a concurrently-mutating writer, verifying the race detector
// (when run with -race) finds no data race and that every value observed is
// internally consistent (key matches the derived key stored in the value).
func TestOpenAddressedConcurrentReadsDuringWrites(t *testing.T) {
	tbl := newTestFlat(t, 8, 0.6)
	const n = 2000
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := int64(0); i < n; i++ {
			_, _, err := tbl.Put(i, item{ID: i, Val: "w"})
			require.NoError(t, err)
		}
	}()

	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := int64(0); i < n; i++ {
				if v, ok, err := tbl.Get(i); ok {
					require.NoError(t, err)
					require.Equal(t, i, v.ID)
				}
			}
		}()
	}
	wg.Wait()
	require.Equal(t, n, tbl.Size())
}

func TestOpenAddressedEnsureCapacity(t *testing.T) {
	tbl := newTestFlat(t, 3, 0.5)
	require.NoError(t, tbl.EnsureCapacity(100))
	require.GreaterOrEqual(t, tbl.Capacity(), 100)
	for i := int64(0); i < 100; i++ {
		_, _, err := tbl.Put(i, item{ID: i})
		require.NoError(t, err)
	}
	capAfter := tbl.Capacity()
	require.GreaterOrEqual(t, capAfter, 100)
}

func TestOpenAddressedContainsValue(t *testing.T) {
	tbl := newTestFlat(t, 8, 0.5)
	_, _, _ = tbl.Put(1, item{ID: 1, Val: "z"})
	require.True(t, tbl.ContainsValue(item{ID: 1, Val: "z"}))
	require.False(t, tbl.ContainsValue(item{ID: 1, Val: "other"}))
}

func TestOpenAddressedFloat64KeyAdapterSignedZeroQuirk(t *testing.T) {
	type fitem struct {
		K float64
		V string
	}
	adapter := Float64KeyAdapter[fitem](func(v fitem) float64 { return v.K })
	tbl := NewOpenAddressed[float64, fitem](adapter, 8, 0.5, nil)

	_, _, err := tbl.Put(0.0, fitem{K: 0.0, V: "positive"})
	require.NoError(t, err)
	// A constant -0.0 is +0 in Go; Copysign yields a real negative zero.
	negZero := math.Copysign(0, -1)
	_, _, err = tbl.Put(negZero, fitem{K: negZero, V: "negative"})
	require.NoError(t, err)

	require.Equal(t, 2, tbl.Size(), "+0.0 and -0.0 must occupy distinct slots")
	pos, ok, _ := tbl.Get(0.0)
	require.True(t, ok)
	require.Equal(t, "positive", pos.V)
}

func TestStrictKeyAdapterRejectsBoxedAccess(t *testing.T) {
	strict := NewStrictKeyAdapter[int64, item](intAdapter())
	_, err := strict.HashKeyBoxed(int64(5))
	require.True(t, errors.Is(err, ErrMustNotBox))
	_, err = strict.EqualKeyBoxed(int64(5), item{ID: 5})
	require.True(t, errors.Is(err, ErrMustNotBox))

	// The wrapped lax adapter still works through the embedded interface.
	require.Equal(t, int64(5), strict.GetKey(item{ID: 5}))
}

func TestNextPrimeMonotone(t *testing.T) {
	require.Equal(t, 3, NextPrime(0))
	require.Equal(t, 3, NextPrime(3))
	require.Equal(t, 5, NextPrime(4))
	require.Equal(t, 11, NextPrime(8))
}
