package keyedhash

// loader.go implements the singleflight-based de-duplication layer used by
// Map.GetOrLoad. The goal is to prevent a thundering herd
// when many goroutines request the same missing key simultaneously: only
// one loader function executes, the rest wait for its result — without
// holding the backing table's write lock for the whole duration of a
// potentially slow (I/O-bound) loader.
//
// The backing table's own GetOrCreate already guarantees the factory runs
// at most once per winning insertion, but it does so by holding the
// table-wide mutex across the factory call, which serialises every writer
// against a slow factory. Routing through singleflight first means only
// callers racing for the *same* key ever wait on each other; callers for
// distinct keys proceed independently and only briefly touch the table's
// mutex once the value is ready.
//
// © 2025 keyedhash authors. MIT License.

import (
	"context"
	"strconv"

	"golang.org/x/sync/singleflight"
)

// LoaderFunc produces the value for a key that is absent from the table. It
// must not call back into the same table for the same key: doing so would
// deadlock against the singleflight group serialising that key.
type LoaderFunc[K, V any] func(ctx context.Context, key K) (V, error)

// LoadResult holds the outcome of an asynchronous load. Shared follows
// x/sync/singleflight's convention: true when the result was delivered to
// more than one concurrent caller for the same key, including the one that
// executed the loader.
type LoadResult[V any] struct {
	Value  V
	Err    error
	Shared bool
}

type loaderGroup[K, V any] struct {
	g singleflight.Group
}

func newLoaderGroup[K, V any]() *loaderGroup[K, V] {
	return &loaderGroup[K, V]{}
}

// load executes fn at most once for the given key hash across all
// goroutines racing for it. Every waiter receives the same value/error. The
// returned bool follows x/sync/singleflight's convention: true when the
// result was handed to more than one caller, the executing one included.
func (lg *loaderGroup[K, V]) load(ctx context.Context, keyHash uint64, key K, fn LoaderFunc[K, V]) (val V, err error, shared bool) {
	k := strconv.FormatUint(keyHash, 16)
	res, err, shared := lg.g.Do(k, func() (any, error) {
		return fn(ctx, key)
	})
	if ctx.Err() != nil {
		var zero V
		return zero, ctx.Err(), shared
	}
	if err != nil {
		var zero V
		return zero, err, shared
	}
	return res.(V), nil, shared
}

// loadAsync is a convenience wrapper returning a channel delivering
// LoadResult, relying on singleflight.DoChan internally.
func (lg *loaderGroup[K, V]) loadAsync(ctx context.Context, keyHash uint64, key K, fn LoaderFunc[K, V]) <-chan LoadResult[V] {
	out := make(chan LoadResult[V], 1)
	k := strconv.FormatUint(keyHash, 16)

	ch := lg.g.DoChan(k, func() (any, error) {
		return fn(context.Background(), key)
	})

	go func() {
		select {
		case res := <-ch:
			if res.Err != nil {
				out <- LoadResult[V]{Err: res.Err, Shared: res.Shared}
			} else {
				out <- LoadResult[V]{Value: res.Val.(V), Shared: res.Shared}
			}
		case <-ctx.Done():
			var zero V
			out <- LoadResult[V]{Value: zero, Err: ctx.Err(), Shared: false}
		}
		close(out)
	}()
	return out
}
