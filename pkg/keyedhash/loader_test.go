package keyedhash

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoaderGroupDedupesConcurrentCallers(t *testing.T) {
	lg := newLoaderGroup[int64, string]()
	var calls atomic.Int64
	fn := func(ctx context.Context, key int64) (string, error) {
		calls.Add(1)
		return "value", nil
	}

	const n = 50
	var wg sync.WaitGroup
	results := make([]string, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			v, err, _ := lg.load(context.Background(), 42, 7, fn)
			require.NoError(t, err)
			results[idx] = v
		}(i)
	}
	wg.Wait()

	for _, r := range results {
		require.Equal(t, "value", r)
	}
	require.Equal(t, int64(1), calls.Load())
}

func TestLoaderGroupLoadAsync(t *testing.T) {
	lg := newLoaderGroup[int64, string]()
	fn := func(ctx context.Context, key int64) (string, error) {
		return "async-value", nil
	}
	ch := lg.loadAsync(context.Background(), 1, 1, fn)
	res := <-ch
	require.NoError(t, res.Err)
	require.Equal(t, "async-value", res.Value)
}

func TestLoaderGroupPropagatesError(t *testing.T) {
	lg := newLoaderGroup[int64, string]()
	boom := errors.New("boom")
	fn := func(ctx context.Context, key int64) (string, error) {
		return "", boom
	}
	_, err, _ := lg.load(context.Background(), 1, 1, fn)
	require.ErrorIs(t, err, boom)
}
