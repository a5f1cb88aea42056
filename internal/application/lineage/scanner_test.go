package lineage

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunBatch(t *testing.T) {
	ctx := context.Background()

	t.Run("preserves input order", func(t *testing.T) {
		keys := []int{10, 20, 30, 40, 50}
		results := RunBatch(ctx, keys, 2, 0, func(_ context.Context, k int) (int, error) {
			return k * 2, nil
		})

		require.Len(t, results, len(keys))
		for i, r := range results {
			require.NoError(t, r.Err)
			assert.Equal(t, i, r.Index)
			assert.Equal(t, keys[i]*2, r.Value)
		}
	})

	t.Run("one failing item does not affect the others", func(t *testing.T) {
		keys := []int{1, 2, 3}
		results := RunBatch(ctx, keys, 2, 0, func(_ context.Context, k int) (string, error) {
			if k == 2 {
				return "", errors.New("boom")
			}
			return fmt.Sprintf("ok-%d", k), nil
		})

		require.NoError(t, results[0].Err)
		require.Error(t, results[1].Err)
		require.NoError(t, results[2].Err)
		assert.Equal(t, "ok-3", results[2].Value)
	})

	t.Run("a panicking item is isolated", func(t *testing.T) {
		keys := []int{1, 2, 3}
		results := RunBatch(ctx, keys, 1, 0, func(_ context.Context, k int) (int, error) {
			if k == 2 {
				panic("unexpected shape")
			}
			return k, nil
		})

		require.NoError(t, results[0].Err)
		require.Error(t, results[1].Err)
		assert.Contains(t, results[1].Err.Error(), "unexpected shape")
		require.NoError(t, results[2].Err)
	})

	t.Run("concurrency never exceeds the worker cap", func(t *testing.T) {
		var inFlight, peak int32
		var mu sync.Mutex

		keys := make([]int, 12)
		RunBatch(ctx, keys, 8, 0, func(_ context.Context, _ int) (struct{}, error) {
			n := atomic.AddInt32(&inFlight, 1)
			mu.Lock()
			if n > peak {
				peak = n
			}
			mu.Unlock()
			defer atomic.AddInt32(&inFlight, -1)
			return struct{}{}, nil
		})

		assert.LessOrEqual(t, peak, int32(maxScanWorkers))
	})

	t.Run("cancelled context fails remaining items without invoking fn", func(t *testing.T) {
		cancelled, cancel := context.WithCancel(ctx)
		cancel()

		var calls int32
		keys := []int{1, 2, 3}
		results := RunBatch(cancelled, keys, 1, 0, func(_ context.Context, _ int) (int, error) {
			atomic.AddInt32(&calls, 1)
			return 0, nil
		})

		assert.Zero(t, atomic.LoadInt32(&calls))
		for _, r := range results {
			assert.ErrorIs(t, r.Err, context.Canceled)
		}
	})

	t.Run("empty key set returns an empty result set", func(t *testing.T) {
		results := RunBatch(ctx, nil, 2, 0, func(_ context.Context, _ int) (int, error) {
			return 0, nil
		})
		assert.Empty(t, results)
	})
}
