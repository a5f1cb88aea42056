package lineage

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// maxScanWorkers caps batch concurrency against the remote store. The store
// throttles aggressively; two in-flight resolutions is the negotiated limit.
const maxScanWorkers = 2

// BatchItem is the per-key outcome of a batch scan. Exactly one of Value
// and Err is meaningful.
type BatchItem[T any] struct {
	Index int
	Value T
	Err   error
}

// RunBatch applies fn to every key with at most `workers` goroutines
// (clamped to 1..2) sharing one cursor, pausing `pace` between items on
// each worker. One key failing, or fn panicking, never affects the other
// keys; results keep the input order. A cancelled context fails the
// remaining keys with the context error instead of invoking fn.
func RunBatch[K any, T any](
	ctx context.Context,
	keys []K,
	workers int,
	pace time.Duration,
	fn func(ctx context.Context, key K) (T, error),
) []BatchItem[T] {
	if workers < 1 {
		workers = 1
	}
	if workers > maxScanWorkers {
		workers = maxScanWorkers
	}
	if workers > len(keys) {
		workers = len(keys)
	}

	results := make([]BatchItem[T], len(keys))
	cursor := make(chan int)

	go func() {
		defer close(cursor)
		for i := range keys {
			cursor <- i
		}
	}()

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range cursor {
				results[i] = BatchItem[T]{Index: i}
				if err := ctx.Err(); err != nil {
					results[i].Err = err
					continue
				}
				results[i].Value, results[i].Err = runOne(ctx, keys[i], fn)
				if pace > 0 {
					select {
					case <-time.After(pace):
					case <-ctx.Done():
					}
				}
			}
		}()
	}
	wg.Wait()

	return results
}

// runOne invokes fn with panic isolation, so one bad item cannot take the
// whole batch down.
func runOne[K any, T any](ctx context.Context, key K, fn func(ctx context.Context, key K) (T, error)) (value T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("scan item panicked: %v", r)
		}
	}()
	return fn(ctx, key)
}
