// Package utils holds filesystem and concurrency helpers shared by the
// engine packages.
package utils

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"sync/atomic"
)

const MaxWorkers = 32

// Workers clamps n to [1, MaxWorkers]. Zero or less means GOMAXPROCS.
func Workers(n int) int {
	if n <= 0 {
		n = runtime.GOMAXPROCS(0)
	}
	return min(n, MaxWorkers)
}

// ForEach calls fn for every item from up to workers goroutines and waits
// for them. Items are claimed in order and none are claimed once ctx is
// done. Errors from fn and from ctx are joined.
func ForEach[T any](ctx context.Context, workers int, items []T, fn func(context.Context, T) error) error {
	var (
		next atomic.Int64
		mu   sync.Mutex
		errs []error
		wg   sync.WaitGroup
	)
	for range min(Workers(workers), len(items)) {
		wg.Go(func() {
			for ctx.Err() == nil {
				i := int(next.Add(1)) - 1
				if i >= len(items) {
					return
				}
				if err := fn(ctx, items[i]); err != nil {
					mu.Lock()
					errs = append(errs, err)
					mu.Unlock()
				}
			}
		})
	}
	wg.Wait()
	if err := ctx.Err(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
