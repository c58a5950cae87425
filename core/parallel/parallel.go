// Package parallel splits index ranges across goroutines. The booster uses it
// to scan features concurrently and the oversampler to search neighbours.
package parallel

import (
	"runtime"
	"sync"
)

// ParallelizeN divides items across workers goroutines and calls fn once per
// contiguous range [start, end). workers <= 0 means runtime.NumCPU().
//
// A panic in fn is re-raised on the calling goroutine after every worker
// has returned, so a deferred recover in the caller still sees it.
func ParallelizeN(items, workers int, fn func(start, end int)) {
	if items <= 0 {
		return
	}

	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > items {
		workers = items
	}
	if workers == 1 {
		fn(0, items)
		return
	}

	chunkSize := (items + workers - 1) / workers

	var (
		wg        sync.WaitGroup
		once      sync.Once
		recovered any
	)
	for i := 0; i < workers; i++ {
		start := i * chunkSize
		end := start + chunkSize
		if end > items {
			end = items
		}
		if start >= end {
			continue
		}

		wg.Add(1)
		go func(s, e int) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					once.Do(func() { recovered = r })
				}
			}()
			fn(s, e)
		}(start, end)
	}

	wg.Wait()
	if recovered != nil {
		panic(recovered)
	}
}

// ParallelizeWithThreshold runs fn sequentially when items <= threshold and
// fans out across workers otherwise.
func ParallelizeWithThreshold(items, threshold, workers int, fn func(start, end int)) {
	if items <= threshold {
		if items > 0 {
			fn(0, items)
		}
		return
	}
	ParallelizeN(items, workers, fn)
}
