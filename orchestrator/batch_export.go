package orchestrator

import (
	"context"
	"sync"
)

// Result is the outcome of one Request within a Batch call.
type Result struct {
	Request Request
	Err     error
}

// Batch runs every request's ExportChannel with up to parallelism
// pipelines concurrently, mirroring spec.md §5's "pipelines are
// independent and may run concurrently up to user-configured
// parallelism (default 1)". A request's onProgress, if any, would need
// to be supplied per-request; Batch itself reports no progress.
func Batch(ctx context.Context, requests []Request, parallelism int) []Result {
	if parallelism < 1 {
		parallelism = 1
	}
	results := make([]Result, len(requests))
	sem := make(chan struct{}, parallelism)
	var wg sync.WaitGroup

	for i, req := range requests {
		i, req := i, req
		sem <- struct{}{}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			results[i] = Result{Request: req, Err: ExportChannel(ctx, req, nil)}
		}()
	}
	wg.Wait()
	return results
}
