// Package workerpool bounds concurrent fan-out across the components
// that iterate over files or candidates, per the concurrency model's
// "bounded worker pool (default width: 4; overridable per call)".
package workerpool

import (
	"context"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// Pool runs work items with at most Width concurrently in flight.
type Pool struct {
	width int64
}

// New creates a Pool with the given width. A width <= 0 is clamped to 1.
func New(width int) *Pool {
	if width <= 0 {
		width = 1
	}
	return &Pool{width: int64(width)}
}

// Run executes fn once per item in items, bounded to p.width concurrent
// invocations. It returns the first error any invocation returns (via
// errgroup), after waiting for all in-flight invocations to finish.
func Run[T any](ctx context.Context, p *Pool, items []T, fn func(context.Context, T) error) error {
	sem := semaphore.NewWeighted(p.width)
	g, gctx := errgroup.WithContext(ctx)

	for _, item := range items {
		item := item
		if err := sem.Acquire(gctx, 1); err != nil {
			// Context was cancelled while waiting for a slot; stop
			// launching new work and let in-flight work drain via Wait.
			break
		}
		g.Go(func() error {
			defer sem.Release(1)
			return fn(gctx, item)
		})
	}

	return g.Wait()
}

// Map executes fn once per item, bounded to p.width concurrent
// invocations, and returns one result per input item in input order.
// A per-item error is recorded but does not stop other items from
// running; callers that want best-effort, continue-past-failures
// semantics should collect errs and inspect them per index rather than
// treat any single error as fatal.
func Map[T, R any](ctx context.Context, p *Pool, items []T, fn func(context.Context, T) (R, error)) ([]R, []error) {
	results := make([]R, len(items))
	errs := make([]error, len(items))
	sem := semaphore.NewWeighted(p.width)

	var g errgroup.Group
	for i, item := range items {
		i, item := i, item
		if err := sem.Acquire(ctx, 1); err != nil {
			errs[i] = err
			continue
		}
		g.Go(func() error {
			defer sem.Release(1)
			r, err := fn(ctx, item)
			results[i] = r
			errs[i] = err
			return nil
		})
	}
	_ = g.Wait()

	return results, errs
}

// Width reports the pool's configured concurrency bound.
func (p *Pool) Width() int {
	return int(p.width)
}
