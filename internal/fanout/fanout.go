// Package fanout runs independent work items with bounded concurrency.
//
// Items never cancel each other: a failing item is the caller's business and
// every item runs to completion before Map or Each returns.
package fanout

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Map calls fn for every item with at most limit calls in flight (limit <= 0 is
// unbounded) and returns the results in input order.
func Map[T, R any](ctx context.Context, limit int, items []T, fn func(ctx context.Context, item T) R) []R {
	results := make([]R, len(items))
	if len(items) == 0 {
		return results
	}

	var g errgroup.Group
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i, item := range items {
		g.Go(func() error {
			results[i] = fn(ctx, item)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

// Each calls fn for every item with at most limit calls in flight.
func Each[T any](ctx context.Context, limit int, items []T, fn func(ctx context.Context, item T)) {
	Map(ctx, limit, items, func(ctx context.Context, item T) struct{} {
		fn(ctx, item)
		return struct{}{}
	})
}

// Indices returns 0..n-1, the usual input for per-index ledger reads.
func Indices(n uint64) []uint64 {
	out := make([]uint64, n)
	for i := range out {
		out[i] = uint64(i)
	}
	return out
}
