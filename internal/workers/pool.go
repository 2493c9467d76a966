// Package workers runs independent units of work on a bounded pool and hands
// results back in input order.
package workers

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// Pool bounds how many units run at once. A Pool may be shared by concurrent callers;
// the semaphore is the only shared state.
type Pool struct {
	sem   *semaphore.Weighted
	width int
}

// NewPool creates a pool; width <= 0 uses GOMAXPROCS
func NewPool(width int) *Pool {
	if width <= 0 {
		width = runtime.GOMAXPROCS(0)
	}
	return &Pool{sem: semaphore.NewWeighted(int64(width)), width: width}
}

// Width returns the maximum number of concurrent units
func (p *Pool) Width() int {
	return p.width
}

// slotKey marks a context whose goroutine already holds a slot of the pool
type slotKey struct{ p *Pool }

func (p *Pool) holding(ctx context.Context) context.Context {
	return context.WithValue(ctx, slotKey{p}, true)
}

// nested reports whether ctx belongs to a unit already running on p. Nested calls
// run inline on the caller's slot; acquiring a second slot could wait forever once
// the outer units fill the pool.
func (p *Pool) nested(ctx context.Context) bool {
	held, _ := ctx.Value(slotKey{p}).(bool)
	return held
}

// Outcome is the settled result of one unit
type Outcome[R any] struct {
	Value R
	Err   error
}

// Map runs fn for every item and returns the results in item order. The first
// error cancels the remaining units and is returned.
func Map[T, R any](ctx context.Context, p *Pool, items []T, fn func(ctx context.Context, i int, item T) (R, error)) ([]R, error) {
	results := make([]R, len(items))
	if p.nested(ctx) {
		for i, item := range items {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			r, err := fn(ctx, i, item)
			if err != nil {
				return nil, err
			}
			results[i] = r
		}
		return results, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	uctx := p.holding(gctx)

	for i, item := range items {
		if err := p.sem.Acquire(gctx, 1); err != nil {
			break
		}
		g.Go(func() error {
			defer p.sem.Release(1)
			r, err := fn(uctx, i, item)
			if err != nil {
				return err
			}
			results[i] = r
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

// MapSettled runs fn for every item and keeps going past failures; each item gets
// its own outcome. Items never started because ctx ended carry ctx.Err().
func MapSettled[T, R any](ctx context.Context, p *Pool, items []T, fn func(ctx context.Context, i int, item T) (R, error)) []Outcome[R] {
	outcomes := make([]Outcome[R], len(items))
	if p.nested(ctx) {
		for i, item := range items {
			if err := ctx.Err(); err != nil {
				outcomes[i].Err = err
				continue
			}
			r, err := fn(ctx, i, item)
			outcomes[i] = Outcome[R]{Value: r, Err: err}
		}
		return outcomes
	}

	var g errgroup.Group
	uctx := p.holding(ctx)

	for i, item := range items {
		if err := p.sem.Acquire(ctx, 1); err != nil {
			for j := i; j < len(items); j++ {
				outcomes[j].Err = err
			}
			break
		}
		g.Go(func() error {
			defer p.sem.Release(1)
			r, err := fn(uctx, i, item)
			outcomes[i] = Outcome[R]{Value: r, Err: err}
			return nil
		})
	}

	_ = g.Wait()
	return outcomes
}
