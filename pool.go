package main

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

// workerPool runs tasks on at most size goroutines. Wait is the phase barrier:
// it returns only once every submitted task has returned.
type workerPool struct {
	ctx     context.Context
	group   *errgroup.Group
	dropped atomic.Int64
}

func newWorkerPool(ctx context.Context, size int) *workerPool {
	group := new(errgroup.Group)
	group.SetLimit(size)
	return &workerPool{ctx: ctx, group: group}
}

// Submit blocks until a worker is free. Once the pool's context is done no
// further tasks run and Submit reports false.
func (p *workerPool) Submit(task func(ctx context.Context)) bool {
	if p.ctx.Err() != nil {
		p.dropped.Add(1)
		return false
	}

	p.group.Go(func() error {
		// the context may have ended while this task waited for a slot
		if p.ctx.Err() != nil {
			p.dropped.Add(1)
			return nil
		}
		task(p.ctx)
		return nil
	})
	return true
}

func (p *workerPool) Wait() {
	p.group.Wait()
}

// Dropped counts tasks that never ran because the context ended first.
func (p *workerPool) Dropped() int {
	return int(p.dropped.Load())
}
