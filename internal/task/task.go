// Package task runs fire-and-forget background work with a bounded lifetime.
//
// Callers spawn a function and deliberately receive no handle to await; the
// runner guarantees each task a context that expires after the configured
// timeout and that all spawned work is drained before Close returns. Task
// outcomes are never propagated to the spawning control flow.
package task

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// Runner supervises best-effort background tasks.
type Runner struct {
	timeout  time.Duration
	wg       sync.WaitGroup
	closed   atomic.Bool
	rejected atomic.Uint64
}

// NewRunner returns a runner whose tasks are cancelled once timeout elapses.
func NewRunner(timeout time.Duration) *Runner {
	return &Runner{timeout: timeout}
}

// Go spawns fn on its own goroutine. The task's context is detached from the
// caller (the caller returning or failing must not cancel in-flight
// best-effort work) but bounded by the runner timeout. Spawns after Close are
// dropped and counted.
func (r *Runner) Go(fn func(ctx context.Context)) {
	if r == nil || fn == nil {
		return
	}
	if r.closed.Load() {
		r.rejected.Add(1)
		return
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
		defer cancel()

		fn(ctx)
	}()
}

// Close stops accepting new tasks and waits for in-flight ones to finish or
// time out.
func (r *Runner) Close() {
	if r == nil {
		return
	}
	r.closed.Store(true)
	r.wg.Wait()
}

// Rejected reports how many spawns arrived after Close.
func (r *Runner) Rejected() uint64 {
	if r == nil {
		return 0
	}
	return r.rejected.Load()
}

// Wait blocks until currently spawned tasks have completed. Intended for
// tests that need to observe a background outcome deterministically.
func (r *Runner) Wait() {
	if r == nil {
		return
	}
	r.wg.Wait()
}
