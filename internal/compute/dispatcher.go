// Package compute models the parallel device the analysis and render
// passes dispatch onto: a parallel-for over a disjoint index domain with
// a hard barrier at the end of every dispatch. Correctness of callers
// relies on each work item writing only its own output indices; within a
// dispatch, items run in arbitrary order and parallelism.
package compute

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"sync/atomic"

	"audioviz/internal/log"
)

// ErrUnavailable is returned by Dispatch after the device has been
// closed. Callers treat it as device loss and route work to a
// sequential fallback.
var ErrUnavailable = errors.New("compute: device unavailable")

// Kernel is a single work item, invoked once per index in [0, n).
// A kernel must only write outputs owned by its own index.
type Kernel func(i int)

// Dispatcher executes kernels over an index domain. Dispatch blocks
// until every work item has completed (the inter-stage barrier), so two
// consecutive dispatches never overlap.
type Dispatcher interface {
	Dispatch(ctx context.Context, n int, kernel Kernel) error
	Available() bool
	Close() error
}

// WorkerPool is a goroutine-backed Dispatcher. The index domain is
// split into contiguous chunks, one per worker, and joined with a
// WaitGroup before Dispatch returns.
type WorkerPool struct {
	numWorkers int
	closed     atomic.Bool
}

var _ Dispatcher = (*WorkerPool)(nil)

// NewWorkerPool creates a dispatcher with the given parallelism.
// numWorkers <= 0 selects runtime.NumCPU().
func NewWorkerPool(numWorkers int) *WorkerPool {
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}
	log.Debugf("Compute: worker pool dispatcher with %d workers", numWorkers)
	return &WorkerPool{numWorkers: numWorkers}
}

// NumWorkers returns the configured parallelism.
func (p *WorkerPool) NumWorkers() int {
	return p.numWorkers
}

// Dispatch runs kernel for every index in [0, n) and blocks until all
// work items finish. Returns ErrUnavailable after Close, or the context
// error if ctx was cancelled before the dispatch started. A dispatch
// already in flight always runs to completion; partial stages would
// leave the ping-pong buffers in an undefined state.
func (p *WorkerPool) Dispatch(ctx context.Context, n int, kernel Kernel) error {
	if p.closed.Load() {
		return ErrUnavailable
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if n <= 0 {
		return nil
	}

	chunkSize := (n + p.numWorkers - 1) / p.numWorkers

	var wg sync.WaitGroup
	for worker := 0; worker < p.numWorkers; worker++ {
		start := worker * chunkSize
		if start >= n {
			break
		}
		end := min(start+chunkSize, n)

		wg.Add(1)
		go func(start, end int) {
			defer wg.Done()
			for i := start; i < end; i++ {
				kernel(i)
			}
		}(start, end)
	}
	wg.Wait()

	return nil
}

// Available reports whether the dispatcher still accepts work.
func (p *WorkerPool) Available() bool {
	return !p.closed.Load()
}

// Close marks the device as lost. Subsequent dispatches fail with
// ErrUnavailable; in-flight dispatches are unaffected.
func (p *WorkerPool) Close() error {
	if p.closed.Swap(true) {
		return nil
	}
	log.Debugf("Compute: worker pool dispatcher closed")
	return nil
}

// Serial is the degenerate single-threaded device. Used for tests and
// for deterministic debugging of stage kernels.
type Serial struct {
	closed atomic.Bool
}

var _ Dispatcher = (*Serial)(nil)

// NewSerial creates a serial dispatcher.
func NewSerial() *Serial {
	return &Serial{}
}

// Dispatch runs kernel for every index in [0, n) on the calling goroutine.
func (s *Serial) Dispatch(ctx context.Context, n int, kernel Kernel) error {
	if s.closed.Load() {
		return ErrUnavailable
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		kernel(i)
	}
	return nil
}

// Available reports whether the dispatcher still accepts work.
func (s *Serial) Available() bool {
	return !s.closed.Load()
}

// Close marks the dispatcher as closed.
func (s *Serial) Close() error {
	s.closed.Store(true)
	return nil
}
