package goroutine

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"runtime/debug"
	"sync"

	"github.com/metafog/freesend/internal/pkg/stacktrace"
)

// DefaultMaxConcurrency is used when NewGroup receives a non-positive limit.
const DefaultMaxConcurrency int = 8

// Group runs tasks concurrently with a bounded worker count.
//
// The first task error cancels the group's context so the remaining tasks can
// stop early. Wait returns that first error.
type Group struct {
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	sema   chan struct{}
	once   sync.Once
	err    error
}

// NewGroup creates a Group whose tasks observe a context derived from ctx.
func NewGroup(ctx context.Context, limit int) *Group {
	if limit < 1 {
		limit = min(runtime.NumCPU(), DefaultMaxConcurrency)
	}

	gctx, cancel := context.WithCancel(ctx)

	return &Group{
		ctx:    gctx,
		cancel: cancel,
		sema:   make(chan struct{}, limit), // Semaphore to limit workers
	}
}

// Go schedules a task. The caller blocks until a semaphore slot is free, so
// tasks start in submission order. Once the group's context is done, further
// tasks are not started and the group fails with the context error.
func (g *Group) Go(f func(ctx context.Context) error) {
	select {
	case g.sema <- struct{}{}: // Acquire a semaphore slot
	case <-g.ctx.Done():
		g.fail(g.ctx.Err())
		return
	}

	g.wg.Add(1)

	go func() {
		defer g.wg.Done()
		defer func() { <-g.sema }()

		defer func() {
			if rvr := recover(); rvr != nil {
				stack := debug.Stack()
				paths := stacktrace.InternalPaths(stack)
				if len(paths) == 0 {
					slog.ErrorContext(g.ctx, "panic occurred in goroutine", "stack", string(stack))
				} else {
					slog.ErrorContext(g.ctx, "panic occurred in goroutine", "stack", paths)
				}

				g.fail(fmt.Errorf("panic in goroutine: %v", rvr))
			}
		}()

		if err := f(g.ctx); err != nil {
			g.fail(err)
		}
	}()
}

// Wait blocks until all scheduled tasks finish and returns the first error.
func (g *Group) Wait() error {
	g.wg.Wait()
	g.cancel()

	return g.err
}

func (g *Group) fail(err error) {
	g.once.Do(func() {
		g.err = err
		g.cancel()
	})
}
