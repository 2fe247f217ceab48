// Package detach runs fire-and-forget side effects that must outlive the
// request that triggered them.
package detach

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Task is a detached unit of work. Its context is not derived from the
// caller's, so cancelling the triggering request does not abort it.
type Task func(ctx context.Context)

// Group spawns detached tasks and lets shutdown code (and tests) wait for
// the ones still running. The zero value is not usable; call New.
type Group struct {
	log     zerolog.Logger
	timeout time.Duration
	wg      sync.WaitGroup
}

// New creates a Group whose tasks each get at most timeout to run.
// A zero timeout means no deadline.
func New(log zerolog.Logger, timeout time.Duration) *Group {
	return &Group{log: log, timeout: timeout}
}

// Go starts task without waiting for it. Panics are logged and swallowed.
func (g *Group) Go(name string, task Task) {
	g.wg.Add(1)
	go func() {
		defer g.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				g.log.Error().Interface("panic", r).Str("task", name).Msg("Detached task panicked")
			}
		}()

		ctx := context.Background()
		if g.timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, g.timeout)
			defer cancel()
		}
		task(ctx)
	}()
}

// Wait blocks until every spawned task has returned.
func (g *Group) Wait() {
	g.wg.Wait()
}

// WaitContext is Wait bounded by ctx.
func (g *Group) WaitContext(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		g.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
