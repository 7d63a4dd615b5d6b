// Package run provides small helpers to run background components.
package run

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/golang/glog"
)

// Runnable defines a generic interface for background runners.
type Runnable interface {
	Run(context.Context) error
}

// Func is the func form of Runnable.
type Func func(context.Context) error

// Run implements Runnable.
func (f Func) Run(ctx context.Context) error {
	return f(ctx)
}

// Group runs multiple Runnables and collects their errors.
type Group struct {
	ctx     context.Context
	errCh   chan error
	started int
}

// NewGroup creates a Group bound to ctx.
func NewGroup(ctx context.Context) *Group {
	return &Group{ctx: ctx, errCh: make(chan error, 1)}
}

// Go spawns runnables on their own goroutines.
func (g *Group) Go(runnables ...Runnable) *Group {
	for _, r := range runnables {
		g.started++
		go func(r Runnable) {
			g.errCh <- r.Run(g.ctx)
		}(r)
	}
	return g
}

// Wait blocks until every spawned Runnable returned, joining errors.
// Context cancellation is not reported as an error.
func (g *Group) Wait() error {
	var errs []error
	for i := 0; i < g.started; i++ {
		if err := <-g.errCh; err != nil && !errors.Is(err, context.Canceled) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Detached runs a func which doesn't accept a context. onCancel is
// called only when the context is cancelled, and must unblock fn.
func Detached(ctx context.Context, onCancel func(), fn func() error) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- fn()
	}()
	select {
	case <-ctx.Done():
		if onCancel != nil {
			onCancel()
		}
		<-errCh
		return context.Canceled
	case err := <-errCh:
		return err
	}
}

// SignalContext derives a context cancelled by SIGINT/SIGTERM.
func SignalContext(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			glog.Info("stop requested")
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()
	return ctx, cancel
}
