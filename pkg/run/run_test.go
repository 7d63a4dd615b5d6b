package run

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDetachedReturnsFnError(t *testing.T) {
	errBoom := errors.New("boom")
	err := Detached(context.Background(), nil, func() error {
		return errBoom
	})
	require.ErrorIs(t, err, errBoom)
}

func TestDetachedCancelUnblocks(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	stopCh := make(chan struct{})
	doneCh := make(chan error, 1)
	go func() {
		// fn blocks like an interactive prompt until onCancel stops it.
		doneCh <- Detached(ctx, func() { close(stopCh) }, func() error {
			<-stopCh
			return nil
		})
	}()

	cancel()
	select {
	case err := <-doneCh:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for Detached to return")
	}
}

func TestDetachedNoCancelCallbackBeforeDone(t *testing.T) {
	err := Detached(context.Background(), func() {
		t.Fatal("onCancel must not fire when fn finishes first")
	}, func() error {
		return nil
	})
	require.NoError(t, err)
}

func TestGroupJoinsErrors(t *testing.T) {
	errBoom := errors.New("boom")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	group := NewGroup(ctx).Go(
		Func(func(ctx context.Context) error { return ctx.Err() }),
		Func(func(context.Context) error { return errBoom }),
		Func(func(context.Context) error { return nil }),
	)
	// Cancellation is not an error; the real failure survives the join.
	require.ErrorIs(t, group.Wait(), errBoom)
}
