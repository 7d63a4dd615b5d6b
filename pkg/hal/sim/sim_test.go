package sim

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/modtalks/slink.go/pkg/hal"
)

func testContext(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestLines(t *testing.T) {
	port, peer := New()

	require.False(t, port.ReadLine(hal.LineWake))
	peer.SetWake(true)
	require.True(t, port.ReadLine(hal.LineWake))

	require.False(t, peer.ReadyAsserted())
	port.WriteLine(hal.LineReady, true)
	require.True(t, peer.ReadyAsserted())
	require.True(t, port.ReadLine(hal.LineReady))

	// Only the ready line is writable from the port side.
	port.WriteLine(hal.LineWake, false)
	require.True(t, port.ReadLine(hal.LineWake))

	require.False(t, peer.Pending())
	port.SetPeerPending(true)
	require.True(t, peer.Pending())
}

func TestWakeEdges(t *testing.T) {
	port, peer := New()
	var asserts, deasserts int
	port.OnEdge(hal.LineWake, hal.EdgeAssert, func() { asserts++ })
	port.OnEdge(hal.LineWake, hal.EdgeDeassert, func() { deasserts++ })

	peer.SetWake(true)
	peer.SetWake(true) // level unchanged, no edge
	peer.SetWake(false)
	peer.SetWake(true)
	require.Equal(t, 2, asserts)
	require.Equal(t, 1, deasserts)
}

func TestExchange(t *testing.T) {
	ctx := testContext(t)
	port, peer := New()

	var completed bool
	port.OnComplete(func() { completed = true })

	tx := []byte{1, 2, 3, 4}
	rx := make([]byte, 4)
	require.NoError(t, port.Exchange(tx, rx))
	require.ErrorIs(t, port.Exchange(tx, rx), ErrBusy)

	got, err := peer.Exchange(ctx, []byte{9, 8, 7, 6})
	require.NoError(t, err)
	require.Equal(t, tx, got)
	require.Equal(t, []byte{9, 8, 7, 6}, rx)
	require.True(t, completed)
	require.False(t, peer.Armed())

	// A fresh exchange may be armed now.
	require.NoError(t, port.Exchange(tx, rx))
}

func TestExchangeBufferSize(t *testing.T) {
	port, _ := New()
	require.ErrorIs(t, port.Exchange(nil, nil), ErrBufferSize)
	require.ErrorIs(t, port.Exchange(make([]byte, 4), make([]byte, 5)), ErrBufferSize)
}

func TestCancelExchange(t *testing.T) {
	port, peer := New()
	var completed bool
	port.OnComplete(func() { completed = true })

	require.NoError(t, port.Exchange(make([]byte, 4), make([]byte, 4)))
	require.True(t, peer.Armed())
	port.CancelExchange()
	require.False(t, peer.Armed())
	require.False(t, completed)

	// A cancelled exchange leaves a waiting peer blocked until the
	// next arm or its context expires.
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := peer.Exchange(ctx, make([]byte, 4))
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestWaiters(t *testing.T) {
	ctx := testContext(t)
	port, peer := New()

	go func() {
		time.Sleep(10 * time.Millisecond)
		port.WriteLine(hal.LineReady, true)
		port.SetPeerPending(true)
	}()
	require.NoError(t, peer.WaitReady(ctx))
	require.NoError(t, peer.WaitPending(ctx, true))
}

func TestAttach(t *testing.T) {
	port, peer := New()
	var events []bool
	port.OnAttach(func(attached bool) { events = append(events, attached) })
	peer.SetAttached(true)
	peer.SetAttached(false)
	require.Equal(t, []bool{true, false}, events)
}
