// Package base implements the base (host) side of the accessory bus.
package base

import (
	"context"
	"time"

	"github.com/golang/glog"

	"github.com/modtalks/slink.go/pkg/dl"
	"github.com/modtalks/slink.go/pkg/hal/sim"
)

// The base owns the bus clock: it decides when a transfer happens by
// asserting wake and waiting for the datalink side to signal ready.
// It runs a transfer whenever it has queued data of its own or the
// datalink side raises the pending interrupt line.

// DefaultPollInterval is how often the driver re-checks the pending
// line between transfers when it has nothing queued itself.
const DefaultPollInterval = 2 * time.Millisecond

// Driver drives the base side of a simulated bus.
type Driver struct {
	Handler      dl.MessageHandler
	PollInterval time.Duration

	peer   *sim.Peer
	queue  *dl.TxQueue
	rasm   dl.Reassembler
	kickCh chan struct{}
}

// NewDriver creates a Driver over the peer end of a sim bus.
func NewDriver(peer *sim.Peer) *Driver {
	return &Driver{
		PollInterval: DefaultPollInterval,
		peer:         peer,
		queue:        dl.NewTxQueue(dl.DefaultQueueDepth),
		kickCh:       make(chan struct{}, 1),
	}
}

// Send fragments msg for transmission on upcoming transfers.
func (d *Driver) Send(msg []byte) error {
	if err := d.queue.Enqueue(msg); err != nil {
		return err
	}
	select {
	case d.kickCh <- struct{}{}:
	default:
	}
	return nil
}

// Run transfers frames until the context is cancelled.
func (d *Driver) Run(ctx context.Context) error {
	timer := time.NewTicker(d.PollInterval)
	defer timer.Stop()
	for {
		if d.queue.Len() > 0 || d.peer.Pending() {
			if err := d.transfer(ctx); err != nil {
				return err
			}
			continue
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-d.kickCh:
		case <-timer.C:
		}
	}
}

// transfer runs one wake/ready/exchange cycle.
func (d *Driver) transfer(ctx context.Context) error {
	var f dl.Frame
	d.queue.Dequeue(&f) // zero value is the dummy frame

	d.peer.SetWake(true)
	defer d.peer.SetWake(false)
	if err := d.peer.WaitReady(ctx); err != nil {
		return err
	}
	raw, err := d.peer.Exchange(ctx, f.Bytes())
	if err != nil {
		return err
	}

	rf, err := dl.ParseFrame(raw)
	if err != nil {
		glog.Errorf("base: parse received frame: %v", err)
		return nil
	}
	outcome, msg := d.rasm.Accept(&rf)
	switch outcome {
	case dl.OutcomeComplete:
		glog.V(2).Infof("base: message received, %d bytes", len(msg))
		if h := d.Handler; h != nil {
			h.HandleMessage(ctx, msg)
		}
	case dl.OutcomeOverflow:
		glog.Warningf("base: oversized message dropped")
	}
	return nil
}
