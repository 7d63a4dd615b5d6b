package dl

import (
	"context"
	"sync/atomic"

	"github.com/golang/glog"

	"github.com/modtalks/slink.go/pkg/hal"
)

// MessageHandler is called when a complete message is reassembled.
type MessageHandler interface {
	HandleMessage(context.Context, []byte)
}

// HandleMessageFunc is func type of MessageHandler.
type HandleMessageFunc func(context.Context, []byte)

// HandleMessage implements MessageHandler.
func (f HandleMessageFunc) HandleMessage(ctx context.Context, msg []byte) {
	f(ctx, msg)
}

// AttachNotifier is called when the link attaches or detaches.
type AttachNotifier interface {
	AttachChanged(context.Context, bool)
}

// AttachChangedFunc is func type of AttachNotifier.
type AttachChangedFunc func(context.Context, bool)

// AttachChanged implements AttachNotifier.
func (f AttachChangedFunc) AttachChanged(ctx context.Context, attached bool) {
	f(ctx, attached)
}

// Stats is a snapshot of link counters.
type Stats struct {
	TxFrames   uint64
	RxFrames   uint64
	RxMessages uint64
	RxDropped  uint64
	Detaches   uint64
}

// Link drives the datalink over a hal.Port.
//
// All scheduling decisions run on the single goroutine inside Run: the
// wake interrupt, the exchange completion and attach events are posted
// to channels instead of mutating state from their own contexts, which
// stands in for the interrupt-masked critical sections of the reference
// firmware. Send may be called from any goroutine.
type Link struct {
	Handler  MessageHandler
	Notifier AttachNotifier

	port  hal.Port
	queue *TxQueue
	rasm  Reassembler

	// Exchange buffers handed to the port. Owned by the port from
	// Exchange until completion or cancel; the reactor only touches
	// them while no exchange is outstanding.
	txRaw [FrameSize]byte
	rxRaw [FrameSize]byte

	// inFlight marks the single outstanding exchange. Reactor-only.
	inFlight bool

	kickCh     chan struct{}
	completeCh chan struct{}
	attachCh   chan bool

	txFrames   uint64
	rxFrames   uint64
	rxMessages uint64
	rxDropped  uint64
	detaches   uint64
}

// NewLink creates a Link over the port with the default queue depth.
func NewLink(port hal.Port) *Link {
	return NewLinkWithDepth(port, DefaultQueueDepth)
}

// NewLinkWithDepth creates a Link with an explicit outbound ring depth.
func NewLinkWithDepth(port hal.Port, depth int) *Link {
	l := &Link{
		port:       port,
		queue:      NewTxQueue(depth),
		kickCh:     make(chan struct{}, 1),
		completeCh: make(chan struct{}, 1),
		attachCh:   make(chan bool, 4),
	}
	// Ready must be deasserted before the wake edge is armed, so a
	// peer polling ready never sees a stale assertion.
	port.WriteLine(hal.LineReady, false)
	port.OnComplete(func() {
		select {
		case l.completeCh <- struct{}{}:
		default:
		}
	})
	port.OnEdge(hal.LineWake, hal.EdgeAssert, l.kick)
	port.OnAttach(func(attached bool) {
		l.attachCh <- attached
	})
	return l
}

// Send fragments msg onto the outbound queue and kicks the scheduler.
//
// It fails with ErrMessageTooLarge or ErrQueueFull, both leaving the
// queue untouched. A zero-length msg enqueues nothing but still kicks.
func (l *Link) Send(msg []byte) error {
	if err := l.queue.Enqueue(msg); err != nil {
		return err
	}
	glog.V(2).Infof("queued %d fragments", FragmentCount(len(msg)))
	l.kick()
	return nil
}

// QueueLen reports the number of fragments awaiting transmission.
func (l *Link) QueueLen() int {
	return l.queue.Len()
}

// Stats returns a snapshot of the link counters.
func (l *Link) Stats() Stats {
	return Stats{
		TxFrames:   atomic.LoadUint64(&l.txFrames),
		RxFrames:   atomic.LoadUint64(&l.rxFrames),
		RxMessages: atomic.LoadUint64(&l.rxMessages),
		RxDropped:  atomic.LoadUint64(&l.rxDropped),
		Detaches:   atomic.LoadUint64(&l.detaches),
	}
}

// Run processes link events until the context is cancelled.
func (l *Link) Run(ctx context.Context) error {
	// The peer may have asserted wake before we started listening.
	l.tryStartExchange(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.kickCh:
			l.tryStartExchange(ctx)
		case <-l.completeCh:
			l.exchangeDone(ctx)
		case attached := <-l.attachCh:
			l.attachChanged(ctx, attached)
		}
	}
}

// kick schedules a tryStartExchange on the reactor, coalescing bursts.
func (l *Link) kick() {
	select {
	case l.kickCh <- struct{}{}:
	default:
	}
}

// tryStartExchange arms one exchange if all preconditions hold:
// no exchange outstanding, ready not already asserted, peer wake
// asserted. Failing any of them is a no-op; every trigger calls this
// opportunistically. The peer pending line is refreshed regardless.
func (l *Link) tryStartExchange(ctx context.Context) {
	defer func() {
		l.port.SetPeerPending(l.queue.Len() > 0)
	}()

	if l.inFlight {
		glog.V(3).Info("exchange already outstanding")
		return
	}
	if l.port.ReadLine(hal.LineReady) {
		glog.V(3).Info("already armed")
		return
	}
	if !l.port.ReadLine(hal.LineWake) {
		glog.V(3).Info("wake not asserted")
		return
	}

	var f Frame
	if !l.queue.Dequeue(&f) {
		// Nothing to send: clock out a dummy so the peer can talk.
		f = Frame{}
	}
	f.Encode(l.txRaw[:])
	if err := l.port.Exchange(l.txRaw[:], l.rxRaw[:]); err != nil {
		glog.Errorf("exchange start: %v", err)
		return
	}
	l.inFlight = true
	if f.Valid {
		atomic.AddUint64(&l.txFrames, 1)
	}
	// Tell the peer we are armed.
	l.port.WriteLine(hal.LineReady, true)
}

// exchangeDone finishes the outstanding exchange: releases the ready
// line, absorbs the received frame and immediately re-evaluates whether
// another exchange is due.
func (l *Link) exchangeDone(ctx context.Context) {
	if !l.inFlight {
		// Completion for an exchange already cancelled by detach.
		glog.V(2).Info("stale completion ignored")
		return
	}
	l.port.WriteLine(hal.LineReady, false)
	l.inFlight = false

	f, err := ParseFrame(l.rxRaw[:])
	if err != nil {
		glog.Errorf("parse received frame: %v", err)
	} else {
		l.absorb(ctx, &f)
	}
	l.tryStartExchange(ctx)
}

func (l *Link) absorb(ctx context.Context, f *Frame) {
	if f.Valid {
		atomic.AddUint64(&l.rxFrames, 1)
	}
	outcome, msg := l.rasm.Accept(f)
	switch outcome {
	case OutcomeComplete:
		atomic.AddUint64(&l.rxMessages, 1)
		glog.V(2).Infof("message received, %d bytes", len(msg))
		if h := l.Handler; h != nil {
			h.HandleMessage(ctx, msg)
		}
	case OutcomeOverflow:
		if !f.More {
			// Final fragment of an oversized message: the whole
			// message is gone. There is no NACK on this bus, the
			// loss is local and silent.
			atomic.AddUint64(&l.rxDropped, 1)
			glog.Warningf("oversized message dropped")
		}
	}
}

// attachChanged reacts to link attach/detach. Detach cancels the
// outstanding exchange and forgets all pending work; no delivery
// guarantee survives it.
func (l *Link) attachChanged(ctx context.Context, attached bool) {
	if n := l.Notifier; n != nil {
		n.AttachChanged(ctx, attached)
	}
	if attached {
		glog.Info("link attached")
		return
	}
	glog.Info("link detached, cleaning up")
	atomic.AddUint64(&l.detaches, 1)
	l.port.CancelExchange()
	l.inFlight = false
	if n := l.queue.Drain(); n > 0 {
		glog.Warningf("detach dropped %d queued fragments", n)
	}
	l.rasm.Reset()
	l.port.WriteLine(hal.LineReady, false)
	l.port.SetPeerPending(false)
}
