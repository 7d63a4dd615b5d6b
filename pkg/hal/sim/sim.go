package sim

import (
	"context"
	"errors"
	"sync"

	"github.com/modtalks/slink.go/pkg/hal"
)

var (
	// ErrBusy indicates Exchange was called while another exchange is
	// still armed. Real bus controllers reject this too; the datalink
	// must never do it.
	ErrBusy = errors.New("exchange already armed")
	// ErrBufferSize indicates mismatched or empty exchange buffers.
	ErrBufferSize = errors.New("bad exchange buffer size")
)

type edgeKey struct {
	line hal.Line
	edge hal.Edge
}

// wires is the shared state of one simulated bus.
type wires struct {
	mu      sync.Mutex
	changed chan struct{}

	ready   bool // driven by the port side
	wake    bool // driven by the peer side
	pending bool // driven by the port side

	armed   bool
	armedTx []byte
	armedRx []byte

	onComplete func()
	onAttach   func(bool)
	onEdge     map[edgeKey][]func()
}

// notify wakes every waiter observing wire state. Callers hold mu.
func (w *wires) notify() {
	close(w.changed)
	w.changed = make(chan struct{})
}

// wait blocks until cond holds or the context is done. cond is
// evaluated with mu held.
func (w *wires) wait(ctx context.Context, cond func() bool) error {
	for {
		w.mu.Lock()
		if cond() {
			w.mu.Unlock()
			return nil
		}
		ch := w.changed
		w.mu.Unlock()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ch:
		}
	}
}

// Port is the datalink-facing end of the simulated bus.
type Port struct {
	w *wires
}

// Peer is the base-facing end of the simulated bus.
type Peer struct {
	w *wires
}

// New creates a connected Port/Peer pair.
func New() (*Port, *Peer) {
	w := &wires{
		changed: make(chan struct{}),
		onEdge:  make(map[edgeKey][]func()),
	}
	return &Port{w: w}, &Peer{w: w}
}

// Exchange implements hal.Port.
func (p *Port) Exchange(tx, rx []byte) error {
	if len(tx) == 0 || len(tx) != len(rx) {
		return ErrBufferSize
	}
	p.w.mu.Lock()
	defer p.w.mu.Unlock()
	if p.w.armed {
		return ErrBusy
	}
	p.w.armed = true
	p.w.armedTx = tx
	p.w.armedRx = rx
	p.w.notify()
	return nil
}

// CancelExchange implements hal.Port.
func (p *Port) CancelExchange() {
	p.w.mu.Lock()
	if p.w.armed {
		p.w.armed = false
		p.w.armedTx, p.w.armedRx = nil, nil
		p.w.notify()
	}
	p.w.mu.Unlock()
}

// ReadLine implements hal.Port.
func (p *Port) ReadLine(line hal.Line) bool {
	p.w.mu.Lock()
	defer p.w.mu.Unlock()
	switch line {
	case hal.LineReady:
		return p.w.ready
	case hal.LineWake:
		return p.w.wake
	}
	return false
}

// WriteLine implements hal.Port. Only LineReady is writable from the
// port side; writes to other lines are ignored.
func (p *Port) WriteLine(line hal.Line, asserted bool) {
	if line != hal.LineReady {
		return
	}
	p.w.mu.Lock()
	if p.w.ready != asserted {
		p.w.ready = asserted
		p.w.notify()
	}
	p.w.mu.Unlock()
}

// OnEdge implements hal.Port.
func (p *Port) OnEdge(line hal.Line, edge hal.Edge, handler func()) {
	key := edgeKey{line: line, edge: edge}
	p.w.mu.Lock()
	p.w.onEdge[key] = append(p.w.onEdge[key], handler)
	p.w.mu.Unlock()
}

// OnComplete implements hal.Port.
func (p *Port) OnComplete(handler func()) {
	p.w.mu.Lock()
	p.w.onComplete = handler
	p.w.mu.Unlock()
}

// OnAttach implements hal.Port.
func (p *Port) OnAttach(handler func(bool)) {
	p.w.mu.Lock()
	p.w.onAttach = handler
	p.w.mu.Unlock()
}

// SetPeerPending implements hal.Port.
func (p *Port) SetPeerPending(asserted bool) {
	p.w.mu.Lock()
	if p.w.pending != asserted {
		p.w.pending = asserted
		p.w.notify()
	}
	p.w.mu.Unlock()
}

// Armed reports whether the port side has an exchange outstanding.
func (p *Peer) Armed() bool {
	p.w.mu.Lock()
	defer p.w.mu.Unlock()
	return p.w.armed
}

// SetWake drives the wake line, firing the port's edge handlers on
// transitions. Handlers run on the caller's goroutine, the same way an
// interrupt runs on whatever the hardware decides.
func (p *Peer) SetWake(asserted bool) {
	p.w.mu.Lock()
	if p.w.wake == asserted {
		p.w.mu.Unlock()
		return
	}
	p.w.wake = asserted
	edge := hal.EdgeDeassert
	if asserted {
		edge = hal.EdgeAssert
	}
	handlers := p.w.onEdge[edgeKey{line: hal.LineWake, edge: edge}]
	p.w.notify()
	p.w.mu.Unlock()
	for _, h := range handlers {
		h()
	}
}

// SetAttached raises an attach or detach event on the port.
func (p *Peer) SetAttached(attached bool) {
	p.w.mu.Lock()
	handler := p.w.onAttach
	p.w.mu.Unlock()
	if handler != nil {
		handler(attached)
	}
}

// ReadyAsserted reports the level of the ready line.
func (p *Peer) ReadyAsserted() bool {
	p.w.mu.Lock()
	defer p.w.mu.Unlock()
	return p.w.ready
}

// Pending reports the level of the pending interrupt line.
func (p *Peer) Pending() bool {
	p.w.mu.Lock()
	defer p.w.mu.Unlock()
	return p.w.pending
}

// WaitReady blocks until the ready line is asserted.
func (p *Peer) WaitReady(ctx context.Context) error {
	return p.w.wait(ctx, func() bool { return p.w.ready })
}

// WaitPending blocks until the pending line reaches the wanted level.
func (p *Peer) WaitPending(ctx context.Context, want bool) error {
	return p.w.wait(ctx, func() bool { return p.w.pending == want })
}

// Exchange plays the base side of one full-duplex transfer: it waits
// for the port to arm an exchange, swaps buffers and fires the port's
// completion callback. The returned slice is owned by the caller.
func (p *Peer) Exchange(ctx context.Context, tx []byte) ([]byte, error) {
	for {
		p.w.mu.Lock()
		if p.w.armed {
			copy(p.w.armedRx, tx)
			rx := make([]byte, len(p.w.armedTx))
			copy(rx, p.w.armedTx)
			p.w.armed = false
			p.w.armedTx, p.w.armedRx = nil, nil
			complete := p.w.onComplete
			p.w.mu.Unlock()
			if complete != nil {
				complete()
			}
			return rx, nil
		}
		ch := p.w.changed
		p.w.mu.Unlock()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ch:
		}
	}
}
