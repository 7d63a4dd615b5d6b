package hal

// Line identifies a handshake line.
type Line int

const (
	// LineReady is driven by the datalink side to tell the peer an
	// exchange is armed. Only the local side writes it.
	LineReady Line = iota
	// LineWake is driven by the peer to request or permit an exchange.
	// Only readable from the datalink side.
	LineWake
)

// Edge selects which transition of a line triggers a registered handler.
type Edge int

const (
	// EdgeAssert triggers when the line goes from deasserted to asserted.
	EdgeAssert Edge = iota
	// EdgeDeassert triggers on the opposite transition.
	EdgeDeassert
)

// Port is the hardware access contract consumed by the datalink.
//
// Exchange begins one full-duplex transfer: tx is clocked out while rx
// is filled, both exactly one frame long. It returns as soon as the
// transfer is armed; the callback registered with OnComplete fires when
// the transfer finished and rx is valid. The implementation verifies
// frame integrity (CRC) below this interface. Buffers passed to
// Exchange must stay untouched until completion or CancelExchange.
type Port interface {
	Exchange(tx, rx []byte) error
	// CancelExchange aborts an armed or in-flight exchange, best effort.
	// No completion callback fires for a cancelled exchange.
	CancelExchange()

	// ReadLine reports whether the line is asserted. Polarity on the
	// physical wire (the reference design uses active-low lines) is the
	// implementation's concern.
	ReadLine(Line) bool
	// WriteLine drives a locally owned line.
	WriteLine(Line, bool)
	// OnEdge registers a handler invoked on the given transition of a
	// line. Handlers run in the port's event context and must not block.
	OnEdge(Line, Edge, func())

	// OnComplete registers the exchange completion handler.
	OnComplete(func())
	// OnAttach registers the link attach/detach handler.
	OnAttach(func(attached bool))

	// SetPeerPending drives the interrupt line telling the peer whether
	// this side has queued data to pull.
	SetPeerPending(bool)
}
