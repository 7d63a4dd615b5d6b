// Package dl implements the datalink layer of the accessory bus.
package dl

// The datalink moves arbitrary-length messages between the two ends of
// a shared half-duplex bus with two dedicated handshake lines. Messages
// are fragmented into fixed-size frames, one frame travels in each
// direction per exchange, and exchanges happen only when the peer has
// asserted wake and no exchange is already outstanding.
//
// The layer carries no sequence numbers and no retransmission: the
// underlying channel is expected to deliver frames in order, exactly
// once, with integrity checked in hardware. Ordering of the fragments
// of one message is therefore the only delivery guarantee.
//
// Producer: upper network layer (Send)
// Consumer: upper network layer (MessageHandler)
