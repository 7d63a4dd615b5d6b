package dl

// Outcome reports the effect of accepting one frame.
type Outcome int

const (
	// OutcomePending means the frame was absorbed (or was a dummy) and
	// more frames are needed.
	OutcomePending Outcome = iota
	// OutcomeOverflow means the message under reassembly exceeded
	// MaxMessageSize. Nothing was written past the bound; the message
	// is discarded once its final fragment arrives.
	OutcomeOverflow
	// OutcomeComplete means a full message is available.
	OutcomeComplete
)

// Reassembler accumulates consecutive frame payloads into one message.
//
// There are no sequence numbers: the bus delivers fragments in order or
// not at all, so arrival order is message order. The delivered length
// is the accumulated payload length, i.e. the message zero-padded to a
// multiple of PayloadSize, exactly as the wire carried it.
type Reassembler struct {
	buf        [MaxMessageSize]byte
	idx        int
	overflowed bool
}

// Accept absorbs one received frame. The returned slice is only
// non-nil for OutcomeComplete and is a copy owned by the caller.
func (r *Reassembler) Accept(f *Frame) (Outcome, []byte) {
	if !f.Valid {
		// Dummy frame, the peer had nothing to say.
		return OutcomePending, nil
	}

	if r.overflowed || r.idx+PayloadSize > MaxMessageSize {
		// Keep discarding until the final fragment, then forget the
		// whole message. Delivering it truncated would be worse than
		// losing it.
		r.overflowed = true
		if !f.More {
			r.Reset()
		}
		return OutcomeOverflow, nil
	}

	copy(r.buf[r.idx:], f.Data[:])
	r.idx += PayloadSize

	if f.More {
		return OutcomePending, nil
	}
	msg := make([]byte, r.idx)
	copy(msg, r.buf[:r.idx])
	r.Reset()
	return OutcomeComplete, msg
}

// Pending reports how many bytes are accumulated for the in-progress
// message.
func (r *Reassembler) Pending() int {
	return r.idx
}

// Reset discards any in-progress message.
func (r *Reassembler) Reset() {
	r.idx = 0
	r.overflowed = false
}
