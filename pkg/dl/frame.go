package dl

import "encoding/binary"

// Wire frame geometry. One frame crosses the bus per exchange, in each
// direction, regardless of how much real data either side has.
const (
	// PayloadSize is the fixed payload of a single frame.
	PayloadSize = 32
	// HeaderSize is the single header byte carrying the frame bits.
	HeaderSize = 1
	// CRCSize is the trailing CRC16 field. The CRC is computed and
	// checked by the bus hardware, not by this layer.
	CRCSize = 2
	// FrameSize is the total on-wire size of one frame.
	FrameSize = HeaderSize + PayloadSize + CRCSize

	// MaxMessageSize bounds a single upper-layer message.
	MaxMessageSize = 1024
)

// Header bits. Bits 5-0 are reserved and must be zero on encode;
// decoders ignore them for forward compatibility.
const (
	hdrValid byte = 0x01 << 7
	hdrMore  byte = 0x01 << 6
)

// Frame is one fixed-size unit exchanged over the bus.
//
// A frame with Valid unset is a dummy: it exists only so the exchange
// has something to clock out while receiving, and carries no data.
type Frame struct {
	Valid bool
	More  bool
	Data  [PayloadSize]byte
}

// NewFrame builds a valid frame from up to PayloadSize bytes of data,
// zero-padding the remainder. The caller slices longer messages.
func NewFrame(data []byte, more bool) Frame {
	f := Frame{Valid: true, More: more}
	copy(f.Data[:], data)
	return f
}

// Encode writes the wire representation into dst, which must hold at
// least FrameSize bytes. The CRC field is left zero; hardware fills it.
func (f *Frame) Encode(dst []byte) {
	_ = dst[FrameSize-1]
	var hdr byte
	if f.Valid {
		hdr |= hdrValid
	}
	if f.More {
		hdr |= hdrMore
	}
	dst[0] = hdr
	copy(dst[HeaderSize:HeaderSize+PayloadSize], f.Data[:])
	binary.LittleEndian.PutUint16(dst[HeaderSize+PayloadSize:], 0)
}

// Bytes returns a freshly allocated wire representation.
func (f *Frame) Bytes() []byte {
	b := make([]byte, FrameSize)
	f.Encode(b)
	return b
}

// ParseFrame decodes a received wire buffer.
func ParseFrame(raw []byte) (Frame, error) {
	if len(raw) < FrameSize {
		return Frame{}, ErrShortFrame
	}
	f := Frame{
		Valid: raw[0]&hdrValid != 0,
		More:  raw[0]&hdrMore != 0,
	}
	copy(f.Data[:], raw[HeaderSize:HeaderSize+PayloadSize])
	return f, nil
}

// FragmentCount is the number of frames a message of length n occupies.
func FragmentCount(n int) int {
	return (n + PayloadSize - 1) / PayloadSize
}
