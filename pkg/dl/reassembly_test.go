package dl

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

// fragments slices msg the way the outbound queue does.
func fragments(msg []byte) []Frame {
	var frames []Frame
	for remaining := msg; ; {
		chunk := remaining
		if len(chunk) > PayloadSize {
			chunk = chunk[:PayloadSize]
		}
		remaining = remaining[len(chunk):]
		frames = append(frames, NewFrame(chunk, len(remaining) > 0))
		if len(remaining) == 0 {
			return frames
		}
	}
}

func TestReassembleRoundTrip(t *testing.T) {
	sizes := []int{1, 31, 32, 33, 70, 100, MaxMessageSize}
	for _, size := range sizes {
		msg := make([]byte, size)
		for i := range msg {
			msg[i] = byte(i)
		}

		var r Reassembler
		frames := fragments(msg)
		var got []byte
		for i, f := range frames {
			outcome, out := r.Accept(&f)
			if i < len(frames)-1 {
				require.Equal(t, OutcomePending, outcome, "size=%d frame=%d", size, i)
				require.Nil(t, out)
			} else {
				require.Equal(t, OutcomeComplete, outcome, "size=%d", size)
				got = out
			}
		}
		// Delivery is the wire image: the message padded to a whole
		// number of frames.
		require.Len(t, got, FragmentCount(size)*PayloadSize, "size=%d", size)
		require.Equal(t, msg, got[:size], "size=%d", size)
		require.Equal(t, bytes.Repeat([]byte{0}, len(got)-size), got[size:], "size=%d", size)
		require.Equal(t, 0, r.Pending())
	}
}

func TestDummyFrameIgnored(t *testing.T) {
	var r Reassembler
	f := Frame{}
	outcome, out := r.Accept(&f)
	require.Equal(t, OutcomePending, outcome)
	require.Nil(t, out)
	require.Equal(t, 0, r.Pending())
}

func TestOverflowNeverDelivers(t *testing.T) {
	var r Reassembler
	maxFrames := MaxMessageSize / PayloadSize

	// One fragment beyond capacity, all marked more.
	f := NewFrame(bytes.Repeat([]byte{0xAB}, PayloadSize), true)
	for i := 0; i < maxFrames; i++ {
		outcome, _ := r.Accept(&f)
		require.Equal(t, OutcomePending, outcome, "frame %d", i)
	}
	outcome, out := r.Accept(&f)
	require.Equal(t, OutcomeOverflow, outcome)
	require.Nil(t, out)

	// The final fragment still reports overflow, never completion.
	last := NewFrame([]byte{0xCD}, false)
	outcome, out = r.Accept(&last)
	require.Equal(t, OutcomeOverflow, outcome)
	require.Nil(t, out)

	// The discarded message must not poison the next one.
	next := NewFrame([]byte("fresh"), false)
	outcome, out = r.Accept(&next)
	require.Equal(t, OutcomeComplete, outcome)
	require.Len(t, out, PayloadSize)
	require.Equal(t, []byte("fresh"), out[:5])
}

func TestReassemblerReset(t *testing.T) {
	var r Reassembler
	f := NewFrame([]byte("partial"), true)
	outcome, _ := r.Accept(&f)
	require.Equal(t, OutcomePending, outcome)
	require.Equal(t, PayloadSize, r.Pending())

	r.Reset()
	require.Equal(t, 0, r.Pending())

	last := NewFrame([]byte("solo"), false)
	outcome, out := r.Accept(&last)
	require.Equal(t, OutcomeComplete, outcome)
	require.Len(t, out, PayloadSize)
}
