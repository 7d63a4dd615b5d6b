package dl

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFrameWire(t *testing.T) {
	testCases := []struct {
		name      string
		frame     Frame
		expectHdr byte
	}{
		{"dummy", Frame{}, 0x00},
		{"valid final", NewFrame([]byte{1, 2, 3}, false), 0x80},
		{"valid more", NewFrame([]byte{1, 2, 3}, true), 0xC0},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			raw := tc.frame.Bytes()
			require.Len(t, raw, FrameSize)
			require.Equal(t, tc.expectHdr, raw[0])
			// CRC placeholder stays zero, hardware owns it.
			require.Equal(t, []byte{0, 0}, raw[FrameSize-CRCSize:])

			parsed, err := ParseFrame(raw)
			require.NoError(t, err)
			require.Equal(t, tc.frame, parsed)
		})
	}
}

func TestFramePadding(t *testing.T) {
	f := NewFrame([]byte{1, 2, 3}, false)
	require.Equal(t, []byte{1, 2, 3}, f.Data[:3])
	require.Equal(t, bytes.Repeat([]byte{0}, PayloadSize-3), f.Data[3:])
}

func TestParseFrameShort(t *testing.T) {
	_, err := ParseFrame(make([]byte, FrameSize-1))
	require.ErrorIs(t, err, ErrShortFrame)
}

func TestParseFrameReservedBits(t *testing.T) {
	raw := make([]byte, FrameSize)
	raw[0] = 0x80 | 0x3F // valid plus all reserved bits
	f, err := ParseFrame(raw)
	require.NoError(t, err)
	require.True(t, f.Valid)
	require.False(t, f.More)
}

func TestFragmentCount(t *testing.T) {
	testCases := []struct {
		len    int
		expect int
	}{
		{0, 0},
		{1, 1},
		{PayloadSize, 1},
		{PayloadSize + 1, 2},
		{70, 3},
		{MaxMessageSize, MaxMessageSize / PayloadSize},
	}
	for _, tc := range testCases {
		require.Equal(t, tc.expect, FragmentCount(tc.len), "len=%d", tc.len)
	}
}
