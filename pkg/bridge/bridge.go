// Package bridge programs the HDMI-to-CSI camera bridge chip.
package bridge

import (
	"fmt"
	"time"

	"github.com/golang/glog"
)

// Bring-up is a linear register program: power and reset pins first,
// then the CSI transmitter and HDMI receiver blocks, then the EDID the
// bridge presents on its HDMI input. There is no state machine; any
// write failure aborts the sequence.

// Conn is the register access connection to the bridge (I2C behind it).
type Conn interface {
	// WriteRegister writes an integer value of the given byte size.
	WriteRegister(reg uint16, value uint32, size int) error
	// WriteBlock writes raw bytes starting at reg.
	WriteBlock(reg uint16, data []byte) error
}

// Pins controls the bridge's power enable and reset lines.
type Pins interface {
	SetPower(on bool)
	SetReset(asserted bool)
}

const (
	powerDelay = 500 * time.Millisecond
	resetDelay = 50 * time.Millisecond

	regConfCtl = 0x0004
	regSysCtl  = 0x0002
	edidBase   = 0x8C00

	confCtlIdle   = 0x0004
	confCtlStream = 0x0CD7
)

type regWrite struct {
	reg  uint16
	val  uint32
	size int
}

// csiSetup configures the CSI transmitter PLL and lane timing.
var csiSetup = []regWrite{
	{0x0006, 0x0018, 2}, {0x0014, 0x0000, 2}, {0x0016, 0x07FF, 2},
	{0x0020, 0x80C8, 2}, {0x0022, 0x0213, 2},
	{0x0140, 0x00000000, 4}, {0x0144, 0x00000000, 4}, {0x0148, 0x00000000, 4},
	{0x014C, 0x00000001, 4}, {0x0150, 0x00000001, 4},
	{0x0210, 0x00002C00, 4}, {0x0214, 0x00000005, 4}, {0x0218, 0x00001F04, 4},
	{0x021C, 0x00000003, 4}, {0x0220, 0x00000104, 4}, {0x0224, 0x00004988, 4},
	{0x0228, 0x0000000A, 4}, {0x022C, 0x00000004, 4}, {0x0234, 0x00000007, 4},
	{0x0238, 0x00000000, 4}, {0x0204, 0x00000001, 4},
	{0x0518, 0x00000001, 4}, {0x0500, 0xA3000083, 4},
}

// hdmiSetup configures the HDMI receiver PHY and audio path.
var hdmiSetup = []regWrite{
	{0x8502, 0x01, 1}, {0x8512, 0xFE, 1}, {0x8531, 0x00, 1},
	{0x8534, 0x3E, 1}, {0x8533, 0x07, 1}, {0x8540, 0x0A8C, 2},
	{0x8552, 0xD1, 1}, {0x8630, 0xB0, 1}, {0x8631, 0x041E, 2},
	{0x8670, 0x01, 1}, {0x8532, 0x80, 1}, {0x8536, 0x40, 1},
	{0x853F, 0x0A, 1}, {0x8543, 0x32, 1}, {0x8544, 0x10, 1},
	{0x8545, 0x31, 1}, {0x8546, 0x2D, 1}, {0x85AA, 0x0050, 2},
	{0x85AF, 0xF6, 1}, {0x85C7, 0x01, 1}, {0x85CB, 0x01, 1},
}

// edidSetup finalizes EDID presentation and video mode detection.
var edidSetup = []regWrite{
	{0x85D1, 0x01, 1}, {0x8560, 0x24, 1}, {0x8563, 0x11, 1},
	{0x8564, 0x0F, 1}, {0x8574, 0x08, 1}, {0x8573, 0xC1, 1},
	{0x8576, 0xA0, 1}, {0x8600, 0x00, 1}, {0x8602, 0xF3, 1},
	{0x8603, 0x02, 1}, {0x8604, 0x0C, 1}, {0x8606, 0x05, 1},
	{0x8607, 0x00, 1}, {0x8620, 0x22, 1}, {0x8640, 0x01, 1},
}

// edid1080p30 is the EDID block the bridge presents on its HDMI input
// (1080p30, no CEA extension).
var edid1080p30 = []byte{
	0x00, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0x00,
	0x52, 0x62, 0x09, 0x02, 0x01, 0x01, 0x01, 0x01,
	0xff, 0x14, 0x01, 0x03, 0x80, 0xa0, 0x5a, 0x78,
	0x0a, 0x0d, 0xc9, 0xa0, 0x57, 0x47, 0x98, 0x27,
	0x12, 0x48, 0x4c, 0x2f, 0xcf, 0x00, 0x01, 0x00,
	0x01, 0x01, 0x01, 0x01, 0x01, 0x01, 0x01, 0x01,
	0x01, 0x01, 0x01, 0x01, 0x01, 0x01, 0x01, 0x1D,
	0x80, 0x18, 0x71, 0x38, 0x2d, 0x40, 0x58, 0x2c,
	0x45, 0x00, 0x40, 0x84, 0x63, 0x00, 0x00, 0x1e,
	0x66, 0x21, 0x50, 0xb0, 0x51, 0x00, 0x1b, 0x30,
	0x40, 0x70, 0x36, 0x00, 0x3a, 0x84, 0x63, 0x00,
	0x00, 0x1E, 0x00, 0x00, 0x00, 0xFC, 0x00, 0x54,
	0x4f, 0x53, 0x48, 0x49, 0x42, 0x41, 0x2d, 0x54,
	0x56, 0x0a, 0x20, 0x20, 0x00, 0x00, 0x00, 0xFD,
	0x00, 0x17, 0x4c, 0x0f, 0x51, 0x0f, 0x00, 0x0a,
	0x20, 0x20, 0x20, 0x20, 0x20, 0x20, 0x00, 0xc8,
}

// Bridge drives the camera bridge chip.
type Bridge struct {
	conn  Conn
	pins  Pins
	sleep func(time.Duration)
}

// New creates a Bridge over the register connection and control pins.
func New(conn Conn, pins Pins) *Bridge {
	return &Bridge{conn: conn, pins: pins, sleep: time.Sleep}
}

// PowerUp powers the bridge and runs the full configuration program.
func (b *Bridge) PowerUp() error {
	b.pins.SetPower(true)
	b.sleep(powerDelay)
	b.pins.SetReset(false)
	b.sleep(resetDelay)

	// Soft reset, then release.
	if err := b.writeAll([]regWrite{
		{regConfCtl, confCtlIdle, 2},
		{regSysCtl, 0x0F00, 2},
		{regSysCtl, 0x0000, 2},
	}); err != nil {
		return err
	}
	for _, table := range [][]regWrite{csiSetup, hdmiSetup} {
		if err := b.writeAll(table); err != nil {
			return err
		}
	}
	if err := b.programEDID(edid1080p30); err != nil {
		return err
	}
	if err := b.writeAll(edidSetup); err != nil {
		return err
	}
	glog.Info("camera bridge configured")
	return nil
}

// PowerDown asserts reset and removes power.
func (b *Bridge) PowerDown() {
	b.pins.SetReset(true)
	b.pins.SetPower(false)
	glog.Info("camera bridge powered down")
}

// StartStream enables the CSI output stream.
func (b *Bridge) StartStream() error {
	return b.write(regWrite{regConfCtl, confCtlStream, 2})
}

// StopStream disables the CSI output stream.
func (b *Bridge) StopStream() error {
	return b.write(regWrite{regConfCtl, confCtlIdle, 2})
}

func (b *Bridge) writeAll(table []regWrite) error {
	for _, w := range table {
		if err := b.write(w); err != nil {
			return err
		}
	}
	return nil
}

func (b *Bridge) write(w regWrite) error {
	if err := b.conn.WriteRegister(w.reg, w.val, w.size); err != nil {
		return fmt.Errorf("write reg 0x%04X: %w", w.reg, err)
	}
	return nil
}

// programEDID loads the EDID block in 8-byte chunks, the largest write
// the bridge's EDID RAM accepts.
func (b *Bridge) programEDID(edid []byte) error {
	for off := 0; off < len(edid); off += 8 {
		end := off + 8
		if end > len(edid) {
			end = len(edid)
		}
		if err := b.conn.WriteBlock(uint16(edidBase+off), edid[off:end]); err != nil {
			return fmt.Errorf("write edid at 0x%04X: %w", edidBase+off, err)
		}
	}
	return nil
}
