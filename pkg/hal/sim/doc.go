// Package sim provides an in-memory hal.Port for tests and demos.
package sim

// A Port and its Peer share a set of simulated wires: the data bus,
// the ready and wake handshake lines and the pending interrupt line.
// The Port side behaves like real hardware seen from the datalink; the
// Peer side exposes the wires the way the base end of the bus sees
// them, so a test (or pkg/base) can play the base role.
