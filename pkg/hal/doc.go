// Package hal defines the hardware contracts consumed by the datalink:
// the full-duplex exchange channel and the handshake lines.
package hal

// The datalink never touches hardware directly. A Port implementation
// owns the bus controller, the GPIO handshake lines and the attach
// detection circuit, and reports asynchronous events through the
// registered callbacks.
//
// Producer: board support (or pkg/hal/sim for tests)
// Consumer: pkg/dl
