// Package transport defines the radio capability every node depends on
// (spec.md §4.1/§9: inject Transport as a narrow capability rather than a
// global), and a host-side in-memory implementation of it for tests and
// the node simulator.
package transport

import (
	"errors"
	"time"
)

var ErrTimeout = errors.New("transport: receive timeout")

// ErrInvalidChannel is returned by hardware drivers (e.g. NRFDriver) that
// reject out-of-range radio channels.
var ErrInvalidChannel = errors.New("transport: invalid radio channel")

// Driver is the capability a node's Router/Dispatcher send and receive
// through. Unlike the teacher's point-to-point RadioDriver, Receive delivers
// whatever frame arrives next regardless of origin — mesh routing (who a
// frame is ultimately for) is internal/router's job, not the driver's.
type Driver interface {
	// SetAddress configures which logical node address this driver
	// listens as — assigned once at boot, and again after id acquisition
	// changes a node's id (spec §4.4).
	SetAddress(nodeID byte) error
	// Send transmits one already-encoded frame. The destination is
	// embedded in the frame bytes; delivery to the right link-layer
	// neighbor is the driver's concern, not the caller's.
	Send(frame []byte) error
	// Available reports whether a frame is waiting without consuming it.
	Available() bool
	// Receive blocks up to timeout for the next inbound frame.
	Receive(timeout time.Duration) ([]byte, error)
	// PowerDown puts the radio into its lowest-power listening state
	// (spec §4.8 sleep); SetAddress/Send/Receive remain valid afterward,
	// mirroring how a real radio wakes on the next call.
	PowerDown()
}
