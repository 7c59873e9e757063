//go:build !tinygo && !baremetal

// This file is built only for non-embedded targets (development, testing,
// and the host-side mesh simulator), mirroring the teacher's
// constructors_host.go split.
package node

import (
	"github.com/sensormesh/nodecore/internal/firmware"
	"github.com/sensormesh/nodecore/internal/store"
	"github.com/sensormesh/nodecore/internal/transport"
)

// NewSimulated builds a Node over an in-memory Store and a transport.Medium
// connection, the host stand-in for a real EEPROM + radio pair (spec §9).
// blockCount sizes the node's firmware staging area.
func NewSimulated(medium *transport.Medium, addr byte, cfg Config, blockCount uint16) (*Node, error) {
	s := store.NewMemory()
	driver := transport.NewFakeDriver(medium, addr)
	stage := firmware.NewMemoryStaging(blockCount)
	return New(s, driver, stage, cfg)
}

// NewSimulatedWithStore is NewSimulated but lets the caller supply a Store
// (e.g. a store.File for a simulated node whose identity should survive a
// process restart).
func NewSimulatedWithStore(s store.Store, medium *transport.Medium, addr byte, cfg Config, blockCount uint16) (*Node, error) {
	driver := transport.NewFakeDriver(medium, addr)
	stage := firmware.NewMemoryStaging(blockCount)
	return New(s, driver, stage, cfg)
}
