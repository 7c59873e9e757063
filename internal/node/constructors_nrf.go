//go:build tinygo || baremetal

// This file is built only for embedded targets (using the real NRF52
// radio), mirroring the teacher's constructors_nrf.go split.
package node

import (
	"github.com/sensormesh/nodecore/internal/firmware"
	"github.com/sensormesh/nodecore/internal/store"
	"github.com/sensormesh/nodecore/internal/transport"
)

// NewHardware brings up a Node on the real radio at baseAddress/channel.
// Persistent storage still uses store.Memory: spec.md's PersistentStore
// capability is EEPROM-shaped (§4.7's byte-addressable, write-skip
// semantics already implemented in internal/store), but a real on-chip
// EEPROM/flash driver is outside the retrieval pack's reach the way
// driver/nrf's register code was — unlike the radio, nothing in the
// teacher or pack shows an embedded-storage capability to adapt, so this
// is left as the one placeholder a future hardware port would replace.
func NewHardware(baseAddress uint32, channel uint8, cfg Config, blockCount uint16) (*Node, error) {
	s := store.NewMemory()
	driver := transport.NewNRFDriver(baseAddress, channel)
	stage := firmware.NewMemoryStaging(blockCount)
	return New(s, driver, stage, cfg)
}
