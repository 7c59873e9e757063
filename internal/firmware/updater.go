// Package firmware implements the node-role and gateway-role halves of
// the block-oriented OTA update protocol of spec.md §4.6: descriptor
// negotiation, per-block request/retry, CRC verification, and handoff to
// the bootloader for the atomic image swap.
package firmware

import (
	"time"

	"github.com/sensormesh/nodecore/internal/frame"
	"github.com/sensormesh/nodecore/internal/router"
	"github.com/sensormesh/nodecore/internal/store"
)

const blockSize = frame.FirmwareBlockSize

// retryWindow bounds how long a requested block is awaited before
// re-requesting it (spec §4.6: "a bounded retry window").
const retryWindow = 500 * time.Millisecond
const maxBlockRetries = 5

// Descriptor identifies one firmware image, mirroring store.FirmwareConfig.
type Descriptor struct {
	Type    byte
	Version byte
	Blocks  uint16
	Crc     uint16
}

func (d Descriptor) equals(o Descriptor) bool {
	return d.Type == o.Type && d.Version == o.Version && d.Blocks == o.Blocks && d.Crc == o.Crc
}

// Staging is where an in-progress image is written — a reserved region
// distinct from the active image, per spec.md's invariant that the node
// never flashes the active region directly; Finalize hands the staged
// image to the external bootloader collaborator that performs the atomic
// swap on next boot.
type Staging interface {
	WriteBlock(index uint16, data [blockSize]byte) error
	// Finalize is called once every block has arrived and the image CRC
	// has been verified; it persists the new descriptor and signals the
	// bootloader to swap images on next boot.
	Finalize(desc Descriptor) error
	// Checksum returns the running CRC-16 over every block written so
	// far, used to verify the completed image against the gateway's
	// advertised crc.
	Checksum() uint16
}

// Updater drives the node side of the protocol. It is wired into the
// dispatcher via HandleFrame (the FirmwareHandler interface) and reacts to
// FirmwareConfigResponse/FirmwareResponse frames; Start kicks off
// negotiation after presentation (spec §4.6 step 1).
type Updater struct {
	store   store.Store
	router  *router.Router
	staging Staging

	installed Descriptor
	available Descriptor

	updating     bool
	nextBlock    uint16
	blockRetries int
	lastRequest  time.Time

	// OnAbort, if set, is invoked with a human-readable reason whenever
	// an update is abandoned (CRC mismatch, or block retry limit
	// exceeded) — spec §4.6 step 4's "report via log".
	OnAbort func(reason string)
}

func New(s store.Store, rtr *router.Router, staging Staging) (*Updater, error) {
	fc, err := store.ReadFirmwareConfig(s)
	if err != nil {
		return nil, err
	}
	return &Updater{
		store:   s,
		router:  rtr,
		staging: staging,
		installed: Descriptor{
			Type: fc.Type, Version: fc.Version, Blocks: fc.Blocks, Crc: fc.Crc,
		},
	}, nil
}

// Updating reports whether an update is in progress — consulted by
// internal/clock.Sleep's pre-emption check (spec §4.6: "While UPDATING,
// sleep is refused").
func (u *Updater) Updating() bool { return u.updating }

// Start sends FirmwareConfigRequest, announcing the installed descriptor
// (spec §4.6 step 1).
func (u *Updater) Start() {
	req := &frame.Frame{
		Header: frame.Header{
			Sender:      u.router.Cfg.NodeID,
			Destination: frame.Gateway,
			MessageType: frame.MsgFirmwareConfigRequest,
		},
		Payload: &frame.FirmwareConfigRequestPayload{
			InstalledType:    u.installed.Type,
			InstalledVersion: u.installed.Version,
			InstalledBlocks:  u.installed.Blocks,
			InstalledCrc:     u.installed.Crc,
		},
	}
	u.router.SendRoute(req)
}

// HandleFrame implements dispatcher.FirmwareHandler.
func (u *Updater) HandleFrame(f *frame.Frame) {
	switch p := f.Payload.(type) {
	case *frame.FirmwareConfigResponsePayload:
		u.onConfigResponse(p)
	case *frame.FirmwareResponsePayload:
		u.onBlockResponse(p)
	}
}

func (u *Updater) onConfigResponse(p *frame.FirmwareConfigResponsePayload) {
	u.available = Descriptor{Type: p.Type, Version: p.Version, Blocks: p.Blocks, Crc: p.Crc}
	if u.available.equals(u.installed) {
		return
	}
	u.updating = true
	u.nextBlock = 0
	u.blockRetries = 0
	u.requestBlock(0)
}

func (u *Updater) requestBlock(block uint16) {
	u.lastRequest = time.Now()
	req := &frame.Frame{
		Header: frame.Header{
			Sender:      u.router.Cfg.NodeID,
			Destination: frame.Gateway,
			MessageType: frame.MsgFirmwareRequest,
		},
		Payload: &frame.FirmwareRequestPayload{
			Type:    u.available.Type,
			Version: u.available.Version,
			Block:   block,
		},
	}
	u.router.SendRoute(req)
}

func (u *Updater) onBlockResponse(p *frame.FirmwareResponsePayload) {
	if !u.updating || p.Type != u.available.Type || p.Version != u.available.Version {
		return
	}
	// Block indices are strictly monotonic; duplicate or out-of-order
	// responses are ignored (spec §4.6 invariant).
	if p.Block != u.nextBlock {
		return
	}

	if err := u.staging.WriteBlock(p.Block, p.Data); err != nil {
		return
	}
	u.blockRetries = 0
	u.nextBlock++

	if u.nextBlock >= u.available.Blocks {
		u.finish()
		return
	}
	u.requestBlock(u.nextBlock)
}

// PollRetry re-requests the current block if retryWindow has elapsed
// since the last request with no response, per spec §4.6's per-block
// retry loop. The caller (internal/node's Process loop) invokes this on
// every tick while Updating() is true.
func (u *Updater) PollRetry() {
	if !u.updating {
		return
	}
	if time.Since(u.lastRequest) < retryWindow {
		return
	}
	u.blockRetries++
	if u.blockRetries > maxBlockRetries {
		u.abort("block retry limit exceeded")
		return
	}
	u.requestBlock(u.nextBlock)
}

func (u *Updater) finish() {
	if u.staging.Checksum() != u.available.Crc {
		u.abort("crc mismatch")
		return
	}

	u.updating = false
	u.installed = u.available
	_ = store.WriteFirmwareConfig(u.store, store.FirmwareConfig{
		Type: u.installed.Type, Version: u.installed.Version,
		Blocks: u.installed.Blocks, Crc: u.installed.Crc,
	})
	_ = u.staging.Finalize(u.installed)
}

func (u *Updater) abort(reason string) {
	u.updating = false
	if u.OnAbort != nil {
		u.OnAbort(reason)
	}
}
