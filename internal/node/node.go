// Package node assembles internal/store, internal/transport,
// internal/clock, internal/router, internal/lifecycle,
// internal/dispatcher and internal/firmware into the single
// user-facing runtime of spec.md §6, mirroring the teacher's facade.go
// re-export pattern and examples/*/main.go's Initialise→Pair→loop shape
// generalized from one-to-one pairing to the mesh boot sequence.
package node

import (
	"time"

	"github.com/sensormesh/nodecore/internal/clock"
	"github.com/sensormesh/nodecore/internal/dispatcher"
	"github.com/sensormesh/nodecore/internal/firmware"
	"github.com/sensormesh/nodecore/internal/frame"
	"github.com/sensormesh/nodecore/internal/idallocator"
	"github.com/sensormesh/nodecore/internal/lifecycle"
	"github.com/sensormesh/nodecore/internal/router"
	"github.com/sensormesh/nodecore/internal/store"
	"github.com/sensormesh/nodecore/internal/transport"
)

// idAllocateRate/idAllocateBurst bound how fast this gateway hands out ids,
// guarding against a misbehaving node retrying IdRequest in a tight loop.
const (
	idAllocateRate  = 20
	idAllocateBurst = 10
)

// Config configures Begin. NodeID and FixedParent have no implicit
// default: their Go zero value 0 is frame.Gateway, so callers set them
// explicitly (frame.AUTO for "acquire an id" / "discover a parent"). A
// FixedParent other than frame.AUTO suppresses auto-discovery exactly as
// spec.md's lifecycle describes.
type Config struct {
	NodeID       byte
	FixedParent  byte
	IsRepeater   bool
	IsGateway    bool
	MajorVersion byte
	MinorVersion byte
}

// DataCallback receives every self-destined frame that isn't handled
// internally (acks, FindParentResponse, IdResponse, Reset, firmware) —
// the spec §6 "unhandled type" user hook.
type DataCallback func(*frame.Frame)

// Node is the single-threaded, cooperative runtime of spec.md §5: one
// process() pump, no goroutines of its own. All blocking operations take
// a bounded window and return rather than block indefinitely.
type Node struct {
	store  store.Store
	driver transport.Driver
	clk    *clock.Clock

	cfg   *router.Config
	rtr   *router.Router
	lc    *lifecycle.Lifecycle
	disp  *dispatcher.Dispatcher
	fw    *firmware.Updater
	stage firmware.Staging

	OnReceive DataCallback
}

// New wires every collaborator together over the given Store, Driver and
// Staging, matching the teacher's NewTransmitterWithDriver /
// NewReceiverWithDriver injection pattern generalized to a full mesh
// node's dependency set.
func New(s store.Store, driver transport.Driver, stage firmware.Staging, cfg Config) (*Node, error) {
	routes, err := router.LoadChildRoutes(s)
	if err != nil {
		return nil, err
	}

	nodeID, err := store.ReadNodeID(s)
	if err != nil {
		return nil, err
	}
	// An explicit Config.NodeID overrides whatever identity is already
	// persisted; write it back so Lifecycle.Start (which re-reads the
	// store directly) sees the same value. frame.Gateway is 0, so the
	// override must NOT also treat 0 as "unset" the way a zero-valued
	// Config field normally would — callers always set NodeID explicitly
	// (to an id, or to frame.AUTO for "acquire one").
	if cfg.NodeID != frame.AUTO {
		nodeID = cfg.NodeID
		if err := store.WriteNodeID(s, nodeID); err != nil {
			return nil, err
		}
	}
	parent, err := store.ReadParent(s)
	if err != nil {
		return nil, err
	}
	distance, err := store.ReadDistance(s)
	if err != nil {
		return nil, err
	}

	rcfg := &router.Config{NodeID: nodeID, Parent: parent, Distance: distance}
	rtr := router.New(s, driver, rcfg, routes)
	rtr.IsRepeater = cfg.IsRepeater
	rtr.IsGateway = cfg.IsGateway

	clk := clock.New()
	rtr.Pump = func(window time.Duration) {
		pumpFor(nil, rtr, driver, clk, window)
	}

	lc := lifecycle.New(s, driver, clk, rtr)
	lc.IsRepeater = cfg.IsRepeater
	lc.MajorVersion = cfg.MajorVersion
	lc.MinorVersion = cfg.MinorVersion
	if cfg.FixedParent != frame.AUTO {
		lc.FixedParent = cfg.FixedParent
	} else {
		lc.FixedParent = frame.AUTO
	}

	disp := dispatcher.New(driver, rtr)
	disp.IsRepeater = cfg.IsRepeater
	disp.IDResponse = lc
	if cfg.IsGateway {
		disp.IDAllocate = idallocator.New(idAllocateRate, idAllocateBurst)
	}

	fw, err := firmware.New(s, rtr, stage)
	if err != nil {
		return nil, err
	}
	disp.Firmware = fw

	n := &Node{store: s, driver: driver, clk: clk, cfg: rcfg, rtr: rtr, lc: lc, disp: disp, fw: fw, stage: stage}
	rtr.Pump = func(window time.Duration) { pumpFor(n, rtr, driver, clk, window) }
	lc.Pump = func(window time.Duration) { pumpFor(n, rtr, driver, clk, window) }
	disp.OnReceive = func(f *frame.Frame) {
		if n.OnReceive != nil {
			n.OnReceive(f)
		}
	}
	return n, nil
}

// pumpFor drives the dispatcher's Process loop for up to window,
// standing in for internal/router.Router.Pump — used both by
// FindParentNode (collecting FindParentResponse) and by Lifecycle's
// acquire/present windows.
func pumpFor(n *Node, rtr *router.Router, driver transport.Driver, clk *clock.Clock, window time.Duration) {
	deadline := clk.Millis() + uint32(window.Milliseconds())
	d := dispatcher.New(driver, rtr)
	if n != nil {
		d.IsRepeater = rtr.IsRepeater
		d.IDResponse = n.lc
		d.Firmware = n.fw
		d.IDAllocate = n.disp.IDAllocate
		d.OnReceive = func(f *frame.Frame) {
			if n.OnReceive != nil {
				n.OnReceive(f)
			}
		}
	}
	for clk.Millis() < deadline {
		if !d.Process() {
			time.Sleep(time.Millisecond)
		}
	}
}

// Begin runs the lifecycle boot sequence (Start → AcquireID if needed →
// Present), matching spec §6's begin(callback, nodeId, repeater, parent).
// callback, if non-nil, is invoked once Present completes successfully.
func (n *Node) Begin(callback func()) error {
	if err := n.lc.Start(); err != nil {
		return err
	}
	if n.cfg.NodeID == frame.AUTO {
		if err := n.lc.AcquireID(); err != nil {
			return err
		}
	}
	if n.lc.Halted() {
		return lifecycle.ErrIDExhausted
	}
	if err := n.lc.Present(); err != nil {
		return err
	}
	n.fw.Start()
	if callback != nil {
		callback()
	}
	return nil
}

// Present re-announces this node's own sensor presentation — exposed
// separately from Begin for nodes that re-present after a hot-plugged
// child sensor changes (spec §6).
func (n *Node) Present() error {
	return n.lc.Present()
}

// Send transmits payload to destination, optionally requesting an ack,
// via the router's 5-step next-hop algorithm. Callers wanting the
// spec §6 default pass frame.Gateway explicitly.
func (n *Node) Send(payload frame.Payload, destination byte, ack bool) bool {
	var flags byte
	if ack {
		flags |= frame.FlagAckRequested
	}
	f := &frame.Frame{
		Header: frame.Header{
			Sender:      n.cfg.NodeID,
			Destination: destination,
			Flags:       flags,
			MessageType: payload.MessageType(),
		},
		Payload: payload,
	}
	return n.rtr.SendRoute(f)
}

// Request sends payload to destination (there is no default; pass
// frame.Gateway explicitly) and pumps the dispatcher briefly so the reply, if any, flows
// through OnReceive before Request returns.
func (n *Node) Request(payload frame.Payload, destination byte, window time.Duration) bool {
	ok := n.Send(payload, destination, false)
	if ok && window > 0 {
		pumpFor(n, n.rtr, n.driver, n.clk, window)
	}
	return ok
}

// SendBatteryLevel reports battery percentage to the gateway.
func (n *Node) SendBatteryLevel(level byte) bool {
	return n.Send(&frame.BatteryLevelPayload{Level: level}, frame.Gateway, false)
}

// SendSketchInfo announces this node's firmware name and major/minor
// version, part of presentation (spec §6).
func (n *Node) SendSketchInfo(name string, major, minor byte) bool {
	ok1 := n.Send(&frame.NamePayload{Name: name}, frame.Gateway, false)
	ok2 := n.Send(&frame.VersionPayload{Major: major, Minor: minor}, frame.Gateway, false)
	return ok1 && ok2
}

// RequestTime asks the gateway for the current time, invoking cb with
// the response when it arrives during a subsequent Process/pump.
func (n *Node) RequestTime(cb func(*frame.TimeResponsePayload)) bool {
	n.disp.RequestTime(cb)
	return n.Send(&frame.TimeRequestPayload{}, frame.Gateway, false)
}

// SaveState/LoadState persist/read one byte of this node's application
// state, occupying the LocalConfig region of the store (spec §4.7).
func (n *Node) SaveState(pos byte, value byte) error {
	return store.WriteLocalState(n.store, pos, value)
}

func (n *Node) LoadState(pos byte) (byte, error) {
	return store.ReadLocalState(n.store, pos)
}

// Wait pumps the dispatcher for up to ms, returning early the first time
// matches returns true for a frame it observes — spec §6's
// wait(ms[, type]).
func (n *Node) Wait(ms uint32, matches func(*frame.Frame) bool) bool {
	matched := false
	prevOnReceive := n.OnReceive
	if matches != nil {
		n.OnReceive = func(f *frame.Frame) {
			if matches(f) {
				matched = true
			}
			if prevOnReceive != nil {
				prevOnReceive(f)
			}
		}
	}
	n.clk.Wait(ms, func() bool {
		n.disp.Process()
		return matched
	})
	n.OnReceive = prevOnReceive
	return matched
}

// Sleep powers the driver down for up to ms, refusing to do so while a
// firmware update is in progress (spec §4.6/§4.8).
func (n *Node) Sleep(ms uint32, mask clock.InterruptMask) clock.WakeReason {
	return n.clk.Sleep(n.driver, ms, mask, n.fw.Updating)
}

// SmartSleep drains pending inbound/outbound traffic via Process before
// sleeping (spec §4.8).
func (n *Node) SmartSleep(ms uint32, mask clock.InterruptMask) clock.WakeReason {
	return n.clk.SmartSleep(n.driver, ms, mask, n.fw.Updating, func() {
		for n.disp.Process() {
		}
	})
}

// Process runs one iteration of the cooperative dispatch pump — the
// caller's main loop tick (spec §5).
func (n *Node) Process() bool {
	if n.fw.Updating() {
		n.fw.PollRetry()
	}
	return n.disp.Process()
}

// Router exposes the underlying Router for callers that need direct
// access to routing state (e.g. the gateway host process inspecting
// child routes for its HTTP API).
func (n *Node) Router() *router.Router { return n.rtr }

// State exposes the underlying Lifecycle's current State.
func (n *Node) State() lifecycle.State { return n.lc.State }
