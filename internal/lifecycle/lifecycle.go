// Package lifecycle implements the boot state machine of spec.md §4.4:
// START (load persisted identity) → ACQUIRE_ID (only if unassigned) →
// PRESENT (announce to the gateway) → RUN.
package lifecycle

import (
	"errors"
	"time"

	"github.com/sensormesh/nodecore/internal/clock"
	"github.com/sensormesh/nodecore/internal/frame"
	"github.com/sensormesh/nodecore/internal/router"
	"github.com/sensormesh/nodecore/internal/store"
	"github.com/sensormesh/nodecore/internal/transport"
)

// State is one step of the boot sequence.
type State int

const (
	StateStart State = iota
	StateAcquireID
	StatePresent
	StateRun
	// StateHalted is terminal: the gateway reported its id space
	// exhausted (spec §7 IdExhausted) and this node must not transmit.
	StateHalted
)

// ErrIDExhausted is returned by AcquireID once the gateway has answered
// with IdResponse{newID: AUTO}.
var ErrIDExhausted = errors.New("lifecycle: gateway id space exhausted")

const acquireWindow = 2 * time.Second
const presentWindow = 2 * time.Second

// Lifecycle drives one node's boot sequence. Its Config is the same
// *router.Config the Router mutates, so id/parent/distance changes made by
// either package are immediately visible to the other.
type Lifecycle struct {
	Cfg    *router.Config
	Router *router.Router

	store  store.Store
	driver transport.Driver
	clk    *clock.Clock

	State State

	MajorVersion byte
	MinorVersion byte
	IsRepeater   bool
	// FixedParent, if not frame.AUTO, skips parent discovery and treats the configured parent as always reachable
	// (spec §4.4 "if fixed parent configured: distance := 0").
	FixedParent byte

	requestIdentifier uint16
	idAcquired        bool
	idExhausted       bool

	// Pump drives the dispatcher receive loop for up to a duration,
	// wired to internal/dispatcher.Dispatcher.Process the same way as
	// Router.Pump.
	Pump func(window time.Duration)
}

func New(s store.Store, driver transport.Driver, clk *clock.Clock, rtr *router.Router) *Lifecycle {
	return &Lifecycle{
		Cfg:         rtr.Cfg,
		Router:      rtr,
		store:       s,
		driver:      driver,
		clk:         clk,
		FixedParent: frame.AUTO,
	}
}

// Start implements the START step: load persisted identity and compute
// the initial distance per spec §4.4.
func (lc *Lifecycle) Start() error {
	lc.State = StateStart

	nodeID, err := store.ReadNodeID(lc.store)
	if err != nil {
		return err
	}
	parent, err := store.ReadParent(lc.store)
	if err != nil {
		return err
	}
	distance, err := store.ReadDistance(lc.store)
	if err != nil {
		return err
	}
	lc.Cfg.NodeID, lc.Cfg.Parent, lc.Cfg.Distance = nodeID, parent, distance

	switch {
	case lc.Router.IsGateway:
		lc.Cfg.Distance = 0
	case lc.FixedParent != frame.AUTO:
		lc.Cfg.Parent = lc.FixedParent
		lc.Cfg.Distance = 0
		if err := store.WriteParent(lc.store, lc.Cfg.Parent); err != nil {
			return err
		}
		if err := store.WriteDistance(lc.store, lc.Cfg.Distance); err != nil {
			return err
		}
	case lc.Cfg.Parent == frame.AUTO:
		lc.Cfg.Distance = frame.DistanceInvalid
	}

	return nil
}

// AcquireID implements ACQUIRE_ID: send an IdRequest and pump the
// dispatcher for acquireWindow. Returns nil once an id has been adopted,
// ErrIDExhausted if the gateway refused, or leaves State at
// StateAcquireID (with a nil error) if nothing was heard — callers are
// expected to call AcquireID again, remaining unassigned being acceptable
// behavior per spec §4.4.
func (lc *Lifecycle) AcquireID() error {
	if lc.Cfg.NodeID != frame.AUTO {
		return nil
	}
	lc.State = StateAcquireID

	lc.requestIdentifier = uint16(lc.clk.Millis())

	req := &frame.Frame{
		Header: frame.Header{
			Sender:      frame.AUTO,
			Destination: frame.Gateway,
			MessageType: frame.MsgIdRequest,
		},
		Payload: &frame.IdRequestPayload{RequestIdentifier: lc.requestIdentifier},
	}
	lc.Router.SendRoute(req)

	if lc.Pump != nil {
		lc.Pump(acquireWindow)
	}

	if lc.idExhausted {
		lc.State = StateHalted
		return ErrIDExhausted
	}
	return nil
}

// HandleIdResponse is invoked by the dispatcher when an IdResponse arrives
// from the gateway while this node is still unassigned (spec §4.5 step
// 5c). Mismatched requestIdentifiers are ignored.
func (lc *Lifecycle) HandleIdResponse(requestIdentifier uint16, newID byte) {
	if lc.Cfg.NodeID != frame.AUTO || requestIdentifier != lc.requestIdentifier {
		return
	}
	if newID == frame.AUTO {
		lc.idExhausted = true
		return
	}

	lc.Cfg.NodeID = newID
	_ = store.WriteNodeID(lc.store, newID)
	_ = lc.driver.SetAddress(newID)
	lc.idAcquired = true
}

// IDAcquired reports whether this boot's AcquireID run (or a prior one)
// has assigned a node id.
func (lc *Lifecycle) IDAcquired() bool { return lc.Cfg.NodeID != frame.AUTO }

// Present implements PRESENT: announce this node's role to the gateway
// and pump the dispatcher for presentWindow, then transition to RUN.
func (lc *Lifecycle) Present() error {
	lc.State = StatePresent

	node := &frame.Frame{
		Header: frame.Header{
			Sender:      lc.Cfg.NodeID,
			Destination: frame.Gateway,
			MessageType: frame.MsgNode,
		},
		Payload: &frame.NodePayload{
			MajorVersion: lc.MajorVersion,
			MinorVersion: lc.MinorVersion,
			IsRepeater:   lc.IsRepeater,
			Parent:       lc.Cfg.Parent,
		},
	}
	lc.Router.SendRoute(node)

	if lc.Pump != nil {
		lc.Pump(presentWindow)
	}

	lc.State = StateRun
	return nil
}

// Halted reports whether id exhaustion ended this node's boot sequence.
func (lc *Lifecycle) Halted() bool { return lc.State == StateHalted }
