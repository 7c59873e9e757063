// Package router implements next-hop selection, the child-route table and
// parent discovery of spec.md §4.2: the logic that decides, for any
// outbound frame, which physical neighbor it should be handed to next.
package router

import (
	"time"

	"github.com/sensormesh/nodecore/internal/frame"
	"github.com/sensormesh/nodecore/internal/store"
	"github.com/sensormesh/nodecore/internal/transport"
)

// NoRoute is the ChildRoutes sentinel for "no route known", matching
// spec §3's "slot value 0xFF means no route".
const NoRoute = 0xFF

// SearchFailures is the default consecutive-failed-send-to-parent
// threshold that invalidates distance and forces parent re-discovery.
const SearchFailures = 5

// FindParentWindow is how long findParentNode collects FindParentResponse
// replies before settling on the best one seen (spec §4.2: "≈2 s").
const FindParentWindow = 2 * time.Second

// Config is the in-RAM mirror of NodeConfig (spec §3), shared with
// internal/lifecycle and kept write-through to persistent storage. Router
// mutates Parent/Distance as parent discovery runs; lifecycle mutates
// NodeID during id acquisition.
type Config struct {
	NodeID   byte
	Parent   byte
	Distance byte
}

// Router ties one node's Config, ChildRoutes, Store and Driver together
// into the sendRoute/sendWrite/findParentNode algorithm of spec §4.2. It
// holds no goroutines of its own — every suspension point is driven by
// whatever calls Pump (normally internal/dispatcher's Process loop).
type Router struct {
	Cfg    *Config
	Routes *ChildRoutes

	store  store.Store
	driver transport.Driver

	IsRepeater     bool
	IsGateway      bool
	AutoFindParent bool

	failedTransmissions int

	// RequestNodeID is invoked by sendRoute when a frame needs to go out
	// but this node has no id yet (wired to internal/lifecycle's id
	// acquisition step).
	RequestNodeID func()
	// Pump drives the dispatcher receive loop for up to window,
	// collecting any FindParentResponse frames along the way (wired to
	// internal/dispatcher.Dispatcher.Process in a loop by internal/node).
	Pump func(window time.Duration)
}

// New constructs a Router. cfg and routes are typically loaded from s by
// the caller (internal/lifecycle's boot sequence) and shared with it.
func New(s store.Store, driver transport.Driver, cfg *Config, routes *ChildRoutes) *Router {
	return &Router{
		Cfg:            cfg,
		Routes:         routes,
		store:          s,
		driver:         driver,
		AutoFindParent: true,
	}
}

// SendRoute implements the 5-step next-hop algorithm of spec §4.2.
func (r *Router) SendRoute(f *frame.Frame) bool {
	if r.Cfg.NodeID == frame.AUTO && f.Header.MessageType != frame.MsgIdRequest {
		if r.RequestNodeID != nil {
			r.RequestNodeID()
		}
		return false
	}

	if r.IsRepeater && f.Header.Destination != frame.Gateway {
		if via, ok := r.Routes.Get(f.Header.Destination); ok {
			return r.sendWrite(via, f, true)
		}
	}

	if f.Header.MessageType == frame.MsgIdResponse && f.Header.Destination == frame.Broadcast {
		return r.sendWrite(frame.Broadcast, f, true)
	}

	if !r.IsGateway {
		return r.sendWrite(r.Cfg.Parent, f, true)
	}

	return false
}

// sendWrite hands f to Transport for delivery to next, applying the
// parent-failure counting and find-parent-before-send rules of spec §4.2.
func (r *Router) sendWrite(next byte, f *frame.Frame, allowFindParent bool) bool {
	if next == r.Cfg.Parent && r.Cfg.Distance == frame.DistanceInvalid && allowFindParent {
		r.FindParentNode()
		if r.Cfg.Distance == frame.DistanceInvalid {
			return false
		}
	}

	f.Header.Last = r.Cfg.NodeID
	encoded, err := frame.EncodeFrame(f)
	if err != nil {
		return false
	}

	sendErr := r.driver.Send(encoded)

	if next == r.Cfg.Parent {
		if sendErr != nil {
			r.failedTransmissions++
			if r.AutoFindParent && r.failedTransmissions >= SearchFailures {
				r.Cfg.Distance = frame.DistanceInvalid
				_ = store.WriteDistance(r.store, r.Cfg.Distance)
			}
		} else {
			r.failedTransmissions = 0
		}
	}

	return sendErr == nil
}

// SendDirect addresses f straight to neighbor to, bypassing the next-hop
// algorithm entirely — used for FindParentResponse, which spec.md §4.5
// calls out as answered "directly to sender" rather than routed.
func (r *Router) SendDirect(to byte, f *frame.Frame) bool {
	return r.sendWrite(to, f, false)
}

// FindParentNode broadcasts a FindParentRequest and pumps the dispatcher
// for FindParentWindow, relying on ConsiderParentCandidate (invoked by the
// dispatcher as FindParentResponse frames arrive) to adopt the best parent
// seen. Returns whether a usable parent was found.
func (r *Router) FindParentNode() bool {
	req := &frame.Frame{
		Header: frame.Header{
			Last:        r.Cfg.NodeID,
			Sender:      r.Cfg.NodeID,
			Destination: frame.Broadcast,
			MessageType: frame.MsgFindParentRequest,
		},
		Payload: &frame.FindParentRequestPayload{},
	}
	encoded, err := frame.EncodeFrame(req)
	if err != nil {
		return false
	}
	_ = r.driver.Send(encoded)

	if r.Pump != nil {
		r.Pump(FindParentWindow)
	}

	return r.Cfg.Distance != frame.DistanceInvalid
}

// ConsiderParentCandidate is invoked by the dispatcher when a
// FindParentResponse arrives (spec §4.5 step 5c). candidateDistance is the
// responder's own distance to the gateway; this node's candidate distance
// is one more than that. Adopts from and persists only if strictly closer
// than the current distance.
func (r *Router) ConsiderParentCandidate(from byte, candidateDistance byte) {
	candidate := candidateDistance + 1
	if r.Cfg.Distance != frame.DistanceInvalid && candidate >= r.Cfg.Distance {
		return
	}
	r.Cfg.Parent = from
	r.Cfg.Distance = candidate
	_ = store.WriteParent(r.store, from)
	_ = store.WriteDistance(r.store, candidate)
}

// LearnChildRoute records childRoute[child] = via if not already known,
// write-through to persistent storage on change (spec §4.2 child-route
// learning / relay rule).
func (r *Router) LearnChildRoute(child, via byte) {
	if !r.IsRepeater {
		return
	}
	if _, ok := r.Routes.Get(child); ok {
		return
	}
	_ = r.Routes.Add(child, via)
}

// Relay implements the repeater relay rule of spec §4.2: forward toward
// childRoute[destination] if known, else toward this node's own parent;
// either way learn the sender's child route from last if not yet known.
func (r *Router) Relay(f *frame.Frame) bool {
	// sendWrite overwrites Last with this node's id, so capture the
	// previous hop first.
	last := f.Header.Last
	var ok bool
	if via, known := r.Routes.Get(f.Header.Destination); known {
		ok = r.sendWrite(via, f, false)
	} else {
		ok = r.sendWrite(r.Cfg.Parent, f, true)
	}

	r.LearnChildRoute(f.Header.Sender, last)

	return ok
}
