// Package dispatcher implements the single-threaded receive step of
// spec.md §4.5: one call to Process decodes at most one inbound frame and
// fully handles it (including any ack emission and side effects) before
// returning, per the ordering guarantee of spec §5.
package dispatcher

import (
	"math/rand"
	"time"

	"github.com/sensormesh/nodecore/internal/frame"
	"github.com/sensormesh/nodecore/internal/router"
	"github.com/sensormesh/nodecore/internal/transport"
)

// IDResponseHandler is the narrow slice of internal/lifecycle.Lifecycle
// the dispatcher needs — avoids an import cycle (lifecycle does not
// depend on dispatcher, dispatcher depends on lifecycle's behavior only
// through this interface).
type IDResponseHandler interface {
	IDAcquired() bool
	HandleIdResponse(requestIdentifier uint16, newID byte)
}

// FirmwareHandler receives every firmware-family frame addressed to this
// node (spec §4.5 step 5c "Firmware variants: delegate to FirmwareUpdater").
type FirmwareHandler interface {
	HandleFrame(f *frame.Frame)
}

// IDAllocator is the gateway-role capability that answers IdRequest frames.
// Only a Dispatcher acting as the gateway (address 0) ever has one set; a
// leaf or repeater's Dispatcher leaves this nil and IdRequest frames fall
// through to Relay like anything else not addressed to it.
type IDAllocator interface {
	Allocate() byte
}

// Dispatcher wires one node's Router and driver into the receive-step
// algorithm. All fields except Router/driver are optional; a nil hook
// simply means that case is inert (e.g. a plain non-repeater leaf node has
// no use for find-parent-request replies).
type Dispatcher struct {
	Cfg    *router.Config
	Router *router.Router
	driver transport.Driver

	IsRepeater bool

	IDResponse IDResponseHandler
	Firmware   FirmwareHandler
	IDAllocate IDAllocator

	// OnReceive is the user-supplied callback for every frame that isn't
	// internally consumed (spec §6's begin(callback, ...)).
	OnReceive func(f *frame.Frame)

	// onTimeResponse is the single pending requestTime callback; cleared
	// after firing (spec §4.5 step 4, §6 requestTime(callback)).
	onTimeResponse func(*frame.TimeResponsePayload)

	// OnReset, if set, is invoked on a gateway-originated Reset frame
	// (spec §4.5 step 5c) — standing in for "enable a short watchdog and
	// spin, forcing a reboot" on a host build.
	OnReset func()
}

func New(driver transport.Driver, rtr *router.Router) *Dispatcher {
	return &Dispatcher{Cfg: rtr.Cfg, Router: rtr, driver: driver}
}

// RequestTime registers cb to run on the next TimeResponse frame
// (spec §6 requestTime). A second call before the first fires replaces
// the pending callback — only one request is outstanding at a time.
func (d *Dispatcher) RequestTime(cb func(*frame.TimeResponsePayload)) {
	d.onTimeResponse = cb
}

// Process implements spec §4.5's process() step. Returns false if nothing
// was pending to receive.
func (d *Dispatcher) Process() bool {
	if !d.driver.Available() {
		return false
	}
	data, err := d.driver.Receive(0)
	if err != nil {
		return false
	}

	f, err := frame.DecodeFrame(data)
	if err != nil {
		// ErrorHandling: MalformedFrame is silently dropped (spec §7).
		return true
	}

	if f.Header.MessageType == frame.MsgFindParentRequest && d.IsRepeater {
		d.replyToFindParentRequest(f)
		return true
	}

	if f.Header.MessageType == frame.MsgTimeResponse {
		if d.onTimeResponse != nil {
			resp := f.Payload.(*frame.TimeResponsePayload)
			cb := d.onTimeResponse
			d.onTimeResponse = nil
			cb(resp)
		}
		return true
	}

	if f.Header.Destination == d.Cfg.NodeID {
		d.handleSelfDestined(f)
		return true
	}

	if d.IsRepeater {
		d.Router.Relay(f)
	}
	return true
}

// replyToFindParentRequest implements spec §4.5 step 3: a uniformly
// random delay in [0, 1024) ms to reduce collisions among neighbors all
// answering the same broadcast, then a direct FindParentResponse.
func (d *Dispatcher) replyToFindParentRequest(f *frame.Frame) {
	delay := time.Duration(rand.Intn(1024)) * time.Millisecond
	time.Sleep(delay)

	resp := &frame.Frame{
		Header: frame.Header{
			Sender:      d.Cfg.NodeID,
			Destination: f.Header.Sender,
			MessageType: frame.MsgFindParentResponse,
		},
		Payload: &frame.FindParentResponsePayload{Distance: d.Cfg.Distance},
	}
	d.Router.SendDirect(f.Header.Sender, resp)
}

// handleSelfDestined implements spec §4.5 step 5: ack, child-route
// learning, then type dispatch.
func (d *Dispatcher) handleSelfDestined(f *frame.Frame) {
	if f.Header.AckRequested() {
		ack := frame.BuildAck(d.Cfg.NodeID, f)
		d.Router.SendRoute(ack)
	}

	if d.IsRepeater && f.Header.Last != d.Cfg.Parent {
		d.Router.LearnChildRoute(f.Header.Sender, f.Header.Last)
	}

	switch {
	case f.Header.MessageType == frame.MsgFindParentResponse:
		resp := f.Payload.(*frame.FindParentResponsePayload)
		d.Router.ConsiderParentCandidate(f.Header.Sender, resp.Distance)

	case f.Header.MessageType == frame.MsgReset:
		if d.OnReset != nil {
			d.OnReset()
		}

	case f.Header.MessageType == frame.MsgIdResponse:
		if d.IDResponse != nil && !d.IDResponse.IDAcquired() {
			resp := f.Payload.(*frame.IdResponsePayload)
			d.IDResponse.HandleIdResponse(resp.RequestIdentifier, resp.NewID)
		}

	case f.Header.MessageType == frame.MsgIdRequest:
		if d.IDAllocate != nil {
			req := f.Payload.(*frame.IdRequestPayload)
			resp := &frame.Frame{
				Header: frame.Header{
					Sender:      d.Cfg.NodeID,
					Destination: frame.Broadcast,
					MessageType: frame.MsgIdResponse,
				},
				Payload: &frame.IdResponsePayload{RequestIdentifier: req.RequestIdentifier, NewID: d.IDAllocate.Allocate()},
			}
			d.Router.SendRoute(resp)
		}

	case f.Header.MessageType.IsFirmware():
		if d.Firmware != nil {
			d.Firmware.HandleFrame(f)
		}

	default:
		if d.OnReceive != nil {
			d.OnReceive(f)
		}
	}
}
