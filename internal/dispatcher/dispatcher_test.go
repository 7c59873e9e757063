package dispatcher

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sensormesh/nodecore/internal/frame"
	"github.com/sensormesh/nodecore/internal/router"
	"github.com/sensormesh/nodecore/internal/store"
	"github.com/sensormesh/nodecore/internal/transport"
)

func newTestDispatcher(t *testing.T, medium *transport.Medium, addr byte) (*Dispatcher, *router.Router, transport.Driver) {
	t.Helper()
	s := store.NewMemory()
	routes, err := router.LoadChildRoutes(s)
	require.NoError(t, err)
	cfg := &router.Config{NodeID: addr, Parent: frame.Gateway, Distance: 1}
	driver := transport.NewFakeDriver(medium, addr)
	rtr := router.New(s, driver, cfg, routes)
	d := New(driver, rtr)
	return d, rtr, driver
}

func send(t *testing.T, from transport.Driver, f *frame.Frame) {
	t.Helper()
	data, err := frame.EncodeFrame(f)
	require.NoError(t, err)
	require.NoError(t, from.Send(data))
	time.Sleep(2 * time.Millisecond)
}

func TestProcessReturnsFalseWhenIdle(t *testing.T) {
	medium := transport.NewMedium()
	d, _, _ := newTestDispatcher(t, medium, 5)
	assert.False(t, d.Process())
}

func TestProcessDropsMalformedFrame(t *testing.T) {
	medium := transport.NewMedium()
	d, _, driver := newTestDispatcher(t, medium, 5)
	other := transport.NewFakeDriver(medium, 1)

	require.NoError(t, other.Send([]byte{1, 2})) // too short to be a frame
	time.Sleep(2 * time.Millisecond)
	_ = driver

	assert.True(t, d.Process())
}

func TestProcessSendsAckWhenRequested(t *testing.T) {
	medium := transport.NewMedium()
	d, _, _ := newTestDispatcher(t, medium, 5)
	sender := transport.NewFakeDriver(medium, 9)

	f := &frame.Frame{
		Header: frame.Header{
			Sender:      9,
			Destination: 5,
			Flags:       frame.FlagAckRequested,
			MessageType: frame.MsgBatteryLevel,
		},
		Payload: &frame.BatteryLevelPayload{Level: 70},
	}
	send(t, sender, f)

	assert.True(t, d.Process())

	data, err := sender.Receive(50 * time.Millisecond)
	require.NoError(t, err)
	decoded, err := frame.DecodeFrame(data)
	require.NoError(t, err)
	assert.True(t, decoded.Header.IsAck())
	assert.False(t, decoded.Header.AckRequested())
	assert.Equal(t, byte(5), decoded.Header.Sender)
	assert.Equal(t, byte(9), decoded.Header.Destination)
}

func TestProcessInvokesUserCallbackForUnhandledType(t *testing.T) {
	medium := transport.NewMedium()
	d, _, _ := newTestDispatcher(t, medium, 5)
	sender := transport.NewFakeDriver(medium, 9)

	received := false
	d.OnReceive = func(f *frame.Frame) { received = true }

	f := &frame.Frame{
		Header:  frame.Header{Sender: 9, Destination: 5, MessageType: frame.MsgBatteryLevel},
		Payload: &frame.BatteryLevelPayload{Level: 70},
	}
	send(t, sender, f)
	assert.True(t, d.Process())
	assert.True(t, received)
}

func TestProcessHandlesTimeResponseCallback(t *testing.T) {
	medium := transport.NewMedium()
	d, _, _ := newTestDispatcher(t, medium, 5)
	sender := transport.NewFakeDriver(medium, 0)

	var gotTime uint32
	called := false
	d.RequestTime(func(resp *frame.TimeResponsePayload) {
		called = true
		gotTime = resp.Time
	})

	f := &frame.Frame{
		Header:  frame.Header{Sender: 0, Destination: 5, MessageType: frame.MsgTimeResponse},
		Payload: &frame.TimeResponsePayload{Time: 123456},
	}
	send(t, sender, f)
	assert.True(t, d.Process())
	assert.True(t, called)
	assert.Equal(t, uint32(123456), gotTime)
}

func TestProcessFindParentResponseAdoptsParent(t *testing.T) {
	medium := transport.NewMedium()
	d, rtr, _ := newTestDispatcher(t, medium, 5)
	rtr.Cfg.Distance = frame.DistanceInvalid
	sender := transport.NewFakeDriver(medium, 2)

	f := &frame.Frame{
		Header:  frame.Header{Sender: 2, Destination: 5, MessageType: frame.MsgFindParentResponse},
		Payload: &frame.FindParentResponsePayload{Distance: 1},
	}
	send(t, sender, f)
	assert.True(t, d.Process())

	assert.Equal(t, byte(2), rtr.Cfg.Parent)
	assert.Equal(t, byte(2), rtr.Cfg.Distance)
}

func TestProcessResetInvokesCallback(t *testing.T) {
	medium := transport.NewMedium()
	d, _, _ := newTestDispatcher(t, medium, 5)
	sender := transport.NewFakeDriver(medium, 0)

	resetCalled := false
	d.OnReset = func() { resetCalled = true }

	f := &frame.Frame{
		Header:  frame.Header{Sender: 0, Destination: 5, MessageType: frame.MsgReset},
		Payload: &frame.ResetPayload{},
	}
	send(t, sender, f)
	assert.True(t, d.Process())
	assert.True(t, resetCalled)
}

func TestProcessRepliesDirectlyToFindParentRequest(t *testing.T) {
	medium := transport.NewMedium()
	d, rtr, _ := newTestDispatcher(t, medium, 5)
	d.IsRepeater = true
	rtr.Cfg.Distance = 3
	sender := transport.NewFakeDriver(medium, 9)

	f := &frame.Frame{
		Header:  frame.Header{Sender: 9, Destination: frame.Broadcast, MessageType: frame.MsgFindParentRequest},
		Payload: &frame.FindParentRequestPayload{},
	}
	send(t, sender, f)

	done := make(chan bool)
	go func() { done <- d.Process() }()
	select {
	case ok := <-done:
		assert.True(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("Process did not return in time")
	}

	data, err := sender.Receive(2 * time.Second)
	require.NoError(t, err)
	decoded, err := frame.DecodeFrame(data)
	require.NoError(t, err)
	assert.Equal(t, frame.MsgFindParentResponse, decoded.Header.MessageType)
	resp := decoded.Payload.(*frame.FindParentResponsePayload)
	assert.Equal(t, byte(3), resp.Distance)
}

type fakeIDAllocator struct {
	calls int
	ids   []byte
}

func (a *fakeIDAllocator) Allocate() byte {
	id := a.ids[a.calls]
	a.calls++
	return id
}

func TestProcessAnswersIdRequestWhenAllocatorSet(t *testing.T) {
	medium := transport.NewMedium()
	s := store.NewMemory()
	routes, err := router.LoadChildRoutes(s)
	require.NoError(t, err)
	cfg := &router.Config{NodeID: frame.Gateway, Distance: 0}
	driver := transport.NewFakeDriver(medium, frame.Gateway)
	rtr := router.New(s, driver, cfg, routes)
	rtr.IsGateway = true
	d := New(driver, rtr)
	d.IDAllocate = &fakeIDAllocator{ids: []byte{7}}

	sender := transport.NewFakeDriver(medium, frame.AUTO)
	f := &frame.Frame{
		Header:  frame.Header{Sender: frame.AUTO, Destination: frame.Gateway, MessageType: frame.MsgIdRequest},
		Payload: &frame.IdRequestPayload{RequestIdentifier: 42},
	}
	send(t, sender, f)
	assert.True(t, d.Process())

	data, err := sender.Receive(50 * time.Millisecond)
	require.NoError(t, err)
	decoded, err := frame.DecodeFrame(data)
	require.NoError(t, err)
	assert.Equal(t, frame.MsgIdResponse, decoded.Header.MessageType)
	resp := decoded.Payload.(*frame.IdResponsePayload)
	assert.Equal(t, uint16(42), resp.RequestIdentifier)
	assert.Equal(t, byte(7), resp.NewID)
}

func TestProcessIgnoresIdRequestWithoutAllocator(t *testing.T) {
	medium := transport.NewMedium()
	d, _, _ := newTestDispatcher(t, medium, frame.Gateway)
	sender := transport.NewFakeDriver(medium, frame.AUTO)

	f := &frame.Frame{
		Header:  frame.Header{Sender: frame.AUTO, Destination: frame.Gateway, MessageType: frame.MsgIdRequest},
		Payload: &frame.IdRequestPayload{RequestIdentifier: 1},
	}
	send(t, sender, f)
	assert.True(t, d.Process())

	_, err := sender.Receive(20 * time.Millisecond)
	assert.ErrorIs(t, err, transport.ErrTimeout)
}

func TestProcessRelaysFrameForOtherNode(t *testing.T) {
	medium := transport.NewMedium()
	d, rtr, _ := newTestDispatcher(t, medium, 5)
	d.IsRepeater = true
	rtr.IsRepeater = true
	rtr.Cfg.Parent = frame.Gateway
	gateway := transport.NewFakeDriver(medium, frame.Gateway)
	sender := transport.NewFakeDriver(medium, 20)

	f := &frame.Frame{
		Header:  frame.Header{Sender: 20, Last: 20, Destination: frame.Gateway, MessageType: frame.MsgBatteryLevel},
		Payload: &frame.BatteryLevelPayload{Level: 5},
	}
	send(t, sender, f)
	assert.True(t, d.Process())

	_, err := gateway.Receive(50 * time.Millisecond)
	require.NoError(t, err)

	via, ok := rtr.Routes.Get(20)
	require.True(t, ok)
	assert.Equal(t, byte(20), via)
}
