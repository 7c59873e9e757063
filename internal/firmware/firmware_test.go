package firmware

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

func newNodeUpdater(t *testing.T, medium *transport.Medium, addr byte, blockCount uint16) (*Updater, *MemoryStaging, transport.Driver) {
	t.Helper()
	s := store.NewMemory()
	routes, err := router.LoadChildRoutes(s)
	require.NoError(t, err)
	cfg := &router.Config{NodeID: addr, Parent: frame.Gateway, Distance: 1}
	driver := transport.NewFakeDriver(medium, addr)
	rtr := router.New(s, driver, cfg, routes)
	staging := NewMemoryStaging(blockCount)
	u, err := New(s, rtr, staging)
	require.NoError(t, err)
	return u, staging, driver
}

// newGatewayCatalog builds a gateway-role router that already knows how to
// reach nodeAddr directly — the route a real gateway would have learned via
// Dispatcher.handleSelfDestined's LearnChildRoute call when that node's
// request first arrived, which these tests bypass by calling
// Gateway.HandleFrame directly.
func newGatewayCatalog(t *testing.T, medium *transport.Medium, img Image, nodeAddr byte) (*Gateway, transport.Driver) {
	t.Helper()
	s := store.NewMemory()
	routes, err := router.LoadChildRoutes(s)
	require.NoError(t, err)
	cfg := &router.Config{NodeID: frame.Gateway, Distance: 0}
	driver := transport.NewFakeDriver(medium, frame.Gateway)
	rtr := router.New(s, driver, cfg, routes)
	rtr.IsGateway = true
	rtr.IsRepeater = true
	require.NoError(t, routes.Add(nodeAddr, nodeAddr))
	catalog := NewCatalog()
	catalog.Register(img)
	return NewGateway(catalog, rtr), driver
}

func decodeNext(t *testing.T, d transport.Driver) *frame.Frame {
	t.Helper()
	data, err := d.Receive(time.Second)
	require.NoError(t, err)
	f, err := frame.DecodeFrame(data)
	require.NoError(t, err)
	return f
}

func TestUpdaterStartSendsConfigRequest(t *testing.T) {
	medium := transport.NewMedium()
	u, _, _ := newNodeUpdater(t, medium, 5, 4)
	gwDriver := transport.NewFakeDriver(medium, frame.Gateway)

	u.Start()

	f := decodeNext(t, gwDriver)
	assert.Equal(t, frame.MsgFirmwareConfigRequest, f.Header.MessageType)
}

func TestUpdaterFullUpdateCrcMatch(t *testing.T) {
	medium := transport.NewMedium()
	image := NewImage(1, 2, []byte("this is a sixteen byte block!!!and one more block."))
	gw, gwDriver := newGatewayCatalog(t, medium, image, 5)
	u, staging, nodeDriver := newNodeUpdater(t, medium, 5, image.Descriptor.Blocks)
	// The catalog serves images by the node's installed type, so the node
	// must already run an older version of type 1 to be offered version 2.
	u.installed = Descriptor{Type: 1, Version: 1, Blocks: 1, Crc: 0}

	u.Start()

	done := false
	for i := 0; i < 20 && !done; i++ {
		req := decodeNext(t, gwDriver)
		gw.HandleFrame(req)

		resp := decodeNext(t, nodeDriver)
		u.HandleFrame(resp)

		done = !u.Updating() && u.installed.equals(image.Descriptor)
	}

	assert.True(t, done)
	assert.False(t, u.Updating())
	assert.True(t, u.installed.equals(image.Descriptor))
	desc, finalized := staging.Finalized()
	assert.True(t, finalized)
	assert.Equal(t, image.Descriptor, desc)
}

func TestUpdaterConfigResponseSkippedWhenAlreadyInstalled(t *testing.T) {
	medium := transport.NewMedium()
	u, _, _ := newNodeUpdater(t, medium, 5, 1)
	u.installed = Descriptor{Type: 1, Version: 1, Blocks: 1, Crc: 42}

	u.HandleFrame(&frame.Frame{
		Header:  frame.Header{Sender: frame.Gateway, Destination: 5, MessageType: frame.MsgFirmwareConfigResponse},
		Payload: &frame.FirmwareConfigResponsePayload{Type: 1, Version: 1, Blocks: 1, Crc: 42},
	})

	assert.False(t, u.Updating())
}

func TestUpdaterRejectsOutOfOrderBlock(t *testing.T) {
	medium := transport.NewMedium()
	u, _, _ := newNodeUpdater(t, medium, 5, 3)
	u.HandleFrame(&frame.Frame{
		Header:  frame.Header{Sender: frame.Gateway, Destination: 5, MessageType: frame.MsgFirmwareConfigResponse},
		Payload: &frame.FirmwareConfigResponsePayload{Type: 9, Version: 1, Blocks: 3, Crc: 1},
	})
	require.True(t, u.Updating())
	require.Equal(t, uint16(0), u.nextBlock)

	// Block 1 arrives before block 0 has been acked — ignored.
	u.HandleFrame(&frame.Frame{
		Header: frame.Header{Sender: frame.Gateway, Destination: 5, MessageType: frame.MsgFirmwareResponse},
		Payload: &frame.FirmwareResponsePayload{
			Type: 9, Version: 1, Block: 1, Data: [blockSize]byte{},
		},
	})
	assert.Equal(t, uint16(0), u.nextBlock)
}

func TestUpdaterCrcMismatchAborts(t *testing.T) {
	medium := transport.NewMedium()
	u, _, _ := newNodeUpdater(t, medium, 5, 1)

	var abortReason string
	u.OnAbort = func(reason string) { abortReason = reason }

	u.HandleFrame(&frame.Frame{
		Header:  frame.Header{Sender: frame.Gateway, Destination: 5, MessageType: frame.MsgFirmwareConfigResponse},
		Payload: &frame.FirmwareConfigResponsePayload{Type: 1, Version: 1, Blocks: 1, Crc: 0xBEEF},
	})
	require.True(t, u.Updating())

	u.HandleFrame(&frame.Frame{
		Header: frame.Header{Sender: frame.Gateway, Destination: 5, MessageType: frame.MsgFirmwareResponse},
		Payload: &frame.FirmwareResponsePayload{
			Type: 1, Version: 1, Block: 0, Data: [blockSize]byte{1, 2, 3},
		},
	})

	assert.False(t, u.Updating())
	assert.Equal(t, "crc mismatch", abortReason)
}

func TestUpdaterPollRetryResendsAfterWindow(t *testing.T) {
	medium := transport.NewMedium()
	u, _, _ := newNodeUpdater(t, medium, 5, 2)
	gwDriver := transport.NewFakeDriver(medium, frame.Gateway)
	u.HandleFrame(&frame.Frame{
		Header:  frame.Header{Sender: frame.Gateway, Destination: 5, MessageType: frame.MsgFirmwareConfigResponse},
		Payload: &frame.FirmwareConfigResponsePayload{Type: 1, Version: 1, Blocks: 2, Crc: 1},
	})
	_, err := gwDriver.Receive(200 * time.Millisecond) // drain the initial block-0 request
	require.NoError(t, err)

	u.lastRequest = time.Now().Add(-2 * retryWindow)
	u.PollRetry()

	f := decodeNext(t, gwDriver)
	assert.Equal(t, frame.MsgFirmwareRequest, f.Header.MessageType)
	req := f.Payload.(*frame.FirmwareRequestPayload)
	assert.Equal(t, uint16(0), req.Block)
}

func TestUpdaterPollRetryAbortsAfterLimit(t *testing.T) {
	medium := transport.NewMedium()
	u, _, _ := newNodeUpdater(t, medium, 5, 2)
	gwDriver := transport.NewFakeDriver(medium, frame.Gateway)
	u.HandleFrame(&frame.Frame{
		Header:  frame.Header{Sender: frame.Gateway, Destination: 5, MessageType: frame.MsgFirmwareConfigResponse},
		Payload: &frame.FirmwareConfigResponsePayload{Type: 1, Version: 1, Blocks: 2, Crc: 1},
	})
	_, err := gwDriver.Receive(200 * time.Millisecond)
	require.NoError(t, err)

	for i := 0; i < maxBlockRetries+1; i++ {
		u.lastRequest = time.Now().Add(-2 * retryWindow)
		u.PollRetry()
		if u.Updating() {
			_, err := gwDriver.Receive(200 * time.Millisecond)
			require.NoError(t, err)
		}
	}

	assert.False(t, u.Updating())
}

func TestGatewayUnknownImageIgnoresBlockRequest(t *testing.T) {
	medium := transport.NewMedium()
	image := NewImage(1, 1, make([]byte, blockSize))
	gw, _ := newGatewayCatalog(t, medium, image, 7)
	sender := transport.NewFakeDriver(medium, 7)

	f := &frame.Frame{
		Header:  frame.Header{Sender: 7, Destination: frame.Gateway, MessageType: frame.MsgFirmwareRequest},
		Payload: &frame.FirmwareRequestPayload{Type: 99, Version: 1, Block: 0},
	}
	gw.HandleFrame(f)

	_, err := sender.Receive(100 * time.Millisecond)
	assert.ErrorIs(t, err, transport.ErrTimeout)
}
