package node

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sensormesh/nodecore/internal/frame"
	"github.com/sensormesh/nodecore/internal/lifecycle"
	"github.com/sensormesh/nodecore/internal/transport"
)

func pumpUntil(t *testing.T, n *Node, timeout time.Duration, done func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		n.Process()
		if done() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

func TestGatewayBeginAssignsDistanceZero(t *testing.T) {
	medium := transport.NewMedium()
	gw, err := NewSimulated(medium, frame.Gateway, Config{NodeID: frame.Gateway, IsGateway: true, IsRepeater: true}, 4)
	require.NoError(t, err)

	require.NoError(t, gw.Begin(nil))
	assert.Equal(t, byte(0), gw.rtr.Cfg.Distance)
}

func TestLeafNodeAcquiresIdAndPresents(t *testing.T) {
	medium := transport.NewMedium()
	gw, err := NewSimulated(medium, frame.Gateway, Config{NodeID: frame.Gateway, IsGateway: true, IsRepeater: true}, 4)
	require.NoError(t, err)
	require.NoError(t, gw.Begin(nil))

	leaf, err := NewSimulated(medium, frame.AUTO, Config{NodeID: frame.AUTO, FixedParent: frame.Gateway}, 4)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- leaf.Begin(nil) }()

	// The gateway must answer IdRequest with an assigned id; pump it
	// alongside the leaf's own internal pumps. Begin blocks through a full
	// acquireWindow and a full presentWindow (spec §4.4/§4.5's "pump
	// dispatcher ~2s" is a fixed window, not an early-exit-on-reply one),
	// so the deadline here has to clear both with margin.
	deadline := time.Now().Add(6 * time.Second)
	for time.Now().Before(deadline) {
		gw.Process()
		select {
		case err := <-done:
			require.NoError(t, err)
			assert.NotEqual(t, frame.AUTO, leaf.cfg.NodeID)
			assert.Equal(t, lifecycle.StateRun, leaf.State())
			return
		default:
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("leaf never completed Begin")
}

func TestSendBatteryLevelReachesGateway(t *testing.T) {
	medium := transport.NewMedium()
	gw, err := NewSimulated(medium, frame.Gateway, Config{NodeID: frame.Gateway, IsGateway: true, IsRepeater: true}, 4)
	require.NoError(t, err)
	require.NoError(t, gw.Begin(nil))

	leaf, err := NewSimulated(medium, 9, Config{NodeID: 9, FixedParent: frame.Gateway}, 4)
	require.NoError(t, err)
	require.NoError(t, leaf.Begin(nil))

	var received *frame.BatteryLevelPayload
	gw.OnReceive = func(f *frame.Frame) {
		if p, ok := f.Payload.(*frame.BatteryLevelPayload); ok {
			received = p
		}
	}

	assert.True(t, leaf.SendBatteryLevel(77))
	pumpUntil(t, gw, time.Second, func() bool { return received != nil })
	assert.Equal(t, byte(77), received.Level)
}

func TestSaveAndLoadState(t *testing.T) {
	medium := transport.NewMedium()
	n, err := NewSimulated(medium, 3, Config{NodeID: 3, IsGateway: true}, 4)
	require.NoError(t, err)

	require.NoError(t, n.SaveState(5, 42))
	v, err := n.LoadState(5)
	require.NoError(t, err)
	assert.Equal(t, byte(42), v)
}

func TestWaitReturnsEarlyOnMatch(t *testing.T) {
	medium := transport.NewMedium()
	gw, err := NewSimulated(medium, frame.Gateway, Config{NodeID: frame.Gateway, IsGateway: true, IsRepeater: true}, 4)
	require.NoError(t, err)
	require.NoError(t, gw.Begin(nil))

	leaf, err := NewSimulated(medium, 9, Config{NodeID: 9, FixedParent: frame.Gateway}, 4)
	require.NoError(t, err)
	require.NoError(t, leaf.Begin(nil))

	go func() {
		time.Sleep(20 * time.Millisecond)
		leaf.SendBatteryLevel(55)
	}()

	matched := gw.Wait(2000, func(f *frame.Frame) bool {
		_, ok := f.Payload.(*frame.BatteryLevelPayload)
		return ok
	})
	assert.True(t, matched)
}
