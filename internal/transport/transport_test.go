package transport

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFakeDriverDirectDelivery(t *testing.T) {
	medium := NewMedium()
	a := NewFakeDriver(medium, 1)
	b := NewFakeDriver(medium, 2)

	require.NoError(t, a.Send([]byte{1, 2, 3}))

	frame, err := b.Receive(100 * time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, frame)
}

func TestFakeDriverReceiveTimeout(t *testing.T) {
	medium := NewMedium()
	a := NewFakeDriver(medium, 1)

	_, err := a.Receive(10 * time.Millisecond)
	assert.ErrorIs(t, err, ErrTimeout)
}

func TestFakeDriverExplicitAdjacencyLimitsDelivery(t *testing.T) {
	medium := NewMedium()
	a := NewFakeDriver(medium, 1)
	b := NewFakeDriver(medium, 2)
	c := NewFakeDriver(medium, 3)
	medium.Link(1, 2) // 1 and 3 are not neighbors

	require.NoError(t, a.Send([]byte{9}))

	frame, err := b.Receive(50 * time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, []byte{9}, frame)

	_, err = c.Receive(10 * time.Millisecond)
	assert.ErrorIs(t, err, ErrTimeout)
}

func TestFakeDriverSetAddressMigratesInbox(t *testing.T) {
	medium := NewMedium()
	a := NewFakeDriver(medium, 255) // AUTO
	b := NewFakeDriver(medium, 2)

	require.NoError(t, a.SetAddress(7))

	require.NoError(t, b.Send([]byte{5}))
	frame, err := a.Receive(50 * time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, []byte{5}, frame)
}

func TestFakeDriverAvailable(t *testing.T) {
	medium := NewMedium()
	a := NewFakeDriver(medium, 1)
	b := NewFakeDriver(medium, 2)

	assert.False(t, b.Available())
	require.NoError(t, a.Send([]byte{1}))
	time.Sleep(5 * time.Millisecond)
	assert.True(t, b.Available())
}
