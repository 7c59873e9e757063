package transport

import (
	"sync"
	"time"
)

// Medium simulates the shared radio air: a frame sent by one FakeDriver is
// delivered to every other FakeDriver within its configured neighbor set,
// standing in for over-the-air broadcast. Adapted from the teacher's
// driver/stub ring-buffer fake, generalized from one fixed point-to-point
// link to an address-addressed many-node mesh so relay behavior (a node
// only directly hears its physical neighbors, everything else must be
// routed) is actually exercisable in tests.
type Medium struct {
	mu        sync.Mutex
	inboxes   map[byte]*ringBuffer
	neighbors map[byte]map[byte]bool // nil set == hears everyone
}

func NewMedium() *Medium {
	return &Medium{
		inboxes:   make(map[byte]*ringBuffer),
		neighbors: make(map[byte]map[byte]bool),
	}
}

// Link makes a and b mutual radio neighbors. Nodes with no Link calls at
// all default to fully connected (every driver hears every other), which
// is the common case for small test topologies; call Link at least once
// anywhere in a test to switch a Medium into explicit-adjacency mode.
func (m *Medium) Link(a, b byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.neighbors[a] == nil {
		m.neighbors[a] = make(map[byte]bool)
	}
	if m.neighbors[b] == nil {
		m.neighbors[b] = make(map[byte]bool)
	}
	m.neighbors[a][b] = true
	m.neighbors[b][a] = true
}

func (m *Medium) explicitAdjacency() bool {
	return len(m.neighbors) > 0
}

func (m *Medium) hears(from, to byte) bool {
	if !m.explicitAdjacency() {
		return true
	}
	return m.neighbors[from][to]
}

func (m *Medium) inbox(addr byte) *ringBuffer {
	m.mu.Lock()
	defer m.mu.Unlock()
	rb, ok := m.inboxes[addr]
	if !ok {
		rb = newRingBuffer()
		m.inboxes[addr] = rb
	}
	return rb
}

// broadcast delivers frame (already on-wire encoded, Header.Last identifies
// the transmitting radio) to every neighbor of from except from itself.
func (m *Medium) broadcast(from byte, frame []byte) {
	m.mu.Lock()
	addrs := make([]byte, 0, len(m.inboxes))
	for addr := range m.inboxes {
		addrs = append(addrs, addr)
	}
	m.mu.Unlock()

	for _, addr := range addrs {
		if addr == from {
			continue
		}
		if !m.hears(from, addr) {
			continue
		}
		cp := make([]byte, len(frame))
		copy(cp, frame)
		m.inbox(addr).push(cp)
	}
}

// FakeDriver is a Medium-attached Driver for tests and the host node
// simulator (spec §9's RAM-backed / simulated-capability guidance applied
// to Transport, same role internal/store.Memory plays for PersistentStore).
type FakeDriver struct {
	medium  *Medium
	address byte
}

func NewFakeDriver(medium *Medium, address byte) *FakeDriver {
	d := &FakeDriver{medium: medium, address: address}
	medium.inbox(address) // register so broadcasts iterate over it
	return d
}

func (d *FakeDriver) SetAddress(nodeID byte) error {
	d.medium.mu.Lock()
	rb := d.medium.inboxes[d.address]
	delete(d.medium.inboxes, d.address)
	d.medium.inboxes[nodeID] = rb
	d.medium.mu.Unlock()
	d.address = nodeID
	return nil
}

func (d *FakeDriver) Send(frame []byte) error {
	d.medium.broadcast(d.address, frame)
	return nil
}

func (d *FakeDriver) Available() bool {
	return !d.medium.inbox(d.address).empty()
}

func (d *FakeDriver) Receive(timeout time.Duration) ([]byte, error) {
	deadline := time.Now().Add(timeout)
	rb := d.medium.inbox(d.address)
	for {
		if frame, ok := rb.pop(); ok {
			return frame, nil
		}
		if time.Now().After(deadline) {
			return nil, ErrTimeout
		}
		time.Sleep(time.Millisecond)
	}
}

func (d *FakeDriver) PowerDown() {}

const ringCapacity = 64

// ringBuffer is the teacher's driver/stub fixed-capacity overwrite-oldest
// queue, unchanged, given a name that doesn't collide across this package's
// many per-address instances.
type ringBuffer struct {
	mu         sync.Mutex
	data       [ringCapacity][]byte
	head, tail int
	count      int
}

func newRingBuffer() *ringBuffer { return &ringBuffer{} }

func (rb *ringBuffer) push(frame []byte) {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	if rb.count == ringCapacity {
		rb.data[rb.tail] = nil
		rb.head = (rb.head + 1) % ringCapacity
		rb.count--
	}
	rb.data[rb.tail] = frame
	rb.tail = (rb.tail + 1) % ringCapacity
	rb.count++
}

func (rb *ringBuffer) pop() ([]byte, bool) {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	if rb.count == 0 {
		return nil, false
	}
	frame := rb.data[rb.head]
	rb.data[rb.head] = nil
	rb.head = (rb.head + 1) % ringCapacity
	rb.count--
	return frame, true
}

func (rb *ringBuffer) empty() bool {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	return rb.count == 0
}
