// Package clock implements the monotonic-time and low-power sleep
// primitives of spec.md §4.8: millis(), the busy-wait wait()/wait(ms,type),
// and the two sleep variants with their wake-source semantics.
package clock

import (
	"sync"
	"time"

	"github.com/sensormesh/nodecore/internal/transport"
)

// WakeReason identifies what ended a Sleep call.
type WakeReason int

const (
	WakeTimer WakeReason = iota
	WakeInterrupt0
	WakeInterrupt1
	// WakeNotPossible is returned when a pending firmware update
	// pre-empted the sleep request (spec §4.8: "MUST pre-empt sleep").
	WakeNotPossible
)

// InterruptMask selects which of the two edge-triggered external wake
// sources a masked Sleep call should listen on.
type InterruptMask byte

const (
	Interrupt0 InterruptMask = 1 << 0
	Interrupt1 InterruptMask = 1 << 1
)

const pollTick = time.Millisecond

// Clock is the capability injected wherever spec.md's millis/wait/sleep
// API is needed (spec §9: no global clock). On host builds it wraps
// wall-clock time; embedded builds would swap this package's body for one
// reading a hardware timer, never its call sites.
type Clock struct {
	start time.Time

	mu         sync.Mutex
	interrupts [2]bool
}

func New() *Clock { return &Clock{start: time.Now()} }

// Millis returns monotonic milliseconds since this Clock was created.
func (c *Clock) Millis() uint32 {
	return uint32(time.Since(c.start).Milliseconds())
}

// TriggerInterrupt marks edge-triggered wake source id (0 or 1) fired. A
// concurrent Sleep call waiting on that source wakes on its next poll.
// Out-of-range ids are ignored.
func (c *Clock) TriggerInterrupt(id int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if id == 0 || id == 1 {
		c.interrupts[id] = true
	}
}

func (c *Clock) consumeInterrupt(mask InterruptMask) (WakeReason, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if mask&Interrupt0 != 0 && c.interrupts[0] {
		c.interrupts[0] = false
		return WakeInterrupt0, true
	}
	if mask&Interrupt1 != 0 && c.interrupts[1] {
		c.interrupts[1] = false
		return WakeInterrupt1, true
	}
	return 0, false
}

// Wait pumps pump (typically Dispatcher.Process) once per tick for up to
// ms milliseconds without suspending the caller's notion of CPU activity
// (spec §4.8: "does not suspend the CPU"). If pump is nil this degrades to
// a plain bounded busy-wait. If pump ever reports true (a matching frame
// arrived), Wait returns true immediately — the wait(ms, type) overload of
// the spec's API.
func (c *Clock) Wait(ms uint32, pump func() bool) bool {
	deadline := time.Now().Add(time.Duration(ms) * time.Millisecond)
	for {
		if pump != nil && pump() {
			return true
		}
		if time.Now().After(deadline) {
			return false
		}
		time.Sleep(pollTick)
	}
}

// Sleep powers the radio down via driver and blocks until ms elapses or,
// when mask is non-zero, an external interrupt fires. updating, if
// non-nil, is consulted first; a pending firmware update refuses the
// sleep outright per spec §4.8.
func (c *Clock) Sleep(driver transport.Driver, ms uint32, mask InterruptMask, updating func() bool) WakeReason {
	if updating != nil && updating() {
		return WakeNotPossible
	}

	driver.PowerDown()
	deadline := time.Now().Add(time.Duration(ms) * time.Millisecond)
	for time.Now().Before(deadline) {
		if mask != 0 {
			if reason, ok := c.consumeInterrupt(mask); ok {
				return reason
			}
		}
		time.Sleep(pollTick)
	}
	return WakeTimer
}

// SmartSleep pumps flush (draining queued in/out traffic) before sleeping,
// giving a controller one last window to deliver commands, then behaves
// exactly like Sleep.
func (c *Clock) SmartSleep(driver transport.Driver, ms uint32, mask InterruptMask, updating func() bool, flush func()) WakeReason {
	if flush != nil {
		flush()
	}
	return c.Sleep(driver, ms, mask, updating)
}
