// Package idallocator implements the gateway-role counterpart of
// spec.md §4.4 ACQUIRE_ID: handing out node ids in response to IdRequest
// frames. spec.md only specifies the node-side half (send IdRequest, await
// IdResponse, halt on exhaustion); the allocation policy itself is left to
// the gateway, same as the upstream MySensors gateway sketch this spec was
// distilled from.
package idallocator

import (
	"golang.org/x/time/rate"

	"github.com/sensormesh/nodecore/internal/frame"
)

// Allocator hands out ids in [1, 254] monotonically, never reusing one
// within a single gateway process lifetime, and rate-limits how fast a
// flood of IdRequest frames can consume them — a misbehaving or
// compromised node retrying IdRequest in a tight loop must not be able to
// exhaust the id space for everyone else.
type Allocator struct {
	next    byte
	limiter *rate.Limiter
}

// New returns an Allocator starting from id 1, permitting up to burst
// requests immediately and one every 1/ratePerSecond thereafter.
func New(ratePerSecond float64, burst int) *Allocator {
	return &Allocator{next: 1, limiter: rate.NewLimiter(rate.Limit(ratePerSecond), burst)}
}

// Allocate returns the next free id, or frame.AUTO if the id space is
// exhausted (spec §7 IdExhausted) or the request was rate-limited — the
// caller sends IdResponse{NewID: AUTO} either way, which is indistinguishable
// to the requester and fails safe (it simply retries later).
func (a *Allocator) Allocate() byte {
	if !a.limiter.Allow() {
		return frame.AUTO
	}
	if a.next == 0 || a.next == frame.AUTO {
		return frame.AUTO
	}
	id := a.next
	a.next++
	return id
}
