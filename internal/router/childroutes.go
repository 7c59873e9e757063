package router

import (
	"sync"

	"github.com/sensormesh/nodecore/internal/store"
)

// ChildRoutes is the in-RAM ChildRouteTable of spec §3: child node id ->
// next-hop neighbor id. Kept in RAM for lookup speed and mirrored to
// persistent storage on every update (write-through), matching the
// store's ROUTES slot layout (one byte per possible child id, 0xFF =
// no route, per §4.7).
type ChildRoutes struct {
	mu    sync.RWMutex
	store store.Store
	table [store.LenRoutes]byte
}

// LoadChildRoutes reads the persisted ROUTES block into RAM.
func LoadChildRoutes(s store.Store) (*ChildRoutes, error) {
	cr := &ChildRoutes{store: s}
	if err := store.ReadRoutes(s, &cr.table); err != nil {
		return nil, err
	}
	return cr, nil
}

// Get returns the next-hop neighbor for child and whether a route is
// known at all.
func (cr *ChildRoutes) Get(child byte) (byte, bool) {
	cr.mu.RLock()
	defer cr.mu.RUnlock()
	via := cr.table[child]
	return via, via != NoRoute
}

// Add records childRoute[child] = via and persists the whole table
// (spec §3: "mirrored to persistent storage on every update").
func (cr *ChildRoutes) Add(child, via byte) error {
	cr.mu.Lock()
	defer cr.mu.Unlock()
	cr.table[child] = via
	return store.WriteRoutes(cr.store, &cr.table)
}

// Remove clears any route for child and persists.
func (cr *ChildRoutes) Remove(child byte) error {
	cr.mu.Lock()
	defer cr.mu.Unlock()
	cr.table[child] = NoRoute
	return store.WriteRoutes(cr.store, &cr.table)
}
