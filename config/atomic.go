package config

import (
	"sync/atomic"

	"github.com/brovakt/canal/engine"
)

// atomicRegistry lets BridgeStore swap in a freshly loaded registry without
// a lock on BridgeStore.Registry's read path. A registry already handed out
// (app.Start gives one to the vessel registry and the bridge-text service
// at startup) is not replaced by a later swap.
type atomicRegistry struct {
	p atomic.Pointer[engine.BridgeRegistry]
}

func newAtomicRegistry(initial *engine.BridgeRegistry) *atomicRegistry {
	a := &atomicRegistry{}
	a.p.Store(initial)
	return a
}

func (a *atomicRegistry) load() *engine.BridgeRegistry  { return a.p.Load() }
func (a *atomicRegistry) store(r *engine.BridgeRegistry) { a.p.Store(r) }
