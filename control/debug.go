// control/debug.go
// Author: momentics <momentics@gmail.com>
//
// Named probes served under /debug/probes. Probes run on the admin
// goroutine and must only read state that is safe to load concurrently.

package control

import (
	"slices"
	"sync"
)

// Probe reports one piece of runtime state.
type Probe func() any

// DebugProbes is a concurrent probe registry.
type DebugProbes struct {
	mu     sync.RWMutex
	probes map[string]Probe
}

// NewDebugProbes creates an empty registry.
func NewDebugProbes() *DebugProbes {
	return &DebugProbes{probes: make(map[string]Probe)}
}

// RegisterProbe inserts or replaces a probe. A nil fn removes it.
func (dp *DebugProbes) RegisterProbe(name string, fn Probe) {
	dp.mu.Lock()
	defer dp.mu.Unlock()
	if fn == nil {
		delete(dp.probes, name)
		return
	}
	dp.probes[name] = fn
}

// Names lists registered probes in lexical order.
func (dp *DebugProbes) Names() []string {
	dp.mu.RLock()
	names := make([]string, 0, len(dp.probes))
	for k := range dp.probes {
		names = append(names, k)
	}
	dp.mu.RUnlock()
	slices.Sort(names)
	return names
}

// DumpState evaluates every probe.
func (dp *DebugProbes) DumpState() map[string]any {
	dp.mu.RLock()
	defer dp.mu.RUnlock()
	out := make(map[string]any, len(dp.probes))
	for k, fn := range dp.probes {
		out[k] = fn()
	}
	return out
}
