// File: supervisor/registry.go
// Author: momentics <momentics@gmail.com>
//
// ConnectionRegistry maps a stable connection ID to whichever *runtime.
// Runtime is currently serving it. Consumers hold the stable
// ID, never a runtime reference directly; on restart the ID is
// re-registered to the new Runtime before any user command is accepted,
// so a lookup racing a restart either sees the old Runtime (still
// draining its terminal state) or the new one, never a gap.

package supervisor

import (
	"sync"

	"github.com/momentics/wsconnect/runtime"
)

// Registry is safe for concurrent use.
type Registry struct {
	mu   sync.RWMutex
	live map[string]*runtime.Runtime
	down map[string]bool
}

// NewRegistry constructs an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		live: make(map[string]*runtime.Runtime),
		down: make(map[string]bool),
	}
}

// Get returns the Runtime currently registered under id, if any.
func (r *Registry) Get(id string) (*runtime.Runtime, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rt, ok := r.live[id]
	return rt, ok
}

// IsDown reports whether id has exhausted its restart budget and will not
// be retried again.
func (r *Registry) IsDown(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.down[id]
}

// put registers rt under id, replacing whatever was registered before and
// clearing any permanently-down mark.
func (r *Registry) put(id string, rt *runtime.Runtime) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.live[id] = rt
	delete(r.down, id)
}

// markDown removes id's live entry and records it as permanently down.
func (r *Registry) markDown(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.live, id)
	r.down[id] = true
}

// IDs returns every currently live connection ID, for diagnostics.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.live))
	for id := range r.live {
		ids = append(ids, id)
	}
	return ids
}
