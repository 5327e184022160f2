package events

import "sync"

// Registry maps session IDs to their buses. Buses outlive pipeline
// completion so clients can still replay a finished session's events;
// they are removed together with the session.
type Registry struct {
	buses map[string]*Bus
	mu    sync.RWMutex
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{buses: make(map[string]*Bus)}
}

// Create registers a bus for the session, reusing an existing one.
func (r *Registry) Create(sessionID string) *Bus {
	r.mu.Lock()
	defer r.mu.Unlock()
	if b, ok := r.buses[sessionID]; ok {
		return b
	}
	b := NewBus(sessionID)
	r.buses[sessionID] = b
	return b
}

// Get returns the session's bus, or nil when none exists.
func (r *Registry) Get(sessionID string) *Bus {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.buses[sessionID]
}

// Delete closes and removes the session's bus.
func (r *Registry) Delete(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if b, ok := r.buses[sessionID]; ok {
		b.Close()
		delete(r.buses, sessionID)
	}
}
