package registry

import (
	"sync"

	"chat-relay/internal/protocol"
)

// Sink pushes one frame to a specific connected peer. Implementations must
// be safe for concurrent Push calls; the router, the offline replayer and
// receipt emission may all write to the same connection.
type Sink interface {
	Push(frame protocol.Frame) error
}

// Registry is the single source of truth for which users are online. It maps
// a user id to the sink of their live connection. All methods are safe for
// concurrent use; callers need no external locking.
type Registry struct {
	mu    sync.RWMutex
	sinks map[string]Sink
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{sinks: make(map[string]Sink)}
}

// Register installs the sink for a user id, atomically superseding any
// previous registration. It returns the superseded sink, if any; closing
// the superseded connection remains its own handler's responsibility.
func (r *Registry) Register(userID string, sink Sink) (Sink, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	prev, ok := r.sinks[userID]
	r.sinks[userID] = sink
	return prev, ok
}

// Unregister removes the user's entry only if sink is still the registered
// one, so a stale disconnect never clobbers a newer session for the same
// user. It reports whether an entry was removed.
func (r *Registry) Unregister(userID string, sink Sink) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cur, ok := r.sinks[userID]; ok && cur == sink {
		delete(r.sinks, userID)
		return true
	}
	return false
}

// Lookup returns the live sink for a user id.
func (r *Registry) Lookup(userID string) (Sink, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sink, ok := r.sinks[userID]
	return sink, ok
}

// Online reports whether the user has a live connection.
func (r *Registry) Online(userID string) bool {
	_, ok := r.Lookup(userID)
	return ok
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sinks)
}
