package ws

import (
	"sync"

	"github.com/angga0x/ownchat/internal/models"
)

// Handle is a live, writable client connection.
type Handle interface {
	Send(event models.ServerEvent) error
	Close() error
}

// Registry maps an authenticated user to at most one live connection. It is
// constructed by the composition root and passed to the components that
// need it; bindings are process-local and lost on restart.
type Registry struct {
	mu      sync.RWMutex
	clients map[int]Handle
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{clients: make(map[int]Handle)}
}

// Bind registers the handle for the user, superseding and closing any prior
// handle for the same user.
func (r *Registry) Bind(userID int, h Handle) {
	r.mu.Lock()
	old := r.clients[userID]
	r.clients[userID] = h
	r.mu.Unlock()

	if old != nil && old != h {
		_ = old.Close()
	}
}

// Unbind removes the mapping only if the given handle is still current, so a
// stale disconnect from a superseded connection cannot evict a newer one.
// Returns whether the mapping was removed.
func (r *Registry) Unbind(userID int, h Handle) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if current, ok := r.clients[userID]; ok && current == h {
		delete(r.clients, userID)
		return true
	}
	return false
}

// Lookup returns the live handle for the user, if any.
func (r *Registry) Lookup(userID int) (Handle, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.clients[userID]
	return h, ok
}

// Snapshot returns a copy of all current bindings for broadcast loops.
func (r *Registry) Snapshot() map[int]Handle {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[int]Handle, len(r.clients))
	for id, h := range r.clients {
		out[id] = h
	}
	return out
}
