// Package activity carries connect/disconnect signals from an external
// idle-detection source to the components that gate work on them. The
// registry is owned by the composition root; there is no ambient global
// listener state.
package activity

import "sync"

// Signal is one activity transition emitted by the external source.
type Signal string

const (
	// SignalDisconnect asks consumers to drop background work while the
	// operator is away.
	SignalDisconnect Signal = "disconnect"
	// SignalReconnect asks consumers to resume background work.
	SignalReconnect Signal = "reconnect"
)

// Registry fans activity signals out to registered listeners.
type Registry struct {
	mu        sync.Mutex
	nextID    int
	listeners map[int]func(Signal)
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{listeners: make(map[int]func(Signal))}
}

// Register adds a listener and returns its unregister handle.
// POST: the listener receives every subsequent Broadcast until the handle is called
// INVARIANT: calling the handle more than once is harmless
func (r *Registry) Register(fn func(Signal)) func() {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := r.nextID
	r.nextID++
	r.listeners[id] = fn
	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		delete(r.listeners, id)
	}
}

// Broadcast delivers sig to every registered listener.
func (r *Registry) Broadcast(sig Signal) {
	r.mu.Lock()
	fns := make([]func(Signal), 0, len(r.listeners))
	for _, fn := range r.listeners {
		fns = append(fns, fn)
	}
	r.mu.Unlock()

	for _, fn := range fns {
		fn(sig)
	}
}
