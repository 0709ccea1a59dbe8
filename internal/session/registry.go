package session

import "sync"

// Factory builds a fresh controller wired to its own provider handle.
type Factory func() *Controller

// Registry keeps one controller per device session, created on first touch
// and started immediately. It is the process-wide owner of session
// controllers: constructed once at startup, handed to the HTTP layer, and
// closed at shutdown.
type Registry struct {
	build Factory

	mu       sync.Mutex
	sessions map[string]*Controller
}

// NewRegistry builds an empty registry around a controller factory.
func NewRegistry(build Factory) *Registry {
	return &Registry{build: build, sessions: make(map[string]*Controller)}
}

// Get returns the controller for a device, creating and starting it when the
// device is seen for the first time.
func (r *Registry) Get(deviceID string) *Controller {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.sessions[deviceID]; ok {
		return c
	}
	c := r.build()
	c.Start()
	r.sessions[deviceID] = c
	return c
}

// Evict closes and removes the controller for a device, releasing its stream
// subscription and provider handle.
func (r *Registry) Evict(deviceID string) {
	r.mu.Lock()
	c, ok := r.sessions[deviceID]
	delete(r.sessions, deviceID)
	r.mu.Unlock()
	if ok {
		c.Close()
	}
}

// Close tears down every controller. Used at process shutdown.
func (r *Registry) Close() {
	r.mu.Lock()
	sessions := r.sessions
	r.sessions = make(map[string]*Controller)
	r.mu.Unlock()
	for _, c := range sessions {
		c.Close()
	}
}
