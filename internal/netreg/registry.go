// Package netreg holds the process-wide provider registry. Exactly one
// provider serves each capability, registration lasts for the process
// lifetime and has no teardown counterpart.
package netreg

import "sync"

// Capability names served by network providers
const (
	CapGSM = "gsm"
	CapTLS = "tls"
)

// Socket address family slots
const (
	AFInet = 0
)

// Registry maps capability names and socket family slots to their
// provider. It is an injected dependency, not a package singleton, so
// tests can run isolated instances.
type Registry struct {
	mu sync.RWMutex

	providers map[string]any
	families  map[int]any
}

func New() *Registry {
	return &Registry{
		providers: make(map[string]any),
		families:  make(map[int]any),
	}
}

// Register binds a provider to a capability name, replacing any
// previous binding
func (r *Registry) Register(capability string, provider any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[capability] = provider
}

// Lookup returns the provider bound to a capability name
func (r *Registry) Lookup(capability string) (any, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[capability]
	return p, ok
}

// RegisterSocketFamily binds a provider to a socket family slot
func (r *Registry) RegisterSocketFamily(family int, provider any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.families[family] = provider
}

// SocketFamily returns the provider bound to a socket family slot
func (r *Registry) SocketFamily(family int) (any, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.families[family]
	return p, ok
}
