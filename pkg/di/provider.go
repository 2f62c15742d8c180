package di

import (
	"errors"
	"sync"
)

// ErrProviderNotInjected is the panic value raised when a Slot is read before
// a Provider was injected. It signals a setup bug, not an absent service.
var ErrProviderNotInjected = errors.New("di: provider not injected")

// Provider hands out containers to the pipe.
type Provider interface {
	// PipeShared returns the container shared by every call of a pipe. It
	// returns the same instance on every call.
	PipeShared() *Container
	// Container returns a fresh container with the provider's bindings.
	Container() *Container
}

// DefaultProvider applies one setup function to the shared container and to
// every fresh container it creates.
type DefaultProvider struct {
	setup func(*Container)

	once   sync.Once
	shared *Container
}

// NewDefaultProvider creates a DefaultProvider. setup may be nil.
func NewDefaultProvider(setup func(*Container)) *DefaultProvider {
	return &DefaultProvider{setup: setup}
}

// PipeShared implements Provider.
func (p *DefaultProvider) PipeShared() *Container {
	p.once.Do(func() {
		p.shared = p.Container()
	})
	return p.shared
}

// Container implements Provider.
func (p *DefaultProvider) Container() *Container {
	c := New()
	if p.setup != nil {
		p.setup(c)
	}
	return c
}

// Slot holds the Provider of one application. The application root constructs
// it, injects a Provider during setup and passes the Slot to every component
// that resolves services.
type Slot struct {
	mu       sync.RWMutex
	provider Provider
}

// NewSlot returns an empty Slot.
func NewSlot() *Slot {
	return &Slot{}
}

// Inject installs p, replacing any previous provider.
func (s *Slot) Inject(p Provider) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.provider = p
}

// Injected reports whether a provider is installed.
func (s *Slot) Injected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.provider != nil
}

// Provider returns the injected provider. It panics with
// ErrProviderNotInjected when none was injected.
func (s *Slot) Provider() Provider {
	s.mu.RLock()
	p := s.provider
	s.mu.RUnlock()
	if p == nil {
		panic(ErrProviderNotInjected)
	}
	return p
}
