package registry

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/morezero/method-pipe/pkg/events"
	"github.com/morezero/method-pipe/pkg/method"
)

const logPrefix = "registry:registry"

const defaultName = "global"

// Config holds registry configuration.
type Config struct {
	// Name identifies the registry in logs and methods-changed events.
	Name string
}

// DefaultConfig returns the default registry configuration.
func DefaultConfig() Config {
	return Config{Name: defaultName}
}

// NewRegistryParams holds parameters for NewRegistry.
type NewRegistryParams struct {
	Publisher events.EventPublisher
	Config    Config
}

// Registry maps method names to methods. Writes are exclusive; lookups of
// already built methods share the read lock.
type Registry struct {
	mu        sync.RWMutex
	methods   map[string]method.Method
	factories map[string]func() method.Method
	publisher events.EventPublisher
	config    Config
}

// NewRegistry creates a new Registry instance.
func NewRegistry(params NewRegistryParams) *Registry {
	cfg := params.Config
	if cfg.Name == "" {
		cfg.Name = defaultName
	}

	pub := params.Publisher
	if pub == nil {
		pub = &events.NoOpPublisher{}
	}

	return &Registry{
		methods:   make(map[string]method.Method),
		factories: make(map[string]func() method.Method),
		publisher: pub,
		config:    cfg,
	}
}

// New creates a Registry with the default configuration and no publisher.
func New() *Registry {
	return NewRegistry(NewRegistryParams{Config: DefaultConfig()})
}

// Name returns the configured registry name.
func (r *Registry) Name() string {
	return r.config.Name
}

// Register binds m under m.Name(), replacing any method or factory already
// bound to that name.
func (r *Registry) Register(m method.Method) {
	if m == nil || m.Name() == "" {
		slog.Warn(fmt.Sprintf("%s - [%s] ignoring method without a name", logPrefix, r.config.Name))
		return
	}
	name := m.Name()

	r.mu.Lock()
	_, hadMethod := r.methods[name]
	_, hadFactory := r.factories[name]
	delete(r.factories, name)
	r.methods[name] = m
	r.mu.Unlock()

	if hadMethod || hadFactory {
		slog.Debug(fmt.Sprintf("%s - [%s] replaced method %s", logPrefix, r.config.Name, name))
	}
}

// RegisterFactory binds a constructor under name. The method is built on its
// first lookup and cached from then on.
func (r *Registry) RegisterFactory(name string, factory func() method.Method) {
	if name == "" || factory == nil {
		slog.Warn(fmt.Sprintf("%s - [%s] ignoring factory without a name or constructor", logPrefix, r.config.Name))
		return
	}

	r.mu.Lock()
	_, hadMethod := r.methods[name]
	_, hadFactory := r.factories[name]
	delete(r.methods, name)
	r.factories[name] = factory
	r.mu.Unlock()

	if hadMethod || hadFactory {
		slog.Debug(fmt.Sprintf("%s - [%s] replaced method %s", logPrefix, r.config.Name, name))
	}
}

// Unregister removes the binding for name. Absent names are ignored.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	_, hadMethod := r.methods[name]
	_, hadFactory := r.factories[name]
	delete(r.methods, name)
	delete(r.factories, name)
	r.mu.Unlock()

	if hadMethod || hadFactory {
		slog.Debug(fmt.Sprintf("%s - [%s] unregistered method %s", logPrefix, r.config.Name, name))
	}
}

// RespondTo reports whether name is bound.
func (r *Registry) RespondTo(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if _, ok := r.methods[name]; ok {
		return true
	}
	_, ok := r.factories[name]
	return ok
}

// Lookup returns the method bound to name. Pending factories are built here.
func (r *Registry) Lookup(name string) (method.Method, bool) {
	r.mu.RLock()
	m, ok := r.methods[name]
	r.mu.RUnlock()
	if ok {
		return m, true
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if m, ok := r.methods[name]; ok {
		return m, true
	}
	factory, ok := r.factories[name]
	if !ok {
		return nil, false
	}
	m = factory()
	if m == nil {
		slog.Error(fmt.Sprintf("%s - [%s] factory for %s returned nil", logPrefix, r.config.Name, name))
		return nil, false
	}
	if m.Name() != name {
		slog.Warn(fmt.Sprintf("%s - [%s] factory for %s built a method named %s", logPrefix, r.config.Name, name, m.Name()))
	}
	delete(r.factories, name)
	r.methods[name] = m
	return m, true
}

// Names returns every bound name, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.methods)+len(r.factories))
	for name := range r.methods {
		names = append(names, name)
	}
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of bound names.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.methods) + len(r.factories)
}

// Reset drops every binding.
func (r *Registry) Reset() {
	r.mu.Lock()
	r.methods = make(map[string]method.Method)
	r.factories = make(map[string]func() method.Method)
	r.mu.Unlock()
}

// AutoRegisterAll binds every manifest entry tagged with scope and returns how
// many were bound. Entries are validated before any is bound, so a bad
// manifest changes nothing. Re-running with the same manifest is harmless.
func (r *Registry) AutoRegisterAll(manifest Manifest, scope string) (int, error) {
	entries := manifest.Scoped(scope)
	for i, e := range entries {
		if e.Name == "" || e.New == nil {
			err := NewRegistryError(ErrCodeInvalidMethod, fmt.Sprintf("manifest entry %d in scope %s has no name or constructor", i, scope))
			err.Details = map[string]interface{}{"index": i, "name": e.Name}
			return 0, err
		}
	}

	added := make([]string, 0, len(entries))
	for _, e := range entries {
		if !r.RespondTo(e.Name) {
			added = append(added, e.Name)
		}
		r.RegisterFactory(e.Name, e.New)
	}

	slog.Info(fmt.Sprintf("%s - [%s] auto-registered %d method(s) for scope %s", logPrefix, r.config.Name, len(entries), scope))

	if len(added) > 0 {
		sort.Strings(added)
		event := &events.MethodsChangedEvent{
			Registry:  r.config.Name,
			Scope:     scope,
			Added:     added,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		}
		if err := r.publisher.PublishMethodsChanged(context.Background(), event); err != nil {
			slog.Warn(fmt.Sprintf("%s - [%s] failed to publish methods-changed: %v", logPrefix, r.config.Name, err))
		}
	}
	return len(entries), nil
}
