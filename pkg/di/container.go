// Package di resolves platform services for methods. A Container maps a
// capability type plus an optional qualifier to a factory with a lifetime
// scope. Methods only ever see capability interfaces; which implementation
// backs them is decided by whoever fills the container.
package di

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"reflect"
	"sync"
)

const logPrefix = "di:container"

// Scope is the lifetime of a binding.
type Scope int

const (
	// Transient bindings invoke their factory on every resolution.
	Transient Scope = iota
	// ContainerScope bindings invoke their factory once; the container owns the
	// instance and returns it on every later resolution.
	ContainerScope
)

func (s Scope) String() string {
	if s == ContainerScope {
		return "container"
	}
	return "transient"
}

type key struct {
	typ  reflect.Type
	name string
}

func (k key) String() string {
	if k.name == "" {
		return k.typ.String()
	}
	return fmt.Sprintf("%s(%s)", k.typ, k.name)
}

type binding struct {
	scope   Scope
	factory func(*Container) interface{}

	mu       sync.Mutex
	built    bool
	instance interface{}
}

// Container is safe for concurrent use. Registrations take the write lock;
// resolutions share the read lock. Container-scope factories run under a
// per-binding lock so a factory may resolve its own dependencies.
type Container struct {
	mu       sync.RWMutex
	bindings map[key]*binding
}

// New returns an empty Container.
func New() *Container {
	return &Container{bindings: make(map[key]*binding)}
}

type options struct {
	name string
}

// Option qualifies a registration or resolution.
type Option func(*options)

// Named sets the qualifier. The empty qualifier is the default binding.
func Named(name string) Option {
	return func(o *options) { o.name = name }
}

func keyFor[T any](opts []Option) key {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return key{typ: reflect.TypeOf((*T)(nil)).Elem(), name: o.name}
}

// Register binds factory to capability T. Re-registering the same (T,
// qualifier) replaces the previous binding and drops any cached instance.
func Register[T any](c *Container, scope Scope, factory func(*Container) T, opts ...Option) {
	k := keyFor[T](opts)
	c.put(k, &binding{
		scope:   scope,
		factory: func(c *Container) interface{} { return factory(c) },
	})
}

// RegisterInstance binds an already constructed instance to T in container
// scope.
func RegisterInstance[T any](c *Container, instance T, opts ...Option) {
	k := keyFor[T](opts)
	c.put(k, &binding{
		scope:    ContainerScope,
		built:    true,
		instance: instance,
	})
}

// Resolve returns the instance bound to T, or false when nothing is bound.
func Resolve[T any](c *Container, opts ...Option) (T, bool) {
	var zero T
	if c == nil {
		return zero, false
	}
	v, ok := c.resolve(keyFor[T](opts))
	if !ok {
		return zero, false
	}
	t, ok := v.(T)
	if !ok {
		return zero, false
	}
	return t, true
}

// MustResolve is Resolve for wiring code, where an absent binding is a setup bug.
func MustResolve[T any](c *Container, opts ...Option) T {
	t, ok := Resolve[T](c, opts...)
	if !ok {
		panic(fmt.Errorf("%s - no binding for %s", logPrefix, keyFor[T](opts)))
	}
	return t
}

// Has reports whether T is bound.
func Has[T any](c *Container, opts ...Option) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.bindings[keyFor[T](opts)]
	return ok
}

// Unregister removes the binding for T. Absent bindings are ignored.
func Unregister[T any](c *Container, opts ...Option) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.bindings, keyFor[T](opts))
}

func (c *Container) put(k key, b *binding) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.bindings[k]; exists {
		slog.Debug(fmt.Sprintf("%s - replacing binding %s", logPrefix, k))
	}
	c.bindings[k] = b
}

func (c *Container) resolve(k key) (interface{}, bool) {
	c.mu.RLock()
	b, ok := c.bindings[k]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}

	if b.scope == Transient {
		return b.factory(c), true
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.built {
		b.instance = b.factory(c)
		b.built = true
	}
	return b.instance, true
}

// Len returns the number of bindings.
func (c *Container) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.bindings)
}

// Close closes every container-scope instance this container built that
// implements io.Closer. Transient instances belong to their callers.
func (c *Container) Close() error {
	c.mu.Lock()
	bindings := make([]*binding, 0, len(c.bindings))
	for _, b := range c.bindings {
		bindings = append(bindings, b)
	}
	c.mu.Unlock()

	var errs []error
	for _, b := range bindings {
		if b.scope != ContainerScope || b.factory == nil {
			continue
		}
		b.mu.Lock()
		inst, built := b.instance, b.built
		b.instance, b.built = nil, false
		b.mu.Unlock()
		if !built {
			continue
		}
		if closer, ok := inst.(io.Closer); ok {
			if err := closer.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s - close: %w", logPrefix, errors.Join(errs...))
	}
	return nil
}
