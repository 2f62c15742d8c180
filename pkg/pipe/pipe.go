// Package pipe is the dispatch engine of the bridge. A Pipe receives raw
// calls, resolves and validates them, routes execution to the requested thread
// and completes every call exactly once through its callback.
package pipe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/google/uuid"

	"github.com/morezero/method-pipe/pkg/di"
	"github.com/morezero/method-pipe/pkg/events"
	"github.com/morezero/method-pipe/pkg/method"
	"github.com/morezero/method-pipe/pkg/monitor"
	"github.com/morezero/method-pipe/pkg/registry"
)

const logPrefix = "pipe:pipe"

// EmptyParamsMessage is the message of calls that carry no params map.
const EmptyParamsMessage = "Pipe inner error: empty params"

// Params holds parameters for New.
type Params struct {
	// Global is the shared registry consulted after the pipe's own methods.
	Global *registry.Registry
	// Slot supplies the DI provider. Calls panic with di.ErrProviderNotInjected
	// while it is empty.
	Slot *di.Slot
	// Main is the host main thread. Defaults to Inline.
	Main Scheduler
	// Monitor receives per-call timing. May be nil.
	Monitor *monitor.Monitor
	// Interceptor is consulted only when Debug is set.
	Interceptor Interceptor
	Debug       bool
	// Containers tracks container teardown. Defaults to an empty tracker.
	Containers *Containers
	// Aliases maps alternative method names. May be nil.
	Aliases AliasResolver
	// Publisher carries FireEvent events. Defaults to NoOpPublisher.
	Publisher events.EventPublisher
}

// Pipe dispatches calls. It is safe for concurrent use.
type Pipe struct {
	local       *registry.Registry
	global      *registry.Registry
	slot        *di.Slot
	main        Scheduler
	monitor     *monitor.Monitor
	interceptor Interceptor
	containers  *Containers
	aliases     AliasResolver
	publisher   events.EventPublisher
}

// New creates a Pipe.
func New(params Params) *Pipe {
	p := &Pipe{
		local:       registry.NewRegistry(registry.NewRegistryParams{Config: registry.Config{Name: "local"}}),
		global:      params.Global,
		slot:        params.Slot,
		main:        params.Main,
		monitor:     params.Monitor,
		interceptor: params.Interceptor,
		containers:  params.Containers,
		aliases:     params.Aliases,
		publisher:   params.Publisher,
	}
	if p.global == nil {
		p.global = registry.New()
	}
	if p.slot == nil {
		p.slot = di.NewSlot()
	}
	if p.main == nil {
		p.main = Inline{}
	}
	if p.containers == nil {
		p.containers = NewContainers()
	}
	if p.publisher == nil {
		p.publisher = &events.NoOpPublisher{}
	}
	if p.interceptor != nil && !params.Debug {
		slog.Warn(fmt.Sprintf("%s - interceptor ignored outside debug mode", logPrefix))
		p.interceptor = nil
	}
	return p
}

// Containers returns the container tracker.
func (p *Pipe) Containers() *Containers {
	return p.containers
}

// RegisterLocal binds m on this pipe only. Local methods shadow global ones.
func (p *Pipe) RegisterLocal(m method.Method) {
	p.local.Register(m)
}

// UnregisterLocal removes a local binding.
func (p *Pipe) UnregisterLocal(name string) {
	p.local.Unregister(name)
}

// Lookup finds name among local methods first, then global ones.
func (p *Pipe) Lookup(name string) (method.Method, bool) {
	if m, ok := p.local.Lookup(name); ok {
		return m, true
	}
	return p.global.Lookup(name)
}

// RespondTo reports whether name resolves to a method.
func (p *Pipe) RespondTo(name string) bool {
	return p.local.RespondTo(p.resolveAlias(name)) || p.global.RespondTo(p.resolveAlias(name))
}

// Methods returns every resolvable method name, sorted.
func (p *Pipe) Methods() []string {
	seen := make(map[string]bool)
	var names []string
	for _, r := range []*registry.Registry{p.local, p.global} {
		for _, n := range r.Names() {
			if !seen[n] {
				seen[n] = true
				names = append(names, n)
			}
		}
	}
	sort.Strings(names)
	return names
}

// FireEvent publishes a named event to the scripting side of containerID.
func (p *Pipe) FireEvent(ctx context.Context, name, containerID string, params map[string]interface{}) error {
	if name == "" {
		return fmt.Errorf("%s - event name is empty", logPrefix)
	}
	if err := p.publisher.Publish(ctx, events.NewPipeEvent(name, containerID, params)); err != nil {
		return fmt.Errorf("%s - failed to fire event %s: %w", logPrefix, name, err)
	}
	return nil
}

// Execute dispatches call and returns a Future for its response.
func (p *Pipe) Execute(ctx context.Context, call Call) *Future {
	f := newFuture()
	p.ExecuteMethod(ctx, call, f.resolve)
	return f
}

// ExecuteMethod dispatches call and returns without waiting for the method.
// cb fires exactly once, on the goroutine that completes the call.
func (p *Pipe) ExecuteMethod(ctx context.Context, call Call, cb Callback) {
	if call.ID == "" {
		call.ID = uuid.NewString()
	}
	cc := p.resolveContext(call)

	rec := p.monitor.Start(call.MethodName, call.ContainerID, call.ID)
	rec.Mark(monitor.NativeCallStart)
	rec.SetCategory("thread", cc.Thread.String())

	c := &completion{pipe: p, call: call, rec: rec, cb: cb}

	if p.interceptor != nil {
		if resp, ok := p.interceptor.InvokeBridgeResult(call); ok {
			slog.Debug(fmt.Sprintf("%s - %s answered by interceptor", logPrefix, call.MethodName))
			c.shortCircuit(resp)
			return
		}
		call = p.interceptor.InterceptBridgeCall(call)
		c.call = call
	}

	name := p.resolveAlias(call.MethodName)
	m, ok := p.Lookup(name)
	if !ok {
		slog.Debug(fmt.Sprintf("%s - no handler for %s", logPrefix, call.MethodName))
		c.shortCircuit(Response{Status: method.NoHandler(call.MethodName)})
		return
	}

	if call.Params == nil {
		c.shortCircuit(Response{Status: method.InvalidParam(EmptyParamsMessage)})
		return
	}

	rec.Mark(monitor.FuncCallStart)
	params, err := m.DecodeParams(call.Params)
	if err != nil {
		c.finish(method.InvalidParam(err.Error()), nil)
		return
	}

	inv := &method.Invocation{
		CallID:      call.ID,
		ContainerID: call.ContainerID,
		Thread:      cc.Thread,
		Services:    p.slot.Provider().PipeShared(),
	}

	slog.Debug(fmt.Sprintf("%s - dispatching %s container=%s thread=%s", logPrefix, name, call.ContainerID, cc.Thread))
	run := func() { p.invoke(ctx, m, inv, params, c) }
	if cc.Thread == method.ThreadCurrent {
		run()
		return
	}
	p.main.Post(run)
}

func (p *Pipe) resolveContext(call Call) CallContext {
	cc := CallContext{Thread: call.Thread}
	if p.containers.IsDestroying(call.ContainerID) {
		cc.Destroying = true
		cc.Thread = method.ThreadMain
	}
	return cc
}

func (p *Pipe) resolveAlias(name string) string {
	if p.aliases == nil {
		return name
	}
	if resolved := p.aliases.ResolveAlias(name); resolved != "" {
		return resolved
	}
	return name
}

func (p *Pipe) invoke(ctx context.Context, m method.Method, inv *method.Invocation, params interface{}, c *completion) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		if err, ok := r.(error); ok && errors.Is(err, ErrCompletedTwice) {
			panic(r)
		}
		slog.Error(fmt.Sprintf("%s - %s panicked: %v", logPrefix, m.Name(), r))
		c.tryFinish(method.Unknown(fmt.Sprintf("Method %s panicked: %v", m.Name(), r)))
	}()
	m.Invoke(ctx, inv, params, c.finish)
}
