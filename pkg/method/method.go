// Package method defines the unit of boundary-crossing work: a named, stateless
// Method with typed parameter and result models, and the status taxonomy every
// call completes with.
package method

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	"github.com/morezero/method-pipe/pkg/di"
	"github.com/morezero/method-pipe/pkg/model"
)

// Thread selects where a method executes.
type Thread int

const (
	// ThreadMain runs the method on the host main (UI) thread. It is the default.
	ThreadMain Thread = iota
	// ThreadCurrent runs the method inline on the dispatching goroutine.
	ThreadCurrent
)

// Wire names of the thread targets.
const (
	ThreadMainName    = "MAIN_THREAD"
	ThreadCurrentName = "CURRENT_THREAD"
)

func (t Thread) String() string {
	if t == ThreadCurrent {
		return ThreadCurrentName
	}
	return ThreadMainName
}

// ParseThread maps a wire thread name to a Thread. The empty string is the
// main thread.
func ParseThread(s string) (Thread, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", ThreadMainName:
		return ThreadMain, nil
	case ThreadCurrentName:
		return ThreadCurrent, nil
	default:
		return ThreadMain, fmt.Errorf("unknown threadType %q", s)
	}
}

// Done completes a call. result is a result model (struct, pointer to struct or
// string-keyed map) or nil.
type Done func(status Status, result interface{})

// Invocation is what a method sees of the call it serves.
type Invocation struct {
	CallID      string
	ContainerID string
	Thread      Thread
	// Services is the DI container capabilities are resolved from.
	Services *di.Container
}

// Method is a named unit of work. Implementations must be safe for concurrent
// use; they hold no per-call state.
type Method interface {
	Name() string
	ParamsType() reflect.Type
	ResultType() reflect.Type
	// DecodeParams builds the validated parameter model from a raw map.
	DecodeParams(raw map[string]interface{}) (interface{}, error)
	// Invoke executes with params previously returned by DecodeParams. done
	// must be called exactly once.
	Invoke(ctx context.Context, inv *Invocation, params interface{}, done Done)
}

// Handler is the typed execution function of a method.
type Handler[P, R any] func(ctx context.Context, inv *Invocation, params P, done func(Status, *R))

type typed[P, R any] struct {
	name    string
	handler Handler[P, R]
}

// New builds a Method from a typed handler. P and R must be struct types.
func New[P, R any](name string, handler Handler[P, R]) Method {
	return &typed[P, R]{name: name, handler: handler}
}

func (m *typed[P, R]) Name() string { return m.name }

func (m *typed[P, R]) ParamsType() reflect.Type { return reflect.TypeOf((*P)(nil)).Elem() }

func (m *typed[P, R]) ResultType() reflect.Type { return reflect.TypeOf((*R)(nil)).Elem() }

func (m *typed[P, R]) DecodeParams(raw map[string]interface{}) (interface{}, error) {
	return model.Decode[P](raw)
}

func (m *typed[P, R]) Invoke(ctx context.Context, inv *Invocation, params interface{}, done Done) {
	p, ok := params.(P)
	if !ok {
		done(InvalidParam(fmt.Sprintf("Params model type mismatch: got %T", params)), nil)
		return
	}
	m.handler(ctx, inv, p, func(s Status, r *R) {
		if r == nil {
			done(s, nil)
			return
		}
		done(s, r)
	})
}

// Description is the externally visible shape of a method.
type Description struct {
	Name   string        `json:"name"`
	Params []model.Field `json:"params"`
	Result []model.Field `json:"result"`
}

// Describe reports the name and model schemas of m.
func Describe(m Method) Description {
	return Description{
		Name:   m.Name(),
		Params: model.Describe(m.ParamsType()),
		Result: model.Describe(m.ResultType()),
	}
}
