// Package mock provides interceptors for the pipe's debug hooks: an inert
// base, a function adapter, a chain and a YAML rule set.
package mock

import (
	"github.com/morezero/method-pipe/pkg/pipe"
)

// Base is the inert interceptor. Embed it to override single hooks.
type Base struct{}

// InterceptBridgeCall returns call unchanged.
func (Base) InterceptBridgeCall(call pipe.Call) pipe.Call { return call }

// InvokeBridgeResult never answers.
func (Base) InvokeBridgeResult(pipe.Call) (pipe.Response, bool) { return pipe.Response{}, false }

// InterceptBridgeResult returns resp unchanged.
func (Base) InterceptBridgeResult(_ pipe.Call, resp pipe.Response) pipe.Response { return resp }

// Func builds an interceptor from optional functions. Nil fields behave like
// Base.
type Func struct {
	Call   func(pipe.Call) pipe.Call
	Invoke func(pipe.Call) (pipe.Response, bool)
	Result func(pipe.Call, pipe.Response) pipe.Response
}

// InterceptBridgeCall implements pipe.Interceptor.
func (f Func) InterceptBridgeCall(call pipe.Call) pipe.Call {
	if f.Call == nil {
		return call
	}
	return f.Call(call)
}

// InvokeBridgeResult implements pipe.Interceptor.
func (f Func) InvokeBridgeResult(call pipe.Call) (pipe.Response, bool) {
	if f.Invoke == nil {
		return pipe.Response{}, false
	}
	return f.Invoke(call)
}

// InterceptBridgeResult implements pipe.Interceptor.
func (f Func) InterceptBridgeResult(call pipe.Call, resp pipe.Response) pipe.Response {
	if f.Result == nil {
		return resp
	}
	return f.Result(call, resp)
}

// Chain runs interceptors in order. The first one answering a call wins;
// rewrites compose left to right.
type Chain []pipe.Interceptor

// InterceptBridgeCall implements pipe.Interceptor.
func (c Chain) InterceptBridgeCall(call pipe.Call) pipe.Call {
	for _, i := range c {
		call = i.InterceptBridgeCall(call)
	}
	return call
}

// InvokeBridgeResult implements pipe.Interceptor.
func (c Chain) InvokeBridgeResult(call pipe.Call) (pipe.Response, bool) {
	for _, i := range c {
		if resp, ok := i.InvokeBridgeResult(call); ok {
			return resp, true
		}
	}
	return pipe.Response{}, false
}

// InterceptBridgeResult implements pipe.Interceptor.
func (c Chain) InterceptBridgeResult(call pipe.Call, resp pipe.Response) pipe.Response {
	for _, i := range c {
		resp = i.InterceptBridgeResult(call, resp)
	}
	return resp
}
