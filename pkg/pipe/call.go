package pipe

import (
	"context"
	"fmt"

	"github.com/morezero/method-pipe/pkg/method"
)

// Call is a raw invocation as it arrives from the scripting side.
type Call struct {
	ID          string                 `json:"id,omitempty"`
	MethodName  string                 `json:"methodName"`
	ContainerID string                 `json:"containerId,omitempty"`
	Params      map[string]interface{} `json:"params"`
	Thread      method.Thread          `json:"-"`
}

// CallContext is resolved once when a call enters the pipe.
type CallContext struct {
	// Thread is where the method runs after teardown routing was applied.
	Thread method.Thread
	// Destroying is set when the call's container was tearing down at entry.
	Destroying bool
}

// Response is what a call completes with.
type Response struct {
	CallID string                 `json:"callId,omitempty"`
	Status method.Status          `json:"status"`
	Data   map[string]interface{} `json:"data,omitempty"`
}

// Callback receives the single Response of a call.
type Callback func(Response)

// Future resolves once with the Response of a call.
type Future struct {
	done chan struct{}
	resp Response
}

func newFuture() *Future {
	return &Future{done: make(chan struct{})}
}

func (f *Future) resolve(r Response) {
	f.resp = r
	close(f.done)
}

// Done is closed when the response is available.
func (f *Future) Done() <-chan struct{} {
	return f.done
}

// Response returns the response without waiting. ok is false while the call
// is still running.
func (f *Future) Response() (Response, bool) {
	select {
	case <-f.done:
		return f.resp, true
	default:
		return Response{}, false
	}
}

// Wait blocks until the response is available or ctx ends. Waiting on the main
// loop goroutine for a main-thread call never returns before ctx ends.
func (f *Future) Wait(ctx context.Context) (Response, error) {
	select {
	case <-f.done:
		return f.resp, nil
	case <-ctx.Done():
		return Response{}, fmt.Errorf("%s - wait aborted: %w", logPrefix, ctx.Err())
	}
}
