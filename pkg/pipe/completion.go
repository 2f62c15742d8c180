package pipe

import (
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/morezero/method-pipe/pkg/method"
	"github.com/morezero/method-pipe/pkg/model"
	"github.com/morezero/method-pipe/pkg/monitor"
)

// ErrCompletedTwice is the panic value raised when a call completes a second
// time.
var ErrCompletedTwice = errors.New("pipe: call completed twice")

// completion delivers the single response of one call.
type completion struct {
	pipe  *Pipe
	call  Call
	rec   *monitor.Record
	cb    Callback
	fired atomic.Bool

	// recovered is set once the method panicked; a late done is then dropped.
	recovered atomic.Bool
}

// finish converts result, applies the result hook and fires the callback. A
// second finish panics with ErrCompletedTwice unless the method panicked first.
func (c *completion) finish(status method.Status, result interface{}) {
	if !c.fired.CompareAndSwap(false, true) {
		if c.recovered.Load() {
			slog.Warn(fmt.Sprintf("%s - %s completed after panicking, dropping status %s", logPrefix, c.call.MethodName, status))
			return
		}
		panic(fmt.Errorf("%w: %s", ErrCompletedTwice, c.call.MethodName))
	}
	c.complete(status, result)
}

func (c *completion) complete(status method.Status, result interface{}) {
	c.rec.Mark(monitor.FuncCallEnd)

	data, err := model.ToMap(result)
	if err != nil {
		slog.Error(fmt.Sprintf("%s - %s returned an unconvertible result: %v", logPrefix, c.call.MethodName, err))
		status = method.Status{Code: method.CodeInvalidResult, Message: "Result type mismatch"}
		data = nil
	}

	resp := Response{CallID: c.call.ID, Status: status, Data: data}
	if c.pipe.interceptor != nil {
		resp = c.pipe.interceptor.InterceptBridgeResult(c.call, resp)
		resp.CallID = c.call.ID
	}
	c.deliver(resp)
}

// tryFinish is finish for recovery paths, where the method may already have
// completed or be completing on another goroutine. Losing the race only logs.
func (c *completion) tryFinish(status method.Status) {
	c.recovered.Store(true)
	if !c.fired.CompareAndSwap(false, true) {
		slog.Warn(fmt.Sprintf("%s - %s already completed, dropping status %s", logPrefix, c.call.MethodName, status))
		return
	}
	c.complete(status, nil)
}

// shortCircuit delivers resp as is. It is used for responses that never reach
// a method, so the result hook is skipped.
func (c *completion) shortCircuit(resp Response) {
	if !c.fired.CompareAndSwap(false, true) {
		panic(fmt.Errorf("%w: %s", ErrCompletedTwice, c.call.MethodName))
	}
	resp.CallID = c.call.ID
	c.deliver(resp)
}

func (c *completion) deliver(resp Response) {
	c.rec.Mark(monitor.CallbackStart)
	if c.cb != nil {
		c.cb(resp)
	}
	c.rec.Mark(monitor.CallbackEnd)
	c.pipe.monitor.Emit(c.rec, int(resp.Status.Code))
}
