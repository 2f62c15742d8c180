package dispatcher

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/morezero/method-pipe/pkg/method"
	"github.com/morezero/method-pipe/pkg/pipe"
)

const logPrefix = "dispatcher:dispatch"

// RateLimitedMessage is the message of calls rejected by the limiter.
const RateLimitedMessage = "rate limited"

// NewDispatcherParams holds parameters for NewDispatcher.
type NewDispatcherParams struct {
	Pipe *pipe.Pipe
	// Limiter may be nil.
	Limiter *Limiter
	// Timeout bounds the wait on each call. Zero leaves only the caller's
	// context in charge.
	Timeout time.Duration
}

// Dispatcher executes call envelopes on a Pipe.
type Dispatcher struct {
	pipe    *pipe.Pipe
	limiter *Limiter
	timeout time.Duration
	now     func() time.Time
}

// NewDispatcher creates a Dispatcher.
func NewDispatcher(params NewDispatcherParams) *Dispatcher {
	return &Dispatcher{
		pipe:    params.Pipe,
		limiter: params.Limiter,
		timeout: params.Timeout,
		now:     time.Now,
	}
}

// Dispatch runs env and waits for its response. The wait ends with a timeout
// status when ctx or the dispatcher timeout expires first.
func (d *Dispatcher) Dispatch(ctx context.Context, env *CallEnvelope) *ResponseEnvelope {
	if env == nil {
		return statusEnvelope("", "", method.InvalidParam(pipe.EmptyParamsMessage))
	}
	slog.Debug(fmt.Sprintf("%s - method=%s id=%s container=%s", logPrefix, env.MethodName, env.ID, env.ContainerID))

	if !d.limiter.Allow(env.MethodName, d.now()) {
		slog.Warn(fmt.Sprintf("%s - %s rate limited", logPrefix, env.MethodName))
		return statusEnvelope(env.ID, env.ContainerID, method.Fail(RateLimitedMessage))
	}

	call, bad := env.ToCall()
	if bad != nil {
		return statusEnvelope(env.ID, env.ContainerID, *bad)
	}

	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	resp, err := d.pipe.Execute(ctx, call).Wait(ctx)
	if err != nil {
		slog.Warn(fmt.Sprintf("%s - %s did not complete: %v", logPrefix, env.MethodName, err))
		return statusEnvelope(env.ID, env.ContainerID, method.Timeout(fmt.Sprintf("Method %s timed out", env.MethodName)))
	}
	return NewResponseEnvelope(env.ContainerID, resp)
}

// DispatchBytes decodes a call envelope, dispatches it and encodes the
// response. Undecodable payloads answer with invalid-parameter.
func (d *Dispatcher) DispatchBytes(ctx context.Context, data []byte) []byte {
	var resp *ResponseEnvelope
	env, err := DecodeCall(data)
	if err != nil {
		resp = statusEnvelope("", "", method.InvalidParam(fmt.Sprintf("Invalid call envelope: %v", err)))
	} else {
		resp = d.Dispatch(ctx, env)
	}
	out, err := EncodeResponse(resp)
	if err != nil {
		slog.Error(fmt.Sprintf("%s - failed to encode response for %s: %v", logPrefix, resp.ID, err))
		out, _ = EncodeResponse(statusEnvelope(resp.ID, resp.ContainerID, method.Status{Code: method.CodeInvalidResult, Message: "Result type mismatch"}))
	}
	return out
}
