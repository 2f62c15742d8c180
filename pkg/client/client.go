// Package client is the calling side of the bridge. It validates inputs
// locally before a call crosses the boundary and always hands back a
// well-formed Response, whatever the other side answered.
package client

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/morezero/method-pipe/pkg/commsutil"
	"github.com/morezero/method-pipe/pkg/dispatcher"
	"github.com/morezero/method-pipe/pkg/method"
	"github.com/morezero/method-pipe/pkg/semver"
)

const logPrefix = "client:client"

// Codes and messages of locally produced responses.
const (
	CodeLocal          = -1
	UnknownErrorMsg    = "Unknown error"
	InvalidParamsNil   = "Invalid params: params cannot be null or undefined"
	transportFailedFmt = "Pipe call failed: %v"
)

// Response is what every call function returns.
type Response struct {
	Code int                    `json:"code"`
	Msg  string                 `json:"msg"`
	Data map[string]interface{} `json:"data,omitempty"`
}

// OK reports whether the call succeeded.
func (r Response) OK() bool {
	return r.Code == int(method.CodeSucceeded)
}

func invalid(msg string) Response {
	return Response{Code: CodeLocal, Msg: msg}
}

// rawResponse distinguishes absent fields from zero values.
type rawResponse struct {
	Code *int                   `json:"code"`
	Msg  *string                `json:"msg"`
	Data map[string]interface{} `json:"data"`
}

// normalize turns any payload into a Response. Absent code or msg fall back to
// CodeLocal and UnknownErrorMsg.
func normalize(payload []byte) Response {
	var raw *rawResponse
	if len(payload) > 0 {
		if err := commsutil.DecodePayload(payload, &raw); err != nil {
			slog.Warn(fmt.Sprintf("%s - malformed response: %v", logPrefix, err))
			raw = nil
		}
	}
	resp := Response{Code: CodeLocal, Msg: UnknownErrorMsg}
	if raw == nil {
		return resp
	}
	if raw.Code != nil {
		resp.Code = *raw.Code
	}
	if raw.Msg != nil {
		resp.Msg = *raw.Msg
	}
	resp.Data = raw.Data
	return resp
}

// NewClientParams holds parameters for NewClient.
type NewClientParams struct {
	Transport Transport
	// ContainerID is stamped on every call.
	ContainerID string
	// Thread is the wire thread name of every call. Empty is main thread.
	Thread string
}

// Client issues calls through a Transport.
type Client struct {
	transport   Transport
	containerID string
	thread      string
}

// NewClient creates a Client.
func NewClient(params NewClientParams) *Client {
	return &Client{
		transport:   params.Transport,
		containerID: params.ContainerID,
		thread:      params.Thread,
	}
}

// Call sends methodName with params. It never returns an error: transport
// failures come back as CodeInvalidResult responses.
func (c *Client) Call(ctx context.Context, methodName string, params map[string]interface{}) Response {
	if c.transport == nil {
		return Response{Code: int(method.CodeInvalidResult), Msg: fmt.Sprintf(transportFailedFmt, "no transport")}
	}
	env := &dispatcher.CallEnvelope{
		ID:              uuid.NewString(),
		MethodName:      methodName,
		ContainerID:     c.containerID,
		Params:          params,
		ThreadType:      c.thread,
		ProtocolVersion: semver.DefaultProtocolVersion,
	}
	payload, err := c.transport.RoundTrip(ctx, env)
	if err != nil {
		slog.Warn(fmt.Sprintf("%s - %s failed: %v", logPrefix, methodName, err))
		return Response{Code: int(method.CodeInvalidResult), Msg: fmt.Sprintf(transportFailedFmt, err)}
	}
	return normalize(payload)
}

// Router returns the router.* call functions.
func (c *Client) Router() *Router {
	return &Router{client: c}
}

// Storage returns the storage.* call functions.
func (c *Client) Storage() *Storage {
	return &Storage{client: c}
}
