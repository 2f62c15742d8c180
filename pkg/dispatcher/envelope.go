// Package dispatcher turns call envelopes arriving over COMMS or HTTP into pipe
// calls and pipe responses back into response envelopes.
package dispatcher

import (
	"fmt"
	"strings"

	"github.com/morezero/method-pipe/pkg/commsutil"
	"github.com/morezero/method-pipe/pkg/method"
	"github.com/morezero/method-pipe/pkg/pipe"
	"github.com/morezero/method-pipe/pkg/semver"
)

const envelopeLogPrefix = "dispatcher:envelope"

// threadTypeParam is the params key consulted when the envelope carries no
// top-level threadType.
const threadTypeParam = "threadType"

// CallEnvelope is the JSON payload of a boundary-crossing call.
type CallEnvelope struct {
	ID              string                 `json:"id,omitempty"`
	MethodName      string                 `json:"methodName"`
	ContainerID     string                 `json:"containerId,omitempty"`
	Params          map[string]interface{} `json:"params"`
	ThreadType      string                 `json:"threadType,omitempty"`
	ProtocolVersion string                 `json:"protocolVersion,omitempty"`
}

// ResponseEnvelope is the JSON payload answering a CallEnvelope.
type ResponseEnvelope struct {
	ID              string                 `json:"id,omitempty"`
	Code            int                    `json:"code"`
	Msg             string                 `json:"msg"`
	Data            map[string]interface{} `json:"data,omitempty"`
	ContainerID     string                 `json:"containerId,omitempty"`
	ProtocolVersion string                 `json:"protocolVersion"`
}

// EncodeCall serializes env.
func EncodeCall(env *CallEnvelope) ([]byte, error) {
	data, err := commsutil.EncodePayload(env)
	if err != nil {
		return nil, fmt.Errorf("%s - failed to encode call: %w", envelopeLogPrefix, err)
	}
	return data, nil
}

// DecodeCall parses a call envelope.
func DecodeCall(data []byte) (*CallEnvelope, error) {
	var env CallEnvelope
	if err := commsutil.DecodePayload(data, &env); err != nil {
		return nil, fmt.Errorf("%s - failed to decode call: %w", envelopeLogPrefix, err)
	}
	return &env, nil
}

// EncodeResponse serializes env.
func EncodeResponse(env *ResponseEnvelope) ([]byte, error) {
	data, err := commsutil.EncodePayload(env)
	if err != nil {
		return nil, fmt.Errorf("%s - failed to encode response: %w", envelopeLogPrefix, err)
	}
	return data, nil
}

// DecodeResponse parses a response envelope.
func DecodeResponse(data []byte) (*ResponseEnvelope, error) {
	var env ResponseEnvelope
	if err := commsutil.DecodePayload(data, &env); err != nil {
		return nil, fmt.Errorf("%s - failed to decode response: %w", envelopeLogPrefix, err)
	}
	return &env, nil
}

// ThreadName returns the effective wire thread name of env.
func (env *CallEnvelope) ThreadName() string {
	if strings.TrimSpace(env.ThreadType) != "" {
		return env.ThreadType
	}
	if s, ok := env.Params[threadTypeParam].(string); ok {
		return s
	}
	return ""
}

// ToCall converts env into a pipe call. Failures are reported as the status
// the call completes with.
func (env *CallEnvelope) ToCall() (pipe.Call, *method.Status) {
	if err := semver.CheckProtocol(env.ProtocolVersion); err != nil {
		s := method.InvalidParam(fmt.Sprintf("Unsupported protocol version: %s", env.ProtocolVersion))
		return pipe.Call{}, &s
	}
	thread, err := method.ParseThread(env.ThreadName())
	if err != nil {
		s := method.InvalidParam(fmt.Sprintf("Invalid threadType: %s", env.ThreadName()))
		return pipe.Call{}, &s
	}
	return pipe.Call{
		ID:          env.ID,
		MethodName:  env.MethodName,
		ContainerID: env.ContainerID,
		Params:      env.Params,
		Thread:      thread,
	}, nil
}

// NewResponseEnvelope builds the response envelope of resp.
func NewResponseEnvelope(containerID string, resp pipe.Response) *ResponseEnvelope {
	return &ResponseEnvelope{
		ID:              resp.CallID,
		Code:            int(resp.Status.Code),
		Msg:             resp.Status.Desc(),
		Data:            resp.Data,
		ContainerID:     containerID,
		ProtocolVersion: semver.ResponseProtocolVersion,
	}
}

func statusEnvelope(id, containerID string, s method.Status) *ResponseEnvelope {
	return NewResponseEnvelope(containerID, pipe.Response{CallID: id, Status: s})
}
