package commsutil

import (
	"context"
	"encoding/json"
	"fmt"

	comms "github.com/nats-io/nats.go"
)

const codecLogPrefix = "commsutil:codec"

// EncodePayload serializes a value to JSON bytes.
func EncodePayload(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}

// DecodePayload deserializes JSON bytes into the given target.
func DecodePayload(data []byte, v interface{}) error {
	return json.Unmarshal(data, v)
}

// RequestJSON encodes req, sends it as a COMMS request on subject and returns
// the raw reply bytes. The context bounds the wait for the reply.
func RequestJSON(ctx context.Context, nc *comms.Conn, subject string, req interface{}) ([]byte, error) {
	if nc == nil {
		return nil, fmt.Errorf("%s - no COMMS connection", codecLogPrefix)
	}
	data, err := EncodePayload(req)
	if err != nil {
		return nil, fmt.Errorf("%s - failed to encode request: %w", codecLogPrefix, err)
	}
	msg, err := nc.RequestWithContext(ctx, subject, data)
	if err != nil {
		return nil, fmt.Errorf("%s - request to %s failed: %w", codecLogPrefix, subject, err)
	}
	return msg.Data, nil
}
