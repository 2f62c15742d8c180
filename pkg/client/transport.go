package client

import (
	"context"
	"fmt"

	comms "github.com/nats-io/nats.go"

	"github.com/morezero/method-pipe/pkg/commsutil"
	"github.com/morezero/method-pipe/pkg/dispatcher"
)

const transportLogPrefix = "client:transport"

// Transport carries one call envelope across the boundary and returns the raw
// response payload.
type Transport interface {
	RoundTrip(ctx context.Context, env *dispatcher.CallEnvelope) ([]byte, error)
}

// NATSTransport sends envelopes as COMMS requests.
type NATSTransport struct {
	conn    *comms.Conn
	subject string
}

// NewNATSTransport returns a transport publishing on subject, or on
// commsutil.SubjectCall when subject is empty.
func NewNATSTransport(conn *comms.Conn, subject string) *NATSTransport {
	if subject == "" {
		subject = commsutil.SubjectCall
	}
	return &NATSTransport{conn: conn, subject: subject}
}

// RoundTrip implements Transport.
func (t *NATSTransport) RoundTrip(ctx context.Context, env *dispatcher.CallEnvelope) ([]byte, error) {
	data, err := commsutil.RequestJSON(ctx, t.conn, t.subject, env)
	if err != nil {
		return nil, fmt.Errorf("%s - %w", transportLogPrefix, err)
	}
	return data, nil
}

// LocalTransport hands envelopes to an in-process Dispatcher.
type LocalTransport struct {
	dispatcher *dispatcher.Dispatcher
}

// NewLocalTransport wraps d.
func NewLocalTransport(d *dispatcher.Dispatcher) *LocalTransport {
	return &LocalTransport{dispatcher: d}
}

// RoundTrip implements Transport.
func (t *LocalTransport) RoundTrip(ctx context.Context, env *dispatcher.CallEnvelope) ([]byte, error) {
	if t.dispatcher == nil {
		return nil, fmt.Errorf("%s - no dispatcher", transportLogPrefix)
	}
	data, err := dispatcher.EncodeCall(env)
	if err != nil {
		return nil, err
	}
	return t.dispatcher.DispatchBytes(ctx, data), nil
}

// TransportFunc adapts a function to Transport.
type TransportFunc func(ctx context.Context, env *dispatcher.CallEnvelope) ([]byte, error)

// RoundTrip implements Transport.
func (f TransportFunc) RoundTrip(ctx context.Context, env *dispatcher.CallEnvelope) ([]byte, error) {
	return f(ctx, env)
}
