package events

import (
	"context"
	"fmt"
	"log/slog"

	comms "github.com/nats-io/nats.go"

	"github.com/morezero/method-pipe/pkg/commsutil"
)

const commsPublisherLogPrefix = "events:comms_publisher"

// CommsPublisherOpts configures CommsPublisher. Nil or zero values use defaults.
type CommsPublisherOpts struct {
	// EventSubjectPrefix overrides the per-event subject prefix (e.g. from PIPE_EVENT_SUBJECT_PREFIX).
	EventSubjectPrefix string
	// GlobalSubject overrides the subject every event is also published to.
	GlobalSubject string
	// ChangeSubject overrides the subject of methods-changed events.
	ChangeSubject string
}

// CommsPublisher publishes pipe events to COMMS subjects.
type CommsPublisher struct {
	nc            *comms.Conn
	prefix        string
	globalSubject string
	changeSubject string
}

// NewCommsPublisher creates a new CommsPublisher. Pass nil for opts to use defaults.
func NewCommsPublisher(nc *comms.Conn, opts *CommsPublisherOpts) *CommsPublisher {
	p := &CommsPublisher{
		nc:            nc,
		prefix:        commsutil.SubjectEventPrefix,
		globalSubject: commsutil.SubjectEvents,
		changeSubject: commsutil.SubjectMethodsChanged,
	}
	if opts != nil {
		if opts.EventSubjectPrefix != "" {
			p.prefix = opts.EventSubjectPrefix
		}
		if opts.GlobalSubject != "" {
			p.globalSubject = opts.GlobalSubject
		}
		if opts.ChangeSubject != "" {
			p.changeSubject = opts.ChangeSubject
		}
	}
	return p
}

// Publish publishes a PipeEvent to both the per-event and the global subject.
func (p *CommsPublisher) Publish(_ context.Context, event *PipeEvent) error {
	data, err := commsutil.EncodePayload(event)
	if err != nil {
		return fmt.Errorf("%s - failed to encode event: %w", commsPublisherLogPrefix, err)
	}

	granularSubject := commsutil.BuildEventSubject(p.prefix, event.Name)
	if err := p.nc.Publish(granularSubject, data); err != nil {
		slog.Error(fmt.Sprintf("%s - failed to publish to %s: %v", commsPublisherLogPrefix, granularSubject, err))
		return err
	}

	if err := p.nc.Publish(p.globalSubject, data); err != nil {
		slog.Error(fmt.Sprintf("%s - failed to publish to %s: %v", commsPublisherLogPrefix, p.globalSubject, err))
		return err
	}

	slog.Debug(fmt.Sprintf("%s - Published event %s container=%s", commsPublisherLogPrefix, event.Name, event.ContainerID))
	return nil
}

// PublishMethodsChanged publishes a MethodsChangedEvent.
func (p *CommsPublisher) PublishMethodsChanged(_ context.Context, event *MethodsChangedEvent) error {
	data, err := commsutil.EncodePayload(event)
	if err != nil {
		return fmt.Errorf("%s - failed to encode methods-changed event: %w", commsPublisherLogPrefix, err)
	}
	if err := p.nc.Publish(p.changeSubject, data); err != nil {
		slog.Error(fmt.Sprintf("%s - failed to publish to %s: %v", commsPublisherLogPrefix, p.changeSubject, err))
		return err
	}
	return nil
}
