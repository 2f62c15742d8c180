package events

import "context"

// EventPublisher carries pipe events to whoever listens on the host side.
type EventPublisher interface {
	Publish(ctx context.Context, event *PipeEvent) error
	PublishMethodsChanged(ctx context.Context, event *MethodsChangedEvent) error
}

// NoOpPublisher is an EventPublisher that does nothing (for in-process usage without events).
type NoOpPublisher struct{}

// Publish is a no-op.
func (p *NoOpPublisher) Publish(_ context.Context, _ *PipeEvent) error {
	return nil
}

// PublishMethodsChanged is a no-op.
func (p *NoOpPublisher) PublishMethodsChanged(_ context.Context, _ *MethodsChangedEvent) error {
	return nil
}

// CallbackPublisher forwards events to callbacks (for testing). Nil callbacks
// drop the corresponding event.
type CallbackPublisher struct {
	onEvent   func(ctx context.Context, event *PipeEvent) error
	onChanged func(ctx context.Context, event *MethodsChangedEvent) error
}

// NewCallbackPublisher creates a new CallbackPublisher.
func NewCallbackPublisher(onEvent func(ctx context.Context, event *PipeEvent) error) *CallbackPublisher {
	return &CallbackPublisher{onEvent: onEvent}
}

// OnMethodsChanged sets the callback for MethodsChangedEvent and returns p.
func (p *CallbackPublisher) OnMethodsChanged(cb func(ctx context.Context, event *MethodsChangedEvent) error) *CallbackPublisher {
	p.onChanged = cb
	return p
}

// Publish calls the event callback.
func (p *CallbackPublisher) Publish(ctx context.Context, event *PipeEvent) error {
	if p.onEvent == nil {
		return nil
	}
	return p.onEvent(ctx, event)
}

// PublishMethodsChanged calls the methods-changed callback.
func (p *CallbackPublisher) PublishMethodsChanged(ctx context.Context, event *MethodsChangedEvent) error {
	if p.onChanged == nil {
		return nil
	}
	return p.onChanged(ctx, event)
}
