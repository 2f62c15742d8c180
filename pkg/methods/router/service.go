// Package router implements the router.* leaf methods and the router.Service
// capability they resolve from the DI container.
package router

import (
	"context"
	"fmt"

	"github.com/morezero/method-pipe/pkg/di"
	"github.com/morezero/method-pipe/pkg/events"
)

// OpenRequest is what the host needs to open a scheme.
type OpenRequest struct {
	ContainerID   string                 `json:"containerId,omitempty"`
	Scheme        string                 `json:"scheme"`
	UseSysBrowser bool                   `json:"useSysBrowser"`
	Animated      bool                   `json:"animated"`
	Interceptor   string                 `json:"interceptor,omitempty"`
	Extra         map[string]interface{} `json:"extra,omitempty"`
	Post          *PostConfig            `json:"post,omitempty"`
}

// PostConfig asks the host to load the scheme with a POST request.
type PostConfig struct {
	Body   string                 `json:"postBody"`
	Header map[string]interface{} `json:"postHeader,omitempty"`
}

// Service opens and closes host views.
type Service interface {
	// OpenScheme reports whether some host handler accepted the scheme.
	OpenScheme(ctx context.Context, req OpenRequest) (bool, error)
	// CloseView closes containerID, or the calling container when it is empty.
	CloseView(ctx context.Context, containerID string, animated bool) (bool, error)
}

// From resolves the Service bound in c.
func From(c *di.Container) (Service, bool) {
	return di.Resolve[Service](c)
}

// Event names published by EventService.
const (
	EventOpen  = "router.open"
	EventClose = "router.close"
)

// EventService forwards route requests to the host UI as pipe events. A
// request counts as handled once the event is published.
type EventService struct {
	publisher events.EventPublisher
}

// NewEventService creates an EventService on publisher.
func NewEventService(publisher events.EventPublisher) *EventService {
	if publisher == nil {
		publisher = &events.NoOpPublisher{}
	}
	return &EventService{publisher: publisher}
}

// OpenScheme implements Service.
func (s *EventService) OpenScheme(ctx context.Context, req OpenRequest) (bool, error) {
	params := map[string]interface{}{
		"scheme":        req.Scheme,
		"useSysBrowser": req.UseSysBrowser,
		"animated":      req.Animated,
	}
	if req.Interceptor != "" {
		params["interceptor"] = req.Interceptor
	}
	if req.Extra != nil {
		params["extra"] = req.Extra
	}
	if req.Post != nil {
		params["postBody"] = req.Post.Body
		if req.Post.Header != nil {
			params["postHeader"] = req.Post.Header
		}
	}
	if err := s.publisher.Publish(ctx, events.NewPipeEvent(EventOpen, req.ContainerID, params)); err != nil {
		return false, fmt.Errorf("%s - failed to publish open: %w", logPrefix, err)
	}
	return true, nil
}

// CloseView implements Service.
func (s *EventService) CloseView(ctx context.Context, containerID string, animated bool) (bool, error) {
	params := map[string]interface{}{"animated": animated}
	if err := s.publisher.Publish(ctx, events.NewPipeEvent(EventClose, containerID, params)); err != nil {
		return false, fmt.Errorf("%s - failed to publish close: %w", logPrefix, err)
	}
	return true, nil
}
