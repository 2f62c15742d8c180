// Package events defines the events a pipe emits and the publishers that carry
// them to the host.
package events

import "time"

// PipeEvent is a named, container-scoped notification from native code to the
// scripting layer (route requests, monitor reports, custom events).
type PipeEvent struct {
	Name        string                 `json:"name"`
	ContainerID string                 `json:"containerId,omitempty"`
	Params      map[string]interface{} `json:"params,omitempty"`
	Timestamp   string                 `json:"timestamp"`
}

// NewPipeEvent stamps a PipeEvent with the current UTC time.
func NewPipeEvent(name, containerID string, params map[string]interface{}) *PipeEvent {
	return &PipeEvent{
		Name:        name,
		ContainerID: containerID,
		Params:      params,
		Timestamp:   time.Now().UTC().Format(time.RFC3339Nano),
	}
}

// MethodsChangedEvent is emitted when the set of methods bound in a registry
// changes.
type MethodsChangedEvent struct {
	Registry  string   `json:"registry"`
	Scope     string   `json:"scope,omitempty"`
	Added     []string `json:"added,omitempty"`
	Removed   []string `json:"removed,omitempty"`
	Timestamp string   `json:"timestamp"`
}
