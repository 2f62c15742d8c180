// Package monitor records per-call timing and fans aggregate reports out to
// reporters. It is a side channel: nothing here can fail or block a call.
package monitor

import (
	"sync"
	"time"
)

// EventName is the event every report is published under.
const EventName = "jsb_fe_call_monitor"

// Stage is a timestamped point in the life of a call.
type Stage int

const (
	FuncCallStart Stage = iota
	FuncCallEnd
	CallbackStart
	CallbackEnd
	NativeCallStart
	stageCount
)

func (s Stage) String() string {
	switch s {
	case FuncCallStart:
		return "func_call_start"
	case FuncCallEnd:
		return "func_call_end"
	case CallbackStart:
		return "callback_start"
	case CallbackEnd:
		return "callback_end"
	case NativeCallStart:
		return "native_call_start"
	}
	return "unknown"
}

// Record collects the timestamps and categories of one call. It is safe for
// concurrent use; a nil Record ignores every call.
type Record struct {
	Method      string
	ContainerID string
	CallID      string

	mu         sync.Mutex
	stamps     [stageCount]time.Time
	categories map[string]string
}

// NewRecord starts a record for one call.
func NewRecord(method, containerID, callID string) *Record {
	return &Record{Method: method, ContainerID: containerID, CallID: callID}
}

// Mark stamps s with the current time.
func (r *Record) Mark(s Stage) {
	r.MarkAt(s, time.Now())
}

// MarkAt stamps s with t. Out-of-range stages are ignored.
func (r *Record) MarkAt(s Stage, t time.Time) {
	if r == nil || s < 0 || s >= stageCount {
		return
	}
	r.mu.Lock()
	r.stamps[s] = t
	r.mu.Unlock()
}

// SetCategory attaches a free-form key/value to the report.
func (r *Record) SetCategory(key, value string) {
	if r == nil {
		return
	}
	r.mu.Lock()
	if r.categories == nil {
		r.categories = make(map[string]string)
	}
	r.categories[key] = value
	r.mu.Unlock()
}

// Report aggregates the record into durations. A duration whose governing
// stamps are missing, or that would be negative, is reported as -1.
func (r *Record) Report(code int) Report {
	r.mu.Lock()
	defer r.mu.Unlock()

	rep := Report{
		Event:          EventName,
		Method:         r.Method,
		ContainerID:    r.ContainerID,
		CallID:         r.CallID,
		Code:           code,
		FuncCallMs:     span(r.stamps[FuncCallStart], r.stamps[FuncCallEnd]),
		CallMs:         span(r.stamps[FuncCallStart], r.stamps[CallbackEnd]),
		CallbackCallMs: span(r.stamps[CallbackStart], r.stamps[CallbackEnd]),
		ClientCallMs:   span(r.stamps[NativeCallStart], r.stamps[CallbackEnd]),
	}
	if len(r.categories) > 0 {
		rep.Categories = make(map[string]string, len(r.categories))
		for k, v := range r.categories {
			rep.Categories[k] = v
		}
	}
	for _, t := range r.stamps {
		if t.IsZero() {
			continue
		}
		if rep.StartedAt.IsZero() || t.Before(rep.StartedAt) {
			rep.StartedAt = t
		}
		if t.After(rep.EndedAt) {
			rep.EndedAt = t
		}
	}
	return rep
}

// Unset is the duration reported when it cannot be computed.
const Unset = -1.0

func span(start, end time.Time) float64 {
	if start.IsZero() || end.IsZero() {
		return Unset
	}
	d := end.Sub(start)
	if d < 0 {
		return Unset
	}
	return float64(d) / float64(time.Millisecond)
}

// Report is the aggregate timing of one completed call, in milliseconds.
type Report struct {
	Event          string            `json:"event"`
	Method         string            `json:"bridge_method_name"`
	ContainerID    string            `json:"containerId,omitempty"`
	CallID         string            `json:"callId,omitempty"`
	Code           int               `json:"code"`
	FuncCallMs     float64           `json:"jsb_func_call"`
	CallMs         float64           `json:"jsb_call"`
	CallbackCallMs float64           `json:"jsb_callback_call"`
	ClientCallMs   float64           `json:"jsb_client_call"`
	Categories     map[string]string `json:"categories,omitempty"`

	StartedAt time.Time `json:"-"`
	EndedAt   time.Time `json:"-"`
}

// Map returns the report as event params.
func (r Report) Map() map[string]interface{} {
	m := map[string]interface{}{
		"event":              r.Event,
		"bridge_method_name": r.Method,
		"code":               r.Code,
		"jsb_func_call":      r.FuncCallMs,
		"jsb_call":           r.CallMs,
		"jsb_callback_call":  r.CallbackCallMs,
		"jsb_client_call":    r.ClientCallMs,
	}
	if r.CallID != "" {
		m["callId"] = r.CallID
	}
	for k, v := range r.Categories {
		if _, taken := m[k]; !taken {
			m[k] = v
		}
	}
	return m
}
