package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/morezero/method-pipe/pkg/events"
)

const reportersLogPrefix = "monitor:reporters"

// MonitorEventName is the pipe event a report is published as.
const MonitorEventName = "monitor"

// LogReporter writes every report at Debug level.
type LogReporter struct{}

// Report implements Reporter.
func (LogReporter) Report(r Report) {
	slog.Debug(fmt.Sprintf("%s - %s code=%d func=%.3fms call=%.3fms callback=%.3fms client=%.3fms",
		reportersLogPrefix, r.Method, r.Code, r.FuncCallMs, r.CallMs, r.CallbackCallMs, r.ClientCallMs))
}

// PrometheusReporter records call counts and durations.
type PrometheusReporter struct {
	duration *prometheus.HistogramVec
	calls    *prometheus.CounterVec
}

// NewPrometheusReporter creates the collectors and registers them with reg.
// A nil reg leaves them unregistered.
func NewPrometheusReporter(reg prometheus.Registerer) (*PrometheusReporter, error) {
	p := &PrometheusReporter{
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "method_pipe_call_duration_ms",
			Help:    "Time from function start to callback end per pipe call, in milliseconds.",
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 25, 50, 100, 250, 500, 1000, 5000},
		}, []string{"method", "code"}),
		calls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "method_pipe_calls_total",
			Help: "Completed pipe calls by method and status code.",
		}, []string{"method", "code"}),
	}
	if reg != nil {
		for _, c := range []prometheus.Collector{p.duration, p.calls} {
			if err := reg.Register(c); err != nil {
				return nil, fmt.Errorf("%s - failed to register collector: %w", reportersLogPrefix, err)
			}
		}
	}
	return p, nil
}

// Report implements Reporter. Calls without a measurable duration are only
// counted.
func (p *PrometheusReporter) Report(r Report) {
	code := strconv.Itoa(r.Code)
	p.calls.WithLabelValues(r.Method, code).Inc()
	if r.CallMs >= 0 {
		p.duration.WithLabelValues(r.Method, code).Observe(r.CallMs)
	}
}

// TraceReporter turns every report into a span covering the recorded stamps.
type TraceReporter struct {
	tracer trace.Tracer
}

// NewTraceReporter creates a TraceReporter on tracer.
func NewTraceReporter(tracer trace.Tracer) *TraceReporter {
	return &TraceReporter{tracer: tracer}
}

// Report implements Reporter.
func (t *TraceReporter) Report(r Report) {
	if r.StartedAt.IsZero() {
		return
	}
	attrs := []attribute.KeyValue{
		attribute.String("pipe.method", r.Method),
		attribute.Int("pipe.code", r.Code),
		attribute.Float64("pipe.func_call_ms", r.FuncCallMs),
		attribute.Float64("pipe.callback_call_ms", r.CallbackCallMs),
	}
	if r.CallID != "" {
		attrs = append(attrs, attribute.String("pipe.call_id", r.CallID))
	}
	if r.ContainerID != "" {
		attrs = append(attrs, attribute.String("pipe.container_id", r.ContainerID))
	}
	for k, v := range r.Categories {
		attrs = append(attrs, attribute.String("pipe.category."+k, v))
	}

	_, span := t.tracer.Start(context.Background(), "pipe.call "+r.Method,
		trace.WithTimestamp(r.StartedAt),
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(attrs...),
	)
	if r.Code != 1 {
		span.SetStatus(codes.Error, fmt.Sprintf("status code %d", r.Code))
	}
	span.End(trace.WithTimestamp(r.EndedAt))
}

// EventReporter publishes every report as a pipe event.
type EventReporter struct {
	publisher events.EventPublisher
}

// NewEventReporter creates an EventReporter. A nil publisher discards reports.
func NewEventReporter(publisher events.EventPublisher) *EventReporter {
	if publisher == nil {
		publisher = &events.NoOpPublisher{}
	}
	return &EventReporter{publisher: publisher}
}

// Report implements Reporter.
func (e *EventReporter) Report(r Report) {
	event := events.NewPipeEvent(MonitorEventName, r.ContainerID, r.Map())
	if err := e.publisher.Publish(context.Background(), event); err != nil {
		slog.Warn(fmt.Sprintf("%s - failed to publish monitor event for %s: %v", reportersLogPrefix, r.Method, err))
	}
}
