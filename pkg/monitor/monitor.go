package monitor

import (
	"fmt"
	"log/slog"
)

const logPrefix = "monitor:monitor"

// Reporter receives completed call reports.
type Reporter interface {
	Report(r Report)
}

// ReporterFunc adapts a function to Reporter.
type ReporterFunc func(Report)

// Report implements Reporter.
func (f ReporterFunc) Report(r Report) { f(r) }

// Monitor fans reports out to its reporters. A nil Monitor is valid and
// reports nothing.
type Monitor struct {
	reporters []Reporter
}

// New creates a Monitor. Nil reporters are skipped.
func New(reporters ...Reporter) *Monitor {
	m := &Monitor{}
	for _, r := range reporters {
		if r != nil {
			m.reporters = append(m.reporters, r)
		}
	}
	return m
}

// Start opens a record for a call, or returns nil when nothing would read it.
func (m *Monitor) Start(method, containerID, callID string) *Record {
	if m == nil || len(m.reporters) == 0 {
		return nil
	}
	return NewRecord(method, containerID, callID)
}

// Emit reports rec under code. Reporter panics are logged and swallowed.
func (m *Monitor) Emit(rec *Record, code int) {
	if m == nil || rec == nil {
		return
	}
	report := rec.Report(code)
	for _, r := range m.reporters {
		m.deliver(r, report)
	}
}

func (m *Monitor) deliver(r Reporter, report Report) {
	defer func() {
		if p := recover(); p != nil {
			slog.Error(fmt.Sprintf("%s - reporter %T panicked on %s: %v", logPrefix, r, report.Method, p))
		}
	}()
	r.Report(report)
}
