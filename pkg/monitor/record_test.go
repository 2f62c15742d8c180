package monitor

import (
	"testing"
	"time"
)

const recordTestPrefix = "monitor:record_test"

func TestRecord_Report(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	at := func(ms int) time.Time { return base.Add(time.Duration(ms) * time.Millisecond) }

	tests := []struct {
		name         string
		stamps       map[Stage]time.Time
		wantFunc     float64
		wantCall     float64
		wantCallback float64
		wantClient   float64
	}{
		{
			name: "all stamps",
			stamps: map[Stage]time.Time{
				NativeCallStart: at(0),
				FuncCallStart:   at(2),
				FuncCallEnd:     at(7),
				CallbackStart:   at(10),
				CallbackEnd:     at(12),
			},
			wantFunc: 5, wantCall: 10, wantCallback: 2, wantClient: 12,
		},
		{
			name:     "nothing recorded",
			stamps:   map[Stage]time.Time{},
			wantFunc: Unset, wantCall: Unset, wantCallback: Unset, wantClient: Unset,
		},
		{
			name: "no function start",
			stamps: map[Stage]time.Time{
				CallbackStart: at(1),
				CallbackEnd:   at(4),
			},
			wantFunc: Unset, wantCall: Unset, wantCallback: 3, wantClient: Unset,
		},
		{
			name: "end before start",
			stamps: map[Stage]time.Time{
				FuncCallStart: at(10),
				FuncCallEnd:   at(5),
				CallbackEnd:   at(20),
			},
			wantFunc: Unset, wantCall: 10, wantCallback: Unset, wantClient: Unset,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := NewRecord("storage.getItem", "c1", "call-1")
			for s, ts := range tt.stamps {
				rec.MarkAt(s, ts)
			}
			rep := rec.Report(1)
			if rep.Event != EventName || rep.Method != "storage.getItem" || rep.Code != 1 {
				t.Errorf("%s - header = %+v", recordTestPrefix, rep)
			}
			checks := []struct {
				label     string
				got, want float64
			}{
				{"func", rep.FuncCallMs, tt.wantFunc},
				{"call", rep.CallMs, tt.wantCall},
				{"callback", rep.CallbackCallMs, tt.wantCallback},
				{"client", rep.ClientCallMs, tt.wantClient},
			}
			for _, c := range checks {
				if c.got != c.want {
					t.Errorf("%s - %s = %v, want %v", recordTestPrefix, c.label, c.got, c.want)
				}
			}
		})
	}
}

func TestRecord_SpanAndCategories(t *testing.T) {
	rec := NewRecord("router.open", "", "")
	start := time.Now()
	rec.MarkAt(FuncCallStart, start)
	rec.MarkAt(CallbackEnd, start.Add(3*time.Millisecond))
	rec.SetCategory("thread", "MAIN_THREAD")

	rep := rec.Report(0)
	if !rep.StartedAt.Equal(start) || !rep.EndedAt.Equal(start.Add(3*time.Millisecond)) {
		t.Errorf("%s - span = %v..%v", recordTestPrefix, rep.StartedAt, rep.EndedAt)
	}
	m := rep.Map()
	if m["thread"] != "MAIN_THREAD" {
		t.Errorf("%s - category missing from map: %v", recordTestPrefix, m)
	}
	if m["bridge_method_name"] != "router.open" || m["jsb_call"] != 3.0 {
		t.Errorf("%s - map = %v", recordTestPrefix, m)
	}
}

func TestRecord_NilIsInert(t *testing.T) {
	var rec *Record
	rec.Mark(FuncCallStart)
	rec.SetCategory("k", "v")
	rec.MarkAt(Stage(99), time.Now())
}
