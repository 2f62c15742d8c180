package commsutil

import "testing"

func TestBuildEventSubject(t *testing.T) {
	tests := []struct {
		name   string
		prefix string
		event  string
		want   string
	}{
		{"basic", "pipe.event", "router.open", "pipe.event.router.open"},
		{"default prefix", "", "monitor", "pipe.event.monitor"},
		{"custom prefix", "app.evt", "custom", "app.evt.custom"},
		{"stray dots", "pipe.event", ".router..close.", "pipe.event.router.close"},
		{"spaces", "pipe.event", "my event", "pipe.event.my_event"},
		{"empty name", "pipe.event", "", "pipe.event.unnamed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := BuildEventSubject(tt.prefix, tt.event)
			if got != tt.want {
				t.Errorf("commsutil:subjects_test - BuildEventSubject(%q, %q) = %q, want %q", tt.prefix, tt.event, got, tt.want)
			}
		})
	}
}
