package commsutil

import (
	"fmt"
	"strings"
)

// Default COMMS subjects.
const (
	SubjectCall           = "pipe.call"
	SubjectContainer      = "pipe.container"
	SubjectEventPrefix    = "pipe.event"
	SubjectEvents         = "pipe.events"
	SubjectMethodsChanged = "pipe.methods.changed"
	QueueGroup            = "method-pipe"
)

// BuildEventSubject builds the per-event subject for an event name. Empty
// tokens produced by stray dots are collapsed; an empty name maps to
// "<prefix>.unnamed".
func BuildEventSubject(prefix, name string) string {
	if prefix == "" {
		prefix = SubjectEventPrefix
	}
	var tokens []string
	for _, tok := range strings.Split(name, ".") {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}
		tokens = append(tokens, strings.ReplaceAll(tok, " ", "_"))
	}
	if len(tokens) == 0 {
		return fmt.Sprintf("%s.unnamed", prefix)
	}
	return fmt.Sprintf("%s.%s", prefix, strings.Join(tokens, "."))
}
