package registry

import (
	"context"
	"time"
)

// Probe is a named dependency check run by Health.
type Probe struct {
	Name  string
	Check func(ctx context.Context) error
}

// Health reports the number of bound methods and the result of every probe.
// The registry is unhealthy when it binds nothing or a probe fails.
func (r *Registry) Health(ctx context.Context, probes ...Probe) *HealthOutput {
	out := &HealthOutput{
		Status:    "healthy",
		Methods:   r.Len(),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	if out.Methods == 0 {
		out.Status = "unhealthy"
	}

	if len(probes) > 0 {
		out.Checks = make(map[string]bool, len(probes))
		for _, p := range probes {
			ok := p.Check == nil || p.Check(ctx) == nil
			out.Checks[p.Name] = ok
			if !ok {
				out.Status = "unhealthy"
			}
		}
	}
	return out
}
