package stage

import (
	"context"
	"fmt"
)

// HealthChecker is implemented by every workflow stage so status surfaces can
// report readiness without knowing stage internals.
type HealthChecker interface {
	HealthCheck(context.Context) Health
}

// Health is one stage's readiness. Detail names the backend when ready and
// the blocking problem otherwise.
type Health struct {
	Name   string `json:"name"`
	Ready  bool   `json:"ready"`
	Detail string `json:"detail,omitempty"`
}

func Ready(name, detail string) Health {
	return Health{Name: name, Ready: true, Detail: detail}
}

func NotReady(name, format string, args ...any) Health {
	return Health{Name: name, Detail: fmt.Sprintf(format, args...)}
}

// Blocking returns the records that are not ready.
func Blocking(records []Health) []Health {
	var out []Health
	for _, h := range records {
		if !h.Ready {
			out = append(out, h)
		}
	}
	return out
}
